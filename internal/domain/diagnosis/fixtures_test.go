package diagnosis

import (
	"context"
	"sync/atomic"
	"time"
)

// validInputs returns a complete, in-range submission for a disease with
// every value inside its normal reference range.
func validInputs(disease string) RawInputs {
	switch disease {
	case "diabetes":
		return RawInputs{
			"gender": "Female", "pregnancies": 2, "glucose": 95, "blood_pressure": 70,
			"skin_thickness": 20, "insulin": 80, "bmi": 22.5, "diabetes_pedigree": 0.5, "age": 35,
		}
	case "heart":
		return RawInputs{
			"age": 40, "sex": "Male", "chest_pain_type": "Non-anginal pain", "resting_bp": 120,
			"cholesterol": 200, "fasting_blood_sugar": "No", "resting_ecg": "Normal",
			"max_heart_rate": 170, "exercise_angina": "No", "st_depression": 0.5,
			"st_slope": "Upsloping", "major_vessels": 0, "thalassemia": "Normal",
		}
	case "parkinsons":
		return RawInputs{
			"mdvp_fo": 119.992, "mdvp_fhi": 157.302, "mdvp_flo": 74.997,
			"mdvp_jitter_percent": 0.00784, "mdvp_jitter_abs": 0.00007, "mdvp_rap": 0.0037,
			"mdvp_ppq": 0.00554, "jitter_ddp": 0.01109, "mdvp_shimmer": 0.04374,
			"mdvp_shimmer_db": 0.226, "shimmer_apq3": 0.02182, "shimmer_apq5": 0.0313,
			"mdvp_apq": 0.02971, "shimmer_dda": 0.06545, "nhr": 0.02211, "hnr": 21.033,
			"rpde": 0.414783, "dfa": 0.815285, "spread1": -4.813031, "spread2": 0.266482,
			"d2": 2.301442, "ppe": 0.284654,
		}
	case "lung_cancer":
		in := RawInputs{"gender": "Male", "age": 50, "smoking": "No"}
		for _, f := range []string{
			"yellow_fingers", "anxiety", "peer_pressure", "chronic_disease", "fatigue",
			"allergy", "wheezing", "alcohol", "coughing", "shortness_of_breath",
			"swallowing_difficulty", "chest_pain", "family_history",
		} {
			in[f] = "No"
		}
		return in
	case "thyroid":
		return RawInputs{
			"age": 30, "sex": "Female", "on_thyroxine": "No", "tsh": 2.0,
			"t3_measured": "Yes", "t3": 3.0, "tt4": 100,
		}
	case "covid19":
		return RawInputs{
			"temperature": 98.6, "dry_cough": "No", "sore_throat": "No", "tiredness": "No",
			"breathing_difficulty": "No", "age": 30,
		}
	}
	panic("no fixture for " + disease)
}

func with(in RawInputs, kv ...interface{}) RawInputs {
	out := make(RawInputs, len(in))
	for k, v := range in {
		out[k] = v
	}
	for i := 0; i+1 < len(kv); i += 2 {
		out[kv[i].(string)] = kv[i+1]
	}
	return out
}

func without(in RawInputs, keys ...string) RawInputs {
	out := with(in)
	for _, k := range keys {
		delete(out, k)
	}
	return out
}

type stubRegistry map[string]Model

func (r stubRegistry) Lookup(_ context.Context, disease string) (Model, bool) {
	m, ok := r[disease]
	return m, ok
}

// countingModel returns a fixed output and counts calls.
type countingModel struct {
	out   []float64
	err   error
	calls atomic.Int32
	rows  [][]float64
}

func (m *countingModel) Predict(_ context.Context, rows [][]float64) ([]float64, error) {
	m.calls.Add(1)
	m.rows = rows
	return m.out, m.err
}

func constModel(v float64) *countingModel {
	return &countingModel{out: []float64{v}}
}

// blockingModel never answers until its context is done.
var blockingModel = ModelFunc(func(ctx context.Context, _ [][]float64) ([]float64, error) {
	<-ctx.Done()
	time.Sleep(time.Millisecond)
	return nil, ctx.Err()
})
