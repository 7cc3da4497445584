package diagnosis

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"
)

func newTestService(reg Registry) *Service {
	return NewService(DefaultCatalog(), reg, 50*time.Millisecond, zerolog.Nop())
}

func TestDiagnose_RespiratoryEmergency(t *testing.T) {
	in := with(validInputs("covid19"), "temperature", 103.5, "breathing_difficulty", "Yes")

	for _, verdict := range []float64{0, 1} {
		model := constModel(verdict)
		svc := newTestService(stubRegistry{"covid19": model})

		res, err := svc.Diagnose(context.Background(), "covid19", in)
		if err != nil {
			t.Fatalf("model %v: unexpected error: %v", verdict, err)
		}
		if res.Tier != TierEmergency || res.VerdictSource != SourceOverride {
			t.Errorf("model %v: expected emergency/override, got %s/%s", verdict, res.Tier, res.VerdictSource)
		}
		if res.Rule != "high_fever_with_breathing_difficulty" {
			t.Errorf("model %v: unexpected rule %q", verdict, res.Rule)
		}
	}
}

// Any input matching an override ends in the override tier whatever the
// model says.
func TestDiagnose_OverridePrecedence(t *testing.T) {
	cases := []struct {
		disease string
		in      RawInputs
	}{
		{"covid19", with(validInputs("covid19"), "temperature", 105.5)},
		{"covid19", with(validInputs("covid19"), "temperature", 104, "breathing_difficulty", "Yes")},
		{"diabetes", with(validInputs("diabetes"), "glucose", 480)},
		{"heart", with(validInputs("heart"), "resting_bp", 200)},
	}
	for _, tc := range cases {
		schema, _ := DefaultCatalog().Get(tc.disease)
		want := EvaluateOverrides(schema, tc.in)
		if want == nil {
			t.Fatalf("%s: fixture does not match an override", tc.disease)
		}
		for _, verdict := range []float64{0, 1} {
			svc := newTestService(stubRegistry{tc.disease: constModel(verdict)})
			res, err := svc.Diagnose(context.Background(), tc.disease, tc.in)
			if err != nil {
				t.Fatalf("%s/%v: unexpected error: %v", tc.disease, verdict, err)
			}
			if res.Tier != want.Tier || res.VerdictSource != SourceOverride {
				t.Errorf("%s/%v: expected %s/override, got %s/%s", tc.disease, verdict, want.Tier, res.Tier, res.VerdictSource)
			}
		}
	}
}

func TestDiagnose_MissingRequiredField(t *testing.T) {
	model := constModel(0)
	svc := newTestService(stubRegistry{"diabetes": model})

	_, err := svc.Diagnose(context.Background(), "diabetes", with(validInputs("diabetes"), "glucose", 0))
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected *ValidationError, got %v", err)
	}
	if diff := cmp.Diff([]string{"Glucose"}, verr.Labels()); diff != "" {
		t.Errorf("labels mismatch (-want +got):\n%s", diff)
	}
	if n := model.calls.Load(); n != 0 {
		t.Errorf("model should not be called for invalid input, got %d calls", n)
	}
}

func TestDiagnose_LowRiskNormalPath(t *testing.T) {
	model := constModel(0)
	svc := newTestService(stubRegistry{"heart": model})

	res, err := svc.Diagnose(context.Background(), "heart", validInputs("heart"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Tier != TierLow || res.VerdictSource != SourceModel {
		t.Errorf("expected low/model, got %s/%s", res.Tier, res.VerdictSource)
	}
	if len(res.Metrics) == 0 {
		t.Fatal("expected metrics")
	}
	for _, m := range res.Metrics {
		if m.Flag != FlagNormal {
			t.Errorf("metric %s: expected normal, got %s", m.Name, m.Flag)
		}
	}
	if len(model.rows) != 1 || len(model.rows[0]) != Heart.FeatureCount() {
		t.Errorf("expected exactly one row of %d features, got %v", Heart.FeatureCount(), model.rows)
	}
}

func TestDiagnose_ModelUnavailable(t *testing.T) {
	svc := newTestService(stubRegistry{})

	// Inputs are invalid on purpose: the missing model must be reported
	// before validation runs.
	_, err := svc.Diagnose(context.Background(), "thyroid", RawInputs{})
	var merr *ModelUnavailableError
	if !errors.As(err, &merr) {
		t.Fatalf("expected *ModelUnavailableError, got %v", err)
	}
	if merr.Disease != "thyroid" {
		t.Errorf("expected disease thyroid, got %q", merr.Disease)
	}
}

func TestDiagnose_UnknownDisease(t *testing.T) {
	svc := newTestService(stubRegistry{})
	_, err := svc.Diagnose(context.Background(), "flu", RawInputs{})
	if !errors.Is(err, ErrUnknownDisease) {
		t.Fatalf("expected ErrUnknownDisease, got %v", err)
	}
}

func TestDiagnose_Idempotent(t *testing.T) {
	for _, s := range DefaultCatalog().Schemas() {
		t.Run(s.Key(), func(t *testing.T) {
			svc := newTestService(stubRegistry{s.Key(): constModel(1)})
			in := validInputs(s.Key())

			first, err := svc.Diagnose(context.Background(), s.Key(), in)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			second, err := svc.Diagnose(context.Background(), s.Key(), in)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if diff := cmp.Diff(first, second); diff != "" {
				t.Errorf("results differ (-first +second):\n%s", diff)
			}
		})
	}
}

func TestDiagnose_PredictionErrors(t *testing.T) {
	boom := errors.New("onnx session closed")
	tests := []struct {
		name    string
		model   Model
		wantErr error
	}{
		{"model error", &countingModel{err: boom}, boom},
		{"no output", &countingModel{out: []float64{}}, errPredictArity},
		{"two outputs", &countingModel{out: []float64{0, 1}}, errPredictArity},
		{"probability instead of label", &countingModel{out: []float64{0.73}}, errPredictValue},
		{"NaN", &countingModel{out: []float64{math.NaN()}}, errPredictValue},
		{"timeout", blockingModel, errPredictTimeout},
		{"panic", ModelFunc(func(context.Context, [][]float64) ([]float64, error) { panic("bad tensor") }), nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestService(stubRegistry{"thyroid": tt.model})
			res, err := svc.Diagnose(context.Background(), "thyroid", validInputs("thyroid"))
			if res != nil {
				t.Errorf("expected no result, got %+v", res)
			}
			var perr *PredictionError
			if !errors.As(err, &perr) {
				t.Fatalf("expected *PredictionError, got %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v in chain, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestDiagnose_PredictionErrorIsNotRetried(t *testing.T) {
	model := &countingModel{err: errors.New("boom")}
	svc := newTestService(stubRegistry{"heart": model})
	_, _ = svc.Diagnose(context.Background(), "heart", validInputs("heart"))
	if n := model.calls.Load(); n != 1 {
		t.Errorf("expected one model call, got %d", n)
	}
}

func TestDiagnose_ModelTimeoutWithOverrideIsAnError(t *testing.T) {
	svc := newTestService(stubRegistry{"covid19": blockingModel})
	in := with(validInputs("covid19"), "temperature", 103.5, "breathing_difficulty", "Yes")

	res, err := svc.Diagnose(context.Background(), "covid19", in)
	if res != nil {
		t.Errorf("expected no result on a model failure, got %+v", res)
	}
	var perr *PredictionError
	if !errors.As(err, &perr) {
		t.Fatalf("expected *PredictionError, got %v", err)
	}
	if !errors.Is(err, errPredictTimeout) {
		t.Errorf("expected the timeout in the chain, got %v", err)
	}
	if perr.Override == nil {
		t.Fatal("expected the matched override to travel with the error")
	}
	if perr.Override.Tier != TierEmergency || perr.Override.VerdictSource != SourceOverride || perr.Override.ModelVerdict != nil {
		t.Errorf("unexpected override result: %+v", perr.Override)
	}
}

func TestRun_ModelFailureWithoutOverride(t *testing.T) {
	_, err := Run(context.Background(), Covid19, validInputs("covid19"), &countingModel{err: errors.New("boom")}, time.Second)
	var perr *PredictionError
	if !errors.As(err, &perr) {
		t.Fatalf("expected *PredictionError, got %v", err)
	}
	if perr.Override != nil {
		t.Errorf("expected no override for normal inputs, got %+v", perr.Override)
	}
}

func TestDiagnose_FailureDoesNotAffectNextSubmission(t *testing.T) {
	flaky := &countingModel{err: errors.New("transient")}
	svc := newTestService(stubRegistry{"covid19": flaky})

	if _, err := svc.Diagnose(context.Background(), "covid19", validInputs("covid19")); err == nil {
		t.Fatal("expected first call to fail")
	}

	flaky.err = nil
	flaky.out = []float64{0}
	res, err := svc.Diagnose(context.Background(), "covid19", validInputs("covid19"))
	if err != nil {
		t.Fatalf("unexpected error on second call: %v", err)
	}
	if res.Tier != TierLow {
		t.Errorf("expected low, got %s", res.Tier)
	}
}

func TestDiagnose_Concurrent(t *testing.T) {
	svc := newTestService(stubRegistry{
		"covid19": ModelFunc(func(_ context.Context, rows [][]float64) ([]float64, error) {
			if rows[0][0] >= 100.4 {
				return []float64{1}, nil
			}
			return []float64{0}, nil
		}),
	})

	var wg sync.WaitGroup
	errs := make(chan error, 40)
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			temp, want := 98.6, TierLow
			if i%2 == 1 {
				temp, want = 101.0, TierHigh
			}
			res, err := svc.Diagnose(context.Background(), "covid19", with(validInputs("covid19"), "temperature", temp))
			if err != nil {
				errs <- err
				return
			}
			if res.Tier != want {
				errs <- errors.New("tier mixed up between concurrent submissions")
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}

func TestRun_NilModel(t *testing.T) {
	_, err := Run(context.Background(), Covid19, validInputs("covid19"), nil, 0)
	var merr *ModelUnavailableError
	if !errors.As(err, &merr) {
		t.Fatalf("expected *ModelUnavailableError, got %v", err)
	}
}

func TestRun_ParentCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Run(ctx, Covid19, validInputs("covid19"), blockingModel, time.Second)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled in chain, got %v", err)
	}
}

type recordingObserver struct {
	mu   sync.Mutex
	seen []string
}

func (o *recordingObserver) ObserveDiagnosis(disease, outcome string, elapsed time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.seen = append(o.seen, disease+"/"+outcome)
}

func TestDiagnose_ReportsOutcomes(t *testing.T) {
	obs := &recordingObserver{}
	svc := newTestService(stubRegistry{
		"heart":   constModel(1),
		"covid19": &countingModel{err: errors.New("boom")},
	})
	svc.SetObserver(obs)
	ctx := context.Background()

	svc.Diagnose(ctx, "heart", validInputs("heart"))
	svc.Diagnose(ctx, "heart", RawInputs{})
	svc.Diagnose(ctx, "thyroid", validInputs("thyroid"))
	svc.Diagnose(ctx, "covid19", validInputs("covid19"))
	svc.Diagnose(ctx, "smallpox", RawInputs{})

	want := []string{
		"heart/high",
		"heart/" + OutcomeInvalid,
		"thyroid/" + OutcomeModelUnavailable,
		"covid19/" + OutcomePredictionFailed,
		"unknown/" + OutcomeUnknownDisease,
	}
	if diff := cmp.Diff(want, obs.seen); diff != "" {
		t.Errorf("outcomes mismatch (-want +got):\n%s", diff)
	}
}
