package diagnosis

import "testing"

func TestEvaluateOverrides_Covid(t *testing.T) {
	tests := []struct {
		name     string
		in       RawInputs
		wantRule string
	}{
		{"normal", validInputs("covid19"), ""},
		{"fever and breathing difficulty", with(validInputs("covid19"), "temperature", 103.5, "breathing_difficulty", "Yes"), "high_fever_with_breathing_difficulty"},
		{"threshold is inclusive", with(validInputs("covid19"), "temperature", 103.0, "breathing_difficulty", "Yes"), "high_fever_with_breathing_difficulty"},
		{"fever alone", with(validInputs("covid19"), "temperature", 103.5), ""},
		{"breathing difficulty alone", with(validInputs("covid19"), "breathing_difficulty", "Yes"), ""},
		{"priority order", with(validInputs("covid19"), "temperature", 106, "breathing_difficulty", "Yes"), "high_fever_with_breathing_difficulty"},
		{"hyperpyrexia", with(validInputs("covid19"), "temperature", 106), "hyperpyrexia"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sig := EvaluateOverrides(Covid19, tt.in)
			if tt.wantRule == "" {
				if sig != nil {
					t.Fatalf("expected no override, got %+v", sig)
				}
				return
			}
			if sig == nil {
				t.Fatalf("expected override %q, got none", tt.wantRule)
			}
			if sig.Rule != tt.wantRule || sig.Tier != TierEmergency {
				t.Errorf("expected emergency %q, got %+v", tt.wantRule, sig)
			}
		})
	}
}

func TestEvaluateOverrides_PerDisease(t *testing.T) {
	tests := []struct {
		name   string
		schema *Schema
		in     RawInputs
		want   string
	}{
		{"hyperglycemic crisis", Diabetes, with(validInputs("diabetes"), "glucose", 450), "severe_hyperglycemia"},
		{"high glucose is not a crisis", Diabetes, with(validInputs("diabetes"), "glucose", 399), ""},
		{"hypertensive crisis", Heart, with(validInputs("heart"), "resting_bp", 185), "hypertensive_crisis"},
		{"parkinsons has no overrides", Parkinsons, validInputs("parkinsons"), ""},
		{"thyroid has no overrides", Thyroid, with(validInputs("thyroid"), "tsh", 50), ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sig := EvaluateOverrides(tt.schema, tt.in)
			got := ""
			if sig != nil {
				got = sig.Rule
			}
			if got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestEvaluateOverrides_IgnoresUnparseableValues(t *testing.T) {
	in := with(validInputs("covid19"), "temperature", "very hot", "breathing_difficulty", "Yes")
	if sig := EvaluateOverrides(Covid19, in); sig != nil {
		t.Fatalf("expected no override for unparseable temperature, got %+v", sig)
	}
}

func TestEvaluateEscalations(t *testing.T) {
	tests := []struct {
		name   string
		schema *Schema
		in     RawInputs
		want   string
	}{
		{"diabetes combined risk", Diabetes, with(validInputs("diabetes"), "glucose", 210, "age", 50, "bmi", 31), "hyperglycemia_age_obesity"},
		{"diabetes age not over 45", Diabetes, with(validInputs("diabetes"), "glucose", 210, "age", 45, "bmi", 31), ""},
		{"older smoker with two symptoms", LungCancer,
			with(validInputs("lung_cancer"), "age", 60, "smoking", "Yes", "pack_years", 30, "coughing", "Yes", "chest_pain", "Yes"),
			"older_smoker_with_symptoms"},
		{"older smoker with one symptom", LungCancer,
			with(validInputs("lung_cancer"), "age", 60, "smoking", "Yes", "pack_years", 30, "coughing", "Yes"), ""},
		{"younger smoker", LungCancer,
			with(validInputs("lung_cancer"), "age", 50, "smoking", "Yes", "pack_years", 30, "coughing", "Yes", "chest_pain", "Yes"), ""},
		{"overt TSH", Thyroid, with(validInputs("thyroid"), "tsh", 12), "overt_hypothyroid_tsh"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sig := evaluateEscalations(tt.schema, tt.in)
			got := ""
			if sig != nil {
				got = sig.Rule
				if sig.Tier != TierHigh {
					t.Errorf("escalations only raise to high, got %s", sig.Tier)
				}
			}
			if got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}
