package diagnosis

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func validationFields(t *testing.T, err error) []FieldError {
	t.Helper()
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected *ValidationError, got %T (%v)", err, err)
	}
	return verr.Fields
}

func TestValidate_AllFixturesValid(t *testing.T) {
	for _, s := range DefaultCatalog().Schemas() {
		t.Run(s.Key(), func(t *testing.T) {
			if err := Validate(s, validInputs(s.Key())); err != nil {
				t.Fatalf("expected valid fixture, got %v", err)
			}
		})
	}
}

func TestValidate_DiabetesGlucoseZero(t *testing.T) {
	err := Validate(Diabetes, with(validInputs("diabetes"), "glucose", 0))

	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected *ValidationError, got %v", err)
	}
	if diff := cmp.Diff([]string{"Glucose"}, verr.Labels()); diff != "" {
		t.Errorf("labels mismatch (-want +got):\n%s", diff)
	}
	if verr.Fields[0].Reason != ReasonMissing {
		t.Errorf("expected reason %q, got %q", ReasonMissing, verr.Fields[0].Reason)
	}
}

func TestValidate_ReportsEveryFailureAtOnce(t *testing.T) {
	fields := validationFields(t, Validate(Heart, RawInputs{}))
	if len(fields) != len(Heart.Fields()) {
		t.Fatalf("expected all %d heart fields reported, got %d", len(Heart.Fields()), len(fields))
	}
	for i, f := range Heart.Fields() {
		if fields[i].Name != f.Name {
			t.Errorf("position %d: expected %q, got %q", i, f.Name, fields[i].Name)
		}
	}
}

// Every required field left unset is reported no matter what else is wrong.
func TestValidate_Completeness(t *testing.T) {
	for _, s := range DefaultCatalog().Schemas() {
		for _, f := range s.Fields() {
			if !f.Required || f.DependsOn != nil {
				continue
			}
			t.Run(s.Key()+"/"+f.Name, func(t *testing.T) {
				for _, unset := range []interface{}{nil, ""} {
					in := with(validInputs(s.Key()), f.Name, unset)
					names := validationFields(t, Validate(s, in))
					if !containsName(names, f.Name) {
						t.Errorf("unset %v: %q not reported in %v", unset, f.Name, names)
					}
				}

				// another field broken at the same time
				other := s.Fields()[0].Name
				if other == f.Name {
					other = s.Fields()[len(s.Fields())-1].Name
				}
				in := without(validInputs(s.Key()), f.Name, other)
				names := validationFields(t, Validate(s, in))
				if !containsName(names, f.Name) {
					t.Errorf("%q not reported alongside %q: %v", f.Name, other, names)
				}
			})
		}
	}
}

func containsName(fields []FieldError, name string) bool {
	for _, f := range fields {
		if f.Name == name {
			return true
		}
	}
	return false
}

func TestValidate_ZeroSentinel(t *testing.T) {
	tests := []struct {
		name    string
		schema  *Schema
		in      RawInputs
		wantBad []string
	}{
		{"glucose zero is unset", Diabetes, with(validInputs("diabetes"), "glucose", 0), []string{"glucose"}},
		{"pregnancies zero is a value", Diabetes, with(validInputs("diabetes"), "pregnancies", 0), nil},
		{"no major vessels is a value", Heart, with(validInputs("heart"), "major_vessels", 0), nil},
		{"flat ST depression is a value", Heart, with(validInputs("heart"), "st_depression", 0), nil},
		{"zero pack years is a value", LungCancer, with(validInputs("lung_cancer"), "smoking", "Yes", "pack_years", 0), nil},
		{"zero age is unset", Covid19, with(validInputs("covid19"), "age", 0), []string{"age"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.schema, tt.in)
			if tt.wantBad == nil {
				if err != nil {
					t.Fatalf("expected valid, got %v", err)
				}
				return
			}
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected validation error, got %v", err)
			}
			if diff := cmp.Diff(tt.wantBad, verr.Names()); diff != "" {
				t.Errorf("names mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestValidate_Placeholders(t *testing.T) {
	in := with(validInputs("heart"), "sex", "Select Sex", "major_vessels", "Select Number")
	fields := validationFields(t, Validate(Heart, in))
	want := []FieldError{
		{Name: "sex", Label: "Sex", Reason: ReasonMissing},
		{Name: "major_vessels", Label: "Major Vessels Colored", Reason: ReasonMissing},
	}
	if diff := cmp.Diff(want, fields); diff != "" {
		t.Errorf("fields mismatch (-want +got):\n%s", diff)
	}

	in = with(validInputs("covid19"), "dry_cough", "Select")
	fields = validationFields(t, Validate(Covid19, in))
	if len(fields) != 1 || fields[0].Label != "Dry Cough" {
		t.Errorf("expected only Dry Cough, got %v", fields)
	}
}

func TestValidate_ConditionalRequirements(t *testing.T) {
	tests := []struct {
		name    string
		schema  *Schema
		in      RawInputs
		wantBad []string
	}{
		{"t3 required when measured", Thyroid, without(validInputs("thyroid"), "t3"), []string{"t3"}},
		{"t3 ignored when not measured", Thyroid, with(without(validInputs("thyroid"), "t3"), "t3_measured", "No"), nil},
		{"bad t3 ignored when not measured", Thyroid, with(validInputs("thyroid"), "t3_measured", "No", "t3", "n/a"), nil},
		{"pack years required for smokers", LungCancer, with(validInputs("lung_cancer"), "smoking", "Yes"), []string{"pack_years"}},
		{"pack years ignored for non-smokers", LungCancer, validInputs("lung_cancer"), nil},
		{"pregnancies optional for women", Diabetes, without(validInputs("diabetes"), "pregnancies"), nil},
		{"pregnancies ignored for men", Diabetes, with(validInputs("diabetes"), "gender", "Male", "pregnancies", 99), nil},
		{"pregnancies range checked for women", Diabetes, with(validInputs("diabetes"), "pregnancies", 99), []string{"pregnancies"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.schema, tt.in)
			if tt.wantBad == nil {
				if err != nil {
					t.Fatalf("expected valid, got %v", err)
				}
				return
			}
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected validation error, got %v", err)
			}
			if diff := cmp.Diff(tt.wantBad, verr.Names()); diff != "" {
				t.Errorf("names mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestValidate_BadValues(t *testing.T) {
	tests := []struct {
		name       string
		schema     *Schema
		in         RawInputs
		wantField  string
		wantReason string
	}{
		{"glucose above range", Diabetes, with(validInputs("diabetes"), "glucose", 900), "glucose", ReasonOutOfRange},
		{"temperature below range", Covid19, with(validInputs("covid19"), "temperature", 90), "temperature", ReasonOutOfRange},
		{"spread1 positive", Parkinsons, with(validInputs("parkinsons"), "spread1", 1.5), "spread1", ReasonOutOfRange},
		{"glucose not a number", Diabetes, with(validInputs("diabetes"), "glucose", "high"), "glucose", ReasonInvalid},
		{"unknown option", Heart, with(validInputs("heart"), "thalassemia", "Mild"), "thalassemia", ReasonInvalid},
		{"boolean nonsense", Covid19, with(validInputs("covid19"), "tiredness", "sometimes"), "tiredness", ReasonInvalid},
		{"vessels out of options", Heart, with(validInputs("heart"), "major_vessels", 4), "major_vessels", ReasonInvalid},
		{"object value", Covid19, with(validInputs("covid19"), "age", map[string]interface{}{"v": 1}), "age", ReasonInvalid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fields := validationFields(t, Validate(tt.schema, tt.in))
			want := []FieldError{{Name: tt.wantField, Label: mustField(t, tt.schema, tt.wantField).Label, Reason: tt.wantReason}}
			if diff := cmp.Diff(want, fields); diff != "" {
				t.Errorf("fields mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func mustField(t *testing.T, s *Schema, name string) Field {
	t.Helper()
	f, ok := s.Field(name)
	if !ok {
		t.Fatalf("no field %q in %s", name, s.Key())
	}
	return f
}

func TestValidate_AcceptsLooseValueForms(t *testing.T) {
	in := with(validInputs("heart"),
		"age", json.Number("40"),
		"resting_bp", "120",
		"sex", "male",
		"fasting_blood_sugar", false,
		"exercise_angina", 0,
		"major_vessels", "2",
	)
	if err := Validate(Heart, in); err != nil {
		t.Fatalf("expected loose forms to validate, got %v", err)
	}
}
