package diagnosis

import "fmt"

// Diabetes is the Pima-style diabetes module. Gender only gates the
// pregnancies input; the model never sees it.
var Diabetes = mustSchema(SchemaSpec{
	Key:   "diabetes",
	Title: "Diabetes Prediction",
	Fields: []Field{
		{Name: "gender", Label: "Gender", Kind: KindCategorical, Required: true, Placeholder: "Select Gender",
			Options: []Option{{Label: "Female", Code: 0}, {Label: "Male", Code: 1}}},
		{Name: "pregnancies", Label: "Pregnancies", Kind: KindNumeric, Min: 0, Max: 20,
			DependsOn: &Condition{Field: "gender", Equals: "Female"}},
		{Name: "glucose", Label: "Glucose", Kind: KindNumeric, Unit: "mg/dL", Required: true, Min: 0, Max: 500, ZeroIsUnset: true},
		{Name: "blood_pressure", Label: "Blood Pressure", Kind: KindNumeric, Unit: "mmHg", Required: true, Min: 0, Max: 200, ZeroIsUnset: true},
		{Name: "skin_thickness", Label: "Skin Thickness", Kind: KindNumeric, Unit: "mm", Required: true, Min: 0, Max: 100, ZeroIsUnset: true},
		{Name: "insulin", Label: "Insulin", Kind: KindNumeric, Unit: "μU/mL", Required: true, Min: 0, Max: 1000, ZeroIsUnset: true},
		{Name: "bmi", Label: "BMI", Kind: KindNumeric, Unit: "kg/m²", Required: true, Min: 0, Max: 70, ZeroIsUnset: true},
		{Name: "diabetes_pedigree", Label: "Diabetes Pedigree", Kind: KindNumeric, Required: true, Min: 0, Max: 3, ZeroIsUnset: true,
			Help: "Genetic predisposition score"},
		{Name: "age", Label: "Age", Kind: KindNumeric, Unit: "years", Required: true, Min: 0, Max: 120, ZeroIsUnset: true},
	},
	EncodingOrder: []string{
		"pregnancies", "glucose", "blood_pressure", "skin_thickness",
		"insulin", "bmi", "diabetes_pedigree", "age",
	},
	Overrides: []Rule{
		{Name: "severe_hyperglycemia", Tier: TierEmergency, When: atLeast("glucose", 400),
			Reason: "Glucose of 400 mg/dL or more indicates a hyperglycemic crisis"},
	},
	Escalations: []Rule{
		{Name: "hyperglycemia_age_obesity", Tier: TierHigh,
			When:   allOf(atLeast("glucose", 200), above("age", 45), atLeast("bmi", 30)),
			Reason: "Glucose of 200 mg/dL or more with age over 45 and BMI of 30 or more"},
	},
	Metrics: []MetricSpec{
		{Name: "Glucose Level", Unit: "mg/dL", Reference: "70-99 mg/dL", Value: field("glucose"), Flag: band(0, 126)},
		{Name: "Blood Pressure", Unit: "mmHg", Value: field("blood_pressure"), Flag: band(0, 120)},
		{Name: "BMI", Reference: "18.5-24.9", Value: field("bmi"), Flag: band(18.5, 25),
			Display: func(x float64, _ Values) string { return fmt.Sprintf("%.1f", x) }},
		{Name: "Age", Unit: "years", Value: field("age"), Flag: band(0, 45)},
	},
	Headlines: map[Tier]string{
		TierEmergency: "Dangerously High Blood Glucose",
		TierHigh:      "High Risk of Diabetes Detected",
		TierLow:       "Low Risk of Diabetes",
	},
	Recommendations: map[Tier][]string{
		TierEmergency: {
			"Seek emergency medical care immediately",
			"Do not drive yourself; call emergency services if confused or vomiting",
			"Bring a list of current medications",
		},
		TierHigh: {
			"Consult an endocrinologist within 1 week",
			"Get HbA1c test for confirmation",
			"Begin monitoring fasting glucose daily",
		},
		TierLow: {
			"Annual glucose check if over 40",
			"Maintain BMI under 25",
			"150 mins exercise/week",
			"Limit processed sugars",
		},
	},
})
