package diagnosis

import "fmt"

func selectYesNo(name, label string) Field {
	return Field{Name: name, Label: label, Kind: KindBoolean, Required: true, Placeholder: "Select Option"}
}

// Heart is the Cleveland heart disease module. Categorical codes follow the
// dataset: chest pain types are 1-based, thalassemia starts at 3.
var Heart = mustSchema(SchemaSpec{
	Key:   "heart",
	Title: "Heart Disease Prediction",
	Fields: []Field{
		{Name: "age", Label: "Age", Kind: KindNumeric, Unit: "years", Required: true, Min: 0, Max: 120, ZeroIsUnset: true},
		{Name: "sex", Label: "Sex", Kind: KindCategorical, Required: true, Placeholder: "Select Sex",
			Options: []Option{{Label: "Male", Code: 1}, {Label: "Female", Code: 0}}},
		{Name: "chest_pain_type", Label: "Chest Pain Type", Kind: KindCategorical, Required: true, Placeholder: "Select Type",
			Options: []Option{
				{Label: "Typical angina", Code: 1},
				{Label: "Atypical angina", Code: 2},
				{Label: "Non-anginal pain", Code: 3},
				{Label: "Asymptomatic", Code: 4},
			}},
		{Name: "resting_bp", Label: "Resting BP", Kind: KindNumeric, Unit: "mmHg", Required: true, Min: 0, Max: 300, ZeroIsUnset: true},
		{Name: "cholesterol", Label: "Cholesterol", Kind: KindNumeric, Unit: "mg/dL", Required: true, Min: 0, Max: 600, ZeroIsUnset: true},
		selectYesNo("fasting_blood_sugar", "Fasting BS >120 mg/dL"),
		{Name: "resting_ecg", Label: "Resting ECG", Kind: KindCategorical, Required: true, Placeholder: "Select Result",
			Options: []Option{
				{Label: "Normal", Code: 0},
				{Label: "ST-T wave abnormality", Code: 1},
				{Label: "Probable LVH", Code: 2},
			}},
		{Name: "max_heart_rate", Label: "Max Heart Rate", Kind: KindNumeric, Unit: "bpm", Required: true, Min: 0, Max: 250, ZeroIsUnset: true},
		selectYesNo("exercise_angina", "Exercise Induced Angina"),
		{Name: "st_depression", Label: "ST Depression", Kind: KindNumeric, Required: true, Min: 0, Max: 10},
		{Name: "st_slope", Label: "Slope of ST Segment", Kind: KindCategorical, Required: true, Placeholder: "Select Slope",
			Options: []Option{
				{Label: "Upsloping", Code: 0},
				{Label: "Flat", Code: 1},
				{Label: "Downsloping", Code: 2},
			}},
		{Name: "major_vessels", Label: "Major Vessels Colored", Kind: KindCategorical, Required: true, Placeholder: "Select Number",
			Options: []Option{{Label: "0", Code: 0}, {Label: "1", Code: 1}, {Label: "2", Code: 2}, {Label: "3", Code: 3}}},
		{Name: "thalassemia", Label: "Thalassemia", Kind: KindCategorical, Required: true, Placeholder: "Select Type",
			Options: []Option{
				{Label: "Normal", Code: 3},
				{Label: "Fixed Defect", Code: 4},
				{Label: "Reversible Defect", Code: 5},
			}},
	},
	EncodingOrder: []string{
		"age", "sex", "chest_pain_type", "resting_bp", "cholesterol", "fasting_blood_sugar",
		"resting_ecg", "max_heart_rate", "exercise_angina", "st_depression",
		"st_slope", "major_vessels", "thalassemia",
	},
	Overrides: []Rule{
		{Name: "hypertensive_crisis", Tier: TierEmergency, When: atLeast("resting_bp", 180),
			Reason: "Resting blood pressure of 180 mmHg or more"},
	},
	Metrics: []MetricSpec{
		{Name: "Blood Pressure", Unit: "mmHg", Value: field("resting_bp"), Flag: highFrom(140)},
		{Name: "Cholesterol", Unit: "mg/dL", Value: field("cholesterol"), Flag: highFrom(240)},
		{Name: "ST Depression", Value: field("st_depression"), Flag: abnormalAbove(1),
			Display: func(x float64, _ Values) string { return fmt.Sprintf("%.1f", x) }},
		{Name: "Max Heart Rate", Unit: "bpm", Value: field("max_heart_rate"),
			Flag: func(x float64, v Values) Flag {
				if x < (220-v.NumOr("age", 0))*0.85 {
					return FlagLow
				}
				return FlagNormal
			}},
	},
	Headlines: map[Tier]string{
		TierEmergency: "Hypertensive Crisis: Seek Emergency Care",
		TierHigh:      "High Risk of Heart Disease Detected",
		TierLow:       "Low Risk of Heart Disease",
	},
	Recommendations: map[Tier][]string{
		TierEmergency: {
			"Call emergency services or go to the nearest emergency department",
			"Do not exert yourself while waiting for care",
			"Report any chest pain, shortness of breath or vision changes",
		},
		TierHigh: {
			"See a cardiologist within 1 week",
			"Perform ECG & Stress Test",
			"Follow a strict cardiac diet",
			"Monitor blood pressure daily",
		},
		TierLow: {
			"Annual cardiac checkups",
			"Exercise 150 mins/week",
			"Eat a heart-healthy diet",
			"Manage stress and sleep",
		},
	},
})
