package diagnosis

import "fmt"

func yesNo(name, label string) Field {
	return Field{Name: name, Label: label, Kind: KindBoolean, Required: true}
}

var chronicSymptoms = []string{"coughing", "shortness_of_breath", "chest_pain"}

// LungCancer is the survey-based lung cancer module. Pack years are only
// asked of smokers and encode as 0 otherwise.
var LungCancer = mustSchema(SchemaSpec{
	Key:   "lung_cancer",
	Title: "Lung Cancer Risk Prediction",
	Fields: []Field{
		{Name: "gender", Label: "Gender", Kind: KindCategorical, Required: true,
			Options: []Option{{Label: "Male", Code: 1}, {Label: "Female", Code: 0}}},
		{Name: "age", Label: "Age (years)", Kind: KindNumeric, Unit: "years", Required: true, Min: 0, Max: 120, ZeroIsUnset: true},
		yesNo("smoking", "Smoking Status"),
		{Name: "pack_years", Label: "Pack Years (if smoker)", Kind: KindNumeric, Required: true, Min: 0, Max: 200,
			DependsOn: &Condition{Field: "smoking", Equals: "Yes"},
			Help:      "1 pack-year = 1 pack/day for 1 year"},
		yesNo("yellow_fingers", "Yellow Fingers/Nails"),
		yesNo("anxiety", "Chronic Anxiety"),
		yesNo("peer_pressure", "History of Peer Pressure to Smoke"),
		yesNo("chronic_disease", "Chronic Lung Disease"),
		yesNo("fatigue", "Persistent Fatigue"),
		yesNo("allergy", "Chronic Allergy"),
		yesNo("wheezing", "Wheezing"),
		yesNo("alcohol", "Regular Alcohol Consumption"),
		yesNo("coughing", "Persistent Cough (3+ weeks)"),
		yesNo("shortness_of_breath", "Shortness of Breath"),
		yesNo("swallowing_difficulty", "Difficulty Swallowing"),
		yesNo("chest_pain", "Chest Pain"),
		yesNo("family_history", "Family History of Lung Cancer"),
	},
	EncodingOrder: []string{
		"gender", "age", "smoking", "pack_years", "yellow_fingers", "anxiety",
		"peer_pressure", "chronic_disease", "fatigue", "allergy", "wheezing",
		"alcohol", "coughing", "shortness_of_breath", "swallowing_difficulty",
		"chest_pain", "family_history",
	},
	Escalations: []Rule{
		{Name: "older_smoker_with_symptoms", Tier: TierHigh,
			When: allOf(above("age", 55), yes("smoking"), func(v Values) bool {
				return v.CountYes(chronicSymptoms...) >= 2
			}),
			Reason: "Smoker over 55 with at least two chronic respiratory symptoms"},
	},
	Metrics: []MetricSpec{
		{Name: "Chronic Symptoms",
			Value: func(v Values) (float64, bool) { return float64(v.CountYes(chronicSymptoms...)), true },
			Display: func(x float64, _ Values) string {
				return fmt.Sprintf("%d/3 present", int(x))
			},
			Flag: highFrom(2)},
		{Name: "Age Risk", Unit: "years", Reference: "risk increases after 55", Value: field("age"), Flag: band(0, 55)},
		{Name: "Family History",
			Value: func(v Values) (float64, bool) {
				if v.Yes("family_history") {
					return 1, true
				}
				return 0, true
			},
			Display: func(x float64, _ Values) string {
				if x == 1 {
					return "Present"
				}
				return "None"
			},
			Flag: highFrom(1)},
		{Name: "Pack Years", Reference: "screening threshold 20",
			Value: func(v Values) (float64, bool) {
				if !v.Yes("smoking") {
					return 0, false
				}
				return v.Num("pack_years")
			},
			Display: func(x float64, _ Values) string {
				return fmt.Sprintf("%s pack-years", formatValue(x, ""))
			},
			Flag: highFrom(20)},
	},
	Headlines: map[Tier]string{
		TierHigh: "High Risk of Lung Cancer Detected",
		TierLow:  "Low Risk of Lung Cancer",
	},
	Recommendations: map[Tier][]string{
		TierHigh: {
			"Schedule pulmonologist appointment within 2 weeks",
			"Request low-dose CT scan referral",
			"Immediate smoking cessation program if applicable",
			"Document symptom progression (frequency, severity)",
		},
		TierLow: {
			"Annual screening if >55 with 30+ pack-year history",
			"Radon testing for home (2nd leading cause)",
			"Use N95 masks in polluted environments",
			"Regular cardio exercise for lung health",
			"Antioxidant-rich diet (berries, leafy greens)",
		},
	},
	Notes: []string{
		"Screening eligibility: adults 50-80 with 20+ pack-year history who currently smoke or quit within past 15 years",
		"Warning signs: persistent cough, chest pain, hoarseness, unexplained weight loss, coughing blood",
		"Coughing blood, severe chest pain or sudden breathing difficulty require an immediate ER visit",
	},
})
