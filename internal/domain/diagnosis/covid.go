package diagnosis

func symptom(name, label string) Field {
	return Field{Name: name, Label: label, Kind: KindBoolean, Required: true, Placeholder: "Select"}
}

// Covid19 is the symptom-based COVID-19 module. Temperature is in °F.
var Covid19 = mustSchema(SchemaSpec{
	Key:   "covid19",
	Title: "COVID-19 Risk Prediction",
	Fields: []Field{
		{Name: "temperature", Label: "Fever", Kind: KindNumeric, Unit: "°F", Required: true, Min: 95, Max: 110, ZeroIsUnset: true},
		symptom("dry_cough", "Dry Cough"),
		symptom("sore_throat", "Sore Throat"),
		symptom("tiredness", "Tiredness"),
		symptom("breathing_difficulty", "Difficulty Breathing"),
		{Name: "age", Label: "Age", Kind: KindNumeric, Unit: "years", Required: true, Min: 0, Max: 120, ZeroIsUnset: true},
	},
	EncodingOrder: []string{"temperature", "dry_cough", "sore_throat", "tiredness", "breathing_difficulty", "age"},
	Overrides: []Rule{
		{Name: "high_fever_with_breathing_difficulty", Tier: TierEmergency,
			When:   allOf(atLeast("temperature", 103), yes("breathing_difficulty")),
			Reason: "Fever of 103 °F or more with difficulty breathing"},
		{Name: "hyperpyrexia", Tier: TierEmergency, When: atLeast("temperature", 105),
			Reason: "Fever of 105 °F or more"},
	},
	Metrics: []MetricSpec{
		{Name: "Temperature", Unit: "°F", Reference: "below 100.4 °F", Value: field("temperature"), Flag: highFrom(100.4)},
		{Name: "Age", Unit: "years", Value: field("age"), Flag: highFrom(65)},
	},
	Headlines: map[Tier]string{
		TierEmergency: "Emergency: Seek Immediate Medical Care",
		TierHigh:      "High Risk of COVID-19 Detected",
		TierLow:       "Low Risk of COVID-19",
	},
	Recommendations: map[Tier][]string{
		TierEmergency: {
			"Call emergency services or go to the nearest emergency department now",
			"Tell responders about your fever and breathing difficulty",
			"Wear a mask and limit contact with others on the way",
		},
		TierHigh: {
			"Please seek medical advice immediately",
			"Get tested for COVID-19",
			"Isolate from others until you have a result",
		},
		TierLow: {
			"Continue following safety protocols",
			"Monitor for any worsening symptoms",
		},
	},
})
