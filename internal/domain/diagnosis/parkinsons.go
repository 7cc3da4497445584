package diagnosis

func voice(name, label string, min, max float64) Field {
	return Field{Name: name, Label: label, Kind: KindNumeric, Required: true, Min: min, Max: max, ZeroIsUnset: true}
}

// Parkinsons is the voice-measurement Parkinson's module. All 22 features
// are required; it has no override rules.
var Parkinsons = mustSchema(SchemaSpec{
	Key:   "parkinsons",
	Title: "Parkinson's Prediction",
	Fields: []Field{
		voice("mdvp_fo", "MDVP:Fo(Hz)", 0, 300),
		voice("mdvp_fhi", "MDVP:Fhi(Hz)", 0, 300),
		voice("mdvp_flo", "MDVP:Flo(Hz)", 0, 300),
		voice("mdvp_jitter_percent", "MDVP:Jitter(%)", 0, 1),
		voice("mdvp_jitter_abs", "MDVP:Jitter(Abs)", 0, 0.1),
		voice("mdvp_rap", "MDVP:RAP", 0, 0.1),
		voice("mdvp_ppq", "MDVP:PPQ", 0, 0.1),
		voice("jitter_ddp", "Jitter:DDP", 0, 0.5),
		voice("mdvp_shimmer", "MDVP:Shimmer", 0, 1),
		voice("mdvp_shimmer_db", "MDVP:Shimmer(dB)", 0, 1),
		voice("shimmer_apq3", "Shimmer:APQ3", 0, 1),
		voice("shimmer_apq5", "Shimmer:APQ5", 0, 1),
		voice("mdvp_apq", "MDVP:APQ", 0, 1),
		voice("shimmer_dda", "Shimmer:DDA", 0, 1),
		voice("nhr", "NHR", 0, 1),
		voice("hnr", "HNR", 0, 40),
		voice("rpde", "RPDE", 0, 1),
		voice("dfa", "DFA", 0, 1),
		voice("spread1", "Spread1", -10, 0),
		voice("spread2", "Spread2", 0, 1),
		voice("d2", "D2", 0, 10),
		voice("ppe", "PPE", 0, 1),
	},
	EncodingOrder: []string{
		"mdvp_fo", "mdvp_fhi", "mdvp_flo", "mdvp_jitter_percent", "mdvp_jitter_abs",
		"mdvp_rap", "mdvp_ppq", "jitter_ddp", "mdvp_shimmer", "mdvp_shimmer_db",
		"shimmer_apq3", "shimmer_apq5", "mdvp_apq", "shimmer_dda", "nhr", "hnr",
		"rpde", "dfa", "spread1", "spread2", "d2", "ppe",
	},
	Metrics: []MetricSpec{
		// MDVP:Jitter(%) is recorded as a fraction: 0.0104 is 1.04%.
		{Name: "Jitter", Reference: "below 0.0104 (1.04%)", Value: field("mdvp_jitter_percent"), Flag: abnormalAbove(0.0104)},
		{Name: "Shimmer", Unit: "dB", Reference: "below 0.35 dB", Value: field("mdvp_shimmer_db"), Flag: abnormalAbove(0.35)},
		{Name: "HNR", Unit: "dB", Reference: "20 dB or more", Value: field("hnr"), Flag: band(20, 0)},
	},
	Headlines: map[Tier]string{
		TierHigh: "High probability of Parkinson's disease detected",
		TierLow:  "Low probability of Parkinson's disease",
	},
	Recommendations: map[Tier][]string{
		TierHigh: {"Please consult a neurologist for further evaluation"},
		TierLow:  {},
	},
	Notes: []string{
		"Jitter above 0.0104 (1.04%) may indicate voice abnormality",
		"Shimmer above 0.35 dB may indicate voice abnormality",
		"HNR below 20 dB may indicate voice abnormality",
	},
})
