package diagnosis

// Thyroid is the hypothyroidism module. T3 is only required, and only
// encoded, when "T3 Measured" is Yes.
var Thyroid = mustSchema(SchemaSpec{
	Key:   "thyroid",
	Title: "Hypo-Thyroid Prediction",
	Fields: []Field{
		{Name: "age", Label: "Age (years)", Kind: KindNumeric, Unit: "years", Required: true, Min: 0, Max: 120, ZeroIsUnset: true},
		{Name: "sex", Label: "Sex", Kind: KindCategorical, Required: true,
			Options: []Option{{Label: "Male", Code: 1}, {Label: "Female", Code: 0}}},
		yesNo("on_thyroxine", "On Thyroxine Medication"),
		{Name: "tsh", Label: "TSH (mIU/L)", Kind: KindNumeric, Unit: "mIU/L", Required: true, Min: 0, Max: 100, ZeroIsUnset: true},
		yesNo("t3_measured", "T3 Measured"),
		{Name: "t3", Label: "T3 (pg/mL)", Kind: KindNumeric, Unit: "pg/mL", Required: true, Min: 0, Max: 20, ZeroIsUnset: true,
			DependsOn: &Condition{Field: "t3_measured", Equals: "Yes"}},
		{Name: "tt4", Label: "TT4 (ng/dL)", Kind: KindNumeric, Unit: "ng/dL", Required: true, Min: 0, Max: 500, ZeroIsUnset: true},
	},
	EncodingOrder: []string{"age", "sex", "on_thyroxine", "tsh", "t3_measured", "t3", "tt4"},
	Escalations: []Rule{
		{Name: "overt_hypothyroid_tsh", Tier: TierHigh, When: atLeast("tsh", 10),
			Reason: "TSH of 10 mIU/L or more"},
	},
	Metrics: []MetricSpec{
		{Name: "TSH", Unit: "mIU/L", Reference: "0.4-4.0 mIU/L", Value: field("tsh"), Flag: band(0.4, 4.0)},
		{Name: "T3", Unit: "pg/mL", Reference: "2.3-4.2 pg/mL",
			Value: func(v Values) (float64, bool) {
				if !v.Yes("t3_measured") {
					return 0, false
				}
				return v.Num("t3")
			},
			Flag: band(2.3, 4.2)},
	},
	Headlines: map[Tier]string{
		TierHigh: "High probability of hypothyroidism",
		TierLow:  "Normal thyroid function likely",
	},
	Recommendations: map[Tier][]string{
		TierHigh: {
			"Consult an endocrinologist immediately",
			"TSH > 4.0 mIU/L indicates hypothyroidism",
			"May require thyroid hormone replacement",
		},
		TierLow: {
			"Ensure adequate iodine intake",
			"Manage stress levels",
			"Regular thyroid function tests",
		},
	},
	Notes: []string{
		"Normal TSH: 0.4-4.0 mIU/L",
		"Normal Free T4: 0.8-1.8 ng/dL",
		"Normal Free T3: 2.3-4.2 pg/mL",
	},
})
