package diagnosis

import "context"

// RawInputs maps a field name to the raw value submitted by the form layer:
// a number, a boolean-like token or a categorical label. A missing key, a
// JSON null or an empty string all mean "not provided".
type RawInputs map[string]interface{}

// FeatureVector is the ordered numeric encoding handed to a model.
type FeatureVector []float64

// Verdict is the binary output of a disease model.
type Verdict int

const (
	VerdictLow  Verdict = 0
	VerdictHigh Verdict = 1
	// VerdictUnavailable marks a result classified without a model verdict,
	// which only happens when an override already decided the tier.
	VerdictUnavailable Verdict = -1
)

// Tier is the final risk outcome shown to the user.
type Tier string

const (
	TierLow       Tier = "low"
	TierHigh      Tier = "high"
	TierEmergency Tier = "emergency"
)

// VerdictSource records whether the tier came from the model or a rule.
type VerdictSource string

const (
	SourceModel    VerdictSource = "model"
	SourceOverride VerdictSource = "override"
)

// Flag is the qualitative interpretation of a metric against its reference range.
type Flag string

const (
	FlagNormal   Flag = "normal"
	FlagHigh     Flag = "high"
	FlagLow      Flag = "low"
	FlagAbnormal Flag = "abnormal"
)

// OverrideSignal is produced by a matching override or escalation rule.
type OverrideSignal struct {
	Tier   Tier   `json:"tier"`
	Rule   string `json:"rule"`
	Reason string `json:"reason"`
}

// Metric is one named, interpreted value presented alongside the tier.
type Metric struct {
	Name      string  `json:"name"`
	Value     float64 `json:"value"`
	Display   string  `json:"display"`
	Unit      string  `json:"unit,omitempty"`
	Flag      Flag    `json:"flag"`
	Reference string  `json:"reference,omitempty"`
}

// Result is the structured outcome of one submission. It is created fresh
// per run and never mutated afterwards.
type Result struct {
	Disease         string        `json:"disease"`
	Tier            Tier          `json:"tier"`
	VerdictSource   VerdictSource `json:"verdict_source"`
	Rule            string        `json:"rule,omitempty"`
	Reason          string        `json:"reason,omitempty"`
	ModelVerdict    *int          `json:"model_verdict,omitempty"`
	Headline        string        `json:"headline"`
	Metrics         []Metric      `json:"metrics"`
	Recommendations []string      `json:"recommendations"`
	Notes           []string      `json:"notes,omitempty"`
}

// Model is the narrow capability every classifier runtime satisfies. It is
// called with exactly one row per submission and must return one value per row.
type Model interface {
	Predict(ctx context.Context, rows [][]float64) ([]float64, error)
}

// ModelFunc adapts a plain function to the Model interface.
type ModelFunc func(ctx context.Context, rows [][]float64) ([]float64, error)

func (f ModelFunc) Predict(ctx context.Context, rows [][]float64) ([]float64, error) {
	return f(ctx, rows)
}

// Registry resolves the model handle for a disease. A false second return
// means no model is available for that disease.
type Registry interface {
	Lookup(ctx context.Context, disease string) (Model, bool)
}
