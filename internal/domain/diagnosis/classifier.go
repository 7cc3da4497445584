package diagnosis

import (
	"fmt"
	"strconv"
)

// Classify combines a model verdict and an optional override signal into a
// final Result. An override always wins. Without one, verdict 1 is High and
// 0 is Low unless a disease-specific escalation widens it to High.
// VerdictUnavailable with no override is treated as High.
func Classify(s *Schema, verdict Verdict, signal *OverrideSignal, raw RawInputs) Result {
	res := Result{Disease: s.Key()}

	if verdict != VerdictUnavailable {
		mv := int(verdict)
		res.ModelVerdict = &mv
	}

	switch {
	case signal != nil:
		res.Tier = signal.Tier
		res.VerdictSource = SourceOverride
		res.Rule = signal.Rule
		res.Reason = signal.Reason
	case verdict == VerdictHigh || verdict == VerdictUnavailable:
		res.Tier = TierHigh
		res.VerdictSource = SourceModel
	default:
		res.Tier = TierLow
		res.VerdictSource = SourceModel
		if esc := evaluateEscalations(s, raw); esc != nil {
			res.Tier = TierHigh
			res.VerdictSource = SourceOverride
			res.Rule = esc.Rule
			res.Reason = esc.Reason
		}
	}

	res.Headline = s.headline(res.Tier)
	res.Metrics = computeMetrics(s, raw)
	res.Recommendations = s.recommendations(res.Tier)
	res.Notes = append([]string(nil), s.spec.Notes...)
	return res
}

func (s *Schema) headline(t Tier) string {
	if h, ok := s.spec.Headlines[t]; ok {
		return h
	}
	switch t {
	case TierEmergency:
		return fmt.Sprintf("%s: seek emergency care now", s.Title())
	case TierHigh:
		return fmt.Sprintf("%s: high risk detected", s.Title())
	}
	return fmt.Sprintf("%s: low risk", s.Title())
}

func (s *Schema) recommendations(t Tier) []string {
	recs, ok := s.spec.Recommendations[t]
	if !ok && t == TierEmergency {
		recs = s.spec.Recommendations[TierHigh]
	}
	return append([]string{}, recs...)
}

func computeMetrics(s *Schema, raw RawInputs) []Metric {
	v := newValues(s, raw)
	out := make([]Metric, 0, len(s.spec.Metrics))
	for _, m := range s.spec.Metrics {
		x, ok := m.Value(v)
		if !ok {
			continue
		}
		metric := Metric{
			Name:      m.Name,
			Value:     x,
			Unit:      m.Unit,
			Reference: m.Reference,
			Flag:      FlagNormal,
		}
		if m.Flag != nil {
			metric.Flag = m.Flag(x, v)
		}
		if m.Display != nil {
			metric.Display = m.Display(x, v)
		} else {
			metric.Display = formatValue(x, m.Unit)
		}
		out = append(out, metric)
	}
	return out
}

func formatValue(x float64, unit string) string {
	s := strconv.FormatFloat(x, 'f', -1, 64)
	if unit == "" {
		return s
	}
	return s + " " + unit
}

// Metric helpers used by the disease tables.

func field(name string) func(Values) (float64, bool) {
	return func(v Values) (float64, bool) { return v.Num(name) }
}

// band flags values below lo as Low and above hi as High. A zero bound
// disables that side.
func band(lo, hi float64) func(float64, Values) Flag {
	return func(x float64, _ Values) Flag {
		switch {
		case hi != 0 && x > hi:
			return FlagHigh
		case lo != 0 && x < lo:
			return FlagLow
		}
		return FlagNormal
	}
}

// highFrom flags values at or above threshold as High.
func highFrom(threshold float64) func(float64, Values) Flag {
	return func(x float64, _ Values) Flag {
		if x >= threshold {
			return FlagHigh
		}
		return FlagNormal
	}
}

// abnormalAbove flags values above threshold as Abnormal.
func abnormalAbove(threshold float64) func(float64, Values) Flag {
	return func(x float64, _ Values) Flag {
		if x > threshold {
			return FlagAbnormal
		}
		return FlagNormal
	}
}
