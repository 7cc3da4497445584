package diagnosis

// EvaluateOverrides runs the schema's hard override rules in priority order
// and returns the first match, or nil. Rules read raw inputs, not the
// encoded vector, and are evaluated on every call.
func EvaluateOverrides(s *Schema, raw RawInputs) *OverrideSignal {
	return firstMatch(s.spec.Overrides, newValues(s, raw))
}

// evaluateEscalations returns the first soft escalation that applies. These
// only widen a low model verdict to high.
func evaluateEscalations(s *Schema, raw RawInputs) *OverrideSignal {
	return firstMatch(s.spec.Escalations, newValues(s, raw))
}

func firstMatch(rules []Rule, v Values) *OverrideSignal {
	for _, r := range rules {
		if r.When(v) {
			return &OverrideSignal{Tier: r.Tier, Rule: r.Name, Reason: r.Reason}
		}
	}
	return nil
}

// Predicate helpers used by the disease tables.

func atLeast(field string, threshold float64) func(Values) bool {
	return func(v Values) bool {
		x, ok := v.Num(field)
		return ok && x >= threshold
	}
}

func above(field string, threshold float64) func(Values) bool {
	return func(v Values) bool {
		x, ok := v.Num(field)
		return ok && x > threshold
	}
}

func yes(field string) func(Values) bool {
	return func(v Values) bool { return v.Yes(field) }
}

func allOf(preds ...func(Values) bool) func(Values) bool {
	return func(v Values) bool {
		for _, p := range preds {
			if !p(v) {
				return false
			}
		}
		return true
	}
}
