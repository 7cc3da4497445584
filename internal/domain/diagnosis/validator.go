package diagnosis

// Validate checks raw against every field of the schema in a single pass
// and returns nil or a *ValidationError listing all offending fields.
//
// A required field fails when it is absent (missing key, null, empty string,
// the field's placeholder, or zero where zero means unset). Any supplied value
// that cannot be parsed or falls outside the field's domain fails even if the
// field is optional. Fields whose condition does not hold are skipped.
func Validate(s *Schema, raw RawInputs) error {
	values := newValues(s, raw)
	var bad []FieldError

	for _, f := range s.spec.Fields {
		if !s.active(f, values) {
			continue
		}
		_, state := parseField(f, raw)
		switch state {
		case stateMissing:
			if f.Required {
				bad = append(bad, FieldError{Name: f.Name, Label: f.Label, Reason: ReasonMissing})
			}
		case stateInvalid:
			bad = append(bad, FieldError{Name: f.Name, Label: f.Label, Reason: ReasonInvalid})
		case stateOutOfRange:
			bad = append(bad, FieldError{Name: f.Name, Label: f.Label, Reason: ReasonOutOfRange})
		}
	}

	if len(bad) > 0 {
		return &ValidationError{Disease: s.Key(), Fields: bad}
	}
	return nil
}
