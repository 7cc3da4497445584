package diagnosis

import "fmt"

// Encode turns validated raw inputs into the feature vector the disease
// model was trained on. Categorical and boolean fields map to their option
// codes, numerics pass through, and fields whose condition is false (or
// optional fields left blank) encode as 0.
//
// Encode is total over inputs accepted by Validate; for anything else it
// returns an error rather than guessing.
func Encode(s *Schema, raw RawInputs) (FeatureVector, error) {
	values := newValues(s, raw)
	out := make(FeatureVector, 0, s.FeatureCount())

	for _, name := range s.spec.EncodingOrder {
		f := s.spec.Fields[s.fields[name]]
		if !s.active(f, values) {
			out = append(out, 0)
			continue
		}
		p, state := parseField(f, raw)
		switch {
		case state == stateOK:
			out = append(out, p.num)
		case state == stateMissing && !f.Required:
			out = append(out, 0)
		default:
			return nil, fmt.Errorf("encode %s: field %q is not valid", s.Key(), f.Name)
		}
	}
	return out, nil
}
