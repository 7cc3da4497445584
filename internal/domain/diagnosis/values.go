package diagnosis

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// parseState is the outcome of reading one raw value against its field.
type parseState int

const (
	stateOK parseState = iota
	stateMissing
	stateInvalid
	stateOutOfRange
)

// parsed is a typed reading of a raw value. For boolean and categorical
// fields label holds the canonical option label and num its code.
type parsed struct {
	num   float64
	label string
}

// parseField reads raw[f.Name] according to f. It never panics on
// unexpected types; anything unrecognised is stateInvalid.
func parseField(f Field, raw RawInputs) (parsed, parseState) {
	v, ok := raw[f.Name]
	if !ok || v == nil {
		return parsed{}, stateMissing
	}
	if s, isStr := v.(string); isStr {
		s = strings.TrimSpace(s)
		if s == "" || (f.Placeholder != "" && strings.EqualFold(s, f.Placeholder)) {
			return parsed{}, stateMissing
		}
	}

	switch f.Kind {
	case KindNumeric:
		x, ok := toFloat(v)
		if !ok {
			return parsed{}, stateInvalid
		}
		if f.ZeroIsUnset && x == 0 {
			return parsed{}, stateMissing
		}
		if x < f.Min || x > f.Max {
			return parsed{num: x}, stateOutOfRange
		}
		return parsed{num: x}, stateOK

	case KindBoolean:
		b, ok := toBool(v)
		if !ok {
			return parsed{}, stateInvalid
		}
		if b {
			return parsed{num: 1, label: "Yes"}, stateOK
		}
		return parsed{num: 0, label: "No"}, stateOK

	case KindCategorical:
		label, ok := toLabel(v)
		if !ok {
			return parsed{}, stateInvalid
		}
		for _, opt := range f.Options {
			if strings.EqualFold(opt.Label, label) {
				return parsed{num: opt.Code, label: opt.Label}, stateOK
			}
		}
		return parsed{}, stateInvalid
	}
	return parsed{}, stateInvalid
}

func toFloat(v interface{}) (float64, bool) {
	var x float64
	switch t := v.(type) {
	case float64:
		x = t
	case float32:
		x = float64(t)
	case int:
		x = float64(t)
	case int32:
		x = float64(t)
	case int64:
		x = float64(t)
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return 0, false
		}
		x = f
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, false
		}
		x = f
	default:
		return 0, false
	}
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return 0, false
	}
	return x, true
}

func toBool(v interface{}) (bool, bool) {
	switch t := v.(type) {
	case bool:
		return t, true
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "yes", "y", "true", "1":
			return true, true
		case "no", "n", "false", "0":
			return false, true
		}
		return false, false
	}
	if x, ok := toFloat(v); ok {
		switch x {
		case 1:
			return true, true
		case 0:
			return false, true
		}
	}
	return false, false
}

func toLabel(v interface{}) (string, bool) {
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s), true
	}
	if x, ok := toFloat(v); ok {
		return strconv.FormatFloat(x, 'f', -1, 64), true
	}
	return "", false
}

// Values is a tolerant, read-only view of raw inputs used by rule
// predicates and metrics. Values that fail to parse read as absent.
type Values struct {
	schema *Schema
	raw    RawInputs
}

func newValues(s *Schema, raw RawInputs) Values {
	return Values{schema: s, raw: raw}
}

func (v Values) read(name string) (parsed, bool) {
	f, ok := v.schema.Field(name)
	if !ok {
		return parsed{}, false
	}
	p, state := parseField(f, v.raw)
	return p, state == stateOK
}

// Num returns a numeric field's value.
func (v Values) Num(name string) (float64, bool) {
	p, ok := v.read(name)
	return p.num, ok
}

// NumOr returns a numeric field's value or def when absent.
func (v Values) NumOr(name string, def float64) float64 {
	if x, ok := v.Num(name); ok {
		return x
	}
	return def
}

// Is reports whether a boolean or categorical field equals label.
func (v Values) Is(name, label string) bool {
	p, ok := v.read(name)
	return ok && strings.EqualFold(p.label, label)
}

// Yes reports whether a boolean field was answered "Yes".
func (v Values) Yes(name string) bool { return v.Is(name, "Yes") }

// CountYes counts how many of the named boolean fields were answered "Yes".
func (v Values) CountYes(names ...string) int {
	n := 0
	for _, name := range names {
		if v.Yes(name) {
			n++
		}
	}
	return n
}
