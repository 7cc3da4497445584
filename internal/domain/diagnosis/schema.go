package diagnosis

import (
	"fmt"
	"strings"
)

// FieldKind is the semantic type of a form field.
type FieldKind string

const (
	KindNumeric     FieldKind = "numeric"
	KindBoolean     FieldKind = "boolean"
	KindCategorical FieldKind = "categorical"
)

// Option is one categorical choice and the code the model was trained on.
type Option struct {
	Label string  `json:"label"`
	Code  float64 `json:"code"`
}

// Condition gates a field on another field's answer, e.g. "T3" only
// matters when "T3 measured" is "Yes".
type Condition struct {
	Field  string `json:"field"`
	Equals string `json:"equals"`
}

// Field describes one form input.
type Field struct {
	Name        string     `json:"name"`
	Label       string     `json:"label"`
	Kind        FieldKind  `json:"kind"`
	Unit        string     `json:"unit,omitempty"`
	Required    bool       `json:"required"`
	Min         float64    `json:"min,omitempty"`
	Max         float64    `json:"max,omitempty"`
	ZeroIsUnset bool       `json:"zero_is_unset,omitempty"`
	Placeholder string     `json:"placeholder,omitempty"`
	Options     []Option   `json:"options,omitempty"`
	DependsOn   *Condition `json:"depends_on,omitempty"`
	Help        string     `json:"help,omitempty"`
}

// Rule is a named predicate over raw inputs. Override rules produce an
// emergency signal before the model runs; escalation rules widen a low
// model verdict to high.
type Rule struct {
	Name   string
	Tier   Tier
	Reason string
	When   func(v Values) bool
}

// MetricSpec computes one presentation metric from the raw inputs. Value
// returns false when the metric does not apply to this submission.
type MetricSpec struct {
	Name      string
	Unit      string
	Reference string
	Value     func(v Values) (float64, bool)
	Display   func(x float64, v Values) string
	Flag      func(x float64, v Values) Flag
}

// SchemaSpec is the declarative definition of one disease module.
type SchemaSpec struct {
	Key             string
	Title           string
	Fields          []Field
	EncodingOrder   []string
	Overrides       []Rule
	Escalations     []Rule
	Metrics         []MetricSpec
	Headlines       map[Tier]string
	Recommendations map[Tier][]string
	Notes           []string
}

// Schema is the immutable, validated form of a SchemaSpec. Accessors return
// copies so callers cannot change a schema after construction.
type Schema struct {
	spec   SchemaSpec
	fields map[string]int
}

// NewSchema checks a spec and freezes it. Every encoding entry must name a
// declared field exactly once, conditions must reference boolean or
// categorical fields, and categorical fields need options.
func NewSchema(spec SchemaSpec) (*Schema, error) {
	if spec.Key == "" {
		return nil, fmt.Errorf("schema key is required")
	}
	if len(spec.Fields) == 0 {
		return nil, fmt.Errorf("schema %s: at least one field is required", spec.Key)
	}

	index := make(map[string]int, len(spec.Fields))
	for i, f := range spec.Fields {
		if f.Name == "" {
			return nil, fmt.Errorf("schema %s: field %d has no name", spec.Key, i)
		}
		if _, dup := index[f.Name]; dup {
			return nil, fmt.Errorf("schema %s: duplicate field %q", spec.Key, f.Name)
		}
		switch f.Kind {
		case KindNumeric:
			if f.Max < f.Min {
				return nil, fmt.Errorf("schema %s: field %q has max below min", spec.Key, f.Name)
			}
		case KindCategorical:
			if len(f.Options) == 0 {
				return nil, fmt.Errorf("schema %s: categorical field %q has no options", spec.Key, f.Name)
			}
		case KindBoolean:
		default:
			return nil, fmt.Errorf("schema %s: field %q has unknown kind %q", spec.Key, f.Name, f.Kind)
		}
		index[f.Name] = i
	}

	for _, f := range spec.Fields {
		if f.DependsOn == nil {
			continue
		}
		i, ok := index[f.DependsOn.Field]
		if !ok {
			return nil, fmt.Errorf("schema %s: field %q depends on unknown field %q", spec.Key, f.Name, f.DependsOn.Field)
		}
		if spec.Fields[i].Kind == KindNumeric {
			return nil, fmt.Errorf("schema %s: field %q depends on numeric field %q", spec.Key, f.Name, f.DependsOn.Field)
		}
	}

	seen := make(map[string]bool, len(spec.EncodingOrder))
	for _, name := range spec.EncodingOrder {
		if _, ok := index[name]; !ok {
			return nil, fmt.Errorf("schema %s: encoding references unknown field %q", spec.Key, name)
		}
		if seen[name] {
			return nil, fmt.Errorf("schema %s: field %q encoded twice", spec.Key, name)
		}
		seen[name] = true
	}
	if len(spec.EncodingOrder) == 0 {
		return nil, fmt.Errorf("schema %s: encoding order is empty", spec.Key)
	}

	for _, r := range append(append([]Rule{}, spec.Overrides...), spec.Escalations...) {
		if r.Name == "" || r.When == nil {
			return nil, fmt.Errorf("schema %s: rules need a name and a predicate", spec.Key)
		}
	}

	frozen := spec
	frozen.Fields = append([]Field(nil), spec.Fields...)
	frozen.EncodingOrder = append([]string(nil), spec.EncodingOrder...)
	frozen.Overrides = append([]Rule(nil), spec.Overrides...)
	frozen.Escalations = append([]Rule(nil), spec.Escalations...)
	frozen.Metrics = append([]MetricSpec(nil), spec.Metrics...)
	frozen.Notes = append([]string(nil), spec.Notes...)
	frozen.Headlines = make(map[Tier]string, len(spec.Headlines))
	for k, v := range spec.Headlines {
		frozen.Headlines[k] = v
	}
	frozen.Recommendations = make(map[Tier][]string, len(spec.Recommendations))
	for k, v := range spec.Recommendations {
		frozen.Recommendations[k] = append([]string(nil), v...)
	}

	return &Schema{spec: frozen, fields: index}, nil
}

func mustSchema(spec SchemaSpec) *Schema {
	s, err := NewSchema(spec)
	if err != nil {
		panic(err)
	}
	return s
}

func (s *Schema) Key() string   { return s.spec.Key }
func (s *Schema) Title() string { return s.spec.Title }

// Fields returns the ordered field descriptors.
func (s *Schema) Fields() []Field {
	return append([]Field(nil), s.spec.Fields...)
}

// Field looks up a field descriptor by name.
func (s *Schema) Field(name string) (Field, bool) {
	i, ok := s.fields[name]
	if !ok {
		return Field{}, false
	}
	return s.spec.Fields[i], true
}

// EncodingOrder returns the feature positions the model expects.
func (s *Schema) EncodingOrder() []string {
	return append([]string(nil), s.spec.EncodingOrder...)
}

// FeatureCount is the length of every vector this schema encodes.
func (s *Schema) FeatureCount() int { return len(s.spec.EncodingOrder) }

// active reports whether a field's condition (if any) holds for v.
func (s *Schema) active(f Field, v Values) bool {
	if f.DependsOn == nil {
		return true
	}
	return v.Is(f.DependsOn.Field, f.DependsOn.Equals)
}

// Catalog is the set of disease schemas keyed by disease key.
type Catalog struct {
	schemas map[string]*Schema
	order   []string
}

// NewCatalog builds a catalog; duplicate keys are rejected.
func NewCatalog(schemas ...*Schema) (*Catalog, error) {
	c := &Catalog{schemas: make(map[string]*Schema, len(schemas))}
	for _, s := range schemas {
		if _, dup := c.schemas[s.Key()]; dup {
			return nil, fmt.Errorf("duplicate disease key %q", s.Key())
		}
		c.schemas[s.Key()] = s
		c.order = append(c.order, s.Key())
	}
	return c, nil
}

// Get returns the schema for a disease key. Keys are matched
// case-insensitively and "-" is accepted for "_" (lung-cancer).
func (c *Catalog) Get(key string) (*Schema, bool) {
	s, ok := c.schemas[normalizeKey(key)]
	return s, ok
}

// Schemas returns every schema in registration order.
func (c *Catalog) Schemas() []*Schema {
	out := make([]*Schema, 0, len(c.order))
	for _, k := range c.order {
		out = append(out, c.schemas[k])
	}
	return out
}

// Keys returns every disease key in registration order.
func (c *Catalog) Keys() []string {
	return append([]string(nil), c.order...)
}

func normalizeKey(key string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(key)), "-", "_")
}
