package modelregistry

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"
)

// Model kinds a manifest entry can declare.
const (
	KindONNX   = "onnx"
	KindLinear = "linear"
)

// Builtin is the MODEL_MANIFEST value that selects the embedded manifest.
const Builtin = "builtin"

//go:embed builtin.yaml
var builtinFS embed.FS

// Manifest maps disease keys to model definitions.
type Manifest struct {
	Models map[string]Entry `yaml:"models"`

	// dir resolves relative model paths.
	dir string
}

// Entry describes how to load one disease model.
type Entry struct {
	Kind string `yaml:"kind"`

	// onnx
	Path   string `yaml:"path,omitempty"`
	Input  string `yaml:"input,omitempty"`
	Output string `yaml:"output,omitempty"`

	// linear
	Weights   []float64 `yaml:"weights,omitempty"`
	Bias      float64   `yaml:"bias,omitempty"`
	Threshold float64   `yaml:"threshold,omitempty"`
}

// LoadManifest reads a manifest from disk, or the embedded one when path is
// empty or "builtin".
func LoadManifest(path string) (*Manifest, error) {
	if path == "" || path == Builtin {
		data, err := builtinFS.ReadFile("builtin.yaml")
		if err != nil {
			return nil, fmt.Errorf("read builtin manifest: %w", err)
		}
		return ParseManifest(data, "")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest %s: %w", path, err)
	}
	return ParseManifest(data, filepath.Dir(path))
}

// ParseManifest decodes and checks a manifest. Relative ONNX paths are
// resolved against dir.
func ParseManifest(data []byte, dir string) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	m.dir = dir
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Validate checks every entry has what its kind needs.
func (m *Manifest) Validate() error {
	if len(m.Models) == 0 {
		return fmt.Errorf("manifest declares no models")
	}
	for _, key := range m.Diseases() {
		e := m.Models[key]
		switch e.Kind {
		case KindONNX:
			if e.Path == "" {
				return fmt.Errorf("model %s: onnx entries need a path", key)
			}
		case KindLinear:
			if len(e.Weights) == 0 {
				return fmt.Errorf("model %s: linear entries need weights", key)
			}
			if e.Threshold < 0 || e.Threshold > 1 {
				return fmt.Errorf("model %s: threshold must be within [0,1], got %v", key, e.Threshold)
			}
		default:
			return fmt.Errorf("model %s: unknown kind %q", key, e.Kind)
		}
	}
	return nil
}

// Diseases returns the declared disease keys, sorted.
func (m *Manifest) Diseases() []string {
	keys := make([]string, 0, len(m.Models))
	for k := range m.Models {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Entry returns the definition for a disease.
func (m *Manifest) Entry(disease string) (Entry, bool) {
	e, ok := m.Models[disease]
	return e, ok
}

func (m *Manifest) resolve(path string) string {
	if filepath.IsAbs(path) || m.dir == "" {
		return path
	}
	return filepath.Join(m.dir, path)
}
