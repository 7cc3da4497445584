package modelregistry

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/meddx/meddx/internal/domain/diagnosis"
)

func featureCounts() map[string]int {
	out := map[string]int{}
	for _, s := range diagnosis.DefaultCatalog().Schemas() {
		out[s.Key()] = s.FeatureCount()
	}
	return out
}

func TestLoadManifest_Builtin(t *testing.T) {
	m, err := LoadManifest(Builtin)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := diagnosis.DefaultCatalog().Keys()
	got := m.Diseases()
	if len(got) != len(want) {
		t.Fatalf("expected %d models, got %v", len(want), got)
	}

	counts := featureCounts()
	for _, d := range got {
		e, _ := m.Entry(d)
		if len(e.Weights) != counts[d] {
			t.Errorf("%s: %d weights for %d features", d, len(e.Weights), counts[d])
		}
	}
}

func TestParseManifest_Rejects(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{"empty", "models: {}", "no models"},
		{"bad yaml", "models: [", "parse manifest"},
		{"onnx without path", "models:\n  heart:\n    kind: onnx\n", "need a path"},
		{"linear without weights", "models:\n  heart:\n    kind: linear\n", "need weights"},
		{"bad threshold", "models:\n  heart:\n    kind: linear\n    weights: [1]\n    threshold: 2\n", "threshold"},
		{"unknown kind", "models:\n  heart:\n    kind: pickle\n", "unknown kind"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseManifest([]byte(tt.yaml), "")
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestLoadManifest_FileResolvesRelativePaths(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "manifest.yaml")
	data := "models:\n  heart:\n    kind: onnx\n    path: heart.onnx\n"
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}
	m, err := LoadManifest(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	e, _ := m.Entry("heart")
	if got := m.resolve(e.Path); got != filepath.Join(dir, "heart.onnx") {
		t.Errorf("expected path resolved next to manifest, got %s", got)
	}
	if got := m.resolve("/abs/model.onnx"); got != "/abs/model.onnx" {
		t.Errorf("absolute path changed: %s", got)
	}
}

func TestLinearModel(t *testing.T) {
	m := &LinearModel{Weights: []float64{1, -1}, Bias: 0, Threshold: 0.5}
	out, err := m.Predict(context.Background(), [][]float64{{2, 1}, {1, 2}, {1, 1}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if diff := cmp.Diff([]float64{1, 0, 1}, out); diff != "" {
		t.Errorf("verdicts mismatch (-want +got):\n%s", diff)
	}

	if _, err := m.Predict(context.Background(), [][]float64{{1}}); err == nil {
		t.Error("expected error for wrong row length")
	}
}

// The built-in weights must agree with the obvious cases.
func TestBuiltinModels_Sanity(t *testing.T) {
	m, _ := LoadManifest(Builtin)
	reg := NewFileRegistry(m, Options{FeatureCounts: featureCounts(), Logger: zerolog.Nop()})

	tests := []struct {
		disease string
		row     []float64
		want    float64
	}{
		{"diabetes", []float64{2, 95, 70, 20, 80, 22.5, 0.5, 35}, 0},
		{"diabetes", []float64{2, 180, 70, 20, 80, 35, 0.5, 55}, 1},
		{"heart", []float64{40, 1, 3, 120, 200, 0, 0, 170, 0, 0.5, 0, 0, 3}, 0},
		{"heart", []float64{65, 1, 4, 150, 280, 1, 2, 110, 1, 2.5, 1, 2, 5}, 1},
		{"thyroid", []float64{30, 0, 0, 2, 1, 3, 100}, 0},
		{"thyroid", []float64{50, 0, 0, 15, 1, 1.5, 50}, 1},
		{"covid19", []float64{98.6, 0, 0, 0, 0, 30}, 0},
		{"covid19", []float64{101, 1, 0, 0, 0, 30}, 1},
	}
	for _, tt := range tests {
		model, ok := reg.Lookup(context.Background(), tt.disease)
		if !ok {
			t.Fatalf("%s: model not available", tt.disease)
		}
		out, err := model.Predict(context.Background(), [][]float64{tt.row})
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", tt.disease, err)
		}
		if out[0] != tt.want {
			t.Errorf("%s %v: expected %v, got %v", tt.disease, tt.row, tt.want, out[0])
		}
	}
}

func TestFileRegistry_UndeclaredIsAbsent(t *testing.T) {
	m, _ := LoadManifest(Builtin)
	reg := NewFileRegistry(m, Options{Logger: zerolog.Nop()})
	if _, ok := reg.Lookup(context.Background(), "flu"); ok {
		t.Fatal("expected undeclared disease to be absent")
	}
}

func TestFileRegistry_ConcurrentFirstLookupsLoadOnce(t *testing.T) {
	m, _ := LoadManifest(Builtin)
	reg := NewFileRegistry(m, Options{Logger: zerolog.Nop()})

	var loads atomic.Int32
	reg.load = func(disease string, e Entry) (diagnosis.Model, error) {
		loads.Add(1)
		time.Sleep(20 * time.Millisecond)
		return newLinear(e), nil
	}

	g, ctx := errgroup.WithContext(context.Background())
	for i := 0; i < 16; i++ {
		g.Go(func() error {
			if _, ok := reg.Lookup(ctx, "heart"); !ok {
				return errors.New("heart model missing")
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatal(err)
	}
	if n := loads.Load(); n != 1 {
		t.Errorf("expected one load, got %d", n)
	}
}

func TestFileRegistry_FailedLoadIsAbsentAndRetried(t *testing.T) {
	m, _ := LoadManifest(Builtin)
	reg := NewFileRegistry(m, Options{Logger: zerolog.Nop()})

	var mu sync.Mutex
	fail := true
	reg.load = func(disease string, e Entry) (diagnosis.Model, error) {
		mu.Lock()
		defer mu.Unlock()
		if fail {
			return nil, errors.New("file not found")
		}
		return newLinear(e), nil
	}

	if _, ok := reg.Lookup(context.Background(), "thyroid"); ok {
		t.Fatal("expected failed load to be reported absent")
	}
	st := findStatus(reg.Statuses(), "thyroid")
	if st.Loaded || st.Error != "file not found" {
		t.Errorf("unexpected status: %+v", st)
	}

	mu.Lock()
	fail = false
	mu.Unlock()
	if _, ok := reg.Lookup(context.Background(), "thyroid"); !ok {
		t.Fatal("expected retry to succeed")
	}
	if st := findStatus(reg.Statuses(), "thyroid"); !st.Loaded || st.Error != "" {
		t.Errorf("unexpected status after retry: %+v", st)
	}
}

func findStatus(all []Status, disease string) Status {
	for _, s := range all {
		if s.Disease == disease {
			return s
		}
	}
	return Status{}
}

func TestFileRegistry_WarmReportsEveryModel(t *testing.T) {
	data := `models:
  heart:
    kind: linear
    weights: [1, 2]
  covid19:
    kind: linear
    weights: [0.9, 0.8, 0.4, 0.5, 1.2, 0.02]
    bias: -91
`
	m, err := ParseManifest([]byte(data), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	reg := NewFileRegistry(m, Options{FeatureCounts: featureCounts(), Logger: zerolog.Nop()})

	got := reg.Warm(context.Background())
	if len(got) != 2 {
		t.Fatalf("expected 2 statuses, got %+v", got)
	}
	if !findStatus(got, "covid19").Loaded {
		t.Error("expected covid19 to load")
	}
	heart := findStatus(got, "heart")
	if heart.Loaded || !strings.Contains(heart.Error, "2 weights for 13 features") {
		t.Errorf("expected heart to fail on weight count, got %+v", heart)
	}
}

func TestFileRegistry_ONNXMissingFileIsAbsent(t *testing.T) {
	data := "models:\n  heart:\n    kind: onnx\n    path: does-not-exist.onnx\n"
	m, _ := ParseManifest([]byte(data), t.TempDir())
	reg := NewFileRegistry(m, Options{
		RuntimeLib:    filepath.Join(t.TempDir(), "libonnxruntime.so"),
		FeatureCounts: featureCounts(),
		Logger:        zerolog.Nop(),
	})
	if _, ok := reg.Lookup(context.Background(), "heart"); ok {
		t.Fatal("expected missing onnx model to be absent")
	}
	if st := findStatus(reg.Statuses(), "heart"); st.Error == "" {
		t.Error("expected load error to be recorded")
	}
}

func TestStatic(t *testing.T) {
	s := Static{"heart": &LinearModel{Weights: []float64{1}}, "covid19": nil}
	if _, ok := s.Lookup(context.Background(), "heart"); !ok {
		t.Error("expected heart")
	}
	if _, ok := s.Lookup(context.Background(), "covid19"); ok {
		t.Error("nil model should be absent")
	}
}

func TestFileRegistry_ServesDiagnosisPipeline(t *testing.T) {
	m, _ := LoadManifest(Builtin)
	reg := NewFileRegistry(m, Options{FeatureCounts: featureCounts(), Logger: zerolog.Nop()})
	defer reg.Close()

	svc := diagnosis.NewService(diagnosis.DefaultCatalog(), reg, time.Second, zerolog.Nop())
	res, err := svc.Diagnose(context.Background(), "covid19", diagnosis.RawInputs{
		"temperature": 98.6, "dry_cough": "No", "sore_throat": "No",
		"tiredness": "No", "breathing_difficulty": "No", "age": 30,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Tier != diagnosis.TierLow {
		t.Errorf("expected low tier, got %s", res.Tier)
	}
}
