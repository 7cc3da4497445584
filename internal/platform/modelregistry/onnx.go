package modelregistry

import (
	"context"
	"errors"
	"fmt"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

var (
	ortOnce sync.Once
	ortErr  error
)

// initRuntime loads the onnxruntime shared library once per process.
func initRuntime(libPath string) error {
	ortOnce.Do(func() {
		if libPath != "" {
			ort.SetSharedLibraryPath(libPath)
		}
		ortErr = ort.InitializeEnvironment()
	})
	return ortErr
}

// ONNXModel runs an exported scikit-learn classifier through onnxruntime.
// The graph must take one float32 [N, features] input and produce an int64
// label per row.
type ONNXModel struct {
	mu       sync.Mutex
	session  *ort.DynamicAdvancedSession
	features int
	path     string
}

func newONNX(libPath, path string, e Entry, features int) (*ONNXModel, error) {
	if features <= 0 {
		return nil, fmt.Errorf("onnx model %s: feature count is required", path)
	}
	if err := initRuntime(libPath); err != nil {
		return nil, fmt.Errorf("initialize onnxruntime: %w", err)
	}

	input, output := e.Input, e.Output
	if input == "" {
		input = "float_input"
	}
	if output == "" {
		output = "label"
	}

	session, err := ort.NewDynamicAdvancedSession(path, []string{input}, []string{output}, nil)
	if err != nil {
		return nil, fmt.Errorf("open onnx session %s: %w", path, err)
	}
	return &ONNXModel{session: session, features: features, path: path}, nil
}

func (m *ONNXModel) Predict(ctx context.Context, rows [][]float64) ([]float64, error) {
	if len(rows) == 0 {
		return []float64{}, nil
	}
	flat := make([]float32, 0, len(rows)*m.features)
	for _, row := range rows {
		if len(row) != m.features {
			return nil, fmt.Errorf("onnx model expects %d features, got %d", m.features, len(row))
		}
		for _, x := range row {
			flat = append(flat, float32(x))
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	in, err := ort.NewTensor(ort.NewShape(int64(len(rows)), int64(m.features)), flat)
	if err != nil {
		return nil, fmt.Errorf("build input tensor: %w", err)
	}
	defer in.Destroy()

	out, err := ort.NewEmptyTensor[int64](ort.NewShape(int64(len(rows))))
	if err != nil {
		return nil, fmt.Errorf("build output tensor: %w", err)
	}
	defer out.Destroy()

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return nil, errors.New("onnx model is closed")
	}
	if err := m.session.Run([]ort.Value{in}, []ort.Value{out}); err != nil {
		return nil, fmt.Errorf("run %s: %w", m.path, err)
	}

	labels := out.GetData()
	verdicts := make([]float64, len(labels))
	for i, l := range labels {
		verdicts[i] = float64(l)
	}
	return verdicts, nil
}

// Close releases the session.
func (m *ONNXModel) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return nil
	}
	err := m.session.Destroy()
	m.session = nil
	return err
}
