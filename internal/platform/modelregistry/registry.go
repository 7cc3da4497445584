package modelregistry

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/meddx/meddx/internal/domain/diagnosis"
)

// Options configures a FileRegistry.
type Options struct {
	// RuntimeLib is the onnxruntime shared library path; empty uses the
	// platform default.
	RuntimeLib string
	// FeatureCounts is the expected vector length per disease.
	FeatureCounts map[string]int
	// WarmConcurrency bounds parallel loads in Warm.
	WarmConcurrency int
	Logger          zerolog.Logger
}

// Status reports the load state of one declared model.
type Status struct {
	Disease string `json:"disease"`
	Kind    string `json:"kind"`
	Loaded  bool   `json:"loaded"`
	Error   string `json:"error,omitempty"`
}

type loaderFunc func(disease string, e Entry) (diagnosis.Model, error)

// FileRegistry resolves disease models declared in a manifest. Models are
// loaded on first use and cached; concurrent first lookups share a single
// load. A model that fails to load is reported absent and retried on the
// next lookup.
type FileRegistry struct {
	manifest *Manifest
	opts     Options
	load     loaderFunc

	group singleflight.Group

	mu       sync.RWMutex
	loaded   map[string]diagnosis.Model
	failures map[string]string
}

func NewFileRegistry(m *Manifest, opts Options) *FileRegistry {
	if opts.WarmConcurrency <= 0 {
		opts.WarmConcurrency = 4
	}
	r := &FileRegistry{
		manifest: m,
		opts:     opts,
		loaded:   make(map[string]diagnosis.Model),
		failures: make(map[string]string),
	}
	r.load = r.open
	return r
}

// Lookup returns the model for disease, loading it if needed.
func (r *FileRegistry) Lookup(ctx context.Context, disease string) (diagnosis.Model, bool) {
	r.mu.RLock()
	m, ok := r.loaded[disease]
	r.mu.RUnlock()
	if ok {
		return m, true
	}

	if _, declared := r.manifest.Entry(disease); !declared {
		return nil, false
	}

	v, err, _ := r.group.Do(disease, func() (interface{}, error) {
		return r.loadOne(disease)
	})
	if err != nil {
		r.opts.Logger.Warn().Err(err).Str("disease", disease).Msg("model unavailable")
		return nil, false
	}
	return v.(diagnosis.Model), true
}

func (r *FileRegistry) loadOne(disease string) (diagnosis.Model, error) {
	r.mu.RLock()
	m, ok := r.loaded[disease]
	r.mu.RUnlock()
	if ok {
		return m, nil
	}

	e, _ := r.manifest.Entry(disease)
	m, err := r.load(disease, e)

	r.mu.Lock()
	defer r.mu.Unlock()
	if err != nil {
		r.failures[disease] = err.Error()
		return nil, err
	}
	delete(r.failures, disease)
	r.loaded[disease] = m
	r.opts.Logger.Info().Str("disease", disease).Str("kind", e.Kind).Msg("model loaded")
	return m, nil
}

func (r *FileRegistry) open(disease string, e Entry) (diagnosis.Model, error) {
	features := r.opts.FeatureCounts[disease]
	switch e.Kind {
	case KindLinear:
		if features > 0 && len(e.Weights) != features {
			return nil, fmt.Errorf("model %s: %d weights for %d features", disease, len(e.Weights), features)
		}
		return newLinear(e), nil
	case KindONNX:
		return newONNX(r.opts.RuntimeLib, r.manifest.resolve(e.Path), e, features)
	}
	return nil, fmt.Errorf("model %s: unknown kind %q", disease, e.Kind)
}

// Warm loads every declared model with bounded concurrency. Failures are
// logged and reported in the returned statuses; they do not stop the others.
func (r *FileRegistry) Warm(ctx context.Context) []Status {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.opts.WarmConcurrency)
	for _, disease := range r.manifest.Diseases() {
		disease := disease
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			r.Lookup(gctx, disease)
			return nil
		})
	}
	_ = g.Wait()
	return r.Statuses()
}

// Statuses reports every declared model, sorted by disease.
func (r *FileRegistry) Statuses() []Status {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Status, 0, len(r.manifest.Models))
	for _, disease := range r.manifest.Diseases() {
		e, _ := r.manifest.Entry(disease)
		_, loaded := r.loaded[disease]
		out = append(out, Status{
			Disease: disease,
			Kind:    e.Kind,
			Loaded:  loaded,
			Error:   r.failures[disease],
		})
	}
	return out
}

// Close releases every loaded model that holds resources.
func (r *FileRegistry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var firstErr error
	for disease, m := range r.loaded {
		if c, ok := m.(io.Closer); ok {
			if err := c.Close(); err != nil && firstErr == nil {
				firstErr = fmt.Errorf("close model %s: %w", disease, err)
			}
		}
		delete(r.loaded, disease)
	}
	return firstErr
}

// Static is a fixed registry, used by tests and the CLI.
type Static map[string]diagnosis.Model

func (s Static) Lookup(_ context.Context, disease string) (diagnosis.Model, bool) {
	m, ok := s[disease]
	return m, ok && m != nil
}
