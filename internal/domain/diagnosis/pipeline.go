package diagnosis

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"
)

// Service runs diagnoses for every disease in a catalog against models
// resolved from a registry. It holds no per-submission state and is safe
// for concurrent use.
type Service struct {
	catalog  *Catalog
	registry Registry
	timeout  time.Duration
	logger   zerolog.Logger
	observer Observer
}

// Observer is told how every Diagnose call ended. outcome is the result
// tier, or one of the Outcome* failure classes. Keys that name no disease
// are reported as "unknown".
type Observer interface {
	ObserveDiagnosis(disease, outcome string, elapsed time.Duration)
}

// Failure outcomes reported to an Observer.
const (
	OutcomeUnknownDisease   = "unknown_disease"
	OutcomeInvalid          = "invalid"
	OutcomeModelUnavailable = "model_unavailable"
	OutcomePredictionFailed = "prediction_failed"
	OutcomeError            = "error"
)

func NewService(catalog *Catalog, registry Registry, timeout time.Duration, logger zerolog.Logger) *Service {
	return &Service{
		catalog:  catalog,
		registry: registry,
		timeout:  timeout,
		logger:   logger,
	}
}

// SetObserver installs o. It must be called before the service is used.
func (s *Service) SetObserver(o Observer) { s.observer = o }

// Catalog returns the disease catalog the service serves.
func (s *Service) Catalog() *Catalog { return s.catalog }

// Schema resolves a disease key.
func (s *Service) Schema(disease string) (*Schema, error) {
	schema, ok := s.catalog.Get(disease)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDisease, disease)
	}
	return schema, nil
}

// Diagnose resolves the disease schema and model and runs one submission.
// A missing model is reported before any input is looked at.
func (s *Service) Diagnose(ctx context.Context, disease string, raw RawInputs) (res *Result, err error) {
	if s.observer != nil {
		start := time.Now()
		defer func() {
			outcome, key := outcomeOf(res, err), disease
			if outcome == OutcomeUnknownDisease {
				key = "unknown"
			}
			s.observer.ObserveDiagnosis(key, outcome, time.Since(start))
		}()
	}

	schema, err := s.Schema(disease)
	if err != nil {
		return nil, err
	}

	model, ok := s.registry.Lookup(ctx, schema.Key())
	if !ok || model == nil {
		s.logger.Warn().Str("disease", schema.Key()).Msg("model unavailable")
		return nil, &ModelUnavailableError{Disease: schema.Key()}
	}

	res, err = Run(ctx, schema, raw, model, s.timeout)
	var perr *PredictionError
	if errors.As(err, &perr) {
		s.logger.Error().Err(perr.Err).
			Str("disease", schema.Key()).
			Str("stage", "predict").
			Bool("override_matched", perr.Override != nil).
			Msg("model call failed")
	}
	return res, err
}

func outcomeOf(res *Result, err error) string {
	var (
		verr *ValidationError
		merr *ModelUnavailableError
		perr *PredictionError
	)
	switch {
	case err == nil && res != nil:
		return string(res.Tier)
	case errors.Is(err, ErrUnknownDisease):
		return OutcomeUnknownDisease
	case errors.As(err, &verr):
		return OutcomeInvalid
	case errors.As(err, &merr):
		return OutcomeModelUnavailable
	case errors.As(err, &perr):
		return OutcomePredictionFailed
	}
	return OutcomeError
}

// Run executes the pipeline for one submission: validate, encode, evaluate
// overrides, predict, classify. A timeout of zero disables the deadline on
// the model call.
//
// Any model failure is a *PredictionError. If an override rule matched, the
// error carries the rule-only result in Override.
func Run(ctx context.Context, schema *Schema, raw RawInputs, model Model, timeout time.Duration) (*Result, error) {
	if model == nil {
		return nil, &ModelUnavailableError{Disease: schema.Key()}
	}
	if err := Validate(schema, raw); err != nil {
		return nil, err
	}

	vec, err := Encode(schema, raw)
	if err != nil {
		return nil, err
	}

	signal := EvaluateOverrides(schema, raw)

	verdict, err := predict(ctx, model, vec, timeout)
	if err != nil {
		predErr := &PredictionError{Disease: schema.Key(), Err: err}
		if signal != nil {
			res := Classify(schema, VerdictUnavailable, signal, raw)
			predErr.Override = &res
		}
		return nil, predErr
	}

	res := Classify(schema, verdict, signal, raw)
	return &res, nil
}

// predict calls the model with exactly one row under an optional deadline.
// Panics inside the model are recovered and reported as errors.
func predict(ctx context.Context, m Model, vec FeatureVector, timeout time.Duration) (Verdict, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	type outcome struct {
		out []float64
		err error
	}
	done := make(chan outcome, 1)
	row := append([]float64(nil), vec...)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("model panicked: %v", r)}
			}
		}()
		out, err := m.Predict(ctx, [][]float64{row})
		done <- outcome{out: out, err: err}
	}()

	select {
	case o := <-done:
		if o.err != nil {
			if errors.Is(o.err, context.DeadlineExceeded) && errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return VerdictUnavailable, errPredictTimeout
			}
			return VerdictUnavailable, o.err
		}
		return toVerdict(o.out)
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return VerdictUnavailable, errPredictTimeout
		}
		return VerdictUnavailable, ctx.Err()
	}
}

func toVerdict(out []float64) (Verdict, error) {
	if len(out) != 1 {
		return VerdictUnavailable, fmt.Errorf("%w: got %d, want 1", errPredictArity, len(out))
	}
	x := out[0]
	switch {
	case math.IsNaN(x):
		return VerdictUnavailable, fmt.Errorf("%w: NaN", errPredictValue)
	case x == 0:
		return VerdictLow, nil
	case x == 1:
		return VerdictHigh, nil
	}
	return VerdictUnavailable, fmt.Errorf("%w: %v", errPredictValue, x)
}
