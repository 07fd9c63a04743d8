// Package forecast turns user requests into plot-level yield forecasts.
package forecast

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/khulafarming/yieldcast/internal/common"
	"github.com/khulafarming/yieldcast/internal/model"
	"github.com/khulafarming/yieldcast/internal/modifier"
	"github.com/khulafarming/yieldcast/internal/regression"
)

// Origin records how Bootstrap obtained the model.
type Origin int

// Bootstrap origins.
const (
	OriginLoaded Origin = iota + 1
	OriginTrained
)

func (o Origin) String() string {
	switch o {
	case OriginLoaded:
		return "loaded"
	case OriginTrained:
		return "trained"
	default:
		return "unknown"
	}
}

// Service is the prediction entry point. It starts uninitialized and becomes
// ready after a successful Bootstrap; it never goes back.
type Service struct {
	wrapper  *regression.Wrapper
	engine   *modifier.Engine
	logger   *slog.Logger
	progress func(done, total int)
	ready    atomic.Bool
	initMu   sync.Mutex
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithTrainingProgress reports tree progress if Bootstrap has to train.
func WithTrainingProgress(fn func(done, total int)) Option {
	return func(s *Service) {
		s.progress = fn
	}
}

// New creates an uninitialized service around wrapper.
func New(wrapper *regression.Wrapper, opts modifier.Options, options ...Option) *Service {
	s := &Service{
		wrapper: wrapper,
		engine:  modifier.New(opts),
		logger:  slog.Default(),
	}
	for _, opt := range options {
		opt(s)
	}
	s.logger = s.logger.With("component", "forecast")
	return s
}

// Ready reports whether Bootstrap has completed.
func (s *Service) Ready() bool {
	return s.ready.Load()
}

// Model returns the model serving predictions, or nil before Bootstrap.
func (s *Service) Model() *regression.Model {
	if !s.ready.Load() {
		return nil
	}
	return s.wrapper.Current()
}

// Bootstrap loads the persisted model. If that fails it trains on src and
// persists the result. Calling Bootstrap on a ready service returns
// common.ErrAlreadyInitialized.
func (s *Service) Bootstrap(ctx context.Context, src DataSource) (Origin, error) {
	s.initMu.Lock()
	defer s.initMu.Unlock()

	if s.ready.Load() {
		return 0, common.ErrAlreadyInitialized
	}

	loadErr := s.wrapper.Load()
	if loadErr == nil {
		s.ready.Store(true)
		return OriginLoaded, nil
	}

	if errors.Is(loadErr, common.ErrNotFound) {
		s.logger.Info("No saved model found, training a new one", "dir", s.wrapper.Dir())
	} else {
		s.logger.Warn("Could not load saved model, retraining", "dir", s.wrapper.Dir(), "error", loadErr)
	}

	if src == nil {
		return 0, fmt.Errorf("no training data source: %w", loadErr)
	}

	records, err := src.Records(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load training data from %s: %w", src.Name(), err)
	}

	if _, err := s.wrapper.Train(ctx, records, regression.TrainOptions{
		Progress: s.progress,
		Source:   src.Name(),
	}); err != nil {
		return 0, fmt.Errorf("failed to train model: %w", err)
	}

	if err := s.wrapper.Save(); err != nil {
		return 0, fmt.Errorf("failed to save trained model: %w", err)
	}

	s.ready.Store(true)
	return OriginTrained, nil
}

// Predict runs the full pipeline for one request. It never returns a
// partial result.
func (s *Service) Predict(in model.RawInput) (model.PredictionResult, error) {
	if !s.ready.Load() {
		return model.PredictionResult{}, common.ErrModelNotLoaded
	}
	m := s.wrapper.Current()
	if m == nil {
		return model.PredictionResult{}, common.ErrModelNotLoaded
	}

	r, err := s.Describe(in)
	if err != nil {
		return model.PredictionResult{}, err
	}

	v, err := m.Codec.Encode(r.Features)
	if err != nil {
		return model.PredictionResult{}, fmt.Errorf("failed to encode inputs: %w", err)
	}

	scaled, err := m.Predict(v)
	if err != nil {
		return model.PredictionResult{}, fmt.Errorf("inference failed: %w", err)
	}
	baseYield, baseSuccess := m.Codec.Decode(scaled)

	result := s.engine.Apply(modifier.Adjustment{
		Month:            r.Harvest,
		Season:           r.Season,
		PlotSize:         r.PlotSize,
		DroughtStatus:    r.Features.DroughtStatus,
		PestPressure:     r.Features.PestPressure,
		DiseasePressure:  r.Features.DiseasePressure,
		BaseYieldPerHa:   baseYield,
		BaseSuccess:      baseSuccess,
		PlotSizePhysical: r.PlotSizeValue,
	})

	s.logger.Debug("Prediction complete",
		common.SetIDKey, m.SetID.String(),
		"location", in.Location,
		"yield_per_hectare", result.YieldPerHectare,
		"success_rating", result.SuccessRating)

	return result, nil
}
