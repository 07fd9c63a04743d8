// Package regression trains, persists and serves the yield regression model.
package regression

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/khulafarming/yieldcast/internal/codec"
	"github.com/khulafarming/yieldcast/internal/common"
	"github.com/khulafarming/yieldcast/internal/forest"
	"github.com/khulafarming/yieldcast/internal/model"
)

// ModelName identifies the regressor in logs.
const ModelName = "random_forest_regressor"

// MinTrainingRecords is the smallest dataset that leaves both a training
// and a held-out partition large enough to score.
const MinTrainingRecords = 10

// Model is an immutable trained model: the codec it was trained with, the
// forest and the metadata of the run that produced it.
type Model struct {
	TrainedAt time.Time
	Codec     *codec.Codec
	Forest    *forest.Forest
	Source    string
	Samples   int
	Score     float64
	SetID     uuid.UUID
}

// Predict runs the forest on an encoded feature vector and returns the
// scaled outputs.
func (m *Model) Predict(v model.FeatureVector) ([model.TargetCount]float64, error) {
	var out [model.TargetCount]float64
	pred, err := m.Forest.Predict(v[:])
	if err != nil {
		return out, err
	}
	copy(out[:], pred)
	return out, nil
}

// Config holds the wrapper's training and persistence settings.
type Config struct {
	Dir          string
	Forest       forest.Config
	TestFraction float64
	SplitSeed    uint64
}

// DefaultConfig returns an 80/20 split seeded with 42 and the default forest.
func DefaultConfig(dir string) Config {
	return Config{
		Dir:          dir,
		Forest:       forest.DefaultConfig(),
		TestFraction: 0.2,
		SplitSeed:    42,
	}
}

// TrainOptions customizes a single training run.
type TrainOptions struct {
	// Progress is called after each tree with the number fitted so far.
	Progress func(done, total int)
	// Source describes where the records came from, e.g. a CSV path.
	Source string
}

// Wrapper owns the current model. Predict reads the model through an atomic
// pointer; Train, Save and Load are serialized.
type Wrapper struct {
	current atomic.Pointer[Model]
	logger  *slog.Logger
	cfg     Config
	mu      sync.Mutex
}

// New creates an empty wrapper.
func New(cfg Config, logger *slog.Logger) *Wrapper {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.TestFraction <= 0 || cfg.TestFraction >= 1 {
		cfg.TestFraction = 0.2
	}
	return &Wrapper{
		cfg:    cfg,
		logger: logger.With("component", "regression"),
	}
}

// Dir returns the artifact directory.
func (w *Wrapper) Dir() string {
	return w.cfg.Dir
}

// Current returns the loaded model, or nil when none is loaded.
func (w *Wrapper) Current() *Model {
	return w.current.Load()
}

// Predict returns the scaled outputs for an encoded feature vector.
func (w *Wrapper) Predict(v model.FeatureVector) ([model.TargetCount]float64, error) {
	m := w.current.Load()
	if m == nil {
		return [model.TargetCount]float64{}, common.ErrModelNotLoaded
	}
	return m.Predict(v)
}

// Train fits a new codec and forest on records, scores the forest on a
// held-out split and installs the result as the current model. It returns
// the held-out score.
func (w *Wrapper) Train(ctx context.Context, records []model.Record, opts TrainOptions) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if len(records) < MinTrainingRecords {
		return 0, fmt.Errorf("need at least %d training records, got %d", MinTrainingRecords, len(records))
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	start := time.Now()
	w.logger.Info("Starting training",
		common.ModelNameKey, ModelName,
		common.OperationKey, "train",
		common.SamplesKey, len(records),
		common.FeaturesKey, model.FeatureCount)

	cdc, err := codec.Fit(records)
	if err != nil {
		return 0, fmt.Errorf("failed to fit codec: %w", err)
	}

	x := make([][]float64, len(records))
	y := make([][]float64, len(records))
	for i, r := range records {
		v, err := cdc.Encode(r.FeatureRecord)
		if err != nil {
			return 0, fmt.Errorf("failed to encode record %d: %w", i, err)
		}
		x[i] = v[:]
		t := cdc.EncodeTargets(r.YieldPerHectare, r.SuccessRating)
		y[i] = t[:]
	}

	train, test := split(len(records), w.cfg.TestFraction, w.cfg.SplitSeed)
	xTrain, yTrain := pick(x, train), pick(y, train)
	xTest, yTest := pick(x, test), pick(y, test)

	var progress func()
	if opts.Progress != nil {
		done, total := 0, w.cfg.Forest.Trees
		if total <= 0 {
			total = forest.DefaultConfig().Trees
		}
		progress = func() {
			done++
			opts.Progress(done, total)
		}
	}

	f, err := forest.Fit(ctx, xTrain, yTrain, w.cfg.Forest, progress)
	if err != nil {
		return 0, err
	}

	score, err := f.Score(xTest, yTest)
	if err != nil {
		return 0, fmt.Errorf("failed to score model: %w", err)
	}

	m := &Model{
		SetID:     uuid.New(),
		Codec:     cdc,
		Forest:    f,
		TrainedAt: time.Now().UTC(),
		Source:    opts.Source,
		Samples:   len(records),
		Score:     score,
	}
	w.current.Store(m)

	w.logger.Info("Training complete",
		common.ModelNameKey, ModelName,
		common.OperationKey, "train",
		common.SetIDKey, m.SetID.String(),
		common.ScoreKey, score,
		"train_samples", len(train),
		"test_samples", len(test),
		"duration", time.Since(start))

	return score, nil
}

// Save persists the current model to the configured directory.
func (w *Wrapper) Save() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	m := w.current.Load()
	if m == nil {
		return common.ErrModelNotLoaded
	}
	if w.cfg.Dir == "" {
		return fmt.Errorf("model directory not configured: %w", common.ErrMissingConfig)
	}

	if err := writeArtifacts(w.cfg.Dir, m); err != nil {
		return err
	}

	w.logger.Info("Saved model artifacts",
		common.OperationKey, "save",
		common.SetIDKey, m.SetID.String(),
		"dir", w.cfg.Dir)
	return nil
}

// Load replaces the current model with the artifact set on disk. On error
// the current model is left unchanged.
func (w *Wrapper) Load() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.cfg.Dir == "" {
		return fmt.Errorf("model directory not configured: %w", common.ErrMissingConfig)
	}

	m, err := readArtifacts(w.cfg.Dir)
	if err != nil {
		var mismatch *ArtifactMismatchError
		if errors.As(err, &mismatch) {
			w.logger.Warn("Rejected model artifacts", "dir", w.cfg.Dir, "error", err)
		}
		return err
	}
	w.current.Store(m)

	w.logger.Info("Loaded model artifacts",
		common.OperationKey, "load",
		common.SetIDKey, m.SetID.String(),
		common.ScoreKey, m.Score,
		"trained_at", m.TrainedAt)
	return nil
}

// split shuffles 0..n-1 and returns the training and held-out indices. The
// held-out partition is the first ceil(n*fraction) shuffled indices.
func split(n int, fraction float64, seed uint64) (train, test []int) {
	perm := rand.New(rand.NewPCG(seed, seed)).Perm(n)
	nTest := int(math.Ceil(float64(n) * fraction))
	nTest = max(1, min(nTest, n-1))
	return perm[nTest:], perm[:nTest]
}

func pick(rows [][]float64, idx []int) [][]float64 {
	out := make([][]float64, len(idx))
	for i, j := range idx {
		out[i] = rows[j]
	}
	return out
}
