// Package forest implements a multi-output random forest regressor.
//
// Trees are fully grown CART regressors fitted on bootstrap samples. Every
// split considers all features and minimizes the squared error summed over
// the outputs. Fitting is deterministic for a given seed regardless of how
// many workers are used.
package forest

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"
)

// Config controls forest fitting.
type Config struct {
	Trees           int
	MaxDepth        int // 0 grows trees until leaves are pure
	MinSamplesSplit int
	MinSamplesLeaf  int
	Workers         int // 0 means no limit
	Seed            uint64
}

// DefaultConfig mirrors a 100-tree forest seeded with 42.
func DefaultConfig() Config {
	return Config{
		Trees:           100,
		MinSamplesSplit: 2,
		MinSamplesLeaf:  1,
		Seed:            42,
	}
}

func (c Config) withDefaults() Config {
	if c.Trees <= 0 {
		c.Trees = 100
	}
	if c.MinSamplesSplit < 2 {
		c.MinSamplesSplit = 2
	}
	if c.MinSamplesLeaf < 1 {
		c.MinSamplesLeaf = 1
	}
	return c
}

// Forest is a fitted ensemble. It is safe for concurrent use once fitted.
type Forest struct {
	Trees    []Tree `json:"trees"`
	Features int    `json:"features"`
	Outputs  int    `json:"outputs"`
}

// Fit trains a forest on x (rows by features) against y (rows by outputs).
// progress, when non-nil, is called once per fitted tree.
func Fit(ctx context.Context, x, y [][]float64, cfg Config, progress func()) (*Forest, error) {
	if len(x) == 0 {
		return nil, fmt.Errorf("cannot fit forest: no samples")
	}
	if len(x) != len(y) {
		return nil, fmt.Errorf("cannot fit forest: %d feature rows but %d target rows", len(x), len(y))
	}

	features, outputs := len(x[0]), len(y[0])
	for i := range x {
		if len(x[i]) != features {
			return nil, fmt.Errorf("feature row %d has %d values, want %d", i, len(x[i]), features)
		}
		if len(y[i]) != outputs {
			return nil, fmt.Errorf("target row %d has %d values, want %d", i, len(y[i]), outputs)
		}
	}

	cfg = cfg.withDefaults()

	// Seeds are drawn up front so results do not depend on scheduling.
	master := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed))
	seeds := make([]uint64, cfg.Trees)
	for i := range seeds {
		seeds[i] = master.Uint64()
	}

	var progressMu sync.Mutex
	report := func() {
		if progress == nil {
			return
		}
		progressMu.Lock()
		defer progressMu.Unlock()
		progress()
	}

	trees := make([]Tree, cfg.Trees)
	g, gctx := errgroup.WithContext(ctx)
	if cfg.Workers > 0 {
		g.SetLimit(cfg.Workers)
	}

	for t := range trees {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			rng := rand.New(rand.NewPCG(seeds[t], uint64(t)))
			trees[t] = fitTree(x, y, bootstrap(rng, len(x)), cfg)
			report()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("forest fitting interrupted: %w", err)
	}

	return &Forest{Trees: trees, Features: features, Outputs: outputs}, nil
}

func bootstrap(rng *rand.Rand, n int) []int {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = rng.IntN(n)
	}
	return idx
}

// Predict averages the tree outputs for a single sample.
func (f *Forest) Predict(x []float64) ([]float64, error) {
	if len(x) != f.Features {
		return nil, fmt.Errorf("forest expects %d features, got %d", f.Features, len(x))
	}
	if len(f.Trees) == 0 {
		return nil, fmt.Errorf("forest has no trees")
	}

	out := make([]float64, f.Outputs)
	for i := range f.Trees {
		leaf := f.Trees[i].leaf(x)
		for o := range out {
			out[o] += leaf[o]
		}
	}
	for o := range out {
		out[o] /= float64(len(f.Trees))
	}
	return out, nil
}

// Score returns the coefficient of determination averaged over outputs.
func (f *Forest) Score(x, y [][]float64) (float64, error) {
	if len(x) == 0 || len(x) != len(y) {
		return 0, fmt.Errorf("cannot score forest on %d samples and %d targets", len(x), len(y))
	}

	estimates := make([][]float64, f.Outputs)
	values := make([][]float64, f.Outputs)
	for o := range estimates {
		estimates[o] = make([]float64, len(x))
		values[o] = make([]float64, len(x))
	}

	for i := range x {
		pred, err := f.Predict(x[i])
		if err != nil {
			return 0, err
		}
		for o := range pred {
			estimates[o][i] = pred[o]
			values[o][i] = y[i][o]
		}
	}

	var total float64
	for o := range estimates {
		total += stat.RSquaredFrom(estimates[o], values[o], nil)
	}
	return total / float64(f.Outputs), nil
}

// Validate checks the structure of a forest restored from storage.
func (f *Forest) Validate() error {
	if f == nil {
		return fmt.Errorf("forest is nil")
	}
	if len(f.Trees) == 0 {
		return fmt.Errorf("forest has no trees")
	}
	if f.Features <= 0 || f.Outputs <= 0 {
		return fmt.Errorf("forest has invalid shape %dx%d", f.Features, f.Outputs)
	}
	for i := range f.Trees {
		if err := f.Trees[i].validate(f.Features, f.Outputs); err != nil {
			return fmt.Errorf("tree %d: %w", i, err)
		}
	}
	return nil
}
