package forecast

import (
	"context"

	"github.com/khulafarming/yieldcast/internal/model"
	"github.com/khulafarming/yieldcast/internal/regression"
)

// DataSource supplies training records when no persisted model is available.
type DataSource interface {
	Records(ctx context.Context) ([]model.Record, error)
	Name() string
}

// CSVSource reads historical records from a CSV file.
type CSVSource struct {
	Path string
}

// Records implements DataSource.
func (s CSVSource) Records(ctx context.Context) ([]model.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return regression.ReadCSV(s.Path)
}

// Name implements DataSource.
func (s CSVSource) Name() string {
	return "csv:" + s.Path
}

// SimulatedSource generates a synthetic dataset.
type SimulatedSource struct {
	Samples int
	Seed    uint64
}

// Records implements DataSource.
func (s SimulatedSource) Records(ctx context.Context) ([]model.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	n := s.Samples
	if n <= 0 {
		n = regression.DefaultSimulatedSamples
	}
	return regression.Simulate(n, s.Seed), nil
}

// Name implements DataSource.
func (s SimulatedSource) Name() string {
	return "simulated"
}
