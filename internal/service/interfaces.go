// Package service defines the interfaces shared between application services.
package service

import (
	"context"
	"time"

	"github.com/khulafarming/yieldcast/internal/model"
)

// PredictionFilter narrows prediction history queries.
type PredictionFilter struct {
	Since    *time.Time
	Location string
	Limit    int
	Offset   int
}

// TextCache stores generated recommendation text keyed by location.
type TextCache interface {
	// GetCachedText returns the entry for (location, key) if it is younger
	// than maxAge. A missing or stale entry returns common.ErrNotFound.
	GetCachedText(ctx context.Context, location, key string, maxAge time.Duration) (*model.CachedText, error)
	PutCachedText(ctx context.Context, entry *model.CachedText) error
}

// Storage defines the contract for our persistence layer.
type Storage interface {
	TextCache

	// Prediction log
	SavePrediction(ctx context.Context, record *model.PredictionRecord) error
	ListPredictions(ctx context.Context, filter PredictionFilter) ([]model.PredictionRecord, error)

	// Training history
	SaveTrainingRun(ctx context.Context, run *model.TrainingRun) error
	LatestTrainingRun(ctx context.Context) (*model.TrainingRun, error)

	// Cache maintenance
	PruneCache(ctx context.Context, olderThan time.Duration) (int64, error)

	Migrate(ctx context.Context) error
	Close() error
}
