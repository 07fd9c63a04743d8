// Package storage provides the data persistence layer for yieldcast.
package storage

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/khulafarming/yieldcast/internal/model"
)

// Validation errors.
var (
	ErrNilContext          = errors.New("context cannot be nil")
	ErrEmptyString         = errors.New("string parameter cannot be empty")
	ErrNilParameter        = errors.New("parameter cannot be nil")
	ErrInvalidPrediction   = errors.New("invalid prediction")
	ErrInvalidTrainingRun  = errors.New("invalid training run")
	ErrInvalidCacheEntry   = errors.New("invalid cache entry")
	ErrInvalidLimit        = errors.New("limit and offset cannot be negative")
	ErrNonPositiveDuration = errors.New("duration must be positive")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

func validatePrediction(record *model.PredictionRecord) error {
	if record == nil {
		return fmt.Errorf("%w: prediction", ErrNilParameter)
	}
	if strings.TrimSpace(record.Input.Location) == "" {
		return fmt.Errorf("%w: missing location", ErrInvalidPrediction)
	}
	if strings.TrimSpace(record.Input.PlantType) == "" {
		return fmt.Errorf("%w: missing plant type", ErrInvalidPrediction)
	}
	for name, v := range map[string]float64{
		"yield prediction":  record.Result.YieldPrediction,
		"yield per hectare": record.Result.YieldPerHectare,
		"success rating":    record.Result.SuccessRating,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %s is not a number", ErrInvalidPrediction, name)
		}
	}
	return nil
}

func validateTrainingRun(run *model.TrainingRun) error {
	if run == nil {
		return fmt.Errorf("%w: training run", ErrNilParameter)
	}
	if strings.TrimSpace(run.SetID) == "" {
		return fmt.Errorf("%w: missing set id", ErrInvalidTrainingRun)
	}
	if run.Samples <= 0 {
		return fmt.Errorf("%w: samples must be positive", ErrInvalidTrainingRun)
	}
	return nil
}

func validateCacheEntry(entry *model.CachedText) error {
	if entry == nil {
		return fmt.Errorf("%w: cache entry", ErrNilParameter)
	}
	if strings.TrimSpace(entry.Location) == "" {
		return fmt.Errorf("%w: missing location", ErrInvalidCacheEntry)
	}
	if strings.TrimSpace(entry.Key) == "" {
		return fmt.Errorf("%w: missing key", ErrInvalidCacheEntry)
	}
	return nil
}
