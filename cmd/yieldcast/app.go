package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/viper"

	"github.com/khulafarming/yieldcast/internal/advisor"
	"github.com/khulafarming/yieldcast/internal/codec"
	"github.com/khulafarming/yieldcast/internal/common"
	"github.com/khulafarming/yieldcast/internal/config"
	"github.com/khulafarming/yieldcast/internal/forecast"
	"github.com/khulafarming/yieldcast/internal/llm"
	"github.com/khulafarming/yieldcast/internal/model"
	"github.com/khulafarming/yieldcast/internal/regression"
	"github.com/khulafarming/yieldcast/internal/service"
	"github.com/khulafarming/yieldcast/internal/storage"
)

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return nil, common.NewUserError("Invalid configuration", err)
	}
	return cfg, nil
}

// openStorage opens and migrates the history database.
func openStorage(ctx context.Context, cfg *config.Config) (*storage.SQLiteStorage, error) {
	store, err := storage.NewSQLiteStorage(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return store, nil
}

// trainingSource picks the CSV file when one is configured and the
// simulated generator otherwise.
func trainingSource(cfg *config.Config) forecast.DataSource {
	if cfg.Training.Data != "" {
		return forecast.CSVSource{Path: cfg.Training.Data}
	}
	return forecast.SimulatedSource{Samples: cfg.Training.Samples, Seed: cfg.Training.Seed}
}

// recordTrainingRun logs the wrapper's current model as a training run.
func recordTrainingRun(ctx context.Context, store service.Storage, m *regression.Model) {
	if m == nil {
		return
	}
	err := store.SaveTrainingRun(ctx, &model.TrainingRun{
		TrainedAt: m.TrainedAt,
		SetID:     m.SetID.String(),
		Source:    m.Source,
		Samples:   m.Samples,
		Score:     m.Score,
	})
	if err != nil {
		slog.Warn("failed to record training run", "error", err)
	}
}

// newAdvisor builds the recommendation advisor. The returned func releases
// the provider client.
func newAdvisor(ctx context.Context, cfg *config.Config, cache service.TextCache) (*advisor.Advisor, func(), error) {
	client, err := llm.NewClient(ctx, cfg.LLM(), slog.Default())
	if err != nil {
		return nil, func() {}, err
	}
	a := advisor.New(client,
		advisor.WithCache(cache),
		advisor.WithTTL(cfg.Advisor.CacheTTL),
		advisor.WithLogger(slog.Default()))
	return a, client.Close, nil
}

// inputError turns request validation failures into messages for the user.
func inputError(err error) error {
	var (
		unknown *codec.UnknownCategoryError
		plot    *model.InvalidPlotSizeError
	)
	switch {
	case errors.As(err, &plot):
		return common.NewUserError(fmt.Sprintf("Plot size %g %s is outside the %s range (%g-%g %s)",
			plot.Value, plot.Unit, plot.Category, plot.Min, plot.Max, plot.Unit), err)
	case errors.As(err, &unknown):
		return common.NewUserError(fmt.Sprintf("Unknown %s %q", unknown.Column, unknown.Value), err)
	case errors.Is(err, common.ErrUnknownSeason),
		errors.Is(err, common.ErrUnknownPlotSize),
		errors.Is(err, common.ErrUnknownMonth),
		errors.Is(err, common.ErrUnknownCrop):
		return common.NewUserError("Invalid input", err)
	default:
		return err
	}
}
