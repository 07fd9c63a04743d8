package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/khulafarming/yieldcast/internal/common"
	"github.com/khulafarming/yieldcast/internal/model"
)

// SaveTrainingRun records a completed training run.
func (s *SQLiteStorage) SaveTrainingRun(ctx context.Context, run *model.TrainingRun) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateTrainingRun(run); err != nil {
		return err
	}

	if run.TrainedAt.IsZero() {
		run.TrainedAt = time.Now()
	}
	run.TrainedAt = run.TrainedAt.UTC()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO training_runs (set_id, source, samples, score, trained_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(set_id) DO UPDATE SET
			source = excluded.source,
			samples = excluded.samples,
			score = excluded.score,
			trained_at = excluded.trained_at
	`, run.SetID, run.Source, run.Samples, run.Score, run.TrainedAt)
	if err != nil {
		return fmt.Errorf("failed to save training run: %w", err)
	}
	return nil
}

// LatestTrainingRun returns the most recent training run.
func (s *SQLiteStorage) LatestTrainingRun(ctx context.Context) (*model.TrainingRun, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	var run model.TrainingRun
	err := s.db.QueryRowContext(ctx, `
		SELECT set_id, source, samples, score, trained_at
		FROM training_runs
		ORDER BY trained_at DESC
		LIMIT 1
	`).Scan(&run.SetID, &run.Source, &run.Samples, &run.Score, &run.TrainedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest training run: %w", err)
	}
	return &run, nil
}
