package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/khulafarming/yieldcast/internal/model"
	"github.com/khulafarming/yieldcast/internal/service"
)

// SavePrediction appends a prediction to the log. A missing ID or timestamp
// is filled in.
func (s *SQLiteStorage) SavePrediction(ctx context.Context, record *model.PredictionRecord) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validatePrediction(record); err != nil {
		return err
	}

	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now()
	}
	record.CreatedAt = record.CreatedAt.UTC()

	input, err := json.Marshal(record.Input)
	if err != nil {
		return fmt.Errorf("failed to encode prediction input: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO predictions (
			id, location, plant_type, input_json,
			yield_prediction, yield_per_hectare, success_rating,
			model_set_id, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		record.ID,
		record.Input.Location,
		record.Input.PlantType,
		string(input),
		record.Result.YieldPrediction,
		record.Result.YieldPerHectare,
		record.Result.SuccessRating,
		record.ModelSetID,
		record.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save prediction: %w", err)
	}
	return nil
}

// ListPredictions returns logged predictions, newest first.
func (s *SQLiteStorage) ListPredictions(ctx context.Context, filter service.PredictionFilter) ([]model.PredictionRecord, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if filter.Limit < 0 || filter.Offset < 0 {
		return nil, ErrInvalidLimit
	}
	return s.listPredictionsTx(ctx, s.db, filter)
}

func (s *SQLiteStorage) listPredictionsTx(ctx context.Context, q queryable, filter service.PredictionFilter) ([]model.PredictionRecord, error) {
	query := `
		SELECT id, input_json, yield_prediction, yield_per_hectare, success_rating,
		       COALESCE(model_set_id, ''), created_at
		FROM predictions`

	var (
		where []string
		args  []any
	)
	if filter.Location != "" {
		where = append(where, "location = ?")
		args = append(args, filter.Location)
	}
	if filter.Since != nil {
		where = append(where, "created_at >= ?")
		args = append(args, filter.Since.UTC())
	}
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC, id"

	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
		if filter.Offset > 0 {
			query += " OFFSET ?"
			args = append(args, filter.Offset)
		}
	} else if filter.Offset > 0 {
		query += " LIMIT -1 OFFSET ?"
		args = append(args, filter.Offset)
	}

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query predictions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []model.PredictionRecord
	for rows.Next() {
		var (
			rec   model.PredictionRecord
			input string
		)
		if err := rows.Scan(
			&rec.ID,
			&input,
			&rec.Result.YieldPrediction,
			&rec.Result.YieldPerHectare,
			&rec.Result.SuccessRating,
			&rec.ModelSetID,
			&rec.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan prediction: %w", err)
		}
		if err := json.Unmarshal([]byte(input), &rec.Input); err != nil {
			return nil, fmt.Errorf("failed to decode input for prediction %s: %w", rec.ID, err)
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating predictions: %w", err)
	}
	return records, nil
}
