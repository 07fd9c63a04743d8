package model

import "time"

// PredictionRecord is a logged prediction.
type PredictionRecord struct {
	CreatedAt  time.Time        `json:"created_at"`
	ID         string           `json:"id"`
	ModelSetID string           `json:"model_set_id"`
	Input      RawInput         `json:"input"`
	Result     PredictionResult `json:"result"`
}

// TrainingRun records one completed training of the regression model.
type TrainingRun struct {
	TrainedAt time.Time `json:"trained_at"`
	SetID     string    `json:"set_id"`
	Source    string    `json:"source"`
	Samples   int       `json:"samples"`
	Score     float64   `json:"score"`
}

// CachedText is a stored recommendation.
type CachedText struct {
	CreatedAt time.Time
	Location  string
	Key       string
	Content   string
}
