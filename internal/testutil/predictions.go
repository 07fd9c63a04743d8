package testutil

import (
	"time"

	"github.com/khulafarming/yieldcast/internal/model"
)

// PredictionBuilder assembles prediction records for seeding. Times appends
// copies of the current template.
type PredictionBuilder struct {
	start    time.Time
	template model.PredictionRecord
	records  []model.PredictionRecord
}

// NewPredictionBuilder returns a builder whose template is a medium maize
// plot with a middling result.
func NewPredictionBuilder() *PredictionBuilder {
	return &PredictionBuilder{
		start: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC),
		template: model.PredictionRecord{
			Input: model.RawInput{
				Location:  "Durban",
				PlantType: "Maize",
				PlotSize:  "Medium",
			},
			Result: model.PredictionResult{
				YieldPrediction: 0.5,
				YieldPerHectare: 10,
				SuccessRating:   5,
			},
		},
	}
}

// WithResult sets the result used by subsequent records.
func (b *PredictionBuilder) WithResult(result model.PredictionResult) *PredictionBuilder {
	b.template.Result = result
	return b
}

// WithInput sets the input used by subsequent records. An empty location
// keeps the current one.
func (b *PredictionBuilder) WithInput(input model.RawInput) *PredictionBuilder {
	loc := b.template.Input.Location
	b.template.Input = input
	if b.template.Input.Location == "" {
		b.template.Input.Location = loc
	}
	return b
}

// At sets the location used by subsequent records.
func (b *PredictionBuilder) At(location string) *PredictionBuilder {
	b.template.Input.Location = location
	return b
}

// Times appends n copies of the current template, one hour apart.
func (b *PredictionBuilder) Times(n int) *PredictionBuilder {
	for range n {
		rec := b.template
		rec.CreatedAt = b.start.Add(time.Duration(len(b.records)) * time.Hour)
		b.records = append(b.records, rec)
	}
	return b
}

// Build returns the accumulated records.
func (b *PredictionBuilder) Build() []model.PredictionRecord {
	out := make([]model.PredictionRecord, len(b.records))
	copy(out, b.records)
	return out
}
