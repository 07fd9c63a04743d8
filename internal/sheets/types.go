package sheets

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/khulafarming/yieldcast/internal/model"
)

// Report is everything written to the spreadsheet in one export.
type Report struct {
	GeneratedAt time.Time
	LatestRun   *model.TrainingRun
	Predictions []model.PredictionRecord
}

// LocationSummaryRow aggregates the predictions for one location.
type LocationSummaryRow struct {
	Location        string
	AvgYieldPerHa   decimal.Decimal
	AvgSuccess      decimal.Decimal
	TotalYield      decimal.Decimal
	PredictionCount int
}

// Summarize groups predictions by location, sorted by prediction count
// and then by name.
func Summarize(records []model.PredictionRecord) []LocationSummaryRow {
	type acc struct {
		perHa, success, total decimal.Decimal
		n                     int
	}
	byLocation := make(map[string]*acc)
	for _, r := range records {
		a, ok := byLocation[r.Input.Location]
		if !ok {
			a = &acc{}
			byLocation[r.Input.Location] = a
		}
		a.n++
		a.perHa = a.perHa.Add(decimal.NewFromFloat(r.Result.YieldPerHectare))
		a.success = a.success.Add(decimal.NewFromFloat(r.Result.SuccessRating))
		a.total = a.total.Add(decimal.NewFromFloat(r.Result.YieldPrediction))
	}

	rows := make([]LocationSummaryRow, 0, len(byLocation))
	for loc, a := range byLocation {
		n := decimal.NewFromInt(int64(a.n))
		rows = append(rows, LocationSummaryRow{
			Location:        loc,
			PredictionCount: a.n,
			AvgYieldPerHa:   a.perHa.Div(n).Round(2),
			AvgSuccess:      a.success.Div(n).Round(2),
			TotalYield:      a.total.Round(2),
		})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].PredictionCount != rows[j].PredictionCount {
			return rows[i].PredictionCount > rows[j].PredictionCount
		}
		return rows[i].Location < rows[j].Location
	})
	return rows
}
