package regression

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand/v2"
	"os"
	"strconv"
	"strings"

	"github.com/khulafarming/yieldcast/internal/common"
	"github.com/khulafarming/yieldcast/internal/model"
)

// DefaultSimulatedSamples is the size of the synthetic training set.
const DefaultSimulatedSamples = 1000

// SchemaError reports training data that does not match the expected layout.
type SchemaError struct {
	Column  string
	Value   string
	Missing []string
	Line    int
}

func (e *SchemaError) Error() string {
	if len(e.Missing) > 0 {
		return fmt.Sprintf("training data is missing columns: %s", strings.Join(e.Missing, ", "))
	}
	return fmt.Sprintf("training data line %d: column %s has invalid value %q", e.Line, e.Column, e.Value)
}

func (e *SchemaError) Unwrap() error {
	return common.ErrSchema
}

// ReadCSV loads training records from a CSV file with a header row.
func ReadCSV(path string) ([]model.Record, error) {
	f, err := os.Open(path) // #nosec G304 - path comes from user configuration
	if err != nil {
		return nil, fmt.Errorf("failed to open training data: %w", err)
	}
	defer func() { _ = f.Close() }()

	return DecodeCSV(f)
}

// DecodeCSV parses training records. Either Yield_per_hectare or
// Yield_Tons_Per_Hectare is accepted as the yield column; extra columns are
// ignored.
func DecodeCSV(r io.Reader) ([]model.Record, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, &SchemaError{Missing: requiredColumns()}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.TrimSpace(name)] = i
	}

	yieldCol := model.ColYieldPerHectare
	if _, ok := index[yieldCol]; !ok {
		if _, ok := index[model.ColYieldTonsPerHa]; ok {
			yieldCol = model.ColYieldTonsPerHa
		}
	}

	var missing []string
	for _, col := range requiredColumns() {
		if col == model.ColYieldPerHectare {
			col = yieldCol
		}
		if _, ok := index[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, &SchemaError{Missing: missing}
	}

	var records []model.Record
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read training data: %w", err)
		}
		line, _ := cr.FieldPos(0)

		num := func(col string) (float64, error) {
			raw := strings.TrimSpace(row[index[col]])
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
				return 0, &SchemaError{Line: line, Column: col, Value: raw}
			}
			return v, nil
		}
		str := func(col string) (string, error) {
			v := strings.TrimSpace(row[index[col]])
			if v == "" {
				return "", &SchemaError{Line: line, Column: col, Value: v}
			}
			return v, nil
		}

		var rec model.Record
		fields := []struct {
			col string
			dst *string
		}{
			{model.ColSeason, &rec.Season},
			{model.ColDroughtStatus, &rec.DroughtStatus},
			{model.ColPestPressure, &rec.PestPressure},
			{model.ColDiseasePressure, &rec.DiseasePressure},
		}
		for _, f := range fields {
			if *f.dst, err = str(f.col); err != nil {
				return nil, err
			}
		}

		values := []struct {
			col string
			dst *float64
		}{
			{model.ColRainfall, &rec.Rainfall},
			{model.ColAvgTemp, &rec.AvgTemp},
			{model.ColSoilMoisture, &rec.SoilMoisture},
			{model.ColGrowingDays, &rec.GrowingDays},
			{model.ColSoilPH, &rec.SoilPH},
			{model.ColFertilizer, &rec.Fertilizer},
			{yieldCol, &rec.YieldPerHectare},
			{model.ColSuccessRating, &rec.SuccessRating},
		}
		for _, v := range values {
			if *v.dst, err = num(v.col); err != nil {
				return nil, err
			}
		}

		records = append(records, rec)
	}

	return records, nil
}

func requiredColumns() []string {
	cols := make([]string, 0, model.FeatureCount+model.TargetCount)
	cols = append(cols, model.CategoricalColumns[:]...)
	cols = append(cols, model.NumericColumns[:]...)
	return append(cols, model.ColYieldPerHectare, model.ColSuccessRating)
}

// Simulate generates a synthetic historical dataset. Every numeric column is
// normally distributed and droughts of High severity cut yield by 30%.
func Simulate(n int, seed uint64) []model.Record {
	if n <= 0 {
		return nil
	}
	rng := rand.New(rand.NewPCG(seed, seed))

	pressures := model.Pressures()
	seasons := model.Seasons()

	choice := func(options []string) []string {
		out := make([]string, n)
		for i := range out {
			out[i] = options[rng.IntN(len(options))]
		}
		return out
	}
	normal := func(mean, std float64) []float64 {
		out := make([]float64, n)
		for i := range out {
			out[i] = mean + std*rng.NormFloat64()
		}
		return out
	}

	// Columns are drawn one at a time so each column is a single stream.
	season := choice(seasons)
	rainfall := normal(450, 100)
	temp := normal(25, 5)
	moisture := normal(70, 5)
	drought := choice(pressures)
	pest := choice(pressures)
	disease := choice(pressures)
	growing := normal(135, 15)
	ph := normal(6.5, 0.5)
	fertilizer := normal(180, 20)
	yield := normal(3500, 500)
	success := normal(7, 1)

	records := make([]model.Record, n)
	for i := range records {
		y := yield[i]
		if drought[i] == model.PressureHigh {
			y *= 0.7
		}
		records[i] = model.Record{
			FeatureRecord: model.FeatureRecord{
				Season:          season[i],
				DroughtStatus:   drought[i],
				PestPressure:    pest[i],
				DiseasePressure: disease[i],
				Rainfall:        rainfall[i],
				AvgTemp:         temp[i],
				SoilMoisture:    moisture[i],
				GrowingDays:     growing[i],
				SoilPH:          ph[i],
				Fertilizer:      fertilizer[i],
			},
			YieldPerHectare: y,
			SuccessRating:   success[i],
		}
	}
	return records
}
