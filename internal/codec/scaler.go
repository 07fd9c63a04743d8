package codec

import (
	"fmt"

	"gonum.org/v1/gonum/stat"
)

// StandardScaler standardizes columns to zero mean and unit variance using
// statistics fixed at fit time.
type StandardScaler struct {
	Columns []string  `json:"columns"`
	Mean    []float64 `json:"mean"`
	Scale   []float64 `json:"scale"`
}

// FitStandardScaler computes per-column population mean and standard
// deviation. rows is row-major with one value per column.
func FitStandardScaler(columns []string, rows [][]float64) (*StandardScaler, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("cannot fit scaler: no rows")
	}

	s := &StandardScaler{
		Columns: append([]string(nil), columns...),
		Mean:    make([]float64, len(columns)),
		Scale:   make([]float64, len(columns)),
	}

	col := make([]float64, len(rows))
	for j := range columns {
		for i, row := range rows {
			if len(row) != len(columns) {
				return nil, fmt.Errorf("row %d has %d values, want %d", i, len(row), len(columns))
			}
			col[i] = row[j]
		}
		mean, std := stat.PopMeanStdDev(col, nil)
		if std == 0 {
			std = 1
		}
		s.Mean[j] = mean
		s.Scale[j] = std
	}

	return s, nil
}

// Transform standardizes values in place and returns them.
func (s *StandardScaler) Transform(values []float64) ([]float64, error) {
	if len(values) != len(s.Mean) {
		return nil, fmt.Errorf("scaler expects %d values, got %d", len(s.Mean), len(values))
	}
	for j := range values {
		values[j] = (values[j] - s.Mean[j]) / s.Scale[j]
	}
	return values, nil
}

// InverseTransform maps standardized values back to physical units in place.
func (s *StandardScaler) InverseTransform(values []float64) ([]float64, error) {
	if len(values) != len(s.Mean) {
		return nil, fmt.Errorf("scaler expects %d values, got %d", len(s.Mean), len(values))
	}
	for j := range values {
		values[j] = values[j]*s.Scale[j] + s.Mean[j]
	}
	return values, nil
}

func (s *StandardScaler) validate(want []string) error {
	if len(s.Columns) != len(want) || len(s.Mean) != len(want) || len(s.Scale) != len(want) {
		return fmt.Errorf("scaler shape mismatch: want %d columns", len(want))
	}
	for i, c := range want {
		if s.Columns[i] != c {
			return fmt.Errorf("scaler column %d is %q, want %q", i, s.Columns[i], c)
		}
		if s.Scale[i] <= 0 {
			return fmt.Errorf("scaler column %q has non-positive scale", c)
		}
	}
	return nil
}
