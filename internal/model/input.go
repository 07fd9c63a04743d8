// Package model defines the domain types shared by the prediction pipeline.
package model

import (
	"fmt"

	"github.com/khulafarming/yieldcast/internal/common"
)

// Column names used by training data and the feature codec.
const (
	ColSeason          = "Season"
	ColRainfall        = "Rainfall_mm"
	ColAvgTemp         = "Avg_Temp_C"
	ColSoilMoisture    = "Soil_Moisture_Percentage"
	ColDroughtStatus   = "Drought_Status"
	ColPestPressure    = "Pest_Pressure"
	ColDiseasePressure = "Disease_Pressure"
	ColGrowingDays     = "Growing_Days"
	ColSoilPH          = "Soil_pH"
	ColFertilizer      = "Fertilizer_Usage_kg_per_ha"
	ColYieldPerHectare = "Yield_per_hectare"
	ColYieldTonsPerHa  = "Yield_Tons_Per_Hectare"
	ColSuccessRating   = "Success_Rating"
)

// NumericColumns lists the standardized inputs in feature-vector order.
var NumericColumns = [...]string{
	ColRainfall,
	ColAvgTemp,
	ColSoilMoisture,
	ColGrowingDays,
	ColSoilPH,
	ColFertilizer,
}

// CategoricalColumns lists the label-encoded inputs in feature-vector order.
var CategoricalColumns = [...]string{
	ColSeason,
	ColDroughtStatus,
	ColPestPressure,
	ColDiseasePressure,
}

// FeatureCount is the width of the model's input vector.
const FeatureCount = len(NumericColumns) + len(CategoricalColumns)

// TargetCount is the number of regression targets (yield per hectare, success rating).
const TargetCount = 2

// FeatureVector is the encoded model input.
type FeatureVector [FeatureCount]float64

// Pressure levels for drought, pest and disease.
const (
	PressureLow    = "Low"
	PressureMedium = "Medium"
	PressureHigh   = "High"
)

// Defaults applied when RawInput fields are omitted.
const (
	DefaultPlotSize        = PlotMedium
	DefaultSeason          = SeasonSummer
	DefaultPressure        = PressureLow
	DefaultSoilPH          = 6.2
	DefaultFertilizerUsage = 180.0
)

// RawInput is the user-supplied request. Empty strings and nil pointers mean
// the field was omitted.
type RawInput struct {
	PlotSizeValue   *float64 `json:"plot_size_value,omitempty"`
	SoilPH          *float64 `json:"soil_ph,omitempty"`
	FertilizerUsage *float64 `json:"fertilizer_usage,omitempty"`
	Location        string   `json:"location"`
	PlantType       string   `json:"plant_type"`
	PlotSize        string   `json:"plot_size,omitempty"`
	Season          string   `json:"season,omitempty"`
	HarvestMonth    string   `json:"harvest_month,omitempty"`
	DroughtStatus   string   `json:"drought_status,omitempty"`
	PestPressure    string   `json:"pest_pressure,omitempty"`
	DiseasePressure string   `json:"disease_pressure,omitempty"`
}

// FeatureRecord holds the ten model inputs before encoding.
type FeatureRecord struct {
	Season          string
	DroughtStatus   string
	PestPressure    string
	DiseasePressure string
	Rainfall        float64
	AvgTemp         float64
	SoilMoisture    float64
	GrowingDays     float64
	SoilPH          float64
	Fertilizer      float64
}

// Numeric returns the continuous inputs in feature-vector order.
func (r FeatureRecord) Numeric() [len(NumericColumns)]float64 {
	return [len(NumericColumns)]float64{
		r.Rainfall,
		r.AvgTemp,
		r.SoilMoisture,
		r.GrowingDays,
		r.SoilPH,
		r.Fertilizer,
	}
}

// Categorical returns the categorical inputs keyed by column name.
func (r FeatureRecord) Categorical() map[string]string {
	return map[string]string{
		ColSeason:          r.Season,
		ColDroughtStatus:   r.DroughtStatus,
		ColPestPressure:    r.PestPressure,
		ColDiseasePressure: r.DiseasePressure,
	}
}

// Record is one row of historical or simulated training data.
type Record struct {
	FeatureRecord
	YieldPerHectare float64
	SuccessRating   float64
}

// PredictionResult is the pipeline output. Yields are in tons; the success
// rating is clamped to [0, 10].
type PredictionResult struct {
	YieldPrediction float64 `json:"yield_prediction"`
	YieldPerHectare float64 `json:"yield_per_hectare"`
	SuccessRating   float64 `json:"success_rating"`
}

// InvalidPlotSizeError reports a plot size value outside its category range.
type InvalidPlotSizeError struct {
	Category string
	Unit     string
	Value    float64
	Min      float64
	Max      float64
}

func (e *InvalidPlotSizeError) Error() string {
	return fmt.Sprintf("plot size %g %s outside %s range [%g, %g]", e.Value, e.Unit, e.Category, e.Min, e.Max)
}

func (e *InvalidPlotSizeError) Unwrap() error {
	return common.ErrInvalidPlotSize
}
