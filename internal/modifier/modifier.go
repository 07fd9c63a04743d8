// Package modifier applies the contextual multipliers that turn a base model
// prediction into a plot-level forecast, and prepares the plot- and
// month-dependent model inputs.
package modifier

import (
	"math"

	"github.com/khulafarming/yieldcast/internal/model"
	"github.com/shopspring/decimal"
)

// Area conversion factors.
const (
	SquareFeetToSquareMeters = 0.092903
	SquareMetersPerHectare   = 10000.0
)

// Pressure penalties applied to the success rating when a pressure is High.
const (
	DroughtPenalty = 0.8
	PestPenalty    = 0.85
	DiseasePenalty = 0.85
)

// Success rating bounds.
const (
	MinSuccessRating = 0.0
	MaxSuccessRating = 10.0
)

// Options toggles the two places the harvest month affects a forecast. Both
// are enabled by default.
type Options struct {
	// MonthFeatureShift adjusts temperature, moisture and growing days
	// before inference.
	MonthFeatureShift bool
	// MonthOutputScale multiplies the final yield by the month modifier.
	MonthOutputScale bool
}

// DefaultOptions enables both month effects.
func DefaultOptions() Options {
	return Options{MonthFeatureShift: true, MonthOutputScale: true}
}

// Adjustment carries everything Apply needs besides the base prediction.
type Adjustment struct {
	Month            *model.MonthlyProfile
	Season           model.SeasonalProfile
	PlotSize         model.PlotSizeProfile
	DroughtStatus    string
	PestPressure     string
	DiseasePressure  string
	BaseYieldPerHa   float64
	BaseSuccess      float64
	PlotSizePhysical float64
}

// Engine composes the modifiers. The zero value applies no month effects;
// use New for the default behavior.
type Engine struct {
	opts Options
}

// New creates an engine with the given options.
func New(opts Options) *Engine {
	return &Engine{opts: opts}
}

// Options returns the engine configuration.
func (e *Engine) Options() Options {
	return e.opts
}

// Apply turns a decoded model output into the final prediction. The order of
// the multiplications is fixed. Rounding is half away from zero on the
// shortest decimal form of each value, so 2.675 becomes 2.68 where binary
// float rounding would give 2.67.
func (e *Engine) Apply(a Adjustment) model.PredictionResult {
	yield := a.BaseYieldPerHa * a.Season.BaseYieldModifier * a.PlotSize.YieldModifier
	if a.Month != nil && e.opts.MonthOutputScale {
		yield *= a.Month.YieldModifier
	}

	success := a.BaseSuccess * a.PlotSize.SuccessModifier
	if a.DroughtStatus == model.PressureHigh {
		success *= DroughtPenalty
	}
	if a.PestPressure == model.PressureHigh {
		success *= PestPenalty
	}
	if a.DiseasePressure == model.PressureHigh {
		success *= DiseasePenalty
	}

	total := yield * AreaInHectares(a.PlotSize, a.PlotSizePhysical)

	return model.PredictionResult{
		YieldPrediction: round(total, 2),
		YieldPerHectare: round(yield, 2),
		SuccessRating:   round(Clamp(success, MinSuccessRating, MaxSuccessRating), 1),
	}
}

// AreaInHectares converts a physical plot size to hectares. Small plots are
// given in square feet; every other category in square meters.
func AreaInHectares(plot model.PlotSizeProfile, size float64) float64 {
	if plot.Name == model.PlotSmall {
		return size * SquareFeetToSquareMeters / SquareMetersPerHectare
	}
	return size / SquareMetersPerHectare
}

// ScaleFertilizer converts a per-hectare dose into the amount for the plot,
// using the same unit branch as AreaInHectares.
func ScaleFertilizer(perHectare float64, plot model.PlotSizeProfile, size float64) float64 {
	if plot.Name == model.PlotSmall {
		return perHectare * (size * SquareFeetToSquareMeters) / SquareMetersPerHectare
	}
	return perHectare * size / SquareMetersPerHectare
}

// ShiftForMonth applies the harvest-month adjustments to the model inputs.
// Growing days are recomputed from the season baseline and truncated.
func ShiftForMonth(r model.FeatureRecord, baseGrowingDays float64, month model.MonthlyProfile) model.FeatureRecord {
	r.AvgTemp += month.TempDelta
	r.SoilMoisture += month.MoistureDelta
	r.GrowingDays = float64(int(baseGrowingDays * (month.YieldModifier*0.9 + 0.1)))
	return r
}

// GrowingPeriodMonths is the assumed time between planting and harvest.
const GrowingPeriodMonths = 4

// PlantingMonth derives the planting month from the harvest month.
func PlantingMonth(harvest model.MonthlyProfile) model.MonthlyProfile {
	return model.MonthAt(harvest.Index - GrowingPeriodMonths)
}

// Clamp limits v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func round(v float64, places int32) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	f, _ := decimal.NewFromFloat(v).Round(places).Float64()
	return f
}
