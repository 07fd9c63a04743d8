package model

import (
	"fmt"
	"math"

	"github.com/khulafarming/yieldcast/internal/common"
)

// Seasons.
const (
	SeasonSummer = "Summer"
	SeasonWinter = "Winter"
	SeasonSpring = "Spring"
	SeasonFall   = "Fall"
)

// Plot size categories.
const (
	PlotSmall  = "Small"
	PlotMedium = "Medium"
	PlotLarge  = "Large"
)

// Area units for plot size values.
const (
	UnitSquareFeet   = "sq ft"
	UnitSquareMeters = "sq m"
)

// SeasonalProfile holds baseline environmental values for a season.
type SeasonalProfile struct {
	Name              string
	Rainfall          float64
	AvgTemp           float64
	SoilMoisture      float64
	GrowingDays       float64
	BaseYieldModifier float64
}

// PlotSizeProfile describes a plot size category. Small plots are measured
// in square feet, the others in square meters.
type PlotSizeProfile struct {
	Name            string
	Unit            string
	MinSize         float64
	MaxSize         float64
	YieldModifier   float64
	SuccessModifier float64
}

// Midpoint returns the default physical size for the category.
func (p PlotSizeProfile) Midpoint() float64 {
	return (p.MinSize + p.MaxSize) / 2
}

// Validate checks that value lies within the category range.
func (p PlotSizeProfile) Validate(value float64) error {
	if math.IsNaN(value) || value < p.MinSize || value > p.MaxSize {
		return &InvalidPlotSizeError{
			Category: p.Name,
			Unit:     p.Unit,
			Value:    value,
			Min:      p.MinSize,
			Max:      p.MaxSize,
		}
	}
	return nil
}

// MonthlyProfile holds per-month adjustments applied around harvest time.
type MonthlyProfile struct {
	Name          string
	Index         int
	TempDelta     float64
	MoistureDelta float64
	YieldModifier float64
}

var seasonalProfiles = map[string]SeasonalProfile{
	SeasonSummer: {Name: SeasonSummer, Rainfall: 600, AvgTemp: 34, SoilMoisture: 65, GrowingDays: 125, BaseYieldModifier: 1.0},
	SeasonWinter: {Name: SeasonWinter, Rainfall: 300, AvgTemp: 18, SoilMoisture: 75, GrowingDays: 150, BaseYieldModifier: 0.8},
	SeasonSpring: {Name: SeasonSpring, Rainfall: 450, AvgTemp: 25, SoilMoisture: 70, GrowingDays: 135, BaseYieldModifier: 1.2},
	SeasonFall:   {Name: SeasonFall, Rainfall: 350, AvgTemp: 22, SoilMoisture: 68, GrowingDays: 140, BaseYieldModifier: 0.9},
}

var plotSizeProfiles = map[string]PlotSizeProfile{
	PlotSmall:  {Name: PlotSmall, Unit: UnitSquareFeet, MinSize: 75, MaxSize: 100, YieldModifier: 0.85, SuccessModifier: 1.1},
	PlotMedium: {Name: PlotMedium, Unit: UnitSquareMeters, MinSize: 100, MaxSize: 320, YieldModifier: 1.0, SuccessModifier: 1.0},
	PlotLarge:  {Name: PlotLarge, Unit: UnitSquareMeters, MinSize: 320, MaxSize: 800, YieldModifier: 1.15, SuccessModifier: 0.9},
}

var monthlyProfiles = [12]MonthlyProfile{
	{Name: "January", TempDelta: -2, MoistureDelta: 5, YieldModifier: 0.85},
	{Name: "February", TempDelta: -1, MoistureDelta: 5, YieldModifier: 0.9},
	{Name: "March", TempDelta: 1, MoistureDelta: 3, YieldModifier: 1.1},
	{Name: "April", TempDelta: 2, MoistureDelta: 2, YieldModifier: 1.15},
	{Name: "May", TempDelta: 3, MoistureDelta: 0, YieldModifier: 1.2},
	{Name: "June", TempDelta: 4, MoistureDelta: -2, YieldModifier: 1.1},
	{Name: "July", TempDelta: 5, MoistureDelta: -5, YieldModifier: 1.0},
	{Name: "August", TempDelta: 5, MoistureDelta: -7, YieldModifier: 0.95},
	{Name: "September", TempDelta: 3, MoistureDelta: -3, YieldModifier: 0.9},
	{Name: "October", TempDelta: 1, MoistureDelta: 0, YieldModifier: 0.85},
	{Name: "November", TempDelta: -1, MoistureDelta: 2, YieldModifier: 0.8},
	{Name: "December", TempDelta: -2, MoistureDelta: 4, YieldModifier: 0.8},
}

// LookupSeason returns the profile for a season name.
func LookupSeason(name string) (SeasonalProfile, error) {
	p, ok := seasonalProfiles[name]
	if !ok {
		return SeasonalProfile{}, fmt.Errorf("%w: %q", common.ErrUnknownSeason, name)
	}
	return p, nil
}

// LookupPlotSize returns the profile for a plot size category.
func LookupPlotSize(name string) (PlotSizeProfile, error) {
	p, ok := plotSizeProfiles[name]
	if !ok {
		return PlotSizeProfile{}, fmt.Errorf("%w: %q", common.ErrUnknownPlotSize, name)
	}
	return p, nil
}

// LookupMonth returns the profile for an English month name.
func LookupMonth(name string) (MonthlyProfile, error) {
	for i, p := range monthlyProfiles {
		if p.Name == name {
			p.Index = i
			return p, nil
		}
	}
	return MonthlyProfile{}, fmt.Errorf("%w: %q", common.ErrUnknownMonth, name)
}

// MonthAt returns the profile for a zero-based month index, wrapping around the year.
func MonthAt(index int) MonthlyProfile {
	i := ((index % 12) + 12) % 12
	p := monthlyProfiles[i]
	p.Index = i
	return p
}

// Seasons lists the known season names in a stable order.
func Seasons() []string {
	return []string{SeasonSummer, SeasonWinter, SeasonSpring, SeasonFall}
}

// PlotSizes lists the plot size categories from smallest to largest.
func PlotSizes() []string {
	return []string{PlotSmall, PlotMedium, PlotLarge}
}

// Pressures lists the pressure levels.
func Pressures() []string {
	return []string{PressureLow, PressureMedium, PressureHigh}
}
