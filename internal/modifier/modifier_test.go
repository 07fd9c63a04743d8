package modifier

import (
	"testing"

	"github.com/khulafarming/yieldcast/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustSeason(t *testing.T, name string) model.SeasonalProfile {
	t.Helper()
	p, err := model.LookupSeason(name)
	require.NoError(t, err)
	return p
}

func mustPlot(t *testing.T, name string) model.PlotSizeProfile {
	t.Helper()
	p, err := model.LookupPlotSize(name)
	require.NoError(t, err)
	return p
}

func mustMonth(t *testing.T, name string) model.MonthlyProfile {
	t.Helper()
	p, err := model.LookupMonth(name)
	require.NoError(t, err)
	return p
}

func TestApply(t *testing.T) {
	may := mustMonth(t, "May")

	tests := []struct {
		name      string
		adj       Adjustment
		opts      Options
		wantTotal float64
		wantPerHa float64
		wantScore float64
	}{
		{
			name: "medium summer baseline",
			adj: Adjustment{
				Season:           mustSeason(t, model.SeasonSummer),
				PlotSize:         mustPlot(t, model.PlotMedium),
				PlotSizePhysical: 210,
				BaseYieldPerHa:   3000,
				BaseSuccess:      7,
			},
			opts:      DefaultOptions(),
			wantTotal: 63,
			wantPerHa: 3000,
			wantScore: 7,
		},
		{
			name: "small plot uses square feet",
			adj: Adjustment{
				Season:           mustSeason(t, model.SeasonSummer),
				PlotSize:         mustPlot(t, model.PlotSmall),
				PlotSizePhysical: 87.5,
				BaseYieldPerHa:   3000,
				BaseSuccess:      7,
			},
			opts:      DefaultOptions(),
			wantTotal: 2.07,
			wantPerHa: 2550,
			wantScore: 7.7,
		},
		{
			name: "large plot",
			adj: Adjustment{
				Season:           mustSeason(t, model.SeasonSummer),
				PlotSize:         mustPlot(t, model.PlotLarge),
				PlotSizePhysical: 500,
				BaseYieldPerHa:   3000,
				BaseSuccess:      7,
			},
			opts:      DefaultOptions(),
			wantTotal: 172.5,
			wantPerHa: 3450,
			wantScore: 6.3,
		},
		{
			name: "spring harvest in May compounds modifiers",
			adj: Adjustment{
				Season:           mustSeason(t, model.SeasonSpring),
				PlotSize:         mustPlot(t, model.PlotMedium),
				PlotSizePhysical: 200,
				Month:            &may,
				BaseYieldPerHa:   3000,
				BaseSuccess:      7,
			},
			opts:      DefaultOptions(),
			wantTotal: 86.4,
			wantPerHa: 4320,
			wantScore: 7,
		},
		{
			name: "month output scale disabled",
			adj: Adjustment{
				Season:           mustSeason(t, model.SeasonSpring),
				PlotSize:         mustPlot(t, model.PlotMedium),
				PlotSizePhysical: 200,
				Month:            &may,
				BaseYieldPerHa:   3000,
				BaseSuccess:      7,
			},
			opts:      Options{MonthFeatureShift: true},
			wantTotal: 72,
			wantPerHa: 3600,
			wantScore: 7,
		},
		{
			name: "all pressures high",
			adj: Adjustment{
				Season:           mustSeason(t, model.SeasonSummer),
				PlotSize:         mustPlot(t, model.PlotMedium),
				PlotSizePhysical: 210,
				BaseYieldPerHa:   3000,
				BaseSuccess:      7,
				DroughtStatus:    model.PressureHigh,
				PestPressure:     model.PressureHigh,
				DiseasePressure:  model.PressureHigh,
			},
			opts:      DefaultOptions(),
			wantTotal: 63,
			wantPerHa: 3000,
			wantScore: 4,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := New(tt.opts).Apply(tt.adj)
			assert.InDelta(t, tt.wantTotal, got.YieldPrediction, 1e-9)
			assert.InDelta(t, tt.wantPerHa, got.YieldPerHectare, 1e-9)
			assert.InDelta(t, tt.wantScore, got.SuccessRating, 1e-9)
		})
	}
}

func TestApplyClampsSuccess(t *testing.T) {
	engine := New(DefaultOptions())
	base := Adjustment{
		Season:           mustSeason(t, model.SeasonSummer),
		PlotSize:         mustPlot(t, model.PlotSmall),
		PlotSizePhysical: 80,
		BaseYieldPerHa:   3000,
		DroughtStatus:    model.PressureHigh,
		PestPressure:     model.PressureHigh,
		DiseasePressure:  model.PressureHigh,
	}

	for _, success := range []float64{-50, -0.01, 0, 3.3, 9.99, 10, 14, 1e6} {
		adj := base
		adj.BaseSuccess = success
		got := engine.Apply(adj)
		assert.GreaterOrEqual(t, got.SuccessRating, 0.0, "base %v", success)
		assert.LessOrEqual(t, got.SuccessRating, 10.0, "base %v", success)
	}

	adj := base
	adj.BaseSuccess = 1e6
	assert.Equal(t, 10.0, engine.Apply(adj).SuccessRating)
}

func TestRoundHalfAwayFromZero(t *testing.T) {
	tests := []struct {
		in     float64
		places int32
		want   float64
	}{
		{2.675, 2, 2.68},
		{2.665, 2, 2.67},
		{-2.675, 2, -2.68},
		{0.05, 1, 0.1},
		{7.25, 1, 7.3},
		{1.234, 2, 1.23},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, round(tt.in, tt.places), "round(%v, %d)", tt.in, tt.places)
	}
}

func TestAreaInHectaresIsMonotone(t *testing.T) {
	for _, name := range model.PlotSizes() {
		plot := mustPlot(t, name)
		t.Run(name, func(t *testing.T) {
			step := (plot.MaxSize - plot.MinSize) / 20
			prev := AreaInHectares(plot, plot.MinSize)
			for size := plot.MinSize + step; size <= plot.MaxSize; size += step {
				area := AreaInHectares(plot, size)
				assert.Greater(t, area, prev, "size %v", size)
				prev = area
			}
		})
	}
}

func TestAreaInHectaresUnits(t *testing.T) {
	small := mustPlot(t, model.PlotSmall)
	medium := mustPlot(t, model.PlotMedium)
	large := mustPlot(t, model.PlotLarge)

	assert.InDelta(t, 100*0.092903/10000, AreaInHectares(small, 100), 1e-15)
	assert.InDelta(t, 0.032, AreaInHectares(medium, 320), 1e-15)
	assert.InDelta(t, 0.032, AreaInHectares(large, 320), 1e-15)
}

func TestScaleFertilizerMatchesArea(t *testing.T) {
	for _, name := range model.PlotSizes() {
		plot := mustPlot(t, name)
		size := plot.Midpoint()
		assert.InDelta(t, 180*AreaInHectares(plot, size), ScaleFertilizer(180, plot, size), 1e-12, name)
	}
}

func TestShiftForMonth(t *testing.T) {
	summer := mustSeason(t, model.SeasonSummer)
	base := model.FeatureRecord{
		AvgTemp:      summer.AvgTemp,
		SoilMoisture: summer.SoilMoisture,
		GrowingDays:  summer.GrowingDays,
	}

	got := ShiftForMonth(base, summer.GrowingDays, mustMonth(t, "May"))
	assert.Equal(t, 37.0, got.AvgTemp)
	assert.Equal(t, 65.0, got.SoilMoisture)
	assert.Equal(t, 147.0, got.GrowingDays)

	got = ShiftForMonth(base, summer.GrowingDays, mustMonth(t, "January"))
	assert.Equal(t, 32.0, got.AvgTemp)
	assert.Equal(t, 70.0, got.SoilMoisture)
	assert.Equal(t, 108.0, got.GrowingDays)
}

func TestPlantingMonth(t *testing.T) {
	tests := map[string]string{
		"May":       "January",
		"January":   "September",
		"April":     "December",
		"December":  "August",
		"September": "May",
	}
	for harvest, want := range tests {
		assert.Equal(t, want, PlantingMonth(mustMonth(t, harvest)).Name, harvest)
	}
}
