package model

import (
	"errors"
	"testing"

	"github.com/khulafarming/yieldcast/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookupSeason(t *testing.T) {
	for _, name := range Seasons() {
		p, err := LookupSeason(name)
		require.NoError(t, err)
		assert.Equal(t, name, p.Name)
	}

	_, err := LookupSeason("Monsoon")
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrUnknownSeason)
}

func TestLookupPlotSize(t *testing.T) {
	tests := []struct {
		name     string
		unit     string
		midpoint float64
	}{
		{name: PlotSmall, unit: UnitSquareFeet, midpoint: 87.5},
		{name: PlotMedium, unit: UnitSquareMeters, midpoint: 210},
		{name: PlotLarge, unit: UnitSquareMeters, midpoint: 560},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := LookupPlotSize(tt.name)
			require.NoError(t, err)
			assert.Equal(t, tt.unit, p.Unit)
			assert.InDelta(t, tt.midpoint, p.Midpoint(), 1e-9)
		})
	}

	_, err := LookupPlotSize("Huge")
	assert.ErrorIs(t, err, common.ErrUnknownPlotSize)
}

func TestPlotSizeValidate(t *testing.T) {
	p, err := LookupPlotSize(PlotMedium)
	require.NoError(t, err)

	assert.NoError(t, p.Validate(100))
	assert.NoError(t, p.Validate(320))
	assert.NoError(t, p.Validate(210))

	err = p.Validate(99.9)
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrInvalidPlotSize)

	var sizeErr *InvalidPlotSizeError
	require.True(t, errors.As(err, &sizeErr))
	assert.Equal(t, PlotMedium, sizeErr.Category)
	assert.Contains(t, err.Error(), "outside Medium range")
}

func TestLookupMonth(t *testing.T) {
	p, err := LookupMonth("May")
	require.NoError(t, err)
	assert.Equal(t, 4, p.Index)
	assert.InDelta(t, 1.2, p.YieldModifier, 1e-12)
	assert.InDelta(t, 3, p.TempDelta, 1e-12)

	_, err = LookupMonth("may")
	assert.ErrorIs(t, err, common.ErrUnknownMonth)

	_, err = LookupMonth("Smarch")
	assert.ErrorIs(t, err, common.ErrUnknownMonth)
}

func TestMonthAtWraps(t *testing.T) {
	assert.Equal(t, "September", MonthAt(-4).Name)
	assert.Equal(t, 8, MonthAt(-4).Index)
	assert.Equal(t, "January", MonthAt(12).Name)
	assert.Equal(t, "December", MonthAt(11).Name)
}
