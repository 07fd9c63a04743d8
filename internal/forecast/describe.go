package forecast

import (
	"github.com/khulafarming/yieldcast/internal/model"
	"github.com/khulafarming/yieldcast/internal/modifier"
)

// Resolved is a request with every default applied, plus the feature record
// the model will see.
type Resolved struct {
	Harvest           *model.MonthlyProfile
	Planting          *model.MonthlyProfile
	Location          string
	PlantType         string
	Season            model.SeasonalProfile
	PlotSize          model.PlotSizeProfile
	Features          model.FeatureRecord
	PlotSizeValue     float64
	AreaHectares      float64
	SoilPH            float64
	FertilizerPerHa   float64
	FertilizerForPlot float64
}

// Describe resolves defaults and derives the model inputs for in. It does
// not need a loaded model.
func (s *Service) Describe(in model.RawInput) (Resolved, error) {
	return resolve(in, s.engine.Options())
}

func resolve(in model.RawInput, opts modifier.Options) (Resolved, error) {
	season, err := model.LookupSeason(orDefault(in.Season, model.DefaultSeason))
	if err != nil {
		return Resolved{}, err
	}

	plot, err := model.LookupPlotSize(orDefault(in.PlotSize, model.DefaultPlotSize))
	if err != nil {
		return Resolved{}, err
	}

	size := plot.Midpoint()
	if in.PlotSizeValue != nil {
		size = *in.PlotSizeValue
		if err := plot.Validate(size); err != nil {
			return Resolved{}, err
		}
	}

	r := Resolved{
		Location:        in.Location,
		PlantType:       in.PlantType,
		Season:          season,
		PlotSize:        plot,
		PlotSizeValue:   size,
		AreaHectares:    modifier.AreaInHectares(plot, size),
		SoilPH:          valueOr(in.SoilPH, model.DefaultSoilPH),
		FertilizerPerHa: valueOr(in.FertilizerUsage, model.DefaultFertilizerUsage),
	}
	r.FertilizerForPlot = modifier.ScaleFertilizer(r.FertilizerPerHa, plot, size)

	r.Features = model.FeatureRecord{
		Season:          season.Name,
		DroughtStatus:   orDefault(in.DroughtStatus, model.DefaultPressure),
		PestPressure:    orDefault(in.PestPressure, model.DefaultPressure),
		DiseasePressure: orDefault(in.DiseasePressure, model.DefaultPressure),
		Rainfall:        season.Rainfall,
		AvgTemp:         season.AvgTemp,
		SoilMoisture:    season.SoilMoisture,
		GrowingDays:     season.GrowingDays,
		SoilPH:          r.SoilPH,
		// The model sees the dose for the whole plot, not the per-hectare rate.
		Fertilizer: r.FertilizerForPlot,
	}

	if in.HarvestMonth != "" {
		harvest, err := model.LookupMonth(in.HarvestMonth)
		if err != nil {
			return Resolved{}, err
		}
		planting := modifier.PlantingMonth(harvest)
		r.Harvest = &harvest
		r.Planting = &planting

		if opts.MonthFeatureShift {
			r.Features = modifier.ShiftForMonth(r.Features, season.GrowingDays, harvest)
		}
	}

	return r, nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func valueOr(v *float64, def float64) float64 {
	if v == nil {
		return def
	}
	return *v
}
