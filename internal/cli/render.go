package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"

	"github.com/khulafarming/yieldcast/internal/forecast"
	"github.com/khulafarming/yieldcast/internal/model"
	"github.com/khulafarming/yieldcast/internal/resources"
)

func row(label, value string) string {
	return lipgloss.JoinHorizontal(lipgloss.Top, LabelStyle.Render(label), value)
}

// successStyle colors a 1-10 rating.
func successStyle(rating float64) lipgloss.Style {
	switch {
	case rating >= 7:
		return SuccessStyle
	case rating >= 4:
		return WarningStyle
	default:
		return ErrorStyle
	}
}

// RenderPrediction renders the result card for one prediction.
func RenderPrediction(r forecast.Resolved, in model.RawInput, result model.PredictionResult) string {
	harvest := "not specified"
	if r.Harvest != nil {
		harvest = r.Harvest.Name
		if r.Planting != nil {
			harvest += SubtleStyle.Render(fmt.Sprintf("  (planted %s)", r.Planting.Name))
		}
	}

	lines := []string{
		row("Location", r.Location),
		row("Plant type", r.PlantType),
		row("Season", r.Season.Name),
		row("Harvest month", harvest),
		row("Plot", fmt.Sprintf("%s, %g %s (%.4f ha)", r.PlotSize.Name, r.PlotSizeValue, r.PlotSize.Unit, r.AreaHectares)),
		row("Soil pH", fmt.Sprintf("%.1f", r.SoilPH)),
		row("Fertilizer", fmt.Sprintf("%.1f kg/ha", r.FertilizerPerHa)),
		row("Conditions", fmt.Sprintf("drought %s, pests %s, disease %s",
			orDefault(in.DroughtStatus, model.DefaultPressure),
			orDefault(in.PestPressure, model.DefaultPressure),
			orDefault(in.DiseasePressure, model.DefaultPressure))),
		"",
		row("Yield", BoldStyle.Render(fmt.Sprintf("%.2f t", result.YieldPrediction))),
		row("Yield per hectare", fmt.Sprintf("%.2f t/ha", result.YieldPerHectare)),
		row("Success rating", successStyle(result.SuccessRating).Render(fmt.Sprintf("%.1f / 10", result.SuccessRating))),
	}

	return RenderBox(ChartIcon+" Yield forecast", strings.Join(lines, "\n"))
}

// RenderCalculation renders a resource plan with its budget status.
func RenderCalculation(calc *resources.Calculation, budget *decimal.Decimal) string {
	lines := []string{
		row("Crop", calc.Crop),
		row("Plot", calc.Hectares.String()+" ha"),
		row("Soil / irrigation", calc.Soil+" / "+calc.Irrigation),
		"",
		TableHeaderStyle.Render(fmt.Sprintf("%-18s%14s  %-10s%12s", "Resource", "Amount", "Unit", "Cost (R)")),
	}

	add := func(l resources.Line) {
		lines = append(lines, fmt.Sprintf("%-18s%14s  %-10s%12s", l.Name, l.Amount.StringFixed(2), l.Unit, l.Cost.StringFixed(2)))
	}
	add(calc.Seeds)
	for _, f := range calc.Fertilizer {
		add(f)
	}
	add(calc.Water)
	add(calc.Labor)

	lines = append(lines,
		"",
		row("Fertilizer cost", "R"+calc.FertilizerCost.StringFixed(2)),
		row("Total cost", BoldStyle.Render("R"+calc.TotalCost.StringFixed(2))),
	)

	if budget != nil {
		status := calc.BudgetStatus(budget)
		style := SuccessStyle
		if status == resources.BudgetInsufficient {
			style = ErrorStyle
		}
		lines = append(lines, row("Budget", fmt.Sprintf("R%s %s", budget.StringFixed(2), style.Render(status))))
	}

	return RenderBox(CropIcon+" Resource plan", strings.Join(lines, "\n"))
}

// RenderCalendar renders calendar entries in the order of names.
func RenderCalendar(names []string, entries []resources.CalendarEntry) string {
	var b strings.Builder
	for i, name := range names {
		e := entries[i]
		b.WriteString(BoldStyle.Render(strings.ToUpper(name[:1])+name[1:]) + "\n")
		b.WriteString(row("  Planting", e.PlantingSeason) + "\n")
		b.WriteString(row("  Harvest", e.HarvestSeason) + "\n")
		b.WriteString(row("  Growing days", fmt.Sprintf("%d", e.GrowingDays)) + "\n")
		b.WriteString(row("  Temperature", e.OptimalTemp) + "\n")
		b.WriteString(row("  Rainfall", e.RainfallNeeds) + "\n")
		b.WriteString(row("  Regions", strings.Join(e.Regions, ", ")) + "\n")
		if i < len(names)-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}

// RenderHistory renders logged predictions as a table.
func RenderHistory(records []model.PredictionRecord) string {
	if len(records) == 0 {
		return FormatInfo("No predictions logged yet.")
	}

	var b strings.Builder
	b.WriteString(TableHeaderStyle.Render(fmt.Sprintf("%-17s %-16s %-10s %-8s %-9s %10s %8s",
		"When", "Location", "Plant", "Season", "Harvest", "t/ha", "Success")))
	b.WriteString("\n")
	for _, r := range records {
		fmt.Fprintf(&b, "%-17s %-16s %-10s %-8s %-9s %10.2f %8.1f\n",
			r.CreatedAt.Local().Format("2006-01-02 15:04"),
			truncate(r.Input.Location, 16),
			truncate(r.Input.PlantType, 10),
			orDefault(r.Input.Season, model.DefaultSeason),
			orDefault(r.Input.HarvestMonth, "-"),
			r.Result.YieldPerHectare,
			r.Result.SuccessRating)
	}
	return b.String()
}

func truncate(s string, n int) string {
	if len([]rune(s)) <= n {
		return s
	}
	return string([]rune(s)[:n-1]) + "…"
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
