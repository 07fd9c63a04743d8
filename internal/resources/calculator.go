package resources

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Fertilizer nutrients in report order.
var nutrients = []string{"nitrogen", "phosphorus", "potassium"}

// Soil and irrigation multipliers. Unknown types use 1.
var (
	soilMultipliers = map[string]float64{
		"poor":   1.3,
		"medium": 1.0,
		"rich":   0.8,
	}
	irrigationMultipliers = map[string]float64{
		"drip":      0.8,
		"sprinkler": 1.0,
		"flood":     1.3,
	}
)

// Defaults for Calculate.
const (
	DefaultSoil       = "medium"
	DefaultIrrigation = "drip"
)

// Budget statuses.
const (
	BudgetSufficient   = "sufficient"
	BudgetInsufficient = "insufficient"
)

// Line is one computed resource.
type Line struct {
	Name   string          `json:"name"`
	Unit   string          `json:"unit"`
	Amount decimal.Decimal `json:"amount"`
	Cost   decimal.Decimal `json:"cost"`
}

// Calculation is the resource plan for one crop and plot.
type Calculation struct {
	Crop           string          `json:"crop"`
	Soil           string          `json:"soil"`
	Irrigation     string          `json:"irrigation"`
	Fertilizer     []Line          `json:"fertilizer"`
	Seeds          Line            `json:"seeds"`
	Water          Line            `json:"water"`
	Labor          Line            `json:"labor"`
	Hectares       decimal.Decimal `json:"hectares"`
	FertilizerCost decimal.Decimal `json:"fertilizer_cost"`
	TotalCost      decimal.Decimal `json:"total_cost"`
}

// Calculate computes the resources a crop needs on a plot of the given size.
// Amounts and costs are rounded to two decimal places.
func (c *Catalog) Calculate(cropName string, hectares float64, soil, irrigation string) (*Calculation, error) {
	if hectares <= 0 {
		return nil, fmt.Errorf("plot size must be positive, got %g hectares", hectares)
	}
	req, err := c.Requirements(cropName)
	if err != nil {
		return nil, err
	}

	soil = strings.ToLower(strings.TrimSpace(soil))
	if soil == "" {
		soil = DefaultSoil
	}
	irrigation = strings.ToLower(strings.TrimSpace(irrigation))
	if irrigation == "" {
		irrigation = DefaultIrrigation
	}

	ha := decimal.NewFromFloat(hectares)
	soilMul := multiplier(soilMultipliers, soil)
	waterMul := multiplier(irrigationMultipliers, irrigation)

	calc := &Calculation{
		Crop:       strings.ToLower(strings.TrimSpace(cropName)),
		Soil:       soil,
		Irrigation: irrigation,
		Hectares:   ha,
		Seeds:      line("seeds", req.Seeds, ha, decimal.NewFromInt(1)),
		Water:      line("water", req.Water, ha, waterMul),
		Labor:      line("labor", req.Labor, ha, decimal.NewFromInt(1)),
	}

	fertilizerCost := decimal.Zero
	for _, n := range nutrients {
		in := req.Fertilizer[n]
		amount := decimal.NewFromFloat(in.Amount).Mul(ha).Mul(soilMul)
		cost := amount.Mul(decimal.NewFromFloat(in.CostPerUnit))
		fertilizerCost = fertilizerCost.Add(cost)
		calc.Fertilizer = append(calc.Fertilizer, Line{
			Name:   n,
			Unit:   in.Unit,
			Amount: amount.Round(2),
			Cost:   cost.Round(2),
		})
	}
	calc.FertilizerCost = fertilizerCost.Round(2)

	calc.TotalCost = decimal.Sum(calc.Seeds.Cost, calc.FertilizerCost, calc.Water.Cost, calc.Labor.Cost).Round(2)
	return calc, nil
}

// BudgetStatus compares a budget against the total cost. No budget counts
// as sufficient.
func (c *Calculation) BudgetStatus(budget *decimal.Decimal) string {
	if budget == nil || budget.GreaterThanOrEqual(c.TotalCost) {
		return BudgetSufficient
	}
	return BudgetInsufficient
}

func line(name string, in Input, ha, mul decimal.Decimal) Line {
	amount := decimal.NewFromFloat(in.Amount).Mul(ha).Mul(mul)
	return Line{
		Name:   name,
		Unit:   in.Unit,
		Amount: amount.Round(2),
		Cost:   amount.Mul(decimal.NewFromFloat(in.CostPerUnit)).Round(2),
	}
}

func multiplier(table map[string]float64, key string) decimal.Decimal {
	if m, ok := table[key]; ok {
		return decimal.NewFromFloat(m)
	}
	return decimal.NewFromInt(1)
}

// SoilTypes lists the soil types with a multiplier.
func SoilTypes() []string {
	return []string{"poor", "medium", "rich"}
}

// IrrigationTypes lists the irrigation types with a multiplier.
func IrrigationTypes() []string {
	return []string{"drip", "sprinkler", "flood"}
}
