package advisor

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/khulafarming/yieldcast/internal/resources"
)

// maizeVarieties are the cultivars the yield prompt chooses from.
var maizeVarieties = []string{
	"ACTIVONEW (early double-purpose variety)",
	"AKANTO (medium late dent corn for grain and silage)",
	"AMBIENT (early variety with starch)",
	"AROLDONEW (double-purpose maize with quick juvenile development)",
	"BADIANE (profitable grain maize)",
	"CRUSH (high-yielding grain maize)",
	"DAVOS (early double-purpose maize)",
	"FLYNT (flexible crop rotation)",
	"FORTARIS (early dent silage maize)",
	"FORTTUNO (balanced silage quality)",
	"GALAKTION (late dual-purpose hybrid)",
	"GLUTEXO (two grain rows ahead)",
	"HONOREEN (high-yielding biomass type)",
	"IONITINEW (grain maize for favorable conditions)",
	"JOY (good tolerance to cold weather)",
	"LIKEIT (rapid juvenile development, high starch yields)",
	"LIROYAL (long growth habit, early vigor)",
	"MOVANNA (high starch yields, cold tolerance)",
	"PETROSCHKA (high starch yield)",
	"PIATOV (dent genetics for yield stability)",
	"PROPULSE (good health status, early flowering)",
	"PURPLE (high-yielding silage and biogas maize)",
	"SHINY (great yield and look)",
	"VARIANTAL / INDEM 1355NEW (all-in-one for silage and grain)",
	"WAKEFIELD (dent maize for high grain)",
}

const upsell = "Upgrade your package to get more in-depth support and recommendations tailored to your specific soil type, weather conditions, and maize variety."

func yieldPrompt(req YieldRequest) string {
	var b strings.Builder

	b.WriteString("As an agricultural expert, provide specific farming recommendations for:\n")
	fmt.Fprintf(&b, "Location: %s\n", req.Location)
	fmt.Fprintf(&b, "Plant Type: %s\n", req.PlantType)
	fmt.Fprintf(&b, "Plot Size: %s\n", req.PlotSize)
	fmt.Fprintf(&b, "Harvest Month: %s\n\n", orUnspecified(req.HarvestMonth))

	b.WriteString("Based on our analysis:\n")
	fmt.Fprintf(&b, "- Predicted Yield: %.2f tons per hectare\n", req.Result.YieldPerHectare)
	fmt.Fprintf(&b, "- Predicted Total Yield: %.2f tons\n", req.Result.YieldPrediction)
	fmt.Fprintf(&b, "- Success Rating: %.1f/10\n\n", req.Result.SuccessRating)

	b.WriteString("Please provide:\n")
	b.WriteString("1. Key risks and challenges for this specific combination\n")
	b.WriteString("2. Recommended key preparations and best practices for these specifications\n")
	b.WriteString("3. Recommended maize variety for this season and plot size to maximize yield (choose the most appropriate from the list below):\n")
	for _, v := range maizeVarieties {
		fmt.Fprintf(&b, "   - %s\n", v)
	}
	b.WriteString("4. Optimal care instructions during growing season for these specifications\n")
	b.WriteString("5. Harvesting tips for these specifications\n")
	fmt.Fprintf(&b, "End here and do not give any further information except for saying %s Keep the response concise and practical.\n", upsell)

	return b.String()
}

func resourcePrompt(calc *resources.Calculation, location string, budget *decimal.Decimal) string {
	var b strings.Builder

	fmt.Fprintf(&b, "As an agricultural resource specialist, provide detailed recommendations for %s farming:\n\n", calc.Crop)
	b.WriteString("Farm Details:\n")
	fmt.Fprintf(&b, "- Crop: %s\n", calc.Crop)
	fmt.Fprintf(&b, "- Plot size: %s hectares\n", calc.Hectares.String())
	fmt.Fprintf(&b, "- Soil type: %s\n", calc.Soil)
	fmt.Fprintf(&b, "- Irrigation: %s\n", calc.Irrigation)
	fmt.Fprintf(&b, "- Location: %s\n", orUnspecified(location))
	if budget != nil {
		fmt.Fprintf(&b, "- Budget: R%s\n", budget.StringFixed(2))
	}

	b.WriteString("\nCalculated Resource Requirements:\n")
	fmt.Fprintf(&b, "- Seeds: %s %s (R%s)\n", calc.Seeds.Amount, calc.Seeds.Unit, calc.Seeds.Cost.StringFixed(2))
	fmt.Fprintf(&b, "- Fertilizer total cost: R%s\n", calc.FertilizerCost.StringFixed(2))
	fmt.Fprintf(&b, "- Water: %s %s (R%s)\n", calc.Water.Amount, calc.Water.Unit, calc.Water.Cost.StringFixed(2))
	fmt.Fprintf(&b, "- Labor: %s %s (R%s)\n", calc.Labor.Amount, calc.Labor.Unit, calc.Labor.Cost.StringFixed(2))
	fmt.Fprintf(&b, "- Total estimated cost: R%s\n\n", calc.TotalCost.StringFixed(2))

	b.WriteString("Please provide:\n")
	b.WriteString("1. Resource optimization strategies\n")
	b.WriteString("2. Cost-saving recommendations\n")
	b.WriteString("3. Quality vs cost trade-offs\n")
	b.WriteString("4. Timing recommendations for purchases\n")
	b.WriteString("5. Alternative resource options\n")
	b.WriteString("6. Risk mitigation strategies\n")
	b.WriteString("7. Expected ROI analysis\n")

	if calc.BudgetStatus(budget) == resources.BudgetInsufficient {
		fmt.Fprintf(&b, "\nIMPORTANT: The budget (R%s) is below estimated costs (R%s). Provide budget-friendly alternatives.\n",
			budget.StringFixed(2), calc.TotalCost.StringFixed(2))
	}

	return b.String()
}

func orUnspecified(s string) string {
	if strings.TrimSpace(s) == "" {
		return "not specified"
	}
	return s
}
