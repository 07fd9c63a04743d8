package main

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/khulafarming/yieldcast/internal/cli"
	"github.com/khulafarming/yieldcast/internal/common"
	"github.com/khulafarming/yieldcast/internal/resources"
)

func resourcesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resources",
		Short: "Estimate seed, fertilizer, water and labor needs and costs",
		Example: `  yieldcast resources --crop maize --hectares 2.5 --soil poor --irrigation sprinkler --budget 15000
  yieldcast resources --crop potatoes --hectares 1 --ai --location "Free State"`,
		RunE: runResources,
	}

	f := cmd.Flags()
	f.String("crop", "", "crop to plan for (required)")
	f.Float64("hectares", 1, "plot size in hectares")
	f.String("soil", resources.DefaultSoil, "soil type (poor, medium, rich)")
	f.String("irrigation", resources.DefaultIrrigation, "irrigation type (drip, sprinkler, flood)")
	f.String("budget", "", "available budget in rand")
	f.String("location", "", "farm location, used for AI recommendations")
	f.Bool("ai", false, "ask for AI resource recommendations")
	f.Bool("json", false, "print the plan as JSON")

	_ = cmd.MarkFlagRequired("crop")
	return cmd
}

func runResources(cmd *cobra.Command, _ []string) error {
	f := cmd.Flags()
	crop, _ := f.GetString("crop")
	hectares, _ := f.GetFloat64("hectares")
	soil, _ := f.GetString("soil")
	irrigation, _ := f.GetString("irrigation")
	budgetStr, _ := f.GetString("budget")
	location, _ := f.GetString("location")
	withAI, _ := f.GetBool("ai")
	asJSON, _ := f.GetBool("json")

	var budget *decimal.Decimal
	if budgetStr != "" {
		b, err := decimal.NewFromString(budgetStr)
		if err != nil {
			return common.NewUserError(fmt.Sprintf("Invalid budget %q", budgetStr), err)
		}
		budget = &b
	}

	catalog, err := resources.DefaultCatalog()
	if err != nil {
		return err
	}

	calc, err := catalog.Calculate(crop, hectares, soil, irrigation)
	if err != nil {
		return inputError(err)
	}

	out := cmd.OutOrStdout()
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			*resources.Calculation
			BudgetStatus string `json:"budget_status"`
		}{calc, calc.BudgetStatus(budget)})
	}

	fmt.Fprintln(out, cli.RenderCalculation(calc, budget))
	if !withAI {
		return nil
	}

	ctx := cmd.Context()
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, err := openStorage(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	adv, release, err := newAdvisor(ctx, cfg, store)
	defer release()
	if err != nil {
		fmt.Fprintln(out, cli.FormatWarning("AI recommendations not available: "+err.Error()))
		return nil
	}

	text, err := adv.ResourceAdvice(ctx, calc, location, budget)
	if err != nil {
		fmt.Fprintln(out, cli.FormatWarning("Unable to generate AI recommendations: "+err.Error()))
		return nil
	}
	printMarkdown(cmd, cli.RobotIcon+" Resource recommendations", text)
	return nil
}
