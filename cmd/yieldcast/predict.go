package main

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/khulafarming/yieldcast/internal/advisor"
	"github.com/khulafarming/yieldcast/internal/cli"
	"github.com/khulafarming/yieldcast/internal/forecast"
	"github.com/khulafarming/yieldcast/internal/model"
	"github.com/khulafarming/yieldcast/internal/regression"
)

func predictCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Forecast yield and success rating for a plot",
		Long: `Predict the total yield, yield per hectare and a 0-10 success rating for
a plot. The saved model is loaded from the model directory; if it is missing
or inconsistent a new model is trained and saved first.`,
		Example: `  yieldcast predict --location Bethlehem --plant-type Maize --harvest-month May
  yieldcast predict --location Durban --plant-type Maize --plot-size Large --plot-size-value 500 --drought High`,
		RunE: runPredict,
	}

	f := cmd.Flags()
	f.String("location", "", "farm location (required)")
	f.String("plant-type", "", "crop being grown (required)")
	f.String("plot-size", model.DefaultPlotSize, "plot size category (Small, Medium, Large)")
	f.Float64("plot-size-value", 0, "physical plot size in the category's unit (default: category midpoint)")
	f.String("season", model.DefaultSeason, "growing season (Summer, Winter, Spring, Fall)")
	f.String("harvest-month", "", "expected harvest month, e.g. May")
	f.Float64("soil-ph", model.DefaultSoilPH, "soil pH")
	f.Float64("fertilizer", model.DefaultFertilizerUsage, "fertilizer dose in kg/ha")
	f.String("drought", model.DefaultPressure, "drought status (Low, Medium, High)")
	f.String("pest", model.DefaultPressure, "pest pressure (Low, Medium, High)")
	f.String("disease", model.DefaultPressure, "disease pressure (Low, Medium, High)")
	f.Bool("json", false, "print the result as JSON")
	f.Bool("no-ai", false, "skip AI recommendations")
	f.Bool("no-save", false, "do not log the prediction")

	_ = cmd.MarkFlagRequired("location")
	_ = cmd.MarkFlagRequired("plant-type")

	return cmd
}

func inputFromFlags(cmd *cobra.Command) model.RawInput {
	f := cmd.Flags()
	str := func(name string) string {
		v, _ := f.GetString(name)
		return v
	}
	num := func(name string) *float64 {
		if !f.Changed(name) {
			return nil
		}
		v, _ := f.GetFloat64(name)
		return &v
	}

	return model.RawInput{
		Location:        str("location"),
		PlantType:       str("plant-type"),
		PlotSize:        str("plot-size"),
		PlotSizeValue:   num("plot-size-value"),
		Season:          str("season"),
		HarvestMonth:    str("harvest-month"),
		SoilPH:          num("soil-ph"),
		FertilizerUsage: num("fertilizer"),
		DroughtStatus:   str("drought"),
		PestPressure:    str("pest"),
		DiseasePressure: str("disease"),
	}
}

func runPredict(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	asJSON, _ := cmd.Flags().GetBool("json")
	noAI, _ := cmd.Flags().GetBool("no-ai")
	noSave, _ := cmd.Flags().GetBool("no-save")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	in := inputFromFlags(cmd)

	store, err := openStorage(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	wrapper := regression.New(cfg.Regression(), slog.Default())
	opts := []forecast.Option{forecast.WithLogger(slog.Default())}
	if !asJSON {
		opts = append(opts, forecast.WithTrainingProgress(cli.TrainingProgress(cmd.ErrOrStderr())))
	}
	svc := forecast.New(wrapper, cfg.Modifier(), opts...)

	// Validate before a possibly long bootstrap.
	resolved, err := svc.Describe(in)
	if err != nil {
		return inputError(err)
	}

	origin, err := svc.Bootstrap(ctx, trainingSource(cfg))
	if err != nil {
		return fmt.Errorf("failed to prepare the model: %w", err)
	}
	if origin == forecast.OriginTrained {
		recordTrainingRun(ctx, store, svc.Model())
	}

	result, err := svc.Predict(in)
	if err != nil {
		return inputError(err)
	}

	if !noSave {
		record := &model.PredictionRecord{
			ModelSetID: svc.Model().SetID.String(),
			Input:      in,
			Result:     result,
		}
		if err := store.SavePrediction(ctx, record); err != nil {
			slog.Warn("failed to log prediction", "error", err)
		}
	}

	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	fmt.Fprintln(out, cli.RenderPrediction(resolved, in, result))

	if noAI {
		return nil
	}

	adv, release, err := newAdvisor(ctx, cfg, store)
	defer release()
	if err != nil {
		fmt.Fprintln(out, cli.FormatWarning("AI recommendations not available: "+err.Error()))
		return nil
	}

	text, err := adv.YieldAdvice(ctx, advisor.NewYieldRequest(resolved, result))
	if err != nil {
		fmt.Fprintln(out, cli.FormatWarning("Unable to get AI recommendations: "+err.Error()))
		return nil
	}

	printMarkdown(cmd, cli.RobotIcon+" Recommendations", text)
	return nil
}

func printMarkdown(cmd *cobra.Command, title, text string) {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, cli.TitleStyle.Render(title))

	md, err := cli.NewMarkdown(80, false)
	if err != nil {
		fmt.Fprintln(out, text)
		return
	}
	fmt.Fprint(out, md.Render(text))
}
