package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/khulafarming/yieldcast/internal/cli"
	"github.com/khulafarming/yieldcast/internal/regression"
)

func trainCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train the model and replace the saved artifact set",
		Long: `Train a new random forest and write the model, scalers and label encoders
to the model directory as one consistent set. Without --data the model is
trained on simulated records.`,
		RunE: runTrain,
	}

	cmd.Flags().String("data", "", "training CSV file (default: simulated data)")
	cmd.Flags().Int("samples", regression.DefaultSimulatedSamples, "number of simulated records")
	cmd.Flags().Int("trees", 100, "number of trees in the forest")

	_ = viper.BindPFlag("training.data", cmd.Flags().Lookup("data"))
	_ = viper.BindPFlag("training.samples", cmd.Flags().Lookup("samples"))
	_ = viper.BindPFlag("model.trees", cmd.Flags().Lookup("trees"))

	return cmd
}

func runTrain(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	interrupts := cli.NewInterruptHandler(cmd.ErrOrStderr(), "The saved model set was left unchanged.")
	ctx := interrupts.HandleInterrupts(cmd.Context())
	defer interrupts.Stop()

	src := trainingSource(cfg)
	records, err := src.Records(ctx)
	if err != nil {
		return fmt.Errorf("failed to load training data from %s: %w", src.Name(), err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, cli.FormatInfo(fmt.Sprintf("Training on %d records from %s", len(records), src.Name())))

	wrapper := regression.New(cfg.Regression(), slog.Default())
	score, err := wrapper.Train(ctx, records, regression.TrainOptions{
		Progress: cli.TrainingProgress(cmd.ErrOrStderr()),
		Source:   src.Name(),
	})
	if err != nil {
		if interrupts.WasInterrupted() {
			return nil
		}
		return fmt.Errorf("training failed: %w", err)
	}

	if err := wrapper.Save(); err != nil {
		return fmt.Errorf("failed to save model: %w", err)
	}

	store, err := openStorage(ctx, cfg)
	if err != nil {
		slog.Warn("model saved but the training run was not recorded", "error", err)
	} else {
		recordTrainingRun(ctx, store, wrapper.Current())
		_ = store.Close()
	}

	fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("Model saved to %s (held-out R² %.4f)", wrapper.Dir(), score)))
	return nil
}
