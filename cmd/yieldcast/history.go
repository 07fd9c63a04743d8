package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/khulafarming/yieldcast/internal/cli"
	"github.com/khulafarming/yieldcast/internal/service"
)

func historyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List logged predictions",
		RunE:  runHistory,
	}

	cmd.Flags().String("location", "", "only show predictions for this location")
	cmd.Flags().Int("limit", 20, "maximum number of predictions to show")
	cmd.Flags().Duration("since", 0, "only show predictions newer than this, e.g. 168h")
	cmd.Flags().Bool("json", false, "print records as JSON")

	return cmd
}

func historyFilter(cmd *cobra.Command) service.PredictionFilter {
	location, _ := cmd.Flags().GetString("location")
	limit, _ := cmd.Flags().GetInt("limit")
	since, _ := cmd.Flags().GetDuration("since")

	filter := service.PredictionFilter{Location: location, Limit: limit}
	if since > 0 {
		t := time.Now().Add(-since)
		filter.Since = &t
	}
	return filter
}

func runHistory(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	asJSON, _ := cmd.Flags().GetBool("json")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store, err := openStorage(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	records, err := store.ListPredictions(ctx, historyFilter(cmd))
	if err != nil {
		return fmt.Errorf("failed to list predictions: %w", err)
	}

	out := cmd.OutOrStdout()
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(records)
	}

	fmt.Fprint(out, cli.RenderHistory(records))
	return nil
}
