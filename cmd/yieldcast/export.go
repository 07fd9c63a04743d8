package main

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/khulafarming/yieldcast/internal/cli"
	"github.com/khulafarming/yieldcast/internal/common"
	"github.com/khulafarming/yieldcast/internal/config"
	"github.com/khulafarming/yieldcast/internal/model"
	"github.com/khulafarming/yieldcast/internal/service"
	"github.com/khulafarming/yieldcast/internal/sheets"
)

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export prediction history to Google Sheets",
		Long: `Write the logged predictions, a per-location summary and the latest
training run to a Google spreadsheet. Configure either a service account
(sheets.service_account_path) or OAuth2 credentials; run "yieldcast export
auth" once to obtain a refresh token.`,
		RunE: runExport,
	}

	cmd.Flags().String("location", "", "only export predictions for this location")
	cmd.Flags().Int("limit", 0, "maximum number of predictions (0 = all)")
	cmd.Flags().Duration("since", 0, "only export predictions newer than this, e.g. 720h")
	cmd.Flags().String("spreadsheet-id", "", "existing spreadsheet to overwrite")
	_ = viper.BindPFlag("sheets.spreadsheet_id", cmd.Flags().Lookup("spreadsheet-id"))

	cmd.AddCommand(exportAuthCmd())
	return cmd
}

func runExport(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	sheetsCfg, err := config.LoadSheetsConfig(viper.GetViper())
	if err != nil {
		return common.NewUserError("Google Sheets is not configured", err)
	}

	store, err := openStorage(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	writer, err := sheets.NewWriter(ctx, *sheetsCfg, slog.Default())
	if err != nil {
		return err
	}

	report, err := buildReport(cmd, store)
	if err != nil {
		return err
	}
	if err := writer.Write(ctx, report); err != nil {
		return fmt.Errorf("export failed: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Exported %d predictions", len(report.Predictions))))
	return nil
}

func buildReport(cmd *cobra.Command, store service.Storage) (*sheets.Report, error) {
	ctx := cmd.Context()

	records, err := store.ListPredictions(ctx, historyFilter(cmd))
	if err != nil {
		return nil, fmt.Errorf("failed to list predictions: %w", err)
	}

	var run *model.TrainingRun
	run, err = store.LatestTrainingRun(ctx)
	if err != nil && !errors.Is(err, common.ErrNotFound) {
		return nil, fmt.Errorf("failed to read training history: %w", err)
	}

	return &sheets.Report{
		GeneratedAt: time.Now(),
		LatestRun:   run,
		Predictions: records,
	}, nil
}

func exportAuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Authorize Google Sheets access with OAuth2",
		RunE: func(cmd *cobra.Command, _ []string) error {
			clientID := viper.GetString("sheets.client_id")
			clientSecret := viper.GetString("sheets.client_secret")
			if clientID == "" || clientSecret == "" {
				return common.NewUserError("Set sheets.client_id and sheets.client_secret first", common.ErrMissingConfig)
			}

			tokenFile, _ := cmd.Flags().GetString("token-file")
			out := cmd.OutOrStdout()

			token, err := sheets.GetOrCreateToken(cmd.Context(), sheets.OAuth2Config{
				ClientID:     clientID,
				ClientSecret: clientSecret,
				TokenFile:    config.ExpandPath(tokenFile),
			}, func(url string) {
				fmt.Fprintln(out, cli.FormatInfo("Open this URL to authorize yieldcast:"))
				fmt.Fprintln(out, url)
			})
			if err != nil {
				return fmt.Errorf("authorization failed: %w", err)
			}

			fmt.Fprintln(out, cli.FormatSuccess("Authorized. Add this to your config as sheets.refresh_token:"))
			fmt.Fprintln(out, token.RefreshToken)
			return nil
		},
	}
	cmd.Flags().String("token-file", filepath.Join(config.ConfigDir(), "sheets-token.json"), "where to store the OAuth2 token")
	return cmd
}
