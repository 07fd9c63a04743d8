package sheets

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/khulafarming/yieldcast/internal/common"
	"github.com/khulafarming/yieldcast/internal/model"
)

// detailColumns is the width of the prediction detail table.
const detailColumns = 12

// Writer exports reports to a Google spreadsheet.
type Writer struct {
	service  *sheets.Service
	logger   *slog.Logger
	location *time.Location
	config   Config
}

// NewWriter creates a new Google Sheets writer.
func NewWriter(ctx context.Context, config Config, logger *slog.Logger) (*Writer, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	location, err := config.Location()
	if err != nil {
		return nil, err
	}

	service, err := createSheetsService(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}

	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{
		config:   config,
		service:  service,
		location: location,
		logger:   logger.With("component", "sheets"),
	}, nil
}

// Write replaces the spreadsheet contents with report.
func (w *Writer) Write(ctx context.Context, report *Report) error {
	if report == nil {
		return fmt.Errorf("report is required")
	}
	w.logger.Info("starting export", "predictions", len(report.Predictions))

	spreadsheetID, err := w.getOrCreateSpreadsheet(ctx)
	if err != nil {
		return fmt.Errorf("failed to get spreadsheet: %w", err)
	}

	if clearErr := w.clearSheet(ctx, spreadsheetID); clearErr != nil {
		return fmt.Errorf("failed to clear sheet: %w", clearErr)
	}

	values := prepareReportData(report, w.location)

	retryOpts := common.RetryOptions{
		Logger:       w.logger,
		Operation:    "sheets write",
		MaxAttempts:  w.config.RetryAttempts,
		InitialDelay: w.config.RetryDelay,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
	}

	err = common.WithRetry(ctx, func() error {
		return w.writeData(ctx, spreadsheetID, values)
	}, retryOpts)
	if err != nil {
		return fmt.Errorf("failed to write data: %w", err)
	}

	if w.config.EnableFormatting {
		formatOpts := retryOpts
		formatOpts.Operation = "sheets format"
		err = common.WithRetry(ctx, func() error {
			return w.applyFormatting(ctx, spreadsheetID, values)
		}, formatOpts)
		if err != nil {
			// formatting is cosmetic
			w.logger.Warn("failed to apply formatting", "error", err)
		}
	}

	w.logger.Info("export completed",
		"spreadsheet_id", spreadsheetID,
		"rows_written", len(values))

	return nil
}

func createSheetsService(ctx context.Context, config Config) (*sheets.Service, error) {
	var tokenSource oauth2.TokenSource

	switch config.Auth() {
	case AuthServiceAccount:
		jsonKey, err := os.ReadFile(config.ServiceAccountPath)
		if err != nil {
			return nil, fmt.Errorf("unable to read service account key file: %w", err)
		}

		jwtConfig, err := google.JWTConfigFromJSON(jsonKey, sheets.SpreadsheetsScope)
		if err != nil {
			return nil, fmt.Errorf("unable to parse service account key: %w", err)
		}

		tokenSource = jwtConfig.TokenSource(ctx)
	case AuthOAuth2:
		client := &oauth2.Config{
			ClientID:     config.ClientID,
			ClientSecret: config.ClientSecret,
			Endpoint:     google.Endpoint,
			Scopes:       []string{sheets.SpreadsheetsScope},
		}

		token := &oauth2.Token{
			RefreshToken: config.RefreshToken,
			TokenType:    "Bearer",
		}

		tokenSource = client.TokenSource(ctx, token)
	default:
		return nil, fmt.Errorf("%w: no usable Google credentials", common.ErrMissingConfig)
	}

	httpClient := oauth2.NewClient(ctx, tokenSource)
	srv, err := sheets.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("unable to create sheets service: %w", err)
	}

	return srv, nil
}

func (w *Writer) getOrCreateSpreadsheet(ctx context.Context) (string, error) {
	if w.config.SpreadsheetID != "" {
		_, err := w.service.Spreadsheets.Get(w.config.SpreadsheetID).Context(ctx).Do()
		if err != nil {
			return "", fmt.Errorf("unable to access spreadsheet %s: %w", w.config.SpreadsheetID, err)
		}
		return w.config.SpreadsheetID, nil
	}

	spreadsheet := &sheets.Spreadsheet{
		Properties: &sheets.SpreadsheetProperties{
			Title:    w.config.SpreadsheetName,
			TimeZone: w.config.TimeZone,
		},
		Sheets: []*sheets.Sheet{
			{
				Properties: &sheets.SheetProperties{
					Title: "Predictions",
				},
			},
		},
	}

	created, err := w.service.Spreadsheets.Create(spreadsheet).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("unable to create spreadsheet: %w", err)
	}

	w.logger.Info("created new spreadsheet",
		"id", created.SpreadsheetId,
		"url", created.SpreadsheetUrl)

	return created.SpreadsheetId, nil
}

func (w *Writer) clearSheet(ctx context.Context, spreadsheetID string) error {
	_, err := w.service.Spreadsheets.Values.Clear(spreadsheetID, "A:Z", &sheets.ClearValuesRequest{}).Context(ctx).Do()
	return err
}

// prepareReportData lays out the summary, the per-location table and the
// prediction details, newest first. Dates are shown in loc.
func prepareReportData(report *Report, loc *time.Location) [][]any {
	if loc == nil {
		loc = time.UTC
	}
	locations := Summarize(report.Predictions)

	values := make([][]any, 0, 12+len(locations)+len(report.Predictions))

	generated := report.GeneratedAt
	if generated.IsZero() {
		generated = time.Now()
	}
	values = append(values,
		[]any{"Yield Forecast History", generated.In(loc).Format("Jan 2, 2006 15:04")},
		[]any{},
		[]any{"Summary"},
		[]any{"Total Predictions", len(report.Predictions)},
	)
	if run := report.LatestRun; run != nil {
		values = append(values,
			[]any{"Model Set", run.SetID},
			[]any{"Trained", run.TrainedAt.In(loc).Format("2006-01-02 15:04")},
			[]any{"Training Source", run.Source},
			[]any{"Held-out R²", fmt.Sprintf("%.4f", run.Score)},
		)
	}

	values = append(values,
		[]any{},
		[]any{"By Location"},
		[]any{"Location", "Predictions", "Avg Yield (t/ha)", "Avg Success", "Total Yield (t)"},
	)
	for _, l := range locations {
		values = append(values, []any{
			l.Location,
			l.PredictionCount,
			l.AvgYieldPerHa.InexactFloat64(),
			l.AvgSuccess.InexactFloat64(),
			l.TotalYield.InexactFloat64(),
		})
	}

	values = append(values,
		[]any{},
		[]any{"Prediction Details"},
		[]any{
			"Date",
			"Location",
			"Plant Type",
			"Season",
			"Harvest Month",
			"Plot Size",
			"Drought",
			"Pest",
			"Disease",
			"Yield (t)",
			"Yield (t/ha)",
			"Success",
		})

	records := make([]model.PredictionRecord, len(report.Predictions))
	copy(records, report.Predictions)
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].CreatedAt.After(records[j].CreatedAt)
	})

	for _, r := range records {
		in := r.Input
		values = append(values, []any{
			r.CreatedAt.In(loc).Format("2006-01-02"),
			in.Location,
			in.PlantType,
			orDefault(in.Season, model.DefaultSeason),
			orDefault(in.HarvestMonth, "-"),
			plotLabel(in),
			orDefault(in.DroughtStatus, model.DefaultPressure),
			orDefault(in.PestPressure, model.DefaultPressure),
			orDefault(in.DiseasePressure, model.DefaultPressure),
			r.Result.YieldPrediction,
			r.Result.YieldPerHectare,
			r.Result.SuccessRating,
		})
	}

	return values
}

func plotLabel(in model.RawInput) string {
	size := orDefault(in.PlotSize, model.DefaultPlotSize)
	if in.PlotSizeValue == nil {
		return size
	}
	return fmt.Sprintf("%s (%g)", size, *in.PlotSizeValue)
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func (w *Writer) writeData(ctx context.Context, spreadsheetID string, values [][]any) error {
	for i := 0; i < len(values); i += w.config.BatchSize {
		end := min(i+w.config.BatchSize, len(values))

		batch := values[i:end]
		valueRange := &sheets.ValueRange{
			Values: batch,
		}

		rangeStr := fmt.Sprintf("A%d", i+1)
		_, err := w.service.Spreadsheets.Values.Update(spreadsheetID, rangeStr, valueRange).
			ValueInputOption("USER_ENTERED").
			Context(ctx).
			Do()

		if err != nil {
			return fmt.Errorf("failed to write batch starting at row %d: %w", i+1, err)
		}

		w.logger.Debug("wrote batch", "start_row", i+1, "rows", len(batch))
	}

	return nil
}

// applyFormatting styles the layout produced by prepareReportData: the title,
// section headings, table headers and the numeric detail columns.
func (w *Writer) applyFormatting(ctx context.Context, spreadsheetID string, values [][]any) error {
	requests := []*sheets.Request{
		formatRows(0, 1, 2, &sheets.CellFormat{
			TextFormat: &sheets.TextFormat{Bold: true, FontSize: 16},
		}, "userEnteredFormat.textFormat"),
	}

	detailHeader := -1
	for i, row := range values {
		switch {
		case i == 0 || len(row) == 0:
		case len(row) == 1:
			requests = append(requests, formatRows(i, i+1, 1, &sheets.CellFormat{
				TextFormat: &sheets.TextFormat{Bold: true, FontSize: 12},
			}, "userEnteredFormat.textFormat"))
		case row[0] == "Location" || row[0] == "Date":
			requests = append(requests, formatRows(i, i+1, len(row), &sheets.CellFormat{
				TextFormat:      &sheets.TextFormat{Bold: true},
				BackgroundColor: &sheets.Color{Red: 0.85, Green: 0.93, Blue: 0.83},
			}, "userEnteredFormat(textFormat,backgroundColor)"))
			if row[0] == "Date" {
				detailHeader = i
			}
		}
	}

	if detailHeader >= 0 && detailHeader+1 < len(values) {
		numbers := &sheets.Request{RepeatCell: &sheets.RepeatCellRequest{
			Range: &sheets.GridRange{
				StartRowIndex:    int64(detailHeader + 1),
				EndRowIndex:      int64(len(values)),
				StartColumnIndex: detailColumns - 3,
				EndColumnIndex:   detailColumns,
			},
			Cell: &sheets.CellData{UserEnteredFormat: &sheets.CellFormat{
				NumberFormat: &sheets.NumberFormat{Type: "NUMBER", Pattern: "0.00"},
			}},
			Fields: "userEnteredFormat.numberFormat",
		}}
		requests = append(requests, numbers)
	}

	requests = append(requests, &sheets.Request{
		AutoResizeDimensions: &sheets.AutoResizeDimensionsRequest{
			Dimensions: &sheets.DimensionRange{
				Dimension: "COLUMNS",
				EndIndex:  detailColumns,
			},
		},
	})

	_, err := w.service.Spreadsheets.BatchUpdate(spreadsheetID, &sheets.BatchUpdateSpreadsheetRequest{
		Requests: requests,
	}).Context(ctx).Do()
	return err
}

// formatRows applies format to rows [start, end) of the first cols columns
// of the first sheet.
func formatRows(start, end, cols int, format *sheets.CellFormat, fields string) *sheets.Request {
	return &sheets.Request{RepeatCell: &sheets.RepeatCellRequest{
		Range: &sheets.GridRange{
			StartRowIndex:  int64(start),
			EndRowIndex:    int64(end),
			EndColumnIndex: int64(cols),
		},
		Cell:   &sheets.CellData{UserEnteredFormat: format},
		Fields: fields,
	}}
}
