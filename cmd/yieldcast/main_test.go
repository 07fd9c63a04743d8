package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khulafarming/yieldcast/internal/codec"
	"github.com/khulafarming/yieldcast/internal/common"
	"github.com/khulafarming/yieldcast/internal/model"
	"github.com/khulafarming/yieldcast/internal/storage"
	"github.com/khulafarming/yieldcast/internal/testutil"
)

// isolate points every path at a temp dir and keeps training small.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("YIELDCAST_MODEL_DIR", filepath.Join(dir, "model"))
	t.Setenv("YIELDCAST_DATABASE_PATH", filepath.Join(dir, "yieldcast.db"))
	t.Setenv("YIELDCAST_TRAINING_SAMPLES", "200")
	t.Setenv("YIELDCAST_MODEL_TREES", "8")
	t.Setenv("YIELDCAST_LOGGING_LEVEL", "error")
	return dir
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cfgFile = ""
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestInputFromFlags(t *testing.T) {
	cmd := predictCmd()
	require.NoError(t, cmd.ParseFlags([]string{
		"--location", "Durban",
		"--plant-type", "Maize",
		"--soil-ph", "5.8",
		"--harvest-month", "May",
	}))

	in := inputFromFlags(cmd)
	assert.Equal(t, "Durban", in.Location)
	assert.Equal(t, "May", in.HarvestMonth)
	assert.Equal(t, model.DefaultPlotSize, in.PlotSize)
	require.NotNil(t, in.SoilPH)
	assert.InDelta(t, 5.8, *in.SoilPH, 1e-12)
	assert.Nil(t, in.PlotSizeValue)
	assert.Nil(t, in.FertilizerUsage)
}

func TestPredictHelpStatesRatingRange(t *testing.T) {
	cmd := predictCmd()
	assert.Contains(t, cmd.Long, "0-10 success rating")
	assert.NotContains(t, cmd.Long, "1-10")
}

func TestInputError(t *testing.T) {
	tests := []struct {
		err      error
		name     string
		wantUser bool
	}{
		{name: "plot size", err: &model.InvalidPlotSizeError{Category: "Small", Unit: "ft²", Value: 50, Min: 75, Max: 100}, wantUser: true},
		{name: "unknown category", err: &codec.UnknownCategoryError{Column: "Pest_Pressure", Value: "Extreme"}, wantUser: true},
		{name: "unknown month", err: common.ErrUnknownMonth, wantUser: true},
		{name: "other", err: errors.New("disk full")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := inputError(tt.err)
			var userErr *common.UserError
			assert.Equal(t, tt.wantUser, errors.As(err, &userErr))
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestResourcesCommandJSON(t *testing.T) {
	isolate(t)

	out, err := execute(t, "resources", "--crop", "maize", "--hectares", "2", "--budget", "10000", "--json")
	require.NoError(t, err)

	var got struct {
		TotalCost    string `json:"total_cost"`
		BudgetStatus string `json:"budget_status"`
		Crop         string `json:"crop"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "maize", got.Crop)
	assert.Equal(t, "12770", got.TotalCost)
	assert.Equal(t, "insufficient", got.BudgetStatus)
}

func TestResourcesCommandErrors(t *testing.T) {
	isolate(t)

	_, err := execute(t, "resources", "--crop", "quinoa")
	assert.ErrorIs(t, err, common.ErrUnknownCrop)

	_, err = execute(t, "resources", "--crop", "maize", "--budget", "lots")
	var userErr *common.UserError
	assert.ErrorAs(t, err, &userErr)
}

func TestCropsCommand(t *testing.T) {
	isolate(t)

	out, err := execute(t, "crops", "wheat")
	require.NoError(t, err)
	assert.Contains(t, out, "Western Cape")

	_, err = execute(t, "crops", "rice")
	assert.ErrorIs(t, err, common.ErrUnknownCrop)
}

func TestPredictTrainsLogsAndLists(t *testing.T) {
	dir := isolate(t)

	out, err := execute(t, "predict",
		"--location", "Bethlehem",
		"--plant-type", "Maize",
		"--harvest-month", "May",
		"--no-ai", "--json")
	require.NoError(t, err)

	var result model.PredictionResult
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Greater(t, result.YieldPerHectare, 0.0)
	assert.GreaterOrEqual(t, result.SuccessRating, 1.0)
	assert.LessOrEqual(t, result.SuccessRating, 10.0)

	assert.FileExists(t, filepath.Join(dir, "model", "farming_model.json"))

	out, err = execute(t, "history", "--json")
	require.NoError(t, err)
	var records []model.PredictionRecord
	require.NoError(t, json.Unmarshal([]byte(out), &records))
	require.Len(t, records, 1)
	assert.Equal(t, "Bethlehem", records[0].Input.Location)
	assert.NotEmpty(t, records[0].ModelSetID)

	store, err := storage.NewSQLiteStorage(filepath.Join(dir, "yieldcast.db"))
	require.NoError(t, err)
	defer func() { _ = store.Close() }()
	run, err := store.LatestTrainingRun(context.Background())
	require.NoError(t, err)
	assert.Equal(t, records[0].ModelSetID, run.SetID)
	assert.Equal(t, "simulated", run.Source)
}

func TestPredictRejectsBadInput(t *testing.T) {
	isolate(t)

	_, err := execute(t, "predict",
		"--location", "Durban",
		"--plant-type", "Maize",
		"--plot-size", "Small",
		"--plot-size-value", "500",
		"--no-ai", "--json")

	var plotErr *model.InvalidPlotSizeError
	assert.ErrorAs(t, err, &plotErr)
}

func TestBuildReport(t *testing.T) {
	db := testutil.SetupTestDB(t,
		testutil.NewPredictionBuilder().
			At("Durban").Times(2).
			At("Polokwane").Times(1).
			Build(),
	)

	cmd := exportCmd()
	cmd.SetContext(context.Background())
	require.NoError(t, cmd.ParseFlags([]string{"--location", "Durban"}))

	report, err := buildReport(cmd, db.Storage)
	require.NoError(t, err)
	assert.Len(t, report.Predictions, db.CountAt("Durban"))
	assert.Nil(t, report.LatestRun)
	assert.WithinDuration(t, time.Now(), report.GeneratedAt, time.Minute)
}

func TestBuildReportIncludesLatestRun(t *testing.T) {
	db := testutil.SetupTestDBWithOptions(t, testutil.TestDBOptions{
		Predictions: testutil.NewPredictionBuilder().Times(3).Build(),
		TrainingRun: &model.TrainingRun{
			TrainedAt: time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC),
			SetID:     "set-1",
			Source:    "synthetic",
			Samples:   200,
			Score:     0.9,
		},
	})

	cmd := exportCmd()
	cmd.SetContext(context.Background())
	require.NoError(t, cmd.ParseFlags(nil))

	report, err := buildReport(cmd, db.Storage)
	require.NoError(t, err)
	assert.Len(t, report.Predictions, 3)
	require.NotNil(t, report.LatestRun)
	assert.Equal(t, "set-1", report.LatestRun.SetID)
}

func TestMigrateStatusAndVersion(t *testing.T) {
	isolate(t)

	out, err := execute(t, "migrate")
	require.NoError(t, err)
	assert.Contains(t, out, "schema version")

	out, err = execute(t, "migrate", "--status")
	require.NoError(t, err)
	assert.Contains(t, out, "Current version: 3")

	out, err = execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "yieldcast dev")
}
