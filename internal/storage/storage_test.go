package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khulafarming/yieldcast/internal/common"
	"github.com/khulafarming/yieldcast/internal/model"
	"github.com/khulafarming/yieldcast/internal/service"
)

// createTestStorage returns a migrated in-memory database.
func createTestStorage(t *testing.T) *SQLiteStorage {
	t.Helper()

	store, err := NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	require.NoError(t, store.Migrate(context.Background()))
	return store
}

func prediction(location string, createdAt time.Time, yield float64) *model.PredictionRecord {
	size := 210.0
	return &model.PredictionRecord{
		CreatedAt:  createdAt,
		ModelSetID: "set-1",
		Input: model.RawInput{
			Location:      location,
			PlantType:     "Maize",
			PlotSize:      model.PlotMedium,
			PlotSizeValue: &size,
			HarvestMonth:  "May",
		},
		Result: model.PredictionResult{
			YieldPrediction: yield,
			YieldPerHectare: yield * 100,
			SuccessRating:   7.5,
		},
	}
}

func TestMigrate(t *testing.T) {
	ctx := context.Background()
	store := createTestStorage(t)

	v, err := store.SchemaVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, ExpectedSchemaVersion, v)

	// Running again is a no-op.
	require.NoError(t, store.Migrate(ctx))

	for _, table := range []string{"predictions", "recommendation_cache", "training_runs"} {
		var n int
		err := store.db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&n)
		require.NoError(t, err)
		assert.Equal(t, 1, n, table)
	}
}

func TestFileBackedStorage(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "yieldcast.db")

	store, err := NewSQLiteStorage(path)
	require.NoError(t, err)
	require.NoError(t, store.Migrate(ctx))
	require.NoError(t, store.SavePrediction(ctx, prediction("Nakuru", time.Now(), 1)))
	require.NoError(t, store.Close())

	reopened, err := NewSQLiteStorage(path)
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()
	require.NoError(t, reopened.Migrate(ctx))

	got, err := reopened.ListPredictions(ctx, service.PredictionFilter{})
	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.Equal(t, path, reopened.Path())
}

func TestNewSQLiteStorageRejectsEmptyPath(t *testing.T) {
	_, err := NewSQLiteStorage("  ")
	assert.ErrorIs(t, err, ErrEmptyString)
}

func TestSaveAndListPredictions(t *testing.T) {
	ctx := context.Background()
	store := createTestStorage(t)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, store.SavePrediction(ctx, prediction("Nakuru", base, 1)))
	require.NoError(t, store.SavePrediction(ctx, prediction("Eldoret", base.Add(time.Hour), 2)))
	require.NoError(t, store.SavePrediction(ctx, prediction("Nakuru", base.Add(2*time.Hour), 3)))

	all, err := store.ListPredictions(ctx, service.PredictionFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.InDelta(t, 3.0, all[0].Result.YieldPrediction, 1e-9, "newest first")
	assert.InDelta(t, 1.0, all[2].Result.YieldPrediction, 1e-9)
	assert.NotEmpty(t, all[0].ID)
	assert.Equal(t, "set-1", all[0].ModelSetID)
	assert.True(t, all[0].CreatedAt.Equal(base.Add(2*time.Hour)))
	require.NotNil(t, all[0].Input.PlotSizeValue)
	assert.InDelta(t, 210.0, *all[0].Input.PlotSizeValue, 1e-9)
	assert.Equal(t, "May", all[0].Input.HarvestMonth)
	assert.Nil(t, all[0].Input.SoilPH)

	tests := []struct {
		name   string
		filter service.PredictionFilter
		want   []float64
	}{
		{name: "by location", filter: service.PredictionFilter{Location: "Nakuru"}, want: []float64{3, 1}},
		{name: "limit", filter: service.PredictionFilter{Limit: 2}, want: []float64{3, 2}},
		{name: "limit and offset", filter: service.PredictionFilter{Limit: 1, Offset: 1}, want: []float64{2}},
		{name: "offset only", filter: service.PredictionFilter{Offset: 2}, want: []float64{1}},
		{name: "since", filter: service.PredictionFilter{Since: ptrTime(base.Add(30 * time.Minute))}, want: []float64{3, 2}},
		{name: "no match", filter: service.PredictionFilter{Location: "Mombasa"}, want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := store.ListPredictions(ctx, tt.filter)
			require.NoError(t, err)
			var yields []float64
			for _, r := range got {
				yields = append(yields, r.Result.YieldPrediction)
			}
			assert.Equal(t, tt.want, yields)
		})
	}

	_, err = store.ListPredictions(ctx, service.PredictionFilter{Limit: -1})
	assert.ErrorIs(t, err, ErrInvalidLimit)
}

func TestSavePredictionValidation(t *testing.T) {
	ctx := context.Background()
	store := createTestStorage(t)

	assert.ErrorIs(t, store.SavePrediction(ctx, nil), ErrNilParameter)

	noLocation := prediction("", time.Now(), 1)
	assert.ErrorIs(t, store.SavePrediction(ctx, noLocation), ErrInvalidPrediction)

	noPlant := prediction("Nakuru", time.Now(), 1)
	noPlant.Input.PlantType = ""
	assert.ErrorIs(t, store.SavePrediction(ctx, noPlant), ErrInvalidPrediction)
}

func TestRecommendationCache(t *testing.T) {
	ctx := context.Background()
	store := createTestStorage(t)

	_, err := store.GetCachedText(ctx, "Nakuru", "yield", time.Hour)
	assert.ErrorIs(t, err, common.ErrNotFound)

	require.NoError(t, store.PutCachedText(ctx, &model.CachedText{
		Location: "Nakuru",
		Key:      "yield",
		Content:  "plant early",
	}))

	got, err := store.GetCachedText(ctx, "Nakuru", "yield", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, "plant early", got.Content)

	// Same location, different key.
	_, err = store.GetCachedText(ctx, "Nakuru", "resources", time.Hour)
	assert.ErrorIs(t, err, common.ErrNotFound)

	// Overwrite with a stale entry.
	require.NoError(t, store.PutCachedText(ctx, &model.CachedText{
		Location:  "Nakuru",
		Key:       "yield",
		Content:   "old advice",
		CreatedAt: time.Now().Add(-48 * time.Hour),
	}))
	_, err = store.GetCachedText(ctx, "Nakuru", "yield", 24*time.Hour)
	assert.ErrorIs(t, err, common.ErrNotFound)

	got, err = store.GetCachedText(ctx, "Nakuru", "yield", 72*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, "old advice", got.Content)

	_, err = store.GetCachedText(ctx, "Nakuru", "yield", 0)
	assert.ErrorIs(t, err, ErrNonPositiveDuration)
	assert.ErrorIs(t, store.PutCachedText(ctx, &model.CachedText{Location: "Nakuru"}), ErrInvalidCacheEntry)
}

func TestPruneCache(t *testing.T) {
	ctx := context.Background()
	store := createTestStorage(t)

	require.NoError(t, store.PutCachedText(ctx, &model.CachedText{
		Location: "Nakuru", Key: "fresh", Content: "a",
	}))
	require.NoError(t, store.PutCachedText(ctx, &model.CachedText{
		Location: "Nakuru", Key: "stale", Content: "b", CreatedAt: time.Now().Add(-72 * time.Hour),
	}))

	n, err := store.PruneCache(ctx, 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = store.GetCachedText(ctx, "Nakuru", "fresh", time.Hour)
	assert.NoError(t, err)
	_, err = store.GetCachedText(ctx, "Nakuru", "stale", 1000*time.Hour)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestTrainingRuns(t *testing.T) {
	ctx := context.Background()
	store := createTestStorage(t)

	_, err := store.LatestTrainingRun(ctx)
	assert.ErrorIs(t, err, common.ErrNotFound)

	older := &model.TrainingRun{
		SetID:     "a",
		Source:    "simulated",
		Samples:   1000,
		Score:     0.12,
		TrainedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	newer := &model.TrainingRun{
		SetID:     "b",
		Source:    "csv:/data/farm.csv",
		Samples:   250,
		Score:     0.4,
		TrainedAt: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, store.SaveTrainingRun(ctx, newer))
	require.NoError(t, store.SaveTrainingRun(ctx, older))

	latest, err := store.LatestTrainingRun(ctx)
	require.NoError(t, err)
	assert.Equal(t, "b", latest.SetID)
	assert.Equal(t, 250, latest.Samples)
	assert.Equal(t, "csv:/data/farm.csv", latest.Source)
	assert.True(t, latest.TrainedAt.Equal(newer.TrainedAt))

	assert.ErrorIs(t, store.SaveTrainingRun(ctx, &model.TrainingRun{SetID: "c"}), ErrInvalidTrainingRun)
	assert.ErrorIs(t, store.SaveTrainingRun(ctx, nil), ErrNilParameter)
}

func TestNilContext(t *testing.T) {
	store := createTestStorage(t)

	//nolint:staticcheck // testing nil context handling
	_, err := store.ListPredictions(nil, service.PredictionFilter{})
	assert.ErrorIs(t, err, ErrNilContext)
}

func ptrTime(t time.Time) *time.Time { return &t }
