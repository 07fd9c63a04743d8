// Package testutil provides shared fixtures for tests that need a populated
// prediction log.
package testutil

import (
	"context"
	"testing"

	"github.com/khulafarming/yieldcast/internal/model"
	"github.com/khulafarming/yieldcast/internal/storage"
)

// TestDB is a migrated in-memory database together with the records seeded
// into it.
type TestDB struct {
	Storage     *storage.SQLiteStorage
	t           *testing.T
	Predictions []model.PredictionRecord
}

// TestDBOptions controls what SetupTestDBWithOptions seeds.
type TestDBOptions struct {
	CustomSetup    func(context.Context, *storage.SQLiteStorage) error
	TrainingRun    *model.TrainingRun
	Predictions    []model.PredictionRecord
	SkipMigrations bool
}

// SetupTestDB creates a migrated in-memory database seeded with the given
// predictions. The database is closed when the test ends.
//
// Example:
//
//	db := testutil.SetupTestDB(t,
//		testutil.NewPredictionBuilder().
//			At("Durban").Times(2).
//			Build(),
//	)
func SetupTestDB(t *testing.T, predictions []model.PredictionRecord) *TestDB {
	t.Helper()
	return SetupTestDBWithOptions(t, TestDBOptions{Predictions: predictions})
}

// SetupTestDBWithOptions creates a test database with custom options.
func SetupTestDBWithOptions(t *testing.T, opts TestDBOptions) *TestDB {
	t.Helper()

	store, err := storage.NewSQLiteStorage(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})

	ctx := context.Background()
	if !opts.SkipMigrations {
		if err := store.Migrate(ctx); err != nil {
			t.Fatalf("failed to run migrations: %v", err)
		}
	}

	seeded := make([]model.PredictionRecord, 0, len(opts.Predictions))
	for i := range opts.Predictions {
		rec := opts.Predictions[i]
		if err := store.SavePrediction(ctx, &rec); err != nil {
			t.Fatalf("failed to seed prediction for %q: %v", rec.Input.Location, err)
		}
		seeded = append(seeded, rec)
	}

	if opts.TrainingRun != nil {
		if err := store.SaveTrainingRun(ctx, opts.TrainingRun); err != nil {
			t.Fatalf("failed to seed training run: %v", err)
		}
	}

	if opts.CustomSetup != nil {
		if err := opts.CustomSetup(ctx, store); err != nil {
			t.Fatalf("custom setup failed: %v", err)
		}
	}

	return &TestDB{
		Storage:     store,
		Predictions: seeded,
		t:           t,
	}
}

// CountAt returns how many seeded predictions were made for location.
func (db *TestDB) CountAt(location string) int {
	db.t.Helper()
	n := 0
	for _, rec := range db.Predictions {
		if rec.Input.Location == location {
			n++
		}
	}
	return n
}
