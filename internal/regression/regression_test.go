package regression

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khulafarming/yieldcast/internal/common"
	"github.com/khulafarming/yieldcast/internal/model"
)

func testConfig(dir string) Config {
	cfg := DefaultConfig(dir)
	cfg.Forest.Trees = 10
	return cfg
}

func trainedWrapper(t *testing.T, dir string, seed uint64) *Wrapper {
	t.Helper()
	w := New(testConfig(dir), nil)
	_, err := w.Train(context.Background(), Simulate(200, seed), TrainOptions{Source: "simulated"})
	require.NoError(t, err)
	return w
}

func TestSimulate(t *testing.T) {
	a := Simulate(500, 42)
	b := Simulate(500, 42)
	require.Len(t, a, 500)
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, Simulate(500, 7))
	assert.Nil(t, Simulate(0, 42))

	var highSum, lowSum float64
	var highN, lowN int
	for _, r := range a {
		switch r.DroughtStatus {
		case model.PressureHigh:
			highSum += r.YieldPerHectare
			highN++
		case model.PressureLow:
			lowSum += r.YieldPerHectare
			lowN++
		}
		assert.Contains(t, model.Seasons(), r.Season)
		assert.Contains(t, model.Pressures(), r.PestPressure)
	}
	require.NotZero(t, highN)
	require.NotZero(t, lowN)
	assert.Less(t, highSum/float64(highN), lowSum/float64(lowN)*0.8)
}

const csvHeader = "Season,Rainfall_mm,Avg_Temp_C,Soil_Moisture_Percentage,Drought_Status,Pest_Pressure,Disease_Pressure,Growing_Days,Soil_pH,Fertilizer_Usage_kg_per_ha,"

func TestDecodeCSV(t *testing.T) {
	t.Run("accepts either yield column", func(t *testing.T) {
		for _, yieldCol := range []string{model.ColYieldPerHectare, model.ColYieldTonsPerHa} {
			data := csvHeader + yieldCol + ",Success_Rating,Extra\n" +
				"Summer,600,34,65,Low,Medium,High,125,6.2,180,3100.5,7.2,ignored\n" +
				"Winter, 300, 18, 75, High, Low, Low, 150, 6.8, 160, 2000, 5.5,x\n"

			records, err := DecodeCSV(strings.NewReader(data))
			require.NoError(t, err)
			require.Len(t, records, 2)
			assert.Equal(t, "Summer", records[0].Season)
			assert.Equal(t, model.PressureHigh, records[0].DiseasePressure)
			assert.InDelta(t, 3100.5, records[0].YieldPerHectare, 1e-9)
			assert.InDelta(t, 18.0, records[1].AvgTemp, 1e-9)
			assert.InDelta(t, 5.5, records[1].SuccessRating, 1e-9)
		}
	})

	t.Run("missing column", func(t *testing.T) {
		data := "Season,Rainfall_mm\nSummer,600\n"
		_, err := DecodeCSV(strings.NewReader(data))
		require.Error(t, err)
		assert.ErrorIs(t, err, common.ErrSchema)

		var schemaErr *SchemaError
		require.True(t, errors.As(err, &schemaErr))
		assert.Contains(t, schemaErr.Missing, model.ColAvgTemp)
		assert.Contains(t, schemaErr.Missing, model.ColYieldPerHectare)
		assert.NotContains(t, schemaErr.Missing, model.ColSeason)
	})

	t.Run("invalid number", func(t *testing.T) {
		data := csvHeader + "Yield_per_hectare,Success_Rating\n" +
			"Summer,lots,34,65,Low,Low,Low,125,6.2,180,3100,7\n"
		_, err := DecodeCSV(strings.NewReader(data))

		var schemaErr *SchemaError
		require.True(t, errors.As(err, &schemaErr))
		assert.Equal(t, 2, schemaErr.Line)
		assert.Equal(t, model.ColRainfall, schemaErr.Column)
	})

	t.Run("empty input", func(t *testing.T) {
		_, err := DecodeCSV(strings.NewReader(""))
		assert.ErrorIs(t, err, common.ErrSchema)
	})
}

func TestReadCSVMissingFile(t *testing.T) {
	_, err := ReadCSV(filepath.Join(t.TempDir(), "nope.csv"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestSplit(t *testing.T) {
	train, test := split(1000, 0.2, 42)
	assert.Len(t, test, 200)
	assert.Len(t, train, 800)

	seen := make(map[int]bool, 1000)
	for _, i := range append(append([]int{}, train...), test...) {
		assert.False(t, seen[i], "index %d repeated", i)
		seen[i] = true
	}

	train2, test2 := split(1000, 0.2, 42)
	assert.Equal(t, train, train2)
	assert.Equal(t, test, test2)

	_, test = split(11, 0.2, 42)
	assert.Len(t, test, 3)
}

func TestPredictWithoutModel(t *testing.T) {
	w := New(testConfig(t.TempDir()), nil)
	_, err := w.Predict(model.FeatureVector{})
	assert.ErrorIs(t, err, common.ErrModelNotLoaded)
	assert.Nil(t, w.Current())
	assert.ErrorIs(t, w.Save(), common.ErrModelNotLoaded)
}

func TestTrainRejectsTinyDatasets(t *testing.T) {
	w := New(testConfig(t.TempDir()), nil)
	_, err := w.Train(context.Background(), Simulate(5, 1), TrainOptions{})
	assert.Error(t, err)
	assert.Nil(t, w.Current())
}

func TestTrainReportsProgress(t *testing.T) {
	w := New(testConfig(t.TempDir()), nil)

	var last, calls int
	_, err := w.Train(context.Background(), Simulate(100, 3), TrainOptions{
		Progress: func(done, total int) {
			calls++
			last = done
			assert.Equal(t, 10, total)
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 10, calls)
	assert.Equal(t, 10, last)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "models")
	w := trainedWrapper(t, dir, 1)
	require.NoError(t, w.Save())

	for _, f := range []string{ModelFile, ScalerFile, EncodersFile, TargetScalerFile} {
		assert.FileExists(t, filepath.Join(dir, f))
	}

	loaded := New(testConfig(dir), nil)
	require.NoError(t, loaded.Load())

	orig, restored := w.Current(), loaded.Current()
	assert.Equal(t, orig.SetID, restored.SetID)
	assert.Equal(t, orig.Samples, restored.Samples)
	assert.Equal(t, "simulated", restored.Source)
	assert.InDelta(t, orig.Score, restored.Score, 1e-12)
	assert.Equal(t, orig.Codec, restored.Codec)

	for _, r := range Simulate(20, 99) {
		v, err := orig.Codec.Encode(r.FeatureRecord)
		require.NoError(t, err)

		want, err := w.Predict(v)
		require.NoError(t, err)
		got, err := loaded.Predict(v)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestSaveReplacesPreviousSet(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "models")
	first := trainedWrapper(t, dir, 1)
	require.NoError(t, first.Save())
	second := trainedWrapper(t, dir, 2)
	require.NoError(t, second.Save())
	third := trainedWrapper(t, dir, 3)
	require.NoError(t, third.Save())

	loaded := New(testConfig(dir), nil)
	require.NoError(t, loaded.Load())
	assert.Equal(t, third.Current().SetID, loaded.Current().SetID)

	entries, err := os.ReadDir(filepath.Dir(dir))
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.ElementsMatch(t, []string{
		"models",
		filepath.Base(versionDir(dir, second.Current().SetID)),
		filepath.Base(versionDir(dir, third.Current().SetID)),
	}, names, "only the current and previous sets are kept")
}

func TestSaveKeepsPreviousSetReadable(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "models")
	first := trainedWrapper(t, dir, 1)
	require.NoError(t, first.Save())

	// a reader that resolved the link before the next save
	resolved, err := filepath.EvalSymlinks(dir)
	require.NoError(t, err)

	second := trainedWrapper(t, dir, 2)
	require.NoError(t, second.Save())

	old := New(testConfig(resolved), nil)
	require.NoError(t, old.Load())
	assert.Equal(t, first.Current().SetID, old.Current().SetID)

	current := New(testConfig(dir), nil)
	require.NoError(t, current.Load())
	assert.Equal(t, second.Current().SetID, current.Current().SetID)
}

func TestSaveOverPlainDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "models")
	first := trainedWrapper(t, dir, 1)
	require.NoError(t, first.Save())
	legacy := filepath.Join(t.TempDir(), "legacy")
	copyDir(t, dir, legacy)
	require.NoError(t, os.Remove(dir))
	require.NoError(t, os.Rename(legacy, dir))

	second := trainedWrapper(t, dir, 2)
	require.NoError(t, second.Save())

	info, err := os.Lstat(dir)
	require.NoError(t, err)
	assert.NotZero(t, info.Mode()&os.ModeSymlink)

	loaded := New(testConfig(dir), nil)
	require.NoError(t, loaded.Load())
	assert.Equal(t, second.Current().SetID, loaded.Current().SetID)
}

func TestResaveSameSet(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "models")
	w := trainedWrapper(t, dir, 1)
	require.NoError(t, w.Save())
	require.NoError(t, w.Save())

	loaded := New(testConfig(dir), nil)
	require.NoError(t, loaded.Load())
	assert.Equal(t, w.Current().SetID, loaded.Current().SetID)
}

func TestLoadRejectsInconsistentSets(t *testing.T) {
	root := t.TempDir()
	dirA := filepath.Join(root, "a")
	dirB := filepath.Join(root, "b")
	require.NoError(t, trainedWrapper(t, dirA, 1).Save())
	require.NoError(t, trainedWrapper(t, dirB, 2).Save())

	tests := []struct {
		name   string
		mutate func(t *testing.T, dir string)
	}{
		{
			name: "missing scaler",
			mutate: func(t *testing.T, dir string) {
				require.NoError(t, os.Remove(filepath.Join(dir, ScalerFile)))
			},
		},
		{
			name: "only the model",
			mutate: func(t *testing.T, dir string) {
				for _, f := range []string{ScalerFile, EncodersFile, TargetScalerFile} {
					require.NoError(t, os.Remove(filepath.Join(dir, f)))
				}
			},
		},
		{
			name: "encoders from another run",
			mutate: func(t *testing.T, dir string) {
				data, err := os.ReadFile(filepath.Join(dirB, EncodersFile))
				require.NoError(t, err)
				require.NoError(t, os.WriteFile(filepath.Join(dir, EncodersFile), data, 0o600))
			},
		},
		{
			name: "file under the wrong name",
			mutate: func(t *testing.T, dir string) {
				data, err := os.ReadFile(filepath.Join(dir, ScalerFile))
				require.NoError(t, err)
				require.NoError(t, os.WriteFile(filepath.Join(dir, TargetScalerFile), data, 0o600))
			},
		},
		{
			name: "null encoder entry",
			mutate: func(t *testing.T, dir string) {
				path := filepath.Join(dir, EncodersFile)
				data, err := os.ReadFile(path)
				require.NoError(t, err)

				var env envelope
				require.NoError(t, json.Unmarshal(data, &env))
				var encoders map[string]json.RawMessage
				require.NoError(t, json.Unmarshal(env.Payload, &encoders))
				require.Contains(t, encoders, model.ColSeason)
				encoders[model.ColSeason] = json.RawMessage("null")

				env.Payload, err = json.Marshal(encoders)
				require.NoError(t, err)
				data, err = json.Marshal(env)
				require.NoError(t, err)
				require.NoError(t, os.WriteFile(path, data, 0o600))
			},
		},
		{
			name: "corrupt json",
			mutate: func(t *testing.T, dir string) {
				require.NoError(t, os.WriteFile(filepath.Join(dir, ModelFile), []byte("{"), 0o600))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := filepath.Join(t.TempDir(), "set")
			copyDir(t, dirA, dir)
			tt.mutate(t, dir)

			w := New(testConfig(dir), nil)
			err := w.Load()
			require.Error(t, err)
			assert.ErrorIs(t, err, common.ErrArtifactMismatch)

			var mismatch *ArtifactMismatchError
			assert.True(t, errors.As(err, &mismatch))
			assert.Nil(t, w.Current())
		})
	}
}

func TestLoadEmptyDirectory(t *testing.T) {
	w := New(testConfig(t.TempDir()), nil)
	err := w.Load()
	assert.ErrorIs(t, err, common.ErrNotFound)
	assert.NotErrorIs(t, err, common.ErrArtifactMismatch)
}

func TestFailedLoadKeepsCurrentModel(t *testing.T) {
	w := trainedWrapper(t, t.TempDir(), 1)
	before := w.Current()

	require.Error(t, w.Load())
	assert.Same(t, before, w.Current())
}

func copyDir(t *testing.T, src, dst string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dst, 0o750))
	entries, err := os.ReadDir(src)
	require.NoError(t, err)
	for _, e := range entries {
		data, err := os.ReadFile(filepath.Join(src, e.Name()))
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(filepath.Join(dst, e.Name()), data, 0o600))
	}
}
