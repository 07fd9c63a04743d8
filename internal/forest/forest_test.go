package forest

import (
	"context"
	"encoding/json"
	"math/rand/v2"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// synthetic builds a two-output problem with a clear step in feature 0.
func synthetic(n int) ([][]float64, [][]float64) {
	rng := rand.New(rand.NewPCG(7, 7))
	x := make([][]float64, n)
	y := make([][]float64, n)
	for i := range x {
		a, b := rng.Float64()*10, rng.Float64()
		x[i] = []float64{a, b}
		if a > 5 {
			y[i] = []float64{100 + b, 1}
		} else {
			y[i] = []float64{10 + b, 0}
		}
	}
	return x, y
}

func smallConfig() Config {
	cfg := DefaultConfig()
	cfg.Trees = 12
	return cfg
}

func TestFitAndPredict(t *testing.T) {
	x, y := synthetic(200)

	f, err := Fit(context.Background(), x, y, smallConfig(), nil)
	require.NoError(t, err)
	require.Len(t, f.Trees, 12)
	assert.Equal(t, 2, f.Features)
	assert.Equal(t, 2, f.Outputs)

	high, err := f.Predict([]float64{8, 0.5})
	require.NoError(t, err)
	assert.InDelta(t, 100.5, high[0], 1.5)
	assert.InDelta(t, 1, high[1], 0.05)

	low, err := f.Predict([]float64{2, 0.5})
	require.NoError(t, err)
	assert.InDelta(t, 10.5, low[0], 1.5)
	assert.InDelta(t, 0, low[1], 0.05)

	score, err := f.Score(x, y)
	require.NoError(t, err)
	assert.Greater(t, score, 0.95)
	assert.NoError(t, f.Validate())
}

func TestFitIsDeterministicAcrossWorkers(t *testing.T) {
	x, y := synthetic(150)

	serial := smallConfig()
	serial.Workers = 1
	parallel := smallConfig()
	parallel.Workers = 4

	a, err := Fit(context.Background(), x, y, serial, nil)
	require.NoError(t, err)
	b, err := Fit(context.Background(), x, y, parallel, nil)
	require.NoError(t, err)

	assert.Equal(t, a, b)

	other := smallConfig()
	other.Seed = 99
	c, err := Fit(context.Background(), x, y, other, nil)
	require.NoError(t, err)
	assert.NotEqual(t, a.Trees, c.Trees)
}

func TestFitReportsProgress(t *testing.T) {
	x, y := synthetic(50)

	var calls atomic.Int32
	_, err := Fit(context.Background(), x, y, smallConfig(), func() { calls.Add(1) })
	require.NoError(t, err)
	assert.Equal(t, int32(12), calls.Load())
}

func TestFitRespectsCancellation(t *testing.T) {
	x, y := synthetic(50)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Fit(ctx, x, y, smallConfig(), nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFitRejectsBadShapes(t *testing.T) {
	tests := []struct {
		name string
		x    [][]float64
		y    [][]float64
	}{
		{name: "empty", x: nil, y: nil},
		{name: "row mismatch", x: [][]float64{{1}, {2}}, y: [][]float64{{1}}},
		{name: "ragged features", x: [][]float64{{1, 2}, {3}}, y: [][]float64{{1}, {2}}},
		{name: "ragged targets", x: [][]float64{{1}, {2}}, y: [][]float64{{1}, {2, 3}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Fit(context.Background(), tt.x, tt.y, smallConfig(), nil)
			assert.Error(t, err)
		})
	}
}

func TestMaxDepthLimitsTrees(t *testing.T) {
	x, y := synthetic(200)
	cfg := smallConfig()
	cfg.MaxDepth = 3

	f, err := Fit(context.Background(), x, y, cfg, nil)
	require.NoError(t, err)
	for _, tree := range f.Trees {
		assert.LessOrEqual(t, tree.Depth(), 3)
	}
}

func TestMinSamplesLeaf(t *testing.T) {
	x, y := synthetic(100)
	cfg := smallConfig()
	cfg.MinSamplesLeaf = 10
	cfg.Trees = 1

	f, err := Fit(context.Background(), x, y, cfg, nil)
	require.NoError(t, err)

	// Each leaf must be reached by at least ten bootstrap rows, so a single
	// tree cannot have more leaves than rows divided by ten.
	leaves := 0
	for _, n := range f.Trees[0].Nodes {
		if n.IsLeaf() {
			leaves++
		}
	}
	assert.LessOrEqual(t, leaves, 10)
}

func TestConstantTargetsProduceSingleLeaf(t *testing.T) {
	x := [][]float64{{1}, {2}, {3}, {4}}
	y := [][]float64{{5, 5}, {5, 5}, {5, 5}, {5, 5}}

	f, err := Fit(context.Background(), x, y, smallConfig(), nil)
	require.NoError(t, err)
	for _, tree := range f.Trees {
		assert.Len(t, tree.Nodes, 1)
	}

	pred, err := f.Predict([]float64{10})
	require.NoError(t, err)
	assert.Equal(t, []float64{5, 5}, pred)
}

func TestPredictWrongWidth(t *testing.T) {
	x, y := synthetic(30)
	f, err := Fit(context.Background(), x, y, smallConfig(), nil)
	require.NoError(t, err)

	_, err = f.Predict([]float64{1})
	assert.Error(t, err)
}

func TestJSONRoundTripPreservesPredictions(t *testing.T) {
	x, y := synthetic(80)
	f, err := Fit(context.Background(), x, y, smallConfig(), nil)
	require.NoError(t, err)

	data, err := json.Marshal(f)
	require.NoError(t, err)

	var restored Forest
	require.NoError(t, json.Unmarshal(data, &restored))
	require.NoError(t, restored.Validate())

	for _, row := range x[:10] {
		want, err := f.Predict(row)
		require.NoError(t, err)
		got, err := restored.Predict(row)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestValidateRejectsCorruptForests(t *testing.T) {
	leaf := Node{Value: []float64{1}}

	tests := []struct {
		name   string
		forest *Forest
	}{
		{name: "nil", forest: nil},
		{name: "no trees", forest: &Forest{Features: 1, Outputs: 1}},
		{name: "bad shape", forest: &Forest{Trees: []Tree{{Nodes: []Node{leaf}}}}},
		{name: "empty tree", forest: &Forest{Trees: []Tree{{}}, Features: 1, Outputs: 1}},
		{
			name:   "short leaf",
			forest: &Forest{Trees: []Tree{{Nodes: []Node{{Value: []float64{}}}}}, Features: 1, Outputs: 1},
		},
		{
			name: "feature out of range",
			forest: &Forest{Trees: []Tree{{Nodes: []Node{
				{Feature: 3, Left: 1, Right: 2}, leaf, leaf,
			}}}, Features: 1, Outputs: 1},
		},
		{
			name: "dangling child",
			forest: &Forest{Trees: []Tree{{Nodes: []Node{
				{Left: 1, Right: 5}, leaf,
			}}}, Features: 1, Outputs: 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, tt.forest.Validate())
		})
	}
}
