package advisor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/khulafarming/yieldcast/internal/common"
	"github.com/khulafarming/yieldcast/internal/forecast"
	"github.com/khulafarming/yieldcast/internal/model"
	"github.com/khulafarming/yieldcast/internal/resources"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type mockClient struct {
	err     error
	reply   string
	prompts []string
	mu      sync.Mutex
}

func (m *mockClient) Generate(_ context.Context, prompt string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prompts = append(m.prompts, prompt)
	if m.err != nil {
		return "", m.err
	}
	return m.reply, nil
}

func (m *mockClient) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.prompts)
}

type memoryCache struct {
	entries map[string]model.CachedText
	getErr  error
	now     func() time.Time
	mu      sync.Mutex
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: make(map[string]model.CachedText), now: time.Now}
}

func (c *memoryCache) GetCachedText(_ context.Context, location, key string, maxAge time.Duration) (*model.CachedText, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return nil, c.getErr
	}
	e, ok := c.entries[location+"|"+key]
	if !ok || c.now().Sub(e.CreatedAt) > maxAge {
		return nil, common.ErrNotFound
	}
	return &e, nil
}

func (c *memoryCache) PutCachedText(_ context.Context, entry *model.CachedText) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	e := *entry
	if e.CreatedAt.IsZero() {
		e.CreatedAt = c.now()
	}
	c.entries[e.Location+"|"+e.Key] = e
	return nil
}

func sampleYield() YieldRequest {
	return YieldRequest{
		Location:     "Bloemfontein",
		PlantType:    "Maize",
		PlotSize:     "Medium (210 m²)",
		HarvestMonth: "May",
		Result:       model.PredictionResult{YieldPrediction: 0.63, YieldPerHectare: 30, SuccessRating: 7.5},
	}
}

func TestYieldAdviceCaches(t *testing.T) {
	client := &mockClient{reply: "  ## Plan\nWater early.  "}
	cache := newMemoryCache()
	a := New(client, WithCache(cache))

	ctx := context.Background()
	text, err := a.YieldAdvice(ctx, sampleYield())
	require.NoError(t, err)
	assert.Equal(t, "## Plan\nWater early.", text)

	again, err := a.YieldAdvice(ctx, sampleYield())
	require.NoError(t, err)
	assert.Equal(t, text, again)
	assert.Equal(t, 1, client.calls())

	// a different location misses the cache
	other := sampleYield()
	other.Location = "Durban"
	_, err = a.YieldAdvice(ctx, other)
	require.NoError(t, err)
	assert.Equal(t, 2, client.calls())
}

func TestYieldAdviceExpiredCache(t *testing.T) {
	client := &mockClient{reply: "advice"}
	cache := newMemoryCache()
	a := New(client, WithCache(cache), WithTTL(time.Hour))

	ctx := context.Background()
	_, err := a.YieldAdvice(ctx, sampleYield())
	require.NoError(t, err)

	cache.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = a.YieldAdvice(ctx, sampleYield())
	require.NoError(t, err)
	assert.Equal(t, 2, client.calls())
}

func TestAdviceErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("provider failure", func(t *testing.T) {
		cache := newMemoryCache()
		a := New(&mockClient{err: common.ErrRateLimit}, WithCache(cache))
		_, err := a.YieldAdvice(ctx, sampleYield())
		assert.ErrorIs(t, err, common.ErrRateLimit)
		assert.Empty(t, cache.entries)
	})

	t.Run("empty reply", func(t *testing.T) {
		a := New(&mockClient{reply: "   "})
		_, err := a.YieldAdvice(ctx, sampleYield())
		assert.Error(t, err)
	})

	t.Run("no client", func(t *testing.T) {
		a := New(nil)
		_, err := a.YieldAdvice(ctx, sampleYield())
		assert.ErrorIs(t, err, common.ErrMissingConfig)
	})

	t.Run("broken cache falls through", func(t *testing.T) {
		cache := newMemoryCache()
		cache.getErr = errors.New("disk gone")
		client := &mockClient{reply: "advice"}
		a := New(client, WithCache(cache))
		text, err := a.YieldAdvice(ctx, sampleYield())
		require.NoError(t, err)
		assert.Equal(t, "advice", text)
	})
}

func TestYieldPrompt(t *testing.T) {
	p := yieldPrompt(sampleYield())

	assert.Contains(t, p, "Location: Bloemfontein")
	assert.Contains(t, p, "Harvest Month: May")
	assert.Contains(t, p, "- Predicted Yield: 30.00 tons per hectare")
	assert.Contains(t, p, "- Success Rating: 7.5/10")
	assert.Contains(t, p, "WAKEFIELD")
	assert.Contains(t, p, upsell)

	req := sampleYield()
	req.HarvestMonth = ""
	assert.Contains(t, yieldPrompt(req), "Harvest Month: not specified")
}

func TestResourceAdviceBudgetWarning(t *testing.T) {
	catalog, err := resources.DefaultCatalog()
	require.NoError(t, err)
	calc, err := catalog.Calculate("maize", 1, "medium", "drip")
	require.NoError(t, err)

	tests := []struct {
		name        string
		budget      *decimal.Decimal
		wantWarning bool
	}{
		{"no budget", nil, false},
		{"enough", ptr(decimal.NewFromInt(10000)), false},
		{"short", ptr(decimal.NewFromInt(2000)), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &mockClient{reply: "advice"}
			a := New(client)
			_, err := a.ResourceAdvice(context.Background(), calc, "Free State", tt.budget)
			require.NoError(t, err)
			require.Equal(t, 1, client.calls())

			prompt := client.prompts[0]
			assert.Contains(t, prompt, "- Total estimated cost: R6385.00")
			if tt.wantWarning {
				assert.Contains(t, prompt, "IMPORTANT: The budget (R2000.00) is below estimated costs (R6385.00).")
			} else {
				assert.NotContains(t, prompt, "IMPORTANT")
			}
			if tt.budget != nil {
				assert.Contains(t, prompt, "- Budget: R")
			}
		})
	}

	_, err = New(&mockClient{reply: "x"}).ResourceAdvice(context.Background(), nil, "", nil)
	assert.Error(t, err)
}

func TestNewYieldRequest(t *testing.T) {
	may, err := model.LookupMonth("May")
	require.NoError(t, err)
	plot, err := model.LookupPlotSize(model.PlotMedium)
	require.NoError(t, err)

	req := NewYieldRequest(forecast.Resolved{
		Location:      "Polokwane",
		PlantType:     "Maize",
		Harvest:       &may,
		PlotSize:      plot,
		PlotSizeValue: 250,
	}, model.PredictionResult{SuccessRating: 6})

	assert.Equal(t, "May", req.HarvestMonth)
	assert.Equal(t, "Medium (250 "+plot.Unit+")", req.PlotSize)
	assert.InDelta(t, 6, req.Result.SuccessRating, 1e-9)
}

func TestCacheKeyStable(t *testing.T) {
	assert.Equal(t, cacheKey(kindYield, "a"), cacheKey(kindYield, "a"))
	assert.NotEqual(t, cacheKey(kindYield, "a"), cacheKey(kindResource, "a"))
	assert.Equal(t, "unspecified", cacheLocation("  "))
	assert.Equal(t, "durban", cacheLocation(" Durban"))
}

func ptr[T any](v T) *T { return &v }
