// Package advisor turns predictions and resource plans into written farming
// recommendations, caching the generated text per location.
package advisor

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/khulafarming/yieldcast/internal/common"
	"github.com/khulafarming/yieldcast/internal/forecast"
	"github.com/khulafarming/yieldcast/internal/llm"
	"github.com/khulafarming/yieldcast/internal/model"
	"github.com/khulafarming/yieldcast/internal/resources"
	"github.com/khulafarming/yieldcast/internal/service"
)

// DefaultCacheTTL is how long generated advice stays fresh.
const DefaultCacheTTL = 24 * time.Hour

// Cache key prefixes.
const (
	kindYield    = "yield"
	kindResource = "resources"
)

// YieldRequest describes the prediction to advise on.
type YieldRequest struct {
	Location     string
	PlantType    string
	PlotSize     string
	HarvestMonth string
	Result       model.PredictionResult
}

// NewYieldRequest builds a request from a resolved forecast input.
func NewYieldRequest(r forecast.Resolved, result model.PredictionResult) YieldRequest {
	req := YieldRequest{
		Location:  r.Location,
		PlantType: r.PlantType,
		PlotSize:  fmt.Sprintf("%s (%g %s)", r.PlotSize.Name, r.PlotSizeValue, r.PlotSize.Unit),
		Result:    result,
	}
	if r.Harvest != nil {
		req.HarvestMonth = r.Harvest.Name
	}
	return req
}

// Advisor generates recommendations through an llm.Client.
type Advisor struct {
	client llm.Client
	cache  service.TextCache
	logger *slog.Logger
	ttl    time.Duration
}

// Option configures an Advisor.
type Option func(*Advisor)

// WithCache stores generated text in cache.
func WithCache(cache service.TextCache) Option {
	return func(a *Advisor) { a.cache = cache }
}

// WithTTL sets how long cached text is reused.
func WithTTL(ttl time.Duration) Option {
	return func(a *Advisor) {
		if ttl > 0 {
			a.ttl = ttl
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Advisor) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// New creates an advisor.
func New(client llm.Client, opts ...Option) *Advisor {
	a := &Advisor{
		client: client,
		ttl:    DefaultCacheTTL,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.logger = a.logger.With("component", "advisor")
	return a
}

// YieldAdvice returns recommendations for a prediction.
func (a *Advisor) YieldAdvice(ctx context.Context, req YieldRequest) (string, error) {
	return a.generate(ctx, kindYield, req.Location, yieldPrompt(req))
}

// ResourceAdvice returns recommendations for a resource plan. A nil budget
// means no budget was given.
func (a *Advisor) ResourceAdvice(ctx context.Context, calc *resources.Calculation, location string, budget *decimal.Decimal) (string, error) {
	if calc == nil {
		return "", fmt.Errorf("resource calculation is required")
	}
	return a.generate(ctx, kindResource, location, resourcePrompt(calc, location, budget))
}

func (a *Advisor) generate(ctx context.Context, kind, location, prompt string) (string, error) {
	if a.client == nil {
		return "", fmt.Errorf("no recommendation provider configured: %w", common.ErrMissingConfig)
	}

	location = cacheLocation(location)
	key := cacheKey(kind, prompt)

	if a.cache != nil {
		entry, err := a.cache.GetCachedText(ctx, location, key, a.ttl)
		switch {
		case err == nil:
			a.logger.Debug("using cached recommendation", "kind", kind, "location", location)
			return entry.Content, nil
		case !errors.Is(err, common.ErrNotFound):
			a.logger.Warn("recommendation cache lookup failed", "error", err)
		}
	}

	start := time.Now()
	text, err := a.client.Generate(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("failed to generate %s recommendations: %w", kind, err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("provider returned empty %s recommendations", kind)
	}

	a.logger.Info("generated recommendation",
		"kind", kind,
		"location", location,
		"duration", time.Since(start))

	if a.cache != nil {
		err := a.cache.PutCachedText(ctx, &model.CachedText{
			Location: location,
			Key:      key,
			Content:  text,
		})
		if err != nil {
			a.logger.Warn("failed to cache recommendation", "error", err)
		}
	}
	return text, nil
}

func cacheKey(kind, prompt string) string {
	sum := sha256.Sum256([]byte(prompt))
	return kind + ":" + hex.EncodeToString(sum[:16])
}

func cacheLocation(location string) string {
	location = strings.ToLower(strings.TrimSpace(location))
	if location == "" {
		return "unspecified"
	}
	return location
}
