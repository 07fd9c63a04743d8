package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/khulafarming/yieldcast/internal/common"
)

// ManagedClient wraps a provider with rate limiting and retry. Close fails
// any call still waiting for a rate limit token.
type ManagedClient struct {
	inner    Client
	limiter  *rateLimiter
	logger   *slog.Logger
	provider string
	retry    common.RetryOptions
}

// NewClient creates a rate-limited, retrying client for cfg.Provider.
func NewClient(ctx context.Context, cfg Config, logger *slog.Logger) (*ManagedClient, error) {
	var (
		inner Client
		err   error
	)

	provider := strings.ToLower(cfg.Provider)
	switch provider {
	case ProviderGemini, "":
		provider = ProviderGemini
		inner, err = newGeminiClient(ctx, cfg)
	case ProviderOpenAI:
		inner, err = newOpenAIClient(cfg)
	case ProviderAnthropic:
		inner, err = newAnthropicClient(cfg)
	default:
		return nil, fmt.Errorf("unsupported LLM provider %q: %w", cfg.Provider, common.ErrInvalidConfig)
	}
	if err != nil {
		return nil, err
	}

	return Wrap(inner, provider, cfg, logger), nil
}

// Wrap adds rate limiting and retry to an existing client.
func Wrap(inner Client, provider string, cfg Config, logger *slog.Logger) *ManagedClient {
	if logger == nil {
		logger = slog.Default()
	}

	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}
	retryDelay := cfg.RetryDelay
	if retryDelay <= 0 {
		retryDelay = time.Second
	}

	logger = logger.With("component", "llm", "provider", provider)
	return &ManagedClient{
		inner:    inner,
		limiter:  newRateLimiter(cfg.RateLimit),
		logger:   logger,
		provider: provider,
		retry: common.RetryOptions{
			Logger:       logger,
			Operation:    provider + " generate",
			MaxAttempts:  maxRetries,
			InitialDelay: retryDelay,
			MaxDelay:     30 * time.Second,
			Multiplier:   2.0,
		},
	}
}

// Provider returns the provider name.
func (c *ManagedClient) Provider() string {
	return c.provider
}

// Generate waits for a rate limit token and calls the provider, retrying
// transient failures.
func (c *ManagedClient) Generate(ctx context.Context, prompt string) (string, error) {
	var text string
	start := time.Now()

	err := common.WithRetry(ctx, func() error {
		if err := c.limiter.wait(ctx); err != nil {
			return &common.RetryableError{Err: err, Retryable: false}
		}
		var genErr error
		text, genErr = c.inner.Generate(ctx, prompt)
		return genErr
	}, c.retry)
	if err != nil {
		return "", err
	}

	c.logger.Debug("Generated text", "chars", len(text), "duration", time.Since(start))
	return text, nil
}

// Close releases callers blocked on the rate limiter.
func (c *ManagedClient) Close() {
	c.limiter.Close()
}
