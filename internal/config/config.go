package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/khulafarming/yieldcast/internal/common"
	"github.com/khulafarming/yieldcast/internal/forest"
	"github.com/khulafarming/yieldcast/internal/llm"
	"github.com/khulafarming/yieldcast/internal/modifier"
	"github.com/khulafarming/yieldcast/internal/regression"
)

// EnvPrefix is the prefix for environment overrides, e.g. YIELDCAST_MODEL_DIR.
const EnvPrefix = "YIELDCAST"

// Config is the resolved application configuration.
type Config struct {
	Logging  LoggingConfig
	Model    ModelConfig
	Training TrainingConfig
	Database DatabaseConfig
	Forecast ForecastConfig
	Advisor  AdvisorConfig
}

// LoggingConfig selects the slog handler.
type LoggingConfig struct {
	Level  string
	Format string
}

// ModelConfig controls where artifacts live and how the forest is grown.
type ModelConfig struct {
	Dir             string
	Trees           int
	MaxDepth        int
	MinSamplesSplit int
	MinSamplesLeaf  int
	Workers         int
	Seed            uint64
	TestFraction    float64
}

// TrainingConfig picks the training data.
type TrainingConfig struct {
	Data    string // CSV path; empty means simulated
	Samples int
	Seed    uint64
}

// DatabaseConfig locates the history database.
type DatabaseConfig struct {
	Path string
}

// ForecastConfig toggles the two month effects.
type ForecastConfig struct {
	MonthFeatureShift bool
	MonthOutputScale  bool
}

// AdvisorConfig configures recommendation generation.
type AdvisorConfig struct {
	Provider    string
	Model       string
	APIKey      string
	BaseURL     string
	Temperature float64
	MaxTokens   int
	CacheTTL    time.Duration
	RateLimit   int
	MaxRetries  int
	RetryDelay  time.Duration
}

// apiKeyEnv maps providers to their conventional key variables.
var apiKeyEnv = map[string]string{
	llm.ProviderGemini:    "GOOGLE_API_KEY",
	llm.ProviderOpenAI:    "OPENAI_API_KEY",
	llm.ProviderAnthropic: "ANTHROPIC_API_KEY",
}

// SetDefaults registers every default on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	v.SetDefault("model.dir", DataPath("model"))
	v.SetDefault("model.trees", 100)
	v.SetDefault("model.max_depth", 0)
	v.SetDefault("model.min_samples_split", 2)
	v.SetDefault("model.min_samples_leaf", 1)
	v.SetDefault("model.workers", 0)
	v.SetDefault("model.seed", 42)
	v.SetDefault("model.test_fraction", 0.2)

	v.SetDefault("training.data", "")
	v.SetDefault("training.samples", regression.DefaultSimulatedSamples)
	v.SetDefault("training.seed", 42)

	v.SetDefault("database.path", DataPath("yieldcast.db"))

	v.SetDefault("forecast.month_feature_shift", true)
	v.SetDefault("forecast.month_output_scale", true)

	v.SetDefault("advisor.provider", llm.ProviderGemini)
	v.SetDefault("advisor.model", "")
	v.SetDefault("advisor.api_key", "")
	v.SetDefault("advisor.base_url", "")
	v.SetDefault("advisor.temperature", 0.4)
	v.SetDefault("advisor.max_tokens", 1024)
	v.SetDefault("advisor.cache_ttl", 24*time.Hour)
	v.SetDefault("advisor.rate_limit", 30)
	v.SetDefault("advisor.max_retries", 3)
	v.SetDefault("advisor.retry_delay", time.Second)

	v.SetDefault("sheets.spreadsheet_name", "Yield Forecasts")
	v.SetDefault("sheets.timezone", "Africa/Johannesburg")
	v.SetDefault("sheets.batch_size", 1000)
}

// Load reads the configuration from v. Defaults must already be set.
func Load(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Logging: LoggingConfig{
			Level:  v.GetString("logging.level"),
			Format: v.GetString("logging.format"),
		},
		Model: ModelConfig{
			Dir:             ExpandPath(v.GetString("model.dir")),
			Trees:           v.GetInt("model.trees"),
			MaxDepth:        v.GetInt("model.max_depth"),
			MinSamplesSplit: v.GetInt("model.min_samples_split"),
			MinSamplesLeaf:  v.GetInt("model.min_samples_leaf"),
			Workers:         v.GetInt("model.workers"),
			Seed:            v.GetUint64("model.seed"),
			TestFraction:    v.GetFloat64("model.test_fraction"),
		},
		Training: TrainingConfig{
			Data:    ExpandPath(v.GetString("training.data")),
			Samples: v.GetInt("training.samples"),
			Seed:    v.GetUint64("training.seed"),
		},
		Database: DatabaseConfig{
			Path: ExpandPath(v.GetString("database.path")),
		},
		Forecast: ForecastConfig{
			MonthFeatureShift: v.GetBool("forecast.month_feature_shift"),
			MonthOutputScale:  v.GetBool("forecast.month_output_scale"),
		},
		Advisor: AdvisorConfig{
			Provider:    strings.ToLower(v.GetString("advisor.provider")),
			Model:       v.GetString("advisor.model"),
			APIKey:      v.GetString("advisor.api_key"),
			BaseURL:     v.GetString("advisor.base_url"),
			Temperature: v.GetFloat64("advisor.temperature"),
			MaxTokens:   v.GetInt("advisor.max_tokens"),
			CacheTTL:    v.GetDuration("advisor.cache_ttl"),
			RateLimit:   v.GetInt("advisor.rate_limit"),
			MaxRetries:  v.GetInt("advisor.max_retries"),
			RetryDelay:  v.GetDuration("advisor.retry_delay"),
		},
	}

	if cfg.Advisor.APIKey == "" {
		if env, ok := apiKeyEnv[cfg.Advisor.Provider]; ok {
			cfg.Advisor.APIKey = os.Getenv(env)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects values no component can work with.
func (c *Config) Validate() error {
	switch {
	case c.Model.Dir == "":
		return fmt.Errorf("model.dir is empty: %w", common.ErrInvalidConfig)
	case c.Model.Trees <= 0:
		return fmt.Errorf("model.trees must be positive, got %d: %w", c.Model.Trees, common.ErrInvalidConfig)
	case c.Model.MaxDepth < 0:
		return fmt.Errorf("model.max_depth cannot be negative: %w", common.ErrInvalidConfig)
	case c.Model.MinSamplesLeaf < 1:
		return fmt.Errorf("model.min_samples_leaf must be at least 1: %w", common.ErrInvalidConfig)
	case c.Model.TestFraction <= 0 || c.Model.TestFraction >= 1:
		return fmt.Errorf("model.test_fraction must be in (0, 1), got %g: %w", c.Model.TestFraction, common.ErrInvalidConfig)
	case c.Training.Samples < regression.MinTrainingRecords:
		return fmt.Errorf("training.samples must be at least %d: %w", regression.MinTrainingRecords, common.ErrInvalidConfig)
	case c.Database.Path == "":
		return fmt.Errorf("database.path is empty: %w", common.ErrInvalidConfig)
	}
	if _, ok := apiKeyEnv[c.Advisor.Provider]; !ok {
		return fmt.Errorf("unknown advisor.provider %q: %w", c.Advisor.Provider, common.ErrInvalidConfig)
	}
	return nil
}

// Regression returns the regression wrapper configuration.
func (c *Config) Regression() regression.Config {
	return regression.Config{
		Dir: c.Model.Dir,
		Forest: forest.Config{
			Trees:           c.Model.Trees,
			MaxDepth:        c.Model.MaxDepth,
			MinSamplesSplit: c.Model.MinSamplesSplit,
			MinSamplesLeaf:  c.Model.MinSamplesLeaf,
			Workers:         c.Model.Workers,
			Seed:            c.Model.Seed,
		},
		TestFraction: c.Model.TestFraction,
		SplitSeed:    c.Model.Seed,
	}
}

// Modifier returns the month effect toggles.
func (c *Config) Modifier() modifier.Options {
	return modifier.Options{
		MonthFeatureShift: c.Forecast.MonthFeatureShift,
		MonthOutputScale:  c.Forecast.MonthOutputScale,
	}
}

// LLM returns the provider configuration.
func (c *Config) LLM() llm.Config {
	return llm.Config{
		Provider:    c.Advisor.Provider,
		APIKey:      c.Advisor.APIKey,
		Model:       c.Advisor.Model,
		BaseURL:     c.Advisor.BaseURL,
		MaxRetries:  c.Advisor.MaxRetries,
		RetryDelay:  c.Advisor.RetryDelay,
		RateLimit:   c.Advisor.RateLimit,
		Temperature: c.Advisor.Temperature,
		MaxTokens:   c.Advisor.MaxTokens,
	}
}
