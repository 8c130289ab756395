package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config stores all configuration of the application.
// The values are read by viper from a config file or environment variables.
type Config struct {
	ServerAddress string `mapstructure:"SERVER_ADDRESS"`
	GinMode       string `mapstructure:"GIN_MODE"`
	LogLevel      string `mapstructure:"LOG_LEVEL"`
	LogFormat     string `mapstructure:"LOG_FORMAT"`

	DBDriver   string `mapstructure:"DB_DRIVER"`
	DBSource   string `mapstructure:"DB_SOURCE"`
	DBPoolSize int    `mapstructure:"DB_POOL_SIZE"`

	ModelPath     string `mapstructure:"MODEL_PATH"`
	ModelRequired bool   `mapstructure:"MODEL_REQUIRED"`

	PredictMaxMissingSignals  int           `mapstructure:"PREDICT_MAX_MISSING_SIGNALS"`
	PredictRecencyHorizonDays int           `mapstructure:"PREDICT_RECENCY_HORIZON_DAYS"`
	PredictTimeout            time.Duration `mapstructure:"PREDICT_TIMEOUT"`
	ExplainMaxItems           int           `mapstructure:"EXPLAIN_MAX_ITEMS"`
	ExplainMinMagnitude       float64       `mapstructure:"EXPLAIN_MIN_MAGNITUDE"`
	SearchDefaultLimit        int           `mapstructure:"SEARCH_DEFAULT_LIMIT"`
	SearchMaxLimit            int           `mapstructure:"SEARCH_MAX_LIMIT"`
	SearchMinQueryLength      int           `mapstructure:"SEARCH_MIN_QUERY_LENGTH"`
	SearchSimilarityThreshold float64       `mapstructure:"SEARCH_SIMILARITY_THRESHOLD"`
	SearchProximityWeight     float64       `mapstructure:"SEARCH_PROXIMITY_WEIGHT"`
	SearchConcurrency         int           `mapstructure:"SEARCH_CONCURRENCY"`

	CacheEnabled bool          `mapstructure:"CACHE_ENABLED"`
	CacheTTL     time.Duration `mapstructure:"CACHE_TTL"`

	RateLimitRPS   float64 `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst int     `mapstructure:"RATE_LIMIT_BURST"`

	CORSAllowedOrigins []string `mapstructure:"CORS_ALLOWED_ORIGINS"`
}

var defaults = map[string]any{
	"SERVER_ADDRESS": "0.0.0.0:8080",
	"GIN_MODE":       "release",
	"LOG_LEVEL":      "info",
	"LOG_FORMAT":     "json",

	"DB_DRIVER":    "postgres",
	"DB_SOURCE":    "",
	"DB_POOL_SIZE": 10,

	"MODEL_PATH":     "models/open_model.bin",
	"MODEL_REQUIRED": false,

	"PREDICT_MAX_MISSING_SIGNALS":  10,
	"PREDICT_RECENCY_HORIZON_DAYS": 1825,
	"PREDICT_TIMEOUT":              "5s",
	"EXPLAIN_MAX_ITEMS":            5,
	"EXPLAIN_MIN_MAGNITUDE":        1e-3,
	"SEARCH_DEFAULT_LIMIT":         20,
	"SEARCH_MAX_LIMIT":             100,
	"SEARCH_MIN_QUERY_LENGTH":      2,
	"SEARCH_SIMILARITY_THRESHOLD":  0.15,
	"SEARCH_PROXIMITY_WEIGHT":      0.2,
	"SEARCH_CONCURRENCY":           8,

	"CACHE_ENABLED": false,
	"CACHE_TTL":     "5m",

	"RATE_LIMIT_RPS":   50.0,
	"RATE_LIMIT_BURST": 100,

	"CORS_ALLOWED_ORIGINS": "http://localhost:3000,http://127.0.0.1:3000",
}

// LoadConfig reads configuration from app.env in path, if present, and
// from environment variables, which take precedence.
func LoadConfig(path string) (config Config, err error) {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("app")
	v.SetConfigType("env")
	v.AutomaticEnv()

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if err = v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return config, fmt.Errorf("config: read: %w", err)
		}
	}

	if err = v.Unmarshal(&config); err != nil {
		return config, fmt.Errorf("config: unmarshal: %w", err)
	}
	if err = config.Validate(); err != nil {
		return config, err
	}
	return config, nil
}

// Validate rejects values the services cannot run with.
func (c Config) Validate() error {
	switch c.DBDriver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("config: DB_DRIVER must be postgres or sqlite, got %q", c.DBDriver)
	}
	switch c.LogFormat {
	case "json", "console":
	default:
		return fmt.Errorf("config: LOG_FORMAT must be json or console, got %q", c.LogFormat)
	}
	if c.DBPoolSize < 1 {
		return fmt.Errorf("config: DB_POOL_SIZE must be positive")
	}
	if c.PredictMaxMissingSignals < 1 {
		return fmt.Errorf("config: PREDICT_MAX_MISSING_SIGNALS must be positive")
	}
	if c.PredictRecencyHorizonDays < 1 {
		return fmt.Errorf("config: PREDICT_RECENCY_HORIZON_DAYS must be positive")
	}
	if c.ExplainMaxItems < 1 {
		return fmt.Errorf("config: EXPLAIN_MAX_ITEMS must be positive")
	}
	if c.ExplainMinMagnitude <= 0 {
		return fmt.Errorf("config: EXPLAIN_MIN_MAGNITUDE must be positive")
	}
	if c.SearchDefaultLimit < 1 || c.SearchDefaultLimit > c.SearchMaxLimit {
		return fmt.Errorf("config: SEARCH_DEFAULT_LIMIT must be in [1, SEARCH_MAX_LIMIT]")
	}
	if c.SearchMinQueryLength < 1 {
		return fmt.Errorf("config: SEARCH_MIN_QUERY_LENGTH must be positive")
	}
	if c.SearchSimilarityThreshold <= 0 || c.SearchSimilarityThreshold > 1 {
		return fmt.Errorf("config: SEARCH_SIMILARITY_THRESHOLD must be in (0, 1]")
	}
	if c.SearchProximityWeight < 0 || c.SearchProximityWeight >= 1 {
		return fmt.Errorf("config: SEARCH_PROXIMITY_WEIGHT must be in [0, 1)")
	}
	if c.SearchConcurrency < 1 {
		return fmt.Errorf("config: SEARCH_CONCURRENCY must be positive")
	}
	if c.CacheEnabled && c.CacheTTL <= 0 {
		return fmt.Errorf("config: CACHE_TTL must be positive when the cache is enabled")
	}
	if c.RateLimitRPS < 0 || c.RateLimitBurst < 0 {
		return fmt.Errorf("config: rate limits must not be negative")
	}
	return nil
}
