package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	config, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8080", config.ServerAddress)
	assert.Equal(t, "postgres", config.DBDriver)
	assert.Equal(t, 10, config.PredictMaxMissingSignals)
	assert.Equal(t, 5, config.ExplainMaxItems)
	assert.Equal(t, 20, config.SearchDefaultLimit)
	assert.Equal(t, 0.15, config.SearchSimilarityThreshold)
	assert.Equal(t, 5*time.Second, config.PredictTimeout)
	assert.False(t, config.CacheEnabled)
}

func TestLoadConfig_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	content := "DB_DRIVER=sqlite\nDB_SOURCE=file:places.db\nSEARCH_DEFAULT_LIMIT=10\nCACHE_ENABLED=true\nCACHE_TTL=30s\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app.env"), []byte(content), 0o644))
	t.Setenv("SEARCH_DEFAULT_LIMIT", "15")

	config, err := LoadConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, "sqlite", config.DBDriver)
	assert.Equal(t, "file:places.db", config.DBSource)
	assert.Equal(t, 15, config.SearchDefaultLimit)
	assert.True(t, config.CacheEnabled)
	assert.Equal(t, 30*time.Second, config.CacheTTL)
	assert.Equal(t, []string{"http://localhost:3000", "http://127.0.0.1:3000"}, config.CORSAllowedOrigins)
}

func TestLoadConfig_CORSOriginsFromEnv(t *testing.T) {
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://stillopen.example,https://admin.stillopen.example")

	config, err := LoadConfig(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, []string{"https://stillopen.example", "https://admin.stillopen.example"}, config.CORSAllowedOrigins)
}

func TestLoadConfig_Invalid(t *testing.T) {
	t.Setenv("DB_DRIVER", "mysql")
	_, err := LoadConfig(t.TempDir())
	assert.ErrorContains(t, err, "DB_DRIVER")
}

func TestConfig_Validate(t *testing.T) {
	valid, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"log format", func(c *Config) { c.LogFormat = "xml" }},
		{"pool size", func(c *Config) { c.DBPoolSize = 0 }},
		{"default above max", func(c *Config) { c.SearchDefaultLimit = c.SearchMaxLimit + 1 }},
		{"threshold", func(c *Config) { c.SearchSimilarityThreshold = 1.5 }},
		{"proximity weight", func(c *Config) { c.SearchProximityWeight = 1 }},
		{"cache ttl", func(c *Config) { c.CacheEnabled = true; c.CacheTTL = 0 }},
		{"zero missing signals", func(c *Config) { c.PredictMaxMissingSignals = 0 }},
		{"zero threshold", func(c *Config) { c.SearchSimilarityThreshold = 0 }},
		{"zero explain magnitude", func(c *Config) { c.ExplainMinMagnitude = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid
			tt.mutate(&c)
			assert.Error(t, c.Validate())
		})
	}
}
