package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/moviemesh/logging"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("OPENROUTER_API_KEY", "or-key")
	t.Setenv("TMDB_API_TOKEN", "tmdb-token")
}

func TestLoad_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "or-key", cfg.OpenRouterAPIKey)
	assert.Equal(t, "tmdb-token", cfg.TMDBAPIToken)
	assert.Equal(t, ProviderOpenAI, cfg.Provider)
	assert.Equal(t, DefaultPort, cfg.Port)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, logging.LogLevelInfo, cfg.Level())
}

func TestLoad_MissingRequiredVars(t *testing.T) {
	t.Setenv("OPENROUTER_API_KEY", "")
	t.Setenv("TMDB_API_TOKEN", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "OPENROUTER_API_KEY")
	assert.Contains(t, err.Error(), "TMDB_API_TOKEN")
}

func TestLoad_AnthropicProvider(t *testing.T) {
	t.Setenv("MODEL_PROVIDER", "anthropic")
	t.Setenv("TMDB_API_TOKEN", "tmdb-token")
	t.Setenv("OPENROUTER_API_KEY", "")
	t.Setenv("ANTHROPIC_API_KEY", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ANTHROPIC_API_KEY")

	t.Setenv("ANTHROPIC_API_KEY", "ant-key")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ProviderAnthropic, cfg.Provider)
	assert.Equal(t, "ant-key", cfg.AnthropicAPIKey)
}

func TestLoad_UnsupportedProvider(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("MODEL_PROVIDER", "cohere")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported MODEL_PROVIDER")
}

func TestLoad_PortParsing(t *testing.T) {
	setRequiredEnv(t)

	t.Setenv("PORT", "8080")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Port)

	t.Setenv("PORT", "not-a-port")
	_, err = Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid PORT")
}

func TestConfig_Level(t *testing.T) {
	tests := []struct {
		raw  string
		want logging.LogLevel
	}{
		{"debug", logging.LogLevelDebug},
		{"info", logging.LogLevelInfo},
		{"WARN", logging.LogLevelWarn},
		{"error", logging.LogLevelError},
		{"verbose", logging.LogLevelInfo},
	}
	for _, tt := range tests {
		cfg := &Config{LogLevel: tt.raw}
		assert.Equal(t, tt.want, cfg.Level())
	}
}
