// Package config loads runtime configuration from the environment, with an
// optional .env file for local development.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/hupe1980/moviemesh/logging"
)

// DefaultPort is the listen port used when PORT is unset.
const DefaultPort = 41241

// Provider names accepted in MODEL_PROVIDER.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// Config holds everything the server needs at startup.
type Config struct {
	// OpenRouterAPIKey authenticates against the OpenRouter completion API.
	// Required when Provider is "openai".
	OpenRouterAPIKey string

	// AnthropicAPIKey is required when Provider is "anthropic".
	AnthropicAPIKey string

	// TMDBAPIToken is the bearer token for the TMDB API. Always required.
	TMDBAPIToken string

	// Provider selects the model backend, "openai" (default) or "anthropic".
	Provider string

	// Model overrides the provider's default model id when non-empty.
	Model string

	// Port the HTTP server listens on.
	Port int

	// LogLevel is one of debug, info, warn, error.
	LogLevel string

	// LogFormat is "json" (default) or "text".
	LogFormat string

	// TMDBBaseURL overrides the TMDB API endpoint when non-empty.
	TMDBBaseURL string

	// TMDBImageBaseURL overrides the image URL prefix when non-empty.
	TMDBImageBaseURL string
}

// Load reads the configuration from the process environment. A .env file in
// the working directory is merged in first; real environment variables win.
func Load() (*Config, error) {
	// Missing .env is not an error.
	_ = godotenv.Load()

	cfg := &Config{
		OpenRouterAPIKey: os.Getenv("OPENROUTER_API_KEY"),
		AnthropicAPIKey:  os.Getenv("ANTHROPIC_API_KEY"),
		TMDBAPIToken:     os.Getenv("TMDB_API_TOKEN"),
		Provider:         getEnv("MODEL_PROVIDER", ProviderOpenAI),
		Model:            os.Getenv("MODEL"),
		Port:             DefaultPort,
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		LogFormat:        getEnv("LOG_FORMAT", "json"),
		TMDBBaseURL:      os.Getenv("TMDB_BASE_URL"),
		TMDBImageBaseURL: os.Getenv("TMDB_IMAGE_BASE_URL"),
	}

	if raw := os.Getenv("PORT"); raw != "" {
		port, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid PORT %q: %w", raw, err)
		}
		cfg.Port = port
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	var missing []string
	switch c.Provider {
	case ProviderOpenAI:
		if c.OpenRouterAPIKey == "" {
			missing = append(missing, "OPENROUTER_API_KEY")
		}
	case ProviderAnthropic:
		if c.AnthropicAPIKey == "" {
			missing = append(missing, "ANTHROPIC_API_KEY")
		}
	default:
		return fmt.Errorf("unsupported MODEL_PROVIDER: %s", c.Provider)
	}
	if c.TMDBAPIToken == "" {
		missing = append(missing, "TMDB_API_TOKEN")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}
	return nil
}

// Level maps the textual log level to its logging constant, defaulting to
// info for unknown values.
func (c *Config) Level() logging.LogLevel {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return logging.LogLevelDebug
	case "warn":
		return logging.LogLevelWarn
	case "error":
		return logging.LogLevelError
	default:
		return logging.LogLevelInfo
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
