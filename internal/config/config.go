// Package config loads service configuration from the environment, with an
// optional .env file for local development.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	HTTPAddr        string        `env:"MIRROR_HTTP_ADDR" envDefault:":8080"`
	AnthropicAPIKey string        `env:"ANTHROPIC_API_KEY"`
	FREDAPIKey      string        `env:"FRED_API_KEY"`
	DBPath          string        `env:"MIRROR_DB_PATH" envDefault:"mirroros.db"`
	Trials          int           `env:"MIRROR_TRIALS" envDefault:"10000"`
	EconTTL         time.Duration `env:"MIRROR_ECON_TTL" envDefault:"1h"`
	RequestTimeout  time.Duration `env:"MIRROR_REQUEST_TIMEOUT" envDefault:"90s"`
	OTLPEndpoint    string        `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	LogLevel        string        `env:"MIRROR_LOG_LEVEL" envDefault:"info"`
	LogFormat       string        `env:"MIRROR_LOG_FORMAT" envDefault:"json"`
}

// Load reads .env if present, then the process environment. Environment
// variables win over .env values.
func Load() (Config, error) {
	_ = godotenv.Load()
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parsing environment: %w", err)
	}
	return cfg, nil
}
