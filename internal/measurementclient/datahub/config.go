package datahub

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds the connection settings of the DataHub measurement API.
type Config struct {
	BaseURL   string        `env:"DATAHUB_URL"`                         // Base URL of the measurement API
	Token     string        `env:"DATAHUB_TOKEN"`                       // Bearer token, optional
	Timeout   time.Duration `env:"DATAHUB_TIMEOUT"    envDefault:"30s"` // Per-request timeout
	RateLimit float64       `env:"DATAHUB_RATE_LIMIT" envDefault:"5"`   // Requests per second
	Burst     int           `env:"DATAHUB_BURST"      envDefault:"10"`
}

// LoadConfig loads the DataHub client configuration from environment variables.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse datahub config: %w", err)
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.BaseURL == "" {
		return errors.New("datahub url must not be empty")
	}
	if c.Timeout <= 0 {
		return errors.New("datahub timeout must be positive")
	}
	if c.RateLimit <= 0 || c.Burst <= 0 {
		return fmt.Errorf("datahub rate limit must be positive, got %.2f/s burst %d", c.RateLimit, c.Burst)
	}
	return nil
}
