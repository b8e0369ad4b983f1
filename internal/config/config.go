package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// Config holds the service configuration, read from the environment.
type Config struct {
	Port        string `env:"PORT" envDefault:"8080"`
	Environment string `env:"APP_ENV" envDefault:"development"` // development, production

	DatabaseURL   string `env:"DATABASE_URL,required"`
	DBMaxConns    int32  `env:"DB_MAX_CONNS" envDefault:"10"`
	MigrationsDir string `env:"MIGRATIONS_DIR" envDefault:"migrations"`

	RedisURL string `env:"REDIS_URL,required"`

	JWTSecret string `env:"JWT_SECRET,required"`

	OpenTripMapKey string   `env:"OPENTRIPMAP_API_KEY,required"`
	ExploreKinds   []string `env:"EXPLORE_KINDS" envSeparator:"," envDefault:"interesting_places,foods,cultural"`

	RateLimitPerMinute int      `env:"RATE_LIMIT_PER_MINUTE" envDefault:"60"`
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"*"`
}

// Load reads an optional .env file and then parses the environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("loading .env: %w", err)
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parsing environment: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if len(c.JWTSecret) < 32 {
		return errors.New("JWT_SECRET must be at least 32 bytes")
	}
	if c.RateLimitPerMinute <= 0 {
		return fmt.Errorf("RATE_LIMIT_PER_MINUTE must be positive, got %d", c.RateLimitPerMinute)
	}
	return nil
}

// Production reports whether the service runs in production mode.
func (c Config) Production() bool {
	return c.Environment == "production" || c.Environment == "prod"
}

// NewLogger builds the zap logger for the configured environment.
func NewLogger(c Config) (*zap.Logger, error) {
	if c.Production() {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}
