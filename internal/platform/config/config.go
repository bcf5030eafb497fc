package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type HTTPConfig struct {
	Addr string `env:"HTTP_ADDR" envDefault:":8080"`
}

type AppConfig struct {
	ServiceName string `env:"SERVICE_NAME,required"`
	Env         string `env:"APP_ENV" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	HTTP        HTTPConfig

	// GRPCAddr enables the gRPC health endpoint when set.
	GRPCAddr string `env:"GRPC_ADDR"`

	DatabaseURL string `env:"DATABASE_URL"`
	// Pool size for DATABASE_URL. Zero keeps the pool default.
	DBMaxConns int32  `env:"DB_MAX_CONNS" envDefault:"0"`
	RedisURL   string `env:"REDIS_URL"`
	NATSURL    string `env:"NATS_URL"`

	// Comma separated; empty means "*".
	CORSAllowedOrigins string `env:"CORS_ALLOWED_ORIGINS"`
}

// Load reads an optional .env file from the working directory and then
// parses the process environment into AppConfig.
func Load() (AppConfig, error) {
	if err := LoadDotEnv(); err != nil {
		return AppConfig{}, err
	}
	var cfg AppConfig
	if err := env.Parse(&cfg); err != nil {
		return AppConfig{}, fmt.Errorf("config: %w", err)
	}
	cfg.ServiceName = strings.TrimSpace(cfg.ServiceName)
	if cfg.ServiceName == "" {
		return AppConfig{}, errors.New("SERVICE_NAME is required")
	}
	cfg.DatabaseURL = strings.TrimSpace(cfg.DatabaseURL)
	cfg.RedisURL = strings.TrimSpace(cfg.RedisURL)
	cfg.NATSURL = strings.TrimSpace(cfg.NATSURL)
	return cfg, nil
}

// LoadDotEnv loads .env without overriding variables that are already set.
// A missing file is not an error.
func LoadDotEnv() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("config: .env: %w", err)
	}
	return nil
}

func (c AppConfig) IsProduction() bool {
	return strings.EqualFold(strings.TrimSpace(c.Env), "production")
}
