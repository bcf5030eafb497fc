package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/sony/gobreaker"

	platformconfig "github.com/example/animehub/internal/platform/config"
	"github.com/example/animehub/services/web/internal/jikan"
)

type WebConfig struct {
	SessionSecret string        `env:"SESSION_SECRET,required"`
	SessionTTL    time.Duration `env:"SESSION_TTL" envDefault:"168h"`
	SecureCookies bool          `env:"SECURE_COOKIES" envDefault:"false"`

	JikanBaseURL   string        `env:"JIKAN_BASE_URL" envDefault:"https://api.jikan.moe/v4"`
	JikanTimeout   time.Duration `env:"JIKAN_TIMEOUT" envDefault:"10s"`
	JikanUserAgent string        `env:"JIKAN_USER_AGENT" envDefault:"animehub/1.0"`

	// Consecutive upstream failures before the breaker opens. Zero disables it.
	BreakerFailures uint32        `env:"JIKAN_BREAKER_FAILURES" envDefault:"5"`
	BreakerTimeout  time.Duration `env:"JIKAN_BREAKER_TIMEOUT" envDefault:"30s"`

	AffiliateCrunchyroll string `env:"AFFILIATE_CRUNCHYROLL" envDefault:"?af_id=YOUR_CRUNCHYROLL_ID"`

	AuthRateLimit  int           `env:"AUTH_RATE_LIMIT" envDefault:"10"`
	AuthRateWindow time.Duration `env:"AUTH_RATE_WINDOW" envDefault:"1m"`
}

func LoadWeb() (WebConfig, error) {
	if err := platformconfig.LoadDotEnv(); err != nil {
		return WebConfig{}, err
	}
	var cfg WebConfig
	if err := env.Parse(&cfg); err != nil {
		return WebConfig{}, fmt.Errorf("config: %w", err)
	}
	cfg.SessionSecret = strings.TrimSpace(cfg.SessionSecret)
	if len(cfg.SessionSecret) < 16 {
		return WebConfig{}, errors.New("SESSION_SECRET must be at least 16 characters")
	}
	cfg.JikanBaseURL = strings.TrimRight(strings.TrimSpace(cfg.JikanBaseURL), "/")
	if cfg.JikanBaseURL == "" {
		return WebConfig{}, errors.New("JIKAN_BASE_URL must not be empty")
	}
	if cfg.AuthRateLimit <= 0 {
		cfg.AuthRateLimit = 10
	}
	if cfg.AuthRateWindow <= 0 {
		cfg.AuthRateWindow = time.Minute
	}
	return cfg, nil
}

// BreakerSettings returns nil when the breaker is disabled. Only upstream
// outages count toward tripping it; see jikan.BreakerSuccessful.
func (c WebConfig) BreakerSettings(onChange func(name string, from, to gobreaker.State)) *gobreaker.Settings {
	if c.BreakerFailures == 0 {
		return nil
	}
	threshold := c.BreakerFailures
	return &gobreaker.Settings{
		Name:        "jikan",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     c.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		IsSuccessful:  jikan.BreakerSuccessful,
		OnStateChange: onChange,
	}
}
