// Package config loads host daemon settings from the environment, with
// an optional .env file for development.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/Chrizpy/royalletters-sub000/engine"
)

// Config holds every tunable of the host daemon.
type Config struct {
	ListenAddr string `env:"ROYAL_LISTEN_ADDR" envDefault:":8080"`
	LogLevel   string `env:"ROYAL_LOG_LEVEL" envDefault:"info"`

	Ruleset  string `env:"ROYAL_RULESET" envDefault:"classic"`
	HostName string `env:"ROYAL_HOST_NAME" envDefault:"host"`

	// Empty addresses disable the corresponding store.
	RedisAddr     string `env:"ROYAL_REDIS_ADDR"`
	RedisPassword string `env:"ROYAL_REDIS_PASSWORD"`
	RedisDB       int    `env:"ROYAL_REDIS_DB" envDefault:"0"`
	DatabaseURL   string `env:"ROYAL_DATABASE_URL"`

	// Empty secret disables resume tokens.
	JWTSecret string        `env:"ROYAL_JWT_SECRET"`
	TokenTTL  time.Duration `env:"ROYAL_TOKEN_TTL" envDefault:"30m"`

	AISeats           int           `env:"ROYAL_AI_SEATS" envDefault:"0"`
	AIDelay           time.Duration `env:"ROYAL_AI_DELAY" envDefault:"1200ms"`
	ReconnectAttempts uint64        `env:"ROYAL_RECONNECT_ATTEMPTS" envDefault:"6"`
	ReconnectMaxDelay time.Duration `env:"ROYAL_RECONNECT_MAX_DELAY" envDefault:"10s"`
}

// Load reads .env if present, then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load() // missing .env is fine

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	if !engine.KnownRuleset(engine.Ruleset(cfg.Ruleset)) {
		return nil, fmt.Errorf("unknown ruleset %q", cfg.Ruleset)
	}
	return cfg, nil
}
