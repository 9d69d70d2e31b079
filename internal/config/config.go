// internal/config/config.go
//
// Process configuration read from the environment.
// A .env file in the working directory is loaded first when present, so
// local development needs no exported variables.

package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds every tunable the server reads at startup.
type Config struct {
	Port      string `env:"PORT"       envDefault:"5175"`
	LogLevel  string `env:"LOG_LEVEL"  envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"` // json | console
	DBPath    string `env:"DB_PATH"    envDefault:"./data/minesweeper.db"`

	JWTSecret    string        `env:"JWT_SECRET"    envDefault:"dev_secret_change_me"`
	TokenTTL     time.Duration `env:"TOKEN_TTL"     envDefault:"24h"`
	CookieName   string        `env:"COOKIE_NAME"   envDefault:"minesweeper_token"`
	CookieSecure bool          `env:"COOKIE_SECURE" envDefault:"false"`
	ClientOrigin string        `env:"CLIENT_ORIGIN" envDefault:"http://localhost:5173"`

	DefaultDifficulty  string        `env:"DEFAULT_DIFFICULTY"   envDefault:"beginner"`
	SessionIdleTimeout time.Duration `env:"SESSION_IDLE_TIMEOUT" envDefault:"30m"`
	JanitorInterval    time.Duration `env:"JANITOR_INTERVAL"     envDefault:"1m"`
	MaxRows            int           `env:"MAX_ROWS"             envDefault:"64"`
	MaxColumns         int           `env:"MAX_COLUMNS"          envDefault:"64"`
}

// Load reads .env (if any) and then the process environment.
func Load() (Config, error) {
	_ = godotenv.Load()
	return Parse()
}

// Parse reads the process environment only.
func Parse() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch {
	case c.MaxRows < 1 || c.MaxColumns < 1:
		return fmt.Errorf("MAX_ROWS and MAX_COLUMNS must be positive, got %d and %d", c.MaxRows, c.MaxColumns)
	case c.TokenTTL <= 0:
		return errors.New("TOKEN_TTL must be positive")
	case c.JanitorInterval <= 0:
		return errors.New("JANITOR_INTERVAL must be positive")
	case c.JWTSecret == "":
		return errors.New("JWT_SECRET must not be empty")
	}
	return nil
}

// Addr is the listen address for the HTTP server.
func (c Config) Addr() string { return ":" + c.Port }
