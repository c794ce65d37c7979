package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/park285/cheese-arena/internal/obslog"
)

// Ledger backends.
const (
	LedgerFile   = "file"
	LedgerRedis  = "redis"
	LedgerMemory = "memory"
)

type AppConfig struct {
	Addr           string   `env:"ARENA_ADDR" envDefault:":5000"`
	QueryAddr      string   `env:"ARENA_QUERY_ADDR" envDefault:":5001"`
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:","`

	LedgerBackend string `env:"LEDGER_BACKEND" envDefault:"file"`
	LedgerPath    string `env:"LEDGER_PATH" envDefault:"data/standings.yaml"`
	LedgerKey     string `env:"LEDGER_REDIS_KEY" envDefault:"arena:standings"`

	RedisURL    string `env:"REDIS_URL"`
	DatabaseURL string `env:"DATABASE_URL"`
	NatsURL     string `env:"NATS_URL"`
	NatsSubject string `env:"NATS_SUBJECT" envDefault:"arena.game.ended"`

	IdleTimeout   time.Duration `env:"SESSION_IDLE_TIMEOUT" envDefault:"30m"`
	SweepInterval time.Duration `env:"SESSION_SWEEP_INTERVAL" envDefault:"1m"`
	NameMaxRunes  int           `env:"PLAYER_NAME_MAX_RUNES" envDefault:"24"`

	MessagesDir string `env:"MESSAGES_DIR"`

	LogLevel     string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat    string `env:"LOG_FORMAT" envDefault:"legacy"`
	LogToConsole bool   `env:"LOG_TO_CONSOLE" envDefault:"true"`
	LogFile      string `env:"LOG_FILE"`
	LogCaller    bool   `env:"LOG_CALLER" envDefault:"false"`
}

// Load reads an optional .env file and then parses the environment.
func Load() (*AppConfig, error) {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()
	return Parse()
}

// Parse reads the process environment only.
func Parse() (*AppConfig, error) {
	var cfg AppConfig
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.LedgerBackend = strings.ToLower(strings.TrimSpace(cfg.LedgerBackend))
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *AppConfig) Validate() error {
	switch c.LedgerBackend {
	case LedgerFile:
		if strings.TrimSpace(c.LedgerPath) == "" {
			return errors.New("LEDGER_PATH is required for the file ledger")
		}
	case LedgerRedis:
		if strings.TrimSpace(c.RedisURL) == "" {
			return errors.New("REDIS_URL is required for the redis ledger")
		}
	case LedgerMemory:
	default:
		return fmt.Errorf("unsupported LEDGER_BACKEND %q", c.LedgerBackend)
	}
	if c.IdleTimeout <= 0 {
		return errors.New("SESSION_IDLE_TIMEOUT must be positive")
	}
	if c.SweepInterval <= 0 {
		return errors.New("SESSION_SWEEP_INTERVAL must be positive")
	}
	if c.NameMaxRunes <= 0 {
		return errors.New("PLAYER_NAME_MAX_RUNES must be positive")
	}
	return nil
}

// LogOptions maps the LOG_* settings onto obslog.
func (c *AppConfig) LogOptions() obslog.Options {
	return obslog.Options{
		Level:   c.LogLevel,
		Format:  c.LogFormat,
		Console: c.LogToConsole,
		File:    c.LogFile,
		Caller:  c.LogCaller,
	}
}
