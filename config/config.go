package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"

	"prism-board/domain"
)

// Config holds the service settings read from the environment.
type Config struct {
	Debug bool `env:"DEBUG"`

	ListenAddr string `env:"LISTEN_ADDR" envDefault:":8080"`
	// FunctionsPort is set by the Functions host and overrides ListenAddr.
	FunctionsPort string `env:"FUNCTIONS_CUSTOMHANDLER_PORT"`

	Columns []string `env:"BOARD_COLUMNS" envDefault:"todo,doing,done" envSeparator:","`

	StorageConnectionString string `env:"STORAGE_CONNECTION_STRING"`
	TasksTable              string `env:"TASKS_TABLE" envDefault:"Tasks"`
	CommandQueue            string `env:"COMMAND_QUEUE" envDefault:"commands"`
	ProvisionStorage        bool   `env:"PROVISION_STORAGE"`

	RedisConnectionString string        `env:"REDIS_CONNECTION_STRING"`
	DeduperTTL            time.Duration `env:"DEDUPER_TTL" envDefault:"24h"`
	TasksCacheTTL         time.Duration `env:"TASKS_CACHE_TTL" envDefault:"5m"`

	IntentWorkers        int           `env:"INTENT_WORKERS" envDefault:"8"`
	IntentBuffer         int           `env:"INTENT_BUFFER" envDefault:"1024"`
	IntentTimeout        time.Duration `env:"INTENT_TIMEOUT" envDefault:"60s"`
	IntentHandoffTimeout time.Duration `env:"INTENT_HANDOFF_TIMEOUT" envDefault:"15ms"`
}

// Load parses the environment and validates the result.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if len(c.BoardColumns()) == 0 {
		return errors.New("BOARD_COLUMNS must name at least one column")
	}
	if c.DeduperTTL <= 0 {
		return fmt.Errorf("invalid DEDUPER_TTL: %v", c.DeduperTTL)
	}
	if c.TasksCacheTTL < 0 {
		return fmt.Errorf("invalid TASKS_CACHE_TTL: %v", c.TasksCacheTTL)
	}
	if c.IntentWorkers <= 0 {
		return fmt.Errorf("invalid INTENT_WORKERS: must be greater than zero")
	}
	if c.IntentBuffer < 0 {
		return fmt.Errorf("invalid INTENT_BUFFER: must not be negative")
	}
	if c.IntentTimeout <= 0 {
		return fmt.Errorf("invalid INTENT_TIMEOUT: %v", c.IntentTimeout)
	}
	if c.ProvisionStorage && c.StorageConnectionString == "" {
		return errors.New("PROVISION_STORAGE requires STORAGE_CONNECTION_STRING")
	}
	return nil
}

// Addr returns the listen address, preferring the Functions host port.
func (c Config) Addr() string {
	if c.FunctionsPort != "" {
		return ":" + c.FunctionsPort
	}
	return c.ListenAddr
}

// BoardColumns returns the configured columns in order.
func (c Config) BoardColumns() []domain.Status {
	return domain.ParseStatuses(c.Columns)
}

// HasStorage reports whether the read model table and command queue are configured.
func (c Config) HasStorage() bool { return c.StorageConnectionString != "" }

// HasRedis reports whether a Redis connection is configured.
func (c Config) HasRedis() bool { return c.RedisConnectionString != "" }
