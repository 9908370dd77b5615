package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/shopspring/decimal"
)

const (
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

type Config struct {
	Server struct {
		ListenAddr       string `toml:"listen_addr"`
		ReadTimeoutSec   int    `toml:"read_timeout_sec"`
		ShutdownGraceSec int    `toml:"shutdown_grace_sec"`
	} `toml:"server"`

	Storage struct {
		Backend     string `toml:"backend"` // sqlite | postgres | memory
		SQLitePath  string `toml:"sqlite_path"`
		PostgresDSN string `toml:"postgres_dsn"`
	} `toml:"storage"`

	Seed struct {
		StartingBalance string `toml:"starting_balance"`
	} `toml:"seed"`

	Events struct {
		Redis struct {
			Enabled bool   `toml:"enabled"`
			Addr    string `toml:"addr"`
			Stream  string `toml:"stream"`
			Channel string `toml:"channel"`
		} `toml:"redis"`

		WsFeed struct {
			Enabled bool   `toml:"enabled"`
			Addr    string `toml:"addr"`
		} `toml:"ws_feed"`
	} `toml:"events"`
}

func Load(path string) (*Config, error) {
	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the configuration used when no config file is given.
func Default() *Config {
	var cfg Config
	applyDefaults(&cfg)
	return &cfg
}

func applyDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.Server.ListenAddr) == "" {
		cfg.Server.ListenAddr = ":4080"
	}
	if cfg.Server.ReadTimeoutSec <= 0 {
		cfg.Server.ReadTimeoutSec = 300
	}
	if cfg.Server.ShutdownGraceSec <= 0 {
		cfg.Server.ShutdownGraceSec = 5
	}
	if strings.TrimSpace(cfg.Storage.Backend) == "" {
		cfg.Storage.Backend = BackendSQLite
	}
	if strings.TrimSpace(cfg.Storage.SQLitePath) == "" {
		cfg.Storage.SQLitePath = "data/stockx.db"
	}
	if strings.TrimSpace(cfg.Seed.StartingBalance) == "" {
		cfg.Seed.StartingBalance = "100.00"
	}
	if strings.TrimSpace(cfg.Events.Redis.Addr) == "" {
		cfg.Events.Redis.Addr = "localhost:6379"
	}
	if strings.TrimSpace(cfg.Events.WsFeed.Addr) == "" {
		cfg.Events.WsFeed.Addr = ":8080"
	}
}

func validate(cfg *Config) error {
	switch cfg.Storage.Backend {
	case BackendSQLite, BackendPostgres, BackendMemory:
	default:
		return fmt.Errorf("storage.backend %q is not one of sqlite, postgres, memory", cfg.Storage.Backend)
	}
	if cfg.Storage.Backend == BackendPostgres && strings.TrimSpace(cfg.Storage.PostgresDSN) == "" {
		return errors.New("storage.postgres_dsn empty but backend is postgres")
	}

	bal, err := decimal.NewFromString(cfg.Seed.StartingBalance)
	if err != nil {
		return fmt.Errorf("seed.starting_balance %q is not a decimal", cfg.Seed.StartingBalance)
	}
	if bal.IsNegative() {
		return errors.New("seed.starting_balance is negative")
	}
	return nil
}

func (c *Config) ReadTimeout() time.Duration {
	return time.Duration(c.Server.ReadTimeoutSec) * time.Second
}

func (c *Config) ShutdownGrace() time.Duration {
	return time.Duration(c.Server.ShutdownGraceSec) * time.Second
}

// StartingBalance is validated at load time; on a zero Config it falls back
// to zero.
func (c *Config) StartingBalance() decimal.Decimal {
	bal, err := decimal.NewFromString(c.Seed.StartingBalance)
	if err != nil {
		return decimal.Zero
	}
	return bal
}
