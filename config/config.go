package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Storage drivers.
const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// maxFeeBps mirrors domain.MaxFeeBps; config must not import the domain.
const maxFeeBps = 10000

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Contract ContractConfig `mapstructure:"contract"`
	Consent  ConsentConfig  `mapstructure:"consent"`
	Ledger   LedgerConfig   `mapstructure:"ledger"`
	Log      LogConfig      `mapstructure:"log"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // debug, release, test
}

type StorageConfig struct {
	Driver string `mapstructure:"driver"` // postgres, memory
}

type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Addr returns the Redis address string.
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// ContractConfig bootstraps the admin record at startup. An empty owner
// leaves initialization to POST /api/v1/admin/initialize.
type ContractConfig struct {
	Owner         string `mapstructure:"owner"`
	DefaultFeeBps uint32 `mapstructure:"default_fee_bps"`
}

type ConsentConfig struct {
	MaxAge    time.Duration `mapstructure:"max_age"`
	ClockSkew time.Duration `mapstructure:"clock_skew"`
	NonceTTL  time.Duration `mapstructure:"nonce_ttl"`
}

// GenesisBalance seeds the in-memory ledger.
type GenesisBalance struct {
	Account string `mapstructure:"account"`
	Asset   string `mapstructure:"asset"`
	Amount  int64  `mapstructure:"amount"`
}

type LedgerConfig struct {
	Genesis []GenesisBalance `mapstructure:"genesis"`
}

type LogConfig struct {
	Level      string `mapstructure:"level"`  // debug, info, warn, error
	Pretty     bool   `mapstructure:"pretty"` // human-readable output (dev only)
	File       string `mapstructure:"file"`   // rotate into this file when set
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// Load reads configuration from file and environment variables.
// Environment variables override file values. Prefix: SGW_ (Settlement Gateway).
// Nested keys use underscore: SGW_DATABASE_HOST, SGW_CONTRACT_OWNER, etc.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("storage.driver", DriverPostgres)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "settlement")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 20)
	v.SetDefault("database.min_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("database.auto_migrate", true)
	v.SetDefault("redis.enabled", true)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("contract.owner", "")
	v.SetDefault("contract.default_fee_bps", 0)
	v.SetDefault("consent.max_age", "5m")
	v.SetDefault("consent.clock_skew", "30s")
	v.SetDefault("consent.nonce_ttl", "10m")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 5)
	v.SetDefault("log.max_age_days", 30)
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// SGW_DATABASE_HOST -> database.host
	v.SetEnvPrefix("SGW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// A missing file is fine, env vars can suffice.
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the service cannot start with.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case DriverPostgres, DriverMemory:
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	if c.Contract.DefaultFeeBps > maxFeeBps {
		return fmt.Errorf("contract.default_fee_bps %d exceeds %d", c.Contract.DefaultFeeBps, maxFeeBps)
	}
	if c.Consent.MaxAge <= 0 {
		return fmt.Errorf("consent.max_age must be positive")
	}
	for i, g := range c.Ledger.Genesis {
		if g.Amount < 0 {
			return fmt.Errorf("ledger.genesis[%d]: negative amount", i)
		}
	}
	return nil
}
