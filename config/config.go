package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Providers ProvidersConfig `mapstructure:"providers"`
	Ledger    LedgerConfig    `mapstructure:"ledger"`
	Log       LogConfig       `mapstructure:"log"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // debug, release, test
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
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Addr returns the Redis address string.
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// ProvidersConfig holds per-provider connection settings, keyed by the
// provider's lowercase name (fincra, mono, paystack).
type ProvidersConfig struct {
	Timeout  time.Duration  `mapstructure:"timeout"` // Per outbound call
	Fincra   ProviderConfig `mapstructure:"fincra"`
	Mono     ProviderConfig `mapstructure:"mono"`
	Paystack ProviderConfig `mapstructure:"paystack"`
}

type ProviderConfig struct {
	BaseURL       string `mapstructure:"base_url"`
	SecretKey     string `mapstructure:"secret_key"`     // API auth
	WebhookSecret string `mapstructure:"webhook_secret"` // Inbound HMAC verification
}

type LedgerConfig struct {
	MaxVerifyAttempts  int           `mapstructure:"max_verify_attempts"`  // Before dead-letter / manual review
	ReconcileInterval  time.Duration `mapstructure:"reconcile_interval"`   // Pending-withdrawal sweep
	ReconcileStaleness time.Duration `mapstructure:"reconcile_staleness"`  // How old a pending row must be before the sweep polls it
	QueueKey           string        `mapstructure:"queue_key"`            // Redis list webhooks are pushed to
	DeadLetterKey      string        `mapstructure:"dead_letter_key"`      // Redis list for exhausted events
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Pretty bool   `mapstructure:"pretty"` // human-readable output (dev only)
}

// Load reads configuration from file and environment variables.
// Environment variables override file values. Prefix: LLG_ (Lending Ledger).
// Nested keys use underscore: LLG_DATABASE_HOST, LLG_PROVIDERS_TIMEOUT, etc.
func Load(path string) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "lending_ledger")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 20)
	v.SetDefault("database.min_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("providers.timeout", "10s")
	v.SetDefault("providers.fincra.base_url", "https://api.fincra.com")
	v.SetDefault("providers.mono.base_url", "https://api.withmono.com")
	v.SetDefault("providers.paystack.base_url", "https://api.paystack.co")
	v.SetDefault("ledger.max_verify_attempts", 5)
	v.SetDefault("ledger.reconcile_interval", "5m")
	v.SetDefault("ledger.reconcile_staleness", "15m")
	v.SetDefault("ledger.queue_key", "webhooks:pending")
	v.SetDefault("ledger.dead_letter_key", "webhooks:dead")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)

	// File config
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// Environment variables: LLG_DATABASE_HOST -> database.host
	v.SetEnvPrefix("LLG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (not required, env vars can suffice)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return &cfg, nil
}
