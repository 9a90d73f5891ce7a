package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Storage drivers accepted by database.driver.
const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	Log      LogConfig      `mapstructure:"log"`
	Wallet   WalletConfig   `mapstructure:"wallet"`
	Fees     FeesConfig     `mapstructure:"fees"`
	Rates    RatesConfig    `mapstructure:"rates"`
	Ledger   LedgerConfig   `mapstructure:"ledger"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // debug, release, test
}

type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"` // postgres, memory
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	Migrate         bool          `mapstructure:"migrate"` // apply embedded schema at startup
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

type JWTConfig struct {
	Secret string        `mapstructure:"secret"`
	Expiry time.Duration `mapstructure:"expiry"`
	Issuer string        `mapstructure:"issuer"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Pretty bool   `mapstructure:"pretty"` // human-readable output (dev only)
}

// WalletConfig sizes are in bytes of random material, before hex encoding.
type WalletConfig struct {
	PrivateKeySize int `mapstructure:"private_key_size"`
	AddressSize    int `mapstructure:"address_size"`
}

type FeesConfig struct {
	WithdrawalRate    float64 `mapstructure:"withdrawal_rate"`    // fraction charged on top of a withdrawal
	ConversionPercent float64 `mapstructure:"conversion_percent"` // percent taken from the source amount
	TransferPercent   float64 `mapstructure:"transfer_percent"`
	TransferMin       float64 `mapstructure:"transfer_min"`
}

type RatesConfig struct {
	BaseURL         string        `mapstructure:"base_url"`
	Timeout         time.Duration `mapstructure:"timeout"`
	MaxRetries      int           `mapstructure:"max_retries"`
	CacheTTL        time.Duration `mapstructure:"cache_ttl"`
	BreakerFailures int           `mapstructure:"breaker_failures"`
	BreakerCooldown time.Duration `mapstructure:"breaker_cooldown"`
	WarmPairs       []string      `mapstructure:"warm_pairs"` // "BTC:USD"
	WarmInterval    time.Duration `mapstructure:"warm_interval"`
}

type LedgerConfig struct {
	ConflictRetries int `mapstructure:"conflict_retries"`
}

// Load reads configuration from file and environment variables.
// Environment variables override file values. Prefix: WLT_.
// Nested keys use underscore: WLT_DATABASE_HOST, WLT_FEES_WITHDRAWAL_RATE, etc.
// A .env file in the working directory is loaded first when present.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	v.SetEnvPrefix("WLT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Config file is optional; env vars can suffice.
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

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("database.driver", DriverPostgres)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "wallet_ledger")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 20)
	v.SetDefault("database.min_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("database.migrate", true)
	v.SetDefault("redis.enabled", true)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.expiry", "1h")
	v.SetDefault("jwt.issuer", "wallet-ledger")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)
	v.SetDefault("wallet.private_key_size", 32)
	v.SetDefault("wallet.address_size", 20)
	v.SetDefault("fees.withdrawal_rate", 0.02)
	v.SetDefault("fees.conversion_percent", 0.5)
	v.SetDefault("fees.transfer_percent", 1.0)
	v.SetDefault("fees.transfer_min", 0.01)
	v.SetDefault("rates.base_url", "https://api.coinbase.com/v2")
	v.SetDefault("rates.timeout", "10s")
	v.SetDefault("rates.max_retries", 2)
	v.SetDefault("rates.cache_ttl", "30s")
	v.SetDefault("rates.breaker_failures", 5)
	v.SetDefault("rates.breaker_cooldown", "30s")
	v.SetDefault("rates.warm_pairs", []string{})
	v.SetDefault("rates.warm_interval", "1m")
	v.SetDefault("ledger.conflict_retries", 1)
}

// Validate rejects settings the ledger cannot operate with.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverPostgres, DriverMemory:
	default:
		return fmt.Errorf("database.driver must be %q or %q, got %q", DriverPostgres, DriverMemory, c.Database.Driver)
	}
	if c.Fees.WithdrawalRate < 0 || c.Fees.WithdrawalRate >= 1 {
		return fmt.Errorf("fees.withdrawal_rate must be in [0, 1), got %v", c.Fees.WithdrawalRate)
	}
	if c.Fees.ConversionPercent < 0 || c.Fees.ConversionPercent >= 100 {
		return fmt.Errorf("fees.conversion_percent must be in [0, 100), got %v", c.Fees.ConversionPercent)
	}
	if c.Fees.TransferPercent < 0 || c.Fees.TransferMin < 0 {
		return errors.New("fees.transfer_percent and fees.transfer_min must not be negative")
	}
	if c.Wallet.PrivateKeySize < 32 {
		return fmt.Errorf("wallet.private_key_size must be at least 32, got %d", c.Wallet.PrivateKeySize)
	}
	if c.Wallet.AddressSize <= 0 || c.Wallet.AddressSize > 32 {
		return fmt.Errorf("wallet.address_size must be in (0, 32], got %d", c.Wallet.AddressSize)
	}
	if c.Rates.Timeout <= 0 {
		return errors.New("rates.timeout must be positive")
	}
	if c.Ledger.ConflictRetries < 0 {
		return errors.New("ledger.conflict_retries must not be negative")
	}
	return nil
}
