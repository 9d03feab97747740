package config

import (
	"fmt"
	"log"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

type Config struct {
	Port    string `env:"PORT" envDefault:"8080"`
	GinMode string `env:"GIN_MODE" envDefault:"debug"`

	// Number of workers draining the order queue
	NumWorkers int `env:"NUM_WORKERS" envDefault:"5"`

	StartingBalance decimal.Decimal `env:"STARTING_BALANCE" envDefault:"15000.00"`
	CatalogFile     string          `env:"CATALOG_FILE"`

	Database Database
	Log      Log
	Session  Session
	Redis    Redis
	Market   Market
	Pricing  Pricing
	Admin    Admin
}

type Database struct {
	Driver          string        `env:"DB_DRIVER" envDefault:"postgres"`
	Host            string        `env:"DB_HOST" envDefault:"localhost"`
	Port            int           `env:"DB_PORT" envDefault:"5433"`
	User            string        `env:"DB_USER" envDefault:"trader"`
	Password        string        `env:"DB_PASSWORD" envDefault:"trading123"`
	Name            string        `env:"DB_NAME" envDefault:"trading_db"`
	SSLMode         string        `env:"DB_SSLMODE" envDefault:"disable"`
	Path            string        `env:"DB_PATH" envDefault:"trading.db"`
	MaxOpenConns    int           `env:"DB_MAX_OPEN_CONNS" envDefault:"25"`
	MaxIdleConns    int           `env:"DB_MAX_IDLE_CONNS" envDefault:"5"`
	ConnMaxLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME" envDefault:"5m"`
}

// DSN returns the connection string for the configured driver.
func (d Database) DSN() string {
	if d.Driver == "sqlite3" {
		return d.Path + "?_journal_mode=WAL&_busy_timeout=5000&_txlock=immediate&_foreign_keys=on"
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
	)
}

type Log struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"json"`
	// Empty means stdout
	File       string `env:"LOG_FILE"`
	MaxSizeMB  int    `env:"LOG_MAX_SIZE_MB" envDefault:"100"`
	MaxAgeDays int    `env:"LOG_MAX_AGE_DAYS" envDefault:"7"`
}

type Session struct {
	Backend    string        `env:"SESSION_BACKEND" envDefault:"memory"`
	TTL        time.Duration `env:"SESSION_TTL" envDefault:"24h"`
	CookieName string        `env:"SESSION_COOKIE" envDefault:"session_id"`
	Secure     bool          `env:"SESSION_COOKIE_SECURE" envDefault:"false"`
}

type Redis struct {
	Host     string `env:"REDIS_HOST" envDefault:"localhost"`
	Port     int    `env:"REDIS_PORT" envDefault:"6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB" envDefault:"0"`
}

type Market struct {
	Timezone string   `env:"MARKET_TIMEZONE" envDefault:"America/New_York"`
	Holidays []string `env:"MARKET_HOLIDAYS" envSeparator:"," envDefault:"01-01,07-04,12-25"`
}

type Pricing struct {
	Seed         int64           `env:"PRICE_SEED" envDefault:"42"`
	Band         decimal.Decimal `env:"PRICE_BAND" envDefault:"0.20"`
	TickInterval time.Duration   `env:"PRICE_TICK_INTERVAL" envDefault:"5s"`
}

// Admin bootstraps an administrator account at startup when Username is set.
type Admin struct {
	Username string `env:"ADMIN_USERNAME"`
	Password string `env:"ADMIN_PASSWORD"`
	Email    string `env:"ADMIN_EMAIL" envDefault:"admin@localhost"`
}

// Load reads .env (if present) and the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using defaults or environment variables")
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Database.Driver {
	case "postgres", "sqlite3":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.Database.Driver)
	}
	switch c.GinMode {
	case "debug", "release", "test":
	default:
		return fmt.Errorf("unsupported GIN_MODE %q", c.GinMode)
	}
	switch c.Session.Backend {
	case "memory", "redis":
	default:
		return fmt.Errorf("unsupported SESSION_BACKEND %q", c.Session.Backend)
	}
	if c.NumWorkers <= 0 {
		return fmt.Errorf("NUM_WORKERS must be positive, got %d", c.NumWorkers)
	}
	if c.StartingBalance.IsNegative() {
		return fmt.Errorf("STARTING_BALANCE cannot be negative")
	}
	if c.Pricing.Band.IsNegative() || c.Pricing.Band.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return fmt.Errorf("PRICE_BAND must be in [0, 1), got %s", c.Pricing.Band)
	}
	if c.Admin.Username != "" && c.Admin.Password == "" {
		return fmt.Errorf("ADMIN_PASSWORD is required when ADMIN_USERNAME is set")
	}
	return nil
}

// MustLoad is Load for callers that cannot continue without configuration.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	return cfg
}
