package db

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/atharvakonge/papertrade/internal/config"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"           // PostgreSQL driver
	_ "github.com/mattn/go-sqlite3" // SQLite driver
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

const (
	defaultConnAttempts = 10
	connRetryDelay      = time.Second
)

//go:embed migrations
var migrationsFS embed.FS

//go:embed catalog.yaml
var defaultCatalog []byte

// Open connects to the configured database, applies migrations and returns
// the pool.
func Open(ctx context.Context, cfg config.Database) (*sqlx.DB, error) {
	var (
		conn *sqlx.DB
		err  error
	)
	for attempt := 1; attempt <= defaultConnAttempts; attempt++ {
		conn, err = sqlx.ConnectContext(ctx, cfg.Driver, cfg.DSN())
		if err == nil {
			break
		}
		zap.L().Info("Database not ready, retrying",
			zap.String("driver", cfg.Driver), zap.Int("attempt", attempt), zap.Error(err))

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(connRetryDelay):
		}
	}
	if err != nil {
		return nil, fmt.Errorf("error connecting to database: %w", err)
	}

	conn.SetMaxOpenConns(cfg.MaxOpenConns)
	conn.SetMaxIdleConns(cfg.MaxIdleConns)
	conn.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := Migrate(conn); err != nil {
		conn.Close()
		return nil, err
	}

	zap.L().Info("Database connected successfully", zap.String("driver", cfg.Driver))
	return conn, nil
}

// Migrate brings the schema up to date. Re-running it is a no-op.
func Migrate(conn *sqlx.DB) error {
	src, err := iofs.New(migrationsFS, "migrations/"+conn.DriverName())
	if err != nil {
		return fmt.Errorf("load migrations: %w", err)
	}

	var driver database.Driver
	switch conn.DriverName() {
	case "postgres":
		driver, err = migratepg.WithInstance(conn.DB, &migratepg.Config{})
	case "sqlite3":
		driver, err = migratesqlite.WithInstance(conn.DB, &migratesqlite.Config{})
	default:
		return fmt.Errorf("no migrations for driver %q", conn.DriverName())
	}
	if err != nil {
		return fmt.Errorf("migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, conn.DriverName(), driver)
	if err != nil {
		return fmt.Errorf("init migrations: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

// CatalogEntry is one listing in the demo catalog file
type CatalogEntry struct {
	CompanyName  string `yaml:"company_name"`
	Ticker       string `yaml:"ticker"`
	InitialPrice string `yaml:"initial_price"`
	Volume       *int64 `yaml:"volume"`
}

type catalogFile struct {
	Stocks []CatalogEntry `yaml:"stocks"`
}

// LoadCatalog reads the catalog at path, or the embedded demo catalog when
// path is empty.
func LoadCatalog(path string) ([]CatalogEntry, error) {
	data := defaultCatalog
	if path != "" {
		var err error
		if data, err = os.ReadFile(path); err != nil {
			return nil, fmt.Errorf("unable to read %s: %w", path, err)
		}
	}

	var cf catalogFile
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, fmt.Errorf("unable to parse catalog: %w", err)
	}
	for i, e := range cf.Stocks {
		if e.Ticker == "" || e.CompanyName == "" {
			return nil, fmt.Errorf("catalog entry %d missing ticker or company name", i)
		}
		price, err := decimal.NewFromString(e.InitialPrice)
		if err != nil || !price.Round(2).IsPositive() {
			return nil, fmt.Errorf("catalog entry %s: invalid price %q", e.Ticker, e.InitialPrice)
		}
	}
	return cf.Stocks, nil
}

// SeedCatalog inserts entries when the stock table is empty and returns the
// number of rows inserted.
func SeedCatalog(ctx context.Context, conn *sqlx.DB, entries []CatalogEntry) (int, error) {
	var count int
	if err := conn.GetContext(ctx, &count, "SELECT COUNT(*) FROM stocks"); err != nil {
		return 0, fmt.Errorf("count stocks: %w", err)
	}
	if count > 0 {
		return 0, nil
	}

	tx, err := conn.BeginTxx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	query := tx.Rebind("INSERT INTO stocks (company_name, ticker, initial_price, volume) VALUES (?, ?, ?, ?)")
	for _, e := range entries {
		price := decimal.RequireFromString(e.InitialPrice).Round(2)
		if _, err := tx.ExecContext(ctx, query, e.CompanyName, e.Ticker, price, e.Volume); err != nil {
			return 0, fmt.Errorf("seed %s: %w", e.Ticker, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}

	zap.L().Info("Seeded stock catalog", zap.Int("stocks", len(entries)))
	return len(entries), nil
}
