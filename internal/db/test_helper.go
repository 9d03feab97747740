package db

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/atharvakonge/papertrade/internal/config"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

// SetupTestDB creates a migrated SQLite database in a temp dir.
// The connection is closed when the test ends.
func SetupTestDB(t testing.TB) *sqlx.DB {
	t.Helper()

	cfg := config.Database{Driver: "sqlite3", Path: filepath.Join(t.TempDir(), "test.db")}
	conn, err := sqlx.Open(cfg.Driver, cfg.DSN())
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	if err = conn.Ping(); err != nil {
		t.Fatalf("Failed to ping test database: %v", err)
	}
	if err = Migrate(conn); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}

	t.Cleanup(func() { conn.Close() })
	return conn
}

// CreateTestUser creates a user with the given balance and returns its id
func CreateTestUser(t testing.TB, conn *sqlx.DB, username string, balance float64) int64 {
	t.Helper()

	// Make username unique by adding timestamp
	uniqueUsername := fmt.Sprintf("%s_%d", username, time.Now().UnixNano())

	var userID int64
	err := conn.QueryRowx(
		conn.Rebind(`INSERT INTO users (full_name, username, email, password_hash, role, cash_balance)
			VALUES (?, ?, ?, ?, 'user', ?) RETURNING id`),
		username, uniqueUsername, uniqueUsername+"@test.com", "x", decimal.NewFromFloat(balance),
	).Scan(&userID)
	if err != nil {
		t.Fatalf("Failed to create test user: %v", err)
	}
	return userID
}

// CreateTestStock creates a listing and returns its id
func CreateTestStock(t testing.TB, conn *sqlx.DB, ticker string, price float64) int64 {
	t.Helper()

	var stockID int64
	err := conn.QueryRowx(
		conn.Rebind("INSERT INTO stocks (company_name, ticker, initial_price) VALUES (?, ?, ?) RETURNING id"),
		ticker+" Corp.", ticker, decimal.NewFromFloat(price),
	).Scan(&stockID)
	if err != nil {
		t.Fatalf("Failed to create test stock: %v", err)
	}
	return stockID
}

// SetTestSchedule opens all seven days with the given window
func SetTestSchedule(t testing.TB, conn *sqlx.DB, open, close string) {
	t.Helper()

	_, err := conn.Exec(conn.Rebind("UPDATE market_days SET is_open = ?, open_time = ?, close_time = ?"), true, open, close)
	if err != nil {
		t.Fatalf("Failed to set schedule: %v", err)
	}
}

// TestConfig returns a config suitable for tests
func TestConfig() *config.Config {
	return &config.Config{
		NumWorkers:      2,
		StartingBalance: decimal.RequireFromString("15000.00"),
		Session:         config.Session{Backend: "memory", TTL: time.Hour, CookieName: "session_id"},
		Market:          config.Market{Timezone: "UTC", Holidays: []string{"01-01", "07-04", "12-25"}},
		Pricing:         config.Pricing{Seed: 42, Band: decimal.RequireFromString("0.20"), TickInterval: time.Second},
	}
}
