package admin

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/atharvakonge/papertrade/internal/db"
	"github.com/atharvakonge/papertrade/internal/models"
	"github.com/atharvakonge/papertrade/internal/repository"
	"github.com/shopspring/decimal"
)

func TestAddStock(t *testing.T) {
	svc := NewService(repository.New(db.SetupTestDB(t)))
	ctx := context.Background()

	stock, err := svc.AddStock(ctx, StockInput{CompanyName: "Nvidia", Ticker: " nvda ", InitialPrice: "120.499", Volume: "1000"})
	if err != nil {
		t.Fatalf("AddStock failed: %v", err)
	}
	if stock.Ticker != "NVDA" || !stock.InitialPrice.Equal(decimal.RequireFromString("120.5")) || stock.Volume == nil || *stock.Volume != 1000 {
		t.Errorf("Unexpected stock: %+v", stock)
	}

	if _, err := svc.AddStock(ctx, StockInput{CompanyName: "Copy", Ticker: "NVDA", InitialPrice: "1"}); !errors.Is(err, ErrTickerExists) {
		t.Errorf("Expected ErrTickerExists, got %v", err)
	}
}

func TestAddStock_Validation(t *testing.T) {
	svc := NewService(repository.New(db.SetupTestDB(t)))

	tests := []struct {
		name  string
		in    StockInput
		field string
	}{
		{"no company", StockInput{Ticker: "X", InitialPrice: "1"}, "company_name"},
		{"no ticker", StockInput{CompanyName: "X", InitialPrice: "1"}, "ticker"},
		{"ticker with space", StockInput{CompanyName: "X", Ticker: "A B", InitialPrice: "1"}, "ticker"},
		{"company too long", StockInput{CompanyName: strings.Repeat("n", 101), Ticker: "X", InitialPrice: "1"}, "company_name"},
		{"zero price", StockInput{CompanyName: "X", Ticker: "X", InitialPrice: "0"}, "initial_price"},
		{"price rounds to zero", StockInput{CompanyName: "X", Ticker: "X", InitialPrice: "0.001"}, "initial_price"},
		{"text price", StockInput{CompanyName: "X", Ticker: "X", InitialPrice: "ten"}, "initial_price"},
		{"negative volume", StockInput{CompanyName: "X", Ticker: "X", InitialPrice: "1", Volume: "-1"}, "volume"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.AddStock(context.Background(), tt.in)
			var verr *ValidationError
			if !errors.As(err, &verr) || verr.Field != tt.field {
				t.Errorf("Expected validation error on %s, got %v", tt.field, err)
			}
		})
	}
}

func TestUpdateAndDeleteStock(t *testing.T) {
	conn := db.SetupTestDB(t)
	repo := repository.New(conn)
	svc := NewService(repo)
	ctx := context.Background()

	aapl := db.CreateTestStock(t, conn, "AAPL", 100)
	msft := db.CreateTestStock(t, conn, "MSFT", 50)

	updated, err := svc.UpdateStock(ctx, aapl, StockInput{CompanyName: "Apple Inc.", Ticker: "AAPL", InitialPrice: "110"})
	if err != nil {
		t.Fatalf("UpdateStock failed: %v", err)
	}
	if updated.CompanyName != "Apple Inc." || !updated.InitialPrice.Equal(decimal.NewFromInt(110)) {
		t.Errorf("Unexpected stock: %+v", updated)
	}

	if _, err := svc.UpdateStock(ctx, aapl, StockInput{CompanyName: "Apple", Ticker: "MSFT", InitialPrice: "1"}); !errors.Is(err, ErrTickerExists) {
		t.Errorf("Expected ErrTickerExists renaming onto MSFT, got %v", err)
	}
	if _, err := svc.UpdateStock(ctx, 9999, StockInput{CompanyName: "Ghost", Ticker: "BOO", InitialPrice: "1"}); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}

	userID := db.CreateTestUser(t, conn, "holder", 1000)
	if err := repo.InsertPosition(ctx, &models.Position{UserID: userID, StockID: aapl, Quantity: 1, AveragePrice: decimal.NewFromInt(100)}); err != nil {
		t.Fatalf("InsertPosition failed: %v", err)
	}
	if err := svc.DeleteStock(ctx, aapl); !errors.Is(err, ErrStockInUse) {
		t.Errorf("Expected ErrStockInUse, got %v", err)
	}

	if err := svc.DeleteStock(ctx, msft); err != nil {
		t.Fatalf("DeleteStock failed: %v", err)
	}
	if err := svc.DeleteStock(ctx, msft); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("Expected ErrNotFound deleting twice, got %v", err)
	}
}

func TestDashboard(t *testing.T) {
	conn := db.SetupTestDB(t)
	svc := NewService(repository.New(conn))

	db.CreateTestUser(t, conn, "a", 1)
	db.CreateTestUser(t, conn, "b", 1)
	db.CreateTestStock(t, conn, "AAPL", 100)

	d, err := svc.Dashboard(context.Background())
	if err != nil {
		t.Fatalf("Dashboard failed: %v", err)
	}
	if d != (Dashboard{Users: 2, Stocks: 1, Transactions: 0}) {
		t.Errorf("Unexpected dashboard: %+v", d)
	}
}

func TestUpdateMarketDays(t *testing.T) {
	svc := NewService(repository.New(db.SetupTestDB(t)))
	ctx := context.Background()

	err := svc.UpdateMarketDays(ctx, []models.MarketDay{
		{Day: 0, IsOpen: false},
		{Day: 6, IsOpen: true, OpenTime: "10:00", CloseTime: "14:00"},
	})
	if err != nil {
		t.Fatalf("UpdateMarketDays failed: %v", err)
	}
	days, _ := svc.MarketDays(ctx)
	if days[0].IsOpen || days[0].OpenTime != "" || !days[6].IsOpen || days[6].OpenTime != "10:00" {
		t.Errorf("Unexpected days: %+v", days)
	}

	// a bad row leaves every row untouched
	err = svc.UpdateMarketDays(ctx, []models.MarketDay{
		{Day: 1, IsOpen: false, OpenTime: "09:00", CloseTime: "10:00"},
		{Day: 2, IsOpen: true, OpenTime: "16:00", CloseTime: "09:00"},
	})
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("Expected validation error, got %v", err)
	}
	days, _ = svc.MarketDays(ctx)
	if !days[1].IsOpen {
		t.Error("Expected monday to remain open")
	}
}

func TestUpdateMarketHours(t *testing.T) {
	svc := NewService(repository.New(db.SetupTestDB(t)))
	ctx := context.Background()

	if err := svc.UpdateMarketHours(ctx, models.MarketHours{Enabled: true, OpenTime: "10:00", CloseTime: "09:00"}); err == nil {
		t.Error("Expected error for inverted window")
	}
	if err := svc.UpdateMarketHours(ctx, models.MarketHours{Enabled: true, OpenTime: "08:00", CloseTime: "20:00"}); err != nil {
		t.Fatalf("UpdateMarketHours failed: %v", err)
	}
	h, err := svc.MarketHours(ctx)
	if err != nil || !h.Enabled || h.CloseTime != "20:00" {
		t.Errorf("Unexpected hours: %+v (%v)", h, err)
	}
}
