package ledger

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/atharvakonge/papertrade/internal/db"
	"github.com/atharvakonge/papertrade/internal/market"
	"github.com/atharvakonge/papertrade/internal/models"
	"github.com/atharvakonge/papertrade/internal/repository"
	"github.com/shopspring/decimal"
)

// Monday noon, not a holiday
var tradingTime = time.Date(2024, time.March, 4, 12, 0, 0, 0, time.UTC)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

type fixture struct {
	repo     *repository.Repository
	executor *Executor
	userID   int64
	stockID  int64
}

func setup(t *testing.T, balance float64, now time.Time) fixture {
	t.Helper()
	conn := db.SetupTestDB(t)
	db.SetTestSchedule(t, conn, "09:00", "16:00")

	repo := repository.New(conn)
	gate := market.NewGate(time.UTC, []market.MonthDay{{Month: time.December, Day: 25}})
	return fixture{
		repo:     repo,
		executor: NewExecutor(repo, gate, WithClock(func() time.Time { return now })),
		userID:   db.CreateTestUser(t, conn, "trader", balance),
		stockID:  db.CreateTestStock(t, conn, "AAPL", 100),
	}
}

func (f fixture) balance(t *testing.T) decimal.Decimal {
	t.Helper()
	u, err := f.repo.GetUserByID(context.Background(), f.userID)
	if err != nil {
		t.Fatalf("GetUserByID failed: %v", err)
	}
	return u.CashBalance
}

func (f fixture) history(t *testing.T) int {
	t.Helper()
	n, err := f.repo.CountTransactions(context.Background())
	if err != nil {
		t.Fatalf("CountTransactions failed: %v", err)
	}
	return n
}

func TestExecute_BuyThenSellAll(t *testing.T) {
	f := setup(t, 1000, tradingTime)
	ctx := context.Background()

	receipt, err := f.executor.Execute(ctx, Order{UserID: f.userID, StockID: f.stockID, Side: models.SideBuy, Quantity: 5, Price: d("100")})
	if err != nil {
		t.Fatalf("Buy failed: %v", err)
	}
	if !receipt.CashBalance.Equal(d("500")) {
		t.Errorf("Expected balance 500, got %s", receipt.CashBalance)
	}
	if receipt.Position == nil || receipt.Position.Quantity != 5 || !receipt.Position.AveragePrice.Equal(d("100")) {
		t.Errorf("Unexpected position: %+v", receipt.Position)
	}
	if receipt.Ticker != "AAPL" || receipt.Transaction.ID == 0 {
		t.Errorf("Unexpected receipt: %+v", receipt)
	}

	receipt, err = f.executor.Execute(ctx, Order{UserID: f.userID, StockID: f.stockID, Side: models.SideSell, Quantity: 5, Price: d("120")})
	if err != nil {
		t.Fatalf("Sell failed: %v", err)
	}
	if !f.balance(t).Equal(d("1100")) {
		t.Errorf("Expected balance 1100, got %s", f.balance(t))
	}
	if receipt.Position != nil {
		t.Errorf("Expected position closed, got %+v", receipt.Position)
	}
	if _, err := f.repo.GetPosition(ctx, f.userID, f.stockID, false); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("Expected position row deleted, got %v", err)
	}

	history, err := f.repo.ListTransactions(ctx, f.userID, 0)
	if err != nil {
		t.Fatalf("ListTransactions failed: %v", err)
	}
	if len(history) != 2 || history[0].OrderType != models.SideSell || !history[0].Price.Equal(d("120")) {
		t.Errorf("Unexpected history: %+v", history)
	}
}

func TestExecute_AveragesAcrossBuys(t *testing.T) {
	f := setup(t, 10000, tradingTime)
	ctx := context.Background()

	for _, o := range []Order{
		{Quantity: 10, Price: d("100")},
		{Quantity: 10, Price: d("80")},
	} {
		o.UserID, o.StockID, o.Side = f.userID, f.stockID, models.SideBuy
		if _, err := f.executor.Execute(ctx, o); err != nil {
			t.Fatalf("Buy failed: %v", err)
		}
	}

	receipt, err := f.executor.Execute(ctx, Order{UserID: f.userID, StockID: f.stockID, Side: models.SideSell, Quantity: 4, Price: d("95")})
	if err != nil {
		t.Fatalf("Sell failed: %v", err)
	}
	if receipt.Position.Quantity != 16 || !receipt.Position.AveragePrice.Equal(d("90")) {
		t.Errorf("Expected 16 @ 90 after partial sell, got %+v", receipt.Position)
	}
	// 10000 - 1000 - 800 + 380
	if !receipt.CashBalance.Equal(d("8580")) {
		t.Errorf("Expected balance 8580, got %s", receipt.CashBalance)
	}
}

func TestExecute_Rejections(t *testing.T) {
	tests := []struct {
		name  string
		now   time.Time
		order Order
		want  error
	}{
		{"not enough cash", tradingTime, Order{Side: models.SideBuy, Quantity: 11, Price: d("100")}, ErrInsufficientBalance},
		{"no shares", tradingTime, Order{Side: models.SideSell, Quantity: 1, Price: d("100")}, ErrInsufficientShares},
		{"zero quantity", tradingTime, Order{Side: models.SideBuy, Quantity: 0, Price: d("100")}, ErrInvalidQuantity},
		{"negative quantity", tradingTime, Order{Side: models.SideSell, Quantity: -3, Price: d("100")}, ErrInvalidQuantity},
		{"bad side", tradingTime, Order{Side: "hold", Quantity: 1, Price: d("100")}, ErrInvalidSide},
		{"zero price", tradingTime, Order{Side: models.SideBuy, Quantity: 1, Price: d("0")}, ErrInvalidPrice},
		{"after close", tradingTime.Add(5 * time.Hour), Order{Side: models.SideBuy, Quantity: 1, Price: d("100")}, market.ErrClosed},
		{"holiday", time.Date(2024, time.December, 25, 12, 0, 0, 0, time.UTC), Order{Side: models.SideBuy, Quantity: 1, Price: d("100")}, market.ErrClosed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setup(t, 1000, tt.now)
			tt.order.UserID, tt.order.StockID = f.userID, f.stockID

			_, err := f.executor.Execute(context.Background(), tt.order)
			if !errors.Is(err, tt.want) {
				t.Fatalf("Expected %v, got %v", tt.want, err)
			}
			if !IsRejection(err) {
				t.Errorf("Expected %v to be a rejection", err)
			}
			if !f.balance(t).Equal(d("1000")) {
				t.Errorf("Expected balance unchanged, got %s", f.balance(t))
			}
			if n := f.history(t); n != 0 {
				t.Errorf("Expected no transactions, got %d", n)
			}
		})
	}
}

func TestExecute_UnknownStock(t *testing.T) {
	f := setup(t, 1000, tradingTime)
	ctx := context.Background()

	if err := f.repo.DeleteStock(ctx, f.stockID); err != nil {
		t.Fatalf("DeleteStock failed: %v", err)
	}
	_, err := f.executor.Execute(ctx, Order{UserID: f.userID, StockID: f.stockID, Side: models.SideBuy, Quantity: 1, Price: d("100")})
	if !errors.Is(err, ErrUnknownStock) || !IsRejection(err) {
		t.Fatalf("Expected ErrUnknownStock rejection, got %v", err)
	}
	if !f.balance(t).Equal(d("1000")) {
		t.Errorf("Expected balance unchanged, got %s", f.balance(t))
	}
}

func TestExecute_ClosedDayReason(t *testing.T) {
	f := setup(t, 1000, tradingTime)
	ctx := context.Background()

	err := f.repo.UpdateMarketDays(ctx, []models.MarketDay{{Day: int(time.Monday), IsOpen: false, OpenTime: "09:00", CloseTime: "16:00"}})
	if err != nil {
		t.Fatalf("UpdateMarketDays failed: %v", err)
	}

	_, err = f.executor.Execute(ctx, Order{UserID: f.userID, StockID: f.stockID, Side: models.SideBuy, Quantity: 1, Price: d("100")})
	var closed *market.ClosedError
	if !errors.As(err, &closed) || closed.Reason != market.ReasonDayOff {
		t.Errorf("Expected day_off closure, got %v", err)
	}
}

func TestExecute_SellMoreThanHeld(t *testing.T) {
	f := setup(t, 1000, tradingTime)
	ctx := context.Background()

	if _, err := f.executor.Execute(ctx, Order{UserID: f.userID, StockID: f.stockID, Side: models.SideBuy, Quantity: 3, Price: d("50")}); err != nil {
		t.Fatalf("Buy failed: %v", err)
	}
	if _, err := f.executor.Execute(ctx, Order{UserID: f.userID, StockID: f.stockID, Side: models.SideSell, Quantity: 4, Price: d("50")}); !errors.Is(err, ErrInsufficientShares) {
		t.Fatalf("Expected ErrInsufficientShares, got %v", err)
	}

	pos, err := f.repo.GetPosition(ctx, f.userID, f.stockID, false)
	if err != nil || pos.Quantity != 3 {
		t.Errorf("Expected position of 3 untouched, got %+v (%v)", pos, err)
	}
	if !f.balance(t).Equal(d("850")) {
		t.Errorf("Expected balance 850, got %s", f.balance(t))
	}
}

func TestExecute_ConcurrentBuysNeverOverspend(t *testing.T) {
	f := setup(t, 1000, tradingTime)
	ctx := context.Background()

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		executed int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.executor.Execute(ctx, Order{UserID: f.userID, StockID: f.stockID, Side: models.SideBuy, Quantity: 1, Price: d("100")})
			if err == nil {
				mu.Lock()
				executed++
				mu.Unlock()
			} else if !errors.Is(err, ErrInsufficientBalance) {
				t.Errorf("Unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if executed != 10 {
		t.Errorf("Expected exactly 10 buys to execute, got %d", executed)
	}
	if !f.balance(t).IsZero() {
		t.Errorf("Expected balance 0, got %s", f.balance(t))
	}
	pos, err := f.repo.GetPosition(ctx, f.userID, f.stockID, false)
	if err != nil || pos.Quantity != 10 {
		t.Errorf("Expected position of 10, got %+v (%v)", pos, err)
	}
}

func TestDepositAndCashout(t *testing.T) {
	f := setup(t, 100, tradingTime)
	ctx := context.Background()

	balance, err := f.executor.Deposit(ctx, f.userID, d("50.25"))
	if err != nil || !balance.Equal(d("150.25")) {
		t.Fatalf("Deposit: got %s, %v", balance, err)
	}

	if _, err := f.executor.Cashout(ctx, f.userID, d("150.26")); !errors.Is(err, ErrInsufficientFunds) {
		t.Errorf("Expected ErrInsufficientFunds, got %v", err)
	}
	if !f.balance(t).Equal(d("150.25")) {
		t.Errorf("Expected balance unchanged, got %s", f.balance(t))
	}

	balance, err = f.executor.Cashout(ctx, f.userID, d("150.25"))
	if err != nil || !balance.IsZero() {
		t.Fatalf("Cashout: got %s, %v", balance, err)
	}

	for _, amount := range []string{"0", "-5", "0.001"} {
		if _, err := f.executor.Deposit(ctx, f.userID, d(amount)); !errors.Is(err, ErrInvalidAmount) {
			t.Errorf("Deposit(%s): expected ErrInvalidAmount, got %v", amount, err)
		}
		if _, err := f.executor.Cashout(ctx, f.userID, d(amount)); !errors.Is(err, ErrInvalidAmount) {
			t.Errorf("Cashout(%s): expected ErrInvalidAmount, got %v", amount, err)
		}
	}

	if _, err := f.executor.Deposit(ctx, 9999, d("1")); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("Expected ErrNotFound for unknown user, got %v", err)
	}
}
