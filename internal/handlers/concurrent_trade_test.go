package handlers

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/atharvakonge/papertrade/internal/db"
	"github.com/atharvakonge/papertrade/internal/ledger"
	"github.com/atharvakonge/papertrade/internal/models"
	"github.com/shopspring/decimal"
)

func buyOne(userID, stockID int64) ledger.Order {
	return ledger.Order{UserID: userID, StockID: stockID, Side: models.SideBuy, Quantity: 1, Price: decimal.NewFromInt(100)}
}

func TestConcurrentBuying_SameUser(t *testing.T) {
	env := newTestEnv(t, tradingTime)
	userID := db.CreateTestUser(t, env.conn, "concurrent_user", 10000.0)
	stockID := db.CreateTestStock(t, env.conn, "AAPL", 100)

	// Execute 10 concurrent orders for same user
	numOrders := 10
	results := make(chan error, numOrders)
	for i := 0; i < numOrders; i++ {
		go func() {
			_, err := env.orders.SubmitOrder(context.Background(), buyOne(userID, stockID))
			results <- err
		}()
	}

	for i := 0; i < numOrders; i++ {
		if err := <-results; err != nil {
			t.Errorf("Order failed: %v", err)
		}
	}

	u, _ := env.repo.GetUserByID(context.Background(), userID)
	if !u.CashBalance.Equal(decimal.NewFromInt(9000)) {
		t.Errorf("Race condition detected! Expected balance 9000, got %s", u.CashBalance)
	}
	pos, err := env.repo.GetPosition(context.Background(), userID, stockID, false)
	if err != nil || pos.Quantity != int64(numOrders) {
		t.Errorf("Race condition detected! Expected quantity %d, got %d (%v)", numOrders, pos.Quantity, err)
	}
}

func TestConcurrentBuying_DifferentUsers(t *testing.T) {
	env := newTestEnv(t, tradingTime)
	stockID := db.CreateTestStock(t, env.conn, "AAPL", 100)

	userIDs := make([]int64, 5)
	for i := range userIDs {
		userIDs[i] = db.CreateTestUser(t, env.conn, fmt.Sprintf("user%d", i), 1000.0)
	}

	// each user attempts 12 buys but can only afford 10
	totalOrders := len(userIDs) * 12
	results := make(chan error, totalOrders)
	for _, uid := range userIDs {
		for i := 0; i < 12; i++ {
			go func(uid int64) {
				_, err := env.orders.SubmitOrder(context.Background(), buyOne(uid, stockID))
				results <- err
			}(uid)
		}
	}

	executed, rejected := 0, 0
	for i := 0; i < totalOrders; i++ {
		switch err := <-results; {
		case err == nil:
			executed++
		case errors.Is(err, ledger.ErrInsufficientBalance):
			rejected++
		default:
			t.Errorf("Unexpected error: %v", err)
		}
	}
	if executed != 50 || rejected != 10 {
		t.Errorf("Expected 50 executed and 10 rejected, got %d and %d", executed, rejected)
	}

	for _, uid := range userIDs {
		u, _ := env.repo.GetUserByID(context.Background(), uid)
		if !u.CashBalance.IsZero() {
			t.Errorf("User %d: expected balance 0, got %s", uid, u.CashBalance)
		}
	}
}

type stubExecutor struct {
	block chan struct{}
}

func (s stubExecutor) Execute(ctx context.Context, o ledger.Order) (ledger.Receipt, error) {
	<-s.block
	return ledger.Receipt{Ticker: "STUB"}, nil
}

func TestOrderProcessor_Stop(t *testing.T) {
	block := make(chan struct{})
	p := NewOrderProcessor(1, stubExecutor{block: block})
	p.Start()

	done := make(chan error, 1)
	go func() {
		_, err := p.SubmitOrder(context.Background(), ledger.Order{})
		done <- err
	}()

	close(block)
	if err := <-done; err != nil {
		t.Fatalf("Expected in-flight order to complete, got %v", err)
	}

	p.Stop()
	p.Stop()
	if _, err := p.SubmitOrder(context.Background(), ledger.Order{}); !errors.Is(err, ErrProcessorStopped) {
		t.Errorf("Expected ErrProcessorStopped, got %v", err)
	}
}

func TestOrderProcessor_ContextCancelled(t *testing.T) {
	p := NewOrderProcessor(1, stubExecutor{block: make(chan struct{})})
	p.Start()
	defer func() {
		// the blocked worker never returns; skip waiting for it
		p.stopOnce.Do(func() { close(p.stopCh) })
	}()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := p.SubmitOrder(ctx, ledger.Order{}); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func BenchmarkOrderProcessing(b *testing.B) {
	env := newTestEnv(b, tradingTime)
	userID := db.CreateTestUser(b, env.conn, "benchmark_user", 1000000000.0)
	stockID := db.CreateTestStock(b, env.conn, "AAPL", 100)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := env.orders.SubmitOrder(context.Background(), buyOne(userID, stockID)); err != nil {
			b.Fatal(err)
		}
	}
}
