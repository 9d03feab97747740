// Package ledger executes orders and cash movements against a user's
// balance and positions.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/atharvakonge/papertrade/internal/market"
	"github.com/atharvakonge/papertrade/internal/metrics"
	"github.com/atharvakonge/papertrade/internal/models"
	"github.com/atharvakonge/papertrade/internal/repository"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Order is a request to trade Quantity shares of StockID at Price.
type Order struct {
	UserID   int64
	StockID  int64
	Side     models.Side
	Quantity int64
	Price    decimal.Decimal
}

// Receipt describes an executed order.
type Receipt struct {
	Transaction models.Transaction
	Ticker      string
	CashBalance decimal.Decimal
	// Position is nil when a sell closed it
	Position *models.Position
}

type Executor struct {
	repo    *repository.Repository
	gate    *market.Gate
	locks   *models.PortfolioManager
	metrics *metrics.Metrics
	clock   func() time.Time
}

type Option func(*Executor)

// WithClock replaces time.Now, for tests.
func WithClock(clock func() time.Time) Option {
	return func(e *Executor) { e.clock = clock }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Executor) { e.metrics = m }
}

func NewExecutor(repo *repository.Repository, gate *market.Gate, opts ...Option) *Executor {
	e := &Executor{
		repo:  repo,
		gate:  gate,
		locks: models.NewPortfolioManager(),
		clock: time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute validates o, checks the market gate and applies the order in one
// database transaction. Orders of the same user never interleave.
func (e *Executor) Execute(ctx context.Context, o Order) (Receipt, error) {
	if err := validate(o); err != nil {
		e.metrics.ObserveOrder(string(o.Side), metrics.OutcomeRejected)
		return Receipt{}, err
	}

	var receipt Receipt
	err := e.locks.WithUser(o.UserID, func() error {
		return e.repo.WithinTransaction(ctx, func(ctx context.Context) error {
			var err error
			receipt, err = e.execute(ctx, o)
			return err
		})
	})

	switch {
	case err == nil:
		e.metrics.ObserveOrder(string(o.Side), metrics.OutcomeExecuted)
		zap.L().Info("order executed",
			zap.Int64("user_id", o.UserID),
			zap.String("ticker", receipt.Ticker),
			zap.String("side", string(o.Side)),
			zap.Int64("quantity", o.Quantity),
			zap.String("price", o.Price.StringFixed(2)),
		)
	case IsRejection(err):
		e.metrics.ObserveOrder(string(o.Side), metrics.OutcomeRejected)
	default:
		e.metrics.ObserveOrder(string(o.Side), metrics.OutcomeFailed)
		zap.L().Error("order failed", zap.Int64("user_id", o.UserID), zap.Error(err))
	}
	return receipt, err
}

func validate(o Order) error {
	if !o.Side.Valid() {
		return ErrInvalidSide
	}
	if o.Quantity <= 0 {
		return ErrInvalidQuantity
	}
	if !o.Price.IsPositive() {
		return ErrInvalidPrice
	}
	return nil
}

func (e *Executor) execute(ctx context.Context, o Order) (Receipt, error) {
	schedule, err := market.Load(ctx, e.repo)
	if err != nil {
		return Receipt{}, err
	}
	if err := e.gate.Check(schedule, e.clock()); err != nil {
		return Receipt{}, err
	}

	user, err := e.repo.LockUser(ctx, o.UserID)
	if err != nil {
		return Receipt{}, fmt.Errorf("load user %d: %w", o.UserID, err)
	}
	stock, err := e.repo.GetStock(ctx, o.StockID)
	if errors.Is(err, repository.ErrNotFound) {
		// delisted after the order was priced
		return Receipt{}, fmt.Errorf("stock %d: %w", o.StockID, ErrUnknownStock)
	}
	if err != nil {
		return Receipt{}, fmt.Errorf("load stock %d: %w", o.StockID, err)
	}

	pos, err := e.repo.GetPosition(ctx, o.UserID, o.StockID, true)
	held := err == nil
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return Receipt{}, fmt.Errorf("load position: %w", err)
	}
	if !held {
		pos = models.Position{UserID: o.UserID, StockID: o.StockID}
	}

	total := o.Price.Mul(decimal.NewFromInt(o.Quantity))
	balance := user.CashBalance

	switch o.Side {
	case models.SideBuy:
		if balance.LessThan(total) {
			return Receipt{}, ErrInsufficientBalance
		}
		balance = balance.Sub(total)
		pos = applyBuy(pos, o.Quantity, o.Price)
		if held {
			err = e.repo.UpdatePosition(ctx, pos)
		} else {
			err = e.repo.InsertPosition(ctx, &pos)
		}

	case models.SideSell:
		if !held {
			return Receipt{}, ErrInsufficientShares
		}
		if pos, err = applySell(pos, o.Quantity); err != nil {
			return Receipt{}, err
		}
		balance = balance.Add(total)
		if pos.Quantity == 0 {
			err = e.repo.DeletePosition(ctx, pos.ID)
		} else {
			err = e.repo.UpdatePosition(ctx, pos)
		}
	}
	if err != nil {
		return Receipt{}, err
	}

	if err := e.repo.UpdateCashBalance(ctx, o.UserID, balance); err != nil {
		return Receipt{}, err
	}

	tx := models.Transaction{
		UserID:    o.UserID,
		StockID:   o.StockID,
		OrderType: o.Side,
		Quantity:  o.Quantity,
		Price:     o.Price,
	}
	if err := e.repo.InsertTransaction(ctx, &tx); err != nil {
		return Receipt{}, err
	}

	receipt := Receipt{Transaction: tx, Ticker: stock.Ticker, CashBalance: balance}
	if pos.Quantity > 0 {
		receipt.Position = &pos
	}
	return receipt, nil
}

// Deposit credits a positive amount and returns the new balance.
func (e *Executor) Deposit(ctx context.Context, userID int64, amount decimal.Decimal) (decimal.Decimal, error) {
	amount = amount.Round(2)
	if !amount.IsPositive() {
		e.metrics.ObserveCash("deposit", metrics.OutcomeRejected)
		return decimal.Zero, ErrInvalidAmount
	}
	return e.moveCash(ctx, "deposit", userID, amount)
}

// Cashout debits a positive amount covered by the balance and returns the
// new balance.
func (e *Executor) Cashout(ctx context.Context, userID int64, amount decimal.Decimal) (decimal.Decimal, error) {
	amount = amount.Round(2)
	if !amount.IsPositive() {
		e.metrics.ObserveCash("cashout", metrics.OutcomeRejected)
		return decimal.Zero, ErrInvalidAmount
	}
	return e.moveCash(ctx, "cashout", userID, amount.Neg())
}

func (e *Executor) moveCash(ctx context.Context, kind string, userID int64, delta decimal.Decimal) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := e.locks.WithUser(userID, func() error {
		return e.repo.WithinTransaction(ctx, func(ctx context.Context) error {
			user, err := e.repo.LockUser(ctx, userID)
			if err != nil {
				return fmt.Errorf("load user %d: %w", userID, err)
			}
			balance = user.CashBalance.Add(delta)
			if balance.IsNegative() {
				return ErrInsufficientFunds
			}
			return e.repo.UpdateCashBalance(ctx, userID, balance)
		})
	})

	switch {
	case err == nil:
		e.metrics.ObserveCash(kind, metrics.OutcomeExecuted)
		zap.L().Info("cash moved", zap.Int64("user_id", userID), zap.String("kind", kind), zap.String("amount", delta.Abs().StringFixed(2)))
	case IsRejection(err):
		e.metrics.ObserveCash(kind, metrics.OutcomeRejected)
	default:
		e.metrics.ObserveCash(kind, metrics.OutcomeFailed)
		zap.L().Error("cash movement failed", zap.Int64("user_id", userID), zap.Error(err))
	}
	if err != nil {
		return decimal.Zero, err
	}
	return balance, nil
}

// IsRejection reports whether err is a business-rule rejection rather than
// an infrastructure failure. Nothing was written when it returns true.
func IsRejection(err error) bool {
	for _, target := range []error{
		ErrInvalidSide, ErrInvalidQuantity, ErrInvalidPrice,
		ErrInsufficientBalance, ErrInsufficientShares, ErrUnknownStock,
		ErrInvalidAmount, ErrInsufficientFunds,
		market.ErrClosed, repository.ErrNotFound,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
