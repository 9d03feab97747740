package repository

import (
	"context"
	"fmt"

	"github.com/atharvakonge/papertrade/internal/models"
)

const stockColumns = "id, company_name, ticker, initial_price, volume, created_at"

func (r *Repository) ListStocks(ctx context.Context) ([]models.Stock, error) {
	stocks := make([]models.Stock, 0)
	err := r.q(ctx).SelectContext(ctx, &stocks, "SELECT "+stockColumns+" FROM stocks ORDER BY id")
	return stocks, err
}

func (r *Repository) GetStock(ctx context.Context, id int64) (models.Stock, error) {
	var s models.Stock
	q := r.q(ctx)
	err := q.GetContext(ctx, &s, q.Rebind("SELECT "+stockColumns+" FROM stocks WHERE id = ?"), id)
	return s, notFound(err)
}

func (r *Repository) GetStockByTicker(ctx context.Context, ticker string) (models.Stock, error) {
	var s models.Stock
	q := r.q(ctx)
	err := q.GetContext(ctx, &s, q.Rebind("SELECT "+stockColumns+" FROM stocks WHERE ticker = ?"), ticker)
	return s, notFound(err)
}

// CreateStock inserts s and sets its id. A duplicate ticker yields
// ErrAlreadyExists.
func (r *Repository) CreateStock(ctx context.Context, s *models.Stock) error {
	s.CreatedAt = now()
	q := r.q(ctx)
	err := q.QueryRowxContext(ctx, q.Rebind(`
		INSERT INTO stocks (company_name, ticker, initial_price, volume, created_at)
		VALUES (?, ?, ?, ?, ?)
		RETURNING id`),
		s.CompanyName, s.Ticker, s.InitialPrice, s.Volume, s.CreatedAt,
	).Scan(&s.ID)
	if isUniqueViolation(err) {
		return ErrAlreadyExists
	}
	if err != nil {
		return fmt.Errorf("insert stock: %w", err)
	}
	return nil
}

// UpdateStock rewrites every editable field of the stock with s.ID.
func (r *Repository) UpdateStock(ctx context.Context, s models.Stock) error {
	q := r.q(ctx)
	res, err := q.ExecContext(ctx, q.Rebind(`
		UPDATE stocks SET company_name = ?, ticker = ?, initial_price = ?, volume = ?
		WHERE id = ?`),
		s.CompanyName, s.Ticker, s.InitialPrice, s.Volume, s.ID,
	)
	if isUniqueViolation(err) {
		return ErrAlreadyExists
	}
	if err != nil {
		return fmt.Errorf("update stock: %w", err)
	}
	return expectOneRow(res)
}

func (r *Repository) DeleteStock(ctx context.Context, id int64) error {
	q := r.q(ctx)
	res, err := q.ExecContext(ctx, q.Rebind("DELETE FROM stocks WHERE id = ?"), id)
	if err != nil {
		return fmt.Errorf("delete stock: %w", err)
	}
	return expectOneRow(res)
}

// StockInUse reports whether any position or transaction references the stock.
func (r *Repository) StockInUse(ctx context.Context, id int64) (bool, error) {
	q := r.q(ctx)
	var n int
	err := q.GetContext(ctx, &n, q.Rebind(`
		SELECT (SELECT COUNT(*) FROM portfolios WHERE stock_id = ?)
		     + (SELECT COUNT(*) FROM transactions WHERE stock_id = ?)`), id, id)
	return n > 0, err
}

func (r *Repository) CountStocks(ctx context.Context) (int, error) {
	var n int
	err := r.q(ctx).GetContext(ctx, &n, "SELECT COUNT(*) FROM stocks")
	return n, err
}
