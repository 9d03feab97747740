package repository

import (
	"context"
	"fmt"

	"github.com/atharvakonge/papertrade/internal/models"
)

// InsertTransaction appends t to the transaction log and sets its id.
func (r *Repository) InsertTransaction(ctx context.Context, t *models.Transaction) error {
	t.CreatedAt = now()
	q := r.q(ctx)
	err := q.QueryRowxContext(ctx, q.Rebind(`
		INSERT INTO transactions (user_id, stock_id, order_type, quantity, price, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		RETURNING id`),
		t.UserID, t.StockID, t.OrderType, t.Quantity, t.Price, t.CreatedAt,
	).Scan(&t.ID)
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

// ListTransactions returns the user's most recent transactions first.
// A limit of zero or less returns all of them.
func (r *Repository) ListTransactions(ctx context.Context, userID int64, limit int) ([]models.TransactionView, error) {
	query := `
		SELECT t.id, t.user_id, t.stock_id, t.order_type, t.quantity, t.price, t.created_at,
		       s.ticker, s.company_name
		FROM transactions t
		JOIN stocks s ON s.id = t.stock_id
		WHERE t.user_id = ?
		ORDER BY t.created_at DESC, t.id DESC`
	args := []interface{}{userID}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	txs := make([]models.TransactionView, 0)
	q := r.q(ctx)
	err := q.SelectContext(ctx, &txs, q.Rebind(query), args...)
	return txs, err
}

func (r *Repository) CountTransactions(ctx context.Context) (int, error) {
	var n int
	err := r.q(ctx).GetContext(ctx, &n, "SELECT COUNT(*) FROM transactions")
	return n, err
}
