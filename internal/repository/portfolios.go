package repository

import (
	"context"
	"fmt"

	"github.com/atharvakonge/papertrade/internal/models"
)

const positionColumns = "id, user_id, stock_id, quantity, average_price, updated_at"

// GetPosition returns the open position of userID in stockID. With lock set
// the row stays locked until the surrounding transaction ends.
func (r *Repository) GetPosition(ctx context.Context, userID, stockID int64, lock bool) (models.Position, error) {
	query := "SELECT " + positionColumns + " FROM portfolios WHERE user_id = ? AND stock_id = ?"
	if lock {
		query += r.forUpdate()
	}
	var p models.Position
	q := r.q(ctx)
	err := q.GetContext(ctx, &p, q.Rebind(query), userID, stockID)
	return p, notFound(err)
}

func (r *Repository) InsertPosition(ctx context.Context, p *models.Position) error {
	p.UpdatedAt = now()
	q := r.q(ctx)
	err := q.QueryRowxContext(ctx, q.Rebind(`
		INSERT INTO portfolios (user_id, stock_id, quantity, average_price, updated_at)
		VALUES (?, ?, ?, ?, ?)
		RETURNING id`),
		p.UserID, p.StockID, p.Quantity, p.AveragePrice, p.UpdatedAt,
	).Scan(&p.ID)
	if isUniqueViolation(err) {
		return ErrAlreadyExists
	}
	if err != nil {
		return fmt.Errorf("insert position: %w", err)
	}
	return nil
}

func (r *Repository) UpdatePosition(ctx context.Context, p models.Position) error {
	q := r.q(ctx)
	res, err := q.ExecContext(ctx, q.Rebind(`
		UPDATE portfolios SET quantity = ?, average_price = ?, updated_at = ?
		WHERE id = ?`),
		p.Quantity, p.AveragePrice, now(), p.ID,
	)
	if err != nil {
		return fmt.Errorf("update position: %w", err)
	}
	return expectOneRow(res)
}

func (r *Repository) DeletePosition(ctx context.Context, id int64) error {
	q := r.q(ctx)
	res, err := q.ExecContext(ctx, q.Rebind("DELETE FROM portfolios WHERE id = ?"), id)
	if err != nil {
		return fmt.Errorf("delete position: %w", err)
	}
	return expectOneRow(res)
}

// ListPositions returns the user's open positions ordered by ticker.
func (r *Repository) ListPositions(ctx context.Context, userID int64) ([]models.PositionView, error) {
	positions := make([]models.PositionView, 0)
	q := r.q(ctx)
	err := q.SelectContext(ctx, &positions, q.Rebind(`
		SELECT p.id, p.user_id, p.stock_id, p.quantity, p.average_price, p.updated_at,
		       s.ticker, s.company_name
		FROM portfolios p
		JOIN stocks s ON s.id = p.stock_id
		WHERE p.user_id = ?
		ORDER BY s.ticker`), userID)
	return positions, err
}
