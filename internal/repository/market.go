package repository

import (
	"context"
	"fmt"

	"github.com/atharvakonge/papertrade/internal/models"
)

func (r *Repository) GetMarketDays(ctx context.Context) ([]models.MarketDay, error) {
	days := make([]models.MarketDay, 0, 7)
	err := r.q(ctx).SelectContext(ctx, &days, "SELECT day, is_open, open_time, close_time FROM market_days ORDER BY day")
	return days, err
}

func (r *Repository) GetMarketHours(ctx context.Context) (models.MarketHours, error) {
	var h models.MarketHours
	err := r.q(ctx).GetContext(ctx, &h, "SELECT enabled, open_time, close_time FROM market_hours WHERE id = 1")
	return h, notFound(err)
}

// UpdateMarketDays replaces the given weekday rows. Call within a
// transaction to make the update all-or-nothing.
func (r *Repository) UpdateMarketDays(ctx context.Context, days []models.MarketDay) error {
	q := r.q(ctx)
	query := q.Rebind("UPDATE market_days SET is_open = ?, open_time = ?, close_time = ? WHERE day = ?")
	for _, d := range days {
		res, err := q.ExecContext(ctx, query, d.IsOpen, d.OpenTime, d.CloseTime, d.Day)
		if err != nil {
			return fmt.Errorf("update market day %d: %w", d.Day, err)
		}
		if err := expectOneRow(res); err != nil {
			return fmt.Errorf("update market day %d: %w", d.Day, err)
		}
	}
	return nil
}

func (r *Repository) UpdateMarketHours(ctx context.Context, h models.MarketHours) error {
	q := r.q(ctx)
	res, err := q.ExecContext(ctx,
		q.Rebind("UPDATE market_hours SET enabled = ?, open_time = ?, close_time = ? WHERE id = 1"),
		h.Enabled, h.OpenTime, h.CloseTime)
	if err != nil {
		return fmt.Errorf("update market hours: %w", err)
	}
	return expectOneRow(res)
}
