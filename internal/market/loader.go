package market

import (
	"context"
	"fmt"

	"github.com/atharvakonge/papertrade/internal/models"
)

// ScheduleSource reads the persisted weekly calendar.
type ScheduleSource interface {
	GetMarketDays(ctx context.Context) ([]models.MarketDay, error)
	GetMarketHours(ctx context.Context) (models.MarketHours, error)
}

// Load reads the calendar and the optional global session from src.
func Load(ctx context.Context, src ScheduleSource) (Schedule, error) {
	days, err := src.GetMarketDays(ctx)
	if err != nil {
		return Schedule{}, fmt.Errorf("load market days: %w", err)
	}
	hours, err := src.GetMarketHours(ctx)
	if err != nil {
		return Schedule{}, fmt.Errorf("load market hours: %w", err)
	}
	return ScheduleFromRows(days, &hours)
}
