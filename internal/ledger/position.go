package ledger

import (
	"github.com/atharvakonge/papertrade/internal/models"
	"github.com/shopspring/decimal"
)

// averagePlaces is the precision of a position's cost basis.
const averagePlaces = 4

// applyBuy adds qty shares bought at price to pos. A zero-quantity pos is
// treated as a new position.
func applyBuy(pos models.Position, qty int64, price decimal.Decimal) models.Position {
	if pos.Quantity <= 0 {
		pos.Quantity = qty
		pos.AveragePrice = price.Round(averagePlaces)
		return pos
	}

	oldQty := decimal.NewFromInt(pos.Quantity)
	addQty := decimal.NewFromInt(qty)
	cost := pos.AveragePrice.Mul(oldQty).Add(price.Mul(addQty))

	pos.Quantity += qty
	pos.AveragePrice = cost.Div(decimal.NewFromInt(pos.Quantity)).Round(averagePlaces)
	return pos
}

// applySell removes qty shares from pos. The average price is left as is;
// a result with zero quantity means the position is closed.
func applySell(pos models.Position, qty int64) (models.Position, error) {
	if pos.Quantity < qty {
		return pos, ErrInsufficientShares
	}
	pos.Quantity -= qty
	return pos, nil
}
