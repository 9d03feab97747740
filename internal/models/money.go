package models

import (
	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// Currency of every cash amount in the simulator
const Currency = money.USD

// FormatUSD renders an amount for display, e.g. "$15,000.00".
func FormatUSD(amount decimal.Decimal) string {
	cents := amount.Round(2).Shift(2).IntPart()
	return money.New(cents, Currency).Display()
}
