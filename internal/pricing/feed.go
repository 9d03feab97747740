// Package pricing produces simulated display prices.
//
// The generator is a linear congruential sequence. It is reproducible for a
// given seed and call order, and unsuitable for anything but a simulator.
package pricing

import (
	"sync"

	"github.com/atharvakonge/papertrade/internal/models"
	"github.com/shopspring/decimal"
)

const (
	multiplier = 9301
	increment  = 49297
	modulus    = 233280

	// DefaultSeed is the seed used when none is configured
	DefaultSeed = 42
)

// Feed owns one generator state. Safe for concurrent use.
type Feed struct {
	mu   sync.Mutex
	seed int64
	band decimal.Decimal
}

// NewFeed returns a feed seeded with seed. band is the relative width of the
// quote range around a stock's initial price (0.2 → ±20%).
func NewFeed(seed int64, band decimal.Decimal) *Feed {
	return &Feed{seed: seed % modulus, band: band}
}

// Next advances the generator and returns the new state in [0, 233280).
func (f *Feed) Next() int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seed = (f.seed*multiplier + increment) % modulus
	return f.seed
}

// Price returns a price in [min, max) rounded to cents.
func (f *Feed) Price(min, max decimal.Decimal) decimal.Decimal {
	fraction := decimal.NewFromInt(f.Next()).Div(decimal.NewFromInt(modulus))
	return min.Add(max.Sub(min).Mul(fraction)).Round(2)
}

// Bounds returns the quote range for a stock.
func (f *Feed) Bounds(stock models.Stock) (decimal.Decimal, decimal.Decimal) {
	one := decimal.NewFromInt(1)
	min := stock.InitialPrice.Mul(one.Sub(f.band))
	max := stock.InitialPrice.Mul(one.Add(f.band))
	return min, max
}

// Quote advances the generator once and prices stock.
func (f *Feed) Quote(stock models.Stock) models.Quote {
	min, max := f.Bounds(stock)
	return models.Quote{
		StockID:     stock.ID,
		Ticker:      stock.Ticker,
		CompanyName: stock.CompanyName,
		Price:       f.Price(min, max),
	}
}

// Quotes prices every stock once, in slice order.
func (f *Feed) Quotes(stocks []models.Stock) []models.Quote {
	quotes := make([]models.Quote, 0, len(stocks))
	for _, s := range stocks {
		quotes = append(quotes, f.Quote(s))
	}
	return quotes
}

// QuoteMap indexes quotes by stock id.
func QuoteMap(quotes []models.Quote) map[int64]decimal.Decimal {
	m := make(map[int64]decimal.Decimal, len(quotes))
	for _, q := range quotes {
		m[q.StockID] = q.Price
	}
	return m
}
