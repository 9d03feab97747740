// Package admin implements the administrator console: listings, users and
// the market calendar.
package admin

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/atharvakonge/papertrade/internal/market"
	"github.com/atharvakonge/papertrade/internal/models"
	"github.com/atharvakonge/papertrade/internal/repository"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// matches stocks.company_name
const maxCompanyNameLength = 100

var (
	ErrTickerExists = errors.New("ticker already exists")
	ErrStockInUse   = errors.New("stock is held or traded")
)

// ValidationError is a problem with a submitted form field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Field + ": " + e.Message }

type Service struct {
	repo *repository.Repository
}

func NewService(repo *repository.Repository) *Service {
	return &Service{repo: repo}
}

type Dashboard struct {
	Users        int `json:"users"`
	Stocks       int `json:"stocks"`
	Transactions int `json:"transactions"`
}

func (s *Service) Dashboard(ctx context.Context) (Dashboard, error) {
	var (
		d   Dashboard
		err error
	)
	if d.Users, err = s.repo.CountUsers(ctx); err != nil {
		return d, fmt.Errorf("count users: %w", err)
	}
	if d.Stocks, err = s.repo.CountStocks(ctx); err != nil {
		return d, fmt.Errorf("count stocks: %w", err)
	}
	if d.Transactions, err = s.repo.CountTransactions(ctx); err != nil {
		return d, fmt.Errorf("count transactions: %w", err)
	}
	return d, nil
}

func (s *Service) Users(ctx context.Context) ([]models.User, error) {
	return s.repo.ListUsers(ctx)
}

func (s *Service) Stocks(ctx context.Context) ([]models.Stock, error) {
	return s.repo.ListStocks(ctx)
}

func (s *Service) Stock(ctx context.Context, id int64) (models.Stock, error) {
	return s.repo.GetStock(ctx, id)
}

// StockInput is the add/edit stock form.
type StockInput struct {
	CompanyName  string `form:"company_name" json:"company_name"`
	Ticker       string `form:"ticker" json:"ticker"`
	InitialPrice string `form:"initial_price" json:"initial_price"`
	Volume       string `form:"volume" json:"volume"`
}

func (in StockInput) toStock() (models.Stock, error) {
	s := models.Stock{
		CompanyName: strings.TrimSpace(in.CompanyName),
		Ticker:      strings.ToUpper(strings.TrimSpace(in.Ticker)),
	}
	if s.CompanyName == "" {
		return s, &ValidationError{Field: "company_name", Message: "Company name is required."}
	}
	if utf8.RuneCountInString(s.CompanyName) > maxCompanyNameLength {
		return s, &ValidationError{Field: "company_name", Message: fmt.Sprintf("Company name must be at most %d characters.", maxCompanyNameLength)}
	}
	if s.Ticker == "" || len(s.Ticker) > 10 || strings.ContainsAny(s.Ticker, " \t") {
		return s, &ValidationError{Field: "ticker", Message: "Ticker must be 1 to 10 characters without spaces."}
	}

	// checked after rounding so nothing below a cent is stored as zero
	price, err := decimal.NewFromString(strings.TrimSpace(in.InitialPrice))
	if err != nil || !price.Round(2).IsPositive() {
		return s, &ValidationError{Field: "initial_price", Message: "Initial price must be at least $0.01."}
	}
	s.InitialPrice = price.Round(2)

	if v := strings.TrimSpace(in.Volume); v != "" {
		volume, err := strconv.ParseInt(v, 10, 64)
		if err != nil || volume < 0 {
			return s, &ValidationError{Field: "volume", Message: "Volume must be a non-negative whole number."}
		}
		s.Volume = &volume
	}
	return s, nil
}

func (s *Service) AddStock(ctx context.Context, in StockInput) (models.Stock, error) {
	stock, err := in.toStock()
	if err != nil {
		return models.Stock{}, err
	}
	if err := s.repo.CreateStock(ctx, &stock); err != nil {
		if errors.Is(err, repository.ErrAlreadyExists) {
			return models.Stock{}, ErrTickerExists
		}
		return models.Stock{}, err
	}
	zap.L().Info("stock added", zap.Int64("stock_id", stock.ID), zap.String("ticker", stock.Ticker))
	return stock, nil
}

// UpdateStock replaces every editable field of stock id.
func (s *Service) UpdateStock(ctx context.Context, id int64, in StockInput) (models.Stock, error) {
	stock, err := in.toStock()
	if err != nil {
		return models.Stock{}, err
	}
	stock.ID = id
	if err := s.repo.UpdateStock(ctx, stock); err != nil {
		if errors.Is(err, repository.ErrAlreadyExists) {
			return models.Stock{}, ErrTickerExists
		}
		return models.Stock{}, err
	}
	zap.L().Info("stock updated", zap.Int64("stock_id", id), zap.String("ticker", stock.Ticker))
	return s.repo.GetStock(ctx, id)
}

// DeleteStock removes a stock nobody holds or has traded.
func (s *Service) DeleteStock(ctx context.Context, id int64) error {
	return s.repo.WithinTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.repo.GetStock(ctx, id); err != nil {
			return err
		}
		inUse, err := s.repo.StockInUse(ctx, id)
		if err != nil {
			return err
		}
		if inUse {
			return ErrStockInUse
		}
		if err := s.repo.DeleteStock(ctx, id); err != nil {
			return err
		}
		zap.L().Info("stock deleted", zap.Int64("stock_id", id))
		return nil
	})
}

func (s *Service) MarketDays(ctx context.Context) ([]models.MarketDay, error) {
	return s.repo.GetMarketDays(ctx)
}

func (s *Service) MarketHours(ctx context.Context) (models.MarketHours, error) {
	return s.repo.GetMarketHours(ctx)
}

// UpdateMarketDays validates and stores the given weekday rows atomically.
// Closed days may keep empty times.
func (s *Service) UpdateMarketDays(ctx context.Context, days []models.MarketDay) error {
	for i, d := range days {
		if d.Day < 0 || d.Day > 6 {
			return &ValidationError{Field: "day", Message: fmt.Sprintf("Unknown weekday %d.", d.Day)}
		}
		d.OpenTime, d.CloseTime = strings.TrimSpace(d.OpenTime), strings.TrimSpace(d.CloseTime)
		if d.IsOpen || d.OpenTime != "" || d.CloseTime != "" {
			if _, err := market.NewSession(d.OpenTime, d.CloseTime); err != nil {
				return &ValidationError{Field: "day", Message: fmt.Sprintf("%s: %v", time.Weekday(d.Day), err)}
			}
		}
		days[i] = d
	}
	return s.repo.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.UpdateMarketDays(ctx, days); err != nil {
			return err
		}
		zap.L().Info("market days updated", zap.Int("days", len(days)))
		return nil
	})
}

// UpdateMarketHours stores the global session override. Times are
// validated even when the override is disabled.
func (s *Service) UpdateMarketHours(ctx context.Context, h models.MarketHours) error {
	h.OpenTime, h.CloseTime = strings.TrimSpace(h.OpenTime), strings.TrimSpace(h.CloseTime)
	if _, err := market.NewSession(h.OpenTime, h.CloseTime); err != nil {
		return &ValidationError{Field: "market_hours", Message: err.Error()}
	}
	if err := s.repo.UpdateMarketHours(ctx, h); err != nil {
		return err
	}
	zap.L().Info("market hours updated", zap.Bool("enabled", h.Enabled), zap.String("open", h.OpenTime), zap.String("close", h.CloseTime))
	return nil
}
