package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// Valid reports whether s is one of the two order sides.
func (s Side) Valid() bool {
	return s == SideBuy || s == SideSell
}

// User represents a registered trader
type User struct {
	ID           int64           `db:"id" json:"id"`
	FullName     string          `db:"full_name" json:"full_name"`
	Username     string          `db:"username" json:"username"`
	Email        string          `db:"email" json:"email"`
	PasswordHash string          `db:"password_hash" json:"-"`
	Role         Role            `db:"role" json:"role"`
	CashBalance  decimal.Decimal `db:"cash_balance" json:"cash_balance"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
}

func (u User) IsAdmin() bool { return u.Role == RoleAdmin }

// Stock is an admin-managed listing. InitialPrice seeds the quote band,
// it is never the trading price.
type Stock struct {
	ID           int64           `db:"id" json:"id"`
	CompanyName  string          `db:"company_name" json:"company_name"`
	Ticker       string          `db:"ticker" json:"ticker"`
	InitialPrice decimal.Decimal `db:"initial_price" json:"initial_price"`
	Volume       *int64          `db:"volume" json:"volume,omitempty"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
}

// Position represents the shares of one stock held by a user
type Position struct {
	ID           int64           `db:"id" json:"id"`
	UserID       int64           `db:"user_id" json:"user_id"`
	StockID      int64           `db:"stock_id" json:"stock_id"`
	Quantity     int64           `db:"quantity" json:"quantity"`
	AveragePrice decimal.Decimal `db:"average_price" json:"average_price"`
	UpdatedAt    time.Time       `db:"updated_at" json:"updated_at"`
}

// Transaction is one executed order. Rows are never updated or deleted.
type Transaction struct {
	ID        int64           `db:"id" json:"id"`
	UserID    int64           `db:"user_id" json:"user_id"`
	StockID   int64           `db:"stock_id" json:"stock_id"`
	OrderType Side            `db:"order_type" json:"order_type"`
	Quantity  int64           `db:"quantity" json:"quantity"`
	Price     decimal.Decimal `db:"price" json:"price"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
}

// Total is the cash value of the transaction.
func (t Transaction) Total() decimal.Decimal {
	return t.Price.Mul(decimal.NewFromInt(t.Quantity))
}

// TransactionView joins a transaction with its stock for history listings
type TransactionView struct {
	Transaction
	Ticker      string `db:"ticker" json:"ticker"`
	CompanyName string `db:"company_name" json:"company_name"`
}

// PositionView joins a position with its stock and a current quote
type PositionView struct {
	Position
	Ticker       string          `db:"ticker" json:"ticker"`
	CompanyName  string          `db:"company_name" json:"company_name"`
	CurrentPrice decimal.Decimal `db:"-" json:"current_price"`
	MarketValue  decimal.Decimal `db:"-" json:"market_value"`
}

// Quote is a display price for one stock
type Quote struct {
	StockID     int64           `json:"stock_id"`
	Ticker      string          `json:"ticker"`
	CompanyName string          `json:"company_name"`
	Price       decimal.Decimal `json:"price"`
}

// ContactMessage is a message left through the public contact form
type ContactMessage struct {
	ID        int64     `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Email     string    `db:"email" json:"email"`
	Message   string    `db:"message" json:"message"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// MarketDay is the persisted session for one weekday (0 = Sunday)
type MarketDay struct {
	Day       int    `db:"day" json:"day"`
	IsOpen    bool   `db:"is_open" json:"is_open"`
	OpenTime  string `db:"open_time" json:"open_time"`
	CloseTime string `db:"close_time" json:"close_time"`
}

// MarketHours is the optional global open/close override
type MarketHours struct {
	Enabled   bool   `db:"enabled" json:"enabled"`
	OpenTime  string `db:"open_time" json:"open_time"`
	CloseTime string `db:"close_time" json:"close_time"`
}

// PortfolioResponse - what we send back for the portfolio view
type PortfolioResponse struct {
	Positions   []PositionView  `json:"positions"`
	CashBalance decimal.Decimal `json:"cash_balance"`
	CashDisplay string          `json:"cash_display"`
	TotalValue  decimal.Decimal `json:"total_value"`
}
