package models

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestFormatUSD(t *testing.T) {
	tests := []struct {
		amount string
		want   string
	}{
		{"15000", "$15,000.00"},
		{"0.5", "$0.50"},
		{"1234.567", "$1,234.57"},
		{"0", "$0.00"},
	}

	for _, tt := range tests {
		got := FormatUSD(decimal.RequireFromString(tt.amount))
		if got != tt.want {
			t.Errorf("FormatUSD(%s) = %s, want %s", tt.amount, got, tt.want)
		}
	}
}

func TestTransactionTotal(t *testing.T) {
	tx := Transaction{Quantity: 5, Price: decimal.RequireFromString("120.10")}
	if !tx.Total().Equal(decimal.RequireFromString("600.50")) {
		t.Errorf("Expected total 600.50, got %s", tx.Total())
	}
}

func TestSideValid(t *testing.T) {
	if !SideBuy.Valid() || !SideSell.Valid() {
		t.Error("Expected buy and sell to be valid")
	}
	if Side("short").Valid() {
		t.Error("Expected unknown side to be invalid")
	}
}
