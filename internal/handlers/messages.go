package handlers

import (
	"errors"
	"fmt"

	"github.com/atharvakonge/papertrade/internal/admin"
	"github.com/atharvakonge/papertrade/internal/auth"
	"github.com/atharvakonge/papertrade/internal/ledger"
	"github.com/atharvakonge/papertrade/internal/market"
	"github.com/atharvakonge/papertrade/internal/models"
)

// Display strings shown to users
const (
	msgLoginOK        = "Login successful!"
	msgLogoutOK       = "Logout successful!"
	msgRegistered     = "Registration successful! Please log in."
	msgBadCredentials = "Invalid username or password."
	msgUsernameTaken  = "Username already exists!"
	msgEmailTaken     = "Email already exists!"
	msgNoCash         = "Not enough cash to buy."
	msgNoShares       = "Not enough shares to sell."
	msgNoFunds        = "Insufficient funds."
	msgBadQuantity    = "Quantity must be a positive whole number."
	msgBadAmount      = "Amount must be a positive number."
	msgBadSide        = "Choose buy or sell."
	msgUnknownStock   = "Unknown stock."
	msgBadPrice       = "This stock has no valid price and cannot be traded."
	msgTickerExists   = "Ticker already exists!"
	msgStockInUse     = "Stock cannot be deleted while it is held or has order history."
	msgStockAdded     = "Stock added successfully!"
	msgStockUpdated   = "Stock updated successfully!"
	msgStockDeleted   = "Stock deleted successfully!"
	msgHoursUpdated   = "Market hours updated successfully!"
	msgDaysUpdated    = "Market days updated successfully!"
	msgContactSent    = "Thank you! Your message has been sent."
	msgContactMissing = "Name, email and message are required."
	msgContactTooLong = "Name and email must be at most 100 characters."
)

// rejectionMessage renders a business-rule rejection. ok is false when err
// is not one.
func rejectionMessage(err error) (msg string, ok bool) {
	var closed *market.ClosedError
	switch {
	case errors.As(err, &closed):
		return closed.Error(), true
	case errors.Is(err, ledger.ErrInsufficientBalance):
		return msgNoCash, true
	case errors.Is(err, ledger.ErrInsufficientShares):
		return msgNoShares, true
	case errors.Is(err, ledger.ErrInsufficientFunds):
		return msgNoFunds, true
	case errors.Is(err, admin.ErrStockInUse):
		return msgStockInUse, true
	}
	return "", false
}

// validationMessage renders a form problem. ok is false when err is not one.
func validationMessage(err error) (msg string, ok bool) {
	var authErr *auth.ValidationError
	var adminErr *admin.ValidationError
	switch {
	case errors.As(err, &authErr):
		return authErr.Message, true
	case errors.As(err, &adminErr):
		return adminErr.Message, true
	case errors.Is(err, auth.ErrUsernameTaken):
		return msgUsernameTaken, true
	case errors.Is(err, auth.ErrEmailTaken):
		return msgEmailTaken, true
	case errors.Is(err, admin.ErrTickerExists):
		return msgTickerExists, true
	case errors.Is(err, ledger.ErrInvalidQuantity):
		return msgBadQuantity, true
	case errors.Is(err, ledger.ErrInvalidSide):
		return msgBadSide, true
	case errors.Is(err, ledger.ErrInvalidPrice):
		return msgBadPrice, true
	case errors.Is(err, ledger.ErrUnknownStock):
		return msgUnknownStock, true
	case errors.Is(err, ledger.ErrInvalidAmount):
		return msgBadAmount, true
	}
	return "", false
}

func orderMessage(r ledger.Receipt) string {
	verb := "Bought"
	if r.Transaction.OrderType == models.SideSell {
		verb = "Sold"
	}
	return fmt.Sprintf("%s %d shares of %s at %s.", verb, r.Transaction.Quantity, r.Ticker, models.FormatUSD(r.Transaction.Price))
}
