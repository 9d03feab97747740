package ledger

import "errors"

var (
	ErrInvalidSide         = errors.New("invalid order side")
	ErrInvalidQuantity     = errors.New("quantity must be a positive whole number")
	ErrInvalidPrice        = errors.New("price must be positive")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrInsufficientShares  = errors.New("insufficient shares")
	ErrUnknownStock        = errors.New("unknown stock")

	ErrInvalidAmount     = errors.New("amount must be positive")
	ErrInsufficientFunds = errors.New("insufficient funds")
)
