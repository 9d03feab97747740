package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/atharvakonge/papertrade/internal/models"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// CashMover credits and debits a user's balance.
type CashMover interface {
	Deposit(ctx context.Context, userID int64, amount decimal.Decimal) (decimal.Decimal, error)
	Cashout(ctx context.Context, userID int64, amount decimal.Decimal) (decimal.Decimal, error)
}

// CashPage handles GET /cash_balance
func (h *Handler) CashPage(c *gin.Context) {
	h.renderCash(c, http.StatusOK, "")
}

func (h *Handler) renderCash(c *gin.Context, status int, msg string) {
	user, err := h.Repo.GetUserByID(c.Request.Context(), userID(c))
	if err != nil {
		serverError(c, err)
		return
	}
	view(c, status, msg, gin.H{
		"cash_balance": user.CashBalance,
		"cash_display": models.FormatUSD(user.CashBalance),
	})
}

type cashForm struct {
	Action string `form:"action" json:"action"`
	Amount string `form:"amount" json:"amount"`
}

// MoveCash handles POST /cash_balance, a deposit or a cashout.
func (h *Handler) MoveCash(c *gin.Context) {
	var form cashForm
	_ = c.ShouldBind(&form)

	amount, err := decimal.NewFromString(strings.TrimSpace(form.Amount))
	if err != nil {
		h.renderCash(c, http.StatusUnprocessableEntity, msgBadAmount)
		return
	}

	ctx := c.Request.Context()
	var (
		balance decimal.Decimal
		verb    string
	)
	switch strings.ToLower(form.Action) {
	case "deposit":
		verb = "Deposited"
		balance, err = h.Cash.Deposit(ctx, userID(c), amount)
	case "cashout", "withdraw":
		verb = "Withdrew"
		balance, err = h.Cash.Cashout(ctx, userID(c), amount)
	default:
		h.renderCash(c, http.StatusUnprocessableEntity, "Choose deposit or cashout.")
		return
	}

	if err != nil {
		if msg, ok := rejectionMessage(err); ok {
			redirect(c, "/cash_balance", msg)
			return
		}
		if msg, ok := validationMessage(err); ok {
			h.renderCash(c, http.StatusUnprocessableEntity, msg)
			return
		}
		serverError(c, err)
		return
	}
	redirect(c, "/cash_balance", fmt.Sprintf("%s %s. New balance: %s.", verb, models.FormatUSD(amount.Abs().Round(2)), models.FormatUSD(balance)))
}
