package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/atharvakonge/papertrade/internal/ledger"
	"github.com/atharvakonge/papertrade/internal/models"
	"github.com/atharvakonge/papertrade/internal/pricing"
	"github.com/atharvakonge/papertrade/internal/report"
	"github.com/atharvakonge/papertrade/internal/repository"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// Home handles GET /
func (h *Handler) Home(c *gin.Context) {
	ctx := c.Request.Context()
	user, err := h.Repo.GetUserByID(ctx, userID(c))
	if err != nil {
		serverError(c, err)
		return
	}
	status, err := h.marketStatus(ctx)
	if err != nil {
		serverError(c, err)
		return
	}
	view(c, http.StatusOK, "", gin.H{
		"user":         user,
		"cash_display": models.FormatUSD(user.CashBalance),
		"market":       status,
	})
}

// portfolio values the user's positions at fresh quotes.
func (h *Handler) portfolio(ctx context.Context, uid int64) (models.PortfolioResponse, error) {
	user, err := h.Repo.GetUserByID(ctx, uid)
	if err != nil {
		return models.PortfolioResponse{}, err
	}
	positions, err := h.Repo.ListPositions(ctx, uid)
	if err != nil {
		return models.PortfolioResponse{}, err
	}
	stocks, err := h.Repo.ListStocks(ctx)
	if err != nil {
		return models.PortfolioResponse{}, err
	}

	byID := make(map[int64]models.Stock, len(stocks))
	for _, s := range stocks {
		byID[s.ID] = s
	}

	total := user.CashBalance
	for i := range positions {
		p := &positions[i]
		p.CurrentPrice = h.Feed.Quote(byID[p.StockID]).Price
		p.MarketValue = p.CurrentPrice.Mul(decimal.NewFromInt(p.Quantity))
		total = total.Add(p.MarketValue)
	}

	return models.PortfolioResponse{
		Positions:   positions,
		CashBalance: user.CashBalance,
		CashDisplay: models.FormatUSD(user.CashBalance),
		TotalValue:  total,
	}, nil
}

// GetPortfolio handles GET /portfolio
func (h *Handler) GetPortfolio(c *gin.Context) {
	p, err := h.portfolio(c.Request.Context(), userID(c))
	if err != nil {
		serverError(c, err)
		return
	}
	view(c, http.StatusOK, "", gin.H{
		"positions":     p.Positions,
		"cash_balance":  p.CashBalance,
		"cash_display":  p.CashDisplay,
		"total_value":   p.TotalValue,
		"total_display": models.FormatUSD(p.TotalValue),
	})
}

// TradePage handles GET /trade
func (h *Handler) TradePage(c *gin.Context) {
	h.renderTrade(c, http.StatusOK, "")
}

func (h *Handler) renderTrade(c *gin.Context, status int, msg string) {
	ctx := c.Request.Context()
	stocks, err := h.Repo.ListStocks(ctx)
	if err != nil {
		serverError(c, err)
		return
	}
	p, err := h.portfolio(ctx, userID(c))
	if err != nil {
		serverError(c, err)
		return
	}
	market, err := h.marketStatus(ctx)
	if err != nil {
		serverError(c, err)
		return
	}
	view(c, status, msg, gin.H{
		"stocks":       h.Feed.Quotes(stocks),
		"positions":    p.Positions,
		"cash_balance": p.CashBalance,
		"cash_display": p.CashDisplay,
		"market":       market,
	})
}

type tradeForm struct {
	StockID  string `form:"stock_id" json:"stock_id"`
	Ticker   string `form:"ticker" json:"ticker"`
	Side     string `form:"side" json:"side"`
	Quantity string `form:"quantity" json:"quantity"`
}

// Trade handles POST /trade. The order is priced with a fresh quote.
func (h *Handler) Trade(c *gin.Context) {
	ctx := c.Request.Context()

	var form tradeForm
	_ = c.ShouldBind(&form)

	side := models.Side(strings.ToLower(strings.TrimSpace(form.Side)))
	if !side.Valid() {
		h.renderTrade(c, http.StatusUnprocessableEntity, msgBadSide)
		return
	}
	qty, err := strconv.ParseInt(strings.TrimSpace(form.Quantity), 10, 64)
	if err != nil || qty <= 0 {
		h.renderTrade(c, http.StatusUnprocessableEntity, msgBadQuantity)
		return
	}

	stock, err := h.lookupStock(ctx, form)
	if isNotFound(err) {
		h.renderTrade(c, http.StatusUnprocessableEntity, msgUnknownStock)
		return
	}
	if err != nil {
		serverError(c, err)
		return
	}

	receipt, err := h.Orders.SubmitOrder(ctx, ledger.Order{
		UserID:   userID(c),
		StockID:  stock.ID,
		Side:     side,
		Quantity: qty,
		Price:    h.Feed.Quote(stock).Price,
	})
	if err != nil {
		if msg, ok := rejectionMessage(err); ok {
			redirect(c, "/trade", msg)
			return
		}
		if msg, ok := validationMessage(err); ok {
			h.renderTrade(c, http.StatusUnprocessableEntity, msg)
			return
		}
		serverError(c, err)
		return
	}
	redirect(c, "/trade", orderMessage(receipt))
}

func (h *Handler) lookupStock(ctx context.Context, form tradeForm) (models.Stock, error) {
	if ticker := strings.ToUpper(strings.TrimSpace(form.Ticker)); ticker != "" {
		return h.Repo.GetStockByTicker(ctx, ticker)
	}
	id, err := strconv.ParseInt(strings.TrimSpace(form.StockID), 10, 64)
	if err != nil {
		return models.Stock{}, repository.ErrNotFound
	}
	return h.Repo.GetStock(ctx, id)
}

// OrderHistory handles GET /order_history
func (h *Handler) OrderHistory(c *gin.Context) {
	history, err := h.Repo.ListTransactions(c.Request.Context(), userID(c), 0)
	if err != nil {
		serverError(c, err)
		return
	}
	view(c, http.StatusOK, "", gin.H{
		"transactions": history,
		"count":        len(history),
	})
}

// ExportOrderHistory handles GET /order_history/export
func (h *Handler) ExportOrderHistory(c *gin.Context) {
	ctx := c.Request.Context()
	history, err := h.Repo.ListTransactions(ctx, userID(c), 0)
	if err != nil {
		serverError(c, err)
		return
	}
	data, err := report.OrderHistory(ctx, history)
	if err != nil {
		serverError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="order_history_%s.xlsx"`, h.Clock().UTC().Format("20060102")))
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}

// Quotes handles GET /quotes, the current display price of every stock.
func (h *Handler) Quotes(c *gin.Context) {
	stocks, err := h.Repo.ListStocks(c.Request.Context())
	if err != nil {
		serverError(c, err)
		return
	}
	quotes := h.Feed.Quotes(stocks)
	view(c, http.StatusOK, "", gin.H{"quotes": quotes, "prices": pricing.QuoteMap(quotes)})
}
