package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/atharvakonge/papertrade/internal/admin"
	"github.com/atharvakonge/papertrade/internal/models"
	"github.com/gin-gonic/gin"
)

// AdminDashboard handles GET /admin
func (h *Handler) AdminDashboard(c *gin.Context) {
	d, err := h.Admin.Dashboard(c.Request.Context())
	if err != nil {
		serverError(c, err)
		return
	}
	view(c, http.StatusOK, "", gin.H{"dashboard": d})
}

// AdminUsers handles GET /admin/users
func (h *Handler) AdminUsers(c *gin.Context) {
	users, err := h.Admin.Users(c.Request.Context())
	if err != nil {
		serverError(c, err)
		return
	}
	view(c, http.StatusOK, "", gin.H{"users": users})
}

// AdminMessages handles GET /admin/messages
func (h *Handler) AdminMessages(c *gin.Context) {
	msgs, err := h.Repo.ListContactMessages(c.Request.Context())
	if err != nil {
		serverError(c, err)
		return
	}
	view(c, http.StatusOK, "", gin.H{"messages": msgs})
}

// AdminStocks handles GET /admin/stocks
func (h *Handler) AdminStocks(c *gin.Context) {
	h.renderStocks(c, http.StatusOK, "", nil)
}

func (h *Handler) renderStocks(c *gin.Context, status int, msg string, form *admin.StockInput) {
	stocks, err := h.Admin.Stocks(c.Request.Context())
	if err != nil {
		serverError(c, err)
		return
	}
	body := gin.H{"stocks": stocks}
	if form != nil {
		body["form"] = form
	}
	view(c, status, msg, body)
}

// AddStock handles POST /admin/stocks
func (h *Handler) AddStock(c *gin.Context) {
	var in admin.StockInput
	_ = c.ShouldBind(&in)

	if _, err := h.Admin.AddStock(c.Request.Context(), in); err != nil {
		if msg, ok := validationMessage(err); ok {
			h.renderStocks(c, http.StatusUnprocessableEntity, msg, &in)
			return
		}
		serverError(c, err)
		return
	}
	redirect(c, "/admin/stocks", msgStockAdded)
}

func stockID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	return id, err == nil && id > 0
}

// EditStockPage handles GET /admin/stocks/:id/edit
func (h *Handler) EditStockPage(c *gin.Context) {
	id, ok := stockID(c)
	if !ok {
		notFound(c)
		return
	}
	stock, err := h.Admin.Stock(c.Request.Context(), id)
	if isNotFound(err) {
		notFound(c)
		return
	}
	if err != nil {
		serverError(c, err)
		return
	}
	view(c, http.StatusOK, "", gin.H{"stock": stock})
}

// EditStock handles POST /admin/stocks/:id/edit
func (h *Handler) EditStock(c *gin.Context) {
	id, ok := stockID(c)
	if !ok {
		notFound(c)
		return
	}
	var in admin.StockInput
	_ = c.ShouldBind(&in)

	_, err := h.Admin.UpdateStock(c.Request.Context(), id, in)
	switch {
	case err == nil:
		redirect(c, "/admin/stocks", msgStockUpdated)
	case isNotFound(err):
		notFound(c)
	default:
		if msg, ok := validationMessage(err); ok {
			view(c, http.StatusUnprocessableEntity, msg, gin.H{"form": in})
			return
		}
		serverError(c, err)
	}
}

// DeleteStock handles POST /admin/stocks/:id/delete
func (h *Handler) DeleteStock(c *gin.Context) {
	id, ok := stockID(c)
	if !ok {
		notFound(c)
		return
	}

	err := h.Admin.DeleteStock(c.Request.Context(), id)
	switch {
	case err == nil:
		redirect(c, "/admin/stocks", msgStockDeleted)
	case isNotFound(err):
		notFound(c)
	case errors.Is(err, admin.ErrStockInUse):
		redirect(c, "/admin/stocks", msgStockInUse)
	default:
		serverError(c, err)
	}
}

// MarketHoursPage handles GET /admin/market_hours
func (h *Handler) MarketHoursPage(c *gin.Context) {
	h.renderMarketHours(c, http.StatusOK, "")
}

func (h *Handler) renderMarketHours(c *gin.Context, status int, msg string) {
	hours, err := h.Admin.MarketHours(c.Request.Context())
	if err != nil {
		serverError(c, err)
		return
	}
	view(c, status, msg, gin.H{"market_hours": hours})
}

// UpdateMarketHours handles POST /admin/market_hours
func (h *Handler) UpdateMarketHours(c *gin.Context) {
	hours := models.MarketHours{
		Enabled:   checkbox(c.PostForm("enabled")),
		OpenTime:  c.PostForm("open_time"),
		CloseTime: c.PostForm("close_time"),
	}
	if err := h.Admin.UpdateMarketHours(c.Request.Context(), hours); err != nil {
		if msg, ok := validationMessage(err); ok {
			h.renderMarketHours(c, http.StatusUnprocessableEntity, msg)
			return
		}
		serverError(c, err)
		return
	}
	redirect(c, "/admin/market_hours", msgHoursUpdated)
}

// MarketDaysPage handles GET /admin/market_days
func (h *Handler) MarketDaysPage(c *gin.Context) {
	h.renderMarketDays(c, http.StatusOK, "")
}

func (h *Handler) renderMarketDays(c *gin.Context, status int, msg string) {
	days, err := h.Admin.MarketDays(c.Request.Context())
	if err != nil {
		serverError(c, err)
		return
	}
	view(c, status, msg, gin.H{"market_days": days})
}

// UpdateMarketDays handles POST /admin/market_days. Each weekday d (0 is
// Sunday) is submitted as open_d, open_time_d and close_time_d; weekdays
// with no fields are left alone.
func (h *Handler) UpdateMarketDays(c *gin.Context) {
	var days []models.MarketDay
	for d := 0; d < 7; d++ {
		openKey, fromKey, toKey := fmt.Sprintf("open_%d", d), fmt.Sprintf("open_time_%d", d), fmt.Sprintf("close_time_%d", d)
		_, hasOpen := c.GetPostForm(openKey)
		from, hasFrom := c.GetPostForm(fromKey)
		to, hasTo := c.GetPostForm(toKey)
		if !hasOpen && !hasFrom && !hasTo {
			continue
		}
		days = append(days, models.MarketDay{
			Day:       d,
			IsOpen:    checkbox(c.PostForm(openKey)),
			OpenTime:  from,
			CloseTime: to,
		})
	}

	if err := h.Admin.UpdateMarketDays(c.Request.Context(), days); err != nil {
		if msg, ok := validationMessage(err); ok {
			h.renderMarketDays(c, http.StatusUnprocessableEntity, msg)
			return
		}
		serverError(c, err)
		return
	}
	redirect(c, "/admin/market_days", msgDaysUpdated)
}

// checkbox interprets an HTML checkbox value.
func checkbox(v string) bool {
	switch v {
	case "on", "true", "1", "yes":
		return true
	}
	return false
}
