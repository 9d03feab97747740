package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Routes registers every endpoint on r.
func (h *Handler) Routes(r *gin.Engine) {
	r.Use(RequestLogger(h.Metrics), gin.Recovery(), h.LoadSession())

	r.GET("/register", h.RegisterPage)
	r.POST("/register", h.Register)
	r.GET("/login", h.LoginPage)
	r.POST("/login", h.Login)
	r.GET("/logout", h.Logout)
	r.GET("/contact", h.ContactPage)
	r.POST("/contact", h.Contact)

	user := r.Group("/", h.RequireLogin())
	{
		user.GET("", h.Home)
		user.GET("portfolio", h.GetPortfolio)
		user.GET("trade", h.TradePage)
		user.POST("trade", h.Trade)
		user.GET("quotes", h.Quotes)
		user.GET("order_history", h.OrderHistory)
		user.GET("order_history/export", h.ExportOrderHistory)
		user.GET("cash_balance", h.CashPage)
		user.POST("cash_balance", h.MoveCash)
	}

	adm := r.Group("/admin", h.RequireAdmin())
	{
		adm.GET("", h.AdminDashboard)
		adm.GET("/users", h.AdminUsers)
		adm.GET("/messages", h.AdminMessages)
		adm.GET("/stocks", h.AdminStocks)
		adm.POST("/stocks", h.AddStock)
		adm.GET("/stocks/:id/edit", h.EditStockPage)
		adm.POST("/stocks/:id/edit", h.EditStock)
		adm.POST("/stocks/:id/delete", h.DeleteStock)
		adm.GET("/market_hours", h.MarketHoursPage)
		adm.POST("/market_hours", h.UpdateMarketHours)
		adm.GET("/market_days", h.MarketDaysPage)
		adm.POST("/market_days", h.UpdateMarketDays)
	}

	if h.Hub != nil {
		r.GET("/ws/prices", h.Hub.HandleWebSocket)
	}

	// Health check
	r.GET("/health", func(c *gin.Context) {
		if err := h.Repo.DB().PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})
	if h.Metrics != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(h.Metrics.Registry(), promhttp.HandlerOpts{})))
	}
}
