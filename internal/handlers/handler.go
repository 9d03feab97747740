package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/atharvakonge/papertrade/internal/admin"
	"github.com/atharvakonge/papertrade/internal/auth"
	"github.com/atharvakonge/papertrade/internal/config"
	"github.com/atharvakonge/papertrade/internal/logger"
	"github.com/atharvakonge/papertrade/internal/market"
	"github.com/atharvakonge/papertrade/internal/metrics"
	"github.com/atharvakonge/papertrade/internal/pricing"
	"github.com/atharvakonge/papertrade/internal/repository"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Deps are the services the HTTP layer is built from.
type Deps struct {
	Repo    *repository.Repository
	Auth    *auth.Service
	Admin   *admin.Service
	Orders  *OrderProcessor
	Cash    CashMover
	Feed    *pricing.Feed
	Gate    *market.Gate
	Hub     *PriceHub
	Metrics *metrics.Metrics
	Session config.Session
	// Clock defaults to time.Now
	Clock func() time.Time
}

type Handler struct {
	Deps
}

func New(deps Deps) *Handler {
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	return &Handler{Deps: deps}
}

// view renders a JSON view carrying a display message. The message comes
// from the redirect that led here unless msg is set.
func view(c *gin.Context, status int, msg string, body gin.H) {
	if body == nil {
		body = gin.H{}
	}
	if msg == "" {
		msg = c.Query("message")
	}
	body["message"] = msg
	c.JSON(status, body)
}

// redirect sends the client to path with a display message.
func redirect(c *gin.Context, path, msg string) {
	if msg != "" {
		path += "?message=" + url.QueryEscape(msg)
	}
	c.Redirect(http.StatusSeeOther, path)
}

func notFound(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{"message": "Not found."})
}

// serverError logs err and renders a generic failure.
func serverError(c *gin.Context, err error) {
	logger.FromContext(c.Request.Context()).Error("request failed",
		zap.String("path", c.Request.URL.Path), zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"message": "Something went wrong. Please try again."})
}

// marketStatus loads the calendar and evaluates it at the handler clock.
func (h *Handler) marketStatus(ctx context.Context) (market.Status, error) {
	schedule, err := market.Load(ctx, h.Repo)
	if err != nil {
		return market.Status{}, err
	}
	return h.Gate.Status(schedule, h.Clock()), nil
}

func isNotFound(err error) bool {
	return errors.Is(err, repository.ErrNotFound)
}
