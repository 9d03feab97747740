package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/atharvakonge/papertrade/internal/auth"
	"github.com/atharvakonge/papertrade/internal/logger"
	"github.com/atharvakonge/papertrade/internal/metrics"
	"github.com/atharvakonge/papertrade/internal/models"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	requestIDHeader = "X-Request-ID"
	sessionKey      = "session"
)

// RequestLogger tags each request with an id, logs it and records its
// latency.
func RequestLogger(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Header(requestIDHeader, id)
		c.Request = c.Request.WithContext(logger.WithRequestID(c.Request.Context(), id))

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		elapsed := time.Since(start)
		status := c.Writer.Status()
		m.ObserveRequest(c.Request.Method, route, status, elapsed)

		log := logger.FromContext(c.Request.Context())
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", status),
			zap.Duration("latency", elapsed),
		}
		if status >= http.StatusInternalServerError {
			log.Warn("request", fields...)
			return
		}
		log.Info("request", fields...)
	}
}

// LoadSession attaches the session named by the cookie, if any.
func (h *Handler) LoadSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := c.Cookie(h.Session.CookieName)
		if err != nil || id == "" {
			c.Next()
			return
		}

		sess, err := h.Auth.Sessions().Get(c.Request.Context(), id)
		switch {
		case err == nil:
			c.Set(sessionKey, &sess)
		case !errors.Is(err, auth.ErrSessionNotFound):
			logger.FromContext(c.Request.Context()).Warn("failed to load session", zap.Error(err))
		}
		c.Next()
	}
}

// RequireLogin redirects anonymous visitors to the login page.
func (h *Handler) RequireLogin() gin.HandlerFunc {
	return h.require(models.RoleUser)
}

// RequireAdmin redirects anonymous visitors to login and other users home.
func (h *Handler) RequireAdmin() gin.HandlerFunc {
	return h.require(models.RoleAdmin)
}

func (h *Handler) require(role models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess := currentSession(c)
		if role == models.RoleAdmin && sess != nil {
			// roles change outside the session, so admin checks use the stored one
			fresh, err := h.refreshRole(c, sess)
			if err != nil {
				serverError(c, err)
				c.Abort()
				return
			}
			sess = fresh
		}

		switch err := auth.Authorize(sess, role); {
		case err == nil:
			c.Next()
		case errors.Is(err, auth.ErrForbidden):
			c.Redirect(http.StatusSeeOther, "/")
			c.Abort()
		default:
			c.Redirect(http.StatusSeeOther, "/login")
			c.Abort()
		}
	}
}

// refreshRole returns sess carrying the user's current role. A user that no
// longer exists yields a nil session.
func (h *Handler) refreshRole(c *gin.Context, sess *auth.Session) (*auth.Session, error) {
	user, err := h.Repo.GetUserByID(c.Request.Context(), sess.UserID)
	if isNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if user.Role == sess.Role {
		return sess, nil
	}
	updated := *sess
	updated.Role = user.Role
	c.Set(sessionKey, &updated)
	return &updated, nil
}

func currentSession(c *gin.Context) *auth.Session {
	if v, ok := c.Get(sessionKey); ok {
		if sess, ok := v.(*auth.Session); ok {
			return sess
		}
	}
	return nil
}

// userID is only valid behind RequireLogin.
func userID(c *gin.Context) int64 {
	return currentSession(c).UserID
}
