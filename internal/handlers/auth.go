package handlers

import (
	"errors"
	"net/http"

	"github.com/atharvakonge/papertrade/internal/auth"
	"github.com/atharvakonge/papertrade/internal/logger"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func (h *Handler) RegisterPage(c *gin.Context) {
	view(c, http.StatusOK, "", nil)
}

// Register handles POST /register
func (h *Handler) Register(c *gin.Context) {
	var in auth.RegisterInput
	if err := c.ShouldBind(&in); err != nil {
		view(c, http.StatusUnprocessableEntity, "Invalid registration form.", nil)
		return
	}

	_, err := h.Auth.Register(c.Request.Context(), in)
	if err != nil {
		if msg, ok := validationMessage(err); ok {
			view(c, http.StatusUnprocessableEntity, msg, gin.H{
				"full_name": in.FullName,
				"username":  in.Username,
				"email":     in.Email,
			})
			return
		}
		serverError(c, err)
		return
	}
	redirect(c, "/login", msgRegistered)
}

func (h *Handler) LoginPage(c *gin.Context) {
	view(c, http.StatusOK, "", nil)
}

type loginForm struct {
	Username string `form:"username" json:"username"`
	Password string `form:"password" json:"password"`
}

// Login handles POST /login
func (h *Handler) Login(c *gin.Context) {
	var form loginForm
	_ = c.ShouldBind(&form)

	sess, err := h.Auth.Login(c.Request.Context(), form.Username, form.Password)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		view(c, http.StatusUnauthorized, msgBadCredentials, gin.H{"username": form.Username})
		return
	}
	if err != nil {
		serverError(c, err)
		return
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.Session.CookieName, sess.ID, int(h.Session.TTL.Seconds()), "/", "", h.Session.Secure, true)
	logger.FromContext(c.Request.Context()).Info("user logged in", zap.Int64("user_id", sess.UserID))
	redirect(c, "/portfolio", msgLoginOK)
}

// Logout handles GET /logout
func (h *Handler) Logout(c *gin.Context) {
	if id, err := c.Cookie(h.Session.CookieName); err == nil && id != "" {
		if err := h.Auth.Logout(c.Request.Context(), id); err != nil {
			logger.FromContext(c.Request.Context()).Warn("failed to delete session", zap.Error(err))
		}
	}
	c.SetCookie(h.Session.CookieName, "", -1, "/", "", h.Session.Secure, true)
	redirect(c, "/login", msgLogoutOK)
}
