package handlers

import (
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/atharvakonge/papertrade/internal/models"
	"github.com/gin-gonic/gin"
)

// column width of contact_messages.name and .email
const maxContactFieldLength = 100

func (h *Handler) ContactPage(c *gin.Context) {
	view(c, http.StatusOK, "", nil)
}

// Contact handles POST /contact
func (h *Handler) Contact(c *gin.Context) {
	var m models.ContactMessage
	m.Name = strings.TrimSpace(c.PostForm("name"))
	m.Email = strings.TrimSpace(c.PostForm("email"))
	m.Message = strings.TrimSpace(c.PostForm("message"))

	if m.Name == "" || m.Email == "" || m.Message == "" {
		view(c, http.StatusUnprocessableEntity, msgContactMissing, gin.H{"name": m.Name, "email": m.Email})
		return
	}
	if utf8.RuneCountInString(m.Name) > maxContactFieldLength || utf8.RuneCountInString(m.Email) > maxContactFieldLength {
		view(c, http.StatusUnprocessableEntity, msgContactTooLong, gin.H{"name": m.Name, "email": m.Email})
		return
	}
	if err := h.Repo.InsertContactMessage(c.Request.Context(), &m); err != nil {
		serverError(c, err)
		return
	}
	redirect(c, "/contact", msgContactSent)
}
