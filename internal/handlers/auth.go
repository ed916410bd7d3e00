package handlers

import (
	"net/http"

	"github.com/alimgiray/newsletter-manager/internal/middleware"
	"github.com/gin-gonic/gin"
)

// AuthHandler exposes the backend session to the admin UI. Sessions are
// issued by the shop backend login, this service only reads and clears them.
type AuthHandler struct{}

func NewAuthHandler() *AuthHandler {
	return &AuthHandler{}
}

// Session returns the signed-in backend user
func (h *AuthHandler) Session(c *gin.Context) {
	session := middleware.GetSession(c)
	if session == nil {
		c.JSON(http.StatusUnauthorized, gin.H{
			"success": false,
			"message": "Not authenticated",
		})
		return
	}

	respondData(c, gin.H{
		"userId":    session.UserID,
		"username":  session.Username,
		"role":      session.Role,
		"expiresAt": session.ExpiresAt,
	})
}

// Logout handles user logout
func (h *AuthHandler) Logout(c *gin.Context) {
	middleware.ClearSession(c)
	respondSuccess(c)
}
