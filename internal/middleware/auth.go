package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// AuthRequired rejects backend requests without a valid session
func AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if GetSession(c) == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"message": "Not authenticated",
			})
			return
		}

		c.Next()
	}
}
