package middleware

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"

	"expense_tracker/internal/auth"
)

// AuthMiddleware validates the JWT and puts the userID into the context.
func AuthMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(401, gin.H{"error": "Authorization header required"})
			c.Abort()
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.JSON(401, gin.H{"error": "Invalid authorization format. Use: Bearer <token>"})
			c.Abort()
			return
		}

		claims, err := auth.ValidateToken(parts[1], secret)
		if err != nil {
			if errors.Is(err, auth.ErrExpiredToken) {
				c.JSON(401, gin.H{"error": "Token expired"})
			} else {
				c.JSON(401, gin.H{"error": "Invalid token"})
			}
			c.Abort()
			return
		}

		if claims.Type != auth.AccessToken {
			c.JSON(401, gin.H{"error": "Invalid token type"})
			c.Abort()
			return
		}

		c.Set(auth.UserIDKey, claims.UserID)
		c.Next()
	}
}
