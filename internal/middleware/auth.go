package middleware

import (
	"github.com/gin-gonic/gin"
)

// DevelopmentAuthMiddleware is a simple auth middleware for development
func DevelopmentAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Get user ID from context if an upstream auth layer already set it.
		// Non-string values are ignored rather than trusted.
		userIDVal, _ := c.Get("user_id")
		userID, _ := userIDVal.(string)
		if userID == "" {
			userID = "00000000-0000-0000-0000-000000000001" // Valid UUID for dev
		}

		// Set both camelCase and snake_case for compatibility
		c.Set("userId", userID)
		c.Set("user_id", userID)
		c.Next()
	}
}
