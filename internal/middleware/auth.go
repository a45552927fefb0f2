package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"linkforge/internal/jwt"
)

const AdminEmailKey = "admin_email"

// AuthMiddleware requires a valid bearer token issued by jwtService
func AuthMiddleware(jwtService *jwt.JWTService) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Authorization header required",
			})
			return
		}

		claims, err := jwtService.ValidateToken(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Invalid or expired token",
			})
			return
		}

		c.Set(AdminEmailKey, claims.Email)
		c.Next()
	}
}
