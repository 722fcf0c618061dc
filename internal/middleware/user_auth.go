package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"toadvault/internal/logger"
)

// UserIDKey is the gin context key holding the authenticated user id.
const UserIDKey = "userId"

func unauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "message": message, "code": "unauthorized"})
}

// UserAuth validates user JWT tokens and injects the userId into the context.
func UserAuth(secret string, log *logger.Logger) gin.HandlerFunc {
	log = log.With("component", "UserAuth")
	return func(c *gin.Context) {
		raw := strings.TrimSpace(c.GetHeader("Authorization"))
		if raw == "" {
			log.Debug("missing token", "path", c.Request.URL.Path)
			unauthorized(c, "missing token")
			return
		}

		parts := strings.Split(raw, " ")
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			log.Debug("invalid token format", "path", c.Request.URL.Path)
			unauthorized(c, "invalid token")
			return
		}

		token, err := jwt.Parse(parts[1], func(t *jwt.Token) (interface{}, error) {
			return []byte(secret), nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
		if err != nil || !token.Valid {
			log.Debug("token validation failed", "error", err)
			unauthorized(c, "unauthorized")
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			unauthorized(c, "unauthorized")
			return
		}

		userID, ok := claims["userId"].(string)
		if !ok || strings.TrimSpace(userID) == "" {
			log.Debug("userId claim missing")
			unauthorized(c, "unauthorized")
			return
		}

		c.Set(UserIDKey, userID)
		c.Next()
	}
}

// UserID returns the id UserAuth stored, or "".
func UserID(c *gin.Context) string {
	return c.GetString(UserIDKey)
}
