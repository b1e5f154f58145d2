package middleware

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/luis-domingues/taskly/internal/models"
)

// Authenticator verifies a username/password pair against the account store.
type Authenticator interface {
	Login(ctx context.Context, username, password string) (*models.User, error)
}

// IdentityMiddleware resolves the caller's identity from HTTP Basic
// credentials. There is no token issuance or session state: every protected
// request re-verifies the credentials against the store and sets the
// resolved user ID in the gin context.
func IdentityMiddleware(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		username, password, ok := c.Request.BasicAuth()
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{
				"message": "Authorization header required",
			})
			c.Abort()
			return
		}

		user, err := auth.Login(c.Request.Context(), username, password)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{
				"message": "Invalid credentials",
			})
			c.Abort()
			return
		}

		c.Set("userId", user.ID)
		c.Next()
	}
}

func GetUserID(c *gin.Context) (string, bool) {
	userID, exists := c.Get("userId")
	if !exists {
		return "", false
	}
	return userID.(string), true
}
