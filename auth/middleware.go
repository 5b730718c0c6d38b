package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"findlink/models"
)

const userContextKey = "current_user"

// RequireAuth guards a route with a bearer access token. The token's
// subject must still resolve to an existing user.
func (a *AuthModule) RequireAuth(c *gin.Context) {
	header := c.GetHeader("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
		return
	}

	claims, err := a.tokens.VerifyAccessToken(strings.TrimPrefix(header, "Bearer "))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
		return
	}

	var user models.User
	if err := a.db.First(&user, "id = ?", claims.Subject).Error; err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
		return
	}

	c.Set(userContextKey, &user)
	c.Next()
}

// CurrentUser returns the user loaded by RequireAuth, or nil on
// unauthenticated routes.
func CurrentUser(c *gin.Context) *models.User {
	v, ok := c.Get(userContextKey)
	if !ok {
		return nil
	}
	user, _ := v.(*models.User)
	return user
}
