package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// AdminAuth guards the admin endpoints with a shared key. The key may arrive
// as the "key" query parameter, the Authorization header or the Auth-Key
// header, checked in that order, always by exact match. An empty configured
// key authorizes nobody.
func AdminAuth(authKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !adminKeyMatches(c, authKey) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		c.Next()
	}
}

func adminKeyMatches(c *gin.Context, authKey string) bool {
	if authKey == "" {
		return false
	}
	candidates := []string{
		c.Query("key"),
		c.GetHeader("Authorization"),
		c.GetHeader("Auth-Key"),
	}
	for _, candidate := range candidates {
		if candidate != "" && candidate == authKey {
			return true
		}
	}
	return false
}
