package api

import (
	"crypto/subtle"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

const (
	userIDHeader     = "X-User-ID"
	adminTokenHeader = "X-Admin-Token"
	userIDKey        = "user_id"
)

// RequireUser takes the customer id set by the fronting web layer and
// rejects requests without one.
func RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.ParseInt(c.GetHeader(userIDHeader), 10, 64)
		if err != nil || id <= 0 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{
				Error:   "UNAUTHORIZED",
				Message: "Authentication required",
			})
			return
		}
		c.Set(userIDKey, id)
		c.Next()
	}
}

// RequireAdmin guards the admin group before any handler runs. An empty
// configured token locks the group entirely.
func RequireAdmin(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		given := c.GetHeader(adminTokenHeader)
		if token == "" || subtle.ConstantTimeCompare([]byte(given), []byte(token)) != 1 {
			c.AbortWithStatusJSON(http.StatusForbidden, ErrorResponse{
				Error:   "FORBIDDEN",
				Message: "Staff access required",
			})
			return
		}
		c.Next()
	}
}

func currentUser(c *gin.Context) int64 {
	return c.GetInt64(userIDKey)
}
