package middlewares

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/farm-to-table/utils"
)

// Context keys set by the auth middlewares.
const (
	ContextUserID = "userID"
	ContextRole   = "role"
)

// AuthMiddleware memvalidasi bearer token dan menyimpan user id serta role
// ke context.
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			utils.RespondError(c, http.StatusUnauthorized, errors.New("Not Authorized. Login Again"))
			c.Abort()
			return
		}

		tokenString := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
		if !authenticate(c, tokenString) {
			return
		}
		c.Next()
	}
}

// WebSocketAuthMiddleware reads the token from the query string, since
// browsers cannot set headers on a websocket handshake.
func WebSocketAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Query("token")
		if token == "" {
			token = strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
		}
		if token == "" {
			utils.RespondError(c, http.StatusUnauthorized, errors.New("Not Authorized. Login Again"))
			c.Abort()
			return
		}
		if !authenticate(c, token) {
			return
		}
		c.Next()
	}
}

func authenticate(c *gin.Context, tokenString string) bool {
	claims, err := utils.ParseToken(tokenString)
	if err != nil || claims == nil {
		utils.RespondError(c, http.StatusUnauthorized, errors.New("Invalid or expired token"))
		c.Abort()
		return false
	}
	if claims.UserID == 0 {
		utils.RespondError(c, http.StatusUnauthorized, errors.New("Invalid user ID in token"))
		c.Abort()
		return false
	}

	c.Set(ContextUserID, claims.UserID)
	c.Set(ContextRole, claims.Role)
	return true
}

// CurrentUser returns the caller set by AuthMiddleware.
func CurrentUser(c *gin.Context) (uint, string, bool) {
	userID, ok := c.Get(ContextUserID)
	if !ok {
		return 0, "", false
	}
	id, ok := userID.(uint)
	if !ok {
		return 0, "", false
	}
	return id, c.GetString(ContextRole), true
}
