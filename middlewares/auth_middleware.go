package middlewares

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/trashunter/utils"
)

const HunterIDKey = "hunterID"

// OptionalAuth identifies the hunter when a bearer token is sent. Requests
// without one pass through anonymously; a bad token is rejected.
func OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader("Authorization") == "" {
			c.Next()
			return
		}
		authenticate(c)
	}
}

func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader("Authorization") == "" {
			utils.RespondError(c, http.StatusUnauthorized, errors.New("authorization header missing"))
			c.Abort()
			return
		}
		authenticate(c)
	}
}

func authenticate(c *gin.Context) {
	authHeader := c.GetHeader("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		utils.RespondError(c, http.StatusUnauthorized, errors.New("invalid authorization format"))
		c.Abort()
		return
	}

	claims, err := utils.ParseToken(strings.TrimPrefix(authHeader, "Bearer "))
	if err != nil {
		utils.RespondError(c, http.StatusUnauthorized, errors.New("invalid or expired token"))
		c.Abort()
		return
	}

	c.Set(HunterIDKey, claims.HunterID)
	c.Next()
}

// HunterID returns the authenticated hunter, if any.
func HunterID(c *gin.Context) *uint {
	v, ok := c.Get(HunterIDKey)
	if !ok {
		return nil
	}
	id, ok := v.(uint)
	if !ok {
		return nil
	}
	return &id
}
