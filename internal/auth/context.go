package auth

import (
	"net/http"

	"github.com/fekuna/omnipos-stock-service/internal/model"
	"github.com/gin-gonic/gin"
)

const (
	HeaderStoreID  = "X-Store-ID"
	HeaderUserID   = "X-User-ID"
	HeaderUserName = "X-User-Name"

	storeIDKey = "store_id"
)

// RequireStore rejects requests with no store context and stashes the store
// id for handlers. Authentication itself happens upstream at the gateway.
func RequireStore() gin.HandlerFunc {
	return func(c *gin.Context) {
		storeID := c.GetHeader(HeaderStoreID)
		if storeID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"code": "unauthenticated", "message": "missing store context"})
			return
		}
		c.Set(storeIDKey, storeID)
		c.Next()
	}
}

func GetStoreID(c *gin.Context) string {
	if val, ok := c.Get(storeIDKey); ok {
		if s, ok := val.(string); ok {
			return s
		}
	}
	return c.GetHeader(HeaderStoreID)
}

func GetActor(c *gin.Context) model.Actor {
	actor := model.Actor{
		UserID:   c.GetHeader(HeaderUserID),
		UserName: c.GetHeader(HeaderUserName),
	}
	if actor.UserID == "" {
		actor.UserID = "unknown"
	}
	return actor
}
