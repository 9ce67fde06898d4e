package httpserver

import (
	"context"
	"net/http"
	"strings"

	"storefront-checkout/internal/domain"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type ctxKey string

const (
	userCtxKey          ctxKey = "user"
	correlationCtxKey   ctxKey = "correlation_id"
	headerCorrelationID        = "X-Correlation-ID"
)

// correlationIDMiddleware echoes the caller's correlation id or mints a new one.
func correlationIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		cid := strings.TrimSpace(c.GetHeader(headerCorrelationID))
		if cid == "" {
			cid = uuid.NewString()
		}
		c.Header(headerCorrelationID, cid)
		c.Request = c.Request.WithContext(context.WithValue(c.Request.Context(), correlationCtxKey, cid))
		c.Next()
	}
}

func authMiddleware(svc AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		token = strings.TrimSpace(token)
		if !ok || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errorBody("missing bearer token"))
			return
		}
		u, err := svc.LookupByToken(c.Request.Context(), token)
		if err != nil || u == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errorBody("invalid or expired token"))
			return
		}
		c.Request = c.Request.WithContext(context.WithValue(c.Request.Context(), userCtxKey, *u))
		c.Next()
	}
}

func currentUser(c *gin.Context) (domain.User, bool) {
	u, ok := c.Request.Context().Value(userCtxKey).(domain.User)
	return u, ok
}

func correlationID(ctx context.Context) string {
	cid, _ := ctx.Value(correlationCtxKey).(string)
	return cid
}
