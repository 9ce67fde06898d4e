package httpserver

import (
	"errors"
	"log"
	"net/http"

	"storefront-checkout/internal/domain"
	"storefront-checkout/internal/events"
	authsvc "storefront-checkout/internal/service/auth"

	"github.com/gin-gonic/gin"
)

func errorBody(msg string) gin.H {
	return gin.H{"message": msg}
}

// statusFor maps service errors onto HTTP status codes and client-facing messages.
func statusFor(err error) (int, string) {
	var vErr *domain.ValidationError
	switch {
	case errors.As(err, &vErr):
		return http.StatusBadRequest, vErr.Error()
	case errors.Is(err, authsvc.ErrInvalidCredentials):
		return http.StatusUnauthorized, "invalid credentials"
	case errors.Is(err, authsvc.ErrInvalidToken):
		return http.StatusUnauthorized, "invalid or expired token"
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden, "you do not have access to this order"
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "order not found"
	case errors.Is(err, domain.ErrInvalidTransition):
		return http.StatusUnprocessableEntity, err.Error()
	case errors.Is(err, events.ErrPublishingDisabled):
		return http.StatusServiceUnavailable, "delivery note email is not configured on this server"
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

func writeError(c *gin.Context, logger *log.Logger, err error) {
	status, msg := statusFor(err)
	if status == http.StatusInternalServerError {
		logger.Printf("%s %s failed cid=%s err=%v", c.Request.Method, c.FullPath(), correlationID(c.Request.Context()), err)
	}
	c.JSON(status, errorBody(msg))
}
