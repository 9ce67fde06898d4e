package orderapi

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrUnauthenticated is returned without any network call when no session is active.
var ErrUnauthenticated = errors.New("user is not authenticated, please log in")

// APIError is a failed call translated into a user-facing message. Status is 0 when
// the server could not be reached.
type APIError struct {
	Op      string
	Status  int
	Message string
	Err     error
}

func (e *APIError) Error() string {
	return e.Message
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// SessionExpired reports whether the server rejected the bearer token.
func (e *APIError) SessionExpired() bool {
	return e.Status == http.StatusUnauthorized
}

// IsSessionExpired reports whether err carries a 401 from the orders API.
func IsSessionExpired(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.SessionExpired()
}

func userMessage(status int, serverMsg string) string {
	switch status {
	case 0:
		return "Cannot reach the server. Is the backend running?"
	case http.StatusUnauthorized:
		return "Your session has expired. Please log in again."
	case http.StatusForbidden:
		return "You do not have permission to perform this operation."
	case http.StatusBadRequest:
		if serverMsg != "" {
			return serverMsg
		}
		return "Invalid data sent to the server."
	case http.StatusNotFound:
		return "Resource not found. The order may not exist."
	case http.StatusUnprocessableEntity:
		return "Validation error in the submitted data."
	case http.StatusInternalServerError:
		return "Internal server error. Please try again later."
	default:
		return strings.TrimSpace(fmt.Sprintf("Server error: %d. %s", status, serverMsg))
	}
}
