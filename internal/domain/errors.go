package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound indicates the requested entity was not found.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists indicates a unique constraint was violated.
	ErrAlreadyExists = errors.New("already exists")
	// ErrForbidden indicates the caller does not own the entity and is not an admin.
	ErrForbidden = errors.New("forbidden")
	// ErrInvalidTransition indicates a status change that the current status does not allow.
	ErrInvalidTransition = errors.New("invalid status transition")
)

// ValidationError carries every problem found while validating Subject.
type ValidationError struct {
	Subject  string
	Problems []string
}

func (e *ValidationError) Error() string {
	subject := e.Subject
	if subject == "" {
		subject = "input"
	}
	return fmt.Sprintf("invalid %s: %s", subject, strings.Join(e.Problems, ", "))
}
