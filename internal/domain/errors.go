package domain

import (
	"errors"
	"strings"
)

// ErrNotOwner indicates the authenticated user does not own the resource it
// is trying to mutate.
var ErrNotOwner = errors.New("user not authorized")

// IsOwner reports whether the resource recorded owner matches the caller's
// verified identity. Re-checked on every mutating call, never cached.
func IsOwner(resourceUserID, callerID string) bool {
	return resourceUserID != "" && resourceUserID == callerID
}

// ValidationError aggregates every field violation found in a request so the
// client sees all problems at once rather than one per attempt.
type ValidationError struct {
	Messages []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Messages, "; ")
}

// Validation builds a ValidationError, or nil when no messages accumulated.
func Validation(messages []string) error {
	if len(messages) == 0 {
		return nil
	}
	return &ValidationError{Messages: messages}
}
