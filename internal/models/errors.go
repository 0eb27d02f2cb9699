package models

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrDuplicateUser      = errors.New("user with this email already exists")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrStorageUnavailable = errors.New("storage unavailable")
)

// ValidationError reports a missing or invalid input field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// TransitionError reports a status change outside the lifecycle chain.
type TransitionError struct {
	From string
	To   string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("illegal status transition %s -> %s", e.From, e.To)
}
