package service

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidCredentials = errors.New("invalid login credentials")

	// ErrNotificationFailed marks a committed mutation whose low-stock run failed
	ErrNotificationFailed = errors.New("failed to send low-stock notification")
)

// ValidationError rejects caller input, naming the offending field
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}
