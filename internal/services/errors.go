package services

import (
	"errors"
	"fmt"
)

var (
	ErrUserNotFound        = errors.New("user not found")
	ErrEmailExists         = errors.New("email already registered")
	ErrRecordNotFound      = errors.New("cycle record not found")
	ErrMoodLogNotFound     = errors.New("mood log not found")
	ErrNoUpdates           = errors.New("no valid fields to update")
	ErrPeriodAlreadyLogged = errors.New("period already logged for this start date")
	ErrCycleChainBusy      = errors.New("cycle history is being updated, retry")
	ErrArchiveUnavailable  = errors.New("archive storage is not configured")
)

// ValidationError describes a rejected input field. Key is a stable message
// key that the API layer localizes; Message is the English fallback.
type ValidationError struct {
	Field   string
	Key     string
	Message string
}

func (err *ValidationError) Error() string {
	if err.Field == "" {
		return err.Message
	}
	return fmt.Sprintf("%s: %s", err.Field, err.Message)
}

func invalidField(field string, key string, message string) *ValidationError {
	return &ValidationError{Field: field, Key: key, Message: message}
}
