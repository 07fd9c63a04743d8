// Package common provides shared utilities and types used across the application.
package common

import (
	"context"
	"errors"
	"fmt"
)

// Common application errors.
var (
	// Model lifecycle errors.
	ErrModelNotLoaded     = errors.New("model not loaded")
	ErrAlreadyInitialized = errors.New("forecast service already initialized")
	ErrArtifactMismatch   = errors.New("model artifact set is incomplete or inconsistent")
	ErrSchema             = errors.New("training data schema error")

	// Input errors.
	ErrUnknownCategory = errors.New("unknown category")
	ErrInvalidPlotSize = errors.New("invalid plot size")
	ErrUnknownSeason   = errors.New("unknown season")
	ErrUnknownPlotSize = errors.New("unknown plot size category")
	ErrUnknownMonth    = errors.New("unknown month")
	ErrUnknownCrop     = errors.New("unknown crop")

	// Database errors.
	ErrNotFound = errors.New("not found")

	// Configuration errors.
	ErrMissingConfig = errors.New("missing configuration")
	ErrInvalidConfig = errors.New("invalid configuration")
)

// UserError represents an error that should be shown to the user.
type UserError struct {
	Err         error
	UserMessage string
}

func (e *UserError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.UserMessage, e.Err)
	}
	return e.UserMessage
}

func (e *UserError) Unwrap() error {
	return e.Err
}

// NewUserError creates a new user-friendly error.
func NewUserError(userMessage string, err error) error {
	return &UserError{
		UserMessage: userMessage,
		Err:         err,
	}
}

// IsRetryable determines if an error should trigger a retry.
func IsRetryable(err error) bool {
	if errors.Is(err, ErrRateLimit) ||
		errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var retryableErr *RetryableError
	if errors.As(err, &retryableErr) {
		return retryableErr.Retryable
	}

	return false
}
