package model

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

var (
	// ErrNotFound is returned when a workspace or resource does not exist upstream
	ErrNotFound = errors.New("not found")
	// ErrUnauthorized is returned when the API token is missing or rejected
	ErrUnauthorized = errors.New("unauthorized")
	// ErrInvalidArgument is returned when a request is malformed before it reaches the API
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrCanceled is returned when the caller gave up on the operation
	ErrCanceled = errors.New("operation canceled")
	// ErrTimeout is returned when an upstream call ran out of time
	ErrTimeout = errors.New("request timed out")
)

// WrapError normalizes context errors. Cancellation becomes ErrCanceled;
// deadlines are wrapped with ErrTimeout and keep their cause.
func WrapError(err error) error {
	switch {
	case err == nil:
		return nil
	case IsTimeout(err):
		if errors.Is(err, ErrTimeout) {
			return err
		}
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	case IsCanceled(err):
		return ErrCanceled
	default:
		return err
	}
}

// IsCanceled reports whether err comes from the caller canceling the
// operation. Deadlines are not cancellations; see IsTimeout.
func IsCanceled(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, ErrCanceled) {
		return true
	}
	return strings.Contains(err.Error(), "context canceled")
}

// IsTimeout reports whether err is a deadline or network timeout.
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, ErrTimeout) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return strings.Contains(err.Error(), "context deadline exceeded")
}
