package service

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"strings"
)

var (
	// ErrStepNotMounted indicates the operation needs a mounted baseline step.
	ErrStepNotMounted = errors.New("baseline step is not mounted")
	// ErrSubmitInProgress indicates another submission for the same user holds the lock.
	ErrSubmitInProgress = errors.New("baseline submission already in progress")
)

const genericSubmitMessage = "Failed to save baseline report. Please try again."

// NetworkError wraps backend failures caused by connectivity or timeouts.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: backend unavailable: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// UserMessage returns the text shown to the user.
func (e *NetworkError) UserMessage() string {
	return "We could not reach the server. Check your connection and try again."
}

// AuthorizationError indicates a missing user or a backend permission denial.
type AuthorizationError struct {
	Op     string
	Reason string
	Err    error
}

func (e *AuthorizationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: not authorized: %s: %v", e.Op, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: not authorized: %s", e.Op, e.Reason)
}

func (e *AuthorizationError) Unwrap() error { return e.Err }

// UserMessage returns the text shown to the user.
func (e *AuthorizationError) UserMessage() string {
	return "Your session is no longer valid. Please sign in again."
}

// ValidationError reports input the step refuses to accept.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// UserMessage returns the text shown to the user.
func (e *ValidationError) UserMessage() string {
	if e.Reason == "" {
		return "Please check your input and try again."
	}
	return strings.ToUpper(e.Reason[:1]) + e.Reason[1:] + "."
}

type userMessager interface {
	UserMessage() string
}

// UserMessage picks the user-facing message for err.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var messager userMessager
	if errors.As(err, &messager) {
		return messager.UserMessage()
	}
	return genericSubmitMessage
}

type sqlStateError interface {
	SQLState() string
}

// ClassifyBackendError maps a raw store error onto the step error taxonomy.
// Unrecognised errors are returned unchanged.
func ClassifyBackendError(op string, err error) error {
	if err == nil {
		return nil
	}

	var (
		networkErr *NetworkError
		authErr    *AuthorizationError
		validErr   *ValidationError
	)
	if errors.As(err, &networkErr) || errors.As(err, &authErr) || errors.As(err, &validErr) {
		return err
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) || errors.Is(err, driver.ErrBadConn) {
		return &NetworkError{Op: op, Err: err}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return &NetworkError{Op: op, Err: err}
	}

	var stateErr sqlStateError
	if errors.As(err, &stateErr) {
		state := stateErr.SQLState()
		switch {
		case state == "42501" || strings.HasPrefix(state, "28"):
			return &AuthorizationError{Op: op, Reason: "permission denied", Err: err}
		case strings.HasPrefix(state, "08"):
			return &NetworkError{Op: op, Err: err}
		case strings.HasPrefix(state, "22") || strings.HasPrefix(state, "23"):
			return &ValidationError{Field: "report_data", Reason: "the report was rejected by the server"}
		}
	}

	return err
}
