package service

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakePgError struct{ code string }

func (e *fakePgError) Error() string    { return "pg error " + e.code }
func (e *fakePgError) SQLState() string { return e.code }

func TestClassifyBackendError(t *testing.T) {
	require.Nil(t, ClassifyBackendError("op", nil))

	cases := []struct {
		name   string
		err    error
		assert func(t *testing.T, err error)
	}{
		{
			name: "deadline",
			err:  fmt.Errorf("query: %w", context.DeadlineExceeded),
			assert: func(t *testing.T, err error) {
				var target *NetworkError
				require.ErrorAs(t, err, &target)
				require.ErrorIs(t, err, context.DeadlineExceeded)
			},
		},
		{
			name: "bad connection",
			err:  driver.ErrBadConn,
			assert: func(t *testing.T, err error) {
				var target *NetworkError
				require.ErrorAs(t, err, &target)
			},
		},
		{
			name: "dial failure",
			err:  &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")},
			assert: func(t *testing.T, err error) {
				var target *NetworkError
				require.ErrorAs(t, err, &target)
			},
		},
		{
			name: "row level security",
			err:  &fakePgError{code: "42501"},
			assert: func(t *testing.T, err error) {
				var target *AuthorizationError
				require.ErrorAs(t, err, &target)
				require.Equal(t, "Your session is no longer valid. Please sign in again.", UserMessage(err))
			},
		},
		{
			name: "invalid password",
			err:  &fakePgError{code: "28P01"},
			assert: func(t *testing.T, err error) {
				var target *AuthorizationError
				require.ErrorAs(t, err, &target)
			},
		},
		{
			name: "connection exception",
			err:  &fakePgError{code: "08006"},
			assert: func(t *testing.T, err error) {
				var target *NetworkError
				require.ErrorAs(t, err, &target)
			},
		},
		{
			name: "constraint violation",
			err:  &fakePgError{code: "23502"},
			assert: func(t *testing.T, err error) {
				var target *ValidationError
				require.ErrorAs(t, err, &target)
				require.Equal(t, "report_data", target.Field)
			},
		},
		{
			name: "unknown",
			err:  errBackendDown,
			assert: func(t *testing.T, err error) {
				require.Same(t, errBackendDown, err)
				require.Equal(t, genericSubmitMessage, UserMessage(err))
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tc.assert(t, ClassifyBackendError("insert report", tc.err))
		})
	}
}

func TestClassifyBackendErrorKeepsTypedErrors(t *testing.T) {
	original := &ValidationError{Field: "grade", Reason: "bad grade"}
	require.Same(t, original, ClassifyBackendError("op", original))
	require.Equal(t, "Bad grade.", UserMessage(original))
	require.Empty(t, UserMessage(nil))
}
