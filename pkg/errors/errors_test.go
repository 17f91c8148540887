package errors_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	linkerr "github.com/mrz1836/linkbridge/pkg/errors"
)

var (
	errInner = errors.New("inner")
	errPlain = errors.New("plain error")
)

func TestExitCodes(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{"success", nil, linkerr.ExitSuccess},
		{"general error", linkerr.ErrGeneral, linkerr.ExitGeneral},
		{"invalid token", linkerr.ErrInvalidLinkToken, linkerr.ExitInput},
		{"user rejected", linkerr.ErrUserRejected, linkerr.ExitRejected},
		{"provider not found", linkerr.ErrProviderNotFound, linkerr.ExitNotFound},
		{"network error", linkerr.ErrNetworkError, linkerr.ExitNetwork},
		{"plain error", errPlain, linkerr.ExitGeneral},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, linkerr.ExitCode(tt.err))
		})
	}
}

func TestInvalidLinkTokenMessage(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "Invalid link token!", linkerr.ErrInvalidLinkToken.Error())
}

func TestWrap(t *testing.T) {
	t.Parallel()

	t.Run("preserves identity", func(t *testing.T) {
		t.Parallel()
		wrapped := linkerr.Wrap(linkerr.ErrNetworkChanged, "send %s transfer", "native")
		require.ErrorIs(t, wrapped, linkerr.ErrNetworkChanged)
		assert.Equal(t, "send native transfer: network changed since the wallet was connected", wrapped.Error())
		assert.Equal(t, linkerr.ExitInput, linkerr.ExitCode(wrapped))
	})

	t.Run("keeps cause once", func(t *testing.T) {
		t.Parallel()
		base := linkerr.WithCause(linkerr.ErrProviderFailure, errInner)
		wrapped := linkerr.Wrap(base, "connect")
		assert.Equal(t, "connect: wallet provider request failed: inner", wrapped.Error())
		require.ErrorIs(t, wrapped, errInner)
	})

	t.Run("nil input", func(t *testing.T) {
		t.Parallel()
		assert.NoError(t, linkerr.Wrap(nil, "context"))
	})

	t.Run("plain error", func(t *testing.T) {
		t.Parallel()
		wrapped := linkerr.Wrap(errPlain, "context")
		var le *linkerr.LinkError
		require.ErrorAs(t, wrapped, &le)
		assert.Equal(t, "GENERAL_ERROR", le.Code)
		assert.Equal(t, "context", le.Message)
		assert.Equal(t, errPlain, le.Cause)
	})

	t.Run("through fmt wrapping", func(t *testing.T) {
		t.Parallel()
		wrapped := linkerr.Wrap(fmt.Errorf("outer: %w", linkerr.ErrUserRejected), "sign")
		assert.True(t, linkerr.Is(wrapped, linkerr.ErrUserRejected))
	})
}

func TestLinkError_Error(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		err      *linkerr.LinkError
		expected string
	}{
		{"message only", &linkerr.LinkError{Code: "T", Message: "failed"}, "failed"},
		{
			"details sorted",
			&linkerr.LinkError{Code: "T", Message: "failed", Details: map[string]string{"beta": "2", "alpha": "1"}},
			"failed (alpha: 1) (beta: 2)",
		},
		{"cause", &linkerr.LinkError{Code: "T", Message: "outer", Cause: errInner}, "outer: inner"},
		{
			"details and cause",
			&linkerr.LinkError{Code: "T", Message: "outer", Details: map[string]string{"k": "v"}, Cause: errInner},
			"outer (k: v): inner",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestLinkError_Is(t *testing.T) {
	t.Parallel()
	a := &linkerr.LinkError{Code: "SAME", Message: "a"}
	b := &linkerr.LinkError{Code: "SAME", Message: "b"}
	c := &linkerr.LinkError{Code: "OTHER", Message: "c"}
	assert.True(t, a.Is(b))
	assert.False(t, a.Is(c))
	assert.False(t, a.Is(errPlain))
}

func TestWithDetailsAndSuggestion(t *testing.T) {
	t.Parallel()
	details := map[string]string{"name": "phantm"}

	err := linkerr.WithDetails(linkerr.ErrProviderNotFound, details)
	err = linkerr.WithSuggestion(err, "did you mean Phantom?")

	var le *linkerr.LinkError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, details, le.Details)
	assert.Equal(t, "did you mean Phantom?", linkerr.Suggestion(err))
	assert.Equal(t, "PROVIDER_NOT_FOUND", linkerr.Code(err))
	require.ErrorIs(t, err, linkerr.ErrProviderNotFound)
}

func TestHelpers_nonLinkError(t *testing.T) {
	t.Parallel()
	assert.NoError(t, linkerr.WithDetails(nil, nil))
	assert.NoError(t, linkerr.WithSuggestion(nil, "x"))
	assert.Equal(t, "GENERAL_ERROR", linkerr.Code(errPlain))
	assert.Equal(t, "GENERAL_ERROR", linkerr.Code(nil))
	assert.Empty(t, linkerr.Suggestion(errPlain))

	withSuggestion := linkerr.WithSuggestion(errPlain, "retry")
	var le *linkerr.LinkError
	require.ErrorAs(t, withSuggestion, &le)
	assert.Equal(t, "plain error", le.Message)
	assert.Equal(t, errPlain, le.Cause)
}

func TestNew(t *testing.T) {
	t.Parallel()
	err := linkerr.New("CUSTOM", "custom message")
	assert.Equal(t, "custom message", err.Error())
	assert.Equal(t, linkerr.ExitGeneral, err.ExitCode)
}
