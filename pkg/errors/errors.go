// Package errors provides structured error handling for linkbridge.
// It defines sentinel errors, exit codes, and helpers for adding
// context, details, and suggestions to errors.
//
//nolint:revive // Package name intentionally shadows stdlib for domain-specific error handling
package errors

import (
	"errors"
	"fmt"
	"sort"
)

// Exit codes returned by the linkbridge CLI.
const (
	ExitSuccess  = 0 // Successful execution
	ExitGeneral  = 1 // General/unknown error
	ExitInput    = 2 // Invalid input
	ExitRejected = 3 // Rejected by the user or the wallet
	ExitNotFound = 4 // Resource not found
	ExitNetwork  = 5 // Network or provider failure
)

// LinkError is the structured error type for linkbridge.
type LinkError struct {
	Code       string            // Machine-readable error code
	Message    string            // Human-readable message
	Details    map[string]string // Additional context
	Suggestion string            // Actionable suggestion for user
	Cause      error             // Underlying error
	ExitCode   int               // Exit code for CLI
}

func (e *LinkError) Error() string {
	msg := e.Message

	if len(e.Details) > 0 {
		keys := make([]string, 0, len(e.Details))
		for k := range e.Details {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			msg = fmt.Sprintf("%s (%s: %s)", msg, k, e.Details[k])
		}
	}

	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

func (e *LinkError) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is for LinkError by comparing codes.
func (e *LinkError) Is(target error) bool {
	var t *LinkError
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// Session errors.
var (
	ErrGeneral = &LinkError{
		Code:     "GENERAL_ERROR",
		Message:  "an error occurred",
		ExitCode: ExitGeneral,
	}

	ErrInvalidInput = &LinkError{
		Code:     "INVALID_INPUT",
		Message:  "invalid input",
		ExitCode: ExitInput,
	}

	// ErrInvalidLinkToken carries the exact text handed to the exit callback.
	ErrInvalidLinkToken = &LinkError{
		Code:     "INVALID_LINK_TOKEN",
		Message:  "Invalid link token!",
		ExitCode: ExitInput,
	}

	ErrInvalidPayload = &LinkError{
		Code:     "INVALID_PAYLOAD",
		Message:  "invalid message payload",
		ExitCode: ExitInput,
	}

	ErrNoFrame = &LinkError{
		Code:     "NO_FRAME",
		Message:  "no frame available to deliver message",
		ExitCode: ExitGeneral,
	}

	ErrSessionClosed = &LinkError{
		Code:     "SESSION_CLOSED",
		Message:  "link session is closed",
		ExitCode: ExitGeneral,
	}

	ErrSessionFailed = &LinkError{
		Code:     "SESSION_FAILED",
		Message:  "link session ended with an error",
		ExitCode: ExitGeneral,
	}
)

// Wallet errors.
var (
	// ErrUserRejected is the canonical rejection returned for every chain family.
	ErrUserRejected = &LinkError{
		Code:     "USER_REJECTED",
		Message:  "Transaction rejected by user",
		ExitCode: ExitRejected,
	}

	ErrProviderNotFound = &LinkError{
		Code:     "PROVIDER_NOT_FOUND",
		Message:  "wallet provider not found",
		ExitCode: ExitNotFound,
	}

	ErrNoActiveProvider = &LinkError{
		Code:     "NO_ACTIVE_PROVIDER",
		Message:  "no wallet connected",
		ExitCode: ExitInput,
	}

	ErrNoAccounts = &LinkError{
		Code:     "NO_ACCOUNTS",
		Message:  "wallet returned no accounts",
		ExitCode: ExitNotFound,
	}

	ErrNetworkChanged = &LinkError{
		Code:     "NETWORK_CHANGED",
		Message:  "network changed since the wallet was connected",
		ExitCode: ExitInput,
	}

	ErrChainNotConfigured = &LinkError{
		Code:     "CHAIN_NOT_CONFIGURED",
		Message:  "chain is not configured in the wallet",
		ExitCode: ExitInput,
	}

	ErrProviderFailure = &LinkError{
		Code:     "PROVIDER_FAILURE",
		Message:  "wallet provider request failed",
		ExitCode: ExitNetwork,
	}
)

// Chain errors.
var (
	ErrUnsupportedFamily = &LinkError{
		Code:     "UNSUPPORTED_FAMILY",
		Message:  "unsupported network type",
		ExitCode: ExitInput,
	}

	ErrNotImplemented = &LinkError{
		Code:     "NOT_IMPLEMENTED",
		Message:  "operation not implemented",
		ExitCode: ExitGeneral,
	}

	ErrNotSupported = &LinkError{
		Code:     "NOT_SUPPORTED",
		Message:  "operation not supported for this network",
		ExitCode: ExitInput,
	}

	ErrInvalidAddress = &LinkError{
		Code:     "INVALID_ADDRESS",
		Message:  "invalid address format",
		ExitCode: ExitInput,
	}

	ErrInvalidAmount = &LinkError{
		Code:     "INVALID_AMOUNT",
		Message:  "invalid amount format",
		ExitCode: ExitInput,
	}

	ErrInvalidInstruction = &LinkError{
		Code:     "INVALID_INSTRUCTION",
		Message:  "invalid instruction",
		ExitCode: ExitInput,
	}

	ErrInvalidABI = &LinkError{
		Code:     "INVALID_ABI",
		Message:  "invalid contract ABI or arguments",
		ExitCode: ExitInput,
	}

	ErrNetworkError = &LinkError{
		Code:     "NETWORK_ERROR",
		Message:  "network communication failed",
		ExitCode: ExitNetwork,
	}

	ErrTransactionReverted = &LinkError{
		Code:     "TX_REVERTED",
		Message:  "transaction reverted",
		ExitCode: ExitGeneral,
	}

	ErrBatchFailed = &LinkError{
		Code:     "BATCH_FAILED",
		Message:  "transaction batch failed",
		ExitCode: ExitGeneral,
	}

	ErrConfirmationTimeout = &LinkError{
		Code:     "CONFIRMATION_TIMEOUT",
		Message:  "timed out waiting for confirmation",
		ExitCode: ExitNetwork,
	}
)

// Config errors.
var (
	ErrConfigNotFound = &LinkError{
		Code:     "CONFIG_NOT_FOUND",
		Message:  "configuration file not found",
		ExitCode: ExitNotFound,
	}

	ErrConfigInvalid = &LinkError{
		Code:     "CONFIG_INVALID",
		Message:  "configuration file is invalid",
		ExitCode: ExitInput,
	}

	ErrUnknownConfigKey = &LinkError{
		Code:     "UNKNOWN_CONFIG_KEY",
		Message:  "unknown configuration key",
		ExitCode: ExitNotFound,
	}

	ErrInvalidFormat = &LinkError{
		Code:     "INVALID_FORMAT",
		Message:  "invalid value format",
		ExitCode: ExitInput,
	}

	ErrDecryptionFailed = &LinkError{
		Code:     "DECRYPTION_FAILED",
		Message:  "decryption failed - wrong passphrase or corrupted file",
		ExitCode: ExitRejected,
	}
)

// New creates a new LinkError with the given code and message.
func New(code, message string) *LinkError {
	return &LinkError{
		Code:     code,
		Message:  message,
		ExitCode: ExitGeneral,
	}
}

// Wrap wraps an error with additional context. The wrapped LinkError keeps
// its code, so errors.Is against the sentinel still matches.
func Wrap(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}

	msg := fmt.Sprintf(format, args...)

	var le *LinkError
	if errors.As(err, &le) {
		return &LinkError{
			Code:       le.Code,
			Message:    fmt.Sprintf("%s: %s", msg, le.Message),
			Details:    le.Details,
			Suggestion: le.Suggestion,
			Cause:      le.Cause,
			ExitCode:   le.ExitCode,
		}
	}

	return &LinkError{
		Code:     "GENERAL_ERROR",
		Message:  msg,
		Cause:    err,
		ExitCode: ExitGeneral,
	}
}

// WithCause attaches an underlying error to a sentinel.
func WithCause(sentinel *LinkError, cause error) error {
	return &LinkError{
		Code:       sentinel.Code,
		Message:    sentinel.Message,
		Details:    sentinel.Details,
		Suggestion: sentinel.Suggestion,
		Cause:      cause,
		ExitCode:   sentinel.ExitCode,
	}
}

// WithDetails adds details to an error.
func WithDetails(err error, details map[string]string) error {
	if err == nil {
		return nil
	}

	var le *LinkError
	if errors.As(err, &le) {
		return &LinkError{
			Code:       le.Code,
			Message:    le.Message,
			Details:    details,
			Suggestion: le.Suggestion,
			Cause:      le.Cause,
			ExitCode:   le.ExitCode,
		}
	}

	return &LinkError{
		Code:     "GENERAL_ERROR",
		Message:  err.Error(),
		Details:  details,
		Cause:    err,
		ExitCode: ExitGeneral,
	}
}

// WithSuggestion adds a suggestion to an error.
func WithSuggestion(err error, suggestion string) error {
	if err == nil {
		return nil
	}

	var le *LinkError
	if errors.As(err, &le) {
		return &LinkError{
			Code:       le.Code,
			Message:    le.Message,
			Details:    le.Details,
			Suggestion: suggestion,
			Cause:      le.Cause,
			ExitCode:   le.ExitCode,
		}
	}

	return &LinkError{
		Code:       "GENERAL_ERROR",
		Message:    err.Error(),
		Suggestion: suggestion,
		Cause:      err,
		ExitCode:   ExitGeneral,
	}
}

// ExitCode returns the appropriate exit code for an error.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var le *LinkError
	if errors.As(err, &le) {
		return le.ExitCode
	}

	return ExitGeneral
}

// Code returns the error code for an error.
func Code(err error) string {
	var le *LinkError
	if errors.As(err, &le) {
		return le.Code
	}
	return "GENERAL_ERROR"
}

// Suggestion returns the suggestion attached to an error, if any.
func Suggestion(err error) string {
	var le *LinkError
	if errors.As(err, &le) {
		return le.Suggestion
	}
	return ""
}

// Is wraps errors.Is for convenience.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As wraps errors.As for convenience.
func As(err error, target any) bool {
	return errors.As(err, target)
}
