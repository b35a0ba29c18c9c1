// Package apierrors provides the normalized error taxonomy for remote API
// interaction: every response-envelope outcome and local failure maps to one
// of these codes so call sites branch on the code, never on raw server
// strings.
package apierrors

import (
	"errors"
	"fmt"
	"time"
)

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeSessionInvalid    ErrorCode = "SESSION_INVALID"
	ErrCodeAuthCodeExpired   ErrorCode = "AUTH_CODE_EXPIRED"
	ErrCodeConfigRejected    ErrorCode = "CONFIG_REJECTED"
	ErrCodeRemoteError       ErrorCode = "REMOTE_ERROR"
	ErrCodeNetworkError      ErrorCode = "NETWORK_ERROR"
	ErrCodeUploadFailed      ErrorCode = "UPLOAD_FAILED"
	ErrCodeLocalInputInvalid ErrorCode = "LOCAL_INPUT_INVALID"
	ErrCodeCaptureTimeout    ErrorCode = "CAPTURE_TIMEOUT"
	ErrCodeEmptyPlan         ErrorCode = "EMPTY_PLAN"
)

// StandardError is a structured application error.
type StandardError struct {
	Code      ErrorCode `json:"code"`
	Message   string    `json:"message"`
	Details   string    `json:"details,omitempty"`
	Retryable bool      `json:"retryable"`
	Timestamp time.Time `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// CodeOf returns the error code carried by err, or "" for plain errors.
func CodeOf(err error) ErrorCode {
	var se *StandardError
	if errors.As(err, &se) {
		return se.Code
	}
	return ""
}

// Is reports whether err carries the given code.
func Is(err error, code ErrorCode) bool {
	return CodeOf(err) == code
}

// ==========================
// Constructors
// ==========================

// NewSessionInvalid marks the server-declared invalidation signal. The cached
// session must already have been discarded when this is returned.
func NewSessionInvalid(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeSessionInvalid,
		Message:   "Session is no longer accepted by the server; a fresh login is required",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewAuthCodeExpired marks an authorization code the server refused as used
// or expired. A fresh capture is the only remediation.
func NewAuthCodeExpired(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeAuthCodeExpired,
		Message:   "Authorization code is expired or already consumed; restart the mini-program and capture again",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewConfigRejected marks the server rejecting the device/user-agent profile.
func NewConfigRejected(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeConfigRejected,
		Message:   "Server rejected the request profile; check the device and userAgent configuration",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewRemoteError wraps a fatal server-side rejection, carrying the server
// message verbatim.
func NewRemoteError(msg string) *StandardError {
	return &StandardError{
		Code:      ErrCodeRemoteError,
		Message:   "Remote API rejected the operation",
		Details:   msg,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewNetworkError wraps a transport-level failure. Retry policy belongs to
// the caller.
func NewNetworkError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeNetworkError,
		Message:   "Request to the remote API failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewUploadFailed marks a failed step of the photo-upload handshake; the
// remaining steps must not run.
func NewUploadFailed(step, details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeUploadFailed,
		Message:   fmt.Sprintf("Photo upload aborted at step %q", step),
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewLocalInputInvalid marks a local validation failure caught before any
// network call.
func NewLocalInputInvalid(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeLocalInputInvalid,
		Message:   "Invalid local input",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewCaptureTimeout marks the code-wait loop giving up.
func NewCaptureTimeout(waited time.Duration) *StandardError {
	return &StandardError{
		Code:      ErrCodeCaptureTimeout,
		Message:   "Timed out waiting for the authorization code; restart the mini-program while the proxy is active",
		Details:   fmt.Sprintf("waited %s", waited),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewEmptyPlan marks an authenticated plan lookup that returned no data.
// Distinct from invalidation: the session is fine, the account has no plan.
func NewEmptyPlan(msg string) *StandardError {
	return &StandardError{
		Code:      ErrCodeEmptyPlan,
		Message:   "No internship plan returned for this account",
		Details:   msg,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}
