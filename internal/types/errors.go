package types

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrorKind classifies a caller-facing failure.
type ErrorKind string

const (
	KindInvalidInput      ErrorKind = "invalid_input"
	KindBrowserLaunch     ErrorKind = "browser_launch"
	KindNavigationTimeout ErrorKind = "navigation_timeout"
	KindNavigation        ErrorKind = "navigation"
	KindInvalidSelector   ErrorKind = "invalid_selector"
	KindCancelled         ErrorKind = "cancelled"
	KindInternal          ErrorKind = "internal_error"
)

// ToolError is the structured error returned to callers as {kind, message}.
type ToolError struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
	Err     error     `json:"-"`
}

func (e *ToolError) Error() string {
	return string(e.Kind) + ": " + e.Message
}

func (e *ToolError) Unwrap() error {
	return e.Err
}

// Retryable reports whether the same call may succeed if repeated.
func (e *ToolError) Retryable() bool {
	switch e.Kind {
	case KindBrowserLaunch, KindNavigationTimeout, KindNavigation:
		return true
	}
	return false
}

// InvalidInputError reports a malformed argument, detected before any
// browser work.
func InvalidInputError(format string, args ...any) *ToolError {
	return &ToolError{Kind: KindInvalidInput, Message: fmt.Sprintf(format, args...)}
}

// InvalidInputCause is InvalidInputError with an underlying cause.
func InvalidInputCause(err error, format string, args ...any) *ToolError {
	return &ToolError{Kind: KindInvalidInput, Message: fmt.Sprintf(format, args...), Err: err}
}

// BrowserLaunchError reports that no usable browser session could be
// obtained.
func BrowserLaunchError(err error) *ToolError {
	return &ToolError{
		Kind:    KindBrowserLaunch,
		Message: "browser could not be started: " + errText(err),
		Err:     err,
	}
}

// NavigationTimeoutError reports a page that did not load within timeout.
func NavigationTimeoutError(url string, timeout time.Duration, err error) *ToolError {
	msg := fmt.Sprintf("timed out loading %s", url)
	if timeout > 0 {
		msg = fmt.Sprintf("timed out after %s loading %s", timeout, url)
	}
	return &ToolError{Kind: KindNavigationTimeout, Message: msg, Err: err}
}

// NavigationError reports a failed navigation (DNS, refused connection,
// TLS, aborted load).
func NavigationError(url string, err error) *ToolError {
	return &ToolError{
		Kind:    KindNavigation,
		Message: fmt.Sprintf("failed to load %s: %s", url, errText(err)),
		Err:     err,
	}
}

// InvalidSelectorError reports a CSS selector that does not compile.
func InvalidSelectorError(selector string, err error) *ToolError {
	return &ToolError{
		Kind:    KindInvalidSelector,
		Message: fmt.Sprintf("invalid CSS selector %q: %s", selector, errText(err)),
		Err:     err,
	}
}

// CancelledError reports a call aborted by the caller.
func CancelledError(err error) *ToolError {
	return &ToolError{Kind: KindCancelled, Message: "request cancelled", Err: err}
}

// InternalError wraps an unexpected failure.
func InternalError(err error) *ToolError {
	return &ToolError{Kind: KindInternal, Message: errText(err), Err: err}
}

// AsToolError maps any error to a *ToolError. Existing ToolErrors anywhere in
// the chain are returned as-is; bare context errors become timeout or
// cancelled; everything else is internal_error.
func AsToolError(err error) *ToolError {
	if err == nil {
		return nil
	}
	var te *ToolError
	if errors.As(err, &te) {
		return te
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return &ToolError{Kind: KindNavigationTimeout, Message: "operation timed out", Err: err}
	case errors.Is(err, context.Canceled):
		return CancelledError(err)
	}
	return InternalError(err)
}

// IsKind reports whether err maps to the given kind.
func IsKind(err error, kind ErrorKind) bool {
	te := AsToolError(err)
	return te != nil && te.Kind == kind
}

func errText(err error) string {
	if err == nil {
		return "unknown error"
	}
	return err.Error()
}
