// Package apierrors defines the typed error kinds used across dispatch and
// transport, and the status-code → dialect error-type mapping tables from
// spec §7.
package apierrors

import "fmt"

// Kind classifies a failure for the purposes of client-facing translation.
type Kind string

const (
	KindRateLimited             Kind = "RateLimited"
	KindRateLimitExhausted      Kind = "RateLimitExhausted"
	KindAuthRefreshFailed       Kind = "AuthRefreshFailed"
	KindProjectResolutionFailed Kind = "ProjectResolutionFailed"
	KindNoAccounts              Kind = "NoAccounts"
	KindUpstreamBadGateway      Kind = "UpstreamBadGateway"
	KindUpstreamError           Kind = "UpstreamError"
	KindParseFailure            Kind = "ParseFailure"
	KindClientDisconnect        Kind = "ClientDisconnect"
)

// Error is a typed dispatch/transport failure carrying enough information
// to render a dialect-specific client response.
type Error struct {
	Kind       Kind
	Status     int    // HTTP status to surface to the client, 0 if not applicable
	Message    string
	RetryAfter int // seconds, only meaningful for KindRateLimitExhausted
	Err        error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// New constructs an *Error with the given kind, status and message.
func New(kind Kind, status int, message string) *Error {
	return &Error{Kind: kind, Status: status, Message: message}
}

// Wrap constructs an *Error wrapping an underlying cause.
func Wrap(kind Kind, status int, message string, err error) *Error {
	return &Error{Kind: kind, Status: status, Message: message, Err: err}
}

// RateLimitExhausted builds the error the Dispatcher raises when the pool
// has no ready account left to try.
func RateLimitExhausted(retryAfterSeconds int) *Error {
	if retryAfterSeconds < 1 {
		retryAfterSeconds = 60
	}
	return &Error{
		Kind:       KindRateLimitExhausted,
		Status:     429,
		Message:    "no accounts available, all are rate limited or in cooldown",
		RetryAfter: retryAfterSeconds,
	}
}

// NoAccounts builds the error raised when the pool is empty.
func NoAccounts() *Error {
	return &Error{Kind: KindNoAccounts, Status: 503, Message: "no accounts configured"}
}

// BadGateway builds the error raised when every base URL failed.
func BadGateway(err error) *Error {
	return &Error{Kind: KindUpstreamBadGateway, Status: 502, Message: "all upstream base URLs failed", Err: err}
}

// AsError extracts an *Error from err, or synthesizes an UpstreamError from
// a bare status code and message when err is not already typed.
func AsError(err error) *Error {
	if e, ok := err.(*Error); ok {
		return e
	}
	return &Error{Kind: KindUpstreamError, Status: 500, Message: "internal error", Err: err}
}
