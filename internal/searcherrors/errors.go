// Package searcherrors defines the error taxonomy shared across the fetcher,
// engine, and orchestrator layers: a handful of sentinel errors for
// search-ending conditions, plus structured types for per-engine failures
// that the orchestrator downgrades into its errors map.
package searcherrors

import (
	"errors"
	"fmt"
)

// Sentinel errors that fail an entire Search call — these are the only two
// kinds, per the propagation policy, that are not downgraded to a per-engine
// errors map entry.
var (
	ErrNoEngines    = errors.New("no search engines configured")
	ErrInvalidQuery = errors.New("invalid query: empty after trimming")
)

// ErrPoolClosed is returned by the browser pool once Shutdown has run.
var ErrPoolClosed = errors.New("browser pool is closed")

// NetworkError wraps an HTTP/transport failure from a fetcher.
type NetworkError struct {
	URL string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error fetching %s: %v", e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// ParseError indicates a response body an engine could not parse.
type ParseError struct {
	Engine string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: failed to parse response: %v", e.Engine, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// EngineSuspendedError marks an engine administratively disabled; the
// orchestrator skips it silently and never records this in the errors map.
type EngineSuspendedError struct {
	Engine string
}

func (e *EngineSuspendedError) Error() string {
	return fmt.Sprintf("engine %q is suspended", e.Engine)
}

// TimeoutError indicates a per-engine deadline expired.
type TimeoutError struct {
	Engine string
}

func (e *TimeoutError) Error() string { return "timeout" }

// BrowserError indicates a headless-browser launch, tab, or rendering failure.
type BrowserError struct {
	Op  string
	Err error
}

func (e *BrowserError) Error() string {
	return fmt.Sprintf("browser error during %s: %v", e.Op, e.Err)
}

func (e *BrowserError) Unwrap() error { return e.Err }

// URLParseError indicates a malformed input URL (proxy or query construction).
type URLParseError struct {
	Input string
	Err   error
}

func (e *URLParseError) Error() string {
	return fmt.Sprintf("failed to parse URL %q: %v", e.Input, e.Err)
}

func (e *URLParseError) Unwrap() error { return e.Err }

// OtherError is a catch-all, including block/CAPTCHA detections.
type OtherError struct {
	Message string
}

func (e *OtherError) Error() string { return e.Message }

// NewOther returns an *OtherError with the given message.
func NewOther(format string, args ...any) error {
	return &OtherError{Message: fmt.Sprintf(format, args...)}
}
