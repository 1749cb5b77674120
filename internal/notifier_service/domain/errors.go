package domain

import (
	"errors"
	"fmt"
	"unicode/utf8"
)

var (
	// ErrValidation indicates a malformed or incomplete inbound event.
	ErrValidation = errors.New("invalid webhook event")
	// ErrNotFound indicates that a requested remote record was not found.
	ErrNotFound = errors.New("resource not found")
	// ErrPermissionDenied indicates that a remote API rejected our credentials.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrUpstream indicates any other failure of a required remote dependency.
	ErrUpstream = errors.New("upstream request failed")
	// ErrConfiguration indicates required deployment configuration is absent.
	ErrConfiguration = errors.New("missing configuration")
)

// BodyExcerptLimit bounds how much of a remote response body is carried in
// error details; enough to debug without dumping full payloads into logs.
const BodyExcerptLimit = 300

// RemoteCallError wraps one of the sentinel errors above with enough
// diagnostic context to identify which remote operation failed and why.
type RemoteCallError struct {
	Kind        error  // one of the sentinels above
	Op          string // remote operation name, e.g. "ConsultarContaReceber"
	StatusCode  int    // remote HTTP status, 0 for network-level failures
	BodyExcerpt string // truncated remote response body
}

func (e *RemoteCallError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s: %v: %d - %s", e.Op, e.Kind, e.StatusCode, e.BodyExcerpt)
	}
	return fmt.Sprintf("%s: %v: %s", e.Op, e.Kind, e.BodyExcerpt)
}

func (e *RemoteCallError) Unwrap() error {
	return e.Kind
}

// NewRemoteCallError builds a RemoteCallError, truncating the body excerpt.
func NewRemoteCallError(kind error, op string, statusCode int, body string) *RemoteCallError {
	return &RemoteCallError{
		Kind:        kind,
		Op:          op,
		StatusCode:  statusCode,
		BodyExcerpt: Excerpt(body),
	}
}

// Excerpt truncates a remote response body to at most BodyExcerptLimit
// bytes. The cut backs off to a rune boundary so accented pt-BR error
// bodies never end in a broken UTF-8 sequence.
func Excerpt(body string) string {
	if len(body) <= BodyExcerptLimit {
		return body
	}
	cut := BodyExcerptLimit
	for cut > 0 && !utf8.RuneStart(body[cut]) {
		cut--
	}
	return body[:cut]
}
