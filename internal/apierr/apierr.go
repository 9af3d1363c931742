// Package apierr implements spec.md §7's error taxonomy as a Kind enum
// plus a single Render chokepoint: internal/proxy's terminator and
// internal/admin wrap their errors in a Kind via one of the New*
// constructors and call Render, so "never leaks internal messages to the
// client" is enforced in one place for the paths where an upstream or
// internal error could reach a response body. internal/middleware's
// built-ins reject with plain http.Error calls carrying http.StatusText.
package apierr

import (
	"errors"
	"net/http"

	"github.com/rs/zerolog"
)

// Kind classifies a request-path failure into spec.md's fixed taxonomy.
type Kind int

const (
	KindConfig Kind = iota
	KindListener
	KindUpstream
	KindProtocol
	KindMiddlewareReject
	KindCircuitOpen
	KindInternal
)

func (k Kind) String() string {
	switch k {
	case KindConfig:
		return "config_error"
	case KindListener:
		return "listener_error"
	case KindUpstream:
		return "upstream_error"
	case KindProtocol:
		return "protocol_error"
	case KindMiddlewareReject:
		return "middleware_reject"
	case KindCircuitOpen:
		return "circuit_open"
	default:
		return "internal_error"
	}
}

func (k Kind) statusCode() int {
	switch k {
	case KindConfig:
		return http.StatusInternalServerError
	case KindListener:
		return http.StatusServiceUnavailable
	case KindUpstream:
		return http.StatusBadGateway
	case KindProtocol:
		return http.StatusBadRequest
	case KindMiddlewareReject:
		return http.StatusForbidden
	case KindCircuitOpen:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Error is a Kind-tagged error carrying the client-safe message to render
// and, when non-empty, a richer message for internal logs only.
type Error struct {
	Kind       Kind
	Message    string // safe to return to the client
	cause      error  // logged but never rendered
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.cause }

func New(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, cause: cause}
}

func Upstream(cause error) *Error {
	return New(KindUpstream, "upstream request failed", cause)
}

func CircuitOpen(service string) *Error {
	return New(KindCircuitOpen, "service "+service+" temporarily unavailable", nil)
}

func MiddlewareReject(message string) *Error {
	return New(KindMiddlewareReject, message, nil)
}

func Internal(cause error) *Error {
	return New(KindInternal, "internal error", cause)
}

// Render writes a JSON error body matching kind's status code, logging the
// full cause (if any) at Error level for KindInternal only — every other
// Kind's Message is already safe to surface verbatim.
func Render(w http.ResponseWriter, log zerolog.Logger, err error) {
	var apiErr *Error
	if !errors.As(err, &apiErr) {
		apiErr = Internal(err)
	}
	if apiErr.Kind == KindInternal {
		log.Error().Err(apiErr.cause).Msg("internal error")
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(apiErr.Kind.statusCode())
	_, _ = w.Write([]byte(`{"error":"` + apiErr.Kind.String() + `","message":"` + jsonEscape(apiErr.Message) + `"}`))
}

func jsonEscape(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '"', '\\':
			out = append(out, '\\', c)
		default:
			out = append(out, c)
		}
	}
	return string(out)
}
