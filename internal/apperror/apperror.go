// Package apperror implements spec.md §7's error-kind table and propagation
// policy: every error produced on the request path carries a status code and
// an optional client-safe description, while the underlying cause is only
// ever logged (and, for render/deserialize failures, Sentry-captured by the
// external collaborator spec.md §1 excludes from this core).
package apperror

import "fmt"

// Kind is one of spec.md §7's named error kinds.
type Kind string

const (
	KindAuthFailure           Kind = "AuthFailure"
	KindUnknownXdsType        Kind = "UnknownXdsType"
	KindTemplateRenderError   Kind = "TemplateRenderError"
	KindConfigDeserializeError Kind = "ConfigDeserializeError"
)

// Error is the typed error every request-path failure is wrapped in before
// it reaches the HTTP layer's top-level handler.
type Error struct {
	Kind        Kind
	StatusCode  int
	Description string // safe to return to the client
	Cause       error  // logged, never serialized to the client
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Kind, e.Cause)
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error { return e.Cause }

// New constructs a typed Error for a given kind/status/description, wrapping
// cause for logging.
func New(kind Kind, statusCode int, description string, cause error) *Error {
	return &Error{Kind: kind, StatusCode: statusCode, Description: description, Cause: cause}
}

func AuthFailure(cause error) *Error {
	return New(KindAuthFailure, 401, "", cause)
}

func UnknownXdsType(xdsType string) *Error {
	return New(KindUnknownXdsType, 404, "", fmt.Errorf("unknown xds_type %q", xdsType))
}

func TemplateRenderError(cause error) *Error {
	return New(KindTemplateRenderError, 500,
		"Failed to render configuration, there may be a syntax error in the configured templates.", cause)
}

func ConfigDeserializeError(cause error) *Error {
	return New(KindConfigDeserializeError, 500,
		"Failed to load configuration, there may be a syntax error in the configured templates.", cause)
}
