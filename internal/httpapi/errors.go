package httpapi

import (
	"errors"

	"github.com/sovereign-xds/sovereign/internal/apperror"
)

// errorBody is the wire shape of spec.md §6's 500 response:
// {error, request_id, description?}.
type errorBody struct {
	Error       string `json:"error"`
	RequestID   string `json:"request_id"`
	Description string `json:"description,omitempty"`
}

// classify maps any error to a status code and client-safe description,
// per spec.md §7's propagation policy: "Status code is taken from an
// attached status_code if present, else 500."
func classify(err error) (status int, kind string, description string) {
	var appErr *apperror.Error
	if errors.As(err, &appErr) {
		return appErr.StatusCode, string(appErr.Kind), appErr.Description
	}
	return 500, "InternalError", ""
}
