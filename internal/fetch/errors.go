package fetch

import (
	"errors"
	"fmt"
)

// Fetch failure causes. They are wrapped in a *model.Error, so callers
// usually match on the model error kind and only inspect these when they
// need the specific reason.
var (
	// ErrBodyTooLarge is returned when the response body exceeds the
	// configured maximum size.
	ErrBodyTooLarge = errors.New("response body exceeds maximum size")

	// ErrInvalidUTF8 is returned when a CSV body is not valid UTF-8.
	ErrInvalidUTF8 = errors.New("body is not valid UTF-8")

	// ErrTrailingData is returned when a JSON body holds more than one
	// top-level value.
	ErrTrailingData = errors.New("unexpected data after top-level JSON value")

	// ErrUnsupportedKind is returned for a content kind the fetcher cannot decode.
	ErrUnsupportedKind = errors.New("unsupported content kind")
)

// StatusError reports a response with a non-2xx status code.
type StatusError struct {
	// StatusCode is the HTTP status code, e.g. 404.
	StatusCode int

	// Status is the status line, e.g. "404 Not Found".
	Status string
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	if e.Status != "" {
		return "unexpected HTTP status " + e.Status
	}
	return fmt.Sprintf("unexpected HTTP status %d", e.StatusCode)
}
