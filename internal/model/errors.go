package model

import (
	"errors"
	"strings"
)

// Pipeline error kinds.
// Every fetch, write and derive operation fails with an *Error whose Kind is
// one of these sentinels, so callers can branch with errors.Is.
var (
	// ErrNetwork covers transport failures, timeouts and non-2xx responses.
	ErrNetwork = errors.New("network error")

	// ErrDecode is returned when a body does not match its declared kind,
	// e.g. invalid JSON or non-UTF-8 CSV.
	ErrDecode = errors.New("decode error")

	// ErrSchema is returned when an expected column or field is absent
	// or holds values of the wrong type.
	ErrSchema = errors.New("schema error")

	// ErrFilesystem covers directory creation, read and write failures.
	ErrFilesystem = errors.New("filesystem error")
)

// Error is a structured pipeline error.
type Error struct {
	// Kind is one of ErrNetwork, ErrDecode, ErrSchema or ErrFilesystem.
	Kind error

	// Op names the failing operation ("fetch", "write", "derive word frequency", ...).
	Op string

	// Path is the URL or file path involved, if any.
	Path string

	// Err is the underlying cause. May be nil.
	Err error
}

// NewError creates an *Error.
func NewError(kind error, op, path string, err error) *Error {
	return &Error{Kind: kind, Op: op, Path: path, Err: err}
}

// Error implements the error interface.
func (e *Error) Error() string {
	var sb strings.Builder
	if e.Op != "" {
		sb.WriteString(e.Op)
		sb.WriteString(" ")
	}
	if e.Path != "" {
		sb.WriteString(e.Path)
		sb.WriteString(": ")
	} else if e.Op != "" {
		sb.WriteString(": ")
	}
	if e.Kind != nil {
		sb.WriteString(e.Kind.Error())
	}
	if e.Err != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Err.Error())
	}
	return sb.String()
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is this error's kind.
func (e *Error) Is(target error) bool {
	return e.Kind != nil && target == e.Kind
}

// ErrorKindOf returns the short name of the error kind carried by err:
// "network", "decode", "schema", "filesystem", or "other".
// It returns an empty string for a nil error.
func ErrorKindOf(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNetwork):
		return "network"
	case errors.Is(err, ErrDecode):
		return "decode"
	case errors.Is(err, ErrSchema):
		return "schema"
	case errors.Is(err, ErrFilesystem):
		return "filesystem"
	default:
		return "other"
	}
}
