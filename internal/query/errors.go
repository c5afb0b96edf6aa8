package query

import (
	"errors"
	"fmt"
)

// Error represents a failure detected while admitting or executing a query.
//
// The first four codes are detected before any backend call and are terminal
// for the request: retrying malformed input cannot make it well-formed.
// CodeBackend wraps a store failure and is surfaced to the orchestrator's
// caller; the next identical request may re-attempt it.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Details contains additional context (path, depth, key, sql).
	Details map[string]string

	// Err is the underlying cause, if any.
	Err error
}

// ErrorCode categorizes query errors.
type ErrorCode string

const (
	// CodeMalformedQuery indicates the payload could not be decoded at all.
	CodeMalformedQuery ErrorCode = "MALFORMED_QUERY"

	// CodeInvalidQueryShape indicates a well-formed payload that is not a flat
	// string mapping (array root, composite or null values, numeric keys).
	CodeInvalidQueryShape ErrorCode = "INVALID_QUERY_SHAPE"

	// CodeInvalidPathFormat indicates a hierarchical path that breaks the
	// leading/trailing slash rules.
	CodeInvalidPathFormat ErrorCode = "INVALID_PATH_FORMAT"

	// CodePathTooDeep indicates a path resolving more fields than the schema
	// allows.
	CodePathTooDeep ErrorCode = "PATH_TOO_DEEP"

	// CodeBackend indicates the backend store failed to execute the query.
	CodeBackend ErrorCode = "BACKEND_ERROR"
)

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// CodeOf returns the code of the first *Error in err's chain.
func CodeOf(err error) (ErrorCode, bool) {
	var qe *Error
	if errors.As(err, &qe) {
		return qe.Code, true
	}
	return "", false
}

func hasCode(err error, code ErrorCode) bool {
	c, ok := CodeOf(err)
	return ok && c == code
}

// IsMalformedQuery returns true if err is a MALFORMED_QUERY error.
func IsMalformedQuery(err error) bool { return hasCode(err, CodeMalformedQuery) }

// IsInvalidQueryShape returns true if err is an INVALID_QUERY_SHAPE error.
func IsInvalidQueryShape(err error) bool { return hasCode(err, CodeInvalidQueryShape) }

// IsInvalidPathFormat returns true if err is an INVALID_PATH_FORMAT error.
func IsInvalidPathFormat(err error) bool { return hasCode(err, CodeInvalidPathFormat) }

// IsPathTooDeep returns true if err is a PATH_TOO_DEEP error.
func IsPathTooDeep(err error) bool { return hasCode(err, CodePathTooDeep) }

// IsBackendError returns true if err is a BACKEND_ERROR.
func IsBackendError(err error) bool { return hasCode(err, CodeBackend) }

// IsRejected reports whether err is one of the local, pre-backend failures.
// Rejected queries are acknowledged but never produce result segments.
func IsRejected(err error) bool {
	c, ok := CodeOf(err)
	if !ok {
		return false
	}
	switch c {
	case CodeMalformedQuery, CodeInvalidQueryShape, CodeInvalidPathFormat, CodePathTooDeep:
		return true
	default:
		return false
	}
}

// NewMalformedQuery creates an Error for an undecodable payload.
func NewMalformedQuery(cause error) *Error {
	return &Error{
		Code:    CodeMalformedQuery,
		Message: "query payload is not valid JSON",
		Err:     cause,
	}
}

// NewInvalidQueryShape creates an Error for a payload with the wrong shape.
func NewInvalidQueryShape(format string, args ...any) *Error {
	return &Error{
		Code:    CodeInvalidQueryShape,
		Message: fmt.Sprintf(format, args...),
	}
}

// NewInvalidPathFormat creates an Error for a path breaking the slash rules.
func NewInvalidPathFormat(path, reason string) *Error {
	return &Error{
		Code:    CodeInvalidPathFormat,
		Message: reason,
		Details: map[string]string{"path": path},
	}
}

// NewPathTooDeep creates an Error for a path that resolves depth fields when
// at most limit are allowed.
func NewPathTooDeep(path string, depth, limit int) *Error {
	return &Error{
		Code:    CodePathTooDeep,
		Message: fmt.Sprintf("path resolves %d fields, at most %d allowed", depth, limit),
		Details: map[string]string{
			"path":  path,
			"depth": fmt.Sprintf("%d", depth),
			"limit": fmt.Sprintf("%d", limit),
		},
	}
}

// NewBackendError wraps a store failure for the given SQL.
func NewBackendError(sql string, cause error) *Error {
	return &Error{
		Code:    CodeBackend,
		Message: "backend execution failed",
		Details: map[string]string{"sql": sql},
		Err:     cause,
	}
}
