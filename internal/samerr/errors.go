// Package samerr defines the error taxonomy shared by every component:
// query execution, storage, clustering, and routing all report failures as
// one of these codes so a caller across a package boundary can branch on
// Code without string-matching messages.
package samerr

import (
	"errors"
	"fmt"
)

// Code is the error taxonomy. The external Request API echoes Code back to
// callers verbatim.
type Code string

const (
	CodeParseError         Code = "parse_error"
	CodeSemanticError      Code = "semantic_error"
	CodeNotFound           Code = "not_found"
	CodeIndexExists        Code = "index_exists"
	CodeQuotaExceeded      Code = "quota_exceeded"
	CodeConstraintViolation Code = "constraint_violation"
	CodeTimeout            Code = "timeout"
	CodeNotLeader          Code = "not_leader"
	CodeNoQuorum           Code = "no_quorum"
	CodeUnknownShard       Code = "unknown_shard"
	CodeStorageError       Code = "storage_error"
	CodeIoError            Code = "io_error"
)

// Error is the concrete error type returned by every package in this
// module. It always carries a Code so callers can branch without parsing
// the message.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// New constructs an *Error with the given code and message.
func New(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap constructs an *Error with the given code and message, preserving
// cause for errors.Is/errors.As traversal.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// CodeOf extracts the Code from err if it is (or wraps) an *Error,
// otherwise returns CodeStorageError as the catch-all for unclassified
// internal failures.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeStorageError
}

func Is(err error, code Code) bool {
	return CodeOf(err) == code
}
