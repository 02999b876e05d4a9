package operation

import (
	"errors"
	"fmt"
	"strings"
)

// Error codes raised by the engine.
const (
	CodeOperationNotFound = "OPERATION_NOT_FOUND"
	CodeAmbiguousMatch    = "AMBIGUOUS_MATCH"
	CodeForbidden         = "FORBIDDEN"
	CodeInvisible         = "INVISIBLE"
	CodeInvalidArgument   = "INVALID_ARGUMENT"
	CodeInternal          = "INTERNAL_ERROR"
)

// Reasons qualifying CodeOperationNotFound.
const (
	ReasonUnknownOperation  = "unknown_operation"
	ReasonMissingParameter  = "missing_parameter"
	ReasonParameterMismatch = "parameter_mismatch"
)

// Error is a structured failure raised by resolution or authorization.
type Error struct {
	Code    string      `json:"code"`
	Reason  string      `json:"reason,omitempty"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

func (e *Error) Error() string {
	return e.Code + ": " + e.Message
}

// NewError creates a new Error.
func NewError(code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// ErrAccessDenied marks security-domain failures raised by operation implementations.
// The transport shell reports them as a generic access-denied message.
var ErrAccessDenied = errors.New("access denied")

// ErrWrongEntryPoint is returned when Invoke is used for an async operation or
// InvokeAsync for a sync one.
var ErrWrongEntryPoint = errors.New("operation: wrong invocation entry point for return kind")

// NotFound returns an OPERATION_NOT_FOUND error for an unknown name.
func NotFound(name string) *Error {
	return &Error{
		Code:    CodeOperationNotFound,
		Reason:  ReasonUnknownOperation,
		Message: fmt.Sprintf("Operation not found: %s", name),
	}
}

// MissingParameter returns an OPERATION_NOT_FOUND error for a required parameter absent by name.
func MissingParameter(operation, param string) *Error {
	return &Error{
		Code:    CodeOperationNotFound,
		Reason:  ReasonMissingParameter,
		Message: fmt.Sprintf("Operation not found: %s. Required parameter is missing: %s", operation, param),
	}
}

// ParameterMismatch returns an OPERATION_NOT_FOUND error for a present but unbindable parameter.
func ParameterMismatch(operation, param string) *Error {
	return &Error{
		Code:    CodeOperationNotFound,
		Reason:  ReasonParameterMismatch,
		Message: fmt.Sprintf("Operation not found: %s. Parameter type mismatch: %s", operation, param),
	}
}

// Ambiguous returns an AMBIGUOUS_MATCH error naming every equally matched signature.
func Ambiguous(operation string, signatures []string) *Error {
	return &Error{
		Code:    CodeAmbiguousMatch,
		Message: fmt.Sprintf("Ambiguous call: %s -> %s", operation, strings.Join(signatures, ", ")),
		Details: signatures,
	}
}

// Forbidden returns a FORBIDDEN error.
func Forbidden(operation, reason string) *Error {
	msg := fmt.Sprintf("Access denied: %s", operation)
	if reason != "" {
		msg += ". " + reason
	}
	return &Error{Code: CodeForbidden, Message: msg, Details: reason}
}

// Invisible returns an INVISIBLE error. Its message deliberately matches "not found".
func Invisible(operation string) *Error {
	return &Error{Code: CodeInvisible, Message: fmt.Sprintf("Operation not found: %s", operation)}
}

// CodeOf returns the code of err when it is an *Error, else "".
func CodeOf(err error) string {
	var opErr *Error
	if errors.As(err, &opErr) {
		return opErr.Code
	}
	return ""
}
