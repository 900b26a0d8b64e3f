// Package errors carries typed application errors and how each code is
// rendered over HTTP.
package errors

import (
	stdErrors "errors"
	"net/http"
)

type Code string

const (
	CodeValidation    Code = "VALIDATION_ERROR"
	CodeUnauthorized  Code = "UNAUTHORIZED"
	CodeForbidden     Code = "FORBIDDEN"
	CodeNotFound      Code = "NOT_FOUND"
	CodeConflict      Code = "CONFLICT"
	CodeStateConflict Code = "STATE_CONFLICT"
	CodeIdempotency   Code = "IDEMPOTENCY_KEY_REUSED"
	CodeRateLimit     Code = "RATE_LIMIT_EXCEEDED"
	CodeInternal      Code = "INTERNAL_ERROR"
	CodeDependency    Code = "DEPENDENCY_ERROR"
)

// Policy is what a client learns about an error with a given code. Opaque
// policies replace the error's own message with Public.
type Policy struct {
	Status      int
	Public      string
	Opaque      bool
	ShowDetails bool
}

func client(status int, public string, details bool) Policy {
	return Policy{Status: status, Public: public, ShowDetails: details}
}

func server(status int, public string, details bool) Policy {
	return Policy{Status: status, Public: public, Opaque: true, ShowDetails: details}
}

var policies = map[Code]Policy{
	CodeValidation:    client(http.StatusBadRequest, "validation failed", true),
	CodeUnauthorized:  client(http.StatusUnauthorized, "authentication required", false),
	CodeForbidden:     client(http.StatusForbidden, "access denied", false),
	CodeNotFound:      client(http.StatusNotFound, "resource not found", false),
	CodeConflict:      client(http.StatusConflict, "conflict detected", false),
	CodeStateConflict: client(http.StatusUnprocessableEntity, "state transition disallowed", true),
	CodeIdempotency:   client(http.StatusConflict, "idempotency key reused", true),
	CodeRateLimit:     client(http.StatusTooManyRequests, "rate limit exceeded", false),
	CodeInternal:      server(http.StatusInternalServerError, "internal server error", false),
	CodeDependency:    server(http.StatusServiceUnavailable, "dependency unavailable", true),
}

// PolicyFor treats unknown codes as internal errors.
func PolicyFor(code Code) Policy {
	if p, ok := policies[code]; ok {
		return p
	}
	return policies[CodeInternal]
}

func (p Policy) MessageFor(e *Error) string {
	if p.Opaque || e.Message() == "" {
		return p.Public
	}
	return e.Message()
}

// Error pairs a stable code with a message, an optional cause and optional
// details for the client.
type Error struct {
	code    Code
	message string
	details any
	cause   error
}

func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

// Wrap attaches a code to err. A nil err behaves like New.
func Wrap(code Code, err error, message string) *Error {
	return &Error{code: code, message: message, cause: err}
}

func (e *Error) Code() Code {
	if e == nil {
		return CodeInternal
	}
	return e.code
}

func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	return e.message
}

func (e *Error) Details() any {
	if e == nil {
		return nil
	}
	return e.details
}

// WithDetails sets the client-visible details in place and returns e.
func (e *Error) WithDetails(details any) *Error {
	if e != nil {
		e.details = details
	}
	return e
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	msg := string(e.code) + ": " + e.message
	if e.cause != nil {
		msg += ": " + e.cause.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// As returns the outermost *Error in err's chain, or nil.
func As(err error) *Error {
	var typed *Error
	if stdErrors.As(err, &typed) {
		return typed
	}
	return nil
}

// IsCode reports whether the outermost *Error in err's chain has code.
func IsCode(err error, code Code) bool {
	return As(err).codeIs(code)
}

func (e *Error) codeIs(code Code) bool {
	return e != nil && e.code == code
}
