package errors

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// Code classifies an error. Codes reuse http status values so they can be
// returned from transport layers without translation.
type Code int

const (
	Internal   Code = http.StatusInternalServerError
	NotFound   Code = http.StatusNotFound
	Validation Code = http.StatusBadRequest
	Duplicate  Code = http.StatusConflict
	// Store indicates a failure returned by the underlying document store.
	Store Code = http.StatusBadGateway
	// UnsupportedOperator indicates a filter operator outside the closed operator set.
	UnsupportedOperator Code = http.StatusNotImplemented
	// UnknownFilter indicates a filter variant the compiler does not recognize.
	UnknownFilter Code = http.StatusUnprocessableEntity
)

// Error is a code-tagged error carrying the message trail and, when wrapping
// a foreign error, the original cause.
type Error struct {
	Code     Code     `json:"code"`
	Messages []string `json:"messages"`
	Err      error    `json:"err,omitempty"`
}

// Error renders the error as a json string. A zero code renders as 200.
func (e *Error) Error() string {
	out := *e
	if out.Code == 0 {
		out.Code = http.StatusOK
	}
	bits, _ := json.Marshal(&out)
	return string(bits)
}

// Unwrap returns the wrapped error, if any
func (e *Error) Unwrap() error {
	return e.Err
}

// RemoveError returns a copy with the wrapped error detached, keeping the
// code and messages.
func (e *Error) RemoveError() *Error {
	return &Error{Code: e.Code, Messages: e.Messages}
}

// New creates an Error with the given code and formatted message
func New(code Code, msg string, args ...any) error {
	return &Error{Code: code, Messages: []string{fmt.Sprintf(msg, args...)}}
}

// Extract returns the Error behind err, or a zero-code Error wrapping it.
func Extract(err error) *Error {
	if e, ok := err.(*Error); ok {
		return e
	}
	return &Error{Err: err}
}

// Wrap appends the formatted message to err's message trail. Foreign errors
// are converted and kept as the cause; a zero code never overrides the code
// already on the error. Wrapping nil returns nil.
func Wrap(err error, code Code, msg string, args ...any) error {
	if err == nil {
		return nil
	}
	e, ok := err.(*Error)
	if !ok {
		e = &Error{Code: code, Err: err}
	} else if code > 0 {
		e.Code = code
	}
	if msg != "" {
		e.Messages = append(e.Messages, fmt.Sprintf(msg, args...))
	}
	return e
}
