package apperr

import (
	"errors"
	"fmt"
)

// Code classifies failures across the pipeline. The numbering follows the
// scheme of the legacy system so dashboards keep working.
type Code string

const (
	CodeUnknown Code = "E001"

	// LLM provider
	CodeServiceUnavailable Code = "E101"
	CodeRateLimited        Code = "E102"
	CodeTimeoutExceeded    Code = "E103"

	// Vector store
	CodeRetrievalUnavailable Code = "E201"

	// Input validation
	CodeNoDataFound    Code = "E401"
	CodeInvalidQuery   Code = "E402"
	CodeInvalidDomain  Code = "E404"
	CodeDomainMismatch Code = "E405"

	// Agents
	CodeAgentNotFound Code = "E501"

	// Authorization
	CodeUnauthorized Code = "E601"
)

// Error is a coded pipeline error. The message is for logs; the user-facing
// text comes from UserMessage and never exposes internals.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New builds a coded error without a cause.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap builds a coded error around a cause.
func Wrap(code Code, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// CodeOf extracts the code from err, CodeUnknown when err carries none.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeUnknown
}

// Is reports whether err carries the given code.
func Is(err error, code Code) bool {
	return CodeOf(err) == code
}

// Retryable reports whether a bounded retry is worth attempting. Timeouts
// are excluded: retrying them only blows the latency budget further.
func Retryable(err error) bool {
	switch CodeOf(err) {
	case CodeServiceUnavailable, CodeRateLimited, CodeRetrievalUnavailable:
		return true
	}
	return false
}

var userMessages = map[Code]string{
	CodeServiceUnavailable: "The assistant is temporarily unavailable. Please try again in a moment.",
	CodeRateLimited:        "Request limit exceeded. Please wait a little and try again.",
	CodeTimeoutExceeded:    "The request took too long to process. Please try again.",

	CodeRetrievalUnavailable: "The knowledge base search failed. Please try again.",

	CodeNoDataFound:   "I could not find information on your request in the knowledge base. Try rephrasing the question or contact the responsible specialist.",
	CodeInvalidQuery:  "I could not understand your request. Please phrase the question in more detail.",
	CodeInvalidDomain: "The selected assistant is not available. Use /finance, /legal or /project.",

	CodeAgentNotFound: "The selected assistant was not found. Use /finance, /legal or /project.",
	CodeUnauthorized:  "You do not have access to this bot. Please contact the administrator.",
}

// UserMessage maps err to a reply safe to show in chat.
func UserMessage(err error) string {
	if msg, ok := userMessages[CodeOf(err)]; ok {
		return msg
	}
	return "Something went wrong. Please try again or contact support."
}
