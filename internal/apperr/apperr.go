// Package apperr defines the coded errors surfaced by the RSVP engine.
package apperr

import (
	"errors"
	"net/http"
)

// Code is a stable, machine-readable error code.
type Code string

const (
	CodeTokenNotFound            Code = "TOKEN_NOT_FOUND"
	CodeTokenExpired             Code = "TOKEN_EXPIRED"
	CodeEventNotFound            Code = "EVENT_NOT_FOUND"
	CodeGuestNotFound            Code = "GUEST_NOT_FOUND"
	CodeInvalidStageTransition   Code = "INVALID_STAGE_TRANSITION"
	CodeInvalidCeremonyReference Code = "INVALID_CEREMONY_REFERENCE"
	CodeCrossEventRelationship   Code = "CROSS_EVENT_RELATIONSHIP"
	CodeRelationshipExists       Code = "RELATIONSHIP_EXISTS"
	CodeRelationshipNotFound     Code = "RELATIONSHIP_NOT_FOUND"
	CodeValidation               Code = "VALIDATION_ERROR"
	CodeInternal                 Code = "INTERNAL"
)

// HTTPStatus maps a code to the status returned by the API.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeTokenNotFound, CodeEventNotFound, CodeGuestNotFound, CodeRelationshipNotFound:
		return http.StatusNotFound
	case CodeTokenExpired:
		return http.StatusGone
	case CodeInvalidStageTransition, CodeRelationshipExists:
		return http.StatusConflict
	case CodeInvalidCeremonyReference, CodeCrossEventRelationship, CodeValidation:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// UserMessage is the end-user facing text for a code.
func (c Code) UserMessage() string {
	switch c {
	case CodeTokenNotFound:
		return "This RSVP link is not valid. Please check the link in your invitation."
	case CodeTokenExpired:
		return "This RSVP link has expired. Please contact the couple to update your response."
	case CodeEventNotFound:
		return "This event is no longer available."
	case CodeGuestNotFound:
		return "Guest not found."
	case CodeInvalidStageTransition:
		return "Please complete step 1 first."
	case CodeInvalidCeremonyReference:
		return "One of the selected ceremonies does not belong to this event."
	case CodeCrossEventRelationship:
		return "Guests from different events cannot be related."
	case CodeRelationshipExists:
		return "These guests are already related."
	case CodeRelationshipNotFound:
		return "Relationship not found."
	case CodeValidation:
		return "Some of the submitted information is invalid."
	default:
		return "Something went wrong. Please try again later."
	}
}

// Error is a domain error carrying a code.
type Error struct {
	Code    Code
	Message string // internal message, for logs
	Field   string // offending input field, for validation errors
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches any *Error with the same code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

// Validation builds a field-level validation error.
func Validation(field, message string) *Error {
	return &Error{Code: CodeValidation, Message: message, Field: field}
}

// Internal wraps a storage or infrastructure failure.
func Internal(message string, cause error) *Error {
	return Wrap(CodeInternal, message, cause)
}

// Sentinels for errors.Is comparisons.
var (
	ErrTokenNotFound            = New(CodeTokenNotFound, "token not found")
	ErrTokenExpired             = New(CodeTokenExpired, "token expired")
	ErrEventNotFound            = New(CodeEventNotFound, "event not found")
	ErrGuestNotFound            = New(CodeGuestNotFound, "guest not found")
	ErrInvalidStageTransition   = New(CodeInvalidStageTransition, "invalid stage transition")
	ErrInvalidCeremonyReference = New(CodeInvalidCeremonyReference, "ceremony does not belong to the guest's event")
	ErrCrossEventRelationship   = New(CodeCrossEventRelationship, "guests belong to different events")
	ErrRelationshipExists       = New(CodeRelationshipExists, "relationship already exists")
	ErrRelationshipNotFound     = New(CodeRelationshipNotFound, "relationship not found")
	ErrValidation               = New(CodeValidation, "validation failed")
	ErrInternal                 = New(CodeInternal, "internal error")
)

// CodeOf returns the code of the first *Error in err's chain, or CodeInternal.
func CodeOf(err error) Code {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeInternal
}
