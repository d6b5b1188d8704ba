package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"github.com/gdg-garage/wedding-rsvp-api/internal/apperr"
	"github.com/gdg-garage/wedding-rsvp-api/internal/logging"
)

// APIError is the body of every error response.
type APIError struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

func (e *APIError) Error() string {
	return e.Message
}

func (e *APIError) GetStatus() int {
	return e.Status
}

// newHumaError replaces huma's default error model so schema and auth
// failures share the APIError shape.
func newHumaError(status int, msg string, errs ...error) huma.StatusError {
	apiErr := &APIError{Status: status, Code: codeForStatus(status), Message: msg}
	for _, err := range errs {
		var detail *huma.ErrorDetail
		if errors.As(err, &detail) {
			apiErr.Field = strings.TrimPrefix(detail.Location, "body.")
			if detail.Message != "" {
				apiErr.Message = msg + ": " + detail.Message
			}
			break
		}
	}
	return apiErr
}

func codeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "BAD_REQUEST"
	case http.StatusUnauthorized:
		return "UNAUTHORIZED"
	case http.StatusNotFound:
		return "NOT_FOUND"
	case http.StatusUnprocessableEntity:
		return string(apperr.CodeValidation)
	case http.StatusTooManyRequests:
		return "RATE_LIMITED"
	}
	if status >= 500 {
		return string(apperr.CodeInternal)
	}
	return strings.ToUpper(strings.ReplaceAll(http.StatusText(status), " ", "_"))
}

// problem converts a service error into an API error. Internal details go to
// the log, never to the client.
func problem(logger *logging.Logger, op string, err error) error {
	var appErr *apperr.Error
	if !errors.As(err, &appErr) {
		appErr = apperr.Internal(op, err)
	}

	if appErr.Code == apperr.CodeInternal {
		logger.WithFields(logging.Fields{"op": op, "error": err.Error()}).Error("Request failed")
	}

	msg := appErr.Code.UserMessage()
	if appErr.Code == apperr.CodeValidation && appErr.Field != "" {
		msg = appErr.Message
	}

	return &APIError{
		Status:  appErr.Code.HTTPStatus(),
		Code:    string(appErr.Code),
		Message: msg,
		Field:   appErr.Field,
	}
}

const undeliveredMessage = "The invitation could not be delivered through any configured channel."

// deliveryErrorMessage is the client-facing text for a failed invitation
// send. Provider replies and storage errors stay in the logs.
func deliveryErrorMessage(err error) string {
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		return appErr.Code.UserMessage()
	}
	return undeliveredMessage
}
