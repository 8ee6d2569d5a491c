package apierror

import (
	"fmt"
	"net/http"
)

// Error names rendered in the response body.
const (
	NameUnauthorized        = "Unauthorized"
	NameTokenMalformed      = "Token is malformed"
	NameTokenExpired        = "Token is expired"
	NameForbidden           = "Forbidden"
	NameNotFound            = "Not Found"
	NameDuplicate           = "Duplicate"
	NameUnprocessableEntity = "Unprocessable Entity"
	NameTooManyRequests     = "Too Many Requests"
	NameInternal            = "Internal server error"
)

// FieldError describes a single invalid input field.
type FieldError struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// Error is an HTTP-facing failure with a fixed status and name.
type Error struct {
	Status  int
	Name    string
	Message string
	Fields  []FieldError
	cause   error
}

func (apiErr *Error) Error() string {
	if apiErr.cause != nil {
		return fmt.Sprintf("%s: %s: %v", apiErr.Name, apiErr.Message, apiErr.cause)
	}
	return fmt.Sprintf("%s: %s", apiErr.Name, apiErr.Message)
}

func (apiErr *Error) Unwrap() error {
	return apiErr.cause
}

// Wrap attaches an underlying cause without changing the rendered body.
func (apiErr *Error) Wrap(cause error) *Error {
	clone := *apiErr
	clone.cause = cause
	return &clone
}

func newError(status int, name string, message string, fallback string) *Error {
	if message == "" {
		message = fallback
	}
	return &Error{Status: status, Name: name, Message: message}
}

func Unauthorized(message string) *Error {
	return newError(http.StatusUnauthorized, NameUnauthorized, message, "Invalid credentials")
}

func Forbidden(message string) *Error {
	return newError(http.StatusForbidden, NameForbidden, message, "Invalid action")
}

func NotFound(message string) *Error {
	return newError(http.StatusNotFound, NameNotFound, message, "Resource not existing")
}

func Conflict(message string) *Error {
	return newError(http.StatusConflict, NameDuplicate, message, "Duplicate resource found")
}

func TooManyRequests(message string) *Error {
	return newError(http.StatusTooManyRequests, NameTooManyRequests, message, "Too many attempts, try again later")
}

// UnprocessableEntity reports invalid input. With fields, the body message
// becomes the list of field errors.
func UnprocessableEntity(message string, fields ...FieldError) *Error {
	apiErr := newError(http.StatusUnprocessableEntity, NameUnprocessableEntity, message, "Invalid input data")
	apiErr.Fields = fields
	return apiErr
}
