package errs

import (
	"net/http"
)

// newHTTPError fills Code from the status text unless code is given.
func newHTTPError(status int, message string, override bool, code *string, fieldErrors []FieldError) *HTTPError {
	formattedCode := MakeUpperCaseWithUnderscores(http.StatusText(status))
	if code != nil {
		formattedCode = *code
	}

	return &HTTPError{
		Code:     formattedCode,
		Message:  message,
		Status:   status,
		Override: override,
		Errors:   fieldErrors,
	}
}

// NewBadRequestError creates a 400. code overrides "BAD_REQUEST" when set;
// fieldErrors lists the rejected fields of a request body.
func NewBadRequestError(message string, override bool, code *string, fieldErrors []FieldError) *HTTPError {
	return newHTTPError(http.StatusBadRequest, message, override, code, fieldErrors)
}

func NewNotFoundError(message string, override bool, code *string) *HTTPError {
	return newHTTPError(http.StatusNotFound, message, override, code, nil)
}

func NewMethodNotAllowedError(message string) *HTTPError {
	return newHTTPError(http.StatusMethodNotAllowed, message, true, nil, nil)
}

func NewTooManyRequestsError(message string) *HTTPError {
	return newHTTPError(http.StatusTooManyRequests, message, true, nil, nil)
}

// NewInternalServerError hides the cause; it is logged, never sent.
func NewInternalServerError() *HTTPError {
	return newHTTPError(http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError), false, nil, nil)
}
