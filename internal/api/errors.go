package api

import (
	"net/http"

	"coopconsole/internal/normalize"
	dErrors "coopconsole/pkg/domain-errors"
)

// StatusCode maps a backend HTTP status to a domain error code.
func StatusCode(status int) dErrors.Code {
	switch status {
	case http.StatusBadRequest, http.StatusUnprocessableEntity, http.StatusConflict:
		return dErrors.CodeInvalidInput
	case http.StatusUnauthorized:
		return dErrors.CodeUnauthorized
	case http.StatusForbidden:
		return dErrors.CodeForbidden
	case http.StatusNotFound:
		return dErrors.CodeNotFound
	case http.StatusRequestTimeout, http.StatusGatewayTimeout:
		return dErrors.CodeTimeout
	case http.StatusTooManyRequests, http.StatusBadGateway, http.StatusServiceUnavailable:
		return dErrors.CodeUnavailable
	default:
		return dErrors.CodeInternal
	}
}

var errorMessage = []string{"message", "error.message", "error", "detail", "msg"}

// statusError builds the domain error for a non-2xx response. The backend's
// own message is kept when it sends one.
func statusError(status int, body []byte) error {
	code := StatusCode(status)
	msg := normalize.Parse(body).StringOr("", errorMessage...)
	if msg == "" {
		msg = http.StatusText(status)
	}
	return dErrors.New(code, msg)
}

// signInError narrows a sign-in failure: anything the backend rejects as a
// client error is a credential problem from the operator's point of view.
func signInError(err error) error {
	switch dErrors.CodeOf(err) {
	case dErrors.CodeInvalidInput, dErrors.CodeUnauthorized, dErrors.CodeForbidden:
		return &dErrors.Error{
			Code:    dErrors.CodeBadCredentials,
			Message: "Invalid credentials. Check your phone number or email and password.",
			Err:     err,
		}
	default:
		return err
	}
}
