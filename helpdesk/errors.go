package helpdesk

import (
	"fmt"
	"net/http"

	"github.com/pkg/errors"
)

const maxErrorBodyLen = 512

// StatusError is returned for any non-2xx response from the helpdesk API.
type StatusError struct {
	Code int
	Url  string
	Body string
}

func newStatusError(code int, url string, body []byte) *StatusError {
	b := string(body)
	if len(b) > maxErrorBodyLen {
		b = b[:maxErrorBodyLen] + "..."
	}
	return &StatusError{Code: code, Url: url, Body: b}
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("helpdesk request %v failed with status %v %v: %v", e.Url, e.Code, http.StatusText(e.Code), e.Body)
}

// IsServerError is true for 5xx responses.
func (e *StatusError) IsServerError() bool {
	return e.Code >= 500 && e.Code <= 599
}

// IsRetryable is true for the transient statuses that are retried with backoff: 409 and 500.
func (e *StatusError) IsRetryable() bool {
	return e.Code == http.StatusConflict || e.Code == http.StatusInternalServerError
}

// AsStatusError unwraps err looking for a *StatusError.
func AsStatusError(err error) (*StatusError, bool) {
	if se, ok := errors.Cause(err).(*StatusError); ok {
		return se, true
	}
	return nil, false
}

// IsServerError reports whether err carries a 5xx StatusError.
func IsServerError(err error) bool {
	se, ok := AsStatusError(err)
	return ok && se.IsServerError()
}

// IsNotFound reports whether err carries a 404 StatusError.
func IsNotFound(err error) bool {
	se, ok := AsStatusError(err)
	return ok && se.Code == http.StatusNotFound
}
