package httpclient

import (
	"fmt"
	"net/http"

	"github.com/cockroachdb/errors"
	ierr "github.com/flexprice/ispbilling/internal/errors"
)

// Error is a non-2xx reply from a collaborator
type Error struct {
	URL        string
	StatusCode int
	Response   []byte
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s returned status %d", e.URL, e.StatusCode)
}

// Retryable reports whether the collaborator may succeed on a later attempt
func (e *Error) Retryable() bool {
	return e.StatusCode >= http.StatusInternalServerError || e.StatusCode == http.StatusTooManyRequests
}

// NewError wraps a failed reply, marked transient when it is retryable
func NewError(url string, statusCode int, response []byte) error {
	httpErr := &Error{URL: url, StatusCode: statusCode, Response: response}
	err := ierr.WithError(httpErr).
		WithHintf("Collaborator call failed with status %d", statusCode).
		WithReportableDetails(map[string]any{
			"status_code": statusCode,
		}).
		Mark(ierr.ErrHTTPClient)
	if httpErr.Retryable() {
		err = errors.Mark(err, ierr.ErrTransient)
	}
	return err
}

// IsHTTPError extracts the reply from err
func IsHTTPError(err error) (*Error, bool) {
	var httpErr *Error
	if errors.As(err, &httpErr) {
		return httpErr, true
	}
	return nil, false
}
