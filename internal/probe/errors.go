package probe

import (
	"errors"
	"fmt"
)

// ErrMissingHeader marks a response that carried no timing header.
var ErrMissingHeader = errors.New("response missing " + Header + " header")

// HTTPError represents a non-2xx response with status details.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Body)
}

// HeaderError reports a timing header whose value did not parse.
type HeaderError struct {
	Value string
	Err   error
}

func (e *HeaderError) Error() string {
	return fmt.Sprintf("unusable %s header %q: %v", Header, e.Value, e.Err)
}

func (e *HeaderError) Unwrap() error {
	return e.Err
}
