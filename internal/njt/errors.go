package njt

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrCannotConnect covers transport failures, timeouts and unexpected statuses
	ErrCannotConnect = errors.New("cannot connect to RailData API")
	// ErrInvalidAuth covers rejected credentials and malformed token responses
	ErrInvalidAuth = errors.New("invalid RailData API authentication")
)

// APIError describes a failed RailData API call
type APIError struct {
	Op     string
	Status int
	Err    error
}

func (e *APIError) Error() string {
	if e == nil {
		return "njt api error"
	}
	if e.Status != 0 {
		return fmt.Sprintf("%s: HTTP %d: %v", e.Op, e.Status, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *APIError) Unwrap() error { return e.Err }

// statusError maps a non-2xx status onto the error taxonomy
func statusError(op string, status int) error {
	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		return &APIError{Op: op, Status: status, Err: ErrInvalidAuth}
	}
	return &APIError{Op: op, Status: status, Err: ErrCannotConnect}
}

func transportError(op string, err error) error {
	return &APIError{Op: op, Err: fmt.Errorf("%w: %v", ErrCannotConnect, err)}
}
