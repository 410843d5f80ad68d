package scatter

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for common conditions.
var (
	ErrClosed       = errors.New("scatter: client closed")
	ErrNotConnected = errors.New("scatter: gateway not connected")
)

// ConnectionError represents a gateway connection-level error.
type ConnectionError struct {
	Op  string
	URL string
	Err error
}

func (e *ConnectionError) Error() string {
	if e.URL != "" {
		return fmt.Sprintf("scatter: %s %s: %v", e.Op, e.URL, e.Err)
	}
	return fmt.Sprintf("scatter: %s: %v", e.Op, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// SendError represents an error while sending a gateway message.
type SendError struct {
	Op  string
	Err error
}

func (e *SendError) Error() string {
	return fmt.Sprintf("scatter: send %s: %v", e.Op, e.Err)
}

func (e *SendError) Unwrap() error {
	return e.Err
}

// HTTPError represents a generic REST API failure. It carries the raw
// status code and response body; the client never retries or reinterprets
// it beyond the 404/403 specializations below.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("scatter: http %d: %s", e.StatusCode, e.Body)
}

// NotFoundError is the HTTPError returned for a 404 response.
type NotFoundError struct {
	HTTPError
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("scatter: not found: %s", e.Body)
}

// ForbiddenError is the HTTPError returned for a 403 response.
type ForbiddenError struct {
	HTTPError
}

func (e *ForbiddenError) Error() string {
	return fmt.Sprintf("scatter: forbidden: %s", e.Body)
}

// statusError maps a non-2xx REST response onto the error taxonomy.
func statusError(code int, body []byte) error {
	he := HTTPError{StatusCode: code, Body: string(body)}
	switch code {
	case http.StatusNotFound:
		return &NotFoundError{he}
	case http.StatusForbidden:
		return &ForbiddenError{he}
	default:
		return &he
	}
}
