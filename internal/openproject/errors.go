package openproject

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
)

var (
	// ErrNotFound is matched by errors for 404 responses.
	ErrNotFound = errors.New("openproject: resource not found")

	// ErrConflict is matched when the backend rejects a write because the
	// lockVersion it carried is stale.
	ErrConflict = errors.New("openproject: conflicting update")

	// ErrTimeout is matched when no response arrived within the request
	// timeout.
	ErrTimeout = errors.New("openproject: request timed out")

	// ErrTransport is matched by every request that produced no HTTP
	// response: refused connections, DNS and TLS failures, resets and
	// timeouts alike.
	ErrTransport = errors.New("openproject: backend unreachable")

	// ErrWriteOutcomeUnknown is matched when the read half of a
	// read-then-write sequence succeeded but the write got no response.
	// The write may or may not have been applied.
	ErrWriteOutcomeUnknown = errors.New("openproject: write outcome unknown")

	// ErrInvalidArgument is returned for input the client rejects before
	// sending anything, such as malformed filters or hours.
	ErrInvalidArgument = errors.New("openproject: invalid argument")
)

const (
	updateConflictIdentifier = "urn:openproject-org:api:v3:errors:UpdateConflict"
	notFoundIdentifier       = "urn:openproject-org:api:v3:errors:NotFound"
)

// APIError is a non-2xx response from the API. The message is taken from
// the HAL error body when there is one.
type APIError struct {
	StatusCode int
	Identifier string
	Message    string
	Details    map[string]any
}

func (err *APIError) Error() string {
	return fmt.Sprintf("openproject: HTTP %d: %s", err.StatusCode, err.Message)
}

// Is lets errors.Is classify API errors against the package sentinels.
func (err *APIError) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return err.StatusCode == http.StatusNotFound || err.Identifier == notFoundIdentifier
	case ErrConflict:
		return err.StatusCode == http.StatusConflict || err.Identifier == updateConflictIdentifier
	default:
		return false
	}
}

// IsNotFound reports whether err is a not-found response.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsConflict reports whether err is a stale lockVersion rejection.
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}

// IsTimeout reports whether err is a request that got no response in time.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}

func IsTransport(err error) bool {
	return errors.Is(err, ErrTransport)
}

type errorBody struct {
	Type            string         `json:"_type"`
	ErrorIdentifier string         `json:"errorIdentifier"`
	Message         string         `json:"message"`
	Details         map[string]any `json:"details"`
}

func parseAPIErrorFromBody(statusCode int, body []byte) *APIError {
	apiErr := &APIError{StatusCode: statusCode}

	var payload errorBody
	if err := json.Unmarshal(body, &payload); err == nil && payload.Message != "" {
		apiErr.Identifier = payload.ErrorIdentifier
		apiErr.Message = payload.Message
		apiErr.Details = payload.Details
		return apiErr
	}

	apiErr.Message = strings.TrimSpace(string(body))
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(statusCode)
	}
	return apiErr
}

// transportError is a request that never produced an HTTP response.
type transportError struct {
	method string
	path   string
	err    error
}

func (err *transportError) Error() string {
	return fmt.Sprintf("openproject: %s %s: %v", err.method, err.path, err.err)
}

func (err *transportError) Unwrap() error {
	return err.err
}

func (err *transportError) Is(target error) bool {
	switch target {
	case ErrTransport:
		return true
	case ErrTimeout:
		return isTimeout(err.err)
	default:
		return false
	}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// writeFailed classifies an error from the write half of a read-then-write
// sequence. A definitive answer from the server passes through unchanged.
func writeFailed(err error) error {
	var transportErr *transportError
	if errors.As(err, &transportErr) {
		return fmt.Errorf("%w: %w", ErrWriteOutcomeUnknown, err)
	}
	return err
}
