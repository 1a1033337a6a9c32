package mgmtapi

import (
	"errors"
	"fmt"
)

// APIError represents an error envelope returned by the appliance API.
// The server reports these as {"error": {"klass": ..., "message": ...}} on
// any verb, regardless of HTTP status.
type APIError struct {
	Klass   string `json:"klass"   yaml:"klass"`
	Message string `json:"message" yaml:"message"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Klass, e.Message)
}

// DecodeError is returned when a response body is non-empty but not valid
// JSON. Raw carries the offending body text.
type DecodeError struct {
	Raw string
	Err error
}

// Error implements the error interface.
func (e *DecodeError) Error() string {
	raw := e.Raw
	if len(raw) > maxRawErrorLength {
		raw = raw[:maxRawErrorLength] + "..."
	}

	return fmt.Sprintf("decoding response body: %v: %q", e.Err, raw)
}

// Unwrap returns the underlying JSON error.
func (e *DecodeError) Unwrap() error {
	return e.Err
}

const maxRawErrorLength = 200

// Static errors for err113 compliance.
var (
	ErrConfigRequired          = errors.New("config is required")
	ErrEndpointRequired        = errors.New("API endpoint is required")
	ErrMalformedRootDocument   = errors.New("root document is not a JSON object")
	ErrMalformedCollectionDoc  = errors.New("collection document is not a JSON object")
	ErrMalformedEntityDoc      = errors.New("entity document is not a JSON object")
	ErrMalformedEntity         = errors.New("entity data has neither id nor href")
	ErrMalformedActionResult   = errors.New("action result has neither id nor href")
	ErrCollectionNameMismatch  = errors.New("collection name mismatch")
	ErrUnknownCollection       = errors.New("unknown collection")
	ErrUnknownVersion          = errors.New("unknown API version")
	ErrNoSuchObject            = errors.New("no such object")
	ErrNoSuchAttribute         = errors.New("no such attribute")
	ErrNoSuchAction            = errors.New("no such action")
	ErrUnsupportedActionMethod = errors.New("unsupported action method")
	ErrTaskFailed              = errors.New("task failed")
)

// AsAPIError extracts an *APIError from the error chain, if present.
func AsAPIError(err error) (*APIError, bool) {
	apiErr := &APIError{}
	if errors.As(err, &apiErr) {
		return apiErr, true
	}

	return nil, false
}

// IsAPIError checks if the error carries a remote error envelope.
func IsAPIError(err error) bool {
	_, ok := AsAPIError(err)

	return ok
}

// IsDecodeError checks if the error is a response decode failure.
func IsDecodeError(err error) bool {
	decErr := &DecodeError{}

	return errors.As(err, &decErr)
}

// IsNotFound checks if the error is one of the not-found conditions.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNoSuchObject) ||
		errors.Is(err, ErrNoSuchAttribute) ||
		errors.Is(err, ErrNoSuchAction)
}
