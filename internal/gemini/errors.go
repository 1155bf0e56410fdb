package gemini

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingCredential is returned when no API key is available for a call.
	ErrMissingCredential = errors.New("gemini credential is not configured")
	// ErrMalformedResponse is returned when a successful response lacks
	// candidates[0].content.parts[0].text.
	ErrMalformedResponse = errors.New("invalid response format from Gemini API")
)

// HTTPError is a non-2xx answer from the provider.
type HTTPError struct {
	StatusCode int
	Status     string
	Message    string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("Gemini API request failed: %d %s: %s", e.StatusCode, e.Status, e.Message)
}

// Error kinds used as log attributes.
const (
	KindMissingCredential = "missing_credential"
	KindHTTP              = "provider_http_error"
	KindMalformedResponse = "malformed_response"
	KindNetwork           = "network_error"
)

// Kind names the taxonomy bucket of err.
func Kind(err error) string {
	var httpErr *HTTPError
	switch {
	case errors.Is(err, ErrMissingCredential):
		return KindMissingCredential
	case errors.As(err, &httpErr):
		return KindHTTP
	case errors.Is(err, ErrMalformedResponse):
		return KindMalformedResponse
	default:
		return KindNetwork
	}
}

// StatusCode returns the provider HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode
	}
	return 0
}
