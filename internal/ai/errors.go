package ai

import (
	"fmt"
	"net/http"
	"strings"
)

// UnsupportedProviderError is returned by Registry.Resolve for unknown names.
type UnsupportedProviderError struct {
	Name      string
	Supported []string
}

func (e *UnsupportedProviderError) Error() string {
	return fmt.Sprintf("Unsupported provider: %s. Supported: %s", e.Name, strings.Join(e.Supported, ", "))
}

// HTTPError is a non-2xx answer from a provider. StatusCode is propagated to
// the caller unchanged.
type HTTPError struct {
	Provider   string
	StatusCode int
	Status     string
	Body       string
}

func (e *HTTPError) Error() string {
	status := e.Status
	if status == "" {
		status = fmt.Sprintf("%d %s", e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("%s API error: %s", e.Provider, status)
}

// NetworkError is a transport failure before any response was read.
type NetworkError struct {
	Provider string
	Err      error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("Network error calling %s API: %v", e.Provider, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// FormatError means the provider answered but not in the shape its adapter expects.
type FormatError struct {
	Provider string
	Err      error
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("Invalid %s response format", e.Provider)
}

func (e *FormatError) Unwrap() error { return e.Err }
