package extractor

import (
	"fmt"
	"net/http"
)

// StatusError is a non-200 answer from the Extraction Service.
type StatusError struct {
	Backend string
	Code    int
	Reason  string
	Message string
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("%s: HTTP %d %s", e.Backend, e.Code, http.StatusText(e.Code))
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Message != "" {
		msg += " (" + e.Message + ")"
	}
	return msg
}

// NetworkError means the service could not be reached at all.
type NetworkError struct {
	Backend string
	Err     error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: request failed: %v", e.Backend, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}
