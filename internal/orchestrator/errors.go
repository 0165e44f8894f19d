package orchestrator

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrDebounced is returned by Submit when a newer submission replaced the
// call during the debounce window.
var ErrDebounced = errors.New("superseded by a newer submission")

// Kind classifies why an operation failed.
type Kind int

const (
	KindUnknown Kind = iota
	InvalidInput
	Busy
	Offline
	DuplicateSubmission
	Transient
	RetriesExhausted
	Permanent
	OverallTimeout
	Canceled
)

var kindNames = map[Kind]string{
	KindUnknown:         "unknown",
	InvalidInput:        "invalid_input",
	Busy:                "busy",
	Offline:             "offline",
	DuplicateSubmission: "duplicate",
	Transient:           "transient",
	RetriesExhausted:    "retries_exhausted",
	Permanent:           "permanent",
	OverallTimeout:      "overall_timeout",
	Canceled:            "canceled",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return kindNames[KindUnknown]
}

// ParseKind is the inverse of Kind.String.
func ParseKind(s string) (Kind, bool) {
	for k, name := range kindNames {
		if name == s && k != KindUnknown {
			return k, true
		}
	}
	return KindUnknown, false
}

// cacheable kinds come out of a real dispatch and are stored as error
// records so the same bad key does not hit the network again.
func (k Kind) cacheable() bool {
	return k == Permanent || k == RetriesExhausted || k == OverallTimeout
}

// Error is the failure of one operation.
type Error struct {
	Kind   Kind
	Key    string
	Status int
	Err    error

	msg string
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message())
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Message is the text shown to the user.
func (e *Error) Message() string {
	if e.msg != "" {
		return e.msg
	}

	switch e.Kind {
	case InvalidInput:
		return `Please enter a valid Kleinanzeigen URL or "demo".`
	case Busy:
		return "A request is already running, please wait."
	case Offline:
		return "You are offline. Only demo keywords work without a connection."
	case DuplicateSubmission:
		return "This listing was just extracted."
	case Transient:
		return "Temporary error, retrying."
	case RetriesExhausted:
		if e.Status != 0 {
			return fmt.Sprintf("Extraction failed: max retries reached (last status %d).", e.Status)
		}
		return "Extraction failed: max retries reached."
	case Permanent:
		switch e.Status {
		case http.StatusNotFound:
			return "Listing not found (HTTP 404)."
		case http.StatusForbidden:
			return "Access to the listing was denied (HTTP 403)."
		case http.StatusBadRequest:
			return "The extraction service rejected the URL (HTTP 400)."
		case 0:
			return "Extraction failed."
		}
		return fmt.Sprintf("Extraction failed (HTTP %d).", e.Status)
	case OverallTimeout:
		return "The request took too long and was aborted."
	case Canceled:
		return "Request canceled."
	}
	return "Unexpected error."
}

// KindOf returns the Kind of err, or KindUnknown if err is not an *Error.
func KindOf(err error) Kind {
	var oe *Error
	if errors.As(err, &oe) {
		return oe.Kind
	}
	return KindUnknown
}
