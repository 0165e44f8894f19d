package model

import (
	"slices"
	"time"
)

// Request is a single user-initiated extraction. Key is either a target
// URL or a short demo keyword.
type Request struct {
	Key           string
	IsDemoKeyword bool
}

// Result is the structured record of one classified ad, or an error
// record synthesized when extraction failed.
type Result struct {
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	Price        string    `json:"price"`
	Location     string    `json:"location"`
	Images       []string  `json:"images"`
	SourceURL    string    `json:"sourceUrl,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
	IsDemo       bool      `json:"isDemo,omitempty"`
	IsError      bool      `json:"isError,omitempty"`
	ErrorMessage string    `json:"errorMessage,omitempty"`
	ErrorKind    string    `json:"errorKind,omitempty"`
}

// Clone returns a copy that shares no slices with r.
func (r Result) Clone() Result {
	r.Images = slices.Clone(r.Images)
	return r
}

// ErrorResult builds the record stored for a failed extraction.
func ErrorResult(kind, msg string, ts time.Time) Result {
	return Result{
		Timestamp:    ts,
		IsError:      true,
		ErrorMessage: msg,
		ErrorKind:    kind,
	}
}
