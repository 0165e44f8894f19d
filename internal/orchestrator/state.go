package orchestrator

import (
	"time"

	"github.com/byteowlz/kaextract/internal/model"
)

// State is a step of the request lifecycle.
type State int

const (
	Idle State = iota
	Validating
	CacheHit
	Dispatching
	Retrying
	Succeeded
	Failed
)

var stateNames = [...]string{
	Idle:        "idle",
	Validating:  "validating",
	CacheHit:    "cache_hit",
	Dispatching: "dispatching",
	Retrying:    "retrying",
	Succeeded:   "succeeded",
	Failed:      "failed",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// Terminal reports whether s ends an operation.
func (s State) Terminal() bool {
	return s == Succeeded || s == Failed
}

// Event is one state transition of an operation. Result is set on CacheHit
// and terminal states; Attempt and Delay describe the upcoming retry on
// Retrying.
type Event struct {
	ID           string
	Key          string
	State        State
	Result       *model.Result
	ErrorMessage string
	Elapsed      time.Duration
	Attempt      int
	Delay        time.Duration
}

// Listener receives events synchronously, in transition order. OnEvent must
// not call back into the Orchestrator.
type Listener interface {
	OnEvent(Event)
}

type ListenerFunc func(Event)

func (f ListenerFunc) OnEvent(e Event) { f(e) }

// Outcome is what Submit returns for every operation that got past the
// debounce window.
type Outcome struct {
	ID        string
	Key       string
	State     State
	Result    *model.Result
	Err       *Error
	Attempts  int
	FromCache bool
	Elapsed   time.Duration
}
