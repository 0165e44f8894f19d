// Package orchestrator drives one extract operation from user input to a
// rendered result: debounce, validation gates, cache lookup, dispatch with
// retries and a watchdog, and cache write-back.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/byteowlz/kaextract/internal/cache"
	"github.com/byteowlz/kaextract/internal/extractor"
	"github.com/byteowlz/kaextract/internal/logx"
	"github.com/byteowlz/kaextract/internal/model"
	"github.com/byteowlz/kaextract/internal/target"
)

// ResultCache is the part of *cache.Cache the orchestrator needs.
type ResultCache interface {
	Get(key string) (cache.Entry, bool)
	Set(key string, e cache.Entry) error
	Cleanup() error
}

type Options struct {
	Debounce       time.Duration
	FetchTimeout   time.Duration
	OverallTimeout time.Duration
	// MaxRetries is the total number of attempts per operation.
	MaxRetries int
	RetryDelay time.Duration
	MaxBackoff time.Duration
	DemoDelay  time.Duration

	Connectivity Connectivity
	Listener     Listener
	Logger       *slog.Logger

	Now    func() time.Time
	Sleep  func(ctx context.Context, d time.Duration) error
	Jitter func() float64
}

func DefaultOptions() Options {
	return Options{
		Debounce:       300 * time.Millisecond,
		FetchTimeout:   10 * time.Second,
		OverallTimeout: 30 * time.Second,
		MaxRetries:     3,
		RetryDelay:     time.Second,
		MaxBackoff:     DefaultMaxBackoff,
		DemoDelay:      time.Second,
	}
}

func (o *Options) setDefaults() {
	d := DefaultOptions()
	if o.FetchTimeout <= 0 {
		o.FetchTimeout = d.FetchTimeout
	}
	if o.OverallTimeout <= 0 {
		o.OverallTimeout = d.OverallTimeout
	}
	if o.MaxRetries < 1 {
		o.MaxRetries = d.MaxRetries
	}
	if o.MaxBackoff <= 0 {
		o.MaxBackoff = d.MaxBackoff
	}
	if o.Connectivity == nil {
		o.Connectivity = AlwaysOnline
	}
	if o.Logger == nil {
		o.Logger = logx.FromContext(context.Background())
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.Sleep == nil {
		o.Sleep = sleepContext
	}
	if o.Jitter == nil {
		o.Jitter = Jitter
	}
}

// Orchestrator runs at most one dispatched operation at a time. Submit may
// be called from several goroutines; extra calls are rejected as Busy.
type Orchestrator struct {
	backend extractor.Backend
	cache   ResultCache
	opts    Options
	log     *slog.Logger
	deb     debouncer

	mu         sync.Mutex
	state      State
	processing bool
	active     string
	lastKey    string

	// emitMu serializes listener calls and guards operation.finished.
	emitMu sync.Mutex
}

type operation struct {
	id       string
	key      string
	demo     bool
	start    time.Time
	attempts atomic.Int32
	finished bool
}

func New(backend extractor.Backend, c ResultCache, opts Options) *Orchestrator {
	opts.setDefaults()
	return &Orchestrator{
		backend: backend,
		cache:   c,
		opts:    opts,
		log:     opts.Logger.With("component", "orchestrator"),
	}
}

func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Processing reports whether an operation is dispatched right now.
func (o *Orchestrator) Processing() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.processing
}

// LastKey is the key of the last successful operation.
func (o *Orchestrator) LastKey() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.lastKey
}

// Submit runs one operation for raw. A call that was superseded during the
// debounce window returns (nil, ErrDebounced) without emitting events. All
// other failures return the Outcome together with its *Error.
func (o *Orchestrator) Submit(ctx context.Context, raw string) (*Outcome, error) {
	if err := o.deb.wait(ctx, o.opts.Debounce); err != nil {
		if errors.Is(err, ErrDebounced) {
			return nil, err
		}
		return nil, &Error{Kind: Canceled, Key: strings.TrimSpace(raw), Err: err}
	}

	key := strings.TrimSpace(raw)
	op := &operation{id: uuid.NewString(), key: key, start: o.opts.Now()}
	o.transition(op, Validating, Event{})

	if key == "" {
		return o.fail(op, &Error{Kind: InvalidInput, Key: key})
	}

	req := Classify(key)
	op.demo = req.IsDemoKeyword

	if !op.demo && !o.opts.Connectivity.Online(ctx) {
		return o.fail(op, &Error{Kind: Offline, Key: key})
	}

	o.mu.Lock()
	if o.processing {
		o.mu.Unlock()
		return o.fail(op, &Error{Kind: Busy, Key: key})
	}
	if !op.demo {
		if _, err := target.Validate(key); err != nil {
			o.mu.Unlock()
			return o.fail(op, &Error{Kind: InvalidInput, Key: key, Err: err})
		}
	}
	if entry, ok := o.cache.Get(key); ok {
		if !entry.Result.IsError {
			o.lastKey = key
		}
		o.mu.Unlock()
		return o.fromCache(op, entry)
	}
	if !op.demo && key == o.lastKey {
		o.mu.Unlock()
		return o.fail(op, &Error{Kind: DuplicateSubmission, Key: key})
	}
	o.processing = true
	o.active = op.id
	o.mu.Unlock()
	defer o.release(op)

	return o.dispatch(ctx, op)
}

func (o *Orchestrator) release(op *operation) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.active == op.id {
		o.processing = false
		o.active = ""
		o.state = Idle
	}
}

func (o *Orchestrator) fromCache(op *operation, entry cache.Entry) (*Outcome, error) {
	res := entry.Result
	o.transition(op, CacheHit, Event{Result: &res})

	if res.IsError {
		kind, ok := ParseKind(res.ErrorKind)
		if !ok {
			kind = Permanent
		}
		err := &Error{Kind: kind, Key: op.key, Err: errors.New(res.ErrorMessage), msg: res.ErrorMessage}
		out := o.outcome(op, Failed, &res, err)
		out.FromCache = true
		o.transition(op, Failed, Event{Result: &res, ErrorMessage: err.Message()})
		return out, err
	}

	out := o.outcome(op, Succeeded, &res, nil)
	out.FromCache = true
	o.transition(op, Succeeded, Event{Result: &res})
	return out, nil
}

type attemptResult struct {
	res *model.Result
	err error
}

func (o *Orchestrator) dispatch(ctx context.Context, op *operation) (*Outcome, error) {
	o.transition(op, Dispatching, Event{})

	if op.demo {
		if err := o.opts.Sleep(ctx, o.opts.DemoDelay); err != nil {
			return o.fail(op, &Error{Kind: Canceled, Key: op.key, Err: err})
		}
		res := DemoResult(op.key)
		return o.succeed(op, &res)
	}

	opCtx, cancel := context.WithTimeout(ctx, o.opts.OverallTimeout)
	defer cancel()

	done := make(chan attemptResult, 1)
	go func() {
		res, err := o.retryLoop(opCtx, op)
		done <- attemptResult{res: res, err: err}
	}()

	select {
	case r := <-done:
		if r.err == nil {
			return o.succeed(op, r.res)
		}
		if opCtx.Err() == nil {
			var oe *Error
			if errors.As(r.err, &oe) {
				return o.dispatchFailed(op, oe)
			}
			return o.dispatchFailed(op, &Error{Kind: Permanent, Key: op.key, Err: r.err})
		}
	case <-opCtx.Done():
	}

	// Late attempt results are dropped with done.
	if ctx.Err() != nil {
		return o.fail(op, &Error{Kind: Canceled, Key: op.key, Err: ctx.Err()})
	}
	return o.dispatchFailed(op, &Error{
		Kind: OverallTimeout,
		Key:  op.key,
		Err:  fmt.Errorf("no result within %s", o.opts.OverallTimeout),
	})
}

func (o *Orchestrator) retryLoop(ctx context.Context, op *operation) (*model.Result, error) {
	for attempt := 1; ; attempt++ {
		op.attempts.Store(int32(attempt))

		res, err := o.attempt(ctx, op.key)
		if err == nil {
			return res, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		if classify(err) == Permanent {
			return nil, &Error{Kind: Permanent, Key: op.key, Status: statusOf(err), Err: err}
		}
		if attempt >= o.opts.MaxRetries {
			return nil, &Error{Kind: RetriesExhausted, Key: op.key, Status: statusOf(err), Err: fmt.Errorf("max retries reached: %w", err)}
		}

		delay := Backoff(o.opts.RetryDelay, attempt, o.opts.Jitter(), o.opts.MaxBackoff)
		o.log.Info("retrying extraction",
			"op", op.id,
			"key", op.key,
			"attempt", attempt,
			"delay_ms", delay.Milliseconds(),
			"error", err)
		o.transition(op, Retrying, Event{
			Attempt:      attempt + 1,
			Delay:        delay,
			ErrorMessage: err.Error(),
		})

		if err := o.opts.Sleep(ctx, delay); err != nil {
			return nil, err
		}
	}
}

// attempt runs one backend call bounded by FetchTimeout. A backend that
// ignores its context is abandoned.
func (o *Orchestrator) attempt(ctx context.Context, key string) (*model.Result, error) {
	actx, cancel := context.WithTimeout(ctx, o.opts.FetchTimeout)
	defer cancel()

	ch := make(chan attemptResult, 1)
	go func() {
		res, err := o.backend.Extract(actx, key)
		ch <- attemptResult{res: res, err: err}
	}()

	select {
	case r := <-ch:
		if r.err == nil && r.res == nil {
			return nil, fmt.Errorf("%s: empty result", o.backend.Name())
		}
		return r.res, r.err
	case <-actx.Done():
		return nil, fmt.Errorf("attempt: %w", actx.Err())
	}
}

func (o *Orchestrator) succeed(op *operation, res *model.Result) (*Outcome, error) {
	r := res.Clone()
	r.Timestamp = o.opts.Now()
	if r.Images == nil {
		r.Images = []string{}
	}

	if err := o.cache.Set(op.key, cache.NewEntry(op.key, r, r.Timestamp)); err != nil {
		o.log.Warn("caching result failed", "op", op.id, "key", op.key, "error", err)
	}
	if err := o.cache.Cleanup(); err != nil {
		o.log.Warn("cache cleanup failed", "op", op.id, "error", err)
	}

	o.mu.Lock()
	o.lastKey = op.key
	o.mu.Unlock()

	out := o.outcome(op, Succeeded, &r, nil)
	o.transition(op, Succeeded, Event{Result: &r})
	return out, nil
}

// dispatchFailed fails an operation that reached the network and keeps the
// error record for non-demo keys.
func (o *Orchestrator) dispatchFailed(op *operation, e *Error) (*Outcome, error) {
	if !op.demo && e.Kind.cacheable() {
		rec := model.ErrorResult(e.Kind.String(), e.Message(), o.opts.Now())
		rec.SourceURL = op.key
		if err := o.cache.Set(op.key, cache.NewEntry(op.key, rec, rec.Timestamp)); err != nil {
			o.log.Warn("caching error record failed", "op", op.id, "key", op.key, "error", err)
		}
	}
	return o.fail(op, e)
}

func (o *Orchestrator) fail(op *operation, e *Error) (*Outcome, error) {
	res := model.ErrorResult(e.Kind.String(), e.Message(), o.opts.Now())
	out := o.outcome(op, Failed, &res, e)

	o.log.Warn("extraction failed",
		"op", op.id,
		"key", op.key,
		"kind", e.Kind.String(),
		"attempts", out.Attempts,
		"error", e)
	o.transition(op, Failed, Event{Result: &res, ErrorMessage: e.Message()})
	return out, e
}

func (o *Orchestrator) outcome(op *operation, s State, res *model.Result, e *Error) *Outcome {
	return &Outcome{
		ID:       op.id,
		Key:      op.key,
		State:    s,
		Result:   res,
		Err:      e,
		Attempts: int(op.attempts.Load()),
		Elapsed:  o.opts.Now().Sub(op.start),
	}
}

// transition records s for op and notifies the listener. Nothing is
// emitted for an operation after its terminal state.
func (o *Orchestrator) transition(op *operation, s State, ev Event) {
	o.emitMu.Lock()
	defer o.emitMu.Unlock()

	if op.finished {
		return
	}
	if s.Terminal() {
		op.finished = true
	}

	o.setState(op, s)

	ev.ID = op.id
	ev.Key = op.key
	ev.State = s
	ev.Elapsed = o.opts.Now().Sub(op.start)

	o.log.Debug("state transition", "op", op.id, "key", op.key, "state", s.String())
	if o.opts.Listener != nil {
		o.opts.Listener.OnEvent(ev)
	}

	if s.Terminal() {
		o.setState(op, Idle)
	}
}

// setState only tracks the dispatched operation, or any operation while
// none is dispatched.
func (o *Orchestrator) setState(op *operation, s State) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.active == "" || o.active == op.id {
		o.state = s
	}
}
