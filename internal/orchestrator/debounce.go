package orchestrator

import (
	"context"
	"sync"
	"time"
)

// debouncer lets only the latest of a burst of submissions through.
type debouncer struct {
	mu      sync.Mutex
	gen     uint64
	stop    chan struct{}
	waiting int
}

// wait blocks for delay. It returns ErrDebounced if another call arrived
// in the meantime, or ctx.Err() if ctx ended first.
func (d *debouncer) wait(ctx context.Context, delay time.Duration) error {
	d.mu.Lock()
	d.gen++
	gen := d.gen
	if d.stop != nil {
		close(d.stop)
	}
	stop := make(chan struct{})
	d.stop = stop
	d.waiting++
	d.mu.Unlock()

	defer func() {
		d.mu.Lock()
		d.waiting--
		if d.stop == stop {
			d.stop = nil
		}
		d.mu.Unlock()
	}()

	if delay > 0 {
		t := time.NewTimer(delay)
		defer t.Stop()
		select {
		case <-t.C:
		case <-stop:
			return ErrDebounced
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.gen != gen {
		return ErrDebounced
	}
	return nil
}

func (d *debouncer) pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.waiting
}
