package orchestrator

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"net"
	"net/http"
	"time"

	"github.com/byteowlz/kaextract/internal/extractor"
)

// DefaultMaxBackoff caps a single retry delay.
const DefaultMaxBackoff = 15 * time.Second

var retryableStatus = map[int]bool{
	http.StatusTooManyRequests:     true,
	http.StatusInternalServerError: true,
	http.StatusBadGateway:          true,
	http.StatusServiceUnavailable:  true,
	http.StatusGatewayTimeout:      true,
}

// Backoff is the delay before retry n (1-indexed):
// min(base * 2^(n-1) * (1+jitter), ceiling). A ceiling <= 0 disables the cap.
func Backoff(base time.Duration, n int, jitter float64, ceiling time.Duration) time.Duration {
	if n < 1 {
		n = 1
	}
	d := float64(base) * math.Pow(2, float64(n-1)) * (1 + jitter)
	if d < 0 {
		return 0
	}
	if ceiling > 0 && d > float64(ceiling) {
		return ceiling
	}
	return time.Duration(d)
}

// Jitter draws uniformly from [-0.2, 0.2).
func Jitter() float64 {
	return rand.Float64()*0.4 - 0.2
}

// Retryable reports whether an attempt error is worth another attempt:
// timeouts, network failures and 429/5xx answers. The caller must check
// that the operation itself is still alive first.
func Retryable(err error) bool {
	if err == nil {
		return false
	}

	var se *extractor.StatusError
	if errors.As(err, &se) {
		return retryableStatus[se.Code]
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}

	var ne *extractor.NetworkError
	if errors.As(err, &ne) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

func classify(err error) Kind {
	if Retryable(err) {
		return Transient
	}
	return Permanent
}

func statusOf(err error) int {
	var se *extractor.StatusError
	if errors.As(err, &se) {
		return se.Code
	}
	return 0
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
