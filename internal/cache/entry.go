package cache

import (
	"time"

	"github.com/byteowlz/kaextract/internal/model"
)

// Entry wraps a Result under its request key. Timestamp orders expiry and
// eviction.
type Entry struct {
	Key       string       `json:"key"`
	Result    model.Result `json:"result"`
	Timestamp time.Time    `json:"timestamp"`
}

// NewEntry stamps result with ts.
func NewEntry(key string, result model.Result, ts time.Time) Entry {
	return Entry{Key: key, Result: result.Clone(), Timestamp: ts}
}

func (e Entry) age(now time.Time) time.Duration {
	return now.Sub(e.Timestamp)
}

// validAt reports whether the entry may be served at now.
func (e Entry) validAt(now time.Time, expiry time.Duration) bool {
	return e.age(now) < expiry
}

// expiredAt reports whether cleanup should remove the entry.
func (e Entry) expiredAt(now time.Time, expiry time.Duration) bool {
	return e.age(now) > expiry
}

func (e Entry) clone() Entry {
	e.Result = e.Result.Clone()
	return e
}
