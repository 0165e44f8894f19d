package cache

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/byteowlz/kaextract/internal/model"
)

type fakeClock struct {
	now time.Time
}

func (f *fakeClock) Now() time.Time          { return f.now }
func (f *fakeClock) Advance(d time.Duration) { f.now = f.now.Add(d) }

func newTestCache(t *testing.T, store Storage, maxSize int) (*Cache, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	c := Open(store, Options{
		MaxSize: maxSize,
		Expiry:  10 * time.Minute,
		Now:     clock.Now,
	})
	return c, clock
}

func bike(title string) model.Result {
	return model.Result{Title: title, Images: []string{"a.jpg"}}
}

func TestGet_ValidityWindow(t *testing.T) {
	c, clock := newTestCache(t, NewMemoryStorage(0), 10)

	require.NoError(t, c.Set("k", NewEntry("k", bike("Bike"), clock.Now())))

	e, ok := c.Get("k")
	require.True(t, ok)
	require.Equal(t, "Bike", e.Result.Title)

	clock.Advance(10*time.Minute - time.Nanosecond)
	_, ok = c.Get("k")
	require.True(t, ok, "entry younger than expiry must be served")

	clock.Advance(time.Nanosecond)
	_, ok = c.Get("k")
	require.False(t, ok, "entry at expiry must be treated as absent")

	// still physically present until cleanup runs
	require.Equal(t, 1, c.Len())

	clock.Advance(time.Second)
	require.NoError(t, c.Cleanup())
	require.Equal(t, 0, c.Len())
}

func TestGet_ReturnsCopy(t *testing.T) {
	c, clock := newTestCache(t, NewMemoryStorage(0), 10)
	require.NoError(t, c.Set("k", NewEntry("k", bike("Bike"), clock.Now())))

	e, _ := c.Get("k")
	e.Result.Images[0] = "changed.jpg"

	again, _ := c.Get("k")
	require.Equal(t, "a.jpg", again.Result.Images[0])
}

func TestCleanup_EvictsOldestBeyondMaxSize(t *testing.T) {
	c, clock := newTestCache(t, NewMemoryStorage(0), 3)

	for i := 0; i < 5; i++ {
		key := fmt.Sprintf("k%d", i)
		require.NoError(t, c.Set(key, NewEntry(key, bike(key), clock.Now())))
		clock.Advance(time.Second)
	}
	require.Equal(t, 5, c.Len())

	require.NoError(t, c.Cleanup())
	require.Equal(t, 3, c.Len())

	for _, gone := range []string{"k0", "k1"} {
		_, ok := c.Get(gone)
		require.False(t, ok, gone)
	}
	for _, kept := range []string{"k2", "k3", "k4"} {
		_, ok := c.Get(kept)
		require.True(t, ok, kept)
	}
}

func TestCleanup_TieBreakIsDeterministic(t *testing.T) {
	c, clock := newTestCache(t, NewMemoryStorage(0), 2)
	ts := clock.Now()
	for _, key := range []string{"c", "a", "d", "b"} {
		require.NoError(t, c.Set(key, NewEntry(key, bike(key), ts)))
	}

	require.NoError(t, c.Cleanup())

	var keys []string
	for _, e := range c.Entries() {
		keys = append(keys, e.Key)
	}
	require.ElementsMatch(t, []string{"c", "d"}, keys)
}

func TestCleanup_NeverExceedsMaxSize(t *testing.T) {
	c, clock := newTestCache(t, NewMemoryStorage(0), 4)
	for i := 0; i < 40; i++ {
		key := fmt.Sprintf("k%d", i%9)
		require.NoError(t, c.Set(key, NewEntry(key, bike(key), clock.Now())))
		clock.Advance(time.Duration(i%3) * time.Minute)
		require.NoError(t, c.Cleanup())
		require.LessOrEqual(t, c.Len(), 4)
	}
}

func TestOpen_RestoresAndPurgesStaleEntries(t *testing.T) {
	store := NewMemoryStorage(0)
	c, clock := newTestCache(t, store, 10)

	require.NoError(t, c.Set("old", NewEntry("old", bike("old"), clock.Now().Add(-time.Hour))))
	require.NoError(t, c.Set("fresh", NewEntry("fresh", bike("fresh"), clock.Now())))

	reopened := Open(store, Options{MaxSize: 10, Expiry: 10 * time.Minute, Now: clock.Now})
	require.Equal(t, 1, reopened.Len())
	e, ok := reopened.Get("fresh")
	require.True(t, ok)
	require.Equal(t, "fresh", e.Result.Title)
}

func TestOpen_CorruptStorageStartsEmpty(t *testing.T) {
	store := NewMemoryStorage(0)
	require.NoError(t, store.Save([]byte("{not json")))

	c, _ := newTestCache(t, store, 10)
	require.Equal(t, 0, c.Len())
}

func TestOpen_UnknownSnapshotVersionStartsEmpty(t *testing.T) {
	store := NewMemoryStorage(0)
	require.NoError(t, store.Save([]byte(`{"version":99,"entries":[{"key":"k","entry":{}}]}`)))

	c, _ := newTestCache(t, store, 10)
	require.Equal(t, 0, c.Len())
}

func TestSet_QuotaExceededClearsEverything(t *testing.T) {
	store := NewMemoryStorage(600)
	c, clock := newTestCache(t, store, 100)

	require.NoError(t, c.Set("small", NewEntry("small", bike("s"), clock.Now())))
	data, err := store.Load()
	require.NoError(t, err)
	require.NotNil(t, data)

	huge := model.Result{Description: string(make([]byte, 2048))}
	err = c.Set("huge", NewEntry("huge", huge, clock.Now()))
	require.ErrorIs(t, err, ErrQuotaExceeded)

	require.Equal(t, 0, c.Len())
	data, err = store.Load()
	require.NoError(t, err)
	require.Nil(t, data)
}

func TestMutationsPersist(t *testing.T) {
	store := NewMemoryStorage(0)
	c, clock := newTestCache(t, store, 10)
	base := store.Saves()

	require.NoError(t, c.Set("k", NewEntry("k", bike("k"), clock.Now())))
	require.NoError(t, c.Cleanup())
	require.NoError(t, c.Delete("k"))
	require.Equal(t, base+3, store.Saves())

	snap, err := DecodeSnapshot(mustLoad(t, store))
	require.NoError(t, err)
	require.Empty(t, snap.Entries)
}

func TestFileStorage_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStorage(dir, 0)
	require.NoError(t, err)

	c, clock := newTestCache(t, store, 10)
	require.NoError(t, c.Set("k", NewEntry("k", bike("Bike"), clock.Now())))

	_, err = os.Stat(filepath.Join(dir, StorageKey+".json"))
	require.NoError(t, err)

	reopened := Open(store, Options{MaxSize: 10, Expiry: 10 * time.Minute, Now: clock.Now})
	e, ok := reopened.Get("k")
	require.True(t, ok)
	require.Equal(t, []string{"a.jpg"}, e.Result.Images)

	require.NoError(t, reopened.Clear())
	data, err := store.Load()
	require.NoError(t, err)
	require.Nil(t, data)
}

func TestSQLiteStorage_RoundTrip(t *testing.T) {
	store, err := OpenSQLiteStorage(filepath.Join(t.TempDir(), "cache.db"), 0)
	require.NoError(t, err)
	defer store.Close()

	data, err := store.Load()
	require.NoError(t, err)
	require.Nil(t, data)

	c, clock := newTestCache(t, store, 10)
	require.NoError(t, c.Set("k", NewEntry("k", bike("Bike"), clock.Now())))
	require.NoError(t, c.Set("k", NewEntry("k", bike("Bike 2"), clock.Now())))

	reopened := Open(store, Options{MaxSize: 10, Expiry: 10 * time.Minute, Now: clock.Now})
	e, ok := reopened.Get("k")
	require.True(t, ok)
	require.Equal(t, "Bike 2", e.Result.Title)
}

func TestSQLiteStorage_Quota(t *testing.T) {
	store, err := OpenSQLiteStorage(":memory:", 8)
	require.NoError(t, err)
	defer store.Close()

	require.ErrorIs(t, store.Save([]byte("0123456789")), ErrQuotaExceeded)
	require.NoError(t, store.Save([]byte("0123")))
}

func mustLoad(t *testing.T, s Storage) []byte {
	t.Helper()
	data, err := s.Load()
	require.NoError(t, err)
	return data
}
