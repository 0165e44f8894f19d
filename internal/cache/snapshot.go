package cache

import (
	"encoding/json"
	"fmt"
	"time"
)

// SnapshotVersion is the schema version written by this build.
const SnapshotVersion = 1

// Snapshot is the durable form of the cache: an ordered list of
// key/entry pairs.
type Snapshot struct {
	Version int             `json:"version"`
	SavedAt time.Time       `json:"savedAt"`
	Entries []SnapshotEntry `json:"entries"`
}

type SnapshotEntry struct {
	Key   string `json:"key"`
	Entry Entry  `json:"entry"`
}

// EncodeSnapshot serializes entries in the given order.
func EncodeSnapshot(entries []Entry, savedAt time.Time) ([]byte, error) {
	snap := Snapshot{
		Version: SnapshotVersion,
		SavedAt: savedAt,
		Entries: make([]SnapshotEntry, 0, len(entries)),
	}
	for _, e := range entries {
		snap.Entries = append(snap.Entries, SnapshotEntry{Key: e.Key, Entry: e})
	}

	data, err := json.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("failed to encode cache snapshot: %w", err)
	}
	return data, nil
}

// DecodeSnapshot parses data written by EncodeSnapshot. Empty input is an
// empty snapshot. A snapshot from a newer or unknown schema decodes to an
// empty snapshot without error so an old binary never fails on new data.
func DecodeSnapshot(data []byte) (Snapshot, error) {
	if len(data) == 0 {
		return Snapshot{Version: SnapshotVersion}, nil
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return Snapshot{Version: SnapshotVersion}, fmt.Errorf("failed to decode cache snapshot: %w", err)
	}
	if snap.Version != SnapshotVersion {
		return Snapshot{Version: SnapshotVersion}, nil
	}

	valid := snap.Entries[:0]
	for _, se := range snap.Entries {
		if se.Key == "" {
			continue
		}
		se.Entry.Key = se.Key
		valid = append(valid, se)
	}
	snap.Entries = valid
	return snap, nil
}
