package snapshot

import (
	"maps"
	"sort"
	"time"
)

// CurrentVersion is the snapshot document version written by Save.
const CurrentVersion = 1

// Entry records one notified remote file.
type Entry struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	NormalizedName string    `json:"normalized_name"`
	Fingerprint    string    `json:"fingerprint,omitempty"`
	Size           int64     `json:"size"`
	ModTime        time.Time `json:"mod_time,omitzero"`
	NotifiedAt     time.Time `json:"notified_at,omitzero"`
}

// Snapshot is the state as of the most recent committed tick.
type Snapshot struct {
	Version int              `json:"version"`
	LastRun time.Time        `json:"last_run,omitzero"`
	Files   map[string]Entry `json:"files"`
}

// Empty returns a snapshot with no seen files and no last run.
func Empty() Snapshot {
	return Snapshot{Version: CurrentVersion, Files: map[string]Entry{}}
}

// Lookup returns the entry recorded for a remote ID.
func (s Snapshot) Lookup(id string) (Entry, bool) {
	entry, ok := s.Files[id]
	return entry, ok
}

// Len returns the number of seen files.
func (s Snapshot) Len() int {
	return len(s.Files)
}

// Entries returns the seen files ordered by normalized name, then ID.
func (s Snapshot) Entries() []Entry {
	out := make([]Entry, 0, len(s.Files))
	for _, entry := range s.Files {
		out = append(out, entry)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].NormalizedName != out[j].NormalizedName {
			return out[i].NormalizedName < out[j].NormalizedName
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Advance returns a new snapshot with delivered entries recorded and LastRun
// set to now. Existing entries are kept even when the file is no longer
// listed remotely. The receiver is not modified.
func (s Snapshot) Advance(delivered []Entry, now time.Time) Snapshot {
	next := Snapshot{
		Version: CurrentVersion,
		LastRun: now.UTC(),
		Files:   make(map[string]Entry, len(s.Files)+len(delivered)),
	}
	maps.Copy(next.Files, s.Files)
	for _, entry := range delivered {
		if entry.ID == "" {
			continue
		}
		if entry.NotifiedAt.IsZero() {
			entry.NotifiedAt = now.UTC()
		}
		next.Files[entry.ID] = entry
	}
	return next
}
