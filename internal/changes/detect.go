// Package changes diffs a remote listing against the snapshot.
//
// Detect is pure: it never touches the network or the disk.
package changes

import (
	"sort"
	"time"

	"dropwatch/internal/remote"
	"dropwatch/internal/snapshot"
	"dropwatch/internal/textutil"
)

// Kind classifies a change event.
type Kind string

const (
	// Added marks a file whose ID is absent from the snapshot.
	Added Kind = "added"
	// Modified marks a seen file whose fingerprint changed.
	Modified Kind = "modified"
)

// Event is one detected change.
type Event struct {
	Kind           Kind
	File           remote.FileDescriptor
	NormalizedName string
}

// Entry converts the event into the snapshot record written once the event
// has been delivered.
func (e Event) Entry(notifiedAt time.Time) snapshot.Entry {
	return snapshot.Entry{
		ID:             e.File.ID,
		Name:           e.File.Name,
		NormalizedName: e.NormalizedName,
		Fingerprint:    e.File.Fingerprint,
		Size:           e.File.Size,
		ModTime:        e.File.ModTime,
		NotifiedAt:     notifiedAt,
	}
}

// Detect returns the Added and Modified events for listing relative to snap,
// ordered by normalized name and then ID. When the listing repeats an ID the
// last descriptor wins. A file counts as Modified only when both the stored
// and the listed fingerprint are non-empty and differ.
func Detect(listing []remote.FileDescriptor, snap snapshot.Snapshot) []Event {
	latest := make(map[string]remote.FileDescriptor, len(listing))
	for _, file := range listing {
		if file.ID == "" {
			continue
		}
		latest[file.ID] = file
	}

	events := make([]Event, 0)
	for id, file := range latest {
		event := Event{File: file, NormalizedName: textutil.NormalizeFilename(file.Name)}
		entry, seen := snap.Lookup(id)
		switch {
		case !seen:
			event.Kind = Added
		case entry.Fingerprint != "" && file.Fingerprint != "" && entry.Fingerprint != file.Fingerprint:
			event.Kind = Modified
		default:
			continue
		}
		events = append(events, event)
	}

	sort.Slice(events, func(i, j int) bool {
		if events[i].NormalizedName != events[j].NormalizedName {
			return events[i].NormalizedName < events[j].NormalizedName
		}
		return events[i].File.ID < events[j].File.ID
	})
	return events
}

// Entries converts delivered events into snapshot entries.
func Entries(events []Event, notifiedAt time.Time) []snapshot.Entry {
	out := make([]snapshot.Entry, 0, len(events))
	for _, event := range events {
		out = append(out, event.Entry(notifiedAt))
	}
	return out
}
