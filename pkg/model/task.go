package model

import (
	"sort"
	"strings"
	"time"
)

// Status is the source-agnostic task state.
type Status string

const (
	StatusOpen      Status = "open"
	StatusCompleted Status = "completed"
	StatusDeleted   Status = "deleted"
)

// Priority is an ordered priority level. PriorityNone means the task has no
// priority set, which is distinct from the lowest level.
type Priority int

const (
	PriorityNone Priority = iota
	PriorityLow
	PriorityMedium
	PriorityHigh
)

var priorityNames = map[Priority]string{
	PriorityNone:   "",
	PriorityLow:    "low",
	PriorityMedium: "medium",
	PriorityHigh:   "high",
}

func (p Priority) String() string {
	return priorityNames[p]
}

// ParsePriority maps a name back to a Priority. Unknown names come back as
// PriorityNone with ok=false so callers can distinguish "unset" from "bad".
func ParsePriority(s string) (Priority, bool) {
	for p, name := range priorityNames {
		if name == s {
			return p, true
		}
	}
	return PriorityNone, false
}

// TaskRecord is the shared shape both systems are mapped into. Records are
// snapshots: a new one is produced per read and never mutated in place.
type TaskRecord struct {
	Title    string     `json:"title"`
	Status   Status     `json:"status"`
	Priority Priority   `json:"priority"`
	Due      *time.Time `json:"due,omitempty"`
	Tags     []string   `json:"tags,omitempty"`
	Notes    string     `json:"notes,omitempty"`

	// ExternalUpdatedAt is the owning system's modification timestamp. It is
	// metadata, not a synchronizable field: it never enters the fingerprint.
	ExternalUpdatedAt time.Time `json:"externalUpdatedAt"`
}

// Normalize returns a copy with trimmed title, deduplicated sorted tags and
// a UTC due date. All comparisons and fingerprints go through normalized
// records so cosmetic differences never read as edits.
func (t TaskRecord) Normalize() TaskRecord {
	out := t
	out.Title = strings.TrimSpace(t.Title)
	out.Tags = normalizeTags(t.Tags)
	if t.Due != nil {
		due := t.Due.UTC()
		out.Due = &due
	}
	return out
}

// Clone returns a deep copy.
func (t TaskRecord) Clone() TaskRecord {
	out := t
	if t.Due != nil {
		due := *t.Due
		out.Due = &due
	}
	if t.Tags != nil {
		out.Tags = append([]string(nil), t.Tags...)
	}
	return out
}

// Equal reports whether the synchronizable fields of two records match.
// ExternalUpdatedAt is deliberately excluded: clock skew between systems
// must not read as a modification.
func (t TaskRecord) Equal(other TaskRecord) bool {
	a, b := t.Normalize(), other.Normalize()
	if a.Title != b.Title || a.Status != b.Status || a.Priority != b.Priority || a.Notes != b.Notes {
		return false
	}
	if (a.Due == nil) != (b.Due == nil) {
		return false
	}
	if a.Due != nil && !a.Due.Equal(*b.Due) {
		return false
	}
	if len(a.Tags) != len(b.Tags) {
		return false
	}
	for i := range a.Tags {
		if a.Tags[i] != b.Tags[i] {
			return false
		}
	}
	return true
}

func normalizeTags(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		out = append(out, tag)
	}
	if len(out) == 0 {
		return nil
	}
	sort.Strings(out)
	return out
}
