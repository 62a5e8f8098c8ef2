package gtasks

import (
	"fmt"
	"sort"
	"strings"
)

// Google Tasks has no columns for priority, tags, or a due time of day.
// Those values ride in a trailer block at the end of the notes field, in a
// stable key: value format, and are stripped back out before the notes are
// surfaced as a synchronizable field.
const trailerMarker = "--- taskbridge ---"

// formatNotes appends the overflow trailer to the user-visible notes.
// Keys are emitted sorted so the same overflow always renders identically.
func formatNotes(notes string, overflow map[string]string) string {
	if len(overflow) == 0 {
		return notes
	}

	keys := make([]string, 0, len(overflow))
	for k := range overflow {
		if overflow[k] != "" {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		return notes
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(notes)
	if notes != "" {
		b.WriteString("\n\n")
	}
	b.WriteString(trailerMarker)
	for _, k := range keys {
		fmt.Fprintf(&b, "\n%s: %s", k, overflow[k])
	}
	return b.String()
}

// parseNotes splits a notes field into the user-visible text and the
// overflow trailer. Notes without a trailer come back unchanged with a nil
// map; malformed trailer lines are ignored rather than guessed at.
func parseNotes(raw string) (notes string, overflow map[string]string) {
	idx := strings.LastIndex(raw, trailerMarker)
	if idx < 0 {
		return raw, nil
	}

	notes = strings.TrimRight(raw[:idx], "\n")
	overflow = make(map[string]string)
	for _, line := range strings.Split(raw[idx+len(trailerMarker):], "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		key, value, ok := strings.Cut(line, ": ")
		if !ok {
			continue
		}
		overflow[key] = value
	}
	if len(overflow) == 0 {
		overflow = nil
	}
	return notes, overflow
}
