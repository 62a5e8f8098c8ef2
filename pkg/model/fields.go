package model

import (
	"strings"
	"time"
)

// SharedFields lists the synchronizable fields in fingerprint order.
var SharedFields = []string{"title", "status", "priority", "due", "tags", "notes"}

// FieldString renders one shared field as its canonical string, used for
// field-level comparison during merges and for conflict reports. Equal
// canonical strings mean equal field values.
func (t TaskRecord) FieldString(field string) string {
	n := t.Normalize()
	switch field {
	case "title":
		return n.Title
	case "status":
		return string(n.Status)
	case "priority":
		return n.Priority.String()
	case "due":
		if n.Due == nil {
			return ""
		}
		return n.Due.UTC().Format(time.RFC3339)
	case "tags":
		return strings.Join(n.Tags, ",")
	case "notes":
		return n.Notes
	}
	return ""
}

// CopyField copies one shared field from src into t.
func (t *TaskRecord) CopyField(src TaskRecord, field string) {
	switch field {
	case "title":
		t.Title = src.Title
	case "status":
		t.Status = src.Status
	case "priority":
		t.Priority = src.Priority
	case "due":
		if src.Due == nil {
			t.Due = nil
		} else {
			due := *src.Due
			t.Due = &due
		}
	case "tags":
		t.Tags = append([]string(nil), src.Tags...)
	case "notes":
		t.Notes = src.Notes
	}
}
