package gtasks

import (
	"errors"
	"testing"
	"time"

	"google.golang.org/api/googleapi"
	tasks "google.golang.org/api/tasks/v1"

	"github.com/harrisonrobin/taskbridge/pkg/adapter"
	"github.com/harrisonrobin/taskbridge/pkg/mapper"
)

func TestToRecordParsesTrailerAndDue(t *testing.T) {
	task := &tasks.Task{
		Id:      "gt1",
		Title:   "Write report",
		Status:  "needsAction",
		Due:     "2026-03-05T00:00:00Z",
		Updated: "2026-03-06T09:00:00Z",
		Notes:   "context here\n\n" + trailerMarker + "\npriority: high\ntags: work",
	}

	rec, err := toRecord(task)
	if err != nil {
		t.Fatalf("toRecord failed: %v", err)
	}
	if rec.ID != "gt1" {
		t.Errorf("Expected ID gt1, got %s", rec.ID)
	}
	if rec.Fields["notes"] != "context here" {
		t.Errorf("Expected trailer stripped from notes, got %v", rec.Fields["notes"])
	}
	overflow, ok := rec.Fields[mapper.OverflowField].(map[string]string)
	if !ok || overflow["priority"] != "high" || overflow["tags"] != "work" {
		t.Errorf("Expected overflow parsed, got %v", rec.Fields[mapper.OverflowField])
	}
	due, ok := rec.Fields["due"].(time.Time)
	if !ok || !due.Equal(time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("Expected due parsed, got %v", rec.Fields["due"])
	}
	if !rec.UpdatedAt.Equal(time.Date(2026, 3, 6, 9, 0, 0, 0, time.UTC)) {
		t.Errorf("Expected UpdatedAt parsed, got %v", rec.UpdatedAt)
	}
}

func TestToRecordRejectsBadDue(t *testing.T) {
	_, err := toRecord(&tasks.Task{Id: "gt1", Due: "someday"})
	if err == nil {
		t.Fatal("Expected error for unparseable due")
	}
	if !adapter.IsPermanent(err) {
		t.Errorf("Expected permanent error, got %v", err)
	}
}

func TestFromRecordEncodesTrailer(t *testing.T) {
	rec := adapter.Record{Fields: map[string]any{
		"title":  "Write report",
		"status": "needsAction",
		"notes":  "context here",
		"due":    time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC),
		mapper.OverflowField: map[string]string{
			"priority": "high",
		},
	}}

	task := fromRecord(rec)
	if task.Title != "Write report" {
		t.Errorf("Expected title, got %s", task.Title)
	}
	if task.Due != "2026-03-05T00:00:00Z" {
		t.Errorf("Expected RFC3339 due, got %s", task.Due)
	}
	wantNotes := "context here\n\n" + trailerMarker + "\npriority: high"
	if task.Notes != wantNotes {
		t.Errorf("Expected %q, got %q", wantNotes, task.Notes)
	}

	back, err := toRecord(task)
	if err != nil {
		t.Fatalf("toRecord failed: %v", err)
	}
	if back.Fields["notes"] != "context here" {
		t.Errorf("Round trip lost notes: %v", back.Fields["notes"])
	}
}

func TestFromRecordDefaultsStatus(t *testing.T) {
	task := fromRecord(adapter.Record{Fields: map[string]any{"title": "bare"}})
	if task.Status != "needsAction" {
		t.Errorf("Expected needsAction default, got %s", task.Status)
	}
	found := false
	for _, f := range task.ForceSendFields {
		if f == "Status" {
			found = true
		}
	}
	if !found {
		t.Error("Status must be force-sent on full updates")
	}
}

func TestFromRecordSendsClearedFields(t *testing.T) {
	contains := func(list []string, want string) bool {
		for _, f := range list {
			if f == want {
				return true
			}
		}
		return false
	}

	// No notes and no due: both must still travel so an update wipes them.
	task := fromRecord(adapter.Record{Fields: map[string]any{
		"title":  "trimmed down",
		"status": "needsAction",
	}})
	if !contains(task.ForceSendFields, "Notes") {
		t.Error("Empty notes must be force-sent or a stale trailer survives")
	}
	if !contains(task.NullFields, "Due") {
		t.Error("A removed due date must be sent as null")
	}

	// Populated fields travel as values, not as clears.
	task = fromRecord(adapter.Record{Fields: map[string]any{
		"title":  "kept",
		"status": "needsAction",
		"notes":  "still here",
		"due":    time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC),
	}})
	if contains(task.ForceSendFields, "Notes") {
		t.Error("Non-empty notes must not be marked as cleared")
	}
	if contains(task.NullFields, "Due") {
		t.Error("A present due date must not be nulled")
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		transient bool
	}{
		{"rate limited", &googleapi.Error{Code: 429}, true},
		{"timeout", &googleapi.Error{Code: 408}, true},
		{"server error", &googleapi.Error{Code: 503}, true},
		{"bad request", &googleapi.Error{Code: 400}, false},
		{"forbidden", &googleapi.Error{Code: 403}, false},
		{"network", errors.New("connection reset"), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classify("op", tt.err)
			if adapter.IsTransient(got) != tt.transient {
				t.Errorf("Expected transient=%v for %v, got %v", tt.transient, tt.err, got)
			}
		})
	}
}

func TestIsNotFound(t *testing.T) {
	if !isNotFound(&googleapi.Error{Code: 404}) {
		t.Error("Expected 404 to read as not found")
	}
	if isNotFound(&googleapi.Error{Code: 500}) {
		t.Error("500 is not not-found")
	}
	if isNotFound(errors.New("nope")) {
		t.Error("plain error is not not-found")
	}
}
