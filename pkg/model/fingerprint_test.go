package model

import (
	"testing"
	"time"
)

func TestFingerprintStable(t *testing.T) {
	due := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	rec := TaskRecord{
		Title:    "Write report",
		Status:   StatusOpen,
		Priority: PriorityHigh,
		Due:      &due,
		Tags:     []string{"urgent", "work"},
		Notes:    "quarterly",
	}

	if rec.Fingerprint() != rec.Fingerprint() {
		t.Fatal("Fingerprint is not deterministic")
	}

	reordered := rec.Clone()
	reordered.Tags = []string{"work", "urgent"}
	reordered.ExternalUpdatedAt = time.Now()
	if rec.Fingerprint() != reordered.Fingerprint() {
		t.Error("Fingerprint changed for tag reorder or timestamp metadata")
	}

	local := rec.Clone()
	inParis := due.In(time.FixedZone("CET", 3600))
	local.Due = &inParis
	if rec.Fingerprint() != local.Fingerprint() {
		t.Error("Fingerprint changed for timezone representation of the same instant")
	}
}

func TestFingerprintChangesWithContent(t *testing.T) {
	base := TaskRecord{Title: "a", Status: StatusOpen}

	changed := base.Clone()
	changed.Priority = PriorityLow
	if base.Fingerprint() == changed.Fingerprint() {
		t.Error("Priority change did not change fingerprint")
	}

	changed = base.Clone()
	changed.Status = StatusCompleted
	if base.Fingerprint() == changed.Fingerprint() {
		t.Error("Status change did not change fingerprint")
	}
}

func TestFingerprintFieldBoundaries(t *testing.T) {
	// Adjacent fields must not alias when content shifts across the
	// boundary between them.
	a := TaskRecord{Title: "ab", Notes: "c"}
	b := TaskRecord{Title: "a", Notes: "bc"}
	if a.Fingerprint() == b.Fingerprint() {
		t.Error("Field boundary aliasing between title and notes")
	}
}
