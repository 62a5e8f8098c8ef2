package model

import (
	"testing"
	"time"
)

func TestNormalizeTags(t *testing.T) {
	rec := TaskRecord{
		Title: "  Buy milk ",
		Tags:  []string{"food", "buy", "food", " ", "buy"},
	}

	n := rec.Normalize()
	if n.Title != "Buy milk" {
		t.Errorf("Expected trimmed title 'Buy milk', got %q", n.Title)
	}
	if len(n.Tags) != 2 {
		t.Fatalf("Expected 2 tags after dedup, got %d: %v", len(n.Tags), n.Tags)
	}
	if n.Tags[0] != "buy" || n.Tags[1] != "food" {
		t.Errorf("Expected sorted tags [buy food], got %v", n.Tags)
	}
}

func TestEqualIgnoresTagOrderAndTimestamp(t *testing.T) {
	due := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	a := TaskRecord{
		Title:             "Write report",
		Status:            StatusOpen,
		Priority:          PriorityHigh,
		Due:               &due,
		Tags:              []string{"work", "urgent"},
		ExternalUpdatedAt: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	}
	b := a.Clone()
	b.Tags = []string{"urgent", "work"}
	b.ExternalUpdatedAt = b.ExternalUpdatedAt.Add(time.Hour)

	if !a.Equal(b) {
		t.Error("Expected records to be equal regardless of tag order and timestamps")
	}

	b.Title = "Write the report"
	if a.Equal(b) {
		t.Error("Expected records with different titles to differ")
	}
}

func TestEqualDueNilVsSet(t *testing.T) {
	due := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	a := TaskRecord{Title: "x", Status: StatusOpen}
	b := TaskRecord{Title: "x", Status: StatusOpen, Due: &due}

	if a.Equal(b) {
		t.Error("Expected nil due and set due to differ")
	}
}

func TestCloneIsDeep(t *testing.T) {
	due := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	a := TaskRecord{Title: "x", Due: &due, Tags: []string{"one"}}

	b := a.Clone()
	*b.Due = b.Due.Add(time.Hour)
	b.Tags[0] = "two"

	if !a.Due.Equal(due) {
		t.Error("Clone shared the due pointer")
	}
	if a.Tags[0] != "one" {
		t.Error("Clone shared the tags slice")
	}
}

func TestParsePriority(t *testing.T) {
	p, ok := ParsePriority("medium")
	if !ok || p != PriorityMedium {
		t.Errorf("Expected medium, got %v ok=%v", p, ok)
	}
	if _, ok := ParsePriority("urgent"); ok {
		t.Error("Expected unknown priority name to fail")
	}
	p, ok = ParsePriority("")
	if !ok || p != PriorityNone {
		t.Errorf("Expected empty name to parse as none, got %v ok=%v", p, ok)
	}
}
