package mapper

import (
	"testing"
	"time"

	"pgregory.net/rapid"

	"github.com/harrisonrobin/taskbridge/pkg/adapter"
	"github.com/harrisonrobin/taskbridge/pkg/model"
)

func drawTask(rt *rapid.T, statuses []model.Status) model.TaskRecord {
	task := model.TaskRecord{
		Title:    rapid.StringMatching(`[A-Za-z][A-Za-z0-9 ]{0,30}`).Draw(rt, "title"),
		Status:   rapid.SampledFrom(statuses).Draw(rt, "status"),
		Priority: rapid.SampledFrom([]model.Priority{model.PriorityNone, model.PriorityLow, model.PriorityMedium, model.PriorityHigh}).Draw(rt, "priority"),
		Notes:    rapid.StringMatching(`[a-z ]{0,40}`).Draw(rt, "notes"),
		Tags:     rapid.SliceOfN(rapid.StringMatching(`[a-z]{1,8}`), 0, 4).Draw(rt, "tags"),
	}
	if rapid.Bool().Draw(rt, "has_due") {
		due := time.Unix(rapid.Int64Range(1_600_000_000, 1_900_000_000).Draw(rt, "due"), 0).UTC()
		task.Due = &due
	}
	return task.Normalize()
}

// TestPropertyLocalRoundTrip verifies that every field survives a trip
// through the Taskwarrior-side mapping: the local system represents all
// shared fields natively, so the mapping must be lossless.
func TestPropertyLocalRoundTrip(t *testing.T) {
	tbl := DefaultTable()
	rapid.Check(t, func(rt *rapid.T) {
		task := drawTask(rt, []model.Status{model.StatusOpen, model.StatusCompleted, model.StatusDeleted})

		native, err := tbl.FromShared(task, adapter.SystemLocal)
		if err != nil {
			rt.Fatalf("FromShared failed: %v", err)
		}
		native.UpdatedAt = time.Now()

		back, err := tbl.ToShared(native, adapter.SystemLocal)
		if err != nil {
			rt.Fatalf("ToShared failed: %v", err)
		}

		if !task.Equal(back) {
			rt.Fatalf("round trip changed the record:\n  in:  %+v\n  out: %+v", task, back)
		}
	})
}

// TestPropertyWebRoundTrip verifies the overflow encoding: priority, tags
// and exact due times have no Google Tasks column, yet a record written to
// the web side and read back must compare equal.
func TestPropertyWebRoundTrip(t *testing.T) {
	tbl := DefaultTable()
	rapid.Check(t, func(rt *rapid.T) {
		// Web tombstones travel as Deleted flags, not status values.
		task := drawTask(rt, []model.Status{model.StatusOpen, model.StatusCompleted})

		native, err := tbl.FromShared(task, adapter.SystemWeb)
		if err != nil {
			rt.Fatalf("FromShared failed: %v", err)
		}
		native.UpdatedAt = time.Now()

		back, err := tbl.ToShared(native, adapter.SystemWeb)
		if err != nil {
			rt.Fatalf("ToShared failed: %v", err)
		}

		if !task.Equal(back) {
			rt.Fatalf("round trip changed the record:\n  in:  %+v\n  out: %+v", task, back)
		}
	})
}

// TestPropertyFromSharedDeterministic checks that mapping the same record
// twice produces the same native shape.
func TestPropertyFromSharedDeterministic(t *testing.T) {
	tbl := DefaultTable()
	rapid.Check(t, func(rt *rapid.T) {
		task := drawTask(rt, []model.Status{model.StatusOpen, model.StatusCompleted})

		a, err := tbl.FromShared(task, adapter.SystemWeb)
		if err != nil {
			rt.Fatalf("FromShared failed: %v", err)
		}
		b, err := tbl.FromShared(task, adapter.SystemWeb)
		if err != nil {
			rt.Fatalf("FromShared failed: %v", err)
		}
		if len(a.Fields) != len(b.Fields) {
			rt.Fatalf("FromShared not deterministic: %v vs %v", a.Fields, b.Fields)
		}
	})
}
