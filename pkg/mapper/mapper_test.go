package mapper

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harrisonrobin/taskbridge/pkg/adapter"
	"github.com/harrisonrobin/taskbridge/pkg/model"
)

func TestDefaultTableValidates(t *testing.T) {
	require.NoError(t, DefaultTable().Validate())
}

func TestValidateRejectsGaps(t *testing.T) {
	tests := []struct {
		name  string
		table *Table
	}{
		{
			name:  "missing rule",
			table: &Table{Rules: DefaultTable().Rules[:5]},
		},
		{
			name: "duplicate rule",
			table: func() *Table {
				tbl := DefaultTable()
				tbl.Rules = append(tbl.Rules, tbl.Rules[0])
				return tbl
			}(),
		},
		{
			name: "no path and no degradation",
			table: func() *Table {
				tbl := DefaultTable()
				tbl.Rules[2].Local = Binding{}
				return tbl
			}(),
		},
		{
			name: "unknown transform",
			table: func() *Table {
				tbl := DefaultTable()
				tbl.Rules[0].Web.Transform = "base64"
				return tbl
			}(),
		},
		{
			name: "path without transform",
			table: func() *Table {
				tbl := DefaultTable()
				tbl.Rules[0].Web.Transform = ""
				return tbl
			}(),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, tt.table.Validate())
		})
	}
}

func TestValidateReportsUnmappable(t *testing.T) {
	tbl := DefaultTable()
	tbl.Rules[2].Local = Binding{}
	err := tbl.Validate()
	require.Error(t, err)
	assert.True(t, IsUnmappable(err))
}

func TestToSharedFromWeb(t *testing.T) {
	tbl := DefaultTable()
	updated := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	rec := adapter.Record{
		ID: "gt1",
		Fields: map[string]any{
			"title":  "Write report",
			"status": "needsAction",
			"notes":  "quarterly numbers",
			"due":    time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC),
			OverflowField: map[string]string{
				"priority": "high",
				"tags":     "urgent,work",
				"due":      "2026-03-05T17:30:00Z",
			},
		},
		UpdatedAt: updated,
	}

	got, err := tbl.ToShared(rec, adapter.SystemWeb)
	require.NoError(t, err)

	assert.Equal(t, "Write report", got.Title)
	assert.Equal(t, model.StatusOpen, got.Status)
	assert.Equal(t, model.PriorityHigh, got.Priority)
	assert.Equal(t, []string{"urgent", "work"}, got.Tags)
	assert.Equal(t, "quarterly numbers", got.Notes)
	assert.Equal(t, updated, got.ExternalUpdatedAt)

	// The exact overflow timestamp beats the date-clamped native value.
	require.NotNil(t, got.Due)
	assert.Equal(t, time.Date(2026, 3, 5, 17, 30, 0, 0, time.UTC), got.Due.UTC())
}

func TestToSharedDefaultsAndTombstones(t *testing.T) {
	tbl := DefaultTable()

	got, err := tbl.ToShared(adapter.Record{Fields: map[string]any{"title": "x"}}, adapter.SystemWeb)
	require.NoError(t, err)
	assert.Equal(t, model.StatusOpen, got.Status)

	got, err = tbl.ToShared(adapter.Record{Deleted: true, Fields: map[string]any{}}, adapter.SystemWeb)
	require.NoError(t, err)
	assert.Equal(t, model.StatusDeleted, got.Status)
}

func TestToSharedStatusAliases(t *testing.T) {
	tbl := DefaultTable()

	got, err := tbl.ToShared(adapter.Record{Fields: map[string]any{"status": "waiting"}}, adapter.SystemLocal)
	require.NoError(t, err)
	assert.Equal(t, model.StatusOpen, got.Status)

	_, err = tbl.ToShared(adapter.Record{Fields: map[string]any{"status": "archived"}}, adapter.SystemLocal)
	assert.Error(t, err, "unknown native status must not map silently")
}

func TestFromSharedToWebDegrades(t *testing.T) {
	tbl := DefaultTable()
	due := time.Date(2026, 3, 5, 17, 30, 0, 0, time.UTC)
	task := model.TaskRecord{
		Title:    "Write report",
		Status:   model.StatusOpen,
		Priority: model.PriorityHigh,
		Due:      &due,
		Tags:     []string{"urgent", "work"},
		Notes:    "quarterly numbers",
	}

	rec, err := tbl.FromShared(task, adapter.SystemWeb)
	require.NoError(t, err)

	assert.Equal(t, "Write report", rec.Fields["title"])
	assert.Equal(t, "needsAction", rec.Fields["status"])

	// Native due is clamped to the day; the exact instant and the fields
	// Google Tasks cannot hold all land in the overflow.
	assert.Equal(t, time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC), rec.Fields["due"])
	overflow, ok := rec.Fields[OverflowField].(map[string]string)
	require.True(t, ok)
	assert.Equal(t, "high", overflow["priority"])
	assert.Equal(t, "urgent,work", overflow["tags"])
	assert.Equal(t, "2026-03-05T17:30:00Z", overflow["due"])

	_, hasPriority := rec.Fields["priority"]
	assert.False(t, hasPriority)
}

func TestFromSharedToLocalNative(t *testing.T) {
	tbl := DefaultTable()
	due := time.Date(2026, 3, 5, 17, 30, 0, 0, time.UTC)
	task := model.TaskRecord{
		Title:    "Write report",
		Status:   model.StatusCompleted,
		Priority: model.PriorityMedium,
		Due:      &due,
		Tags:     []string{"work"},
	}

	rec, err := tbl.FromShared(task, adapter.SystemLocal)
	require.NoError(t, err)

	assert.Equal(t, "Write report", rec.Fields["description"])
	assert.Equal(t, "completed", rec.Fields["status"])
	assert.Equal(t, "M", rec.Fields["priority"])
	assert.Equal(t, due, rec.Fields["due"])
	assert.Equal(t, []string{"work"}, rec.Fields["tags"])

	_, hasOverflow := rec.Fields[OverflowField]
	assert.False(t, hasOverflow, "local side represents everything natively")
}

func TestFromSharedSkipsUnsetFields(t *testing.T) {
	tbl := DefaultTable()
	rec, err := tbl.FromShared(model.TaskRecord{Title: "bare", Status: model.StatusOpen}, adapter.SystemWeb)
	require.NoError(t, err)

	_, hasDue := rec.Fields["due"]
	assert.False(t, hasDue)
	_, hasOverflow := rec.Fields[OverflowField]
	assert.False(t, hasOverflow)
}

func TestSimpleTableDropsExtras(t *testing.T) {
	tbl := SimpleTable()
	require.NoError(t, tbl.Validate())

	task := model.TaskRecord{
		Title:    "mow lawn",
		Status:   model.StatusOpen,
		Priority: model.PriorityHigh,
		Tags:     []string{"home"},
		Notes:    "before saturday",
	}

	web, err := tbl.FromShared(task, adapter.SystemWeb)
	require.NoError(t, err)
	assert.Equal(t, "mow lawn", web.Fields["title"])
	_, hasOverflow := web.Fields[OverflowField]
	assert.False(t, hasOverflow)
	_, hasNotes := web.Fields["notes"]
	assert.False(t, hasNotes)

	local, err := tbl.FromShared(task, adapter.SystemLocal)
	require.NoError(t, err)
	_, hasTags := local.Fields["tags"]
	assert.False(t, hasTags)
	_, hasPriority := local.Fields["priority"]
	assert.False(t, hasPriority)
}

func TestNamedTable(t *testing.T) {
	tbl, err := NamedTable("")
	require.NoError(t, err)
	assert.Equal(t, len(DefaultTable().Rules), len(tbl.Rules))

	tbl, err = NamedTable("simple")
	require.NoError(t, err)
	require.NoError(t, tbl.Validate())

	_, err = NamedTable("gtd")
	assert.Error(t, err)
}

func TestYAMLRoundTrip(t *testing.T) {
	path := t.TempDir() + "/mapping.yaml"
	require.NoError(t, SaveTable(path, DefaultTable()))

	loaded, err := LoadTable(path)
	require.NoError(t, err)
	require.NoError(t, loaded.Validate())
	assert.Equal(t, len(DefaultTable().Rules), len(loaded.Rules))
}

func TestLoadTableRejectsInvalid(t *testing.T) {
	tbl := DefaultTable()
	tbl.Rules = tbl.Rules[:2]
	path := t.TempDir() + "/mapping.yaml"
	require.NoError(t, SaveTable(path, tbl))

	_, err := LoadTable(path)
	assert.Error(t, err)
}
