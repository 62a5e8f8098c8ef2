// Package mapper implements the bidirectional, table-driven transform
// between native task records and the shared TaskRecord shape. The table
// declares, per shared field and per system, which native field carries the
// value, which named transform converts it, and what happens when the
// target system cannot represent the value at all.
package mapper

import (
	"fmt"
	"time"

	"github.com/harrisonrobin/taskbridge/pkg/adapter"
	"github.com/harrisonrobin/taskbridge/pkg/model"
)

// OverflowField is the reserved native field carrying values the target
// system has no column for. Adapters that support it (Google Tasks, via a
// notes trailer) round-trip it verbatim; the mapper decides what goes in.
const OverflowField = "_overflow"

// Degradation names the explicit policy for a value the target system
// cannot represent. There is no implicit default: a binding with no path
// and no degradation fails validation.
type Degradation string

const (
	// DegradeNone means the native path fully represents the value.
	DegradeNone Degradation = ""
	// DegradeClamp stores only the representable projection (e.g. a
	// datetime clamped to its date). Lossy, and configured as such.
	DegradeClamp Degradation = "clamp"
	// DegradeDrop discards the value for this system.
	DegradeDrop Degradation = "drop"
	// DegradeOverflow stores the exact value in the overflow field. When
	// combined with a path, the path holds the clamped projection and the
	// overflow holds the exact value, which is preferred on read-back.
	DegradeOverflow Degradation = "overflow"
)

// Binding ties one shared field to one system.
type Binding struct {
	// Path is the native field name; empty means the system has no place
	// for this field and Degrade must be set.
	Path      string            `yaml:"path,omitempty"`
	Transform string            `yaml:"transform,omitempty"`
	// Values maps shared value words to native ones for the "select"
	// transform (e.g. "completed" -> "Done").
	Values map[string]string `yaml:"values,omitempty"`
	// Aliases accepts additional native spellings on read (e.g.
	// Taskwarrior "waiting" reads as shared "open").
	Aliases map[string]string `yaml:"aliases,omitempty"`
	Degrade Degradation       `yaml:"degrade,omitempty"`
}

// Rule maps one shared field into both systems.
type Rule struct {
	Shared   string  `yaml:"shared"`
	Required bool    `yaml:"required,omitempty"`
	Web      Binding `yaml:"web"`
	Local    Binding `yaml:"local"`
}

// Table is the full mapping configuration.
type Table struct {
	Rules []Rule `yaml:"rules"`
}

func (t *Table) binding(r Rule, sys adapter.System) Binding {
	if sys == adapter.SystemWeb {
		return r.Web
	}
	return r.Local
}

// Validate checks the table covers every shared field for both systems,
// either through a native path or an explicit degradation rule. A gap is a
// configuration error, reported before any cycle runs.
func (t *Table) Validate() error {
	seen := make(map[string]bool, len(t.Rules))
	for _, r := range t.Rules {
		if !knownShared(r.Shared) {
			return fmt.Errorf("mapping table: unknown shared field %q", r.Shared)
		}
		if seen[r.Shared] {
			return fmt.Errorf("mapping table: duplicate rule for %q", r.Shared)
		}
		seen[r.Shared] = true
		for _, sys := range []adapter.System{adapter.SystemWeb, adapter.SystemLocal} {
			b := t.binding(r, sys)
			if b.Path == "" && b.Degrade == DegradeNone {
				return &UnmappableFieldError{Field: r.Shared, System: sys}
			}
			if b.Path != "" && b.Transform == "" {
				return fmt.Errorf("mapping table: %s/%s has a path but no transform", r.Shared, sys)
			}
			if b.Transform != "" {
				if _, ok := transforms[b.Transform]; !ok {
					return fmt.Errorf("mapping table: %s/%s uses unknown transform %q", r.Shared, sys, b.Transform)
				}
			}
		}
	}
	for _, f := range sharedFields {
		if !seen[f] {
			return fmt.Errorf("mapping table: no rule for shared field %q", f)
		}
	}
	return nil
}

// ToShared converts a native record into the shared shape. Absent native
// fields leave the shared field at its zero value; overflow entries win
// over clamped native projections.
func (t *Table) ToShared(rec adapter.Record, sys adapter.System) (model.TaskRecord, error) {
	var out model.TaskRecord
	overflow, _ := rec.Fields[OverflowField].(map[string]string)

	for _, r := range t.Rules {
		b := t.binding(r, sys)

		var shared any
		var have bool
		if b.Path != "" {
			if native, ok := rec.Fields[b.Path]; ok {
				v, err := transforms[b.Transform].toShared(b, native)
				if err != nil {
					return model.TaskRecord{}, fmt.Errorf("map %s from %s: %w", r.Shared, sys, err)
				}
				shared, have = v, true
			}
		}
		if b.Degrade == DegradeOverflow {
			if enc, ok := overflow[r.Shared]; ok {
				v, err := decodeOverflow(r.Shared, enc)
				if err == nil {
					shared, have = v, true
				}
			}
		}
		if have {
			if err := setShared(&out, r.Shared, shared); err != nil {
				return model.TaskRecord{}, err
			}
		}
	}

	if out.Status == "" {
		out.Status = model.StatusOpen
	}
	if rec.Deleted {
		out.Status = model.StatusDeleted
	}
	out.ExternalUpdatedAt = rec.UpdatedAt
	return out.Normalize(), nil
}

// FromShared converts a shared record into a native one for the given
// system. Unrepresentable values follow the configured degradation rule.
func (t *Table) FromShared(task model.TaskRecord, sys adapter.System) (adapter.Record, error) {
	task = task.Normalize()
	rec := adapter.Record{Fields: make(map[string]any)}
	overflow := make(map[string]string)

	for _, r := range t.Rules {
		b := t.binding(r, sys)
		shared := getShared(task, r.Shared)
		if isZeroShared(shared) {
			continue
		}

		if b.Degrade == DegradeOverflow {
			enc, err := encodeOverflow(r.Shared, shared)
			if err != nil {
				return adapter.Record{}, err
			}
			overflow[r.Shared] = enc
		}

		switch {
		case b.Path != "":
			native, err := transforms[b.Transform].fromShared(b, shared)
			if err != nil {
				return adapter.Record{}, fmt.Errorf("map %s to %s: %w", r.Shared, sys, err)
			}
			if native != nil {
				rec.Fields[b.Path] = native
			}
		case b.Degrade == DegradeDrop, b.Degrade == DegradeOverflow:
			// handled above, or intentionally discarded
		default:
			return adapter.Record{}, &UnmappableFieldError{Field: r.Shared, System: sys}
		}
	}

	if len(overflow) > 0 {
		rec.Fields[OverflowField] = overflow
	}
	return rec, nil
}

var sharedFields = []string{"title", "status", "priority", "due", "tags", "notes"}

func knownShared(name string) bool {
	for _, f := range sharedFields {
		if f == name {
			return true
		}
	}
	return false
}

func getShared(t model.TaskRecord, field string) any {
	switch field {
	case "title":
		return t.Title
	case "status":
		return string(t.Status)
	case "priority":
		return t.Priority.String()
	case "due":
		return t.Due
	case "tags":
		return t.Tags
	case "notes":
		return t.Notes
	}
	return nil
}

func setShared(t *model.TaskRecord, field string, v any) error {
	switch field {
	case "title":
		t.Title, _ = v.(string)
	case "status":
		s, _ := v.(string)
		t.Status = model.Status(s)
	case "priority":
		s, _ := v.(string)
		p, ok := model.ParsePriority(s)
		if !ok {
			return fmt.Errorf("unknown priority value %q", s)
		}
		t.Priority = p
	case "due":
		switch due := v.(type) {
		case *time.Time:
			t.Due = due
		case time.Time:
			t.Due = &due
		}
	case "tags":
		t.Tags, _ = v.([]string)
	case "notes":
		t.Notes, _ = v.(string)
	}
	return nil
}

func isZeroShared(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return x == ""
	case []string:
		return len(x) == 0
	case *time.Time:
		return x == nil
	}
	return false
}
