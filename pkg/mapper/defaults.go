package mapper

import "fmt"

// DefaultTable returns the stock mapping between Google Tasks and
// Taskwarrior. Google Tasks has no priority or tag columns and stores due
// dates without a time of day, so those travel through the notes trailer
// overflow; Taskwarrior represents everything natively.
func DefaultTable() *Table {
	return &Table{Rules: []Rule{
		{
			Shared:   "title",
			Required: true,
			Web:      Binding{Path: "title", Transform: "text"},
			Local:    Binding{Path: "description", Transform: "text"},
		},
		{
			Shared: "status",
			Web: Binding{
				Path:      "status",
				Transform: "select",
				Values: map[string]string{
					"open":      "needsAction",
					"completed": "completed",
				},
				// Deletions are propagated through tombstones, never
				// written as a status value.
				Aliases: map[string]string{},
			},
			Local: Binding{
				Path:      "status",
				Transform: "select",
				Values: map[string]string{
					"open":      "pending",
					"completed": "completed",
					"deleted":   "deleted",
				},
				Aliases: map[string]string{
					"waiting":   "open",
					"recurring": "open",
				},
			},
		},
		{
			Shared: "priority",
			Web:    Binding{Degrade: DegradeOverflow},
			Local: Binding{
				Path:      "priority",
				Transform: "select",
				Values: map[string]string{
					"low":    "L",
					"medium": "M",
					"high":   "H",
				},
			},
		},
		{
			Shared: "due",
			Web:    Binding{Path: "due", Transform: "dateonly", Degrade: DegradeOverflow},
			Local:  Binding{Path: "due", Transform: "date"},
		},
		{
			Shared: "tags",
			Web:    Binding{Degrade: DegradeOverflow},
			Local:  Binding{Path: "tags", Transform: "tags"},
		},
		{
			Shared: "notes",
			Web:    Binding{Path: "notes", Transform: "text"},
			Local:  Binding{Path: "annotations", Transform: "text"},
		},
	}}
}

// SimpleTable carries only title, completion and due date. Priority, tags
// and notes are dropped on both sides rather than overflowed, which keeps
// the web task bodies free of trailer blocks.
func SimpleTable() *Table {
	t := DefaultTable()
	drop := map[string]bool{"priority": true, "tags": true, "notes": true}
	for i, r := range t.Rules {
		if !drop[r.Shared] {
			continue
		}
		t.Rules[i].Web = Binding{Degrade: DegradeDrop}
		t.Rules[i].Local = Binding{Degrade: DegradeDrop}
	}
	return t
}

// NamedTable resolves a mapping template by name.
func NamedTable(name string) (*Table, error) {
	switch name {
	case "", "default":
		return DefaultTable(), nil
	case "simple":
		return SimpleTable(), nil
	}
	return nil, fmt.Errorf("unknown mapping template %q (want default or simple)", name)
}
