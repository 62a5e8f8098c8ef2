// Package adapter defines the narrow contract the sync engine uses to talk
// to a task store. Two implementations exist: pkg/gtasks (Google Tasks over
// the network) and pkg/taskwarrior (the local task binary). The engine is
// polymorphic over this interface and never branches on which system it is
// talking to.
package adapter

import (
	"context"
	"time"
)

// System identifies which side of the sync a record belongs to.
type System string

const (
	SystemWeb   System = "web"
	SystemLocal System = "local"
)

// Record is a native task in transit: a flat map of native field names to
// values, plus the identity and timestamp metadata every adapter must
// report. The field mapper is the only code that interprets Fields.
type Record struct {
	ID        string
	Fields    map[string]any
	UpdatedAt time.Time

	// CreatedAt is the record's creation time when the system reports one
	// (Taskwarrior's entry date). Zero when the system only tracks
	// modification time, as Google Tasks does.
	CreatedAt time.Time

	// Deleted is set when the adapter can still enumerate a tombstone for
	// the record (Google Tasks does; Taskwarrior keeps deleted tasks in its
	// export). Records that vanish entirely are reported by absence.
	Deleted bool
}

// Adapter is the capability set the engine requires from either system.
// All calls may block on I/O and honor ctx cancellation. Failures are
// classified as transient (retryable) or permanent via pkg/adapter errors.
type Adapter interface {
	System() System

	// List enumerates all addressable tasks. A non-nil since asks for an
	// incremental listing; adapters without delta support ignore it and
	// return everything.
	List(ctx context.Context, since *time.Time) ([]Record, error)

	// Get resolves a single record by id. A nil record with nil error means
	// the id no longer resolves.
	Get(ctx context.Context, id string) (*Record, error)

	Create(ctx context.Context, rec Record) (string, error)
	Update(ctx context.Context, id string, rec Record) error
	Delete(ctx context.Context, id string) error
}
