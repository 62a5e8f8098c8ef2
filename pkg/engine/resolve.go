package engine

import (
	"fmt"

	"github.com/harrisonrobin/taskbridge/pkg/model"
)

// PolicyKind selects how concurrent edits to the same field are settled.
type PolicyKind string

const (
	// LastWriterWins takes the side with the later external timestamp.
	LastWriterWins PolicyKind = "lastWriterWins"
	// SourceOfTruthWeb always takes the web side.
	SourceOfTruthWeb PolicyKind = "sourceOfTruthWeb"
	// SourceOfTruthLocal always takes the local side.
	SourceOfTruthLocal PolicyKind = "sourceOfTruthLocal"
	// Manual surfaces a ConflictRecord and leaves the field untouched.
	Manual PolicyKind = "manual"
)

// DeletionPolicy decides what a deletion on one side does when the other
// side carries an edit. This is explicit configuration: silently deleting
// or silently resurrecting user data are both correctness hazards.
type DeletionPolicy string

const (
	// HonorDeletion propagates the deletion regardless of the edit.
	HonorDeletion DeletionPolicy = "honorDeletion"
	// RestoreOnRemoteEdit recreates the deleted record from the edited one.
	RestoreOnRemoteEdit DeletionPolicy = "restoreOnRemoteEdit"
)

// Policy is the full conflict-handling configuration for a cycle.
type Policy struct {
	Kind     PolicyKind
	Deletion DeletionPolicy

	// AllowReopen permits a completed task to transition back to open.
	// When false, a reopen arriving from either side is suppressed so
	// completion races cannot bounce tasks back open.
	AllowReopen bool
}

// ParsePolicyKind validates a configured policy name.
func ParsePolicyKind(s string) (PolicyKind, error) {
	switch PolicyKind(s) {
	case LastWriterWins, SourceOfTruthWeb, SourceOfTruthLocal, Manual:
		return PolicyKind(s), nil
	}
	return "", fmt.Errorf("unknown conflict policy %q", s)
}

// ParseDeletionPolicy validates a configured deletion policy name.
func ParseDeletionPolicy(s string) (DeletionPolicy, error) {
	switch DeletionPolicy(s) {
	case HonorDeletion, RestoreOnRemoteEdit:
		return DeletionPolicy(s), nil
	}
	return "", fmt.Errorf("unknown deletion policy %q", s)
}

// Resolution is the outcome of three-way merging one link.
type Resolution struct {
	// Merged is the record both sides should converge to. Valid unless
	// the resolution is a deletion.
	Merged model.TaskRecord

	// Conflicts lists fields left unresolved under the manual policy. The
	// merged record holds the baseline value for those fields, and each
	// side keeps its own value until the operator decides.
	Conflicts []ConflictRecord

	// DeleteWeb / DeleteLocal propagate a deletion to that side.
	DeleteWeb   bool
	DeleteLocal bool

	// RecreateWeb / RecreateLocal resurrect a deleted record from the
	// surviving side's content (restoreOnRemoteEdit).
	RecreateWeb   bool
	RecreateLocal bool

	// DropLink removes the link once both records are gone.
	DropLink bool
}

// Deletes reports whether the resolution ends with the pair removed.
func (r Resolution) Deletes() bool {
	return r.DropLink || r.DeleteWeb || r.DeleteLocal
}

// Resolve performs the three-way merge for one classified link. For
// single-side changes the changed side wins outright; only modified-both
// consults the field policy, independently per field.
func Resolve(class Classification, baseline model.TaskRecord, web, local *model.TaskRecord, policy Policy) Resolution {
	switch class {
	case Unchanged:
		return Resolution{Merged: baseline.Clone()}

	case ModifiedWeb:
		return Resolution{Merged: gateReopen(baseline, web.Clone(), policy)}

	case ModifiedLocal:
		return Resolution{Merged: gateReopen(baseline, local.Clone(), policy)}

	case ModifiedBoth:
		return mergeFields(baseline, *web, *local, policy)

	case DeletedBoth:
		return Resolution{DropLink: true}

	case DeletedWeb:
		edited := local != nil && !local.Equal(baseline)
		if edited && policy.Deletion == RestoreOnRemoteEdit {
			return Resolution{Merged: local.Clone(), RecreateWeb: true}
		}
		return Resolution{DeleteLocal: true, DropLink: true}

	case DeletedLocal:
		edited := web != nil && !web.Equal(baseline)
		if edited && policy.Deletion == RestoreOnRemoteEdit {
			return Resolution{Merged: web.Clone(), RecreateLocal: true}
		}
		return Resolution{DeleteWeb: true, DropLink: true}
	}
	return Resolution{Merged: baseline.Clone()}
}

// mergeFields merges two concurrently modified records field by field
// against the baseline. Fields changed on one side take that side; fields
// changed on both sides to the same value agree; genuine divergence goes
// through the policy.
func mergeFields(baseline, web, local model.TaskRecord, policy Policy) Resolution {
	merged := baseline.Clone()
	var conflicts []ConflictRecord

	for _, field := range model.SharedFields {
		baseVal := baseline.FieldString(field)
		webVal := web.FieldString(field)
		localVal := local.FieldString(field)

		webChanged := webVal != baseVal
		localChanged := localVal != baseVal

		switch {
		case !webChanged && !localChanged:
			// keep baseline
		case webChanged && !localChanged:
			merged.CopyField(web, field)
		case localChanged && !webChanged:
			merged.CopyField(local, field)
		case webVal == localVal:
			merged.CopyField(web, field)
		default:
			switch policy.Kind {
			case SourceOfTruthWeb:
				merged.CopyField(web, field)
			case SourceOfTruthLocal:
				merged.CopyField(local, field)
			case LastWriterWins:
				if web.ExternalUpdatedAt.After(local.ExternalUpdatedAt) {
					merged.CopyField(web, field)
				} else {
					merged.CopyField(local, field)
				}
			case Manual:
				conflicts = append(conflicts, ConflictRecord{
					Field:      field,
					WebValue:   webVal,
					LocalValue: localVal,
				})
			}
		}
	}

	merged = gateReopen(baseline, merged, policy)
	return Resolution{Merged: merged, Conflicts: conflicts}
}

// gateReopen suppresses completed-to-open transitions when the policy
// forbids them.
func gateReopen(baseline, merged model.TaskRecord, policy Policy) model.TaskRecord {
	if !policy.AllowReopen && baseline.Status == model.StatusCompleted && merged.Status == model.StatusOpen {
		merged.Status = model.StatusCompleted
	}
	return merged
}
