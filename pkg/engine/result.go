package engine

import "fmt"

// ConflictRecord is a field-level divergence a cycle could not resolve
// under the configured policy. It is a first-class outcome, not an error:
// the cycle still completes and reports it.
type ConflictRecord struct {
	LinkID     string `json:"linkId"`
	Field      string `json:"field"`
	WebValue   string `json:"webValue"`
	LocalValue string `json:"localValue"`
}

// Failure records one item the cycle gave up on. Other items proceed.
type Failure struct {
	WebID   string `json:"webId,omitempty"`
	LocalID string `json:"localId,omitempty"`
	Title   string `json:"title,omitempty"`
	Reason  string `json:"reason"`
}

func (f Failure) String() string {
	id := f.WebID
	if id == "" {
		id = f.LocalID
	}
	return fmt.Sprintf("%s (%s): %s", f.Title, id, f.Reason)
}

// CycleResult is the structured outcome of one reconciliation cycle. A
// cycle always produces one, even when some items failed.
type CycleResult struct {
	Synced     int  `json:"synced"`
	Conflicted int  `json:"conflicted"`
	Failed     int  `json:"failed"`
	Skipped    int  `json:"skipped"`
	DryRun     bool `json:"dryRun,omitempty"`

	Conflicts []ConflictRecord `json:"conflicts,omitempty"`
	Failures  []Failure        `json:"failures,omitempty"`
}

func (r *CycleResult) String() string {
	s := fmt.Sprintf("synced:%d conflicted:%d failed:%d skipped:%d", r.Synced, r.Conflicted, r.Failed, r.Skipped)
	if r.DryRun {
		s += " (dry run)"
	}
	return s
}
