// Package engine drives one reconciliation cycle between the two task
// stores: enumerate, classify, map, resolve, apply, persist. Items fail
// individually without halting the cycle, and sync-state updates land only
// after the corresponding writes are confirmed.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/harrisonrobin/taskbridge/pkg/adapter"
	"github.com/harrisonrobin/taskbridge/pkg/mapper"
	"github.com/harrisonrobin/taskbridge/pkg/model"
	"github.com/harrisonrobin/taskbridge/pkg/store"
)

// Phase names the cycle's state machine states, mostly for logging.
type Phase string

const (
	PhaseEnumerating Phase = "enumerating"
	PhaseClassifying Phase = "classifying"
	PhaseMapping     Phase = "mapping"
	PhaseResolving   Phase = "resolving"
	PhaseApplying    Phase = "applying"
	PhasePersisting  Phase = "persisting"
	PhaseDone        Phase = "done"
)

// Engine orchestrates sync cycles. One engine, one cycle at a time; the
// cross-process lock in AcquireLock guards against concurrent processes.
type Engine struct {
	Web   adapter.Adapter
	Local adapter.Adapter
	Store *store.Store
	Table *mapper.Table

	Policy      Policy
	MatchWindow time.Duration
	MaxAttempts int
	BaseBackoff time.Duration

	// Workers bounds parallelism in the apply phase. Items are distinct
	// links, so parallel application never reorders writes within a link.
	Workers int

	now func() time.Time
}

// New assembles an engine with defaults filled in.
func New(web, local adapter.Adapter, st *store.Store, table *mapper.Table, policy Policy) *Engine {
	return &Engine{
		Web:         web,
		Local:       local,
		Store:       st,
		Table:       table,
		Policy:      policy,
		MatchWindow: 24 * time.Hour,
		MaxAttempts: 4,
		BaseBackoff: defaultBaseBackoff,
		Workers:     4,
		now:         time.Now,
	}
}

// Options selects the cycle mode.
type Options struct {
	// Full forces a complete enumeration instead of a delta query.
	Full bool
	// DryRun plans every write but issues none and persists nothing.
	DryRun bool
}

// item is one link's worth of work for a cycle.
type item struct {
	link    *store.SyncLink
	class   Classification
	web     *model.TaskRecord
	local   *model.TaskRecord
	webID   string
	localID string
	res     Resolution
}

func (it *item) title() string {
	switch {
	case it.web != nil:
		return it.web.Title
	case it.local != nil:
		return it.local.Title
	case it.link != nil:
		return it.link.Snapshot.Title
	}
	return ""
}

// Run executes one cycle and always returns a structured result unless the
// cycle could not start at all (configuration errors, unreachable stores).
func (e *Engine) Run(ctx context.Context, opts Options) (*CycleResult, error) {
	if e.Table == nil {
		e.Table = mapper.DefaultTable()
	}
	// A mapping gap is a configuration error: abort before any writes.
	if err := e.Table.Validate(); err != nil {
		return nil, err
	}
	if e.now == nil {
		e.now = time.Now
	}

	result := &CycleResult{DryRun: opts.DryRun}
	cycleStart := e.now()

	slog.Debug("cycle phase", "phase", PhaseEnumerating)
	var since *time.Time
	if !opts.Full {
		last, err := e.Store.LastCycle(ctx)
		if err != nil {
			return nil, err
		}
		if !last.IsZero() {
			since = &last
		}
	}

	webRecords, err := e.list(ctx, e.Web, since)
	if err != nil {
		return nil, fmt.Errorf("enumerate web tasks: %w", err)
	}
	localRecords, err := e.list(ctx, e.Local, since)
	if err != nil {
		return nil, fmt.Errorf("enumerate local tasks: %w", err)
	}
	links, err := e.Store.All(ctx)
	if err != nil {
		return nil, err
	}

	webByID := indexRecords(webRecords)
	localByID := indexRecords(localRecords)

	slog.Debug("cycle phase", "phase", PhaseClassifying, "web", len(webRecords), "local", len(localRecords), "links", len(links))

	items, failures := e.classifyLinks(ctx, links, webByID, localByID, since != nil)
	result.Failures = append(result.Failures, failures...)

	unlinkedItems, skipped, failures := e.classifyUnlinked(webByID, localByID)
	items = append(items, unlinkedItems...)
	result.Skipped += skipped
	result.Failures = append(result.Failures, failures...)

	slog.Debug("cycle phase", "phase", PhaseApplying, "items", len(items))
	e.applyAll(ctx, items, opts.DryRun, result)
	result.Failed = len(result.Failures)

	// The delta watermark only moves after a cycle that handled everything
	// it enumerated. A failed or interrupted cycle keeps the old marker so
	// records it missed, in particular unlinked ones with no point-Get
	// fallback, are enumerated again next time. The marker is the cycle
	// start, not the end, so edits made while the cycle ran are not lost.
	if !opts.DryRun && result.Failed == 0 && ctx.Err() == nil {
		if err := e.Store.SetLastCycle(ctx, cycleStart); err != nil {
			return nil, err
		}
	}

	slog.Debug("cycle phase", "phase", PhaseDone, "result", result.String())
	return result, nil
}

// classifyLinks builds work items for every known link. Under an
// incremental enumeration an absent record may simply be unchanged, so
// absence is confirmed with a point Get before it reads as a deletion.
func (e *Engine) classifyLinks(ctx context.Context, links []store.SyncLink, webByID, localByID map[string]adapter.Record, incremental bool) ([]*item, []Failure) {
	var items []*item
	var failures []Failure

	for i := range links {
		link := links[i]
		webRec, webOK := takeRecord(webByID, link.WebID)
		localRec, localOK := takeRecord(localByID, link.LocalID)

		if incremental {
			var err error
			if !webOK {
				webRec, webOK, err = e.get(ctx, e.Web, link.WebID)
				if err != nil {
					failures = append(failures, Failure{WebID: link.WebID, LocalID: link.LocalID, Title: link.Snapshot.Title, Reason: err.Error()})
					continue
				}
			}
			if !localOK {
				localRec, localOK, err = e.get(ctx, e.Local, link.LocalID)
				if err != nil {
					failures = append(failures, Failure{WebID: link.WebID, LocalID: link.LocalID, Title: link.Snapshot.Title, Reason: err.Error()})
					continue
				}
			}
		}

		slog.Debug("cycle phase", "phase", PhaseMapping, "link", link.ID)
		web, err := e.toShared(webRec, webOK, adapter.SystemWeb)
		if err != nil {
			failures = append(failures, Failure{WebID: link.WebID, LocalID: link.LocalID, Title: link.Snapshot.Title, Reason: err.Error()})
			continue
		}
		local, err := e.toShared(localRec, localOK, adapter.SystemLocal)
		if err != nil {
			failures = append(failures, Failure{WebID: link.WebID, LocalID: link.LocalID, Title: link.Snapshot.Title, Reason: err.Error()})
			continue
		}

		class := Classify(link.Snapshot, web, local)
		slog.Debug("cycle phase", "phase", PhaseResolving, "link", link.ID, "class", class.String())
		res := Resolve(class, link.Snapshot, web, local, e.Policy)

		items = append(items, &item{
			link:    &link,
			class:   class,
			web:     web,
			local:   local,
			webID:   link.WebID,
			localID: link.LocalID,
			res:     res,
		})
	}
	return items, failures
}

// classifyUnlinked handles records no link owns: heuristically matched
// pairs become new links, the rest become creations on the other side.
// Unlinked tombstones need no propagation and are skipped.
func (e *Engine) classifyUnlinked(webByID, localByID map[string]adapter.Record) ([]*item, int, []Failure) {
	var items []*item
	var failures []Failure
	skipped := 0

	webCands, webSkipped, webFailures := e.candidates(webByID, adapter.SystemWeb)
	localCands, localSkipped, localFailures := e.candidates(localByID, adapter.SystemLocal)
	skipped += webSkipped + localSkipped
	failures = append(failures, webFailures...)
	failures = append(failures, localFailures...)

	pairs, webOnly, localOnly := matchUnlinked(webCands, localCands, e.MatchWindow)

	for _, pair := range pairs {
		web, local := pair[0], pair[1]
		// Matched without a baseline: a three-way merge against the empty
		// record settles any differing fields under the normal policy.
		res := mergeFields(model.TaskRecord{}, web.rec, local.rec, e.Policy)
		items = append(items, &item{
			class:   ModifiedBoth,
			web:     &web.rec,
			local:   &local.rec,
			webID:   web.id,
			localID: local.id,
			res:     res,
		})
	}
	for _, c := range webOnly {
		rec := c.rec
		items = append(items, &item{
			class: CreatedWeb,
			web:   &rec,
			webID: c.id,
			res:   Resolution{Merged: rec.Clone()},
		})
	}
	for _, c := range localOnly {
		rec := c.rec
		items = append(items, &item{
			class:   CreatedLocal,
			local:   &rec,
			localID: c.id,
			res:     Resolution{Merged: rec.Clone()},
		})
	}
	return items, skipped, failures
}

func (e *Engine) candidates(byID map[string]adapter.Record, sys adapter.System) ([]candidate, int, []Failure) {
	var cands []candidate
	var failures []Failure
	skipped := 0
	for id, rec := range byID {
		shared, err := e.Table.ToShared(rec, sys)
		if err != nil {
			failures = append(failures, Failure{WebID: webIDFor(sys, id), LocalID: localIDFor(sys, id), Reason: err.Error()})
			continue
		}
		if shared.Status == model.StatusDeleted {
			skipped++
			continue
		}
		at := rec.UpdatedAt
		if !rec.CreatedAt.IsZero() {
			at = rec.CreatedAt
		}
		cands = append(cands, candidate{id: id, rec: shared, at: at})
	}
	return cands, skipped, failures
}

func webIDFor(sys adapter.System, id string) string {
	if sys == adapter.SystemWeb {
		return id
	}
	return ""
}

func localIDFor(sys adapter.System, id string) string {
	if sys == adapter.SystemLocal {
		return id
	}
	return ""
}

// applyAll fans items out to a bounded worker pool. Each item is an
// independent link, so ordering across items does not matter; a cancelled
// context stops dispatch and leaves the rest for the next cycle.
func (e *Engine) applyAll(ctx context.Context, items []*item, dryRun bool, result *CycleResult) {
	workers := e.Workers
	if workers < 1 {
		workers = 1
	}

	jobs := make(chan *item)
	var mu sync.Mutex
	var wg sync.WaitGroup

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for it := range jobs {
				if ctx.Err() != nil {
					// Already handed over but not started; treat like the
					// undispatched remainder.
					mu.Lock()
					result.Skipped++
					mu.Unlock()
					continue
				}
				outcome, conflicts, err := e.apply(ctx, it, dryRun)
				mu.Lock()
				switch {
				case err != nil:
					result.Failures = append(result.Failures, Failure{
						WebID:   it.webID,
						LocalID: it.localID,
						Title:   it.title(),
						Reason:  err.Error(),
					})
				case outcome == outcomeConflicted:
					result.Conflicted++
					result.Conflicts = append(result.Conflicts, conflicts...)
				case outcome == outcomeSynced:
					result.Synced++
				default:
					result.Skipped++
				}
				mu.Unlock()
			}
		}()
	}

dispatch:
	for i, it := range items {
		select {
		case jobs <- it:
		case <-ctx.Done():
			// Items never dispatched are re-evaluated next cycle.
			mu.Lock()
			result.Skipped += len(items) - i
			mu.Unlock()
			break dispatch
		}
	}
	close(jobs)
	wg.Wait()
}

type outcomeKind int

const (
	outcomeSkipped outcomeKind = iota
	outcomeSynced
	outcomeConflicted
)

// apply issues the minimal writes for one item and persists its link only
// once both sides are confirmed. Any error leaves the link untouched so the
// next cycle re-evaluates from the old baseline.
func (e *Engine) apply(ctx context.Context, it *item, dryRun bool) (outcomeKind, []ConflictRecord, error) {
	if it.class == Unchanged {
		return outcomeSkipped, nil, nil
	}

	if dryRun {
		if len(it.res.Conflicts) > 0 {
			return outcomeConflicted, it.res.Conflicts, nil
		}
		return outcomeSynced, nil, nil
	}

	now := e.now()

	// Deletion outcomes: propagate, then drop the link.
	if it.res.Deletes() {
		if it.res.DeleteLocal && !isGone(it.local) {
			if err := e.delete(ctx, e.Local, it.localID); err != nil {
				return 0, nil, err
			}
		}
		if it.res.DeleteWeb && !isGone(it.web) {
			if err := e.delete(ctx, e.Web, it.webID); err != nil {
				return 0, nil, err
			}
		}
		slog.Debug("cycle phase", "phase", PhasePersisting, "link", it.link.ID, "op", "drop")
		if err := e.Store.Delete(ctx, it.link.ID); err != nil {
			return 0, nil, err
		}
		return outcomeSynced, nil, nil
	}

	merged := it.res.Merged

	// Conflicted fields stay frozen: each side keeps its own value until
	// the operator resolves, so the write targets differ per side.
	webTarget := merged.Clone()
	localTarget := merged.Clone()
	for _, c := range it.res.Conflicts {
		if it.web != nil {
			webTarget.CopyField(*it.web, c.Field)
		}
		if it.local != nil {
			localTarget.CopyField(*it.local, c.Field)
		}
	}

	webID, err := e.ensureSide(ctx, e.Web, it.webID, it.web, webTarget, it.res.RecreateWeb)
	if err != nil {
		return 0, nil, err
	}
	localID, err := e.ensureSide(ctx, e.Local, it.localID, it.local, localTarget, it.res.RecreateLocal)
	if err != nil {
		return 0, nil, err
	}

	// Both sides confirmed: persist the new baseline.
	var link store.SyncLink
	if it.link != nil {
		link = *it.link
		link.WebID = webID
		link.LocalID = localID
		link.Fingerprint = merged.Fingerprint()
		link.Snapshot = merged.Normalize()
		link.LastSyncedAt = now
	} else {
		link = store.NewLink(webID, localID, merged, now)
	}
	slog.Debug("cycle phase", "phase", PhasePersisting, "link", link.ID)
	if err := e.Store.Put(ctx, link); err != nil {
		return 0, nil, err
	}

	if len(it.res.Conflicts) > 0 {
		conflicts := make([]ConflictRecord, 0, len(it.res.Conflicts))
		for _, c := range it.res.Conflicts {
			c.LinkID = link.ID
			conflicts = append(conflicts, c)
			err := e.Store.PutConflict(ctx, store.Conflict{
				LinkID:     link.ID,
				Field:      c.Field,
				WebValue:   c.WebValue,
				LocalValue: c.LocalValue,
				CreatedAt:  now,
			})
			if err != nil {
				return 0, nil, err
			}
		}
		return outcomeConflicted, conflicts, nil
	}

	if err := e.Store.ResolveConflicts(ctx, link.ID, now); err != nil {
		return 0, nil, err
	}
	return outcomeSynced, nil, nil
}

// ensureSide brings one side in line with its target record: create when
// the id is missing or a recreation was ordered, update when the current
// record differs, nothing when already converged.
func (e *Engine) ensureSide(ctx context.Context, ad adapter.Adapter, id string, current *model.TaskRecord, target model.TaskRecord, recreate bool) (string, error) {
	native, err := e.Table.FromShared(target, ad.System())
	if err != nil {
		return "", err
	}

	if id == "" || recreate {
		var newID string
		err := withRetry(ctx, e.MaxAttempts, e.BaseBackoff, func() error {
			var createErr error
			newID, createErr = ad.Create(ctx, native)
			return createErr
		})
		if err != nil {
			return "", fmt.Errorf("create on %s: %w", ad.System(), err)
		}
		return newID, nil
	}

	if current != nil && current.Equal(target) {
		return id, nil
	}
	err = withRetry(ctx, e.MaxAttempts, e.BaseBackoff, func() error {
		return ad.Update(ctx, id, native)
	})
	if err != nil {
		return "", fmt.Errorf("update on %s: %w", ad.System(), err)
	}
	return id, nil
}

func (e *Engine) delete(ctx context.Context, ad adapter.Adapter, id string) error {
	err := withRetry(ctx, e.MaxAttempts, e.BaseBackoff, func() error {
		return ad.Delete(ctx, id)
	})
	if err != nil {
		return fmt.Errorf("delete on %s: %w", ad.System(), err)
	}
	return nil
}

func (e *Engine) list(ctx context.Context, ad adapter.Adapter, since *time.Time) ([]adapter.Record, error) {
	var records []adapter.Record
	err := withRetry(ctx, e.MaxAttempts, e.BaseBackoff, func() error {
		var listErr error
		records, listErr = ad.List(ctx, since)
		return listErr
	})
	return records, err
}

func (e *Engine) get(ctx context.Context, ad adapter.Adapter, id string) (adapter.Record, bool, error) {
	var rec *adapter.Record
	err := withRetry(ctx, e.MaxAttempts, e.BaseBackoff, func() error {
		var getErr error
		rec, getErr = ad.Get(ctx, id)
		return getErr
	})
	if err != nil {
		return adapter.Record{}, false, err
	}
	if rec == nil {
		return adapter.Record{}, false, nil
	}
	return *rec, true, nil
}

func (e *Engine) toShared(rec adapter.Record, ok bool, sys adapter.System) (*model.TaskRecord, error) {
	if !ok {
		return nil, nil
	}
	shared, err := e.Table.ToShared(rec, sys)
	if err != nil {
		return nil, err
	}
	return &shared, nil
}

func indexRecords(records []adapter.Record) map[string]adapter.Record {
	out := make(map[string]adapter.Record, len(records))
	for _, rec := range records {
		out[rec.ID] = rec
	}
	return out
}

// takeRecord removes and returns a record, leaving the map holding only
// unlinked records afterwards.
func takeRecord(byID map[string]adapter.Record, id string) (adapter.Record, bool) {
	rec, ok := byID[id]
	if ok {
		delete(byID, id)
	}
	return rec, ok
}
