package engine

import (
	"strings"
	"time"

	"github.com/harrisonrobin/taskbridge/pkg/model"
)

// Classification is the derived change state of one link (or unmatched
// record) at the start of a cycle. Never persisted.
type Classification int

const (
	Unchanged Classification = iota
	ModifiedLocal
	ModifiedWeb
	ModifiedBoth
	CreatedLocal
	CreatedWeb
	DeletedLocal
	DeletedWeb
	DeletedBoth
)

var classificationNames = map[Classification]string{
	Unchanged:     "unchanged",
	ModifiedLocal: "modified-local-only",
	ModifiedWeb:   "modified-remote-only",
	ModifiedBoth:  "modified-both",
	CreatedLocal:  "created-local",
	CreatedWeb:    "created-remote",
	DeletedLocal:  "deleted-local",
	DeletedWeb:    "deleted-remote",
	DeletedBoth:   "deleted-both",
}

func (c Classification) String() string { return classificationNames[c] }

// Classify derives the change state for a known link. A nil record means
// the adapter no longer resolves the identifier; a record in deleted status
// is an enumerable tombstone. Modification is judged against the link's
// last-synced snapshot, never against raw timestamps, so clock skew between
// the two systems cannot fabricate edits.
func Classify(baseline model.TaskRecord, web, local *model.TaskRecord) Classification {
	webGone := isGone(web)
	localGone := isGone(local)

	switch {
	case webGone && localGone:
		return DeletedBoth
	case webGone:
		return DeletedWeb
	case localGone:
		return DeletedLocal
	}

	webModified := !web.Equal(baseline)
	localModified := !local.Equal(baseline)
	switch {
	case webModified && localModified:
		return ModifiedBoth
	case webModified:
		return ModifiedWeb
	case localModified:
		return ModifiedLocal
	}
	return Unchanged
}

func isGone(rec *model.TaskRecord) bool {
	return rec == nil || rec.Status == model.StatusDeleted
}

// candidate is an unlinked record eligible for heuristic matching. at is
// the record's creation time when the adapter reports one, otherwise its
// modification time.
type candidate struct {
	id  string
	rec model.TaskRecord
	at  time.Time
}

// matchUnlinked pairs unlinked web and local records by normalized title
// plus creation-time proximity within the window, so an old task that was
// recently edited does not capture a freshly created same-title record on
// the other side. Ambiguous titles (more than one candidate on either
// side) are left unmatched on purpose: creating two tasks is recoverable,
// merging two unrelated ones is not.
func matchUnlinked(web, local []candidate, window time.Duration) (pairs [][2]candidate, webOnly, localOnly []candidate) {
	webByTitle := groupByTitle(web)
	localByTitle := groupByTitle(local)

	matchedWeb := make(map[string]bool)
	matchedLocal := make(map[string]bool)

	for title, webGroup := range webByTitle {
		localGroup := localByTitle[title]
		if len(webGroup) != 1 || len(localGroup) != 1 {
			continue
		}
		w, l := webGroup[0], localGroup[0]
		if !withinWindow(w.at, l.at, window) {
			continue
		}
		pairs = append(pairs, [2]candidate{w, l})
		matchedWeb[w.id] = true
		matchedLocal[l.id] = true
	}

	for _, c := range web {
		if !matchedWeb[c.id] {
			webOnly = append(webOnly, c)
		}
	}
	for _, c := range local {
		if !matchedLocal[c.id] {
			localOnly = append(localOnly, c)
		}
	}
	return pairs, webOnly, localOnly
}

func groupByTitle(cands []candidate) map[string][]candidate {
	out := make(map[string][]candidate)
	for _, c := range cands {
		title := normalizeTitle(c.rec.Title)
		if title == "" {
			continue
		}
		out[title] = append(out[title], c)
	}
	return out
}

func normalizeTitle(title string) string {
	return strings.Join(strings.Fields(strings.ToLower(title)), " ")
}

func withinWindow(a, b time.Time, window time.Duration) bool {
	if a.IsZero() || b.IsZero() {
		// No timestamp to compare; title equality alone is enough only
		// when the window is disabled.
		return window <= 0
	}
	d := a.Sub(b)
	if d < 0 {
		d = -d
	}
	return d <= window
}
