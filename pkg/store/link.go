package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/harrisonrobin/taskbridge/pkg/model"
)

// SyncLink ties one web task to one local task, with the baseline the next
// cycle diffs against. At most one link per (webID, localID) pair, and each
// id appears in at most one link, enforced by UNIQUE constraints.
type SyncLink struct {
	ID           string
	WebID        string
	LocalID      string
	Fingerprint  string
	LastSyncedAt time.Time
	Snapshot     model.TaskRecord
}

// NewLink builds a link with a fresh id and the record as baseline.
func NewLink(webID, localID string, snapshot model.TaskRecord, at time.Time) SyncLink {
	return SyncLink{
		ID:           uuid.NewString(),
		WebID:        webID,
		LocalID:      localID,
		Fingerprint:  snapshot.Fingerprint(),
		LastSyncedAt: at,
		Snapshot:     snapshot.Normalize(),
	}
}

// Put inserts or replaces a link in one statement, so the write is atomic
// at link granularity.
func (s *Store) Put(ctx context.Context, link SyncLink) error {
	snapshot, err := json.Marshal(link.Snapshot)
	if err != nil {
		return fmt.Errorf("encode link snapshot: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO links (id, web_id, local_id, fingerprint, last_synced_at, snapshot)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			web_id = excluded.web_id,
			local_id = excluded.local_id,
			fingerprint = excluded.fingerprint,
			last_synced_at = excluded.last_synced_at,
			snapshot = excluded.snapshot
	`,
		link.ID,
		link.WebID,
		link.LocalID,
		link.Fingerprint,
		link.LastSyncedAt.UTC().Format(time.RFC3339Nano),
		string(snapshot),
	)
	if err != nil {
		return fmt.Errorf("put link: %w", err)
	}
	return nil
}

// Delete removes a link and its conflicts.
func (s *Store) Delete(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM conflicts WHERE link_id = ?`, id); err != nil {
		return fmt.Errorf("delete link conflicts: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM links WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete link: %w", err)
	}
	return nil
}

// GetByWebID returns the link owning a web id, or nil.
func (s *Store) GetByWebID(ctx context.Context, webID string) (*SyncLink, error) {
	return s.getLink(ctx, `SELECT id, web_id, local_id, fingerprint, last_synced_at, snapshot FROM links WHERE web_id = ?`, webID)
}

// GetByLocalID returns the link owning a local id, or nil.
func (s *Store) GetByLocalID(ctx context.Context, localID string) (*SyncLink, error) {
	return s.getLink(ctx, `SELECT id, web_id, local_id, fingerprint, last_synced_at, snapshot FROM links WHERE local_id = ?`, localID)
}

func (s *Store) getLink(ctx context.Context, query, arg string) (*SyncLink, error) {
	var id, webID, localID, fp, syncedAt, snapshot string
	err := s.db.QueryRowContext(ctx, query, arg).Scan(&id, &webID, &localID, &fp, &syncedAt, &snapshot)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get link: %w", err)
	}
	link, err := parseLink(id, webID, localID, fp, syncedAt, snapshot)
	if err != nil {
		// Corrupt state: forget the link so the next cycle re-matches the
		// two records instead of diffing against a broken baseline.
		slog.Warn("dropping corrupt sync link", "link", id, "error", err)
		if delErr := s.Delete(ctx, id); delErr != nil {
			return nil, delErr
		}
		return nil, nil
	}
	return &link, nil
}

// All returns every readable link. An unreadable row is state corruption:
// the row is dropped so the next classification treats both records as
// newly created and re-matches them, instead of guessing at a baseline.
func (s *Store) All(ctx context.Context) ([]SyncLink, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, web_id, local_id, fingerprint, last_synced_at, snapshot FROM links ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list links: %w", err)
	}
	defer rows.Close()

	var links []SyncLink
	var corrupt []string
	for rows.Next() {
		var id, webID, localID, fp, syncedAt, snapshot string
		if err := rows.Scan(&id, &webID, &localID, &fp, &syncedAt, &snapshot); err != nil {
			return nil, fmt.Errorf("list links: %w", err)
		}
		link, err := parseLink(id, webID, localID, fp, syncedAt, snapshot)
		if err != nil {
			slog.Warn("dropping corrupt sync link", "link", id, "error", err)
			corrupt = append(corrupt, id)
			continue
		}
		links = append(links, link)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list links: %w", err)
	}
	rows.Close()

	for _, id := range corrupt {
		if err := s.Delete(ctx, id); err != nil {
			return nil, err
		}
	}
	return links, nil
}

func parseLink(id, webID, localID, fp, syncedAt, snapshot string) (SyncLink, error) {
	link := SyncLink{ID: id, WebID: webID, LocalID: localID, Fingerprint: fp}
	at, err := time.Parse(time.RFC3339Nano, syncedAt)
	if err != nil {
		return SyncLink{}, fmt.Errorf("bad last_synced_at %q: %w", syncedAt, err)
	}
	link.LastSyncedAt = at
	if err := json.Unmarshal([]byte(snapshot), &link.Snapshot); err != nil {
		return SyncLink{}, fmt.Errorf("bad snapshot: %w", err)
	}
	return link, nil
}

// SetLastCycle records when a cycle last completed, for `sync status`.
func (s *Store) SetLastCycle(ctx context.Context, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO meta (key, value) VALUES ('last_cycle', ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, at.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("set last cycle: %w", err)
	}
	return nil
}

// LastCycle returns the last completed cycle time, or the zero time when no
// cycle has run.
func (s *Store) LastCycle(ctx context.Context) (time.Time, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = 'last_cycle'`).Scan(&value)
	if err == sql.ErrNoRows {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("get last cycle: %w", err)
	}
	at, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("bad last cycle value %q: %w", value, err)
	}
	return at, nil
}
