package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Conflict is a persisted field-level divergence surfaced to the operator.
// It stays pending until a later cycle resolves the field (or the link
// disappears), at which point it is marked resolved.
type Conflict struct {
	ID         string
	LinkID     string
	Field      string
	WebValue   string
	LocalValue string
	CreatedAt  time.Time
	ResolvedAt *time.Time
}

// PutConflict records a pending conflict. An existing pending conflict for
// the same (link, field) is replaced so re-running a cycle does not stack
// duplicates.
func (s *Store) PutConflict(ctx context.Context, c Conflict) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM conflicts WHERE link_id = ? AND field = ? AND resolved_at IS NULL`,
		c.LinkID, c.Field); err != nil {
		return fmt.Errorf("replace conflict: %w", err)
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO conflicts (id, link_id, field, web_value, local_value, created_at, resolved_at)
		VALUES (?, ?, ?, ?, ?, ?, NULL)
	`, c.ID, c.LinkID, c.Field, c.WebValue, c.LocalValue, c.CreatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("put conflict: %w", err)
	}
	return nil
}

// ResolveConflicts marks every pending conflict on a link resolved. Called
// when a cycle successfully applies a merged result for the link.
func (s *Store) ResolveConflicts(ctx context.Context, linkID string, at time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE conflicts SET resolved_at = ? WHERE link_id = ? AND resolved_at IS NULL`,
		at.UTC().Format(time.RFC3339Nano), linkID)
	if err != nil {
		return fmt.Errorf("resolve conflicts: %w", err)
	}
	return nil
}

// PendingConflicts lists unresolved conflicts, oldest first.
func (s *Store) PendingConflicts(ctx context.Context) ([]Conflict, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, link_id, field, web_value, local_value, created_at
		FROM conflicts WHERE resolved_at IS NULL ORDER BY created_at
	`)
	if err != nil {
		return nil, fmt.Errorf("list conflicts: %w", err)
	}
	defer rows.Close()

	var out []Conflict
	for rows.Next() {
		var c Conflict
		var createdAt string
		if err := rows.Scan(&c.ID, &c.LinkID, &c.Field, &c.WebValue, &c.LocalValue, &createdAt); err != nil {
			return nil, fmt.Errorf("scan conflict: %w", err)
		}
		at, err := time.Parse(time.RFC3339Nano, createdAt)
		if err != nil {
			return nil, fmt.Errorf("conflict %s: bad created_at %q: %w", c.ID, createdAt, err)
		}
		c.CreatedAt = at
		out = append(out, c)
	}
	return out, rows.Err()
}
