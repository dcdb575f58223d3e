package audit

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const defaultListLimit = 50

// Store is the SQLite-backed Recorder. The schema lives in the sqlite
// package migrations.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// NewStore returns a Store over an already migrated database.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db, now: time.Now}
}

// Record inserts inv, assigning an id and timestamp when they are empty.
func (s *Store) Record(ctx context.Context, inv Invocation) error {
	if inv.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("audit: generate id: %w", err)
		}
		inv.ID = id.String()
	}
	if inv.CreatedAt.IsZero() {
		inv.CreatedAt = s.now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tool_invocation
			(id, tool, category, location_id, credential_fingerprint, status, outcome, duration_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		inv.ID, inv.Tool, inv.Category, inv.LocationID, inv.CredentialFingerprint,
		inv.Status, string(inv.Outcome), inv.Duration.Milliseconds(), inv.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("audit: insert invocation: %w", err)
	}
	return nil
}

// ListFilter narrows ListRecent. Zero values match everything.
type ListFilter struct {
	Tool    string
	Outcome Outcome
	Limit   int
}

// ListRecent returns invocations newest first.
func (s *Store) ListRecent(ctx context.Context, f ListFilter) ([]Invocation, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, tool, category, location_id, credential_fingerprint, status, outcome, duration_ms, created_at
		FROM tool_invocation
		WHERE (? = '' OR tool = ?) AND (? = '' OR outcome = ?)
		ORDER BY created_at DESC, id DESC
		LIMIT ?`,
		f.Tool, f.Tool, string(f.Outcome), string(f.Outcome), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("audit: list invocations: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	out := make([]Invocation, 0)
	for rows.Next() {
		var (
			inv       Invocation
			outcome   string
			durMs     int64
			createdMs int64
		)
		if err := rows.Scan(&inv.ID, &inv.Tool, &inv.Category, &inv.LocationID,
			&inv.CredentialFingerprint, &inv.Status, &outcome, &durMs, &createdMs); err != nil {
			return nil, fmt.Errorf("audit: scan invocation: %w", err)
		}
		inv.Outcome = Outcome(outcome)
		inv.Duration = time.Duration(durMs) * time.Millisecond
		inv.DurationMs = durMs
		inv.CreatedAt = time.UnixMilli(createdMs).UTC()
		out = append(out, inv)
	}
	return out, rows.Err()
}

// Count returns the number of recorded invocations.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM tool_invocation").Scan(&n); err != nil {
		return 0, fmt.Errorf("audit: count invocations: %w", err)
	}
	return n, nil
}
