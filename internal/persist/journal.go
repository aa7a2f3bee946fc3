package persist

import (
	"context"
	"fmt"
)

// JournalEntry is one recorded session event.
type JournalEntry struct {
	Session string
	Tick    uint64
	Kind    string // "player_joined", "player_left", "master_changed", "ownership_changed", "session_ready"
	Player  int32
	Other   int32 // previous master for master_changed
	Entity  string
	Detail  string
}

type JournalRepo struct {
	db *DB
}

func NewJournalRepo(db *DB) *JournalRepo {
	return &JournalRepo{db: db}
}

// Write appends a batch of entries in a single transaction.
func (r *JournalRepo) Write(ctx context.Context, entries []JournalEntry) error {
	if len(entries) == 0 {
		return nil
	}
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("journal begin: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, e := range entries {
		if _, err := tx.Exec(ctx,
			`INSERT INTO session_journal (session, tick, kind, player_id, other_id, entity, detail)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			e.Session, int64(e.Tick), e.Kind, e.Player, e.Other, e.Entity, e.Detail,
		); err != nil {
			return fmt.Errorf("journal insert: %w", err)
		}
	}

	return tx.Commit(ctx)
}

// Count returns the number of entries recorded for a session.
func (r *JournalRepo) Count(ctx context.Context, session string) (int64, error) {
	var n int64
	err := r.db.Pool.QueryRow(ctx,
		`SELECT count(*) FROM session_journal WHERE session = $1`, session,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("journal count: %w", err)
	}
	return n, nil
}

// Truncate removes a session's entries; used when a session name is reused.
func (r *JournalRepo) Truncate(ctx context.Context, session string) error {
	_, err := r.db.Pool.Exec(ctx, `DELETE FROM session_journal WHERE session = $1`, session)
	return err
}
