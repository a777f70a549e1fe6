package persist

import (
	"context"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stridepath/server/internal/ability"
)

// JournalEntry is one recorded ability lifecycle event.
type JournalEntry struct {
	ID         string
	Actor      string
	Kind       string // ability.EventKind name
	Key        string
	Class      string
	Instigator string
	Reason     string
	Cause      string
	From       string
	To         string
	At         time.Time
}

// NewJournalEntry stamps ev for actor with a fresh time-ordered ID.
func NewJournalEntry(actor string, ev ability.Event, at time.Time) JournalEntry {
	e := JournalEntry{
		ID:         ulid.MustNew(ulid.Timestamp(at), ulid.DefaultEntropy()).String(),
		Actor:      actor,
		Kind:       ev.Kind.String(),
		Key:        ev.Key,
		Class:      ev.Class,
		Instigator: ev.Instigator,
		Cause:      ev.Cause.String(),
		From:       ev.From.String(),
		To:         ev.To.String(),
		At:         at,
	}
	if ev.Kind == ability.EventDisabled {
		e.Reason = ev.Reason.String()
	}
	return e
}

type JournalRepo struct {
	db *DB
}

func NewJournalRepo(db *DB) *JournalRepo {
	return &JournalRepo{db: db}
}

// Append writes a batch of entries in a single transaction.
func (r *JournalRepo) Append(ctx context.Context, entries []JournalEntry) error {
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
			`INSERT INTO ability_journal (id, actor, kind, ability_key, class, instigator, reason, cause, from_slide, to_slide, at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
			e.ID, e.Actor, e.Kind, e.Key, e.Class, e.Instigator, e.Reason, e.Cause, e.From, e.To, e.At,
		); err != nil {
			return fmt.Errorf("journal insert: %w", err)
		}
	}

	return tx.Commit(ctx)
}

// Recent returns the newest entries for actor, newest first.
func (r *JournalRepo) Recent(ctx context.Context, actor string, limit int) ([]JournalEntry, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT id, actor, kind, ability_key, class, instigator, reason, cause, from_slide, to_slide, at
		 FROM ability_journal WHERE actor = $1 ORDER BY id DESC LIMIT $2`, actor, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []JournalEntry
	for rows.Next() {
		var e JournalEntry
		if err := rows.Scan(
			&e.ID, &e.Actor, &e.Kind, &e.Key, &e.Class, &e.Instigator,
			&e.Reason, &e.Cause, &e.From, &e.To, &e.At,
		); err != nil {
			return nil, err
		}
		result = append(result, e)
	}
	return result, rows.Err()
}

// Prune deletes entries older than cutoff.
func (r *JournalRepo) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM ability_journal WHERE at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("journal prune: %w", err)
	}
	return tag.RowsAffected(), nil
}
