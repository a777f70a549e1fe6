package persist

import (
	"context"
	"fmt"

	"github.com/stridepath/server/internal/ability"
)

// AbilitySnapshot is the persisted grant of one ability to an actor.
type AbilitySnapshot struct {
	Key   string
	Class string
	State string
	Slide string
}

// SnapshotOf captures every ability in sys.
func SnapshotOf(sys *ability.System) []AbilitySnapshot {
	abilities := sys.Abilities()
	out := make([]AbilitySnapshot, 0, len(abilities))
	for _, a := range abilities {
		out = append(out, AbilitySnapshot{
			Key:   a.Key(),
			Class: a.Kind(),
			State: a.State().String(),
			Slide: a.Slide().String(),
		})
	}
	return out
}

type SnapshotRepo struct {
	db *DB
}

func NewSnapshotRepo(db *DB) *SnapshotRepo {
	return &SnapshotRepo{db: db}
}

// Save replaces the stored snapshot of actor in a single transaction.
func (r *SnapshotRepo) Save(ctx context.Context, actor string, snaps []AbilitySnapshot) error {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("snapshot begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM ability_snapshots WHERE actor = $1`, actor); err != nil {
		return fmt.Errorf("snapshot clear: %w", err)
	}
	for _, s := range snaps {
		if _, err := tx.Exec(ctx,
			`INSERT INTO ability_snapshots (actor, ability_key, class, state, slide, saved_at)
			 VALUES ($1, $2, $3, $4, $5, NOW())`,
			actor, s.Key, s.Class, s.State, s.Slide,
		); err != nil {
			return fmt.Errorf("snapshot insert: %w", err)
		}
	}

	return tx.Commit(ctx)
}

// Load returns the stored snapshot of actor in key order.
func (r *SnapshotRepo) Load(ctx context.Context, actor string) ([]AbilitySnapshot, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT ability_key, class, state, slide FROM ability_snapshots
		 WHERE actor = $1 ORDER BY ability_key`, actor,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []AbilitySnapshot
	for rows.Next() {
		var s AbilitySnapshot
		if err := rows.Scan(&s.Key, &s.Class, &s.State, &s.Slide); err != nil {
			return nil, err
		}
		result = append(result, s)
	}
	return result, rows.Err()
}
