package store

import (
	"context"
	"math"
	"time"
)

// decayHalfLife controls how quickly an unused artifact's score fades;
// grounded on the teacher's local_cold.go cold-storage eviction pass,
// adapted here into a continuous score decay rather than a hard archive
// cutoff, per SPEC_FULL.md §12.
const decayHalfLife = 14 * 24 * time.Hour

// ApplyDecay multiplies every artifact's score by a factor that halves
// every decayHalfLife since its last use, then persists the new scores.
// It is intended to run periodically (e.g. from a background dispatcher
// task) rather than on the retrieval hot path.
func (s *Store) ApplyDecay(ctx context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx, `SELECT id, score, updated_at FROM artifacts`)
	if err != nil {
		return 0, err
	}

	type update struct {
		id    string
		score float64
	}
	var updates []update
	for rows.Next() {
		var id, updatedAt string
		var score float64
		if err := rows.Scan(&id, &score, &updatedAt); err != nil {
			rows.Close()
			return 0, err
		}
		t, err := time.Parse(time.RFC3339Nano, updatedAt)
		if err != nil {
			continue
		}
		age := now.Sub(t)
		if age <= 0 {
			continue
		}
		factor := decayFactor(age)
		updates = append(updates, update{id: id, score: score * factor})
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return 0, err
	}
	rows.Close()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	for _, u := range updates {
		if _, err := tx.ExecContext(ctx, `UPDATE artifacts SET score = ? WHERE id = ?`, u.score, u.id); err != nil {
			return 0, err
		}
	}

	return int64(len(updates)), tx.Commit()
}

func decayFactor(age time.Duration) float64 {
	halfLives := float64(age) / float64(decayHalfLife)
	return math.Pow(0.5, halfLives)
}
