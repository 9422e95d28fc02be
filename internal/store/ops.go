package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
)

// Store persists a new artifact (or overwrites one with the same ID) along
// with its tags, and returns the assigned ID.
func (s *Store) Store(ctx context.Context, a Artifact) (string, error) {
	if a.Content == "" {
		return "", ErrEmptyContent
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if len(a.Embedding) != 0 && s.dimensions != 0 && len(a.Embedding) != s.dimensions {
		return "", fmt.Errorf("%w: got %d want %d", ErrDimMismatch, len(a.Embedding), s.dimensions)
	}

	metaJSON, err := json.Marshal(a.Metadata)
	if err != nil {
		return "", fmt.Errorf("store: marshal metadata: %w", err)
	}

	now := time.Now().UTC()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	a.UpdatedAt = now
	if a.Score == 0 {
		a.Score = 1.0
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO artifacts (id, kind, content, metadata, embedding, usage_count, score, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			kind=excluded.kind, content=excluded.content, metadata=excluded.metadata,
			embedding=excluded.embedding, score=excluded.score, updated_at=excluded.updated_at`,
		a.ID, string(a.Kind), a.Content, string(metaJSON), encodeEmbedding(a.Embedding),
		a.UsageCount, a.Score, a.CreatedAt.Format(time.RFC3339Nano), a.UpdatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return "", fmt.Errorf("store: insert artifact: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM artifact_tags WHERE artifact_id = ?`, a.ID); err != nil {
		return "", err
	}
	for _, tag := range a.Tags {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO artifact_tags (artifact_id, tag) VALUES (?, ?)`, a.ID, tag); err != nil {
			return "", fmt.Errorf("store: insert tag: %w", err)
		}
	}

	return a.ID, tx.Commit()
}

// FindExact returns the artifact with the given ID.
func (s *Store) FindExact(ctx context.Context, id string) (*Artifact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `SELECT id, kind, content, metadata, embedding, usage_count, score, created_at, updated_at
		FROM artifacts WHERE id = ?`, id)
	a, err := scanArtifact(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	a.Tags, err = s.tagsFor(ctx, id)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// FindByTags returns artifacts of the given kind (kind may be "" for any)
// that carry every tag in tags.
func (s *Store) FindByTags(ctx context.Context, kind Kind, tags []string, limit int) ([]Artifact, error) {
	if len(tags) == 0 {
		return nil, fmt.Errorf("store: FindByTags requires at least one tag")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `SELECT a.id, a.kind, a.content, a.metadata, a.embedding, a.usage_count, a.score, a.created_at, a.updated_at
		FROM artifacts a
		WHERE a.id IN (
			SELECT artifact_id FROM artifact_tags WHERE tag IN (` + placeholders(len(tags)) + `)
			GROUP BY artifact_id HAVING COUNT(DISTINCT tag) = ?
		)`
	args := make([]any, 0, len(tags)+2)
	for _, t := range tags {
		args = append(args, t)
	}
	args = append(args, len(tags))
	if kind != "" {
		query += ` AND a.kind = ?`
		args = append(args, string(kind))
	}
	query += ` ORDER BY a.score DESC LIMIT ?`
	args = append(args, nonZeroLimit(limit))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: FindByTags: %w", err)
	}
	defer rows.Close()

	var out []Artifact
	for rows.Next() {
		a, err := scanArtifactRows(rows)
		if err != nil {
			return nil, err
		}
		a.Tags, _ = s.tagsFor(ctx, a.ID)
		out = append(out, *a)
	}
	return out, rows.Err()
}

// FindSimilar returns the k nearest artifacts to query by embedding
// distance, optionally restricted to one kind. Matches whose distances are
// within 1e-3 of each other are ordered by usage count, highest first.
func (s *Store) FindSimilar(ctx context.Context, kind Kind, query []float32, k int) ([]SimilarityMatch, error) {
	if len(query) == 0 {
		return nil, fmt.Errorf("store: FindSimilar requires a non-empty query vector")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	sqlQuery := `SELECT id, kind, content, metadata, embedding, usage_count, score, created_at, updated_at FROM artifacts WHERE embedding IS NOT NULL`
	args := []any{}
	if kind != "" {
		sqlQuery += ` AND kind = ?`
		args = append(args, string(kind))
	}

	rows, err := s.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("store: FindSimilar: %w", err)
	}
	defer rows.Close()

	var matches []SimilarityMatch
	for rows.Next() {
		a, err := scanArtifactRows(rows)
		if err != nil {
			return nil, err
		}
		matches = append(matches, SimilarityMatch{Artifact: *a, Distance: cosineDistance(query, a.Embedding)})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if math.Abs(matches[i].Distance-matches[j].Distance) <= 1e-3 {
			return matches[i].Artifact.UsageCount > matches[j].Artifact.UsageCount
		}
		return matches[i].Distance < matches[j].Distance
	})
	if k > 0 && len(matches) > k {
		matches = matches[:k]
	}
	for i := range matches {
		matches[i].Artifact.Tags, _ = s.tagsFor(ctx, matches[i].Artifact.ID)
	}
	return matches, nil
}

// IncrementUsage bumps an artifact's usage counter, used by retrieval
// paths to track how often an artifact is actually reused (feeds the
// score-decay/re-ranking pass in decay.go).
func (s *Store) IncrementUsage(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`UPDATE artifacts SET usage_count = usage_count + 1, updated_at = ? WHERE id = ?`,
		time.Now().UTC().Format(time.RFC3339Nano), id)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a single artifact and its tags.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM artifacts WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ClearKind removes every artifact of the given kind, e.g. to wipe stale
// conversation artifacts between sessions.
func (s *Store) ClearKind(ctx context.Context, kind Kind) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM artifacts WHERE kind = ?`, string(kind))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *Store) tagsFor(ctx context.Context, id string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT tag FROM artifact_tags WHERE artifact_id = ? ORDER BY tag`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tags []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		tags = append(tags, t)
	}
	return tags, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanArtifact(row *sql.Row) (*Artifact, error)     { return scanInto(row) }
func scanArtifactRows(rows *sql.Rows) (*Artifact, error) { return scanInto(rows) }

func scanInto(sc scanner) (*Artifact, error) {
	var (
		a                    Artifact
		kind, metaJSON       string
		embeddingBlob        []byte
		createdAt, updatedAt string
	)
	if err := sc.Scan(&a.ID, &kind, &a.Content, &metaJSON, &embeddingBlob, &a.UsageCount, &a.Score, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	a.Kind = Kind(kind)
	if metaJSON != "" {
		if err := json.Unmarshal([]byte(metaJSON), &a.Metadata); err != nil {
			return nil, fmt.Errorf("store: unmarshal metadata: %w", err)
		}
	}
	if len(embeddingBlob) > 0 {
		a.Embedding = decodeEmbedding(embeddingBlob)
	}
	a.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	a.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)
	return &a, nil
}

func placeholders(n int) string {
	out := ""
	for i := 0; i < n; i++ {
		if i > 0 {
			out += ","
		}
		out += "?"
	}
	return out
}

func nonZeroLimit(limit int) int {
	if limit <= 0 {
		return 100
	}
	return limit
}
