// Package store implements the Semantic Artifact Store (C1): durable
// storage for every artifact the kernel produces or consumes — plans,
// synthesized functions, workflows, conversations, tool definitions, and
// fix patterns — indexed by tag and by embedding similarity.
//
// Storage is a single SQLite database (modernc.org/sqlite). When
// StoreConfig.RequireVectorIndex is set, Open also creates a vec0 virtual
// table via github.com/asg017/sqlite-vec-go-bindings and fails if that
// does not succeed; the table is neither written nor queried.
// FindSimilar always uses an in-process brute-force cosine scan over the
// artifacts table.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"kernelforge/internal/config"
	"kernelforge/internal/logging"

	sqlitevec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "modernc.org/sqlite"
)

// Store is the C1 Artifact Store: a SQLite-backed artifact table, with
// similarity search done by brute-force scan.
type Store struct {
	db         *sql.DB
	mu         sync.RWMutex
	dimensions int
	hasVecExt  bool
}

// Open creates or attaches to the database at cfg.DatabasePath and applies
// pending schema migrations.
func Open(ctx context.Context, cfg config.StoreConfig, dimensions int) (*Store, error) {
	log := logging.Get(logging.CategoryStore)

	db, err := sql.Open("sqlite", cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("store: open database: %w", err)
	}
	db.SetMaxOpenConns(1) // modernc.org/sqlite: single writer, like the teacher's pragma tuning

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("store: apply %q: %w", pragma, err)
		}
	}

	s := &Store{db: db, dimensions: dimensions}

	if err := migrate(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: migrate: %w", err)
	}

	if cfg.RequireVectorIndex {
		if err := s.enableVectorIndex(ctx, dimensions); err != nil {
			db.Close()
			return nil, fmt.Errorf("store: enable vector index: %w", err)
		}
		s.hasVecExt = true
		log.Infow("vector index enabled", "dimensions", dimensions)
	} else {
		log.Infow("running with brute-force similarity search", "dimensions", dimensions)
	}

	return s, nil
}

// enableVectorIndex logs the sqlite-vec extension version and creates the
// vec0 virtual table; FindSimilar does not use that table.
func (s *Store) enableVectorIndex(ctx context.Context, dimensions int) error {
	version, _ := sqlitevec.Version()
	logging.Get(logging.CategoryStore).Infow("sqlite-vec extension", "version", version)

	_, err := s.db.ExecContext(ctx, fmt.Sprintf(
		`CREATE VIRTUAL TABLE IF NOT EXISTS artifact_vec USING vec0(embedding float[%d])`,
		dimensions))
	return err
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}
