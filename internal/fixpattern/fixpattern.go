// Package fixpattern implements the Fix Pattern Library (C11): a learned
// corpus mapping error signatures to fixes that previously resolved them,
// consulted by the Repair Engine (C10) as a fast path before falling back
// to LLM-driven repair. Grounded on the teacher's store/learned_store.go
// (pattern accumulation with success-rate bookkeeping) and
// store/local_cold.go (low-value-record archival), both re-expressed here
// on top of the shared internal/store artifact table instead of a
// separate bespoke schema.
package fixpattern

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"kernelforge/internal/config"
	"kernelforge/internal/logging"
	"kernelforge/internal/store"
)

// Pattern is one learned error-signature-to-fix mapping.
type Pattern struct {
	ID             string
	ErrorSignature string
	Language       string
	Diff           string
	SuccessCount   int
	FailureCount   int
	LastUsedAt     time.Time
}

// SuccessRate returns the pattern's observed success fraction, or 0 if it
// has never been applied.
func (p Pattern) SuccessRate() float64 {
	total := p.SuccessCount + p.FailureCount
	if total == 0 {
		return 0
	}
	return float64(p.SuccessCount) / float64(total)
}

type patternMeta struct {
	ErrorSignature string    `json:"error_signature"`
	Language       string    `json:"language"`
	SuccessCount   int       `json:"success_count"`
	FailureCount   int       `json:"failure_count"`
	LastUsedAt     time.Time `json:"last_used_at"`
}

// Library looks up and records fix patterns on top of the shared artifact
// store (C1), using an embedding engine for semantic signature matching
// when an exact signature hash misses.
type Library struct {
	store     *store.Store
	embedder  embedder
	threshold float64
}

type embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// New builds a fix pattern library. embedder may be nil, in which case
// Lookup only matches exact error signatures.
func New(s *store.Store, e embedder, cfg config.RepairConfig) *Library {
	return &Library{store: s, embedder: e, threshold: cfg.FixPatternSuccessThreshold}
}

// signatureTag derives a stable, short tag for an error signature so
// exact matches are a tag lookup rather than a full scan.
func signatureTag(sig string) string {
	h := sha256.Sum256([]byte(sig))
	return "sig:" + hex.EncodeToString(h[:])[:16]
}

// Lookup returns fix patterns for errorSignature ordered by success rate
// (highest first, ties broken by most recent use), trying an exact signature match first and, if embedder is configured
// and nothing matched, falling back to semantic similarity search.
func (l *Library) Lookup(ctx context.Context, errorSignature string, limit int) ([]Pattern, error) {
	log := logging.Get(logging.CategoryFixPattern)

	exact, err := l.store.FindByTags(ctx, store.KindFixPattern, []string{signatureTag(errorSignature)}, limit)
	if err != nil {
		return nil, fmt.Errorf("fixpattern: exact lookup: %w", err)
	}
	if len(exact) > 0 || l.embedder == nil {
		log.Debugw("fix pattern exact lookup", "signature", errorSignature, "hits", len(exact))
		return sortByRate(artifactsToPatterns(exact)), nil
	}

	vec, err := l.embedder.Embed(ctx, errorSignature)
	if err != nil {
		return nil, fmt.Errorf("fixpattern: embed signature: %w", err)
	}
	matches, err := l.store.FindSimilar(ctx, store.KindFixPattern, vec, limit)
	if err != nil {
		return nil, fmt.Errorf("fixpattern: semantic lookup: %w", err)
	}

	out := make([]Pattern, 0, len(matches))
	for _, m := range matches {
		out = append(out, artifactToPattern(m.Artifact))
	}
	log.Debugw("fix pattern semantic lookup", "signature", errorSignature, "hits", len(out))
	return sortByRate(out), nil
}

// sortByRate orders patterns by success rate descending, then by
// LastUsedAt descending.
func sortByRate(ps []Pattern) []Pattern {
	sort.SliceStable(ps, func(i, j int) bool {
		if ri, rj := ps[i].SuccessRate(), ps[j].SuccessRate(); ri != rj {
			return ri > rj
		}
		return ps[i].LastUsedAt.After(ps[j].LastUsedAt)
	})
	return ps
}

// Record stores the outcome of applying diff to errorSignature, creating
// a new pattern on first use or updating an existing one's success/failure
// counters otherwise.
func (l *Library) Record(ctx context.Context, errorSignature, language, diff string, success bool) error {
	tag := signatureTag(errorSignature)
	existing, err := l.store.FindByTags(ctx, store.KindFixPattern, []string{tag}, 1)
	if err != nil {
		return fmt.Errorf("fixpattern: record lookup: %w", err)
	}

	var meta patternMeta
	id := ""
	if len(existing) > 0 {
		id = existing[0].ID
		_ = json.Unmarshal([]byte(existing[0].Metadata["pattern"]), &meta)
	} else {
		meta = patternMeta{ErrorSignature: errorSignature, Language: language}
	}

	if success {
		meta.SuccessCount++
	} else {
		meta.FailureCount++
	}
	meta.LastUsedAt = time.Now().UTC()

	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("fixpattern: marshal meta: %w", err)
	}

	_, err = l.store.Store(ctx, store.Artifact{
		ID:       id,
		Kind:     store.KindFixPattern,
		Content:  diff,
		Tags:     []string{tag, "lang:" + language},
		Metadata: map[string]string{"pattern": string(metaJSON)},
	})
	if err != nil {
		return fmt.Errorf("fixpattern: record store: %w", err)
	}

	logging.Get(logging.CategoryFixPattern).Infow("recorded fix outcome",
		"signature", errorSignature, "success", success, "success_count", meta.SuccessCount, "failure_count", meta.FailureCount)
	return nil
}

// PruneLanguage removes patterns tagged with the given language that have
// accumulated at least minAttempts outcomes but whose success rate has
// fallen below the configured threshold — the archival half of the
// teacher's local_cold.go pattern, applied here to signatures rather than
// whole conversation records. Intended to be invoked per known language by
// a periodic cron task (C3) rather than scanning the whole library at once.
func (l *Library) PruneLanguage(ctx context.Context, language string, minAttempts int) (int, error) {
	candidates, err := l.store.FindByTags(ctx, store.KindFixPattern, []string{"lang:" + language}, 0)
	if err != nil {
		return 0, fmt.Errorf("fixpattern: prune lookup: %w", err)
	}

	pruned := 0
	for _, a := range candidates {
		p := artifactToPattern(a)
		total := p.SuccessCount + p.FailureCount
		if total < minAttempts || p.SuccessRate() >= l.threshold {
			continue
		}
		if err := l.store.Delete(ctx, a.ID); err != nil {
			return pruned, fmt.Errorf("fixpattern: prune delete %s: %w", a.ID, err)
		}
		pruned++
	}

	logging.Get(logging.CategoryFixPattern).Infow("pruned stale fix patterns", "language", language, "pruned", pruned)
	return pruned, nil
}

func artifactsToPatterns(artifacts []store.Artifact) []Pattern {
	out := make([]Pattern, 0, len(artifacts))
	for _, a := range artifacts {
		out = append(out, artifactToPattern(a))
	}
	return out
}

func artifactToPattern(a store.Artifact) Pattern {
	var meta patternMeta
	_ = json.Unmarshal([]byte(a.Metadata["pattern"]), &meta)
	return Pattern{
		ID:             a.ID,
		ErrorSignature: meta.ErrorSignature,
		Language:       meta.Language,
		Diff:           a.Content,
		SuccessCount:   meta.SuccessCount,
		FailureCount:   meta.FailureCount,
		LastUsedAt:     meta.LastUsedAt,
	}
}
