// Package store persists the rank event audit log. It is the only state this
// service writes anywhere; the skill/course/app universe is read-only.
package store

import (
	"context"
	"fmt"

	"vrlearn.app/beacon/core/db"
	"vrlearn.app/beacon/internal/model"
)

// RankEventStore records ranking LLM calls for offline evaluation. Writes
// are best-effort from the caller's perspective; a failed insert must never
// fail a recommendation.
type RankEventStore interface {
	Create(ctx context.Context, event *model.RankEvent) error
}

type rankEventStore struct {
	db *db.DB
}

func NewRankEventStore(database *db.DB) RankEventStore {
	return &rankEventStore{db: database}
}

const insertRankEventSQL = `
	INSERT INTO rank_events (
		id, query, model, candidate_count, parse_ok,
		latency_ms, prompt_tokens, completion_tokens
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
`

func (s *rankEventStore) Create(ctx context.Context, event *model.RankEvent) error {
	_, err := s.db.Pool().Exec(ctx, insertRankEventSQL,
		event.ID,
		event.Query,
		event.Model,
		event.CandidateCount,
		event.ParseOK,
		event.LatencyMs,
		event.PromptTokens,
		event.CompletionTokens,
	)
	if err != nil {
		return fmt.Errorf("insert rank event: %w", err)
	}
	return nil
}
