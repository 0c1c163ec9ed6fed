// Package service orchestrates the recommendation pipeline: understand the
// query, retrieve candidates with headroom, rank, package. It is the sole
// public entry point of the core.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"vrlearn.app/beacon/common/id"
	"vrlearn.app/beacon/common/logger"
	"vrlearn.app/beacon/internal/model"
	"vrlearn.app/beacon/internal/retriever"
)

// DefaultTopK is used when the caller does not specify a result cap.
const DefaultTopK = 8

// Ranker is the slice of the ranker the service depends on.
type Ranker interface {
	RankAndExplain(ctx context.Context, query string, apps []model.AppMatch) []model.AppMatch
	UnderstandQuery(ctx context.Context, query string) string
}

// RecommendationService produces ranked, explained VR app recommendations.
type RecommendationService interface {
	Recommend(ctx context.Context, query string, topK int) (*model.RecommendationResult, error)
	Close()
}

type recommendationService struct {
	retriever retriever.Retriever
	ranker    Ranker
	cache     *Cache // nil-safe, may be disabled
	closers   []func() error
}

// New wires the pipeline. closers are released (in order) by Close and
// typically hold the pooled graph/index/cache connections.
func New(ret retriever.Retriever, ranker Ranker, cache *Cache, closers ...func() error) RecommendationService {
	return &recommendationService{
		retriever: ret,
		ranker:    ranker,
		cache:     cache,
		closers:   closers,
	}
}

// Recommend runs one query through the full pipeline.
//
// An empty candidate set is a valid outcome, not an error; only a failing
// knowledge graph propagates. The retriever is over-fetched at twice topK so
// the ranker sees headroom, and TotalMatches reports the pre-truncation
// count so callers know more were available.
func (s *recommendationService) Recommend(ctx context.Context, query string, topK int) (*model.RecommendationResult, error) {
	if topK <= 0 {
		topK = DefaultTopK
	}

	requestID := id.New()
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		RequestID: logger.Ptr(requestID),
		Query:     logger.Ptr(logger.Truncate(query, 120)),
		Component: "beacon.service",
	})

	sc := logger.StartSpan(ctx, "beacon.recommend")
	defer sc.End()
	ctx = sc.Context()

	if cached := s.cache.Get(ctx, query, topK); cached != nil {
		slog.DebugContext(ctx, "recommendation served from cache")
		return cached, nil
	}

	understanding := s.ranker.UnderstandQuery(ctx, query)

	candidates, err := s.retriever.Retrieve(ctx, query, topK*2)
	if err != nil {
		sc.RecordError(err)
		return nil, fmt.Errorf("retrieve: %w", err)
	}

	if len(candidates) == 0 {
		slog.InfoContext(ctx, "no candidates for query")
		result := &model.RecommendationResult{
			Apps:               []model.AppMatch{},
			QueryUnderstanding: understanding,
			MatchedSkills:      []string{},
			TotalMatches:       0,
		}
		s.cache.Set(ctx, query, topK, result)
		return result, nil
	}

	ranked := s.ranker.RankAndExplain(ctx, query, candidates)
	if len(ranked) > topK {
		ranked = ranked[:topK]
	}

	result := &model.RecommendationResult{
		Apps:               ranked,
		QueryUnderstanding: understanding,
		MatchedSkills:      unionSkills(ranked),
		TotalMatches:       len(candidates),
	}

	slog.InfoContext(ctx, "recommendation completed",
		"apps", len(result.Apps),
		"total_matches", result.TotalMatches)

	s.cache.Set(ctx, query, topK, result)
	return result, nil
}

func (s *recommendationService) Close() {
	for _, closeFn := range s.closers {
		if err := closeFn(); err != nil {
			slog.Warn("close failed", "error", err)
		}
	}
}

// unionSkills deduplicates matched skills across the returned apps. Sorted
// so identical queries yield identical results.
func unionSkills(apps []model.AppMatch) []string {
	seen := make(map[string]struct{})
	for _, app := range apps {
		for _, skill := range app.MatchedSkills {
			seen[skill] = struct{}{}
		}
	}
	skills := make([]string, 0, len(seen))
	for skill := range seen {
		skills = append(skills, skill)
	}
	sort.Strings(skills)
	return skills
}
