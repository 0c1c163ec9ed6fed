// Package skillindex adapts the Typesense skill collection to the narrow
// lookup contract the retriever needs. The index is advisory: if it is
// unreachable or empty, lookups return nothing and the retriever falls back
// to course matching alone.
package skillindex

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/typesense/typesense-go/v4/typesense"
	"github.com/typesense/typesense-go/v4/typesense/api"
	"github.com/typesense/typesense-go/v4/typesense/api/pointer"

	"vrlearn.app/beacon/internal/model"
)

// Index is the skill lookup contract consumed by the retriever.
type Index interface {
	// FindRelatedSkills returns up to topK skill names nearest to the query
	// in embedding space, deduplicated, nearest first. Empty on any backend
	// failure, never an error.
	FindRelatedSkills(ctx context.Context, query string, topK int) []string

	// FindNearestFromCandidates restricts the search to the given candidate
	// names and applies minSimilarity as a hard floor. Used only for
	// semantic bridging.
	FindNearestFromCandidates(ctx context.Context, query string, candidates []string, topK int, minSimilarity float64) []model.SkillSimilarity
}

type Config struct {
	URL           string
	APIKey        string
	Collection    string
	MinSimilarity float64
}

type index struct {
	client *typesense.Client
	cfg    Config
}

func New(cfg Config) Index {
	client := typesense.NewClient(
		typesense.WithServer(cfg.URL),
		typesense.WithAPIKey(cfg.APIKey),
		typesense.WithConnectionTimeout(5*time.Second),
	)
	return &index{client: client, cfg: cfg}
}

func (i *index) FindRelatedSkills(ctx context.Context, query string, topK int) []string {
	if topK <= 0 {
		topK = 10
	}

	hits := i.search(ctx, query, topK, "")

	seen := make(map[string]bool, len(hits))
	names := make([]string, 0, len(hits))
	for _, hit := range hits {
		if hit.Similarity < i.cfg.MinSimilarity {
			continue
		}
		if seen[hit.Name] {
			continue
		}
		seen[hit.Name] = true
		names = append(names, hit.Name)
	}
	return names
}

func (i *index) FindNearestFromCandidates(ctx context.Context, query string, candidates []string, topK int, minSimilarity float64) []model.SkillSimilarity {
	if len(candidates) == 0 {
		return nil
	}
	if topK <= 0 {
		topK = 5
	}

	hits := i.search(ctx, query, topK, buildCandidateFilter(candidates))

	var out []model.SkillSimilarity
	seen := make(map[string]bool, len(hits))
	for _, hit := range hits {
		if hit.Similarity < minSimilarity {
			continue
		}
		if seen[hit.Name] {
			continue
		}
		seen[hit.Name] = true
		out = append(out, hit)
	}
	return out
}

// search runs one semantic query and maps hits to name+similarity pairs.
// Backend failures are logged and swallowed: an unreachable index must never
// fail a recommendation request.
func (i *index) search(ctx context.Context, query string, topK int, filterBy string) []model.SkillSimilarity {
	start := time.Now()

	params := &api.SearchCollectionParams{
		Q:             pointer.String(query),
		QueryBy:       pointer.String("embedding"),
		PerPage:       pointer.Int(topK),
		ExcludeFields: pointer.String("embedding"),
	}
	if filterBy != "" {
		params.FilterBy = pointer.String(filterBy)
	}

	result, err := i.client.Collection(i.cfg.Collection).Documents().Search(ctx, params)
	if err != nil {
		slog.WarnContext(ctx, "skill index unreachable, degrading to empty result",
			"collection", i.cfg.Collection,
			"error", err)
		return nil
	}
	if result.Hits == nil {
		return nil
	}

	hits := make([]model.SkillSimilarity, 0, len(*result.Hits))
	for _, hit := range *result.Hits {
		name, similarity, ok := mapHit(hit)
		if !ok {
			continue
		}
		hits = append(hits, model.SkillSimilarity{Name: name, Similarity: similarity})
	}

	slog.DebugContext(ctx, "skill index search completed",
		"collection", i.cfg.Collection,
		"hits", len(hits),
		"duration_ms", time.Since(start).Milliseconds())

	return hits
}

func mapHit(hit api.SearchResultHit) (string, float64, bool) {
	if hit.Document == nil {
		return "", 0, false
	}
	doc := *hit.Document
	name, _ := doc["name"].(string)
	if name == "" {
		return "", 0, false
	}
	return name, similarityFromHit(hit), true
}

// similarityFromHit converts Typesense's cosine vector distance into a
// similarity in [0, 1]. Hits with no distance (non-vector matches) count as
// fully similar so they are never dropped by the floor.
func similarityFromHit(hit api.SearchResultHit) float64 {
	if hit.VectorDistance == nil {
		return 1.0
	}
	return 1.0 - float64(*hit.VectorDistance)
}

// buildCandidateFilter renders a Typesense filter restricting hits to the
// given skill names. Names are backtick-quoted so multi-word skills survive.
func buildCandidateFilter(candidates []string) string {
	quoted := make([]string, 0, len(candidates))
	for _, c := range candidates {
		if c == "" {
			continue
		}
		quoted = append(quoted, fmt.Sprintf("`%s`", c))
	}
	return "name:=[" + strings.Join(quoted, ",") + "]"
}
