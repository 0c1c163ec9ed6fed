// Package retriever implements hybrid candidate generation: course matching
// against the knowledge graph, skill matching through the vector index, and
// semantic bridging when neither strategy finds anything directly.
package retriever

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"

	"vrlearn.app/beacon/common/arangodb"
	"vrlearn.app/beacon/internal/model"
	"vrlearn.app/beacon/internal/skillindex"
)

const (
	// relatedSkillLimit caps how many related skills the index is asked for
	// per query before the graph lookup.
	relatedSkillLimit = 15

	// bridgeLimit caps how many active skills a query may bridge through.
	bridgeLimit = 5
)

// courseCodePattern matches department-prefixed course codes such as 15-112.
var courseCodePattern = regexp.MustCompile(`\b(\d{2}-\d{3})\b`)

// Retriever turns a free-text query into a scored, deduplicated candidate
// list. It never ranks beyond score ordering; explanation is the ranker's
// job.
type Retriever interface {
	Retrieve(ctx context.Context, query string, topK int) ([]model.AppMatch, error)
}

type Config struct {
	// BridgeMinSimilarity is the hard floor for semantic bridging. A query
	// that is not at least this similar to any active skill produces no
	// bridge candidates.
	BridgeMinSimilarity float64
}

type retriever struct {
	graph  arangodb.Client
	skills skillindex.Index
	cfg    Config
}

func New(graph arangodb.Client, skills skillindex.Index, cfg Config) Retriever {
	return &retriever{graph: graph, skills: skills, cfg: cfg}
}

// Retrieve runs the three strategies in priority order and merges their
// output. The candidate map is keyed by app name and first writer wins:
// course_match > skill_match > semantic_bridge. Scores are never reconciled
// across strategies; whichever strategy claimed the app first keeps its
// score. Graph failures propagate (fatal for the request); index failures
// surface as empty skill lists and degrade the pipeline to course matching.
func (r *retriever) Retrieve(ctx context.Context, query string, topK int) ([]model.AppMatch, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	if topK <= 0 {
		topK = 8
	}

	candidates := newCandidateSet()

	courseApps, err := r.retrieveByCourse(ctx, query, topK)
	if err != nil {
		return nil, fmt.Errorf("course retrieval: %w", err)
	}
	for _, row := range courseApps {
		candidates.add(toAppMatch(row, model.SourceCourseMatch))
	}

	related := r.skills.FindRelatedSkills(ctx, query, relatedSkillLimit)
	if len(related) > 0 {
		skillApps, err := r.graph.AppsBySkills(ctx, related, topK)
		if err != nil {
			return nil, fmt.Errorf("skill retrieval: %w", err)
		}
		for _, row := range skillApps {
			candidates.add(toAppMatch(row, model.SourceSkillMatch))
		}
	}

	if candidates.empty() {
		if err := r.retrieveByBridge(ctx, query, topK, candidates); err != nil {
			return nil, fmt.Errorf("bridge retrieval: %w", err)
		}
	}

	results := candidates.flatten()

	slog.DebugContext(ctx, "retrieval completed",
		"candidates", len(results),
		"related_skills", len(related),
		"top_k", topK)

	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

// retrieveByCourse picks exactly one of two mutually exclusive branches: a
// code-shaped query goes to the exact-code lookup, anything else to the
// title-substring lookup. A code that is absent from the graph yields zero
// rows; the title branch is never retried for it.
func (r *retriever) retrieveByCourse(ctx context.Context, query string, topK int) ([]arangodb.AppRow, error) {
	if code := courseCodePattern.FindString(query); code != "" {
		slog.DebugContext(ctx, "course code detected", "course_id", code)
		return r.graph.AppsByCourseCode(ctx, code, topK)
	}
	return r.graph.AppsByCourseTitle(ctx, query, topK)
}

// retrieveByBridge finds the active skills nearest to the query and pulls
// apps through them. Runs only when both primary strategies came up empty.
func (r *retriever) retrieveByBridge(ctx context.Context, query string, topK int, candidates *candidateSet) error {
	active, err := r.graph.ActiveSkillNames(ctx)
	if err != nil {
		return fmt.Errorf("active skills: %w", err)
	}
	if len(active) == 0 {
		return nil
	}

	bridged := r.skills.FindNearestFromCandidates(ctx, query, active, bridgeLimit, r.cfg.BridgeMinSimilarity)
	if len(bridged) == 0 {
		return nil
	}

	similarity := make(map[string]float64, len(bridged))
	names := make([]string, 0, len(bridged))
	for _, b := range bridged {
		similarity[b.Name] = b.Similarity
		names = append(names, b.Name)
	}

	rows, err := r.graph.AppsBySkills(ctx, names, topK)
	if err != nil {
		return fmt.Errorf("apps by bridged skills: %w", err)
	}

	for _, row := range rows {
		app := toAppMatch(row, model.SourceSemanticBridge)
		app.BridgeExplanation = bridgeExplanation(row.MatchedSkills, similarity)
		candidates.add(app)
	}

	slog.DebugContext(ctx, "semantic bridge applied",
		"bridged_skills", names,
		"apps", len(rows))

	return nil
}

// bridgeExplanation names the strongest bridged skill this app came through.
func bridgeExplanation(matchedSkills []string, similarity map[string]float64) string {
	best := ""
	bestSim := -1.0
	for _, s := range matchedSkills {
		if sim, ok := similarity[s]; ok && sim > bestSim {
			best = s
			bestSim = sim
		}
	}
	if best == "" {
		return "Indirectly related to your query"
	}
	return fmt.Sprintf("No direct match, but related to %q (similarity %.2f)", best, bestSim)
}

func toAppMatch(row arangodb.AppRow, source model.Source) model.AppMatch {
	return model.AppMatch{
		AppID:           row.AppID,
		Name:            row.Name,
		Category:        row.Category,
		Description:     row.Description,
		MatchedSkills:   row.MatchedSkills,
		Score:           row.Score,
		RetrievalSource: source,
	}
}

// candidateSet merges candidates across strategies with an explicit
// first-writer-wins policy. Strategies insert in priority order, so an app
// found via course_match is never displaced by a later skill_match even when
// the skill score is higher. Insertion order is retained so that equal-score
// ties sort deterministically.
type candidateSet struct {
	byName  map[string]struct{}
	ordered []model.AppMatch
}

func newCandidateSet() *candidateSet {
	return &candidateSet{byName: make(map[string]struct{})}
}

// add inserts the candidate unless its app name is already claimed. Reports
// whether the candidate was kept.
func (s *candidateSet) add(app model.AppMatch) bool {
	if _, taken := s.byName[app.Name]; taken {
		return false
	}
	s.byName[app.Name] = struct{}{}
	s.ordered = append(s.ordered, app)
	return true
}

func (s *candidateSet) empty() bool {
	return len(s.ordered) == 0
}

// flatten returns the candidates ordered by score descending. The sort is
// stable: ties keep insertion order, which is also strategy priority order.
func (s *candidateSet) flatten() []model.AppMatch {
	out := make([]model.AppMatch, len(s.ordered))
	copy(out, s.ordered)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})
	return out
}
