package model

// Source tags which retrieval strategy surfaced a candidate. Merge priority
// during candidate generation is course_match > skill_match > semantic_bridge:
// the first strategy to claim an app name keeps it.
type Source string

const (
	SourceCourseMatch    Source = "course_match"
	SourceSkillMatch     Source = "skill_match"
	SourceSemanticBridge Source = "semantic_bridge"
)

// AppMatch is a VR application surfaced for a query. It is created per
// request by the retriever, enriched with Reasoning by the ranker, and
// discarded when the request completes.
type AppMatch struct {
	AppID         string   `json:"app_id"`
	Name          string   `json:"name"`
	Category      string   `json:"category"`
	Description   string   `json:"description,omitempty"`
	MatchedSkills []string `json:"matched_skills"`
	Score         float64  `json:"score"`

	RetrievalSource Source `json:"retrieval_source"`

	// BridgeExplanation is set only for semantic_bridge candidates and names
	// the active skill the query was bridged through.
	BridgeExplanation string `json:"bridge_explanation,omitempty"`

	// Reasoning is attached by the ranker. It is the one field of a
	// recommendation that may legitimately differ between identical queries.
	Reasoning string `json:"reasoning,omitempty"`
}

// RecommendationResult is the packaged outcome of one recommend call.
type RecommendationResult struct {
	Apps []AppMatch `json:"apps"`

	// QueryUnderstanding is a one-sentence paraphrase of the query intent.
	QueryUnderstanding string `json:"query_understanding"`

	// MatchedSkills is the deduplicated union of matched skills across the
	// returned apps. Order is not significant.
	MatchedSkills []string `json:"matched_skills"`

	// TotalMatches counts candidates before truncation to top_k, so callers
	// can tell more were available.
	TotalMatches int `json:"total_matches"`
}
