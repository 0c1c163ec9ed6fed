package model

// SkillCategory classifies a skill within the taxonomy.
type SkillCategory string

const (
	SkillCategoryTechnical SkillCategory = "technical"
	SkillCategorySoft      SkillCategory = "soft"
	SkillCategoryDomain    SkillCategory = "domain"
)

// Skill is the canonical unit of capability in the taxonomy. Skills are
// created and merged by the offline extraction pipeline; this service only
// ever reads them. Name is unique across the skill universe and aliases never
// collide with another skill's canonical name.
type Skill struct {
	Name        string        `json:"name"`
	Aliases     []string      `json:"aliases,omitempty"`
	Category    SkillCategory `json:"category"`
	SourceCount int           `json:"source_count"`
	Weight      float64       `json:"weight"`
}

// SkillSimilarity pairs a skill name with its embedding similarity to a query.
// Produced by the skill index during semantic bridging.
type SkillSimilarity struct {
	Name       string  `json:"name"`
	Similarity float64 `json:"similarity"`
}
