package arangodb

// AppRow is the typed projection of one graph query result row. Rows are
// mapped into this record immediately after the cursor read so nothing
// downstream handles raw key/value documents.
type AppRow struct {
	AppID         string
	Name          string
	Category      string
	Description   string
	MatchedSkills []string
	Score         float64
}

// Collection and edge names of the learning graph. Nodes are written by the
// offline build job; this service reads them through the named graph.
const (
	GraphName = "learninggraph"

	CollectionSkills  = "skills"
	CollectionCourses = "courses"
	CollectionApps    = "apps"

	EdgeTeaches    = "teaches"    // courses -> skills, weighted
	EdgeDevelops   = "develops"   // apps -> skills, weighted
	EdgeRecommends = "recommends" // courses -> apps, carries shared_skills + score
)
