package retriever_test

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"vrlearn.app/beacon/common/arangodb"
	"vrlearn.app/beacon/internal/model"
	"vrlearn.app/beacon/internal/retriever"
)

func row(name string, score float64, skills ...string) arangodb.AppRow {
	return arangodb.AppRow{
		AppID:         "apps/" + name,
		Name:          name,
		Category:      "stem",
		MatchedSkills: skills,
		Score:         score,
	}
}

var _ = Describe("Retriever", func() {
	var (
		ctx   context.Context
		graph *mockGraph
		index *mockIndex
		r     retriever.Retriever
	)

	BeforeEach(func() {
		ctx = context.Background()
		graph = &mockGraph{}
		index = &mockIndex{}
		r = retriever.New(graph, index, retriever.Config{BridgeMinSimilarity: 0.35})
	})

	Describe("empty queries", func() {
		It("returns nothing for a blank query without touching the graph", func() {
			results, err := r.Retrieve(ctx, "   ", 8)
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(BeEmpty())
			Expect(graph.codeCalls).To(BeZero())
			Expect(graph.titleCalls).To(BeZero())
		})
	})

	Describe("course matching", func() {
		It("routes a code-shaped query to the exact-code lookup", func() {
			var gotCode string
			graph.appsByCourseCodeFn = func(_ context.Context, courseID string, _ int) ([]arangodb.AppRow, error) {
				gotCode = courseID
				return []arangodb.AppRow{row("CodeVR Workspace", 0.8, "python basics")}, nil
			}

			results, err := r.Retrieve(ctx, "15-112", 8)
			Expect(err).NotTo(HaveOccurred())
			Expect(gotCode).To(Equal("15-112"))
			Expect(results).To(HaveLen(1))
			Expect(results[0].Name).To(Equal("CodeVR Workspace"))
			Expect(results[0].Score).To(Equal(0.8))
			Expect(results[0].RetrievalSource).To(Equal(model.SourceCourseMatch))
			Expect(graph.titleCalls).To(BeZero())
		})

		It("extracts the code embedded in a longer query", func() {
			var gotCode string
			graph.appsByCourseCodeFn = func(_ context.Context, courseID string, _ int) ([]arangodb.AppRow, error) {
				gotCode = courseID
				return nil, nil
			}

			_, err := r.Retrieve(ctx, "apps for 15-112 please", 8)
			Expect(err).NotTo(HaveOccurred())
			Expect(gotCode).To(Equal("15-112"))
		})

		It("never falls back to title lookup for an unknown code", func() {
			graph.appsByCourseCodeFn = func(_ context.Context, _ string, _ int) ([]arangodb.AppRow, error) {
				return nil, nil
			}

			results, err := r.Retrieve(ctx, "99-999", 8)
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(BeEmpty())
			Expect(graph.codeCalls).To(Equal(1))
			Expect(graph.titleCalls).To(BeZero())
		})

		It("still surfaces skill matches when the code lookup comes up empty", func() {
			graph.appsByCourseCodeFn = func(_ context.Context, _ string, _ int) ([]arangodb.AppRow, error) {
				return nil, nil
			}
			index.findRelatedFn = func(_ context.Context, _ string, _ int) []string {
				return []string{"python basics"}
			}
			graph.appsBySkillsFn = func(_ context.Context, _ []string, _ int) ([]arangodb.AppRow, error) {
				return []arangodb.AppRow{row("CodeVR Workspace", 2.5, "python basics")}, nil
			}

			results, err := r.Retrieve(ctx, "99-999 programming", 8)
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(HaveLen(1))
			Expect(results[0].RetrievalSource).To(Equal(model.SourceSkillMatch))
			Expect(graph.titleCalls).To(BeZero())
		})

		It("routes a plain-text query to the title lookup", func() {
			var gotTitle string
			graph.appsByCourseTitleFn = func(_ context.Context, title string, _ int) ([]arangodb.AppRow, error) {
				gotTitle = title
				return []arangodb.AppRow{row("CivicsVR", 0.6, "policy analysis")}, nil
			}

			results, err := r.Retrieve(ctx, "public policy", 8)
			Expect(err).NotTo(HaveOccurred())
			Expect(gotTitle).To(Equal("public policy"))
			Expect(results).To(HaveLen(1))
			Expect(results[0].RetrievalSource).To(Equal(model.SourceCourseMatch))
			Expect(graph.codeCalls).To(BeZero())
		})
	})

	Describe("skill matching", func() {
		It("pulls apps through skills related to the query", func() {
			index.findRelatedFn = func(_ context.Context, _ string, topK int) []string {
				Expect(topK).To(Equal(15))
				return []string{"machine learning", "statistics"}
			}
			var gotSkills []string
			graph.appsBySkillsFn = func(_ context.Context, skills []string, _ int) ([]arangodb.AppRow, error) {
				gotSkills = skills
				return []arangodb.AppRow{row("ML Lab VR", 1.4, "machine learning")}, nil
			}

			results, err := r.Retrieve(ctx, "machine learning", 8)
			Expect(err).NotTo(HaveOccurred())
			Expect(gotSkills).To(Equal([]string{"machine learning", "statistics"}))
			Expect(results).To(HaveLen(1))
			Expect(results[0].RetrievalSource).To(Equal(model.SourceSkillMatch))
		})

		It("skips the graph skill lookup when the index finds nothing", func() {
			var skillCalls int
			graph.appsBySkillsFn = func(_ context.Context, _ []string, _ int) ([]arangodb.AppRow, error) {
				skillCalls++
				return nil, nil
			}
			graph.appsByCourseTitleFn = func(_ context.Context, _ string, _ int) ([]arangodb.AppRow, error) {
				return []arangodb.AppRow{row("CivicsVR", 0.6, "policy analysis")}, nil
			}

			results, err := r.Retrieve(ctx, "public policy", 8)
			Expect(err).NotTo(HaveOccurred())
			Expect(skillCalls).To(BeZero())
			Expect(results).To(HaveLen(1))
		})
	})

	Describe("candidate merging", func() {
		It("keeps the course match when skill matching finds the same app with a higher score", func() {
			graph.appsByCourseTitleFn = func(_ context.Context, _ string, _ int) ([]arangodb.AppRow, error) {
				return []arangodb.AppRow{row("CodeVR Workspace", 0.8, "python basics")}, nil
			}
			index.findRelatedFn = func(_ context.Context, _ string, _ int) []string {
				return []string{"python basics"}
			}
			graph.appsBySkillsFn = func(_ context.Context, _ []string, _ int) ([]arangodb.AppRow, error) {
				return []arangodb.AppRow{row("CodeVR Workspace", 2.5, "python basics", "debugging")}, nil
			}

			results, err := r.Retrieve(ctx, "intro programming", 8)
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(HaveLen(1))
			Expect(results[0].RetrievalSource).To(Equal(model.SourceCourseMatch))
			Expect(results[0].Score).To(Equal(0.8))
			Expect(results[0].MatchedSkills).To(Equal([]string{"python basics"}))
		})

		It("orders by score descending with ties keeping insertion order", func() {
			graph.appsByCourseTitleFn = func(_ context.Context, _ string, _ int) ([]arangodb.AppRow, error) {
				return []arangodb.AppRow{row("A", 0.5), row("B", 0.9)}, nil
			}
			index.findRelatedFn = func(_ context.Context, _ string, _ int) []string {
				return []string{"x"}
			}
			graph.appsBySkillsFn = func(_ context.Context, _ []string, _ int) ([]arangodb.AppRow, error) {
				return []arangodb.AppRow{row("C", 0.9), row("D", 1.2)}, nil
			}

			results, err := r.Retrieve(ctx, "something", 8)
			Expect(err).NotTo(HaveOccurred())

			names := make([]string, len(results))
			for i, app := range results {
				names[i] = app.Name
			}
			Expect(names).To(Equal([]string{"D", "B", "C", "A"}))
		})

		It("truncates to topK after merging", func() {
			graph.appsByCourseTitleFn = func(_ context.Context, _ string, _ int) ([]arangodb.AppRow, error) {
				return []arangodb.AppRow{row("A", 0.9), row("B", 0.8), row("C", 0.7)}, nil
			}

			results, err := r.Retrieve(ctx, "anatomy", 2)
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(HaveLen(2))
			Expect(results[0].Name).To(Equal("A"))
			Expect(results[1].Name).To(Equal("B"))
		})
	})

	Describe("degradation and failure", func() {
		It("degrades to course matching when the skill index is unreachable", func() {
			graph.appsByCourseTitleFn = func(_ context.Context, _ string, _ int) ([]arangodb.AppRow, error) {
				return []arangodb.AppRow{row("AnatomyVR", 0.7, "anatomy")}, nil
			}
			// index mocks default to nil, the unreachable-index contract

			results, err := r.Retrieve(ctx, "anatomy", 8)
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(HaveLen(1))
			Expect(results[0].RetrievalSource).To(Equal(model.SourceCourseMatch))
		})

		It("propagates a course lookup failure", func() {
			graph.appsByCourseTitleFn = func(_ context.Context, _ string, _ int) ([]arangodb.AppRow, error) {
				return nil, errors.New("connection refused")
			}

			_, err := r.Retrieve(ctx, "anatomy", 8)
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("course retrieval"))
		})

		It("propagates a skill lookup failure", func() {
			index.findRelatedFn = func(_ context.Context, _ string, _ int) []string {
				return []string{"anatomy"}
			}
			graph.appsBySkillsFn = func(_ context.Context, _ []string, _ int) ([]arangodb.AppRow, error) {
				return nil, errors.New("connection refused")
			}

			_, err := r.Retrieve(ctx, "anatomy", 8)
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("skill retrieval"))
		})
	})

	Describe("semantic bridging", func() {
		BeforeEach(func() {
			graph.activeSkillNamesFn = func(_ context.Context) ([]string, error) {
				return []string{"data visualization", "public speaking"}, nil
			}
		})

		It("bridges through the nearest active skills when both primary strategies come up empty", func() {
			var gotCandidates []string
			var gotFloor float64
			index.findNearestFn = func(_ context.Context, _ string, candidates []string, topK int, minSimilarity float64) []model.SkillSimilarity {
				gotCandidates = candidates
				gotFloor = minSimilarity
				Expect(topK).To(Equal(5))
				return []model.SkillSimilarity{
					{Name: "data visualization", Similarity: 0.62},
				}
			}
			graph.appsBySkillsFn = func(_ context.Context, skills []string, _ int) ([]arangodb.AppRow, error) {
				Expect(skills).To(Equal([]string{"data visualization"}))
				return []arangodb.AppRow{row("ChartSpace", 1.1, "data visualization")}, nil
			}

			results, err := r.Retrieve(ctx, "infographics", 8)
			Expect(err).NotTo(HaveOccurred())
			Expect(gotCandidates).To(Equal([]string{"data visualization", "public speaking"}))
			Expect(gotFloor).To(Equal(0.35))
			Expect(results).To(HaveLen(1))
			Expect(results[0].RetrievalSource).To(Equal(model.SourceSemanticBridge))
			Expect(results[0].BridgeExplanation).To(Equal(`No direct match, but related to "data visualization" (similarity 0.62)`))
		})

		It("names the strongest bridged skill when an app came through several", func() {
			index.findNearestFn = func(_ context.Context, _ string, _ []string, _ int, _ float64) []model.SkillSimilarity {
				return []model.SkillSimilarity{
					{Name: "data visualization", Similarity: 0.62},
					{Name: "public speaking", Similarity: 0.48},
				}
			}
			graph.appsBySkillsFn = func(_ context.Context, _ []string, _ int) ([]arangodb.AppRow, error) {
				return []arangodb.AppRow{row("PresentVR", 1.9, "public speaking", "data visualization")}, nil
			}

			results, err := r.Retrieve(ctx, "infographics", 8)
			Expect(err).NotTo(HaveOccurred())
			Expect(results[0].BridgeExplanation).To(ContainSubstring(`"data visualization"`))
		})

		It("does not bridge when a primary strategy produced candidates", func() {
			graph.appsByCourseTitleFn = func(_ context.Context, _ string, _ int) ([]arangodb.AppRow, error) {
				return []arangodb.AppRow{row("CivicsVR", 0.6)}, nil
			}
			index.findNearestFn = func(_ context.Context, _ string, _ []string, _ int, _ float64) []model.SkillSimilarity {
				Fail("bridge must not run when primary strategies found candidates")
				return nil
			}

			results, err := r.Retrieve(ctx, "public policy", 8)
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(HaveLen(1))
		})

		It("returns empty when no active skill clears the similarity floor", func() {
			index.findNearestFn = func(_ context.Context, _ string, _ []string, _ int, _ float64) []model.SkillSimilarity {
				return nil
			}

			results, err := r.Retrieve(ctx, "quantum basket weaving", 8)
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(BeEmpty())
		})

		It("propagates an active-skill listing failure", func() {
			graph.activeSkillNamesFn = func(_ context.Context) ([]string, error) {
				return nil, errors.New("connection refused")
			}

			_, err := r.Retrieve(ctx, "infographics", 8)
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("bridge retrieval"))
		})
	})
})
