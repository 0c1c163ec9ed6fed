package service_test

import (
	"context"
	"errors"
	"fmt"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"vrlearn.app/beacon/internal/model"
	"vrlearn.app/beacon/internal/service"
)

func apps(n int) []model.AppMatch {
	out := make([]model.AppMatch, n)
	for i := range out {
		out[i] = model.AppMatch{
			Name:            fmt.Sprintf("App %d", i),
			MatchedSkills:   []string{fmt.Sprintf("skill %d", i%3)},
			Score:           float64(n - i),
			RetrievalSource: model.SourceSkillMatch,
		}
	}
	return out
}

var _ = Describe("RecommendationService", func() {
	var (
		ctx context.Context
		ret *mockRetriever
		rnk *mockRanker
		svc service.RecommendationService
	)

	BeforeEach(func() {
		ctx = context.Background()
		ret = &mockRetriever{}
		rnk = &mockRanker{}
		svc = service.New(ret, rnk, nil)
	})

	It("over-fetches at twice the requested size", func() {
		_, err := svc.Recommend(ctx, "anatomy", 5)
		Expect(err).NotTo(HaveOccurred())
		Expect(ret.gotTopK).To(Equal(10))
	})

	It("defaults topK when the caller passes zero", func() {
		_, err := svc.Recommend(ctx, "anatomy", 0)
		Expect(err).NotTo(HaveOccurred())
		Expect(ret.gotTopK).To(Equal(service.DefaultTopK * 2))
	})

	It("truncates to topK while reporting the pre-truncation count", func() {
		ret.retrieveFn = func(_ context.Context, _ string, _ int) ([]model.AppMatch, error) {
			return apps(7), nil
		}

		result, err := svc.Recommend(ctx, "anatomy", 3)
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Apps).To(HaveLen(3))
		Expect(result.TotalMatches).To(Equal(7))
	})

	It("ranks the full candidate set before truncating", func() {
		ret.retrieveFn = func(_ context.Context, _ string, _ int) ([]model.AppMatch, error) {
			return apps(6), nil
		}
		var rankedCount int
		rnk.rankFn = func(_ context.Context, _ string, in []model.AppMatch) []model.AppMatch {
			rankedCount = len(in)
			return in
		}

		_, err := svc.Recommend(ctx, "anatomy", 3)
		Expect(err).NotTo(HaveOccurred())
		Expect(rankedCount).To(Equal(6))
	})

	It("unions matched skills across returned apps, deduplicated and sorted", func() {
		ret.retrieveFn = func(_ context.Context, _ string, _ int) ([]model.AppMatch, error) {
			return []model.AppMatch{
				{Name: "A", MatchedSkills: []string{"python basics", "debugging"}},
				{Name: "B", MatchedSkills: []string{"debugging", "algorithms"}},
			}, nil
		}

		result, err := svc.Recommend(ctx, "programming", 8)
		Expect(err).NotTo(HaveOccurred())
		Expect(result.MatchedSkills).To(Equal([]string{"algorithms", "debugging", "python basics"}))
	})

	It("returns a valid empty result when retrieval finds nothing", func() {
		rnk.understandFn = func(_ context.Context, query string) string {
			return "Learning interest: " + query
		}

		result, err := svc.Recommend(ctx, "quantum basket weaving", 8)
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Apps).NotTo(BeNil())
		Expect(result.Apps).To(BeEmpty())
		Expect(result.MatchedSkills).NotTo(BeNil())
		Expect(result.TotalMatches).To(BeZero())
		Expect(result.QueryUnderstanding).To(Equal("Learning interest: quantum basket weaving"))
	})

	It("carries the query understanding through to the result", func() {
		rnk.understandFn = func(_ context.Context, _ string) string {
			return "The student wants VR anatomy practice."
		}
		ret.retrieveFn = func(_ context.Context, _ string, _ int) ([]model.AppMatch, error) {
			return apps(1), nil
		}

		result, err := svc.Recommend(ctx, "anatomy", 8)
		Expect(err).NotTo(HaveOccurred())
		Expect(result.QueryUnderstanding).To(Equal("The student wants VR anatomy practice."))
	})

	It("propagates a retrieval failure", func() {
		ret.retrieveFn = func(_ context.Context, _ string, _ int) ([]model.AppMatch, error) {
			return nil, errors.New("graph unreachable")
		}

		_, err := svc.Recommend(ctx, "anatomy", 8)
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("graph unreachable"))
	})
})
