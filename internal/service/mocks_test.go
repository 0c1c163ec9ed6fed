package service_test

import (
	"context"

	"vrlearn.app/beacon/internal/model"
)

type mockRetriever struct {
	retrieveFn func(ctx context.Context, query string, topK int) ([]model.AppMatch, error)

	gotQuery string
	gotTopK  int
}

func (m *mockRetriever) Retrieve(ctx context.Context, query string, topK int) ([]model.AppMatch, error) {
	m.gotQuery = query
	m.gotTopK = topK
	if m.retrieveFn != nil {
		return m.retrieveFn(ctx, query, topK)
	}
	return nil, nil
}

type mockRanker struct {
	rankFn       func(ctx context.Context, query string, apps []model.AppMatch) []model.AppMatch
	understandFn func(ctx context.Context, query string) string
}

func (m *mockRanker) RankAndExplain(ctx context.Context, query string, apps []model.AppMatch) []model.AppMatch {
	if m.rankFn != nil {
		return m.rankFn(ctx, query, apps)
	}
	return apps
}

func (m *mockRanker) UnderstandQuery(ctx context.Context, query string) string {
	if m.understandFn != nil {
		return m.understandFn(ctx, query)
	}
	return "Learning interest: " + query
}
