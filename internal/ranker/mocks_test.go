package ranker_test

import (
	"context"
	"encoding/json"

	"vrlearn.app/beacon/common/llm"
	"vrlearn.app/beacon/internal/model"
)

type mockLLM struct {
	chatFn func(ctx context.Context, req llm.Request, result any) (*llm.Response, error)
	calls  []llm.Request
}

func (m *mockLLM) Chat(ctx context.Context, req llm.Request, result any) (*llm.Response, error) {
	m.calls = append(m.calls, req)
	if m.chatFn != nil {
		return m.chatFn(ctx, req, result)
	}
	return &llm.Response{}, nil
}

func (m *mockLLM) Model() string { return "test-model" }

// respondWith unmarshals canned JSON into the schema-typed result, the same
// way the real client decodes a structured completion.
func respondWith(raw string) func(ctx context.Context, req llm.Request, result any) (*llm.Response, error) {
	return func(_ context.Context, _ llm.Request, result any) (*llm.Response, error) {
		if err := json.Unmarshal([]byte(raw), result); err != nil {
			return nil, err
		}
		return &llm.Response{PromptTokens: 120, CompletionTokens: 40}, nil
	}
}

type mockRankEventStore struct {
	createFn func(ctx context.Context, event *model.RankEvent) error
	captured []*model.RankEvent
}

func (m *mockRankEventStore) Create(ctx context.Context, event *model.RankEvent) error {
	m.captured = append(m.captured, event)
	if m.createFn != nil {
		return m.createFn(ctx, event)
	}
	return nil
}
