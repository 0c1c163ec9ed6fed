// Package ranker attaches human-readable justifications to retrieved
// candidates and paraphrases query intent, via a pluggable LLM backend.
// Every backend failure degrades to deterministic defaults: ranking never
// blocks delivery of candidates.
package ranker

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"vrlearn.app/beacon/common/id"
	"vrlearn.app/beacon/common/llm"
	"vrlearn.app/beacon/internal/model"
	"vrlearn.app/beacon/internal/store"
)

// DefaultReasoning is attached to any candidate the backend did not cover.
const DefaultReasoning = "Matches your learning interests"

type Config struct {
	MaxTokens int
	Timeout   time.Duration
}

// Ranker generates per-candidate reasoning and query understanding. A nil
// LLM client disables the backend entirely; a nil event store disables the
// audit log. Both degrade, neither errors.
type Ranker struct {
	llm    llm.Client
	events store.RankEventStore
	cfg    Config
}

func New(client llm.Client, events store.RankEventStore, cfg Config) *Ranker {
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 1024
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 20 * time.Second
	}
	return &Ranker{llm: client, events: events, cfg: cfg}
}

// rankingsPayload is the grammar the backend must produce: a JSON object
// with a rankings array of name/reasoning pairs. Anything else is treated as
// "no rankings" and every candidate gets the default reasoning.
type rankingsPayload struct {
	Rankings []rankingEntry `json:"rankings"`
}

type rankingEntry struct {
	Name      string `json:"name" jsonschema_description:"Exact app name from the candidate list"`
	Reasoning string `json:"reasoning" jsonschema_description:"One short sentence explaining why this app fits the query"`
}

type understandingPayload struct {
	Summary string `json:"summary" jsonschema_description:"One sentence describing what the user wants to learn"`
}

// RankAndExplain attaches a reasoning string to every candidate. Input order
// is preserved; the ranker never re-sorts. All failure modes (disabled
// backend, transport error, unusable payload) resolve to DefaultReasoning
// for the affected candidates.
func (r *Ranker) RankAndExplain(ctx context.Context, query string, apps []model.AppMatch) []model.AppMatch {
	if len(apps) == 0 {
		return apps
	}
	if r.llm == nil {
		return applyRankings(apps, nil)
	}

	ctx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()

	var payload rankingsPayload
	req := llm.Request{
		SystemPrompt: rankSystemPrompt,
		UserPrompt:   buildRankPrompt(query, apps),
		SchemaName:   "app_rankings",
		Schema:       llm.GenerateSchema[rankingsPayload](),
		MaxTokens:    r.cfg.MaxTokens,
		Temperature:  llm.Temp(0.3),
	}

	start := time.Now()
	resp, err := r.llm.Chat(ctx, req, &payload)
	latency := time.Since(start)

	if err != nil {
		slog.WarnContext(ctx, "llm ranking failed, applying default reasoning",
			"candidates", len(apps),
			"error", err)
		r.recordEvent(ctx, query, len(apps), false, latency, nil)
		return applyRankings(apps, nil)
	}

	r.recordEvent(ctx, query, len(apps), true, latency, resp)

	byName := make(map[string]string, len(payload.Rankings))
	for _, entry := range payload.Rankings {
		if entry.Name == "" || entry.Reasoning == "" {
			continue
		}
		byName[entry.Name] = entry.Reasoning
	}

	return applyRankings(apps, byName)
}

// UnderstandQuery produces a one-sentence paraphrase of the query intent.
// Independent of retrieval; its failure never blocks a recommendation.
func (r *Ranker) UnderstandQuery(ctx context.Context, query string) string {
	fallback := "Learning interest: " + query
	if r.llm == nil {
		return fallback
	}

	ctx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()

	var payload understandingPayload
	req := llm.Request{
		SystemPrompt: "You summarize what a student wants to learn. Reply with a single sentence.",
		UserPrompt:   fmt.Sprintf("Summarize this learning query in one sentence: %q", query),
		SchemaName:   "query_understanding",
		Schema:       llm.GenerateSchema[understandingPayload](),
		MaxTokens:    100,
		Temperature:  llm.Temp(0),
	}

	if _, err := r.llm.Chat(ctx, req, &payload); err != nil {
		slog.WarnContext(ctx, "query understanding failed, using fallback", "error", err)
		return fallback
	}
	if strings.TrimSpace(payload.Summary) == "" {
		return fallback
	}
	return payload.Summary
}

func (r *Ranker) recordEvent(ctx context.Context, query string, candidateCount int, parseOK bool, latency time.Duration, resp *llm.Response) {
	if r.events == nil {
		return
	}

	event := &model.RankEvent{
		ID:             id.New(),
		Query:          query,
		Model:          r.llm.Model(),
		CandidateCount: candidateCount,
		ParseOK:        parseOK,
	}
	ms := int(latency.Milliseconds())
	event.LatencyMs = &ms
	if resp != nil {
		event.PromptTokens = &resp.PromptTokens
		event.CompletionTokens = &resp.CompletionTokens
	}

	// Audit writes survive request cancellation; they are bounded instead.
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	if err := r.events.Create(writeCtx, event); err != nil {
		slog.WarnContext(ctx, "rank event write failed", "error", err)
	}
}

// applyRankings copies the candidates with reasoning attached. A nil or
// partial rankings map falls back to DefaultReasoning per candidate, bridge
// candidates included.
func applyRankings(apps []model.AppMatch, byName map[string]string) []model.AppMatch {
	out := make([]model.AppMatch, len(apps))
	for i, app := range apps {
		if reasoning, ok := byName[app.Name]; ok {
			app.Reasoning = reasoning
		} else {
			app.Reasoning = DefaultReasoning
		}
		out[i] = app
	}
	return out
}

const rankSystemPrompt = "You are a VR learning app recommendation expert. " +
	"For each candidate app, write one short sentence explaining why it fits the user's learning goal. " +
	"When a candidate carries a bridge note, weave that note into the explanation " +
	"(for example: no exact match, but relevant because it develops a closely related skill)."

// buildRankPrompt renders the candidate list for the backend. Bridge
// candidates carry their explanation so the model can reference it.
func buildRankPrompt(query string, apps []model.AppMatch) string {
	var b strings.Builder
	fmt.Fprintf(&b, "User query: %q\n\nCandidate VR apps:\n", query)
	for _, app := range apps {
		fmt.Fprintf(&b, "- %s (%s): matches %s", app.Name, app.Category, strings.Join(app.MatchedSkills, ", "))
		if app.RetrievalSource == model.SourceSemanticBridge {
			note := app.BridgeExplanation
			if note == "" {
				note = "Indirect match"
			}
			fmt.Fprintf(&b, " [Note: %s]", note)
		}
		b.WriteString("\n")
	}
	b.WriteString("\nReturn a reasoning for every app, keyed by its exact name.")
	return b.String()
}
