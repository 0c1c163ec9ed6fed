package model

import "time"

// RankEvent is an insert-only audit record of one ranking LLM call. Used for
// offline quality evaluation of generated reasoning; never read on the
// request path.
type RankEvent struct {
	ID               int64
	Query            string
	Model            string
	CandidateCount   int
	ParseOK          bool
	LatencyMs        *int
	PromptTokens     *int
	CompletionTokens *int
	CreatedAt        time.Time
}
