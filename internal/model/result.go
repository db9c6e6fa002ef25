package model

import (
	"fmt"
	"time"
)

// Outcome classifies a finished search.
type Outcome string

const (
	OutcomeMatched   Outcome = "matched"
	OutcomeNoMatches Outcome = "no_matches"
)

// NoMatchReason explains a no_matches outcome.
type NoMatchReason string

const (
	NoMatchEmptyPool        NoMatchReason = "empty_pool"
	NoMatchEmptyDescription NoMatchReason = "empty_description"
)

// MatchResult is everything a finished search returns.
type MatchResult struct {
	Outcome       Outcome          `json:"outcome"`
	NoMatchReason NoMatchReason    `json:"no_match_reason,omitempty"`
	Matches       []MatchCandidate `json:"matches"`
	Profile       InputProfile     `json:"profile"`
	Query         string           `json:"query,omitempty"`
	Analysis      *ProfileAnalysis `json:"analysis,omitempty"`
	Confidence    float64          `json:"confidence,omitempty"`
	Events        []StatusEvent    `json:"events"`
	Iterations    int              `json:"iterations"`
	FinalStage    Stage            `json:"final_stage"`
	Summary       string           `json:"summary"`
	TimedOut      bool             `json:"timed_out"`
	Errored       bool             `json:"errored"`
	Fallback      bool             `json:"fallback"`
	LowQuality    bool             `json:"low_quality"`
	RunID         string           `json:"run_id,omitempty"`
	Duration      time.Duration    `json:"duration"`
}

// TopScore returns the best total score, or 0 when there are no matches.
func (r *MatchResult) TopScore() float64 {
	if r == nil || len(r.Matches) == 0 {
		return 0
	}
	return r.Matches[0].TotalScore
}

// Run is a persisted search.
type Run struct {
	ID          string       `json:"id"`
	Description string       `json:"description"`
	PoolSize    int          `json:"pool_size"`
	UseAI       bool         `json:"use_ai"`
	TopScore    float64      `json:"top_score"`
	Iterations  int          `json:"iterations"`
	FinalStage  Stage        `json:"final_stage"`
	Result      *MatchResult `json:"result,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
}

// LearnedPatternThreshold is the top score above which a run is kept as a
// learned pattern.
const LearnedPatternThreshold = 0.7

// LearnedPattern summarizes a high-scoring past run.
type LearnedPattern struct {
	RunID     string    `json:"run_id"`
	Pattern   string    `json:"pattern"`
	Score     float64   `json:"score"`
	TopMatch  string    `json:"top_match"`
	CreatedAt time.Time `json:"created_at"`
}

// PatternFromRun derives the learned pattern of a run.
func PatternFromRun(r Run) LearnedPattern {
	p := LearnedPattern{
		RunID:     r.ID,
		Pattern:   fmt.Sprintf("iterations:%d", r.Iterations),
		Score:     r.TopScore,
		CreatedAt: r.CreatedAt,
	}
	if r.Result != nil && len(r.Result.Matches) > 0 {
		p.TopMatch = r.Result.Matches[0].Customer.Company()
	}
	return p
}
