package model

import "time"

// Stage is a step of the refinement loop.
type Stage string

const (
	StageBasic        Stage = "basic"
	StageAIAnalysis   Stage = "ai-analysis"
	StageFallback     Stage = "fallback"
	StageAIValidation Stage = "ai-validation"
	StageImproving    Stage = "improving"
	StageComplete     Stage = "complete"
	StageTimeout      Stage = "timeout"
	StageError        Stage = "error"
)

// Status is the progress line a caller renders while a search runs.
type Status struct {
	Stage      Stage  `json:"stage"`
	Message    string `json:"message"`
	InProgress bool   `json:"in_progress"`
}

// StatusEvent is one observable transition of a search.
type StatusEvent struct {
	Stage             Stage     `json:"stage"`
	Message           string    `json:"message"`
	Progress          float64   `json:"progress"`
	Iteration         int       `json:"iteration"`
	InProgress        bool      `json:"in_progress"`
	LowQualityWarning bool      `json:"low_quality_warning"`
	At                time.Time `json:"at"`
}

// SearchState is an immutable snapshot of a search. Every With method
// returns a new value; a published state is never modified.
type SearchState struct {
	description string
	profile     InputProfile
	analysis    *ProfileAnalysis
	candidates  []MatchCandidate
	iteration   int
	status      Status
	lowQuality  bool
	fallback    bool
}

// NewSearchState starts a search over description.
func NewSearchState(description string) SearchState {
	return SearchState{
		description: description,
		status:      Status{Stage: StageBasic, Message: "Running initial search...", InProgress: true},
	}
}

func (s SearchState) Description() string        { return s.description }
func (s SearchState) Profile() InputProfile      { return s.profile }
func (s SearchState) Iteration() int             { return s.iteration }
func (s SearchState) Status() Status             { return s.status }
func (s SearchState) LowQuality() bool           { return s.lowQuality }
func (s SearchState) Fallback() bool             { return s.fallback }
func (s SearchState) Analysis() *ProfileAnalysis { return s.analysis }

// Candidates returns a copy of the ranked candidates.
func (s SearchState) Candidates() []MatchCandidate {
	out := make([]MatchCandidate, len(s.candidates))
	copy(out, s.candidates)
	return out
}

// WithRanking replaces the working description, profile and candidates after
// a local ranking pass. The low-quality flag follows the local ranking.
func (s SearchState) WithRanking(description string, profile InputProfile, candidates []MatchCandidate, lowQuality bool) SearchState {
	s.description = description
	s.profile = profile
	s.candidates = copyCandidates(candidates)
	s.lowQuality = lowQuality
	return s
}

// WithCandidates replaces the candidates, keeping everything else.
func (s SearchState) WithCandidates(candidates []MatchCandidate) SearchState {
	s.candidates = copyCandidates(candidates)
	return s
}

// WithAnalysis attaches the judge's profile analysis.
func (s SearchState) WithAnalysis(a *ProfileAnalysis) SearchState {
	if a != nil {
		cp := *a
		s.analysis = &cp
	} else {
		s.analysis = nil
	}
	return s
}

// WithFallback marks that the AI analysis was unavailable.
func (s SearchState) WithFallback() SearchState {
	s.fallback = true
	return s
}

// WithIteration sets the current refinement iteration.
func (s SearchState) WithIteration(n int) SearchState {
	s.iteration = n
	return s
}

// WithStatus sets the current status line.
func (s SearchState) WithStatus(stage Stage, message string, inProgress bool) SearchState {
	s.status = Status{Stage: stage, Message: message, InProgress: inProgress}
	return s
}

func copyCandidates(in []MatchCandidate) []MatchCandidate {
	if in == nil {
		return nil
	}
	out := make([]MatchCandidate, len(in))
	copy(out, in)
	return out
}
