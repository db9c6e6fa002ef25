// Package refine runs the AI-assisted refinement loop around local ranking:
// profile analysis, candidate validation with blended scores, and query
// broadening when the judged matches are poor.
package refine

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/prospect-match/internal/extract"
	"github.com/sells-group/prospect-match/internal/judge"
	"github.com/sells-group/prospect-match/internal/model"
	"github.com/sells-group/prospect-match/internal/ranker"
)

// StatusSink receives status events synchronously and in order. It is never
// called after Run returns.
type StatusSink func(model.StatusEvent)

// Request is one search.
type Request struct {
	Description string
	Pool        []model.CustomerRecord
	UseAI       bool
	Sink        StatusSink
}

// Engine runs searches. It holds no per-search state and is safe for
// concurrent use.
type Engine struct {
	judge     judge.Judge
	extractor *extract.Extractor
	ranker    *ranker.Ranker
	opts      Options
	now       func() time.Time
}

// New creates an Engine. A nil judge disables AI refinement.
func New(j judge.Judge, opts Options) *Engine {
	return &Engine{
		judge:     j,
		extractor: extract.New(nil),
		ranker:    ranker.New(nil),
		opts:      opts.normalized(),
		now:       time.Now,
	}
}

// loopResult is what the loop goroutine hands back.
type loopResult struct {
	state   model.SearchState
	errored bool
}

// Run executes a search. It never fails: judge outages degrade to local
// scores, the global deadline finalizes with the latest snapshot, and a
// panic finalizes with partial results at stage error.
func (e *Engine) Run(ctx context.Context, req Request) *model.MatchResult {
	start := e.now()
	rec := &recorder{sink: req.Sink, now: e.now}

	gctx, cancel := context.WithTimeout(ctx, e.opts.GlobalTimeout)
	defer cancel()

	var latest atomic.Pointer[model.SearchState]
	initial := model.NewSearchState(req.Description)
	latest.Store(&initial)

	r := &run{engine: e, req: req, rec: rec, latest: &latest}
	done := make(chan loopResult, 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				zap.L().Error("refine: recovered panic",
					zap.Any("panic", p),
					zap.Stack("stack"),
				)
				done <- loopResult{state: *latest.Load(), errored: true}
			}
		}()
		done <- loopResult{state: r.loop(gctx)}
	}()

	var res loopResult
	select {
	case res = <-done:
	case <-gctx.Done():
		rec.seal()
		select {
		case res = <-done:
		default:
			res = loopResult{state: *latest.Load()}
		}
	}
	rec.seal()
	// A loop that returned because the deadline cut it short counts as timed out.
	timedOut := gctx.Err() != nil && !res.errored

	return e.finalize(req, res, timedOut, rec, e.now().Sub(start))
}

// run carries the per-search state of the loop goroutine.
type run struct {
	engine *Engine
	req    Request
	rec    *recorder
	latest *atomic.Pointer[model.SearchState]
}

// publish stores a snapshot and emits its status as an event.
func (r *run) publish(s model.SearchState, progress float64) {
	r.store(s)
	st := s.Status()
	zap.L().Info("refine: stage",
		zap.String("stage", string(st.Stage)),
		zap.Int("iteration", s.Iteration()),
		zap.String("message", st.Message),
	)
	r.rec.emit(model.StatusEvent{
		Stage:             st.Stage,
		Message:           st.Message,
		Progress:          progress,
		Iteration:         s.Iteration(),
		InProgress:        st.InProgress,
		LowQualityWarning: s.LowQuality(),
	})
}

func (r *run) store(s model.SearchState) {
	r.latest.Store(&s)
}

func (r *run) loop(ctx context.Context) model.SearchState {
	e := r.engine
	desc := r.req.Description

	state := model.NewSearchState(desc)
	r.publish(state, 0.1)

	if strings.TrimSpace(desc) == "" || len(r.req.Pool) == 0 {
		return state
	}

	profile := e.extractor.Extract(desc)
	ranking := e.ranker.Rank(profile, r.req.Pool)
	state = state.WithRanking(desc, profile, ranking.Candidates, ranking.LowQuality())
	r.store(state)

	if !r.req.UseAI || e.judge == nil {
		return state
	}

	state = state.WithStatus(model.StageAIAnalysis, "Analyzing company profile with AI...", true)
	r.publish(state, 0.2)

	analysis := e.judge.AnalyzeProfile(ctx, desc, e.opts.AnalysisTimeout)
	if ctx.Err() != nil {
		return state
	}
	var prospect model.ProfileAnalysis
	if analysis == nil {
		state = state.WithFallback().
			WithStatus(model.StageFallback, "AI analysis unavailable, continuing with local scores...", true)
		r.publish(state, 0.25)
		prospect = model.AnalysisFromProfile(profile)
	} else {
		state = state.WithAnalysis(analysis)
		r.store(state)
		prospect = *analysis
	}

	for iter := 1; iter <= e.opts.MaxIterations; iter++ {
		state = state.WithIteration(iter).
			WithStatus(model.StageAIValidation, fmt.Sprintf("Validating top matches with AI (iteration %d)...", iter), true)
		r.publish(state, validationProgress(iter))

		cands, judged := e.validate(ctx, prospect, state.Profile(), state.Candidates())
		state = state.WithCandidates(cands)
		r.store(state)
		if ctx.Err() != nil {
			return state
		}

		if judged < QualitySample || !poorQuality(cands) || iter == e.opts.MaxIterations {
			break
		}

		state = state.WithStatus(model.StageImproving, "Match quality low, searching with alternative terms...", true)
		r.publish(state, validationProgress(iter)+0.05)

		terms := e.judge.SuggestTerms(ctx, desc, topCustomers(cands, QualitySample), e.opts.TermsTimeout)
		if terms == nil || ctx.Err() != nil {
			break
		}

		working := ExpandDescription(desc, terms)
		profile = e.extractor.Extract(working)
		ranking = e.ranker.Rank(profile, r.req.Pool)
		state = state.WithRanking(working, profile, ranking.Candidates, ranking.LowQuality())
		r.store(state)
		if analysis == nil {
			prospect = model.AnalysisFromProfile(profile)
		}
	}
	return state
}

func validationProgress(iter int) float64 {
	return 0.3 + 0.2*float64(iter-1)
}

// poorQuality reports whether any of the top candidates has an AI relevance
// below QualityRelevanceBar; an unjudged candidate counts as 0.
func poorQuality(cands []model.MatchCandidate) bool {
	for i := 0; i < len(cands) && i < QualitySample; i++ {
		rel := 0.0
		if cands[i].AIScore != nil {
			rel = *cands[i].AIScore
		}
		if rel < QualityRelevanceBar {
			return true
		}
	}
	return false
}

func topCustomers(cands []model.MatchCandidate, n int) []model.CustomerRecord {
	if len(cands) < n {
		n = len(cands)
	}
	out := make([]model.CustomerRecord, n)
	for i := 0; i < n; i++ {
		out[i] = cands[i].Customer
	}
	return out
}

// ExpandDescription appends alternative terms to the original description.
func ExpandDescription(original string, t *model.AlternativeTerms) string {
	var b strings.Builder
	b.WriteString(original)
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "Alternative sectors: %s\n", strings.Join(t.AlternativeSectors, ", "))
	fmt.Fprintf(&b, "Related activities: %s\n", strings.Join(t.AlternativeActivities, ", "))
	fmt.Fprintf(&b, "Keywords: %s\n", strings.Join(t.RelatedKeywords, ", "))
	b.WriteString(t.ExpandedDescription)
	return b.String()
}

// recorder collects events and forwards them to the sink until sealed.
type recorder struct {
	mu     sync.Mutex
	sink   StatusSink
	now    func() time.Time
	events []model.StatusEvent
	sealed bool
}

func (r *recorder) emit(ev model.StatusEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sealed {
		return
	}
	r.deliver(ev)
}

// seal drops all later loop events.
func (r *recorder) seal() {
	r.mu.Lock()
	r.sealed = true
	r.mu.Unlock()
}

// final emits an event after sealing.
func (r *recorder) final(ev model.StatusEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deliver(ev)
}

func (r *recorder) deliver(ev model.StatusEvent) {
	ev.At = r.now()
	r.events = append(r.events, ev)
	if r.sink != nil {
		r.sink(ev)
	}
}

func (r *recorder) snapshot() []model.StatusEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.StatusEvent, len(r.events))
	copy(out, r.events)
	return out
}
