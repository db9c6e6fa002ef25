package refine

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/prospect-match/internal/model"
)

// Summary messages of the complete event.
const (
	summaryTimeout   = "Search completed (AI timeout)"
	summaryErrored   = "Search completed with errors"
	summaryNoMatches = "No suitable matches found"
	summaryComplete  = "Search complete"
	summaryFallback  = "Search complete (AI unavailable, local scores only)"
	summaryLowBar    = "; best match below quality bar"
)

func (e *Engine) finalize(req Request, res loopResult, timedOut bool, rec *recorder, elapsed time.Duration) *model.MatchResult {
	state := res.state
	matches := state.Candidates()
	for i := range matches {
		matches[i].Customer = matches[i].Customer.Clone()
	}

	out := &model.MatchResult{
		Outcome:    model.OutcomeMatched,
		Matches:    matches,
		Profile:    state.Profile(),
		Query:      state.Description(),
		Analysis:   state.Analysis(),
		Iterations: state.Iteration(),
		TimedOut:   timedOut,
		Errored:    res.errored,
		Fallback:   state.Fallback(),
		LowQuality: state.LowQuality(),
		Duration:   elapsed,
	}
	if out.Analysis != nil {
		out.Confidence = out.Analysis.EffectiveConfidence()
	}
	if len(matches) == 0 {
		out.Outcome = model.OutcomeNoMatches
		switch {
		case strings.TrimSpace(req.Description) == "":
			out.NoMatchReason = model.NoMatchEmptyDescription
		case len(req.Pool) == 0:
			out.NoMatchReason = model.NoMatchEmptyPool
		}
	}

	switch {
	case timedOut:
		rec.final(model.StatusEvent{
			Stage:             model.StageTimeout,
			Message:           "AI refinement timed out, showing best available results",
			Progress:          0.95,
			Iteration:         out.Iterations,
			InProgress:        true,
			LowQualityWarning: out.LowQuality,
		})
	case res.errored:
		rec.final(model.StatusEvent{
			Stage:             model.StageError,
			Message:           "Search failed, showing partial results",
			Progress:          0.95,
			Iteration:         out.Iterations,
			InProgress:        true,
			LowQualityWarning: out.LowQuality,
		})
	}

	out.FinalStage = finalStage(out, req.UseAI && e.judge != nil)
	out.Summary = summarize(out)
	rec.final(model.StatusEvent{
		Stage:             model.StageComplete,
		Message:           out.Summary,
		Progress:          1.0,
		Iteration:         out.Iterations,
		InProgress:        false,
		LowQualityWarning: out.LowQuality,
	})

	out.Events = rec.snapshot()

	zap.L().Info("refine: search finished",
		zap.String("outcome", string(out.Outcome)),
		zap.Int("matches", len(out.Matches)),
		zap.Int("iterations", out.Iterations),
		zap.Float64("top_score", out.TopScore()),
		zap.Bool("timed_out", out.TimedOut),
		zap.Bool("errored", out.Errored),
		zap.Duration("elapsed", elapsed),
	)
	return out
}

// finalStage classifies how the search ended. A search that asked for AI
// but kept no judgment on any returned match ended in fallback.
func finalStage(r *model.MatchResult, usedAI bool) model.Stage {
	switch {
	case r.TimedOut:
		return model.StageTimeout
	case r.Errored:
		return model.StageError
	case usedAI && r.Outcome == model.OutcomeMatched && !anyJudged(r.Matches):
		return model.StageFallback
	default:
		return model.StageComplete
	}
}

func anyJudged(matches []model.MatchCandidate) bool {
	for _, m := range matches {
		if m.Judged() {
			return true
		}
	}
	return false
}

func summarize(r *model.MatchResult) string {
	var s string
	switch {
	case r.TimedOut:
		s = summaryTimeout
	case r.Errored:
		s = summaryErrored
	case r.Outcome == model.OutcomeNoMatches:
		s = summaryNoMatches
	case r.FinalStage == model.StageFallback:
		s = summaryFallback
	case r.Iterations > 0:
		s = fmt.Sprintf("Search optimized via %d iteration(s)", r.Iterations)
	default:
		s = summaryComplete
	}
	if r.LowQuality {
		s += summaryLowBar
	}
	return s
}
