package refine

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/sells-group/prospect-match/internal/explain"
	"github.com/sells-group/prospect-match/internal/model"
	"github.com/sells-group/prospect-match/internal/ranker"
)

// validate judges the top candidates concurrently and blends every
// successful judgment into the candidate's total score. Each goroutine
// writes only its own result slot; candidates are merged after all calls
// settle. It returns the re-sorted candidates and the number judged.
func (e *Engine) validate(ctx context.Context, prospect model.ProfileAnalysis, profile model.InputProfile, cands []model.MatchCandidate) ([]model.MatchCandidate, int) {
	n := len(cands)
	if n > MaxJudged {
		n = MaxJudged
	}
	results := make([]*model.CandidateJudgment, n)

	limit := rate.Inf
	if e.opts.Stagger > 0 {
		limit = rate.Every(e.opts.Stagger)
	}
	limiter := rate.NewLimiter(limit, 1)

	var g errgroup.Group
	for i := 0; i < n; i++ {
		if err := limiter.Wait(ctx); err != nil {
			break
		}
		customer := cands[i].Customer
		g.Go(func() error {
			defer func() {
				if p := recover(); p != nil {
					zap.L().Error("refine: judge panicked",
						zap.String("company", customer.Company()),
						zap.Any("panic", p),
					)
					results[i] = nil
				}
			}()
			results[i] = e.judge.JudgeCandidate(ctx, prospect, customer, e.opts.JudgeTimeout)
			return nil
		})
	}
	_ = g.Wait()

	out := make([]model.MatchCandidate, len(cands))
	copy(out, cands)
	judged := 0
	for i, j := range results {
		if j == nil {
			continue
		}
		judged++
		out[i] = e.blend(out[i], profile, j)
	}
	ranker.SortCandidates(out)

	zap.L().Debug("refine: validated candidates",
		zap.Int("requested", n),
		zap.Int("judged", judged),
	)
	return out, judged
}

// blend folds a judgment into a candidate. The local score is kept so a
// later blend never compounds.
func (e *Engine) blend(c model.MatchCandidate, profile model.InputProfile, j *model.CandidateJudgment) model.MatchCandidate {
	rel := j.Relevance
	insight := *j
	c.AIScore = &rel
	c.AIInsight = &insight
	c.TotalScore = ranker.Clamp(e.opts.BlendRatio*rel + (1-e.opts.BlendRatio)*c.LocalScore)
	c.Explanation = explain.Explain(c.Scores, c.Customer, profile, &insight)
	if c.BelowThreshold {
		c.Explanation = ranker.LowScorePrefix + c.Explanation
	}
	return c
}
