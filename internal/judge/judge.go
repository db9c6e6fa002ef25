// Package judge asks an external language model for profile analyses,
// candidate relevance judgments and alternative search terms. Every call is
// best-effort: failures of any kind yield nil and are logged, never returned.
package judge

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/prospect-match/internal/model"
	"github.com/sells-group/prospect-match/internal/resilience"
)

// Judge is the AI capability consumed by the refinement loop. Each method
// returns nil on transport failure, non-success status, malformed response
// or timeout.
type Judge interface {
	AnalyzeProfile(ctx context.Context, description string, timeout time.Duration) *model.ProfileAnalysis
	JudgeCandidate(ctx context.Context, prospect model.ProfileAnalysis, customer model.CustomerRecord, timeout time.Duration) *model.CandidateJudgment
	SuggestTerms(ctx context.Context, description string, poor []model.CustomerRecord, timeout time.Duration) *model.AlternativeTerms
}

// Kind names the prompt shape of a call.
type Kind string

// Prompt kinds.
const (
	KindAnalysis  Kind = "analysis"
	KindCandidate Kind = "candidate"
	KindTerms     Kind = "terms"
)

// Prompt is one model request.
type Prompt struct {
	Kind      Kind
	System    string
	User      string
	MaxTokens int64
}

// Backend sends a prompt to a model provider and returns the raw text
// response. Errors should be classified with resilience.Classify so the
// retry policy can tell transient failures apart.
type Backend interface {
	Name() string
	Complete(ctx context.Context, p Prompt) (string, error)
}

// Options configure a Client.
type Options struct {
	// Policy guards backend calls. Nil calls the backend once per request.
	Policy *resilience.Policy
}

// Client implements Judge over a Backend.
type Client struct {
	backend Backend
	policy  *resilience.Policy
}

var _ Judge = (*Client)(nil)

// New creates a Client.
func New(backend Backend, opts Options) *Client {
	return &Client{backend: backend, policy: opts.Policy}
}

// AnalyzeProfile returns a structured reading of a prospect description.
func (c *Client) AnalyzeProfile(ctx context.Context, description string, timeout time.Duration) (out *model.ProfileAnalysis) {
	defer c.guard(KindAnalysis, &out)

	text, ok := c.call(ctx, analysisPrompt(description), timeout)
	if !ok {
		return nil
	}
	a, err := parseAnalysis(text)
	if err != nil {
		c.degraded(KindAnalysis, err)
		return nil
	}
	return a
}

// JudgeCandidate scores how relevant customer is as a reference for prospect.
func (c *Client) JudgeCandidate(ctx context.Context, prospect model.ProfileAnalysis, customer model.CustomerRecord, timeout time.Duration) (out *model.CandidateJudgment) {
	defer c.guard(KindCandidate, &out)

	p, err := candidatePrompt(prospect, customer)
	if err != nil {
		c.degraded(KindCandidate, err)
		return nil
	}
	text, ok := c.call(ctx, p, timeout)
	if !ok {
		return nil
	}
	j, err := parseJudgment(text)
	if err != nil {
		c.degraded(KindCandidate, err, zap.String("company", customer.Company()))
		return nil
	}
	return j
}

// SuggestTerms proposes broader search terms after a poor round of matches.
func (c *Client) SuggestTerms(ctx context.Context, description string, poor []model.CustomerRecord, timeout time.Duration) (out *model.AlternativeTerms) {
	defer c.guard(KindTerms, &out)

	text, ok := c.call(ctx, termsPrompt(description, poor), timeout)
	if !ok {
		return nil
	}
	t, err := parseTerms(text)
	if err != nil {
		c.degraded(KindTerms, err)
		return nil
	}
	return t
}

func (c *Client) call(ctx context.Context, p Prompt, timeout time.Duration) (string, bool) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	policy := c.policy
	if policy != nil {
		retry := policy.Retry
		retry.OnRetry = resilience.RetryLogger(c.backend.Name(), string(p.Kind))
		policy = &resilience.Policy{Retry: retry, Breaker: policy.Breaker}
	}

	start := time.Now()
	text, err := resilience.Call(ctx, policy, func(ctx context.Context) (string, error) {
		return c.backend.Complete(ctx, p)
	})
	if err != nil {
		c.degraded(p.Kind, err, zap.Duration("elapsed", time.Since(start)))
		return "", false
	}
	zap.L().Debug("judge: call complete",
		zap.String("provider", c.backend.Name()),
		zap.String("kind", string(p.Kind)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return text, true
}

func (c *Client) degraded(kind Kind, err error, fields ...zap.Field) {
	fields = append([]zap.Field{
		zap.String("provider", c.backend.Name()),
		zap.String("kind", string(kind)),
		zap.Error(err),
	}, fields...)
	zap.L().Warn("judge: call degraded", fields...)
}

func (c *Client) guard(kind Kind, out any) {
	r := recover()
	if r == nil {
		return
	}
	zap.L().Error("judge: recovered panic",
		zap.String("provider", c.backend.Name()),
		zap.String("kind", string(kind)),
		zap.Any("panic", r),
	)
	switch p := out.(type) {
	case **model.ProfileAnalysis:
		*p = nil
	case **model.CandidateJudgment:
		*p = nil
	case **model.AlternativeTerms:
		*p = nil
	}
}
