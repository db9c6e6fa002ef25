package refine

import (
	"time"

	"github.com/sells-group/prospect-match/internal/config"
)

// DefaultBlendRatio is the weight of the AI relevance in a blended total
// score; the local score gets the remainder.
const DefaultBlendRatio = 0.6

// Loop limits.
const (
	MaxIterations       = 3
	MaxJudged           = 5
	QualitySample       = 3
	QualityRelevanceBar = 0.4
)

// Default timeouts.
const (
	DefaultGlobalTimeout   = 60 * time.Second
	DefaultAnalysisTimeout = 15 * time.Second
	DefaultJudgeTimeout    = 10 * time.Second
	DefaultTermsTimeout    = 10 * time.Second
	DefaultStagger         = 100 * time.Millisecond
)

// Options tune an Engine.
type Options struct {
	BlendRatio      float64
	MaxIterations   int
	GlobalTimeout   time.Duration
	AnalysisTimeout time.Duration
	JudgeTimeout    time.Duration
	TermsTimeout    time.Duration
	// Stagger is the minimum gap between candidate judgment requests.
	Stagger time.Duration
}

// DefaultOptions returns the loop defaults.
func DefaultOptions() Options {
	return Options{
		BlendRatio:      DefaultBlendRatio,
		MaxIterations:   MaxIterations,
		GlobalTimeout:   DefaultGlobalTimeout,
		AnalysisTimeout: DefaultAnalysisTimeout,
		JudgeTimeout:    DefaultJudgeTimeout,
		TermsTimeout:    DefaultTermsTimeout,
		Stagger:         DefaultStagger,
	}
}

// OptionsFromConfig converts the matching config section; unset values keep
// their defaults.
func OptionsFromConfig(cfg config.MatchingConfig) Options {
	o := DefaultOptions()
	if cfg.BlendRatio > 0 && cfg.BlendRatio <= 1 {
		o.BlendRatio = cfg.BlendRatio
	}
	if cfg.MaxIterations > 0 {
		o.MaxIterations = cfg.MaxIterations
	}
	if cfg.GlobalTimeoutSecs > 0 {
		o.GlobalTimeout = time.Duration(cfg.GlobalTimeoutSecs) * time.Second
	}
	if cfg.AnalysisTimeoutSecs > 0 {
		o.AnalysisTimeout = time.Duration(cfg.AnalysisTimeoutSecs) * time.Second
	}
	if cfg.JudgeTimeoutSecs > 0 {
		o.JudgeTimeout = time.Duration(cfg.JudgeTimeoutSecs) * time.Second
	}
	if cfg.TermsTimeoutSecs > 0 {
		o.TermsTimeout = time.Duration(cfg.TermsTimeoutSecs) * time.Second
	}
	if cfg.StaggerMs >= 0 {
		o.Stagger = time.Duration(cfg.StaggerMs) * time.Millisecond
	}
	return o
}

func (o Options) normalized() Options {
	def := DefaultOptions()
	if o.BlendRatio < 0 || o.BlendRatio > 1 {
		o.BlendRatio = def.BlendRatio
	}
	if o.MaxIterations <= 0 || o.MaxIterations > MaxIterations {
		o.MaxIterations = MaxIterations
	}
	if o.GlobalTimeout <= 0 {
		o.GlobalTimeout = def.GlobalTimeout
	}
	if o.AnalysisTimeout <= 0 {
		o.AnalysisTimeout = def.AnalysisTimeout
	}
	if o.JudgeTimeout <= 0 {
		o.JudgeTimeout = def.JudgeTimeout
	}
	if o.TermsTimeout <= 0 {
		o.TermsTimeout = def.TermsTimeout
	}
	if o.Stagger < 0 {
		o.Stagger = 0
	}
	return o
}
