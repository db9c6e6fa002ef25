package judge

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/prospect-match/internal/config"
	"github.com/sells-group/prospect-match/internal/resilience"
	"github.com/sells-group/prospect-match/pkg/anthropic"
	"github.com/sells-group/prospect-match/pkg/gemini"
)

// AnthropicBackend sends prompts to the Anthropic Messages API.
type AnthropicBackend struct {
	client      anthropic.Client
	model       string
	maxTokens   int64
	temperature float64
}

// NewAnthropicBackend creates an AnthropicBackend. maxTokens caps every
// prompt's own budget.
func NewAnthropicBackend(client anthropic.Client, model string, maxTokens int64, temperature float64) *AnthropicBackend {
	return &AnthropicBackend{client: client, model: model, maxTokens: maxTokens, temperature: temperature}
}

// Name implements Backend.
func (b *AnthropicBackend) Name() string { return "anthropic" }

// Complete implements Backend.
func (b *AnthropicBackend) Complete(ctx context.Context, p Prompt) (string, error) {
	maxTokens := p.MaxTokens
	if b.maxTokens > 0 && (maxTokens <= 0 || maxTokens > b.maxTokens) {
		maxTokens = b.maxTokens
	}
	temp := b.temperature
	resp, err := b.client.Complete(ctx, anthropic.Request{
		Model:       b.model,
		MaxTokens:   maxTokens,
		System:      p.System,
		User:        p.User,
		CacheTTL:    anthropic.DefaultCacheTTL,
		Temperature: &temp,
	})
	if err != nil {
		return "", resilience.Classify(err, anthropic.StatusCode(err))
	}
	resp.Usage.Log(b.model, string(p.Kind))
	if resp.Truncated() {
		return "", eris.Errorf("anthropic: %s response truncated at %d tokens", p.Kind, maxTokens)
	}
	return resp.Text, nil
}

// GeminiBackend sends prompts to the Gemini API in JSON mode.
type GeminiBackend struct {
	client      gemini.Client
	model       string
	temperature float32
}

// NewGeminiBackend creates a GeminiBackend.
func NewGeminiBackend(client gemini.Client, model string, temperature float64) *GeminiBackend {
	return &GeminiBackend{client: client, model: model, temperature: float32(temperature)}
}

// Name implements Backend.
func (b *GeminiBackend) Name() string { return "gemini" }

// Complete implements Backend.
func (b *GeminiBackend) Complete(ctx context.Context, p Prompt) (string, error) {
	temp := b.temperature
	text, err := b.client.GenerateJSON(ctx, gemini.Request{
		Model:           b.model,
		System:          p.System,
		Prompt:          p.User,
		MaxOutputTokens: int32(p.MaxTokens),
		Temperature:     &temp,
	})
	if err != nil {
		return "", resilience.Classify(err, gemini.StatusCode(err))
	}
	return text, nil
}

// FromConfig builds the configured Judge. Provider "none" (or empty) returns
// a nil Judge, which disables AI refinement.
func FromConfig(ctx context.Context, cfg config.JudgeConfig) (Judge, error) {
	var backend Backend
	switch cfg.Provider {
	case "", "none":
		return nil, nil
	case "anthropic":
		if cfg.Anthropic.Key == "" {
			return nil, eris.New("judge: anthropic key is required")
		}
		backend = NewAnthropicBackend(anthropic.NewClient(cfg.Anthropic.Key), cfg.Anthropic.Model, int64(cfg.Anthropic.MaxTokens), cfg.Temperature)
	case "gemini":
		if cfg.Gemini.Key == "" {
			return nil, eris.New("judge: gemini key is required")
		}
		client, err := gemini.NewClient(ctx, gemini.Options{APIKey: cfg.Gemini.Key})
		if err != nil {
			return nil, eris.Wrap(err, "judge: gemini client")
		}
		backend = NewGeminiBackend(client, cfg.Gemini.Model, cfg.Temperature)
	default:
		return nil, eris.Errorf("judge: unknown provider %q", cfg.Provider)
	}

	policy := resilience.NewPolicy(
		resilience.FromRetryConfig(cfg.Retry.MaxAttempts, cfg.Retry.InitialBackoffMs, cfg.Retry.MaxBackoffMs),
		resilience.FromCircuitConfig(backend.Name(), cfg.Circuit.FailureThreshold, cfg.Circuit.ResetTimeoutSecs),
	)
	return New(backend, Options{Policy: policy}), nil
}
