package resilience

import (
	"context"
	"time"
)

// FromRetryConfig converts configured values to a RetryConfig; zero values
// keep the defaults.
func FromRetryConfig(maxAttempts, initialBackoffMs, maxBackoffMs int) RetryConfig {
	cfg := DefaultRetryConfig()
	if maxAttempts > 0 {
		cfg.MaxAttempts = maxAttempts
	}
	if initialBackoffMs > 0 {
		cfg.InitialBackoff = time.Duration(initialBackoffMs) * time.Millisecond
	}
	if maxBackoffMs > 0 {
		cfg.MaxBackoff = time.Duration(maxBackoffMs) * time.Millisecond
	}
	return cfg
}

// FromCircuitConfig converts configured values to a BreakerConfig.
func FromCircuitConfig(name string, failureThreshold, resetTimeoutSecs int) BreakerConfig {
	cfg := DefaultBreakerConfig()
	cfg.Name = name
	if failureThreshold > 0 {
		cfg.FailureThreshold = failureThreshold
	}
	if resetTimeoutSecs > 0 {
		cfg.ResetTimeout = time.Duration(resetTimeoutSecs) * time.Second
	}
	return cfg
}

// Policy combines retry and circuit breaking for one provider.
type Policy struct {
	Retry   RetryConfig
	Breaker *Breaker
}

// NewPolicy builds a Policy from a retry config and breaker config.
func NewPolicy(retry RetryConfig, breaker BreakerConfig) *Policy {
	return &Policy{Retry: retry, Breaker: NewBreaker(breaker)}
}

// Call runs fn with retries inside the breaker. A nil policy calls fn once.
func Call[T any](ctx context.Context, p *Policy, fn func(ctx context.Context) (T, error)) (T, error) {
	if p == nil {
		return fn(ctx)
	}
	return ExecuteVal(ctx, p.Breaker, func(ctx context.Context) (T, error) {
		return DoVal(ctx, p.Retry, fn)
	})
}
