package config

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
	Judge    JudgeConfig    `yaml:"judge" mapstructure:"judge"`
	Matching MatchingConfig `yaml:"matching" mapstructure:"matching"`
	Store    StoreConfig    `yaml:"store" mapstructure:"store"`
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// JudgeConfig selects and configures the external AI judge.
type JudgeConfig struct {
	// Provider is "anthropic", "gemini" or "none".
	Provider string `yaml:"provider" mapstructure:"provider"`
	// Temperature is the sampling temperature sent with every judge call.
	Temperature float64         `yaml:"temperature" mapstructure:"temperature"`
	Anthropic   AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	Gemini      GeminiConfig    `yaml:"gemini" mapstructure:"gemini"`
	Retry       RetryConfig     `yaml:"retry" mapstructure:"retry"`
	Circuit     CircuitConfig   `yaml:"circuit" mapstructure:"circuit"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key       string `yaml:"key" mapstructure:"key"`
	Model     string `yaml:"model" mapstructure:"model"`
	MaxTokens int    `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// GeminiConfig holds Gemini API settings.
type GeminiConfig struct {
	Key   string `yaml:"key" mapstructure:"key"`
	Model string `yaml:"model" mapstructure:"model"`
}

// RetryConfig configures retries of transient judge failures.
type RetryConfig struct {
	MaxAttempts      int `yaml:"max_attempts" mapstructure:"max_attempts"`
	InitialBackoffMs int `yaml:"initial_backoff_ms" mapstructure:"initial_backoff_ms"`
	MaxBackoffMs     int `yaml:"max_backoff_ms" mapstructure:"max_backoff_ms"`
}

// CircuitConfig configures the judge circuit breaker.
type CircuitConfig struct {
	FailureThreshold int `yaml:"failure_threshold" mapstructure:"failure_threshold"`
	ResetTimeoutSecs int `yaml:"reset_timeout_secs" mapstructure:"reset_timeout_secs"`
}

// MatchingConfig tunes the refinement loop.
type MatchingConfig struct {
	UseAI               bool    `yaml:"use_ai" mapstructure:"use_ai"`
	BlendRatio          float64 `yaml:"blend_ratio" mapstructure:"blend_ratio"`
	MaxIterations       int     `yaml:"max_iterations" mapstructure:"max_iterations"`
	GlobalTimeoutSecs   int     `yaml:"global_timeout_secs" mapstructure:"global_timeout_secs"`
	AnalysisTimeoutSecs int     `yaml:"analysis_timeout_secs" mapstructure:"analysis_timeout_secs"`
	JudgeTimeoutSecs    int     `yaml:"judge_timeout_secs" mapstructure:"judge_timeout_secs"`
	TermsTimeoutSecs    int     `yaml:"terms_timeout_secs" mapstructure:"terms_timeout_secs"`
	StaggerMs           int     `yaml:"stagger_ms" mapstructure:"stagger_ms"`
}

// StoreConfig configures the run history backend.
type StoreConfig struct {
	// Driver is "none", "sqlite" or "postgres".
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	// MaxConns and MinConns size the postgres pool.
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("MATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults. Keys without a default are invisible to AutomaticEnv on
	// Unmarshal, so secrets get an empty one.
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("judge.provider", "none")
	v.SetDefault("judge.temperature", 0.2)
	v.SetDefault("judge.anthropic.key", "")
	v.SetDefault("judge.anthropic.model", "claude-haiku-4-5")
	v.SetDefault("judge.anthropic.max_tokens", 1024)
	v.SetDefault("judge.gemini.key", "")
	v.SetDefault("judge.gemini.model", "gemini-2.5-flash")
	v.SetDefault("judge.retry.max_attempts", 2)
	v.SetDefault("judge.retry.initial_backoff_ms", 250)
	v.SetDefault("judge.retry.max_backoff_ms", 2000)
	v.SetDefault("judge.circuit.failure_threshold", 5)
	v.SetDefault("judge.circuit.reset_timeout_secs", 30)
	v.SetDefault("matching.use_ai", true)
	v.SetDefault("matching.blend_ratio", 0.6)
	v.SetDefault("matching.max_iterations", 3)
	v.SetDefault("matching.global_timeout_secs", 60)
	v.SetDefault("matching.analysis_timeout_secs", 15)
	v.SetDefault("matching.judge_timeout_secs", 10)
	v.SetDefault("matching.terms_timeout_secs", 10)
	v.SetDefault("matching.stagger_ms", 100)
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "prospect-match.db")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 1)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"*"})

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the settings needed by the given command mode:
// "match", "serve" or "runs".
func (c *Config) Validate(mode string) error {
	var errs []string

	switch mode {
	case "match", "serve":
		errs = append(errs, c.validateJudge()...)
		errs = append(errs, c.validateMatching()...)
		errs = append(errs, c.validateStore(false)...)
		if mode == "serve" && c.Server.Port <= 0 {
			errs = append(errs, "server.port must be > 0")
		}
	case "runs":
		errs = append(errs, c.validateStore(true)...)
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

func (c *Config) validateJudge() []string {
	var errs []string
	if c.Judge.Temperature < 0 || c.Judge.Temperature > 1 {
		errs = append(errs, "judge.temperature must be within [0,1]")
	}
	switch c.Judge.Provider {
	case "none", "":
	case "anthropic":
		if c.Judge.Anthropic.Key == "" {
			errs = append(errs, "judge.anthropic.key is required")
		}
		if c.Judge.Anthropic.MaxTokens <= 0 {
			errs = append(errs, "judge.anthropic.max_tokens must be > 0")
		}
	case "gemini":
		if c.Judge.Gemini.Key == "" {
			errs = append(errs, "judge.gemini.key is required")
		}
	default:
		errs = append(errs, fmt.Sprintf("judge.provider %q is not one of anthropic, gemini, none", c.Judge.Provider))
	}
	return errs
}

func (c *Config) validateMatching() []string {
	var errs []string
	m := c.Matching
	if m.BlendRatio < 0 || m.BlendRatio > 1 {
		errs = append(errs, "matching.blend_ratio must be within [0,1]")
	}
	if m.MaxIterations < 1 || m.MaxIterations > 3 {
		errs = append(errs, "matching.max_iterations must be between 1 and 3")
	}
	if m.GlobalTimeoutSecs <= 0 {
		errs = append(errs, "matching.global_timeout_secs must be > 0")
	}
	if m.AnalysisTimeoutSecs <= 0 || m.JudgeTimeoutSecs <= 0 || m.TermsTimeoutSecs <= 0 {
		errs = append(errs, "matching judge timeouts must be > 0")
	}
	if m.StaggerMs < 0 {
		errs = append(errs, "matching.stagger_ms must be >= 0")
	}
	return errs
}

func (c *Config) validateStore(required bool) []string {
	switch c.Store.Driver {
	case "none", "":
		if required {
			return []string{"store.driver must be sqlite or postgres"}
		}
		return nil
	case "sqlite":
		if c.Store.DatabaseURL == "" {
			return []string{"store.database_url is required"}
		}
		return nil
	case "postgres":
		var errs []string
		if c.Store.DatabaseURL == "" {
			errs = append(errs, "store.database_url is required")
		}
		if c.Store.MaxConns < 0 || c.Store.MinConns < 0 {
			errs = append(errs, "store pool sizes must be >= 0")
		}
		if c.Store.MaxConns > 0 && c.Store.MinConns > c.Store.MaxConns {
			errs = append(errs, "store.min_conns must not exceed store.max_conns")
		}
		return errs
	default:
		return []string{fmt.Sprintf("store.driver %q is not one of sqlite, postgres, none", c.Store.Driver)}
	}
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
