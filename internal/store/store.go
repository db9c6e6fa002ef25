// Package store persists finished match runs and derives learned patterns
// from the high-scoring ones.
package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/sells-group/prospect-match/internal/config"
	"github.com/sells-group/prospect-match/internal/model"
)

// ErrRunNotFound is returned by GetRun for an unknown id.
var ErrRunNotFound = eris.New("store: run not found")

// Defaults for list queries.
const (
	DefaultListLimit    = 50
	DefaultPatternLimit = 20
)

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	MinScore float64 `json:"min_score,omitempty"`
	Limit    int     `json:"limit,omitempty"`
	Offset   int     `json:"offset,omitempty"`
}

// Store defines the persistence interface for match history.
type Store interface {
	// SaveRun inserts a run and its ranked matches. An empty ID or zero
	// CreatedAt is filled in.
	SaveRun(ctx context.Context, run *model.Run) error
	GetRun(ctx context.Context, id string) (*model.Run, error)
	// ListRuns returns runs newest first, without their full result.
	ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error)
	// ListPatterns returns the newest runs scoring above
	// model.LearnedPatternThreshold.
	ListPatterns(ctx context.Context, limit int) ([]model.LearnedPattern, error)

	Migrate(ctx context.Context) error
	Close() error
}

// NewRun builds the persisted form of a finished search.
func NewRun(description string, poolSize int, useAI bool, res *model.MatchResult) model.Run {
	return model.Run{
		ID:          res.RunID,
		Description: description,
		PoolSize:    poolSize,
		UseAI:       useAI,
		TopScore:    res.TopScore(),
		Iterations:  res.Iterations,
		FinalStage:  res.FinalStage,
		Result:      res,
	}
}

// Open creates the store selected by cfg.
func Open(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	switch cfg.Driver {
	case "sqlite":
		return NewSQLite(cfg.DatabaseURL)
	case "postgres":
		return NewPostgres(ctx, cfg.DatabaseURL, poolConfig(cfg))
	default:
		return nil, eris.Errorf("store: unknown driver %q", cfg.Driver)
	}
}

// poolConfig returns the pool sizing of cfg, or nil when none is set.
func poolConfig(cfg config.StoreConfig) *PoolConfig {
	if cfg.MaxConns == 0 && cfg.MinConns == 0 {
		return nil
	}
	return &PoolConfig{MaxConns: cfg.MaxConns, MinConns: cfg.MinConns}
}

// prepare fills in the generated fields of a run before insert.
func prepare(run *model.Run) {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}
	if run.Result != nil {
		run.Result.RunID = run.ID
	}
}

func listLimit(n, def int) int {
	if n <= 0 {
		return def
	}
	return n
}

// matchRow is one ranked match as stored in run_matches.
type matchRow struct {
	Rank       int
	Company    string
	Sector     string
	TotalScore float64
	AIScore    *float64
}

func matchRows(run *model.Run) []matchRow {
	if run.Result == nil {
		return nil
	}
	out := make([]matchRow, len(run.Result.Matches))
	for i, m := range run.Result.Matches {
		out[i] = matchRow{
			Rank:       i + 1,
			Company:    m.Customer.Company(),
			Sector:     m.Customer.Sector(),
			TotalScore: m.TotalScore,
			AIScore:    m.AIScore,
		}
	}
	return out
}

func patternFrom(id string, iterations int, score float64, topMatch string, createdAt time.Time) model.LearnedPattern {
	p := model.PatternFromRun(model.Run{
		ID:         id,
		Iterations: iterations,
		TopScore:   score,
		CreatedAt:  createdAt,
	})
	p.TopMatch = topMatch
	return p
}
