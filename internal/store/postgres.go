package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/prospect-match/internal/db"
	"github.com/sells-group/prospect-match/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// matchColumns are the run_matches columns written with COPY.
var matchColumns = []string{"run_id", "rank", "company", "sector", "total_score", "ai_score"}

// preparedStatements lists queries to prepare on each new connection.
var preparedStatements = map[string]string{
	"insert_run": `INSERT INTO runs (id, description, pool_size, use_ai, top_score, iterations, final_stage, result, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
	"get_run": `SELECT id, description, pool_size, use_ai, top_score, iterations, final_stage, result, created_at
		FROM runs WHERE id = $1`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(1)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	description TEXT NOT NULL,
	pool_size   INTEGER NOT NULL DEFAULT 0,
	use_ai      BOOLEAN NOT NULL DEFAULT false,
	top_score   DOUBLE PRECISION NOT NULL DEFAULT 0,
	iterations  INTEGER NOT NULL DEFAULT 0,
	final_stage TEXT NOT NULL DEFAULT '',
	result      JSONB,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS run_matches (
	run_id      TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	rank        INTEGER NOT NULL,
	company     TEXT NOT NULL,
	sector      TEXT NOT NULL DEFAULT '',
	total_score DOUBLE PRECISION NOT NULL,
	ai_score    DOUBLE PRECISION,
	PRIMARY KEY (run_id, rank)
);

CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at DESC);
CREATE INDEX IF NOT EXISTS idx_runs_top_score ON runs(top_score);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) SaveRun(ctx context.Context, run *model.Run) error {
	prepare(run)

	var resultJSON []byte
	if run.Result != nil {
		b, err := json.Marshal(run.Result)
		if err != nil {
			return eris.Wrap(err, "postgres: marshal result")
		}
		resultJSON = b
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	_, err = tx.Exec(ctx,
		`INSERT INTO runs (id, description, pool_size, use_ai, top_score, iterations, final_stage, result, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		run.ID, run.Description, run.PoolSize, run.UseAI, run.TopScore, run.Iterations,
		string(run.FinalStage), resultJSON, run.CreatedAt,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: insert run %s", run.ID)
	}

	matches := matchRows(run)
	rows := make([][]any, len(matches))
	for i, m := range matches {
		rows[i] = []any{run.ID, m.Rank, m.Company, m.Sector, m.TotalScore, m.AIScore}
	}
	if _, err := db.CopyFrom(ctx, tx, "run_matches", matchColumns, rows); err != nil {
		return eris.Wrapf(err, "postgres: copy matches of run %s", run.ID)
	}

	return eris.Wrap(tx.Commit(ctx), "postgres: commit run")
}

func (s *PostgresStore) GetRun(ctx context.Context, id string) (*model.Run, error) {
	var r model.Run
	var stage string
	var resultJSON []byte

	err := s.pool.QueryRow(ctx,
		`SELECT id, description, pool_size, use_ai, top_score, iterations, final_stage, result, created_at
		 FROM runs WHERE id = $1`,
		id,
	).Scan(&r.ID, &r.Description, &r.PoolSize, &r.UseAI, &r.TopScore, &r.Iterations, &stage, &resultJSON, &r.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, eris.Wrapf(ErrRunNotFound, "id %s", id)
		}
		return nil, eris.Wrap(err, "postgres: get run")
	}
	r.FinalStage = model.Stage(stage)
	if len(resultJSON) > 0 {
		r.Result = &model.MatchResult{}
		if err := json.Unmarshal(resultJSON, r.Result); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal result")
		}
	}
	return &r, nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	query := `SELECT id, description, pool_size, use_ai, top_score, iterations, final_stage, created_at FROM runs WHERE true`
	args := []any{}
	argIdx := 1

	if filter.MinScore > 0 {
		query += fmt.Sprintf(` AND top_score >= $%d`, argIdx)
		args = append(args, filter.MinScore)
		argIdx++
	}
	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d`, argIdx)
	args = append(args, listLimit(filter.Limit, DefaultListLimit))
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		var r model.Run
		var stage string
		if err := rows.Scan(&r.ID, &r.Description, &r.PoolSize, &r.UseAI, &r.TopScore, &r.Iterations, &stage, &r.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan run")
		}
		r.FinalStage = model.Stage(stage)
		runs = append(runs, r)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: list runs iterate")
}

func (s *PostgresStore) ListPatterns(ctx context.Context, limit int) ([]model.LearnedPattern, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT r.id, r.iterations, r.top_score, r.created_at, COALESCE(m.company, '')
		 FROM runs r LEFT JOIN run_matches m ON m.run_id = r.id AND m.rank = 1
		 WHERE r.top_score > $1
		 ORDER BY r.created_at DESC LIMIT $2`,
		model.LearnedPatternThreshold, listLimit(limit, DefaultPatternLimit),
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list patterns")
	}
	defer rows.Close()

	var out []model.LearnedPattern
	for rows.Next() {
		var id, top string
		var iterations int
		var score float64
		var createdAt time.Time
		if err := rows.Scan(&id, &iterations, &score, &createdAt, &top); err != nil {
			return nil, eris.Wrap(err, "postgres: scan pattern")
		}
		out = append(out, patternFrom(id, iterations, score, top, createdAt))
	}
	return out, eris.Wrap(rows.Err(), "postgres: list patterns iterate")
}
