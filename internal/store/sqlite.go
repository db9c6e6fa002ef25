package store

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/prospect-match/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	description TEXT NOT NULL,
	pool_size   INTEGER NOT NULL DEFAULT 0,
	use_ai      INTEGER NOT NULL DEFAULT 0,
	top_score   REAL NOT NULL DEFAULT 0,
	iterations  INTEGER NOT NULL DEFAULT 0,
	final_stage TEXT NOT NULL DEFAULT '',
	result      TEXT,
	created_at  DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS run_matches (
	run_id      TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	rank        INTEGER NOT NULL,
	company     TEXT NOT NULL,
	sector      TEXT NOT NULL DEFAULT '',
	total_score REAL NOT NULL,
	ai_score    REAL,
	PRIMARY KEY (run_id, rank)
);

CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at);
CREATE INDEX IF NOT EXISTS idx_runs_top_score ON runs(top_score);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) SaveRun(ctx context.Context, run *model.Run) error {
	prepare(run)

	var resultJSON sql.NullString
	if run.Result != nil {
		b, err := json.Marshal(run.Result)
		if err != nil {
			return eris.Wrap(err, "sqlite: marshal result")
		}
		resultJSON = sql.NullString{String: string(b), Valid: true}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin")
	}
	defer tx.Rollback() //nolint:errcheck

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, description, pool_size, use_ai, top_score, iterations, final_stage, result, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Description, run.PoolSize, run.UseAI, run.TopScore, run.Iterations,
		string(run.FinalStage), resultJSON, run.CreatedAt,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: insert run %s", run.ID)
	}

	for _, m := range matchRows(run) {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO run_matches (run_id, rank, company, sector, total_score, ai_score) VALUES (?, ?, ?, ?, ?, ?)`,
			run.ID, m.Rank, m.Company, m.Sector, m.TotalScore, m.AIScore,
		)
		if err != nil {
			return eris.Wrapf(err, "sqlite: insert match %d of run %s", m.Rank, run.ID)
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit run")
}

func (s *SQLiteStore) GetRun(ctx context.Context, id string) (*model.Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, description, pool_size, use_ai, top_score, iterations, final_stage, result, created_at
		 FROM runs WHERE id = ?`,
		id,
	)

	var r model.Run
	var stage string
	var resultJSON sql.NullString
	err := row.Scan(&r.ID, &r.Description, &r.PoolSize, &r.UseAI, &r.TopScore, &r.Iterations, &stage, &resultJSON, &r.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, eris.Wrapf(ErrRunNotFound, "id %s", id)
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get run")
	}
	r.FinalStage = model.Stage(stage)
	if resultJSON.Valid {
		r.Result = &model.MatchResult{}
		if err := json.Unmarshal([]byte(resultJSON.String), r.Result); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal result")
		}
	}
	return &r, nil
}

func (s *SQLiteStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	query := `SELECT id, description, pool_size, use_ai, top_score, iterations, final_stage, created_at FROM runs WHERE 1=1`
	var args []any

	if filter.MinScore > 0 {
		query += ` AND top_score >= ?`
		args = append(args, filter.MinScore)
	}
	query += ` ORDER BY created_at DESC LIMIT ?`
	args = append(args, listLimit(filter.Limit, DefaultListLimit))

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close() //nolint:errcheck

	var runs []model.Run
	for rows.Next() {
		var r model.Run
		var stage string
		if err := rows.Scan(&r.ID, &r.Description, &r.PoolSize, &r.UseAI, &r.TopScore, &r.Iterations, &stage, &r.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan run")
		}
		r.FinalStage = model.Stage(stage)
		runs = append(runs, r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list runs iterate")
}

func (s *SQLiteStore) ListPatterns(ctx context.Context, limit int) ([]model.LearnedPattern, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT r.id, r.iterations, r.top_score, r.created_at, COALESCE(m.company, '')
		 FROM runs r LEFT JOIN run_matches m ON m.run_id = r.id AND m.rank = 1
		 WHERE r.top_score > ?
		 ORDER BY r.created_at DESC LIMIT ?`,
		model.LearnedPatternThreshold, listLimit(limit, DefaultPatternLimit),
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list patterns")
	}
	defer rows.Close() //nolint:errcheck

	var out []model.LearnedPattern
	for rows.Next() {
		var r model.Run
		var top string
		if err := rows.Scan(&r.ID, &r.Iterations, &r.TopScore, &r.CreatedAt, &top); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan pattern")
		}
		out = append(out, patternFrom(r.ID, r.Iterations, r.TopScore, top, r.CreatedAt))
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list patterns iterate")
}
