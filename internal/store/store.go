package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"
	_ "modernc.org/sqlite"

	"github.com/valpere/dichai/internal"
)

var ErrNotFound = errors.New("not found")

type Store struct {
	db *sql.DB
}

func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate: %w", err)
	}

	return s, nil
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS pipeline_runs (
		id TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		provider TEXT,
		model TEXT NOT NULL,
		source_text TEXT NOT NULL,
		status TEXT NOT NULL,
		refined_text TEXT,
		error TEXT,
		started_at TIMESTAMP NOT NULL,
		finished_at TIMESTAMP
	);

	-- stage_results keeps every model call made by a run, failed ones included
	CREATE TABLE IF NOT EXISTS stage_results (
		id TEXT PRIMARY KEY,
		run_id TEXT NOT NULL,
		stage TEXT NOT NULL,
		model TEXT NOT NULL,
		prompt_len INTEGER,
		output TEXT,
		latency_ms INTEGER,
		error TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (run_id) REFERENCES pipeline_runs(id)
	);

	-- kv holds saved settings and the standalone api key
	CREATE TABLE IF NOT EXISTS kv (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_runs_started ON pipeline_runs(started_at);
	CREATE INDEX IF NOT EXISTS idx_runs_source ON pipeline_runs(source_text);
	CREATE INDEX IF NOT EXISTS idx_stages_run ON stage_results(run_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// SaveRun inserts or replaces a run record.
func (s *Store) SaveRun(ctx context.Context, run internal.RunRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO pipeline_runs (id, kind, provider, model, source_text, status, refined_text, error, started_at, finished_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Kind, run.Provider, run.Model, normalizeText(run.SourceText), run.Status, run.Refined, run.Error, run.StartedAt, run.FinishedAt)
	return err
}

func (s *Store) SaveStage(ctx context.Context, st internal.StageRecord) error {
	id := fmt.Sprintf("%s_%s_%d", st.RunID, st.Stage, time.Now().UnixNano())
	createdAt := st.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO stage_results (id, run_id, stage, model, prompt_len, output, latency_ms, error, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, st.RunID, st.Stage, st.Model, st.PromptLen, st.Output, st.Latency.Milliseconds(), st.Error, createdAt)
	return err
}

// RunFilter narrows ListRuns. Zero values match everything.
type RunFilter struct {
	Status     string
	SourceText string
	Limit      int
}

// ListRuns returns runs ordered by most recent start.
func (s *Store) ListRuns(ctx context.Context, f RunFilter) ([]internal.RunRecord, error) {
	query := `SELECT id, kind, provider, model, source_text, status, refined_text, error, started_at, finished_at FROM pipeline_runs`
	var where []string
	var args []interface{}
	if f.Status != "" {
		where = append(where, `status = ?`)
		args = append(args, f.Status)
	}
	if f.SourceText != "" {
		where = append(where, `source_text = ?`)
		args = append(args, normalizeText(f.SourceText))
	}
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, ` AND `)
	}
	query += ` ORDER BY started_at DESC`
	if f.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []internal.RunRecord
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(sc scanner) (internal.RunRecord, error) {
	var r internal.RunRecord
	var provider, refined, errMsg sql.NullString
	var finished sql.NullTime
	if err := sc.Scan(&r.ID, &r.Kind, &provider, &r.Model, &r.SourceText, &r.Status, &refined, &errMsg, &r.StartedAt, &finished); err != nil {
		return r, err
	}
	r.Provider = provider.String
	r.Refined = refined.String
	r.Error = errMsg.String
	r.FinishedAt = finished.Time
	return r, nil
}

// GetRun returns a run and its stages in call order.
func (s *Store) GetRun(ctx context.Context, id string) (*internal.RunRecord, []internal.StageRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, kind, provider, model, source_text, status, refined_text, error, started_at, finished_at FROM pipeline_runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, nil, fmt.Errorf("run %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, stage, model, prompt_len, output, latency_ms, error, created_at FROM stage_results WHERE run_id = ? ORDER BY created_at, rowid`, id)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	var stages []internal.StageRecord
	for rows.Next() {
		var st internal.StageRecord
		var output, errMsg sql.NullString
		var latencyMs int64
		if err := rows.Scan(&st.RunID, &st.Stage, &st.Model, &st.PromptLen, &output, &latencyMs, &errMsg, &st.CreatedAt); err != nil {
			return nil, nil, err
		}
		st.Output = output.String
		st.Error = errMsg.String
		st.Latency = time.Duration(latencyMs) * time.Millisecond
		stages = append(stages, st)
	}
	return &run, stages, rows.Err()
}

// HistoryStats summarises recorded runs.
type HistoryStats struct {
	TotalRuns    int
	DoneRuns     int
	FailedRuns   int
	TotalStages  int
	AvgLatencyMs float64
}

func (s *Store) Stats(ctx context.Context) (*HistoryStats, error) {
	stats := &HistoryStats{}

	err := s.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN status = 'done' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'failed' THEN 1 ELSE 0 END), 0)
		FROM pipeline_runs`).Scan(
		&stats.TotalRuns,
		&stats.DoneRuns,
		&stats.FailedRuns,
	)
	if err != nil {
		return nil, err
	}

	err = s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(AVG(latency_ms), 0) FROM stage_results`).Scan(&stats.TotalStages, &stats.AvgLatencyMs)
	if err != nil {
		return nil, err
	}
	return stats, nil
}

// DeleteRun removes a run and its stages.
func (s *Store) DeleteRun(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM stage_results WHERE run_id = ?`, id); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `DELETE FROM pipeline_runs WHERE id = ?`, id)
	return err
}

// ClearHistory removes every run and stage and returns the number of runs removed.
func (s *Store) ClearHistory(ctx context.Context) (int64, error) {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM stage_results`); err != nil {
		return 0, err
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM pipeline_runs`)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Get returns the value stored under key.
func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

func (s *Store) Set(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO kv (key, value, updated_at) VALUES (?, ?, ?)`,
		key, value, time.Now())
	return err
}

func (s *Store) Remove(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, key)
	return err
}

func (s *Store) Close() error {
	return s.db.Close()
}

// normalizeText trims whitespace and applies Unicode NFC normalization
// so equal source texts compare equal.
func normalizeText(text string) string {
	return norm.NFC.String(strings.TrimSpace(text))
}
