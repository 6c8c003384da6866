package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"brickgen/internal/diag"
	"brickgen/internal/report"

	_ "github.com/mattn/go-sqlite3"
)

// ErrRunNotFound is returned by GetRun for an unknown run ID.
var ErrRunNotFound = errors.New("run not found")

type SQLiteStore struct {
	db *sql.DB
}

var _ RunStore = (*SQLiteStore)(nil)

// NewSQLiteStore creates or opens a SQLite database.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to init schema: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) initSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			run_id TEXT PRIMARY KEY,
			repo TEXT,
			started_at TEXT,
			generated_at TEXT,
			component_count INTEGER,
			artifacts_created INTEGER,
			errors INTEGER,
			warnings INTEGER,
			components JSON,
			summary JSON
		);`,
		`CREATE TABLE IF NOT EXISTS stages (
			run_id TEXT,
			seq INTEGER,
			name TEXT,
			status TEXT,
			started_at TEXT,
			finished_at TEXT,
			duration_ms INTEGER,
			counters JSON,
			notes JSON,
			error TEXT,
			PRIMARY KEY (run_id, seq)
		);`,
		`CREATE TABLE IF NOT EXISTS diagnostics (
			run_id TEXT,
			seq INTEGER,
			stage TEXT,
			severity TEXT,
			code TEXT,
			component TEXT,
			path TEXT,
			message TEXT,
			PRIMARY KEY (run_id, seq)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);`,
		`CREATE INDEX IF NOT EXISTS idx_diagnostics_code ON diagnostics(code);`,
	}

	for _, q := range queries {
		if _, err := s.db.Exec(q); err != nil {
			return err
		}
	}
	return nil
}

// SaveRun stores a snapshot of r. Saving the same run again replaces the
// previous snapshot.
func (s *SQLiteStore) SaveRun(ctx context.Context, r *report.RunReport) error {
	if r == nil {
		return errors.New("nil run report")
	}
	components, err := json.Marshal(r.Components)
	if err != nil {
		return err
	}
	summary, err := json.Marshal(r.Summary)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	sev := r.Summary.DiagnosticsBySeverity
	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (run_id, repo, started_at, generated_at, component_count, artifacts_created, errors, warnings, components, summary)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id) DO UPDATE SET
			repo=excluded.repo,
			started_at=excluded.started_at,
			generated_at=excluded.generated_at,
			component_count=excluded.component_count,
			artifacts_created=excluded.artifacts_created,
			errors=excluded.errors,
			warnings=excluded.warnings,
			components=excluded.components,
			summary=excluded.summary
	`, r.RunID, r.Repo, r.StartedAt, r.GeneratedAt, r.Summary.ComponentCount, r.Summary.ArtifactsCreated,
		sev[string(diag.SeverityError)], sev[string(diag.SeverityWarning)], components, summary)
	if err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}

	// Replace child rows so a re-saved run never keeps stale stages.
	for _, q := range []string{"DELETE FROM stages WHERE run_id = ?", "DELETE FROM diagnostics WHERE run_id = ?"} {
		if _, err := tx.ExecContext(ctx, q, r.RunID); err != nil {
			return err
		}
	}

	stageStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO stages (run_id, seq, name, status, started_at, finished_at, duration_ms, counters, notes, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stageStmt.Close()

	for i, st := range r.Stages {
		counters, _ := json.Marshal(st.Counters)
		notes, _ := json.Marshal(st.Notes)
		if _, err := stageStmt.ExecContext(ctx, r.RunID, i, st.Name, st.Status, st.StartedAt, st.FinishedAt, st.DurationMS, counters, notes, st.Error); err != nil {
			return fmt.Errorf("failed to save stage %s: %w", st.Name, err)
		}
	}

	diagStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO diagnostics (run_id, seq, stage, severity, code, component, path, message)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer diagStmt.Close()

	for i, d := range r.Diagnostics {
		if _, err := diagStmt.ExecContext(ctx, r.RunID, i, string(d.Stage), string(d.Severity), d.Code, d.Component, d.Path, d.Message); err != nil {
			return fmt.Errorf("failed to save diagnostic: %w", err)
		}
	}

	return tx.Commit()
}

func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*report.RunReport, error) {
	r := &report.RunReport{Version: "v1", Stages: []report.StageMetric{}, Components: []report.ComponentSummary{}}
	var components, summary []byte
	row := s.db.QueryRowContext(ctx, "SELECT run_id, repo, started_at, generated_at, components, summary FROM runs WHERE run_id = ?", runID)
	if err := row.Scan(&r.RunID, &r.Repo, &r.StartedAt, &r.GeneratedAt, &components, &summary); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return nil, err
	}
	if len(components) > 0 {
		_ = json.Unmarshal(components, &r.Components)
	}
	if len(summary) > 0 {
		_ = json.Unmarshal(summary, &r.Summary)
	}

	rows, err := s.db.QueryContext(ctx, "SELECT name, status, started_at, finished_at, duration_ms, counters, notes, error FROM stages WHERE run_id = ? ORDER BY seq", runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query stages: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var st report.StageMetric
		var counters, notes []byte
		if err := rows.Scan(&st.Name, &st.Status, &st.StartedAt, &st.FinishedAt, &st.DurationMS, &counters, &notes, &st.Error); err != nil {
			return nil, fmt.Errorf("failed to scan stage: %w", err)
		}
		_ = json.Unmarshal(counters, &st.Counters)
		_ = json.Unmarshal(notes, &st.Notes)
		r.Stages = append(r.Stages, st)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	diagRows, err := s.db.QueryContext(ctx, "SELECT stage, severity, code, component, path, message FROM diagnostics WHERE run_id = ? ORDER BY seq", runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query diagnostics: %w", err)
	}
	defer diagRows.Close()

	for diagRows.Next() {
		var d diag.Diagnostic
		var stage, severity string
		if err := diagRows.Scan(&stage, &severity, &d.Code, &d.Component, &d.Path, &d.Message); err != nil {
			return nil, fmt.Errorf("failed to scan diagnostic: %w", err)
		}
		d.Stage = diag.Stage(stage)
		d.Severity = diag.Severity(severity)
		r.Diagnostics = append(r.Diagnostics, d)
	}
	return r, diagRows.Err()
}

func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, repo, started_at, generated_at, component_count, artifacts_created, errors, warnings
		FROM runs ORDER BY started_at DESC, generated_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var out []RunRecord
	for rows.Next() {
		var rec RunRecord
		if err := rows.Scan(&rec.RunID, &rec.Repo, &rec.StartedAt, &rec.GeneratedAt, &rec.Components, &rec.ArtifactsCreated, &rec.Errors, &rec.Warnings); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
