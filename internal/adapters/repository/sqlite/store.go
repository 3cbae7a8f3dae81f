// Package sqlite persists calibration runs and configuration versions in
// SQLite. A partial unique index on running runs makes Begin the mutual
// exclusion point for every process sharing the database file.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	"github.com/okian/tradeval/internal/adapters/repository"
	"github.com/okian/tradeval/internal/adapters/repository/sqlite/migrations"
	"github.com/okian/tradeval/internal/domain/model"
)

// Store implements repository.RunStore and repository.ConfigStore.
type Store struct {
	db *sql.DB
}

var (
	_ repository.RunStore    = (*Store)(nil)
	_ repository.ConfigStore = (*Store)(nil)
)

func toMillis(t time.Time) int64 { return t.UTC().UnixMilli() }

func fromMillis(v int64) time.Time { return time.UnixMilli(v).UTC() }

// Open opens the database at path and applies embedded migrations.
func Open(ctx context.Context, path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("%w: sqlite path is required", repository.ErrInvalidRecord)
	}
	dsn := filepath.Clean(path) + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := applyMigrations(ctx, db, migrations.FS); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Begin inserts a running run. A concurrent running run anywhere on the same
// database yields *model.ConflictError.
func (s *Store) Begin(ctx context.Context, run model.CalibrationRun) error {
	if run.Status != model.RunRunning {
		return fmt.Errorf("%w: begin run %s in status %s", repository.ErrInvalidRecord, run.ID, run.Status)
	}
	metricsJSON, err := json.Marshal(run.Metrics)
	if err != nil {
		return fmt.Errorf("encode run metrics: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO calibration_runs (id, status, base_version, reason, metrics_json, started_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		run.ID, string(run.Status), run.BaseVersion, run.Reason, string(metricsJSON), toMillis(run.StartedAt),
	)
	if err == nil {
		return nil
	}
	if !isUniqueViolation(err) {
		return fmt.Errorf("begin calibration run: %w", err)
	}
	holder, lookupErr := s.runningID(ctx)
	if lookupErr != nil {
		return fmt.Errorf("begin calibration run: %w", errors.Join(err, lookupErr))
	}
	if holder == "" {
		return fmt.Errorf("%w: duplicate run id %s", repository.ErrInvalidRecord, run.ID)
	}
	return &model.ConflictError{RunID: holder}
}

func (s *Store) runningID(ctx context.Context) (string, error) {
	var id string
	err := s.db.QueryRowContext(ctx,
		`SELECT id FROM calibration_runs WHERE status = 'running' LIMIT 1`).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return id, err
}

// Finish records the terminal state of a run started with Begin.
func (s *Store) Finish(ctx context.Context, run model.CalibrationRun) error {
	if !run.Status.Terminal() {
		return fmt.Errorf("%w: finish run %s in status %s", repository.ErrInvalidRecord, run.ID, run.Status)
	}
	metricsJSON, err := json.Marshal(run.Metrics)
	if err != nil {
		return fmt.Errorf("encode run metrics: %w", err)
	}
	var candidate, completed any
	if run.Candidate != nil {
		raw, err := json.Marshal(run.Candidate)
		if err != nil {
			return fmt.Errorf("encode candidate: %w", err)
		}
		candidate = string(raw)
	}
	if run.CompletedAt != nil {
		completed = toMillis(*run.CompletedAt)
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE calibration_runs
		    SET status = ?, reason = ?, metrics_json = ?, candidate_json = ?, completed_at = ?
		  WHERE id = ?`,
		string(run.Status), run.Reason, string(metricsJSON), candidate, completed, run.ID,
	)
	if err != nil {
		return fmt.Errorf("finish calibration run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return &model.NotFoundError{Resource: "calibration run", ID: run.ID}
	}
	return nil
}

const runColumns = `id, status, base_version, reason, metrics_json, candidate_json, started_at, completed_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (model.CalibrationRun, error) {
	var (
		run         model.CalibrationRun
		status      string
		metricsJSON string
		candidate   sql.NullString
		startedAt   int64
		completedAt sql.NullInt64
	)
	if err := row.Scan(&run.ID, &status, &run.BaseVersion, &run.Reason, &metricsJSON, &candidate, &startedAt, &completedAt); err != nil {
		return model.CalibrationRun{}, err
	}
	run.Status = model.RunStatus(status)
	run.StartedAt = fromMillis(startedAt)
	if completedAt.Valid {
		t := fromMillis(completedAt.Int64)
		run.CompletedAt = &t
	}
	if err := json.Unmarshal([]byte(metricsJSON), &run.Metrics); err != nil {
		return model.CalibrationRun{}, fmt.Errorf("decode run metrics: %w", err)
	}
	if candidate.Valid {
		var cfg model.AppConfig
		if err := json.Unmarshal([]byte(candidate.String), &cfg); err != nil {
			return model.CalibrationRun{}, fmt.Errorf("decode candidate: %w", err)
		}
		run.Candidate = &cfg
	}
	return run, nil
}

// Get returns one run.
func (s *Store) Get(ctx context.Context, id string) (model.CalibrationRun, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM calibration_runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.CalibrationRun{}, &model.NotFoundError{Resource: "calibration run", ID: id}
	}
	if err != nil {
		return model.CalibrationRun{}, fmt.Errorf("get calibration run: %w", err)
	}
	return run, nil
}

// List returns up to limit runs, newest first.
func (s *Store) List(ctx context.Context, limit int) ([]model.CalibrationRun, error) {
	if limit < 1 {
		return nil, repository.ErrInvalidLimit
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM calibration_runs ORDER BY started_at DESC, id ASC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list calibration runs: %w", err)
	}
	defer rows.Close()

	out := make([]model.CalibrationRun, 0, limit)
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("list calibration runs: %w", err)
		}
		out = append(out, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list calibration runs: %w", err)
	}
	return out, nil
}

// SeedActive stores cfg as the active configuration when none exists yet and
// returns whichever configuration is active afterwards.
func (s *Store) SeedActive(ctx context.Context, cfg model.AppConfig) (model.AppConfig, error) {
	if err := cfg.Validate(); err != nil {
		return model.AppConfig{}, fmt.Errorf("active config: %w", err)
	}
	cfg = cfg.Clone()
	cfg.Status = model.ConfigActive
	raw, err := json.Marshal(cfg)
	if err != nil {
		return model.AppConfig{}, fmt.Errorf("encode config: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO app_configs (version, status, config_json, created_at)
		 SELECT ?, 'active', ?, ?
		  WHERE NOT EXISTS (SELECT 1 FROM app_configs WHERE status = 'active')`,
		cfg.Version, string(raw), toMillis(time.Now()),
	)
	if err != nil && !isUniqueViolation(err) {
		return model.AppConfig{}, fmt.Errorf("seed active config: %w", err)
	}
	return s.Active(ctx)
}

func (s *Store) configByStatus(ctx context.Context, status model.ConfigStatus) (model.AppConfig, error) {
	var raw string
	err := s.db.QueryRowContext(ctx,
		`SELECT config_json FROM app_configs WHERE status = ?`, string(status)).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return model.AppConfig{}, &model.NotFoundError{Resource: string(status) + " config", ID: "latest"}
	}
	if err != nil {
		return model.AppConfig{}, fmt.Errorf("load %s config: %w", status, err)
	}
	var cfg model.AppConfig
	if err := json.Unmarshal([]byte(raw), &cfg); err != nil {
		return model.AppConfig{}, fmt.Errorf("decode %s config: %w", status, err)
	}
	return cfg, nil
}

// Active returns the active configuration.
func (s *Store) Active(ctx context.Context) (model.AppConfig, error) {
	return s.configByStatus(ctx, model.ConfigActive)
}

// Candidate returns the current candidate configuration.
func (s *Store) Candidate(ctx context.Context) (model.AppConfig, error) {
	return s.configByStatus(ctx, model.ConfigCandidate)
}

// SaveCandidate retires any previous candidate and stores cfg in one
// transaction.
func (s *Store) SaveCandidate(ctx context.Context, cfg model.AppConfig) error {
	if cfg.Status != model.ConfigCandidate {
		return fmt.Errorf("%w: config status %s is not candidate", repository.ErrInvalidRecord, cfg.Status)
	}
	raw, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode candidate: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save candidate: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var activeVersion int
	err = tx.QueryRowContext(ctx, `SELECT version FROM app_configs WHERE status = 'active'`).Scan(&activeVersion)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return &model.NotFoundError{Resource: "active config", ID: "latest"}
	case err != nil:
		return fmt.Errorf("load active version: %w", err)
	}
	if cfg.Version <= activeVersion {
		return fmt.Errorf("%w: candidate version %d not newer than active %d", repository.ErrInvalidRecord, cfg.Version, activeVersion)
	}
	if _, err := tx.ExecContext(ctx, `UPDATE app_configs SET status = 'retired' WHERE status = 'candidate'`); err != nil {
		return fmt.Errorf("retire candidate: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO app_configs (version, status, config_json, created_at) VALUES (?, 'candidate', ?, ?)
		 ON CONFLICT(version) DO UPDATE SET status = 'candidate', config_json = excluded.config_json, created_at = excluded.created_at`,
		cfg.Version, string(raw), toMillis(time.Now()),
	); err != nil {
		return fmt.Errorf("insert candidate: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit candidate: %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}
