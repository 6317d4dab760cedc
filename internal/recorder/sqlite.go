package recorder

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/Masterminds/squirrel"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"KlineStudio/internal/logger"
)

// SQLiteRecorder persists run history to a SQLite database.
type SQLiteRecorder struct {
	db     *sql.DB
	sq     squirrel.StatementBuilderType
	mu     sync.Mutex
	logger *logger.Logger
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string, log *logger.Logger) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if log == nil {
		log = logger.NewNop()
	}

	// WAL mode lets the history command read while a run writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{
		db:     db,
		sq:     squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question),
		logger: log,
	}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Info("sqlite recorder opened", zap.String("path", dbPath))
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id          TEXT PRIMARY KEY,
			started_at  INTEGER NOT NULL,
			finished_at INTEGER,
			symbols     INTEGER,
			succeeded   INTEGER,
			skipped     INTEGER,
			failed      INTEGER,
			cancelled   INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at)`,

		`CREATE TABLE IF NOT EXISTS targets (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id      TEXT NOT NULL,
			target_key  TEXT NOT NULL,
			symbol      TEXT,
			period      TEXT,
			theme       TEXT,
			kind        TEXT,
			path        TEXT,
			fingerprint TEXT,
			outcome     TEXT,
			error       TEXT,
			recorded_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_targets_key ON targets(target_key, outcome)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func (r *SQLiteRecorder) StartRun(run *RunRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.sq.Insert("runs").
		Columns("id", "started_at", "symbols").
		Values(run.ID, run.StartedAt.UnixNano(), run.Symbols).
		RunWith(r.db).
		Exec()
	return err
}

func (r *SQLiteRecorder) FinishRun(run *RunRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.sq.Update("runs").
		SetMap(map[string]any{
			"finished_at": run.FinishedAt.UnixNano(),
			"symbols":     run.Symbols,
			"succeeded":   run.Succeeded,
			"skipped":     run.Skipped,
			"failed":      run.Failed,
			"cancelled":   run.Cancelled,
		}).
		Where(squirrel.Eq{"id": run.ID}).
		RunWith(r.db).
		Exec()
	return err
}

func (r *SQLiteRecorder) RecordTarget(evt *TargetEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	at := evt.RecordedAt
	if at.IsZero() {
		at = time.Now()
	}
	_, err := r.sq.Insert("targets").
		Columns("run_id", "target_key", "symbol", "period", "theme", "kind", "path", "fingerprint", "outcome", "error", "recorded_at").
		Values(evt.RunID, evt.Key, evt.Symbol, evt.Period, evt.Theme, evt.Kind, evt.Path, evt.Fingerprint, evt.Outcome, evt.Error, at.UnixNano()).
		RunWith(r.db).
		Exec()
	return err
}

func (r *SQLiteRecorder) LastSuccess(key string) (*TargetEvent, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var (
		evt TargetEvent
		at  int64
	)
	err := r.sq.Select("run_id", "target_key", "symbol", "period", "theme", "kind", "path", "fingerprint", "outcome", "recorded_at").
		From("targets").
		Where(squirrel.Eq{"target_key": key, "outcome": OutcomeRendered}).
		OrderBy("recorded_at DESC", "id DESC").
		Limit(1).
		RunWith(r.db).
		QueryRow().
		Scan(&evt.RunID, &evt.Key, &evt.Symbol, &evt.Period, &evt.Theme, &evt.Kind, &evt.Path, &evt.Fingerprint, &evt.Outcome, &at)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	evt.RecordedAt = time.Unix(0, at)
	return &evt, true, nil
}

func (r *SQLiteRecorder) RecentRuns(limit int) ([]RunRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rows, err := r.sq.Select("id", "started_at", "COALESCE(finished_at, 0)", "COALESCE(symbols, 0)",
		"COALESCE(succeeded, 0)", "COALESCE(skipped, 0)", "COALESCE(failed, 0)", "COALESCE(cancelled, 0)").
		From("runs").
		OrderBy("started_at DESC").
		Limit(uint64(limit)).
		RunWith(r.db).
		Query()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []RunRecord
	for rows.Next() {
		var (
			run               RunRecord
			started, finished int64
		)
		if err := rows.Scan(&run.ID, &started, &finished, &run.Symbols, &run.Succeeded, &run.Skipped, &run.Failed, &run.Cancelled); err != nil {
			return nil, err
		}
		run.StartedAt = time.Unix(0, started)
		if finished > 0 {
			run.FinishedAt = time.Unix(0, finished)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func (r *SQLiteRecorder) Close() error {
	r.logger.Info("closing sqlite recorder")
	return r.db.Close()
}
