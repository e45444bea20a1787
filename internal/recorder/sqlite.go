package recorder

import (
	"database/sql"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"
)

// SQLiteRecorder persists run history to a SQLite database.
type SQLiteRecorder struct {
	db     *sql.DB
	mu     sync.Mutex
	logger *logrus.Logger
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string, logger *logrus.Logger) (*SQLiteRecorder, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db, logger: logger}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	logger.WithField("path", dbPath).Info("sqlite recorder opened")
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS training_runs (
			id          TEXT PRIMARY KEY,
			started_at  INTEGER NOT NULL,
			duration_ms INTEGER,
			symbol      TEXT,
			status      TEXT,
			error       TEXT,
			points      INTEGER,
			samples     INTEGER,
			epochs      INTEGER,
			final_loss  REAL,
			price_min   REAL,
			price_max   REAL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_training_started ON training_runs(started_at)`,

		`CREATE TABLE IF NOT EXISTS prediction_runs (
			id              TEXT PRIMARY KEY,
			started_at      INTEGER NOT NULL,
			duration_ms     INTEGER,
			symbol          TEXT,
			status          TEXT,
			error           TEXT,
			days            INTEGER,
			last_close      REAL,
			last_prediction REAL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_prediction_started ON prediction_runs(started_at)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func (r *SQLiteRecorder) RecordTraining(run *TrainingRun) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT INTO training_runs
		(id, started_at, duration_ms, symbol, status, error, points, samples, epochs, final_loss, price_min, price_max)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`,
		run.ID, run.StartedAt.UnixMilli(), run.Duration.Milliseconds(), run.Symbol,
		run.Status, run.Error, run.Points, run.Samples, run.Epochs,
		nullableFloat(run.FinalLoss), run.PriceMin, run.PriceMax,
	)
	return err
}

func (r *SQLiteRecorder) RecordPrediction(run *PredictionRun) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT INTO prediction_runs
		(id, started_at, duration_ms, symbol, status, error, days, last_close, last_prediction)
		VALUES (?,?,?,?,?,?,?,?,?)`,
		run.ID, run.StartedAt.UnixMilli(), run.Duration.Milliseconds(), run.Symbol,
		run.Status, run.Error, run.Days, run.LastClose, run.LastPrediction,
	)
	return err
}

// Recent returns the latest runs of both kinds, newest first.
func (r *SQLiteRecorder) Recent(limit int) ([]RunSummary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rows, err := r.db.Query(`
		SELECT id, 'train', symbol, status, error, started_at, duration_ms FROM training_runs
		UNION ALL
		SELECT id, 'predict', symbol, status, error, started_at, duration_ms FROM prediction_runs
		ORDER BY started_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := []RunSummary{}
	for rows.Next() {
		var (
			s       RunSummary
			started int64
			errText sql.NullString
		)
		if err := rows.Scan(&s.ID, &s.Kind, &s.Symbol, &s.Status, &errText, &started, &s.DurationMS); err != nil {
			return nil, err
		}
		s.Error = errText.String
		s.StartedAt = time.UnixMilli(started)
		runs = append(runs, s)
	}
	return runs, rows.Err()
}

func (r *SQLiteRecorder) Close() error {
	r.logger.Info("closing sqlite recorder")
	return r.db.Close()
}

// nullableFloat stores NaN (no epoch ran) as NULL.
func nullableFloat(v float64) sql.NullFloat64 {
	return sql.NullFloat64{Float64: v, Valid: !math.IsNaN(v)}
}
