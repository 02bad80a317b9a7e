package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/san-kum/choreo/internal/signal"
	"github.com/san-kum/choreo/internal/trace"
)

// DBFile is the database name inside the storage directory.
const DBFile = "choreo.db"

// SQLiteStore keeps every run in one database.
type SQLiteStore struct {
	conn *sqlx.DB
}

type runRow struct {
	ID          string  `db:"id"`
	Scenario    string  `db:"scenario"`
	Preset      string  `db:"preset"`
	Timestamp   int64   `db:"timestamp"`
	Seed        int64   `db:"seed"`
	DurationMs  float64 `db:"duration_ms"`
	Ticks       int     `db:"ticks"`
	Emits       int     `db:"emits"`
	MetricsJSON string  `db:"metrics_json"`
}

type sampleRow struct {
	At         float64 `db:"at"`
	Dt         float64 `db:"dt"`
	Section    string  `db:"section"`
	Energy     float64 `db:"energy"`
	Interval   float64 `db:"interval_ms"`
	Emitted    int     `db:"emitted"`
	LiveJSON   string  `db:"live_json"`
	TargetJSON string  `db:"target_json"`
}

// OpenSQLite opens or creates the database under dir. A dir of ":memory:"
// keeps everything in memory.
func OpenSQLite(dir string) (*SQLiteStore, error) {
	dsn := ":memory:"
	if dir != ":memory:" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, err
		}
		dsn = filepath.Join(dir, DBFile) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}
	conn, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if dir == ":memory:" {
		conn.SetMaxOpenConns(1)
	}

	s := &SQLiteStore{conn: conn}
	if err := s.Init(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) Init() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		scenario TEXT NOT NULL,
		preset TEXT NOT NULL,
		timestamp INTEGER NOT NULL,
		seed INTEGER NOT NULL,
		duration_ms REAL NOT NULL,
		ticks INTEGER NOT NULL,
		emits INTEGER NOT NULL,
		metrics_json TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS samples (
		run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		idx INTEGER NOT NULL,
		at REAL NOT NULL,
		dt REAL NOT NULL,
		section TEXT NOT NULL,
		energy REAL NOT NULL,
		interval_ms REAL NOT NULL,
		emitted INTEGER NOT NULL,
		live_json TEXT NOT NULL,
		target_json TEXT NOT NULL,
		PRIMARY KEY (run_id, idx)
	);

	CREATE INDEX IF NOT EXISTS idx_runs_timestamp ON runs(timestamp);
	`
	_, err := s.conn.Exec(schema)
	return err
}

// Save writes the run and its samples in one transaction, replacing any
// run with the same id.
func (s *SQLiteStore) Save(tr *trace.Trace) (string, error) {
	id := ensureID(tr)
	metricsJSON, err := json.Marshal(tr.Meta.Metrics)
	if err != nil {
		return "", err
	}

	tx, err := s.conn.Beginx()
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM samples WHERE run_id = ?", id); err != nil {
		return "", err
	}
	_, err = tx.NamedExec(`INSERT OR REPLACE INTO runs
		(id, scenario, preset, timestamp, seed, duration_ms, ticks, emits, metrics_json)
		VALUES (:id, :scenario, :preset, :timestamp, :seed, :duration_ms, :ticks, :emits, :metrics_json)`,
		runRow{
			ID:          id,
			Scenario:    tr.Meta.Scenario,
			Preset:      tr.Meta.Preset,
			Timestamp:   tr.Meta.Timestamp.UnixNano(),
			Seed:        tr.Meta.Seed,
			DurationMs:  tr.Meta.DurationMs,
			Ticks:       tr.Meta.Ticks,
			Emits:       tr.Meta.Emits,
			MetricsJSON: string(metricsJSON),
		})
	if err != nil {
		return "", fmt.Errorf("save run: %w", err)
	}

	stmt, err := tx.Preparex(`INSERT INTO samples
		(run_id, idx, at, dt, section, energy, interval_ms, emitted, live_json, target_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return "", err
	}
	defer stmt.Close()

	for i, smp := range tr.Samples {
		liveJSON, _ := json.Marshal(smp.Live)
		targetJSON, _ := json.Marshal(smp.Target)
		emitted := 0
		if smp.Emitted {
			emitted = 1
		}
		if _, err := stmt.Exec(id, i, smp.At, smp.Dt, smp.Section, smp.Energy, smp.Interval, emitted, string(liveJSON), string(targetJSON)); err != nil {
			return "", fmt.Errorf("save sample %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", err
	}
	return id, nil
}

func (s *SQLiteStore) List() ([]trace.Meta, error) {
	var rows []runRow
	if err := s.conn.Select(&rows, "SELECT * FROM runs ORDER BY timestamp"); err != nil {
		return nil, err
	}
	out := make([]trace.Meta, 0, len(rows))
	for _, r := range rows {
		m, err := r.meta()
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

func (s *SQLiteStore) Load(id string) (*trace.Meta, error) {
	var row runRow
	err := s.conn.Get(&row, "SELECT * FROM runs WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, err
	}
	m, err := row.meta()
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *SQLiteStore) LoadTrace(id string) (*trace.Trace, error) {
	meta, err := s.Load(id)
	if err != nil {
		return nil, err
	}
	var rows []sampleRow
	err = s.conn.Select(&rows,
		`SELECT at, dt, section, energy, interval_ms, emitted, live_json, target_json
		 FROM samples WHERE run_id = ? ORDER BY idx`, id)
	if err != nil {
		return nil, err
	}

	tr := &trace.Trace{Meta: *meta, Samples: make([]trace.Sample, 0, len(rows))}
	for _, r := range rows {
		smp := trace.Sample{
			At:       r.At,
			Dt:       r.Dt,
			Section:  r.Section,
			Energy:   r.Energy,
			Interval: r.Interval,
			Emitted:  r.Emitted != 0,
		}
		if err := json.Unmarshal([]byte(r.LiveJSON), &smp.Live); err != nil {
			return nil, fmt.Errorf("sample live: %w", err)
		}
		var target signal.Vector
		if err := json.Unmarshal([]byte(r.TargetJSON), &target); err != nil {
			return nil, fmt.Errorf("sample target: %w", err)
		}
		smp.Target = target
		tr.Samples = append(tr.Samples, smp)
	}
	return tr, nil
}

func (s *SQLiteStore) Close() error {
	return s.conn.Close()
}

func (r runRow) meta() (trace.Meta, error) {
	m := trace.Meta{
		ID:         r.ID,
		Scenario:   r.Scenario,
		Preset:     r.Preset,
		Timestamp:  time.Unix(0, r.Timestamp).UTC(),
		Seed:       r.Seed,
		DurationMs: r.DurationMs,
		Ticks:      r.Ticks,
		Emits:      r.Emits,
	}
	if err := json.Unmarshal([]byte(r.MetricsJSON), &m.Metrics); err != nil {
		return m, fmt.Errorf("run %s metrics: %w", r.ID, err)
	}
	return m, nil
}
