package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Run is one recorded invocation: what the tool saw and what it did.
type Run struct {
	ID           int64      `json:"id"`
	Timestamp    time.Time  `json:"timestamp"`
	Action       string     `json:"action"` // "status", "in", "out", "schedule"
	AccruedHours float64    `json:"accrued_hours"`
	Target       *time.Time `json:"target,omitempty"`
	Detail       string     `json:"detail,omitempty"`
}

// Job is a scheduled clock-out registration. At most one job is considered
// active; registering a new one cancels the previous.
type Job struct {
	ID           int64     `json:"id"`
	RegisteredAt time.Time `json:"registered_at"`
	Target       time.Time `json:"target"`
	Backend      string    `json:"backend"` // "local" or "remote"
	JobRef       string    `json:"job_ref"`
	Cancelled    bool      `json:"cancelled"`
}

type Database struct {
	db *sql.DB
}

func New(path string) (*Database, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		return nil, err
	}

	database := &Database{db: db}
	if err := database.createTables(); err != nil {
		return nil, err
	}

	return database, nil
}

func (d *Database) createTables() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp TEXT NOT NULL,
			action TEXT NOT NULL,
			accrued_hours REAL DEFAULT 0,
			target TEXT,
			detail TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS jobs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			registered_at TEXT NOT NULL,
			target TEXT NOT NULL,
			backend TEXT NOT NULL,
			job_ref TEXT,
			cancelled INTEGER DEFAULT 0
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_timestamp ON runs(timestamp)`,
		`CREATE INDEX IF NOT EXISTS idx_jobs_cancelled ON jobs(cancelled)`,
	}

	for _, query := range queries {
		if _, err := d.db.Exec(query); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}

	return nil
}

func (d *Database) Close() error {
	return d.db.Close()
}

const timeLayout = "2006-01-02T15:04:05"

func (d *Database) RecordRun(run *Run) (int64, error) {
	var target any
	if run.Target != nil {
		target = run.Target.Format(timeLayout)
	}
	result, err := d.db.Exec(
		`INSERT INTO runs (timestamp, action, accrued_hours, target, detail)
		 VALUES (?, ?, ?, ?, ?)`,
		run.Timestamp.Format(timeLayout),
		run.Action,
		run.AccruedHours,
		target,
		run.Detail,
	)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

func (d *Database) RecentRuns(limit int) ([]Run, error) {
	rows, err := d.db.Query(
		`SELECT id, timestamp, action, accrued_hours, target, detail
		 FROM runs ORDER BY id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		var timestamp string
		var target sql.NullString
		var detail sql.NullString

		if err := rows.Scan(&run.ID, &timestamp, &run.Action, &run.AccruedHours, &target, &detail); err != nil {
			return nil, err
		}

		run.Timestamp, _ = time.ParseInLocation(timeLayout, timestamp, time.Local)
		if target.Valid {
			t, _ := time.ParseInLocation(timeLayout, target.String, time.Local)
			run.Target = &t
		}
		run.Detail = detail.String

		runs = append(runs, run)
	}

	return runs, rows.Err()
}

func (d *Database) RecordJob(job *Job) (int64, error) {
	result, err := d.db.Exec(
		`INSERT INTO jobs (registered_at, target, backend, job_ref, cancelled)
		 VALUES (?, ?, ?, ?, 0)`,
		job.RegisteredAt.Format(timeLayout),
		job.Target.Format(timeLayout),
		job.Backend,
		job.JobRef,
	)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// ActiveJob returns the most recent uncancelled registration, or nil.
func (d *Database) ActiveJob() (*Job, error) {
	var job Job
	var registeredAt, target string
	var jobRef sql.NullString

	err := d.db.QueryRow(
		`SELECT id, registered_at, target, backend, job_ref
		 FROM jobs WHERE cancelled = 0 ORDER BY id DESC LIMIT 1`,
	).Scan(&job.ID, &registeredAt, &target, &job.Backend, &jobRef)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	job.RegisteredAt, _ = time.ParseInLocation(timeLayout, registeredAt, time.Local)
	job.Target, _ = time.ParseInLocation(timeLayout, target, time.Local)
	job.JobRef = jobRef.String

	return &job, nil
}

func (d *Database) MarkJobCancelled(id int64) error {
	_, err := d.db.Exec(`UPDATE jobs SET cancelled = 1 WHERE id = ?`, id)
	return err
}
