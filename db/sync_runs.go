package db

import (
	"database/sql"
)

// Run statuses
const (
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
)

// SyncRun is one export, remote import or local scan
type SyncRun struct {
	ID         string `json:"id"`
	Kind       string `json:"kind"`
	Status     string `json:"status"`
	Params     string `json:"params,omitempty"`
	Total      int    `json:"total"`
	Done       int    `json:"done"`
	Error      string `json:"error,omitempty"`
	ErrorKind  string `json:"errorKind,omitempty"`
	StartedAt  int64  `json:"startedAt"`
	FinishedAt *int64 `json:"finishedAt,omitempty"`
}

const syncRunColumns = `id, kind, status, params, total, done, error, error_kind, started_at, finished_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSyncRun(s rowScanner) (SyncRun, error) {
	var r SyncRun
	var errMsg, errKind sql.NullString
	var finished sql.NullInt64
	err := s.Scan(&r.ID, &r.Kind, &r.Status, &r.Params, &r.Total, &r.Done, &errMsg, &errKind, &r.StartedAt, &finished)
	if err != nil {
		return r, err
	}
	r.Error = errMsg.String
	r.ErrorKind = errKind.String
	if finished.Valid {
		r.FinishedAt = &finished.Int64
	}
	return r, nil
}

// InsertSyncRun records a run that has just started
func (d *DB) InsertSyncRun(run SyncRun) error {
	if run.Status == "" {
		run.Status = RunStatusRunning
	}
	if run.StartedAt == 0 {
		run.StartedAt = NowMs()
	}
	_, err := d.run(
		`INSERT INTO sync_runs (id, kind, status, params, total, done, started_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Kind, run.Status, run.Params, run.Total, run.Done, run.StartedAt,
	)
	return err
}

// UpdateSyncRunProgress stores the latest done/total counters
func (d *DB) UpdateSyncRunProgress(id string, done, total int) error {
	_, err := d.run(`UPDATE sync_runs SET done = ?, total = ? WHERE id = ?`, done, total, id)
	return err
}

// FinishSyncRun marks a run completed or failed
func (d *DB) FinishSyncRun(id, status string, done int, errMsg, errKind string) error {
	_, err := d.run(
		`UPDATE sync_runs SET status = ?, done = ?, error = NULLIF(?, ''), error_kind = NULLIF(?, ''), finished_at = ? WHERE id = ?`,
		status, done, errMsg, errKind, NowMs(), id,
	)
	return err
}

// GetSyncRun returns a run by id, or nil
func (d *DB) GetSyncRun(id string) (*SyncRun, error) {
	return selectOne(d, `SELECT `+syncRunColumns+` FROM sync_runs WHERE id = ?`, []any{id},
		func(row *sql.Row) (SyncRun, error) { return scanSyncRun(row) })
}

// ListSyncRuns returns the most recent runs first
func (d *DB) ListSyncRuns(limit int) ([]SyncRun, error) {
	if limit <= 0 {
		limit = 50
	}
	return selectRows(d, `SELECT `+syncRunColumns+` FROM sync_runs ORDER BY started_at DESC, rowid DESC LIMIT ?`, []any{limit},
		func(rows *sql.Rows) (SyncRun, error) { return scanSyncRun(rows) })
}

// FailInterruptedRuns marks runs left "running" by a previous process as failed
func (d *DB) FailInterruptedRuns() (int64, error) {
	res, err := d.run(
		`UPDATE sync_runs SET status = ?, error = 'interrupted by shutdown', error_kind = 'io', finished_at = ? WHERE status = ?`,
		RunStatusFailed, NowMs(), RunStatusRunning,
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
