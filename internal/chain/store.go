package chain

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Run statuses.
const (
	StatusRunning = "running"
	StatusDone    = "done"
	StatusStopped = "stopped"
	StatusFailed  = "failed"
)

// Run is one persisted chain run.
type Run struct {
	RunID      string          `json:"run_id"`
	Status     string          `json:"status"`
	Error      string          `json:"error,omitempty"`
	Steps      int             `json:"steps"`
	Accepted   int             `json:"accepted"`
	ConfigJSON json.RawMessage `json:"config_json,omitempty"`
	CreatedAt  int64           `json:"created_at"`
	FinishedAt int64           `json:"finished_at,omitempty"`
}

// Store provides persistence for chain runs and samples. The schema lives
// in the migrations directory.
type Store struct {
	db *sql.DB
}

// NewStore creates a Store backed by the given database.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// InsertRun persists a new run. If RunID is empty, a UUID is generated.
func (s *Store) InsertRun(run *Run) error {
	if run.RunID == "" {
		run.RunID = uuid.New().String()
	}
	if run.CreatedAt == 0 {
		run.CreatedAt = time.Now().UnixNano()
	}
	if run.Status == "" {
		run.Status = StatusRunning
	}

	var configStr interface{}
	if len(run.ConfigJSON) > 0 {
		configStr = string(run.ConfigJSON)
	}

	_, err := s.db.Exec(`
		INSERT INTO chain_runs (run_id, status, error, steps, accepted, config_json, created_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.RunID, run.Status, run.Error, run.Steps, run.Accepted, configStr, run.CreatedAt, run.FinishedAt)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// FinishRun marks a run finished with the given status and final counters.
func (s *Store) FinishRun(runID, status string, steps, accepted int, errMsg string) error {
	_, err := s.db.Exec(`
		UPDATE chain_runs SET status = ?, error = ?, steps = ?, accepted = ?, finished_at = ?
		WHERE run_id = ?`,
		status, errMsg, steps, accepted, time.Now().UnixNano(), runID)
	if err != nil {
		return fmt.Errorf("finish run %s: %w", runID, err)
	}
	return nil
}

// GetRun returns one run, or nil when it does not exist.
func (s *Store) GetRun(runID string) (*Run, error) {
	row := s.db.QueryRow(`
		SELECT run_id, status, error, steps, accepted, config_json, created_at, finished_at
		FROM chain_runs WHERE run_id = ?`, runID)
	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get run %s: %w", runID, err)
	}
	return run, nil
}

// ListRuns returns the most recent runs, newest first.
func (s *Store) ListRuns(limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(`
		SELECT run_id, status, error, steps, accepted, config_json, created_at, finished_at
		FROM chain_runs ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(row scanner) (*Run, error) {
	run := &Run{}
	var errMsg, configStr sql.NullString
	var finishedAt sql.NullInt64
	if err := row.Scan(&run.RunID, &run.Status, &errMsg, &run.Steps, &run.Accepted,
		&configStr, &run.CreatedAt, &finishedAt); err != nil {
		return nil, err
	}
	run.Error = errMsg.String
	if configStr.Valid {
		run.ConfigJSON = json.RawMessage(configStr.String)
	}
	run.FinishedAt = finishedAt.Int64
	return run, nil
}

// InsertSamples persists a batch of samples in one transaction.
func (s *Store) InsertSamples(runID string, samples []Sample) error {
	if len(samples) == 0 {
		return nil
	}
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("insert samples: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO chain_samples (run_id, step, neg2lnl, params_json) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("insert samples: %w", err)
	}
	defer stmt.Close()

	for _, sample := range samples {
		params, err := json.Marshal(sample.Params)
		if err != nil {
			return fmt.Errorf("marshal sample %d: %w", sample.Step, err)
		}
		if _, err := stmt.Exec(runID, sample.Step, sample.Neg2LnL, string(params)); err != nil {
			return fmt.Errorf("insert sample %d: %w", sample.Step, err)
		}
	}
	return tx.Commit()
}

// Samples returns samples of a run starting at fromStep, in step order.
func (s *Store) Samples(runID string, fromStep, limit int) ([]Sample, error) {
	if limit <= 0 {
		limit = 10000
	}
	rows, err := s.db.Query(`
		SELECT step, neg2lnl, params_json FROM chain_samples
		WHERE run_id = ? AND step >= ? ORDER BY step LIMIT ?`, runID, fromStep, limit)
	if err != nil {
		return nil, fmt.Errorf("samples for %s: %w", runID, err)
	}
	defer rows.Close()

	var samples []Sample
	for rows.Next() {
		var sample Sample
		var paramsStr string
		if err := rows.Scan(&sample.Step, &sample.Neg2LnL, &paramsStr); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(paramsStr), &sample.Params); err != nil {
			return nil, fmt.Errorf("sample %d params: %w", sample.Step, err)
		}
		samples = append(samples, sample)
	}
	return samples, rows.Err()
}
