package history

import (
	"database/sql"
	"fmt"
	"time"
)

// Run recording operations

// StartRun inserts a new run execution row and returns its ID.
func (db *DB) StartRun(room, workers, totalAccounts int) (int64, error) {
	var runID int64
	err := db.ExecTx(func(tx *sql.Tx) error {
		result, err := tx.Exec(`
			INSERT INTO run_executions (
				room, workers, total_accounts, status, started_at
			) VALUES (?, ?, ?, 'running', ?)
		`, room, workers, totalAccounts, time.Now())
		if err != nil {
			return fmt.Errorf("failed to insert run execution: %w", err)
		}

		runID, err = result.LastInsertId()
		return err
	})
	if err != nil {
		return 0, err
	}
	return runID, nil
}

// FinishRun marks a run finished. completed is false when the run was stopped
// before draining its batch.
func (db *DB) FinishRun(runID int64, processed int, completed bool) error {
	return db.ExecTx(func(tx *sql.Tx) error {
		var startedAt time.Time
		err := tx.QueryRow("SELECT started_at FROM run_executions WHERE id = ?", runID).Scan(&startedAt)
		if err != nil {
			return fmt.Errorf("failed to get run start time: %w", err)
		}

		finishedAt := time.Now()
		status := "completed"
		if !completed {
			status = "stopped"
		}

		_, err = tx.Exec(`
			UPDATE run_executions
			SET processed = ?,
				completed = ?,
				status = ?,
				finished_at = ?,
				duration_seconds = ?
			WHERE id = ?
		`, processed, completed, status, finishedAt, int(finishedAt.Sub(startedAt).Seconds()), runID)
		return err
	})
}

// RecordAccountResult inserts one account attempt for a run.
func (db *DB) RecordAccountResult(runID int64, email string, room int, success bool, errorMessage string, duration time.Duration) error {
	return db.ExecTx(func(tx *sql.Tx) error {
		var errMsg *string
		if errorMessage != "" {
			errMsg = &errorMessage
		}

		_, err := tx.Exec(`
			INSERT INTO account_results (
				run_id, email, room, success, error_message, duration_ms, processed_at
			) VALUES (?, ?, ?, ?, ?, ?, ?)
		`, runID, email, room, success, errMsg, duration.Milliseconds(), time.Now())
		return err
	})
}

// GetRun retrieves a run execution by ID.
func (db *DB) GetRun(runID int64) (*RunExecution, error) {
	run := &RunExecution{}
	err := db.conn.QueryRow(`
		SELECT id, room, workers, total_accounts, processed, completed,
			status, started_at, finished_at, duration_seconds
		FROM run_executions
		WHERE id = ?
	`, runID).Scan(
		&run.ID, &run.Room, &run.Workers, &run.TotalAccounts, &run.Processed,
		&run.Completed, &run.Status, &run.StartedAt, &run.FinishedAt, &run.DurationSeconds,
	)
	if err != nil {
		return nil, err
	}
	return run, nil
}

// RecentRuns returns the most recent runs, newest first.
func (db *DB) RecentRuns(limit int) ([]*RunExecution, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := db.conn.Query(`
		SELECT id, room, workers, total_accounts, processed, completed,
			status, started_at, finished_at, duration_seconds
		FROM run_executions
		ORDER BY started_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := []*RunExecution{}
	for rows.Next() {
		run := &RunExecution{}
		err := rows.Scan(
			&run.ID, &run.Room, &run.Workers, &run.TotalAccounts, &run.Processed,
			&run.Completed, &run.Status, &run.StartedAt, &run.FinishedAt, &run.DurationSeconds,
		)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}

	return runs, rows.Err()
}

// ResultsForRun returns the account results of a run, in processing order.
func (db *DB) ResultsForRun(runID int64) ([]*AccountResult, error) {
	rows, err := db.conn.Query(`
		SELECT id, run_id, email, room, success, error_message, duration_ms, processed_at
		FROM account_results
		WHERE run_id = ?
		ORDER BY processed_at ASC, id ASC
	`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := []*AccountResult{}
	for rows.Next() {
		result := &AccountResult{}
		err := rows.Scan(
			&result.ID, &result.RunID, &result.Email, &result.Room,
			&result.Success, &result.ErrorMessage, &result.DurationMs, &result.ProcessedAt,
		)
		if err != nil {
			return nil, err
		}
		results = append(results, result)
	}

	return results, rows.Err()
}

// SuccessRateForEmail returns attempts and successes recorded for an email
// across all runs.
func (db *DB) SuccessRateForEmail(email string) (attempts, successes int, err error) {
	err = db.conn.QueryRow(`
		SELECT COUNT(*), COALESCE(SUM(success), 0)
		FROM account_results
		WHERE email = ?
	`, email).Scan(&attempts, &successes)
	return attempts, successes, err
}
