package history

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "history.db")
	db, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.RunMigrations(); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}
	return db
}

func TestDatabaseInitialization(t *testing.T) {
	tempDir := t.TempDir()
	dbPath := filepath.Join(tempDir, "nested", "history.db")

	db, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	if err := db.RunMigrations(); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	version, err := db.GetVersion()
	if err != nil {
		t.Fatalf("Failed to get version: %v", err)
	}
	if version != SchemaVersion {
		t.Errorf("Expected version %d, got %d", SchemaVersion, version)
	}

	// Missing parent directories are created on open
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("Database file was not created")
	}

	// Re-running migrations on a current database is a no-op
	if err := db.RunMigrations(); err != nil {
		t.Errorf("Re-running migrations failed: %v", err)
	}
}

func TestRunLifecycle(t *testing.T) {
	db := openTestDB(t)

	runID, err := db.StartRun(2, 5, 40)
	if err != nil {
		t.Fatalf("Failed to start run: %v", err)
	}

	run, err := db.GetRun(runID)
	if err != nil {
		t.Fatalf("Failed to get run: %v", err)
	}
	if run.Status != "running" {
		t.Errorf("Expected status running, got %s", run.Status)
	}
	if run.Room != 2 || run.Workers != 5 || run.TotalAccounts != 40 {
		t.Errorf("Run fields not stored: %+v", run)
	}
	if run.FinishedAt != nil {
		t.Error("Expected no finish time on a running run")
	}

	if err := db.FinishRun(runID, 40, true); err != nil {
		t.Fatalf("Failed to finish run: %v", err)
	}

	run, err = db.GetRun(runID)
	if err != nil {
		t.Fatalf("Failed to get finished run: %v", err)
	}
	if run.Status != "completed" {
		t.Errorf("Expected status completed, got %s", run.Status)
	}
	if run.Processed != 40 || !run.Completed {
		t.Errorf("Finish fields not stored: %+v", run)
	}
	if run.FinishedAt == nil || run.DurationSeconds == nil {
		t.Error("Expected finish time and duration recorded")
	}
}

func TestStoppedRunStatus(t *testing.T) {
	db := openTestDB(t)

	runID, err := db.StartRun(1, 3, 20)
	if err != nil {
		t.Fatalf("Failed to start run: %v", err)
	}
	if err := db.FinishRun(runID, 7, false); err != nil {
		t.Fatalf("Failed to finish run: %v", err)
	}

	run, err := db.GetRun(runID)
	if err != nil {
		t.Fatalf("Failed to get run: %v", err)
	}
	if run.Status != "stopped" {
		t.Errorf("Expected status stopped, got %s", run.Status)
	}
	if run.Processed != 7 || run.Completed {
		t.Errorf("Expected partial progress recorded: %+v", run)
	}
}

func TestAccountResults(t *testing.T) {
	db := openTestDB(t)

	runID, err := db.StartRun(1, 2, 3)
	if err != nil {
		t.Fatalf("Failed to start run: %v", err)
	}

	if err := db.RecordAccountResult(runID, "a@test.com", 1, true, "", 1200*time.Millisecond); err != nil {
		t.Fatalf("Failed to record success: %v", err)
	}
	if err := db.RecordAccountResult(runID, "b@test.com", 1, false, "login failed", 800*time.Millisecond); err != nil {
		t.Fatalf("Failed to record failure: %v", err)
	}

	results, err := db.ResultsForRun(runID)
	if err != nil {
		t.Fatalf("Failed to get results: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("Expected 2 results, got %d", len(results))
	}

	success := results[0]
	if success.Email != "a@test.com" || !success.Success {
		t.Errorf("Success result not stored: %+v", success)
	}
	if success.ErrorMessage != nil {
		t.Error("Expected no error message on success")
	}

	failure := results[1]
	if failure.Success {
		t.Error("Expected failure recorded as unsuccessful")
	}
	if failure.ErrorMessage == nil || *failure.ErrorMessage != "login failed" {
		t.Errorf("Error message not stored: %+v", failure.ErrorMessage)
	}
	if failure.DurationMs == nil || *failure.DurationMs != 800 {
		t.Errorf("Duration not stored: %+v", failure.DurationMs)
	}
}

func TestRecentRuns(t *testing.T) {
	db := openTestDB(t)

	for room := 1; room <= 3; room++ {
		runID, err := db.StartRun(room, 1, 1)
		if err != nil {
			t.Fatalf("Failed to start run %d: %v", room, err)
		}
		if err := db.FinishRun(runID, 1, true); err != nil {
			t.Fatalf("Failed to finish run %d: %v", room, err)
		}
		// SQLite timestamp ordering needs distinct start times
		time.Sleep(5 * time.Millisecond)
	}

	runs, err := db.RecentRuns(2)
	if err != nil {
		t.Fatalf("Failed to get recent runs: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("Expected 2 runs, got %d", len(runs))
	}
	if runs[0].Room != 3 || runs[1].Room != 2 {
		t.Errorf("Expected newest first, got rooms %d, %d", runs[0].Room, runs[1].Room)
	}
}

func TestSuccessRateForEmail(t *testing.T) {
	db := openTestDB(t)

	runID, err := db.StartRun(1, 1, 2)
	if err != nil {
		t.Fatalf("Failed to start run: %v", err)
	}

	for _, success := range []bool{true, false, true} {
		if err := db.RecordAccountResult(runID, "a@test.com", 1, success, "", 0); err != nil {
			t.Fatalf("Failed to record result: %v", err)
		}
	}
	if err := db.RecordAccountResult(runID, "other@test.com", 1, true, "", 0); err != nil {
		t.Fatalf("Failed to record result: %v", err)
	}

	attempts, successes, err := db.SuccessRateForEmail("a@test.com")
	if err != nil {
		t.Fatalf("Failed to get success rate: %v", err)
	}
	if attempts != 3 || successes != 2 {
		t.Errorf("Expected 3 attempts with 2 successes, got %d/%d", successes, attempts)
	}

	attempts, successes, err = db.SuccessRateForEmail("never@test.com")
	if err != nil {
		t.Fatalf("Failed to get empty success rate: %v", err)
	}
	if attempts != 0 || successes != 0 {
		t.Errorf("Expected zero history, got %d/%d", successes, attempts)
	}
}
