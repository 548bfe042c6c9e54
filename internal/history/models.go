package history

import "time"

// RunExecution is one recorded batch run.
type RunExecution struct {
	ID              int64
	Room            int
	Workers         int
	TotalAccounts   int
	Processed       int
	Completed       bool
	Status          string // running, completed, stopped
	StartedAt       time.Time
	FinishedAt      *time.Time
	DurationSeconds *int
}

// AccountResult is one account attempt within a run.
type AccountResult struct {
	ID           int64
	RunID        int64
	Email        string
	Room         int
	Success      bool
	ErrorMessage *string
	DurationMs   *int64
	ProcessedAt  time.Time
}
