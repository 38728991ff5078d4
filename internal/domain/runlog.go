package domain

import "time"

type RunStatus string

const (
	RunStarted   RunStatus = "started"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

func (s RunStatus) Terminal() bool {
	return s == RunCompleted || s == RunFailed
}

// SourceOrchestrator labels aggregate rows covering every active company.
const SourceOrchestrator = "orchestrator"

// ScrapingRunLog is one append-only audit row per attempt. An empty CompanyName
// marks an aggregate run.
type ScrapingRunLog struct {
	ID           int64      `json:"id"`
	Source       string     `json:"source"`
	CompanyName  string     `json:"company_name,omitempty"`
	Status       RunStatus  `json:"status"`
	JobsFound    int        `json:"jobs_found"`
	JobsAdded    int        `json:"jobs_added"`
	JobsUpdated  int        `json:"jobs_updated"`
	JobsRejected int        `json:"jobs_rejected"`
	ErrorKind    ErrorKind  `json:"error_kind,omitempty"`
	ErrorMessage string     `json:"error_message,omitempty"`
	StartedAt    time.Time  `json:"started_at"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
}

// RunCounters are the terminal values written when a run finishes.
type RunCounters struct {
	JobsFound    int
	JobsAdded    int
	JobsUpdated  int
	JobsRejected int
}

// RunFinish is the single transition a started row may take.
type RunFinish struct {
	Status       RunStatus
	Counters     RunCounters
	ErrorKind    ErrorKind
	ErrorMessage string
	CompletedAt  time.Time
}
