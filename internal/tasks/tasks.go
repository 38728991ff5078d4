// Package tasks runs units of work in the background with retries, tracks their
// status, and fires them on a cron schedule.
package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"jobingest-engine/internal/domain"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

func (s Status) Terminal() bool {
	return s == StatusSucceeded || s == StatusFailed
}

var (
	ErrTaskNotFound = errors.New("task not found")
	ErrTaskFinished = errors.New("task already finished")
)

// Work is one unit of work. Its result must be JSON-encodable.
type Work func(ctx context.Context) (any, error)

type TaskInfo struct {
	ID          string           `json:"task_id"`
	Name        string           `json:"name"`
	Status      Status           `json:"status"`
	Attempts    int              `json:"attempts"`
	Error       string           `json:"error,omitempty"`
	ErrorKind   domain.ErrorKind `json:"error_kind,omitempty"`
	Result      json.RawMessage  `json:"result,omitempty"`
	SubmittedAt time.Time        `json:"submitted_at"`
	StartedAt   *time.Time       `json:"started_at,omitempty"`
	FinishedAt  *time.Time       `json:"finished_at,omitempty"`
}

// Runner is how triggers, manual or scheduled, hand work off.
type Runner interface {
	Submit(name string, w Work) (TaskInfo, error)
	Status(ctx context.Context, id string) (TaskInfo, error)
	Cancel(id string) error
}

// StatusStore persists TaskInfo so other processes can read it.
type StatusStore interface {
	Put(ctx context.Context, info TaskInfo) error
	// Get returns ErrTaskNotFound for unknown or expired ids.
	Get(ctx context.Context, id string) (TaskInfo, error)
}
