// Package model defines the core data types shared by the content dashboard services.
package model

import (
	"fmt"
	"strings"
	"time"
)

// JobStatus represents the backend-reported state of a pipeline job.
type JobStatus string

const (
	// JobStatusPending indicates the job is queued in the backend.
	JobStatusPending JobStatus = "pending"
	// JobStatusRunning indicates a pipeline step is executing.
	JobStatusRunning JobStatus = "running"
	// JobStatusAwaitingApproval indicates the pipeline is paused on a human review.
	JobStatusAwaitingApproval JobStatus = "awaiting_approval"
	// JobStatusCompleted indicates every step finished.
	JobStatusCompleted JobStatus = "completed"
	// JobStatusFailed indicates the pipeline stopped on an error.
	JobStatusFailed JobStatus = "failed"
	// JobStatusCancelled indicates the job was cancelled by an operator.
	JobStatusCancelled JobStatus = "cancelled"
)

// Valid returns true if the JobStatus is one the dashboard knows about.
func (s JobStatus) Valid() bool {
	switch s {
	case JobStatusPending, JobStatusRunning, JobStatusAwaitingApproval,
		JobStatusCompleted, JobStatusFailed, JobStatusCancelled:
		return true
	default:
		return false
	}
}

// Terminal reports whether the job will not change state again.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed || s == JobStatusCancelled
}

// ParseJobStatus normalizes a status string. Backends have used "complete",
// "success" and "error" for the same states.
func ParseJobStatus(v string) (JobStatus, error) {
	s := JobStatus(strings.ToLower(strings.TrimSpace(v)))
	switch s {
	case "complete", "success", "succeeded":
		return JobStatusCompleted, nil
	case "error", "errored":
		return JobStatusFailed, nil
	case "canceled":
		return JobStatusCancelled, nil
	case "queued":
		return JobStatusPending, nil
	case "in_progress", "processing":
		return JobStatusRunning, nil
	case "waiting_approval", "pending_approval":
		return JobStatusAwaitingApproval, nil
	}
	if s.Valid() {
		return s, nil
	}
	return "", fmt.Errorf("invalid JobStatus: %q", v)
}

// JobSummary is one row of the dashboard job list.
type JobSummary struct {
	ID          string     `json:"id"`
	Status      JobStatus  `json:"status"`
	ContentID   string     `json:"content_id,omitempty"`
	Title       string     `json:"title,omitempty"`
	CurrentStep string     `json:"current_step,omitempty"`
	Progress    *float64   `json:"progress,omitempty"`
	Error       string     `json:"error,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty"`
}

// JobListFilter narrows a job list request.
type JobListFilter struct {
	Status *JobStatus
	// Cached serves the last polled snapshot when one is available.
	Cached bool
	Limit  int
}

// SubjobRef identifies one sub-job spawned by a pipeline job.
type SubjobRef struct {
	ID       string    `json:"id"`
	StepName string    `json:"step_name,omitempty"`
	Status   JobStatus `json:"status,omitempty"`
}
