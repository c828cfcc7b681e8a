package model

import (
	"errors"
	"strings"
	"time"
)

// ApprovalStatus is the review state of one step output.
type ApprovalStatus string

const (
	// ApprovalStatusPending awaits a reviewer.
	ApprovalStatusPending ApprovalStatus = "pending"
	// ApprovalStatusApproved lets the pipeline continue.
	ApprovalStatusApproved ApprovalStatus = "approved"
	// ApprovalStatusRejected stops or reruns the step.
	ApprovalStatusRejected ApprovalStatus = "rejected"
)

// Valid returns true if the ApprovalStatus is known.
func (s ApprovalStatus) Valid() bool {
	return s == ApprovalStatusPending || s == ApprovalStatusApproved || s == ApprovalStatusRejected
}

// Approval is a backend-tracked review of one pipeline step's output for one job.
type Approval struct {
	JobID     string         `json:"job_id"`
	StepName  string         `json:"step_name"`
	StepType  string         `json:"step_type"`
	Status    ApprovalStatus `json:"status"`
	Output    any            `json:"output,omitempty"`
	Comment   string         `json:"comment,omitempty"`
	Reviewer  string         `json:"reviewer,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	DecidedAt *time.Time     `json:"decided_at,omitempty"`
}

// ApprovalDecision is a reviewer's verdict on a pending approval.
type ApprovalDecision struct {
	Decision ApprovalStatus `json:"decision"`
	Comment  string         `json:"comment,omitempty"`
	Reviewer string         `json:"reviewer,omitempty"`
}

// Validate validates the ApprovalDecision fields.
func (d *ApprovalDecision) Validate() error {
	if d.Decision != ApprovalStatusApproved && d.Decision != ApprovalStatusRejected {
		return errors.New("decision must be approved or rejected")
	}
	if d.Decision == ApprovalStatusRejected && strings.TrimSpace(d.Comment) == "" {
		return errors.New("comment is required when rejecting")
	}
	if len(d.Comment) > 4000 {
		return errors.New("comment must be 4000 characters or fewer")
	}
	return nil
}
