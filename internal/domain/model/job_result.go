package model

import (
	"github.com/target/mmk-content-dashboard/internal/domain/jsonv"
)

// StepStatus is the execution outcome of one pipeline step.
type StepStatus string

const (
	// StepStatusSuccess indicates the step produced output.
	StepStatusSuccess StepStatus = "success"
	// StepStatusFailed indicates the step errored.
	StepStatusFailed StepStatus = "failed"
	// StepStatusSkipped indicates the step was not run.
	StepStatusSkipped StepStatus = "skipped"
)

// Valid returns true if the StepStatus is a known outcome.
func (s StepStatus) Valid() bool {
	return s == StepStatusSuccess || s == StepStatusFailed || s == StepStatusSkipped
}

// StepInfo describes the execution of one pipeline step.
// Values are fixed once decoded from metadata.step_info.
type StepInfo struct {
	StepNumber    int        `json:"step_number"`
	StepName      string     `json:"step_name"`
	ExecutionTime *float64   `json:"execution_time,omitempty"`
	TokensUsed    *int       `json:"tokens_used,omitempty"`
	Status        StepStatus `json:"status,omitempty"`
	ErrorMessage  *string    `json:"error_message,omitempty"`
}

// CanonicalResult is the backend-version-independent shape of a job result.
//
// Source is the object the result was decoded from. It is kept so callers can
// compare identity and re-render fields the typed model does not name.
type CanonicalResult struct {
	FinalContent any           `json:"final_content,omitempty"`
	InputContent any           `json:"input_content,omitempty"`
	StepResults  *jsonv.Object `json:"step_results"`
	Metadata     *jsonv.Object `json:"metadata"`
	Steps        []StepInfo    `json:"steps"`
	Source       *jsonv.Object `json:"-"`
}

// StepOutput returns the raw output recorded for a step name.
// A JSON null output is reported as present.
func (r *CanonicalResult) StepOutput(name string) (any, bool) {
	if r == nil {
		return nil, false
	}
	return r.StepResults.Get(name)
}

// HasInputContent reports whether the result carries a non-empty input.
func (r *CanonicalResult) HasInputContent() bool {
	if r == nil || r.InputContent == nil {
		return false
	}
	if s, ok := r.InputContent.(string); ok {
		return s != ""
	}
	return true
}

// ResultView is what the dashboard returns for a job or sub-job result request.
type ResultView struct {
	JobID    string           `json:"job_id"`
	SubjobID string           `json:"subjob_id,omitempty"`
	Found    bool             `json:"found"`
	Result   *CanonicalResult `json:"result,omitempty"`
	StepKeys []string         `json:"step_keys"`
	Message  string           `json:"message,omitempty"`
	Error    string           `json:"error,omitempty"`
}
