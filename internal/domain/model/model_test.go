package model

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/target/mmk-content-dashboard/internal/domain/jsonv"
)

func TestParseJobStatus(t *testing.T) {
	tests := map[string]JobStatus{
		"completed":        JobStatusCompleted,
		" Success ":        JobStatusCompleted,
		"complete":         JobStatusCompleted,
		"ERROR":            JobStatusFailed,
		"canceled":         JobStatusCancelled,
		"queued":           JobStatusPending,
		"processing":       JobStatusRunning,
		"pending_approval": JobStatusAwaitingApproval,
		"running":          JobStatusRunning,
	}
	for in, want := range tests {
		got, err := ParseJobStatus(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseJobStatus("exploded")
	require.Error(t, err)
}

func TestJobStatus_Terminal(t *testing.T) {
	assert.True(t, JobStatusCompleted.Terminal())
	assert.True(t, JobStatusFailed.Terminal())
	assert.True(t, JobStatusCancelled.Terminal())
	assert.False(t, JobStatusRunning.Terminal())
	assert.False(t, JobStatusAwaitingApproval.Terminal())
}

func TestApprovalDecision_Validate(t *testing.T) {
	tests := []struct {
		name    string
		in      ApprovalDecision
		wantErr string
	}{
		{name: "approve", in: ApprovalDecision{Decision: ApprovalStatusApproved}},
		{name: "reject with comment", in: ApprovalDecision{Decision: ApprovalStatusRejected, Comment: "tone is off"}},
		{name: "pending", in: ApprovalDecision{Decision: ApprovalStatusPending}, wantErr: "approved or rejected"},
		{name: "reject without comment", in: ApprovalDecision{Decision: ApprovalStatusRejected, Comment: "  "}, wantErr: "comment is required"},
		{
			name:    "comment too long",
			in:      ApprovalDecision{Decision: ApprovalStatusApproved, Comment: strings.Repeat("x", 4001)},
			wantErr: "4000",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.in.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestPipelineSettings_Validate(t *testing.T) {
	ok := DefaultPipelineSettings()
	require.NoError(t, ok.Validate())

	tests := []struct {
		name   string
		mutate func(*PipelineSettings)
		want   string
	}{
		{name: "model", mutate: func(s *PipelineSettings) { s.Model = " " }, want: "model"},
		{name: "temperature", mutate: func(s *PipelineSettings) { s.Temperature = 2.5 }, want: "temperature"},
		{name: "word count", mutate: func(s *PipelineSettings) { s.TargetWordCount = -1 }, want: "word count"},
		{name: "retries", mutate: func(s *PipelineSettings) { s.MaxRetries = 11 }, want: "max retries"},
		{name: "empty step", mutate: func(s *PipelineSettings) { s.RequireApproval = []string{""} }, want: "empty"},
		{name: "duplicate step", mutate: func(s *PipelineSettings) { s.RequireApproval = []string{"a", "a"} }, want: "twice"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := DefaultPipelineSettings()
			tt.mutate(&s)
			err := s.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestRunPipelineRequest_Validate(t *testing.T) {
	assert.Error(t, (&RunPipelineRequest{}).Validate())
	assert.Error(t, (&RunPipelineRequest{ContentID: "c", Steps: []string{" "}}).Validate())

	bad := DefaultPipelineSettings()
	bad.MaxRetries = -1
	assert.Error(t, (&RunPipelineRequest{ContentID: "c", Settings: &bad}).Validate())

	assert.NoError(t, (&RunPipelineRequest{ContentID: "c", Steps: []string{"marketing_brief"}}).Validate())
}

func TestCanonicalResult_Accessors(t *testing.T) {
	var nilResult *CanonicalResult
	_, ok := nilResult.StepOutput("x")
	assert.False(t, ok)
	assert.False(t, nilResult.HasInputContent())

	steps := jsonv.NewObject()
	steps.Set("seo_keywords", nil)
	r := &CanonicalResult{StepResults: steps, InputContent: ""}

	v, ok := r.StepOutput("seo_keywords")
	assert.True(t, ok)
	assert.Nil(t, v)
	assert.False(t, r.HasInputContent())

	r.InputContent = "brief"
	assert.True(t, r.HasInputContent())
}
