package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/target/mmk-content-dashboard/internal/core"
	"github.com/target/mmk-content-dashboard/internal/domain/approval"
	"github.com/target/mmk-content-dashboard/internal/domain/model"
	apperrors "github.com/target/mmk-content-dashboard/internal/errors"
	"github.com/target/mmk-content-dashboard/internal/observability/metrics"
	"github.com/target/mmk-content-dashboard/internal/observability/statsd"
)

// ApprovalServiceOptions groups dependencies for ApprovalService.
type ApprovalServiceOptions struct {
	Client core.PipelineClient
	// Steps is invalidated for a job after a decision so stale outputs are refetched.
	Steps  *core.StepCacheService
	Config ApprovalServiceConfig
}

// ApprovalServiceConfig holds the ambient dependencies of ApprovalService.
type ApprovalServiceConfig struct {
	Logger  *slog.Logger
	Metrics statsd.Sink
}

// ApprovalService lists, previews and decides step approvals.
type ApprovalService struct {
	client  core.PipelineClient
	steps   *core.StepCacheService
	logger  *slog.Logger
	metrics statsd.Sink
}

// NewApprovalService constructs a new ApprovalService.
func NewApprovalService(opts ApprovalServiceOptions) *ApprovalService {
	if opts.Client == nil {
		panic("PipelineClient is required")
	}
	logger := opts.Config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &ApprovalService{
		client:  opts.Client,
		steps:   opts.Steps,
		logger:  logger.With("component", "approval_service"),
		metrics: opts.Config.Metrics,
	}
}

// ApprovalPreview is an approval with its output rendered for review.
type ApprovalPreview struct {
	Approval model.Approval `json:"approval"`
	Markdown string         `json:"markdown"`
}

// List returns the approvals recorded for a job in backend order.
func (s *ApprovalService) List(ctx context.Context, jobID string) ([]model.Approval, error) {
	if jobID == "" {
		return nil, apperrors.ValidationField("job_id", "job id is required")
	}
	raw, err := s.client.ListApprovals(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("list approvals of %s: %w", jobID, err)
	}
	items, err := extractList(raw, approvalListPaths, "approval list")
	if err != nil {
		return nil, err
	}
	out := make([]model.Approval, 0, len(items))
	for i, item := range items {
		a, decodeErr := decodeApproval(item, jobID)
		if decodeErr != nil {
			s.logger.WarnContext(ctx, "skipping undecodable approval", "job_id", jobID, "index", i, "error", decodeErr)
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

// Preview fetches one approval and renders its output with the approval's step type.
func (s *ApprovalService) Preview(ctx context.Context, jobID, step string) (*ApprovalPreview, error) {
	if err := requireJobStep(jobID, step); err != nil {
		return nil, err
	}
	raw, err := s.client.GetApproval(ctx, jobID, step)
	if err != nil {
		return nil, fmt.Errorf("get approval %s/%s: %w", jobID, step, err)
	}
	a, err := decodeApproval(unwrapEnvelope(raw, "approval"), jobID)
	if err != nil {
		return nil, apperrors.Wrapf(err, apperrors.ErrCodeUpstream, "approval %s/%s is unreadable", jobID, step)
	}
	return &ApprovalPreview{Approval: a, Markdown: approval.Format(a.Output, a.StepType)}, nil
}

// Decide validates and forwards a reviewer decision, then drops the job's
// cached step outputs.
func (s *ApprovalService) Decide(ctx context.Context, jobID, step string, decision model.ApprovalDecision) error {
	if err := requireJobStep(jobID, step); err != nil {
		return err
	}
	if err := decision.Validate(); err != nil {
		return apperrors.ValidationField("decision", err.Error())
	}

	err := s.client.SubmitApproval(ctx, jobID, step, decision)
	metrics.EmitApprovalDecision(s.metrics, step, string(decision.Decision), err)
	if err != nil {
		return fmt.Errorf("submit approval %s/%s: %w", jobID, step, err)
	}

	s.logger.InfoContext(ctx, "approval decided",
		"job_id", jobID, "step", step, "decision", decision.Decision, "reviewer", decision.Reviewer)

	if s.steps != nil {
		if err := s.steps.Invalidate(ctx, jobID); err != nil {
			s.logger.WarnContext(ctx, "invalidating step cache failed", "job_id", jobID, "error", err)
		}
	}
	return nil
}

func requireJobStep(jobID, step string) error {
	if jobID == "" {
		return apperrors.ValidationField("job_id", "job id is required")
	}
	if step == "" {
		return apperrors.ValidationField("step", "step name is required")
	}
	return nil
}
