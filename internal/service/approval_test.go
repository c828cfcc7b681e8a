package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/target/mmk-content-dashboard/internal/core"
	"github.com/target/mmk-content-dashboard/internal/domain/jsonv"
	"github.com/target/mmk-content-dashboard/internal/domain/model"
	apperrors "github.com/target/mmk-content-dashboard/internal/errors"
	"github.com/target/mmk-content-dashboard/internal/mocks"
	"github.com/target/mmk-content-dashboard/internal/observability/statsd"
	"go.uber.org/mock/gomock"
)

func newApprovalService(t *testing.T) (*ApprovalService, *mocks.MockPipelineClient, *mocks.MockCacheRepository, *statsd.Recorder) {
	t.Helper()
	ctrl := gomock.NewController(t)
	client := mocks.NewMockPipelineClient(ctrl)
	cache := mocks.NewMockCacheRepository(ctrl)
	rec := &statsd.Recorder{}
	svc := NewApprovalService(ApprovalServiceOptions{
		Client: client,
		Steps:  core.NewStepCacheService(cache, core.DefaultStepCacheConfig()),
		Config: ApprovalServiceConfig{Metrics: rec},
	})
	return svc, client, cache, rec
}

func TestApprovalService_List(t *testing.T) {
	svc, client, _, _ := newApprovalService(t)
	client.EXPECT().ListApprovals(gomock.Any(), "J1").Return(decodeJSON(t, `{"approvals": [
		{"step_name": "marketing_brief", "status": "PENDING", "output": {"zeta": 1, "alpha": 2}, "created_at": "2025-03-01T10:00:00Z"},
		{"step": "article_generation", "step_type": "article_generation", "status": "approved", "reviewer": "sam"},
		{"status": "pending"},
		{"step_name": "seo_keywords", "status": "on_hold"}
	]}`), nil)

	approvals, err := svc.List(context.Background(), "J1")
	require.NoError(t, err)
	require.Len(t, approvals, 3)

	first := approvals[0]
	assert.Equal(t, "J1", first.JobID)
	assert.Equal(t, "marketing_brief", first.StepType)
	assert.Equal(t, model.ApprovalStatusPending, first.Status)
	assert.Equal(t, time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC), first.CreatedAt)
	out, ok := jsonv.AsObject(first.Output)
	require.True(t, ok)
	assert.Equal(t, []string{"zeta", "alpha"}, out.Keys())

	assert.Equal(t, "article_generation", approvals[1].StepName)
	assert.Equal(t, model.ApprovalStatusApproved, approvals[1].Status)
	assert.Equal(t, "sam", approvals[1].Reviewer)

	assert.Equal(t, model.ApprovalStatusPending, approvals[2].Status)
}

func TestApprovalService_Preview(t *testing.T) {
	svc, client, _, _ := newApprovalService(t)
	client.EXPECT().GetApproval(gomock.Any(), "J1", "seo_keywords").Return(decodeJSON(t, `{"approval": {
		"step_name": "seo_keywords", "status": "pending",
		"output": {"primary_keywords": ["trail shoes", "running"], "confidence_score": 0.82}
	}}`), nil)

	preview, err := svc.Preview(context.Background(), "J1", "seo_keywords")
	require.NoError(t, err)
	assert.Equal(t, "seo_keywords", preview.Approval.StepName)
	assert.Contains(t, preview.Markdown, "trail shoes")
	assert.Contains(t, preview.Markdown, "82")
}

func TestApprovalService_PreviewNullOutput(t *testing.T) {
	svc, client, _, _ := newApprovalService(t)
	client.EXPECT().GetApproval(gomock.Any(), "J1", "seo_keywords").
		Return(decodeJSON(t, `{"step_name": "seo_keywords", "status": "pending", "output": null}`), nil)

	preview, err := svc.Preview(context.Background(), "J1", "seo_keywords")
	require.NoError(t, err)
	assert.Equal(t, "No output available", preview.Markdown)
}

func TestApprovalService_PreviewErrors(t *testing.T) {
	svc, client, _, _ := newApprovalService(t)

	_, err := svc.Preview(context.Background(), "J1", "")
	assert.True(t, apperrors.IsValidation(err))

	client.EXPECT().GetApproval(gomock.Any(), "J1", "x").Return(decodeJSON(t, `[1, 2]`), nil)
	_, err = svc.Preview(context.Background(), "J1", "x")
	assert.True(t, apperrors.IsUpstream(err))

	client.EXPECT().GetApproval(gomock.Any(), "J1", "y").Return(nil, apperrors.NotFound("no approval"))
	_, err = svc.Preview(context.Background(), "J1", "y")
	assert.True(t, apperrors.IsNotFound(err))
}

func TestApprovalService_Decide(t *testing.T) {
	svc, client, cache, rec := newApprovalService(t)
	decision := model.ApprovalDecision{Decision: model.ApprovalStatusApproved, Reviewer: "sam"}

	gomock.InOrder(
		client.EXPECT().SubmitApproval(gomock.Any(), "J1", "marketing_brief", decision).Return(nil),
		cache.EXPECT().Get(gomock.Any(), "stepcache:index:J1").Return([]byte(`["J1_step_1.json"]`), nil),
		cache.EXPECT().Delete(gomock.Any(), "stepcache:J1_step_1.json").Return(true, nil),
		cache.EXPECT().Delete(gomock.Any(), "stepcache:index:J1").Return(true, nil),
	)

	require.NoError(t, svc.Decide(context.Background(), "J1", "marketing_brief", decision))

	decisions := rec.Named("approval.decision")
	require.Len(t, decisions, 1)
	assert.Equal(t, "approved", decisions[0].Tags["decision"])
	assert.Equal(t, "success", decisions[0].Tags["result"])
}

func TestApprovalService_DecideRejectsInvalid(t *testing.T) {
	svc, _, _, _ := newApprovalService(t)

	err := svc.Decide(context.Background(), "J1", "marketing_brief", model.ApprovalDecision{Decision: model.ApprovalStatusRejected})
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
	assert.Equal(t, "decision", apperrors.GetField(err))
}

func TestApprovalService_DecideBackendConflict(t *testing.T) {
	svc, client, _, rec := newApprovalService(t)
	decision := model.ApprovalDecision{Decision: model.ApprovalStatusApproved}
	client.EXPECT().SubmitApproval(gomock.Any(), "J1", "marketing_brief", decision).
		Return(apperrors.Conflict("approval already decided"))

	err := svc.Decide(context.Background(), "J1", "marketing_brief", decision)
	require.Error(t, err)
	assert.True(t, apperrors.IsConflict(err))

	decisions := rec.Named("approval.decision")
	require.Len(t, decisions, 1)
	assert.Equal(t, "error", decisions[0].Tags["result"])
}
