package core

import (
	"context"
	"io"

	"github.com/target/mmk-content-dashboard/internal/domain/model"
)

// PipelineClient is the port to the content pipeline backend. Read operations
// return decoded JSON (jsonv values) so callers can normalize payload shapes
// that differ across backend versions.
type PipelineClient interface {
	ListJobs(ctx context.Context) (any, error)
	GetJob(ctx context.Context, jobID string) (any, error)
	GetJobResult(ctx context.Context, jobID string) (any, error)
	ListSubjobs(ctx context.Context, jobID string) (any, error)
	GetSubjobResult(ctx context.Context, jobID, subjobID string) (any, error)
	ListApprovals(ctx context.Context, jobID string) (any, error)
	GetApproval(ctx context.Context, jobID, step string) (any, error)
	SubmitApproval(ctx context.Context, jobID, step string, decision model.ApprovalDecision) error
	UploadContent(ctx context.Context, filename, contentType string, body io.Reader) (any, error)
	RunPipeline(ctx context.Context, req model.RunPipelineRequest) (any, error)
}

// SettingsRepository stores pipeline settings versions.
type SettingsRepository interface {
	// Latest returns the newest version, or a NotFound error when history is empty.
	Latest(ctx context.Context) (*model.SettingsVersion, error)
	// Get returns a specific version, or a NotFound error.
	Get(ctx context.Context, version int) (*model.SettingsVersion, error)
	// List returns up to limit versions, newest first.
	List(ctx context.Context, limit int) ([]*model.SettingsVersion, error)
	// Append inserts v. A version that already exists yields a Conflict error.
	Append(ctx context.Context, v *model.SettingsVersion) (*model.SettingsVersion, error)
	// Prune deletes all but the newest keep versions and reports how many were removed.
	Prune(ctx context.Context, keep int) (int64, error)
}
