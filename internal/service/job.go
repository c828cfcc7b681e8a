package service

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/target/mmk-content-dashboard/internal/core"
	"github.com/target/mmk-content-dashboard/internal/domain/jsonv"
	"github.com/target/mmk-content-dashboard/internal/domain/model"
	"github.com/target/mmk-content-dashboard/internal/domain/result"
	apperrors "github.com/target/mmk-content-dashboard/internal/errors"
	"github.com/target/mmk-content-dashboard/internal/observability/metrics"
	"github.com/target/mmk-content-dashboard/internal/observability/statsd"
	"golang.org/x/sync/singleflight"
)

const (
	snapshotKey         = "jobs:snapshot"
	defaultSnapshotTTL  = 2 * time.Minute
	defaultMaxFetches   = 4
	defaultFetchTimeout = 30 * time.Second
	noContentFoundLabel = "No content found"
)

// JobCacheOptions groups the optional caches used by JobService.
type JobCacheOptions struct {
	Steps       *core.StepCacheService
	Snapshots   core.CacheRepository
	SnapshotTTL time.Duration
}

// JobServiceConfig tunes JobService behavior.
type JobServiceConfig struct {
	// MaxConcurrency bounds parallel sub-job result fetches.
	MaxConcurrency int
	// FetchTimeout bounds a shared result fetch once it is detached from
	// the caller that started it.
	FetchTimeout   time.Duration
	Logger         *slog.Logger
	Metrics        statsd.Sink
}

// JobServiceOptions groups dependencies for JobService.
type JobServiceOptions struct {
	Client core.PipelineClient
	Cache  JobCacheOptions
	Config JobServiceConfig
}

// JobService serves job lists, statuses and normalized results from the
// pipeline backend.
type JobService struct {
	client       core.PipelineClient
	steps        *core.StepCacheService
	snapshots    core.CacheRepository
	snapshotTTL  time.Duration
	maxFetches   int
	fetchTimeout time.Duration
	normalizer   *result.Normalizer
	logger       *slog.Logger
	metrics      statsd.Sink
	inflight     singleflight.Group
}

// NewJobService constructs a new JobService.
func NewJobService(opts JobServiceOptions) *JobService {
	if opts.Client == nil {
		panic("PipelineClient is required")
	}
	logger := opts.Config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	ttl := opts.Cache.SnapshotTTL
	if ttl <= 0 {
		ttl = defaultSnapshotTTL
	}
	maxFetches := opts.Config.MaxConcurrency
	if maxFetches < 1 {
		maxFetches = defaultMaxFetches
	}
	fetchTimeout := opts.Config.FetchTimeout
	if fetchTimeout <= 0 {
		fetchTimeout = defaultFetchTimeout
	}
	return &JobService{
		client:       opts.Client,
		steps:        opts.Cache.Steps,
		snapshots:    opts.Cache.Snapshots,
		snapshotTTL:  ttl,
		maxFetches:   maxFetches,
		fetchTimeout: fetchTimeout,
		normalizer:   result.NewNormalizer(logger),
		logger:       logger.With("component", "job_service"),
		metrics:      opts.Config.Metrics,
	}
}

// List returns jobs newest first. With filter.Cached the last snapshot is
// served when present; otherwise the backend is queried.
func (s *JobService) List(ctx context.Context, filter model.JobListFilter) ([]model.JobSummary, error) {
	var jobs []model.JobSummary
	if filter.Cached {
		cached, ok := s.loadSnapshot(ctx)
		if ok {
			jobs = cached.Jobs
		}
	}
	if jobs == nil {
		fetched, _, err := s.fetchJobs(ctx)
		if err != nil {
			return nil, err
		}
		jobs = fetched
	}
	return applyJobFilter(jobs, filter), nil
}

// SnapshotStats summarizes one snapshot refresh.
type SnapshotStats struct {
	Jobs    int
	Active  int
	Skipped int
}

type jobSnapshot struct {
	TakenAt time.Time          `json:"taken_at"`
	Jobs    []model.JobSummary `json:"jobs"`
}

// RefreshSnapshot fetches the job list and stores it as the cached snapshot.
func (s *JobService) RefreshSnapshot(ctx context.Context) (SnapshotStats, error) {
	if s.snapshots == nil {
		return SnapshotStats{}, apperrors.Internal("job snapshot cache is not configured")
	}
	jobs, skipped, err := s.fetchJobs(ctx)
	if err != nil {
		return SnapshotStats{}, err
	}

	payload, err := json.Marshal(jobSnapshot{TakenAt: time.Now().UTC(), Jobs: jobs})
	if err != nil {
		return SnapshotStats{}, fmt.Errorf("encode job snapshot: %w", err)
	}
	if err := s.snapshots.Set(ctx, snapshotKey, payload, s.snapshotTTL); err != nil {
		return SnapshotStats{}, fmt.Errorf("store job snapshot: %w", err)
	}

	stats := SnapshotStats{Jobs: len(jobs), Skipped: skipped}
	for _, j := range jobs {
		if !j.Status.Terminal() {
			stats.Active++
		}
	}
	return stats, nil
}

func (s *JobService) loadSnapshot(ctx context.Context) (jobSnapshot, bool) {
	if s.snapshots == nil {
		return jobSnapshot{}, false
	}
	payload, err := s.snapshots.Get(ctx, snapshotKey)
	if err != nil {
		s.logger.WarnContext(ctx, "read job snapshot failed", "error", err)
		return jobSnapshot{}, false
	}
	metrics.EmitCacheLookup(s.metrics, "job_snapshot", payload != nil)
	if payload == nil {
		return jobSnapshot{}, false
	}
	var snap jobSnapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		s.logger.WarnContext(ctx, "discarding unreadable job snapshot", "error", err)
		return jobSnapshot{}, false
	}
	if snap.Jobs == nil {
		snap.Jobs = []model.JobSummary{}
	}
	return snap, true
}

// fetchJobs returns the decoded job list and the number of entries skipped.
func (s *JobService) fetchJobs(ctx context.Context) ([]model.JobSummary, int, error) {
	raw, err := s.client.ListJobs(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("list jobs: %w", err)
	}
	items, err := extractList(raw, jobListPaths, "job list")
	if err != nil {
		return nil, 0, err
	}

	jobs := make([]model.JobSummary, 0, len(items))
	for i, item := range items {
		job, decodeErr := decodeJobSummary(item)
		if decodeErr != nil {
			s.logger.WarnContext(ctx, "skipping undecodable job list entry", "index", i, "error", decodeErr)
			continue
		}
		jobs = append(jobs, job)
	}

	slices.SortStableFunc(jobs, func(a, b model.JobSummary) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return jobs, len(items) - len(jobs), nil
}

func applyJobFilter(jobs []model.JobSummary, filter model.JobListFilter) []model.JobSummary {
	out := make([]model.JobSummary, 0, len(jobs))
	for _, j := range jobs {
		if filter.Status != nil && j.Status != *filter.Status {
			continue
		}
		out = append(out, j)
		if filter.Limit > 0 && len(out) == filter.Limit {
			break
		}
	}
	return out
}

// Status returns the current state of one job.
func (s *JobService) Status(ctx context.Context, jobID string) (*model.JobSummary, error) {
	if jobID == "" {
		return nil, apperrors.ValidationField("job_id", "job id is required")
	}
	raw, err := s.client.GetJob(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("get job %s: %w", jobID, err)
	}
	obj, ok := jsonv.ToGo(unwrapEnvelope(raw, "job")).(map[string]any)
	if !ok {
		return nil, apperrors.Upstreamf("job %s status response is not an object", jobID)
	}
	if _, hasID := obj["id"]; !hasID {
		if _, hasJobID := obj["job_id"]; !hasJobID {
			obj["id"] = jobID
		}
	}
	job, err := decodeJobSummary(obj)
	if err != nil {
		return nil, apperrors.Wrapf(err, apperrors.ErrCodeUpstream, "job %s status is unreadable", jobID)
	}
	return &job, nil
}
