package service

import (
	"context"
	"fmt"
	"time"

	"github.com/target/mmk-content-dashboard/internal/domain/approval"
	"github.com/target/mmk-content-dashboard/internal/domain/model"
	"github.com/target/mmk-content-dashboard/internal/domain/result"
	apperrors "github.com/target/mmk-content-dashboard/internal/errors"
	"github.com/target/mmk-content-dashboard/internal/observability/metrics"
	"golang.org/x/sync/errgroup"
)

// FinalResult fetches and normalizes a job's result and caches its step
// outputs. A missing or non-object result yields a view with Found=false.
// Concurrent calls for the same job share one backend fetch. The shared fetch
// is detached from any single caller's cancellation and bounded by the fetch
// timeout; each caller still returns as soon as its own ctx is done.
func (s *JobService) FinalResult(ctx context.Context, jobID string) (*model.ResultView, error) {
	if jobID == "" {
		return nil, apperrors.ValidationField("job_id", "job id is required")
	}
	ch := s.inflight.DoChan("result:"+jobID, func() (any, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.fetchTimeout)
		defer cancel()
		raw, fetchErr := s.client.GetJobResult(fetchCtx, jobID)
		if fetchErr != nil {
			if apperrors.IsNotFound(fetchErr) {
				return notFoundView(jobID, ""), nil
			}
			return nil, fmt.Errorf("get result for job %s: %w", jobID, fetchErr)
		}
		return s.resolve(fetchCtx, raw, jobID, jobID, ""), nil
	})

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("get result for job %s: %w", jobID, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		// Each caller gets its own view; the shared result is read-only.
		view := *res.Val.(*model.ResultView)
		return &view, nil
	}
}

// SubjobResults lists a job's sub-jobs and resolves each sub-job result.
// A failing sub-job is reported in its view's Error and does not fail the call.
func (s *JobService) SubjobResults(ctx context.Context, jobID string) ([]model.ResultView, error) {
	if jobID == "" {
		return nil, apperrors.ValidationField("job_id", "job id is required")
	}
	raw, err := s.client.ListSubjobs(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("list sub-jobs of %s: %w", jobID, err)
	}
	items, err := extractList(raw, subjobListPaths, "sub-job list")
	if err != nil {
		return nil, err
	}

	refs := make([]model.SubjobRef, 0, len(items))
	for i, item := range items {
		ref, decodeErr := decodeSubjobRef(item)
		if decodeErr != nil {
			s.logger.WarnContext(ctx, "skipping undecodable sub-job entry", "job_id", jobID, "index", i, "error", decodeErr)
			continue
		}
		refs = append(refs, ref)
	}

	views := make([]model.ResultView, len(refs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.maxFetches)
	for i, ref := range refs {
		g.Go(func() error {
			views[i] = s.subjobResult(gctx, jobID, ref.ID)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return views, nil
}

func (s *JobService) subjobResult(ctx context.Context, jobID, subjobID string) model.ResultView {
	raw, err := s.client.GetSubjobResult(ctx, jobID, subjobID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return *notFoundView(jobID, subjobID)
		}
		s.logger.WarnContext(ctx, "sub-job result fetch failed", "job_id", jobID, "subjob_id", subjobID, "error", err)
		view := notFoundView(jobID, subjobID)
		view.Message = ""
		view.Error = apperrors.Message(err, err.Error())
		return *view
	}
	return *s.resolve(ctx, raw, jobID, subjobID, subjobID)
}

// resolve normalizes raw, caches its step index under cacheID and builds the view.
func (s *JobService) resolve(ctx context.Context, raw any, jobID, cacheID, subjobID string) *model.ResultView {
	start := time.Now()
	res, index := s.normalizer.Resolve(raw, cacheID)
	shape := result.DetectShape(raw)
	if res == nil {
		metrics.EmitResultNormalized(s.metrics, metrics.ResultMetric{Shape: string(shape), Duration: time.Since(start)})
		return notFoundView(jobID, subjobID)
	}
	metrics.EmitResultNormalized(s.metrics, metrics.ResultMetric{
		Shape:    string(shape),
		Steps:    len(res.Steps),
		Indexed:  index.Len(),
		Duration: time.Since(start),
	})

	if s.steps != nil {
		if err := s.steps.Store(ctx, cacheID, index); err != nil {
			s.logger.WarnContext(ctx, "caching step outputs failed", "job_id", cacheID, "error", err)
		}
	}

	keys := index.Keys()
	if keys == nil {
		keys = []string{}
	}
	return &model.ResultView{
		JobID:    jobID,
		SubjobID: subjobID,
		Found:    true,
		Result:   res,
		StepKeys: keys,
	}
}

func notFoundView(jobID, subjobID string) *model.ResultView {
	return &model.ResultView{
		JobID:    jobID,
		SubjobID: subjobID,
		StepKeys: []string{},
		Message:  noContentFoundLabel,
	}
}

// StepOutput returns the output of one step. On a cache miss the job result is
// fetched once to repopulate the cache before giving up.
func (s *JobService) StepOutput(ctx context.Context, jobID string, stepNumber int) (any, error) {
	if jobID == "" {
		return nil, apperrors.ValidationField("job_id", "job id is required")
	}
	if stepNumber < 0 {
		return nil, apperrors.ValidationField("step", "step number must be >= 0")
	}
	key := result.CacheKey(jobID, stepNumber)

	if out, ok := s.cachedStep(ctx, jobID, stepNumber); ok {
		return out, nil
	}

	view, err := s.FinalResult(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if s.steps != nil {
		if out, ok := s.cachedStep(ctx, jobID, stepNumber); ok {
			return out, nil
		}
	}
	// Without a cache the freshly resolved index is authoritative.
	if view.Found {
		if out, ok := result.ExtractStepIndex(view.Result, jobID).Get(key); ok {
			return out, nil
		}
	}
	return nil, apperrors.NotFoundf("no output for %s", key)
}

func (s *JobService) cachedStep(ctx context.Context, jobID string, stepNumber int) (any, bool) {
	if s.steps == nil {
		return nil, false
	}
	out, ok, err := s.steps.Get(ctx, jobID, stepNumber)
	if err != nil {
		s.logger.WarnContext(ctx, "step cache lookup failed", "job_id", jobID, "step", stepNumber, "error", err)
		return nil, false
	}
	metrics.EmitCacheLookup(s.metrics, "step", ok)
	return out, ok
}

// StepMarkdown renders one step output for review.
func (s *JobService) StepMarkdown(ctx context.Context, jobID string, stepNumber int, stepType string) (string, error) {
	out, err := s.StepOutput(ctx, jobID, stepNumber)
	if err != nil {
		return "", err
	}
	return approval.Format(out, stepType), nil
}

// StepKeys lists the cached step keys of a job.
func (s *JobService) StepKeys(ctx context.Context, jobID string) ([]string, error) {
	if s.steps == nil {
		return []string{}, nil
	}
	keys, err := s.steps.Keys(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("list cached steps of %s: %w", jobID, err)
	}
	if keys == nil {
		keys = []string{}
	}
	return keys, nil
}

// ClearStepCache drops every cached step output of a job.
func (s *JobService) ClearStepCache(ctx context.Context, jobID string) error {
	if jobID == "" {
		return apperrors.ValidationField("job_id", "job id is required")
	}
	if s.steps == nil {
		return nil
	}
	return s.steps.Invalidate(ctx, jobID)
}
