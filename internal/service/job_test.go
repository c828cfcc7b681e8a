package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/target/mmk-content-dashboard/internal/core"
	"github.com/target/mmk-content-dashboard/internal/data"
	"github.com/target/mmk-content-dashboard/internal/domain/jsonv"
	"github.com/target/mmk-content-dashboard/internal/domain/model"
	apperrors "github.com/target/mmk-content-dashboard/internal/errors"
	"github.com/target/mmk-content-dashboard/internal/mocks"
	"github.com/target/mmk-content-dashboard/internal/observability/statsd"
	"github.com/target/mmk-content-dashboard/internal/testutil"
	"go.uber.org/mock/gomock"
)

func decodeJSON(t *testing.T, s string) any {
	t.Helper()
	v, err := jsonv.Decode([]byte(s))
	require.NoError(t, err)
	return v
}

type jobServiceHarness struct {
	svc     *JobService
	client  *mocks.MockPipelineClient
	cache   *data.RedisCacheRepo
	steps   *core.StepCacheService
	metrics *statsd.Recorder
}

func newJobServiceHarness(t *testing.T) *jobServiceHarness {
	t.Helper()
	ctrl := gomock.NewController(t)
	client := mocks.NewMockPipelineClient(ctrl)
	rdb, _ := testutil.SetupTestRedis(t)
	cache := data.NewRedisCacheRepo(rdb)
	steps := core.NewStepCacheService(cache, core.StepCacheConfig{TTL: time.Minute})
	rec := &statsd.Recorder{}

	svc := NewJobService(JobServiceOptions{
		Client: client,
		Cache:  JobCacheOptions{Steps: steps, Snapshots: cache, SnapshotTTL: time.Minute},
		Config: JobServiceConfig{MaxConcurrency: 2, Metrics: rec},
	})
	return &jobServiceHarness{svc: svc, client: client, cache: cache, steps: steps, metrics: rec}
}

func TestNewJobService_RequiresClient(t *testing.T) {
	assert.Panics(t, func() { NewJobService(JobServiceOptions{}) })
}

const jobListPayload = `{"data": {"jobs": [
	{"id": "J1", "status": "complete", "created_at": "2025-03-01T10:00:00Z", "progress": 100},
	{"job_id": "J2", "status": "processing", "created_at": "2025-03-02T10:00:00", "progress": 0.5},
	{"status": "running"},
	{"id": "J3", "status": "paused", "created_at": 1740823200}
]}}`

func TestJobService_List(t *testing.T) {
	h := newJobServiceHarness(t)
	ctx := context.Background()
	h.client.EXPECT().ListJobs(gomock.Any()).Return(decodeJSON(t, jobListPayload), nil)

	jobs, err := h.svc.List(ctx, model.JobListFilter{})
	require.NoError(t, err)
	require.Len(t, jobs, 3)

	assert.Equal(t, "J2", jobs[0].ID)
	assert.Equal(t, model.JobStatusRunning, jobs[0].Status)
	require.NotNil(t, jobs[0].Progress)
	assert.InDelta(t, 0.5, *jobs[0].Progress, 1e-9)

	// J1 and J3 share a creation time; ties sort by id.
	assert.Equal(t, "J1", jobs[1].ID)
	assert.Equal(t, model.JobStatusCompleted, jobs[1].Status)
	require.NotNil(t, jobs[1].Progress)
	assert.InDelta(t, 1.0, *jobs[1].Progress, 1e-9)

	assert.Equal(t, "J3", jobs[2].ID)
	assert.Equal(t, model.JobStatus("paused"), jobs[2].Status)
	assert.Equal(t, time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC), jobs[2].CreatedAt)
}

func TestJobService_ListFilters(t *testing.T) {
	h := newJobServiceHarness(t)
	h.client.EXPECT().ListJobs(gomock.Any()).Return(decodeJSON(t, jobListPayload), nil).Times(2)

	running := model.JobStatusRunning
	jobs, err := h.svc.List(context.Background(), model.JobListFilter{Status: &running})
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, "J2", jobs[0].ID)

	jobs, err = h.svc.List(context.Background(), model.JobListFilter{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, jobs, 2)
}

func TestJobService_ListShapes(t *testing.T) {
	tests := map[string]string{
		"bare array": `[{"id": "A"}]`,
		"jobs":       `{"jobs": [{"id": "A"}]}`,
		"items":      `{"items": [{"id": "A"}], "total": 1}`,
		"results":    `{"results": [{"id": "A"}]}`,
	}
	for name, payload := range tests {
		t.Run(name, func(t *testing.T) {
			h := newJobServiceHarness(t)
			h.client.EXPECT().ListJobs(gomock.Any()).Return(decodeJSON(t, payload), nil)

			jobs, err := h.svc.List(context.Background(), model.JobListFilter{})
			require.NoError(t, err)
			require.Len(t, jobs, 1)
			assert.Equal(t, "A", jobs[0].ID)
		})
	}
}

func TestJobService_ListUnrecognizedShape(t *testing.T) {
	h := newJobServiceHarness(t)
	h.client.EXPECT().ListJobs(gomock.Any()).Return(decodeJSON(t, `{"count": 3}`), nil)

	_, err := h.svc.List(context.Background(), model.JobListFilter{})
	require.Error(t, err)
	assert.True(t, apperrors.IsUpstream(err))
}

func TestJobService_ListBackendError(t *testing.T) {
	h := newJobServiceHarness(t)
	h.client.EXPECT().ListJobs(gomock.Any()).Return(nil, apperrors.Upstreamf("backend unreachable"))

	_, err := h.svc.List(context.Background(), model.JobListFilter{})
	require.Error(t, err)
	assert.True(t, apperrors.IsUpstream(err))
}

func TestJobService_SnapshotRoundTrip(t *testing.T) {
	h := newJobServiceHarness(t)
	ctx := context.Background()
	h.client.EXPECT().ListJobs(gomock.Any()).Return(decodeJSON(t, jobListPayload), nil).Times(1)

	stats, err := h.svc.RefreshSnapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, SnapshotStats{Jobs: 3, Active: 2, Skipped: 1}, stats)

	jobs, err := h.svc.List(ctx, model.JobListFilter{Cached: true})
	require.NoError(t, err)
	require.Len(t, jobs, 3)
	assert.Equal(t, "J2", jobs[0].ID)

	hits := h.metrics.Named("cache.lookup")
	require.Len(t, hits, 1)
	assert.Equal(t, "hit", hits[0].Tags["result"])
}

func TestJobService_CachedListFallsBackToLive(t *testing.T) {
	h := newJobServiceHarness(t)
	h.client.EXPECT().ListJobs(gomock.Any()).Return(decodeJSON(t, `[{"id": "live"}]`), nil)

	jobs, err := h.svc.List(context.Background(), model.JobListFilter{Cached: true})
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, "live", jobs[0].ID)
}

func TestJobService_CorruptSnapshotIsIgnored(t *testing.T) {
	h := newJobServiceHarness(t)
	ctx := context.Background()
	require.NoError(t, h.cache.Set(ctx, snapshotKey, []byte(`{"jobs":`), time.Minute))
	h.client.EXPECT().ListJobs(gomock.Any()).Return(decodeJSON(t, `[{"id": "live"}]`), nil)

	jobs, err := h.svc.List(ctx, model.JobListFilter{Cached: true})
	require.NoError(t, err)
	require.Len(t, jobs, 1)
}

func TestJobService_RefreshSnapshotWithoutCache(t *testing.T) {
	ctrl := gomock.NewController(t)
	svc := NewJobService(JobServiceOptions{Client: mocks.NewMockPipelineClient(ctrl)})

	_, err := svc.RefreshSnapshot(context.Background())
	require.Error(t, err)
	assert.True(t, apperrors.IsInternal(err))
}

func TestJobService_Status(t *testing.T) {
	h := newJobServiceHarness(t)
	h.client.EXPECT().GetJob(gomock.Any(), "J7").
		Return(decodeJSON(t, `{"job": {"status": "waiting_approval", "current_step": "marketing_brief"}}`), nil)

	job, err := h.svc.Status(context.Background(), "J7")
	require.NoError(t, err)
	assert.Equal(t, "J7", job.ID)
	assert.Equal(t, model.JobStatusAwaitingApproval, job.Status)
	assert.Equal(t, "marketing_brief", job.CurrentStep)
}

func TestJobService_StatusErrors(t *testing.T) {
	h := newJobServiceHarness(t)

	_, err := h.svc.Status(context.Background(), "")
	assert.True(t, apperrors.IsValidation(err))

	h.client.EXPECT().GetJob(gomock.Any(), "J8").Return(decodeJSON(t, `"nope"`), nil)
	_, err = h.svc.Status(context.Background(), "J8")
	assert.True(t, apperrors.IsUpstream(err))

	h.client.EXPECT().GetJob(gomock.Any(), "J9").Return(nil, apperrors.NotFound("job not found"))
	_, err = h.svc.Status(context.Background(), "J9")
	assert.True(t, apperrors.IsNotFound(err))
}

const finalResultPayload = `{
	"pipeline_result": {
		"final_content": "# Launch",
		"step_results": {
			"seo_keywords": {"primary": ["shoes"]},
			"marketing_brief": {"audience": "runners", "goals": ["reach"]}
		},
		"metadata": {"step_info": [
			{"step_number": 0, "step_name": "seo_keywords"},
			{"step_number": 1, "step_name": "marketing_brief"},
			{"step_number": 2, "step_name": "article_generation"}
		]}
	},
	"input_content": "Spring campaign brief"
}`

func TestJobService_FinalResult(t *testing.T) {
	h := newJobServiceHarness(t)
	ctx := context.Background()
	h.client.EXPECT().GetJobResult(gomock.Any(), "J1").Return(decodeJSON(t, finalResultPayload), nil)

	view, err := h.svc.FinalResult(ctx, "J1")
	require.NoError(t, err)
	assert.True(t, view.Found)
	assert.Equal(t, "J1", view.JobID)
	assert.Equal(t, []string{"J1_step_0.json", "J1_step_1.json"}, view.StepKeys)
	assert.Equal(t, "Spring campaign brief", view.Result.InputContent)
	assert.Equal(t, "# Launch", view.Result.FinalContent)

	keys, err := h.steps.Keys(ctx, "J1")
	require.NoError(t, err)
	assert.Equal(t, view.StepKeys, keys)

	normalized := h.metrics.Named("result.normalized")
	require.Len(t, normalized, 1)
	assert.Equal(t, "pipeline_result", normalized[0].Tags["shape"])
}

func TestJobService_FinalResultNotFound(t *testing.T) {
	tests := []struct {
		name string
		raw  any
		err  error
	}{
		{name: "backend 404", err: apperrors.NotFound("no result")},
		{name: "null result", raw: nil},
		{name: "envelope holds a string", raw: "pending"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newJobServiceHarness(t)
			raw := tt.raw
			if s, ok := raw.(string); ok {
				raw = decodeJSON(t, `{"pipeline_result": "`+s+`"}`)
			}
			h.client.EXPECT().GetJobResult(gomock.Any(), "J1").Return(raw, tt.err)

			view, err := h.svc.FinalResult(context.Background(), "J1")
			require.NoError(t, err)
			assert.False(t, view.Found)
			assert.Equal(t, noContentFoundLabel, view.Message)
			assert.NotNil(t, view.StepKeys)
			assert.Empty(t, view.StepKeys)
		})
	}
}

func TestJobService_FinalResultUpstreamError(t *testing.T) {
	h := newJobServiceHarness(t)
	h.client.EXPECT().GetJobResult(gomock.Any(), "J1").Return(nil, apperrors.Upstreamf("boom"))

	_, err := h.svc.FinalResult(context.Background(), "J1")
	require.Error(t, err)
	assert.True(t, apperrors.IsUpstream(err))
}

func TestJobService_FinalResultCollapsesConcurrentCalls(t *testing.T) {
	h := newJobServiceHarness(t)
	raw := decodeJSON(t, finalResultPayload)
	release := make(chan struct{})
	var calls atomic.Int32
	h.client.EXPECT().GetJobResult(gomock.Any(), "J1").DoAndReturn(func(context.Context, string) (any, error) {
		calls.Add(1)
		<-release
		return raw, nil
	}).MinTimes(1)

	const callers = 5
	var wg sync.WaitGroup
	views := make([]*model.ResultView, callers)
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := h.svc.FinalResult(context.Background(), "J1")
			assert.NoError(t, err)
			views[i] = v
		}()
	}
	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, time.Millisecond)
	time.Sleep(10 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.LessOrEqual(t, calls.Load(), int32(callers))
	for _, v := range views {
		require.NotNil(t, v)
		assert.True(t, v.Found)
	}
}

func TestJobService_FinalResultSurvivesFirstCallerCancel(t *testing.T) {
	h := newJobServiceHarness(t)
	raw := decodeJSON(t, finalResultPayload)
	started := make(chan struct{})
	release := make(chan struct{})
	var fetchErr atomic.Value
	h.client.EXPECT().GetJobResult(gomock.Any(), "J1").DoAndReturn(func(ctx context.Context, _ string) (any, error) {
		close(started)
		<-release
		fetchErr.Store(fmt.Sprint(ctx.Err()))
		return raw, nil
	}).Times(1)

	ctxA, cancelA := context.WithCancel(context.Background())
	errA := make(chan error, 1)
	go func() {
		_, err := h.svc.FinalResult(ctxA, "J1")
		errA <- err
	}()
	<-started

	type outcome struct {
		view *model.ResultView
		err  error
	}
	resB := make(chan outcome, 1)
	go func() {
		v, err := h.svc.FinalResult(context.Background(), "J1")
		resB <- outcome{v, err}
	}()
	time.Sleep(10 * time.Millisecond)

	cancelA()
	select {
	case err := <-errA:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("canceled caller did not return")
	}

	close(release)
	b := <-resB
	require.NoError(t, b.err)
	require.NotNil(t, b.view)
	assert.True(t, b.view.Found)
	assert.Equal(t, "<nil>", fetchErr.Load())
}

func TestJobService_SubjobResults(t *testing.T) {
	h := newJobServiceHarness(t)
	ctx := context.Background()
	h.client.EXPECT().ListSubjobs(gomock.Any(), "J1").
		Return(decodeJSON(t, `{"subjobs": [{"subjob_id": "S1", "step_name": "seo"}, "S2", {"id": "S3"}, 42]}`), nil)
	h.client.EXPECT().GetSubjobResult(gomock.Any(), "J1", "S1").Return(decodeJSON(t, `{
		"result": {"step_results": {"seo": "kw"}, "metadata": {"step_info": [{"step_name": "seo"}]}},
		"input_content": "sub brief"
	}`), nil)
	h.client.EXPECT().GetSubjobResult(gomock.Any(), "J1", "S2").Return(nil, apperrors.Upstreamf("backend returned 500"))
	h.client.EXPECT().GetSubjobResult(gomock.Any(), "J1", "S3").Return(nil, apperrors.NotFound("gone"))

	views, err := h.svc.SubjobResults(ctx, "J1")
	require.NoError(t, err)
	require.Len(t, views, 3)

	assert.Equal(t, "S1", views[0].SubjobID)
	assert.True(t, views[0].Found)
	assert.Equal(t, "sub brief", views[0].Result.InputContent)
	assert.Equal(t, []string{"S1_step_0.json"}, views[0].StepKeys)

	assert.False(t, views[1].Found)
	assert.Equal(t, "backend returned 500", views[1].Error)

	assert.False(t, views[2].Found)
	assert.Equal(t, noContentFoundLabel, views[2].Message)
	assert.Empty(t, views[2].Error)

	out, ok, err := h.steps.Get(ctx, "S1", 0)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "kw", out)
}

func TestJobService_SubjobResultsListError(t *testing.T) {
	h := newJobServiceHarness(t)
	h.client.EXPECT().ListSubjobs(gomock.Any(), "J1").Return(nil, errors.New("dial tcp: refused"))

	_, err := h.svc.SubjobResults(context.Background(), "J1")
	require.Error(t, err)
}

func TestJobService_StepOutput(t *testing.T) {
	h := newJobServiceHarness(t)
	ctx := context.Background()
	h.client.EXPECT().GetJobResult(gomock.Any(), "J1").Return(decodeJSON(t, finalResultPayload), nil).Times(1)

	out, err := h.svc.StepOutput(ctx, "J1", 1)
	require.NoError(t, err)
	encoded, err := json.Marshal(out)
	require.NoError(t, err)
	assert.Equal(t, `{"audience":"runners","goals":["reach"]}`, string(encoded))

	// Served from the cache without another fetch.
	out, err = h.svc.StepOutput(ctx, "J1", 0)
	require.NoError(t, err)
	assert.NotNil(t, out)
}

func TestJobService_StepOutputMissing(t *testing.T) {
	h := newJobServiceHarness(t)
	h.client.EXPECT().GetJobResult(gomock.Any(), "J1").Return(decodeJSON(t, finalResultPayload), nil)

	_, err := h.svc.StepOutput(context.Background(), "J1", 2)
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))

	_, err = h.svc.StepOutput(context.Background(), "J1", -1)
	assert.True(t, apperrors.IsValidation(err))
}

func TestJobService_StepOutputWithoutCache(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := mocks.NewMockPipelineClient(ctrl)
	client.EXPECT().GetJobResult(gomock.Any(), "J1").Return(decodeJSON(t, finalResultPayload), nil)
	svc := NewJobService(JobServiceOptions{Client: client})

	out, err := svc.StepOutput(context.Background(), "J1", 0)
	require.NoError(t, err)
	encoded, err := json.Marshal(out)
	require.NoError(t, err)
	assert.Equal(t, `{"primary":["shoes"]}`, string(encoded))
}

func TestJobService_StepMarkdown(t *testing.T) {
	h := newJobServiceHarness(t)
	h.client.EXPECT().GetJobResult(gomock.Any(), "J1").Return(decodeJSON(t, finalResultPayload), nil)

	md, err := h.svc.StepMarkdown(context.Background(), "J1", 1, "marketing_brief")
	require.NoError(t, err)
	assert.Contains(t, md, "runners")
}

func TestJobService_ClearStepCache(t *testing.T) {
	h := newJobServiceHarness(t)
	ctx := context.Background()
	h.client.EXPECT().GetJobResult(gomock.Any(), "J1").Return(decodeJSON(t, finalResultPayload), nil)

	_, err := h.svc.FinalResult(ctx, "J1")
	require.NoError(t, err)
	keys, err := h.svc.StepKeys(ctx, "J1")
	require.NoError(t, err)
	require.Len(t, keys, 2)

	require.NoError(t, h.svc.ClearStepCache(ctx, "J1"))
	keys, err = h.svc.StepKeys(ctx, "J1")
	require.NoError(t, err)
	assert.Empty(t, keys)

	assert.True(t, apperrors.IsValidation(h.svc.ClearStepCache(ctx, "")))
}
