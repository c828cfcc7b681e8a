package jobwatch

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/target/mmk-content-dashboard/internal/observability/statsd"
	"github.com/target/mmk-content-dashboard/internal/service"
)

type fakeRefresher struct {
	calls atomic.Int32
	err   error
	stats service.SnapshotStats
}

func (f *fakeRefresher) RefreshSnapshot(context.Context) (service.SnapshotStats, error) {
	f.calls.Add(1)
	return f.stats, f.err
}

func TestNewRunner_RequiresRefresher(t *testing.T) {
	_, err := NewRunner(RunnerOptions{})
	require.Error(t, err)
}

func TestRunner_RefreshesUntilCancelled(t *testing.T) {
	ref := &fakeRefresher{stats: service.SnapshotStats{Jobs: 4, Active: 1}}
	rec := &statsd.Recorder{}
	r, err := NewRunner(RunnerOptions{Jobs: ref, Interval: 5 * time.Millisecond, Metrics: rec})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	require.Eventually(t, func() bool { return ref.calls.Load() >= 3 }, time.Second, time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("runner did not stop")
	}

	refreshes := rec.Named("jobwatch.refresh")
	require.NotEmpty(t, refreshes)
	assert.Equal(t, "success", refreshes[0].Tags["result"])
	active := rec.Named("jobs.active")
	require.NotEmpty(t, active)
	assert.InDelta(t, 1, active[0].Value, 0)
}

func TestRunner_KeepsRunningAfterErrors(t *testing.T) {
	ref := &fakeRefresher{err: errors.New("backend down")}
	rec := &statsd.Recorder{}
	r, err := NewRunner(RunnerOptions{Jobs: ref, Interval: 5 * time.Millisecond, Metrics: rec})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = r.Run(ctx) }()

	require.Eventually(t, func() bool { return ref.calls.Load() >= 2 }, time.Second, time.Millisecond)
	refreshes := rec.Named("jobwatch.refresh")
	require.NotEmpty(t, refreshes)
	assert.Equal(t, "error", refreshes[0].Tags["result"])
}

func TestRunner_DeadlineReturnsError(t *testing.T) {
	ref := &fakeRefresher{}
	r, err := NewRunner(RunnerOptions{Jobs: ref, Interval: time.Hour})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err = r.Run(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, int32(1), ref.calls.Load())
}
