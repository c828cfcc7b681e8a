package bootstrap

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/target/mmk-content-dashboard/config"
	"github.com/target/mmk-content-dashboard/internal/mocks"
	"github.com/target/mmk-content-dashboard/internal/testutil"
	"go.uber.org/mock/gomock"
)

func TestErrorChannelCapacity(t *testing.T) {
	tests := []struct {
		name  string
		modes []config.ServiceMode
		want  int
	}{
		{name: "no services enabled", want: 0},
		{name: "http only", modes: []config.ServiceMode{config.ServiceModeHTTP}, want: 1},
		{name: "http and jobwatch", modes: []config.ServiceMode{config.ServiceModeHTTP, config.ServiceModeJobWatch}, want: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enabled := make(map[config.ServiceMode]bool, len(tt.modes))
			for _, mode := range tt.modes {
				enabled[mode] = true
			}

			if got := errorChannelCapacity(enabled); got != tt.want {
				t.Fatalf("errorChannelCapacity(%v) = %d, want %d", tt.modes, got, tt.want)
			}
			if got := errorChannelBufferSize(enabled); got != tt.want+1 {
				t.Fatalf("errorChannelBufferSize(%v) = %d, want %d", tt.modes, got, tt.want+1)
			}
		})
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig() *config.AppConfig {
	cfg := &config.AppConfig{
		Services: "http",
		Backend:  config.BackendConfig{BaseURL: "http://pipeline.test"},
		Redis:    config.RedisConfig{Namespace: "content-dashboard"},
	}
	cfg.Sanitize()
	return cfg
}

func TestNewServices_WithoutStores(t *testing.T) {
	ctrl := gomock.NewController(t)

	svc, err := NewServices(&ServiceDeps{Config: testConfig(), Client: mocks.NewMockPipelineClient(ctrl)})
	require.NoError(t, err)
	assert.NotNil(t, svc.Jobs)
	assert.NotNil(t, svc.Approvals)
	assert.NotNil(t, svc.Content)
	assert.Nil(t, svc.Settings)
	assert.Nil(t, svc.Steps)
	assert.Nil(t, svc.Observability.MetricsSink)
}

func TestNewServices_WithRedis(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := mocks.NewMockPipelineClient(ctrl)
	rdb, mr := testutil.SetupTestRedis(t)

	svc, err := NewServices(&ServiceDeps{Config: testConfig(), RedisClient: rdb, Client: client})
	require.NoError(t, err)
	require.NotNil(t, svc.Steps)

	client.EXPECT().ListJobs(gomock.Any()).Return([]any{}, nil)
	stats, err := svc.Jobs.RefreshSnapshot(context.Background())
	require.NoError(t, err)
	assert.Zero(t, stats.Jobs)
	assert.True(t, mr.Exists("content-dashboard:jobs:snapshot"), mr.Keys())
}

func TestNewServices_BuildsBackendClient(t *testing.T) {
	cfg := testConfig()
	cfg.Backend.BaseURL = "ftp://pipeline.test"

	_, err := NewServices(&ServiceDeps{Config: cfg})
	require.Error(t, err)

	_, err = NewServices(nil)
	require.Error(t, err)
}

func TestRunJobWatch_RequiresJobs(t *testing.T) {
	require.Error(t, RunJobWatch(context.Background(), JobWatchConfig{}))
}

func TestRunJobWatch_StopsOnCancel(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := mocks.NewMockPipelineClient(ctrl)
	rdb, _ := testutil.SetupTestRedis(t)
	svc, err := NewServices(&ServiceDeps{Config: testConfig(), RedisClient: rdb, Client: client})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	refreshed := make(chan struct{}, 1)
	client.EXPECT().ListJobs(gomock.Any()).DoAndReturn(func(context.Context) (any, error) {
		select {
		case refreshed <- struct{}{}:
		default:
		}
		return []any{}, nil
	}).MinTimes(1)

	done := make(chan error, 1)
	go func() { done <- RunJobWatch(ctx, JobWatchConfig{Jobs: svc.Jobs, Interval: time.Hour}) }()

	<-refreshed
	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("job watch did not stop")
	}
}

func TestReadinessChecks(t *testing.T) {
	assert.Empty(t, readinessChecks(nil, nil))

	rdb, mr := testutil.SetupTestRedis(t)
	checks := readinessChecks(nil, rdb)
	require.Contains(t, checks, "redis")
	require.NoError(t, checks["redis"](context.Background()))

	mr.SetError("LOADING")
	require.Error(t, checks["redis"](context.Background()))
}

func TestBuildHTTPHandler_ServesHealth(t *testing.T) {
	handler := buildHTTPHandler(httpHandlerConfig{
		Logger:   testLogger(),
		Services: routerServices(ServiceContainer{}, nil, testConfig(), testLogger()),
		HTTP:     config.HTTPConfig{CompressionEnabled: true, CompressionLevel: 5},
	})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestShutdownHTTPServer_NilServer(t *testing.T) {
	require.NoError(t, ShutdownHTTPServer(ShutdownConfig{}))
}
