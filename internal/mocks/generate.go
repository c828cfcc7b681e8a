// Package mocks provides gomock implementations of the core ports.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	client := mocks.NewMockPipelineClient(ctrl)
//	client.EXPECT().GetJobResult(gomock.Any(), "J1").Return(payload, nil)
package mocks

// CacheRepository backs the step cache and the job list snapshot.
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=cache_repository_mock.go github.com/target/mmk-content-dashboard/internal/core CacheRepository

// PipelineClient is the backend port used by every data-fetching service.
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=pipeline_client_mock.go github.com/target/mmk-content-dashboard/internal/core PipelineClient

// SettingsRepository stores pipeline settings versions.
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=settings_repository_mock.go github.com/target/mmk-content-dashboard/internal/core SettingsRepository
