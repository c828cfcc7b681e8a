package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/target/mmk-content-dashboard/config"
	"github.com/target/mmk-content-dashboard/internal/adapters/pipelineapi"
	"github.com/target/mmk-content-dashboard/internal/core"
	"github.com/target/mmk-content-dashboard/internal/data"
	"github.com/target/mmk-content-dashboard/internal/observability/statsd"
	"github.com/target/mmk-content-dashboard/internal/service"
)

// ServiceContainer holds all application services.
type ServiceContainer struct {
	Jobs      *service.JobService
	Approvals *service.ApprovalService
	Content   *service.ContentService
	Settings  *service.SettingsService
	// Steps is nil when Redis is not configured.
	Steps         *core.StepCacheService
	Observability ObservabilityContainer
}

// ObservabilityContainer groups shared observability dependencies.
type ObservabilityContainer struct {
	MetricsSink   statsd.Sink
	MetricsClient *statsd.Client
	MetricsConfig config.ObservabilityMetricsConfig
}

// Close releases observability resources.
func (o ObservabilityContainer) Close() error {
	if o.MetricsClient == nil {
		return nil
	}
	return o.MetricsClient.Close()
}

// ServiceDeps groups dependencies for service initialization.
type ServiceDeps struct {
	Config      *config.AppConfig
	DB          *sql.DB
	RedisClient redis.UniversalClient
	Logger      *slog.Logger
	// Client overrides the pipeline backend client built from Config.Backend.
	Client core.PipelineClient
}

// serviceRepositories groups data adapters backing service ports.
type serviceRepositories struct {
	Cache    *data.RedisCacheRepo
	Settings *data.SettingsRepo
}

// buildObservability configures the StatsD sink. A sink that fails to
// initialise is logged and metrics are dropped.
func buildObservability(logger *slog.Logger, cfg config.ObservabilityConfig) ObservabilityContainer {
	out := ObservabilityContainer{MetricsConfig: cfg.Metrics}
	if !cfg.Metrics.IsEnabled() {
		return out
	}

	hostname, _ := os.Hostname()
	client, err := statsd.NewClient(statsd.ConfigFrom(cfg.Metrics, logger, map[string]string{"host": hostname}))
	if err != nil {
		logger.Error("failed to initialise statsd client", "error", err)
		return out
	}
	out.MetricsClient = client
	out.MetricsSink = client
	return out
}

// buildRepositories builds repositories backing service ports; no business rules here.
func buildRepositories(db *sql.DB, rdb redis.UniversalClient, redisCfg config.RedisConfig) serviceRepositories {
	var repos serviceRepositories
	if rdb != nil {
		repos.Cache = data.NewRedisCacheRepo(rdb, data.WithNamespace(redisCfg.Namespace))
	}
	if db != nil {
		repos.Settings = data.NewSettingsRepo(db)
	}
	return repos
}

func newPipelineClient(cfg config.BackendConfig, obs ObservabilityContainer, logger *slog.Logger) (*pipelineapi.Client, error) {
	clientCfg := pipelineapi.ConfigFrom(cfg)
	clientCfg.Metrics = obs.MetricsSink
	clientCfg.Logger = logger
	client, err := pipelineapi.NewClient(clientCfg)
	if err != nil {
		return nil, fmt.Errorf("pipeline backend client: %w", err)
	}
	return client, nil
}

// NewServices wires repositories, the backend client, and domain services.
// Settings require Postgres; the step cache and job snapshots require Redis.
func NewServices(deps *ServiceDeps) (ServiceContainer, error) {
	if deps == nil || deps.Config == nil {
		return ServiceContainer{}, errors.New("service deps with config are required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	cfg := deps.Config

	obs := buildObservability(logger, cfg.Observability)
	repos := buildRepositories(deps.DB, deps.RedisClient, cfg.Redis)

	client := deps.Client
	if client == nil {
		built, err := newPipelineClient(cfg.Backend, obs, logger)
		if err != nil {
			return ServiceContainer{}, err
		}
		client = built
	}

	var steps *core.StepCacheService
	jobCache := service.JobCacheOptions{SnapshotTTL: cfg.Cache.SnapshotTTL}
	if repos.Cache != nil {
		steps = core.NewStepCacheService(repos.Cache, core.StepCacheConfig{TTL: cfg.Cache.StepTTL})
		jobCache.Steps = steps
		jobCache.Snapshots = repos.Cache
	}

	container := ServiceContainer{
		Steps:         steps,
		Observability: obs,
		Jobs: service.NewJobService(service.JobServiceOptions{
			Client: client,
			Cache:  jobCache,
			Config: service.JobServiceConfig{
				MaxConcurrency: cfg.Backend.MaxConcurrency,
				FetchTimeout:   cfg.Backend.Timeout,
				Logger:         logger,
				Metrics:        obs.MetricsSink,
			},
		}),
		Approvals: service.NewApprovalService(service.ApprovalServiceOptions{
			Client: client,
			Steps:  steps,
			Config: service.ApprovalServiceConfig{Logger: logger, Metrics: obs.MetricsSink},
		}),
	}

	var settingsSource service.SettingsSource
	if repos.Settings != nil {
		container.Settings = service.NewSettingsService(service.SettingsServiceOptions{
			Repo:   repos.Settings,
			Config: service.SettingsServiceConfig{HistoryLimit: cfg.Settings.HistoryLimit, Logger: logger},
		})
		settingsSource = container.Settings
	}
	container.Content = service.NewContentService(service.ContentServiceOptions{
		Client:   client,
		Settings: settingsSource,
		Config:   service.ContentServiceConfig{MaxBytes: cfg.Upload.MaxBytes, Logger: logger},
	})

	return container, nil
}

// ServiceOrchestrationConfig contains configuration for service orchestration.
type ServiceOrchestrationConfig struct {
	Config      *config.AppConfig
	Services    ServiceContainer
	DB          *sql.DB
	RedisClient redis.UniversalClient
	Logger      *slog.Logger
}

const (
	// shutdownWaitTimeout is the maximum time to wait for services to stop gracefully.
	shutdownWaitTimeout = 15 * time.Second
)

// serviceStartupDeps groups dependencies for service startup.
type serviceStartupDeps struct {
	ctx             context.Context
	cfg             *ServiceOrchestrationConfig
	logger          *slog.Logger
	enabledServices map[config.ServiceMode]bool
	errCh           chan error
}

// backgroundService describes a startable background component.
type backgroundService struct {
	mode  config.ServiceMode
	name  string
	start func(context.Context) error
}

// backgroundServiceHandle tracks a running background service.
type backgroundServiceHandle struct {
	mode config.ServiceMode
	name string
	done <-chan struct{}
}

// startHTTPServerIfEnabled starts the HTTP server if enabled.
func startHTTPServerIfEnabled(deps *serviceStartupDeps) *http.Server {
	if deps == nil || deps.cfg == nil || !deps.enabledServices[config.ServiceModeHTTP] {
		return nil
	}
	return StartHTTPServer(&HTTPServerConfig{
		Config:    deps.cfg.Config,
		Services:  deps.cfg.Services,
		Readiness: readinessChecks(deps.cfg.DB, deps.cfg.RedisClient),
		Logger:    deps.logger,
	})
}

func launchBackground(ctx context.Context, deps *serviceStartupDeps, descriptor backgroundService) <-chan struct{} {
	if deps == nil || !deps.enabledServices[descriptor.mode] {
		return nil
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := descriptor.start(ctx); err != nil {
			errMsg := fmt.Errorf("%s failed: %w", descriptor.name, err)
			select {
			case deps.errCh <- errMsg:
			case <-ctx.Done():
			default:
				deps.logger.WarnContext(ctx, "dropping background service error", "service", descriptor.name, "error", errMsg)
			}
		}
	}()

	deps.logger.InfoContext(ctx, "background service started", "service", descriptor.name, "mode", descriptor.mode)
	return done
}

func startBackgroundServices(deps *serviceStartupDeps, services []backgroundService) []backgroundServiceHandle {
	if deps == nil {
		return nil
	}
	handles := make([]backgroundServiceHandle, 0, len(services))

	for _, svc := range services {
		done := launchBackground(deps.ctx, deps, svc)
		if done == nil {
			continue
		}
		handles = append(handles, backgroundServiceHandle{mode: svc.mode, name: svc.name, done: done})
	}

	return handles
}

func newJobWatchBackgroundService(deps *serviceStartupDeps) backgroundService {
	return backgroundService{
		mode: config.ServiceModeJobWatch,
		name: "job watch",
		start: func(ctx context.Context) error {
			if deps == nil || deps.cfg == nil || deps.cfg.Config == nil {
				return nil
			}
			if !deps.cfg.Config.Watcher.Enabled {
				deps.logger.InfoContext(ctx, "job watch disabled by configuration")
				return nil
			}
			if deps.cfg.RedisClient == nil {
				deps.logger.WarnContext(ctx, "job watch needs redis for snapshots; not starting")
				return nil
			}
			if deps.cfg.Services.Jobs == nil {
				return errors.New("job service is not configured")
			}
			return RunJobWatch(ctx, JobWatchConfig{
				Jobs:     deps.cfg.Services.Jobs,
				Interval: deps.cfg.Config.Watcher.Interval,
				Logger:   deps.logger,
				Metrics:  deps.cfg.Services.Observability.MetricsSink,
			})
		},
	}
}

func buildBackgroundServices(deps *serviceStartupDeps) []backgroundService {
	if deps == nil {
		return nil
	}
	return []backgroundService{
		newJobWatchBackgroundService(deps),
	}
}

// ServiceStartupResult holds the results of starting all services.
type ServiceStartupResult struct {
	HTTPServer *http.Server
	Background []backgroundServiceHandle
}

// startServices starts all enabled services and returns their completion channels.
func startServices(deps *serviceStartupDeps) ServiceStartupResult {
	return ServiceStartupResult{
		HTTPServer: startHTTPServerIfEnabled(deps),
		Background: startBackgroundServices(deps, buildBackgroundServices(deps)),
	}
}

// RunServicesWithShutdown starts all enabled services and manages their lifecycle.
// This function blocks until a shutdown signal is received or a service fails.
func RunServicesWithShutdown(cfg *ServiceOrchestrationConfig) error {
	if cfg == nil {
		return errors.New("service orchestration config is required")
	}
	if cfg.Config == nil {
		return errors.New("service orchestration config missing AppConfig")
	}
	serviceCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	enabledServices, err := cfg.Config.GetEnabledServices()
	if err != nil {
		return fmt.Errorf("determine enabled services: %w", err)
	}
	errCh := make(chan error, errorChannelBufferSize(enabledServices))

	result := startServices(&serviceStartupDeps{
		ctx:             serviceCtx,
		cfg:             cfg,
		logger:          logger,
		enabledServices: enabledServices,
		errCh:           errCh,
	})

	return waitForShutdown(shutdownConfig{
		ctx:         serviceCtx,
		cancel:      cancel,
		errCh:       errCh,
		httpServer:  result.HTTPServer,
		logger:      logger,
		backgrounds: result.Background,
	})
}

func errorChannelCapacity(enabled map[config.ServiceMode]bool) int {
	count := 0
	for _, mode := range config.ValidServiceModes() {
		if enabled[mode] {
			count++
		}
	}
	return count
}

func errorChannelBufferSize(enabled map[config.ServiceMode]bool) int {
	return errorChannelCapacity(enabled) + 1
}

// shutdownConfig contains dependencies for graceful shutdown.
type shutdownConfig struct {
	ctx         context.Context
	cancel      context.CancelFunc
	errCh       <-chan error
	httpServer  *http.Server
	logger      *slog.Logger
	backgrounds []backgroundServiceHandle
}

// waitForShutdown waits for shutdown signal or service error.
func waitForShutdown(cfg shutdownConfig) error {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case <-quit:
		cfg.logger.Info("shutting down services...")
		cfg.cancel()
		return gracefulStop(cfg)
	case err := <-cfg.errCh:
		cfg.logger.Error("service error", "error", err)
		cfg.cancel()
		if stopErr := gracefulStop(cfg); stopErr != nil {
			cfg.logger.Error("graceful stop failed", "error", stopErr)
		}
		return err
	}
}

// gracefulStop attempts to gracefully stop all services.
func gracefulStop(cfg shutdownConfig) error {
	if cfg.httpServer != nil {
		// The service context is already cancelled; shutdown gets its own deadline.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownWaitTimeout)
		defer cancel()

		if err := ShutdownHTTPServer(ShutdownConfig{
			Context: shutdownCtx,
			Server:  cfg.httpServer,
			Logger:  cfg.logger,
		}); err != nil {
			return err
		}
	}

	for _, svc := range cfg.backgrounds {
		waitForService(svc.done, svc.name, cfg.logger)
	}

	return nil
}

// waitForService waits for a service to finish with timeout.
func waitForService(done <-chan struct{}, name string, logger *slog.Logger) {
	if done == nil {
		return
	}
	select {
	case <-done:
		logger.Info(name + " stopped")
	case <-time.After(shutdownWaitTimeout):
		logger.Warn("timeout waiting for " + name + " to stop")
	}
}
