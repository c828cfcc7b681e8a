package main

import (
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/redis/go-redis/v9"
	"github.com/target/mmk-content-dashboard/config"
	"github.com/target/mmk-content-dashboard/internal/bootstrap"
	"golang.org/x/term"
)

type connectInfraOptions struct {
	Logger    *slog.Logger
	Config    *config.AppConfig
	WantDB    bool
	WantRedis bool
}

var errRedisNotConfigured = errors.New("redis not configured")

// infra holds the connections a command opened. Either field may be nil.
type infra struct {
	DB    *sql.DB
	Redis redis.UniversalClient
}

func (i infra) Close() error {
	var closeErr error
	if i.DB != nil {
		if err := i.DB.Close(); err != nil {
			closeErr = errors.Join(closeErr, fmt.Errorf("close db: %w", err))
		}
	}
	if i.Redis != nil {
		if err := i.Redis.Close(); err != nil {
			closeErr = errors.Join(closeErr, fmt.Errorf("close redis: %w", err))
		}
	}
	return closeErr
}

// connectInfra opens the dependencies a command asked for. Redis is skipped
// quietly when no Redis configuration is present.
func connectInfra(cmdCtx *commandContext, opts connectInfraOptions) (infra, error) {
	var out infra
	dbCfg := bootstrap.DatabaseConfig{DBConfig: opts.Config.Postgres, RedisConfig: opts.Config.Redis, Logger: opts.Logger}

	if opts.WantDB {
		db, err := bootstrap.ConnectDB(cmdCtx.Ctx, dbCfg)
		if err != nil {
			return infra{}, fmt.Errorf("connect db: %w", err)
		}
		out.DB = db
	}

	if !opts.WantRedis {
		return out, nil
	}
	if !hasRedisConfig(&opts.Config.Redis) {
		opts.Logger.Info("no redis configuration detected; skipping redis connection")
		return out, nil
	}
	client, err := bootstrap.ConnectRedis(cmdCtx.Ctx, dbCfg)
	if err != nil {
		err = fmt.Errorf("connect redis: %w", err)
		if closeErr := out.Close(); closeErr != nil {
			err = errors.Join(err, closeErr)
		}
		return infra{}, err
	}
	out.Redis = client
	return out, nil
}

func hasRedisConfig(cfg *config.RedisConfig) bool {
	if cfg == nil {
		return false
	}
	if cfg.UseCluster {
		return len(cfg.ClusterNodes) > 0 || cfg.URI != ""
	}
	if cfg.UseSentinel {
		return len(cfg.SentinelNodes) > 0
	}
	return cfg.URI != ""
}

// withServices connects the requested infrastructure, builds the service
// container on top of it, and releases everything when f returns.
func withServices(cmdCtx *commandContext, opts connectInfraOptions, f func(bootstrap.ServiceContainer) error) error {
	if opts.Config == nil {
		opts.Config = &cmdCtx.Config
	}
	if opts.Logger == nil {
		opts.Logger = cmdCtx.Logger
	}
	conns, err := connectInfra(cmdCtx, opts)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := conns.Close(); cerr != nil {
			cmdCtx.Logger.Warn("close connections failed", "error", cerr)
		}
	}()

	services, err := bootstrap.NewServices(&bootstrap.ServiceDeps{
		Config:      opts.Config,
		DB:          conns.DB,
		RedisClient: conns.Redis,
		Logger:      cmdCtx.Logger,
	})
	if err != nil {
		return err
	}
	defer func() {
		if cerr := services.Observability.Close(); cerr != nil {
			cmdCtx.Logger.Warn("close metrics client failed", "error", cerr)
		}
	}()

	return f(services)
}

func isTerminal(v any) bool {
	f, ok := v.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// terminalWidth returns the width of w when it is a terminal, else fallback.
func terminalWidth(w io.Writer, fallback int) int {
	f, ok := w.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return fallback
	}
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil || width <= 0 {
		return fallback
	}
	return width
}
