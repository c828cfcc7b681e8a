package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/target/mmk-content-dashboard/internal/bootstrap"
	"github.com/target/mmk-content-dashboard/internal/devseed"
	"github.com/target/mmk-content-dashboard/internal/domain/model"
	"github.com/target/mmk-content-dashboard/internal/migrate"
)

func withCommandTimeout(cmdCtx *commandContext, timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmdCtx.Ctx, timeout)
}

type migrateOptions struct {
	Timeout time.Duration
	DryRun  bool
}

func parseMigrateFlags(cmdCtx *commandContext, args []string) (migrateOptions, error) {
	fs := newFlagSet(cmdCtx, "migrate")
	opts := migrateOptions{Timeout: defaultMigrationTimeout}
	fs.DurationVar(&opts.Timeout, "timeout", defaultMigrationTimeout, "Maximum duration to wait for migrations to complete")
	fs.BoolVar(&opts.DryRun, "dry-run", false, "List pending migrations without applying them")
	if err := fs.Parse(args); err != nil {
		return migrateOptions{}, err
	}
	if _, err := requireArgs(fs); err != nil {
		return migrateOptions{}, err
	}
	if opts.Timeout <= 0 {
		return migrateOptions{}, errors.New("--timeout must be greater than zero")
	}
	return opts, nil
}

func runMigrations(cmdCtx *commandContext, args []string) error {
	opts, err := parseMigrateFlags(cmdCtx, args)
	if err != nil {
		return err
	}

	return withDatabase(cmdCtx, opts.Timeout, func(ctx context.Context, db *sql.DB) error {
		if opts.DryRun {
			pending, err := migrate.Pending(ctx, db)
			if err != nil {
				return fmt.Errorf("list pending migrations: %w", err)
			}
			if len(pending) == 0 {
				return writeln(cmdCtx.Out, "(no pending migrations)")
			}
			return writeln(cmdCtx.Out, strings.Join(pending, "\n"))
		}

		cmdCtx.Logger.Info("running database migrations")
		applied, err := migrate.Apply(ctx, db, cmdCtx.Logger)
		if err != nil {
			return fmt.Errorf("run migrations: %w", err)
		}
		cmdCtx.Logger.Info("migrations completed successfully", "applied", len(applied))
		return nil
	})
}

func withDatabase(cmdCtx *commandContext, timeout time.Duration, f func(context.Context, *sql.DB) error) error {
	ctx, cancel := withCommandTimeout(cmdCtx, timeout)
	defer cancel()

	db, err := bootstrap.ConnectDB(ctx, bootstrap.DatabaseConfig{
		DBConfig: cmdCtx.Config.Postgres,
		Logger:   cmdCtx.Logger,
	})
	if err != nil {
		return fmt.Errorf("connect db: %w", err)
	}
	defer func() {
		if cerr := db.Close(); cerr != nil {
			cmdCtx.Logger.Warn("db close failed", "error", cerr)
		}
	}()

	return f(ctx, db)
}

type dbSeedOptions struct {
	Timeout     time.Duration
	AllowRemote bool
}

func parseDBSeedFlags(cmdCtx *commandContext, args []string) (dbSeedOptions, error) {
	fs := newFlagSet(cmdCtx, "db-seed")
	opts := dbSeedOptions{}
	fs.DurationVar(&opts.Timeout, "timeout", defaultMigrationTimeout, "Maximum duration for migrations and seeding")
	fs.BoolVar(&opts.AllowRemote, "allow-remote", false, "Allow seeding a database host that does not look local")
	if err := fs.Parse(args); err != nil {
		return dbSeedOptions{}, err
	}
	if _, err := requireArgs(fs); err != nil {
		return dbSeedOptions{}, err
	}
	if opts.Timeout <= 0 {
		return dbSeedOptions{}, errors.New("--timeout must be greater than zero")
	}
	return opts, nil
}

func runDBSeed(cmdCtx *commandContext, args []string) error {
	opts, err := parseDBSeedFlags(cmdCtx, args)
	if err != nil {
		return err
	}
	if err := guardRemoteHost(cmdCtx, opts.AllowRemote); err != nil {
		return err
	}

	return withDatabase(cmdCtx, opts.Timeout, func(ctx context.Context, db *sql.DB) error {
		if _, err := migrate.Apply(ctx, db, cmdCtx.Logger); err != nil {
			return fmt.Errorf("run migrations: %w", err)
		}
		services, err := bootstrap.NewServices(&bootstrap.ServiceDeps{Config: &cmdCtx.Config, DB: db, Logger: cmdCtx.Logger})
		if err != nil {
			return err
		}
		defer func() {
			if cerr := services.Observability.Close(); cerr != nil {
				cmdCtx.Logger.Warn("close metrics client failed", "error", cerr)
			}
		}()
		n, err := devseed.Run(ctx, services.Settings, cmdCtx.Logger)
		if err != nil {
			return err
		}
		return writef(cmdCtx.Out, "seeded %d settings version(s)\n", n)
	})
}

// guardRemoteHost refuses to touch a database that does not look local
// unless the caller opted in.
func guardRemoteHost(cmdCtx *commandContext, allow bool) error {
	host := cmdCtx.Config.Postgres.Host
	if !isLikelyRemoteHost(host) || allow {
		return nil
	}
	return fmt.Errorf(
		"refusing to run against potentially remote database host %q; re-run with --allow-remote if this is intentional",
		host,
	)
}

func isLikelyRemoteHost(host string) bool {
	h := strings.ToLower(strings.TrimSpace(host))
	if h == "" || h == "localhost" || strings.HasSuffix(h, ".local") {
		return false
	}
	if ip := net.ParseIP(h); ip != nil {
		return !ip.IsLoopback()
	}
	return true
}

func runSettingsHistory(cmdCtx *commandContext, args []string) error {
	fs := newFlagSet(cmdCtx, "settings-history")
	limit := fs.Int("limit", 20, "Maximum number of versions to show (0 for all)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if _, err := requireArgs(fs); err != nil {
		return err
	}

	return withServices(cmdCtx, connectInfraOptions{WantDB: true}, func(svc bootstrap.ServiceContainer) error {
		ctx, cancel := withCommandTimeout(cmdCtx, defaultCommandTimeout)
		defer cancel()

		versions, err := svc.Settings.History(ctx, *limit)
		if err != nil {
			return fmt.Errorf("list settings history: %w", err)
		}
		return printSettingsHistory(cmdCtx.Out, versions)
	})
}

func printSettingsHistory(w io.Writer, versions []*model.SettingsVersion) error {
	if len(versions) == 0 {
		return writeln(w, "(no settings stored)")
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if err := writeln(tw, "VERSION\tCREATED\tAUTHOR\tCOMMENT"); err != nil {
		return fmt.Errorf("print settings header: %w", err)
	}
	for _, v := range versions {
		author := v.Author
		if author == "" {
			author = "-"
		}
		if err := writef(tw, "%d\t%s\t%s\t%s\n",
			v.Version, v.CreatedAt.UTC().Format(time.RFC3339), author, v.Comment); err != nil {
			return fmt.Errorf("print settings row: %w", err)
		}
	}
	return tw.Flush()
}

func runSettingsExport(cmdCtx *commandContext, args []string) error {
	fs := newFlagSet(cmdCtx, "settings-export")
	out := fs.String("out", "", "Write to this file instead of stdout")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if _, err := requireArgs(fs); err != nil {
		return err
	}

	return withServices(cmdCtx, connectInfraOptions{WantDB: true}, func(svc bootstrap.ServiceContainer) error {
		ctx, cancel := withCommandTimeout(cmdCtx, defaultCommandTimeout)
		defer cancel()

		doc, err := svc.Settings.Export(ctx)
		if err != nil {
			return fmt.Errorf("export settings: %w", err)
		}
		if *out == "" {
			_, err = cmdCtx.Out.Write(doc)
			return err
		}
		if err := os.WriteFile(*out, doc, 0o600); err != nil {
			return fmt.Errorf("write %s: %w", *out, err)
		}
		cmdCtx.Logger.Info("settings exported", "path", *out)
		return nil
	})
}

type settingsImportOptions struct {
	Path   string
	Author string
	Yes    bool
}

func parseSettingsImportFlags(cmdCtx *commandContext, args []string) (settingsImportOptions, error) {
	fs := newFlagSet(cmdCtx, "settings-import")
	opts := settingsImportOptions{}
	fs.StringVar(&opts.Author, "author", os.Getenv("USER"), "Author recorded on the new version")
	fs.BoolVar(&opts.Yes, "yes", false, "Skip the confirmation prompt")
	if err := fs.Parse(args); err != nil {
		return settingsImportOptions{}, err
	}
	pos, err := requireArgs(fs, "file")
	if err != nil {
		return settingsImportOptions{}, err
	}
	opts.Path = pos[0]
	return opts, nil
}

func runSettingsImport(cmdCtx *commandContext, args []string) error {
	opts, err := parseSettingsImportFlags(cmdCtx, args)
	if err != nil {
		return err
	}

	var src io.Reader = cmdCtx.In
	if opts.Path != "-" {
		f, err := os.Open(opts.Path)
		if err != nil {
			return fmt.Errorf("open %s: %w", opts.Path, err)
		}
		defer f.Close() //nolint:errcheck // read-only file
		src = f
	} else if !opts.Yes {
		return errors.New("reading settings from stdin requires --yes")
	}

	if err := confirmAction(cmdCtx, opts.Yes, fmt.Sprintf("About to store %s as a new settings version.", opts.Path)); err != nil {
		return err
	}

	return withServices(cmdCtx, connectInfraOptions{WantDB: true}, func(svc bootstrap.ServiceContainer) error {
		ctx, cancel := withCommandTimeout(cmdCtx, defaultCommandTimeout)
		defer cancel()

		v, err := svc.Settings.Import(ctx, src, opts.Author)
		if err != nil {
			return fmt.Errorf("import settings: %w", err)
		}
		return writef(cmdCtx.Out, "stored settings version %d\n", v.Version)
	})
}
