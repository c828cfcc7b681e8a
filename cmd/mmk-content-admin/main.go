package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/target/mmk-content-dashboard/config"
	"github.com/target/mmk-content-dashboard/internal/bootstrap"
)

type commandFn func(ctx *commandContext, args []string) error

type command struct {
	name        string
	description string
	run         commandFn
	// offline commands run without backend or store configuration.
	offline     bool
}

type commandContext struct {
	Ctx    context.Context
	Logger *slog.Logger
	Config config.AppConfig
	In     io.Reader
	Out    io.Writer
	Err    io.Writer
}

const (
	defaultMigrationTimeout = 5 * time.Minute
	defaultCommandTimeout   = 2 * time.Minute
)

func main() {
	cfg, err := bootstrap.LoadConfig()
	logger := bootstrap.InitLogger(err == nil && cfg.IsDev)

	if len(os.Args) < 2 {
		if printErr := printUsage(os.Stdout); printErr != nil {
			logger.Error("print usage failed", "error", printErr)
		}
		os.Exit(2) //nolint:forbidigo // CLI must exit with failure status when no command is provided
	}

	cmdName := os.Args[1]
	cmd, ok := commands()[cmdName]
	if !ok {
		if writeErr := writef(os.Stderr, "unknown command %q\n\n", cmdName); writeErr != nil {
			logger.Error("print unknown command message failed", "error", writeErr)
		}
		if printErr := printUsage(os.Stderr); printErr != nil {
			logger.Error("print usage failed", "error", printErr)
		}
		os.Exit(2) //nolint:forbidigo // CLI must exit with failure status when command is unknown
	}

	if err != nil && !cmd.offline {
		logger.ErrorContext(context.Background(), "load config", "error", err)
		os.Exit(1) //nolint:forbidigo // CLI must signal configuration load failure to shell scripts
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	cmdCtx := &commandContext{
		Ctx:    ctx,
		Logger: logger,
		Config: cfg,
		In:     os.Stdin,
		Out:    os.Stdout,
		Err:    os.Stderr,
	}
	runErr := cmd.run(cmdCtx, os.Args[2:])
	stop()
	if runErr != nil {
		if errors.Is(runErr, flag.ErrHelp) {
			os.Exit(0) //nolint:forbidigo // -h is not a failure
		}
		logger.ErrorContext(cmdCtx.Ctx, "command failed", "command", cmdName, "error", runErr)
		os.Exit(1) //nolint:forbidigo // CLI must propagate command execution failure to callers
	}
}

func commands() map[string]command {
	return map[string]command{
		"format": {
			name:        "format",
			description: "Render a step output JSON document as approval markdown",
			run:         runFormat,
			offline:     true,
		},
		"jobs": {
			name:        "jobs",
			description: "List pipeline jobs from the backend",
			run:         runJobs,
		},
		"result": {
			name:        "result",
			description: "Show the normalized final result of a job",
			run:         runResult,
		},
		"step": {
			name:        "step",
			description: "Show one step output of a job, optionally as markdown",
			run:         runStep,
		},
		"clear-step-cache": {
			name:        "clear-step-cache",
			description: "Remove cached step outputs for a job from Redis",
			run:         runClearStepCache,
		},
		"db-seed": {
			name:        "db-seed",
			description: "Run migrations and seed a development settings history",
			run:         runDBSeed,
		},
		"migrate": {
			name:        "migrate",
			description: "Run database migrations",
			run:         runMigrations,
		},
		"settings-history": {
			name:        "settings-history",
			description: "List stored pipeline settings versions",
			run:         runSettingsHistory,
		},
		"settings-export": {
			name:        "settings-export",
			description: "Write the current pipeline settings as YAML",
			run:         runSettingsExport,
		},
		"settings-import": {
			name:        "settings-import",
			description: "Store a YAML settings document as a new version",
			run:         runSettingsImport,
		},
	}
}

func printUsage(w io.Writer) error {
	if err := writef(w, "Usage: mmk-content-admin <command> [flags]\n\n"); err != nil {
		return err
	}
	if err := writef(w, "Available commands:\n"); err != nil {
		return err
	}
	cmds := commands()
	names := make([]string, 0, len(cmds))
	for name := range cmds {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := writef(w, "  %-20s %s\n", name, cmds[name].description); err != nil {
			return err
		}
	}
	return nil
}

// newFlagSet returns a flag set that reports errors instead of exiting.
func newFlagSet(cmdCtx *commandContext, name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(cmdCtx.Err)
	return fs
}

// requireArgs checks the positional arguments left after flag parsing.
func requireArgs(fs *flag.FlagSet, names ...string) ([]string, error) {
	args := fs.Args()
	if len(args) < len(names) {
		return nil, fmt.Errorf("%s: missing <%s>", fs.Name(), strings.Join(names[len(args):], "> <"))
	}
	if len(args) > len(names) {
		return nil, fmt.Errorf("%s: unexpected arguments %q", fs.Name(), args[len(names):])
	}
	for i, a := range args {
		if strings.TrimSpace(a) == "" {
			return nil, fmt.Errorf("%s: <%s> must not be empty", fs.Name(), names[i])
		}
	}
	return args, nil
}

// confirmAction prompts on cmdCtx.In unless yes is set. Non-interactive
// callers must pass --yes.
func confirmAction(cmdCtx *commandContext, yes bool, prompt string) error {
	if yes {
		return nil
	}
	if !isTerminal(cmdCtx.In) {
		return errors.New("refusing to continue without --yes on a non-interactive input")
	}
	if err := writef(cmdCtx.Out, "%s Continue? [y/N]: ", prompt); err != nil {
		return fmt.Errorf("print confirmation prompt: %w", err)
	}
	resp, err := bufio.NewReader(cmdCtx.In).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("read confirmation: %w", err)
	}
	resp = strings.ToLower(strings.TrimSpace(resp))
	if resp == "y" || resp == "yes" {
		return nil
	}
	return errors.New("aborted by user")
}

func writef(w io.Writer, format string, args ...any) error {
	_, err := fmt.Fprintf(w, format, args...)
	return err
}

func writeln(w io.Writer, args ...any) error {
	_, err := fmt.Fprintln(w, args...)
	return err
}
