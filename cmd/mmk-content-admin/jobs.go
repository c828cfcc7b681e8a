package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/davecgh/go-spew/spew"
	"github.com/mattn/go-runewidth"
	"github.com/target/mmk-content-dashboard/internal/bootstrap"
	"github.com/target/mmk-content-dashboard/internal/domain/model"
	"github.com/target/mmk-content-dashboard/internal/util"
)

type jobsOptions struct {
	Status  string
	Limit   int
	Cached  bool
	NoColor bool
}

func parseJobsFlags(cmdCtx *commandContext, args []string) (jobsOptions, error) {
	fs := newFlagSet(cmdCtx, "jobs")
	opts := jobsOptions{}
	fs.StringVar(&opts.Status, "status", "", "Only show jobs in this status")
	fs.IntVar(&opts.Limit, "limit", 50, "Maximum number of jobs to show (0 for all)")
	fs.BoolVar(&opts.Cached, "cached", false, "Serve the last polled snapshot when available")
	fs.BoolVar(&opts.NoColor, "no-color", false, "Disable colored output")
	if err := fs.Parse(args); err != nil {
		return jobsOptions{}, err
	}
	if _, err := requireArgs(fs); err != nil {
		return jobsOptions{}, err
	}
	if opts.Limit < 0 {
		return jobsOptions{}, errors.New("--limit must not be negative")
	}
	return opts, nil
}

func (o jobsOptions) filter() (model.JobListFilter, error) {
	filter := model.JobListFilter{Cached: o.Cached, Limit: o.Limit}
	if o.Status != "" {
		st, err := model.ParseJobStatus(o.Status)
		if err != nil {
			return model.JobListFilter{}, err
		}
		filter.Status = &st
	}
	return filter, nil
}

func runJobs(cmdCtx *commandContext, args []string) error {
	opts, err := parseJobsFlags(cmdCtx, args)
	if err != nil {
		return err
	}
	filter, err := opts.filter()
	if err != nil {
		return err
	}

	return withServices(cmdCtx, connectInfraOptions{WantRedis: opts.Cached}, func(svc bootstrap.ServiceContainer) error {
		ctx, cancel := withCommandTimeout(cmdCtx, defaultCommandTimeout)
		defer cancel()

		jobs, err := svc.Jobs.List(ctx, filter)
		if err != nil {
			return fmt.Errorf("list jobs: %w", err)
		}
		return renderJobTable(cmdCtx.Out, jobs, jobTableOptions{
			Width: terminalWidth(cmdCtx.Out, 120),
			Color: !opts.NoColor && isTerminal(cmdCtx.Out),
		})
	})
}

type jobTableOptions struct {
	Width int
	Color bool
}

const (
	jobIDWidth       = 36
	jobStatusWidth   = 17
	jobProgressWidth = 8
	jobCreatedWidth  = 16
	jobMinTitleWidth = 10
	jobColumnGap     = "  "
)

//nolint:gochecknoglobals // read-only styles
var (
	headerStyle = lipgloss.NewStyle().Bold(true)
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	statusStyle = map[model.JobStatus]lipgloss.Style{
		model.JobStatusCompleted:        lipgloss.NewStyle().Foreground(lipgloss.Color("2")),
		model.JobStatusFailed:           lipgloss.NewStyle().Foreground(lipgloss.Color("1")),
		model.JobStatusCancelled:        lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
		model.JobStatusRunning:          lipgloss.NewStyle().Foreground(lipgloss.Color("4")),
		model.JobStatusAwaitingApproval: lipgloss.NewStyle().Foreground(lipgloss.Color("3")).Bold(true),
	}
)

// renderJobTable writes jobs as fixed-width columns. Cells are measured in
// terminal cells so wide titles stay aligned, and the title column absorbs
// whatever width is left.
func renderJobTable(w io.Writer, jobs []model.JobSummary, opts jobTableOptions) error {
	if len(jobs) == 0 {
		return writeln(w, "(no jobs)")
	}

	idWidth := len("ID")
	for _, j := range jobs {
		idWidth = max(idWidth, runewidth.StringWidth(j.ID))
	}
	idWidth = min(idWidth, jobIDWidth)

	fixed := idWidth + jobStatusWidth + jobProgressWidth + jobCreatedWidth + 4*len(jobColumnGap)
	titleWidth := max(opts.Width-fixed, jobMinTitleWidth)

	widths := []int{idWidth, jobStatusWidth, jobProgressWidth, jobCreatedWidth, titleWidth}
	style := func(s lipgloss.Style, text string) string {
		if !opts.Color {
			return text
		}
		return s.Render(text)
	}

	header := []string{"ID", "STATUS", "PROGRESS", "CREATED", "TITLE"}
	if err := writeln(w, strings.TrimRight(joinCells(header, widths, func(_ int, c string) string {
		return style(headerStyle, c)
	}), " ")); err != nil {
		return fmt.Errorf("print job table header: %w", err)
	}

	for _, j := range jobs {
		row := []string{j.ID, string(j.Status), formatProgress(j.Progress), formatCreated(j.CreatedAt), jobTitle(j)}
		line := joinCells(row, widths, func(col int, c string) string {
			switch col {
			case 1:
				if s, ok := statusStyle[j.Status]; ok {
					return style(s, c)
				}
			case 3:
				return style(mutedStyle, c)
			}
			return c
		})
		if err := writeln(w, strings.TrimRight(line, " ")); err != nil {
			return fmt.Errorf("print job row: %w", err)
		}
	}
	return writef(w, "\n%d job(s)\n", len(jobs))
}

// joinCells truncates and pads every cell before decorate sees it, so styling
// never affects alignment.
func joinCells(cells []string, widths []int, decorate func(col int, cell string) string) string {
	var b strings.Builder
	for i, c := range cells {
		if i > 0 {
			b.WriteString(jobColumnGap)
		}
		c = runewidth.Truncate(c, widths[i], "…")
		b.WriteString(decorate(i, runewidth.FillRight(c, widths[i])))
	}
	return b.String()
}

func formatProgress(p *float64) string {
	if p == nil {
		return "-"
	}
	return strconv.FormatFloat(*p*100, 'f', 0, 64) + "%"
}

func formatCreated(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.UTC().Format("2006-01-02 15:04")
}

func jobTitle(j model.JobSummary) string {
	title := j.Title
	if title == "" {
		title = j.ContentID
	}
	if j.Error != "" {
		title = strings.TrimSpace(title + " [" + j.Error + "]")
	}
	return title
}

type resultOptions struct {
	JobID   string
	Subjobs bool
	Raw     bool
	Dump    bool
}

func parseResultFlags(cmdCtx *commandContext, args []string) (resultOptions, error) {
	fs := newFlagSet(cmdCtx, "result")
	opts := resultOptions{}
	fs.BoolVar(&opts.Subjobs, "subjobs", false, "Show the results of every sub-job instead")
	fs.BoolVar(&opts.Raw, "raw", false, "Print the result view as JSON")
	fs.BoolVar(&opts.Dump, "dump", false, "Print the decoded Go structures")
	if err := fs.Parse(args); err != nil {
		return resultOptions{}, err
	}
	pos, err := requireArgs(fs, "job-id")
	if err != nil {
		return resultOptions{}, err
	}
	if opts.Raw && opts.Dump {
		return resultOptions{}, errors.New("--raw and --dump are mutually exclusive")
	}
	opts.JobID = pos[0]
	return opts, nil
}

func runResult(cmdCtx *commandContext, args []string) error {
	opts, err := parseResultFlags(cmdCtx, args)
	if err != nil {
		return err
	}

	return withServices(cmdCtx, connectInfraOptions{WantRedis: true}, func(svc bootstrap.ServiceContainer) error {
		ctx, cancel := withCommandTimeout(cmdCtx, defaultCommandTimeout)
		defer cancel()

		var views []model.ResultView
		if opts.Subjobs {
			views, err = svc.Jobs.SubjobResults(ctx, opts.JobID)
		} else {
			var view *model.ResultView
			view, err = svc.Jobs.FinalResult(ctx, opts.JobID)
			if view != nil {
				views = []model.ResultView{*view}
			}
		}
		if err != nil {
			return fmt.Errorf("fetch result of %s: %w", opts.JobID, err)
		}
		return printResultViews(cmdCtx.Out, views, opts)
	})
}

func printResultViews(w io.Writer, views []model.ResultView, opts resultOptions) error {
	switch {
	case opts.Raw:
		return printJSON(w, views)
	case opts.Dump:
		cfg := spew.ConfigState{Indent: "  ", DisablePointerAddresses: true, DisableCapacities: true, SortKeys: true}
		cfg.Fdump(w, views)
		return nil
	}

	for i := range views {
		if i > 0 {
			if err := writeln(w); err != nil {
				return err
			}
		}
		if err := printResultSummary(w, &views[i]); err != nil {
			return err
		}
	}
	return nil
}

func printResultSummary(w io.Writer, v *model.ResultView) error {
	label := "Job " + v.JobID
	if v.SubjobID != "" {
		label += " / sub-job " + v.SubjobID
	}
	if err := writeln(w, label); err != nil {
		return fmt.Errorf("print result header: %w", err)
	}
	switch {
	case v.Error != "":
		return writef(w, "  Error: %s\n", v.Error)
	case !v.Found || v.Result == nil:
		msg := v.Message
		if msg == "" {
			msg = "no result available"
		}
		return writef(w, "  %s\n", msg)
	}

	if err := writef(w, "  Cached steps: %d\n", len(v.StepKeys)); err != nil {
		return err
	}
	for _, step := range v.Result.Steps {
		line := fmt.Sprintf("  %2d. %-28s %s", step.StepNumber, step.StepName, step.Status)
		if step.ExecutionTime != nil {
			line += "  " + util.FormatSeconds(*step.ExecutionTime)
		}
		if step.TokensUsed != nil {
			line += fmt.Sprintf("  %d tokens", *step.TokensUsed)
		}
		if step.ErrorMessage != nil {
			line += "  error: " + *step.ErrorMessage
		}
		if err := writeln(w, strings.TrimRight(line, " ")); err != nil {
			return err
		}
	}
	if v.Result.FinalContent != nil {
		if err := writeln(w, "  Final content:"); err != nil {
			return err
		}
		return printJSON(w, v.Result.FinalContent)
	}
	return nil
}

type stepOptions struct {
	JobID    string
	Step     int
	Markdown bool
	StepType string
	Keys     bool
}

func parseStepFlags(cmdCtx *commandContext, args []string) (stepOptions, error) {
	fs := newFlagSet(cmdCtx, "step")
	opts := stepOptions{}
	fs.BoolVar(&opts.Markdown, "markdown", false, "Render the output as approval markdown")
	fs.StringVar(&opts.StepType, "step-type", "", "Step type used to pick the markdown layout")
	fs.BoolVar(&opts.Keys, "keys", false, "List the cached step keys instead of one output")
	if err := fs.Parse(args); err != nil {
		return stepOptions{}, err
	}
	if opts.Keys {
		pos, err := requireArgs(fs, "job-id")
		if err != nil {
			return stepOptions{}, err
		}
		opts.JobID = pos[0]
		return opts, nil
	}
	pos, err := requireArgs(fs, "job-id", "step-number")
	if err != nil {
		return stepOptions{}, err
	}
	n, err := strconv.Atoi(pos[1])
	if err != nil || n < 0 {
		return stepOptions{}, fmt.Errorf("step: step number must be a non-negative integer, got %q", pos[1])
	}
	if opts.StepType != "" && !opts.Markdown {
		return stepOptions{}, errors.New("--step-type requires --markdown")
	}
	opts.JobID, opts.Step = pos[0], n
	return opts, nil
}

func runStep(cmdCtx *commandContext, args []string) error {
	opts, err := parseStepFlags(cmdCtx, args)
	if err != nil {
		return err
	}

	return withServices(cmdCtx, connectInfraOptions{WantRedis: true}, func(svc bootstrap.ServiceContainer) error {
		ctx, cancel := withCommandTimeout(cmdCtx, defaultCommandTimeout)
		defer cancel()

		switch {
		case opts.Keys:
			keys, err := svc.Jobs.StepKeys(ctx, opts.JobID)
			if err != nil {
				return err
			}
			if len(keys) == 0 {
				return writeln(cmdCtx.Out, "(no cached steps)")
			}
			for _, k := range keys {
				if err := writeln(cmdCtx.Out, k); err != nil {
					return err
				}
			}
			return nil
		case opts.Markdown:
			md, err := svc.Jobs.StepMarkdown(ctx, opts.JobID, opts.Step, opts.StepType)
			if err != nil {
				return err
			}
			return writeln(cmdCtx.Out, md)
		default:
			out, err := svc.Jobs.StepOutput(ctx, opts.JobID, opts.Step)
			if err != nil {
				return err
			}
			return printJSON(cmdCtx.Out, out)
		}
	})
}

type clearStepCacheOptions struct {
	JobID string
	Yes   bool
}

func runClearStepCache(cmdCtx *commandContext, args []string) error {
	fs := newFlagSet(cmdCtx, "clear-step-cache")
	opts := clearStepCacheOptions{}
	fs.BoolVar(&opts.Yes, "yes", false, "Skip the confirmation prompt")
	if err := fs.Parse(args); err != nil {
		return err
	}
	pos, err := requireArgs(fs, "job-id")
	if err != nil {
		return err
	}
	opts.JobID = pos[0]

	if !hasRedisConfig(&cmdCtx.Config.Redis) {
		return errRedisNotConfigured
	}
	if err := confirmAction(cmdCtx, opts.Yes, fmt.Sprintf("About to clear cached steps for job %q.", opts.JobID)); err != nil {
		return err
	}

	return withServices(cmdCtx, connectInfraOptions{WantRedis: true}, func(svc bootstrap.ServiceContainer) error {
		ctx, cancel := withCommandTimeout(cmdCtx, defaultCommandTimeout)
		defer cancel()

		if err := svc.Jobs.ClearStepCache(ctx, opts.JobID); err != nil {
			return fmt.Errorf("clear step cache: %w", err)
		}
		cmdCtx.Logger.Info("step cache cleared", "job_id", opts.JobID)
		return nil
	})
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	return nil
}
