package main

import (
	"fmt"
	"io"
	"os"

	"github.com/target/mmk-content-dashboard/internal/domain/approval"
	"github.com/target/mmk-content-dashboard/internal/domain/jsonv"
	"github.com/target/mmk-content-dashboard/internal/domain/result"
)

type formatOptions struct {
	Path     string
	StepType string
	Step     string
}

func parseFormatFlags(cmdCtx *commandContext, args []string) (formatOptions, error) {
	fs := newFlagSet(cmdCtx, "format")
	opts := formatOptions{}
	fs.StringVar(&opts.StepType, "step-type", "", "Step type used to pick the markdown layout")
	fs.StringVar(&opts.Step, "step", "", "Treat the input as a job result and format this step's output")
	if err := fs.Parse(args); err != nil {
		return formatOptions{}, err
	}
	pos, err := requireArgs(fs, "file")
	if err != nil {
		return formatOptions{}, err
	}
	opts.Path = pos[0]
	if opts.Step != "" && opts.StepType == "" {
		opts.StepType = opts.Step
	}
	return opts, nil
}

// runFormat renders a step output offline. "-" reads from stdin.
func runFormat(cmdCtx *commandContext, args []string) error {
	opts, err := parseFormatFlags(cmdCtx, args)
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
	}

	md, err := formatDocument(src, opts)
	if err != nil {
		return err
	}
	if opts.StepType != "" && !approval.StepType(opts.StepType).Known() {
		if werr := writef(cmdCtx.Err, "warning: unknown step type %q, using the generic layout\n", opts.StepType); werr != nil {
			return werr
		}
	}
	return writeln(cmdCtx.Out, md)
}

func formatDocument(src io.Reader, opts formatOptions) (string, error) {
	doc, err := jsonv.DecodeReader(src)
	if err != nil {
		return "", fmt.Errorf("decode %s: %w", opts.Path, err)
	}
	if opts.Step == "" {
		return approval.Format(doc, opts.StepType), nil
	}

	res := result.Normalize(doc)
	if res == nil {
		return "", fmt.Errorf("%s does not hold a job result object", opts.Path)
	}
	out, ok := res.StepOutput(opts.Step)
	if !ok {
		return "", fmt.Errorf("result has no output for step %q (have %v)", opts.Step, res.StepResults.Keys())
	}
	return approval.Format(out, opts.StepType), nil
}
