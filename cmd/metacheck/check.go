package main

import (
	"github.com/spf13/cobra"

	"github.com/kpumuk/metacheck/internal/check"
)

type checkOptions struct {
	input      inputOptions
	format     string
	singleStep bool
}

func (a *app) checkCommand() *cobra.Command {
	var opts checkOptions
	cmd := &cobra.Command{
		Use:   "check [flags] <file.cs>...",
		Short: "Report tutorial steps that are absent or malformed",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runCheck(cmd, opts, args)
		},
	}
	opts.input.register(cmd)
	cmd.Flags().StringVar(&opts.format, "format", "", "output format: text or json")
	cmd.Flags().BoolVar(&opts.singleStep, "single-step", false, "report only the earliest failing step")
	return cmd
}

func (a *app) runCheck(cmd *cobra.Command, opts checkOptions, args []string) error {
	if err := opts.input.validate(args); err != nil {
		return err
	}
	if !opts.input.stdin && len(args) == 0 {
		return usageErrorf("expected at least one file path or --stdin")
	}
	if cmd.Flags().Changed("format") {
		a.cfg.Format = opts.format
	}
	if cmd.Flags().Changed("single-step") {
		a.cfg.SingleStep = opts.singleStep
	}
	if err := a.cfg.Validate(); err != nil {
		return usageErrorf("%w", err)
	}
	lintOpts, err := a.lintOptions()
	if err != nil {
		return err
	}

	checker := check.New(check.Options{
		Jobs:    a.cfg.Jobs,
		Backend: a.cfg.Backend,
		Lint:    lintOpts,
		Cache:   a.openCache(),
		Logger:  a.logger,
	})

	ctx := cmd.Context()
	var results []check.Result
	if opts.input.stdin {
		src, uri, err := readInput(a.stdin, opts.input, "")
		if err != nil {
			return internalError(err)
		}
		results = []check.Result{checker.Source(ctx, uri, src)}
	} else {
		results, err = checker.Files(ctx, args)
		if err != nil {
			return internalError(err)
		}
	}

	var (
		reports []report
		failed  bool
		issues  bool
	)
	for _, r := range results {
		if r.Err != nil {
			writef(a.stderr, "metacheck: %v\n", r.Err)
			failed = true
			continue
		}
		if len(visible(r.Diagnostics)) > 0 {
			issues = true
		}
		reports = append(reports, report{uri: r.Path, src: r.Source, diags: r.Diagnostics})
	}
	stats := checker.Stats()
	a.logger.Info("check finished", "files", len(results), "cache_hits", stats.Hits, "cache_misses", stats.Misses)

	if a.cfg.Format == outputFormatJSON {
		if err := writeJSONDiagnostics(a.stdout, reports); err != nil {
			return internalError(err)
		}
	} else {
		writeDiagnostics(a.stderr, newPalette(colorEnabled(a.cfg.Color, a.stderr)), reports)
	}

	switch {
	case failed:
		return &exitError{code: exitInternal}
	case issues:
		return errIssues
	}
	return nil
}
