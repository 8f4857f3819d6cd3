package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kpumuk/metacheck/internal/fix"
	"github.com/kpumuk/metacheck/internal/lint"
	"github.com/kpumuk/metacheck/internal/rules"
	"github.com/kpumuk/metacheck/internal/syntax"
)

type fixOptions struct {
	input inputOptions
	rule  string
	all   bool
	write bool
}

func (a *app) fixCommand() *cobra.Command {
	var opts fixOptions
	cmd := &cobra.Command{
		Use:   "fix [flags] <file.cs>",
		Short: "Apply the minimal edit that completes the next tutorial step",
		Long: "fix repairs the earliest failing step, or the step named by --rule.\n" +
			"With --all it keeps fixing until every step verifies or no progress is possible.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runFix(cmd, opts, args)
		},
	}
	opts.input.register(cmd)
	cmd.Flags().StringVar(&opts.rule, "rule", "", "fix only this rule (name or code)")
	cmd.Flags().BoolVar(&opts.all, "all", false, "repeat fixes until the source verifies")
	cmd.Flags().BoolVarP(&opts.write, "write", "w", false, "write the result to the input file")
	return cmd
}

func (a *app) runFix(cmd *cobra.Command, opts fixOptions, args []string) error {
	if err := opts.input.validate(args); err != nil {
		return err
	}
	if !opts.input.stdin && len(args) == 0 {
		return usageErrorf("expected a file path or --stdin")
	}
	if opts.write && opts.input.stdin {
		return usageErrorf("--write cannot be used with --stdin")
	}
	var sel fix.Selector
	if opts.rule != "" {
		r, ok := rules.Lookup(opts.rule)
		if !ok {
			return usageErrorf("unknown rule %q", opts.rule)
		}
		sel = fix.ByRule(r.ID)
	}
	lintOpts, err := a.lintOptions()
	if err != nil {
		return err
	}

	path := ""
	if len(args) > 0 {
		path = args[0]
	}
	src, uri, err := readInput(a.stdin, opts.input, path)
	if err != nil {
		return internalError(err)
	}
	ctx := cmd.Context()
	tree, err := syntax.Parse(ctx, src, syntax.ParseOptions{URI: uri, Backend: a.cfg.Backend})
	if err != nil {
		return internalError(fmt.Errorf("parse failed: %w", err))
	}
	runner := lint.NewDefaultRunner(lintOpts)

	var (
		out       []byte
		remaining []lint.Diagnostic
	)
	if opts.all {
		conv, err := fix.Converge(ctx, tree, runner, fix.ConvergeOptions{Selector: sel, Logger: a.logger})
		if err != nil {
			return fixError(err)
		}
		a.logger.Info("fixes applied", "uri", uri, "count", len(conv.Applied), "stalled", conv.Stalled)
		out = conv.Tree.Source
		remaining = conv.Remaining
	} else {
		res, err := fix.Step(ctx, tree, runner, sel)
		if err != nil {
			return fixError(err)
		}
		out = src
		if res != nil {
			a.logger.Info("fix applied", "uri", uri, "rule", res.Rule.String(), "edits", len(res.Edits))
			out = res.Output
		}
	}

	if opts.write {
		if err := writeOutputFile(uri, out); err != nil {
			return internalError(fmt.Errorf("write %s: %w", uri, err))
		}
	} else {
		writeString(a.stdout, string(out))
	}

	if opts.all && len(visible(remaining)) > 0 {
		writeDiagnostics(a.stderr, newPalette(colorEnabled(a.cfg.Color, a.stderr)), []report{{uri: uri, src: out, diags: remaining}})
		return errIssues
	}
	return nil
}

func fixError(err error) error {
	if fix.IsErrUnsafeToFix(err) {
		return internalError(fmt.Errorf("refusing to fix: %w", err))
	}
	return internalError(err)
}
