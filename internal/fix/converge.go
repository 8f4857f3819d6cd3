package fix

import (
	"context"
	"errors"
	"log/slog"

	"github.com/kpumuk/metacheck/internal/lint"
	"github.com/kpumuk/metacheck/internal/rules"
	"github.com/kpumuk/metacheck/internal/syntax"
)

// DefaultMaxIterations bounds Converge when no limit is configured.
const DefaultMaxIterations = 64

// Selector picks the diagnostic to fix next.
type Selector func([]lint.Diagnostic) (lint.Diagnostic, bool)

// First selects the earliest diagnostic in catalog order.
func First(diags []lint.Diagnostic) (lint.Diagnostic, bool) {
	if len(diags) == 0 {
		return lint.Diagnostic{}, false
	}
	return diags[0], true
}

// ByRule selects the first diagnostic reported by id.
func ByRule(id rules.ID) Selector {
	return func(diags []lint.Diagnostic) (lint.Diagnostic, bool) {
		for _, d := range diags {
			if d.Rule == id {
				return d, true
			}
		}
		return lint.Diagnostic{}, false
	}
}

// Step runs the checks on tree and fixes the diagnostic sel picks. It returns
// a nil result when there is nothing to fix.
func Step(ctx context.Context, tree *syntax.Tree, runner *lint.Runner, sel Selector) (*Result, error) {
	if runner == nil {
		runner = lint.NewDefaultRunner(lint.Options{})
	}
	if sel == nil {
		sel = First
	}
	diags, err := runner.Run(ctx, tree)
	if err != nil {
		return nil, err
	}
	d, ok := sel(diags)
	if !ok {
		return nil, nil
	}
	return Apply(ctx, tree, d)
}

// ConvergeOptions configure Converge.
type ConvergeOptions struct {
	MaxIterations int
	Selector      Selector
	Logger        *slog.Logger
}

// Convergence is the outcome of repeatedly fixing a source.
type Convergence struct {
	Tree       *syntax.Tree
	Applied    []rules.ID
	Remaining  []lint.Diagnostic
	Iterations int
	// Stalled is set when a fix made no progress, repeated an earlier
	// source, or the iteration bound was reached.
	Stalled bool
}

// Converge applies one fix at a time until no diagnostic is left or no
// further progress is possible.
func Converge(ctx context.Context, tree *syntax.Tree, runner *lint.Runner, opts ConvergeOptions) (*Convergence, error) {
	if tree == nil {
		return nil, errors.New("nil syntax tree")
	}
	if runner == nil {
		runner = lint.NewDefaultRunner(lint.Options{})
	}
	sel := opts.Selector
	if sel == nil {
		sel = First
	}
	limit := opts.MaxIterations
	if limit <= 0 {
		limit = DefaultMaxIterations
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	out := &Convergence{Tree: tree}
	seen := map[string]bool{string(tree.Source): true}
	for {
		diags, err := runner.Run(ctx, out.Tree)
		if err != nil {
			return nil, err
		}
		out.Remaining = diags
		d, ok := sel(diags)
		if !ok {
			return out, nil
		}
		if out.Iterations >= limit {
			logger.Warn("fix iteration limit reached", "uri", tree.URI, "limit", limit)
			out.Stalled = true
			return out, nil
		}
		res, err := Apply(ctx, out.Tree, d)
		if errors.Is(err, ErrNoEdits) || errors.Is(err, ErrNoSynthesizer) {
			logger.Debug("fix made no progress", "uri", tree.URI, "rule", d.Name(), "error", err)
			out.Stalled = true
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		out.Iterations++
		if seen[string(res.Output)] {
			logger.Debug("fix repeated an earlier source", "uri", tree.URI, "rule", d.Name())
			out.Stalled = true
			return out, nil
		}
		seen[string(res.Output)] = true
		logger.Debug("fix applied", "uri", tree.URI, "rule", d.Name(), "edits", len(res.Edits))
		out.Applied = append(out.Applied, d.Rule)
		out.Tree = res.Tree
	}
}
