// Package lint turns tutorial step verdicts into diagnostics for C# analyzer
// sources.
package lint

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/kpumuk/metacheck/internal/locate"
	"github.com/kpumuk/metacheck/internal/rules"
	"github.com/kpumuk/metacheck/internal/syntax"
	"github.com/kpumuk/metacheck/internal/text"
	"github.com/kpumuk/metacheck/internal/verify"
)

const (
	// DiagnosticSource names the producer of lint diagnostics.
	DiagnosticSource = "metacheck"
)

// Diagnostic is a tutorial diagnostic. Finding keeps the verdict a fix
// synthesizer works from.
type Diagnostic struct {
	Rule     rules.ID
	Code     string
	Message  string
	Severity rules.Severity
	Span     text.Span
	Related  []syntax.RelatedDiagnostic
	Finding  verify.Finding
}

// Name returns the rule name of the diagnostic.
func (d Diagnostic) Name() string {
	return d.Rule.String()
}

// Rule is a lint check that can emit diagnostics for a located analyzer.
type Rule interface {
	ID() string
	Description() string
	Run(ctx context.Context, m *locate.Model) ([]Diagnostic, error)
}

// Options configure a Runner.
type Options struct {
	// SingleStep keeps only the earliest diagnostic in catalog order.
	SingleStep bool
	// Severity overrides the catalog severity per rule.
	Severity map[rules.ID]rules.Severity
	// Disabled drops diagnostics of the listed rules.
	Disabled map[rules.ID]bool
	Logger   *slog.Logger
}

// LogValue implements slog.LogValuer.
func (o Options) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Bool("single_step", o.SingleStep),
		slog.Int("severity_overrides", len(o.Severity)),
		slog.Int("disabled", len(o.Disabled)),
	)
}

// Runner executes lint rules and returns aggregated diagnostics.
type Runner struct {
	rules []Rule
	opts  Options
	log   *slog.Logger
}

// NewRunner builds a lint runner from a rule set.
func NewRunner(opts Options, rules ...Rule) *Runner {
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Runner{rules: slices.Clone(rules), opts: opts, log: log}
}

// NewDefaultRunner builds a runner over both verification chains.
func NewDefaultRunner(opts Options) *Runner {
	return NewRunner(opts,
		InitializeChainRule{},
		DescriptorChainRule{},
	)
}

// Options returns the runner configuration.
func (r *Runner) Options() Options {
	if r == nil {
		return Options{}
	}
	return r.opts
}

// Run locates the analyzer in tree, executes all configured rules and
// returns a sorted diagnostic list. A source without any class yields no
// diagnostics.
func (r *Runner) Run(ctx context.Context, tree *syntax.Tree) ([]Diagnostic, error) {
	if tree == nil {
		return nil, errors.New("nil syntax tree")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if r == nil || len(r.rules) == 0 {
		return []Diagnostic{}, nil
	}

	m, err := locate.Locate(tree)
	if errors.Is(err, locate.ErrNoAnalyzerClass) {
		r.log.Debug("skipping source without analyzer class", slog.String("uri", tree.URI))
		return []Diagnostic{}, nil
	}
	if err != nil {
		return nil, err
	}

	out := make([]Diagnostic, 0, 4)
	for _, rule := range r.rules {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		diags, err := rule.Run(ctx, m)
		if err != nil {
			return nil, fmt.Errorf("rule %s: %w", rule.ID(), err)
		}
		for _, d := range diags {
			if r.opts.Disabled[d.Rule] {
				continue
			}
			if sev, ok := r.opts.Severity[d.Rule]; ok {
				d.Severity = sev
			}
			out = append(out, d)
		}
	}

	SortDiagnostics(out)
	if r.opts.SingleStep && len(out) > 1 {
		out = out[:1]
	}
	r.log.Debug("analyzed", slog.String("uri", tree.URI), slog.Int("diagnostics", len(out)))
	return out, nil
}

// SortDiagnostics orders diagnostics by catalog order, then by span.
func SortDiagnostics(diags []Diagnostic) {
	slices.SortStableFunc(diags, func(a, b Diagnostic) int {
		return cmp.Or(
			cmp.Compare(a.Rule, b.Rule),
			cmp.Compare(a.Span.Start, b.Span.Start),
			cmp.Compare(a.Span.End, b.Span.End),
			cmp.Compare(a.Message, b.Message),
		)
	})
}
