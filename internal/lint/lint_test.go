package lint

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/kpumuk/metacheck/internal/locate"
	"github.com/kpumuk/metacheck/internal/rules"
	"github.com/kpumuk/metacheck/internal/syntax"
	"github.com/kpumuk/metacheck/internal/testutil"
	"github.com/kpumuk/metacheck/internal/text"
)

const bareAnalyzer = `using Microsoft.CodeAnalysis.Diagnostics;

public class A : DiagnosticAnalyzer
{
}
`

func TestInitializeChainRule(t *testing.T) {
	t.Parallel()

	m := mustLocate(t, bareAnalyzer)
	diags, err := InitializeChainRule{}.Run(context.Background(), m)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(diags) != 1 || diags[0].Rule != rules.MissingInit {
		t.Fatalf("diagnostics = %+v, want one MissingInit", diags)
	}
	d := diags[0]
	if got := string(d.Span.Slice(m.Tree.Source)); got != "A" {
		t.Fatalf("span text = %q, want A", got)
	}
	if d.Code != rules.MissingInit.Rule().Code {
		t.Fatalf("Code = %q", d.Code)
	}
	if !strings.Contains(d.Message, "'A'") {
		t.Fatalf("Message = %q, want class name", d.Message)
	}
	if len(d.Related) != 1 {
		t.Fatalf("Related = %+v, want the verdict detail", d.Related)
	}
}

func TestDescriptorChainRule(t *testing.T) {
	t.Parallel()

	diags, err := DescriptorChainRule{}.Run(context.Background(), mustLocate(t, bareAnalyzer))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(diags) != 1 || diags[0].Rule != rules.MissingId {
		t.Fatalf("diagnostics = %+v, want one MissingId", diags)
	}
}

func TestDefaultRunnerAggregatesChainsInCatalogOrder(t *testing.T) {
	t.Parallel()

	diags, err := NewDefaultRunner(Options{}).Run(context.Background(), mustParseTree(t, bareAnalyzer))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(diags) != 2 {
		t.Fatalf("diagnostic count=%d, want 2", len(diags))
	}
	if diags[0].Rule != rules.MissingInit || diags[1].Rule != rules.MissingId {
		t.Fatalf("order = %s, %s; want MissingInit, MissingId", diags[0].Name(), diags[1].Name())
	}
}

func TestRunnerOptions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		opts Options
		want []rules.ID
		sev  rules.Severity
	}{
		{name: "default", opts: Options{}, want: []rules.ID{rules.MissingInit, rules.MissingId}, sev: rules.SeverityError},
		{name: "single step", opts: Options{SingleStep: true}, want: []rules.ID{rules.MissingInit}, sev: rules.SeverityError},
		{
			name: "disabled",
			opts: Options{Disabled: map[rules.ID]bool{rules.MissingInit: true}},
			want: []rules.ID{rules.MissingId},
			sev:  rules.SeverityError,
		},
		{
			name: "severity override",
			opts: Options{SingleStep: true, Severity: map[rules.ID]rules.Severity{rules.MissingInit: rules.SeverityWarning}},
			want: []rules.ID{rules.MissingInit},
			sev:  rules.SeverityWarning,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			diags, err := NewDefaultRunner(tt.opts).Run(context.Background(), mustParseTree(t, bareAnalyzer))
			if err != nil {
				t.Fatalf("Run: %v", err)
			}
			if len(diags) != len(tt.want) {
				t.Fatalf("diagnostic count=%d, want %d", len(diags), len(tt.want))
			}
			for i, id := range tt.want {
				if diags[i].Rule != id {
					t.Fatalf("diags[%d] = %s, want %s", i, diags[i].Name(), id)
				}
			}
			if diags[0].Severity != tt.sev {
				t.Fatalf("Severity = %v, want %v", diags[0].Severity, tt.sev)
			}
		})
	}
}

func TestRunnerCanonicalAndEmpty(t *testing.T) {
	t.Parallel()

	runner := NewDefaultRunner(Options{})
	for name, src := range map[string]string{
		"canonical": string(testutil.Canonical(t)),
		"empty":     "",
		"no class":  "using System;\nnamespace N { }\n",
		"comments":  "  // nothing here\n/* nor here */\n",
	} {
		diags, err := runner.Run(context.Background(), mustParseTree(t, src))
		if err != nil {
			t.Fatalf("%s: Run: %v", name, err)
		}
		if len(diags) != 0 {
			t.Fatalf("%s: diagnostics = %+v, want none", name, diags)
		}
	}
}

func TestRunnerRejectsNilTreeAndCanceledContext(t *testing.T) {
	t.Parallel()

	runner := NewDefaultRunner(Options{})
	if _, err := runner.Run(context.Background(), nil); err == nil {
		t.Fatal("Run(nil) succeeded")
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := runner.Run(ctx, mustParseTree(t, bareAnalyzer)); !errors.Is(err, context.Canceled) {
		t.Fatalf("Run(canceled) error = %v, want context.Canceled", err)
	}
}

func TestSortDiagnostics(t *testing.T) {
	t.Parallel()

	diags := []Diagnostic{
		{Rule: rules.InvalidStatement, Span: spanAt(30)},
		{Rule: rules.MissingId, Span: spanAt(1)},
		{Rule: rules.InvalidStatement, Span: spanAt(10)},
		{Rule: rules.MissingInit, Span: spanAt(50)},
	}
	SortDiagnostics(diags)
	want := []struct {
		rule  rules.ID
		start int
	}{
		{rules.MissingInit, 50},
		{rules.InvalidStatement, 10},
		{rules.InvalidStatement, 30},
		{rules.MissingId, 1},
	}
	for i, w := range want {
		if diags[i].Rule != w.rule || int(diags[i].Span.Start) != w.start {
			t.Fatalf("diags[%d] = %s@%d, want %s@%d", i, diags[i].Name(), diags[i].Span.Start, w.rule, w.start)
		}
	}
}

func spanAt(start int) text.Span {
	return text.Span{Start: text.ByteOffset(start), End: text.ByteOffset(start + 1)}
}

func mustParseTree(t *testing.T, src string) *syntax.Tree {
	t.Helper()

	tree, err := syntax.Parse(context.Background(), []byte(src), syntax.ParseOptions{URI: "file:///lint.cs"})
	if err != nil {
		t.Fatalf("syntax.Parse: %v", err)
	}
	return tree
}

func mustLocate(t *testing.T, src string) *locate.Model {
	t.Helper()

	m, err := locate.Locate(mustParseTree(t, src))
	if err != nil {
		t.Fatalf("locate.Locate: %v", err)
	}
	return m
}
