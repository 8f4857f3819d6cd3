package fix

import (
	"context"
	"testing"

	"github.com/kpumuk/metacheck/internal/lint"
	"github.com/kpumuk/metacheck/internal/rules"
	"github.com/kpumuk/metacheck/internal/testutil"
)

func TestConvergeFromBareClass(t *testing.T) {
	t.Parallel()

	tree := parse(t, "using Microsoft.CodeAnalysis.Diagnostics;\n\npublic class A : DiagnosticAnalyzer\n{\n}\n")
	got, err := Converge(context.Background(), tree, nil, ConvergeOptions{})
	if err != nil {
		t.Fatalf("Converge: %v", err)
	}
	if got.Stalled {
		t.Fatalf("Converge stalled after %v with %v", got.Applied, names(got.Remaining))
	}
	if len(got.Remaining) != 0 {
		t.Fatalf("Remaining = %v, want none", names(got.Remaining))
	}
	if got.Applied[0] != rules.MissingInit {
		t.Fatalf("first fix = %s, want MissingInit", got.Applied[0])
	}
	if got.Iterations != len(got.Applied) {
		t.Fatalf("Iterations = %d, Applied = %d", got.Iterations, len(got.Applied))
	}
}

func TestConvergeFromBrokenBody(t *testing.T) {
	t.Parallel()

	src := mutate(t,
		"            var ifKeyword = ifStatement.IfKeyword;\n", "",
		"(IfStatementSyntax)context.Node", "context.Node",
		"                        return;\n", "",
	)
	got, err := Converge(context.Background(), parse(t, src), nil, ConvergeOptions{})
	if err != nil {
		t.Fatalf("Converge: %v", err)
	}
	if len(got.Remaining) != 0 || got.Stalled {
		t.Fatalf("Converge = %+v, remaining %v", got.Applied, names(got.Remaining))
	}
	if want := string(testutil.Canonical(t)); string(got.Tree.Source) != want {
		t.Fatalf("converged source mismatch\n--- got ---\n%s\n--- want ---\n%s", got.Tree.Source, want)
	}
}

func TestConvergeHonorsIterationLimit(t *testing.T) {
	t.Parallel()

	tree := parse(t, "public class A : DiagnosticAnalyzer\n{\n}\n")
	got, err := Converge(context.Background(), tree, nil, ConvergeOptions{MaxIterations: 2})
	if err != nil {
		t.Fatalf("Converge: %v", err)
	}
	if !got.Stalled || got.Iterations != 2 {
		t.Fatalf("Converge = stalled %v after %d iterations, want stalled after 2", got.Stalled, got.Iterations)
	}
	if len(got.Remaining) == 0 {
		t.Fatal("Remaining is empty, want the unfixed diagnostics")
	}
}

func TestConvergeWithSelector(t *testing.T) {
	t.Parallel()

	src := mutate(t,
		"isEnabledByDefault: true", "isEnabledByDefault: false",
		"context.RegisterSyntaxNodeAction(", "context.RegisterSymbolAction(",
	)
	got, err := Converge(context.Background(), parse(t, src), nil, ConvergeOptions{Selector: ByRule(rules.EnabledByDefaultError)})
	if err != nil {
		t.Fatalf("Converge: %v", err)
	}
	if len(got.Applied) != 1 || got.Applied[0] != rules.EnabledByDefaultError {
		t.Fatalf("Applied = %v, want [EnabledByDefaultError]", got.Applied)
	}
	if len(got.Remaining) != 1 || got.Remaining[0].Rule != rules.IncorrectRegister {
		t.Fatalf("Remaining = %v, want [IncorrectRegister]", names(got.Remaining))
	}
}

func TestConvergeUsesRunnerOptions(t *testing.T) {
	t.Parallel()

	src := mutate(t, "isEnabledByDefault: true", "isEnabledByDefault: false")
	runner := lint.NewDefaultRunner(lint.Options{Disabled: map[rules.ID]bool{rules.EnabledByDefaultError: true}})
	got, err := Converge(context.Background(), parse(t, src), runner, ConvergeOptions{})
	if err != nil {
		t.Fatalf("Converge: %v", err)
	}
	if len(got.Applied) != 0 {
		t.Fatalf("Applied = %v, want none for a disabled rule", got.Applied)
	}
}
