package fix

import (
	"context"
	"fmt"
	"slices"
	"testing"

	"github.com/kpumuk/metacheck/internal/lint"
	"github.com/kpumuk/metacheck/internal/syntax"
	"github.com/kpumuk/metacheck/internal/testutil"
)

func diagLines(t *testing.T, tree *syntax.Tree, diags []lint.Diagnostic) []string {
	t.Helper()
	out := make([]string, 0, len(diags))
	for _, d := range diags {
		pt, err := tree.LineIndex.OffsetToPoint(d.Span.Start)
		if err != nil {
			t.Fatalf("OffsetToPoint(%d): %v", d.Span.Start, err)
		}
		out = append(out, fmt.Sprintf("%s %d:%d", d.Name(), pt.Line+1, pt.Column+1))
	}
	return out
}

func TestFixtures(t *testing.T) {
	t.Parallel()

	fixtures := testutil.MustLoadFixtures(t)
	if len(fixtures) == 0 {
		t.Fatal("no fixtures found")
	}
	for _, fx := range fixtures {
		t.Run(fx.Name, func(t *testing.T) {
			t.Parallel()

			tree := parse(t, string(fx.Input))
			diags := diagnose(t, tree)
			if got := diagLines(t, tree, diags); !slices.Equal(got, fx.WantDiag) {
				t.Fatalf("diagnostics = %q, want %q", got, fx.WantDiag)
			}
			if !fx.HasFixed {
				return
			}
			res, err := Step(context.Background(), tree, nil, First)
			if err != nil {
				t.Fatalf("Step: %v", err)
			}
			if res == nil {
				t.Fatal("Step found nothing to fix")
			}
			if got := string(res.Output); got != string(fx.Fixed) {
				t.Fatalf("fixed source mismatch\n--- got ---\n%s\n--- want ---\n%s", got, fx.Fixed)
			}
		})
	}
}
