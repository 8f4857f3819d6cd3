//go:build cgo && metacheck_treesitter

package treesitter

import (
	"context"
	"errors"
	"testing"

	"github.com/kpumuk/metacheck/internal/syntax/backend"
	"github.com/kpumuk/metacheck/internal/syntax/backend/native"
	"github.com/kpumuk/metacheck/internal/testutil"
)

func parseWith(t *testing.T, f backend.Factory, src []byte) *backend.RawNode {
	t.Helper()
	p, err := f.NewParser()
	if err != nil {
		t.Fatalf("%s NewParser() error = %v", f.Name(), err)
	}
	defer p.Close()
	root, err := p.Parse(context.Background(), src)
	if err != nil {
		t.Fatalf("%s Parse() error = %v", f.Name(), err)
	}
	return root
}

func countKinds(root *backend.RawNode) map[string]int {
	counts := map[string]int{}
	root.Walk(func(n *backend.RawNode) {
		counts[n.Kind]++
	})
	return counts
}

func TestParserParsesCanonicalAnalyzer(t *testing.T) {
	t.Parallel()

	src := testutil.Canonical(t)
	root := parseWith(t, NewFactory(), src)
	if root.Kind != "compilation_unit" {
		t.Fatalf("root.Kind = %q, want compilation_unit", root.Kind)
	}
	if root.HasError {
		t.Fatal("canonical analyzer parsed with errors")
	}
	if root.StartByte != 0 || root.EndByte != len(src) {
		t.Fatalf("root span = [%d,%d), want [0,%d)", root.StartByte, root.EndByte, len(src))
	}
	root.Walk(func(n *backend.RawNode) {
		if n.IsExtra {
			t.Fatalf("extra node %s leaked into raw tree", n.Kind)
		}
	})
}

func TestParserAgreesWithNativeOnDeclarationKinds(t *testing.T) {
	t.Parallel()

	src := testutil.Canonical(t)
	ts := countKinds(parseWith(t, NewFactory(), src))
	nat := countKinds(parseWith(t, native.NewFactory(), src))
	for _, kind := range []string{
		"class_declaration",
		"field_declaration",
		"property_declaration",
		"method_declaration",
		"if_statement",
		"local_declaration_statement",
		"expression_statement",
		"invocation_expression",
		"cast_expression",
	} {
		if ts[kind] != nat[kind] {
			t.Fatalf("count(%s): treesitter = %d, native = %d", kind, ts[kind], nat[kind])
		}
	}
}

func TestParserReportsMissingNodes(t *testing.T) {
	t.Parallel()

	root := parseWith(t, NewFactory(), []byte("class C { void M() { var x = 1 } }"))
	if !root.HasError {
		t.Fatal("expected HasError for missing semicolon")
	}
}

func TestParserHonorsCanceledContext(t *testing.T) {
	t.Parallel()

	p, err := NewFactory().NewParser()
	if err != nil {
		t.Fatalf("NewParser() error = %v", err)
	}
	defer p.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := p.Parse(ctx, []byte("class C {}")); !errors.Is(err, context.Canceled) {
		t.Fatalf("Parse() error = %v, want context.Canceled", err)
	}
}
