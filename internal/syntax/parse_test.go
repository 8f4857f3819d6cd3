package syntax

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/kpumuk/metacheck/internal/lexer"
	"github.com/kpumuk/metacheck/internal/testutil"
	"github.com/kpumuk/metacheck/internal/text"
)

func TestParseValidBuildsTreeAndQueries(t *testing.T) {
	t.Parallel()

	src := testutil.Canonical(t)
	tree, err := Parse(context.Background(), src, ParseOptions{URI: "file:///canonical.cs"})
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if tree.URI != "file:///canonical.cs" || tree.Backend != DefaultBackend {
		t.Fatalf("tree identity mismatch: uri=%q backend=%q", tree.URI, tree.Backend)
	}
	if tree.LineIndex == nil {
		t.Fatal("expected LineIndex to be populated")
	}
	if tree.Root == NoNode || tree.Kind(tree.Root) != KindCompilationUnit {
		t.Fatalf("root kind = %v, want compilation_unit", tree.Kind(tree.Root))
	}
	if len(tree.Tokens) == 0 || tree.Tokens[len(tree.Tokens)-1].Kind != lexer.TokenEOF {
		t.Fatal("expected EOF token")
	}
	if tree.HasSyntaxErrors() {
		t.Fatalf("unexpected syntax diagnostics: %+v", tree.Diagnostics)
	}

	classes := tree.FindAll(tree.Root, KindClassDeclaration)
	if len(classes) != 1 {
		t.Fatalf("classes = %d, want 1", len(classes))
	}
	class := classes[0]
	if got := tree.DeclarationNameText(class); got != "SyntaxNodeAnalyzerAnalyzer" {
		t.Fatalf("class name = %q, want SyntaxNodeAnalyzerAnalyzer", got)
	}
	if got := tree.Ancestor(class, KindNamespaceDeclaration); got == NoNode {
		t.Fatal("class should be nested in a namespace")
	}

	methods := tree.FindAll(class, KindMethodDeclaration)
	if len(methods) != 2 {
		t.Fatalf("methods = %d, want 2", len(methods))
	}
	initMethod := methods[0]
	if got := tree.DeclarationNameText(initMethod); got != "Initialize" {
		t.Fatalf("first method = %q, want Initialize", got)
	}
	if got := tree.Modifiers(initMethod); !reflect.DeepEqual(got, []string{"public", "override"}) {
		t.Fatalf("Initialize modifiers = %v, want [public override]", got)
	}
	if got := tree.NodeText(tree.DeclarationType(initMethod)); got != "void" {
		t.Fatalf("Initialize return type = %q, want void", got)
	}

	params := tree.FindAll(initMethod, KindParameter)
	if len(params) != 1 {
		t.Fatalf("Initialize parameters = %d, want 1", len(params))
	}
	if got := tree.DeclarationNameText(params[0]); got != "context" {
		t.Fatalf("parameter name = %q, want context", got)
	}
	if got := tree.NodeText(tree.DeclarationType(params[0])); got != "AnalysisContext" {
		t.Fatalf("parameter type = %q, want AnalysisContext", got)
	}

	props := tree.FindAll(class, KindPropertyDeclaration)
	if len(props) != 1 || tree.DeclarationNameText(props[0]) != "SupportedDiagnostics" {
		t.Fatalf("SupportedDiagnostics property not found: %v", props)
	}
}

func TestParseInterleavesTokensWithChildren(t *testing.T) {
	t.Parallel()

	src := []byte("class C { void M() { if (a) { return; } } }")
	tree, err := Parse(context.Background(), src, ParseOptions{})
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	ifs := tree.FindAll(tree.Root, KindIfStatement)
	if len(ifs) != 1 {
		t.Fatalf("if statements = %d, want 1", len(ifs))
	}

	var got []string
	for _, c := range tree.NodeByID(ifs[0]).Children {
		if c.IsToken {
			got = append(got, tree.TokenText(int(c.Index)))
			continue
		}
		got = append(got, "<"+tree.Kind(NodeID(c.Index)).String()+">")
	}
	want := []string{"if", "(", "<identifier>", ")", "<block>"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("if children = %q, want %q", got, want)
	}

	if _, ok := tree.DirectToken(ifs[0], lexer.TokenKwIf); !ok {
		t.Fatal("if keyword should be a direct token of if_statement")
	}
	if got := tree.SignificantText(ifs[0]); got != "if(a){return;}" {
		t.Fatalf("SignificantText = %q", got)
	}
}

func TestParseInvalidReturnsRecoverableDiagnostics(t *testing.T) {
	t.Parallel()

	src := []byte("class Broken {\n  void M() { var s = \"unterminated\n  }\n")
	tree, err := Parse(context.Background(), src, ParseOptions{})
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if tree == nil || tree.Root == NoNode {
		t.Fatal("expected tree on malformed input")
	}
	if !hasDiagnosticSource(tree.Diagnostics, "lexer") {
		t.Fatalf("expected lexer diagnostics, got %+v", tree.Diagnostics)
	}
	if !hasDiagnosticSource(tree.Diagnostics, "parser") {
		t.Fatalf("expected parser diagnostics, got %+v", tree.Diagnostics)
	}
	for _, d := range tree.Diagnostics {
		if d.Source == "parser" && (d.Code == DiagnosticParserErrorNode || d.Code == DiagnosticParserMissingNode) && !d.Recoverable {
			t.Fatalf("parser syntax diagnostic should be recoverable: %+v", d)
		}
	}
}

func TestParseAlignmentInvariantsOnValidAndMalformed(t *testing.T) {
	t.Parallel()

	cases := map[string][]byte{
		"valid":       []byte("class User { public string Name { get; set; } }\n"),
		"bad":         []byte("class S { void f(int x { return x +; }\n"),
		"comment":     []byte("class C {\n  void M() {\n    // a();\n    /* b(); */ c();\n  }\n}\n"),
		"missing":     []byte("class C { void M() { var a = b\n return; } }"),
		"unclosed":    []byte("class C { void M() { /* if (x) { }"),
		"empty":       nil,
		"only-trivia": []byte("  // nothing here\n"),
	}

	for name, src := range cases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			tree, err := Parse(context.Background(), src, ParseOptions{})
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			if err := assertTreeAlignment(tree); err != nil {
				t.Fatal(err)
			}
			if hasDiagnosticCode(tree.Diagnostics, DiagnosticInternalAlignment) {
				t.Fatalf("unexpected internal alignment diagnostics: %+v", tree.Diagnostics)
			}
		})
	}
}

func TestTokenRangeForTriviaOnlySpan(t *testing.T) {
	t.Parallel()

	src := []byte("a  // note\n  b")
	tokens := lexer.Lex(src).Tokens
	tests := []struct {
		name      string
		span      text.Span
		wantFirst uint32
	}{
		{"between tokens", text.Span{Start: 1, End: 10}, 1},
		{"before eof", text.Span{Start: 14, End: 14}, 2},
		{"comment and indent", text.Span{Start: 3, End: 13}, 1},
	}
	for _, tt := range tests {
		first, last, err := tokenRangeForSpan(tokens, tt.span)
		if err != nil {
			t.Fatalf("%s: tokenRangeForSpan(%s) error = %v", tt.name, tt.span, err)
		}
		if first != tt.wantFirst || last != tt.wantFirst {
			t.Fatalf("%s: tokenRangeForSpan(%s) = %d..%d, want %d..%d", tt.name, tt.span, first, last, tt.wantFirst, tt.wantFirst)
		}
	}

	eof := lexer.Lex([]byte("  // nothing here\n")).Tokens
	first, last, err := tokenRangeForSpan(eof, text.Span{Start: 0, End: 18})
	if err != nil || first != 0 || last != 0 {
		t.Fatalf("tokenRangeForSpan(comment only) = %d..%d, %v; want the EOF token", first, last, err)
	}
}

func TestParseIsDeterministic(t *testing.T) {
	t.Parallel()

	cases := map[string][]byte{
		"valid":     []byte("class E { const int A = 1; }\n"),
		"malformed": []byte("class Broken { void f(string name }\n"),
	}
	for name, src := range cases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			opts := ParseOptions{URI: "file:///" + name + ".cs"}
			first, err := Parse(context.Background(), src, opts)
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			second, err := Parse(context.Background(), src, opts)
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			if !reflect.DeepEqual(treeSnapshot(first), treeSnapshot(second)) {
				t.Fatalf("Parse mismatch\nfirst=%#v\nsecond=%#v", treeSnapshot(first), treeSnapshot(second))
			}
		})
	}
}

func TestParseDoesNotAliasSource(t *testing.T) {
	t.Parallel()

	src := []byte("class C {}")
	tree, err := Parse(context.Background(), src, ParseOptions{})
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	src[0] = 'X'
	if string(tree.Source) != "class C {}" {
		t.Fatalf("tree source changed with input: %q", tree.Source)
	}
}

func TestParseHonorsCanceledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Parse(ctx, []byte("class C {}"), ParseOptions{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("Parse() error = %v, want context.Canceled", err)
	}
}

func TestParseCorpusFixtures(t *testing.T) {
	t.Parallel()

	files, err := testutil.CorpusFiles()
	if err != nil {
		t.Fatalf("CorpusFiles: %v", err)
	}
	for _, fx := range testutil.MustLoadFixtures(t) {
		files = append(files, fx.Path)
	}
	for _, file := range files {
		t.Run(filepath.Base(file), func(t *testing.T) {
			assertParseFile(t, file)
		})
	}
}

func assertParseFile(t *testing.T, file string) {
	t.Helper()

	src := testutil.ReadFile(t, file)
	if filepath.Ext(file) == ".txtar" {
		fx, err := testutil.ParseFixture(file)
		if err != nil {
			t.Fatalf("ParseFixture(%q): %v", file, err)
		}
		src = fx.Input
	}
	tree, err := Parse(context.Background(), src, ParseOptions{URI: "file://" + file})
	if err != nil {
		t.Fatalf("Parse(%q): %v", file, err)
	}
	if tree == nil || tree.Root == NoNode {
		t.Fatalf("Parse(%q): missing root", file)
	}
	if err := assertTreeAlignment(tree); err != nil {
		t.Fatalf("Parse(%q): %v", file, err)
	}
}

type snapshot struct {
	URI         string
	Backend     string
	Source      string
	Tokens      []tokenSnap
	Nodes       []nodeSnap
	Root        NodeID
	Diagnostics []diagSnap
}

type tokenSnap struct {
	Kind lexer.TokenKind
	Span string
}

type nodeSnap struct {
	ID         NodeID
	Kind       string
	Span       string
	FirstToken uint32
	LastToken  uint32
	Parent     NodeID
	Flags      NodeFlags
	Children   []ChildRef
}

type diagSnap struct {
	Code        DiagnosticCode
	Message     string
	Span        string
	Source      string
	Recoverable bool
}

func treeSnapshot(t *Tree) snapshot {
	ts := snapshot{
		URI:     t.URI,
		Backend: t.Backend,
		Source:  string(t.Source),
		Root:    t.Root,
	}
	for _, tok := range t.Tokens {
		ts.Tokens = append(ts.Tokens, tokenSnap{Kind: tok.Kind, Span: tok.Span.String()})
	}
	for _, n := range t.Nodes {
		ts.Nodes = append(ts.Nodes, nodeSnap{
			ID:         n.ID,
			Kind:       KindName(n.Kind),
			Span:       n.Span.String(),
			FirstToken: n.FirstToken,
			LastToken:  n.LastToken,
			Parent:     n.Parent,
			Flags:      n.Flags,
			Children:   append([]ChildRef(nil), n.Children...),
		})
	}
	for _, d := range t.Diagnostics {
		ts.Diagnostics = append(ts.Diagnostics, diagSnap{Code: d.Code, Message: d.Message, Span: d.Span.String(), Source: d.Source, Recoverable: d.Recoverable})
	}
	return ts
}

func hasDiagnosticCode(diags []Diagnostic, code DiagnosticCode) bool {
	for _, d := range diags {
		if d.Code == code {
			return true
		}
	}
	return false
}

func hasDiagnosticSource(diags []Diagnostic, source string) bool {
	for _, d := range diags {
		if d.Source == source {
			return true
		}
	}
	return false
}

// assertTreeAlignment checks arena invariants: valid spans, parent links,
// and every non-EOF token owned by exactly one node in source order.
func assertTreeAlignment(tree *Tree) error {
	if tree == nil {
		return errors.New("nil tree")
	}
	if len(tree.Tokens) == 0 {
		return errors.New("no tokens")
	}
	if len(tree.Nodes) == 0 {
		return errors.New("no nodes slice")
	}
	for i, tok := range tree.Tokens {
		if !tok.Span.IsValid() {
			return fmt.Errorf("invalid token span at %d: %s", i, tok.Span)
		}
		if i > 0 && tok.Span.Start < tree.Tokens[i-1].Span.Start {
			return fmt.Errorf("token start out of order at %d", i)
		}
	}
	for i, n := range tree.Nodes {
		if i == 0 {
			continue
		}
		if !n.Span.IsValid() {
			return fmt.Errorf("invalid node span for node %d: %s", n.ID, n.Span)
		}
		if int(n.FirstToken) >= len(tree.Tokens) || int(n.LastToken) >= len(tree.Tokens) {
			return fmt.Errorf("node %d token range out of bounds: %d..%d", n.ID, n.FirstToken, n.LastToken)
		}
		if n.LastToken < n.FirstToken {
			return fmt.Errorf("node %d invalid token range ordering: %d..%d", n.ID, n.FirstToken, n.LastToken)
		}
		for _, c := range n.Children {
			if c.IsToken {
				if int(c.Index) >= len(tree.Tokens) {
					return fmt.Errorf("node %d token child out of bounds: %d", n.ID, c.Index)
				}
				continue
			}
			if c.Index == 0 || int(c.Index) >= len(tree.Nodes) {
				return fmt.Errorf("node %d child node out of bounds: %d", n.ID, c.Index)
			}
			child := tree.Nodes[c.Index]
			if child.Parent != n.ID {
				return fmt.Errorf("child %d parent mismatch: got %d want %d", child.ID, child.Parent, n.ID)
			}
		}
	}

	var owned []int
	var collect func(id NodeID)
	collect = func(id NodeID) {
		for _, c := range tree.NodeByID(id).Children {
			if c.IsToken {
				owned = append(owned, int(c.Index))
				continue
			}
			collect(NodeID(c.Index))
		}
	}
	collect(tree.Root)
	for i, idx := range owned {
		if idx != i {
			return fmt.Errorf("token %d owned out of order (position %d)", idx, i)
		}
	}
	if want := len(tree.Tokens) - 1; len(owned) != want {
		return fmt.Errorf("owned tokens = %d, want %d", len(owned), want)
	}
	return nil
}
