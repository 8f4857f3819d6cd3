package native

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/kpumuk/metacheck/internal/syntax/backend"
	"github.com/kpumuk/metacheck/internal/testutil"
)

func parse(t *testing.T, src string) *backend.RawNode {
	t.Helper()
	p, err := NewFactory().NewParser()
	if err != nil {
		t.Fatalf("NewParser: %v", err)
	}
	defer p.Close()
	root, err := p.Parse(context.Background(), []byte(src))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	assertNested(t, root, len(src))
	return root
}

func assertNested(t *testing.T, root *backend.RawNode, size int) {
	t.Helper()
	if root.StartByte != 0 || root.EndByte != size {
		t.Fatalf("root span = [%d,%d), want [0,%d)", root.StartByte, root.EndByte, size)
	}
	var check func(n *backend.RawNode)
	check = func(n *backend.RawNode) {
		prev := n.StartByte
		for _, c := range n.Children {
			if c.StartByte < prev || c.EndByte > n.EndByte || c.StartByte > c.EndByte {
				t.Fatalf("%s [%d,%d) escapes parent %s [%d,%d) or overlaps sibling ending at %d",
					c.Kind, c.StartByte, c.EndByte, n.Kind, n.StartByte, n.EndByte, prev)
			}
			prev = c.EndByte
			check(c)
		}
	}
	check(root)
}

func sexp(n *backend.RawNode) string {
	var b strings.Builder
	var write func(n *backend.RawNode)
	write = func(n *backend.RawNode) {
		switch {
		case n.IsMissing:
			b.WriteString("(MISSING " + n.Kind + ")")
			return
		case n.IsError:
			b.WriteString("(ERROR")
		default:
			b.WriteString("(" + n.Kind)
		}
		for _, c := range n.Children {
			b.WriteByte(' ')
			write(c)
		}
		b.WriteByte(')')
	}
	write(n)
	return b.String()
}

func find(n *backend.RawNode, kind string) *backend.RawNode {
	if n.Kind == kind {
		return n
	}
	for _, c := range n.Children {
		if found := find(c, kind); found != nil {
			return found
		}
	}
	return nil
}

func count(n *backend.RawNode, kind string) int {
	total := 0
	n.Walk(func(c *backend.RawNode) {
		if c.Kind == kind {
			total++
		}
	})
	return total
}

func TestParseCanonicalAnalyzer(t *testing.T) {
	t.Parallel()

	src := string(testutil.Canonical(t))
	root := parse(t, src)
	if root.HasError {
		t.Fatalf("canonical analyzer has errors:\n%s", sexp(root))
	}

	tests := []struct {
		kind string
		want int
	}{
		{"using_directive", 10},
		{"namespace_declaration", 1},
		{"class_declaration", 1},
		{"field_declaration", 2},
		{"property_declaration", 1},
		{"method_declaration", 2},
		{"if_statement", 3},
		{"return_statement", 2},
		{"cast_expression", 1},
		{"object_creation_expression", 1},
	}
	for _, tt := range tests {
		if got := count(root, tt.kind); got != tt.want {
			t.Fatalf("count(%s) = %d, want %d", tt.kind, got, tt.want)
		}
	}
}

func TestParseStatementShapes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
		want string
	}{
		{
			name: "cast declaration",
			body: "var ifStatement = (IfStatementSyntax)context.Node;",
			want: "(block (local_declaration_statement (variable_declaration (implicit_type) (variable_declarator (identifier) (cast_expression (identifier) (member_access_expression (identifier) (identifier)))))))",
		},
		{
			name: "declaration without name",
			body: "var = (IfStatementSyntax)context.Node;",
			want: "(block (expression_statement (assignment_expression (identifier) (cast_expression (identifier) (member_access_expression (identifier) (identifier))))))",
		},
		{
			name: "if without keyword",
			body: "(ifKeyword.HasTrailingTrivia) {}",
			want: "(block (expression_statement (parenthesized_expression (member_access_expression (identifier) (identifier))) (MISSING ;)) (block))",
		},
		{
			name: "kind comparison",
			body: "if (trailingTrivia.Kind() == SyntaxKind.WhitespaceTrivia) { return; }",
			want: "(block (if_statement (binary_expression (invocation_expression (member_access_expression (identifier) (identifier)) (argument_list)) (member_access_expression (identifier) (identifier))) (block (return_statement))))",
		},
		{
			name: "registration",
			body: "context.RegisterSyntaxNodeAction(AnalyzeIfStatement, SyntaxKind.IfStatement);",
			want: "(block (expression_statement (invocation_expression (member_access_expression (identifier) (identifier)) (argument_list (argument (identifier)) (argument (member_access_expression (identifier) (identifier)))))))",
		},
		{
			name: "generic declaration and call",
			body: "List<int> xs = F<int>(1);",
			want: "(block (local_declaration_statement (variable_declaration (generic_name (identifier) (type_argument_list (predefined_type))) (variable_declarator (identifier) (invocation_expression (generic_name (identifier) (type_argument_list (predefined_type))) (argument_list (argument (integer_literal))))))))",
		},
		{
			name: "less than is not generic",
			body: "if (a < b) return;",
			want: "(block (if_statement (binary_expression (identifier) (identifier)) (return_statement)))",
		},
		{
			name: "shift assignment",
			body: "x >>= 2;",
			want: "(block (expression_statement (assignment_expression (identifier) (integer_literal))))",
		},
		{
			name: "else branch",
			body: "if (a) b(); else { }",
			want: "(block (if_statement (identifier) (expression_statement (invocation_expression (identifier) (argument_list))) (block)))",
		},
		{
			name: "string comparison",
			body: `if (trailingTrivia.ToString() == " ") { }`,
			want: "(block (if_statement (binary_expression (invocation_expression (member_access_expression (identifier) (identifier)) (argument_list)) (string_literal)) (block)))",
		},
		{
			name: "is pattern",
			body: "if (node is IfStatementSyntax s && s != null) { }",
			want: "(block (if_statement (binary_expression (is_pattern_expression (identifier) (declaration_pattern (identifier) (identifier))) (binary_expression (identifier) (null_literal))) (block)))",
		},
		{
			name: "missing semicolon",
			body: "var a = b\nreturn;",
			want: "(block (local_declaration_statement (variable_declaration (implicit_type) (variable_declarator (identifier) (identifier))) (MISSING ;)) (return_statement))",
		},
		{
			name: "stray token",
			body: ") return;",
			want: "(block (ERROR) (return_statement))",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			root := parse(t, "class C { void M() { "+tt.body+" } }")
			block := find(root, "method_declaration")
			if block == nil {
				t.Fatalf("no method_declaration in %s", sexp(root))
			}
			body := find(block, "block")
			if got := sexp(body); got != tt.want {
				t.Fatalf("shape mismatch\n got: %s\nwant: %s", got, tt.want)
			}
		})
	}
}

func TestParseMemberShapes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		src  string
		want string
	}{
		{
			name: "const field",
			src:  `class C { public const string spacingRuleId = "IfSpacing"; }`,
			want: "(field_declaration (modifier) (modifier) (variable_declaration (predefined_type) (variable_declarator (identifier) (string_literal))))",
		},
		{
			name: "expression bodied property",
			src:  "class C { public override ImmutableArray<DiagnosticDescriptor> SupportedDiagnostics => ImmutableArray.Create(Rule); }",
			want: "(property_declaration (modifier) (modifier) (generic_name (identifier) (type_argument_list (identifier))) (identifier) (arrow_expression_clause (invocation_expression (member_access_expression (identifier) (identifier)) (argument_list (argument (identifier))))))",
		},
		{
			name: "method signature",
			src:  "class C { public override void Initialize(AnalysisContext context) { } }",
			want: "(method_declaration (modifier) (modifier) (predefined_type) (identifier) (parameter_list (parameter (identifier) (identifier))) (block))",
		},
		{
			name: "attributed class",
			src:  "[DiagnosticAnalyzer(LanguageNames.CSharp)] public class A : DiagnosticAnalyzer { }",
			want: "(class_declaration (attribute_list (attribute (identifier) (attribute_argument_list (attribute_argument (member_access_expression (identifier) (identifier)))))) (modifier) (identifier) (base_list (identifier)) (declaration_list))",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			root := parse(t, tt.src)
			if len(root.Children) != 1 {
				t.Fatalf("root children = %d, want 1: %s", len(root.Children), sexp(root))
			}
			member := root.Children[0]
			if member.Kind == "class_declaration" && len(member.Children) > 0 {
				if list := member.Children[len(member.Children)-1]; list.Kind == "declaration_list" && len(list.Children) == 1 {
					member = list.Children[0]
				}
			}
			if got := sexp(member); got != tt.want {
				t.Fatalf("shape mismatch\n got: %s\nwant: %s", got, tt.want)
			}
		})
	}
}

func TestParseUnterminatedCommentKeepsEarlierStatements(t *testing.T) {
	t.Parallel()

	src := `class A
{
    private void AnalyzeIfStatement(SyntaxNodeAnalysisContext context)
    {
        var ifStatement = (IfStatementSyntax)context.Node;
        var ifKeyword = ifStatement.IfKeyword;
        /* if (ifKeyword.HasTrailingTrivia)
        {
        }/*
    }
}
`
	root := parse(t, src)
	if !root.HasError {
		t.Fatal("expected missing braces to be reported")
	}
	if got := count(root, "local_declaration_statement"); got != 2 {
		t.Fatalf("local declarations = %d, want 2\n%s", got, sexp(root))
	}
	if got := count(root, "if_statement"); got != 0 {
		t.Fatalf("commented if statement parsed: %s", sexp(root))
	}
}

func TestParseCorpusKeepsSpansNested(t *testing.T) {
	t.Parallel()

	files, err := testutil.CorpusFiles()
	if err != nil {
		t.Fatalf("CorpusFiles: %v", err)
	}
	for _, path := range files {
		root := parse(t, string(testutil.ReadFile(t, path)))
		if count(root, "class_declaration") == 0 {
			t.Fatalf("%s: no class_declaration parsed", path)
		}
	}
}

func TestParseHonorsCanceledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := (&Parser{}).Parse(ctx, []byte("class C {}"))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Parse error = %v, want context.Canceled", err)
	}
}

func TestFactoryName(t *testing.T) {
	t.Parallel()

	if got := NewFactory().Name(); got != "native" {
		t.Fatalf("Name() = %q, want native", got)
	}
}
