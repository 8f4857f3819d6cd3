package verify

import (
	"fmt"
	"strings"

	"github.com/kpumuk/metacheck/internal/lexer"
	"github.com/kpumuk/metacheck/internal/locate"
	"github.com/kpumuk/metacheck/internal/rules"
	"github.com/kpumuk/metacheck/internal/syntax"
	"github.com/kpumuk/metacheck/internal/text"
)

// BlockRef names a block of the analysis callback.
type BlockRef uint8

const (
	// BlockBody is the callback body.
	BlockBody BlockRef = iota + 1
	// BlockGuard is the block of the trailing trivia check.
	BlockGuard
	// BlockKindCheck is the block of the trivia kind check.
	BlockKindCheck
	// BlockWhitespaceCheck is the block of the single space check.
	BlockWhitespaceCheck
)

// ShapeKind is the statement form a body step expects.
type ShapeKind uint8

const (
	ShapeLocal ShapeKind = iota + 1
	ShapeIf
	ShapeReturn
	ShapeExpression
)

// Shape is the expected statement of a body step. Value is a template in
// which {context} stands for the callback parameter and {rule} for the
// descriptor field: the initializer of a local, the condition of an if, the
// expression of an expression statement.
type Shape struct {
	Kind  ShapeKind
	Name  string
	Type  string
	Value string
}

// Env supplies the names a shape template refers to.
type Env struct {
	Context string
	Rule    string
}

// EnvOf returns the template environment of m.
func EnvOf(m *locate.Model) Env {
	return Env{Context: m.CallbackParamName(), Rule: m.RuleName()}
}

// Expand substitutes the template placeholders in s.
func (e Env) Expand(s string) string {
	return strings.NewReplacer("{context}", e.Context, "{rule}", e.Rule).Replace(s)
}

// Canonical renders the statement the tutorial expects. If statements are
// rendered as a header only.
func (s Shape) Canonical(env Env) string {
	v := env.Expand(s.Value)
	switch s.Kind {
	case ShapeLocal:
		return "var " + s.Name + " = " + v + ";"
	case ShapeIf:
		return "if (" + v + ")"
	case ShapeReturn:
		return "return;"
	default:
		return v + ";"
	}
}

// Values returns the accepted renderings of the value, normalized like
// syntax.Tree.SignificantText. Equality comparisons accept swapped operands.
func (s Shape) Values(env Env) []string {
	v := env.Expand(s.Value)
	out := []string{syntax.NormalizeSnippet(v)}
	if l, r, ok := strings.Cut(v, " == "); ok {
		out = append(out, syntax.NormalizeSnippet(r+" == "+l))
	}
	return out
}

// BodyStep is one statement of the analysis callback.
type BodyStep struct {
	Name      string
	Missing   rules.ID
	Incorrect rules.ID
	Block     BlockRef
	Index     int
	Shape     Shape
}

var bodySteps = []BodyStep{
	{
		Name:      "IfStatement",
		Missing:   rules.IfStatementMissing,
		Incorrect: rules.IfStatementIncorrect,
		Block:     BlockBody,
		Index:     0,
		Shape: Shape{
			Kind:  ShapeLocal,
			Name:  "ifStatement",
			Type:  "IfStatementSyntax",
			Value: "(IfStatementSyntax){context}.Node",
		},
	},
	{
		Name:      "IfKeyword",
		Missing:   rules.IfKeywordMissing,
		Incorrect: rules.IfKeywordIncorrect,
		Block:     BlockBody,
		Index:     1,
		Shape:     Shape{Kind: ShapeLocal, Name: "ifKeyword", Type: "SyntaxToken", Value: "ifStatement.IfKeyword"},
	},
	{
		Name:      "TrailingTriviaCheck",
		Missing:   rules.TrailingTriviaCheckMissing,
		Incorrect: rules.TrailingTriviaCheckIncorrect,
		Block:     BlockBody,
		Index:     2,
		Shape:     Shape{Kind: ShapeIf, Value: "ifKeyword.HasTrailingTrivia"},
	},
	{
		Name:      "TrailingTriviaVar",
		Missing:   rules.TrailingTriviaVarMissing,
		Incorrect: rules.TrailingTriviaVarIncorrect,
		Block:     BlockGuard,
		Index:     0,
		Shape: Shape{
			Kind:  ShapeLocal,
			Name:  "trailingTrivia",
			Type:  "SyntaxTrivia",
			Value: "ifKeyword.TrailingTrivia.Last()",
		},
	},
	{
		Name:      "TrailingTriviaKindCheck",
		Missing:   rules.TrailingTriviaKindCheckMissing,
		Incorrect: rules.TrailingTriviaKindCheckIncorrect,
		Block:     BlockGuard,
		Index:     1,
		Shape:     Shape{Kind: ShapeIf, Value: "trailingTrivia.Kind() == SyntaxKind.WhitespaceTrivia"},
	},
	{
		Name:      "WhitespaceCheck",
		Missing:   rules.WhitespaceCheckMissing,
		Incorrect: rules.WhitespaceCheckIncorrect,
		Block:     BlockKindCheck,
		Index:     0,
		Shape:     Shape{Kind: ShapeIf, Value: `trailingTrivia.ToString() == " "`},
	},
	{
		Name:      "ReturnStatement",
		Missing:   rules.ReturnStatementMissing,
		Incorrect: rules.ReturnStatementIncorrect,
		Block:     BlockWhitespaceCheck,
		Index:     0,
		Shape:     Shape{Kind: ShapeReturn},
	},
	{
		Name:      "OpenParen",
		Missing:   rules.OpenParenMissing,
		Incorrect: rules.OpenParenIncorrect,
		Block:     BlockBody,
		Index:     3,
		Shape: Shape{
			Kind:  ShapeLocal,
			Name:  "openParen",
			Type:  "SyntaxToken",
			Value: "ifStatement.OpenParenToken",
		},
	},
	{
		Name:      "StartSpan",
		Missing:   rules.StartSpanMissing,
		Incorrect: rules.StartSpanIncorrect,
		Block:     BlockBody,
		Index:     4,
		Shape:     Shape{Kind: ShapeLocal, Name: "startDiagnosticSpan", Type: "int", Value: "ifKeyword.Span.Start"},
	},
	{
		Name:      "EndSpan",
		Missing:   rules.EndSpanMissing,
		Incorrect: rules.EndSpanIncorrect,
		Block:     BlockBody,
		Index:     5,
		Shape:     Shape{Kind: ShapeLocal, Name: "endDiagnosticSpan", Type: "int", Value: "openParen.Span.Start"},
	},
	{
		Name:      "Span",
		Missing:   rules.SpanMissing,
		Incorrect: rules.SpanIncorrect,
		Block:     BlockBody,
		Index:     6,
		Shape: Shape{
			Kind:  ShapeLocal,
			Name:  "diagnosticSpan",
			Type:  "TextSpan",
			Value: "TextSpan.FromBounds(startDiagnosticSpan, endDiagnosticSpan)",
		},
	},
	{
		Name:      "Location",
		Missing:   rules.LocationMissing,
		Incorrect: rules.LocationIncorrect,
		Block:     BlockBody,
		Index:     7,
		Shape: Shape{
			Kind:  ShapeLocal,
			Name:  "diagnosticLocation",
			Type:  "Location",
			Value: "Location.Create(ifStatement.SyntaxTree, diagnosticSpan)",
		},
	},
	{
		Name:      "Diagnostic",
		Missing:   rules.DiagnosticMissing,
		Incorrect: rules.DiagnosticIncorrect,
		Block:     BlockBody,
		Index:     8,
		Shape: Shape{
			Kind:  ShapeLocal,
			Name:  "diagnostic",
			Type:  "Diagnostic",
			Value: "Diagnostic.Create({rule}, diagnosticLocation, {rule}.MessageFormat)",
		},
	},
	{
		Name:      "DiagnosticReport",
		Missing:   rules.DiagnosticReportMissing,
		Incorrect: rules.DiagnosticReportIncorrect,
		Block:     BlockBody,
		Index:     9,
		Shape:     Shape{Kind: ShapeExpression, Value: "{context}.ReportDiagnostic(diagnostic)"},
	},
}

// blockSizes is the number of statements each verified block holds.
var blockSizes = map[BlockRef]int{
	BlockBody:            10,
	BlockGuard:           2,
	BlockKindCheck:       1,
	BlockWhitespaceCheck: 1,
}

// BodySteps returns the callback body steps in tutorial order.
func BodySteps() []BodyStep {
	return append([]BodyStep(nil), bodySteps...)
}

// BodyStepFor returns the body step reporting id.
func BodyStepFor(id rules.ID) (BodyStep, bool) {
	for _, s := range bodySteps {
		if s.Missing == id || s.Incorrect == id {
			return s, true
		}
	}
	return BodyStep{}, false
}

func (s BodyStep) step() Step {
	return Step{
		Name:  s.Name,
		Rules: []rules.ID{s.Missing, s.Incorrect},
		Check: s.check,
	}
}

func (s BodyStep) check(m *locate.Model) []Finding {
	block := ResolveBlock(m, s.Block)
	if block == syntax.NoNode {
		return nil
	}
	stmts := locate.Statements(m.Tree, block)
	site := Site{Block: block, Index: s.Index}
	if s.Index >= len(stmts) {
		f := absent(s.Missing, absentAnchor(m, block, stmts, s.Index), block, "no statement at position "+fmt.Sprint(s.Index+1))
		f.Step, f.Site = s.Name, site
		return one(f)
	}
	stmt := stmts[s.Index]
	if detail := s.Shape.mismatch(m.Tree, stmt, EnvOf(m)); detail != "" {
		f := malformed(s.Incorrect, span(m, stmt), stmt, detail)
		f.Step, f.Site = s.Name, site
		return one(f)
	}
	return nil
}

// absentAnchor is the previous statement, the enclosing if header for the
// first statement of a nested block, or the callback name.
func absentAnchor(m *locate.Model, block syntax.NodeID, stmts []syntax.NodeID, index int) text.Span {
	if index > 0 && index-1 < len(stmts) {
		return span(m, stmts[index-1])
	}
	if index > 0 && len(stmts) > 0 {
		return span(m, stmts[len(stmts)-1])
	}
	if block == m.CallbackBody {
		return nameAnchor(m, m.Callback)
	}
	parent := m.Tree.NodeByID(block).Parent
	if m.Tree.Kind(parent) == syntax.KindIfStatement {
		return IfHeaderSpan(m.Tree, parent)
	}
	return span(m, block)
}

// ResolveBlock returns the block ref addresses. Nested blocks are only
// resolvable once the steps that open them are Correct.
func ResolveBlock(m *locate.Model, ref BlockRef) syntax.NodeID {
	var parent BlockRef
	var index int
	switch ref {
	case BlockBody:
		return m.CallbackBody
	case BlockGuard:
		parent, index = BlockBody, 2
	case BlockKindCheck:
		parent, index = BlockGuard, 1
	case BlockWhitespaceCheck:
		parent, index = BlockKindCheck, 0
	default:
		return syntax.NoNode
	}
	stmts := locate.Statements(m.Tree, ResolveBlock(m, parent))
	if index >= len(stmts) {
		return syntax.NoNode
	}
	_, body, _ := IfParts(m.Tree, stmts[index])
	if m.Tree.Kind(body) != syntax.KindBlock {
		return syntax.NoNode
	}
	return body
}

// IfParts returns the condition, the embedded statement and the else
// statement of an if statement.
func IfParts(tree *syntax.Tree, stmt syntax.NodeID) (cond, body, alt syntax.NodeID) {
	if tree.Kind(stmt) != syntax.KindIfStatement {
		return syntax.NoNode, syntax.NoNode, syntax.NoNode
	}
	var parts []syntax.NodeID
	for _, c := range tree.ChildNodeIDs(stmt) {
		n := tree.NodeByID(c)
		if n.Kind == syntax.KindError || (n.Flags.Has(syntax.NodeFlagMissing) && !n.Flags.Has(syntax.NodeFlagNamed)) {
			continue
		}
		parts = append(parts, c)
	}
	for i, p := range parts {
		switch i {
		case 0:
			cond = p
		case 1:
			body = p
		case 2:
			alt = p
		}
	}
	return cond, body, alt
}

// IfHeaderSpan covers `if (condition)`.
func IfHeaderSpan(tree *syntax.Tree, stmt syntax.NodeID) text.Span {
	n := tree.NodeByID(stmt)
	if n == nil {
		return text.Span{}
	}
	sp := text.Span{Start: n.Span.Start, End: n.Span.End}
	if i, ok := tree.DirectToken(stmt, lexer.TokenRParen); ok {
		sp.End = tree.Tokens[i].Span.End
		return sp
	}
	cond, body, _ := IfParts(tree, stmt)
	if cond == syntax.NoNode {
		return sp
	}
	sp.End = tree.NodeByID(cond).Span.End
	// Junk the parser skipped between the condition and the body.
	for _, c := range tree.ChildNodeIDs(stmt) {
		n := tree.NodeByID(c)
		if n.Kind != syntax.KindError || n.Span.End <= sp.End {
			continue
		}
		if body != syntax.NoNode && n.Span.Start >= tree.NodeByID(body).Span.Start {
			continue
		}
		sp.End = n.Span.End
	}
	return sp
}

// HasIfHeader reports whether stmt has both parentheses around its
// condition and nothing the parser had to skip or insert between them.
func HasIfHeader(tree *syntax.Tree, stmt syntax.NodeID) bool {
	if _, ok := tree.DirectToken(stmt, lexer.TokenLParen); !ok {
		return false
	}
	if _, ok := tree.DirectToken(stmt, lexer.TokenRParen); !ok {
		return false
	}
	for _, c := range tree.ChildNodeIDs(stmt) {
		n := tree.NodeByID(c)
		if n.Kind == syntax.KindError || (n.Flags.Has(syntax.NodeFlagMissing) && !n.Flags.Has(syntax.NodeFlagNamed)) {
			return false
		}
	}
	return true
}

// Matches reports whether stmt has the expected shape.
func (s Shape) Matches(tree *syntax.Tree, stmt syntax.NodeID, env Env) bool {
	return s.mismatch(tree, stmt, env) == ""
}

func (s Shape) mismatch(tree *syntax.Tree, stmt syntax.NodeID, env Env) string {
	switch s.Kind {
	case ShapeLocal:
		return s.localMismatch(tree, stmt, env)
	case ShapeIf:
		return s.ifMismatch(tree, stmt, env)
	case ShapeReturn:
		if tree.Kind(stmt) != syntax.KindReturnStatement {
			return "expected a return statement"
		}
		if tree.SignificantText(stmt) != "return;" {
			return "the return statement should not return a value"
		}
		return ""
	default:
		if tree.Kind(stmt) != syntax.KindExpressionStatement {
			return "expected an expression statement"
		}
		if got, want := tree.SignificantText(stmt), syntax.NormalizeSnippet(s.Canonical(env)); got != want {
			return fmt.Sprintf("expected %s", s.Canonical(env))
		}
		return ""
	}
}

func (s Shape) localMismatch(tree *syntax.Tree, stmt syntax.NodeID, env Env) string {
	if tree.Kind(stmt) != syntax.KindLocalDeclarationStatement || (tree.HasErrors(stmt) && !hasSemicolon(tree, stmt)) {
		return "expected a local variable declaration of " + s.Name
	}
	if len(tree.Modifiers(stmt)) > 0 {
		return "the declaration of " + s.Name + " should not have modifiers"
	}
	decls := locate.Declarators(tree, stmt)
	if len(decls) != 1 {
		return "expected a single variable named " + s.Name
	}
	if got := tree.DeclarationNameText(decls[0]); got != s.Name {
		return fmt.Sprintf("the variable should be named %s, found %q", s.Name, got)
	}
	if got := tree.SignificantText(tree.DeclarationType(stmt)); got != "var" && got != s.Type {
		return fmt.Sprintf("the variable should be declared as var or %s, found %q", s.Type, got)
	}
	init := locate.Initializer(tree, decls[0])
	if init == syntax.NoNode || tree.IsMissing(init) {
		return s.Name + " should be initialized with " + env.Expand(s.Value)
	}
	if !matchesAny(tree.SignificantText(init), s.Values(env)) {
		return fmt.Sprintf("%s should be initialized with %s, found %q", s.Name, env.Expand(s.Value), tree.SignificantText(init))
	}
	return ""
}

func (s Shape) ifMismatch(tree *syntax.Tree, stmt syntax.NodeID, env Env) string {
	if tree.Kind(stmt) != syntax.KindIfStatement {
		return "expected " + s.Canonical(env)
	}
	cond, body, _ := IfParts(tree, stmt)
	if cond == syntax.NoNode || tree.IsMissing(cond) {
		return "the if statement has no condition"
	}
	if !matchesAny(tree.SignificantText(cond), s.Values(env)) {
		return fmt.Sprintf("the condition should be %s, found %q", env.Expand(s.Value), tree.SignificantText(cond))
	}
	if !HasIfHeader(tree, stmt) {
		return "the condition should be enclosed in parentheses: " + s.Canonical(env)
	}
	if tree.Kind(body) != syntax.KindBlock || tree.IsMissing(body) {
		return "the if statement should have a block body"
	}
	return ""
}

func matchesAny(got string, accepted []string) bool {
	for _, a := range accepted {
		if got == a {
			return true
		}
	}
	return false
}

func hasSemicolon(tree *syntax.Tree, stmt syntax.NodeID) bool {
	_, ok := tree.DirectToken(stmt, lexer.TokenSemi)
	return ok
}

// checkExtraStatements reports the first statement, in source order, beyond
// the ones the tutorial expects in any verified block.
func checkExtraStatements(m *locate.Model) []Finding {
	var first syntax.NodeID
	var site Site
	for _, ref := range []BlockRef{BlockBody, BlockGuard, BlockKindCheck, BlockWhitespaceCheck} {
		block := ResolveBlock(m, ref)
		stmts := locate.Statements(m.Tree, block)
		if len(stmts) <= blockSizes[ref] {
			continue
		}
		extra := stmts[blockSizes[ref]]
		if first == syntax.NoNode || span(m, extra).Start < span(m, first).Start {
			first = extra
			site = Site{Block: block, Index: blockSizes[ref]}
		}
	}
	if first == syntax.NoNode {
		return nil
	}
	f := malformed(rules.TooManyStatements, span(m, first), first, "statement is not part of the tutorial", m.Tree.NodeText(first))
	f.Site = site
	return one(f)
}
