// Package locate finds the declarations of a tutorial analyzer by name and
// shape. Every slot of the resulting Model is optional.
package locate

import (
	"errors"
	"strings"

	"github.com/kpumuk/metacheck/internal/lexer"
	"github.com/kpumuk/metacheck/internal/syntax"
)

// ErrNoAnalyzerClass reports a source without any class declaration.
var ErrNoAnalyzerClass = errors.New("no analyzer class found")

// Well-known names of the tutorial.
const (
	InitializeName           = "Initialize"
	SupportedDiagnosticsName = "SupportedDiagnostics"
	RegisterSyntaxNodeAction = "RegisterSyntaxNodeAction"
	DefaultCallbackName      = "AnalyzeIfStatement"
	DefaultContextName       = "context"
	DefaultRuleName          = "Rule"
	DefaultIDName            = "spacingRuleId"
	DefaultIDValue           = `"IfSpacing"`
)

// Model holds the located tutorial declarations. A zero NodeID marks a slot
// that was not found.
type Model struct {
	Tree *syntax.Tree

	Class      syntax.NodeID
	ClassIdent syntax.NodeID
	ClassName  string
	Members    syntax.NodeID // declaration_list of Class

	IDField      syntax.NodeID
	IDDeclarator syntax.NodeID

	Descriptor           syntax.NodeID
	DescriptorDeclarator syntax.NodeID

	SupportedDiagnostics syntax.NodeID

	Initialize     syntax.NodeID
	InitBody       syntax.NodeID
	InitStatements []syntax.NodeID
	Registrations  []Registration

	Callback     syntax.NodeID
	CallbackName string
	CallbackBody syntax.NodeID
}

// Registration is an `X.Register*Action(...)` statement inside Initialize.
type Registration struct {
	Statement  syntax.NodeID
	Invocation syntax.NodeID
	Callee     syntax.NodeID // member access naming the method
	Receiver   string
	Method     string
	Args       []syntax.NodeID
}

// Locate builds the model for tree. It fails only when the source declares
// no class at all.
func Locate(tree *syntax.Tree) (*Model, error) {
	if tree == nil {
		return nil, errors.New("nil syntax tree")
	}
	m := &Model{Tree: tree}
	m.Class = findAnalyzerClass(tree)
	if m.Class == syntax.NoNode {
		return nil, ErrNoAnalyzerClass
	}
	m.ClassIdent = tree.DeclarationName(m.Class)
	m.ClassName = tree.NodeText(m.ClassIdent)
	m.Members = tree.FirstChildOfKind(m.Class, syntax.KindDeclarationList)

	m.IDField, m.IDDeclarator = findIDField(tree, m.Members)
	m.Descriptor, m.DescriptorDeclarator = findDescriptor(tree, m.Members)
	m.SupportedDiagnostics = findMember(tree, m.Members, syntax.KindPropertyDeclaration, SupportedDiagnosticsName)

	m.Initialize = findMember(tree, m.Members, syntax.KindMethodDeclaration, InitializeName)
	if m.Initialize != syntax.NoNode {
		m.InitBody = tree.FirstChildOfKind(m.Initialize, syntax.KindBlock)
		m.InitStatements = Statements(tree, m.InitBody)
		for _, stmt := range m.InitStatements {
			if reg, ok := asRegistration(tree, stmt); ok {
				m.Registrations = append(m.Registrations, reg)
			}
		}
	}

	if reg, ok := m.KeptRegistration(); ok && len(reg.Args) > 0 {
		m.CallbackName = MethodGroupName(tree, ArgumentExpr(tree, reg.Args[0]))
		if m.CallbackName != "" {
			m.Callback = findMember(tree, m.Members, syntax.KindMethodDeclaration, m.CallbackName)
			m.CallbackBody = tree.FirstChildOfKind(m.Callback, syntax.KindBlock)
		}
	}
	return m, nil
}

// InitParamName returns the name of the first Initialize parameter.
func (m *Model) InitParamName() string {
	return firstParameterName(m.Tree, m.Initialize)
}

// CallbackParamName returns the name of the callback's first parameter or
// the tutorial default.
func (m *Model) CallbackParamName() string {
	if name := firstParameterName(m.Tree, m.Callback); name != "" {
		return name
	}
	return DefaultContextName
}

// IDName returns the declared id constant name or the tutorial default.
func (m *Model) IDName() string {
	if name := m.Tree.DeclarationNameText(m.IDDeclarator); name != "" {
		return name
	}
	return DefaultIDName
}

// RuleName returns the declared descriptor field name or the tutorial default.
func (m *Model) RuleName() string {
	if name := m.Tree.DeclarationNameText(m.DescriptorDeclarator); name != "" {
		return name
	}
	return DefaultRuleName
}

// IsValidRegistration reports whether reg is
// `context.RegisterSyntaxNodeAction(Method, SyntaxKind.IfStatement)` with
// context being the Initialize parameter.
func (m *Model) IsValidRegistration(reg Registration) bool {
	if reg.Method != RegisterSyntaxNodeAction || reg.Receiver != m.InitParamName() {
		return false
	}
	return ValidRegistrationArgs(m.Tree, reg.Args)
}

// KeptRegistration returns the registration that survives a TooManyInitStatements
// fix: the first structurally valid one, else the first in source order.
func (m *Model) KeptRegistration() (Registration, bool) {
	if len(m.Registrations) == 0 {
		return Registration{}, false
	}
	for _, reg := range m.Registrations {
		if m.IsValidRegistration(reg) {
			return reg, true
		}
	}
	return m.Registrations[0], true
}

// ValidRegistrationArgs reports whether args are a method group followed by
// SyntaxKind.IfStatement.
func ValidRegistrationArgs(tree *syntax.Tree, args []syntax.NodeID) bool {
	if len(args) != 2 {
		return false
	}
	if MethodGroupName(tree, ArgumentExpr(tree, args[0])) == "" {
		return false
	}
	return tree.SignificantText(ArgumentExpr(tree, args[1])) == "SyntaxKind.IfStatement"
}

func findAnalyzerClass(tree *syntax.Tree) syntax.NodeID {
	classes := tree.FindAll(tree.Root, syntax.KindClassDeclaration)
	for _, c := range classes {
		if derivesFromAnalyzer(tree, c) || hasAnalyzerAttribute(tree, c) {
			return c
		}
	}
	if len(classes) > 0 {
		return classes[0]
	}
	return syntax.NoNode
}

func derivesFromAnalyzer(tree *syntax.Tree, class syntax.NodeID) bool {
	base := tree.FirstChildOfKind(class, syntax.KindBaseList)
	for _, typ := range tree.PresentChildNodeIDs(base) {
		if lastSegment(tree.SignificantText(typ)) == "DiagnosticAnalyzer" {
			return true
		}
	}
	return false
}

func hasAnalyzerAttribute(tree *syntax.Tree, class syntax.NodeID) bool {
	for _, list := range tree.ChildrenOfKind(class, syntax.KindAttributeList) {
		for _, attr := range tree.ChildrenOfKind(list, syntax.KindAttribute) {
			children := tree.ChildNodeIDs(attr)
			if len(children) == 0 {
				continue
			}
			switch lastSegment(tree.SignificantText(children[0])) {
			case "DiagnosticAnalyzer", "DiagnosticAnalyzerAttribute":
				return true
			}
		}
	}
	return false
}

func lastSegment(name string) string {
	if i := strings.LastIndexAny(name, ".:"); i >= 0 {
		return name[i+1:]
	}
	return name
}

// findIDField returns the first `public const string` field.
func findIDField(tree *syntax.Tree, members syntax.NodeID) (syntax.NodeID, syntax.NodeID) {
	for _, f := range tree.ChildrenOfKind(members, syntax.KindFieldDeclaration) {
		if !tree.HasModifier(f, "public") || !tree.HasModifier(f, "const") {
			continue
		}
		if tree.SignificantText(tree.DeclarationType(f)) != "string" {
			continue
		}
		if d := firstDeclarator(tree, f); d != syntax.NoNode {
			return f, d
		}
	}
	return syntax.NoNode, syntax.NoNode
}

func findDescriptor(tree *syntax.Tree, members syntax.NodeID) (syntax.NodeID, syntax.NodeID) {
	for _, f := range tree.ChildrenOfKind(members, syntax.KindFieldDeclaration) {
		if lastSegment(tree.SignificantText(tree.DeclarationType(f))) != "DiagnosticDescriptor" {
			continue
		}
		if d := firstDeclarator(tree, f); d != syntax.NoNode {
			return f, d
		}
	}
	return syntax.NoNode, syntax.NoNode
}

func firstDeclarator(tree *syntax.Tree, field syntax.NodeID) syntax.NodeID {
	decl := tree.FirstChildOfKind(field, syntax.KindVariableDeclaration)
	d := tree.FirstChildOfKind(decl, syntax.KindVariableDeclarator)
	if tree.DeclarationName(d) == syntax.NoNode {
		return syntax.NoNode
	}
	return d
}

// findMember returns the first member of kind whose name matches exactly.
func findMember(tree *syntax.Tree, members syntax.NodeID, kind syntax.NodeKind, name string) syntax.NodeID {
	for _, c := range tree.ChildrenOfKind(members, kind) {
		if tree.DeclarationNameText(c) == name {
			return c
		}
	}
	return syntax.NoNode
}

func firstParameterName(tree *syntax.Tree, method syntax.NodeID) string {
	params := Parameters(tree, method)
	if len(params) == 0 {
		return ""
	}
	return tree.DeclarationNameText(params[0])
}

func asRegistration(tree *syntax.Tree, stmt syntax.NodeID) (Registration, bool) {
	if tree.Kind(stmt) != syntax.KindExpressionStatement {
		return Registration{}, false
	}
	children := tree.PresentChildNodeIDs(stmt)
	if len(children) != 1 || tree.Kind(children[0]) != syntax.KindInvocationExpression {
		return Registration{}, false
	}
	inv := children[0]
	parts := tree.ChildNodeIDs(inv)
	if len(parts) < 2 || tree.Kind(parts[0]) != syntax.KindMemberAccessExpression {
		return Registration{}, false
	}
	callee := parts[0]
	access := tree.ChildNodeIDs(callee)
	if len(access) != 2 {
		return Registration{}, false
	}
	method := tree.NodeText(access[1])
	if !strings.HasPrefix(method, "Register") || !strings.HasSuffix(method, "Action") {
		return Registration{}, false
	}
	return Registration{
		Statement:  stmt,
		Invocation: inv,
		Callee:     callee,
		Receiver:   tree.SignificantText(access[0]),
		Method:     method,
		Args:       Arguments(tree, tree.FirstChildOfKind(inv, syntax.KindArgumentList)),
	}, true
}

// MethodGroupName returns the method named by expr when it is a plain
// identifier or a `this.`-qualified one.
func MethodGroupName(tree *syntax.Tree, expr syntax.NodeID) string {
	switch tree.Kind(expr) {
	case syntax.KindIdentifier:
		if tree.IsMissing(expr) {
			return ""
		}
		return tree.NodeText(expr)
	case syntax.KindMemberAccessExpression:
		parts := tree.ChildNodeIDs(expr)
		if len(parts) == 2 && tree.Kind(parts[0]) == syntax.KindThisExpression && tree.Kind(parts[1]) == syntax.KindIdentifier {
			return tree.NodeText(parts[1])
		}
	}
	return ""
}

// Statements returns the statements of block in source order. Comments are
// trivia and never statements; recovered junk is kept as an ERROR node so it
// occupies a position.
func Statements(tree *syntax.Tree, block syntax.NodeID) []syntax.NodeID {
	if tree.Kind(block) != syntax.KindBlock {
		return nil
	}
	var out []syntax.NodeID
	for _, c := range tree.ChildNodeIDs(block) {
		if tree.IsMissing(c) {
			continue
		}
		if k := tree.Kind(c); k.IsStatement() || k == syntax.KindError {
			out = append(out, c)
		}
	}
	return out
}

// Parameters returns the parameters declared by a method.
func Parameters(tree *syntax.Tree, method syntax.NodeID) []syntax.NodeID {
	list := tree.FirstChildOfKind(method, syntax.KindParameterList)
	return tree.ChildrenOfKind(list, syntax.KindParameter)
}

// Arguments returns the arguments of an argument list, missing ones included.
func Arguments(tree *syntax.Tree, list syntax.NodeID) []syntax.NodeID {
	var out []syntax.NodeID
	for _, c := range tree.ChildNodeIDs(list) {
		if tree.Kind(c) == syntax.KindArgument {
			out = append(out, c)
		}
	}
	return out
}

// ArgumentExpr returns the expression of an argument, skipping a name colon.
func ArgumentExpr(tree *syntax.Tree, arg syntax.NodeID) syntax.NodeID {
	for _, c := range tree.ChildNodeIDs(arg) {
		if tree.Kind(c) != syntax.KindNameColon {
			return c
		}
	}
	return syntax.NoNode
}

// ArgumentName returns the `name:` label of an argument or "".
func ArgumentName(tree *syntax.Tree, arg syntax.NodeID) string {
	nc := tree.FirstChildOfKind(arg, syntax.KindNameColon)
	return tree.NodeText(tree.FirstChildOfKind(nc, syntax.KindIdentifier))
}

// Initializer returns the initializer expression of a variable declarator.
func Initializer(tree *syntax.Tree, declarator syntax.NodeID) syntax.NodeID {
	if _, ok := tree.DirectToken(declarator, lexer.TokenEqual); !ok {
		return syntax.NoNode
	}
	children := tree.ChildNodeIDs(declarator)
	if len(children) < 2 {
		return syntax.NoNode
	}
	return children[len(children)-1]
}

// Declarators returns the declarators of a field or local declaration.
func Declarators(tree *syntax.Tree, decl syntax.NodeID) []syntax.NodeID {
	vd := tree.FirstChildOfKind(decl, syntax.KindVariableDeclaration)
	return tree.ChildrenOfKind(vd, syntax.KindVariableDeclarator)
}
