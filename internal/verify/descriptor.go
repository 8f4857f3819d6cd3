package verify

import (
	"github.com/kpumuk/metacheck/internal/lexer"
	"github.com/kpumuk/metacheck/internal/locate"
	"github.com/kpumuk/metacheck/internal/rules"
	"github.com/kpumuk/metacheck/internal/syntax"
)

// DescriptorParam locates one DiagnosticDescriptor constructor argument,
// by name first and by position otherwise.
type DescriptorParam struct {
	Name     string
	Position int
}

// DiagnosticDescriptor constructor parameters the tutorial checks.
var (
	DescriptorID       = DescriptorParam{Name: "id", Position: 0}
	DescriptorSeverity = DescriptorParam{Name: "defaultSeverity", Position: 4}
	DescriptorEnabled  = DescriptorParam{Name: "isEnabledByDefault", Position: 5}
)

// DescriptorArgCount is the number of arguments the descriptor is built with.
const DescriptorArgCount = 6

var severities = map[string]bool{
	"DiagnosticSeverity.Error":   true,
	"DiagnosticSeverity.Warning": true,
	"DiagnosticSeverity.Info":    true,
	"DiagnosticSeverity.Hidden":  true,
}

func descriptorChain() Chain {
	return Chain{ID: rules.ChainDescriptor, Steps: []Step{
		{Name: "id", Rules: []rules.ID{rules.MissingId}, Check: checkIDExists},
		{Name: "id-declaration", Rules: []rules.ID{rules.IncorrectIdDeclaration}, Check: checkIDDeclaration},
		{Name: "rule", Rules: []rules.ID{rules.MissingRule}, Check: checkRuleExists},
		{Name: "rule-modifiers", Rules: []rules.ID{rules.InternalAndStaticError}, Check: checkRuleModifiers},
		{Name: "rule-initializer", Rules: []rules.ID{rules.IncorrectRuleInit}, Check: checkRuleInitializer},
		{Name: "rule-id", Rules: []rules.ID{rules.IdDeclTypeError}, Check: checkRuleID},
		{Name: "rule-severity", Rules: []rules.ID{rules.DefaultSeverityError}, Check: checkRuleSeverity},
		{Name: "rule-enabled", Rules: []rules.ID{rules.EnabledByDefaultError}, Check: checkRuleEnabled},
		{Name: "supported-diagnostics", Rules: []rules.ID{rules.MissingSuppDiag}, Check: checkSupportedExists},
		{Name: "supported-signature", Rules: []rules.ID{rules.IncorrectSigSuppDiag}, Check: checkSupportedSignature},
		{Name: "accessor", Rules: []rules.ID{rules.MissingAccessor}, Check: checkAccessorExists},
		{Name: "accessor-count", Rules: []rules.ID{rules.TooManyAccessors}, Check: checkAccessorCount},
		{Name: "accessor-return", Rules: []rules.ID{rules.IncorrectAccessorReturn}, Check: checkAccessorReturn},
		{Name: "supported-rules", Rules: []rules.ID{rules.SupportedRules}, Check: checkSupportedRules},
	}}
}

func checkIDExists(m *locate.Model) []Finding {
	if m.IDField != syntax.NoNode {
		return nil
	}
	return one(absent(rules.MissingId, classAnchor(m), m.Class, "no public const string field", m.ClassName))
}

func checkIDDeclaration(m *locate.Model) []Finding {
	tree := m.Tree
	decls := locate.Declarators(tree, m.IDField)
	if len(decls) == 1 && isStringLiteral(tree, locate.Initializer(tree, decls[0])) {
		return nil
	}
	return one(malformed(rules.IncorrectIdDeclaration, nameAnchor(m, m.IDDeclarator), m.IDField,
		"the id constant should be a single string literal", m.IDName()))
}

func isStringLiteral(tree *syntax.Tree, expr syntax.NodeID) bool {
	if tree.IsMissing(expr) {
		return false
	}
	switch tree.Kind(expr) {
	case syntax.KindStringLiteral, syntax.KindVerbatimStringLiteral, syntax.KindRawStringLiteral:
		return true
	default:
		return false
	}
}

func checkRuleExists(m *locate.Model) []Finding {
	if m.Descriptor != syntax.NoNode {
		return nil
	}
	return one(absent(rules.MissingRule, classAnchor(m), m.Class, "no DiagnosticDescriptor field", m.ClassName))
}

func checkRuleModifiers(m *locate.Model) []Finding {
	if sameSet(m.Tree.Modifiers(m.Descriptor), []string{"internal", "static"}) {
		return nil
	}
	return one(malformed(rules.InternalAndStaticError, nameAnchor(m, m.DescriptorDeclarator), m.Descriptor,
		"modifiers should be internal static", m.RuleName()))
}

// DescriptorCreation returns the `new DiagnosticDescriptor(...)` initializer
// of the descriptor field, or NoNode when it has another shape.
func DescriptorCreation(m *locate.Model) syntax.NodeID {
	tree := m.Tree
	init := locate.Initializer(tree, m.DescriptorDeclarator)
	if tree.Kind(init) != syntax.KindObjectCreationExpression {
		return syntax.NoNode
	}
	children := tree.ChildNodeIDs(init)
	if len(children) == 0 || lastTypeSegment(tree.SignificantText(children[0])) != "DiagnosticDescriptor" {
		return syntax.NoNode
	}
	return init
}

func lastTypeSegment(name string) string {
	for i := len(name) - 1; i >= 0; i-- {
		if name[i] == '.' || name[i] == ':' {
			return name[i+1:]
		}
	}
	return name
}

// DescriptorArgs returns the constructor arguments of the descriptor.
func DescriptorArgs(m *locate.Model) []syntax.NodeID {
	creation := DescriptorCreation(m)
	return locate.Arguments(m.Tree, m.Tree.FirstChildOfKind(creation, syntax.KindArgumentList))
}

// DescriptorArg returns the argument bound to p.
func DescriptorArg(m *locate.Model, p DescriptorParam) syntax.NodeID {
	args := DescriptorArgs(m)
	for _, a := range args {
		if locate.ArgumentName(m.Tree, a) == p.Name {
			return a
		}
	}
	if p.Position < len(args) && locate.ArgumentName(m.Tree, args[p.Position]) == "" {
		return args[p.Position]
	}
	return syntax.NoNode
}

func checkRuleInitializer(m *locate.Model) []Finding {
	init := locate.Initializer(m.Tree, m.DescriptorDeclarator)
	anchor := span(m, init)
	if init == syntax.NoNode {
		anchor = nameAnchor(m, m.DescriptorDeclarator)
	}
	if DescriptorCreation(m) == syntax.NoNode {
		return one(malformed(rules.IncorrectRuleInit, anchor, m.Descriptor, "expected new DiagnosticDescriptor(...)"))
	}
	args := DescriptorArgs(m)
	if len(args) != DescriptorArgCount {
		return one(malformed(rules.IncorrectRuleInit, anchor, m.Descriptor, "DiagnosticDescriptor takes six arguments"))
	}
	for _, a := range args {
		if m.Tree.IsMissing(a) || m.Tree.IsMissing(locate.ArgumentExpr(m.Tree, a)) {
			return one(malformed(rules.IncorrectRuleInit, anchor, m.Descriptor, "an argument is missing"))
		}
	}
	for _, p := range []DescriptorParam{DescriptorID, DescriptorSeverity, DescriptorEnabled} {
		if DescriptorArg(m, p) == syntax.NoNode {
			return one(malformed(rules.IncorrectRuleInit, anchor, m.Descriptor, "no argument for "+p.Name))
		}
	}
	return nil
}

func checkDescriptorArg(m *locate.Model, id rules.ID, p DescriptorParam, ok func(string) bool, detail string, args ...string) []Finding {
	arg := DescriptorArg(m, p)
	if ok(m.Tree.SignificantText(locate.ArgumentExpr(m.Tree, arg))) {
		return nil
	}
	return one(malformed(id, span(m, arg), arg, detail, args...))
}

func checkRuleID(m *locate.Model) []Finding {
	name := m.IDName()
	return checkDescriptorArg(m, rules.IdDeclTypeError, DescriptorID,
		func(s string) bool { return s == name },
		"id should be "+name, name)
}

func checkRuleSeverity(m *locate.Model) []Finding {
	return checkDescriptorArg(m, rules.DefaultSeverityError, DescriptorSeverity,
		func(s string) bool { return severities[s] },
		"defaultSeverity should be a DiagnosticSeverity member")
}

func checkRuleEnabled(m *locate.Model) []Finding {
	return checkDescriptorArg(m, rules.EnabledByDefaultError, DescriptorEnabled,
		func(s string) bool { return s == "true" },
		"isEnabledByDefault should be true")
}

func checkSupportedExists(m *locate.Model) []Finding {
	if m.SupportedDiagnostics != syntax.NoNode {
		return nil
	}
	return one(absent(rules.MissingSuppDiag, classAnchor(m), m.Class, "no SupportedDiagnostics property", m.ClassName))
}

func checkSupportedSignature(m *locate.Model) []Finding {
	detail := SupportedDiagnosticsSignature.mismatch(m.Tree, m.SupportedDiagnostics)
	if detail == "" {
		return nil
	}
	return one(malformed(rules.IncorrectSigSuppDiag, nameAnchor(m, m.SupportedDiagnostics), m.SupportedDiagnostics, detail))
}

// Accessors returns the accessor declarations of a property.
func Accessors(tree *syntax.Tree, prop syntax.NodeID) []syntax.NodeID {
	list := tree.FirstChildOfKind(prop, syntax.KindAccessorList)
	return tree.ChildrenOfKind(list, syntax.KindAccessorDeclaration)
}

// AccessorKeyword returns `get`, `set`, `init`, `add` or `remove`.
func AccessorKeyword(tree *syntax.Tree, acc syntax.NodeID) string {
	for _, i := range tree.ChildTokens(acc) {
		if tok := tree.Tokens[i]; tok.Kind == lexer.TokenIdentifier {
			return tree.TokenText(i)
		}
	}
	return ""
}

// Getter returns the get accessor of a property, or the arrow clause of an
// expression-bodied property.
func Getter(tree *syntax.Tree, prop syntax.NodeID) syntax.NodeID {
	if arrow := tree.FirstChildOfKind(prop, syntax.KindArrowExpressionClause); arrow != syntax.NoNode {
		return arrow
	}
	for _, acc := range Accessors(tree, prop) {
		if AccessorKeyword(tree, acc) == "get" {
			return acc
		}
	}
	return syntax.NoNode
}

// GetterCreate returns the `ImmutableArray.Create(...)` invocation a getter
// returns, or NoNode when the getter does anything else.
func GetterCreate(tree *syntax.Tree, getter syntax.NodeID) syntax.NodeID {
	var expr syntax.NodeID
	switch tree.Kind(getter) {
	case syntax.KindArrowExpressionClause:
		expr = firstPresent(tree, getter)
	case syntax.KindAccessorDeclaration:
		if arrow := tree.FirstChildOfKind(getter, syntax.KindArrowExpressionClause); arrow != syntax.NoNode {
			expr = firstPresent(tree, arrow)
			break
		}
		stmts := locate.Statements(tree, tree.FirstChildOfKind(getter, syntax.KindBlock))
		if len(stmts) != 1 || tree.Kind(stmts[0]) != syntax.KindReturnStatement {
			return syntax.NoNode
		}
		expr = firstPresent(tree, stmts[0])
	}
	if tree.Kind(expr) != syntax.KindInvocationExpression {
		return syntax.NoNode
	}
	children := tree.ChildNodeIDs(expr)
	if len(children) == 0 || tree.SignificantText(children[0]) != "ImmutableArray.Create" {
		return syntax.NoNode
	}
	return expr
}

func firstPresent(tree *syntax.Tree, id syntax.NodeID) syntax.NodeID {
	children := tree.PresentChildNodeIDs(id)
	if len(children) == 0 {
		return syntax.NoNode
	}
	return children[0]
}

func checkAccessorExists(m *locate.Model) []Finding {
	if Getter(m.Tree, m.SupportedDiagnostics) != syntax.NoNode {
		return nil
	}
	return one(absent(rules.MissingAccessor, nameAnchor(m, m.SupportedDiagnostics), m.SupportedDiagnostics, "no get accessor"))
}

func checkAccessorCount(m *locate.Model) []Finding {
	accs := Accessors(m.Tree, m.SupportedDiagnostics)
	if len(accs) <= 1 {
		return nil
	}
	return one(malformed(rules.TooManyAccessors, nameAnchor(m, m.SupportedDiagnostics), m.SupportedDiagnostics,
		"only a get accessor is needed"))
}

func checkAccessorReturn(m *locate.Model) []Finding {
	getter := Getter(m.Tree, m.SupportedDiagnostics)
	if GetterCreate(m.Tree, getter) != syntax.NoNode {
		return nil
	}
	return one(malformed(rules.IncorrectAccessorReturn, span(m, getter), getter,
		"the getter should return ImmutableArray.Create(...)"))
}

func checkSupportedRules(m *locate.Model) []Finding {
	tree := m.Tree
	create := GetterCreate(tree, Getter(tree, m.SupportedDiagnostics))
	name := m.RuleName()
	for _, arg := range locate.Arguments(tree, tree.FirstChildOfKind(create, syntax.KindArgumentList)) {
		if tree.SignificantText(locate.ArgumentExpr(tree, arg)) == name {
			return nil
		}
	}
	return one(malformed(rules.SupportedRules, span(m, create), create, "the rule is not listed", name))
}
