package fix

import (
	"errors"
	"strings"

	"github.com/kpumuk/metacheck/internal/lexer"
	"github.com/kpumuk/metacheck/internal/locate"
	"github.com/kpumuk/metacheck/internal/syntax"
	"github.com/kpumuk/metacheck/internal/text"
	"github.com/kpumuk/metacheck/internal/verify"
)

const (
	defaultTitle    = `"If statement must have a space between 'if' and the boolean expression"`
	defaultMessage  = `"If statements must contain a space between the 'if' keyword and the boolean expression"`
	defaultCategory = `"Syntax"`
	defaultSeverity = "DiagnosticSeverity.Warning"
)

// descriptorParams lists every DiagnosticDescriptor argument with the value
// a fresh descriptor gets.
var descriptorParams = []struct {
	verify.DescriptorParam
	value func(m *locate.Model) string
}{
	{verify.DescriptorID, func(m *locate.Model) string { return m.IDName() }},
	{verify.DescriptorParam{Name: "title", Position: 1}, func(*locate.Model) string { return defaultTitle }},
	{verify.DescriptorParam{Name: "messageFormat", Position: 2}, func(*locate.Model) string { return defaultMessage }},
	{verify.DescriptorParam{Name: "category", Position: 3}, func(*locate.Model) string { return defaultCategory }},
	{verify.DescriptorSeverity, func(*locate.Model) string { return defaultSeverity }},
	{verify.DescriptorEnabled, func(*locate.Model) string { return "true" }},
}

func idFieldText(name, value string) string {
	return "public const string " + name + " = " + value + ";"
}

// descriptorCreation renders `new DiagnosticDescriptor(...)`, keeping the
// arguments the existing creation already supplies.
func (l layout) descriptorCreation(m *locate.Model) string {
	keep := verify.DescriptorCreation(m) != syntax.NoNode
	var b strings.Builder
	b.WriteString("new DiagnosticDescriptor(")
	for i, p := range descriptorParams {
		value := p.value(m)
		if keep {
			if arg := verify.DescriptorArg(m, p.DescriptorParam); arg != syntax.NoNode {
				if expr := locate.ArgumentExpr(l.tree, arg); expr != syntax.NoNode && !l.tree.IsMissing(expr) {
					value = l.tree.NodeText(expr)
				}
			}
		}
		b.WriteString("\n" + l.u + p.Name + ": " + value)
		if i < len(descriptorParams)-1 {
			b.WriteByte(',')
		}
	}
	b.WriteByte(')')
	return b.String()
}

func (l layout) descriptorText(m *locate.Model) string {
	return "internal static DiagnosticDescriptor " + m.RuleName() + " = " + l.descriptorCreation(m) + ";"
}

func (l layout) getterText(rule string) string {
	return "get\n{\n" + l.u + "return ImmutableArray.Create(" + rule + ");\n}"
}

func (l layout) accessorListText(rule string) string {
	return "{\n" + l.u + strings.ReplaceAll(l.getterText(rule), "\n", "\n"+l.u) + "\n}"
}

func (l layout) supportedDiagnosticsText(rule string) string {
	return verify.SupportedDiagnosticsSignature.Canonical(locate.SupportedDiagnosticsName) + "\n" + l.accessorListText(rule)
}

func (l layout) initializeText(callback string) string {
	if callback == "" {
		callback = locate.DefaultCallbackName
	}
	return verify.InitializeSignature.Canonical(locate.InitializeName) + "\n{\n" +
		l.u + registrationText(locate.DefaultContextName, callback) + "\n}"
}

func registrationText(param, callback string) string {
	return param + "." + locate.RegisterSyntaxNodeAction + "(" + callback + ", SyntaxKind.IfStatement);"
}

func callbackText(name string) string {
	if name == "" {
		name = locate.DefaultCallbackName
	}
	return verify.CallbackSignature.Canonical(name) + "\n{\n}"
}

func (l layout) members(m *locate.Model) []syntax.NodeID {
	return l.tree.PresentChildNodeIDs(m.Members)
}

func (l layout) memberIndent(m *locate.Model) (string, int, error) {
	if m.Members == syntax.NoNode {
		return "", 0, errors.New("analyzer class has no body")
	}
	brace, err := l.token(m.Members, lexer.TokenLBrace)
	if err != nil {
		return "", 0, err
	}
	return l.childIndent(brace, l.members(m)), brace, nil
}

// insertFirstMember places block right after the class's opening brace.
func (l layout) insertFirstMember(m *locate.Model, block string) ([]text.ByteEdit, error) {
	indent, brace, err := l.memberIndent(m)
	if err != nil {
		return nil, err
	}
	if len(l.members(m)) > 0 {
		block += "\n"
	}
	return []text.ByteEdit{l.insertAfter(brace, indent, block, false)}, nil
}

// insertMemberAfter places block after member, or first when member is
// absent.
func (l layout) insertMemberAfter(m *locate.Model, member syntax.NodeID, block string) ([]text.ByteEdit, error) {
	if member == syntax.NoNode {
		return l.insertFirstMember(m, block)
	}
	indent, _, err := l.memberIndent(m)
	if err != nil {
		return nil, err
	}
	tok, err := l.lastToken(member)
	if err != nil {
		return nil, err
	}
	return []text.ByteEdit{l.insertAfter(tok, indent, block, true)}, nil
}

// insertLastMember places block after the last member of the class.
func (l layout) insertLastMember(m *locate.Model, block string) ([]text.ByteEdit, error) {
	members := l.members(m)
	if len(members) == 0 {
		return l.insertFirstMember(m, block)
	}
	return l.insertMemberAfter(m, members[len(members)-1], block)
}

// declarationSpan covers a member declaration without its attributes.
func (l layout) declarationSpan(decl syntax.NodeID) text.Span {
	sp := l.span(decl)
	for _, c := range l.tree.ChildNodeIDs(decl) {
		if l.tree.IsMissing(c) || l.tree.Kind(c) == syntax.KindAttributeList {
			continue
		}
		sp.Start = l.span(c).Start
		break
	}
	return sp
}

// replaceSignature rewrites the head of decl and keeps its block body. A
// method without a block body gets one; an expression body becomes its
// only statement.
func (l layout) replaceSignature(decl syntax.NodeID, head string) ([]text.ByteEdit, error) {
	tree := l.tree
	start, end := verify.SignatureSpan(tree, decl)
	if start == syntax.NoNode || end == syntax.NoNode {
		return nil, errors.New("declaration has no signature")
	}
	sp := text.Span{Start: l.span(start).Start, End: l.span(end).End}
	if tree.Kind(decl) != syntax.KindMethodDeclaration || tree.FirstChildOfKind(decl, syntax.KindBlock) != syntax.NoNode {
		return []text.ByteEdit{text.Replace(sp, head)}, nil
	}
	block := "\n{\n"
	if arrow := tree.FirstChildOfKind(decl, syntax.KindArrowExpressionClause); arrow != syntax.NoNode {
		if expr := firstPresent(tree, arrow); expr != syntax.NoNode {
			block += l.u + tree.NodeText(expr) + ";\n"
		}
	}
	block += "}"
	sp.End = l.span(decl).End
	return []text.ByteEdit{text.Replace(sp, head+l.reindent(block, l.indentOf(decl)))}, nil
}

func firstPresent(tree *syntax.Tree, id syntax.NodeID) syntax.NodeID {
	children := tree.PresentChildNodeIDs(id)
	if len(children) == 0 {
		return syntax.NoNode
	}
	return children[0]
}
