package fix

import (
	"errors"
	"fmt"

	"github.com/kpumuk/metacheck/internal/lexer"
	"github.com/kpumuk/metacheck/internal/locate"
	"github.com/kpumuk/metacheck/internal/rules"
	"github.com/kpumuk/metacheck/internal/syntax"
	"github.com/kpumuk/metacheck/internal/text"
	"github.com/kpumuk/metacheck/internal/verify"
)

type synthesizer func(l layout, m *locate.Model, f verify.Finding) ([]text.ByteEdit, error)

// Synthesize returns the edits that repair the step f reports. Edits never
// touch source outside the declaration or statement being repaired.
func Synthesize(tree *syntax.Tree, m *locate.Model, f verify.Finding) ([]text.ByteEdit, error) {
	if tree == nil || m == nil {
		return nil, errors.New("nil syntax tree or model")
	}
	synth, ok := synthesizerFor(f.Rule)
	if !ok {
		return nil, fmt.Errorf("%s: %w", f.Rule, ErrNoSynthesizer)
	}
	edits, err := synth(newLayout(tree), m, f)
	if err != nil {
		return nil, fmt.Errorf("synthesize %s: %w", f.Rule, err)
	}
	return edits, nil
}

// Has reports whether id has a fix synthesizer.
func Has(id rules.ID) bool {
	_, ok := synthesizerFor(id)
	return ok
}

func synthesizerFor(id rules.ID) (synthesizer, bool) {
	switch id {
	case rules.MissingInit:
		return fixMissingInit, true
	case rules.IncorrectInitSig:
		return fixInitSignature, true
	case rules.InvalidStatement, rules.TooManyStatements:
		return fixDeleteTarget, true
	case rules.MissingRegisterStatement:
		return fixMissingRegister, true
	case rules.TooManyInitStatements:
		return fixTooManyRegistrations, true
	case rules.IncorrectRegister:
		return fixRegisterCall, true
	case rules.IncorrectArguments:
		return fixRegisterArguments, true
	case rules.MissingAnalysisMethod:
		return fixMissingCallback, true
	case rules.IncorrectAnalysisSig:
		return fixCallbackSignature, true

	case rules.IfStatementMissing, rules.IfKeywordMissing, rules.TrailingTriviaCheckMissing,
		rules.TrailingTriviaVarMissing, rules.TrailingTriviaKindCheckMissing, rules.WhitespaceCheckMissing,
		rules.ReturnStatementMissing, rules.OpenParenMissing, rules.StartSpanMissing, rules.EndSpanMissing,
		rules.SpanMissing, rules.LocationMissing, rules.DiagnosticMissing, rules.DiagnosticReportMissing:
		return fixMissingStatement, true
	case rules.IfStatementIncorrect, rules.IfKeywordIncorrect, rules.TrailingTriviaCheckIncorrect,
		rules.TrailingTriviaVarIncorrect, rules.TrailingTriviaKindCheckIncorrect, rules.WhitespaceCheckIncorrect,
		rules.ReturnStatementIncorrect, rules.OpenParenIncorrect, rules.StartSpanIncorrect, rules.EndSpanIncorrect,
		rules.SpanIncorrect, rules.LocationIncorrect, rules.DiagnosticIncorrect, rules.DiagnosticReportIncorrect:
		return fixIncorrectStatement, true

	case rules.MissingId:
		return fixMissingID, true
	case rules.IncorrectIdDeclaration:
		return fixIDDeclaration, true
	case rules.MissingRule:
		return fixMissingRule, true
	case rules.InternalAndStaticError:
		return fixRuleModifiers, true
	case rules.IncorrectRuleInit:
		return fixRuleInitializer, true
	case rules.IdDeclTypeError:
		return argumentFix(func(m *locate.Model) string { return m.IDName() }), true
	case rules.DefaultSeverityError:
		return argumentFix(func(*locate.Model) string { return defaultSeverity }), true
	case rules.EnabledByDefaultError:
		return argumentFix(func(*locate.Model) string { return "true" }), true
	case rules.MissingSuppDiag:
		return fixMissingSupported, true
	case rules.IncorrectSigSuppDiag:
		return fixSupportedSignature, true
	case rules.MissingAccessor:
		return fixMissingAccessor, true
	case rules.TooManyAccessors:
		return fixTooManyAccessors, true
	case rules.IncorrectAccessorReturn:
		return fixAccessorReturn, true
	case rules.SupportedRules:
		return fixSupportedRules, true
	default:
		return nil, false
	}
}

func fixMissingInit(l layout, m *locate.Model, _ verify.Finding) ([]text.ByteEdit, error) {
	return l.insertLastMember(m, l.initializeText(m.CallbackName))
}

func fixInitSignature(l layout, m *locate.Model, _ verify.Finding) ([]text.ByteEdit, error) {
	return l.replaceSignature(m.Initialize, verify.InitializeSignature.Canonical(locate.InitializeName))
}

func fixDeleteTarget(l layout, _ *locate.Model, f verify.Finding) ([]text.ByteEdit, error) {
	if f.Verdict.Target == syntax.NoNode {
		return nil, errors.New("finding has no target")
	}
	return []text.ByteEdit{l.deleteLines(f.Verdict.Target)}, nil
}

func fixMissingRegister(l layout, m *locate.Model, _ verify.Finding) ([]text.ByteEdit, error) {
	param := m.InitParamName()
	if param == "" {
		param = locate.DefaultContextName
	}
	callback := locate.DefaultCallbackName
	if m.CallbackName != "" {
		callback = m.CallbackName
	}
	return l.insertStatement(m.InitBody, len(m.InitStatements), registrationText(param, callback))
}

func fixTooManyRegistrations(l layout, m *locate.Model, _ verify.Finding) ([]text.ByteEdit, error) {
	kept, ok := m.KeptRegistration()
	if !ok {
		return nil, errors.New("no registration to keep")
	}
	var edits []text.ByteEdit
	for _, reg := range m.Registrations {
		if reg.Statement != kept.Statement {
			edits = append(edits, l.deleteLines(reg.Statement))
		}
	}
	return edits, nil
}

func fixRegisterCall(l layout, m *locate.Model, _ verify.Finding) ([]text.ByteEdit, error) {
	reg := m.Registrations[0]
	return []text.ByteEdit{l.replace(reg.Callee, m.InitParamName()+"."+locate.RegisterSyntaxNodeAction)}, nil
}

func fixRegisterArguments(l layout, m *locate.Model, _ verify.Finding) ([]text.ByteEdit, error) {
	tree := l.tree
	reg := m.Registrations[0]
	list := tree.FirstChildOfKind(reg.Invocation, syntax.KindArgumentList)
	if list == syntax.NoNode {
		return nil, errors.New("registration has no argument list")
	}
	method := locate.DefaultCallbackName
	if len(reg.Args) > 0 {
		expr := locate.ArgumentExpr(tree, reg.Args[0])
		if locate.MethodGroupName(tree, expr) != "" {
			method = tree.SignificantText(expr)
		}
	}
	return []text.ByteEdit{l.replace(list, "("+method+", SyntaxKind.IfStatement)")}, nil
}

func fixMissingCallback(l layout, m *locate.Model, _ verify.Finding) ([]text.ByteEdit, error) {
	return l.insertLastMember(m, callbackText(m.CallbackName))
}

func fixCallbackSignature(l layout, m *locate.Model, _ verify.Finding) ([]text.ByteEdit, error) {
	return l.replaceSignature(m.Callback, verify.CallbackSignature.Canonical(m.CallbackName, m.CallbackParamName()))
}

func fixMissingID(l layout, m *locate.Model, _ verify.Finding) ([]text.ByteEdit, error) {
	// A field already named like the id is rewritten in place so the class
	// does not end up with two members of the same name.
	for _, f := range l.tree.ChildrenOfKind(m.Members, syntax.KindFieldDeclaration) {
		if f == m.Descriptor {
			continue
		}
		decls := locate.Declarators(l.tree, f)
		if len(decls) > 0 && l.tree.DeclarationNameText(decls[0]) == locate.DefaultIDName {
			return []text.ByteEdit{text.Replace(l.declarationSpan(f), idFieldText(locate.DefaultIDName, idValue(l.tree, decls[0])))}, nil
		}
	}
	return l.insertFirstMember(m, idFieldText(locate.DefaultIDName, locate.DefaultIDValue))
}

func idValue(tree *syntax.Tree, declarator syntax.NodeID) string {
	init := locate.Initializer(tree, declarator)
	switch tree.Kind(init) {
	case syntax.KindStringLiteral, syntax.KindVerbatimStringLiteral, syntax.KindRawStringLiteral:
		if !tree.IsMissing(init) {
			return tree.NodeText(init)
		}
	}
	return locate.DefaultIDValue
}

func fixIDDeclaration(l layout, m *locate.Model, _ verify.Finding) ([]text.ByteEdit, error) {
	return []text.ByteEdit{text.Replace(l.declarationSpan(m.IDField), idFieldText(m.IDName(), idValue(l.tree, m.IDDeclarator)))}, nil
}

func fixMissingRule(l layout, m *locate.Model, _ verify.Finding) ([]text.ByteEdit, error) {
	return l.insertMemberAfter(m, m.IDField, l.descriptorText(m))
}

func fixRuleModifiers(l layout, m *locate.Model, _ verify.Finding) ([]text.ByteEdit, error) {
	mods := l.tree.ChildrenOfKind(m.Descriptor, syntax.KindModifier)
	if len(mods) == 0 {
		typ := l.tree.DeclarationType(m.Descriptor)
		if typ == syntax.NoNode {
			return nil, errors.New("descriptor field has no type")
		}
		return []text.ByteEdit{text.Insert(l.span(typ).Start, "internal static ")}, nil
	}
	sp := text.Span{Start: l.span(mods[0]).Start, End: l.span(mods[len(mods)-1]).End}
	return []text.ByteEdit{text.Replace(sp, "internal static")}, nil
}

func fixRuleInitializer(l layout, m *locate.Model, _ verify.Finding) ([]text.ByteEdit, error) {
	creation := l.reindent(l.descriptorCreation(m), l.indentOf(m.Descriptor))
	init := locate.Initializer(l.tree, m.DescriptorDeclarator)
	if init != syntax.NoNode && !l.tree.IsMissing(init) {
		return []text.ByteEdit{l.replace(init, creation)}, nil
	}
	if eq, ok := l.tree.DirectToken(m.DescriptorDeclarator, lexer.TokenEqual); ok {
		return []text.ByteEdit{text.Insert(l.tree.Tokens[eq].Span.End, " "+creation)}, nil
	}
	name := l.tree.DeclarationName(m.DescriptorDeclarator)
	return []text.ByteEdit{text.Insert(l.span(name).End, " = "+creation)}, nil
}

func argumentFix(value func(*locate.Model) string) synthesizer {
	return func(l layout, m *locate.Model, f verify.Finding) ([]text.ByteEdit, error) {
		expr := locate.ArgumentExpr(l.tree, f.Verdict.Target)
		if expr == syntax.NoNode {
			return nil, errors.New("argument has no expression")
		}
		return []text.ByteEdit{l.replace(expr, value(m))}, nil
	}
}

func fixMissingSupported(l layout, m *locate.Model, _ verify.Finding) ([]text.ByteEdit, error) {
	return l.insertMemberAfter(m, m.Descriptor, l.supportedDiagnosticsText(m.RuleName()))
}

func fixSupportedSignature(l layout, m *locate.Model, _ verify.Finding) ([]text.ByteEdit, error) {
	return l.replaceSignature(m.SupportedDiagnostics, verify.SupportedDiagnosticsSignature.Canonical(locate.SupportedDiagnosticsName))
}

func fixMissingAccessor(l layout, m *locate.Model, _ verify.Finding) ([]text.ByteEdit, error) {
	prop := m.SupportedDiagnostics
	list := l.reindent(l.accessorListText(m.RuleName()), l.indentOf(prop))
	if accessors := l.tree.FirstChildOfKind(prop, syntax.KindAccessorList); accessors != syntax.NoNode {
		return []text.ByteEdit{l.replace(accessors, list)}, nil
	}
	name := l.tree.DeclarationName(prop)
	if name == syntax.NoNode {
		return nil, errors.New("property has no name")
	}
	return []text.ByteEdit{text.Replace(text.Span{Start: l.span(name).End, End: l.span(prop).End},
		l.nl+l.indentOf(prop)+list)}, nil
}

func fixTooManyAccessors(l layout, m *locate.Model, _ verify.Finding) ([]text.ByteEdit, error) {
	var edits []text.ByteEdit
	kept := false
	for _, acc := range verify.Accessors(l.tree, m.SupportedDiagnostics) {
		if !kept && verify.AccessorKeyword(l.tree, acc) == "get" {
			kept = true
			continue
		}
		edits = append(edits, l.deleteLines(acc))
	}
	return edits, nil
}

func fixAccessorReturn(l layout, m *locate.Model, f verify.Finding) ([]text.ByteEdit, error) {
	getter := f.Verdict.Target
	create := "ImmutableArray.Create(" + m.RuleName() + ")"
	if l.tree.Kind(getter) == syntax.KindArrowExpressionClause {
		expr := firstPresent(l.tree, getter)
		if expr == syntax.NoNode {
			return nil, errors.New("expression body is empty")
		}
		return []text.ByteEdit{l.replace(expr, create)}, nil
	}
	return []text.ByteEdit{l.replace(getter, l.reindent(l.getterText(m.RuleName()), l.indentOf(getter)))}, nil
}

func fixSupportedRules(l layout, m *locate.Model, f verify.Finding) ([]text.ByteEdit, error) {
	list := l.tree.FirstChildOfKind(f.Verdict.Target, syntax.KindArgumentList)
	rparen, err := l.token(list, lexer.TokenRParen)
	if err != nil {
		return nil, err
	}
	at := l.tree.Tokens[rparen].Span.Start
	if len(locate.Arguments(l.tree, list)) == 0 {
		return []text.ByteEdit{text.Insert(at, m.RuleName())}, nil
	}
	return []text.ByteEdit{text.Insert(at, ", "+m.RuleName())}, nil
}
