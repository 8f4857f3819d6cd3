package verify

import (
	"github.com/kpumuk/metacheck/internal/locate"
	"github.com/kpumuk/metacheck/internal/rules"
	"github.com/kpumuk/metacheck/internal/syntax"
)

func initializeChain() Chain {
	steps := []Step{
		{Name: "initialize", Rules: []rules.ID{rules.MissingInit}, Check: checkInitializeExists},
		{Name: "initialize-signature", Rules: []rules.ID{rules.IncorrectInitSig}, Check: checkInitializeSignature},
		{Name: "initialize-statements", Rules: []rules.ID{rules.InvalidStatement}, Check: checkInitializeStatements},
		{Name: "register", Rules: []rules.ID{rules.MissingRegisterStatement}, Check: checkRegisterExists},
		{Name: "register-count", Rules: []rules.ID{rules.TooManyInitStatements}, Check: checkRegisterCount},
		{Name: "register-call", Rules: []rules.ID{rules.IncorrectRegister}, Check: checkRegisterCall},
		{Name: "register-arguments", Rules: []rules.ID{rules.IncorrectArguments}, Check: checkRegisterArguments},
		{Name: "analysis-method", Rules: []rules.ID{rules.MissingAnalysisMethod}, Check: checkAnalysisMethodExists},
		{Name: "analysis-signature", Rules: []rules.ID{rules.IncorrectAnalysisSig}, Check: checkAnalysisSignature},
	}
	for _, bs := range BodySteps() {
		steps = append(steps, bs.step())
	}
	steps = append(steps, Step{Name: "extra-statements", Rules: []rules.ID{rules.TooManyStatements}, Check: checkExtraStatements})
	return Chain{ID: rules.ChainInitialize, Steps: steps}
}

func checkInitializeExists(m *locate.Model) []Finding {
	if m.Initialize != syntax.NoNode {
		return nil
	}
	return one(absent(rules.MissingInit, classAnchor(m), m.Class, "no method named Initialize", m.ClassName))
}

func checkInitializeSignature(m *locate.Model) []Finding {
	detail := InitializeSignature.mismatch(m.Tree, m.Initialize)
	if detail == "" && m.InitBody == syntax.NoNode {
		detail = "Initialize should have a block body"
	}
	if detail == "" {
		return nil
	}
	return one(malformed(rules.IncorrectInitSig, nameAnchor(m, m.Initialize), m.Initialize, detail))
}

func checkInitializeStatements(m *locate.Model) []Finding {
	registration := map[syntax.NodeID]bool{}
	for _, reg := range m.Registrations {
		registration[reg.Statement] = true
	}
	var out []Finding
	for _, stmt := range m.InitStatements {
		if registration[stmt] {
			continue
		}
		out = append(out, malformed(rules.InvalidStatement, span(m, stmt), stmt,
			"only Register*Action calls are allowed", m.Tree.NodeText(stmt)))
	}
	return out
}

func checkRegisterExists(m *locate.Model) []Finding {
	if len(m.Registrations) > 0 {
		return nil
	}
	return one(absent(rules.MissingRegisterStatement, nameAnchor(m, m.Initialize), m.InitBody, "no registration call"))
}

func checkRegisterCount(m *locate.Model) []Finding {
	if len(m.Registrations) == 1 {
		return nil
	}
	kept, _ := m.KeptRegistration()
	return one(malformed(rules.TooManyInitStatements, nameAnchor(m, m.Initialize), kept.Statement,
		"exactly one registration call is allowed"))
}

func checkRegisterCall(m *locate.Model) []Finding {
	reg := m.Registrations[0]
	param := m.InitParamName()
	if reg.Method == locate.RegisterSyntaxNodeAction && reg.Receiver == param {
		return nil
	}
	return one(malformed(rules.IncorrectRegister, span(m, reg.Callee), reg.Callee,
		"expected "+param+"."+locate.RegisterSyntaxNodeAction, param))
}

func checkRegisterArguments(m *locate.Model) []Finding {
	reg := m.Registrations[0]
	if locate.ValidRegistrationArgs(m.Tree, reg.Args) {
		return nil
	}
	list := m.Tree.FirstChildOfKind(reg.Invocation, syntax.KindArgumentList)
	anchor := span(m, list)
	if list == syntax.NoNode {
		anchor = span(m, reg.Invocation)
	}
	return one(malformed(rules.IncorrectArguments, anchor, reg.Invocation,
		"expected a method group and SyntaxKind.IfStatement"))
}

func checkAnalysisMethodExists(m *locate.Model) []Finding {
	if m.Callback != syntax.NoNode {
		return nil
	}
	arg := m.Registrations[0].Args[0]
	return one(absent(rules.MissingAnalysisMethod, span(m, arg), m.Class,
		"no method named "+m.CallbackName, m.CallbackName))
}

func checkAnalysisSignature(m *locate.Model) []Finding {
	detail := CallbackSignature.mismatch(m.Tree, m.Callback)
	if detail == "" && m.CallbackBody == syntax.NoNode {
		detail = m.CallbackName + " should have a block body"
	}
	if detail == "" {
		return nil
	}
	return one(malformed(rules.IncorrectAnalysisSig, nameAnchor(m, m.Callback), m.Callback, detail, m.CallbackName))
}
