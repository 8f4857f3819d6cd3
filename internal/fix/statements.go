package fix

import (
	"errors"
	"slices"

	"github.com/kpumuk/metacheck/internal/lexer"
	"github.com/kpumuk/metacheck/internal/locate"
	"github.com/kpumuk/metacheck/internal/syntax"
	"github.com/kpumuk/metacheck/internal/text"
	"github.com/kpumuk/metacheck/internal/verify"
)

// insertStatement places stmt so that it becomes statement index of block.
func (l layout) insertStatement(block syntax.NodeID, index int, stmt string) ([]text.ByteEdit, error) {
	if block == syntax.NoNode {
		return nil, errors.New("no block to insert into")
	}
	brace, err := l.token(block, lexer.TokenLBrace)
	if err != nil {
		return nil, err
	}
	stmts := locate.Statements(l.tree, block)
	indent := l.childIndent(brace, stmts)
	after := brace
	if prev := min(index, len(stmts)) - 1; prev >= 0 {
		if after, err = l.lastToken(stmts[prev]); err != nil {
			return nil, err
		}
	}
	return []text.ByteEdit{l.insertAfter(after, indent, stmt, false)}, nil
}

// statementText renders the full statement of a body step. If statements
// get an empty block.
func statementText(s verify.BodyStep, env verify.Env) string {
	if s.Shape.Kind == verify.ShapeIf {
		return s.Shape.Canonical(env) + "\n{\n}"
	}
	return s.Shape.Canonical(env)
}

func fixMissingStatement(l layout, m *locate.Model, f verify.Finding) ([]text.ByteEdit, error) {
	s, ok := verify.BodyStepFor(f.Rule)
	if !ok {
		return nil, ErrNoSynthesizer
	}
	return l.insertStatement(f.Site.Block, f.Site.Index, statementText(s, verify.EnvOf(m)))
}

func fixIncorrectStatement(l layout, m *locate.Model, f verify.Finding) ([]text.ByteEdit, error) {
	s, ok := verify.BodyStepFor(f.Rule)
	if !ok {
		return nil, ErrNoSynthesizer
	}
	env := verify.EnvOf(m)
	stmt := f.Verdict.Target
	if l.belongsLater(s, stmt, env) {
		return l.insertStatement(f.Site.Block, f.Site.Index, statementText(s, env))
	}
	switch s.Shape.Kind {
	case verify.ShapeIf:
		if l.tree.Kind(stmt) == syntax.KindIfStatement {
			return l.repairIf(s, stmt, env)
		}
	case verify.ShapeLocal:
		if edits, ok := l.repairInitializer(s, stmt, env); ok {
			return edits, nil
		}
	}
	return []text.ByteEdit{l.replace(stmt, l.reindent(statementText(s, env), l.indentOf(stmt)))}, nil
}

// belongsLater reports whether stmt is already the correct statement of a
// later step of the same block, so the missing one goes in front of it.
func (l layout) belongsLater(s verify.BodyStep, stmt syntax.NodeID, env verify.Env) bool {
	for _, later := range verify.BodySteps() {
		if later.Block == s.Block && later.Index > s.Index && later.Shape.Matches(l.tree, stmt, env) {
			return true
		}
	}
	return false
}

// repairIf fixes the condition of an if statement, or wraps its embedded
// statement in a block, and keeps everything else.
func (l layout) repairIf(s verify.BodyStep, stmt syntax.NodeID, env verify.Env) ([]text.ByteEdit, error) {
	tree := l.tree
	want := env.Expand(s.Shape.Value)
	cond, body, _ := verify.IfParts(tree, stmt)
	if tree.Kind(cond) == syntax.KindBlock {
		// `if { ... }` parses the block as the condition slot.
		return []text.ByteEdit{text.Insert(l.span(cond).Start, "("+want+")"+l.nl+l.indentOf(stmt))}, nil
	}
	if cond == syntax.NoNode || tree.IsMissing(cond) {
		return []text.ByteEdit{text.Replace(verify.IfHeaderSpan(tree, stmt), "if ("+want+")")}, nil
	}
	if !slices.Contains(s.Shape.Values(env), tree.SignificantText(cond)) {
		return []text.ByteEdit{l.replace(cond, want)}, nil
	}
	header := verify.IfHeaderSpan(tree, stmt)
	if !verify.HasIfHeader(tree, stmt) {
		return []text.ByteEdit{text.Replace(header, "if ("+tree.SignificantText(cond)+")")}, nil
	}
	indent := l.indentOf(stmt)
	if body == syntax.NoNode || tree.IsMissing(body) {
		return []text.ByteEdit{text.Insert(header.End, l.nl+indent+"{"+l.nl+indent+"}")}, nil
	}
	inner := l.nl + indent + "{" + l.nl + indent + l.u + tree.NodeText(body) + l.nl + indent + "}"
	return []text.ByteEdit{text.Replace(text.Span{Start: header.End, End: l.span(body).End}, inner)}, nil
}

// repairInitializer replaces only the initializer of a local declaration
// that already has the expected name and type.
func (l layout) repairInitializer(s verify.BodyStep, stmt syntax.NodeID, env verify.Env) ([]text.ByteEdit, bool) {
	tree := l.tree
	if tree.Kind(stmt) != syntax.KindLocalDeclarationStatement || tree.HasErrors(stmt) || len(tree.Modifiers(stmt)) > 0 {
		return nil, false
	}
	decls := locate.Declarators(tree, stmt)
	if len(decls) != 1 || tree.DeclarationNameText(decls[0]) != s.Shape.Name {
		return nil, false
	}
	if typ := tree.SignificantText(tree.DeclarationType(stmt)); typ != "var" && typ != s.Shape.Type {
		return nil, false
	}
	want := env.Expand(s.Shape.Value)
	if init := locate.Initializer(tree, decls[0]); init != syntax.NoNode && !tree.IsMissing(init) {
		return []text.ByteEdit{l.replace(init, want)}, true
	}
	if eq, ok := tree.DirectToken(decls[0], lexer.TokenEqual); ok {
		return []text.ByteEdit{text.Insert(tree.Tokens[eq].Span.End, " "+want)}, true
	}
	name := tree.DeclarationName(decls[0])
	return []text.ByteEdit{text.Insert(l.span(name).End, " = "+want)}, true
}
