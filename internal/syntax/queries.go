package syntax

import (
	"strings"

	"github.com/kpumuk/metacheck/internal/lexer"
	"github.com/kpumuk/metacheck/internal/text"
)

// Kind returns the kind of id or KindUnknown when id is not present.
func (t *Tree) Kind(id NodeID) NodeKind {
	n := t.NodeByID(id)
	if n == nil {
		return KindUnknown
	}
	return n.Kind
}

// ChildNodeIDs returns direct child node ids (excluding token child refs) in source order.
func (t *Tree) ChildNodeIDs(id NodeID) []NodeID {
	n := t.NodeByID(id)
	if n == nil {
		return nil
	}
	out := make([]NodeID, 0, len(n.Children))
	for _, child := range n.Children {
		if child.IsToken {
			continue
		}
		out = append(out, NodeID(child.Index))
	}
	return out
}

// PresentChildNodeIDs returns direct children that are neither missing nor error nodes.
func (t *Tree) PresentChildNodeIDs(id NodeID) []NodeID {
	children := t.ChildNodeIDs(id)
	out := children[:0:0]
	for _, c := range children {
		n := t.NodeByID(c)
		if n == nil || n.Flags.Has(NodeFlagMissing) || n.Flags.Has(NodeFlagError) {
			continue
		}
		out = append(out, c)
	}
	return out
}

// ChildTokens returns the token indices owned directly by id.
func (t *Tree) ChildTokens(id NodeID) []int {
	n := t.NodeByID(id)
	if n == nil {
		return nil
	}
	var out []int
	for _, child := range n.Children {
		if child.IsToken {
			out = append(out, int(child.Index))
		}
	}
	return out
}

// DirectToken returns the first token of kind owned directly by id.
func (t *Tree) DirectToken(id NodeID, kind lexer.TokenKind) (int, bool) {
	for _, i := range t.ChildTokens(id) {
		if t.Tokens[i].Kind == kind {
			return i, true
		}
	}
	return 0, false
}

// FirstChildOfKind returns the first direct child of kind or NoNode.
func (t *Tree) FirstChildOfKind(id NodeID, kind NodeKind) NodeID {
	for _, c := range t.ChildNodeIDs(id) {
		if t.Kind(c) == kind && !t.IsMissing(c) {
			return c
		}
	}
	return NoNode
}

// ChildrenOfKind returns every direct child of kind.
func (t *Tree) ChildrenOfKind(id NodeID, kind NodeKind) []NodeID {
	var out []NodeID
	for _, c := range t.ChildNodeIDs(id) {
		if t.Kind(c) == kind && !t.IsMissing(c) {
			out = append(out, c)
		}
	}
	return out
}

// Walk visits id and its descendants in pre-order. Returning false from
// visit skips the node's children.
func (t *Tree) Walk(id NodeID, visit func(NodeID) bool) {
	if t.NodeByID(id) == nil {
		return
	}
	if !visit(id) {
		return
	}
	for _, c := range t.ChildNodeIDs(id) {
		t.Walk(c, visit)
	}
}

// FindAll returns every descendant of id (id included) with the given kind, in source order.
func (t *Tree) FindAll(id NodeID, kind NodeKind) []NodeID {
	var out []NodeID
	t.Walk(id, func(n NodeID) bool {
		if t.Kind(n) == kind {
			out = append(out, n)
		}
		return true
	})
	return out
}

// Ancestor returns the nearest proper ancestor of id with the given kind.
func (t *Tree) Ancestor(id NodeID, kind NodeKind) NodeID {
	n := t.NodeByID(id)
	for n != nil && n.Parent != NoNode {
		n = t.NodeByID(n.Parent)
		if n != nil && n.Kind == kind {
			return n.ID
		}
	}
	return NoNode
}

// IsMissing reports whether id is a zero-width node inserted by recovery.
func (t *Tree) IsMissing(id NodeID) bool {
	n := t.NodeByID(id)
	return n != nil && n.Flags.Has(NodeFlagMissing)
}

// HasErrors reports whether the subtree rooted at id contains recovery nodes.
func (t *Tree) HasErrors(id NodeID) bool {
	n := t.NodeByID(id)
	if n == nil {
		return false
	}
	return n.Flags.Has(NodeFlagRecovered) || n.Flags.Has(NodeFlagError) || n.Flags.Has(NodeFlagMissing)
}

// NodeText returns the source text covered by id without surrounding trivia.
func (t *Tree) NodeText(id NodeID) string {
	n := t.NodeByID(id)
	if n == nil {
		return ""
	}
	return string(n.Span.Slice(t.Source))
}

// TokenText returns the text of token i.
func (t *Tree) TokenText(i int) string {
	if i < 0 || i >= len(t.Tokens) {
		return ""
	}
	return t.Tokens[i].Text(t.Source)
}

// SignificantText renders the tokens covered by id with trivia dropped and
// a single space between adjacent word tokens. Two nodes with the same
// significant text differ at most in whitespace and comments.
func (t *Tree) SignificantText(id NodeID) string {
	n := t.NodeByID(id)
	if n == nil || n.Span.IsEmpty() {
		return ""
	}
	return renderTokens(t.Source, t.Tokens[n.FirstToken:n.LastToken+1])
}

// NormalizeSnippet renders a source fragment the way SignificantText renders
// nodes.
func NormalizeSnippet(src string) string {
	b := []byte(src)
	return renderTokens(b, lexer.Lex(b).Tokens)
}

func renderTokens(src []byte, toks []lexer.Token) string {
	var b strings.Builder
	prevWord := false
	for _, tok := range toks {
		if tok.Kind == lexer.TokenEOF {
			continue
		}
		word := tok.Kind.IsWord()
		if word && prevWord {
			b.WriteByte(' ')
		}
		b.Write(tok.Bytes(src))
		prevWord = word
	}
	return b.String()
}

// FullSpan returns the span of id widened over the leading trivia of its
// first token and the trailing trivia of its last token.
func (t *Tree) FullSpan(id NodeID) text.Span {
	n := t.NodeByID(id)
	if n == nil {
		return text.Span{}
	}
	if n.Span.IsEmpty() {
		return n.Span
	}
	sp := n.Span
	if first := t.Tokens[n.FirstToken].FullSpan(); first.Start < sp.Start {
		sp.Start = first.Start
	}
	if last := t.Tokens[n.LastToken].FullSpan(); last.End > sp.End {
		sp.End = last.End
	}
	return sp
}

// FirstTokenOf returns the first token index covered by id.
func (t *Tree) FirstTokenOf(id NodeID) (int, bool) {
	n := t.NodeByID(id)
	if n == nil || n.Span.IsEmpty() {
		return 0, false
	}
	return int(n.FirstToken), true
}

// LastTokenOf returns the last token index covered by id.
func (t *Tree) LastTokenOf(id NodeID) (int, bool) {
	n := t.NodeByID(id)
	if n == nil || n.Span.IsEmpty() {
		return 0, false
	}
	return int(n.LastToken), true
}

// Modifiers returns the modifier keywords declared directly on id.
func (t *Tree) Modifiers(id NodeID) []string {
	var out []string
	for _, c := range t.ChildrenOfKind(id, KindModifier) {
		out = append(out, t.NodeText(c))
	}
	return out
}

// HasModifier reports whether id declares the modifier keyword.
func (t *Tree) HasModifier(id NodeID, mod string) bool {
	for _, m := range t.Modifiers(id) {
		if m == mod {
			return true
		}
	}
	return false
}

// DeclarationName returns the identifier node naming a declaration.
func (t *Tree) DeclarationName(id NodeID) NodeID {
	children := t.ChildNodeIDs(id)
	switch t.Kind(id) {
	case KindMethodDeclaration, KindLocalFunctionStatement:
		return identifierBefore(t, children, KindParameterList, KindTypeParameterList)
	case KindPropertyDeclaration:
		return identifierBefore(t, children, KindAccessorList, KindArrowExpressionClause)
	case KindParameter:
		var seenType bool
		for _, c := range children {
			switch k := t.Kind(c); {
			case k == KindAttributeList, k == KindModifier:
			case k == KindIdentifier && seenType:
				return c
			default:
				seenType = true
			}
		}
		return t.FirstChildOfKind(id, KindIdentifier)
	default:
		return t.FirstChildOfKind(id, KindIdentifier)
	}
}

func identifierBefore(t *Tree, children []NodeID, stops ...NodeKind) NodeID {
	last := NoNode
	for _, c := range children {
		k := t.Kind(c)
		for _, stop := range stops {
			if k == stop {
				return last
			}
		}
		if k == KindIdentifier && !t.IsMissing(c) {
			last = c
		}
	}
	return last
}

// DeclarationNameText returns the text of DeclarationName(id).
func (t *Tree) DeclarationNameText(id NodeID) string {
	return t.NodeText(t.DeclarationName(id))
}

// DeclarationType returns the declared type node of a method, property,
// parameter or variable declaration.
func (t *Tree) DeclarationType(id NodeID) NodeID {
	switch t.Kind(id) {
	case KindFieldDeclaration, KindLocalDeclarationStatement:
		return t.DeclarationType(t.FirstChildOfKind(id, KindVariableDeclaration))
	case KindVariableDeclaration:
		children := t.ChildNodeIDs(id)
		if len(children) > 0 {
			return children[0]
		}
		return NoNode
	}
	name := t.DeclarationName(id)
	prev := NoNode
	for _, c := range t.ChildNodeIDs(id) {
		if c == name {
			return prev
		}
		switch t.Kind(c) {
		case KindAttributeList, KindModifier:
		default:
			prev = c
		}
	}
	return NoNode
}
