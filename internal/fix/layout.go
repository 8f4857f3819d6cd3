package fix

import (
	"fmt"

	"github.com/kpumuk/metacheck/internal/lexer"
	"github.com/kpumuk/metacheck/internal/syntax"
	"github.com/kpumuk/metacheck/internal/text"
)

// layout places new text the way the surrounding source is laid out.
// Templates use "\n" line breaks and u for one indentation unit.
type layout struct {
	tree *syntax.Tree
	src  []byte
	u    string
	nl   string
}

func newLayout(tree *syntax.Tree) layout {
	return layout{
		tree: tree,
		src:  tree.Source,
		u:    text.DetectIndentUnit(tree.Source),
		nl:   text.Newline(tree.Source),
	}
}

func (l layout) span(id syntax.NodeID) text.Span {
	if n := l.tree.NodeByID(id); n != nil {
		return n.Span
	}
	return text.Span{}
}

// indentOf returns the indentation of the line id starts on.
func (l layout) indentOf(id syntax.NodeID) string {
	return text.Indentation(l.src, l.span(id).Start)
}

// childIndent returns the indentation of the first child that starts its
// own line, or one unit deeper than the line of the opening brace.
func (l layout) childIndent(brace int, children []syntax.NodeID) string {
	for _, c := range children {
		if sp := l.span(c); text.OnlySpaceBefore(l.src, sp.Start) {
			return text.Indentation(l.src, sp.Start)
		}
	}
	return text.Indentation(l.src, l.tree.Tokens[brace].Span.Start) + l.u
}

// reindent renders a template at indent with the source newline.
func (l layout) reindent(block, indent string) string {
	return text.Reindent(block, indent, l.nl)
}

// insertAfter places block on a new line after token tok, after any trivia
// that shares its line. blank separates the block from tok by an empty
// line.
func (l layout) insertAfter(tok int, indent, block string, blank bool) text.ByteEdit {
	t := l.tree.Tokens[tok]
	body := l.reindent(block, indent)
	pos := t.FullSpan().End
	var s string
	if t.TrailingEndsLine() {
		s = indent + body + l.nl
		if blank {
			s = l.nl + s
		}
		return text.Insert(pos, s)
	}
	s = l.nl + indent + body
	if blank {
		s = l.nl + s
	}
	if next := tok + 1; next < len(l.tree.Tokens) && l.tree.Tokens[next].Kind == lexer.TokenRBrace {
		s += l.nl + text.Indentation(l.src, t.Span.Start)
	}
	return text.Insert(pos, s)
}

// deleteLines removes id together with its line when nothing else is on it.
func (l layout) deleteLines(id syntax.NodeID) text.ByteEdit {
	return text.Delete(text.ExpandToLines(l.src, l.span(id)))
}

func (l layout) replace(id syntax.NodeID, s string) text.ByteEdit {
	return text.Replace(l.span(id), s)
}

func (l layout) token(id syntax.NodeID, kind lexer.TokenKind) (int, error) {
	i, ok := l.tree.DirectToken(id, kind)
	if !ok {
		return 0, fmt.Errorf("%s has no %s token", l.tree.Kind(id), kind)
	}
	return i, nil
}

func (l layout) lastToken(id syntax.NodeID) (int, error) {
	i, ok := l.tree.LastTokenOf(id)
	if !ok {
		return 0, fmt.Errorf("%s covers no tokens", l.tree.Kind(id))
	}
	return i, nil
}
