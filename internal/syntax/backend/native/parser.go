// Package native implements a tolerant recursive-descent C# parser that
// produces backend.RawNode trees using tree-sitter C# kind names.
//
// The parser never fails on malformed input: unexpected tokens are wrapped
// in ERROR nodes and absent punctuation is reported as zero-width missing
// nodes, so every byte of the input stays reachable from the root.
package native

import (
	"context"

	"github.com/kpumuk/metacheck/internal/lexer"
	"github.com/kpumuk/metacheck/internal/syntax/backend"
	"github.com/kpumuk/metacheck/internal/text"
)

const factoryName = "native"

// Factory creates native parsers.
type Factory struct{}

var _ backend.Factory = (*Factory)(nil)

// NewFactory constructs a native backend factory.
func NewFactory() *Factory {
	return &Factory{}
}

// Name returns the stable backend identifier.
func (*Factory) Name() string {
	return factoryName
}

// NewParser creates a parser instance. Native parsers hold no resources.
func (*Factory) NewParser() (backend.Parser, error) {
	return &Parser{}, nil
}

// Parser parses C# source into raw nodes.
type Parser struct{}

// Parse parses src. It only fails when ctx is canceled.
func (*Parser) Parse(ctx context.Context, src []byte) (*backend.RawNode, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p := newParser(ctx, src, lexer.Lex(src).Tokens)
	root := p.parseCompilationUnit()
	if p.err != nil {
		return nil, p.err
	}
	return root, nil
}

// Close is a no-op.
func (*Parser) Close() {}

type parser struct {
	ctx  context.Context
	src  []byte
	toks []lexer.Token
	pos  int
	err  error
}

func newParser(ctx context.Context, src []byte, toks []lexer.Token) *parser {
	if len(toks) == 0 || toks[len(toks)-1].Kind != lexer.TokenEOF {
		toks = append(toks, lexer.Token{Kind: lexer.TokenEOF, Span: spanAt(len(src))})
	}
	return &parser{ctx: ctx, src: src, toks: toks}
}

// canceled records and reports context cancellation; loops poll it once per item.
func (p *parser) canceled() bool {
	if p.err != nil {
		return true
	}
	if err := p.ctx.Err(); err != nil {
		p.err = err
		return true
	}
	return false
}

func (p *parser) parseCompilationUnit() *backend.RawNode {
	var children []*backend.RawNode
	for !p.at(lexer.TokenEOF) && !p.canceled() {
		before := p.pos
		children = append(children, p.parseMember(true))
		if p.pos == before {
			children = append(children, p.skipToken())
		}
	}
	root := p.node("compilation_unit", 0, children...)
	root.StartByte = 0
	root.EndByte = len(p.src)
	return root
}

func (p *parser) peek(n int) lexer.Token {
	i := p.pos + n
	if i < 0 {
		return p.toks[0]
	}
	if i >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[i]
}

func (p *parser) kind() lexer.TokenKind {
	return p.peek(0).Kind
}

func (p *parser) at(kind lexer.TokenKind) bool {
	return p.kind() == kind
}

func (p *parser) peekIs(n int, kind lexer.TokenKind) bool {
	return p.peek(n).Kind == kind
}

func (p *parser) tokenText(n int) string {
	return p.peek(n).Text(p.src)
}

// atWord reports whether the token at offset n is the identifier word.
// Contextual keywords (var, get, async, record, ...) are lexed as identifiers.
func (p *parser) atWord(n int, word string) bool {
	tok := p.peek(n)
	return tok.Kind == lexer.TokenIdentifier && tok.Text(p.src) == word
}

func (p *parser) advance() {
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
}

// adjacent reports whether the tokens at offsets n and n+1 touch without trivia.
func (p *parser) adjacent(n int) bool {
	return p.peek(n).Span.End == p.peek(n+1).Span.Start
}

func (p *parser) node(kind string, start int, children ...*backend.RawNode) *backend.RawNode {
	n := &backend.RawNode{Kind: kind, IsNamed: true}
	for _, c := range children {
		if c == nil {
			continue
		}
		if c.IsError || c.IsMissing || c.HasError {
			n.HasError = true
		}
		n.Children = append(n.Children, c)
	}
	if p.pos > start {
		n.StartByte = int(p.toks[start].Span.Start)
		n.EndByte = int(p.toks[p.pos-1].Span.End)
	} else {
		n.StartByte = p.prevEnd()
		n.EndByte = n.StartByte
	}
	return n
}

func (p *parser) prevEnd() int {
	if p.pos == 0 {
		return 0
	}
	return int(p.toks[p.pos-1].Span.End)
}

// missing returns a zero-width node standing in for an absent token or node.
func (p *parser) missing(kind string, named bool) *backend.RawNode {
	off := p.prevEnd()
	return &backend.RawNode{Kind: kind, StartByte: off, EndByte: off, IsNamed: named, IsMissing: true}
}

// expect consumes a token of kind or returns a missing node describing it.
func (p *parser) expect(kind lexer.TokenKind, text string) *backend.RawNode {
	if p.at(kind) {
		p.advance()
		return nil
	}
	return p.missing(text, false)
}

// skipToken wraps the current token in an ERROR node.
func (p *parser) skipToken() *backend.RawNode {
	start := p.pos
	p.advance()
	n := p.node("ERROR", start)
	n.IsError = true
	return n
}

// errorUntil wraps tokens up to, but excluding, any stop kind in an ERROR node.
func (p *parser) errorUntil(stops ...lexer.TokenKind) *backend.RawNode {
	start := p.pos
	for !p.at(lexer.TokenEOF) && !p.atAny(stops...) {
		p.advance()
	}
	if p.pos == start {
		return nil
	}
	n := p.node("ERROR", start)
	n.IsError = true
	return n
}

func (p *parser) atAny(kinds ...lexer.TokenKind) bool {
	k := p.kind()
	for _, want := range kinds {
		if k == want {
			return true
		}
	}
	return false
}

// skipBalanced consumes a bracketed group starting at the current open token.
func (p *parser) skipBalanced(open, closeKind lexer.TokenKind) {
	depth := 0
	for !p.at(lexer.TokenEOF) {
		switch p.kind() {
		case open:
			depth++
		case closeKind:
			depth--
			if depth == 0 {
				p.advance()
				return
			}
		}
		p.advance()
	}
}

// leaf consumes one token and returns a named node of kind for it.
func (p *parser) leaf(kind string) *backend.RawNode {
	start := p.pos
	p.advance()
	return p.node(kind, start)
}

func spanAt(off int) text.Span {
	return text.EmptySpan(text.ByteOffset(off))
}
