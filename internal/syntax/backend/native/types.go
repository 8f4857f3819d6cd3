package native

import (
	"github.com/kpumuk/metacheck/internal/lexer"
	"github.com/kpumuk/metacheck/internal/syntax/backend"
)

// parseType parses a type and returns nil, consuming nothing, when the
// current tokens do not start one.
func (p *parser) parseType() *backend.RawNode {
	return p.parseTypeMode(true)
}

func (p *parser) parseTypeOrMissing() *backend.RawNode {
	if t := p.parseType(); t != nil {
		return t
	}
	return p.missing("type", true)
}

func (p *parser) parseTypeMode(allowNullable bool) *backend.RawNode {
	start := p.pos
	var t *backend.RawNode
	switch k := p.kind(); {
	case k.IsPredefinedType():
		t = p.leaf("predefined_type")
	case p.atWord(0, "var") && !p.peekIs(1, lexer.TokenDot) && !p.peekIs(1, lexer.TokenLess) && !p.peekIs(1, lexer.TokenColonColon):
		t = p.leaf("implicit_type")
	case k == lexer.TokenIdentifier:
		t = p.parseName(true)
	case k == lexer.TokenLParen:
		t = p.tryParseTupleType()
	}
	if t == nil {
		p.pos = start
		return nil
	}

	for {
		switch {
		case allowNullable && p.at(lexer.TokenQuestion) && !p.startsExpressionAt(1):
			p.advance()
			t = p.node("nullable_type", start, t)
		case p.at(lexer.TokenLBracket) && (p.peekIs(1, lexer.TokenRBracket) || p.peekIs(1, lexer.TokenComma)):
			rankStart := p.pos
			p.advance()
			for p.at(lexer.TokenComma) {
				p.advance()
			}
			closeTok := p.expect(lexer.TokenRBracket, "]")
			rank := p.node("array_rank_specifier", rankStart, closeTok)
			t = p.node("array_type", start, t, rank)
		default:
			return t
		}
	}
}

// startsExpressionAt reports whether the token at offset n can begin an
// expression, used to tell `T? x` from `a ? b : c`.
func (p *parser) startsExpressionAt(n int) bool {
	switch k := p.peek(n).Kind; {
	case k == lexer.TokenIdentifier:
		// `T? name` declares; `c ? name : other` continues an expression.
		next := p.peek(n + 1).Kind
		return next != lexer.TokenSemi && next != lexer.TokenEqual && next != lexer.TokenComma &&
			next != lexer.TokenRParen && next != lexer.TokenGreater && next != lexer.TokenKwIn && next != lexer.TokenLBrace
	case k.IsLiteral(), k == lexer.TokenLParen, k == lexer.TokenKwNew, k == lexer.TokenKwThis,
		k == lexer.TokenBang, k == lexer.TokenMinus, k == lexer.TokenKwTypeof, k == lexer.TokenKwDefault:
		return true
	default:
		return false
	}
}

func (p *parser) tryParseTupleType() *backend.RawNode {
	start := p.pos
	p.advance() // (
	var elems []*backend.RawNode
	for {
		elemStart := p.pos
		t := p.parseType()
		if t == nil {
			p.pos = start
			return nil
		}
		parts := []*backend.RawNode{t}
		if p.at(lexer.TokenIdentifier) {
			parts = append(parts, p.parseIdentifier())
		}
		elems = append(elems, p.node("tuple_element", elemStart, parts...))
		if !p.at(lexer.TokenComma) {
			break
		}
		p.advance()
	}
	if len(elems) < 2 || !p.at(lexer.TokenRParen) {
		p.pos = start
		return nil
	}
	p.advance()
	return p.node("tuple_type", start, elems...)
}

// parseName parses identifier, generic_name, alias_qualified_name and
// qualified_name forms. In type context a '<' always opens type arguments;
// in expression context the argument list must be followed by a token that
// disambiguates it from a comparison.
func (p *parser) parseName(typeContext bool) *backend.RawNode {
	start := p.pos
	left := p.parseSimpleName(typeContext)
	if left == nil {
		return nil
	}
	if p.at(lexer.TokenColonColon) && p.peekIs(1, lexer.TokenIdentifier) {
		p.advance()
		right := p.parseSimpleName(typeContext)
		left = p.node("alias_qualified_name", start, left, right)
	}
	if !typeContext {
		return left
	}
	for p.at(lexer.TokenDot) && p.peekIs(1, lexer.TokenIdentifier) {
		p.advance()
		right := p.parseSimpleName(typeContext)
		left = p.node("qualified_name", start, left, right)
	}
	return left
}

func (p *parser) parseNameOrMissing() *backend.RawNode {
	if n := p.parseName(true); n != nil {
		return n
	}
	return p.missing("identifier", true)
}

func (p *parser) parseSimpleName(typeContext bool) *backend.RawNode {
	if !p.at(lexer.TokenIdentifier) {
		return nil
	}
	start := p.pos
	id := p.leaf("identifier")
	if !p.at(lexer.TokenLess) {
		return id
	}
	save := p.pos
	args := p.tryParseTypeArgumentList()
	if args == nil || (!typeContext && !p.canFollowTypeArguments()) {
		p.pos = save
		return id
	}
	return p.node("generic_name", start, id, args)
}

func (p *parser) tryParseTypeArgumentList() *backend.RawNode {
	start := p.pos
	p.advance() // <
	var args []*backend.RawNode
	for !p.at(lexer.TokenGreater) {
		if p.at(lexer.TokenComma) {
			// Unbound generic: Dictionary<,>
			p.advance()
			continue
		}
		t := p.parseType()
		if t == nil {
			p.pos = start
			return nil
		}
		args = append(args, t)
		if p.at(lexer.TokenComma) {
			p.advance()
			if p.at(lexer.TokenGreater) {
				p.pos = start
				return nil
			}
			continue
		}
		if !p.at(lexer.TokenGreater) {
			p.pos = start
			return nil
		}
	}
	p.advance() // >
	return p.node("type_argument_list", start, args...)
}

func (p *parser) canFollowTypeArguments() bool {
	switch p.kind() {
	case lexer.TokenLParen, lexer.TokenRParen, lexer.TokenRBracket, lexer.TokenRBrace,
		lexer.TokenColon, lexer.TokenSemi, lexer.TokenComma, lexer.TokenDot,
		lexer.TokenQuestion, lexer.TokenEqualEqual, lexer.TokenBangEqual,
		lexer.TokenPipe, lexer.TokenCaret, lexer.TokenAmpAmp, lexer.TokenPipePipe,
		lexer.TokenAmp, lexer.TokenLBracket, lexer.TokenEOF, lexer.TokenQuestionDot:
		return true
	default:
		return false
	}
}
