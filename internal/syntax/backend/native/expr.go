package native

import (
	"bytes"

	"github.com/kpumuk/metacheck/internal/lexer"
	"github.com/kpumuk/metacheck/internal/syntax/backend"
)

// parseExpression parses an expression and returns nil, consuming nothing,
// when no expression starts at the current token.
func (p *parser) parseExpression() *backend.RawNode {
	if !p.startsExpression() {
		return nil
	}
	return p.parseAssignment()
}

func (p *parser) parseExpressionOrMissing() *backend.RawNode {
	if e := p.parseExpression(); e != nil {
		return e
	}
	return p.missing("expression", true)
}

func (p *parser) startsExpression() bool {
	switch k := p.kind(); {
	case k == lexer.TokenIdentifier, k.IsLiteral(), k.IsPredefinedType():
		return true
	}
	switch p.kind() {
	case lexer.TokenLParen, lexer.TokenLBracket, lexer.TokenKwNew, lexer.TokenKwThis, lexer.TokenKwBase,
		lexer.TokenKwTypeof, lexer.TokenKwDefault, lexer.TokenKwSizeof, lexer.TokenKwChecked,
		lexer.TokenKwUnchecked, lexer.TokenKwDelegate, lexer.TokenKwThrow, lexer.TokenKwStackalloc,
		lexer.TokenKwRef, lexer.TokenKwStatic,
		lexer.TokenBang, lexer.TokenTilde, lexer.TokenMinus, lexer.TokenPlus, lexer.TokenPlusPlus,
		lexer.TokenMinusMinus, lexer.TokenAmp, lexer.TokenStar, lexer.TokenCaret, lexer.TokenDotDot:
		return true
	default:
		return false
	}
}

var assignmentOperators = map[lexer.TokenKind]bool{
	lexer.TokenEqual:                 true,
	lexer.TokenPlusEqual:             true,
	lexer.TokenMinusEqual:            true,
	lexer.TokenStarEqual:             true,
	lexer.TokenSlashEqual:            true,
	lexer.TokenPercentEqual:          true,
	lexer.TokenAmpEqual:              true,
	lexer.TokenPipeEqual:             true,
	lexer.TokenCaretEqual:            true,
	lexer.TokenLessLessEqual:         true,
	lexer.TokenQuestionQuestionEqual: true,
}

func (p *parser) parseAssignment() *backend.RawNode {
	start := p.pos
	if p.looksLikeLambda() {
		return p.parseLambda()
	}
	if p.at(lexer.TokenKwStatic) {
		return nil
	}
	left := p.parseConditional()
	if left == nil {
		return nil
	}
	switch {
	case assignmentOperators[p.kind()]:
		p.advance()
	case p.at(lexer.TokenGreater) && p.peekIs(1, lexer.TokenGreaterEqual) && p.adjacent(0):
		// >>=
		p.advance()
		p.advance()
	default:
		return left
	}
	if p.at(lexer.TokenKwRef) {
		p.advance()
	}
	var right *backend.RawNode
	if p.at(lexer.TokenLBrace) {
		right = p.parseInitializer()
	} else {
		right = p.parseExpressionOrMissing()
	}
	return p.node("assignment_expression", start, left, right)
}

func (p *parser) looksLikeLambda() bool {
	i := 0
	for p.atWord(i, "async") || p.peekIs(i, lexer.TokenKwStatic) {
		i++
	}
	if p.peekIs(i, lexer.TokenIdentifier) && p.peekIs(i+1, lexer.TokenArrow) {
		return true
	}
	if !p.peekIs(i, lexer.TokenLParen) {
		return false
	}
	save := p.pos
	defer func() { p.pos = save }()
	for range i {
		p.advance()
	}
	p.skipBalanced(lexer.TokenLParen, lexer.TokenRParen)
	return p.at(lexer.TokenArrow)
}

func (p *parser) parseLambda() *backend.RawNode {
	start := p.pos
	var children []*backend.RawNode
	for (p.atWord(0, "async") && !p.peekIs(1, lexer.TokenArrow)) || p.at(lexer.TokenKwStatic) {
		children = append(children, p.leaf("modifier"))
	}
	if p.at(lexer.TokenIdentifier) {
		children = append(children, p.parseIdentifier())
	} else {
		children = append(children, p.parseParameterList())
	}
	children = append(children, p.expect(lexer.TokenArrow, "=>"))
	if p.at(lexer.TokenLBrace) {
		children = append(children, p.parseBlock())
	} else {
		children = append(children, p.parseExpressionOrMissing())
	}
	return p.node("lambda_expression", start, children...)
}

func (p *parser) parseConditional() *backend.RawNode {
	start := p.pos
	cond := p.parseBinary(1)
	if cond == nil {
		return nil
	}
	if !p.at(lexer.TokenQuestion) {
		return cond
	}
	p.advance()
	whenTrue := p.parseExpressionOrMissing()
	colon := p.expect(lexer.TokenColon, ":")
	whenFalse := p.parseExpressionOrMissing()
	return p.node("conditional_expression", start, cond, whenTrue, colon, whenFalse)
}

const (
	precCoalesce = 1 + iota
	precOr
	precAnd
	precBitOr
	precBitXor
	precBitAnd
	precEquality
	precRelational
	precShift
	precAdditive
	precMultiplicative
	precRange
)

// binaryOperator returns the precedence and token width of the binary
// operator at the current position, or zero when there is none.
func (p *parser) binaryOperator() (int, int) {
	switch p.kind() {
	case lexer.TokenQuestionQuestion:
		return precCoalesce, 1
	case lexer.TokenPipePipe:
		return precOr, 1
	case lexer.TokenAmpAmp:
		return precAnd, 1
	case lexer.TokenPipe:
		return precBitOr, 1
	case lexer.TokenCaret:
		return precBitXor, 1
	case lexer.TokenAmp:
		return precBitAnd, 1
	case lexer.TokenEqualEqual, lexer.TokenBangEqual:
		return precEquality, 1
	case lexer.TokenLess, lexer.TokenLessEqual, lexer.TokenGreaterEqual, lexer.TokenKwIs, lexer.TokenKwAs:
		return precRelational, 1
	case lexer.TokenGreater:
		if p.adjacent(0) {
			switch p.peek(1).Kind {
			case lexer.TokenGreaterEqual:
				return 0, 0
			case lexer.TokenGreater:
				if p.adjacent(1) && p.peekIs(2, lexer.TokenGreater) {
					return precShift, 3
				}
				return precShift, 2
			}
		}
		return precRelational, 1
	case lexer.TokenLessLess:
		return precShift, 1
	case lexer.TokenPlus, lexer.TokenMinus:
		return precAdditive, 1
	case lexer.TokenStar, lexer.TokenSlash, lexer.TokenPercent:
		return precMultiplicative, 1
	case lexer.TokenDotDot:
		return precRange, 1
	default:
		return 0, 0
	}
}

func (p *parser) parseBinary(minPrec int) *backend.RawNode {
	start := p.pos
	left := p.parseUnary()
	if left == nil {
		return nil
	}
	for !p.canceled() {
		prec, width := p.binaryOperator()
		if prec == 0 || prec < minPrec {
			return left
		}
		switch p.kind() {
		case lexer.TokenKwIs:
			p.advance()
			left = p.node("is_pattern_expression", start, left, p.parsePattern())
			continue
		case lexer.TokenKwAs:
			p.advance()
			left = p.node("as_expression", start, left, p.parseTypeOrMissing())
			continue
		}
		for range width {
			p.advance()
		}
		next := prec + 1
		if prec == precCoalesce {
			next = prec
		}
		right := p.parseBinary(next)
		if right == nil {
			right = p.missing("expression", true)
		}
		left = p.node("binary_expression", start, left, right)
	}
	return left
}

var prefixOperators = map[lexer.TokenKind]bool{
	lexer.TokenBang:       true,
	lexer.TokenTilde:      true,
	lexer.TokenMinus:      true,
	lexer.TokenPlus:       true,
	lexer.TokenPlusPlus:   true,
	lexer.TokenMinusMinus: true,
	lexer.TokenAmp:        true,
	lexer.TokenStar:       true,
	lexer.TokenCaret:      true,
}

func (p *parser) parseUnary() *backend.RawNode {
	start := p.pos
	switch {
	case prefixOperators[p.kind()]:
		p.advance()
		return p.node("prefix_unary_expression", start, p.operandOrMissing())
	case p.at(lexer.TokenDotDot):
		p.advance()
		var operand *backend.RawNode
		if p.startsExpression() {
			operand = p.parseUnary()
		}
		return p.node("range_expression", start, operand)
	case p.at(lexer.TokenKwThrow):
		p.advance()
		return p.node("throw_expression", start, p.parseExpressionOrMissing())
	case p.at(lexer.TokenKwRef):
		p.advance()
		return p.node("ref_expression", start, p.operandOrMissing())
	case p.atWord(0, "await") && p.startsAwaitOperand():
		p.advance()
		return p.node("await_expression", start, p.operandOrMissing())
	case p.at(lexer.TokenLParen):
		if cast := p.tryParseCast(); cast != nil {
			return cast
		}
	}
	primary := p.parsePrimary()
	if primary == nil {
		return nil
	}
	return p.parsePostfix(start, primary)
}

func (p *parser) operandOrMissing() *backend.RawNode {
	if e := p.parseUnary(); e != nil {
		return e
	}
	return p.missing("expression", true)
}

func (p *parser) startsAwaitOperand() bool {
	switch next := p.peek(1).Kind; {
	case next == lexer.TokenIdentifier, next.IsLiteral(), next == lexer.TokenLParen,
		next == lexer.TokenKwNew, next == lexer.TokenKwThis, next == lexer.TokenKwBase:
		return true
	default:
		return false
	}
}

// tryParseCast parses `(Type) operand`. A parenthesized name only counts as a
// cast when the following token cannot continue a binary expression.
func (p *parser) tryParseCast() *backend.RawNode {
	start := p.pos
	p.advance() // (
	typ := p.parseType()
	if typ == nil || !p.at(lexer.TokenRParen) {
		p.pos = start
		return nil
	}
	p.advance() // )
	if !p.castOperandFollows(typ) {
		p.pos = start
		return nil
	}
	operand := p.parseUnary()
	if operand == nil {
		p.pos = start
		return nil
	}
	return p.node("cast_expression", start, typ, operand)
}

func (p *parser) castOperandFollows(typ *backend.RawNode) bool {
	k := p.kind()
	if typ.Kind == "predefined_type" || typ.Kind == "array_type" || typ.Kind == "nullable_type" {
		return p.startsExpression() && k != lexer.TokenStar && k != lexer.TokenAmp && k != lexer.TokenCaret
	}
	switch {
	case k == lexer.TokenIdentifier, k.IsLiteral(), k == lexer.TokenLParen, k == lexer.TokenBang, k == lexer.TokenTilde:
		return true
	case k == lexer.TokenKwIs || k == lexer.TokenKwAs:
		return false
	case k.IsKeyword():
		return k == lexer.TokenKwThis || k == lexer.TokenKwBase || k == lexer.TokenKwNew ||
			k == lexer.TokenKwTypeof || k == lexer.TokenKwDefault || k == lexer.TokenKwSizeof ||
			k == lexer.TokenKwChecked || k == lexer.TokenKwUnchecked || k.IsPredefinedType()
	default:
		return false
	}
}

func (p *parser) parsePrimary() *backend.RawNode {
	start := p.pos
	tok := p.peek(0)
	switch k := tok.Kind; {
	case k == lexer.TokenIdentifier:
		return p.parseSimpleName(false)
	case k.IsPredefinedType():
		return p.leaf("predefined_type")
	case k == lexer.TokenIntLiteral:
		return p.leaf("integer_literal")
	case k == lexer.TokenRealLiteral:
		return p.leaf("real_literal")
	case k == lexer.TokenCharLiteral:
		return p.leaf("character_literal")
	case k == lexer.TokenStringLiteral:
		return p.leaf(p.stringLiteralKind(tok))
	case k == lexer.TokenKwTrue || k == lexer.TokenKwFalse:
		return p.leaf("boolean_literal")
	case k == lexer.TokenKwNull:
		return p.leaf("null_literal")
	case k == lexer.TokenKwThis:
		return p.leaf("this_expression")
	case k == lexer.TokenKwBase:
		return p.leaf("base_expression")
	case k == lexer.TokenLParen:
		return p.parseParenthesized()
	case k == lexer.TokenLBracket:
		return p.parseCollectionExpression()
	case k == lexer.TokenKwNew:
		return p.parseNew()
	case k == lexer.TokenKwTypeof, k == lexer.TokenKwSizeof:
		kind := "typeof_expression"
		if k == lexer.TokenKwSizeof {
			kind = "sizeof_expression"
		}
		p.advance()
		open := p.expect(lexer.TokenLParen, "(")
		typ := p.parseTypeOrMissing()
		return p.node(kind, start, open, typ, p.expect(lexer.TokenRParen, ")"))
	case k == lexer.TokenKwDefault:
		p.advance()
		if !p.at(lexer.TokenLParen) {
			return p.node("default_expression", start)
		}
		p.advance()
		typ := p.parseTypeOrMissing()
		return p.node("default_expression", start, typ, p.expect(lexer.TokenRParen, ")"))
	case k == lexer.TokenKwChecked || k == lexer.TokenKwUnchecked:
		p.advance()
		open := p.expect(lexer.TokenLParen, "(")
		expr := p.parseExpressionOrMissing()
		return p.node("checked_expression", start, open, expr, p.expect(lexer.TokenRParen, ")"))
	case k == lexer.TokenKwDelegate:
		p.advance()
		var params *backend.RawNode
		if p.at(lexer.TokenLParen) {
			params = p.parseParameterList()
		}
		return p.node("anonymous_method_expression", start, params, p.parseBlock())
	case k == lexer.TokenKwStackalloc:
		p.advance()
		typ := p.parseTypeOrMissing()
		var args, init *backend.RawNode
		if p.at(lexer.TokenLBracket) {
			args = p.parseBracketedArgumentList()
		}
		if p.at(lexer.TokenLBrace) {
			init = p.parseInitializer()
		}
		return p.node("stackalloc_expression", start, typ, args, init)
	default:
		return nil
	}
}

func (p *parser) stringLiteralKind(tok lexer.Token) string {
	switch {
	case tok.Flags.Has(lexer.TokenFlagInterpolated):
		return "interpolated_string_expression"
	case bytes.HasPrefix(bytes.TrimLeft(tok.Bytes(p.src), "@$"), []byte(`"""`)):
		return "raw_string_literal"
	case tok.Flags.Has(lexer.TokenFlagVerbatim):
		return "verbatim_string_literal"
	default:
		return "string_literal"
	}
}

func (p *parser) parseParenthesized() *backend.RawNode {
	start := p.pos
	p.advance() // (
	first := p.parseArgumentOrMissing()
	if !p.at(lexer.TokenComma) {
		var junk *backend.RawNode
		if !p.at(lexer.TokenRParen) {
			junk = p.errorUntil(lexer.TokenRParen, lexer.TokenSemi, lexer.TokenLBrace, lexer.TokenRBrace)
		}
		if first.Kind == "argument" && len(first.Children) == 1 {
			first = first.Children[0]
		}
		return p.node("parenthesized_expression", start, first, junk, p.expect(lexer.TokenRParen, ")"))
	}
	elems := []*backend.RawNode{first}
	for p.at(lexer.TokenComma) {
		p.advance()
		elems = append(elems, p.parseArgumentOrMissing())
	}
	elems = append(elems, p.expect(lexer.TokenRParen, ")"))
	return p.node("tuple_expression", start, elems...)
}

func (p *parser) parseCollectionExpression() *backend.RawNode {
	start := p.pos
	p.advance() // [
	var elems []*backend.RawNode
	for !p.at(lexer.TokenRBracket) && !p.at(lexer.TokenEOF) {
		elemStart := p.pos
		if p.at(lexer.TokenDotDot) {
			p.advance()
			elems = append(elems, p.node("spread_element", elemStart, p.parseExpressionOrMissing()))
		} else {
			e := p.parseExpression()
			if e == nil {
				break
			}
			elems = append(elems, e)
		}
		if !p.at(lexer.TokenComma) {
			break
		}
		p.advance()
	}
	elems = append(elems, p.expect(lexer.TokenRBracket, "]"))
	return p.node("collection_expression", start, elems...)
}

func (p *parser) parseNew() *backend.RawNode {
	start := p.pos
	p.advance() // new
	switch {
	case p.at(lexer.TokenLParen):
		args := p.parseArgumentList()
		var init *backend.RawNode
		if p.at(lexer.TokenLBrace) {
			init = p.parseInitializer()
		}
		return p.node("implicit_object_creation_expression", start, args, init)
	case p.at(lexer.TokenLBracket):
		p.advance()
		for p.at(lexer.TokenComma) {
			p.advance()
		}
		closeTok := p.expect(lexer.TokenRBracket, "]")
		var init *backend.RawNode
		if p.at(lexer.TokenLBrace) {
			init = p.parseInitializer()
		} else {
			init = p.missing("initializer_expression", true)
		}
		return p.node("implicit_array_creation_expression", start, closeTok, init)
	case p.at(lexer.TokenLBrace):
		return p.node("anonymous_object_creation_expression", start, p.parseInitializer())
	}

	typ := p.parseTypeMode(false)
	if typ == nil {
		return p.node("object_creation_expression", start, p.missing("type", true))
	}
	if p.at(lexer.TokenLBracket) {
		rankStart := p.pos
		dims := p.parseBracketedArgumentList()
		rank := p.node("array_rank_specifier", rankStart, dims)
		typ = p.node("array_type", p.tokenIndexAt(typ.StartByte), typ, rank)
	}
	if typ.Kind == "array_type" {
		var init *backend.RawNode
		if p.at(lexer.TokenLBrace) {
			init = p.parseInitializer()
		}
		return p.node("array_creation_expression", start, typ, init)
	}
	var args, init *backend.RawNode
	if p.at(lexer.TokenLParen) {
		args = p.parseArgumentList()
	}
	if p.at(lexer.TokenLBrace) {
		init = p.parseInitializer()
	}
	if args == nil && init == nil {
		args = p.missing("argument_list", true)
	}
	return p.node("object_creation_expression", start, typ, args, init)
}

// parseInitializer parses `{ a, b, { c } }` object, collection and array initializers.
func (p *parser) parseInitializer() *backend.RawNode {
	start := p.pos
	p.advance() // {
	var elems []*backend.RawNode
	for !p.at(lexer.TokenRBrace) && !p.at(lexer.TokenEOF) && !p.canceled() {
		var e *backend.RawNode
		if p.at(lexer.TokenLBrace) {
			e = p.parseInitializer()
		} else {
			e = p.parseExpression()
		}
		if e == nil {
			elems = append(elems, p.errorUntil(lexer.TokenComma, lexer.TokenRBrace, lexer.TokenSemi))
			if p.at(lexer.TokenSemi) {
				break
			}
		} else {
			elems = append(elems, e)
		}
		if !p.at(lexer.TokenComma) {
			break
		}
		p.advance()
	}
	elems = append(elems, p.expect(lexer.TokenRBrace, "}"))
	return p.node("initializer_expression", start, elems...)
}

func (p *parser) parsePostfix(start int, expr *backend.RawNode) *backend.RawNode {
	for !p.canceled() {
		switch {
		case p.at(lexer.TokenDot) || p.at(lexer.TokenMinusGreater):
			p.advance()
			name := p.parseSimpleName(false)
			if name == nil {
				name = p.missing("identifier", true)
			}
			expr = p.node("member_access_expression", start, expr, name)
		case p.at(lexer.TokenQuestionDot):
			bindStart := p.pos
			p.advance()
			name := p.parseSimpleName(false)
			if name == nil {
				name = p.missing("identifier", true)
			}
			binding := p.node("member_binding_expression", bindStart, name)
			expr = p.node("conditional_access_expression", start, expr, binding)
		case p.at(lexer.TokenQuestion) && p.peekIs(1, lexer.TokenLBracket) && p.adjacent(0):
			bindStart := p.pos
			p.advance()
			args := p.parseBracketedArgumentList()
			binding := p.node("element_binding_expression", bindStart, args)
			expr = p.node("conditional_access_expression", start, expr, binding)
		case p.at(lexer.TokenLParen):
			expr = p.node("invocation_expression", start, expr, p.parseArgumentList())
		case p.at(lexer.TokenLBracket):
			expr = p.node("element_access_expression", start, expr, p.parseBracketedArgumentList())
		case p.at(lexer.TokenPlusPlus) || p.at(lexer.TokenMinusMinus):
			p.advance()
			expr = p.node("postfix_unary_expression", start, expr)
		case p.at(lexer.TokenBang) && p.adjacent(-1):
			p.advance()
			expr = p.node("postfix_unary_expression", start, expr)
		case p.at(lexer.TokenKwSwitch) && p.peekIs(1, lexer.TokenLBrace):
			expr = p.parseSwitchExpression(start, expr)
		case p.atWord(0, "with") && p.peekIs(1, lexer.TokenLBrace):
			p.advance()
			expr = p.node("with_expression", start, expr, p.parseInitializer())
		default:
			return expr
		}
	}
	return expr
}

func (p *parser) parseSwitchExpression(start int, subject *backend.RawNode) *backend.RawNode {
	p.advance() // switch
	p.advance() // {
	children := []*backend.RawNode{subject}
	for !p.at(lexer.TokenRBrace) && !p.at(lexer.TokenEOF) && !p.canceled() {
		armStart := p.pos
		pattern := p.parsePattern()
		if p.pos == armStart {
			children = append(children, p.skipToken())
			continue
		}
		parts := []*backend.RawNode{pattern}
		if p.atWord(0, "when") {
			whenStart := p.pos
			p.advance()
			parts = append(parts, p.node("when_clause", whenStart, p.parseExpressionOrMissing()))
		}
		parts = append(parts, p.expect(lexer.TokenArrow, "=>"), p.parseExpressionOrMissing())
		children = append(children, p.node("switch_expression_arm", armStart, parts...))
		if !p.at(lexer.TokenComma) {
			break
		}
		p.advance()
	}
	children = append(children, p.expect(lexer.TokenRBrace, "}"))
	return p.node("switch_expression", start, children...)
}

// parsePattern parses the pattern forms used after `is`, `case` and in
// switch expression arms.
func (p *parser) parsePattern() *backend.RawNode {
	start := p.pos
	left := p.parsePrimaryPattern()
	for p.atWord(0, "and") || p.atWord(0, "or") {
		kind := "and_pattern"
		if p.atWord(0, "or") {
			kind = "or_pattern"
		}
		p.advance()
		right := p.parsePrimaryPattern()
		left = p.node(kind, start, left, right)
	}
	return left
}

func (p *parser) parsePrimaryPattern() *backend.RawNode {
	start := p.pos
	switch {
	case p.atWord(0, "not"):
		p.advance()
		return p.node("negated_pattern", start, p.parsePrimaryPattern())
	case p.atWord(0, "_") && !p.peekIs(1, lexer.TokenDot):
		p.advance()
		return p.node("discard", start)
	case p.atWord(0, "var") && p.peekIs(1, lexer.TokenIdentifier):
		p.advance()
		return p.node("var_pattern", start, p.parseIdentifier())
	case p.at(lexer.TokenLBrace):
		p.skipBalanced(lexer.TokenLBrace, lexer.TokenRBrace)
		return p.node("recursive_pattern", start)
	case p.at(lexer.TokenLess) || p.at(lexer.TokenLessEqual) || p.at(lexer.TokenGreater) || p.at(lexer.TokenGreaterEqual):
		p.advance()
		return p.node("relational_pattern", start, p.operandOrMissing())
	case p.at(lexer.TokenLParen) && !p.looksLikeCastPattern():
		p.advance()
		inner := p.parsePattern()
		return p.node("parenthesized_pattern", start, inner, p.expect(lexer.TokenRParen, ")"))
	}

	if typ := p.parseType(); typ != nil {
		switch {
		case p.at(lexer.TokenIdentifier) && !p.atWord(0, "when") && !p.atWord(0, "and") && !p.atWord(0, "or"):
			return p.node("declaration_pattern", start, typ, p.parseIdentifier())
		case p.at(lexer.TokenLBrace):
			p.skipBalanced(lexer.TokenLBrace, lexer.TokenRBrace)
			var name *backend.RawNode
			if p.at(lexer.TokenIdentifier) && !p.atWord(0, "when") {
				name = p.parseIdentifier()
			}
			return p.node("recursive_pattern", start, typ, name)
		}
		p.pos = start
	}
	expr := p.parseBinary(precShift)
	if expr == nil {
		return p.missing("pattern", true)
	}
	return p.node("constant_pattern", start, expr)
}

func (p *parser) looksLikeCastPattern() bool {
	save := p.pos
	defer func() { p.pos = save }()
	return p.tryParseCast() != nil
}

func (p *parser) parseArgumentList() *backend.RawNode {
	return p.parseArguments(lexer.TokenLParen, lexer.TokenRParen, "argument_list", ")")
}

func (p *parser) parseBracketedArgumentList() *backend.RawNode {
	return p.parseArguments(lexer.TokenLBracket, lexer.TokenRBracket, "bracketed_argument_list", "]")
}

func (p *parser) parseArguments(open, closeKind lexer.TokenKind, kind, closeText string) *backend.RawNode {
	start := p.pos
	if !p.at(open) {
		return p.missing(kind, true)
	}
	p.advance()
	var children []*backend.RawNode
	for !p.at(closeKind) && !p.at(lexer.TokenEOF) && !p.canceled() {
		if p.at(lexer.TokenComma) {
			children = append(children, p.missing("argument", true))
		} else {
			arg := p.parseArgument()
			if arg == nil {
				break
			}
			children = append(children, arg)
		}
		if !p.at(lexer.TokenComma) {
			break
		}
		p.advance()
	}
	if !p.at(closeKind) {
		children = append(children, p.errorUntil(closeKind, lexer.TokenSemi, lexer.TokenLBrace, lexer.TokenRBrace))
	}
	children = append(children, p.expect(closeKind, closeText))
	return p.node(kind, start, children...)
}

func (p *parser) parseArgumentOrMissing() *backend.RawNode {
	if arg := p.parseArgument(); arg != nil {
		return arg
	}
	return p.missing("expression", true)
}

// parseArgument parses `name: ref expr`, including `out var x` declarations.
func (p *parser) parseArgument() *backend.RawNode {
	start := p.pos
	var parts []*backend.RawNode
	if p.at(lexer.TokenIdentifier) && p.peekIs(1, lexer.TokenColon) {
		nameStart := p.pos
		id := p.parseIdentifier()
		p.advance()
		parts = append(parts, p.node("name_colon", nameStart, id))
	}
	if p.at(lexer.TokenKwRef) || p.at(lexer.TokenKwOut) || p.at(lexer.TokenKwIn) {
		p.advance()
		if decl := p.tryParseDeclarationExpression(); decl != nil {
			parts = append(parts, decl)
			return p.node("argument", start, parts...)
		}
	}
	expr := p.parseExpression()
	if expr == nil {
		if len(parts) == 0 && p.pos == start {
			return nil
		}
		expr = p.missing("expression", true)
	}
	parts = append(parts, expr)
	return p.node("argument", start, parts...)
}

func (p *parser) tryParseDeclarationExpression() *backend.RawNode {
	start := p.pos
	typ := p.parseType()
	if typ == nil || !p.at(lexer.TokenIdentifier) {
		p.pos = start
		return nil
	}
	switch p.peek(1).Kind {
	case lexer.TokenComma, lexer.TokenRParen:
	default:
		p.pos = start
		return nil
	}
	return p.node("declaration_expression", start, typ, p.parseIdentifier())
}
