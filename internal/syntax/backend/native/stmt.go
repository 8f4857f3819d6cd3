package native

import (
	"github.com/kpumuk/metacheck/internal/lexer"
	"github.com/kpumuk/metacheck/internal/syntax/backend"
)

func (p *parser) parseBlock() *backend.RawNode {
	start := p.pos
	if !p.at(lexer.TokenLBrace) {
		return p.missing("block", true)
	}
	p.advance()
	var stmts []*backend.RawNode
	for !p.at(lexer.TokenRBrace) && !p.at(lexer.TokenEOF) && !p.canceled() {
		before := p.pos
		if stmt := p.parseStatement(); stmt != nil {
			stmts = append(stmts, stmt)
		}
		if p.pos == before {
			stmts = append(stmts, p.skipToken())
		}
	}
	stmts = append(stmts, p.expect(lexer.TokenRBrace, "}"))
	return p.node("block", start, stmts...)
}

func (p *parser) parseEmbeddedStatement() *backend.RawNode {
	if stmt := p.parseStatement(); stmt != nil {
		return stmt
	}
	return p.missing("statement", true)
}

// parseStatement returns nil without consuming tokens when no statement starts here.
func (p *parser) parseStatement() *backend.RawNode {
	start := p.pos
	switch p.kind() {
	case lexer.TokenLBrace:
		return p.parseBlock()
	case lexer.TokenSemi:
		p.advance()
		return p.node("empty_statement", start)
	case lexer.TokenKwIf:
		return p.parseIf()
	case lexer.TokenKwReturn:
		p.advance()
		var expr *backend.RawNode
		if !p.at(lexer.TokenSemi) {
			expr = p.parseExpression()
		}
		return p.node("return_statement", start, expr, p.expect(lexer.TokenSemi, ";"))
	case lexer.TokenKwThrow:
		p.advance()
		var expr *backend.RawNode
		if !p.at(lexer.TokenSemi) {
			expr = p.parseExpression()
		}
		return p.node("throw_statement", start, expr, p.expect(lexer.TokenSemi, ";"))
	case lexer.TokenKwBreak:
		p.advance()
		return p.node("break_statement", start, p.expect(lexer.TokenSemi, ";"))
	case lexer.TokenKwContinue:
		p.advance()
		return p.node("continue_statement", start, p.expect(lexer.TokenSemi, ";"))
	case lexer.TokenKwGoto:
		p.advance()
		if p.at(lexer.TokenKwCase) || p.at(lexer.TokenKwDefault) {
			p.advance()
		}
		var target *backend.RawNode
		if !p.at(lexer.TokenSemi) {
			target = p.parseExpression()
		}
		return p.node("goto_statement", start, target, p.expect(lexer.TokenSemi, ";"))
	case lexer.TokenKwWhile:
		p.advance()
		cond := p.parseParenthesizedCondition()
		return p.node("while_statement", start, append(cond, p.parseEmbeddedStatement())...)
	case lexer.TokenKwDo:
		p.advance()
		body := p.parseEmbeddedStatement()
		whileTok := p.expect(lexer.TokenKwWhile, "while")
		cond := p.parseParenthesizedCondition()
		children := append([]*backend.RawNode{body, whileTok}, cond...)
		children = append(children, p.expect(lexer.TokenSemi, ";"))
		return p.node("do_statement", start, children...)
	case lexer.TokenKwFor:
		return p.parseFor()
	case lexer.TokenKwForeach:
		return p.parseForeach(start)
	case lexer.TokenKwTry:
		return p.parseTry()
	case lexer.TokenKwSwitch:
		return p.parseSwitchStatement()
	case lexer.TokenKwLock:
		p.advance()
		cond := p.parseParenthesizedCondition()
		return p.node("lock_statement", start, append(cond, p.parseEmbeddedStatement())...)
	case lexer.TokenKwChecked, lexer.TokenKwUnchecked:
		if p.peekIs(1, lexer.TokenLBrace) {
			p.advance()
			return p.node("checked_statement", start, p.parseBlock())
		}
	case lexer.TokenKwUnsafe:
		if p.peekIs(1, lexer.TokenLBrace) {
			p.advance()
			return p.node("unsafe_statement", start, p.parseBlock())
		}
	case lexer.TokenKwFixed:
		p.advance()
		open := p.expect(lexer.TokenLParen, "(")
		decl := p.parseLocalVariableDeclaration()
		closeTok := p.expect(lexer.TokenRParen, ")")
		return p.node("fixed_statement", start, open, decl, closeTok, p.parseEmbeddedStatement())
	case lexer.TokenKwUsing:
		return p.parseUsingStatement(start)
	case lexer.TokenKwConst:
		return p.parseLocalDeclarationStatement(start)
	case lexer.TokenIdentifier:
		switch {
		case p.atWord(0, "yield") && (p.peekIs(1, lexer.TokenKwReturn) || p.peekIs(1, lexer.TokenKwBreak)):
			p.advance()
			isReturn := p.at(lexer.TokenKwReturn)
			p.advance()
			var expr *backend.RawNode
			if isReturn {
				expr = p.parseExpressionOrMissing()
			}
			return p.node("yield_statement", start, expr, p.expect(lexer.TokenSemi, ";"))
		case p.peekIs(1, lexer.TokenColon):
			label := p.parseIdentifier()
			p.advance()
			return p.node("labeled_statement", start, label, p.parseEmbeddedStatement())
		case p.atWord(0, "await") && p.peekIs(1, lexer.TokenKwUsing):
			p.advance()
			return p.parseUsingStatement(start)
		case p.atWord(0, "await") && p.peekIs(1, lexer.TokenKwForeach):
			p.advance()
			return p.parseForeach(start)
		}
	}

	if p.looksLikeLocalFunction() {
		return p.parseLocalFunction(start)
	}
	if p.looksLikeLocalDeclaration() {
		return p.parseLocalDeclarationStatement(start)
	}
	if !p.startsExpression() {
		return nil
	}
	expr := p.parseExpression()
	if expr == nil {
		return nil
	}
	return p.node("expression_statement", start, expr, p.expect(lexer.TokenSemi, ";"))
}

func (p *parser) parseIf() *backend.RawNode {
	start := p.pos
	p.advance() // if
	children := p.parseParenthesizedCondition()
	children = append(children, p.parseEmbeddedStatement())
	if p.at(lexer.TokenKwElse) {
		p.advance()
		children = append(children, p.parseEmbeddedStatement())
	}
	return p.node("if_statement", start, children...)
}

// parseParenthesizedCondition parses `( expr )`, reporting missing parts.
func (p *parser) parseParenthesizedCondition() []*backend.RawNode {
	open := p.expect(lexer.TokenLParen, "(")
	expr := p.parseExpressionOrMissing()
	var junk *backend.RawNode
	if !p.at(lexer.TokenRParen) {
		junk = p.errorUntil(lexer.TokenRParen, lexer.TokenLBrace, lexer.TokenSemi, lexer.TokenRBrace)
	}
	return []*backend.RawNode{open, expr, junk, p.expect(lexer.TokenRParen, ")")}
}

func (p *parser) parseFor() *backend.RawNode {
	start := p.pos
	p.advance() // for
	children := []*backend.RawNode{p.expect(lexer.TokenLParen, "(")}
	if !p.at(lexer.TokenSemi) {
		if p.looksLikeLocalDeclaration() {
			children = append(children, p.parseLocalVariableDeclaration())
		} else {
			children = append(children, p.parseExpressionList(lexer.TokenSemi)...)
		}
	}
	children = append(children, p.expect(lexer.TokenSemi, ";"))
	if !p.at(lexer.TokenSemi) {
		children = append(children, p.parseExpressionOrMissing())
	}
	children = append(children, p.expect(lexer.TokenSemi, ";"))
	if !p.at(lexer.TokenRParen) {
		children = append(children, p.parseExpressionList(lexer.TokenRParen)...)
	}
	children = append(children, p.expect(lexer.TokenRParen, ")"), p.parseEmbeddedStatement())
	return p.node("for_statement", start, children...)
}

func (p *parser) parseExpressionList(stop lexer.TokenKind) []*backend.RawNode {
	var out []*backend.RawNode
	for !p.at(stop) && !p.at(lexer.TokenEOF) {
		expr := p.parseExpression()
		if expr == nil {
			break
		}
		out = append(out, expr)
		if !p.at(lexer.TokenComma) {
			break
		}
		p.advance()
	}
	return out
}

func (p *parser) parseForeach(start int) *backend.RawNode {
	p.advance() // foreach
	children := []*backend.RawNode{p.expect(lexer.TokenLParen, "(")}
	children = append(children, p.parseTypeOrMissing())
	switch {
	case p.at(lexer.TokenIdentifier):
		children = append(children, p.parseIdentifier())
	case p.at(lexer.TokenLParen):
		tupleStart := p.pos
		p.skipBalanced(lexer.TokenLParen, lexer.TokenRParen)
		children = append(children, p.node("tuple_pattern", tupleStart))
	default:
		children = append(children, p.missing("identifier", true))
	}
	children = append(children, p.expect(lexer.TokenKwIn, "in"), p.parseExpressionOrMissing(),
		p.expect(lexer.TokenRParen, ")"), p.parseEmbeddedStatement())
	return p.node("foreach_statement", start, children...)
}

func (p *parser) parseTry() *backend.RawNode {
	start := p.pos
	p.advance() // try
	children := []*backend.RawNode{p.parseBlock()}
	for p.at(lexer.TokenKwCatch) {
		catchStart := p.pos
		p.advance()
		var parts []*backend.RawNode
		if p.at(lexer.TokenLParen) {
			declStart := p.pos
			p.advance()
			decl := []*backend.RawNode{p.parseTypeOrMissing()}
			if p.at(lexer.TokenIdentifier) {
				decl = append(decl, p.parseIdentifier())
			}
			decl = append(decl, p.expect(lexer.TokenRParen, ")"))
			parts = append(parts, p.node("catch_declaration", declStart, decl...))
		}
		if p.atWord(0, "when") {
			filterStart := p.pos
			p.advance()
			parts = append(parts, p.node("catch_filter_clause", filterStart, p.parseParenthesizedCondition()...))
		}
		parts = append(parts, p.parseBlock())
		children = append(children, p.node("catch_clause", catchStart, parts...))
	}
	if p.at(lexer.TokenKwFinally) {
		finallyStart := p.pos
		p.advance()
		children = append(children, p.node("finally_clause", finallyStart, p.parseBlock()))
	}
	return p.node("try_statement", start, children...)
}

func (p *parser) parseSwitchStatement() *backend.RawNode {
	start := p.pos
	p.advance() // switch
	children := p.parseParenthesizedCondition()
	bodyStart := p.pos
	if !p.at(lexer.TokenLBrace) {
		children = append(children, p.missing("switch_body", true))
		return p.node("switch_statement", start, children...)
	}
	p.advance()
	var sections []*backend.RawNode
	for !p.at(lexer.TokenRBrace) && !p.at(lexer.TokenEOF) && !p.canceled() {
		if !p.at(lexer.TokenKwCase) && !p.at(lexer.TokenKwDefault) {
			sections = append(sections, p.skipToken())
			continue
		}
		sectionStart := p.pos
		var parts []*backend.RawNode
		for p.at(lexer.TokenKwCase) || (p.at(lexer.TokenKwDefault) && p.peekIs(1, lexer.TokenColon)) {
			labelStart := p.pos
			if p.at(lexer.TokenKwDefault) {
				p.advance()
				p.advance()
				parts = append(parts, p.node("default_switch_label", labelStart))
				continue
			}
			p.advance() // case
			label := []*backend.RawNode{p.parsePattern()}
			if p.atWord(0, "when") {
				whenStart := p.pos
				p.advance()
				label = append(label, p.node("when_clause", whenStart, p.parseExpressionOrMissing()))
			}
			label = append(label, p.expect(lexer.TokenColon, ":"))
			parts = append(parts, p.node("case_switch_label", labelStart, label...))
		}
		for !p.at(lexer.TokenKwCase) && !(p.at(lexer.TokenKwDefault) && p.peekIs(1, lexer.TokenColon)) &&
			!p.at(lexer.TokenRBrace) && !p.at(lexer.TokenEOF) && !p.canceled() {
			before := p.pos
			if stmt := p.parseStatement(); stmt != nil {
				parts = append(parts, stmt)
			}
			if p.pos == before {
				parts = append(parts, p.skipToken())
			}
		}
		sections = append(sections, p.node("switch_section", sectionStart, parts...))
	}
	sections = append(sections, p.expect(lexer.TokenRBrace, "}"))
	children = append(children, p.node("switch_body", bodyStart, sections...))
	return p.node("switch_statement", start, children...)
}

func (p *parser) parseUsingStatement(start int) *backend.RawNode {
	p.advance() // using
	if !p.at(lexer.TokenLParen) {
		decl := p.parseLocalVariableDeclaration()
		return p.node("local_declaration_statement", start, decl, p.expect(lexer.TokenSemi, ";"))
	}
	p.advance()
	var resource *backend.RawNode
	if p.looksLikeLocalDeclaration() {
		resource = p.parseLocalVariableDeclaration()
	} else {
		resource = p.parseExpressionOrMissing()
	}
	closeTok := p.expect(lexer.TokenRParen, ")")
	return p.node("using_statement", start, resource, closeTok, p.parseEmbeddedStatement())
}

func (p *parser) parseLocalDeclarationStatement(start int) *backend.RawNode {
	var mods []*backend.RawNode
	for p.at(lexer.TokenKwConst) || p.at(lexer.TokenKwStatic) || (p.at(lexer.TokenKwReadonly)) || p.atWord(0, "scoped") {
		mods = append(mods, p.leaf("modifier"))
	}
	if p.at(lexer.TokenKwRef) {
		p.advance()
	}
	decl := p.parseLocalVariableDeclaration()
	children := append(mods, decl, p.expect(lexer.TokenSemi, ";"))
	return p.node("local_declaration_statement", start, children...)
}

func (p *parser) parseLocalVariableDeclaration() *backend.RawNode {
	typ := p.parseTypeOrMissing()
	var name *backend.RawNode
	if p.at(lexer.TokenIdentifier) {
		name = p.parseIdentifier()
	} else {
		name = p.missing("identifier", true)
	}
	return p.parseVariableDeclarationFrom(typ, name)
}

// looksLikeLocalDeclaration speculatively parses `Type name` followed by a
// declarator continuation.
func (p *parser) looksLikeLocalDeclaration() bool {
	save := p.pos
	defer func() { p.pos = save }()

	if p.atWord(0, "await") || p.atWord(0, "yield") || p.atWord(0, "nameof") {
		return false
	}
	if p.at(lexer.TokenKwRef) || p.atWord(0, "scoped") {
		p.advance()
	}
	if p.parseType() == nil || !p.at(lexer.TokenIdentifier) {
		return false
	}
	name := p.peek(0)
	switch p.peek(1).Kind {
	case lexer.TokenEqual, lexer.TokenSemi, lexer.TokenComma, lexer.TokenKwIn, lexer.TokenRParen:
		return true
	case lexer.TokenLBracket:
		return true
	}
	return name.TrailingEndsLine()
}

func (p *parser) looksLikeLocalFunction() bool {
	save := p.pos
	defer func() { p.pos = save }()

	for p.at(lexer.TokenKwStatic) || p.at(lexer.TokenKwUnsafe) || p.atWord(0, "async") {
		p.advance()
	}
	if p.atWord(0, "await") || p.parseType() == nil || !p.at(lexer.TokenIdentifier) {
		return false
	}
	p.advance()
	if p.at(lexer.TokenLess) {
		if p.tryParseTypeArgumentList() == nil {
			return false
		}
	}
	if !p.at(lexer.TokenLParen) {
		return false
	}
	p.skipBalanced(lexer.TokenLParen, lexer.TokenRParen)
	return p.at(lexer.TokenLBrace) || p.at(lexer.TokenArrow) || p.atWord(0, "where")
}

func (p *parser) parseLocalFunction(start int) *backend.RawNode {
	var children []*backend.RawNode
	for p.at(lexer.TokenKwStatic) || p.at(lexer.TokenKwUnsafe) || p.atWord(0, "async") {
		children = append(children, p.leaf("modifier"))
	}
	children = append(children, p.parseTypeOrMissing(), p.parseIdentifier())
	if p.at(lexer.TokenLess) {
		children = append(children, p.parseTypeParameterList())
	}
	children = append(children, p.parseParameterList())
	children = append(children, p.parseConstraintClauses()...)
	children = append(children, p.parseBody()...)
	return p.node("local_function_statement", start, children...)
}
