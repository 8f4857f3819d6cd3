package native

import (
	"github.com/kpumuk/metacheck/internal/lexer"
	"github.com/kpumuk/metacheck/internal/syntax/backend"
)

var contextualModifiers = map[string]bool{
	"async":    true,
	"partial":  true,
	"required": true,
	"file":     true,
}

// parseMember parses one namespace or type member. At top level it also
// accepts using directives and global statements.
func (p *parser) parseMember(topLevel bool) *backend.RawNode {
	start := p.pos

	if topLevel {
		switch {
		case p.at(lexer.TokenKwUsing) && !p.peekIs(1, lexer.TokenLParen):
			return p.parseUsingDirective(start)
		case p.atWord(0, "global") && p.peekIs(1, lexer.TokenKwUsing):
			p.advance()
			return p.parseUsingDirective(start)
		case p.at(lexer.TokenKwExtern) && p.atWord(1, "alias"):
			p.advance()
			p.advance()
			id := p.parseIdentifier()
			semi := p.expect(lexer.TokenSemi, ";")
			return p.node("extern_alias_directive", start, id, semi)
		}
	}

	var head []*backend.RawNode
	for p.at(lexer.TokenLBracket) {
		head = append(head, p.parseAttributeList())
	}
	for p.atModifier() {
		head = append(head, p.leaf("modifier"))
	}

	switch {
	case p.at(lexer.TokenKwNamespace):
		return p.parseNamespace(start, head)
	case p.at(lexer.TokenKwClass):
		return p.parseTypeDeclaration(start, head, "class_declaration")
	case p.at(lexer.TokenKwStruct):
		return p.parseTypeDeclaration(start, head, "struct_declaration")
	case p.at(lexer.TokenKwInterface):
		return p.parseTypeDeclaration(start, head, "interface_declaration")
	case p.atWord(0, "record") && (p.peekIs(1, lexer.TokenIdentifier) || p.peekIs(1, lexer.TokenKwClass) || p.peekIs(1, lexer.TokenKwStruct)):
		if p.peekIs(1, lexer.TokenKwStruct) {
			p.advance()
			return p.parseTypeDeclaration(start, head, "record_struct_declaration")
		}
		if p.peekIs(1, lexer.TokenKwClass) {
			p.advance()
		}
		return p.parseTypeDeclaration(start, head, "record_declaration")
	case p.at(lexer.TokenKwEnum):
		return p.parseEnumDeclaration(start, head)
	case p.at(lexer.TokenKwDelegate) && !p.peekIs(1, lexer.TokenLParen) && !p.peekIs(1, lexer.TokenLBrace):
		return p.parseDelegateDeclaration(start, head)
	case p.at(lexer.TokenKwEvent):
		return p.parseEventDeclaration(start, head)
	case p.at(lexer.TokenTilde):
		p.advance()
		head = append(head, p.parseIdentifier(), p.parseParameterList())
		head = append(head, p.parseBody()...)
		return p.node("destructor_declaration", start, head...)
	case p.at(lexer.TokenKwImplicit) || p.at(lexer.TokenKwExplicit):
		p.advance()
		head = append(head, p.expect(lexer.TokenKwOperator, "operator"), p.parseTypeOrMissing(), p.parseParameterList())
		head = append(head, p.parseBody()...)
		return p.node("conversion_operator_declaration", start, head...)
	case p.at(lexer.TokenIdentifier) && p.peekIs(1, lexer.TokenLParen) && !topLevel:
		return p.parseConstructor(start, head)
	}

	if topLevel && len(head) == 0 {
		if stmt := p.parseStatement(); stmt != nil {
			return p.node("global_statement", start, stmt)
		}
		return p.skipToken()
	}

	typ := p.parseType()
	if typ == nil {
		if len(head) > 0 {
			head = append(head, p.errorUntil(lexer.TokenSemi, lexer.TokenRBrace, lexer.TokenLBrace))
			if p.at(lexer.TokenSemi) {
				p.advance()
			}
			n := p.node("ERROR", start, head...)
			n.IsError = true
			return n
		}
		return p.skipToken()
	}
	head = append(head, typ)

	switch {
	case p.at(lexer.TokenKwOperator):
		p.advance()
		for !p.at(lexer.TokenLParen) && !p.at(lexer.TokenEOF) && !p.at(lexer.TokenLBrace) {
			p.advance()
		}
		head = append(head, p.parseParameterList())
		head = append(head, p.parseBody()...)
		return p.node("operator_declaration", start, head...)
	case p.at(lexer.TokenKwThis) && p.peekIs(1, lexer.TokenLBracket):
		p.advance()
		head = append(head, p.parseBracketedParameterList())
		head = append(head, p.parsePropertyBody()...)
		return p.node("indexer_declaration", start, head...)
	}

	if !p.at(lexer.TokenIdentifier) {
		head = append(head, p.missing("identifier", true))
		head = append(head, p.errorUntil(lexer.TokenSemi, lexer.TokenRBrace))
		head = append(head, p.expect(lexer.TokenSemi, ";"))
		return p.node("field_declaration", start, head...)
	}

	typIndex := len(head) - 1
	nameStart := p.pos
	name := p.parseIdentifier()
	for p.at(lexer.TokenDot) && p.peekIs(1, lexer.TokenIdentifier) {
		p.advance()
		head = append(head, p.node("explicit_interface_specifier", nameStart, name))
		nameStart = p.pos
		name = p.parseIdentifier()
	}

	switch {
	case p.at(lexer.TokenLParen) || p.at(lexer.TokenLess):
		head = append(head, name)
		if p.at(lexer.TokenLess) {
			head = append(head, p.parseTypeParameterList())
		}
		head = append(head, p.parseParameterList())
		head = append(head, p.parseConstraintClauses()...)
		head = append(head, p.parseBody()...)
		return p.node("method_declaration", start, head...)
	case p.at(lexer.TokenLBrace) || p.at(lexer.TokenArrow):
		head = append(head, name)
		head = append(head, p.parsePropertyBody()...)
		return p.node("property_declaration", start, head...)
	}

	decl := p.parseVariableDeclarationFrom(typ, name)
	head = append(head[:typIndex], decl, p.expect(lexer.TokenSemi, ";"))
	return p.node("field_declaration", start, head...)
}

func (p *parser) atModifier() bool {
	k := p.kind()
	if k == lexer.TokenKwNew && (p.peekIs(1, lexer.TokenLParen) || p.peekIs(1, lexer.TokenLBracket) || p.peekIs(1, lexer.TokenLBrace)) {
		return false
	}
	if k.IsModifier() {
		return true
	}
	if k == lexer.TokenIdentifier && contextualModifiers[p.tokenText(0)] {
		next := p.peek(1).Kind
		return next == lexer.TokenIdentifier || next.IsKeyword()
	}
	return false
}

func (p *parser) parseUsingDirective(start int) *backend.RawNode {
	p.advance() // using
	var children []*backend.RawNode
	if p.at(lexer.TokenKwStatic) {
		p.advance()
	}
	if p.at(lexer.TokenIdentifier) && p.peekIs(1, lexer.TokenEqual) {
		children = append(children, p.parseIdentifier())
		p.advance()
		children = append(children, p.parseTypeOrMissing())
	} else {
		children = append(children, p.parseNameOrMissing())
	}
	children = append(children, p.expect(lexer.TokenSemi, ";"))
	return p.node("using_directive", start, children...)
}

func (p *parser) parseNamespace(start int, head []*backend.RawNode) *backend.RawNode {
	p.advance() // namespace
	head = append(head, p.parseNameOrMissing())
	if p.at(lexer.TokenSemi) {
		p.advance()
		return p.node("file_scoped_namespace_declaration", start, head...)
	}
	head = append(head, p.parseDeclarationList())
	if p.at(lexer.TokenSemi) {
		p.advance()
	}
	return p.node("namespace_declaration", start, head...)
}

func (p *parser) parseTypeDeclaration(start int, head []*backend.RawNode, kind string) *backend.RawNode {
	record := kind == "record_declaration" || kind == "record_struct_declaration"
	p.advance() // class | struct | interface | record
	head = append(head, p.parseIdentifier())
	if p.at(lexer.TokenLess) {
		head = append(head, p.parseTypeParameterList())
	}
	if record && p.at(lexer.TokenLParen) {
		head = append(head, p.parseParameterList())
	}
	if p.at(lexer.TokenColon) {
		head = append(head, p.parseBaseList())
	}
	head = append(head, p.parseConstraintClauses()...)
	if record && p.at(lexer.TokenSemi) {
		p.advance()
		return p.node(kind, start, head...)
	}
	head = append(head, p.parseDeclarationList())
	if p.at(lexer.TokenSemi) {
		p.advance()
	}
	return p.node(kind, start, head...)
}

func (p *parser) parseDeclarationList() *backend.RawNode {
	start := p.pos
	if !p.at(lexer.TokenLBrace) {
		return p.missing("declaration_list", true)
	}
	p.advance()
	var members []*backend.RawNode
	for !p.at(lexer.TokenRBrace) && !p.at(lexer.TokenEOF) && !p.canceled() {
		before := p.pos
		members = append(members, p.parseMember(false))
		if p.pos == before {
			members = append(members, p.skipToken())
		}
	}
	members = append(members, p.expect(lexer.TokenRBrace, "}"))
	return p.node("declaration_list", start, members...)
}

func (p *parser) parseBaseList() *backend.RawNode {
	start := p.pos
	p.advance() // :
	var children []*backend.RawNode
	for {
		typ := p.parseTypeOrMissing()
		if p.at(lexer.TokenLParen) {
			args := p.parseArgumentList()
			typ = &backend.RawNode{
				Kind: "primary_constructor_base_type", IsNamed: true,
				StartByte: typ.StartByte, EndByte: args.EndByte,
				Children: []*backend.RawNode{typ, args}, HasError: typ.HasError || args.HasError,
			}
		}
		children = append(children, typ)
		if !p.at(lexer.TokenComma) {
			break
		}
		p.advance()
	}
	return p.node("base_list", start, children...)
}

func (p *parser) parseConstraintClauses() []*backend.RawNode {
	var out []*backend.RawNode
	for p.atWord(0, "where") {
		start := p.pos
		for !p.at(lexer.TokenEOF) && !p.atAny(lexer.TokenLBrace, lexer.TokenSemi, lexer.TokenArrow) {
			if p.pos > start && p.atWord(0, "where") {
				break
			}
			p.advance()
		}
		out = append(out, p.node("type_parameter_constraints_clause", start))
	}
	return out
}

func (p *parser) parseTypeParameterList() *backend.RawNode {
	start := p.pos
	p.advance() // <
	var children []*backend.RawNode
	for !p.at(lexer.TokenGreater) && !p.at(lexer.TokenEOF) {
		paramStart := p.pos
		var parts []*backend.RawNode
		for p.at(lexer.TokenLBracket) {
			parts = append(parts, p.parseAttributeList())
		}
		if p.at(lexer.TokenKwIn) || p.at(lexer.TokenKwOut) {
			p.advance()
		}
		parts = append(parts, p.parseIdentifier())
		children = append(children, p.node("type_parameter", paramStart, parts...))
		if !p.at(lexer.TokenComma) {
			break
		}
		p.advance()
	}
	children = append(children, p.expect(lexer.TokenGreater, ">"))
	return p.node("type_parameter_list", start, children...)
}

func (p *parser) parseEnumDeclaration(start int, head []*backend.RawNode) *backend.RawNode {
	p.advance() // enum
	head = append(head, p.parseIdentifier())
	if p.at(lexer.TokenColon) {
		head = append(head, p.parseBaseList())
	}
	listStart := p.pos
	if !p.at(lexer.TokenLBrace) {
		head = append(head, p.missing("enum_member_declaration_list", true))
		return p.node("enum_declaration", start, head...)
	}
	p.advance()
	var members []*backend.RawNode
	for !p.at(lexer.TokenRBrace) && !p.at(lexer.TokenEOF) {
		memberStart := p.pos
		var parts []*backend.RawNode
		for p.at(lexer.TokenLBracket) {
			parts = append(parts, p.parseAttributeList())
		}
		if !p.at(lexer.TokenIdentifier) {
			members = append(members, p.skipToken())
			continue
		}
		parts = append(parts, p.parseIdentifier())
		if p.at(lexer.TokenEqual) {
			p.advance()
			parts = append(parts, p.parseExpressionOrMissing())
		}
		members = append(members, p.node("enum_member_declaration", memberStart, parts...))
		if !p.at(lexer.TokenComma) {
			break
		}
		p.advance()
	}
	members = append(members, p.expect(lexer.TokenRBrace, "}"))
	head = append(head, p.node("enum_member_declaration_list", listStart, members...))
	if p.at(lexer.TokenSemi) {
		p.advance()
	}
	return p.node("enum_declaration", start, head...)
}

func (p *parser) parseDelegateDeclaration(start int, head []*backend.RawNode) *backend.RawNode {
	p.advance() // delegate
	head = append(head, p.parseTypeOrMissing(), p.parseIdentifier())
	if p.at(lexer.TokenLess) {
		head = append(head, p.parseTypeParameterList())
	}
	head = append(head, p.parseParameterList())
	head = append(head, p.parseConstraintClauses()...)
	head = append(head, p.expect(lexer.TokenSemi, ";"))
	return p.node("delegate_declaration", start, head...)
}

func (p *parser) parseEventDeclaration(start int, head []*backend.RawNode) *backend.RawNode {
	p.advance() // event
	typ := p.parseTypeOrMissing()
	if p.at(lexer.TokenIdentifier) && (p.peekIs(1, lexer.TokenLBrace) || p.peekIs(1, lexer.TokenDot)) {
		head = append(head, typ, p.parseIdentifier())
		for p.at(lexer.TokenDot) {
			p.advance()
			head = append(head, p.parseIdentifier())
		}
		head = append(head, p.parseAccessorList())
		return p.node("event_declaration", start, head...)
	}
	var name *backend.RawNode
	if p.at(lexer.TokenIdentifier) {
		name = p.parseIdentifier()
	} else {
		name = p.missing("identifier", true)
	}
	head = append(head, p.parseVariableDeclarationFrom(typ, name), p.expect(lexer.TokenSemi, ";"))
	return p.node("event_field_declaration", start, head...)
}

func (p *parser) parseConstructor(start int, head []*backend.RawNode) *backend.RawNode {
	head = append(head, p.parseIdentifier(), p.parseParameterList())
	if p.at(lexer.TokenColon) {
		initStart := p.pos
		p.advance()
		if p.at(lexer.TokenKwBase) || p.at(lexer.TokenKwThis) {
			p.advance()
		}
		args := p.parseArgumentList()
		head = append(head, p.node("constructor_initializer", initStart, args))
	}
	head = append(head, p.parseBody()...)
	return p.node("constructor_declaration", start, head...)
}

// parseBody parses a block, an expression body followed by ';', or a bare ';'.
func (p *parser) parseBody() []*backend.RawNode {
	switch {
	case p.at(lexer.TokenLBrace):
		return []*backend.RawNode{p.parseBlock()}
	case p.at(lexer.TokenArrow):
		arrow := p.parseArrowClause()
		return []*backend.RawNode{arrow, p.expect(lexer.TokenSemi, ";")}
	case p.at(lexer.TokenSemi):
		p.advance()
		return nil
	default:
		return []*backend.RawNode{p.missing("block", true)}
	}
}

func (p *parser) parseArrowClause() *backend.RawNode {
	start := p.pos
	p.advance() // =>
	return p.node("arrow_expression_clause", start, p.parseExpressionOrMissing())
}

func (p *parser) parsePropertyBody() []*backend.RawNode {
	switch {
	case p.at(lexer.TokenArrow):
		return []*backend.RawNode{p.parseArrowClause(), p.expect(lexer.TokenSemi, ";")}
	case p.at(lexer.TokenLBrace):
		out := []*backend.RawNode{p.parseAccessorList()}
		if p.at(lexer.TokenEqual) {
			p.advance()
			out = append(out, p.parseExpressionOrMissing(), p.expect(lexer.TokenSemi, ";"))
		}
		return out
	default:
		return []*backend.RawNode{p.missing("accessor_list", true)}
	}
}

func (p *parser) parseAccessorList() *backend.RawNode {
	start := p.pos
	if !p.at(lexer.TokenLBrace) {
		return p.missing("accessor_list", true)
	}
	p.advance()
	var accessors []*backend.RawNode
	for !p.at(lexer.TokenRBrace) && !p.at(lexer.TokenEOF) && !p.canceled() {
		accStart := p.pos
		var parts []*backend.RawNode
		for p.at(lexer.TokenLBracket) {
			parts = append(parts, p.parseAttributeList())
		}
		for p.atModifier() {
			parts = append(parts, p.leaf("modifier"))
		}
		if !p.at(lexer.TokenIdentifier) {
			accessors = append(accessors, p.skipToken())
			continue
		}
		p.advance() // get | set | init | add | remove
		parts = append(parts, p.parseBody()...)
		accessors = append(accessors, p.node("accessor_declaration", accStart, parts...))
	}
	accessors = append(accessors, p.expect(lexer.TokenRBrace, "}"))
	return p.node("accessor_list", start, accessors...)
}

func (p *parser) parseParameterList() *backend.RawNode {
	return p.parseParameters(lexer.TokenLParen, lexer.TokenRParen, "parameter_list", ")")
}

func (p *parser) parseBracketedParameterList() *backend.RawNode {
	return p.parseParameters(lexer.TokenLBracket, lexer.TokenRBracket, "bracketed_parameter_list", "]")
}

func (p *parser) parseParameters(open, closeKind lexer.TokenKind, kind, closeText string) *backend.RawNode {
	start := p.pos
	if !p.at(open) {
		return p.missing(kind, true)
	}
	p.advance()
	var children []*backend.RawNode
	for !p.at(closeKind) && !p.at(lexer.TokenEOF) && !p.at(lexer.TokenLBrace) && !p.at(lexer.TokenSemi) {
		before := p.pos
		children = append(children, p.parseParameter())
		if p.pos == before {
			children = append(children, p.skipToken())
		}
		if !p.at(lexer.TokenComma) {
			break
		}
		p.advance()
	}
	if !p.at(closeKind) {
		children = append(children, p.errorUntil(closeKind, lexer.TokenLBrace, lexer.TokenSemi, lexer.TokenArrow))
	}
	children = append(children, p.expect(closeKind, closeText))
	return p.node(kind, start, children...)
}

var parameterModifiers = map[lexer.TokenKind]bool{
	lexer.TokenKwRef:      true,
	lexer.TokenKwOut:      true,
	lexer.TokenKwIn:       true,
	lexer.TokenKwThis:     true,
	lexer.TokenKwParams:   true,
	lexer.TokenKwReadonly: true,
}

func (p *parser) parseParameter() *backend.RawNode {
	start := p.pos
	var parts []*backend.RawNode
	for p.at(lexer.TokenLBracket) {
		parts = append(parts, p.parseAttributeList())
	}
	for parameterModifiers[p.kind()] || (p.atWord(0, "scoped") && p.peekIs(1, lexer.TokenIdentifier)) {
		parts = append(parts, p.leaf("modifier"))
	}
	if p.at(lexer.TokenIdentifier) && (p.peekIs(1, lexer.TokenComma) || p.peekIs(1, lexer.TokenRParen)) {
		// Implicitly typed lambda parameter.
		parts = append(parts, p.parseIdentifier())
		return p.node("parameter", start, parts...)
	}
	typ := p.parseType()
	if typ == nil {
		return p.node("parameter", start, parts...)
	}
	parts = append(parts, typ)
	if p.at(lexer.TokenIdentifier) {
		parts = append(parts, p.parseIdentifier())
	} else {
		parts = append(parts, p.missing("identifier", true))
	}
	if p.at(lexer.TokenEqual) {
		p.advance()
		parts = append(parts, p.parseExpressionOrMissing())
	}
	return p.node("parameter", start, parts...)
}

func (p *parser) parseAttributeList() *backend.RawNode {
	start := p.pos
	p.advance() // [
	var children []*backend.RawNode
	if (p.at(lexer.TokenIdentifier) || p.kind().IsKeyword()) && p.peekIs(1, lexer.TokenColon) {
		targetStart := p.pos
		p.advance()
		p.advance()
		children = append(children, p.node("attribute_target_specifier", targetStart))
	}
	for !p.at(lexer.TokenRBracket) && !p.at(lexer.TokenEOF) {
		attrStart := p.pos
		name := p.parseNameOrMissing()
		parts := []*backend.RawNode{name}
		if p.at(lexer.TokenLParen) {
			parts = append(parts, p.parseAttributeArgumentList())
		}
		children = append(children, p.node("attribute", attrStart, parts...))
		if !p.at(lexer.TokenComma) {
			break
		}
		p.advance()
	}
	if !p.at(lexer.TokenRBracket) {
		children = append(children, p.errorUntil(lexer.TokenRBracket, lexer.TokenLBrace, lexer.TokenSemi))
	}
	children = append(children, p.expect(lexer.TokenRBracket, "]"))
	return p.node("attribute_list", start, children...)
}

func (p *parser) parseAttributeArgumentList() *backend.RawNode {
	start := p.pos
	p.advance() // (
	var children []*backend.RawNode
	for !p.at(lexer.TokenRParen) && !p.at(lexer.TokenEOF) {
		argStart := p.pos
		var parts []*backend.RawNode
		if p.at(lexer.TokenIdentifier) && (p.peekIs(1, lexer.TokenEqual) || p.peekIs(1, lexer.TokenColon)) {
			nameStart := p.pos
			id := p.parseIdentifier()
			kind := "name_equals"
			if p.at(lexer.TokenColon) {
				kind = "name_colon"
			}
			p.advance()
			parts = append(parts, p.node(kind, nameStart, id))
		}
		parts = append(parts, p.parseExpressionOrMissing())
		children = append(children, p.node("attribute_argument", argStart, parts...))
		if !p.at(lexer.TokenComma) {
			break
		}
		p.advance()
	}
	children = append(children, p.expect(lexer.TokenRParen, ")"))
	return p.node("attribute_argument_list", start, children...)
}

// parseVariableDeclarationFrom builds a variable_declaration whose type and
// first declarator name are already parsed.
func (p *parser) parseVariableDeclarationFrom(typ, name *backend.RawNode) *backend.RawNode {
	typeStart := p.tokenIndexAt(typ.StartByte)
	declarators := []*backend.RawNode{p.finishDeclarator(p.tokenIndexAt(name.StartByte), name)}
	for p.at(lexer.TokenComma) {
		p.advance()
		declStart := p.pos
		var id *backend.RawNode
		if p.at(lexer.TokenIdentifier) {
			id = p.parseIdentifier()
		} else {
			id = p.missing("identifier", true)
		}
		declarators = append(declarators, p.finishDeclarator(declStart, id))
	}
	return p.node("variable_declaration", typeStart, append([]*backend.RawNode{typ}, declarators...)...)
}

func (p *parser) finishDeclarator(start int, name *backend.RawNode) *backend.RawNode {
	parts := []*backend.RawNode{name}
	if p.at(lexer.TokenLBracket) {
		parts = append(parts, p.parseBracketedArgumentList())
	}
	if p.at(lexer.TokenEqual) {
		p.advance()
		if p.at(lexer.TokenLBrace) {
			parts = append(parts, p.parseInitializer())
		} else {
			parts = append(parts, p.parseExpressionOrMissing())
		}
	}
	return p.node("variable_declarator", start, parts...)
}

// tokenIndexAt returns the index of the token starting at byte offset off,
// searching backwards from the current position.
func (p *parser) tokenIndexAt(off int) int {
	for i := p.pos; i >= 0; i-- {
		if i < len(p.toks) && int(p.toks[i].Span.Start) == off {
			return i
		}
		if i < len(p.toks) && int(p.toks[i].Span.Start) < off {
			return i + 1
		}
	}
	return 0
}

func (p *parser) parseIdentifier() *backend.RawNode {
	if !p.at(lexer.TokenIdentifier) {
		return p.missing("identifier", true)
	}
	return p.leaf("identifier")
}
