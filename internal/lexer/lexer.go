package lexer

import (
	"bytes"
	"fmt"
	"unicode"
	"unicode/utf8"

	"github.com/kpumuk/metacheck/internal/text"
)

// DiagnosticCode identifies lexer diagnostic categories.
type DiagnosticCode string

// DiagnosticCode values emitted by the lexer.
const (
	DiagnosticInvalidByte              DiagnosticCode = "LEX_INVALID_BYTE"
	DiagnosticUnknownCharacter         DiagnosticCode = "LEX_UNKNOWN_CHARACTER"
	DiagnosticUnterminatedString       DiagnosticCode = "LEX_UNTERMINATED_STRING"
	DiagnosticUnterminatedChar         DiagnosticCode = "LEX_UNTERMINATED_CHAR"
	DiagnosticUnterminatedBlockComment DiagnosticCode = "LEX_UNTERMINATED_BLOCK_COMMENT"
	DiagnosticInvalidNumber            DiagnosticCode = "LEX_INVALID_NUMBER"
)

const byteOrderMark = '\uFEFF'

// Diagnostic is a lexer-level issue with source location.
type Diagnostic struct {
	Code    DiagnosticCode
	Message string
	Span    text.Span
}

// Result is the output of lexing source bytes.
type Result struct {
	Tokens      []Token
	Diagnostics []Diagnostic
}

// Lex tokenizes src into a lossless token stream. Every byte of src is
// covered by exactly one token or trivia span, and the stream always ends
// with a TokenEOF.
func Lex(src []byte) Result {
	l := scanner{src: src}
	l.run()
	return Result{
		Tokens:      l.tokens,
		Diagnostics: l.diagnostics,
	}
}

type scanner struct {
	src         []byte
	i           int
	tokens      []Token
	diagnostics []Diagnostic
}

func (s *scanner) run() {
	for {
		leading, errTok := s.scanLeadingTrivia()
		if errTok != nil {
			errTok.Leading = leading
			errTok.Trailing = s.scanTrailingTrivia()
			s.tokens = append(s.tokens, *errTok)
			continue
		}

		if s.eof() {
			s.tokens = append(s.tokens, Token{
				Kind:    TokenEOF,
				Span:    span(len(s.src), len(s.src)),
				Leading: leading,
			})
			return
		}

		tok := s.scanToken()
		tok.Leading = leading
		tok.Trailing = s.scanTrailingTrivia()
		s.tokens = append(s.tokens, tok)
	}
}

func (s *scanner) scanLeadingTrivia() ([]Trivia, *Token) {
	var out []Trivia

	for !s.eof() {
		start := s.i
		switch b := s.src[s.i]; b {
		case ' ', '\t', '\v', '\f':
			out = append(out, s.scanWhitespace())
		case '\n', '\r':
			out = append(out, s.scanNewline())
		case '#':
			if !text.OnlySpaceBefore(s.src, text.ByteOffset(start)) {
				return out, nil
			}
			s.scanLineRest()
			out = append(out, Trivia{Kind: TriviaDirective, Span: span(start, s.i)})
		case '/':
			t, ok := s.scanComment()
			if !ok {
				return out, nil
			}
			out = append(out, t)
		default:
			if b >= utf8.RuneSelf {
				r, size := utf8.DecodeRune(s.src[s.i:])
				if r == utf8.RuneError && size == 1 {
					s.i++
					return out, s.makeErrorToken(start, s.i, DiagnosticInvalidByte, "invalid UTF-8 byte")
				}
				if r == byteOrderMark {
					s.i += size
					out = append(out, Trivia{Kind: TriviaWhitespace, Span: span(start, s.i)})
					continue
				}
			}
			return out, nil
		}
	}

	return out, nil
}

// scanTrailingTrivia consumes trivia following a token up to and including
// the first line terminator.
func (s *scanner) scanTrailingTrivia() []Trivia {
	var out []Trivia
	for !s.eof() {
		switch s.src[s.i] {
		case ' ', '\t', '\v', '\f':
			out = append(out, s.scanWhitespace())
		case '\n', '\r':
			return append(out, s.scanNewline())
		case '/':
			t, ok := s.scanComment()
			if !ok {
				return out
			}
			out = append(out, t)
		default:
			return out
		}
	}
	return out
}

func (s *scanner) scanWhitespace() Trivia {
	start := s.i
	for !s.eof() && isHorizontalSpace(s.src[s.i]) {
		s.i++
	}
	return Trivia{Kind: TriviaWhitespace, Span: span(start, s.i)}
}

func (s *scanner) scanNewline() Trivia {
	start := s.i
	if s.src[s.i] == '\r' {
		s.i++
		if !s.eof() && s.src[s.i] == '\n' {
			s.i++
		}
	} else {
		s.i++
	}
	return Trivia{Kind: TriviaNewline, Span: span(start, s.i)}
}

// scanComment scans a comment at s.i. It reports false without consuming
// anything when s.i does not start a comment.
func (s *scanner) scanComment() (Trivia, bool) {
	start := s.i
	switch s.peekByte(1) {
	case '/':
		kind := TriviaLineComment
		if s.peekByte(2) == '/' && s.peekByte(3) != '/' {
			kind = TriviaDocComment
		}
		s.i += 2
		s.scanLineRest()
		return Trivia{Kind: kind, Span: span(start, s.i)}, true
	case '*':
		kind := TriviaBlockComment
		if s.peekByte(2) == '*' && s.peekByte(3) != '/' {
			kind = TriviaDocComment
		}
		s.i += 2
		end := bytes.Index(s.src[s.i:], []byte("*/"))
		if end < 0 {
			s.i = len(s.src)
			s.diagnostics = append(s.diagnostics, Diagnostic{
				Code:    DiagnosticUnterminatedBlockComment,
				Message: "unterminated block comment",
				Span:    span(start, s.i),
			})
			return Trivia{Kind: kind, Span: span(start, s.i)}, true
		}
		s.i += end + 2
		return Trivia{Kind: kind, Span: span(start, s.i)}, true
	default:
		return Trivia{}, false
	}
}

func (s *scanner) scanLineRest() {
	for !s.eof() && s.src[s.i] != '\n' && s.src[s.i] != '\r' {
		s.i++
	}
}

func (s *scanner) scanToken() Token {
	start := s.i
	b := s.src[s.i]

	switch {
	case b == '@' && s.peekByte(1) != '"' && s.peekByte(1) != '$':
		s.i++
		if s.eof() || !s.atIdentStart() {
			return *s.makeErrorToken(start, s.i, DiagnosticUnknownCharacter, "unexpected character '@'")
		}
		s.scanIdentRest()
		return Token{Kind: TokenIdentifier, Span: span(start, s.i), Flags: TokenFlagVerbatim}
	case s.atIdentStart():
		s.scanIdentRest()
		tok := Token{Kind: TokenIdentifier, Span: span(start, s.i)}
		if kind, ok := keywordKinds[string(s.src[start:s.i])]; ok {
			tok.Kind = kind
		}
		return tok
	case isDigit(b):
		return s.scanNumber()
	case b == '.' && isDigit(s.peekByte(1)):
		return s.scanNumber()
	case b == '"' || b == '@' || b == '$':
		return s.scanString()
	case b == '\'':
		return s.scanChar()
	case b >= utf8.RuneSelf:
		r, size := utf8.DecodeRune(s.src[s.i:])
		if r == utf8.RuneError && size == 1 {
			s.i++
			return *s.makeErrorToken(start, start+1, DiagnosticInvalidByte, "invalid UTF-8 byte")
		}
		s.i += size
		return *s.makeErrorToken(start, s.i, DiagnosticUnknownCharacter, fmt.Sprintf("unknown character %q", r))
	}

	for _, p := range punctuators {
		if bytes.HasPrefix(s.src[s.i:], []byte(p.text)) {
			s.i += len(p.text)
			return Token{Kind: p.kind, Span: span(start, s.i)}
		}
	}
	s.i++
	return *s.makeErrorToken(start, s.i, DiagnosticUnknownCharacter, fmt.Sprintf("unknown character %q", b))
}

// punctuators is ordered longest first. '>' is never combined with a
// following '>' so generic argument lists close cleanly; the parser joins
// adjacent tokens for shift operators.
var punctuators = []struct {
	text string
	kind TokenKind
}{
	{"??=", TokenQuestionQuestionEqual},
	{"<<=", TokenLessLessEqual},
	{"::", TokenColonColon},
	{"..", TokenDotDot},
	{"?.", TokenQuestionDot},
	{"??", TokenQuestionQuestion},
	{"==", TokenEqualEqual},
	{"=>", TokenArrow},
	{"!=", TokenBangEqual},
	{"<=", TokenLessEqual},
	{"<<", TokenLessLess},
	{">=", TokenGreaterEqual},
	{"++", TokenPlusPlus},
	{"+=", TokenPlusEqual},
	{"--", TokenMinusMinus},
	{"-=", TokenMinusEqual},
	{"->", TokenMinusGreater},
	{"*=", TokenStarEqual},
	{"/=", TokenSlashEqual},
	{"%=", TokenPercentEqual},
	{"&&", TokenAmpAmp},
	{"&=", TokenAmpEqual},
	{"||", TokenPipePipe},
	{"|=", TokenPipeEqual},
	{"^=", TokenCaretEqual},
	{"{", TokenLBrace},
	{"}", TokenRBrace},
	{"(", TokenLParen},
	{")", TokenRParen},
	{"[", TokenLBracket},
	{"]", TokenRBracket},
	{";", TokenSemi},
	{",", TokenComma},
	{".", TokenDot},
	{":", TokenColon},
	{"?", TokenQuestion},
	{"=", TokenEqual},
	{"!", TokenBang},
	{"<", TokenLess},
	{">", TokenGreater},
	{"+", TokenPlus},
	{"-", TokenMinus},
	{"*", TokenStar},
	{"/", TokenSlash},
	{"%", TokenPercent},
	{"&", TokenAmp},
	{"|", TokenPipe},
	{"^", TokenCaret},
	{"~", TokenTilde},
}

func (s *scanner) atIdentStart() bool {
	b := s.src[s.i]
	if b < utf8.RuneSelf {
		return isIdentStart(b)
	}
	r, _ := utf8.DecodeRune(s.src[s.i:])
	return unicode.IsLetter(r)
}

func (s *scanner) scanIdentRest() {
	for !s.eof() {
		b := s.src[s.i]
		if b < utf8.RuneSelf {
			if !isIdentPart(b) {
				return
			}
			s.i++
			continue
		}
		r, size := utf8.DecodeRune(s.src[s.i:])
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && !unicode.Is(unicode.Mn, r) && !unicode.Is(unicode.Pc, r) {
			return
		}
		s.i += size
	}
}

func (s *scanner) scanNumber() Token {
	start := s.i
	if s.src[s.i] == '0' && (s.peekByte(1)|0x20 == 'x' || s.peekByte(1)|0x20 == 'b') {
		hex := s.peekByte(1)|0x20 == 'x'
		s.i += 2
		digitsStart := s.i
		for !s.eof() && (s.src[s.i] == '_' || (hex && isHexDigit(s.src[s.i])) || (!hex && (s.src[s.i] == '0' || s.src[s.i] == '1'))) {
			s.i++
		}
		if s.i == digitsStart {
			return *s.makeErrorToken(start, s.i, DiagnosticInvalidNumber, "invalid numeric literal")
		}
		s.scanIntSuffix()
		return Token{Kind: TokenIntLiteral, Span: span(start, s.i)}
	}

	kind := TokenIntLiteral
	s.scanDigits()
	if s.peekByte(0) == '.' && isDigit(s.peekByte(1)) {
		kind = TokenRealLiteral
		s.i++ // '.'
		s.scanDigits()
	}
	if s.tryScanExponent() {
		kind = TokenRealLiteral
	}
	switch s.peekByte(0) | 0x20 {
	case 'f', 'd', 'm':
		s.i++
		kind = TokenRealLiteral
	default:
		if kind == TokenIntLiteral {
			s.scanIntSuffix()
		}
	}
	return Token{Kind: kind, Span: span(start, s.i)}
}

func (s *scanner) scanDigits() {
	for !s.eof() && (isDigit(s.src[s.i]) || s.src[s.i] == '_') {
		s.i++
	}
}

func (s *scanner) scanIntSuffix() {
	for range 2 {
		if c := s.peekByte(0) | 0x20; c == 'u' || c == 'l' {
			s.i++
		}
	}
}

func (s *scanner) tryScanExponent() bool {
	if s.eof() || s.src[s.i]|0x20 != 'e' {
		return false
	}

	j := s.i + 1
	if j < len(s.src) && (s.src[j] == '+' || s.src[j] == '-') {
		j++
	}
	if j >= len(s.src) || !isDigit(s.src[j]) {
		return false
	}

	s.i = j + 1
	s.scanDigits()
	return true
}

// scanString handles regular, verbatim, interpolated and raw string
// literals, including their combined prefixes.
func (s *scanner) scanString() Token {
	start := s.i
	var flags TokenFlags
	dollars := 0
	for !s.eof() {
		switch s.src[s.i] {
		case '$':
			dollars++
			flags |= TokenFlagInterpolated
			s.i++
			continue
		case '@':
			flags |= TokenFlagVerbatim
			s.i++
			continue
		}
		break
	}
	if s.peekByte(0) != '"' {
		return *s.makeErrorToken(start, s.i, DiagnosticUnknownCharacter, "expected string literal after prefix")
	}

	quotes := 0
	for s.peekByte(quotes) == '"' {
		quotes++
	}
	if quotes >= 3 && !flags.Has(TokenFlagVerbatim) {
		return s.scanRawString(start, quotes, flags)
	}

	s.i++ // opening quote
	verbatim := flags.Has(TokenFlagVerbatim)
	interpolated := flags.Has(TokenFlagInterpolated)
	for !s.eof() {
		switch c := s.src[s.i]; {
		case c == '"':
			if verbatim && s.peekByte(1) == '"' {
				s.i += 2
				continue
			}
			s.i++
			return Token{Kind: TokenStringLiteral, Span: span(start, s.i), Flags: flags}
		case c == '\\' && !verbatim:
			s.i++
			if !s.eof() && s.src[s.i] != '\n' && s.src[s.i] != '\r' {
				s.i++
			}
		case (c == '\n' || c == '\r') && !verbatim:
			return s.unterminatedString(start, flags)
		case c == '{' && interpolated:
			if s.peekByte(1) == '{' {
				s.i += 2
				continue
			}
			if !s.scanInterpolationHole() {
				return s.unterminatedString(start, flags)
			}
		default:
			s.i++
		}
	}
	return s.unterminatedString(start, flags)
}

// scanInterpolationHole consumes a balanced {...} region inside an
// interpolated string, skipping nested string and character literals.
func (s *scanner) scanInterpolationHole() bool {
	depth := 0
	for !s.eof() {
		switch s.src[s.i] {
		case '{':
			depth++
			s.i++
		case '}':
			depth--
			s.i++
			if depth == 0 {
				return true
			}
		case '"', '@', '$':
			if s.src[s.i] != '"' && s.peekByte(1) != '"' && s.peekByte(1) != '@' && s.peekByte(1) != '$' {
				s.i++
				continue
			}
			mark := len(s.diagnostics)
			if tok := s.scanString(); tok.Kind == TokenError {
				s.diagnostics = s.diagnostics[:mark]
				return false
			}
		case '\'':
			mark := len(s.diagnostics)
			if tok := s.scanChar(); tok.Kind == TokenError {
				s.diagnostics = s.diagnostics[:mark]
				return false
			}
		default:
			s.i++
		}
	}
	return false
}

func (s *scanner) scanRawString(start, quotes int, flags TokenFlags) Token {
	s.i += quotes
	for !s.eof() {
		if s.src[s.i] != '"' {
			s.i++
			continue
		}
		run := 0
		for s.peekByte(run) == '"' {
			run++
		}
		s.i += run
		if run >= quotes {
			return Token{Kind: TokenStringLiteral, Span: span(start, s.i), Flags: flags}
		}
	}
	return s.unterminatedString(start, flags)
}

func (s *scanner) unterminatedString(start int, flags TokenFlags) Token {
	tok := s.makeErrorToken(start, s.i, DiagnosticUnterminatedString, "unterminated string literal")
	tok.Flags |= flags
	return *tok
}

func (s *scanner) scanChar() Token {
	start := s.i
	s.i++ // opening quote
	for !s.eof() {
		switch s.src[s.i] {
		case '\'':
			s.i++
			return Token{Kind: TokenCharLiteral, Span: span(start, s.i)}
		case '\\':
			s.i++
			if !s.eof() && s.src[s.i] != '\n' && s.src[s.i] != '\r' {
				s.i++
			}
		case '\n', '\r':
			return *s.makeErrorToken(start, s.i, DiagnosticUnterminatedChar, "unterminated character literal")
		default:
			s.i++
		}
	}
	return *s.makeErrorToken(start, s.i, DiagnosticUnterminatedChar, "unterminated character literal")
}

func (s *scanner) makeErrorToken(start, end int, code DiagnosticCode, msg string) *Token {
	sp := span(start, end)
	s.diagnostics = append(s.diagnostics, Diagnostic{
		Code:    code,
		Message: msg,
		Span:    sp,
	})
	return &Token{
		Kind:  TokenError,
		Span:  sp,
		Flags: TokenFlagMalformed,
	}
}

func (s *scanner) eof() bool {
	return s.i >= len(s.src)
}

func (s *scanner) peekByte(delta int) byte {
	j := s.i + delta
	if j < 0 || j >= len(s.src) {
		return 0
	}
	return s.src[j]
}

func span(start, end int) text.Span {
	return text.Span{Start: text.ByteOffset(start), End: text.ByteOffset(end)}
}

func isHorizontalSpace(b byte) bool {
	switch b {
	case ' ', '\t', '\v', '\f':
		return true
	default:
		return false
	}
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

func isHexDigit(b byte) bool {
	return isDigit(b) || (b >= 'a' && b <= 'f') || (b >= 'A' && b <= 'F')
}

func isIdentStart(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || b == '_'
}

func isIdentPart(b byte) bool {
	return isIdentStart(b) || isDigit(b)
}
