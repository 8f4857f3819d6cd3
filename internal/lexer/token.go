// Package lexer provides a lossless token/trivia lexer for C# source.
package lexer

import (
	"fmt"

	"github.com/kpumuk/metacheck/internal/text"
)

// TokenKind identifies the syntactic category of a token.
type TokenKind uint16

// TokenKind values used by the C# lexer.
const (
	TokenError TokenKind = iota
	TokenEOF
	TokenIdentifier
	TokenIntLiteral
	TokenRealLiteral
	TokenStringLiteral
	TokenCharLiteral

	TokenKwAbstract
	TokenKwAs
	TokenKwBase
	TokenKwBool
	TokenKwBreak
	TokenKwByte
	TokenKwCase
	TokenKwCatch
	TokenKwChar
	TokenKwChecked
	TokenKwClass
	TokenKwConst
	TokenKwContinue
	TokenKwDecimal
	TokenKwDefault
	TokenKwDelegate
	TokenKwDo
	TokenKwDouble
	TokenKwElse
	TokenKwEnum
	TokenKwEvent
	TokenKwExplicit
	TokenKwExtern
	TokenKwFalse
	TokenKwFinally
	TokenKwFixed
	TokenKwFloat
	TokenKwFor
	TokenKwForeach
	TokenKwGoto
	TokenKwIf
	TokenKwImplicit
	TokenKwIn
	TokenKwInt
	TokenKwInterface
	TokenKwInternal
	TokenKwIs
	TokenKwLock
	TokenKwLong
	TokenKwNamespace
	TokenKwNew
	TokenKwNull
	TokenKwObject
	TokenKwOperator
	TokenKwOut
	TokenKwOverride
	TokenKwParams
	TokenKwPrivate
	TokenKwProtected
	TokenKwPublic
	TokenKwReadonly
	TokenKwRef
	TokenKwReturn
	TokenKwSbyte
	TokenKwSealed
	TokenKwShort
	TokenKwSizeof
	TokenKwStackalloc
	TokenKwStatic
	TokenKwString
	TokenKwStruct
	TokenKwSwitch
	TokenKwThis
	TokenKwThrow
	TokenKwTrue
	TokenKwTry
	TokenKwTypeof
	TokenKwUint
	TokenKwUlong
	TokenKwUnchecked
	TokenKwUnsafe
	TokenKwUshort
	TokenKwUsing
	TokenKwVirtual
	TokenKwVoid
	TokenKwVolatile
	TokenKwWhile

	TokenLBrace
	TokenRBrace
	TokenLParen
	TokenRParen
	TokenLBracket
	TokenRBracket
	TokenSemi
	TokenComma
	TokenDot
	TokenDotDot
	TokenColon
	TokenColonColon
	TokenQuestion
	TokenQuestionDot
	TokenQuestionQuestion
	TokenQuestionQuestionEqual
	TokenEqual
	TokenEqualEqual
	TokenArrow
	TokenBang
	TokenBangEqual
	TokenLess
	TokenLessEqual
	TokenLessLess
	TokenLessLessEqual
	TokenGreater
	TokenGreaterEqual
	TokenPlus
	TokenPlusPlus
	TokenPlusEqual
	TokenMinus
	TokenMinusMinus
	TokenMinusEqual
	TokenMinusGreater
	TokenStar
	TokenStarEqual
	TokenSlash
	TokenSlashEqual
	TokenPercent
	TokenPercentEqual
	TokenAmp
	TokenAmpAmp
	TokenAmpEqual
	TokenPipe
	TokenPipePipe
	TokenPipeEqual
	TokenCaret
	TokenCaretEqual
	TokenTilde

	tokenKindCount
)

var tokenKindNames = [tokenKindCount]string{
	TokenError:         "Error",
	TokenEOF:           "EOF",
	TokenIdentifier:    "Identifier",
	TokenIntLiteral:    "IntLiteral",
	TokenRealLiteral:   "RealLiteral",
	TokenStringLiteral: "StringLiteral",
	TokenCharLiteral:   "CharLiteral",

	TokenLBrace:                "LBrace",
	TokenRBrace:                "RBrace",
	TokenLParen:                "LParen",
	TokenRParen:                "RParen",
	TokenLBracket:              "LBracket",
	TokenRBracket:              "RBracket",
	TokenSemi:                  "Semi",
	TokenComma:                 "Comma",
	TokenDot:                   "Dot",
	TokenDotDot:                "DotDot",
	TokenColon:                 "Colon",
	TokenColonColon:            "ColonColon",
	TokenQuestion:              "Question",
	TokenQuestionDot:           "QuestionDot",
	TokenQuestionQuestion:      "QuestionQuestion",
	TokenQuestionQuestionEqual: "QuestionQuestionEqual",
	TokenEqual:                 "Equal",
	TokenEqualEqual:            "EqualEqual",
	TokenArrow:                 "Arrow",
	TokenBang:                  "Bang",
	TokenBangEqual:             "BangEqual",
	TokenLess:                  "Less",
	TokenLessEqual:             "LessEqual",
	TokenLessLess:              "LessLess",
	TokenLessLessEqual:         "LessLessEqual",
	TokenGreater:               "Greater",
	TokenGreaterEqual:          "GreaterEqual",
	TokenPlus:                  "Plus",
	TokenPlusPlus:              "PlusPlus",
	TokenPlusEqual:             "PlusEqual",
	TokenMinus:                 "Minus",
	TokenMinusMinus:            "MinusMinus",
	TokenMinusEqual:            "MinusEqual",
	TokenMinusGreater:          "MinusGreater",
	TokenStar:                  "Star",
	TokenStarEqual:             "StarEqual",
	TokenSlash:                 "Slash",
	TokenSlashEqual:            "SlashEqual",
	TokenPercent:               "Percent",
	TokenPercentEqual:          "PercentEqual",
	TokenAmp:                   "Amp",
	TokenAmpAmp:                "AmpAmp",
	TokenAmpEqual:              "AmpEqual",
	TokenPipe:                  "Pipe",
	TokenPipePipe:              "PipePipe",
	TokenPipeEqual:             "PipeEqual",
	TokenCaret:                 "Caret",
	TokenCaretEqual:            "CaretEqual",
	TokenTilde:                 "Tilde",
}

func init() {
	for word, kind := range keywordKinds {
		tokenKindNames[kind] = "Kw" + capitalize(word)
	}
}

func (k TokenKind) String() string {
	if k < tokenKindCount && tokenKindNames[k] != "" {
		return tokenKindNames[k]
	}
	return fmt.Sprintf("TokenKind(%d)", k)
}

// IsKeyword reports whether k is a reserved C# keyword.
func (k TokenKind) IsKeyword() bool {
	return k >= TokenKwAbstract && k <= TokenKwWhile
}

// IsLiteral reports whether k is a literal token.
func (k TokenKind) IsLiteral() bool {
	switch k {
	case TokenIntLiteral, TokenRealLiteral, TokenStringLiteral, TokenCharLiteral,
		TokenKwTrue, TokenKwFalse, TokenKwNull:
		return true
	default:
		return false
	}
}

// IsWord reports whether tokens of kind k need separating whitespace when
// printed next to each other.
func (k TokenKind) IsWord() bool {
	return k == TokenIdentifier || k.IsKeyword() || k == TokenIntLiteral || k == TokenRealLiteral
}

// IsPredefinedType reports whether k names a built-in type keyword.
func (k TokenKind) IsPredefinedType() bool {
	switch k {
	case TokenKwBool, TokenKwByte, TokenKwChar, TokenKwDecimal, TokenKwDouble,
		TokenKwFloat, TokenKwInt, TokenKwLong, TokenKwObject, TokenKwSbyte,
		TokenKwShort, TokenKwString, TokenKwUint, TokenKwUlong, TokenKwUshort,
		TokenKwVoid:
		return true
	default:
		return false
	}
}

// IsModifier reports whether k is a declaration modifier keyword.
func (k TokenKind) IsModifier() bool {
	switch k {
	case TokenKwAbstract, TokenKwConst, TokenKwExtern, TokenKwInternal,
		TokenKwNew, TokenKwOverride, TokenKwPrivate, TokenKwProtected,
		TokenKwPublic, TokenKwReadonly, TokenKwSealed, TokenKwStatic,
		TokenKwUnsafe, TokenKwVirtual, TokenKwVolatile, TokenKwFixed:
		return true
	default:
		return false
	}
}

// TokenFlags carry metadata about the token source or origin.
type TokenFlags uint8

// TokenFlags values describe token provenance or recovery state.
const (
	TokenFlagMalformed TokenFlags = 1 << iota
	TokenFlagVerbatim
	TokenFlagInterpolated
)

// Has reports whether all bits in mask are set.
func (f TokenFlags) Has(mask TokenFlags) bool {
	return f&mask == mask
}

// Token is a lexed token with its source span and attached trivia.
//
// Trailing trivia runs from the end of the token up to and including the
// first line terminator; everything else before the next token is leading
// trivia of that token.
type Token struct {
	Kind     TokenKind
	Span     text.Span
	Leading  []Trivia
	Trailing []Trivia
	Flags    TokenFlags
}

// Bytes returns the token bytes referenced by Span or nil if Span is invalid for src.
func (t Token) Bytes(src []byte) []byte {
	return t.Span.Slice(src)
}

// Text returns the token text.
func (t Token) Text(src []byte) string {
	return string(t.Span.Slice(src))
}

// FullSpan returns the token span widened over its leading and trailing trivia.
func (t Token) FullSpan() text.Span {
	sp := t.Span
	if len(t.Leading) > 0 {
		sp.Start = t.Leading[0].Span.Start
	}
	if len(t.Trailing) > 0 {
		sp.End = t.Trailing[len(t.Trailing)-1].Span.End
	}
	return sp
}

// TrailingEndsLine reports whether the trailing trivia contains the line terminator.
func (t Token) TrailingEndsLine() bool {
	return len(t.Trailing) > 0 && t.Trailing[len(t.Trailing)-1].Kind == TriviaNewline
}

var keywordKinds = map[string]TokenKind{
	"abstract":   TokenKwAbstract,
	"as":         TokenKwAs,
	"base":       TokenKwBase,
	"bool":       TokenKwBool,
	"break":      TokenKwBreak,
	"byte":       TokenKwByte,
	"case":       TokenKwCase,
	"catch":      TokenKwCatch,
	"char":       TokenKwChar,
	"checked":    TokenKwChecked,
	"class":      TokenKwClass,
	"const":      TokenKwConst,
	"continue":   TokenKwContinue,
	"decimal":    TokenKwDecimal,
	"default":    TokenKwDefault,
	"delegate":   TokenKwDelegate,
	"do":         TokenKwDo,
	"double":     TokenKwDouble,
	"else":       TokenKwElse,
	"enum":       TokenKwEnum,
	"event":      TokenKwEvent,
	"explicit":   TokenKwExplicit,
	"extern":     TokenKwExtern,
	"false":      TokenKwFalse,
	"finally":    TokenKwFinally,
	"fixed":      TokenKwFixed,
	"float":      TokenKwFloat,
	"for":        TokenKwFor,
	"foreach":    TokenKwForeach,
	"goto":       TokenKwGoto,
	"if":         TokenKwIf,
	"implicit":   TokenKwImplicit,
	"in":         TokenKwIn,
	"int":        TokenKwInt,
	"interface":  TokenKwInterface,
	"internal":   TokenKwInternal,
	"is":         TokenKwIs,
	"lock":       TokenKwLock,
	"long":       TokenKwLong,
	"namespace":  TokenKwNamespace,
	"new":        TokenKwNew,
	"null":       TokenKwNull,
	"object":     TokenKwObject,
	"operator":   TokenKwOperator,
	"out":        TokenKwOut,
	"override":   TokenKwOverride,
	"params":     TokenKwParams,
	"private":    TokenKwPrivate,
	"protected":  TokenKwProtected,
	"public":     TokenKwPublic,
	"readonly":   TokenKwReadonly,
	"ref":        TokenKwRef,
	"return":     TokenKwReturn,
	"sbyte":      TokenKwSbyte,
	"sealed":     TokenKwSealed,
	"short":      TokenKwShort,
	"sizeof":     TokenKwSizeof,
	"stackalloc": TokenKwStackalloc,
	"static":     TokenKwStatic,
	"string":     TokenKwString,
	"struct":     TokenKwStruct,
	"switch":     TokenKwSwitch,
	"this":       TokenKwThis,
	"throw":      TokenKwThrow,
	"true":       TokenKwTrue,
	"try":        TokenKwTry,
	"typeof":     TokenKwTypeof,
	"uint":       TokenKwUint,
	"ulong":      TokenKwUlong,
	"unchecked":  TokenKwUnchecked,
	"unsafe":     TokenKwUnsafe,
	"ushort":     TokenKwUshort,
	"using":      TokenKwUsing,
	"virtual":    TokenKwVirtual,
	"void":       TokenKwVoid,
	"volatile":   TokenKwVolatile,
	"while":      TokenKwWhile,
}

// KeywordKind resolves a reserved keyword spelling.
func KeywordKind(word string) (TokenKind, bool) {
	k, ok := keywordKinds[word]
	return k, ok
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	b := []byte(s)
	if b[0] >= 'a' && b[0] <= 'z' {
		b[0] -= 'a' - 'A'
	}
	return string(b)
}
