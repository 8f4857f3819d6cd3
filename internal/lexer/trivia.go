package lexer

import (
	"fmt"

	"github.com/kpumuk/metacheck/internal/text"
)

// TriviaKind identifies non-token source segments attached to tokens.
type TriviaKind uint8

// TriviaKind values describe trivia categories.
const (
	TriviaWhitespace TriviaKind = iota
	TriviaNewline
	TriviaLineComment
	TriviaBlockComment
	TriviaDocComment
	TriviaDirective
)

func (k TriviaKind) String() string {
	switch k {
	case TriviaWhitespace:
		return "Whitespace"
	case TriviaNewline:
		return "Newline"
	case TriviaLineComment:
		return "LineComment"
	case TriviaBlockComment:
		return "BlockComment"
	case TriviaDocComment:
		return "DocComment"
	case TriviaDirective:
		return "Directive"
	default:
		return fmt.Sprintf("TriviaKind(%d)", k)
	}
}

// IsComment reports whether the trivia kind carries comment text.
func (k TriviaKind) IsComment() bool {
	return k == TriviaLineComment || k == TriviaBlockComment || k == TriviaDocComment
}

// Trivia represents a non-token source span (whitespace, comments, newlines, directives).
type Trivia struct {
	Kind TriviaKind
	Span text.Span
}

// Bytes returns the trivia bytes referenced by Span or nil if Span is invalid for src.
func (t Trivia) Bytes(src []byte) []byte {
	return t.Span.Slice(src)
}
