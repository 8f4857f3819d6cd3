package lexer

import (
	"fmt"
	"strings"
	"testing"

	"github.com/kpumuk/metacheck/internal/text"
)

func TestTokenAndTriviaBytesUseRawSpans(t *testing.T) {
	t.Parallel()

	src := []byte("  abc")
	tr := Trivia{Kind: TriviaWhitespace, Span: text.Span{Start: 0, End: 2}}
	tok := Token{Kind: TokenIdentifier, Span: text.Span{Start: 2, End: 5}, Leading: []Trivia{tr}}

	if got := string(tr.Bytes(src)); got != "  " {
		t.Fatalf("Trivia.Bytes() = %q, want %q", got, "  ")
	}
	if got := tok.Text(src); got != "abc" {
		t.Fatalf("Token.Text() = %q, want %q", got, "abc")
	}
	if got := tok.FullSpan(); got != (text.Span{Start: 0, End: 5}) {
		t.Fatalf("Token.FullSpan() = %s, want [0,5)", got)
	}
}

func TestLexGoldenRepresentativeValidInput(t *testing.T) {
	t.Parallel()

	src := []byte(`/// doc
class C // c
{
    var x = @"a""b";
}
`)

	res := Lex(src)
	if len(res.Diagnostics) != 0 {
		t.Fatalf("unexpected diagnostics: %+v", res.Diagnostics)
	}

	got := renderTokens(src, res.Tokens)
	want := strings.TrimSpace(`
KwClass("class") lead=[DocComment("/// doc"),Newline("\n")] trail=[Whitespace(" ")]
Identifier("C") lead=[] trail=[Whitespace(" "),LineComment("// c"),Newline("\n")]
LBrace("{") lead=[] trail=[Newline("\n")]
Identifier("var") lead=[Whitespace("    ")] trail=[Whitespace(" ")]
Identifier("x") lead=[] trail=[Whitespace(" ")]
Equal("=") lead=[] trail=[Whitespace(" ")]
StringLiteral("@\"a\"\"b\"") lead=[] trail=[]
Semi(";") lead=[] trail=[Newline("\n")]
RBrace("}") lead=[] trail=[Newline("\n")]
EOF("") lead=[] trail=[]
`)
	if got != want {
		t.Fatalf("golden mismatch\n--- got ---\n%s\n--- want ---\n%s", got, want)
	}
}

func TestLexTrailingTriviaStopsAtFirstNewline(t *testing.T) {
	t.Parallel()

	src := []byte("a; /* x */ // y\r\n\n  b")
	res := Lex(src)

	semi := res.Tokens[1]
	if semi.Kind != TokenSemi {
		t.Fatalf("token[1] = %s, want Semi", semi.Kind)
	}
	if !semi.TrailingEndsLine() {
		t.Fatalf("Semi trailing trivia %v does not end the line", semi.Trailing)
	}
	if got := renderTrivia(src, semi.Trailing); got != `[Whitespace(" "),BlockComment("/* x */"),Whitespace(" "),LineComment("// y"),Newline("\r\n")]` {
		t.Fatalf("Semi trailing = %s", got)
	}
	if got := renderTrivia(src, res.Tokens[2].Leading); got != `[Newline("\n"),Whitespace("  ")]` {
		t.Fatalf("b leading = %s", got)
	}
}

func TestLexLiteralForms(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		src       string
		wantKind  TokenKind
		wantFlags TokenFlags
	}{
		"regular string":      {src: `"a\"b"`, wantKind: TokenStringLiteral},
		"verbatim string":     {src: "@\"line1\nline2\"", wantKind: TokenStringLiteral, wantFlags: TokenFlagVerbatim},
		"interpolated":        {src: `$"a{b}c"`, wantKind: TokenStringLiteral, wantFlags: TokenFlagInterpolated},
		"nested interpolated": {src: `$"{(x ? "y" : "z")}"`, wantKind: TokenStringLiteral, wantFlags: TokenFlagInterpolated},
		"escaped braces":      {src: `$"{{literal}}"`, wantKind: TokenStringLiteral, wantFlags: TokenFlagInterpolated},
		"verbatim interp":     {src: `$@"x{y}"`, wantKind: TokenStringLiteral, wantFlags: TokenFlagInterpolated | TokenFlagVerbatim},
		"raw string":          {src: `"""raw "" text"""`, wantKind: TokenStringLiteral},
		"char":                {src: `'\''`, wantKind: TokenCharLiteral},
		"hex":                 {src: "0x1F", wantKind: TokenIntLiteral},
		"binary suffix":       {src: "0b1010_1010UL", wantKind: TokenIntLiteral},
		"separators":          {src: "1_000", wantKind: TokenIntLiteral},
		"float suffix":        {src: "1.5f", wantKind: TokenRealLiteral},
		"exponent":            {src: "2e10", wantKind: TokenRealLiteral},
		"decimal":             {src: "3m", wantKind: TokenRealLiteral},
		"leading dot":         {src: ".5", wantKind: TokenRealLiteral},
		"verbatim identifier": {src: "@class", wantKind: TokenIdentifier, wantFlags: TokenFlagVerbatim},
		"unicode identifier":  {src: "größe", wantKind: TokenIdentifier},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			src := []byte(tc.src)
			res := Lex(src)
			if len(res.Diagnostics) != 0 {
				t.Fatalf("unexpected diagnostics: %+v", res.Diagnostics)
			}
			if len(res.Tokens) != 2 {
				t.Fatalf("tokens = %s, want one token and EOF", renderTokens(src, res.Tokens))
			}
			tok := res.Tokens[0]
			if tok.Kind != tc.wantKind {
				t.Fatalf("kind = %s, want %s", tok.Kind, tc.wantKind)
			}
			if tok.Flags != tc.wantFlags {
				t.Fatalf("flags = %b, want %b", tok.Flags, tc.wantFlags)
			}
			if got := tok.Text(src); got != tc.src {
				t.Fatalf("text = %q, want %q", got, tc.src)
			}
		})
	}
}

func TestLexOperatorsPreferLongestMatchExceptGreater(t *testing.T) {
	t.Parallel()

	src := []byte("a ??= b => c != d; List<List<int>> e; f >= g?.h")
	res := Lex(src)

	var kinds []string
	for _, tok := range res.Tokens {
		kinds = append(kinds, tok.Kind.String())
	}
	want := "Identifier QuestionQuestionEqual Identifier Arrow Identifier BangEqual Identifier Semi " +
		"Identifier Less Identifier Less KwInt Greater Greater Identifier Semi " +
		"Identifier GreaterEqual Identifier QuestionDot Identifier EOF"
	if got := strings.Join(kinds, " "); got != want {
		t.Fatalf("kinds =\n%s\nwant\n%s", got, want)
	}
}

func TestLexDirectivesAreTrivia(t *testing.T) {
	t.Parallel()

	src := []byte("#region X\nclass C { }\n  #endregion\n")
	res := Lex(src)
	if len(res.Diagnostics) != 0 {
		t.Fatalf("unexpected diagnostics: %+v", res.Diagnostics)
	}

	if got := renderTrivia(src, res.Tokens[0].Leading); got != `[Directive("#region X"),Newline("\n")]` {
		t.Fatalf("class leading = %s", got)
	}
	eof := res.Tokens[len(res.Tokens)-1]
	if got := renderTrivia(src, eof.Leading); got != `[Whitespace("  "),Directive("#endregion"),Newline("\n")]` {
		t.Fatalf("EOF leading = %s", got)
	}
}

func TestLexMalformedInputsEmitErrorTokensAndDiagnostics(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		src          []byte
		wantDiagCode DiagnosticCode
	}{
		"unterminated string": {
			src:          []byte(`"abc`),
			wantDiagCode: DiagnosticUnterminatedString,
		},
		"string broken by newline": {
			src:          []byte("\"abc\n\""),
			wantDiagCode: DiagnosticUnterminatedString,
		},
		"unterminated char": {
			src:          []byte(`'a`),
			wantDiagCode: DiagnosticUnterminatedChar,
		},
		"empty hex": {
			src:          []byte("0x;"),
			wantDiagCode: DiagnosticInvalidNumber,
		},
		"invalid byte": {
			src:          []byte{0xff},
			wantDiagCode: DiagnosticInvalidByte,
		},
		"unknown character": {
			src:          []byte("`"),
			wantDiagCode: DiagnosticUnknownCharacter,
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			res := Lex(tc.src)
			if len(res.Diagnostics) == 0 {
				t.Fatalf("expected diagnostics for %q", tc.src)
			}
			if res.Diagnostics[0].Code != tc.wantDiagCode {
				t.Fatalf("diagnostic code = %s, want %s", res.Diagnostics[0].Code, tc.wantDiagCode)
			}
			if len(res.Tokens) == 0 || res.Tokens[0].Kind != TokenError {
				t.Fatalf("expected first token to be TokenError, got %+v", res.Tokens)
			}
			if !res.Tokens[0].Flags.Has(TokenFlagMalformed) {
				t.Fatalf("expected malformed flag on error token, got %v", res.Tokens[0].Flags)
			}
			if got := res.Tokens[len(res.Tokens)-1].Kind; got != TokenEOF {
				t.Fatalf("expected EOF token at end, got %s", got)
			}
		})
	}
}

func TestLexUnterminatedBlockCommentRunsToEOF(t *testing.T) {
	t.Parallel()

	src := []byte("a; /* if (x)\n{\n}/*\n}\n")
	res := Lex(src)

	if len(res.Diagnostics) != 1 || res.Diagnostics[0].Code != DiagnosticUnterminatedBlockComment {
		t.Fatalf("diagnostics = %+v, want one unterminated block comment", res.Diagnostics)
	}
	if len(res.Tokens) != 3 {
		t.Fatalf("tokens = %s", renderTokens(src, res.Tokens))
	}
	semi := res.Tokens[1]
	last := semi.Trailing[len(semi.Trailing)-1]
	if last.Kind != TriviaBlockComment || int(last.Span.End) != len(src) {
		t.Fatalf("Semi trailing = %s, want block comment to EOF", renderTrivia(src, semi.Trailing))
	}
}

func TestLexIsLossless(t *testing.T) {
	t.Parallel()

	inputs := []string{
		"",
		"\uFEFFusing System;\r\n",
		"class C\n{\n    void M() { if (x) { } }\n}\n",
		"var ifStatement;\n/* a /* b",
		`$"{a}" @"b" """c""" 'd' 1.0 // e`,
		"\xff{\xfe",
	}
	for _, in := range inputs {
		t.Run(fmt.Sprintf("%q", in), func(t *testing.T) {
			t.Parallel()

			src := []byte(in)
			if got := reconstruct(src, Lex(src).Tokens); got != in {
				t.Fatalf("reconstructed %q, want %q", got, in)
			}
		})
	}
}

func reconstruct(src []byte, tokens []Token) string {
	var b strings.Builder
	for _, tok := range tokens {
		for _, tr := range tok.Leading {
			b.Write(tr.Bytes(src))
		}
		b.Write(tok.Bytes(src))
		for _, tr := range tok.Trailing {
			b.Write(tr.Bytes(src))
		}
	}
	return b.String()
}

func renderTokens(src []byte, tokens []Token) string {
	lines := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		lines = append(lines, fmt.Sprintf("%s(%q) lead=%s trail=%s", tok.Kind, tok.Bytes(src), renderTrivia(src, tok.Leading), renderTrivia(src, tok.Trailing)))
	}
	return strings.Join(lines, "\n")
}

func renderTrivia(src []byte, trivia []Trivia) string {
	if len(trivia) == 0 {
		return "[]"
	}

	parts := make([]string, 0, len(trivia))
	for _, tr := range trivia {
		parts = append(parts, fmt.Sprintf("%s(%q)", tr.Kind, tr.Bytes(src)))
	}
	return "[" + strings.Join(parts, ",") + "]"
}
