package syntax

import (
	"context"
	"errors"
	"fmt"
	"math"
	"slices"

	"fortio.org/safecast"

	"github.com/kpumuk/metacheck/internal/lexer"
	"github.com/kpumuk/metacheck/internal/syntax/backend"
	"github.com/kpumuk/metacheck/internal/text"
)

// Parse tokenizes and parses src into a CST-oriented syntax tree.
//
// Syntax errors never fail the parse; they are recorded as diagnostics on
// the returned tree. A backend that fails for reasons other than
// cancellation yields a degraded tree holding only the root node, so
// callers can still report something useful.
func Parse(ctx context.Context, src []byte, opts ParseOptions) (*Tree, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	factory, err := parserFactoryFor(opts.Backend)
	if err != nil {
		return nil, err
	}
	parser, err := factory.NewParser()
	if err != nil {
		return nil, fmt.Errorf("init %s parser: %w", factory.Name(), err)
	}
	defer parser.Close()

	lexRes := lexer.Lex(src)
	raw, err := parser.Parse(ctx, src)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		out := newTree(src, opts, factory.Name(), lexRes)
		out.Root = buildDegradedRoot(out)
		out.Diagnostics = append(out.Diagnostics, Diagnostic{
			Code:        DiagnosticInternalParse,
			Message:     fmt.Sprintf("%s parser failed: %v", factory.Name(), err),
			Severity:    SeverityError,
			Span:        text.Span{Start: 0, End: text.ByteOffset(len(src))},
			Source:      "parser",
			Recoverable: false,
		})
		return out, nil
	}

	out, err := buildSyntaxTreeFromRaw(src, opts, factory.Name(), raw, lexRes)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func newTree(src []byte, opts ParseOptions, backendName string, lexRes lexer.Result) *Tree {
	sourceCopy := slices.Clone(src)
	out := &Tree{
		URI:       opts.URI,
		Backend:   backendName,
		Source:    sourceCopy,
		Tokens:    append([]lexer.Token(nil), lexRes.Tokens...),
		LineIndex: text.NewLineIndex(sourceCopy),
	}
	out.Diagnostics = append(out.Diagnostics, mapLexerDiagnostics(lexRes.Diagnostics)...)
	out.Diagnostics = append(out.Diagnostics, validateTokenInvariants(sourceCopy, out.Tokens)...)
	return out
}

func buildSyntaxTreeFromRaw(src []byte, opts ParseOptions, backendName string, root *backend.RawNode, lexRes lexer.Result) (*Tree, error) {
	if root == nil {
		return nil, errors.New("parser backend returned a nil root")
	}

	out := newTree(src, opts, backendName, lexRes)
	builder := cstBuilder{
		tokens: out.Tokens,
		nodes:  &out.Nodes,
		srcLen: len(out.Source),
	}
	out.Nodes = make([]Node, 1, 1+root.Count())
	out.Root = builder.buildNode(root, NoNode)
	out.Diagnostics = append(out.Diagnostics, builder.diagnostics...)
	out.Diagnostics = append(out.Diagnostics, collectParserDiagnostics(root, len(out.Source))...)
	return out, nil
}

// buildDegradedRoot creates a compilation unit that owns every token directly.
func buildDegradedRoot(t *Tree) NodeID {
	t.Nodes = make([]Node, 1, 2)
	id := nodeIDFromLen(len(t.Nodes))
	root := Node{
		ID:        id,
		Kind:      KindCompilationUnit,
		Span:      text.Span{Start: 0, End: text.ByteOffset(len(t.Source))},
		LastToken: uint32FromInt(len(t.Tokens) - 1),
		Flags:     NodeFlagNamed | NodeFlagRecovered,
	}
	for i, tok := range t.Tokens {
		if tok.Kind == lexer.TokenEOF {
			continue
		}
		root.Children = append(root.Children, ChildRef{IsToken: true, Index: uint32FromInt(i)})
	}
	t.Nodes = append(t.Nodes, root)
	return id
}

type cstBuilder struct {
	tokens      []lexer.Token
	nodes       *[]Node
	srcLen      int
	next        int // first token index not yet owned by any node
	diagnostics []Diagnostic
}

// buildNode appends raw and its subtree in pre-order. Each lexer token is
// attached to the innermost node that covers it, interleaved with child
// nodes in source order.
func (b *cstBuilder) buildNode(raw *backend.RawNode, parent NodeID) NodeID {
	id := nodeIDFromLen(len(*b.nodes))
	sp := b.spanFromRaw(raw)
	firstTok, lastTok, rangeErr := tokenRangeForSpan(b.tokens, sp)
	if rangeErr != nil {
		b.diagnostics = append(b.diagnostics, internalAlignmentDiag(sp, rangeErr.Error()))
	}

	flags := nodeFlagsFromRaw(raw)
	if raw.HasError {
		flags |= NodeFlagRecovered
	}
	*b.nodes = append(*b.nodes, Node{
		ID:         id,
		Kind:       KindFromName(raw.Kind),
		Span:       sp,
		FirstToken: firstTok,
		LastToken:  lastTok,
		Parent:     parent,
		Flags:      flags,
	})

	var children []ChildRef
	for _, child := range raw.Children {
		if child == nil || child.IsExtra {
			continue
		}
		childStart := b.clamp(child.StartByte)
		children = b.appendTokensBefore(children, sp, childStart)
		childID := b.buildNode(child, id)
		children = append(children, ChildRef{Index: uint32(childID)})
	}
	children = b.appendTokensBefore(children, sp, sp.End)
	(*b.nodes)[id].Children = children
	return id
}

// appendTokensBefore attaches unowned tokens that lie inside sp and start
// before limit.
func (b *cstBuilder) appendTokensBefore(children []ChildRef, sp text.Span, limit text.ByteOffset) []ChildRef {
	if sp.IsEmpty() {
		return children
	}
	for b.next < len(b.tokens) {
		tok := b.tokens[b.next]
		if tok.Kind == lexer.TokenEOF || tok.Span.Start >= limit {
			break
		}
		if tok.Span.Start < sp.Start {
			// Token precedes this node entirely; an ancestor missed it.
			b.diagnostics = append(b.diagnostics, internalAlignmentDiag(tok.Span, "token is not covered by any node"))
			b.next++
			continue
		}
		children = append(children, ChildRef{IsToken: true, Index: uint32FromInt(b.next)})
		b.next++
	}
	return children
}

func (b *cstBuilder) spanFromRaw(n *backend.RawNode) text.Span {
	start := b.clamp(n.StartByte)
	end := b.clamp(n.EndByte)
	if end < start {
		end = start
	}
	return text.Span{Start: start, End: end}
}

func (b *cstBuilder) clamp(off int) text.ByteOffset {
	switch {
	case off < 0:
		return 0
	case off > b.srcLen:
		return text.ByteOffset(b.srcLen)
	default:
		return text.ByteOffset(off)
	}
}

func nodeFlagsFromRaw(n *backend.RawNode) NodeFlags {
	var flags NodeFlags
	if n == nil {
		return flags
	}
	if n.IsNamed {
		flags |= NodeFlagNamed
	}
	if n.IsError {
		flags |= NodeFlagError
	}
	if n.IsMissing {
		flags |= NodeFlagMissing
	}
	return flags
}

func mapLexerDiagnostics(in []lexer.Diagnostic) []Diagnostic {
	out := make([]Diagnostic, 0, len(in))
	for _, d := range in {
		out = append(out, Diagnostic{
			Code:        DiagnosticCode(d.Code),
			Message:     d.Message,
			Severity:    SeverityError,
			Span:        d.Span,
			Source:      "lexer",
			Recoverable: true,
		})
	}
	return out
}

func collectParserDiagnostics(root *backend.RawNode, srcLen int) []Diagnostic {
	var out []Diagnostic
	root.Walk(func(n *backend.RawNode) {
		if n.IsExtra {
			return
		}
		sp := rawSpan(n, srcLen)
		switch {
		case n.IsMissing:
			out = append(out, Diagnostic{
				Code:        DiagnosticParserMissingNode,
				Message:     "missing " + n.Kind,
				Severity:    SeverityError,
				Span:        sp,
				Source:      "parser",
				Recoverable: true,
			})
		case n.IsError:
			out = append(out, Diagnostic{
				Code:        DiagnosticParserErrorNode,
				Message:     "syntax error",
				Severity:    SeverityError,
				Span:        sp,
				Source:      "parser",
				Recoverable: true,
			})
		}
	})
	return out
}

func rawSpan(n *backend.RawNode, srcLen int) text.Span {
	start := min(max(n.StartByte, 0), srcLen)
	end := min(max(n.EndByte, start), srcLen)
	return text.Span{Start: text.ByteOffset(start), End: text.ByteOffset(end)}
}

func validateTokenInvariants(src []byte, tokens []lexer.Token) []Diagnostic {
	if len(tokens) == 0 {
		return []Diagnostic{internalAlignmentDiag(text.Span{Start: 0, End: 0}, "lexer returned no tokens")}
	}

	var diags []Diagnostic
	prevStart := text.ByteOffset(0)
	prevEnd := text.ByteOffset(0)
	for i, tok := range tokens {
		if !tok.Span.IsValid() || tok.Span.End > text.ByteOffset(len(src)) {
			diags = append(diags, internalAlignmentDiag(tok.Span, fmt.Sprintf("invalid token span at index %d", i)))
			continue
		}
		if i > 0 && tok.Span.Start < prevStart {
			diags = append(diags, internalAlignmentDiag(tok.Span, fmt.Sprintf("token starts out of order at index %d", i)))
		}
		if i > 0 && tok.Span.Start < prevEnd {
			diags = append(diags, internalAlignmentDiag(tok.Span, fmt.Sprintf("overlapping token span at index %d", i)))
		}
		prevStart, prevEnd = tok.Span.Start, tok.Span.End
	}
	last := tokens[len(tokens)-1]
	if last.Kind != lexer.TokenEOF {
		diags = append(diags, internalAlignmentDiag(last.Span, "last token is not EOF"))
	}
	eof := text.ByteOffset(len(src))
	if last.Span.Start != eof || last.Span.End != eof {
		diags = append(diags, internalAlignmentDiag(last.Span, "EOF token span does not match source length"))
	}
	return diags
}

func tokenRangeForSpan(tokens []lexer.Token, sp text.Span) (uint32, uint32, error) {
	if len(tokens) == 0 {
		return 0, 0, errors.New("no tokens available for span mapping")
	}
	if !sp.IsValid() {
		idx := uint32FromInt(len(tokens) - 1)
		return idx, idx, fmt.Errorf("invalid node span %s", sp)
	}

	if sp.IsEmpty() {
		idx := nearestTokenIndex(tokens, sp.Start)
		return idx, idx, nil
	}

	first := -1
	last := -1
	for i, tok := range tokens {
		if tok.Kind == lexer.TokenEOF {
			break
		}
		if tok.Span.End <= sp.Start {
			continue
		}
		if tok.Span.Start >= sp.End {
			break
		}
		if first == -1 {
			first = i
		}
		last = i
	}
	if first == -1 {
		// The span holds only trivia, which belongs to the next token.
		idx := nearestTokenIndex(tokens, sp.Start)
		return idx, idx, nil
	}
	return uint32FromInt(first), uint32FromInt(last), nil
}

func nearestTokenIndex(tokens []lexer.Token, off text.ByteOffset) uint32 {
	for i, tok := range tokens {
		if tok.Span.Contains(off) || tok.Span.Start >= off {
			return uint32FromInt(i)
		}
	}
	return uint32FromInt(len(tokens) - 1)
}

func internalAlignmentDiag(span text.Span, msg string) Diagnostic {
	return Diagnostic{
		Code:        DiagnosticInternalAlignment,
		Message:     msg,
		Severity:    SeverityError,
		Span:        span,
		Source:      "parser",
		Recoverable: false,
	}
}

func uint32FromInt(v int) uint32 {
	out, err := safecast.Conv[uint32](v)
	if err != nil {
		if v < 0 {
			return 0
		}
		return math.MaxUint32
	}
	return out
}

func nodeIDFromLen(v int) NodeID {
	return NodeID(uint32FromInt(v))
}
