//go:build cgo && metacheck_treesitter

package treesitter

import (
	"context"
	"errors"
	"fmt"

	"fortio.org/safecast"
	sitter "github.com/tree-sitter/go-tree-sitter"
	csharp "github.com/tree-sitter/tree-sitter-c-sharp/bindings/go"

	"github.com/kpumuk/metacheck/internal/syntax/backend"
)

const available = true

var language = sitter.NewLanguage(csharp.Language())

// Parser wraps a tree-sitter parser configured for C#.
type Parser struct {
	inner *sitter.Parser
}

func newParser() (backend.Parser, error) {
	p := sitter.NewParser()
	if err := p.SetLanguage(language); err != nil {
		p.Close()
		return nil, fmt.Errorf("set c# language: %w", err)
	}
	return &Parser{inner: p}, nil
}

// Close releases parser resources.
func (p *Parser) Close() {
	if p == nil || p.inner == nil {
		return
	}
	p.inner.Close()
	p.inner = nil
}

// Parse parses src and converts the tree-sitter tree into raw nodes.
// Anonymous tokens and extras (comments, directives) are dropped; the
// syntax layer takes tokens and trivia from the lexer.
func (p *Parser) Parse(ctx context.Context, src []byte) (*backend.RawNode, error) {
	if p == nil || p.inner == nil {
		return nil, errors.New("nil parser")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	tree := p.inner.ParseWithOptions(func(i int, _ sitter.Point) []byte {
		if i >= len(src) {
			return nil
		}
		return src[i:]
	}, nil, &sitter.ParseOptions{
		ProgressCallback: func(_ sitter.ParseState) bool {
			return ctx.Err() != nil
		},
	})
	if err := ctx.Err(); err != nil {
		if tree != nil {
			tree.Close()
		}
		return nil, err
	}
	if tree == nil {
		return nil, errors.New("tree-sitter parse returned nil tree")
	}
	defer tree.Close()

	root := tree.RootNode()
	if root == nil {
		return nil, errors.New("tree-sitter root node is nil")
	}
	out, err := convert(root)
	if err != nil {
		return nil, err
	}
	// tree-sitter starts the root at the first token; the arena expects the
	// whole source.
	out.StartByte = 0
	out.EndByte = len(src)
	return out, nil
}

func convert(n *sitter.Node) (*backend.RawNode, error) {
	start, err := safecast.Conv[int](n.StartByte())
	if err != nil {
		return nil, fmt.Errorf("node start: %w", err)
	}
	end, err := safecast.Conv[int](n.EndByte())
	if err != nil {
		return nil, fmt.Errorf("node end: %w", err)
	}
	raw := &backend.RawNode{
		Kind:      n.Kind(),
		StartByte: start,
		EndByte:   end,
		IsNamed:   n.IsNamed(),
		IsError:   n.IsError(),
		IsMissing: n.IsMissing(),
		IsExtra:   n.IsExtra(),
		HasError:  n.HasError(),
	}

	cursor := n.Walk()
	defer cursor.Close()
	children := n.Children(cursor)
	for i := range children {
		child := &children[i]
		if child.IsExtra() {
			continue
		}
		if !child.IsNamed() && !child.IsMissing() && !child.IsError() {
			continue
		}
		c, err := convert(child)
		if err != nil {
			return nil, err
		}
		raw.Children = append(raw.Children, c)
	}
	return raw, nil
}
