// Package backend defines parser backend abstractions for syntax parsing.
package backend

import (
	"context"
	"errors"
)

// ErrUnavailable is returned by factories whose backend is not compiled in.
var ErrUnavailable = errors.New("parser backend unavailable in this build")

// RawNode is a backend-neutral parse node. Kind carries the tree-sitter C#
// grammar kind name ("if_statement", "identifier", ...); punctuation and
// keywords are not represented, tokens come from the lexer.
type RawNode struct {
	Kind      string
	StartByte int
	EndByte   int
	IsNamed   bool
	IsError   bool
	IsMissing bool
	IsExtra   bool
	HasError  bool
	Children  []*RawNode
}

// Walk visits n and its descendants in pre-order.
func (n *RawNode) Walk(visit func(*RawNode)) {
	if n == nil {
		return
	}
	visit(n)
	for _, child := range n.Children {
		child.Walk(visit)
	}
}

// Count returns the number of nodes in the subtree rooted at n, extras excluded.
func (n *RawNode) Count() int {
	if n == nil || n.IsExtra {
		return 0
	}
	total := 1
	for _, child := range n.Children {
		total += child.Count()
	}
	return total
}

// Parser is a low-level parser contract used by syntax.Parse.
type Parser interface {
	Parse(ctx context.Context, src []byte) (*RawNode, error)
	Close()
}

// Factory creates parser instances for a specific backend implementation.
type Factory interface {
	Name() string
	NewParser() (Parser, error)
}
