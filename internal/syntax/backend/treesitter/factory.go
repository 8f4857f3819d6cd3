// Package treesitter adapts the tree-sitter C# grammar to the parser backend
// contract. The grammar is linked through cgo and only compiled in with the
// metacheck_treesitter build tag; other builds report backend.ErrUnavailable.
package treesitter

import "github.com/kpumuk/metacheck/internal/syntax/backend"

const factoryName = "treesitter"

// Factory creates tree-sitter C# parsers.
type Factory struct{}

var _ backend.Factory = (*Factory)(nil)

// NewFactory constructs a tree-sitter backend factory.
func NewFactory() *Factory {
	return &Factory{}
}

// Name returns the stable backend identifier.
func (*Factory) Name() string {
	return factoryName
}

// NewParser creates a parser instance. It returns backend.ErrUnavailable
// when the grammar is not compiled into this binary.
func (*Factory) NewParser() (backend.Parser, error) {
	return newParser()
}

// Available reports whether the grammar is compiled into this binary.
func Available() bool {
	return available
}
