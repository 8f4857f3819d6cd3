// Package syntax builds an arena syntax tree by combining the lossless lexer
// with a parser backend. Node kinds follow the tree-sitter C# grammar.
package syntax

import (
	"fmt"

	"github.com/kpumuk/metacheck/internal/lexer"
	"github.com/kpumuk/metacheck/internal/text"
)

// NodeID identifies a node in Tree.Nodes.
type NodeID uint32

const (
	// NoNode is the sentinel value for the absence of a node.
	NoNode NodeID = 0
)

// ChildRef references either a token or a node child.
type ChildRef struct {
	IsToken bool
	Index   uint32 // token index or node ID
}

// NodeFlags carry parser recovery/error metadata.
type NodeFlags uint8

const (
	// NodeFlagError marks a parser error node.
	NodeFlagError NodeFlags = 1 << iota
	// NodeFlagMissing marks a zero-width node the parser inserted for absent syntax.
	NodeFlagMissing
	// NodeFlagRecovered marks a node subtree that contains parser recovery.
	NodeFlagRecovered
	// NodeFlagNamed marks a named grammar node.
	NodeFlagNamed
)

// Has reports whether all bits in mask are set.
func (f NodeFlags) Has(mask NodeFlags) bool {
	return f&mask == mask
}

// Node is a CST node in source order with token coverage.
//
// Children interleave token references and child nodes in source order, so
// a node's punctuation and keywords are reachable without consulting the
// parent.
type Node struct {
	ID         NodeID
	Kind       NodeKind
	Span       text.Span
	FirstToken uint32 // inclusive
	LastToken  uint32 // inclusive
	Parent     NodeID
	Children   []ChildRef
	Flags      NodeFlags
}

// Severity is a diagnostic severity level.
type Severity uint8

const (
	// SeverityError indicates an error diagnostic.
	SeverityError Severity = iota + 1
	// SeverityWarning indicates a warning diagnostic.
	SeverityWarning
	// SeverityInfo indicates an informational diagnostic.
	SeverityInfo
)

// DiagnosticCode identifies a syntax-layer diagnostic kind.
type DiagnosticCode string

const (
	// DiagnosticParserErrorNode reports a parser-generated error node.
	DiagnosticParserErrorNode DiagnosticCode = "PARSE_ERROR_NODE"
	// DiagnosticParserMissingNode reports a parser-generated missing node.
	DiagnosticParserMissingNode DiagnosticCode = "PARSE_MISSING_NODE"
	// DiagnosticInternalAlignment reports parser/lexer alignment invariant failures.
	DiagnosticInternalAlignment DiagnosticCode = "INTERNAL_ALIGNMENT"
	// DiagnosticInternalParse reports parser infrastructure issues surfaced in diagnostics.
	DiagnosticInternalParse DiagnosticCode = "INTERNAL_PARSE"
)

// RelatedDiagnostic adds context to a diagnostic.
type RelatedDiagnostic struct {
	Message string
	Span    text.Span
}

// Diagnostic is a unified syntax diagnostic.
type Diagnostic struct {
	Code        DiagnosticCode
	Message     string
	Severity    Severity
	Span        text.Span
	Related     []RelatedDiagnostic
	Source      string // lexer | parser
	Recoverable bool
}

// ParseOptions control syntax parsing behavior.
type ParseOptions struct {
	URI string
	// Backend selects a parser backend by name; empty uses the default.
	Backend string
}

// Tree is the immutable syntax parse result.
type Tree struct {
	URI         string
	Backend     string
	Source      []byte
	Tokens      []lexer.Token
	Nodes       []Node // index 0 is unused sentinel; real NodeIDs are 1-based
	Root        NodeID
	Diagnostics []Diagnostic
	LineIndex   *text.LineIndex
}

// NodeByID returns the node for id or nil if not present.
func (t *Tree) NodeByID(id NodeID) *Node {
	if t == nil || id == NoNode {
		return nil
	}
	idx := int(id)
	if idx < 0 || idx >= len(t.Nodes) {
		return nil
	}
	return &t.Nodes[idx]
}

// RootNode returns the root node or nil.
func (t *Tree) RootNode() *Node {
	return t.NodeByID(t.Root)
}

// HasSyntaxErrors reports whether any parser or lexer error was recorded.
func (t *Tree) HasSyntaxErrors() bool {
	if t == nil {
		return false
	}
	for _, d := range t.Diagnostics {
		if d.Severity == SeverityError {
			return true
		}
	}
	return false
}

func (n Node) String() string {
	return fmt.Sprintf("Node{id=%d kind=%s span=%s tokens=%d..%d}", n.ID, n.Kind, n.Span, n.FirstToken, n.LastToken)
}
