// Package fix synthesizes source edits that repair one tutorial step at a
// time and applies them to produce a new syntax tree snapshot.
package fix

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/kpumuk/metacheck/internal/lint"
	"github.com/kpumuk/metacheck/internal/locate"
	"github.com/kpumuk/metacheck/internal/rules"
	"github.com/kpumuk/metacheck/internal/syntax"
	"github.com/kpumuk/metacheck/internal/text"
)

var (
	// ErrNoSynthesizer reports a rule without a fix synthesizer.
	ErrNoSynthesizer = errors.New("no fix synthesizer for rule")
	// ErrNoEdits reports a synthesizer that produced no change.
	ErrNoEdits = errors.New("fix produced no edits")
)

// UnsafeReason identifies why a fix was refused.
type UnsafeReason string

const (
	// UnsafeReasonInvalidUTF8 indicates invalid UTF-8 bytes in the source input.
	UnsafeReasonInvalidUTF8 UnsafeReason = "invalid_utf8"
	// UnsafeReasonDegradedTree indicates the parser could not build a tree.
	UnsafeReasonDegradedTree UnsafeReason = "degraded_tree"
)

// ErrUnsafeToFix is returned when a fix is refused due to unsafe input state.
type ErrUnsafeToFix struct {
	Reason  UnsafeReason
	Message string
}

func (e *ErrUnsafeToFix) Error() string {
	if e == nil {
		return "unsafe to fix"
	}
	if e.Message == "" {
		return fmt.Sprintf("unsafe to fix (%s)", e.Reason)
	}
	return fmt.Sprintf("unsafe to fix (%s): %s", e.Reason, e.Message)
}

// IsErrUnsafeToFix reports whether err is a fix safety refusal.
func IsErrUnsafeToFix(err error) bool {
	var target *ErrUnsafeToFix
	return errors.As(err, &target)
}

// Result is the outcome of applying one fix.
type Result struct {
	Rule    rules.ID
	Edits   []text.ByteEdit
	Output  []byte
	Tree    *syntax.Tree
	Changed bool
}

// Apply synthesizes the fix for diag, applies it to tree.Source and parses
// the result with the same backend. The input tree is never modified.
func Apply(ctx context.Context, tree *syntax.Tree, diag lint.Diagnostic) (*Result, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if tree == nil {
		return nil, errors.New("nil syntax tree")
	}
	if err := checkSafe(tree); err != nil {
		return nil, err
	}
	m, err := locate.Locate(tree)
	if err != nil {
		return nil, err
	}
	edits, err := Synthesize(tree, m, diag.Finding)
	if err != nil {
		return nil, err
	}
	if len(edits) == 0 {
		return nil, fmt.Errorf("%s: %w", diag.Rule, ErrNoEdits)
	}
	out, err := text.ApplyEdits(tree.Source, edits)
	if err != nil {
		return nil, fmt.Errorf("apply %s fix: %w", diag.Rule, err)
	}
	if bytes.Equal(out, tree.Source) {
		return nil, fmt.Errorf("%s: %w", diag.Rule, ErrNoEdits)
	}
	next, err := syntax.Parse(ctx, out, syntax.ParseOptions{URI: tree.URI, Backend: tree.Backend})
	if err != nil {
		return nil, fmt.Errorf("reparse after %s fix: %w", diag.Rule, err)
	}
	return &Result{
		Rule:    diag.Rule,
		Edits:   edits,
		Output:  out,
		Tree:    next,
		Changed: true,
	}, nil
}

func checkSafe(tree *syntax.Tree) error {
	if !utf8.Valid(tree.Source) {
		return &ErrUnsafeToFix{Reason: UnsafeReasonInvalidUTF8, Message: "input contains invalid UTF-8 bytes"}
	}
	for _, d := range tree.Diagnostics {
		if d.Code == syntax.DiagnosticInternalParse {
			return &ErrUnsafeToFix{Reason: UnsafeReasonDegradedTree, Message: d.Message}
		}
	}
	return nil
}
