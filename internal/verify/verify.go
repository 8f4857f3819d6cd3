// Package verify decides, for every tutorial step, whether the located
// analyzer implements it correctly, leaves it out, or gets its shape wrong.
//
// Steps are grouped in two independent chains. Within a chain the first step
// that is not Correct ends the chain, because later steps rely on the
// declarations the earlier ones establish.
package verify

import (
	"fmt"

	"github.com/kpumuk/metacheck/internal/locate"
	"github.com/kpumuk/metacheck/internal/rules"
	"github.com/kpumuk/metacheck/internal/syntax"
	"github.com/kpumuk/metacheck/internal/text"
)

// VerdictKind is the three-way outcome of checking one step.
type VerdictKind uint8

const (
	// Correct means the step is implemented as the tutorial prescribes.
	Correct VerdictKind = iota
	// Absent means the declaration or statement of the step is missing.
	Absent
	// Malformed means the step is present with the wrong shape.
	Malformed
)

func (k VerdictKind) String() string {
	switch k {
	case Correct:
		return "correct"
	case Absent:
		return "absent"
	case Malformed:
		return "malformed"
	default:
		return fmt.Sprintf("VerdictKind(%d)", k)
	}
}

// Verdict is the outcome of one step. Anchor is the span a diagnostic is
// reported at. Target is the node a fix works from: the offending node for
// Malformed verdicts, the container receiving the insertion for Absent ones.
type Verdict struct {
	Kind   VerdictKind
	Anchor text.Span
	Target syntax.NodeID
	Detail string
}

// Site addresses a statement position inside a verified block.
type Site struct {
	Block syntax.NodeID
	Index int
}

// Finding couples a non-Correct verdict to the rule reporting it.
type Finding struct {
	Rule    rules.ID
	Verdict Verdict
	Args    []string
	Step    string
	Site    Site
}

// Message renders the rule message with the finding arguments.
func (f Finding) Message() string {
	return f.Rule.Rule().Format(f.Args...)
}

// Step is one check of a chain. Check returns no findings when the step is
// Correct.
type Step struct {
	Name  string
	Rules []rules.ID
	Check func(*locate.Model) []Finding
}

// Chain is an ordered list of dependent steps.
type Chain struct {
	ID    rules.Chain
	Steps []Step
}

// Name returns the chain name.
func (c Chain) Name() string {
	return c.ID.String()
}

// Run executes the chain against m and returns the findings of the first
// step that is not Correct.
func (c Chain) Run(m *locate.Model) []Finding {
	for _, step := range c.Steps {
		if findings := step.Check(m); len(findings) > 0 {
			return findings
		}
	}
	return nil
}

// Chains returns both verification chains. The initialize chain runs first.
func Chains() []Chain {
	return []Chain{initializeChain(), descriptorChain()}
}

// All runs every chain against m.
func All(m *locate.Model) []Finding {
	var out []Finding
	for _, c := range Chains() {
		out = append(out, c.Run(m)...)
	}
	return out
}

// Covered returns every rule id some step can report.
func Covered() map[rules.ID]bool {
	out := map[rules.ID]bool{}
	for _, c := range Chains() {
		for _, s := range c.Steps {
			for _, id := range s.Rules {
				out[id] = true
			}
		}
	}
	return out
}

func absent(id rules.ID, anchor text.Span, target syntax.NodeID, detail string, args ...string) Finding {
	return Finding{
		Rule:    id,
		Verdict: Verdict{Kind: Absent, Anchor: anchor, Target: target, Detail: detail},
		Args:    args,
		Step:    id.String(),
	}
}

func malformed(id rules.ID, anchor text.Span, target syntax.NodeID, detail string, args ...string) Finding {
	return Finding{
		Rule:    id,
		Verdict: Verdict{Kind: Malformed, Anchor: anchor, Target: target, Detail: detail},
		Args:    args,
		Step:    id.String(),
	}
}

func one(f Finding) []Finding {
	return []Finding{f}
}

func span(m *locate.Model, id syntax.NodeID) text.Span {
	n := m.Tree.NodeByID(id)
	if n == nil {
		return text.Span{}
	}
	return n.Span
}

// classAnchor is the class identifier, or the class keyword span when the
// class is unnamed.
func classAnchor(m *locate.Model) text.Span {
	if m.ClassIdent != syntax.NoNode && !m.Tree.IsMissing(m.ClassIdent) {
		return span(m, m.ClassIdent)
	}
	return span(m, m.Class)
}

func nameAnchor(m *locate.Model, decl syntax.NodeID) text.Span {
	if name := m.Tree.DeclarationName(decl); name != syntax.NoNode {
		return span(m, name)
	}
	return span(m, decl)
}
