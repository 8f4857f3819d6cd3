package lint

import (
	"context"

	"github.com/kpumuk/metacheck/internal/locate"
	"github.com/kpumuk/metacheck/internal/syntax"
	"github.com/kpumuk/metacheck/internal/text"
	"github.com/kpumuk/metacheck/internal/verify"
)

// runChain executes c against m and converts its findings.
func runChain(ctx context.Context, c verify.Chain, m *locate.Model) ([]Diagnostic, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	findings := c.Run(m)
	out := make([]Diagnostic, 0, len(findings))
	for _, f := range findings {
		out = append(out, FromFinding(m.Tree, f))
	}
	return out, nil
}

// FromFinding builds the diagnostic reporting f.
func FromFinding(tree *syntax.Tree, f verify.Finding) Diagnostic {
	r := f.Rule.Rule()
	d := Diagnostic{
		Rule:     f.Rule,
		Code:     r.Code,
		Message:  f.Message(),
		Severity: r.Severity,
		Span:     f.Verdict.Anchor,
		Finding:  f,
	}
	if f.Verdict.Detail != "" {
		d.Related = append(d.Related, syntax.RelatedDiagnostic{
			Message: f.Verdict.Detail,
			Span:    targetSpan(tree, f),
		})
	}
	return d
}

func targetSpan(tree *syntax.Tree, f verify.Finding) text.Span {
	if n := tree.NodeByID(f.Verdict.Target); n != nil {
		return n.Span
	}
	return f.Verdict.Anchor
}
