package lint

import (
	"context"

	"github.com/kpumuk/metacheck/internal/locate"
)

// DescriptorChainRule verifies the diagnostic id, the descriptor and the
// SupportedDiagnostics property.
type DescriptorChainRule struct{}

// ID returns the stable rule identifier.
func (DescriptorChainRule) ID() string {
	return "descriptor"
}

// Description returns a human-readable rule summary.
func (DescriptorChainRule) Description() string {
	return "the analyzer declares its id and descriptor and reports them as supported"
}

// Run evaluates the chain against a located analyzer.
func (r DescriptorChainRule) Run(ctx context.Context, m *locate.Model) ([]Diagnostic, error) {
	return runChain(ctx, chain(r.ID()), m)
}
