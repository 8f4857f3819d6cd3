package lint

import (
	"context"

	"github.com/kpumuk/metacheck/internal/locate"
	"github.com/kpumuk/metacheck/internal/verify"
)

// InitializeChainRule verifies Initialize, the registration and the
// registered callback body.
type InitializeChainRule struct{}

// ID returns the stable rule identifier.
func (InitializeChainRule) ID() string {
	return "initialize"
}

// Description returns a human-readable rule summary.
func (InitializeChainRule) Description() string {
	return "Initialize registers one if statement callback that follows the tutorial steps"
}

// Run evaluates the chain against a located analyzer.
func (r InitializeChainRule) Run(ctx context.Context, m *locate.Model) ([]Diagnostic, error) {
	return runChain(ctx, chain(r.ID()), m)
}

func chain(name string) verify.Chain {
	for _, c := range verify.Chains() {
		if c.Name() == name {
			return c
		}
	}
	return verify.Chain{}
}
