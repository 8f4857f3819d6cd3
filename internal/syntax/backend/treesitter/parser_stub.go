//go:build !cgo || !metacheck_treesitter

package treesitter

import "github.com/kpumuk/metacheck/internal/syntax/backend"

const available = false

func newParser() (backend.Parser, error) {
	return nil, backend.ErrUnavailable
}
