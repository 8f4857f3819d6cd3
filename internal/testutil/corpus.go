// Package testutil provides shared helpers for repository tests.
package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// CorpusFiles returns sorted .cs files under testdata/corpus. The corpus
// holds C# sources outside the tutorial shape used to exercise the parser.
func CorpusFiles() ([]string, error) {
	root, err := RepoRoot()
	if err != nil {
		return nil, err
	}
	dir := filepath.Join(root, "testdata", "corpus")
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read corpus: %w", err)
	}
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".cs" {
			continue
		}
		out = append(out, filepath.Join(dir, e.Name()))
	}
	sort.Strings(out)
	return out, nil
}
