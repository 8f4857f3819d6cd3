// Package testutil provides shared helpers for repository tests.
package testutil

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"testing"

	"golang.org/x/tools/txtar"
)

// Fixture is one txtar verification scenario from testdata/fixtures.
//
// The archive holds input.cs, an optional want.diag listing the expected
// diagnostics as "RuleName line:column" lines, and an optional fixed.cs with
// the source after fixing the first reported diagnostic.
type Fixture struct {
	Name     string
	Path     string
	Comment  string
	Input    []byte
	WantDiag []string
	Fixed    []byte
	HasFixed bool
}

// RepoRoot returns the repository root by walking up from this source file.
func RepoRoot() (string, error) {
	_, file, _, ok := runtime.Caller(0)
	if !ok {
		return "", errors.New("runtime.Caller failed")
	}
	dir := filepath.Dir(file)
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", errors.New("repository root not found")
		}
		dir = parent
	}
}

// MustRepoRoot returns the repository root or fails the test.
func MustRepoRoot(t testing.TB) string {
	t.Helper()
	root, err := RepoRoot()
	if err != nil {
		t.Fatalf("RepoRoot: %v", err)
	}
	return root
}

// LoadFixtures returns every fixture under testdata/fixtures sorted by name.
func LoadFixtures() ([]Fixture, error) {
	root, err := RepoRoot()
	if err != nil {
		return nil, err
	}
	dir := filepath.Join(root, "testdata", "fixtures")
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read fixtures dir: %w", err)
	}

	var fixtures []Fixture
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || filepath.Ext(name) != ".txtar" || strings.HasPrefix(name, ".") {
			continue
		}
		f, err := ParseFixture(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		fixtures = append(fixtures, f)
	}
	sort.Slice(fixtures, func(i, j int) bool { return fixtures[i].Name < fixtures[j].Name })
	return fixtures, nil
}

// ParseFixture reads a single txtar fixture.
func ParseFixture(path string) (Fixture, error) {
	ar, err := txtar.ParseFile(path)
	if err != nil {
		return Fixture{}, fmt.Errorf("parse fixture %s: %w", path, err)
	}
	f := Fixture{
		Name:    strings.TrimSuffix(filepath.Base(path), ".txtar"),
		Path:    path,
		Comment: strings.TrimSpace(string(ar.Comment)),
	}
	var hasInput bool
	for _, file := range ar.Files {
		switch file.Name {
		case "input.cs":
			f.Input = file.Data
			hasInput = true
		case "want.diag":
			for line := range strings.SplitSeq(string(file.Data), "\n") {
				if line = strings.TrimSpace(line); line != "" && !strings.HasPrefix(line, "#") {
					f.WantDiag = append(f.WantDiag, line)
				}
			}
		case "fixed.cs":
			f.Fixed = file.Data
			f.HasFixed = true
		default:
			return Fixture{}, fmt.Errorf("fixture %s: unexpected file %q", path, file.Name)
		}
	}
	if !hasInput {
		return Fixture{}, fmt.Errorf("fixture %s: missing input.cs", path)
	}
	return f, nil
}

// MustLoadFixtures returns all fixtures or fails the test.
func MustLoadFixtures(t testing.TB) []Fixture {
	t.Helper()
	fixtures, err := LoadFixtures()
	if err != nil {
		t.Fatalf("LoadFixtures: %v", err)
	}
	return fixtures
}

// Canonical returns testdata/canonical.cs, the fully implemented analyzer.
func Canonical(t testing.TB) []byte {
	t.Helper()
	return ReadFile(t, filepath.Join(MustRepoRoot(t), "testdata", "canonical.cs"))
}

// ReadFile reads a fixture file or fails the test.
func ReadFile(t testing.TB, path string) []byte {
	t.Helper()
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile(%s): %v", path, err)
	}
	return b
}
