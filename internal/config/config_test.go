package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kpumuk/metacheck/internal/rules"
)

func TestParse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		format string
		data   string
		check  func(t *testing.T, c Config)
	}{
		{
			name:   "toml",
			format: "toml",
			data:   "backend = \"native\"\njobs = 3\nsingle_step = true\ndisabled = [\"MissingId\"]\n\n[severity]\nMissingInit = \"warning\"\n",
			check: func(t *testing.T, c Config) {
				if c.Jobs != 3 || !c.SingleStep {
					t.Fatalf("Config = %+v", c)
				}
				if c.Severity["MissingInit"] != "warning" {
					t.Fatalf("Severity = %v", c.Severity)
				}
			},
		},
		{
			name:   "yaml",
			format: "yaml",
			data:   "format: json\ncolor: never\nseverity:\n  MetaAnalyzer001: info\n",
			check: func(t *testing.T, c Config) {
				if c.Format != "json" || c.Color != "never" {
					t.Fatalf("Config = %+v", c)
				}
				if c.Backend != "native" {
					t.Fatalf("Backend = %q, want default native", c.Backend)
				}
			},
		},
		{
			name:   "empty yaml keeps defaults",
			format: "yaml",
			data:   "",
			check: func(t *testing.T, c Config) {
				if c.Format != "text" || c.Color != "auto" {
					t.Fatalf("Config = %+v, want defaults", c)
				}
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c, err := Parse([]byte(tt.data), tt.format, tt.name)
			if err != nil {
				t.Fatalf("Parse: %v", err)
			}
			tt.check(t, c)
		})
	}
}

func TestParseRejectsInvalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		format string
		data   string
		want   string
	}{
		{"unknown toml key", "toml", "colour = \"always\"\n", "unknown key"},
		{"unknown yaml key", "yaml", "colour: always\n", "colour"},
		{"unknown backend", "toml", "backend = \"roslyn\"\n", "unknown backend"},
		{"unknown format", "yaml", "format: sarif\n", "unknown format"},
		{"unknown rule", "toml", "disabled = [\"NoSuchRule\"]\n", "NoSuchRule"},
		{"unknown severity", "toml", "[severity]\nMissingInit = \"fatal\"\n", "fatal"},
		{"negative jobs", "yaml", "jobs: -1\n", "jobs"},
		{"bad syntax", "toml", "backend = \n", "TOML"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := Parse([]byte(tt.data), tt.format, "test")
			if err == nil {
				t.Fatal("Parse succeeded, want error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("error = %v, want it to mention %q", err, tt.want)
			}
		})
	}
}

func TestValidationErrorsWrapErrInvalid(t *testing.T) {
	t.Parallel()

	_, err := Parse([]byte("color: sometimes\n"), "yaml", "test")
	if !errors.Is(err, ErrInvalid) {
		t.Fatalf("error = %v, want ErrInvalid", err)
	}
}

func TestDiscoverWalksUp(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	path := filepath.Join(root, ".metacheck.yml")
	if err := os.WriteFile(path, []byte("jobs: 2\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	c, got, err := Discover(nested)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if got != path {
		t.Fatalf("path = %q, want %q", got, path)
	}
	if c.Jobs != 2 {
		t.Fatalf("Jobs = %d, want 2", c.Jobs)
	}
}

func TestFindPrefersTOML(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	for _, name := range []string{".metacheck.yaml", ".metacheck.toml"} {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0o644); err != nil {
			t.Fatalf("WriteFile: %v", err)
		}
	}
	got, ok, err := Find(dir)
	if err != nil || !ok {
		t.Fatalf("Find = %q, %v, %v", got, ok, err)
	}
	if filepath.Base(got) != ".metacheck.toml" {
		t.Fatalf("Find = %q, want .metacheck.toml", got)
	}
}

func TestLoadRejectsUnknownExtension(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "metacheck.json")
	if err := os.WriteFile(path, []byte("{}"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("Load(.json) succeeded")
	}
}

func TestLintOptions(t *testing.T) {
	t.Parallel()

	c := Config{
		SingleStep: true,
		Severity:   map[string]string{"MissingInit": "warn"},
		Disabled:   []string{"MetaAnalyzer008"},
	}
	opts, err := c.LintOptions(nil)
	if err != nil {
		t.Fatalf("LintOptions: %v", err)
	}
	if !opts.SingleStep {
		t.Fatal("SingleStep = false")
	}
	if opts.Severity[rules.MissingInit] != rules.SeverityWarning {
		t.Fatalf("Severity = %v", opts.Severity)
	}
	if !opts.Disabled[rules.MissingId] {
		t.Fatalf("Disabled = %v, want MissingId", opts.Disabled)
	}
}
