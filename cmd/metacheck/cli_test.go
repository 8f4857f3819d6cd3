package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kpumuk/metacheck/internal/rules"
	"github.com/kpumuk/metacheck/internal/testutil"
)

const bareAnalyzer = "public class SpacingAnalyzer : DiagnosticAnalyzer\n{\n}\n"

func runCLI(t *testing.T, stdin string, args ...string) (int, string, string) {
	t.Helper()
	var out, errb bytes.Buffer
	code := run(context.Background(), strings.NewReader(stdin), &out, &errb, args)
	return code, out.String(), errb.String()
}

func TestRunUsageErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		args []string
		want string
	}{
		{name: "unknown command", args: []string{"lint"}, want: "unknown command"},
		{name: "unknown flag", args: []string{"check", "--bogus"}, want: "unknown flag"},
		{name: "stdin with path", args: []string{"check", "--no-cache", "--stdin", "a.cs"}, want: "positional file path is not allowed with --stdin"},
		{name: "no input", args: []string{"check", "--no-cache"}, want: "expected at least one file path or --stdin"},
		{name: "assume without stdin", args: []string{"fix", "--assume-filename", "x.cs", "a.cs"}, want: "--assume-filename requires --stdin"},
		{name: "unknown rule", args: []string{"fix", "--stdin", "--rule", "NoSuchRule"}, want: `unknown rule "NoSuchRule"`},
		{name: "write with stdin", args: []string{"fix", "--stdin", "--write"}, want: "--write cannot be used with --stdin"},
		{name: "bad format", args: []string{"check", "--no-cache", "--stdin", "--format", "xml"}, want: "unknown format"},
		{name: "bad backend", args: []string{"--backend", "roslyn", "check", "--stdin"}, want: "unknown backend"},
		{name: "bad log level", args: []string{"--log-level", "loud", "rules"}, want: "invalid --log-level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			code, _, stderr := runCLI(t, bareAnalyzer, tt.args...)
			if code != exitUsage {
				t.Fatalf("exit code = %d, want %d; stderr=%q", code, exitUsage, stderr)
			}
			if !strings.Contains(stderr, tt.want) {
				t.Fatalf("stderr = %q, want substring %q", stderr, tt.want)
			}
		})
	}
}

func TestCheckCanonicalExitOK(t *testing.T) {
	t.Parallel()

	code, stdout, stderr := runCLI(t, string(testutil.Canonical(t)), "check", "--no-cache", "--stdin")
	if code != exitOK {
		t.Fatalf("exit code = %d, want %d; stderr=%q", code, exitOK, stderr)
	}
	if stdout != "" || stderr != "" {
		t.Fatalf("expected no output; stdout=%q stderr=%q", stdout, stderr)
	}
}

func TestCheckTextDiagnostics(t *testing.T) {
	t.Parallel()

	code, stdout, stderr := runCLI(t, bareAnalyzer, "check", "--no-cache", "--stdin", "--assume-filename", "Spacing.cs")
	if code != exitIssues {
		t.Fatalf("exit code = %d, want %d; stderr=%q", code, exitIssues, stderr)
	}
	if stdout != "" {
		t.Fatalf("unexpected stdout for text diagnostics: %q", stdout)
	}
	for _, want := range []string{
		"Spacing.cs:",
		"error: MetaAnalyzer001/MissingInit:",
		rules.MissingId.Rule().Code + "/MissingId:",
		"public class SpacingAnalyzer : DiagnosticAnalyzer\n",
		"^",
	} {
		if !strings.Contains(stderr, want) {
			t.Fatalf("stderr missing %q:\n%s", want, stderr)
		}
	}
	if strings.Contains(stderr, "\x1b[") {
		t.Fatalf("colour escapes written to a buffer: %q", stderr)
	}
}

func TestCheckColorAlways(t *testing.T) {
	t.Parallel()

	code, _, stderr := runCLI(t, bareAnalyzer, "--color", "always", "check", "--no-cache", "--stdin")
	if code != exitIssues {
		t.Fatalf("exit code = %d, want %d", code, exitIssues)
	}
	if !strings.Contains(stderr, "\x1b[") {
		t.Fatalf("stderr has no colour escapes: %q", stderr)
	}
}

func TestCheckSingleStep(t *testing.T) {
	t.Parallel()

	code, stdout, _ := runCLI(t, bareAnalyzer, "check", "--no-cache", "--stdin", "--single-step", "--format", "json")
	if code != exitIssues {
		t.Fatalf("exit code = %d, want %d", code, exitIssues)
	}
	var payload []diagnosticJSON
	if err := json.Unmarshal([]byte(stdout), &payload); err != nil {
		t.Fatalf("json.Unmarshal: %v\n%s", err, stdout)
	}
	if len(payload) != 1 || payload[0].Rule != "MissingInit" {
		t.Fatalf("payload = %+v, want only MissingInit", payload)
	}
}

func TestCheckJSONDiagnostics(t *testing.T) {
	t.Parallel()

	code, stdout, stderr := runCLI(t, bareAnalyzer, "check", "--no-cache", "--stdin", "--format", "json")
	if code != exitIssues {
		t.Fatalf("exit code = %d, want %d; stderr=%q", code, exitIssues, stderr)
	}
	var payload []diagnosticJSON
	if err := json.Unmarshal([]byte(stdout), &payload); err != nil {
		t.Fatalf("json.Unmarshal: %v\n%s", err, stdout)
	}
	if len(payload) != 2 {
		t.Fatalf("len(payload) = %d, want 2: %+v", len(payload), payload)
	}
	for _, d := range payload {
		if d.URI != "stdin.cs" || d.Source != "metacheck" || d.StartLine < 1 || d.StartCol < 1 {
			t.Fatalf("unexpected diagnostic %+v", d)
		}
	}
}

func TestCheckFilesAndPerFileErrors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	good := filepath.Join(dir, "good.cs")
	if err := os.WriteFile(good, testutil.Canonical(t), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	code, _, stderr := runCLI(t, "", "check", "--no-cache", good)
	if code != exitOK {
		t.Fatalf("exit code = %d, want %d; stderr=%q", code, exitOK, stderr)
	}

	code, _, stderr = runCLI(t, "", "check", "--no-cache", good, filepath.Join(dir, "missing.cs"))
	if code != exitInternal {
		t.Fatalf("exit code = %d, want %d", code, exitInternal)
	}
	if !strings.Contains(stderr, "missing.cs") {
		t.Fatalf("stderr does not name the missing file: %q", stderr)
	}
}

func TestCheckUsesCacheDir(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	cacheDir := filepath.Join(dir, "cache")
	path := filepath.Join(dir, "a.cs")
	if err := os.WriteFile(path, []byte(bareAnalyzer), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	first, _, firstErr := runCLI(t, "", "--cache-dir", cacheDir, "check", path)
	second, _, secondErr := runCLI(t, "", "--cache-dir", cacheDir, "check", path)
	if first != exitIssues || second != exitIssues {
		t.Fatalf("exit codes = %d, %d, want %d", first, second, exitIssues)
	}
	if firstErr != secondErr {
		t.Fatalf("cached output differs:\nfirst:\n%s\nsecond:\n%s", firstErr, secondErr)
	}
	entries, err := filepath.Glob(filepath.Join(cacheDir, "results", "*", "*.mp"))
	if err != nil || len(entries) != 1 {
		t.Fatalf("cache entries = %v, %v, want one", entries, err)
	}
}

func TestCheckConfigFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	cfg := filepath.Join(dir, ".metacheck.toml")
	data := "no_cache = true\n\n[severity]\nMissingInit = \"hidden\"\nMetaAnalyzer008 = \"none\"\n"
	if err := os.WriteFile(cfg, []byte(data), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	code, stdout, stderr := runCLI(t, bareAnalyzer, "--config", cfg, "check", "--stdin")
	if code != exitOK {
		t.Fatalf("exit code = %d, want %d; stderr=%q", code, exitOK, stderr)
	}
	if stdout != "" || stderr != "" {
		t.Fatalf("hidden diagnostics were printed; stdout=%q stderr=%q", stdout, stderr)
	}

	bad := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(bad, []byte("backend: roslyn\n"), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if code, _, _ := runCLI(t, bareAnalyzer, "--config", bad, "check", "--stdin"); code != exitUsage {
		t.Fatalf("exit code for invalid config = %d, want %d", code, exitUsage)
	}
}

func TestFixStepPrintsSource(t *testing.T) {
	t.Parallel()

	code, stdout, stderr := runCLI(t, bareAnalyzer, "--no-cache", "fix", "--stdin")
	if code != exitOK {
		t.Fatalf("exit code = %d, want %d; stderr=%q", code, exitOK, stderr)
	}
	if !strings.Contains(stdout, "public override void Initialize(AnalysisContext context)") {
		t.Fatalf("fixed source lacks Initialize:\n%s", stdout)
	}
	if strings.Contains(stdout, "DiagnosticDescriptor") {
		t.Fatalf("single fix touched the descriptor chain:\n%s", stdout)
	}
}

func TestFixRuleSelectsDiagnostic(t *testing.T) {
	t.Parallel()

	code, stdout, _ := runCLI(t, bareAnalyzer, "--no-cache", "fix", "--stdin", "--rule", "MissingId")
	if code != exitOK {
		t.Fatalf("exit code = %d, want %d", code, exitOK)
	}
	if !strings.Contains(stdout, "spacingRuleId") || strings.Contains(stdout, "Initialize") {
		t.Fatalf("--rule MissingId did not fix only the id:\n%s", stdout)
	}
}

func TestFixAllConvergesAndWrites(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "SpacingAnalyzer.cs")
	if err := os.WriteFile(path, []byte(bareAnalyzer), 0o640); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	code, stdout, stderr := runCLI(t, "", "--no-cache", "fix", "--all", "--write", path)
	if code != exitOK {
		t.Fatalf("exit code = %d, want %d; stderr=%q", code, exitOK, stderr)
	}
	if stdout != "" {
		t.Fatalf("--write printed the source: %q", stdout)
	}
	st, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if st.Mode().Perm() != 0o640 {
		t.Fatalf("mode = %v, want 0640", st.Mode().Perm())
	}
	code, _, stderr = runCLI(t, "", "check", "--no-cache", path)
	if code != exitOK {
		t.Fatalf("check after fix --all = %d, want %d; stderr=%q", code, exitOK, stderr)
	}
}

func TestFixCanonicalIsUnchanged(t *testing.T) {
	t.Parallel()

	canonical := string(testutil.Canonical(t))
	code, stdout, _ := runCLI(t, canonical, "--no-cache", "fix", "--stdin", "--all")
	if code != exitOK {
		t.Fatalf("exit code = %d, want %d", code, exitOK)
	}
	if stdout != canonical {
		t.Fatalf("fix changed a verified source:\n%s", stdout)
	}
}

func TestFixRefusesInvalidUTF8(t *testing.T) {
	t.Parallel()

	code, _, stderr := runCLI(t, bareAnalyzer+"// \xff\n", "--no-cache", "fix", "--stdin")
	if code != exitInternal {
		t.Fatalf("exit code = %d, want %d", code, exitInternal)
	}
	if !strings.Contains(stderr, "refusing to fix") {
		t.Fatalf("stderr = %q, want refusal", stderr)
	}
}

func TestRulesListsCatalog(t *testing.T) {
	t.Parallel()

	code, stdout, _ := runCLI(t, "", "rules", "--format", "json")
	if code != exitOK {
		t.Fatalf("exit code = %d, want %d", code, exitOK)
	}
	var payload []ruleJSON
	if err := json.Unmarshal([]byte(stdout), &payload); err != nil {
		t.Fatalf("json.Unmarshal: %v", err)
	}
	all := rules.All()
	if len(payload) != len(all) {
		t.Fatalf("len(payload) = %d, want %d", len(payload), len(all))
	}
	for i, r := range all {
		if payload[i].Code != r.Code || payload[i].Name != r.Name || !payload[i].Fixable {
			t.Fatalf("payload[%d] = %+v, want fixable %s", i, payload[i], r.Name)
		}
	}

	code, stdout, _ = runCLI(t, "", "rules")
	if code != exitOK {
		t.Fatalf("exit code = %d, want %d", code, exitOK)
	}
	if lines := strings.Count(stdout, "\n"); lines != len(all) {
		t.Fatalf("text listing has %d lines, want %d", lines, len(all))
	}
}

func TestDebugDumps(t *testing.T) {
	t.Parallel()

	code, stdout, stderr := runCLI(t, bareAnalyzer, "debug", "--stdin", "--tokens", "--cst", "--model")
	if code != exitOK {
		t.Fatalf("exit code = %d, want %d; stderr=%q", code, exitOK, stderr)
	}
	for _, want := range []string{"TOKENS", "CST root=", "MODEL", `class_name="SpacingAnalyzer"`, "initialize=-"} {
		if !strings.Contains(stdout, want) {
			t.Fatalf("debug output missing %q:\n%s", want, stdout)
		}
	}
}

func TestCaretPrefixForLine(t *testing.T) {
	t.Parallel()

	tests := []struct {
		line string
		col  int
		want string
	}{
		{line: "abc", col: 0, want: ""},
		{line: "\tif (x)", col: 1, want: "\t"},
		{line: "ab", col: 2, want: "  "},
		{line: "日本x", col: len("日本"), want: "    "},
		{line: "ab", col: 10, want: "  "},
	}
	for _, tt := range tests {
		if got := caretPrefixForLine([]byte(tt.line), tt.col); got != tt.want {
			t.Fatalf("caretPrefixForLine(%q, %d) = %q, want %q", tt.line, tt.col, got, tt.want)
		}
	}
	if got := caretWidth([]byte("日本x"), 0, len("日本")); got != 4 {
		t.Fatalf("caretWidth = %d, want 4", got)
	}
}
