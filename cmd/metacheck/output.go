package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"
	"golang.org/x/term"

	"github.com/kpumuk/metacheck/internal/lint"
	"github.com/kpumuk/metacheck/internal/rules"
	"github.com/kpumuk/metacheck/internal/text"
)

const (
	outputFormatText = "text"
	outputFormatJSON = "json"
)

type diagnosticJSON struct {
	URI       string `json:"uri"`
	Source    string `json:"source"`
	Rule      string `json:"rule"`
	Code      string `json:"code"`
	Severity  string `json:"severity"`
	Message   string `json:"message"`
	Start     int    `json:"start"`
	End       int    `json:"end"`
	StartLine int    `json:"startLine"`
	StartCol  int    `json:"startCol"`
	EndLine   int    `json:"endLine"`
	EndCol    int    `json:"endCol"`
}

// palette colours diagnostic output. Colours are set per run so concurrent
// runs never share the package-level color.NoColor switch.
type palette struct {
	location *color.Color
	rule     *color.Color
	caret    *color.Color
	severity map[rules.Severity]*color.Color
}

func newPalette(enabled bool) palette {
	p := palette{
		location: color.New(color.Bold),
		rule:     color.New(color.FgCyan),
		caret:    color.New(color.FgGreen, color.Bold),
		severity: map[rules.Severity]*color.Color{
			rules.SeverityError:   color.New(color.FgRed, color.Bold),
			rules.SeverityWarning: color.New(color.FgYellow, color.Bold),
			rules.SeverityInfo:    color.New(color.FgBlue),
			rules.SeverityHidden:  color.New(color.Faint),
		},
	}
	for _, c := range p.all() {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

func (p palette) all() []*color.Color {
	out := []*color.Color{p.location, p.rule, p.caret}
	for _, c := range p.severity {
		out = append(out, c)
	}
	return out
}

func (p palette) sev(s rules.Severity) *color.Color {
	if c, ok := p.severity[s]; ok {
		return c
	}
	return p.severity[rules.SeverityError]
}

// colorEnabled resolves --color for w.
func colorEnabled(mode string, w io.Writer) bool {
	switch mode {
	case "always":
		return true
	case "never":
		return false
	}
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// report is the source and diagnostics of one checked input.
type report struct {
	uri   string
	src   []byte
	diags []lint.Diagnostic
}

func visible(diags []lint.Diagnostic) []lint.Diagnostic {
	out := make([]lint.Diagnostic, 0, len(diags))
	for _, d := range diags {
		if d.Severity != rules.SeverityHidden {
			out = append(out, d)
		}
	}
	return out
}

func writeDiagnostics(w io.Writer, p palette, reports []report) {
	first := true
	for _, r := range reports {
		li := text.NewLineIndex(r.src)
		for _, d := range visible(r.diags) {
			if !first {
				writeln(w)
			}
			first = false
			writeDiagnosticHeader(w, p, r, li, d)
			writeDiagnosticSnippet(w, p, r.src, li, d)
		}
	}
}

func writeDiagnosticHeader(w io.Writer, p palette, r report, li *text.LineIndex, d lint.Diagnostic) {
	loc := d.Span.String()
	if line, col, err := li.DisplayPoint(d.Span.Start); err == nil {
		loc = fmt.Sprintf("%d:%d", line, col)
	}
	writef(
		w,
		"%s: %s: %s: %s\n",
		p.location.Sprintf("%s:%s", r.uri, loc),
		p.sev(d.Severity).Sprint(d.Severity.String()),
		p.rule.Sprintf("%s/%s", d.Code, d.Name()),
		d.Message,
	)
	for _, rel := range d.Related {
		if rel.Message != "" {
			writef(w, "  note: %s\n", rel.Message)
		}
	}
}

func writeDiagnosticSnippet(w io.Writer, p palette, src []byte, li *text.LineIndex, d lint.Diagnostic) {
	line, err := li.LineAt(d.Span.Start)
	if err != nil {
		return
	}
	lineStart, lineText := line.Start, line.Slice(src)
	startCol := min(max(int(d.Span.Start-lineStart), 0), len(lineText))
	endCol := len(lineText)
	if d.Span.End >= d.Span.Start && int(d.Span.End-lineStart) < endCol {
		endCol = int(d.Span.End - lineStart)
	}
	writeln(w, string(lineText))
	writeString(w, caretPrefixForLine(lineText, startCol))
	writeString(w, p.caret.Sprint(strings.Repeat("^", caretWidth(lineText, startCol, endCol))))
	writeln(w)
}

// caretPrefixForLine pads to the display column of col, keeping tabs so the
// caret lines up in any tab width.
func caretPrefixForLine(line []byte, col int) string {
	if col <= 0 {
		return ""
	}
	col = min(col, len(line))
	var b strings.Builder
	for _, r := range string(line[:col]) {
		if r == '\t' {
			b.WriteByte('\t')
			continue
		}
		b.WriteString(strings.Repeat(" ", runewidth.RuneWidth(r)))
	}
	return b.String()
}

func caretWidth(line []byte, startCol, endCol int) int {
	if endCol <= startCol || startCol >= len(line) {
		return 1
	}
	return max(runewidth.StringWidth(string(line[startCol:endCol])), 1)
}

func writeJSONDiagnostics(w io.Writer, reports []report) error {
	payload := make([]diagnosticJSON, 0)
	for _, r := range reports {
		li := text.NewLineIndex(r.src)
		for _, d := range visible(r.diags) {
			sl, sc, err := li.DisplayPoint(d.Span.Start)
			if err != nil {
				return fmt.Errorf("%s: %w", r.uri, err)
			}
			el, ec, err := li.DisplayPoint(min(d.Span.End, li.SourceLen()))
			if err != nil {
				el, ec = sl, sc
			}
			payload = append(payload, diagnosticJSON{
				URI:       r.uri,
				Source:    lint.DiagnosticSource,
				Rule:      d.Name(),
				Code:      d.Code,
				Severity:  d.Severity.String(),
				Message:   d.Message,
				Start:     int(d.Span.Start),
				End:       int(d.Span.End),
				StartLine: sl,
				StartCol:  sc,
				EndLine:   el,
				EndCol:    ec,
			})
		}
	}
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(payload)
}

func writef(w io.Writer, format string, args ...any) {
	//nolint:gosec // Terminal output helper; format strings are internal callsite constants.
	_, _ = io.WriteString(w, fmt.Sprintf(format, args...))
}

func writeln(w io.Writer, args ...any) {
	_, _ = fmt.Fprintln(w, args...)
}

func writeString(w io.Writer, s string) {
	_, _ = io.WriteString(w, s)
}
