package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kpumuk/metacheck/internal/locate"
	"github.com/kpumuk/metacheck/internal/syntax"
)

func (a *app) debugCommand() *cobra.Command {
	var (
		input  inputOptions
		tokens bool
		cst    bool
		model  bool
	)
	cmd := &cobra.Command{
		Use:    "debug [flags] <file.cs>",
		Short:  "Dump tokens, the syntax tree or the located analyzer",
		Hidden: true,
		Args:   cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := input.validate(args); err != nil {
				return err
			}
			if !input.stdin && len(args) == 0 {
				return usageErrorf("expected a file path or --stdin")
			}
			path := ""
			if len(args) > 0 {
				path = args[0]
			}
			src, uri, err := readInput(a.stdin, input, path)
			if err != nil {
				return internalError(err)
			}
			tree, err := syntax.Parse(cmd.Context(), src, syntax.ParseOptions{URI: uri, Backend: a.cfg.Backend})
			if err != nil {
				return internalError(fmt.Errorf("parse failed: %w", err))
			}
			if !tokens && !cst && !model {
				cst = true
			}
			if tokens {
				dumpTokens(a.stdout, tree)
			}
			if cst {
				dumpCST(a.stdout, tree)
			}
			if model {
				dumpModel(a.stdout, tree)
			}
			return nil
		},
	}
	input.register(cmd)
	cmd.Flags().BoolVar(&tokens, "tokens", false, "dump lexer tokens")
	cmd.Flags().BoolVar(&cst, "cst", false, "dump the syntax tree (default)")
	cmd.Flags().BoolVar(&model, "model", false, "dump the located analyzer members")
	return cmd
}

func dumpTokens(w io.Writer, tree *syntax.Tree) {
	writeln(w, "TOKENS")
	for i, tok := range tree.Tokens {
		writef(w, "[%d] kind=%s span=%s text=%q", i, tok.Kind, tok.Span, tok.Bytes(tree.Source))
		if len(tok.Leading) > 0 {
			writeString(w, " leading=[")
			for j, tr := range tok.Leading {
				if j > 0 {
					writeString(w, ", ")
				}
				writef(w, "%s@%s:%q", tr.Kind, tr.Span, tr.Bytes(tree.Source))
			}
			writeString(w, "]")
		}
		writeln(w)
	}
}

func dumpCST(w io.Writer, tree *syntax.Tree) {
	writef(w, "CST root=%d backend=%s\n", tree.Root, tree.Backend)
	for i := 1; i < len(tree.Nodes); i++ {
		n := tree.Nodes[i]
		writef(
			w,
			"[%d] kind=%s span=%s tokens=%d..%d parent=%d flags=%s children=%d\n",
			n.ID,
			syntax.KindName(n.Kind),
			n.Span,
			n.FirstToken,
			n.LastToken,
			n.Parent,
			formatNodeFlags(n.Flags),
			len(n.Children),
		)
	}
	for _, d := range tree.Diagnostics {
		writef(w, "diagnostic %s %s: %s\n", d.Code, d.Span, d.Message)
	}
}

func dumpModel(w io.Writer, tree *syntax.Tree) {
	m, err := locate.Locate(tree)
	if err != nil {
		writef(w, "MODEL error=%v\n", err)
		return
	}
	writeln(w, "MODEL")
	node := func(label string, id syntax.NodeID) {
		if id == syntax.NoNode {
			writef(w, "%s=-\n", label)
			return
		}
		writef(w, "%s=%s@%s\n", label, syntax.KindName(tree.Nodes[id].Kind), tree.Nodes[id].Span)
	}
	writef(w, "class_name=%q\n", m.ClassName)
	node("class", m.Class)
	node("id_field", m.IDField)
	node("descriptor", m.Descriptor)
	node("supported_diagnostics", m.SupportedDiagnostics)
	node("initialize", m.Initialize)
	writef(w, "init_statements=%d registrations=%d\n", len(m.InitStatements), len(m.Registrations))
	for i, reg := range m.Registrations {
		writef(w, "  [%d] %s.%s args=%d valid=%t\n", i, reg.Receiver, reg.Method, len(reg.Args), m.IsValidRegistration(reg))
	}
	writef(w, "callback_name=%q\n", m.CallbackName)
	node("callback", m.Callback)
}

func formatNodeFlags(f syntax.NodeFlags) string {
	var parts []string
	if f.Has(syntax.NodeFlagNamed) {
		parts = append(parts, "named")
	}
	if f.Has(syntax.NodeFlagError) {
		parts = append(parts, "error")
	}
	if f.Has(syntax.NodeFlagMissing) {
		parts = append(parts, "missing")
	}
	if f.Has(syntax.NodeFlagRecovered) {
		parts = append(parts, "recovered")
	}
	if len(parts) == 0 {
		return "-"
	}
	return strings.Join(parts, "|")
}
