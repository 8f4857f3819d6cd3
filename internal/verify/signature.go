package verify

import (
	"fmt"
	"slices"
	"strings"

	"github.com/kpumuk/metacheck/internal/locate"
	"github.com/kpumuk/metacheck/internal/syntax"
)

// Signature is the expected head of a member declaration.
type Signature struct {
	Modifiers []string
	Type      string
	Params    []Param
}

// Param is an expected parameter. An empty Name accepts any name.
type Param struct {
	Type string
	Name string
}

// Canonical renders the head with the given name and parameter names taken
// from names when the signature leaves them open.
func (s Signature) Canonical(name string, names ...string) string {
	var b strings.Builder
	for _, mod := range s.Modifiers {
		b.WriteString(mod)
		b.WriteByte(' ')
	}
	b.WriteString(s.Type)
	b.WriteByte(' ')
	b.WriteString(name)
	if s.Params == nil {
		return b.String()
	}
	b.WriteByte('(')
	for i, p := range s.Params {
		if i > 0 {
			b.WriteString(", ")
		}
		pname := p.Name
		if pname == "" && i < len(names) && names[i] != "" {
			pname = names[i]
		}
		if pname == "" {
			pname = locate.DefaultContextName
		}
		b.WriteString(p.Type)
		b.WriteByte(' ')
		b.WriteString(pname)
	}
	b.WriteByte(')')
	return b.String()
}

// Expected member heads of the tutorial.
var (
	InitializeSignature = Signature{
		Modifiers: []string{"public", "override"},
		Type:      "void",
		Params:    []Param{{Type: "AnalysisContext", Name: "context"}},
	}
	CallbackSignature = Signature{
		Modifiers: []string{"private"},
		Type:      "void",
		Params:    []Param{{Type: "SyntaxNodeAnalysisContext"}},
	}
	SupportedDiagnosticsSignature = Signature{
		Modifiers: []string{"public", "override"},
		Type:      "ImmutableArray<DiagnosticDescriptor>",
	}
)

// mismatch describes how decl deviates from sig, or returns "".
func (s Signature) mismatch(tree *syntax.Tree, decl syntax.NodeID) string {
	if mods := tree.Modifiers(decl); !sameSet(mods, s.Modifiers) {
		return fmt.Sprintf("modifiers should be %q, found %q", strings.Join(s.Modifiers, " "), strings.Join(mods, " "))
	}
	if got := tree.SignificantText(tree.DeclarationType(decl)); got != syntax.NormalizeSnippet(s.Type) {
		return fmt.Sprintf("type should be %s, found %q", s.Type, got)
	}
	if s.Params == nil {
		return ""
	}
	params := locate.Parameters(tree, decl)
	if len(params) != len(s.Params) {
		return fmt.Sprintf("expected %d parameter(s), found %d", len(s.Params), len(params))
	}
	for i, p := range params {
		want := s.Params[i]
		if got := tree.SignificantText(tree.DeclarationType(p)); got != want.Type {
			return fmt.Sprintf("parameter %d should have type %s, found %q", i+1, want.Type, got)
		}
		if want.Name != "" && tree.DeclarationNameText(p) != want.Name {
			return fmt.Sprintf("parameter %d should be named %s", i+1, want.Name)
		}
		if len(tree.Modifiers(p)) > 0 {
			return fmt.Sprintf("parameter %d should not have modifiers", i+1)
		}
	}
	return ""
}

func sameSet(got, want []string) bool {
	if len(got) != len(want) {
		return false
	}
	for _, w := range want {
		if !slices.Contains(got, w) {
			return false
		}
	}
	return true
}

// SignatureSpan returns the span a signature rewrite replaces: from the
// first modifier (or the type) through the parameter list, or through the
// name for properties. Attributes are kept.
func SignatureSpan(tree *syntax.Tree, decl syntax.NodeID) (start, end syntax.NodeID) {
	for _, c := range tree.ChildNodeIDs(decl) {
		if tree.IsMissing(c) {
			continue
		}
		if k := tree.Kind(c); k != syntax.KindAttributeList {
			start = c
			break
		}
	}
	end = tree.FirstChildOfKind(decl, syntax.KindParameterList)
	if end == syntax.NoNode {
		end = tree.DeclarationName(decl)
	}
	return start, end
}
