package syntax

import "testing"

func TestKindNamesRoundTrip(t *testing.T) {
	t.Parallel()

	for k := KindUnknown + 1; k < kindCount; k++ {
		name := KindName(k)
		if name == "" {
			t.Fatalf("kind %d has no name", k)
		}
		if got := KindFromName(name); got != k {
			t.Fatalf("KindFromName(%q) = %v, want %v", name, got, k)
		}
	}
}

func TestKindFromNameUnknown(t *testing.T) {
	t.Parallel()

	for _, name := range []string{"", ";", "preproc_region", "unknown"} {
		if got := KindFromName(name); got != KindUnknown {
			t.Fatalf("KindFromName(%q) = %v, want unknown", name, got)
		}
	}
	if got := KindName(kindCount + 3); got != "unknown" {
		t.Fatalf("KindName(out of range) = %q, want unknown", got)
	}
}

func TestKindClassification(t *testing.T) {
	t.Parallel()

	tests := []struct {
		kind      NodeKind
		statement bool
		typeDecl  bool
		literal   bool
	}{
		{KindIfStatement, true, false, false},
		{KindBlock, true, false, false},
		{KindLocalDeclarationStatement, true, false, false},
		{KindClassDeclaration, false, true, false},
		{KindRecordDeclaration, false, true, false},
		{KindStringLiteral, false, false, true},
		{KindNullLiteral, false, false, true},
		{KindInvocationExpression, false, false, false},
	}
	for _, tt := range tests {
		if got := tt.kind.IsStatement(); got != tt.statement {
			t.Fatalf("%v.IsStatement() = %v, want %v", tt.kind, got, tt.statement)
		}
		if got := tt.kind.IsTypeDeclaration(); got != tt.typeDecl {
			t.Fatalf("%v.IsTypeDeclaration() = %v, want %v", tt.kind, got, tt.typeDecl)
		}
		if got := tt.kind.IsLiteral(); got != tt.literal {
			t.Fatalf("%v.IsLiteral() = %v, want %v", tt.kind, got, tt.literal)
		}
	}
}
