package rules

import (
	"strings"
	"testing"
)

func TestCatalogIsCompleteAndOrdered(t *testing.T) {
	t.Parallel()

	all := All()
	if got, want := len(all), int(idCount)-1; got != want {
		t.Fatalf("len(All()) = %d, want %d", got, want)
	}
	seenNames := map[string]bool{}
	seenCodes := map[string]bool{}
	for i, r := range all {
		if r.ID != ID(i+1) {
			t.Fatalf("All()[%d].ID = %v, want %v", i, r.ID, ID(i+1))
		}
		if r.Name == "" || r.Title == "" || r.MessageFormat == "" {
			t.Fatalf("rule %d has empty fields: %+v", r.ID, r)
		}
		if seenNames[r.Name] {
			t.Fatalf("duplicate rule name %q", r.Name)
		}
		if seenCodes[r.Code] {
			t.Fatalf("duplicate rule code %q", r.Code)
		}
		seenNames[r.Name] = true
		seenCodes[r.Code] = true
		if r.Chain != ChainInitialize && r.Chain != ChainDescriptor {
			t.Fatalf("rule %s has no chain", r.Name)
		}
	}
}

func TestCatalogOrderFollowsTutorial(t *testing.T) {
	t.Parallel()

	order := []ID{
		MissingInit, IncorrectInitSig, InvalidStatement, MissingRegisterStatement,
		TooManyInitStatements, MissingId, MissingSuppDiag, MissingAnalysisMethod,
		IfStatementMissing, IfKeywordMissing, TrailingTriviaCheckMissing,
		TrailingTriviaVarMissing, DiagnosticReportIncorrect, TooManyStatements,
	}
	for i := 1; i < len(order); i++ {
		if order[i-1] >= order[i] {
			t.Fatalf("%v should precede %v", order[i-1], order[i])
		}
	}
}

func TestStableMessages(t *testing.T) {
	t.Parallel()

	tests := []struct {
		id   ID
		args []string
		want string
	}{
		{MissingId, []string{"SyntaxNodeAnalyzerAnalyzer"}, "The analyzer 'SyntaxNodeAnalyzerAnalyzer' is missing a diagnostic id"},
		{MissingInit, []string{"A"}, "The analyzer 'A' is missing the required Initialize method"},
		{MissingRegisterStatement, nil, "An action must be registered within the 'Initialize' method"},
		{TooManyInitStatements, nil, "The 'Initialize' method registers multiple actions"},
		{InvalidStatement, []string{"int i = 0;"}, "The Initialize method only registers actions: the statement 'int i = 0;' is invalid"},
		{IncorrectInitSig, nil, "The signature for the 'Initialize' method is incorrect"},
		{IfStatementMissing, nil, "The first step of the node analysis is to extract the if statement from context"},
		{IfStatementIncorrect, nil, "This statement should extract the if statement in question by casting context.Node to IfStatementSyntax"},
		{IfKeywordMissing, nil, "The second step is to extract the 'if' keyword from ifStatement"},
		{IfKeywordIncorrect, nil, "This statement should extract the 'if' keyword from ifStatement"},
		{TrailingTriviaCheckMissing, nil, "The third step is to begin looking for the space between 'if' and '(' by checking if ifKeyword has trailing trivia"},
		{TrailingTriviaCheckIncorrect, nil, "This statement should be an if statement that checks to see if ifKeyword has trailing trivia"},
		{TrailingTriviaVarMissing, nil, "The fourth step is to extract the last trailing trivia of ifKeyword into a variable"},
		{TrailingTriviaVarIncorrect, nil, "This statement should extract the last trailing trivia of ifKeyword into a variable"},
	}
	for _, tt := range tests {
		if got := tt.id.Rule().Format(tt.args...); got != tt.want {
			t.Fatalf("%v.Format() = %q, want %q", tt.id, got, tt.want)
		}
	}
}

func TestFormatLeavesUnfilledSlots(t *testing.T) {
	t.Parallel()

	if got := MissingId.Rule().Format(); !strings.Contains(got, "{0}") {
		t.Fatalf("Format() without args = %q, want {0} slot kept", got)
	}
	if got := IncorrectRegister.Rule().Format("ctx"); got != "A syntax node action should be registered on 'ctx' by calling ctx.RegisterSyntaxNodeAction" {
		t.Fatalf("Format(ctx) = %q", got)
	}
}

func TestLookup(t *testing.T) {
	t.Parallel()

	r, ok := Lookup("TooManyInitStatements")
	if !ok || r.ID != TooManyInitStatements {
		t.Fatalf("Lookup(TooManyInitStatements) = %v, %v", r.ID, ok)
	}
	r, ok = Lookup(strings.ToLower(MissingId.Rule().Code))
	if !ok || r.ID != MissingId {
		t.Fatalf("Lookup(code) = %v, %v", r.ID, ok)
	}
	if _, ok := Lookup("missingid"); ok {
		t.Fatal("rule names are case-sensitive")
	}
	if _, ok := Lookup("NoSuchRule"); ok {
		t.Fatal("Lookup(NoSuchRule) succeeded")
	}
}

func TestInvalidID(t *testing.T) {
	t.Parallel()

	if ID(0).Valid() || idCount.Valid() {
		t.Fatal("sentinel ids reported valid")
	}
	if got := ID(0).String(); got != "ID(0)" {
		t.Fatalf("ID(0).String() = %q", got)
	}
	if got := ID(0).Rule(); got.Name != "" {
		t.Fatalf("ID(0).Rule() = %+v, want zero", got)
	}
}

func TestParseSeverity(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want Severity
		err  bool
	}{
		{"error", SeverityError, false},
		{"Warning", SeverityWarning, false},
		{"warn", SeverityWarning, false},
		{" info ", SeverityInfo, false},
		{"hidden", SeverityHidden, false},
		{"fatal", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseSeverity(tt.in)
		if (err != nil) != tt.err {
			t.Fatalf("ParseSeverity(%q) error = %v, want error %v", tt.in, err, tt.err)
		}
		if got != tt.want {
			t.Fatalf("ParseSeverity(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}

	var s Severity
	if err := s.UnmarshalText([]byte("warning")); err != nil || s != SeverityWarning {
		t.Fatalf("UnmarshalText(warning) = %v, %v", s, err)
	}
	if b, _ := SeverityInfo.MarshalText(); string(b) != "info" {
		t.Fatalf("MarshalText() = %q, want info", b)
	}
}
