package text

import "testing"

func TestSpanValidate(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		span  Span
		valid bool
	}{
		"valid":          {span: Span{Start: 0, End: 1}, valid: true},
		"empty":          {span: Span{Start: 3, End: 3}, valid: true},
		"negative start": {span: Span{Start: -1, End: 1}, valid: false},
		"negative end":   {span: Span{Start: 0, End: -1}, valid: false},
		"end before":     {span: Span{Start: 5, End: 4}, valid: false},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			if got := tc.span.IsValid(); got != tc.valid {
				t.Fatalf("IsValid() = %v, want %v", got, tc.valid)
			}
			if err := tc.span.Validate(); (err == nil) != tc.valid {
				t.Fatalf("Validate() error = %v, valid=%v", err, tc.valid)
			}
		})
	}
}

func TestSpanContainsAndIntersects(t *testing.T) {
	t.Parallel()

	s := Span{Start: 2, End: 5}
	if !s.Contains(2) || !s.Contains(4) {
		t.Fatal("expected start and interior offsets to be contained")
	}
	if s.Contains(5) {
		t.Fatal("end boundary must be excluded")
	}
	if s.Intersects(Span{Start: 5, End: 7}) {
		t.Fatal("touching spans must not intersect")
	}
	if !s.Intersects(Span{Start: 4, End: 7}) {
		t.Fatal("overlapping spans must intersect")
	}
	if !s.ContainsSpan(Span{Start: 3, End: 5}) {
		t.Fatal("expected nested span to be contained")
	}
}

func TestSpanCover(t *testing.T) {
	t.Parallel()

	got := Span{Start: 4, End: 6}.Cover(Span{Start: 1, End: 2})
	if got != (Span{Start: 1, End: 6}) {
		t.Fatalf("Cover() = %s, want [1,6)", got)
	}
	got = Span{Start: -1, End: -1}.Cover(Span{Start: 3, End: 3})
	if got != (Span{Start: 3, End: 3}) {
		t.Fatalf("Cover() with invalid receiver = %s, want [3,3)", got)
	}
}

func TestPointString(t *testing.T) {
	t.Parallel()

	if got := (Point{Line: 41, Column: 12}).String(); got != "42:13" {
		t.Fatalf("String() = %q, want 42:13", got)
	}
}
