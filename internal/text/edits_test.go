package text

import "testing"

func TestApplyEditsUnsortedInput(t *testing.T) {
	t.Parallel()

	got, err := ApplyEdits([]byte("abcdef"), []ByteEdit{
		Replace(Span{Start: 4, End: 6}, "XY"),
		Replace(Span{Start: 1, End: 3}, "12"),
	})
	if err != nil {
		t.Fatalf("ApplyEdits error = %v", err)
	}
	if string(got) != "a12dXY" {
		t.Fatalf("ApplyEdits() = %q, want %q", got, "a12dXY")
	}
}

func TestApplyEditsInsertionsKeepOrder(t *testing.T) {
	t.Parallel()

	got, err := ApplyEdits([]byte("ab"), []ByteEdit{
		Insert(1, "1"),
		Insert(1, "2"),
		Delete(Span{Start: 0, End: 1}),
	})
	if err != nil {
		t.Fatalf("ApplyEdits error = %v", err)
	}
	if string(got) != "12b" {
		t.Fatalf("ApplyEdits() = %q, want %q", got, "12b")
	}
}

func TestApplyEditsRejectsOverlap(t *testing.T) {
	t.Parallel()

	_, err := ApplyEdits([]byte("abcdef"), []ByteEdit{
		Replace(Span{Start: 1, End: 4}, "x"),
		Replace(Span{Start: 3, End: 5}, "y"),
	})
	if err == nil {
		t.Fatal("expected overlap error")
	}
}

func TestApplyEditsRejectsOutOfRange(t *testing.T) {
	t.Parallel()

	if err := ValidateEdits(3, []ByteEdit{Delete(Span{Start: 2, End: 4})}); err == nil {
		t.Fatal("expected out-of-range error")
	}
}

func TestApplyEditsNoEditsReturnsCopy(t *testing.T) {
	t.Parallel()

	src := []byte("abc")
	got, err := ApplyEdits(src, nil)
	if err != nil {
		t.Fatalf("ApplyEdits error = %v", err)
	}
	got[0] = 'z'
	if string(src) != "abc" {
		t.Fatalf("source mutated: %q", src)
	}
}

func TestTouchedSpan(t *testing.T) {
	t.Parallel()

	got := TouchedSpan([]ByteEdit{Insert(9, "x"), Delete(Span{Start: 2, End: 4})})
	if got != (Span{Start: 2, End: 9}) {
		t.Fatalf("TouchedSpan() = %s, want [2,9)", got)
	}
}
