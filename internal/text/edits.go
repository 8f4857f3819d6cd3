package text

import (
	"bytes"
	"cmp"
	"fmt"
	"slices"
)

// ByteEdit replaces the bytes in Span with NewText.
type ByteEdit struct {
	Span    Span
	NewText []byte
}

// Insert returns an edit inserting s at off.
func Insert(off ByteOffset, s string) ByteEdit {
	return ByteEdit{Span: EmptySpan(off), NewText: []byte(s)}
}

// Replace returns an edit replacing sp with s.
func Replace(sp Span, s string) ByteEdit {
	return ByteEdit{Span: sp, NewText: []byte(s)}
}

// Delete returns an edit removing sp.
func Delete(sp Span) ByteEdit {
	return ByteEdit{Span: sp}
}

// IsInsert reports whether the edit only adds text.
func (e ByteEdit) IsInsert() bool {
	return e.Span.IsEmpty()
}

// ValidateEdits validates edit spans against a source length and checks overlap.
// Touching spans are allowed.
func ValidateEdits(srcLen ByteOffset, edits []ByteEdit) error {
	_, err := validatedSortedEdits(srcLen, edits)
	return err
}

// ApplyEdits applies non-overlapping byte edits and returns the updated buffer.
// Edits may be given in any order; insertions at the same offset keep their
// relative order.
func ApplyEdits(src []byte, edits []ByteEdit) ([]byte, error) {
	if len(edits) == 0 {
		return slices.Clone(src), nil
	}

	sorted, err := validatedSortedEdits(ByteOffset(len(src)), edits)
	if err != nil {
		return nil, err
	}

	var out bytes.Buffer
	out.Grow(len(src))
	cursor := ByteOffset(0)
	for _, e := range sorted {
		out.Write(src[cursor:e.Span.Start])
		out.Write(e.NewText)
		cursor = e.Span.End
	}
	out.Write(src[cursor:])
	return out.Bytes(), nil
}

// TouchedSpan returns the smallest span of src covering every edit.
func TouchedSpan(edits []ByteEdit) Span {
	out := Span{Start: -1, End: -1}
	for _, e := range edits {
		out = out.Cover(e.Span)
	}
	return out
}

func validatedSortedEdits(srcLen ByteOffset, edits []ByteEdit) ([]ByteEdit, error) {
	if !srcLen.IsValid() {
		return nil, fmt.Errorf("invalid source length: %d", srcLen)
	}
	for _, e := range edits {
		if err := e.Span.Validate(); err != nil {
			return nil, fmt.Errorf("invalid edit span %s: %w", e.Span, err)
		}
		if e.Span.End > srcLen {
			return nil, fmt.Errorf("edit span %s exceeds source length %d", e.Span, srcLen)
		}
	}

	sorted := slices.Clone(edits)
	slices.SortStableFunc(sorted, func(a, b ByteEdit) int {
		if c := cmp.Compare(a.Span.Start, b.Span.Start); c != 0 {
			return c
		}
		return cmp.Compare(a.Span.End, b.Span.End)
	})

	for i := 1; i < len(sorted); i++ {
		prev, cur := sorted[i-1], sorted[i]
		if cur.Span.Start < prev.Span.End {
			return nil, fmt.Errorf("overlapping edits: %s and %s", prev.Span, cur.Span)
		}
	}
	return sorted, nil
}
