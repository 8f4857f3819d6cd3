package text

import (
	"errors"
	"fmt"
	"slices"
	"unicode/utf8"
)

// LineIndex maps byte offsets to 0-based line and byte-column points.
type LineIndex struct {
	src        []byte
	lineStarts []ByteOffset
}

var errNilLineIndex = errors.New("nil LineIndex")

// NewLineIndex builds an index over src.
func NewLineIndex(src []byte) *LineIndex {
	starts := []ByteOffset{0}
	for i, b := range src {
		if b == '\n' {
			starts = append(starts, ByteOffset(i+1))
		}
	}
	return &LineIndex{src: src, lineStarts: starts}
}

// SourceLen returns the source length in bytes.
func (li *LineIndex) SourceLen() ByteOffset {
	if li == nil {
		return 0
	}
	return ByteOffset(len(li.src))
}

// LineCount returns the number of lines in the source.
func (li *LineIndex) LineCount() int {
	if li == nil {
		return 0
	}
	return len(li.lineStarts)
}

// OffsetToPoint converts a byte offset to a point.
func (li *LineIndex) OffsetToPoint(off ByteOffset) (Point, error) {
	if li == nil {
		return Point{}, errNilLineIndex
	}
	if err := li.validateOffset(off); err != nil {
		return Point{}, err
	}
	line := li.lineForOffset(off)
	return Point{Line: line, Column: int(off - li.lineStarts[line])}, nil
}

// PointToOffset converts a point back to a byte offset.
func (li *LineIndex) PointToOffset(p Point) (ByteOffset, error) {
	if li == nil {
		return 0, errNilLineIndex
	}
	if p.Line < 0 || p.Line >= li.LineCount() {
		return 0, fmt.Errorf("line out of range: %d", p.Line)
	}
	start, next, _ := li.lineBounds(p.Line)
	if p.Column < 0 || start+ByteOffset(p.Column) > next {
		return 0, fmt.Errorf("column out of range: line=%d column=%d", p.Line, p.Column)
	}
	return start + ByteOffset(p.Column), nil
}

// LineContent returns the span of line without its terminator.
func (li *LineIndex) LineContent(line int) (Span, error) {
	if li == nil {
		return Span{}, errNilLineIndex
	}
	if line < 0 || line >= li.LineCount() {
		return Span{}, fmt.Errorf("line out of range: %d", line)
	}
	start, _, end := li.lineBounds(line)
	return Span{Start: start, End: end}, nil
}

// DisplayPoint returns the 1-based line and character column of off, the
// form compilers and editors print.
func (li *LineIndex) DisplayPoint(off ByteOffset) (line, col int, err error) {
	p, err := li.OffsetToPoint(off)
	if err != nil {
		return 0, 0, err
	}
	start := li.lineStarts[p.Line]
	return p.Line + 1, utf8.RuneCount(li.src[start:off]) + 1, nil
}

// LineAt returns the content span of the line containing off.
func (li *LineIndex) LineAt(off ByteOffset) (Span, error) {
	p, err := li.OffsetToPoint(off)
	if err != nil {
		return Span{}, err
	}
	return li.LineContent(p.Line)
}

func (li *LineIndex) validateOffset(off ByteOffset) error {
	if !off.IsValid() || off > ByteOffset(len(li.src)) {
		return fmt.Errorf("offset out of range: %d (source length %d)", off, len(li.src))
	}
	return nil
}

func (li *LineIndex) lineForOffset(off ByteOffset) int {
	i, found := slices.BinarySearch(li.lineStarts, off)
	if found {
		return i
	}
	return i - 1
}

func (li *LineIndex) lineBounds(line int) (start, nextStart, contentEnd ByteOffset) {
	start = li.lineStarts[line]
	nextStart = ByteOffset(len(li.src))
	if line+1 < len(li.lineStarts) {
		nextStart = li.lineStarts[line+1]
	}
	contentEnd = nextStart
	if contentEnd > start && li.src[contentEnd-1] == '\n' {
		contentEnd--
		if contentEnd > start && li.src[contentEnd-1] == '\r' {
			contentEnd--
		}
	}
	return start, nextStart, contentEnd
}
