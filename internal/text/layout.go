package text

import (
	"bytes"
	"strings"
)

const defaultIndentUnit = "    "

// LineStart returns the offset of the first byte of the line containing off.
func LineStart(src []byte, off ByteOffset) ByteOffset {
	off = clampOffset(src, off)
	i := bytes.LastIndexByte(src[:off], '\n')
	return ByteOffset(i + 1)
}

// LineEnd returns the offset of the line terminator following off, or len(src).
func LineEnd(src []byte, off ByteOffset) ByteOffset {
	off = clampOffset(src, off)
	i := bytes.IndexAny(src[off:], "\r\n")
	if i < 0 {
		return ByteOffset(len(src))
	}
	return off + ByteOffset(i)
}

// Indentation returns the leading spaces and tabs of the line containing off.
func Indentation(src []byte, off ByteOffset) string {
	start := LineStart(src, off)
	end := start
	for int(end) < len(src) && isIndentByte(src[end]) {
		end++
	}
	return string(src[start:end])
}

// OnlySpaceBefore reports whether off is preceded on its line by spaces and tabs only.
func OnlySpaceBefore(src []byte, off ByteOffset) bool {
	off = clampOffset(src, off)
	for i := off - 1; i >= 0; i-- {
		switch src[i] {
		case ' ', '\t':
			continue
		case '\n':
			return true
		default:
			return false
		}
	}
	return true
}

// SkipLineRest returns the offset just past the line terminator after off when
// only spaces and tabs separate off from it. ok is false otherwise.
// At end of input the returned offset is len(src).
func SkipLineRest(src []byte, off ByteOffset) (ByteOffset, bool) {
	i := int(clampOffset(src, off))
	for i < len(src) && isIndentByte(src[i]) {
		i++
	}
	switch {
	case i == len(src):
		return ByteOffset(i), true
	case src[i] == '\n':
		return ByteOffset(i + 1), true
	case src[i] == '\r' && i+1 < len(src) && src[i+1] == '\n':
		return ByteOffset(i + 2), true
	}
	return off, false
}

// ExpandToLines widens sp to whole lines when it is the only content of
// those lines, so that deleting it leaves no blank line behind.
// Otherwise the span is widened over trailing spaces only.
func ExpandToLines(src []byte, sp Span) Span {
	if !sp.IsValid() || int(sp.End) > len(src) {
		return sp
	}
	if end, ok := SkipLineRest(src, sp.End); ok && OnlySpaceBefore(src, sp.Start) {
		return Span{Start: LineStart(src, sp.Start), End: end}
	}
	end := sp.End
	for int(end) < len(src) && src[end] == ' ' {
		end++
	}
	return Span{Start: sp.Start, End: end}
}

// DetectIndentUnit guesses the indentation unit used by src.
// Tab-indented sources yield "\t"; otherwise the smallest positive indent
// step between consecutive lines is used, defaulting to four spaces.
func DetectIndentUnit(src []byte) string {
	prev := 0
	step := 0
	for line := range bytes.Lines(src) {
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		if line[0] == '\t' {
			return "\t"
		}
		width := 0
		for width < len(line) && line[width] == ' ' {
			width++
		}
		if d := width - prev; d > 0 && (step == 0 || d < step) {
			step = d
		}
		prev = width
	}
	if step < 2 || step > 8 {
		return defaultIndentUnit
	}
	return strings.Repeat(" ", step)
}

// Newline returns the line terminator used by src.
func Newline(src []byte) string {
	if bytes.Contains(src, []byte("\r\n")) {
		return "\r\n"
	}
	return "\n"
}

// Reindent prefixes every line of block after the first with indent and
// joins the lines with nl.
func Reindent(block, indent, nl string) string {
	lines := strings.Split(block, "\n")
	for i := 1; i < len(lines); i++ {
		if lines[i] != "" {
			lines[i] = indent + lines[i]
		}
	}
	return strings.Join(lines, nl)
}

func clampOffset(src []byte, off ByteOffset) ByteOffset {
	switch {
	case off < 0:
		return 0
	case int(off) > len(src):
		return ByteOffset(len(src))
	}
	return off
}

func isIndentByte(b byte) bool {
	return b == ' ' || b == '\t'
}
