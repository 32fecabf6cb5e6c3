package position

import (
	"fmt"
	"sort"
	"unicode/utf8"
)

// Place is a 0-based line and a 0-based character counted in UTF-16 code
// units, the way editors address text.
type Place struct {
	Line      int
	Character int
}

func (p Place) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Character)
}

type Range struct {
	Start Place
	End   Place
}

func (r Range) String() string {
	return fmt.Sprintf("%s-%s", r.Start, r.End)
}

// RawPosition represents a span of the source text
type RawPosition struct {
	// Offset is the byte offset in the source text
	Offset int
	// Text is the actual text at this position
	Text string
}

func NewBasicPosition(text string, offset int) RawPosition {
	return RawPosition{Text: text, Offset: offset}
}

// Length returns the length of the text at this position
func (p RawPosition) Length() int {
	return len(p.Text)
}

func (p RawPosition) GetEndPosition() RawPosition {
	return RawPosition{Offset: p.Offset + p.Length()}
}

// GetRange converts the span to editor coordinates.
func (p RawPosition) GetRange(idx *Index) Range {
	return Range{
		Start: idx.PositionAt(p.Offset),
		End:   idx.PositionAt(p.GetEndPosition().Offset),
	}
}

func (p RawPosition) String() string {
	return fmt.Sprintf("%s@%d", p.Text, p.Offset)
}

// Index maps between byte offsets and editor positions for one text.
type Index struct {
	text string
	// lineStarts holds the byte offset of the first byte of every line.
	lineStarts []int
}

func NewIndex(text string) *Index {
	starts := []int{0}
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			starts = append(starts, i+1)
		}
	}
	return &Index{text: text, lineStarts: starts}
}

func (idx *Index) Text() string {
	return idx.text
}

func (idx *Index) LineCount() int {
	return len(idx.lineStarts)
}

// Line returns the text of a line without its line break.
func (idx *Index) Line(line int) string {
	if line < 0 || line >= len(idx.lineStarts) {
		return ""
	}
	start := idx.lineStarts[line]
	end := len(idx.text)
	if line+1 < len(idx.lineStarts) {
		end = idx.lineStarts[line+1] - 1
	}
	if end > start && idx.text[end-1] == '\r' {
		end--
	}
	return idx.text[start:end]
}

// PositionAt converts a byte offset, clamped to the text, to a Place.
func (idx *Index) PositionAt(offset int) Place {
	if offset < 0 {
		offset = 0
	}
	if offset > len(idx.text) {
		offset = len(idx.text)
	}

	line := sort.Search(len(idx.lineStarts), func(i int) bool { return idx.lineStarts[i] > offset }) - 1
	start := idx.lineStarts[line]

	// an offset inside a multi-byte character maps to that character
	for offset > start && offset < len(idx.text) && !utf8.RuneStart(idx.text[offset]) {
		offset--
	}

	units := 0
	for off := start; off < offset; {
		r, size := utf8.DecodeRuneInString(idx.text[off:offset])
		if r == utf8.RuneError && size <= 1 {
			size = 1
		}
		if r > 0xFFFF {
			units += 2
		} else {
			units++
		}
		off += size
	}

	return Place{Line: line, Character: units}
}

// OffsetAt converts a Place to a byte offset. Lines past the end clamp to the
// end of the text, characters past the end of a line clamp to the line end.
func (idx *Index) OffsetAt(p Place) int {
	if p.Line < 0 {
		return 0
	}
	if p.Line >= len(idx.lineStarts) {
		return len(idx.text)
	}

	off := idx.lineStarts[p.Line]
	units := 0
	for off < len(idx.text) && units < p.Character {
		if idx.text[off] == '\n' {
			break
		}
		r, size := utf8.DecodeRuneInString(idx.text[off:])
		if r == utf8.RuneError && size <= 1 {
			size = 1
		}
		need := 1
		if r > 0xFFFF {
			need = 2
		}
		if units+need > p.Character {
			break
		}
		units += need
		off += size
	}
	return off
}
