package banjo

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"
)

type SourcePosition struct {
	Offset int // Byte offset from the start of the file.
	Line   int // 1-based.
	Column int // 1-based, counted in runes.
}

func StartOfFile() SourcePosition {
	return SourcePosition{Offset: 0, Line: 1, Column: 1}
}

// Returns the position reached after reading text starting at self.
func (self SourcePosition) Advance(text string) SourcePosition {
	result := self
	result.Offset += len(text)
	for len(text) > 0 {
		r, size := utf8.DecodeRuneInString(text)
		text = text[size:]
		if r == '\n' {
			result.Line += 1
			result.Column = 1
			continue
		}
		result.Column += 1
	}
	return result
}

func (self SourcePosition) String() string {
	return fmt.Sprintf("%d:%d", self.Line, self.Column)
}

type SourceRange struct {
	File  string
	Start SourcePosition
	End   SourcePosition
}

func EmptyRange(file string) SourceRange {
	return SourceRange{File: file, Start: StartOfFile(), End: StartOfFile()}
}

func (self SourceRange) String() string {
	return fmt.Sprintf("%s:%d:%d", self.File, self.Start.Line, self.Start.Column)
}

func (self SourceRange) Len() int {
	return self.End.Offset - self.Start.Offset
}

// Smallest range covering both ranges. Both ranges are expected to belong to
// the same file.
func (self SourceRange) Union(other SourceRange) SourceRange {
	result := self
	if other.Start.Offset < result.Start.Offset {
		result.Start = other.Start
	}
	if other.End.Offset > result.End.Offset {
		result.End = other.End
	}
	return result
}

func (self SourceRange) Compare(other SourceRange) int {
	if self.File != other.File {
		return strings.Compare(self.File, other.File)
	}
	if self.Start.Offset != other.Start.Offset {
		return self.Start.Offset - other.Start.Offset
	}
	return self.End.Offset - other.End.Offset
}

// Moves a range that lies after an edit. Columns are unchanged because
// shifted ranges always start on a line after the edited text.
func (self SourceRange) Shift(offset int, lines int) SourceRange {
	result := self
	result.Start.Offset += offset
	result.Start.Line += lines
	result.End.Offset += offset
	result.End.Line += lines
	return result
}

// Sorted set of ranges. A core expression may map back to several places in
// the source after desugaring fuses multiple source forms into one node.
type SourceRanges []SourceRange

func NewSourceRanges(ranges ...SourceRange) SourceRanges {
	result := make(SourceRanges, 0, len(ranges))
	result = append(result, ranges...)
	sort.Slice(result, func(i, j int) bool {
		return result[i].Compare(result[j]) < 0
	})
	unique := result[:0]
	for i, r := range result {
		if i > 0 && r == unique[len(unique)-1] {
			continue
		}
		unique = append(unique, r)
	}
	return unique
}

func (self SourceRanges) Union(other SourceRanges) SourceRanges {
	if len(other) == 0 {
		return self
	}
	if len(self) == 0 {
		return other
	}
	all := make([]SourceRange, 0, len(self)+len(other))
	all = append(all, self...)
	all = append(all, other...)
	return NewSourceRanges(all...)
}

func (self SourceRanges) InFile(file string) SourceRanges {
	var result SourceRanges
	for _, r := range self {
		if r.File == file {
			result = append(result, r)
		}
	}
	return result
}

// Covering range of every range that belongs to the first range's file.
func (self SourceRanges) Span() (SourceRange, bool) {
	if len(self) == 0 {
		return SourceRange{}, false
	}
	result := self[0]
	for _, r := range self[1:] {
		if r.File == result.File {
			result = result.Union(r)
		}
	}
	return result, true
}

func (self SourceRanges) Equal(other SourceRanges) bool {
	if len(self) != len(other) {
		return false
	}
	for i := range self {
		if self[i] != other[i] {
			return false
		}
	}
	return true
}

func (self SourceRanges) String() string {
	s := make([]string, len(self))
	for i, r := range self {
		s[i] = fmt.Sprintf("%s@%d-%d", r.File, r.Start.Offset, r.End.Offset)
	}
	return strings.Join(s, ",")
}

// Diagnostic marker produced while parsing, desugaring or analysing.
type BadExpr struct {
	Message string
	Ranges  SourceRanges
}

func NewBadExpr(message string, ranges ...SourceRange) BadExpr {
	return BadExpr{Message: message, Ranges: NewSourceRanges(ranges...)}
}

func (self BadExpr) Error() string {
	return self.Message
}

func (self BadExpr) String() string {
	if len(self.Ranges) == 0 {
		return self.Message
	}
	return fmt.Sprintf("[%v] %s", self.Ranges[0], self.Message)
}

// Problems without a range cannot be shown next to any source text.
func (self BadExpr) Reportable() bool {
	return len(self.Ranges) > 0
}

func (self BadExpr) Hash() uint64 {
	return fnv1a(self.Message + "\x00" + self.Ranges.String())
}

func (self BadExpr) Equal(other BadExpr) bool {
	return self.Message == other.Message && self.Ranges.Equal(other.Ranges)
}
