package banjo

import (
	"fmt"
	"io"
	"strings"
)

// Utility function used to get the address of literals.
func Ptr[T any](v T) *T {
	return &v
}

func escape(s string) string {
	var sb strings.Builder
	for _, r := range s {
		switch r {
		case '\t':
			sb.WriteString("\\t")
		case '\n':
			sb.WriteString("\\n")
		case '\r':
			sb.WriteString("\\r")
		case 0:
			sb.WriteString("\\0")
		case '"':
			sb.WriteString("\\\"")
		case '\\':
			sb.WriteString("\\\\")
		default:
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

func quote(s string) string {
	if strings.Contains(s, "`") {
		return fmt.Sprintf(`"%s"`, s)
	}
	return fmt.Sprintf("`%s`", s)
}

// FNV-1a
func fnv1a(s string) uint64 {
	var hash uint64 = 14695981039346656037 // FNV_offset_basis
	for i := 0; i < len(s); i += 1 {
		hash ^= uint64(s[i])
		hash *= 1099511628211 // FNV_prime
	}
	return hash
}

func combineHash(hash uint64, more uint64) uint64 {
	for i := 0; i < 8; i += 1 {
		hash ^= (more >> (8 * i)) & 0xff
		hash *= 1099511628211
	}
	return hash
}

// Writes values in comb, a JSON-like notation used for debugging dumps.
type CombEncoder struct {
	w           io.Writer
	indentText  *string // Optional: nil implies single-line default formatting.
	indentLevel int     // Number of times the indent text is written before main text per line.

	err error // Internal sticky error.
}

func NewCombEncoder(w io.Writer, indent *string) *CombEncoder {
	return &CombEncoder{
		w:           w,
		indentText:  indent,
		indentLevel: 0,
		err:         nil,
	}
}

func (e *CombEncoder) writeString(s string) error {
	if e.err != nil {
		return e.err
	}

	_, e.err = e.w.Write([]byte(s))

	return e.err
}

func (e *CombEncoder) writeIndent(s string) error {
	if e.indentText != nil {
		for range e.indentLevel {
			e.writeString(*e.indentText)
		}
	}

	e.writeString(s)

	return e.err
}

func (e *CombEncoder) writeEndOfLine() error {
	if e.indentText != nil {
		e.writeString("\n")
	} else {
		e.writeString(" ")
	}

	return e.err
}

func (e *CombEncoder) fail(format string, args ...any) error {
	if e.err == nil {
		e.err = fmt.Errorf(format, args...)
	}
	return e.err
}

// Writes a bracketed sequence of elements, one per line when indenting.
func (e *CombEncoder) writeSequence(open, close string, count int, element func(i int)) error {
	if count == 0 {
		return e.writeString(open + close)
	}

	e.writeString(open)
	if e.indentText != nil {
		e.writeEndOfLine()
	}
	e.indentLevel += 1

	for i := 0; i < count; i += 1 {
		e.writeIndent("")
		element(i)

		if i != count-1 {
			e.writeString(",")
			e.writeEndOfLine()
		} else if e.indentText != nil {
			e.writeEndOfLine()
		}
	}

	e.indentLevel -= 1
	e.writeIndent(close)

	return e.err
}

func CombEncode(v Value, indent *string) (string, error) {
	var sb strings.Builder
	encoder := NewCombEncoder(&sb, indent)
	if err := v.CombEncode(encoder); err != nil {
		return "", err
	}
	return sb.String(), nil
}
