package banjo

import (
	"errors"
	"fmt"
	"iter"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/alecthomas/participle/v2/lexer"
)

// Token Kinds
const (
	// Meta
	TOKEN_EOF       = "end-of-file"
	TOKEN_MALFORMED = "malformed"
	// Layout
	TOKEN_WHITESPACE = "whitespace"
	TOKEN_COMMENT    = "comment"
	// Identifiers and Literals
	TOKEN_IDENTIFIER = "identifier"
	TOKEN_NUMBER     = "number"
	TOKEN_STRING     = "string"
	TOKEN_ELLIPSIS   = "ellipsis"
	// Operators, brackets and separators
	TOKEN_OPERATOR = "operator"
)

// Rules are tried in order and the first match wins. Patterns must not use
// capturing groups since participle joins them into one expression.
var tokenDefinition = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Whitespace", Pattern: `[\s\v\p{Zs}]+`},
	{Name: "Comment", Pattern: `#[^\n]*`},
	{Name: "Number", Pattern: `(?:0[xX][0-9a-fA-F_]+|[0-9][0-9_]*(?:\.[0-9][0-9_]*)?(?:[eE][+-]?[0-9]+)?)(?:[\p{L}_][\p{L}\p{N}_]*|%)?`},
	{Name: "String", Pattern: `"(?:[^"\\]|\\(?s:.))*"`},
	{Name: "UnterminatedString", Pattern: `"(?:[^"\\]|\\(?s:.))*\\?\z`},
	{Name: "Ellipsis", Pattern: `\.\.\.`},
	{Name: "Identifier", Pattern: `[\p{L}_][\p{L}\p{N}_]*`},
	{Name: "Bracket", Pattern: `[()\[\]{}]`},
	{Name: "Separator", Pattern: `[,;]`},
	{Name: "Operator", Pattern: `[!$%&*+\-./:<=>?@^|~\\\p{Sm}\p{So}]+`},
	{Name: "Malformed", Pattern: `(?s:.)`},
})

var tokenRuleNames = func() map[lexer.TokenType]string {
	names := map[lexer.TokenType]string{}
	for name, kind := range tokenDefinition.Symbols() {
		names[kind] = name
	}
	return names
}()

var reNumberParts = regexp.MustCompile(`^(0[xX][0-9a-fA-F_]+|[0-9][0-9_]*(?:\.[0-9][0-9_]*)?(?:[eE][+-]?[0-9]+)?)(.*)$`)

type Token struct {
	Kind    string
	Literal string // Exact source text of the token.
	Range   SourceRange

	Number  float64 // TOKEN_NUMBER
	Unit    string  // TOKEN_NUMBER, optional suffix such as "px" or "%"
	Text    string  // TOKEN_STRING, decoded contents
	Message string  // TOKEN_MALFORMED
}

func (self Token) String() string {
	switch self.Kind {
	case TOKEN_EOF:
		return self.Kind
	case TOKEN_WHITESPACE, TOKEN_COMMENT:
		return self.Kind
	}
	return quote(self.Literal)
}

func (self Token) IsOperator(symbol string) bool {
	return self.Kind == TOKEN_OPERATOR && self.Literal == symbol
}

func (self Token) IsIdentifier(name string) bool {
	return self.Kind == TOKEN_IDENTIFIER && self.Literal == name
}

func (self Token) IntoValue(ctx *Context) Value {
	r := self.Range
	location := ctx.NewRecord([]RecordField{
		{"file", ctx.NewString(r.File)},
		{"line", ctx.NewNumber(float64(r.Start.Line))},
		{"column", ctx.NewNumber(float64(r.Start.Column))},
		{"start", ctx.NewNumber(float64(r.Start.Offset))},
		{"end", ctx.NewNumber(float64(r.End.Offset))},
	})
	fields := []RecordField{
		{"kind", ctx.NewString(self.Kind)},
		{"literal", ctx.NewString(self.Literal)},
		{"location", location},
	}
	switch self.Kind {
	case TOKEN_NUMBER:
		fields = append(fields, RecordField{"value", ctx.NewNumberWithUnit(self.Number, self.Unit)})
	case TOKEN_STRING:
		fields = append(fields, RecordField{"value", ctx.NewString(self.Text)})
	case TOKEN_MALFORMED:
		fields = append(fields, RecordField{"message", ctx.NewString(self.Message)})
	}
	return ctx.NewRecord(fields)
}

// Lazily converts source text into tokens. Whitespace and comments are
// returned as tokens so that the concatenation of every token literal is the
// original text.
type Lexer struct {
	ctx     *Context
	source  string
	file    string
	start   SourcePosition // Position of source[0] within the file.
	pos     SourcePosition
	stream  lexer.Lexer
	done    bool
	pending string // Rest of an operator run after the operator at its front.
}

func NewLexer(ctx *Context, source string, file string) *Lexer {
	return NewLexerAt(ctx, source, file, StartOfFile())
}

// Lexes a fragment of a file whose first character is at start.
func NewLexerAt(ctx *Context, source string, file string, start SourcePosition) *Lexer {
	self := &Lexer{
		ctx:    ctx,
		source: source,
		file:   file,
		start:  start,
		pos:    start,
	}
	stream, err := tokenDefinition.Lex(file, strings.NewReader(source))
	if err != nil {
		// Reading from a string does not fail; treat the text as one bad token.
		self.stream = nil
	} else {
		self.stream = stream
	}
	return self
}

func (self *Lexer) makeToken(kind string, literal string) Token {
	start := self.pos
	self.pos = start.Advance(literal)
	return Token{
		Kind:    kind,
		Literal: literal,
		Range:   SourceRange{File: self.file, Start: start, End: self.pos},
	}
}

func (self *Lexer) malformed(literal string, message string) Token {
	token := self.makeToken(TOKEN_MALFORMED, literal)
	token.Message = message
	return token
}

func (self *Lexer) rest() string {
	return self.source[self.pos.Offset-self.start.Offset:]
}

// Splits the front of an operator run off as a token. A run such as `*-` is
// not one operator, so the longest known operator at its front is taken and
// the rest is lexed on the next call. A run without a known front is kept
// whole so that the parser can report it.
func (self *Lexer) operatorToken(run string) Token {
	symbol := knownOperatorPrefix(run)
	self.pending = run[len(symbol):]
	return self.makeToken(TOKEN_OPERATOR, symbol)
}

func isKnownOperator(symbol string) bool {
	if _, ok := LookupInfix(symbol); ok {
		return true
	}
	_, ok := LookupPrefix(symbol)
	return ok
}

func knownOperatorPrefix(run string) string {
	if isKnownOperator(run) {
		return run
	}
	for end := len(run) - 1; end > 0; end-- {
		if utf8.RuneStart(run[end]) && isKnownOperator(run[:end]) {
			return run[:end]
		}
	}
	return run
}

func (self *Lexer) NextToken() Token {
	if self.pending != "" {
		return self.operatorToken(self.pending)
	}
	if self.done {
		return self.makeToken(TOKEN_EOF, "")
	}
	if self.stream == nil {
		self.done = true
		if rest := self.rest(); rest != "" {
			return self.malformed(rest, "unreadable source text")
		}
		return self.makeToken(TOKEN_EOF, "")
	}

	token, err := self.stream.Next()
	if err != nil {
		self.stream = nil
		return self.NextToken()
	}
	if token.EOF() {
		self.done = true
		return self.makeToken(TOKEN_EOF, "")
	}

	literal := token.Value
	switch tokenRuleNames[token.Type] {
	case "Whitespace":
		return self.makeToken(TOKEN_WHITESPACE, literal)
	case "Comment":
		return self.makeToken(TOKEN_COMMENT, literal)
	case "Number":
		value, unit, err := decodeNumber(literal)
		if err != nil {
			return self.malformed(literal, err.Error())
		}
		result := self.makeToken(TOKEN_NUMBER, literal)
		result.Number = value
		result.Unit = unit
		return result
	case "String":
		text, err := decodeString(literal)
		if err != nil {
			return self.malformed(literal, err.Error())
		}
		result := self.makeToken(TOKEN_STRING, literal)
		result.Text = text
		return result
	case "UnterminatedString":
		return self.malformed(literal, "unterminated string literal")
	case "Ellipsis":
		return self.makeToken(TOKEN_ELLIPSIS, literal)
	case "Identifier":
		return self.makeToken(TOKEN_IDENTIFIER, literal)
	case "Bracket", "Separator":
		return self.makeToken(TOKEN_OPERATOR, literal)
	case "Operator":
		return self.operatorToken(literal)
	}
	return self.malformed(literal, fmt.Sprintf("unexpected character %s", quote(literal)))
}

// Iterates over the remaining tokens, ending with exactly one end-of-file token.
func (self *Lexer) All() iter.Seq[Token] {
	return func(yield func(Token) bool) {
		for {
			token := self.NextToken()
			if !yield(token) || token.Kind == TOKEN_EOF {
				return
			}
		}
	}
}

func Scan(ctx *Context, source string, file string) []Token {
	var tokens []Token
	for token := range NewLexer(ctx, source, file).All() {
		tokens = append(tokens, token)
	}
	return tokens
}

var errInvalidNumber = errors.New("invalid number literal")

func decodeNumber(literal string) (float64, string, error) {
	parts := reNumberParts.FindStringSubmatch(literal)
	if parts == nil {
		return 0, "", errInvalidNumber
	}
	digits := strings.ReplaceAll(parts[1], "_", "")
	unit := parts[2]

	if len(digits) > 1 && (digits[1] == 'x' || digits[1] == 'X') {
		if len(digits) == 2 {
			return 0, "", errInvalidNumber
		}
		n, err := strconv.ParseUint(digits[2:], 16, 64)
		if err != nil {
			return 0, "", fmt.Errorf("number literal %s is out of range", quote(literal))
		}
		return float64(n), unit, nil
	}

	n, err := strconv.ParseFloat(digits, 64)
	if err != nil {
		if errors.Is(err, strconv.ErrRange) {
			return 0, "", fmt.Errorf("number literal %s is out of range", quote(literal))
		}
		return 0, "", errInvalidNumber
	}
	return n, unit, nil
}

// Decodes a quoted string literal, including its surrounding quotes.
func decodeString(literal string) (string, error) {
	body := literal[1 : len(literal)-1]
	var sb strings.Builder
	for i := 0; i < len(body); {
		if body[i] != '\\' {
			_, size := utf8.DecodeRuneInString(body[i:])
			sb.WriteString(body[i : i+size])
			i += size
			continue
		}

		r, size := utf8.DecodeRuneInString(body[i+1:])
		i += 1 + size
		switch r {
		case 'n':
			sb.WriteByte('\n')
		case 't':
			sb.WriteByte('\t')
		case 'r':
			sb.WriteByte('\r')
		case '0':
			sb.WriteByte(0)
		case '\\':
			sb.WriteByte('\\')
		case '"':
			sb.WriteByte('"')
		case 'u':
			if i+4 > len(body) {
				return "", errors.New("incomplete unicode escape sequence")
			}
			code, err := strconv.ParseUint(body[i:i+4], 16, 32)
			if err != nil {
				return "", fmt.Errorf("invalid unicode escape sequence %s", quote("\\u"+body[i:i+4]))
			}
			sb.WriteRune(rune(code))
			i += 4
		default:
			return "", fmt.Errorf("invalid escape sequence %s", quote("\\"+string(r)))
		}
	}
	return sb.String(), nil
}
