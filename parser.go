package banjo

import (
	"fmt"
	"strings"
)

const maxNesting = 512

var groupClosers = map[string]string{
	"(": ")",
	"[": "]",
	"{": "}",
}

var groupKinds = map[string]string{
	"(": GROUP_PAREN,
	"[": GROUP_BRACKET,
	"{": GROUP_BRACE,
}

type ParseResult struct {
	Expr     SourceExpr
	Problems []BadExpr
}

// A layout scope is either an indentation block (no closer) or the inside of
// a bracket pair. New lines at the scope's indent separate items.
type layoutScope struct {
	indent int
	closer string
}

type Parser struct {
	ctx      *Context
	lexer    *Lexer
	file     string
	current  Token
	previous Token // Last consumed significant token.
	newline  bool  // The current token is the first significant token on its line.
	dedented bool  // The current token ended an indentation block.

	scopes    []layoutScope
	itemStart bool
	depth     int
	problems  []BadExpr
}

func NewParser(ctx *Context, lexer *Lexer) *Parser {
	self := &Parser{
		ctx:   ctx,
		lexer: lexer,
		file:  lexer.file,
	}
	start := lexer.pos
	self.previous = Token{Kind: TOKEN_WHITESPACE, Range: SourceRange{File: self.file, Start: start, End: start}}
	self.newline = true
	self.readSignificant()
	return self
}

func Parse(ctx *Context, text string, file string) ParseResult {
	return NewParser(ctx, NewLexer(ctx, text, file)).ParseFile()
}

func (self *Parser) readSignificant() {
	for {
		token := self.lexer.NextToken()
		switch token.Kind {
		case TOKEN_WHITESPACE:
			if strings.Contains(token.Literal, "\n") {
				self.newline = true
			}
			continue
		case TOKEN_COMMENT:
			continue
		}
		self.current = token
		return
	}
}

func (self *Parser) advanceToken() Token {
	current := self.current
	if current.Kind == TOKEN_EOF {
		return current
	}
	self.previous = current
	self.newline = false
	self.dedented = false
	self.readSignificant()
	return current
}

func (self *Parser) bad(r SourceRange, message string) *SourceBad {
	self.problems = append(self.problems, NewBadExpr(message, r))
	return &SourceBad{Range: r, Message: message}
}

func (self *Parser) at(position SourcePosition) SourceRange {
	return SourceRange{File: self.file, Start: position, End: position}
}

func (self *Parser) missing(message string) *SourceBad {
	return self.bad(self.at(self.previous.Range.End), message)
}

func (self *Parser) missingExpression() *SourceBad {
	return self.missing(fmt.Sprintf("expected an expression, found %v", self.current))
}

func (self *Parser) scope() layoutScope {
	return self.scopes[len(self.scopes)-1]
}

func (self *Parser) column() int {
	return self.current.Range.Start.Column
}

func (self *Parser) isCloser(token Token) bool {
	return token.IsOperator(")") || token.IsOperator("]") || token.IsOperator("}")
}

func (self *Parser) isSeparator(token Token) bool {
	return token.IsOperator(",") || token.IsOperator(";")
}

func (self *Parser) expectsCloser(closer string) bool {
	for _, scope := range self.scopes {
		if scope.closer == closer {
			return true
		}
	}
	return false
}

// Reports whether the current token starts a new item of the enclosing scope
// rather than continuing the expression being parsed.
func (self *Parser) atLayoutBreak() bool {
	if !self.newline || self.current.Kind == TOKEN_EOF {
		return false
	}
	scope := self.scope()
	if scope.closer == "" {
		return self.column() <= scope.indent
	}
	return self.column() == scope.indent
}

func (self *Parser) ParseFile() ParseResult {
	start := self.lexer.start
	self.scopes = []layoutScope{{indent: self.column()}}

	var items []SourceExpr
	separated := false
	for {
		more, sep := self.parseItems()
		items = append(items, more...)
		separated = separated || sep
		if self.current.Kind == TOKEN_EOF {
			break
		}
		// A line dedented past the first line of the file.
		items = append(items, self.bad(self.at(self.current.Range.Start), "inconsistent dedent"))
		self.scopes[0].indent = self.column()
	}

	end := self.current.Range.End
	group := &SourceGroup{
		Range:     SourceRange{File: self.file, Start: start, End: end},
		Kind:      GROUP_BLOCK,
		Items:     items,
		Separated: separated,
	}
	return ParseResult{Expr: group, Problems: self.problems}
}

func (self *Parser) parseItems() ([]SourceExpr, bool) {
	var items []SourceExpr
	separated := false
	for {
		if self.current.Kind == TOKEN_EOF {
			return items, separated
		}

		scope := self.scope()
		if self.newline && len(items) > 0 && scope.closer == "" {
			column := self.column()
			if column < scope.indent {
				return items, separated
			}
			if column > scope.indent {
				message := "unexpected indentation"
				if self.dedented {
					message = "inconsistent dedent"
				}
				items = append(items, self.bad(self.at(self.current.Range.Start), message))
			}
		}

		if self.isCloser(self.current) {
			if self.expectsCloser(self.current.Literal) {
				return items, separated
			}
			token := self.advanceToken()
			items = append(items, self.bad(token.Range, fmt.Sprintf("unexpected %s", quote(token.Literal))))
			continue
		}
		if self.isSeparator(self.current) {
			self.advanceToken()
			separated = true
			continue
		}

		offset := self.current.Range.Start.Offset
		self.itemStart = true
		items = append(items, self.parseExpression(precLowest))
		if self.current.Range.Start.Offset == offset && self.current.Kind != TOKEN_EOF && !self.isCloser(self.current) {
			// Nothing was consumed, so the token cannot start an item.
			self.advanceToken()
			continue
		}

		if self.isSeparator(self.current) {
			self.advanceToken()
			separated = true
			continue
		}
		if self.current.Kind == TOKEN_EOF || self.isCloser(self.current) || self.newline {
			continue
		}
		items = append(items, self.missing(fmt.Sprintf("expected a new line or %s before %v", quote(","), self.current)))
	}
}

func (self *Parser) parseExpression(minPrec int) SourceExpr {
	if self.depth >= maxNesting {
		token := self.advanceToken()
		return self.bad(token.Range, "expression is nested too deeply")
	}
	self.depth += 1
	defer func() { self.depth -= 1 }()

	left := self.parsePrefix()
	for {
		if self.atLayoutBreak() || self.current.Kind != TOKEN_OPERATOR {
			return left
		}
		literal := self.current.Literal
		if self.isCloser(self.current) || self.isSeparator(self.current) {
			return left
		}
		if literal == "[" || literal == "{" {
			return left
		}

		if literal == "(" {
			if precPostfix <= minPrec {
				return left
			}
			arguments := self.parseGroup()
			left = &SourceCall{
				Range:     left.SourceRange().Union(arguments.SourceRange()),
				Target:    left,
				Arguments: arguments,
			}
			continue
		}

		op, ok := LookupInfix(literal)
		if !ok {
			if precSum <= minPrec {
				return left
			}
			token := self.advanceToken()
			right := self.parseExpression(precSum)
			r := left.SourceRange().Union(right.SourceRange())
			self.problems = append(self.problems, NewBadExpr(fmt.Sprintf("unknown operator %s", quote(literal)), token.Range))
			left = &SourceBad{Range: r, Message: fmt.Sprintf("unknown operator %s", quote(literal))}
			continue
		}
		if op.Precedence <= minPrec {
			return left
		}

		token := self.advanceToken()
		var right SourceExpr
		if op.Name == OP_PROJECTION {
			right = self.parseProjectionField()
		} else {
			rightMin := op.Precedence
			if op.Right {
				rightMin -= 1
			}
			right = self.parseExpression(rightMin)
		}
		left = &SourceBinary{
			Range:         left.SourceRange().Union(right.SourceRange()),
			Operator:      op,
			OperatorRange: token.Range,
			Left:          left,
			Right:         right,
		}
	}
}

func (self *Parser) parseProjectionField() SourceExpr {
	token := self.current
	if token.Kind == TOKEN_IDENTIFIER {
		self.advanceToken()
		return &SourceIdentifier{Range: token.Range, Name: token.Literal}
	}
	if token.IsOperator("(") {
		return self.parseGroup()
	}
	return self.missing(fmt.Sprintf("expected a slot name after %s, found %v", quote("."), token))
}

func (self *Parser) parsePrefix() SourceExpr {
	itemStart := self.itemStart
	self.itemStart = false

	token := self.current
	if self.newline && !itemStart && token.Kind != TOKEN_EOF {
		if self.column() > self.scope().indent {
			return self.parseBlock()
		}
		if self.atLayoutBreak() {
			return self.missingExpression()
		}
	}

	switch token.Kind {
	case TOKEN_NUMBER:
		self.advanceToken()
		return &SourceNumber{Range: token.Range, Literal: token.Literal, Value: token.Number, Unit: token.Unit}
	case TOKEN_STRING:
		self.advanceToken()
		return &SourceString{Range: token.Range, Literal: token.Literal, Value: token.Text}
	case TOKEN_ELLIPSIS:
		self.advanceToken()
		return &SourceEllipsis{Range: token.Range}
	case TOKEN_MALFORMED:
		self.advanceToken()
		return self.bad(token.Range, token.Message)
	case TOKEN_IDENTIFIER:
		switch token.Literal {
		case "let":
			return self.parseLet()
		case "if":
			return self.parseIf()
		}
		if keywords[token.Literal] {
			self.advanceToken()
			return self.bad(token.Range, fmt.Sprintf("unexpected %s", quote(token.Literal)))
		}
		self.advanceToken()
		return &SourceIdentifier{Range: token.Range, Name: token.Literal}
	case TOKEN_OPERATOR:
		if _, ok := groupClosers[token.Literal]; ok {
			return self.parseGroup()
		}
		if op, ok := LookupPrefix(token.Literal); ok {
			self.advanceToken()
			operand := self.parseExpression(op.Precedence)
			return &SourceUnary{
				Range:         token.Range.Union(operand.SourceRange()),
				Operator:      op,
				OperatorRange: token.Range,
				Operand:       operand,
			}
		}
	}
	return self.missingExpression()
}

// Parses an indentation block starting at the current token.
func (self *Parser) parseBlock() SourceExpr {
	indent := self.column()
	start := self.current.Range.Start
	self.scopes = append(self.scopes, layoutScope{indent: indent})
	items, separated := self.parseItems()
	self.scopes = self.scopes[:len(self.scopes)-1]
	self.dedented = self.newline && self.current.Kind != TOKEN_EOF && self.column() < indent

	return &SourceGroup{
		Range:     SourceRange{File: self.file, Start: start, End: self.previous.Range.End},
		Kind:      GROUP_BLOCK,
		Items:     items,
		Separated: separated,
	}
}

func (self *Parser) parseGroup() SourceExpr {
	open := self.advanceToken()
	closer := groupClosers[open.Literal]
	kind := groupKinds[open.Literal]

	if self.current.IsOperator(closer) {
		close := self.advanceToken()
		return &SourceGroup{Range: open.Range.Union(close.Range), Kind: kind}
	}

	self.scopes = append(self.scopes, layoutScope{indent: self.column(), closer: closer})
	items, separated := self.parseItems()
	self.scopes = self.scopes[:len(self.scopes)-1]

	if self.current.IsOperator(closer) {
		close := self.advanceToken()
		return &SourceGroup{Range: open.Range.Union(close.Range), Kind: kind, Items: items, Separated: separated}
	}

	// The group runs to the end of the enclosing scope.
	r := SourceRange{File: self.file, Start: open.Range.Start, End: self.previous.Range.End}
	items = append(items, self.bad(r, fmt.Sprintf("missing %s to close %s", quote(closer), quote(open.Literal))))
	return &SourceGroup{Range: r, Kind: kind, Items: items, Separated: separated}
}

func (self *Parser) parseKeywordClause(keyword string) SourceExpr {
	if !self.current.IsIdentifier(keyword) {
		return self.missing(fmt.Sprintf("expected %s, found %v", quote(keyword), self.current))
	}
	self.advanceToken()
	return self.parseExpression(precLowest)
}

func (self *Parser) parseLet() SourceExpr {
	keyword := self.advanceToken()
	var bindings []SourceExpr
	for {
		bindings = append(bindings, self.parseExpression(precLowest))
		if !self.current.IsOperator(",") {
			break
		}
		self.advanceToken()
	}
	body := self.parseKeywordClause("in")
	return &SourceLet{
		Range:    keyword.Range.Union(body.SourceRange()),
		Bindings: bindings,
		Body:     body,
	}
}

func (self *Parser) parseIf() SourceExpr {
	keyword := self.advanceToken()
	condition := self.parseExpression(precLowest)
	then := self.parseKeywordClause("then")
	otherwise := self.parseKeywordClause("else")
	return &SourceIf{
		Range:     keyword.Range.Union(otherwise.SourceRange()),
		Condition: condition,
		Then:      then,
		Else:      otherwise,
	}
}
