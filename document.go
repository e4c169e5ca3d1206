package banjo

import (
	"strings"
)

// Replaces Length bytes of the text starting at Offset with Text.
type Edit struct {
	Offset int
	Length int
	Text   string
}

func (self Edit) applyTo(text string) string {
	return text[:self.Offset] + self.Text + text[self.Offset+self.Length:]
}

// An immutable parsed snapshot of a file's text. Applying an edit returns a
// new document; the old one stays valid and shares unchanged trees with it.
type Document struct {
	ctx         *Context
	file        string
	text        string
	source      *SourceGroup
	problems    []BadExpr
	incremental bool // Produced by re-parsing a single top-level item.
}

func OpenDocument(ctx *Context, file string, text string) *Document {
	return parseDocument(ctx, file, text)
}

func parseDocument(ctx *Context, file string, text string) *Document {
	result := Parse(ctx, text, file)
	return &Document{
		ctx:      ctx,
		file:     file,
		text:     text,
		source:   result.Expr.(*SourceGroup),
		problems: result.Problems,
	}
}

func (self *Document) File() string {
	return self.file
}

func (self *Document) Text() string {
	return self.text
}

func (self *Document) Source() SourceExpr {
	return self.source
}

func (self *Document) Problems() []BadExpr {
	return self.problems
}

func (self *Document) Desugar() DesugarResult {
	return Desugar(self.ctx, self.source)
}

func (self *Document) Apply(edit Edit) *Document {
	if edit.Offset < 0 || edit.Length < 0 || edit.Offset+edit.Length > len(self.text) {
		return self
	}
	if document, ok := self.applyToItem(edit); ok {
		return document
	}
	return parseDocument(self.ctx, self.file, edit.applyTo(self.text))
}

func (self *Document) itemEnd(index int) int {
	if index+1 < len(self.source.Items) {
		return self.source.Items[index+1].SourceRange().Start.Offset
	}
	return len(self.text)
}

// Index of the top-level item whose text, up to the start of the next item,
// contains the whole edit.
func (self *Document) editedItem(edit Edit) (int, bool) {
	for i, item := range self.source.Items {
		start := item.SourceRange().Start.Offset
		if edit.Offset >= start && edit.Offset+edit.Length < self.itemEnd(i) {
			return i, true
		}
	}
	return 0, false
}

func (self *Document) parseFragment(fragment string, start SourcePosition) (SourceExpr, bool) {
	if !strings.HasSuffix(fragment, "\n") {
		return nil, false
	}
	result := NewParser(self.ctx, NewLexerAt(self.ctx, fragment, self.file, start)).ParseFile()
	group := result.Expr.(*SourceGroup)
	if len(result.Problems) > 0 || group.Separated || len(group.Items) != 1 {
		return nil, false
	}
	item := group.Items[0]
	if item.SourceRange().Start != start {
		return nil, false
	}
	return item, true
}

// Reparses only the edited top-level item. Problems describe the tokens
// around them, so a document that has any is always parsed again in full.
func (self *Document) applyToItem(edit Edit) (*Document, bool) {
	if self.source.Separated || len(self.problems) > 0 {
		return nil, false
	}
	index, ok := self.editedItem(edit)
	if !ok {
		return nil, false
	}

	old := self.source.Items[index]
	start := old.SourceRange().Start
	end := self.itemEnd(index)
	oldFragment := self.text[start.Offset:end]
	if _, ok := self.parseFragment(oldFragment, start); !ok {
		return nil, false
	}
	local := Edit{Offset: edit.Offset - start.Offset, Length: edit.Length, Text: edit.Text}
	newFragment := local.applyTo(oldFragment)
	item, ok := self.parseFragment(newFragment, start)
	if !ok {
		return nil, false
	}

	offset := len(newFragment) - len(oldFragment)
	lines := strings.Count(newFragment, "\n") - strings.Count(oldFragment, "\n")
	items := make([]SourceExpr, len(self.source.Items))
	copy(items, self.source.Items[:index])
	items[index] = item
	for i := index + 1; i < len(items); i++ {
		items[i] = shiftSource(self.source.Items[i], offset, lines)
	}

	text := edit.applyTo(self.text)
	root := &SourceGroup{
		Range:     SourceRange{File: self.file, Start: self.source.Range.Start, End: StartOfFile().Advance(text)},
		Kind:      GROUP_BLOCK,
		Items:     items,
		Separated: false,
	}
	return &Document{
		ctx:         self.ctx,
		file:        self.file,
		text:        text,
		source:      root,
		incremental: true,
	}, true
}

// Copies e with every range moved by offset bytes and lines lines.
func shiftSource(e SourceExpr, offset int, lines int) SourceExpr {
	shift := func(e SourceExpr) SourceExpr {
		return shiftSource(e, offset, lines)
	}
	switch e := e.(type) {
	case *SourceNumber:
		result := *e
		result.Range = e.Range.Shift(offset, lines)
		return &result
	case *SourceString:
		result := *e
		result.Range = e.Range.Shift(offset, lines)
		return &result
	case *SourceIdentifier:
		result := *e
		result.Range = e.Range.Shift(offset, lines)
		return &result
	case *SourceEllipsis:
		return &SourceEllipsis{Range: e.Range.Shift(offset, lines)}
	case *SourceUnary:
		result := *e
		result.Range = e.Range.Shift(offset, lines)
		result.OperatorRange = e.OperatorRange.Shift(offset, lines)
		result.Operand = shift(e.Operand)
		return &result
	case *SourceBinary:
		result := *e
		result.Range = e.Range.Shift(offset, lines)
		result.OperatorRange = e.OperatorRange.Shift(offset, lines)
		result.Left = shift(e.Left)
		result.Right = shift(e.Right)
		return &result
	case *SourceCall:
		return &SourceCall{
			Range:     e.Range.Shift(offset, lines),
			Target:    shift(e.Target),
			Arguments: shift(e.Arguments),
		}
	case *SourceGroup:
		var items []SourceExpr
		for _, item := range e.Items {
			items = append(items, shift(item))
		}
		return &SourceGroup{Range: e.Range.Shift(offset, lines), Kind: e.Kind, Items: items, Separated: e.Separated}
	case *SourceLet:
		bindings := make([]SourceExpr, len(e.Bindings))
		for i, binding := range e.Bindings {
			bindings[i] = shift(binding)
		}
		return &SourceLet{Range: e.Range.Shift(offset, lines), Bindings: bindings, Body: shift(e.Body)}
	case *SourceIf:
		return &SourceIf{
			Range:     e.Range.Shift(offset, lines),
			Condition: shift(e.Condition),
			Then:      shift(e.Then),
			Else:      shift(e.Else),
		}
	case *SourceBad:
		return &SourceBad{Range: e.Range.Shift(offset, lines), Message: e.Message}
	}
	panic("unreachable")
}
