package banjo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const documentText = "a: 1\nb: 2\nc: 3\n"

func assertSameAsFullParse(t *testing.T, ctx *Context, document *Document) {
	full := OpenDocument(ctx, document.File(), document.Text())
	assert.Equal(t, full.Source(), document.Source())
	assert.Equal(t, full.Problems(), document.Problems())
}

func TestDocumentEditWithinItem(t *testing.T) {
	ctx := NewContext()
	document := OpenDocument(ctx, "doc.bj", documentText)
	edited := document.Apply(Edit{Offset: 8, Length: 1, Text: "20"})

	assert.True(t, edited.incremental)
	assert.Equal(t, "a: 1\nb: 20\nc: 3\n", edited.Text())
	assertSameAsFullParse(t, ctx, edited)

	// The old snapshot is unchanged.
	assert.Equal(t, documentText, document.Text())
	assertSameAsFullParse(t, ctx, document)
}

func TestDocumentEditAddsLines(t *testing.T) {
	ctx := NewContext()
	document := OpenDocument(ctx, "doc.bj", documentText)
	edited := document.Apply(Edit{Offset: 8, Length: 1, Text: "(2 +\n  3)"})

	assert.True(t, edited.incremental)
	assertSameAsFullParse(t, ctx, edited)
	items := edited.Source().(*SourceGroup).Items
	require.Len(t, items, 3)
	assert.Equal(t, 4, items[2].SourceRange().Start.Line)
}

func TestDocumentEditSplittingItemReparses(t *testing.T) {
	ctx := NewContext()
	document := OpenDocument(ctx, "doc.bj", documentText)
	edited := document.Apply(Edit{Offset: 8, Length: 1, Text: "2\nd: 4"})

	assert.False(t, edited.incremental)
	assertSameAsFullParse(t, ctx, edited)
	assert.Len(t, edited.Source().(*SourceGroup).Items, 4)
}

func TestDocumentEditAcrossItemsReparses(t *testing.T) {
	ctx := NewContext()
	document := OpenDocument(ctx, "doc.bj", documentText)
	edited := document.Apply(Edit{Offset: 3, Length: 7, Text: "5\n"})

	assert.False(t, edited.incremental)
	assert.Equal(t, "a: 5\nc: 3\n", edited.Text())
	assertSameAsFullParse(t, ctx, edited)
}

func TestDocumentAppend(t *testing.T) {
	ctx := NewContext()
	document := OpenDocument(ctx, "doc.bj", documentText)
	edited := document.Apply(Edit{Offset: len(documentText), Text: "d: 4\n"})
	assertSameAsFullParse(t, ctx, edited)
}

func TestDocumentEditIntroducingProblem(t *testing.T) {
	ctx := NewContext()
	document := OpenDocument(ctx, "doc.bj", documentText)
	edited := document.Apply(Edit{Offset: 8, Length: 1, Text: "(2"})

	assert.False(t, edited.incremental)
	assertSameAsFullParse(t, ctx, edited)
	assert.NotEmpty(t, edited.Problems())
}

func TestDocumentInvalidEdit(t *testing.T) {
	ctx := NewContext()
	document := OpenDocument(ctx, "doc.bj", documentText)
	assert.Same(t, document, document.Apply(Edit{Offset: 100, Length: 1}))
	assert.Same(t, document, document.Apply(Edit{Offset: -1}))
}

func TestDocumentSharesUnchangedTrees(t *testing.T) {
	ctx := NewContext()
	document := OpenDocument(ctx, "doc.bj", documentText)
	edited := document.Apply(Edit{Offset: 13, Length: 1, Text: "30"})
	require.True(t, edited.incremental)

	before := document.Desugar().Expr.(*CoreObject)
	after := edited.Desugar().Expr.(*CoreObject)
	assert.Same(t, before.Slots[0].Value, after.Slots[0].Value)
	assert.Same(t, before.Slots[1].Value, after.Slots[1].Value)
	assert.NotSame(t, before.Slots[2].Value, after.Slots[2].Value)
}

func TestDocumentWithProblemsReparses(t *testing.T) {
	ctx := NewContext()
	tests := []struct {
		text string
		edit Edit
	}{
		{"a: 1 2\nb: 3\nc: 4\n", Edit{Offset: 15, Length: 1, Text: "40"}},
		{"a: 1\nb: 2 x\nc: 3\n", Edit{Offset: 3, Length: 1, Text: "10"}},
		{"d: )\nb: 2\n", Edit{Offset: 8, Length: 1, Text: "20"}},
	}
	for _, test := range tests {
		document := OpenDocument(ctx, "doc.bj", test.text)
		require.NotEmpty(t, document.Problems(), test.text)
		edited := document.Apply(test.edit)
		assert.False(t, edited.incremental, test.text)
		assertSameAsFullParse(t, ctx, edited)
	}
}
