package block

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryCoversEveryKind(t *testing.T) {
	for _, kind := range Kinds() {
		traits, ok := Lookup(kind)
		require.True(t, ok, "kind %s missing from registry", kind)
		assert.NotEmpty(t, traits.Label)
		assert.NotEmpty(t, traits.Style)
	}
	assert.Len(t, Kinds(), len(registry))
}

func TestTriggersLongestFirst(t *testing.T) {
	list := Triggers()
	require.NotEmpty(t, list)
	for i := 1; i < len(list); i++ {
		assert.GreaterOrEqual(t, len(list[i-1].Token), len(list[i].Token))
	}
	assert.Equal(t, "######", list[0].Token)
}

func TestHeadingLevels(t *testing.T) {
	for level := 1; level <= 6; level++ {
		assert.Equal(t, level, Heading(level).HeadingLevel())
	}
	assert.Equal(t, KindHeading1, Heading(0))
	assert.Equal(t, KindHeading6, Heading(9))
	assert.Equal(t, 0, KindText.HeadingLevel())
}

func TestConvertNormalizesFields(t *testing.T) {
	b := Block{ID: "b1", Kind: KindTodo, Content: "buy milk", Checked: true}

	code := Convert(b, KindCode)
	assert.Equal(t, "b1", code.ID)
	assert.Equal(t, "buy milk", code.Content)
	assert.False(t, code.Checked)
	assert.Equal(t, DefaultCodeLanguage, code.CodeLanguage)

	divider := Convert(b, KindDivider)
	assert.Empty(t, divider.Content)

	same := Convert(b, Kind("nope"))
	assert.Equal(t, b, same)
}

func TestNewAssignsUniqueIDs(t *testing.T) {
	a, b := New(KindText), New(KindText)
	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, DefaultCodeLanguage, New(KindCode).CodeLanguage)
}

func TestPlainText(t *testing.T) {
	assert.Equal(t, "Groceries", PlainText("<b>Groceries</b>"))
	assert.Equal(t, "Fish & chips", PlainText("Fish &amp; <i>chips</i>"))
	assert.Equal(t, "", PlainText(""))
	assert.True(t, IsBlank("<br> "))
	assert.False(t, IsBlank("x"))
}

func TestSanitizeKeepsInlineFormatting(t *testing.T) {
	out := Sanitize(`<b>bold</b><script>alert(1)</script>`)
	assert.Equal(t, "<b>bold</b>", out)
}

func TestBlockJSONUsesTypeKey(t *testing.T) {
	raw, err := json.Marshal(Block{ID: "b1", Kind: KindQuote, Content: "hi"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"b1","type":"quote","content":"hi"}`, string(raw))
}

func TestPlainDocument(t *testing.T) {
	doc := PlainDocument([]Block{
		{Kind: KindHeading1, Content: "<b>Title</b>"},
		{Kind: KindDivider},
		{Kind: KindImage, Caption: "a cat"},
		{Kind: KindText, Content: "body"},
	})
	assert.Equal(t, "Title\na cat\nbody", doc)
}
