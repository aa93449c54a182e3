package xquery

import (
	"testing"

	"github.com/beevik/etree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSerializeRoundTrip(t *testing.T) {
	engine := NewEngine()
	text := `<map><topicref href="file1.xml"/><topicref href="file2.xml"/></map>`

	doc, err := engine.Parse(text)
	require.NoError(t, err)

	out, err := engine.Serialize(doc)
	require.NoError(t, err)
	assert.Equal(t, text, out)
}

func TestParseRejectsEmptyAndMalformedInput(t *testing.T) {
	engine := NewEngine()

	_, err := engine.Parse("")
	require.Error(t, err)

	_, err = engine.Parse("<map><topicref></map>")
	require.Error(t, err)
}

func TestEvaluateDefersChangesUntilApplied(t *testing.T) {
	engine := NewEngine()
	doc, err := engine.Parse(`<topic><p>See <xref href="a.xml" format="dita">Old</xref>.</p></topic>`)
	require.NoError(t, err)

	pending, err := engine.Evaluate(doc, UpdateFunc(func(doc *etree.Document) ([]Change, error) {
		xrefs, err := engine.Find(&doc.Element, "//xref")
		if err != nil {
			return nil, err
		}
		changes := make([]Change, 0, len(xrefs))
		for _, xref := range xrefs {
			changes = append(changes, ReplaceContent{Element: xref, Text: "New"})
		}
		return changes, nil
	}))
	require.NoError(t, err)
	require.Equal(t, 1, pending.Len())

	before, err := engine.Serialize(doc)
	require.NoError(t, err)
	assert.Contains(t, before, ">Old<")

	require.NoError(t, pending.Apply())
	after, err := engine.Serialize(doc)
	require.NoError(t, err)
	assert.Equal(t, `<topic><p>See <xref href="a.xml" format="dita">New</xref>.</p></topic>`, after)
}

func TestReplaceWithTextUnwrapsElement(t *testing.T) {
	engine := NewEngine()
	doc, err := engine.Parse(`<topic><p>See <xref href="a.xml">Target <b>title</b></xref>.</p></topic>`)
	require.NoError(t, err)

	xref, err := engine.FindOne(&doc.Element, "//xref")
	require.NoError(t, err)
	require.NotNil(t, xref)

	text := StringValue(xref)
	assert.Equal(t, "Target title", text)

	pending, err := engine.Evaluate(doc, UpdateFunc(func(*etree.Document) ([]Change, error) {
		return []Change{ReplaceWithText{Element: xref, Text: text}}, nil
	}))
	require.NoError(t, err)
	require.NoError(t, pending.Apply())

	out, err := engine.Serialize(doc)
	require.NoError(t, err)
	assert.Equal(t, `<topic><p>See Target title.</p></topic>`, out)
	assert.False(t, Attached(doc, xref))
}

func TestWalkVisitsDocumentOrder(t *testing.T) {
	engine := NewEngine()
	doc, err := engine.Parse(`<map id="m"><topichead id="a"><topicref id="b"/></topichead><topicref id="c"/></map>`)
	require.NoError(t, err)

	var ids []string
	Walk(doc.Root(), func(el *etree.Element) bool {
		ids = append(ids, el.SelectAttrValue("id", ""))
		return true
	})
	assert.Equal(t, []string{"m", "a", "b", "c"}, ids)

	assert.Equal(t, "b", ElementByID(doc.Root(), "b").SelectAttrValue("id", ""))
	assert.Nil(t, ElementByID(doc.Root(), "missing"))
	assert.Len(t, Select(doc.Root(), ByTag("topicref", "topichead")), 3)
}

func TestFindReusesCompiledPaths(t *testing.T) {
	engine, err := NewEngineWithCacheSize(1)
	require.NoError(t, err)
	doc, err := engine.Parse(`<map><mapref href="a.ditamap"/><mapref/></map>`)
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		found, err := engine.Find(&doc.Element, "//mapref[@href]")
		require.NoError(t, err)
		assert.Len(t, found, 1)
	}
	assert.Equal(t, 1, engine.paths.Len())

	has, err := engine.Has(doc.Root(), "mapref")
	require.NoError(t, err)
	assert.True(t, has)
}
