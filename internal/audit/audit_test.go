package audit

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ditaref/ditaref/internal/prompt"
	"github.com/ditaref/ditaref/internal/sitemap"
	"github.com/ditaref/ditaref/internal/storage"
	"github.com/ditaref/ditaref/internal/store"
	"github.com/ditaref/ditaref/internal/xquery"
)

func newProject(files map[string]string, keys ...string) (*store.Store, *storage.Memory) {
	provider := storage.NewMemory(files)
	st := store.New(provider, xquery.NewEngine())
	for _, key := range keys {
		st.Discover(key)
	}
	return st, provider
}

const topicA = `<topic id="a"><title>A</title><body>` +
	`<p><xref href="b.xml" format="dita">Bee</xref></p>` +
	`<p><xref href="missing.xml" format="dita">Gone</xref></p>` +
	`<p><xref href="b.xml#b/nope" format="dita">B title</xref></p>` +
	`<p><xref href="http://example.com" format="dita">External</xref></p>` +
	`<p><xref href="b.xml#b/sec" format="dita">Section</xref></p>` +
	`<p><xref href="b.xml" format="html">Ignored</xref></p>` +
	`</body></topic>`

const topicB = `<topic id="b"><title>B title</title><body><section id="sec"><title>Section</title></section></body></topic>`

func auditProject() (*store.Store, *storage.Memory) {
	return newProject(map[string]string{
		"topics/a.xml":      topicA,
		"topics/b.xml":      topicB,
		"other/missing.xml": `<topic id="m"><title>Gone</title></topic>`,
	}, "topics/a.xml", "topics/b.xml", "other/missing.xml")
}

func TestRunFixesEveryCategory(t *testing.T) {
	ctx := context.Background()
	st, provider := auditProject()
	prompter := prompt.NewScripted([]int{1, 2, 1})

	report, err := Run(ctx, st, Options{Fix: All(), Prompter: prompter})
	require.NoError(t, err)

	assert.Equal(t, 3, report.Documents)
	assert.Equal(t, 4, report.References)
	assert.Equal(t, map[string]int{"text-not-match": 1, "doc-not-found": 1, "element-not-found": 1}, report.Suggestions)
	assert.Equal(t, 3, report.Fixed)
	assert.Equal(t, []string{"topics/a.xml"}, report.Written)
	assert.Equal(t, 3, provider.Pushes("topics/a.xml"))

	asked := prompter.Asked()
	require.Len(t, asked, 3)
	assert.Equal(t, "text-not-match: How proceed?", asked[0].Question)
	assert.Equal(t, []string{"Skip", "Unwrap reference", "Change reference to other/missing.xml"}, asked[1].Labels)
	assert.Equal(t, []string{"Skip", "Reference the whole document instead", "Unwrap reference"}, asked[2].Labels)

	text, ok := provider.Text("topics/a.xml")
	require.True(t, ok)
	assert.Contains(t, text, `<xref href="b.xml" format="dita">B title</xref></p><p><xref href="../other/missing.xml"`)
	assert.Contains(t, text, `<xref href="b.xml" format="dita">B title</xref></p><p><xref href="http://example.com"`)
}

func TestRunIsIdempotent(t *testing.T) {
	ctx := context.Background()
	_, provider := auditProject()
	first := store.New(provider, nil)
	for _, key := range []string{"topics/a.xml", "topics/b.xml", "other/missing.xml"} {
		first.Discover(key)
	}
	_, err := Run(ctx, first, Options{Fix: All(), Prompter: prompt.NewScripted([]int{1, 2, 1})})
	require.NoError(t, err)

	second := store.New(provider, nil)
	for _, key := range []string{"topics/a.xml", "topics/b.xml", "other/missing.xml"} {
		second.Discover(key)
	}
	report, err := Run(ctx, second, Options{Fix: All(), Prompter: prompt.NewScripted(nil)})
	require.NoError(t, err)
	assert.Zero(t, report.Total())
	assert.Empty(t, report.Written)
}

func TestMissingDocumentReasonIsTruncated(t *testing.T) {
	ctx := context.Background()
	st, _ := newProject(map[string]string{
		"a.xml": `<topic><p><xref href="gone.xml" format="dita">Gone</xref></p></topic>`,
	}, "a.xml")

	doc, err := st.Tree(ctx, "a.xml")
	require.NoError(t, err)
	refs := References(doc, "a.xml", []string{"dita"})
	require.Len(t, refs, 1)

	a := &auditor{store: st, opts: Options{Fix: All()}}
	suggestion, err := a.check(ctx, refs[0])
	require.NoError(t, err)
	missing, ok := suggestion.(*MissingDocument)
	require.True(t, ok)
	assert.Equal(t, "document does not ex…", missing.Reason)
	assert.Empty(t, missing.Candidates)
	assert.Equal(t, []string{"gone.xml"}, missing.Key())
	assert.False(t, st.Knows("gone.xml"))
}

func missingDocument(t *testing.T, files map[string]string, discovered ...string) *MissingDocument {
	t.Helper()
	ctx := context.Background()
	st, _ := newProject(files, discovered...)

	doc, err := st.Tree(ctx, "a.xml")
	require.NoError(t, err)
	refs := References(doc, "a.xml", []string{"dita"})
	require.Len(t, refs, 1)

	a := &auditor{store: st, opts: Options{Fix: All()}}
	suggestion, err := a.check(ctx, refs[0])
	require.NoError(t, err)
	missing, ok := suggestion.(*MissingDocument)
	require.True(t, ok)
	return missing
}

func remedyLabels(s Suggestion) []string {
	labels := make([]string, 0, 3)
	for _, remedy := range Remedies(s) {
		labels = append(labels, remedy.Label)
	}
	return labels
}

func TestMissingDocumentIgnoresOtherFileNames(t *testing.T) {
	missing := missingDocument(t, map[string]string{
		"a.xml":           `<topic><p><xref href="setup.xml" format="dita">Setup</xref></p></topic>`,
		"docs/setups.xml": `<topic id="s"><title>Setups</title></topic>`,
	}, "a.xml", "docs/setups.xml")

	assert.Empty(t, missing.Candidates)
	assert.Equal(t, []string{"Skip", "Unwrap reference"}, remedyLabels(missing))
}

func TestMissingDocumentOrdersSameNameCandidates(t *testing.T) {
	missing := missingDocument(t, map[string]string{
		"a.xml":             `<topic><p><xref href="guide/install/setup.xml" format="dita">Setup</xref></p></topic>`,
		"archive/setup.xml": `<topic id="s"><title>Old setup</title></topic>`,
		"guide/setup.xml":   `<topic id="s"><title>Setup</title></topic>`,
		"guide/other.xml":   `<topic id="o"><title>Other</title></topic>`,
	}, "a.xml", "archive/setup.xml", "guide/setup.xml", "guide/other.xml")

	assert.Equal(t, []string{"guide/setup.xml", "archive/setup.xml"}, missing.Candidates)
	assert.Equal(t, []string{
		"Skip",
		"Unwrap reference",
		"Change reference to guide/setup.xml",
		"Change reference to archive/setup.xml",
	}, remedyLabels(missing))
}

func TestAnswerMemoryOffersRepeat(t *testing.T) {
	ctx := context.Background()
	st, provider := newProject(map[string]string{
		"a.xml": `<topic><p><xref href="gone.xml" format="dita">One</xref> and <xref href="gone.xml" format="dita">Two</xref></p></topic>`,
		"c.xml": `<topic><p><xref href="gone.xml" format="dita">Three</xref></p></topic>`,
	}, "a.xml", "c.xml")
	memory := NewAnswerMemory()
	prompter := prompt.NewScripted([]int{1, 0, 2})

	report, err := Run(ctx, st, Options{Fix: All(), Prompter: prompter, Memory: memory})
	require.NoError(t, err)
	assert.Equal(t, 3, report.Fixed)
	assert.Equal(t, 1, memory.Len())

	asked := prompter.Asked()
	require.Len(t, asked, 3)
	assert.Equal(t, "Skip", asked[0].Labels[0])
	assert.Equal(t, "Repeat last: Unwrap reference", asked[1].Labels[0])
	assert.Equal(t, "Repeat last: Unwrap reference", asked[2].Labels[0])

	a, _ := provider.Text("a.xml")
	assert.Equal(t, `<topic><p>One and Two</p></topic>`, a)
	c, _ := provider.Text("c.xml")
	assert.Equal(t, `<topic><p>Three</p></topic>`, c)
}

func TestDisabledCategorySkipsLaterChecks(t *testing.T) {
	ctx := context.Background()
	st, _ := newProject(map[string]string{
		"a.xml": `<topic><p><xref href="b.xml#b/nope" format="dita">Wrong</xref></p></topic>`,
		"b.xml": `<topic id="b"><title>B</title></topic>`,
	}, "a.xml", "b.xml")

	report, err := Run(ctx, st, Options{Fix: FixOptions{TextNotMatch: true}, Prompter: prompt.NewScripted(nil)})
	require.NoError(t, err)
	assert.Zero(t, report.Total())
	assert.Equal(t, 1, report.References)
}

func TestDocumentNotInMapPrecedesTitleCheck(t *testing.T) {
	ctx := context.Background()
	st, _ := newProject(map[string]string{
		"root.ditamap": `<map><topicref id="a" href="a.xml"/></map>`,
		"a.xml":        `<topic><p><xref href="b.xml" format="dita">Not the title</xref></p></topic>`,
		"b.xml":        `<topic id="b"><title>B</title></topic>`,
	}, "root.ditamap", "a.xml", "b.xml")
	prompter := prompt.NewScripted([]int{0})

	report, err := Run(ctx, st, Options{
		Fix:      All(),
		Sitemap:  sitemap.New(st, "root.ditamap"),
		Prompter: prompter,
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"doc-not-in-map": 1}, report.Suggestions)
	assert.Equal(t, 1, report.Skipped)
	assert.Equal(t, []string{"Skip", "Unwrap reference"}, prompter.Asked()[0].Labels)
}

func TestUnwrappedReferencesAreSkipped(t *testing.T) {
	ctx := context.Background()
	st, provider := newProject(map[string]string{
		"a.xml": `<topic><p><xref href="gone.xml" format="dita">A <xref href="gone2.xml" format="dita">B</xref></xref></p></topic>`,
	}, "a.xml")

	report, err := Run(ctx, st, Options{Fix: All(), Prompter: prompt.NewScripted([]int{1})})
	require.NoError(t, err)
	assert.Equal(t, 1, report.References)

	text, _ := provider.Text("a.xml")
	assert.Equal(t, `<topic><p>A B</p></topic>`, text)
}

func TestPromptErrorAbortsRun(t *testing.T) {
	ctx := context.Background()
	st, _ := newProject(map[string]string{
		"a.xml": `<topic><p><xref href="gone.xml" format="dita">A</xref></p></topic>`,
	}, "a.xml")

	_, err := Run(ctx, st, Options{Fix: All(), Prompter: prompt.NewScripted(nil)})
	require.Error(t, err)
	assert.True(t, errors.Is(err, prompt.ErrScriptExhausted))
}

func TestDescribeCoversEveryCategory(t *testing.T) {
	ref := Reference{Referrer: "a.xml", Target: "b.xml", Text: "Link"}
	suggestions := []Suggestion{
		&MissingDocument{Reference: ref, Reason: "gone"},
		&MissingElement{Reference: ref, ElementID: "x"},
		&UnmappedDocument{Reference: ref},
		&TextMismatch{Reference: ref, Title: "Title"},
	}
	for i, s := range suggestions {
		assert.Equal(t, Categories[i], s.Category())
		message, details := Describe(s)
		assert.NotEmpty(t, message)
		assert.NotEmpty(t, details)
	}
}
