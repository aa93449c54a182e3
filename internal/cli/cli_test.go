package cli

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/ditaref/ditaref/internal/prompt"
)

func TestCheckReferencesFixesMissingElement(t *testing.T) {
	dir := t.TempDir()
	mustWriteFile(t, filepath.Join(dir, "topics", "a.dita"), `<topic id="a"><title>A</title><body>`+
		`<p><xref href="b.dita#b/nope" format="dita">B</xref></p>`+
		`</body></topic>`)
	mustWriteFile(t, filepath.Join(dir, "topics", "b.dita"), `<topic id="b"><title>B</title></topic>`)

	prompter := prompt.NewScripted([]int{1})
	withPrompter(t, prompter)

	var out string
	withWorkingDir(t, dir, func() {
		out = runCommand(t, "check-references", "--fix-element-not-found")
	})

	if !strings.Contains(out, "check-references: documents=2 references=1 suggestions=1 fixed=1 skipped=0") {
		t.Fatalf("unexpected summary:\n%s", out)
	}
	if !strings.Contains(out, "written files (1): topics/a.dita") {
		t.Fatalf("expected written file in summary:\n%s", out)
	}
	asked := prompter.Asked()
	if len(asked) != 1 || asked[0].Question != "element-not-found: How proceed?" {
		t.Fatalf("unexpected prompts: %+v", asked)
	}

	text := mustReadFile(t, filepath.Join(dir, "topics", "a.dita"))
	if !strings.Contains(text, `<xref href="b.dita" format="dita">B</xref>`) {
		t.Fatalf("expected reference to whole document, got:\n%s", text)
	}
}

func TestCheckReferencesJSONSummary(t *testing.T) {
	dir := t.TempDir()
	mustWriteFile(t, filepath.Join(dir, "a.dita"), `<topic id="a"><title>A</title><body>`+
		`<p><xref href="missing.dita" format="dita">Gone</xref></p>`+
		`<p><xref href="b.dita" format="dita">Wrong title</xref></p>`+
		`</body></topic>`)
	mustWriteFile(t, filepath.Join(dir, "b.dita"), `<topic id="b"><title>B</title></topic>`)
	withPrompter(t, prompt.Static{})

	out := runCommand(t, "check-references", "--fix-all", "--json", "--project-root", dir)

	var summary struct {
		Mode        string         `json:"mode"`
		RootPath    string         `json:"root_path"`
		Documents   int            `json:"documents"`
		References  int            `json:"references"`
		Suggestions map[string]int `json:"suggestions"`
		Fixed       int            `json:"fixed"`
		Skipped     int            `json:"skipped"`
	}
	if err := json.Unmarshal([]byte(out), &summary); err != nil {
		t.Fatalf("failed to parse summary JSON: %v\n%s", err, out)
	}
	if summary.Mode != "check-references" || summary.RootPath != dir {
		t.Fatalf("unexpected summary header: %+v", summary)
	}
	if summary.Documents != 2 || summary.References != 2 || summary.Fixed != 0 || summary.Skipped != 2 {
		t.Fatalf("unexpected counts: %+v", summary)
	}
	want := map[string]int{"doc-not-found": 1, "text-not-match": 1}
	if !reflect.DeepEqual(summary.Suggestions, want) {
		t.Fatalf("expected suggestions %v, got %v", want, summary.Suggestions)
	}
	if _, err := os.Stat(filepath.Join(dir, "missing.dita")); !os.IsNotExist(err) {
		t.Fatalf("missing target must not be created: %v", err)
	}
}

func TestCheckReferencesHonorsConfigAndIgnoreFile(t *testing.T) {
	dir := t.TempDir()
	mustWriteFile(t, filepath.Join(dir, ".ditaref.yaml"), "include:\n  - \"docs/**/*.dita\"\n")
	mustWriteFile(t, filepath.Join(dir, ".ditarefignore"), "# work in progress\ndrafts/\n")
	mustWriteFile(t, filepath.Join(dir, "docs", "a.dita"), `<topic id="a"><title>A</title></topic>`)
	mustWriteFile(t, filepath.Join(dir, "docs", "drafts", "b.dita"), `<topic id="b"><title>B</title></topic>`)
	mustWriteFile(t, filepath.Join(dir, "other", "c.dita"), `<topic id="c"><title>C</title></topic>`)
	withPrompter(t, prompt.Static{})

	out := runCommand(t, "check-references", "--project-root", dir)
	if !strings.Contains(out, "check-references: documents=1 references=0") {
		t.Fatalf("expected only docs/a.dita to be checked:\n%s", out)
	}
}

func TestMoveRewritesReferences(t *testing.T) {
	dir := t.TempDir()
	mustWriteFile(t, filepath.Join(dir, "guide.ditamap"), `<map><topicref href="topics/a.dita"/><topicref href="topics/b.dita"/></map>`)
	mustWriteFile(t, filepath.Join(dir, "topics", "a.dita"), `<topic id="a"><title>A</title><body>`+
		`<p><xref href="b.dita" format="dita">B</xref></p>`+
		`</body></topic>`)
	mustWriteFile(t, filepath.Join(dir, "topics", "b.dita"), `<topic id="b"><title>B</title><body>`+
		`<p><xref href="a.dita#a" format="dita">A</xref></p>`+
		`</body></topic>`)

	var out string
	withWorkingDir(t, dir, func() {
		out = runCommand(t, "move", "topics/a.dita", "archive/a.dita", "--yes")
	})

	if !strings.Contains(out, "move: topics/a.dita -> archive/a.dita scanned=3 changes=2 outbound=1") {
		t.Fatalf("unexpected summary:\n%s", out)
	}
	assertExists(t, filepath.Join(dir, "archive", "a.dita"))
	if _, err := os.Stat(filepath.Join(dir, "topics", "a.dita")); !os.IsNotExist(err) {
		t.Fatalf("expected topics/a.dita to be gone: %v", err)
	}

	if text := mustReadFile(t, filepath.Join(dir, "guide.ditamap")); !strings.Contains(text, `<topicref href="archive/a.dita"/>`) {
		t.Fatalf("map not updated:\n%s", text)
	}
	if text := mustReadFile(t, filepath.Join(dir, "topics", "b.dita")); !strings.Contains(text, `href="../archive/a.dita#a"`) {
		t.Fatalf("inbound reference not updated:\n%s", text)
	}
	if text := mustReadFile(t, filepath.Join(dir, "archive", "a.dita")); !strings.Contains(text, `href="../topics/b.dita"`) {
		t.Fatalf("outbound reference not updated:\n%s", text)
	}
}

func TestMoveRefusalChangesNothing(t *testing.T) {
	dir := t.TempDir()
	original := `<topic id="b"><title>B</title><body><p><xref href="a.dita" format="dita">A</xref></p></body></topic>`
	mustWriteFile(t, filepath.Join(dir, "a.dita"), `<topic id="a"><title>A</title></topic>`)
	mustWriteFile(t, filepath.Join(dir, "b.dita"), original)
	withPrompter(t, prompt.Static{Answer: false})

	out := runCommand(t, "move", "a.dita", "moved/a.dita", "--project-root", dir)
	if !strings.Contains(out, "move: aborted a.dita -> moved/a.dita") {
		t.Fatalf("expected abort summary:\n%s", out)
	}
	assertExists(t, filepath.Join(dir, "a.dita"))
	if text := mustReadFile(t, filepath.Join(dir, "b.dita")); text != original {
		t.Fatalf("b.dita changed after refusal:\n%s", text)
	}
}

func TestMoveRejectsExistingDestination(t *testing.T) {
	dir := t.TempDir()
	mustWriteFile(t, filepath.Join(dir, "a.dita"), `<topic id="a"/>`)
	mustWriteFile(t, filepath.Join(dir, "b.dita"), `<topic id="b"/>`)

	cmd := NewRootCommand("test")
	cmd.SetArgs([]string{"move", "a.dita", "b.dita", "--yes", "--project-root", dir})
	cmd.SetOut(io.Discard)
	if err := cmd.Execute(); err == nil {
		t.Fatalf("expected move onto an existing document to fail")
	}
	assertExists(t, filepath.Join(dir, "a.dita"))
}

func TestMoveReportsPartialProgress(t *testing.T) {
	dir := t.TempDir()
	original := `<topic id="b"><title>B</title><body><p><xref href="a.dita" format="dita">A</xref></p></body></topic>`
	mustWriteFile(t, filepath.Join(dir, "a.dita"), `<topic>`)
	mustWriteFile(t, filepath.Join(dir, "b.dita"), original)

	var execErr error
	stderr := captureStderr(t, func() {
		captureStdout(t, func() {
			cmd := NewRootCommand("test")
			cmd.SetArgs([]string{"move", "a.dita", "moved/a.dita", "--yes", "--project-root", dir})
			execErr = cmd.Execute()
		})
	})

	if execErr == nil {
		t.Fatalf("expected move of a malformed document to fail")
	}
	if !strings.Contains(stderr, "move partially applied") {
		t.Fatalf("expected partial move warning on stderr:\n%s", stderr)
	}
	if !strings.Contains(stderr, "move: a.dita -> moved/a.dita scanned=2 changes=1") {
		t.Fatalf("expected partial summary on stderr:\n%s", stderr)
	}
	assertExists(t, filepath.Join(dir, "moved", "a.dita"))
	if text := mustReadFile(t, filepath.Join(dir, "b.dita")); text != original {
		t.Fatalf("b.dita written after failure:\n%s", text)
	}
}

func TestPruneJSONBuckets(t *testing.T) {
	dir := t.TempDir()
	mustWriteFile(t, filepath.Join(dir, "root.ditamap"), `<map><topicref href="a.dita"/></map>`)
	mustWriteFile(t, filepath.Join(dir, "a.dita"), `<topic id="a"><body><xref href="b.dita"/></body></topic>`)
	mustWriteFile(t, filepath.Join(dir, "b.dita"), `<topic id="b"/>`)
	mustWriteFile(t, filepath.Join(dir, "c.dita"), `<topic id="c"/>`)

	out := runCommand(t, "prune", "--root-map", "root.ditamap", "--json", "--project-root", dir)

	var summary struct {
		Mode      string         `json:"mode"`
		RootMap   string         `json:"root_map"`
		Counts    map[string]int `json:"counts"`
		Documents []struct {
			Key    string `json:"key"`
			Bucket string `json:"bucket"`
		} `json:"documents"`
	}
	if err := json.Unmarshal([]byte(out), &summary); err != nil {
		t.Fatalf("failed to parse prune JSON: %v\n%s", err, out)
	}
	if summary.Mode != "prune" || summary.RootMap != "root.ditamap" {
		t.Fatalf("unexpected summary header: %+v", summary)
	}

	buckets := make(map[string]string, len(summary.Documents))
	for _, doc := range summary.Documents {
		buckets[doc.Key] = doc.Bucket
	}
	want := map[string]string{
		"root.ditamap": "unreferenced",
		"a.dita":       "navigation-only",
		"b.dita":       "orphaned",
		"c.dita":       "unreferenced",
	}
	if !reflect.DeepEqual(buckets, want) {
		t.Fatalf("expected buckets %v, got %v", want, buckets)
	}
	if summary.Counts["unreferenced"] != 2 {
		t.Fatalf("expected 2 unreferenced documents, got %d", summary.Counts["unreferenced"])
	}
}

func TestSitemapPrintsTree(t *testing.T) {
	dir := t.TempDir()
	mustWriteFile(t, filepath.Join(dir, "root.ditamap"), `<map>`+
		`<topicref id="guide" href="guide.dita"><topicmeta><navtitle>Guide</navtitle></topicmeta>`+
		`<topicref id="setup" href="setup.dita"><topicmeta><navtitle>Setup</navtitle></topicmeta></topicref>`+
		`</topicref>`+
		`<topicref id="terms" href="terms.dita" processing-role="resource-only"/>`+
		`</map>`)

	out := runCommand(t, "sitemap", "root.ditamap", "--project-root", dir)
	want := "Guide (guide.dita)\n  Setup (setup.dita)\nterms (terms.dita) [resource-only]\n"
	if out != want {
		t.Fatalf("expected tree:\n%s\ngot:\n%s", want, out)
	}

	out = runCommand(t, "sitemap", "root.ditamap", "--compressed", "--project-root", dir)
	var compressed struct {
		Root  string `json:"root"`
		Nodes []struct {
			ID string `json:"id"`
		} `json:"nodes"`
		Tree []any `json:"tree"`
	}
	if err := json.Unmarshal([]byte(out), &compressed); err != nil {
		t.Fatalf("failed to parse compressed sitemap: %v\n%s", err, out)
	}
	if compressed.Root != "root.ditamap" || len(compressed.Nodes) != 3 {
		t.Fatalf("unexpected compressed sitemap: %+v", compressed)
	}
	wantTree := []any{float64(0), []any{float64(1)}, float64(2)}
	if !reflect.DeepEqual(compressed.Tree, wantTree) {
		t.Fatalf("expected compressed tree %v, got %v", wantTree, compressed.Tree)
	}
}

func TestSitemapRequiresRootMap(t *testing.T) {
	dir := t.TempDir()
	cmd := NewRootCommand("test")
	cmd.SetArgs([]string{"sitemap", "--project-root", dir})
	if err := cmd.Execute(); err == nil || !strings.Contains(err.Error(), "no root map given") {
		t.Fatalf("expected missing root map error, got %v", err)
	}
}

func TestVersionCommand(t *testing.T) {
	out := runCommand(t, "version")
	if out != "ditaref 1.2.3\n" {
		t.Fatalf("unexpected version output %q", out)
	}
}

func runCommand(t *testing.T, args ...string) string {
	t.Helper()
	return captureStdout(t, func() {
		cmd := NewRootCommand("1.2.3")
		cmd.SetArgs(args)
		if err := cmd.Execute(); err != nil {
			t.Fatalf("%s failed: %v", strings.Join(args, " "), err)
		}
	})
}

func withPrompter(t *testing.T, p prompt.Prompter) {
	t.Helper()
	original := newPrompter
	newPrompter = func(bool) prompt.Prompter { return p }
	t.Cleanup(func() { newPrompter = original })
}

func withWorkingDir(t *testing.T, dir string, fn func()) {
	t.Helper()

	originalWD, err := os.Getwd()
	if err != nil {
		t.Fatalf("failed to get cwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("failed to chdir: %v", err)
	}
	defer func() {
		_ = os.Chdir(originalWD)
	}()

	fn()
}

func assertExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected %s to exist: %v", path, err)
	}
}

func captureStdout(t *testing.T, fn func()) string {
	t.Helper()

	original := os.Stdout
	reader, writer, err := os.Pipe()
	if err != nil {
		t.Fatalf("failed to create stdout pipe: %v", err)
	}
	os.Stdout = writer
	defer func() {
		os.Stdout = original
		_ = writer.Close()
		_ = reader.Close()
	}()

	fn()

	if err := writer.Close(); err != nil {
		t.Fatalf("failed to close stdout writer: %v", err)
	}

	data, err := io.ReadAll(reader)
	if err != nil {
		t.Fatalf("failed to read captured stdout: %v", err)
	}
	return string(data)
}

func captureStderr(t *testing.T, fn func()) string {
	t.Helper()

	original := os.Stderr
	reader, writer, err := os.Pipe()
	if err != nil {
		t.Fatalf("failed to create stderr pipe: %v", err)
	}
	os.Stderr = writer
	defer func() {
		os.Stderr = original
		_ = writer.Close()
		_ = reader.Close()
	}()

	fn()

	if err := writer.Close(); err != nil {
		t.Fatalf("failed to close stderr writer: %v", err)
	}

	data, err := io.ReadAll(reader)
	if err != nil {
		t.Fatalf("failed to read captured stderr: %v", err)
	}
	return string(data)
}

func mustReadFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read %s: %v", path, err)
	}
	return string(data)
}

func mustWriteFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("failed to create directory %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write file %s: %v", path, err)
	}
}
