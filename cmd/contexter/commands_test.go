package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"contexter/internal/container"
	"contexter/internal/diff"
	"contexter/internal/snapshot"
)

func execute(t *testing.T, args ...string) {
	t.Helper()
	rootCmd.SetArgs(args)
	require.NoError(t, rootCmd.Execute())
}

func TestFormatFor(t *testing.T) {
	tests := map[string]container.Format{
		"ctx.md":       container.FormatMarkdown,
		"ctx.HTML":     container.FormatHTML,
		"page.htm":     container.FormatHTML,
		"notes.txt":    container.FormatMarkdown,
		"no-extension": container.FormatMarkdown,
	}
	for path, want := range tests {
		assert.Equal(t, want, formatFor(path), path)
	}
}

func TestBuildDiffUpdate(t *testing.T) {
	dir := t.TempDir()
	project := filepath.Join(dir, "project")
	require.NoError(t, os.MkdirAll(filepath.Join(project, "src"), 0o755))
	write := func(rel, content string) {
		require.NoError(t, os.WriteFile(filepath.Join(project, rel), []byte(content), 0o644))
	}
	write("a.txt", "one\ntwo\n")
	write("src/main.go", "package main\n")

	before := filepath.Join(dir, "before.md")
	after := filepath.Join(dir, "after.html")
	patchFile := filepath.Join(dir, "changes.md")
	updated := filepath.Join(dir, "updated.md")

	execute(t, "build", project, "-o", before, "--no-tree")

	write("a.txt", "one\n2\n")
	write("b.txt", "new\n")
	require.NoError(t, os.Remove(filepath.Join(project, "src", "main.go")))
	execute(t, "build", project, "-o", after, "--no-tree")

	execute(t, "diff", before, after, "-o", patchFile)
	execute(t, "update", before, patchFile, "-o", updated)

	want, err := readContainer(after)
	require.NoError(t, err)
	got, err := readContainer(updated)
	require.NoError(t, err)
	assert.True(t, want.Snapshot.Normalize().Equal(got.Snapshot))
	assert.Equal(t, []string{"a.txt", "b.txt"}, got.Snapshot.Paths())

	execute(t, "reconstruct", updated, "-o", filepath.Join(dir, "out"))
	data, err := os.ReadFile(filepath.Join(dir, "out", "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, "one\n2", string(data))
}

func TestDiffAcrossFormats(t *testing.T) {
	dir := t.TempDir()
	project := filepath.Join(dir, "project")
	require.NoError(t, os.MkdirAll(project, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(project, "a.txt"), []byte("\none\ntwo\n\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(project, "crlf.txt"), []byte("x\r\ny\r\n"), 0o644))

	md := filepath.Join(dir, "same.md")
	html := filepath.Join(dir, "same.html")
	out := filepath.Join(dir, "none.md")
	execute(t, "build", project, "-o", md, "--no-tree")
	execute(t, "build", project, "-o", html, "--no-tree")
	execute(t, "diff", md, html, "-o", out)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Empty(t, string(data))
}

func TestSink(t *testing.T) {
	_, err := newSink("", "")
	assert.Error(t, err)
	_, err = newSink("a.md", "b.md")
	assert.Error(t, err)

	dir := t.TempDir()
	target := filepath.Join(dir, "ctx.md")
	snap := snapshot.New()
	require.NoError(t, snap.Put("a.txt", snapshot.Text("old")))
	require.NoError(t, writeContainer(target, snapshot.NewDocument(snap)))

	next := snapshot.New()
	require.NoError(t, next.Put("a.txt", snapshot.Text("new")))
	ps := diff.NewEngine(diff.DefaultContext).Snapshots(snap, next)

	sink, err := newSink("", target)
	require.NoError(t, err)
	require.NoError(t, sink(context.Background(), ps))

	doc, err := readContainer(target)
	require.NoError(t, err)
	assert.True(t, doc.Snapshot.Equal(next))
}

func TestDetectorExcludes(t *testing.T) {
	project := t.TempDir()
	excludes := detectorExcludes(project, filepath.Join(project, "ctx.md"), filepath.Join(t.TempDir(), "elsewhere.md"))
	assert.Contains(t, excludes, "/ctx.md")
	assert.Contains(t, excludes, ".contexter_cache")
	assert.NotContains(t, excludes, "/elsewhere.md")
}

func TestSummary(t *testing.T) {
	snap := snapshot.New()
	require.NoError(t, snap.Put("main.go", snapshot.Text("package main")))
	require.NoError(t, snap.Put("lib/util.go", snapshot.Text("package lib")))
	require.NoError(t, snap.Put("logo.png", snapshot.Binary))

	out := summary("ctx.md", snapshot.NewDocument(snap))
	assert.Contains(t, out, "ctx.md")
	assert.Contains(t, out, "go 2")
	assert.Contains(t, out, "23")
}
