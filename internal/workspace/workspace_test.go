package workspace

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"contexter/internal/errors"
	"contexter/internal/snapshot"
)

func writeFiles(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, body := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	}
}

func TestIgnore(t *testing.T) {
	ig := DefaultIgnore()
	require.NoError(t, ig.Add("docs/*.tmp", "# comment", "!keep.log", "/generated/", ""))

	tests := []struct {
		path string
		want bool
	}{
		{"main.py", false},
		{".git/config", true},
		{".gitignore", true},
		{"src/node_modules/pkg/index.js", true},
		{"app.pyc", true},
		{"logs/server.log", true},
		{"docs/a.tmp", true},
		{"docs/sub/a.tmp", false},
		{"generated/x.go", true},
		{"src/generated.go", false},
		{".contexter_cache/tree/a", true},
		{"keep.log", true},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, ig.Match(tt.path))
		})
	}

	assert.Error(t, NewIgnore().Add("[unclosed"))
}

func TestIgnoreFile(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		".gitignore":       "secret.txt\n# note\ncoverage/\n",
		"secret.txt":       "hidden",
		"coverage/out.txt": "x",
		"visible.txt":      "shown",
	})

	snap, err := NewScanner(DefaultIgnore(), DefaultIgnoreFile, nil).Snapshot(root)
	require.NoError(t, err)
	assert.Equal(t, []string{"visible.txt"}, snap.Paths())

	ig := NewIgnore()
	require.NoError(t, ig.AddFile(filepath.Join(root, "missing")))
}

func TestScannerSnapshot(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"main.py":           "print(1)",
		"note.bin":          "ab\x00cd",
		"image.png":         "not really a png",
		"src/pkg/lib.go":    "package pkg\n",
		"build/out.js":      "ignored",
		"bad.txt":           "ok\xffok",
		"config/app.yaml":   "a: 1\n",
		"node_modules/x.js": "ignored",
	})

	snap, err := NewScanner(nil, "", nil).Snapshot(root)
	require.NoError(t, err)
	assert.Equal(t, []string{"bad.txt", "config/app.yaml", "image.png", "main.py", "note.bin", "src/pkg/lib.go"}, snap.Paths())

	main, _ := snap.Get("main.py")
	assert.Equal(t, "print(1)", main.String())
	bin, _ := snap.Get("note.bin")
	assert.True(t, bin.IsBinary())
	png, _ := snap.Get("image.png")
	assert.True(t, png.IsBinary())
	bad, _ := snap.Get("bad.txt")
	assert.Equal(t, "okok", bad.String())
}

func TestScannerSkipsControlCharacterNames(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"ok.txt":                    "fine\n",
		"evil\n--- FILE: x ---.txt": "header injection\n",
	})

	snap, err := NewScanner(nil, "", nil).Snapshot(root)
	require.NoError(t, err)
	assert.Equal(t, []string{"ok.txt"}, snap.Paths())
}

func TestRenderTree(t *testing.T) {
	root := filepath.Join(t.TempDir(), "proj")
	writeFiles(t, root, map[string]string{
		"b.txt":         "",
		"a.txt":         "",
		"src/main.go":   "",
		"src/util/u.go": "",
		"docs/readme":   "",
		".git/HEAD":     "",
	})

	tree, err := RenderTree(root, DefaultIgnore())
	require.NoError(t, err)
	assert.Equal(t, "proj", tree.Name)
	want := "proj/\n" +
		"├── a.txt\n" +
		"├── b.txt\n" +
		"├── docs/\n" +
		"│   ├── readme\n" +
		"├── src/\n" +
		"│   ├── main.go\n" +
		"│   ├── util/\n" +
		"│   │   ├── u.go"
	assert.Equal(t, want, tree.Body)
}

func TestBuild(t *testing.T) {
	base := t.TempDir()
	writeFiles(t, base, map[string]string{
		"proj/main.py":   "print(1)",
		"proj/lib/a.py":  "A = 1",
		"extra/tool.sh":  "echo hi",
		"other/main.py":  "print(2)",
		"proj/out.md":    "previous output",
	})

	scanner := NewScanner(nil, "", nil)
	scanner.SkipFile(filepath.Join(base, "proj", "out.md"))

	doc, err := scanner.Build([]string{
		filepath.Join(base, "proj"),
		filepath.Join(base, "extra", "tool.sh"),
		filepath.Join(base, "missing"),
	}, true)
	require.NoError(t, err)
	assert.Equal(t, []string{"lib/a.py", "main.py", "tool.sh"}, doc.Snapshot.Paths())
	require.Len(t, doc.Trees, 1)
	assert.Equal(t, "proj", doc.Trees[0].Name)

	_, err = scanner.Build([]string{filepath.Join(base, "proj"), filepath.Join(base, "other", "main.py")}, false)
	assert.Error(t, err)

	_, err = scanner.Build([]string{filepath.Join(base, "nope")}, false)
	assert.True(t, errors.Is(err, errors.ErrorTypeInputNotFound))
}

func TestMaterialize(t *testing.T) {
	s := snapshot.New()
	require.NoError(t, s.Put("/abs/start.txt", snapshot.Text("leading slash stripped")))
	require.NoError(t, s.Put("dir/sub/file.go", snapshot.Text("package sub\n")))
	require.NoError(t, s.Put("logo.png", snapshot.Binary))

	out := t.TempDir()
	n, err := Materialize(s, out, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	data, err := os.ReadFile(filepath.Join(out, "abs", "start.txt"))
	require.NoError(t, err)
	assert.Equal(t, "leading slash stripped", string(data))

	info, err := os.Stat(filepath.Join(out, "logo.png"))
	require.NoError(t, err)
	assert.Zero(t, info.Size())

	back, err := NewScanner(NewIgnore(), "", nil).Snapshot(out)
	require.NoError(t, err)
	got, _ := back.Get("dir/sub/file.go")
	assert.Equal(t, "package sub\n", got.String())
}

func TestTarget(t *testing.T) {
	dir := t.TempDir()
	p, err := Target(dir, "a/b.txt")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "a", "b.txt"), p)

	_, err = Target(dir, "../outside")
	assert.Error(t, err)
}

func TestWriteFileAtomic(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "nested", "out.md")

	require.NoError(t, WriteFileAtomic(target, []byte("first"), 0o644))
	require.NoError(t, WriteFileAtomic(target, []byte("second"), 0o644))

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))

	entries, err := os.ReadDir(filepath.Dir(target))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
