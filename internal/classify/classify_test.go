package classify

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"contexter/internal/snapshot"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		prefix []byte
		want   snapshot.Kind
	}{
		{"plain text", "notes.txt", []byte("hello"), snapshot.KindText},
		{"text extension still sniffed", "notes.txt", []byte("a\x00b"), snapshot.KindBinary},
		{"image", "logo.png", []byte("hello"), snapshot.KindBinary},
		{"svg is textual", "icon.svg", []byte("<svg/>"), snapshot.KindText},
		{"json is textual", "data.json", []byte("a\x00"), snapshot.KindText},
		{"upper case extension", "LOGO.PNG", nil, snapshot.KindBinary},
		{"unknown extension", "blob.xyz", []byte{0x89, 0x00}, snapshot.KindBinary},
		{"no extension", "README", []byte("readme"), snapshot.KindText},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.path, tt.prefix))
		})
	}
}

func TestSniffLimit(t *testing.T) {
	data := make([]byte, SniffSize+10)
	for i := range data {
		data[i] = 'a'
	}
	data[SniffSize+5] = 0
	assert.Equal(t, snapshot.KindText, Sniff(data))

	data[SniffSize-1] = 0
	assert.Equal(t, snapshot.KindBinary, Sniff(data))
}

func TestFile(t *testing.T) {
	dir := t.TempDir()

	text := filepath.Join(dir, "a.dat")
	require.NoError(t, os.WriteFile(text, []byte("just text\n"), 0o644))
	assert.Equal(t, snapshot.KindText, File(text))

	bin := filepath.Join(dir, "b.dat")
	require.NoError(t, os.WriteFile(bin, []byte{1, 2, 0, 3}, 0o644))
	assert.Equal(t, snapshot.KindBinary, File(bin))

	empty := filepath.Join(dir, "empty")
	require.NoError(t, os.WriteFile(empty, nil, 0o644))
	assert.Equal(t, snapshot.KindText, File(empty))

	assert.Equal(t, snapshot.KindBinary, File(filepath.Join(dir, "missing")))
}

func TestLanguage(t *testing.T) {
	tests := map[string]string{
		"main.go":          "go",
		"src/app.PY":       "python",
		"Dockerfile":       "dockerfile",
		"build/Makefile":   "makefile",
		"config.yml":       "yml",
		"LICENSE":          "text",
		".gitignore":       "text",
		`win\path\lib.rs`:  "rust",
		"styles/site.scss": "scss",
	}
	for in, want := range tests {
		t.Run(in, func(t *testing.T) {
			assert.Equal(t, want, Language(in))
		})
	}
}
