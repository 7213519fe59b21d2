package container

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"contexter/internal/errors"
	"contexter/internal/snapshot"
)

func mixedSnapshot(t *testing.T) *snapshot.Snapshot {
	t.Helper()
	s := snapshot.New()
	entries := map[string]snapshot.Content{
		"main.py":          snapshot.Text("print(1)"),
		"note.bin":         snapshot.Binary,
		"README.md":        snapshot.Text("# Title\n\n```go\nfmt.Println(\"hi\")\n```\n\nend"),
		"docs/fake.md":     snapshot.Text("intro\n--- FILE: other.txt ---\nnot a real header"),
		"docs/fences.md":   snapshot.Text("````\nfour\n````\n`````js\nfive\n`````"),
		"empty.txt":        snapshot.Text(""),
		"src/app/index.ts": snapshot.Text("export const a = 1;\n\n\nexport const b = a < 2 && a > 0;"),
		"assets/logo.png":  snapshot.Binary,
	}
	for p, c := range entries {
		require.NoError(t, s.Put(p, c))
	}
	return s
}

func TestTextCodecRoundTrip(t *testing.T) {
	s := mixedSnapshot(t)
	tree := snapshot.TreeSummary{Name: "project", Body: "project/\n├── main.py\n├── docs/"}
	doc := snapshot.NewDocument(s, tree)

	out, err := EncodeString(TextCodec{}, doc)
	require.NoError(t, err)

	got, err := DecodeText(out)
	require.NoError(t, err)
	assert.True(t, s.Equal(got.Snapshot), "decoded snapshot differs:\n%s", out)
	assert.Equal(t, []snapshot.TreeSummary{tree}, got.Trees)

	again, err := EncodeString(TextCodec{}, got)
	require.NoError(t, err)
	assert.Equal(t, out, again)
}

func TestTextCodecNormalizes(t *testing.T) {
	s := snapshot.New()
	require.NoError(t, s.Put("a.txt", snapshot.Text("\n\n  body\n\n")))

	out, err := EncodeString(TextCodec{}, snapshot.NewDocument(s))
	require.NoError(t, err)
	got, err := DecodeText(out)
	require.NoError(t, err)

	assert.True(t, s.Normalize().Equal(got.Snapshot))
	c, _ := got.Snapshot.Get("a.txt")
	assert.Equal(t, "  body", c.String())
}

func TestTextCodecFoldsCRLF(t *testing.T) {
	s := snapshot.New()
	require.NoError(t, s.Put("crlf.txt", snapshot.Text("a\r\nb\r\n\r\n")))
	require.NoError(t, s.Put("cr-end.txt", snapshot.Text("x\r")))
	require.NoError(t, s.Put("inner.txt", snapshot.Text("keep\rthis")))

	out, err := EncodeString(TextCodec{}, snapshot.NewDocument(s))
	require.NoError(t, err)
	got, err := DecodeText(out)
	require.NoError(t, err)

	assert.True(t, s.Normalize().Equal(got.Snapshot))
	c, _ := got.Snapshot.Get("crlf.txt")
	assert.Equal(t, "a\nb", c.String())
	c, _ = got.Snapshot.Get("inner.txt")
	assert.Equal(t, "keep\rthis", c.String())
}

func TestComparable(t *testing.T) {
	s := snapshot.New()
	require.NoError(t, s.Put("a.txt", snapshot.Text("one\ntwo\n")))
	doc := snapshot.NewDocument(s)

	md, err := EncodeString(TextCodec{}, doc)
	require.NoError(t, err)
	html, err := EncodeString(MarkupCodec{}, doc)
	require.NoError(t, err)
	fromText, err := DecodeText(md)
	require.NoError(t, err)
	fromMarkup, err := DecodeString(MarkupCodec{}, html)
	require.NoError(t, err)

	assert.False(t, fromText.Snapshot.Equal(fromMarkup.Snapshot))

	a, b := Comparable(fromText.Snapshot, fromMarkup.Snapshot, FormatMarkdown, FormatHTML)
	assert.True(t, a.Equal(b))

	a, b = Comparable(fromMarkup.Snapshot, s, FormatHTML, FormatHTML)
	assert.Same(t, fromMarkup.Snapshot, a)
	assert.Same(t, s, b)
}

func TestTextCodecScenarioA(t *testing.T) {
	s := snapshot.New()
	require.NoError(t, s.Put("main.py", snapshot.Text("print(1)")))
	require.NoError(t, s.Put("note.bin", snapshot.Binary))

	out, err := EncodeString(TextCodec{}, snapshot.NewDocument(s))
	require.NoError(t, err)

	want := "--- FILE: main.py ---\n\n````python\nprint(1)\n````\n\n" +
		"--- SKIPPED (BINARY): note.bin ---\n\n"
	assert.Equal(t, want, out)

	got, err := DecodeText(out)
	require.NoError(t, err)
	assert.True(t, s.Equal(got.Snapshot))
}

func TestFenceFor(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		ticks int
	}{
		{"plain", "a\nb", 4},
		{"triple fences", "```go\nx\n```", 4},
		{"four ticks", "````\nx\n````", 5},
		{"indented run", "   `````` x", 7},
		{"header inside", "--- FILE: a.txt ---", 5},
		{"header and long run", "--- FILE: a.txt ---\n``````", 7},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := FenceFor(tt.body, "go")
			assert.Equal(t, tt.ticks, f.Ticks)
			assert.Equal(t, strings.Repeat("`", tt.ticks)+"go", f.Open())
		})
	}
}

func TestDecodeText(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  map[string]string
	}{
		{
			name:  "eof inside fence commits",
			input: "--- FILE: a.txt ---\n````\nline1\nline2",
			want:  map[string]string{"a.txt": "line1\nline2"},
		},
		{
			name:  "header closes a minimum fence",
			input: "--- FILE: a.txt ---\n````\nx\n--- FILE: b.txt ---\n````\ny\n````\n",
			want:  map[string]string{"a.txt": "x", "b.txt": "y"},
		},
		{
			name:  "strict fence keeps headers as content",
			input: "--- FILE: a.md ---\n`````md\n--- FILE: b.txt ---\n````\n`````\n",
			want:  map[string]string{"a.md": "--- FILE: b.txt ---\n````"},
		},
		{
			name:  "header without body is empty",
			input: "--- FILE: a.txt ---\n\n--- FILE: b.txt ---\n",
			want:  map[string]string{"a.txt": "", "b.txt": ""},
		},
		{
			name:  "crlf input",
			input: "--- FILE: a.txt ---\r\n\r\n````text\r\nx\r\ny\r\n````\r\n",
			want:  map[string]string{"a.txt": "x\ny"},
		},
		{
			name:  "preamble before first header is ignored",
			input: "Some notes\n\n--- FILE: a.txt ---\n````\nx\n````\n",
			want:  map[string]string{"a.txt": "x"},
		},
		{
			name:  "leading slash is normalized",
			input: "--- FILE: /src/a.go ---\n````go\npackage a\n````\n",
			want:  map[string]string{"src/a.go": "package a"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := DecodeText(tt.input)
			require.NoError(t, err)
			require.Equal(t, len(tt.want), doc.Snapshot.Len())
			for p, text := range tt.want {
				c, ok := doc.Snapshot.Get(p)
				require.True(t, ok, p)
				assert.Equal(t, text, c.String())
			}
		})
	}
}

func TestDecodeTextErrors(t *testing.T) {
	t.Run("raw text after header", func(t *testing.T) {
		_, err := DecodeText("--- FILE: a.txt ---\nraw text\n")
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.ErrorTypeParse))
		assert.Contains(t, err.Error(), "line 2")
	})

	t.Run("duplicate path", func(t *testing.T) {
		_, err := DecodeText("--- FILE: a.txt ---\n````\nx\n````\n--- SKIPPED (BINARY): a.txt ---\n")
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.ErrorTypeParse))
	})

	t.Run("path escaping root", func(t *testing.T) {
		_, err := DecodeText("--- FILE: ../etc/passwd ---\n````\nx\n````\n")
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.ErrorTypeParse))
	})
}

func TestMarkupCodecRoundTrip(t *testing.T) {
	s := mixedSnapshot(t)
	require.NoError(t, s.Put("web/page.html", snapshot.Text("<div class=\"x\">&amp; 'q'</div>\n</code></pre>\n")))
	require.NoError(t, s.Put("notes/unicode.txt", snapshot.Text("\n\nhéllo\twörld ✓\n\n")))
	tree := snapshot.TreeSummary{Name: "project", Body: "project/\n├── <main>.py"}
	doc := snapshot.NewDocument(s, tree)

	out, err := EncodeString(MarkupCodec{}, doc)
	require.NoError(t, err)
	assert.Contains(t, out, "<title>Project Context</title>")
	assert.Contains(t, out, `data-path="main.py"`)
	assert.Contains(t, out, ".chroma")

	got, err := DecodeString(MarkupCodec{}, out)
	require.NoError(t, err)
	for _, p := range s.Paths() {
		want, _ := s.Get(p)
		have, ok := got.Snapshot.Get(p)
		require.True(t, ok, p)
		assert.Equal(t, want.Kind(), have.Kind(), p)
		assert.Equal(t, want.String(), have.String(), p)
	}
	assert.True(t, s.Equal(got.Snapshot))
	assert.Equal(t, []snapshot.TreeSummary{tree}, got.Trees)
}

func TestMarkupDecodeByRole(t *testing.T) {
	page := `<html><body>
<section>
  <div class="skipped-container" data-path="img/a.png"><p>binary</p></div>
  <article><div class="file-container extra" data-path="b.txt"><div class="file-header">b.txt</div>
  <pre><code><span class="k">x</span> &lt; y</code></pre></div></article>
</section>
<div data-role="file" data-path="a.txt"><pre>plain</pre></div>
</body></html>`

	doc, err := DecodeString(MarkupCodec{}, page)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.txt", "b.txt", "img/a.png"}, doc.Snapshot.Paths())

	b, _ := doc.Snapshot.Get("b.txt")
	assert.Equal(t, "x < y", b.String())
	a, _ := doc.Snapshot.Get("a.txt")
	assert.Equal(t, "plain", a.String())
	img, _ := doc.Snapshot.Get("img/a.png")
	assert.True(t, img.IsBinary())
}

func TestMarkupDecodeErrors(t *testing.T) {
	_, err := DecodeString(MarkupCodec{}, `<div data-role="file"><pre><code>x</code></pre></div>`)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrorTypeParse))

	_, err = DecodeString(MarkupCodec{}, `<div data-role="file" data-path="a"></div><div data-role="skipped" data-path="a"></div>`)
	require.Error(t, err)
}

func TestCodecSelection(t *testing.T) {
	assert.Equal(t, FormatHTML, ForPath("out/context.HTML").Format())
	assert.Equal(t, FormatMarkdown, ForPath("context.md").Format())
	assert.Equal(t, FormatMarkdown, ForPath("context.txt").Format())

	f, err := ParseFormat("markdown")
	require.NoError(t, err)
	assert.Equal(t, FormatMarkdown, f)
	f, err = ParseFormat(".htm")
	require.NoError(t, err)
	assert.Equal(t, FormatHTML, f)
	_, err = ParseFormat("pdf")
	assert.Error(t, err)
}
