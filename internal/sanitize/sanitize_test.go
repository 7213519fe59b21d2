package sanitize

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"contexter/internal/container"
	"contexter/internal/snapshot"
)

func TestScenarioC(t *testing.T) {
	in := "--- FILE: x.txt ---\nhello\nworld\n--- FILE: y.txt ---\n````\ny\n````\n"

	out, report := Sanitize(in)

	want := "--- FILE: x.txt ---\n````txt\nhello\nworld\n````\n\n--- FILE: y.txt ---\n````\ny\n````\n"
	assert.Equal(t, want, out)
	assert.Equal(t, 1, report.OpenedFences)
	assert.Equal(t, 1, report.ClosedFences)
	assert.False(t, report.ClosedAtEOF)

	doc, err := container.DecodeText(out)
	require.NoError(t, err)
	x, _ := doc.Snapshot.Get("x.txt")
	assert.Equal(t, "hello\nworld", x.String())
}

func TestSanitizeRepairs(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "unterminated fence at eof",
			input: "--- FILE: a.py ---\n\n````python\nprint(1)\n\n",
			want:  "--- FILE: a.py ---\n\n````python\nprint(1)\n````\n\n",
		},
		{
			name:  "header with no body at eof",
			input: "--- FILE: a.go ---",
			want:  "--- FILE: a.go ---\n````go\n````",
		},
		{
			name:  "blank lines before missing fence are kept",
			input: "--- FILE: a.md ---\n\n# title\n",
			want:  "--- FILE: a.md ---\n\n````markdown\n# title\n````\n",
		},
		{
			name:  "close goes after the last non-blank line",
			input: "--- FILE: a.txt ---\n````\nx\n\n\n--- SKIPPED (BINARY): b.png ---\n",
			want:  "--- FILE: a.txt ---\n````\nx\n````\n\n\n--- SKIPPED (BINARY): b.png ---\n",
		},
		{
			name:  "header right after header",
			input: "--- FILE: a.txt ---\n--- FILE: b.txt ---\n````\nb\n````\n",
			want:  "--- FILE: a.txt ---\n````txt\n````\n\n--- FILE: b.txt ---\n````\nb\n````\n",
		},
		{
			name:  "strict fence keeps embedded headers",
			input: "--- FILE: a.md ---\n`````md\n--- FILE: fake ---\n`````\n",
			want:  "--- FILE: a.md ---\n`````md\n--- FILE: fake ---\n`````\n",
		},
		{
			name:  "crlf line endings",
			input: "--- FILE: a.txt ---\r\n````\r\nx\r\n````\r\n",
			want:  "--- FILE: a.txt ---\n````\nx\n````\n",
		},
		{
			name:  "tree block without fence",
			input: "--- DIRECTORY STRUCTURE: proj ---\nproj/\n├── a.txt\n",
			want:  "--- DIRECTORY STRUCTURE: proj ---\n````\nproj/\n├── a.txt\n````\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, String(tt.input))
		})
	}
}

func TestSanitizeValidInputUnchanged(t *testing.T) {
	s := snapshot.New()
	require.NoError(t, s.Put("main.py", snapshot.Text("print(1)")))
	require.NoError(t, s.Put("docs/guide.md", snapshot.Text("```sh\nmake\n```\n--- FILE: quoted ---")))
	require.NoError(t, s.Put("logo.png", snapshot.Binary))
	require.NoError(t, s.Put("empty", snapshot.Text("")))

	encoded, err := container.EncodeString(container.TextCodec{}, snapshot.NewDocument(s))
	require.NoError(t, err)

	out, report := Sanitize(encoded)
	assert.Equal(t, encoded, out)
	assert.False(t, report.Changed())
	assert.Equal(t, 4, report.HeadersObserved)
}

func TestSanitizeIdempotent(t *testing.T) {
	inputs := []string{
		"",
		"\n",
		"no headers at all\n",
		"--- FILE: x.txt ---\nhello\n--- FILE: y.txt ---\nworld",
		"--- FILE: a ---\n\n\n",
		"--- FILE: a ---\n````\n````\n````\nstray\n",
		"--- FILE: a.txt ---\r\r\nx\r\n--- FILE: b ---\n```\n",
		"--- FILE: a.md ---\n`````\n--- FILE: b ---\n",
		"--- SKIPPED (BINARY): a.bin ---\n--- FILE: c.rs ---\nfn main() {}\n\n\n",
		"--- DIRECTORY STRUCTURE: p ---\n--- FILE: p/a ---\n````text\n  \n",
		"bad \xff\xfe utf8\n--- FILE: z ---\n\xc3\n",
	}

	for i, in := range inputs {
		once, _ := Sanitize(in)
		twice, report := Sanitize(once)
		assert.Equal(t, once, twice, "input %d: %q", i, in)
		assert.Zero(t, report.Repairs(), "input %d", i)
		if strings.Contains(once, "--- FILE:") {
			_, err := container.DecodeText(once)
			assert.NoError(t, err, "input %d", i)
		}
	}
}

func TestSanitizeInvalidUTF8(t *testing.T) {
	out, report := Sanitize("--- FILE: a.txt ---\n````\n\xff\n````\n")
	assert.True(t, report.InvalidUTF8)
	assert.Contains(t, out, "�")
}
