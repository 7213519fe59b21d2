// Package container encodes a snapshot.Document into a single portable file
// and decodes it back. Two encodings exist: a fenced-block Markdown text
// form and a highlighted HTML markup form.
package container

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"contexter/internal/snapshot"
)

type Format string

const (
	FormatMarkdown Format = "md"
	FormatHTML     Format = "html"
)

// Codec converts between a Document and one container encoding
type Codec interface {
	Format() Format
	Encode(w io.Writer, doc *snapshot.Document) error
	Decode(r io.Reader) (*snapshot.Document, error)
}

// ParseFormat accepts the names used on the command line and in API requests
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(s, ".")) {
	case "md", "markdown", "text", "txt":
		return FormatMarkdown, nil
	case "html", "htm", "markup":
		return FormatHTML, nil
	default:
		return "", fmt.Errorf("unknown container format %q", s)
	}
}

// FormatForPath picks the encoding from a file extension. Anything that is not
// HTML is read as the text form.
func FormatForPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".html", ".htm":
		return FormatHTML
	default:
		return FormatMarkdown
	}
}

func ForFormat(f Format) Codec {
	if f == FormatHTML {
		return MarkupCodec{}
	}
	return TextCodec{}
}

func ForPath(path string) Codec {
	return ForFormat(FormatForPath(path))
}

// EncodeString is Encode into memory
func EncodeString(c Codec, doc *snapshot.Document) (string, error) {
	var buf bytes.Buffer
	if err := c.Encode(&buf, doc); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func DecodeString(c Codec, s string) (*snapshot.Document, error) {
	return c.Decode(strings.NewReader(s))
}

// TrimsText reports whether the encoding stores text with blank edge lines
// removed. Only the markup form keeps text exactly.
func (f Format) TrimsText() bool {
	return f != FormatHTML
}

// Comparable returns a and b ready to be diffed after being read from
// containers of the given formats. When any of them trims text both sides
// are normalized, so the same tree read from two forms has no differences.
func Comparable(a, b *snapshot.Snapshot, formats ...Format) (*snapshot.Snapshot, *snapshot.Snapshot) {
	for _, f := range formats {
		if f.TrimsText() {
			return a.Normalize(), b.Normalize()
		}
	}
	return a, b
}
