// Package patch reads and writes patch files and applies patch sets to
// snapshots.
package patch

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"regexp"
	"strings"

	"contexter/internal/container"
	"contexter/internal/diff"
	"contexter/internal/errors"
)

// Codec converts between a PatchSet and one patch file encoding
type Codec interface {
	Format() container.Format
	Encode(w io.Writer, ps *diff.PatchSet) error
	Decode(r io.Reader) (*diff.PatchSet, error)
}

func ForFormat(f container.Format) Codec {
	if f == container.FormatHTML {
		return MarkupCodec{}
	}
	return TextCodec{}
}

// ForPath picks the encoding from the patch file's extension
func ForPath(path string) Codec {
	return ForFormat(container.FormatForPath(path))
}

func EncodeString(c Codec, ps *diff.PatchSet) (string, error) {
	var buf bytes.Buffer
	if err := c.Encode(&buf, ps); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func DecodeString(c Codec, s string) (*diff.PatchSet, error) {
	return c.Decode(strings.NewReader(s))
}

const (
	diffFence    = "```"
	diffFenceTag = "```diff"
)

var diffHeader = regexp.MustCompile(`^--- DIFF FOR: (.*) ---$`)

func DiffHeader(path string) string { return "--- DIFF FOR: " + path + " ---" }

// TextCodec is the Markdown patch form: one header and one fenced unified
// diff per path. A deletion is an empty block.
type TextCodec struct{}

func (TextCodec) Format() container.Format { return container.FormatMarkdown }

func (TextCodec) Encode(w io.Writer, ps *diff.PatchSet) error {
	bw := bufio.NewWriter(w)
	err := ps.Each(func(path string, c diff.FileChange) error {
		fmt.Fprintf(bw, "%s\n\n%s\n", DiffHeader(path), diffFenceTag)
		bw.WriteString(diff.Unified(path, c.Hunks))
		fmt.Fprintf(bw, "%s\n\n", diffFence)
		return nil
	})
	if err != nil {
		return err
	}
	return bw.Flush()
}

// Decode expects a fence after every header. Diff lines never start with a
// backtick, so the block ends at the first line that is exactly ```.
func (TextCodec) Decode(r io.Reader) (*diff.PatchSet, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading patch: %w", err)
	}

	ps := diff.NewPatchSet()
	lines := container.SplitLines(string(data))

	var (
		path     string
		header   int
		inBlock  bool
		awaiting bool
		body     []string
		found    bool
	)

	for i, line := range lines {
		lineNo := i + 1

		if inBlock {
			if line == diffFence {
				if err := putDiff(ps, path, body, header); err != nil {
					return nil, err
				}
				inBlock = false
				body = body[:0]
				continue
			}
			body = append(body, line)
			continue
		}

		if m := diffHeader.FindStringSubmatch(strings.TrimSpace(line)); m != nil {
			if awaiting {
				return nil, errors.ParseError(fmt.Sprintf("no diff block after the header for %s", path), lineNo)
			}
			path = strings.TrimSpace(m[1])
			header = lineNo
			awaiting = true
			found = true
			continue
		}

		trimmed := strings.TrimSpace(line)
		switch {
		case trimmed == "":
		case awaiting && strings.HasPrefix(trimmed, diffFence):
			awaiting = false
			inBlock = true
		case awaiting:
			return nil, errors.ParseError(fmt.Sprintf("expected a ``` fence after the header for %s", path), lineNo)
		}
	}

	if inBlock {
		return nil, errors.ParseError(fmt.Sprintf("diff block for %s is not closed", path), len(lines))
	}
	if awaiting {
		return nil, errors.ParseError(fmt.Sprintf("no diff block after the header for %s", path), len(lines))
	}
	if !found && strings.TrimSpace(string(data)) != "" {
		return nil, errors.ParseError("no DIFF FOR headers found", 0)
	}
	return ps, nil
}

// putDiff parses one block's unified text; an empty block is a deletion
func putDiff(ps *diff.PatchSet, path string, body []string, header int) error {
	if ps.Has(path) {
		return errors.ParseError(fmt.Sprintf("duplicate diff for %q", path), header)
	}
	_, hunks, err := diff.ParseUnified(strings.Join(body, "\n"))
	if err != nil {
		return fmt.Errorf("diff for %s: %w", path, err)
	}
	if err := ps.Put(path, diff.FileChange{Hunks: hunks}); err != nil {
		return errors.ParseError(err.Error(), header)
	}
	return nil
}
