// internal/container/text.go
package container

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"contexter/internal/classify"
	"contexter/internal/errors"
	"contexter/internal/snapshot"
)

// TextCodec reads and writes the fenced-block (Markdown) container
type TextCodec struct{}

func (TextCodec) Format() Format { return FormatMarkdown }

// Encode writes tree blocks first, then one block per path in sorted order.
// Text bodies are trimmed of leading and trailing blank lines.
func (TextCodec) Encode(w io.Writer, doc *snapshot.Document) error {
	bw := bufio.NewWriter(w)

	for _, tree := range doc.Trees {
		body := snapshot.TrimBlankLines(tree.Body)
		writeBlock(bw, TreeHeader(tree.Name), FenceFor(body, ""), body)
	}

	err := doc.Snapshot.Each(func(path string, c snapshot.Content) error {
		if c.IsBinary() {
			fmt.Fprintf(bw, "%s\n\n", SkippedHeader(path))
			return nil
		}
		body := snapshot.TrimBlankLines(c.String())
		writeBlock(bw, FileHeader(path), FenceFor(body, classify.Language(path)), body)
		return nil
	})
	if err != nil {
		return err
	}

	return bw.Flush()
}

func writeBlock(w *bufio.Writer, header string, fence Fence, body string) {
	fmt.Fprintf(w, "%s\n\n%s\n", header, fence.Open())
	if body != "" {
		fmt.Fprintf(w, "%s\n", body)
	}
	fmt.Fprintf(w, "%s\n\n", fence.Delimiter())
}

type decodeState int

const (
	stateScanning decodeState = iota
	stateInFile
	stateInFence
)

func (s decodeState) String() string {
	switch s {
	case stateInFile:
		return "InFile"
	case stateInFence:
		return "InFence"
	default:
		return "Scanning"
	}
}

// textDecoder is the Scanning -> InFile -> InFence state machine.
//
//	Scanning --header(FILE|TREE)--> InFile
//	Scanning --header(SKIPPED)----> Scanning (binary recorded)
//	InFile   --fence--------------> InFence
//	InFile   --header|EOF---------> commit "" then handle header
//	InFence  --closing fence------> Scanning (commit)
//	InFence  --header (min fence)-> commit then handle header
//	InFence  --EOF----------------> commit
type textDecoder struct {
	state  decodeState
	doc    *snapshot.Document
	kind   HeaderKind
	name   string
	header int
	fence  Fence
	body   []string
	line   int
}

func newTextDecoder() *textDecoder {
	return &textDecoder{doc: snapshot.NewDocument(nil)}
}

func (TextCodec) Decode(r io.Reader) (*snapshot.Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading container: %w", err)
	}
	return DecodeText(string(data))
}

// DecodeText decodes a text container held in memory
func DecodeText(s string) (*snapshot.Document, error) {
	d := newTextDecoder()
	for _, line := range splitLines(s) {
		d.line++
		if err := d.feed(line); err != nil {
			return nil, err
		}
	}
	if err := d.finish(); err != nil {
		return nil, err
	}
	return d.doc, nil
}

func (d *textDecoder) feed(line string) error {
	switch d.state {
	case stateInFence:
		if d.fence.Closes(line) {
			return d.commit()
		}
		if !d.fence.Strict() {
			if kind, name := ParseHeader(line); kind != HeaderNone {
				if err := d.commit(); err != nil {
					return err
				}
				return d.startEntry(kind, name)
			}
		}
		d.body = append(d.body, line)
		return nil

	case stateInFile:
		if kind, name := ParseHeader(line); kind != HeaderNone {
			if err := d.commit(); err != nil {
				return err
			}
			return d.startEntry(kind, name)
		}
		if strings.TrimSpace(line) == "" {
			return nil
		}
		if fence, ok := ParseFence(line); ok {
			d.fence = fence
			d.state = stateInFence
			return nil
		}
		return errors.ParseError(fmt.Sprintf("expected an opening fence after the header on line %d, got %q (run sanitize to repair)", d.header, line), d.line)

	default:
		if kind, name := ParseHeader(line); kind != HeaderNone {
			return d.startEntry(kind, name)
		}
		return nil
	}
}

func (d *textDecoder) startEntry(kind HeaderKind, name string) error {
	if name == "" {
		return errors.ParseError("header without a path", d.line)
	}
	if kind == HeaderSkipped {
		if err := d.put(name, snapshot.Binary); err != nil {
			return err
		}
		d.state = stateScanning
		return nil
	}
	d.kind = kind
	d.name = name
	d.header = d.line
	d.body = d.body[:0]
	d.fence = Fence{}
	d.state = stateInFile
	return nil
}

// commit stores the entry being read and returns to Scanning
func (d *textDecoder) commit() error {
	text := strings.Join(d.body, "\n")
	d.body = d.body[:0]
	d.state = stateScanning

	if d.kind == HeaderTree {
		d.doc.Trees = append(d.doc.Trees, snapshot.TreeSummary{Name: d.name, Body: text})
		return nil
	}
	return d.put(d.name, snapshot.Text(text))
}

func (d *textDecoder) put(name string, c snapshot.Content) error {
	if d.doc.Snapshot.Has(name) {
		return errors.ParseError(fmt.Sprintf("duplicate path %q", name), d.line)
	}
	if err := d.doc.Snapshot.Put(name, c); err != nil {
		return errors.ParseError(err.Error(), d.line)
	}
	return nil
}

// finish commits an entry left open at end of input, fenced or not
func (d *textDecoder) finish() error {
	if d.state == stateScanning {
		return nil
	}
	return d.commit()
}
