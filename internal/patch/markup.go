package patch

import (
	"bufio"
	"fmt"
	"html"
	"io"
	"strings"

	nethtml "golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"contexter/internal/container"
	"contexter/internal/diff"
	"contexter/internal/errors"
)

const patchCSS = `body { font-family: sans-serif; line-height: 1.6; padding: 20px; max-width: 1000px; margin: 0 auto; }
.diff-container { border: 1px solid #ddd; border-radius: 8px; margin-bottom: 2rem; }
h2 { background-color: #f7f7f7; padding: .75rem 1rem; margin: 0; border-bottom: 1px solid #ddd; font-size: 1.1rem; }
.path { font-family: monospace; color: #a72d2d; }
pre { margin: 0; padding: 1rem; overflow-x: auto; font-family: monospace; font-size: .9em; }
.line.add { background-color: #e6ffed; }
.line.rem { background-color: #ffeef0; }
.line.context { color: #666; }
`

// MarkupCodec is the HTML patch form. Line classes are presentation only:
// decoding reads the text of the code region back as a unified diff.
type MarkupCodec struct{}

func (MarkupCodec) Format() container.Format { return container.FormatHTML }

func lineClass(line string) string {
	switch {
	case strings.HasPrefix(line, "+"):
		return "add"
	case strings.HasPrefix(line, "-"):
		return "rem"
	default:
		return "context"
	}
}

func (MarkupCodec) Encode(w io.Writer, ps *diff.PatchSet) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "<!DOCTYPE html>\n<html lang=\"en\">\n<head>\n<meta charset=\"utf-8\">\n<title>Update Patch</title>\n<style>\n%s</style>\n</head>\n<body>\n<h1>Project Update Patch</h1>\n", patchCSS)

	err := ps.Each(func(path string, c diff.FileChange) error {
		p := html.EscapeString(path)
		fmt.Fprintf(bw, "<div class=\"diff-container\" data-path=\"%s\">", p)
		fmt.Fprintf(bw, "<h2>DIFF FOR: <span class=\"path\">%s</span></h2><pre><code>", p)
		for _, line := range container.SplitLines(diff.Unified(path, c.Hunks)) {
			fmt.Fprintf(bw, "<span class=\"line %s\">%s</span>\n", lineClass(line), html.EscapeString(line))
		}
		bw.WriteString("</code></pre></div>\n")
		return nil
	})
	if err != nil {
		return err
	}

	bw.WriteString("</body>\n</html>\n")
	return bw.Flush()
}

func (MarkupCodec) Decode(r io.Reader) (*diff.PatchSet, error) {
	root, err := nethtml.Parse(r)
	if err != nil {
		return nil, errors.ParseError(fmt.Sprintf("parsing markup patch: %v", err), 0)
	}

	ps := diff.NewPatchSet()
	blocks := container.FindElements(root, func(n *nethtml.Node) bool {
		return n.DataAtom == atom.Div && container.HasClass(n, "diff-container")
	})
	for _, block := range blocks {
		path := strings.TrimSpace(container.Attr(block, "data-path"))
		if path == "" {
			return nil, errors.ParseError("diff block without data-path", 0)
		}
		pre := container.FindElements(block, func(n *nethtml.Node) bool {
			return n.DataAtom == atom.Pre
		})
		text := ""
		if len(pre) > 0 {
			text = container.TextContent(pre[0])
		}
		if err := putDiff(ps, path, container.SplitLines(text), 0); err != nil {
			return nil, err
		}
	}
	return ps, nil
}
