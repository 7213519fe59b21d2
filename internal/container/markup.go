// internal/container/markup.go
package container

import (
	"bufio"
	"fmt"
	"html"
	"io"
	"strings"

	"github.com/alecthomas/chroma/v2"
	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"

	"contexter/internal/classify"
	"contexter/internal/snapshot"
)

const (
	// DocumentTitle is written to <title> and the page heading
	DocumentTitle = "Project Context"

	// HighlightStyle is the chroma style whose CSS is embedded in the document
	HighlightStyle = "github"

	roleFile    = "file"
	roleSkipped = "skipped"
	roleTree    = "tree"

	classFile    = "file-container"
	classSkipped = "skipped-container"
	classTree    = "tree-container"
)

const pageCSS = `body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Helvetica, Arial, sans-serif; margin: 2em; background: #f6f8fa; color: #24292f; }
h1 { border-bottom: 1px solid #d0d7de; padding-bottom: .3em; }
.file-container, .skipped-container, .tree-container { background: #fff; border: 1px solid #d0d7de; border-radius: 6px; margin: 1em 0; }
.file-header { font-family: monospace; font-weight: 600; padding: .5em 1em; border-bottom: 1px solid #d0d7de; background: #f6f8fa; }
.highlight pre, .tree-container pre { margin: 0; padding: 1em; overflow-x: auto; }
.skipped-note { padding: .5em 1em; margin: 0; color: #57606a; font-style: italic; }
`

// MarkupCodec reads and writes the HTML container
type MarkupCodec struct{}

func (MarkupCodec) Format() Format { return FormatHTML }

func (MarkupCodec) Encode(w io.Writer, doc *snapshot.Document) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintf(bw, "<!DOCTYPE html>\n<html lang=\"en\">\n<head>\n<meta charset=\"utf-8\">\n<title>%s</title>\n<style>\n", DocumentTitle)
	bw.WriteString(pageCSS)
	formatter := chromahtml.New(chromahtml.WithClasses(true))
	if err := formatter.WriteCSS(bw, styles.Get(HighlightStyle)); err != nil {
		return fmt.Errorf("writing highlight css: %w", err)
	}
	fmt.Fprintf(bw, "</style>\n</head>\n<body>\n<h1>%s</h1>\n", DocumentTitle)

	for _, tree := range doc.Trees {
		name := html.EscapeString(tree.Name)
		fmt.Fprintf(bw, "<div class=\"%s\" data-role=\"%s\" data-name=\"%s\">", classTree, roleTree, name)
		fmt.Fprintf(bw, "<div class=\"file-header\">Directory structure: %s</div>", name)
		fmt.Fprintf(bw, "<pre><code>%s</code></pre></div>\n", html.EscapeString(tree.Body))
	}

	err := doc.Snapshot.Each(func(path string, c snapshot.Content) error {
		p := html.EscapeString(path)
		if c.IsBinary() {
			fmt.Fprintf(bw, "<div class=\"%s\" data-role=\"%s\" data-path=\"%s\">", classSkipped, roleSkipped, p)
			fmt.Fprintf(bw, "<div class=\"file-header\">%s</div><p class=\"skipped-note\">Binary file skipped</p></div>\n", p)
			return nil
		}
		fmt.Fprintf(bw, "<div class=\"%s\" data-role=\"%s\" data-path=\"%s\">", classFile, roleFile, p)
		fmt.Fprintf(bw, "<div class=\"file-header\">%s</div>", p)
		bw.WriteString("<div class=\"highlight\"><pre class=\"chroma\"><code>")
		if err := writeHighlighted(bw, path, c.String()); err != nil {
			return fmt.Errorf("highlighting %s: %w", path, err)
		}
		bw.WriteString("</code></pre></div></div>\n")
		return nil
	})
	if err != nil {
		return err
	}

	bw.WriteString("</body>\n</html>\n")
	return bw.Flush()
}

func lexerFor(path string) chroma.Lexer {
	lexer := lexers.Get(classify.Language(path))
	if lexer == nil {
		lexer = lexers.Match(path)
	}
	if lexer == nil {
		lexer = lexers.Fallback
	}
	return chroma.Coalesce(lexer)
}

// writeHighlighted emits one span per token. A token is only consumed while it
// is a prefix of the remaining source, so lexer rewrites (added newlines,
// CRLF folding) never leak into the document; the unconsumed tail is written
// unstyled.
func writeHighlighted(w *bufio.Writer, path, text string) error {
	rest := text
	it, err := lexerFor(path).Tokenise(nil, text)
	if err == nil {
		for _, tok := range it.Tokens() {
			if tok.Value == "" {
				continue
			}
			if !strings.HasPrefix(rest, tok.Value) {
				break
			}
			rest = rest[len(tok.Value):]
			value := html.EscapeString(tok.Value)
			if class := tokenClass(tok.Type); class != "" {
				fmt.Fprintf(w, "<span class=\"%s\">%s</span>", class, value)
			} else {
				w.WriteString(value)
			}
		}
	}
	_, err = w.WriteString(html.EscapeString(rest))
	return err
}

func tokenClass(t chroma.TokenType) string {
	if class, ok := chroma.StandardTypes[t]; ok {
		return class
	}
	if class, ok := chroma.StandardTypes[t.SubCategory()]; ok {
		return class
	}
	return chroma.StandardTypes[t.Category()]
}
