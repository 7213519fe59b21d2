// internal/container/markup_decode.go
package container

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"contexter/internal/errors"
	"contexter/internal/snapshot"
)

// Decode finds blocks by role, never by position. Text content of the code
// region is read after entity decoding by the HTML parser.
func (MarkupCodec) Decode(r io.Reader) (*snapshot.Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, errors.ParseError(fmt.Sprintf("parsing markup container: %v", err), 0)
	}

	doc := snapshot.NewDocument(nil)
	var walkErr error
	walkElements(root, func(n *html.Node) bool {
		if walkErr != nil || n.DataAtom != atom.Div {
			return true
		}
		switch blockRole(n) {
		case roleTree:
			doc.Trees = append(doc.Trees, snapshot.TreeSummary{
				Name: Attr(n, "data-name"),
				Body: codeText(n),
			})
			return false
		case roleFile:
			walkErr = putBlock(doc.Snapshot, n, snapshot.Text(codeText(n)))
			return false
		case roleSkipped:
			walkErr = putBlock(doc.Snapshot, n, snapshot.Binary)
			return false
		}
		return true
	})
	if walkErr != nil {
		return nil, walkErr
	}
	return doc, nil
}

func putBlock(s *snapshot.Snapshot, n *html.Node, c snapshot.Content) error {
	path := strings.TrimSpace(Attr(n, "data-path"))
	if path == "" {
		return errors.ParseError("markup block without data-path", 0)
	}
	if s.Has(path) {
		return errors.ParseError(fmt.Sprintf("duplicate path %q", path), 0)
	}
	if err := s.Put(path, c); err != nil {
		return errors.ParseError(err.Error(), 0)
	}
	return nil
}

// blockRole reads data-role, falling back to the container class
func blockRole(n *html.Node) string {
	if role := Attr(n, "data-role"); role != "" {
		return role
	}
	switch {
	case HasClass(n, classFile):
		return roleFile
	case HasClass(n, classSkipped):
		return roleSkipped
	case HasClass(n, classTree):
		return roleTree
	}
	return ""
}

// codeText returns the text of the first <code> below n, or of the first
// <pre> when there is no code element.
func codeText(n *html.Node) string {
	var region *html.Node
	walkElements(n, func(c *html.Node) bool {
		if region != nil {
			return false
		}
		if c.DataAtom == atom.Code {
			region = c
			return false
		}
		return true
	})
	if region == nil {
		walkElements(n, func(c *html.Node) bool {
			if region == nil && c.DataAtom == atom.Pre {
				region = c
			}
			return region == nil
		})
	}
	if region == nil {
		return ""
	}
	return TextContent(region)
}

// walkElements visits element nodes depth first. Returning false skips the
// node's children.
func walkElements(n *html.Node, fn func(*html.Node) bool) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && !fn(c) {
			continue
		}
		walkElements(c, fn)
	}
}

// TextContent concatenates every text node below n
func TextContent(n *html.Node) string {
	var sb strings.Builder
	var collect func(*html.Node)
	collect = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			collect(c)
		}
	}
	collect(n)
	return sb.String()
}

func Attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func HasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(Attr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

// FindElements returns the elements below root accepted by match, in document order
func FindElements(root *html.Node, match func(*html.Node) bool) []*html.Node {
	var found []*html.Node
	walkElements(root, func(n *html.Node) bool {
		if match(n) {
			found = append(found, n)
			return false
		}
		return true
	})
	return found
}
