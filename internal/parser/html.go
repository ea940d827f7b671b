package parser

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/dgallion1/capdigest/internal/doctree"
)

// HTMLParser handles HTML files. <h1>..<h6> open sections; paragraph-like
// elements become text.
type HTMLParser struct{}

var headingLevels = map[atom.Atom]int{
	atom.H1: 1, atom.H2: 2, atom.H3: 3, atom.H4: 4, atom.H5: 5, atom.H6: 6,
}

func (p *HTMLParser) Parse(r io.Reader, filename string) (*doctree.DocTree, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	title := titleOf(filename)
	if t := textContent(find(doc, atom.Title)); t != "" {
		title = t
	}
	outline := doctree.NewOutline(title)

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if level, ok := headingLevels[n.DataAtom]; ok {
				outline.Heading(level, textContent(n))
				return
			}
			switch n.DataAtom {
			case atom.Script, atom.Style, atom.Nav, atom.Footer, atom.Header, atom.Noscript:
				return
			case atom.P, atom.Li, atom.Td, atom.Blockquote, atom.Pre, atom.Figcaption:
				outline.Text(textContent(n))
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	if body := find(doc, atom.Body); body != nil {
		walk(body)
	} else {
		walk(doc)
	}

	return outline.Tree(), nil
}

func textContent(n *html.Node) string {
	if n == nil {
		return ""
	}
	var buf strings.Builder
	var collect func(*html.Node)
	collect = func(n *html.Node) {
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			collect(c)
		}
	}
	collect(n)
	return strings.Join(strings.Fields(buf.String()), " ")
}

// find returns the first element of the given kind in document order.
func find(n *html.Node, a atom.Atom) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == a {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := find(c, a); found != nil {
			return found
		}
	}
	return nil
}
