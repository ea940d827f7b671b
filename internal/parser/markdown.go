package parser

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/dgallion1/capdigest/internal/doctree"
)

// MarkdownParser handles Markdown files using goldmark. Headings nest by level.
type MarkdownParser struct{}

func (p *MarkdownParser) Parse(r io.Reader, filename string) (*doctree.DocTree, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read markdown: %w", err)
	}

	doc := goldmark.New().Parser().Parse(text.NewReader(src))
	outline := doctree.NewOutline(titleOf(filename))

	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		if h, ok := n.(*ast.Heading); ok {
			outline.Heading(h.Level, blockText(h, src))
			continue
		}
		outline.Text(blockText(n, src))
	}

	return outline.Tree(), nil
}

// blockText returns the inline text of n, or its raw lines for leaf blocks
// such as code.
func blockText(n ast.Node, src []byte) string {
	var buf bytes.Buffer
	if n.Type() == ast.TypeBlock && !n.HasChildren() {
		lines := n.Lines()
		for i := 0; i < lines.Len(); i++ {
			line := lines.At(i)
			buf.Write(line.Value(src))
		}
	}
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		switch t := c.(type) {
		case *ast.Text:
			buf.Write(t.Value(src))
			if t.SoftLineBreak() || t.HardLineBreak() {
				buf.WriteByte('\n')
			}
		case *ast.ListItem:
			if buf.Len() > 0 {
				buf.WriteByte('\n')
			}
			buf.WriteString("- ")
			buf.WriteString(blockText(t, src))
		default:
			buf.WriteString(blockText(c, src))
		}
	}
	return strings.TrimSpace(buf.String())
}
