package parser

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fumiama/go-docx"

	"github.com/dgallion1/capdigest/internal/doctree"
)

// DOCXParser handles .docx files. Paragraphs styled "Heading N" open sections.
type DOCXParser struct{}

func (p *DOCXParser) Parse(r io.Reader, filename string) (*doctree.DocTree, error) {
	// go-docx needs a ReaderAt and a size.
	tmp, size, cleanup, err := spool(r, "capdigest-docx-*.docx")
	if err != nil {
		return nil, err
	}
	defer cleanup()

	doc, err := docx.Parse(tmp, size)
	if err != nil {
		return nil, fmt.Errorf("parse docx: %w", err)
	}

	outline := doctree.NewOutline(titleOf(filename))
	for _, item := range doc.Document.Body.Items {
		para, ok := item.(*docx.Paragraph)
		if !ok {
			continue
		}
		text := docxParagraphText(para)
		if text == "" {
			continue
		}
		if level := docxHeadingLevel(para); level > 0 {
			outline.Heading(level, text)
		} else {
			outline.Text(text)
		}
	}

	return outline.Tree(), nil
}

// docxHeadingLevel reads N from a "HeadingN" or "heading N" paragraph style.
func docxHeadingLevel(para *docx.Paragraph) int {
	if para.Properties == nil || para.Properties.Style == nil {
		return 0
	}
	style := strings.ToLower(strings.ReplaceAll(para.Properties.Style.Val, " ", ""))
	rest, ok := strings.CutPrefix(style, "heading")
	if !ok {
		return 0
	}
	level, err := strconv.Atoi(rest)
	if err != nil || level < 1 || level > 6 {
		return 0
	}
	return level
}

func docxParagraphText(para *docx.Paragraph) string {
	var buf strings.Builder
	for _, child := range para.Children {
		run, ok := child.(*docx.Run)
		if !ok {
			continue
		}
		for _, rc := range run.Children {
			if t, ok := rc.(*docx.Text); ok {
				buf.WriteString(t.Text)
			}
		}
	}
	return strings.TrimSpace(buf.String())
}
