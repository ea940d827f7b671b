package render

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/gomutex/godocx"
	"github.com/gomutex/godocx/docx"
)

const (
	fontName  = "Times New Roman"
	bodySize  = 13
	titleSize = 16
	textColor = "000000"
)

var (
	reHeading  = regexp.MustCompile(`^(#{1,6})\s+(.+)$`)
	reBullet   = regexp.MustCompile(`^[-*•]\s+(.+)$`)
	reNumbered = regexp.MustCompile(`^\d+[.)]\s+.+$`)
	reBold     = regexp.MustCompile(`\*\*(.+?)\*\*`)
	reEmphasis = regexp.MustCompile(`^_(.+)_$`)
)

// DOCX writes markdown to path as a Word document. Headings become bold
// paragraphs sized by level, list items get a bullet and **bold** spans
// become bold runs. Other markup is dropped.
func DOCX(title, markdown, path string) error {
	doc, err := godocx.NewDocument()
	if err != nil {
		return fmt.Errorf("new document: %w", err)
	}

	if title = strings.TrimSpace(title); title != "" {
		run(doc.AddParagraph(""), title, titleSize).Bold(true)
	}

	for _, line := range strings.Split(markdown, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || line == "---" {
			continue
		}
		p := doc.AddParagraph("")
		switch {
		case reHeading.MatchString(line):
			m := reHeading.FindStringSubmatch(line)
			run(p, m[2], headingSize(len(m[1]))).Bold(true)
		case reBullet.MatchString(line):
			inline(p, "• "+reBullet.FindStringSubmatch(line)[1])
		case reNumbered.MatchString(line):
			inline(p, line)
		case reEmphasis.MatchString(line):
			run(p, reEmphasis.FindStringSubmatch(line)[1], bodySize).Italic(true)
		default:
			inline(p, line)
		}
	}

	if err := doc.SaveTo(path); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	return nil
}

func headingSize(level int) uint64 {
	switch level {
	case 1:
		return titleSize
	case 2:
		return 15
	case 3:
		return 14
	default:
		return bodySize
	}
}

func run(p *docx.Paragraph, text string, size uint64) *docx.Run {
	return p.AddText(stripInline(text)).Font(fontName).Size(size).Color(textColor)
}

// inline adds text to p, turning **bold** spans into bold runs.
func inline(p *docx.Paragraph, text string) {
	last := 0
	for _, loc := range reBold.FindAllStringSubmatchIndex(text, -1) {
		if loc[0] > last {
			run(p, text[last:loc[0]], bodySize)
		}
		run(p, text[loc[2]:loc[3]], bodySize).Bold(true)
		last = loc[1]
	}
	if last < len(text) {
		run(p, text[last:], bodySize)
	}
}

func stripInline(s string) string {
	return strings.NewReplacer("**", "", "__", "", "`", "").Replace(s)
}
