package parser

import (
	"fmt"
	"io"
	"os/exec"
	"strings"

	pdflib "github.com/ledongthuc/pdf"

	"github.com/dgallion1/capdigest/internal/doctree"
)

// PDFParser handles PDF files, one child node per non-empty page. It tries
// the Go library first, then pdftotext when FallbackPdftotext is set.
type PDFParser struct {
	FallbackPdftotext bool
}

func (p *PDFParser) Parse(r io.Reader, filename string) (*doctree.DocTree, error) {
	// ledongthuc/pdf opens by path.
	tmp, _, cleanup, err := spool(r, "capdigest-pdf-*.pdf")
	if err != nil {
		return nil, err
	}
	defer cleanup()

	pages, err := extractPDFPages(tmp.Name())
	if err != nil && p.FallbackPdftotext {
		pages, err = extractPdftotext(tmp.Name())
	}
	if err != nil {
		return nil, fmt.Errorf("extract pdf text: %w", err)
	}

	tree := &doctree.DocTree{Title: titleOf(filename)}
	for i, page := range pages {
		page = strings.TrimSpace(page)
		if page == "" {
			continue
		}
		tree.Children = append(tree.Children, &doctree.DocNode{Text: page, Page: i + 1})
	}
	return tree, nil
}

func extractPDFPages(path string) ([]string, error) {
	f, reader, err := pdflib.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	pages := make([]string, reader.NumPage())
	for i := range pages {
		page := reader.Page(i + 1)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		pages[i] = text
	}
	return pages, nil
}

// extractPdftotext relies on pdftotext separating pages with form feeds.
func extractPdftotext(path string) ([]string, error) {
	out, err := exec.Command("pdftotext", "-layout", path, "-").Output()
	if err != nil {
		return nil, fmt.Errorf("pdftotext: %w", err)
	}
	return strings.Split(string(out), "\f"), nil
}
