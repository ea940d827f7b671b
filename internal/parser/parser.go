// Package parser turns uploaded files into document trees whose plain text
// is what gets summarized.
package parser

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/dgallion1/capdigest/internal/doctree"
)

// Parser converts raw document bytes into a DocTree.
type Parser interface {
	Parse(r io.Reader, filename string) (*doctree.DocTree, error)
}

// Options tune parser selection.
type Options struct {
	// PDFFallback shells out to pdftotext when the Go PDF reader fails.
	PDFFallback bool
}

var parsers = map[string]func(Options) Parser{
	".txt":      func(Options) Parser { return &TextParser{} },
	".md":       func(Options) Parser { return &MarkdownParser{} },
	".markdown": func(Options) Parser { return &MarkdownParser{} },
	".csv":      func(Options) Parser { return &CSVParser{} },
	".html":     func(Options) Parser { return &HTMLParser{} },
	".htm":      func(Options) Parser { return &HTMLParser{} },
	".pdf":      func(o Options) Parser { return &PDFParser{FallbackPdftotext: o.PDFFallback} },
	".docx":     func(Options) Parser { return &DOCXParser{} },
	".srt":      func(Options) Parser { return &SubtitleParser{} },
	".vtt":      func(Options) Parser { return &SubtitleParser{} },
}

// SupportedExtensions lists the file extensions that can be summarized, sorted.
func SupportedExtensions() []string {
	exts := make([]string, 0, len(parsers))
	for ext := range parsers {
		exts = append(exts, ext)
	}
	slices.Sort(exts)
	return exts
}

// ForFile returns the appropriate parser for a filename.
func ForFile(filename string, opts Options) (Parser, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	newParser, ok := parsers[ext]
	if !ok {
		return nil, fmt.Errorf("unsupported file extension: %q", ext)
	}
	return newParser(opts), nil
}

// IsSupportedExtension checks if a file extension is supported.
func IsSupportedExtension(filename string) bool {
	_, ok := parsers[strings.ToLower(filepath.Ext(filename))]
	return ok
}

// Parse picks the parser for filename and runs it.
func Parse(r io.Reader, filename string, opts Options) (*doctree.DocTree, error) {
	p, err := ForFile(filename, opts)
	if err != nil {
		return nil, err
	}
	return p.Parse(r, filename)
}

// titleOf strips the directory and extension from filename.
func titleOf(filename string) string {
	base := filepath.Base(filename)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// spool copies r to a temp file for libraries that need random access. The
// caller must call cleanup.
func spool(r io.Reader, pattern string) (f *os.File, size int64, cleanup func(), err error) {
	tmp, err := os.CreateTemp("", pattern)
	if err != nil {
		return nil, 0, nil, fmt.Errorf("create temp file: %w", err)
	}
	cleanup = func() {
		tmp.Close()
		os.Remove(tmp.Name())
	}
	size, err = io.Copy(tmp, r)
	if err != nil {
		cleanup()
		return nil, 0, nil, fmt.Errorf("write temp file: %w", err)
	}
	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		cleanup()
		return nil, 0, nil, fmt.Errorf("seek temp file: %w", err)
	}
	return tmp, size, cleanup, nil
}
