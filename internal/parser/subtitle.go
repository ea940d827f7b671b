package parser

import (
	"fmt"
	"io"

	"github.com/dgallion1/capdigest/internal/doctree"
	"github.com/dgallion1/capdigest/internal/normalize"
)

// SubtitleParser handles .srt and .vtt caption files. Cue numbers, timings
// and markup are stripped, leaving the spoken text as one block.
type SubtitleParser struct{}

func (p *SubtitleParser) Parse(r io.Reader, filename string) (*doctree.DocTree, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read subtitles: %w", err)
	}

	tree := &doctree.DocTree{Title: titleOf(filename)}
	if text := normalize.Normalize(string(raw)); text != "" {
		tree.Children = []*doctree.DocNode{{Text: text}}
	}
	return tree, nil
}
