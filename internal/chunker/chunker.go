package chunker

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/dgallion1/capdigest/internal/doctree"
)

// Strategy names accepted by ForStrategy.
const (
	StrategyFixed    = "fixed"
	StrategyBoundary = "boundary"
)

// Splitter partitions a document into ordered chunks of at most maxSize runes.
// Implementations must keep the partition exact: the chunks concatenated in
// Index order reproduce the input.
type Splitter interface {
	Split(text string, maxSize int) []doctree.Chunk
	Name() string
}

// ForStrategy returns the splitter registered under name.
func ForStrategy(name string) (Splitter, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", StrategyFixed:
		return Fixed{}, nil
	case StrategyBoundary:
		return Boundary{}, nil
	default:
		return nil, fmt.Errorf("unknown chunk strategy: %s", name)
	}
}

// Split is the fixed-width split used when no strategy is configured.
func Split(text string, maxSize int) []doctree.Chunk {
	return Fixed{}.Split(text, maxSize)
}

// Fixed cuts every maxSize runes with no regard for words or sentences.
type Fixed struct{}

func (Fixed) Name() string { return StrategyFixed }

func (Fixed) Split(text string, maxSize int) []doctree.Chunk {
	if text == "" || maxSize <= 0 {
		return nil
	}
	_, offsets := decode(text)
	n := len(offsets) - 1
	var cuts []int
	for end := maxSize; end < n; end += maxSize {
		cuts = append(cuts, end)
	}
	return build(text, offsets, cuts)
}

// Boundary cuts at the last paragraph break, sentence end or whitespace found
// within Lookback runes of the window end, and hard-cuts when there is none.
// Chunks never exceed maxSize, so the chunk count can only grow relative to Fixed.
type Boundary struct {
	// Lookback is how far back from the window end a cut may move.
	// Zero means a quarter of the window.
	Lookback int
}

func (Boundary) Name() string { return StrategyBoundary }

func (b Boundary) Split(text string, maxSize int) []doctree.Chunk {
	if text == "" || maxSize <= 0 {
		return nil
	}
	lookback := b.Lookback
	if lookback <= 0 || lookback >= maxSize {
		lookback = maxSize / 4
	}

	runes, offsets := decode(text)
	var cuts []int
	start := 0
	for len(runes)-start > maxSize {
		end := start + maxSize
		cut := findCut(runes, end-lookback, end)
		if cut <= start {
			cut = end
		}
		cuts = append(cuts, cut)
		start = cut
	}
	return build(text, offsets, cuts)
}

// decode returns the runes of text and the byte offset where each one starts,
// plus a final entry for len(text). An invalid byte counts as one rune.
func decode(text string) ([]rune, []int) {
	runes := make([]rune, 0, len(text))
	offsets := make([]int, 0, len(text)+1)
	for i := 0; i < len(text); {
		r, size := utf8.DecodeRuneInString(text[i:])
		runes = append(runes, r)
		offsets = append(offsets, i)
		i += size
	}
	return runes, append(offsets, len(text))
}

// findCut returns the best cut position in (lo, hi], or -1. A cut position is
// the index of the first rune of the next chunk.
func findCut(runes []rune, lo, hi int) int {
	if lo < 0 {
		lo = 0
	}
	sentence, space := -1, -1
	for i := hi; i > lo; i-- {
		prev := runes[i-1]
		if prev == '\n' && i >= 2 && runes[i-2] == '\n' {
			return i
		}
		if sentence < 0 && isSentenceEnd(runes, i) {
			sentence = i
		}
		if space < 0 && unicode.IsSpace(prev) {
			space = i
		}
	}
	if sentence > 0 {
		return sentence
	}
	return space
}

// isSentenceEnd reports whether position i directly follows sentence-ending
// punctuation (plus one trailing space for ASCII punctuation).
func isSentenceEnd(runes []rune, i int) bool {
	prev := runes[i-1]
	switch prev {
	case '。', '！', '？':
		return true
	}
	if !unicode.IsSpace(prev) || i < 2 {
		return false
	}
	switch runes[i-2] {
	case '.', '!', '?':
		return true
	}
	return false
}

// build slices text at the rune positions in cuts. Text is taken from the
// original bytes, so invalid UTF-8 survives the split unchanged.
func build(text string, offsets []int, cuts []int) []doctree.Chunk {
	total := len(cuts) + 1
	chunks := make([]doctree.Chunk, 0, total)
	start := 0
	for i := 0; i < total; i++ {
		end := len(offsets) - 1
		if i < len(cuts) {
			end = cuts[i]
		}
		chunks = append(chunks, doctree.Chunk{
			Text:  text[offsets[start]:offsets[end]],
			Index: i,
			Total: total,
			Start: start,
			End:   end,
		})
		start = end
	}
	return chunks
}
