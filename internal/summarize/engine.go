// Package summarize implements chunk-and-reduce summarization over a text
// generator with a bounded input size.
package summarize

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"github.com/dgallion1/capdigest/internal/chunker"
	"github.com/dgallion1/capdigest/internal/doctree"
	"github.com/dgallion1/capdigest/internal/prompt"
)

// TextGenerator turns a prompt into generated text. Retries, rate limits and
// authentication are the implementation's concern.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// GeneratorFunc adapts a function to TextGenerator.
type GeneratorFunc func(ctx context.Context, prompt string) (string, error)

func (f GeneratorFunc) Generate(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// DefaultMaxDepth bounds recursive reduction.
const DefaultMaxDepth = 4

// Engine summarizes documents. It is immutable after New and safe for
// concurrent use by multiple callers.
type Engine struct {
	gen         TextGenerator
	prompts     *prompt.Builder
	splitter    chunker.Splitter
	concurrency int
	recursive   bool
	maxDepth    int
	log         *slog.Logger
	observer    Observer
}

// Option configures an Engine.
type Option func(*Engine)

// WithSplitter sets how documents are chunked. The default is fixed-width.
func WithSplitter(s chunker.Splitter) Option {
	return func(e *Engine) {
		if s != nil {
			e.splitter = s
		}
	}
}

// WithConcurrency bounds how many generator calls a phase issues at once.
// The default of 1 issues them one at a time in ordinal order.
func WithConcurrency(n int) Option {
	return func(e *Engine) {
		if n < 1 {
			n = 1
		}
		e.concurrency = n
	}
}

// WithRecursiveReduce controls whether joined partial summaries longer than
// the chunk size are reduced in further levels before the final reduce call.
func WithRecursiveReduce(on bool) Option {
	return func(e *Engine) { e.recursive = on }
}

// WithMaxDepth caps the number of intermediate reduction levels.
func WithMaxDepth(n int) Option {
	return func(e *Engine) {
		if n < 1 {
			n = DefaultMaxDepth
		}
		e.maxDepth = n
	}
}

// WithLogger sets the logger for debug-level run tracing.
func WithLogger(log *slog.Logger) Option {
	return func(e *Engine) {
		if log != nil {
			e.log = log
		}
	}
}

// WithObserver registers an observer that sees the events of every run.
func WithObserver(o Observer) Option {
	return func(e *Engine) { e.observer = o }
}

// New builds an Engine around gen and prompts.
func New(gen TextGenerator, prompts *prompt.Builder, opts ...Option) *Engine {
	e := &Engine{
		gen:         gen,
		prompts:     prompts,
		splitter:    chunker.Fixed{},
		concurrency: 1,
		recursive:   true,
		maxDepth:    DefaultMaxDepth,
		log:         slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Request is one summarization call.
type Request struct {
	Document     string
	MaxChunkSize int
	Style        prompt.Style
	Observer     Observer
}

// Partial is the summary of one chunk.
type Partial struct {
	Index int
	Text  string
}

// Report is the outcome of a successful run.
type Report struct {
	Summary        string
	Style          prompt.Style
	Chunks         int
	Calls          int
	Levels         int // reduction levels that made generator calls
	Partials       []Partial
	MapDuration    time.Duration
	ReduceDuration time.Duration
}

// Summarize returns the final summary of document.
func (e *Engine) Summarize(ctx context.Context, document string, maxChunkSize int, style prompt.Style) (string, error) {
	rep, err := e.Run(ctx, Request{Document: document, MaxChunkSize: maxChunkSize, Style: style})
	if err != nil {
		return "", err
	}
	return rep.Summary, nil
}

// Run summarizes req.Document and reports how it went. On error no partial
// summary is returned.
func (e *Engine) Run(ctx context.Context, req Request) (*Report, error) {
	r := &run{
		e:      e,
		style:  req.Style,
		max:    req.MaxChunkSize,
		obs:    req.Observer,
		report: &Report{Style: req.Style},
		log:    e.log.With("style", req.Style.String(), "max_chunk_size", req.MaxChunkSize),
	}

	if req.MaxChunkSize <= 0 {
		return nil, r.fail(ErrInvalidInput)
	}
	if req.Document == "" {
		r.transition(StateDone)
		return r.report, nil
	}

	chunks := e.splitter.Split(req.Document, req.MaxChunkSize)
	r.report.Chunks = len(chunks)

	if len(chunks) == 1 {
		r.transition(StateDirect)
		start := time.Now()
		out, err := r.generate(ctx, req.Document, prompt.ModeMap)
		r.report.MapDuration = time.Since(start)
		if err != nil {
			return nil, r.fail(r.classify(ctx, &GenerationError{Stage: StageMap, ChunkIndex: 0, Piece: -1, Err: err}))
		}
		r.chunkMapped()
		r.report.Summary = out
		r.report.Partials = []Partial{{Index: 0, Text: out}}
		r.transition(StateDone)
		return r.report, nil
	}

	r.transition(StateMapping)
	start := time.Now()
	partials, err := r.generateAll(ctx, chunks, prompt.ModeMap, 0)
	r.report.MapDuration = time.Since(start)
	if err != nil {
		return nil, r.fail(err)
	}
	r.report.Partials = make([]Partial, len(partials))
	for i, p := range partials {
		r.report.Partials[i] = Partial{Index: i, Text: p}
	}

	r.transition(StateReducing)
	start = time.Now()
	summary, err := r.reduce(ctx, partials)
	r.report.ReduceDuration = time.Since(start)
	if err != nil {
		return nil, r.fail(err)
	}
	r.report.Summary = summary
	r.transition(StateDone)
	return r.report, nil
}

// run holds the state of one Run call.
type run struct {
	e      *Engine
	style  prompt.Style
	max    int
	obs    Observer
	report *Report
	log    *slog.Logger

	mu     sync.Mutex
	state  State
	level  int
	mapped int
}

func (r *run) reduce(ctx context.Context, partials []string) (string, error) {
	for level := 1; ; level++ {
		joined, n := Join(partials)
		if n <= 1 {
			return joined, nil
		}

		size := utf8.RuneCountInString(joined)
		if !r.e.recursive || size <= r.max {
			r.setLevel(level)
			out, err := r.generate(ctx, joined, prompt.ModeReduce)
			if err != nil {
				return "", r.classify(ctx, &GenerationError{Stage: StageReduce, ChunkIndex: -1, Piece: -1, Level: level, Err: err})
			}
			r.report.Levels = level
			return out, nil
		}

		if level > r.e.maxDepth {
			return "", fmt.Errorf("%w: joined summaries still %d runes after %d levels", ErrReductionStalled, size, r.e.maxDepth)
		}

		r.setLevel(level)
		outs, err := r.generateAll(ctx, r.e.splitter.Split(joined, r.max), prompt.ModeReduce, level)
		if err != nil {
			return "", err
		}
		r.report.Levels = level

		next, _ := Join(outs)
		if got := utf8.RuneCountInString(next); got >= size {
			return "", fmt.Errorf("%w: level %d produced %d runes from %d", ErrReductionStalled, level, got, size)
		}
		r.log.Debug("reduction level done", "level", level, "pieces", len(outs), "runes_in", size)
		partials = outs
	}
}

// generateAll runs one generator call per chunk with at most
// e.concurrency in flight. Results are addressed by chunk index.
func (r *run) generateAll(ctx context.Context, chunks []doctree.Chunk, mode prompt.Mode, level int) ([]string, error) {
	stage := StageMap
	if mode == prompt.ModeReduce {
		stage = StageReduce
	}

	out := make([]string, len(chunks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.e.concurrency)
	for i, c := range chunks {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			// A sibling may have failed while this call waited for a slot.
			if err := gctx.Err(); err != nil {
				return err
			}
			s, err := r.generate(gctx, c.Text, mode)
			if err != nil {
				if stage == StageReduce {
					return &GenerationError{Stage: stage, ChunkIndex: -1, Piece: i, Level: level, Err: err}
				}
				return &GenerationError{Stage: stage, ChunkIndex: i, Piece: -1, Level: level, Err: err}
			}
			out[i] = s
			if mode == prompt.ModeMap {
				r.chunkMapped()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, r.classify(ctx, err)
	}
	return out, nil
}

func (r *run) generate(ctx context.Context, text string, mode prompt.Mode) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	p := r.e.prompts.Build(text, r.style, mode)
	r.mu.Lock()
	r.report.Calls++
	r.mu.Unlock()

	out, err := r.e.gen.Generate(ctx, p)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// classify turns failures caused by the caller's context into ErrCancelled.
func (r *run) classify(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return cancelled(ctxErr)
	}
	return err
}

func (r *run) transition(s State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state = s
	r.log.Debug("summarize state", "state", s.String(), "chunks", r.report.Chunks, "calls", r.report.Calls)
	r.emitLocked(nil)
}

func (r *run) fail(err error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state = StateFailed
	r.log.Debug("summarize failed", "error", err, "calls", r.report.Calls)
	r.emitLocked(err)
	return err
}

func (r *run) setLevel(level int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.level = level
	r.emitLocked(nil)
}

func (r *run) chunkMapped() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.mapped++
	r.emitLocked(nil)
}

func (r *run) emitLocked(err error) {
	if r.e.observer == nil && r.obs == nil {
		return
	}
	ev := Event{
		State:  r.state,
		Chunks: r.report.Chunks,
		Mapped: r.mapped,
		Calls:  r.report.Calls,
		Level:  r.level,
		Err:    err,
	}
	if r.e.observer != nil {
		r.e.observer(ev)
	}
	if r.obs != nil {
		r.obs(ev)
	}
}

// Join concatenates the trimmed, non-empty parts in order with single
// spaces and reports how many parts it kept.
func Join(parts []string) (string, int) {
	var sb strings.Builder
	n := 0
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if n > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(p)
		n++
	}
	return sb.String(), n
}
