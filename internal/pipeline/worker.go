package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgallion1/capdigest/internal/chunker"
	"github.com/dgallion1/capdigest/internal/normalize"
	"github.com/dgallion1/capdigest/internal/parser"
	"github.com/dgallion1/capdigest/internal/pathstore"
	"github.com/dgallion1/capdigest/internal/prompt"
	"github.com/dgallion1/capdigest/internal/summarize"
)

// Publisher receives finished document summaries.
type Publisher interface {
	PutSummary(ctx context.Context, s pathstore.Summary) error
}

// Worker turns documents into summaries.
type Worker struct {
	engine     *summarize.Engine
	cache      *Cache
	publisher  Publisher
	parseOpts  parser.Options
	defaultMax int
	log        *slog.Logger
}

// NewWorker builds a worker. cache and publisher may be nil.
func NewWorker(engine *summarize.Engine, cache *Cache, publisher Publisher, parseOpts parser.Options, defaultMax int, log *slog.Logger) *Worker {
	return &Worker{
		engine:     engine,
		cache:      cache,
		publisher:  publisher,
		parseOpts:  parseOpts,
		defaultMax: defaultMax,
		log:        log,
	}
}

// TextRequest is a synchronous summarization of plain text.
type TextRequest struct {
	Text         string
	Style        prompt.Style
	MaxChunkSize int // 0 means the configured default
	Normalize    bool
	Observer     summarize.Observer
}

// TextResult is what SummarizeText produced.
type TextResult struct {
	Summary         string
	Style           prompt.Style
	MaxChunkSize    int
	Chunks          int
	Calls           int
	Levels          int
	EstimatedTokens int
	ContentHash     string
	Cached          bool
}

// SummarizeText summarizes req.Text, answering from the cache when the same
// text was summarized with the same style and chunk size before.
func (w *Worker) SummarizeText(ctx context.Context, req TextRequest) (*TextResult, error) {
	text := req.Text
	if req.Normalize {
		text = normalize.Normalize(text)
	}
	maxSize := req.MaxChunkSize
	if maxSize == 0 {
		maxSize = w.defaultMax
	}

	res := &TextResult{
		Style:           req.Style,
		MaxChunkSize:    maxSize,
		EstimatedTokens: chunker.EstimateTokens(text),
		ContentHash:     ContentHashHex([]byte(text)),
	}
	key := CacheKey{ContentHash: res.ContentHash, Style: req.Style, MaxChunkSize: maxSize}
	if maxSize > 0 {
		if summary, ok := w.cache.Get(key); ok {
			w.log.Debug("summary cache hit", "content_hash", res.ContentHash, "style", req.Style.String())
			res.Summary, res.Cached = summary, true
			return res, nil
		}
	}

	rep, err := w.engine.Run(ctx, summarize.Request{
		Document:     text,
		MaxChunkSize: maxSize,
		Style:        req.Style,
		Observer:     req.Observer,
	})
	if err != nil {
		return nil, err
	}
	if text != "" {
		w.cache.Add(key, rep.Summary)
	}
	res.Summary = rep.Summary
	res.Chunks = rep.Chunks
	res.Calls = rep.Calls
	res.Levels = rep.Levels
	return res, nil
}

// Process runs the full summarization pipeline for a job.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID, "doc_id", job.DocID, "user_id", job.UserID)
	start := time.Now()

	job.SetStatus(StatusParsing, "parsing")
	tree, err := parser.Parse(bytes.NewReader(job.FileData()), job.Filename, w.parseOpts)
	if err != nil {
		log.Error("parse failed", "filename", job.Filename, "error", err)
		job.AddError(fmt.Sprintf("parse: %s", err))
		job.SetStatus(StatusFailed, "parsing")
		return
	}
	title := job.Snapshot().Title
	if title == "" {
		title = tree.Title
		job.SetTitle(title)
	}

	text := tree.PlainText()
	if text == "" {
		log.Warn("no extractable content")
		job.AddError("no extractable content")
		job.SetStatus(StatusFailed, "parsing")
		return
	}

	res, err := w.SummarizeText(ctx, TextRequest{
		Text:         text,
		Style:        job.Style,
		MaxChunkSize: job.MaxChunkSize,
		Normalize:    job.Normalize,
		Observer:     job.Observe,
	})
	if err != nil {
		status := StatusFailed
		if errors.Is(err, summarize.ErrCancelled) {
			status = StatusCancelled
		}
		log.Error("summarize failed", "status", status, "error", err)
		job.AddError(err.Error())
		job.SetStatus(status, job.Snapshot().Phase)
		return
	}

	if w.publisher != nil && job.UserID != "" {
		err := w.publisher.PutSummary(ctx, pathstore.Summary{
			DocID:        job.DocID,
			UserID:       job.UserID,
			Filename:     job.Filename,
			Title:        title,
			Style:        res.Style.String(),
			MaxChunkSize: res.MaxChunkSize,
			Chunks:       res.Chunks,
			Calls:        res.Calls,
			ContentHash:  res.ContentHash,
			Text:         res.Summary,
			CreatedAt:    job.CreatedAt,
		})
		if err != nil {
			log.Warn("publish failed", "error", err)
			job.AddError(fmt.Sprintf("publish: %s", err))
		}
	}

	status := StatusCompleted
	if res.Cached {
		status = StatusCached
	}
	job.Complete(status, res.Summary, res.ContentHash)
	log.Info("job done",
		"status", status,
		"chunks", res.Chunks,
		"calls", res.Calls,
		"levels", res.Levels,
		"duration_ms", time.Since(start).Milliseconds(),
	)
}
