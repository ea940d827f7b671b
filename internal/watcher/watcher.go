// Package watcher summarizes documents dropped into a folder and writes the
// summaries next to them as Markdown or Word files.
package watcher

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/dgallion1/capdigest/internal/parser"
	"github.com/dgallion1/capdigest/internal/pipeline"
	"github.com/dgallion1/capdigest/internal/prompt"
	"github.com/dgallion1/capdigest/internal/render"
)

const (
	FormatMarkdown = "md"
	FormatDOCX     = "docx"
)

// Summarizer is the part of the pipeline the watcher needs.
type Summarizer interface {
	SummarizeText(ctx context.Context, req pipeline.TextRequest) (*pipeline.TextResult, error)
}

type Config struct {
	InputDir      string
	OutputDir     string
	Formats       []string
	MaxConcurrent int
	Style         prompt.Style
	MaxChunkSize  int // 0 means the summarizer's default
	ParseOptions  parser.Options
	// SettleDelay is how long to wait after a file appears before reading it.
	SettleDelay time.Duration
}

type Watcher struct {
	cfg        Config
	summarizer Summarizer
	fs         *fsnotify.Watcher
	sem        chan struct{}
	wg         sync.WaitGroup
	log        *slog.Logger
	now        func() time.Time
}

// New starts watching cfg.InputDir and creates cfg.OutputDir if needed.
// Call Run to process events.
func New(cfg Config, s Summarizer, log *slog.Logger) (*Watcher, error) {
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 2
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = filepath.Join(cfg.InputDir, "summaries")
	}
	if len(cfg.Formats) == 0 {
		cfg.Formats = []string{FormatMarkdown}
	}
	if cfg.SettleDelay < 0 {
		cfg.SettleDelay = 0
	}
	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := fsw.Add(cfg.InputDir); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("add watch path: %w", err)
	}

	return &Watcher{
		cfg:        cfg,
		summarizer: s,
		fs:         fsw,
		sem:        make(chan struct{}, cfg.MaxConcurrent),
		log:        log.With("component", "watcher", "dir", cfg.InputDir),
		now:        time.Now,
	}, nil
}

// Run handles file events until ctx ends, then waits for files still being
// summarized.
func (w *Watcher) Run(ctx context.Context) error {
	w.log.Info("watching for documents", "output_dir", w.cfg.OutputDir, "formats", w.cfg.Formats, "max_concurrent", w.cfg.MaxConcurrent)
	defer w.wg.Wait()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Create) || !w.wanted(event.Name) {
				continue
			}
			select {
			case w.sem <- struct{}{}:
			case <-ctx.Done():
				return ctx.Err()
			}
			w.wg.Add(1)
			go func(path string) {
				defer w.wg.Done()
				defer func() { <-w.sem }()
				if err := w.settle(ctx); err != nil {
					return
				}
				if err := w.HandleFile(ctx, path); err != nil {
					w.log.Error("summarize file failed", "path", path, "error", err)
				}
			}(event.Name)

		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			w.log.Error("watch error", "error", err)
		}
	}
}

func (w *Watcher) settle(ctx context.Context) error {
	if w.cfg.SettleDelay == 0 {
		return ctx.Err()
	}
	t := time.NewTimer(w.cfg.SettleDelay)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// wanted skips hidden files, our own output and formats we cannot parse.
func (w *Watcher) wanted(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") || strings.HasPrefix(base, "~$") {
		return false
	}
	if filepath.Clean(filepath.Dir(path)) == filepath.Clean(w.cfg.OutputDir) {
		return false
	}
	return parser.IsSupportedExtension(path)
}

// HandleFile summarizes one file and writes every configured output format.
func (w *Watcher) HandleFile(ctx context.Context, path string) error {
	start := time.Now()
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	tree, err := parser.Parse(bytes.NewReader(data), path, w.cfg.ParseOptions)
	if err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	res, err := w.summarizer.SummarizeText(ctx, pipeline.TextRequest{
		Text:         tree.PlainText(),
		Style:        w.cfg.Style,
		MaxChunkSize: w.cfg.MaxChunkSize,
	})
	if err != nil {
		return fmt.Errorf("summarize %s: %w", path, err)
	}

	md := render.Markdown(tree.Title, res.Summary, w.now())
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	for _, format := range w.cfg.Formats {
		out := filepath.Join(w.cfg.OutputDir, name+"."+format)
		switch format {
		case FormatMarkdown:
			err = os.WriteFile(out, []byte(md), 0o644)
		case FormatDOCX:
			err = render.DOCX(tree.Title, res.Summary, out)
		default:
			err = fmt.Errorf("unknown output format %q", format)
		}
		if err != nil {
			return fmt.Errorf("write %s: %w", out, err)
		}
	}

	w.log.Info("file summarized",
		"path", path,
		"chunks", res.Chunks,
		"calls", res.Calls,
		"cached", res.Cached,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

// Close stops watching. Run returns once the event channels close.
func (w *Watcher) Close() error {
	return w.fs.Close()
}
