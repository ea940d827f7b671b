package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dgallion1/capdigest/internal/api"
	"github.com/dgallion1/capdigest/internal/chunker"
	"github.com/dgallion1/capdigest/internal/config"
	"github.com/dgallion1/capdigest/internal/llm"
	"github.com/dgallion1/capdigest/internal/parser"
	"github.com/dgallion1/capdigest/internal/pathstore"
	"github.com/dgallion1/capdigest/internal/pipeline"
	"github.com/dgallion1/capdigest/internal/prompt"
	"github.com/dgallion1/capdigest/internal/summarize"
	"github.com/dgallion1/capdigest/internal/watcher"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	client, err := llm.New(ctx, cfg.LLM(), log)
	if err != nil {
		return err
	}
	defer client.Close()

	prompts, err := loadPrompts(cfg)
	if err != nil {
		return err
	}
	splitter, err := chunker.ForStrategy(cfg.ChunkStrategy)
	if err != nil {
		return err
	}
	engine := summarize.New(client, prompts,
		summarize.WithSplitter(splitter),
		summarize.WithConcurrency(cfg.MapConcurrency),
		summarize.WithRecursiveReduce(cfg.RecursiveReduce),
		summarize.WithMaxDepth(cfg.ReduceMaxDepth),
		summarize.WithLogger(log.With("component", "summarize")),
	)

	// Publishing and the summaries endpoints only exist with a pathstore.
	var (
		publisher pipeline.Publisher
		store     api.SummaryStore
	)
	if cfg.PathstoreURL != "" {
		ps := pathstore.NewClient(cfg.PathstoreURL, cfg.PathstoreAPIKey)
		defer ps.Close()
		publisher, store = ps, ps
	}

	parseOpts := parser.Options{PDFFallback: cfg.PDFFallbackPdftotext}
	worker := pipeline.NewWorker(engine, pipeline.NewCache(cfg.CacheSize, cfg.CacheTTL), publisher, parseOpts, cfg.MaxChunkSize, log)
	orch := pipeline.NewOrchestrator(cfg, worker, log)
	orch.Start(ctx)
	defer orch.Stop()

	watchDone := make(chan struct{})
	if cfg.WatchDir != "" {
		w, err := watcher.New(watcher.Config{
			InputDir:      cfg.WatchDir,
			OutputDir:     cfg.WatchOutputDir,
			Formats:       cfg.WatchFormats,
			MaxConcurrent: cfg.WorkerCount,
			ParseOptions:  parseOpts,
			SettleDelay:   500 * time.Millisecond,
		}, worker, log)
		if err != nil {
			return err
		}
		go func() {
			defer close(watchDone)
			if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("watcher stopped", "error", err)
			}
			w.Close()
		}()
	} else {
		close(watchDone)
	}

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      api.NewServer(orch, client, store, log, cfg),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 10 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting capdigest", "port", cfg.Port, "provider", client.Provider(), "model", client.Model(), "locale", prompts.Locale())
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Warn("http shutdown", "error", err)
	}
	<-watchDone
	return nil
}

func loadPrompts(cfg config.Config) (*prompt.Builder, error) {
	if cfg.PromptFile != "" {
		return prompt.Load(cfg.PromptFile)
	}
	return prompt.New(cfg.PromptLocale)
}
