package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dgallion1/capdigest/internal/config"
)

var (
	ErrQueueFull = errors.New("job queue is full")
	ErrStopped   = errors.New("pipeline stopped")
)

const cleanupInterval = 5 * time.Minute

// Orchestrator runs queued jobs on a fixed pool of workers.
type Orchestrator struct {
	jobs    *JobStore
	queue   chan *Job
	worker  *Worker
	workers int
	log     *slog.Logger

	mu      sync.RWMutex
	stopped bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewOrchestrator creates the pipeline. Call Start to run it.
func NewOrchestrator(cfg config.Config, worker *Worker, log *slog.Logger) *Orchestrator {
	return &Orchestrator{
		jobs:    NewJobStore(cfg.JobTTL),
		queue:   make(chan *Job, cfg.MaxQueueSize),
		worker:  worker,
		workers: max(cfg.WorkerCount, 1),
		log:     log,
	}
}

// Start launches worker goroutines.
func (o *Orchestrator) Start(ctx context.Context) {
	workerCtx, cancel := context.WithCancel(ctx)
	o.cancel = cancel

	for range o.workers {
		o.wg.Add(1)
		go func() {
			defer o.wg.Done()
			for {
				select {
				case <-workerCtx.Done():
					return
				case job, ok := <-o.queue:
					if !ok {
						return
					}
					o.worker.Process(workerCtx, job)
				}
			}
		}()
	}

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		ticker := time.NewTicker(cleanupInterval)
		defer ticker.Stop()
		for {
			select {
			case <-workerCtx.Done():
				return
			case now := <-ticker.C:
				if n := o.jobs.Cleanup(now); n > 0 {
					o.log.Debug("expired jobs removed", "count", n)
				}
			}
		}
	}()
}

// Stop cancels running jobs and waits for the workers to exit. Jobs still
// queued are left as they are.
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	if o.stopped {
		o.mu.Unlock()
		return
	}
	o.stopped = true
	close(o.queue)
	o.mu.Unlock()

	if o.cancel != nil {
		o.cancel()
	}
	o.wg.Wait()
}

// Submit queues a job for processing.
func (o *Orchestrator) Submit(job *Job) error {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if o.stopped {
		return ErrStopped
	}
	o.jobs.Put(job)
	select {
	case o.queue <- job:
		return nil
	default:
		job.SetStatus(StatusFailed, "queue_full")
		return fmt.Errorf("%w (%d)", ErrQueueFull, cap(o.queue))
	}
}

// GetJob returns a job by ID.
func (o *Orchestrator) GetJob(id string) *Job {
	return o.jobs.Get(id)
}

// QueueDepth returns current queue depth.
func (o *Orchestrator) QueueDepth() int {
	return len(o.queue)
}

// Worker returns the worker that runs jobs, for synchronous use.
func (o *Orchestrator) Worker() *Worker {
	return o.worker
}
