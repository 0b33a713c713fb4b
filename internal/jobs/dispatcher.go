// Package jobs runs webhook-triggered reviews on a bounded worker pool.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sevigo/review-warden/internal/core"
)

// ErrQueueFull is returned by Dispatch when no more jobs can be buffered.
var ErrQueueFull = errors.New("job queue is full")

const defaultQueueSize = 100

// dispatcher implements core.JobDispatcher with a fixed pool of workers
// reading from a buffered queue.
type dispatcher struct {
	job        core.Job
	jobQueue   chan *core.GitHubEvent
	maxWorkers int
	jobTimeout time.Duration
	wg         sync.WaitGroup
	logger     *slog.Logger

	mu sync.Mutex
	// pending holds the events queued or running, keyed by pull request and
	// head commit, so webhook redeliveries do not review the same commit twice.
	pending map[string]struct{}
	stopped bool
}

// NewDispatcher starts maxWorkers workers. A non-positive maxWorkers means
// one worker; a non-positive jobTimeout means jobs are not time-bounded.
func NewDispatcher(job core.Job, maxWorkers int, jobTimeout time.Duration, logger *slog.Logger) core.JobDispatcher {
	if maxWorkers <= 0 {
		maxWorkers = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	d := &dispatcher{
		job:        job,
		maxWorkers: maxWorkers,
		jobTimeout: jobTimeout,
		jobQueue:   make(chan *core.GitHubEvent, defaultQueueSize),
		logger:     logger,
		pending:    make(map[string]struct{}),
	}
	d.startWorkers()
	return d
}

func (d *dispatcher) startWorkers() {
	for i := range d.maxWorkers {
		d.wg.Add(1)
		go d.startWorker(i)
	}
}

func (d *dispatcher) startWorker(workerID int) {
	defer d.wg.Done()
	d.logger.Debug("starting review worker", "id", workerID)

	for event := range d.jobQueue {
		d.processEvent(workerID, event)
	}

	d.logger.Debug("shutting down review worker", "id", workerID)
}

func (d *dispatcher) processEvent(workerID int, event *core.GitHubEvent) {
	defer d.done(event)
	defer func() {
		if p := recover(); p != nil {
			d.logger.Error("review job panicked", "repo", event.RepoFullName, "pr", event.PRNumber, "panic", p)
		}
	}()

	d.logger.Info("worker processing job",
		"worker_id", workerID,
		"repo", event.RepoFullName,
		"pr", event.PRNumber,
		"trigger", event.Trigger,
	)

	ctx, cancel := context.Background(), context.CancelFunc(func() {})
	if d.jobTimeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, d.jobTimeout)
	}
	defer cancel()

	if err := d.job.Run(ctx, event); err != nil {
		d.logger.Error("review job failed",
			"repo", event.RepoFullName,
			"pr", event.PRNumber,
			"error", err,
		)
	}
}

// Dispatch queues an event for review. It never blocks: a full queue is
// reported as ErrQueueFull so the webhook can answer immediately. An event
// for a commit that is already queued or under review is dropped.
func (d *dispatcher) Dispatch(_ context.Context, event *core.GitHubEvent) error {
	key := dedupeKey(event)

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return errors.New("dispatcher is stopped")
	}
	if _, dup := d.pending[key]; dup {
		d.logger.Info("review already pending, skipping", "repo", event.RepoFullName, "pr", event.PRNumber, "head", event.HeadSHA)
		return nil
	}

	select {
	case d.jobQueue <- event:
		d.pending[key] = struct{}{}
		d.logger.Info("queued review job", "repo", event.RepoFullName, "pr", event.PRNumber)
		return nil
	default:
		return fmt.Errorf("%w: cannot review %s#%d", ErrQueueFull, event.RepoFullName, event.PRNumber)
	}
}

// Stop stops accepting events and waits for queued and running jobs to finish.
func (d *dispatcher) Stop() {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	d.stopped = true
	close(d.jobQueue)
	d.mu.Unlock()

	d.logger.Info("stopping dispatcher and waiting for jobs to finish")
	d.wg.Wait()
	d.logger.Info("all review jobs have finished")
}

func (d *dispatcher) done(event *core.GitHubEvent) {
	d.mu.Lock()
	delete(d.pending, dedupeKey(event))
	d.mu.Unlock()
}

// dedupeKey identifies a review request. Comment-triggered events carry no
// head SHA and therefore only deduplicate against each other.
func dedupeKey(event *core.GitHubEvent) string {
	return fmt.Sprintf("%s#%d@%s", event.RepoFullName, event.PRNumber, event.HeadSHA)
}
