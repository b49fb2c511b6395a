// Package batch runs multi-profile scrape jobs through a pool of workers,
// each owning its own browser-backed scraper, with checkpointed resume.
package batch

import (
	"context"
	"sync"
	"time"

	"liscraper/pkg/checkpoint"
	"liscraper/pkg/linkedin"
	"liscraper/pkg/logger"
)

// Job represents a single profile scrape task
type Job struct {
	Input string
}

// Result represents the outcome of one scrape job
type Result struct {
	Job      Job
	Profile  *linkedin.Profile
	Fallback bool
	Duration time.Duration
}

// ProfileScraper scrapes one profile at a time. Each worker gets its own
// instance so browsers are never shared across goroutines.
type ProfileScraper interface {
	ScrapeProfile(ctx context.Context, input string) *linkedin.Profile
	Close() error
}

// ScraperFactory creates one scraper per worker
type ScraperFactory func() (ProfileScraper, error)

// ProfileStorage persists scraped profiles
type ProfileStorage interface {
	IsSaved(profileID string) bool
	SaveProfile(profile *linkedin.Profile) (string, error)
}

// WorkerPool manages concurrent scrape workers
type WorkerPool struct {
	numWorkers  int
	jobQueue    chan Job
	resultQueue chan Result
	wg          sync.WaitGroup
	ctx         context.Context
	cancel      context.CancelFunc
	factory     ScraperFactory
	storage     ProfileStorage
	logger      logger.Logger
}

// NewWorkerPool creates a scrape worker pool
func NewWorkerPool(numWorkers int, factory ScraperFactory, storage ProfileStorage, log logger.Logger) *WorkerPool {
	if log == nil {
		log = logger.GetLogger()
	}
	if numWorkers <= 0 {
		numWorkers = 1
	}

	return &WorkerPool{
		numWorkers:  numWorkers,
		jobQueue:    make(chan Job, numWorkers*2),
		resultQueue: make(chan Result, numWorkers),
		factory:     factory,
		storage:     storage,
		logger:      log,
	}
}

// Start launches the workers under ctx. Cancelling ctx makes workers abandon
// queued jobs and in-flight scrapes observe the cancellation.
func (wp *WorkerPool) Start(ctx context.Context) {
	wp.ctx, wp.cancel = context.WithCancel(ctx)

	wp.logger.InfoWithFields("Starting scrape worker pool", map[string]interface{}{
		"num_workers": wp.numWorkers,
	})

	for i := 0; i < wp.numWorkers; i++ {
		wp.wg.Add(1)
		go wp.worker(i)
	}
}

// Stop closes the job queue, waits for workers to drain it (or bail out on a
// cancelled context), and then closes the result channel so consumers
// terminate. Must be called exactly once after the last Submit.
func (wp *WorkerPool) Stop() {
	close(wp.jobQueue)
	wp.wg.Wait()
	close(wp.resultQueue)
	wp.cancel()
	wp.logger.Info("Worker pool stopped")
}

// Submit adds a scrape job to the queue
func (wp *WorkerPool) Submit(job Job) error {
	select {
	case wp.jobQueue <- job:
		return nil
	case <-wp.ctx.Done():
		return wp.ctx.Err()
	}
}

// Results returns the result channel
func (wp *WorkerPool) Results() <-chan Result {
	return wp.resultQueue
}

// worker runs jobs on its own scraper instance until the queue closes.
// A factory failure drains nothing: the worker exits and the remaining
// workers absorb the queue.
func (wp *WorkerPool) worker(id int) {
	defer wp.wg.Done()

	workerLog := wp.logger.WithField("worker_id", id)

	scraper, err := wp.factory()
	if err != nil {
		workerLog.WithError(err).Error("Failed to create scraper for worker")
		return
	}
	defer scraper.Close()

	for job := range wp.jobQueue {
		select {
		case <-wp.ctx.Done():
			return
		default:
		}

		start := time.Now()
		profile := scraper.ScrapeProfile(wp.ctx, job.Input)
		result := Result{
			Job:      job,
			Profile:  profile,
			Fallback: profile.Source == linkedin.SourceFallback,
			Duration: time.Since(start),
		}

		if wp.storage != nil {
			if _, err := wp.storage.SaveProfile(profile); err != nil {
				workerLog.WithError(err).Error("Failed to save profile")
			}
		}

		select {
		case wp.resultQueue <- result:
		case <-wp.ctx.Done():
			return
		}
	}
}

// Summary aggregates the outcome of a batch run
type Summary struct {
	Total     int
	Succeeded int
	Fallbacks int
	Skipped   int
	Elapsed   time.Duration
}

// Runner coordinates a checkpointed batch run over a worker pool
type Runner struct {
	pool        *WorkerPool
	checkpoints *checkpoint.Manager
	maxProfiles int
	logger      logger.Logger
}

// NewRunner creates a batch runner
func NewRunner(pool *WorkerPool, checkpoints *checkpoint.Manager, maxProfiles int, log logger.Logger) *Runner {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Runner{
		pool:        pool,
		checkpoints: checkpoints,
		maxProfiles: maxProfiles,
		logger:      log,
	}
}

// Run scrapes the given inputs, resuming from a previous checkpoint when one
// matches, and caps the run at the configured per-run profile limit.
func (r *Runner) Run(ctx context.Context, inputs []string) (*Summary, error) {
	start := time.Now()

	cp, err := r.resumeOrStart(inputs)
	if err != nil {
		return nil, err
	}

	pending := cp.Remaining()
	skipped := len(inputs) - len(pending)
	if r.maxProfiles > 0 && len(pending) > r.maxProfiles {
		r.logger.WarnWithFields("Capping batch at per-run profile limit", map[string]interface{}{
			"requested": len(pending),
			"limit":     r.maxProfiles,
		})
		pending = pending[:r.maxProfiles]
	}

	summary := &Summary{Total: len(pending), Skipped: skipped}
	if len(pending) == 0 {
		summary.Elapsed = time.Since(start)
		return summary, nil
	}

	r.pool.Start(ctx)

	// Stop runs on every exit path so the result channel always closes and
	// the loop below cannot block after a cancellation.
	go func() {
		defer r.pool.Stop()
		for _, input := range pending {
			select {
			case <-ctx.Done():
				return
			default:
			}
			if err := r.pool.Submit(Job{Input: input}); err != nil {
				return
			}
		}
	}()

	for result := range r.pool.Results() {
		if result.Fallback {
			summary.Fallbacks++
			cp.MarkFailed(result.Job.Input)
		} else {
			summary.Succeeded++
			cp.MarkCompleted(result.Job.Input)
		}
		if err := r.checkpoints.Save(cp); err != nil {
			r.logger.WithError(err).Warn("Failed to save checkpoint")
		}
	}

	if err := ctx.Err(); err != nil {
		summary.Elapsed = time.Since(start)
		return summary, err
	}

	if cp.Done() {
		if err := r.checkpoints.Delete(); err != nil {
			r.logger.WithError(err).Warn("Failed to remove finished checkpoint")
		}
	}

	summary.Elapsed = time.Since(start)
	return summary, nil
}

// resumeOrStart loads a matching checkpoint or creates a fresh one
func (r *Runner) resumeOrStart(inputs []string) (*checkpoint.Checkpoint, error) {
	cp, err := r.checkpoints.Load()
	if err != nil {
		return nil, err
	}
	if cp != nil && sameInputs(cp.Inputs, inputs) {
		r.logger.InfoWithFields("Resuming batch from checkpoint", map[string]interface{}{
			"run_id":    cp.RunID,
			"completed": len(cp.Completed),
		})
		return cp, nil
	}
	return checkpoint.New(inputs), nil
}

func sameInputs(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
