package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sjperalta/roimob-api/pkg/logger"
)

// Job represents a background task
type Job func(ctx context.Context) error

// Worker runs named background jobs on a fixed pool plus bounded fire-and-forget goroutines.
type Worker struct {
	ctx           context.Context
	cancel        context.CancelFunc
	wg            sync.WaitGroup
	queue         chan namedJob
	asyncSem      chan struct{}
	maxConcurrent int

	statsMu sync.RWMutex
	stats   WorkerStats
	closed  bool
}

type namedJob struct {
	name string
	run  Job
}

// WorkerStats holds statistics about the worker
type WorkerStats struct {
	ActiveJobs    int                 `json:"active_jobs"`
	CompletedJobs int64               `json:"completed_jobs"`
	FailedJobs    int64               `json:"failed_jobs"`
	QueueLength   int                 `json:"queue_length"`
	MaxConcurrent int                 `json:"max_concurrent"`
	Jobs          map[string]JobStats `json:"jobs"`
}

// JobStats tracks the runs of one named job
type JobStats struct {
	Runs      int64      `json:"runs"`
	Failures  int64      `json:"failures"`
	LastRunAt *time.Time `json:"last_run_at,omitempty"`
	LastError string     `json:"last_error,omitempty"`
	Duration  string     `json:"last_duration,omitempty"`
}

// NewWorker creates a worker with N concurrent processors
func NewWorker(numWorkers int) *Worker {
	if numWorkers < 1 {
		numWorkers = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	asyncLimit := numWorkers * 2
	if asyncLimit < 10 {
		asyncLimit = 10
	}

	w := &Worker{
		ctx:           ctx,
		cancel:        cancel,
		queue:         make(chan namedJob, 100),
		asyncSem:      make(chan struct{}, asyncLimit),
		maxConcurrent: asyncLimit,
		stats:         WorkerStats{Jobs: make(map[string]JobStats)},
	}

	for i := 0; i < numWorkers; i++ {
		w.wg.Add(1)
		go w.process(i)
	}

	return w
}

// Enqueue adds a job to the pool queue. When the queue is full the job runs on the caller's goroutine.
func (w *Worker) Enqueue(name string, job Job) {
	w.statsMu.RLock()
	if w.closed {
		w.statsMu.RUnlock()
		logger.Warn("job dropped, worker stopped", "job", name)
		return
	}
	select {
	case w.queue <- namedJob{name: name, run: job}:
		w.statsMu.RUnlock()
	default:
		w.statsMu.RUnlock()
		logger.Warn("job queue full, running synchronously", "job", name)
		w.run(name, job)
	}
}

// EnqueueAsync runs a job in a new goroutine, bounded by the async semaphore.
// Jobs submitted after Shutdown are dropped.
func (w *Worker) EnqueueAsync(name string, job Job) {
	if !w.track(name) {
		return
	}
	go func() {
		defer w.wg.Done()
		select {
		case w.asyncSem <- struct{}{}:
		case <-w.ctx.Done():
			return
		}
		defer func() { <-w.asyncSem }()
		w.run(name, job)
	}()
}

// track registers a goroutine with the wait group unless the worker is stopped.
// The read lock keeps wg.Add from racing the wg.Wait in Shutdown.
func (w *Worker) track(name string) bool {
	w.statsMu.RLock()
	defer w.statsMu.RUnlock()
	if w.closed {
		logger.Warn("job dropped, worker stopped", "job", name)
		return false
	}
	w.wg.Add(1)
	return true
}

func (w *Worker) process(workerID int) {
	defer w.wg.Done()
	for {
		select {
		case <-w.ctx.Done():
			return
		case j, ok := <-w.queue:
			if !ok {
				return
			}
			logger.Debug("job picked", "worker", workerID, "job", j.name)
			w.run(j.name, j.run)
		}
	}
}

// ScheduleEvery runs a job at fixed intervals. The first run happens after one interval.
func (w *Worker) ScheduleEvery(name string, interval time.Duration, job Job) {
	w.schedule(name, interval, false, job)
}

// ScheduleEveryImmediate runs a job once at startup, then at fixed intervals.
func (w *Worker) ScheduleEveryImmediate(name string, interval time.Duration, job Job) {
	w.schedule(name, interval, true, job)
}

func (w *Worker) schedule(name string, interval time.Duration, immediate bool, job Job) {
	if !w.track(name) {
		return
	}
	go func() {
		defer w.wg.Done()
		if immediate {
			w.run(name, job)
		}
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-w.ctx.Done():
				return
			case <-ticker.C:
				w.run(name, job)
			}
		}
	}()
}

// ScheduleAt runs a job once at a specific time
func (w *Worker) ScheduleAt(name string, at time.Time, job Job) {
	if !w.track(name) {
		return
	}
	go func() {
		defer w.wg.Done()
		timer := time.NewTimer(time.Until(at))
		defer timer.Stop()

		select {
		case <-w.ctx.Done():
			return
		case <-timer.C:
			w.run(name, job)
		}
	}()
}

// run executes a job with panic recovery and records its outcome.
func (w *Worker) run(name string, job Job) {
	w.trackJobStart()
	start := time.Now()

	var err error
	func() {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("panic: %v", r)
			}
		}()
		err = job(w.ctx)
	}()

	elapsed := time.Since(start)
	w.trackJobEnd(name, start, elapsed, err)
	if err != nil {
		logger.Error("job failed", "job", name, "duration", elapsed, "error", err)
		return
	}
	logger.Info("job completed", "job", name, "duration", elapsed)
}

// Shutdown gracefully stops all workers
func (w *Worker) Shutdown() {
	w.statsMu.Lock()
	if w.closed {
		w.statsMu.Unlock()
		return
	}
	w.closed = true
	w.statsMu.Unlock()

	w.cancel()
	close(w.queue)
	w.wg.Wait()
}

// Context returns the worker's context for checking cancellation
func (w *Worker) Context() context.Context {
	return w.ctx
}

// GetStats returns a snapshot of the worker statistics
func (w *Worker) GetStats() WorkerStats {
	w.statsMu.RLock()
	defer w.statsMu.RUnlock()
	stats := w.stats
	stats.QueueLength = len(w.queue)
	stats.MaxConcurrent = w.maxConcurrent
	stats.Jobs = make(map[string]JobStats, len(w.stats.Jobs))
	for k, v := range w.stats.Jobs {
		stats.Jobs[k] = v
	}
	return stats
}

func (w *Worker) trackJobStart() {
	w.statsMu.Lock()
	defer w.statsMu.Unlock()
	w.stats.ActiveJobs++
}

// trackJobEnd counts every finished job in CompletedJobs; failures are also counted in FailedJobs.
func (w *Worker) trackJobEnd(name string, start time.Time, elapsed time.Duration, err error) {
	w.statsMu.Lock()
	defer w.statsMu.Unlock()
	w.stats.ActiveJobs--
	w.stats.CompletedJobs++

	js := w.stats.Jobs[name]
	js.Runs++
	js.LastRunAt = &start
	js.Duration = elapsed.Round(time.Millisecond).String()
	js.LastError = ""
	if err != nil {
		w.stats.FailedJobs++
		js.Failures++
		js.LastError = err.Error()
	}
	w.stats.Jobs[name] = js
}
