// Package runner executes download jobs on a single background worker and
// pushes progress to shells over a bounded event channel. One job runs at a
// time; items inside a job are already sequential, so the runner adds
// queueing and observability, not parallelism.
package runner

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"reelgrab/pkg/downloader"
	"reelgrab/pkg/logger"
	"reelgrab/pkg/manifest"
	"reelgrab/pkg/models"
)

const (
	jobQueueSize    = 16
	eventBufferSize = 256
)

// Job is one submitted batch of URLs.
type Job struct {
	ID      string         `json:"id"`
	URLs    []string       `json:"urls"`
	Options models.Options `json:"options"`
}

// JobState is the lifecycle state of a submitted job
type JobState string

const (
	// JobQueued means the job is accepted and waiting for the worker
	JobQueued JobState = "queued"

	// JobRunning means the worker is processing the job
	JobRunning JobState = "running"

	// JobCompleted means the run finished; per-item outcomes live in Summary
	JobCompleted JobState = "completed"

	// JobCancelled means the run was interrupted between items
	JobCancelled JobState = "cancelled"

	// JobFailed means the run itself could not execute
	JobFailed JobState = "failed"
)

// JobStatus is a point-in-time snapshot of a job.
type JobStatus struct {
	ID        string             `json:"id"`
	State     JobState           `json:"state"`
	URLs      []string           `json:"urls"`
	Options   models.Options     `json:"options"`
	Summary   *models.RunSummary `json:"summary,omitempty"`
	Error     string             `json:"error,omitempty"`
	CreatedAt time.Time          `json:"created_at"`
	StartedAt time.Time          `json:"started_at,omitempty"`
	EndedAt   time.Time          `json:"ended_at,omitempty"`
}

// EventType tags what a pushed event carries
type EventType string

const (
	// EventRunStarted opens a job's event stream
	EventRunStarted EventType = "run_started"

	// EventProgress is a run- or item-level progress update
	EventProgress EventType = "progress"

	// EventItemFinished carries one item's terminal record
	EventItemFinished EventType = "item_finished"

	// EventRunFinished closes a job's event stream and carries the summary
	EventRunFinished EventType = "run_finished"
)

// Event is one push-model message emitted while a job runs.
type Event struct {
	JobID   string             `json:"job_id"`
	Type    EventType          `json:"type"`
	URL     string             `json:"url,omitempty"`
	Percent int                `json:"percent,omitempty"`
	Message string             `json:"message,omitempty"`
	Item    *models.MediaItem  `json:"item,omitempty"`
	Summary *models.RunSummary `json:"summary,omitempty"`
	Error   string             `json:"error,omitempty"`
	At      time.Time          `json:"at"`
}

// Runner owns the downloader it is given: jobs must only reach the core
// through Submit so the single-worker guarantee holds.
type Runner struct {
	core      *downloader.Downloader
	manifests *manifest.Manager
	logger    logger.Logger

	jobQueue chan Job
	events   chan Event
	wg       sync.WaitGroup
	ctx      context.Context
	cancel   context.CancelFunc

	mu      sync.RWMutex
	jobs    map[string]*JobStatus
	stopped bool
}

// New creates a runner. The manifest manager may be nil to skip run
// persistence.
func New(core *downloader.Downloader, manifests *manifest.Manager, log logger.Logger) *Runner {
	ctx, cancel := context.WithCancel(context.Background())
	return &Runner{
		core:      core,
		manifests: manifests,
		logger:    log,
		jobQueue:  make(chan Job, jobQueueSize),
		events:    make(chan Event, eventBufferSize),
		ctx:       ctx,
		cancel:    cancel,
		jobs:      make(map[string]*JobStatus),
	}
}

// Start launches the background worker
func (r *Runner) Start() {
	r.logger.Info("Starting job runner")
	r.wg.Add(1)
	go r.worker()
}

// Stop shuts the runner down cooperatively: no new jobs are accepted, the
// queued and in-flight jobs drain, then the event channel closes.
func (r *Runner) Stop() {
	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return
	}
	r.stopped = true
	r.mu.Unlock()

	r.logger.Info("Stopping job runner...")
	close(r.jobQueue)
	r.wg.Wait()
	close(r.events)
	r.cancel()
	r.logger.Info("Job runner stopped")
}

// Submit queues a job and returns its id. It never blocks: a full queue is
// reported as an error so shells can push back instead of hanging.
func (r *Runner) Submit(urls []string, opts models.Options) (string, error) {
	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return "", fmt.Errorf("runner is shutting down")
	}

	job := Job{ID: newJobID(), URLs: urls, Options: opts.Normalized()}
	r.jobs[job.ID] = &JobStatus{
		ID:        job.ID,
		State:     JobQueued,
		URLs:      urls,
		Options:   job.Options,
		CreatedAt: time.Now(),
	}
	r.mu.Unlock()

	select {
	case r.jobQueue <- job:
		r.logger.DebugWithFields("Job submitted", map[string]interface{}{
			"job_id": job.ID,
			"urls":   len(urls),
		})
		return job.ID, nil
	default:
		r.mu.Lock()
		delete(r.jobs, job.ID)
		r.mu.Unlock()
		return "", fmt.Errorf("job queue is full")
	}
}

// Status returns a snapshot of one job.
func (r *Runner) Status(id string) (JobStatus, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	status, ok := r.jobs[id]
	if !ok {
		return JobStatus{}, false
	}
	return *status, true
}

// Events returns the channel shells drain for push-model progress
func (r *Runner) Events() <-chan Event {
	return r.events
}

// QueueDepth returns the number of jobs waiting for the worker
func (r *Runner) QueueDepth() int {
	return len(r.jobQueue)
}

func (r *Runner) worker() {
	defer r.wg.Done()

	for job := range r.jobQueue {
		select {
		case <-r.ctx.Done():
			return
		default:
		}
		r.runJob(job)
	}
}

func (r *Runner) runJob(job Job) {
	r.setStatus(job.ID, func(s *JobStatus) {
		s.State = JobRunning
		s.StartedAt = time.Now()
	})
	r.emit(Event{
		JobID:   job.ID,
		Type:    EventRunStarted,
		Message: fmt.Sprintf("Processing %d URL(s)", len(job.URLs)),
	})

	r.core.SetProgressFunc(func(url string, percent int, message string) {
		r.emit(Event{
			JobID:   job.ID,
			Type:    EventProgress,
			URL:     url,
			Percent: percent,
			Message: message,
		})
	})

	summary, err := r.core.Run(r.ctx, job.URLs, job.Options)

	state := JobCompleted
	errText := ""
	if err != nil {
		errText = err.Error()
		if stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) {
			state = JobCancelled
		} else {
			state = JobFailed
		}
	}
	r.setStatus(job.ID, func(s *JobStatus) {
		s.State = state
		s.Summary = summary
		s.Error = errText
		s.EndedAt = time.Now()
	})

	if summary != nil {
		for _, item := range summary.Items {
			r.emit(Event{
				JobID: job.ID,
				Type:  EventItemFinished,
				URL:   item.SourceURL,
				Item:  item,
			})
		}
		if r.manifests != nil {
			if err := r.manifests.Save(manifest.FromSummary(job.ID, job.Options, summary)); err != nil {
				r.logger.WarnWithFields("Could not persist run manifest", map[string]interface{}{
					"job_id": job.ID,
					"error":  err.Error(),
				})
			}
		}
	}

	r.emit(Event{
		JobID:   job.ID,
		Type:    EventRunFinished,
		Summary: summary,
		Error:   errText,
	})
	r.logger.InfoWithFields("Job finished", map[string]interface{}{
		"job_id": job.ID,
		"state":  string(state),
	})
}

func (r *Runner) setStatus(id string, update func(*JobStatus)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if status, ok := r.jobs[id]; ok {
		update(status)
	}
}

// emit pushes an event without ever blocking the worker. When the shell
// falls behind the buffered channel, progress events are dropped; job state
// stays authoritative in the status map.
func (r *Runner) emit(event Event) {
	event.At = time.Now()
	select {
	case r.events <- event:
	default:
		r.logger.DebugWithFields("Dropped event, consumer too slow", map[string]interface{}{
			"job_id": event.JobID,
			"type":   string(event.Type),
		})
	}
}

// newJobID returns a time-ordered unique id so listings sort naturally.
func newJobID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return fmt.Sprintf("job-%d", time.Now().UnixNano())
	}
	return id.String()
}
