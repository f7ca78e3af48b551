package handler

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"closingbinder/internal/binder"
)

// jobTTL is how long a finished build stays claimable before the
// registry drops it.
const jobTTL = 30 * time.Minute

// buildJob tracks one asynchronous binder assembly.
type buildJob struct {
	ID        string
	ProjectID string
	UserID    string

	events chan binder.Event
	done   chan struct{}

	mu       sync.Mutex
	result   *binder.Result
	err      error
	finished time.Time
}

func (j *buildJob) finish(result *binder.Result, err error) {
	j.mu.Lock()
	j.result = result
	j.err = err
	j.finished = time.Now()
	j.mu.Unlock()
	close(j.done)
}

func (j *buildJob) outcome() (*binder.Result, error, bool) {
	select {
	case <-j.done:
	default:
		return nil, nil, false
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.result, j.err, true
}

// push queues a progress event, dropping it if no consumer keeps up.
// Progress is advisory; a lost event only makes the bar jump.
func (j *buildJob) push(ev binder.Event) {
	select {
	case j.events <- ev:
	default:
	}
}

// JobRegistry owns in-flight and recently finished binder builds.
type JobRegistry struct {
	mu   sync.Mutex
	jobs map[string]*buildJob
}

func NewJobRegistry() *JobRegistry {
	return &JobRegistry{jobs: make(map[string]*buildJob)}
}

// Start registers a job and runs fn in the background. fn receives a
// progress callback wired to the job's event stream.
func (r *JobRegistry) Start(projectID, userID string, fn func(ctx context.Context, progress binder.ProgressFunc) (*binder.Result, error)) *buildJob {
	job := &buildJob{
		ID:        uuid.NewString(),
		ProjectID: projectID,
		UserID:    userID,
		events:    make(chan binder.Event, 64),
		done:      make(chan struct{}),
	}

	r.mu.Lock()
	r.sweepLocked()
	r.jobs[job.ID] = job
	r.mu.Unlock()

	go func() {
		// Builds outlive the request that started them
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()

		result, err := fn(ctx, func(percent int, step string) {
			job.push(binder.Event{Percent: percent, Step: step})
		})
		job.finish(result, err)
	}()

	return job
}

// Get returns a job by ID, or nil.
func (r *JobRegistry) Get(id string) *buildJob {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.jobs[id]
}

// sweepLocked drops finished jobs past their TTL. Caller holds mu.
func (r *JobRegistry) sweepLocked() {
	now := time.Now()
	for id, job := range r.jobs {
		job.mu.Lock()
		expired := !job.finished.IsZero() && now.Sub(job.finished) > jobTTL
		job.mu.Unlock()
		if expired {
			delete(r.jobs, id)
		}
	}
}
