package scheduler

import (
	"sort"
	"sync"
	"time"
)

// Job is one armed one-shot timer. Its fields are owned by the Scheduler and
// only mutated while the Scheduler lock is held.
type Job struct {
	name       string
	fireAt     time.Time
	action     Action
	timer      Timer
	generation uint64
}

// Name returns the job name.
func (j *Job) Name() string { return j.name }

// FireAt returns the instant the job is armed for.
func (j *Job) FireAt() time.Time { return j.fireAt }

// ScheduledJob is a read-only snapshot of a live job.
type ScheduledJob struct {
	Name   string    `json:"name"`
	FireAt time.Time `json:"fire_at"`
}

// Registry stores live jobs by name.
// Implementations must be safe for concurrent use; compound
// lookup-then-register sequences are serialised by the Scheduler.
type Registry interface {
	Get(name string) (*Job, bool)
	Set(name string, job *Job)
	Exists(name string) bool
	Remove(name string)
	All() []*Job
}

// MemoryRegistry is a mutex-guarded in-process Registry.
type MemoryRegistry struct {
	mu   sync.RWMutex
	jobs map[string]*Job
}

// NewMemoryRegistry creates an empty registry.
func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{jobs: make(map[string]*Job)}
}

func (r *MemoryRegistry) Get(name string) (*Job, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	job, ok := r.jobs[name]
	return job, ok
}

func (r *MemoryRegistry) Set(name string, job *Job) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.jobs[name] = job
}

func (r *MemoryRegistry) Exists(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.jobs[name]
	return ok
}

func (r *MemoryRegistry) Remove(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.jobs, name)
}

// All returns the live jobs ordered by name.
func (r *MemoryRegistry) All() []*Job {
	r.mu.RLock()
	defer r.mu.RUnlock()

	jobs := make([]*Job, 0, len(r.jobs))
	for _, job := range r.jobs {
		jobs = append(jobs, job)
	}
	sort.Slice(jobs, func(i, k int) bool { return jobs[i].name < jobs[k].name })
	return jobs
}

// Ensure MemoryRegistry implements Registry
var _ Registry = (*MemoryRegistry)(nil)
