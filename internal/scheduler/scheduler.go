package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// DefaultActionTimeout bounds a single action run.
const DefaultActionTimeout = 30 * time.Second

// Action is the side effect a job performs when it fires.
type Action func(ctx context.Context) error

// Scheduler owns a registry of named one-shot timers.
//
// Each name maps to at most one live job. Scheduling a name that is already
// armed moves its fire instant and rebinds its action; the previous timer is
// disarmed. A job runs its action at most once and its name becomes reusable
// as soon as it fires or is cancelled.
type Scheduler struct {
	mu            sync.Mutex
	registry      Registry
	clock         Clock
	logger        zerolog.Logger
	recorder      Recorder
	actionTimeout time.Duration

	running  sync.WaitGroup
	stopOnce sync.Once
	stopped  bool
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithRegistry replaces the default in-memory registry.
func WithRegistry(r Registry) Option {
	return func(s *Scheduler) { s.registry = r }
}

// WithClock replaces the system clock.
func WithClock(c Clock) Option {
	return func(s *Scheduler) { s.clock = c }
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Scheduler) { s.logger = l }
}

// WithRecorder sets the lifecycle event recorder.
func WithRecorder(r Recorder) Option {
	return func(s *Scheduler) { s.recorder = r }
}

// WithActionTimeout bounds how long a fired action may run.
func WithActionTimeout(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.actionTimeout = d
		}
	}
}

// New creates a scheduler.
func New(opts ...Option) *Scheduler {
	s := &Scheduler{
		registry:      NewMemoryRegistry(),
		clock:         SystemClock(),
		logger:        log.With().Str("component", "scheduler").Logger(),
		recorder:      noopRecorder{},
		actionTimeout: DefaultActionTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ScheduleOrReschedule arms a job named name to run action at fireAt.
//
// If fireAt is not in the future nothing is armed, any live job under name is
// disarmed, a warning is logged and false is returned. Otherwise an existing
// job is moved to fireAt with action rebound, or a new one is registered.
func (s *Scheduler) ScheduleOrReschedule(name string, fireAt time.Time, action Action) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		s.logger.Warn().Str("job", name).Msg("scheduler stopped, job not scheduled")
		return false
	}

	now := s.clock.Now()
	if !fireAt.After(now) {
		if job, ok := s.registry.Get(name); ok {
			s.disarmLocked(job)
			s.recorder.JobCancelled()
		}
		s.recorder.JobSkipped()
		s.recorder.SetLiveJobs(len(s.registry.All()))
		s.logger.Warn().
			Str("job", name).
			Time("fire_at", fireAt).
			Msg("fire time is not in the future, job not scheduled")
		return false
	}

	if job, ok := s.registry.Get(name); ok {
		job.timer.Stop()
		job.generation++
		job.fireAt = fireAt
		job.action = action
		job.timer = s.armLocked(job, now)
		s.recorder.JobRescheduled()
		s.logger.Info().Str("job", name).Time("fire_at", fireAt).Msg("job rescheduled")
		return true
	}

	job := &Job{name: name, fireAt: fireAt, action: action}
	job.timer = s.armLocked(job, now)
	s.registry.Set(name, job)
	s.recorder.JobArmed()
	s.recorder.SetLiveJobs(len(s.registry.All()))
	s.logger.Info().Str("job", name).Time("fire_at", fireAt).Msg("job scheduled")
	return true
}

// Cancel disarms and removes the job named name. Unknown, fired and already
// cancelled names are a no-op.
func (s *Scheduler) Cancel(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.registry.Get(name)
	if !ok {
		return
	}
	s.disarmLocked(job)
	s.recorder.JobCancelled()
	s.recorder.SetLiveJobs(len(s.registry.All()))
	s.logger.Info().Str("job", name).Msg("job cancelled")
}

// Exists reports whether a live job is registered under name.
func (s *Scheduler) Exists(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.registry.Exists(name)
}

// Get returns a snapshot of the live job registered under name.
func (s *Scheduler) Get(name string) (ScheduledJob, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.registry.Get(name)
	if !ok {
		return ScheduledJob{}, false
	}
	return ScheduledJob{Name: job.name, FireAt: job.fireAt}, true
}

// Jobs returns snapshots of all live jobs.
func (s *Scheduler) Jobs() []ScheduledJob {
	s.mu.Lock()
	defer s.mu.Unlock()

	jobs := s.registry.All()
	out := make([]ScheduledJob, len(jobs))
	for i, job := range jobs {
		out[i] = ScheduledJob{Name: job.name, FireAt: job.fireAt}
	}
	return out
}

// Stop disarms every job, rejects further scheduling and waits for running
// actions to return.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		s.mu.Lock()
		s.stopped = true
		jobs := s.registry.All()
		for _, job := range jobs {
			s.disarmLocked(job)
		}
		s.recorder.SetLiveJobs(0)
		s.mu.Unlock()

		s.logger.Info().Int("disarmed", len(jobs)).Msg("scheduler stopped")
		s.running.Wait()
	})
}

func (s *Scheduler) armLocked(job *Job, now time.Time) Timer {
	generation := job.generation
	return s.clock.AfterFunc(job.fireAt.Sub(now), func() {
		s.fire(job, generation)
	})
}

func (s *Scheduler) disarmLocked(job *Job) {
	job.timer.Stop()
	job.generation++
	s.registry.Remove(job.name)
}

// fire runs the job action if the timer that called it is still the one the
// job is armed with.
func (s *Scheduler) fire(job *Job, generation uint64) {
	s.mu.Lock()
	current, ok := s.registry.Get(job.name)
	if s.stopped || !ok || current != job || job.generation != generation {
		s.mu.Unlock()
		return
	}
	s.registry.Remove(job.name)
	action := job.action
	s.running.Add(1)
	s.recorder.SetLiveJobs(len(s.registry.All()))
	s.mu.Unlock()

	defer s.running.Done()

	if err := s.run(job.name, action); err != nil {
		s.recorder.JobFailed()
		s.logger.Error().Err(err).Str("job", job.name).Msg("job action failed")
		return
	}
	s.recorder.JobFired()
	s.logger.Info().Str("job", job.name).Msg("job fired")
}

func (s *Scheduler) run(name string, action Action) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job %s panicked: %v", name, r)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), s.actionTimeout)
	defer cancel()

	return action(ctx)
}
