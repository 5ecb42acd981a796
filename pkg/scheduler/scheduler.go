package scheduler

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/vnykmshr/workq/pkg/common/validation"
	"github.com/vnykmshr/workq/pkg/metrics"
	"github.com/vnykmshr/workq/pkg/workerpool"
)

// Scheduler fires tasks into a worker pool on cron schedules.
//
// The scheduler itself never executes tasks: every firing becomes a
// submission to the backing pool, so scheduled work shares the pool's
// queue, backpressure, and shutdown semantics with directly submitted
// tasks.
type Scheduler interface {
	// Schedule registers a task to be submitted on the given cron spec.
	// Supports the six-field format with seconds ("*/5 * * * * *") and
	// descriptors ("@hourly", "@every 30s").
	Schedule(spec string, task workerpool.Task) (cron.EntryID, error)

	// Remove deletes a scheduled entry. Firings already submitted to the
	// pool are unaffected.
	Remove(id cron.EntryID)

	// Entries returns a snapshot of the registered entries.
	Entries() []cron.Entry

	// Start begins firing schedules. Safe to call before or after
	// entries are registered.
	Start()

	// Stop halts future firings. The returned context is done once any
	// in-flight submissions have been handed to the pool. Stop does not
	// shut down the backing pool.
	Stop() context.Context

	// Firings returns the total number of schedule firings so far.
	Firings() int64

	// Misfires returns the number of firings whose pool submission
	// failed (pool shut down, submit timeout).
	Misfires() int64
}

// Config configures a Scheduler.
type Config struct {
	// Name identifies the scheduler in metrics. Defaults to "default".
	Name string

	// Location sets the timezone for cron evaluation. Defaults to
	// time.Local.
	Location *time.Location

	// SubmitTimeout bounds how long a firing may block on a full pool
	// queue. Zero means block until the pool accepts the task.
	SubmitTimeout time.Duration

	// OnSubmitError is called when a firing cannot be submitted to the
	// pool. The entry stays registered and fires again on schedule.
	OnSubmitError func(id cron.EntryID, task workerpool.Task, err error)

	// Metrics controls Prometheus instrumentation.
	Metrics metrics.Config
}

type scheduler struct {
	pool   workerpool.Pool
	cron   *cron.Cron
	config Config

	firings  int64
	misfires int64

	registry *metrics.Registry
}

// New creates a scheduler feeding the given pool, with default configuration.
func New(pool workerpool.Pool) (Scheduler, error) {
	return NewWithConfig(pool, Config{})
}

// NewWithConfig creates a scheduler with custom configuration.
func NewWithConfig(pool workerpool.Pool, config Config) (Scheduler, error) {
	if err := validation.ValidateNotNil("scheduler", "pool", pool); err != nil {
		return nil, err
	}
	if config.SubmitTimeout < 0 {
		return nil, validation.ValidateNonNegative("scheduler", "SubmitTimeout", int(config.SubmitTimeout))
	}

	if config.Name == "" {
		config.Name = "default"
	}
	if config.Location == nil {
		config.Location = time.Local
	}

	parser := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

	s := &scheduler{
		pool: pool,
		cron: cron.New(
			cron.WithParser(parser),
			cron.WithLocation(config.Location),
		),
		config: config,
	}

	if config.Metrics.Enabled {
		if config.Metrics.Registry != nil {
			s.registry = metrics.NewRegistry(config.Metrics.Registry)
		} else {
			s.registry = metrics.DefaultRegistry
		}
	}

	return s, nil
}

// entryJob carries its own entry ID so firings can report it. The ID is
// only known after registration; a firing that lands in the window
// between registration and the ID store waits on ready so it never
// reports a zero ID.
type entryJob struct {
	s     *scheduler
	task  workerpool.Task
	id    atomic.Int64
	ready chan struct{}
}

func (j *entryJob) Run() {
	<-j.ready
	j.s.fire(cron.EntryID(j.id.Load()), j.task)
}

func (s *scheduler) Schedule(spec string, task workerpool.Task) (cron.EntryID, error) {
	if task == nil {
		return 0, fmt.Errorf("task cannot be nil")
	}
	if spec == "" {
		return 0, fmt.Errorf("cron spec cannot be empty")
	}

	job := &entryJob{s: s, task: task, ready: make(chan struct{})}
	entryID, err := s.cron.AddJob(spec, job)
	if err != nil {
		return 0, fmt.Errorf("invalid cron spec %q: %w", spec, err)
	}
	job.id.Store(int64(entryID))
	close(job.ready)

	if s.registry != nil {
		s.registry.ScheduledEntries.WithLabelValues(s.config.Name).Set(float64(len(s.cron.Entries())))
	}

	return entryID, nil
}

// fire submits one schedule firing to the pool.
func (s *scheduler) fire(id cron.EntryID, task workerpool.Task) {
	atomic.AddInt64(&s.firings, 1)
	if s.registry != nil {
		s.registry.ScheduledFirings.WithLabelValues(s.config.Name).Inc()
	}

	var err error
	if s.config.SubmitTimeout > 0 {
		err = s.pool.SubmitWithTimeout(task, s.config.SubmitTimeout)
	} else {
		err = s.pool.Submit(task)
	}
	if err == nil {
		return
	}

	atomic.AddInt64(&s.misfires, 1)
	if s.registry != nil {
		s.registry.ScheduledMisfires.WithLabelValues(s.config.Name).Inc()
	}
	if s.config.OnSubmitError != nil {
		s.config.OnSubmitError(id, task, err)
	}
}

func (s *scheduler) Remove(id cron.EntryID) {
	s.cron.Remove(id)
	if s.registry != nil {
		s.registry.ScheduledEntries.WithLabelValues(s.config.Name).Set(float64(len(s.cron.Entries())))
	}
}

func (s *scheduler) Entries() []cron.Entry {
	return s.cron.Entries()
}

func (s *scheduler) Start() {
	s.cron.Start()
}

func (s *scheduler) Stop() context.Context {
	return s.cron.Stop()
}

func (s *scheduler) Firings() int64 {
	return atomic.LoadInt64(&s.firings)
}

func (s *scheduler) Misfires() int64 {
	return atomic.LoadInt64(&s.misfires)
}
