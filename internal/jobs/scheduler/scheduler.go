package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/yungbote/deskbase-backend/internal/observability"
	"github.com/yungbote/deskbase-backend/internal/platform/logger"
	"github.com/yungbote/deskbase-backend/internal/platform/redisx"
)

const defaultJobTimeout = 5 * time.Minute

// Job is a named periodic task. Spec uses the standard five-field cron syntax
// or descriptors such as "@hourly" and "@every 1m".
type Job struct {
	Name    string
	Spec    string
	Timeout time.Duration
	Run     func(ctx context.Context) error
	// Local jobs touch only in-process state and skip the cluster lock.
	Local bool
}

type Scheduler struct {
	log     *logger.Logger
	metrics *observability.Metrics
	cron    *cron.Cron
	locker  redisx.Locker

	mu      sync.Mutex
	jobs    map[string]Job
	ctx     context.Context
	cancel  context.CancelFunc
	started bool
}

func New(log *logger.Logger, metrics *observability.Metrics) *Scheduler {
	l := log.With("component", "Scheduler")
	cl := cronLogger{log: l}
	return &Scheduler{
		log:     l,
		metrics: metrics,
		cron: cron.New(
			cron.WithLocation(time.UTC),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
			cron.WithLogger(cl),
		),
		jobs: make(map[string]Job),
	}
}

// UseLocker makes every non-local job take a lock named after it first, so
// only one replica runs a job at a time. Replicas that find the lock taken
// skip the run. Call before Start.
func (s *Scheduler) UseLocker(l redisx.Locker) {
	s.mu.Lock()
	s.locker = l
	s.mu.Unlock()
}

func (s *Scheduler) Add(job Job) error {
	if job.Name == "" || job.Run == nil {
		return fmt.Errorf("scheduler: job needs a name and a run func")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := s.jobs[job.Name]; dup {
		return fmt.Errorf("scheduler: duplicate job %q", job.Name)
	}
	if _, err := s.cron.AddFunc(job.Spec, func() { _ = s.execute(s.runContext(), job) }); err != nil {
		return fmt.Errorf("scheduler: job %q: %w", job.Name, err)
	}
	s.jobs[job.Name] = job
	return nil
}

// Start runs the registered jobs until Stop is called or ctx ends.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return
	}
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.started = true
	s.mu.Unlock()

	s.cron.Start()
	s.log.Info("Scheduler started", "jobs", len(s.jobs))
}

// Stop cancels running jobs and waits for them to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	cancel := s.cancel
	s.mu.Unlock()

	cancel()
	<-s.cron.Stop().Done()
	s.log.Info("Scheduler stopped")
}

// RunNow executes a registered job synchronously, outside its schedule.
func (s *Scheduler) RunNow(ctx context.Context, name string) error {
	s.mu.Lock()
	job, ok := s.jobs[name]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("scheduler: unknown job %q", name)
	}
	return s.execute(ctx, job)
}

func (s *Scheduler) runContext() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ctx == nil {
		return context.Background()
	}
	return s.ctx
}

func (s *Scheduler) execute(ctx context.Context, job Job) (err error) {
	timeout := job.Timeout
	if timeout <= 0 {
		timeout = defaultJobTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	s.mu.Lock()
	locker := s.locker
	s.mu.Unlock()
	if locker != nil && !job.Local {
		release, err := locker.Acquire(ctx, "job:"+job.Name, timeout)
		if errors.Is(err, redisx.ErrLockHeld) {
			s.log.Debug("Scheduled job skipped, running elsewhere", "job", job.Name)
			return nil
		}
		if err != nil {
			s.metrics.IncSchedulerRun(job.Name, err)
			return fmt.Errorf("lock job %s: %w", job.Name, err)
		}
		defer release()
	}

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job %s panicked: %v", job.Name, r)
		}
		s.metrics.IncSchedulerRun(job.Name, err)
		if err != nil {
			s.log.Error("Scheduled job failed", "job", job.Name, "error", err, "duration_ms", time.Since(start).Milliseconds())
			return
		}
		s.log.Debug("Scheduled job done", "job", job.Name, "duration_ms", time.Since(start).Milliseconds())
	}()
	return job.Run(ctx)
}

type cronLogger struct {
	log *logger.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error(msg, append(keysAndValues, "error", err)...)
}
