package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
)

var ErrInvalidInterval = errors.New("scheduler: interval must be positive")

// Job describes one periodic chain: Run fires after InitialDelay and then
// every Interval. Runs never overlap; a tick that arrives while Run is still
// busy is skipped, so a hung Run stalls the chain until it returns.
type Job struct {
	Name         string
	InitialDelay time.Duration
	Interval     time.Duration
	Run          func(ctx context.Context)
}

// Scheduler owns a single gocron scheduler running one Job.
type Scheduler struct {
	scheduler *gocron.Scheduler
	job       Job
	log       *slog.Logger

	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	started bool
}

// New creates a new Scheduler.
func New(job Job, log *slog.Logger) *Scheduler {
	if log == nil {
		log = slog.Default()
	}
	s := gocron.NewScheduler(time.UTC)
	s.SetMaxConcurrentJobs(1, gocron.RescheduleMode)

	return &Scheduler{
		scheduler: s,
		job:       job,
		log:       log.With("job", job.Name),
	}
}

// Start arms the chain. The context handed to Run is cancelled by Stop.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.job.Interval <= 0 {
		return fmt.Errorf("%w: %s", ErrInvalidInterval, s.job.Name)
	}
	if s.job.Run == nil {
		return fmt.Errorf("scheduler: job %s has no run function", s.job.Name)
	}

	s.ctx, s.cancel = context.WithCancel(context.Background())
	ctx := s.ctx

	delay := s.job.InitialDelay
	if delay < 0 {
		delay = 0
	}

	sched := s.scheduler.Every(s.job.Interval)
	if delay > 0 {
		sched = sched.StartAt(time.Now().Add(delay))
	} else {
		sched = sched.StartImmediately()
	}

	_, err := sched.Do(func() {
		if ctx.Err() != nil {
			return
		}
		s.log.Debug("scheduler: running job")
		s.job.Run(ctx)
	})
	if err != nil {
		s.cancel()
		return fmt.Errorf("scheduler: schedule %s: %w", s.job.Name, err)
	}

	s.scheduler.StartAsync()
	s.started = true
	s.log.Info("scheduler: armed", "initial_delay", delay, "interval", s.job.Interval)
	return nil
}

// Stop cancels the running job's context and disarms the chain. It is safe
// to call more than once.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	s.cancel()
	s.scheduler.Stop()
	s.scheduler.Clear()
	s.started = false
	s.log.Info("scheduler: stopped")
}

// Running reports whether the chain is armed.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.started
}
