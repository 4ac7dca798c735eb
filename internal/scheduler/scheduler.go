// Package scheduler runs background jobs immediately or at a future time.
// Jobs are in-memory only: nothing is persisted, a process restart loses
// every pending job, and each job runs at most once. Failures inside a job
// are logged and never reach the code that scheduled it.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Job is a unit of background work. A returned error is logged at error
// level and otherwise has no effect.
type Job func(ctx context.Context) error

// Scheduler tracks every in-flight job so shutdown can wait, bounded by a
// grace period, for outstanding work to finish. The handle map is private
// state; no other component reads or mutates it.
type Scheduler struct {
	logger *zap.Logger

	mu       sync.Mutex
	inflight map[uuid.UUID]string
	wg       sync.WaitGroup

	stopOnce sync.Once
	stopChan chan struct{}
}

func New(logger *zap.Logger) *Scheduler {
	return &Scheduler{
		logger:   logger,
		inflight: map[uuid.UUID]string{},
		stopChan: make(chan struct{}),
	}
}

// Enqueue starts the job immediately on its own goroutine.
func (s *Scheduler) Enqueue(name string, job Job) {
	id := s.register(name)
	go func() {
		defer s.release(id)
		s.run(id, name, job)
	}()
}

// ScheduleAt runs the job once the given time is reached. A time in the
// past means the job runs immediately. There is no cancellation handle:
// once scheduled, the job fires unless the scheduler shuts down first.
func (s *Scheduler) ScheduleAt(name string, runAt time.Time, job Job) {
	delay := time.Until(runAt)
	if delay < 0 {
		delay = 0
	}

	id := s.register(name)
	s.logger.Debug("Job scheduled",
		zap.String("job", name),
		zap.String("handle", id.String()),
		zap.Time("run_at", runAt),
		zap.Duration("delay", delay),
	)

	go func() {
		defer s.release(id)

		timer := time.NewTimer(delay)
		defer timer.Stop()

		select {
		case <-timer.C:
		case <-s.stopChan:
			s.logger.Info("Pending job dropped on shutdown", zap.String("job", name))
			return
		}

		s.run(id, name, job)
	}()
}

// Shutdown stops accepting timer waits and blocks until all in-flight jobs
// finish or the grace period runs out.
func (s *Scheduler) Shutdown(grace time.Duration) {
	s.stopOnce.Do(func() { close(s.stopChan) })

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Scheduler drained")
	case <-time.After(grace):
		s.logger.Warn("Scheduler shutdown grace period expired",
			zap.Int("jobs_still_running", s.InFlight()))
	}
}

// InFlight returns the number of registered job handles.
func (s *Scheduler) InFlight() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.inflight)
}

func (s *Scheduler) register(name string) uuid.UUID {
	id := uuid.New()
	s.mu.Lock()
	s.inflight[id] = name
	s.mu.Unlock()
	s.wg.Add(1)
	return id
}

// release reaps the handle of a finished or dropped job.
func (s *Scheduler) release(id uuid.UUID) {
	s.mu.Lock()
	delete(s.inflight, id)
	s.mu.Unlock()
	s.wg.Done()
}

func (s *Scheduler) run(id uuid.UUID, name string, job Job) {
	defer func() {
		if rec := recover(); rec != nil {
			s.logger.Error("Job panicked",
				zap.String("job", name),
				zap.String("handle", id.String()),
				zap.Any("panic", rec),
			)
		}
	}()

	if err := job(context.Background()); err != nil {
		s.logger.Error("Job failed",
			zap.String("job", name),
			zap.String("handle", id.String()),
			zap.Error(err),
		)
	}
}
