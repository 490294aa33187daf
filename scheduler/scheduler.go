// SPDX-License-Identifier: GPL-3.0-or-later
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/CrawX/go-imap-triage/log"
	"github.com/CrawX/go-imap-triage/metrics"

	"github.com/sirupsen/logrus"
)

// RunFunc executes one triage cycle.
type RunFunc func(ctx context.Context) error

type Option func(s *Scheduler)

// RunAtStartup makes Start run once immediately instead of waiting for the
// first tick.
func RunAtStartup() Option {
	return func(s *Scheduler) {
		s.runAtStartup = true
	}
}

type Scheduler struct {
	run          RunFunc
	interval     time.Duration
	runAtStartup bool
	guard        *RunGuard

	// mu orders wg.Add against stopping, so Wait sees every accepted run
	mu      sync.Mutex
	stopped bool
	wg      sync.WaitGroup

	l *logrus.Logger
}

func NewScheduler(run RunFunc, interval time.Duration, opts ...Option) (*Scheduler, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("interval must be positive, got %v", interval)
	}

	s := &Scheduler{
		run:      run,
		interval: interval,
		guard:    &RunGuard{},
		l:        log.Logger(log.LOG_SCHEDULER),
	}
	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

// Start ticks every interval until ctx is done. Start blocks, in-flight runs
// are not waited for. Runs keep the values of ctx but not its cancellation.
// Once Start returns no further runs are accepted.
func (s *Scheduler) Start(ctx context.Context) {
	runCtx := context.WithoutCancel(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.l.WithFields(logrus.Fields{"interval": s.interval, "runatstartup": s.runAtStartup}).Info("Scheduler started")
	if s.runAtStartup {
		s.tryStart(runCtx, "startup")
	}

	for {
		select {
		case <-ctx.Done():
			s.stop()
			s.l.Info("Scheduler stopped")
			return
		case <-ticker.C:
			s.tryStart(runCtx, "timer")
		}
	}
}

// Trigger requests an immediate run. It returns false without waiting if a
// run is already executing or the scheduler has stopped.
func (s *Scheduler) Trigger() bool {
	return s.tryStart(context.Background(), "manual")
}

func (s *Scheduler) Running() bool {
	return s.guard.Running()
}

// Wait blocks until all started runs have finished.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

func (s *Scheduler) stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
}

func (s *Scheduler) tryStart(ctx context.Context, source string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		s.l.WithField("source", source).Info("Scheduler stopped, not starting run")
		return false
	}

	if !s.guard.TryAcquire() {
		metrics.RunsRejected.Inc()
		s.l.WithField("source", source).Info("Run already in progress, skipping")
		return false
	}

	s.wg.Add(1)
	go s.execute(ctx, source)
	return true
}

func (s *Scheduler) execute(ctx context.Context, source string) {
	start := time.Now()
	metrics.RunInProgress.Set(1)
	outcome := metrics.OutcomePanic

	defer s.wg.Done()
	defer s.guard.Release()
	defer func() {
		metrics.RunInProgress.Set(0)
		metrics.RunDuration.Observe(time.Since(start).Seconds())
		metrics.RunsTotal.WithLabelValues(outcome).Inc()
		if r := recover(); r != nil {
			s.l.WithFields(logrus.Fields{"source": source, "panic": r}).Error("Run panicked")
		}
	}()

	baseLogger := s.l.WithField("source", source)
	baseLogger.Debug("Run started")

	err := s.run(ctx)
	if err != nil {
		outcome = metrics.OutcomeError
		baseLogger.WithFields(logrus.Fields{"duration": time.Since(start), "error": err}).Error("Run failed")
		return
	}

	outcome = metrics.OutcomeSuccess
	baseLogger.WithField("duration", time.Since(start)).Info("Run finished")
}
