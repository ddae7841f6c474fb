// Package scheduler implements C11: single-shot or continuous
// execution of the collector, interval-paced in one-second increments
// so a shutdown signal is observed promptly, grounded on the
// teacher's ticker/cancel/done background-loop shape (spec.md §4.6).
package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/luckymifta/dash-atm-collector/internal/collector"
)

// historyLimit is the ring buffer size of spec.md §4.6 ("the last 50 cycles").
const historyLimit = 50

// Scheduler drives a Collector either once or on a repeating interval.
type Scheduler struct {
	coll     *collector.Collector
	interval time.Duration
	logger   zerolog.Logger

	history []collector.Result

	cancel context.CancelFunc
	done   chan struct{}
}

// New builds a Scheduler over the given Collector and cycle interval.
func New(coll *collector.Collector, interval time.Duration, logger zerolog.Logger) *Scheduler {
	return &Scheduler{
		coll:     coll,
		interval: interval,
		logger:   logger.With().Str("component", "scheduler").Logger(),
		done:     make(chan struct{}),
	}
}

// RunOnce executes a single cycle and returns its result (spec.md §6:
// single-shot mode).
func (s *Scheduler) RunOnce(ctx context.Context) collector.Result {
	res := s.coll.RunCycle(ctx)
	s.record(res)
	return res
}

// RunContinuous loops cycles until ctx is cancelled, pacing each
// iteration to s.interval by sleeping in one-second increments so a
// cancellation is observed within a second (spec.md §6). If a cycle's
// own duration exceeds the interval, the next cycle starts
// immediately and a warning is logged.
func (s *Scheduler) RunContinuous(ctx context.Context) {
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	defer close(s.done)

	for {
		if runCtx.Err() != nil {
			return
		}

		cycleStart := time.Now()
		res := s.coll.RunCycle(runCtx)
		s.record(res)
		elapsed := time.Since(cycleStart)

		remaining := s.interval - elapsed
		if remaining <= 0 {
			s.logger.Warn().Dur("cycle_duration", elapsed).Dur("interval", s.interval).Msg("cycle exceeded configured interval, starting next cycle immediately")
			continue
		}

		if !s.sleepInSteps(runCtx, remaining) {
			return
		}
	}
}

// sleepInSteps sleeps for d in one-second increments, returning false
// if ctx was cancelled before the sleep completed.
func (s *Scheduler) sleepInSteps(ctx context.Context, d time.Duration) bool {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return false
		case <-ticker.C:
		}
	}
	return true
}

// Stop requests RunContinuous to exit after its current sleep step and
// blocks until it does.
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	<-s.done
}

// History returns the most recent cycle results, oldest first, capped
// at historyLimit entries.
func (s *Scheduler) History() []collector.Result {
	out := make([]collector.Result, len(s.history))
	copy(out, s.history)
	return out
}

func (s *Scheduler) record(res collector.Result) {
	s.history = append(s.history, res)
	if len(s.history) > historyLimit {
		s.history = s.history[len(s.history)-historyLimit:]
	}
}
