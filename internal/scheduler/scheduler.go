// Package scheduler runs a callback repeatedly with a fixed gap between the
// end of one run and the start of the next.
package scheduler

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

// Scheduler rearms after completion: a slow callback pushes the next run
// out instead of overlapping it, so two cycles can never execute at once
// and there is no catch-up after a stall. The callback owns its own error
// handling; the loop never stops on its behalf.
type Scheduler struct {
	period time.Duration
	fn     func()
	logger *logrus.Logger

	started atomic.Bool
	stop    chan struct{}
	done    chan struct{}

	startOnce sync.Once
	stopOnce  sync.Once
}

func New(period time.Duration, logger *logrus.Logger, fn func()) *Scheduler {
	return &Scheduler{
		period: period,
		fn:     fn,
		logger: logger,
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// Start launches the loop. The first invocation fires immediately; each
// completed invocation arms the next one period later. Subsequent calls are
// no-ops, so a broker reconnect cannot spawn a second loop.
func (s *Scheduler) Start() {
	s.startOnce.Do(func() {
		s.started.Store(true)
		s.logger.Debugf("Starting scheduler with period %s", s.period)
		go s.loop()
	})
}

// Stop cancels the pending invocation and blocks until the loop has exited.
// An in-flight callback finishes naturally; nothing is armed after Stop
// returns.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		close(s.stop)
	})
	if s.started.Load() {
		<-s.done
	}
}

func (s *Scheduler) loop() {
	defer close(s.done)
	for {
		select {
		case <-s.stop:
			return
		default:
		}

		s.fn()

		timer := time.NewTimer(s.period)
		select {
		case <-s.stop:
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}
