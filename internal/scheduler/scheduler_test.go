package scheduler

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.FatalLevel)
	return logger
}

func TestFiresImmediatelyAndPeriodically(t *testing.T) {
	var count atomic.Int32
	s := New(10*time.Millisecond, testLogger(), func() {
		count.Add(1)
	})
	defer s.Stop()

	s.Start()

	time.Sleep(5 * time.Millisecond)
	assert.GreaterOrEqual(t, count.Load(), int32(1), "first invocation fires at t=0")

	time.Sleep(100 * time.Millisecond)
	assert.GreaterOrEqual(t, count.Load(), int32(5))
}

func TestNoOverlap(t *testing.T) {
	var running atomic.Int32
	var overlapped atomic.Bool
	s := New(time.Millisecond, testLogger(), func() {
		if running.Add(1) > 1 {
			overlapped.Store(true)
		}
		time.Sleep(5 * time.Millisecond) // slower than the period
		running.Add(-1)
	})
	defer s.Stop()

	s.Start()
	time.Sleep(50 * time.Millisecond)

	assert.False(t, overlapped.Load(), "cycles must never run concurrently")
}

func TestStopSuppressesRearm(t *testing.T) {
	var count atomic.Int32
	s := New(5*time.Millisecond, testLogger(), func() {
		count.Add(1)
	})

	s.Start()
	time.Sleep(20 * time.Millisecond)
	s.Stop()

	after := count.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, after, count.Load(), "no invocation may be armed after Stop")
}

func TestStopWaitsForInFlightCallback(t *testing.T) {
	var finished atomic.Bool
	started := make(chan struct{})
	s := New(time.Hour, testLogger(), func() {
		close(started)
		time.Sleep(20 * time.Millisecond)
		finished.Store(true)
	})

	s.Start()
	<-started
	s.Stop()

	assert.True(t, finished.Load(), "Stop must not return before the in-flight callback completes")
}

func TestStopWithoutStart(t *testing.T) {
	s := New(time.Second, testLogger(), func() {})

	done := make(chan struct{})
	go func() {
		s.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop blocked on a scheduler that never started")
	}
}

func TestStartIsIdempotent(t *testing.T) {
	var mu sync.Mutex
	count := 0
	s := New(10*time.Millisecond, testLogger(), func() {
		mu.Lock()
		count++
		mu.Unlock()
	})
	defer s.Stop()

	s.Start()
	s.Start()
	s.Start()

	time.Sleep(25 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	assert.LessOrEqual(t, count, 4, "reconnects must not spawn extra loops")
}
