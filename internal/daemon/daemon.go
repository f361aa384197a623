// Package daemon owns the broker connection lifecycle: connect, per-connect
// announcement, periodic publishing and graceful shutdown on SIGINT/SIGTERM.
package daemon

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"

	"github.com/sirupsen/logrus"

	"pijuice2mqtt/internal/config"
	"pijuice2mqtt/internal/mqtt"
	"pijuice2mqtt/internal/scheduler"
)

type State int32

const (
	Disconnected State = iota
	Connecting
	Connected
	ShuttingDown
	Terminated
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case ShuttingDown:
		return "shutting down"
	case Terminated:
		return "terminated"
	}
	return "unknown"
}

// Broker is the transport the daemon drives. *mqtt.Client satisfies it.
type Broker interface {
	mqtt.Publisher
	Connect() error
	Disconnect()
	SetOnConnect(fn func())
}

// Announcer re-runs on every successful (re)connection.
type Announcer interface {
	Announce(pub mqtt.Publisher) error
}

type Daemon struct {
	config    *config.Config
	broker    Broker
	scheduler *scheduler.Scheduler
	announcer Announcer
	logger    *logrus.Logger

	state        atomic.Int32
	startSched   sync.Once
	shutdownOnce sync.Once
}

func New(cfg *config.Config, broker Broker, sched *scheduler.Scheduler, announcer Announcer, logger *logrus.Logger) *Daemon {
	d := &Daemon{
		config:    cfg,
		broker:    broker,
		scheduler: sched,
		announcer: announcer,
		logger:    logger,
	}
	broker.SetOnConnect(d.onConnect)
	return d
}

func (d *Daemon) State() State {
	return State(d.state.Load())
}

func (d *Daemon) setState(s State) {
	d.state.Store(int32(s))
	d.logger.Debugf("Lifecycle state: %s", s)
}

// onConnect fires on every broker acknowledgment, including transport-level
// reconnects, so the retained availability and discovery documents are
// restored after an unclean disconnect. The scheduler starts once and keeps
// ticking across reconnects.
func (d *Daemon) onConnect() {
	d.setState(Connected)
	if err := d.announcer.Announce(d.broker); err != nil {
		d.logger.Errorf("Failed to announce: %v", err)
	}
	d.startSched.Do(d.scheduler.Start)
}

// Run connects and blocks until a termination signal or context
// cancellation, then shuts down cleanly. A connect failure is returned to
// the caller; the process exits non-zero without any retry of its own.
func (d *Daemon) Run(ctx context.Context) error {
	d.setState(Connecting)
	if err := d.broker.Connect(); err != nil {
		d.setState(Disconnected)
		return err
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sig)

	select {
	case received := <-sig:
		d.logger.Infof("Received %s, exiting...", received)
	case <-ctx.Done():
		d.logger.Info("Context cancelled, exiting...")
	}

	d.Shutdown()
	return nil
}

// Shutdown publishes the retained offline state, stops the scheduler and
// waits for any in-flight cycle, then drops the connection. Ordering
// matters: once offline is out, no further status message may follow.
func (d *Daemon) Shutdown() {
	d.shutdownOnce.Do(func() {
		d.setState(ShuttingDown)

		if err := d.broker.Publish(d.config.AvailabilityTopic(), 1, true, []byte(mqtt.PayloadOffline)); err != nil {
			d.logger.Errorf("Failed to publish offline status: %v", err)
		}

		d.scheduler.Stop()
		d.broker.Disconnect()

		d.setState(Terminated)
		d.logger.Info("Shutdown complete")
	})
}
