package daemon

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"

	"pijuice2mqtt/internal/config"
	"pijuice2mqtt/internal/hass"
	"pijuice2mqtt/internal/mqtt"
	"pijuice2mqtt/internal/pijuice"
	"pijuice2mqtt/internal/publisher"
	"pijuice2mqtt/internal/scheduler"
)

// fakeBroker behaves like the paho wrapper: Connect reports success and then
// fires the registered on-connect callback, as the broker acknowledgment
// handler would.
type fakeBroker struct {
	mqtt.FakePublisher
	connectErr   error
	connects     int
	disconnects  int
	onConnect    func()
}

func (b *fakeBroker) Connect() error {
	b.connects++
	if b.connectErr != nil {
		return b.connectErr
	}
	if b.onConnect != nil {
		b.onConnect()
	}
	return nil
}

func (b *fakeBroker) Disconnect() {
	b.disconnects++
}

func (b *fakeBroker) SetOnConnect(fn func()) {
	b.onConnect = fn
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.FatalLevel)
	return logger
}

func testConfig() *config.Config {
	return &config.Config{
		HomeAssistant: config.HomeAssistantConfig{Topic: "homeassistant", Sensor: true},
		Hostname:      "pi4",
		PublishPeriod: 30,
	}
}

func testSource() *pijuice.FakeSource {
	return &pijuice.FakeSource{
		Status: pijuice.Status{
			Battery:        pijuice.BatteryNormal,
			PowerInput:     pijuice.PowerPresent,
			PowerInput5vIo: pijuice.PowerPresent,
		},
		ChargeLevel:    100,
		BatteryVoltage: 4180,
		Profile:        pijuice.BatteryProfile{Capacity: 1820},
		Firmware:       pijuice.FirmwareVersion{Version: "1.5"},
	}
}

func newTestDaemon(cfg *config.Config, broker *fakeBroker, period time.Duration) *Daemon {
	source := testSource()
	pub := publisher.New(cfg, source, broker, nil, testLogger())
	sched := scheduler.New(period, testLogger(), pub.PublishCycle)
	announcer := hass.NewAnnouncer(cfg, source, testLogger())
	return New(cfg, broker, sched, announcer, testLogger())
}

func TestRun_ConnectFailure(t *testing.T) {
	broker := &fakeBroker{connectErr: errors.New("connection refused")}
	d := newTestDaemon(testConfig(), broker, time.Hour)

	err := d.Run(context.Background())
	assert.Error(t, err)
	assert.Equal(t, Disconnected, d.State())
	assert.Empty(t, broker.All(), "nothing may be published without a connection")
}

func TestRun_CleanShutdown(t *testing.T) {
	cfg := testConfig()
	broker := &fakeBroker{}
	d := newTestDaemon(cfg, broker, 5*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	// Let a few publish cycles complete before shutting down.
	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancellation")
	}

	assert.Equal(t, Terminated, d.State())
	assert.Equal(t, 1, broker.disconnects)
	assert.GreaterOrEqual(t, broker.Count("pijuicemqtt/pi4/status"), 1)

	// Exactly one retained offline, and it is the last word on the topic.
	last, ok := broker.Find("pijuicemqtt/pi4/service")
	assert.True(t, ok)
	assert.Equal(t, "offline", string(last.Payload))
	assert.Equal(t, byte(1), last.QoS)
	assert.True(t, last.Retained)

	offline := 0
	for _, m := range broker.All() {
		if m.Topic == "pijuicemqtt/pi4/service" && string(m.Payload) == "offline" {
			offline++
		}
	}
	assert.Equal(t, 1, offline)

	// No further cycles after termination.
	statuses := broker.Count("pijuicemqtt/pi4/status")
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, statuses, broker.Count("pijuicemqtt/pi4/status"))
}

func TestOnConnect_AnnouncesAndStartsScheduler(t *testing.T) {
	cfg := testConfig()
	broker := &fakeBroker{}
	d := newTestDaemon(cfg, broker, 5*time.Millisecond)
	defer d.Shutdown()

	assert.NoError(t, broker.Connect())
	assert.Equal(t, Connected, d.State())

	_, ok := broker.Find("homeassistant/sensor/pijuicemqtt-pi4/batteryCharge/config")
	assert.True(t, ok, "autodiscovery must run on connect")

	online, ok := broker.Find("pijuicemqtt/pi4/service")
	assert.True(t, ok)
	assert.Equal(t, "online", string(online.Payload))

	assert.Eventually(t, func() bool {
		return broker.Count("pijuicemqtt/pi4/status") >= 2
	}, time.Second, 5*time.Millisecond, "scheduler should publish periodically after connect")
}

func TestReconnect_ReannouncesWithoutSecondScheduler(t *testing.T) {
	cfg := testConfig()
	broker := &fakeBroker{}
	d := newTestDaemon(cfg, broker, time.Hour)
	defer d.Shutdown()

	assert.NoError(t, broker.Connect())
	time.Sleep(10 * time.Millisecond)
	assert.NoError(t, broker.Connect()) // transport-level reconnect

	assert.Equal(t, 2, broker.Count("homeassistant/sensor/pijuicemqtt-pi4/batteryCharge/config"),
		"discovery re-runs on every connect")

	// The hour-long period means each scheduler loop publishes exactly once
	// up front; a second loop would have produced a third status message.
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, 1, broker.Count("pijuicemqtt/pi4/status"))
}

func TestShutdownIsIdempotent(t *testing.T) {
	broker := &fakeBroker{}
	d := newTestDaemon(testConfig(), broker, time.Hour)

	assert.NoError(t, broker.Connect())
	d.Shutdown()
	d.Shutdown()

	assert.Equal(t, 1, broker.disconnects)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "disconnected", Disconnected.String())
	assert.Equal(t, "connecting", Connecting.String())
	assert.Equal(t, "connected", Connected.String())
	assert.Equal(t, "shutting down", ShuttingDown.String())
	assert.Equal(t, "terminated", Terminated.String())
}
