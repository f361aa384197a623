// Package publisher runs one sampling-and-publish cycle: read every PiJuice
// field, normalize to volts/amps and emit a single JSON status message.
package publisher

import (
	"encoding/json"

	"github.com/sirupsen/logrus"

	"pijuice2mqtt/internal/config"
	"pijuice2mqtt/internal/metrics"
	"pijuice2mqtt/internal/mqtt"
	"pijuice2mqtt/internal/pijuice"
)

// StatusMessage is the telemetry document on the status topic. Field order
// is part of the wire format consumers see; keep it stable.
type StatusMessage struct {
	BatteryCharge      int     `json:"batteryCharge"`
	BatteryVoltage     float64 `json:"batteryVoltage"`
	BatteryCurrent     float64 `json:"batteryCurrent"`
	BatteryTemperature int     `json:"batteryTemperature"`
	BatteryStatus      string  `json:"batteryStatus"`
	PowerInput         string  `json:"powerInput"`
	PowerInput5vIo     string  `json:"powerInput5vIo"`
	IoVoltage          float64 `json:"ioVoltage"`
	IoCurrent          float64 `json:"ioCurrent"`
}

type StatusPublisher struct {
	config *config.Config
	source pijuice.Source
	pub    mqtt.Publisher
	stats  *metrics.Set
	logger *logrus.Logger
}

func New(cfg *config.Config, source pijuice.Source, pub mqtt.Publisher, stats *metrics.Set, logger *logrus.Logger) *StatusPublisher {
	return &StatusPublisher{
		config: cfg,
		source: source,
		pub:    pub,
		stats:  stats,
		logger: logger,
	}
}

// PublishCycle is the scheduler callback. It never panics and swallows all
// recoverable errors: a failed hardware read skips the cycle instead of
// publishing a partial payload, and the next cycle is scheduled normally.
func (p *StatusPublisher) PublishCycle() {
	if p.config.PublishOnlineStatus {
		if err := p.pub.Publish(p.config.AvailabilityTopic(), 1, true, []byte(mqtt.PayloadOnline)); err != nil {
			p.logger.Errorf("Failed to refresh online status: %v", err)
		}
	}

	msg, err := p.collect()
	if err != nil {
		p.logger.Warnf("Could not read PiJuice data, skipping: %v", err)
		p.stats.RecordSkip()
		return
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		p.logger.Errorf("Failed to serialize status: %v", err)
		p.stats.RecordSkip()
		return
	}

	if err := p.pub.Publish(p.config.StatusTopic(), 0, false, payload); err != nil {
		p.logger.Errorf("Failed to publish status: %v", err)
		return
	}

	p.stats.RecordPublish(msg.BatteryCharge, msg.BatteryVoltage, msg.BatteryCurrent, msg.BatteryTemperature)
	p.logger.Debugf("Published status: %s", payload)
}

// collect reads all nine telemetry fields. The first failed read aborts the
// whole snapshot so consumers only ever see complete readings.
func (p *StatusPublisher) collect() (*StatusMessage, error) {
	status, err := p.source.GetStatus()
	if err != nil {
		return nil, err
	}
	charge, err := p.source.GetChargeLevel()
	if err != nil {
		return nil, err
	}
	batteryVoltage, err := p.source.GetBatteryVoltage()
	if err != nil {
		return nil, err
	}
	batteryCurrent, err := p.source.GetBatteryCurrent()
	if err != nil {
		return nil, err
	}
	temperature, err := p.source.GetBatteryTemperature()
	if err != nil {
		return nil, err
	}
	ioVoltage, err := p.source.GetIoVoltage()
	if err != nil {
		return nil, err
	}
	ioCurrent, err := p.source.GetIoCurrent()
	if err != nil {
		return nil, err
	}

	return &StatusMessage{
		BatteryCharge:      charge,
		BatteryVoltage:     milliToUnit(batteryVoltage),
		BatteryCurrent:     milliToUnit(batteryCurrent),
		BatteryTemperature: temperature,
		BatteryStatus:      string(status.Battery),
		PowerInput:         string(status.PowerInput),
		PowerInput5vIo:     string(status.PowerInput5vIo),
		IoVoltage:          milliToUnit(ioVoltage),
		IoCurrent:          milliToUnit(ioCurrent),
	}, nil
}

func milliToUnit(v int) float64 {
	return float64(v) / 1000
}
