// Package hass publishes Home Assistant MQTT autodiscovery documents so the
// PiJuice shows up as a device with its sensors without manual configuration.
package hass

import (
	"encoding/json"
	"fmt"

	"github.com/sirupsen/logrus"

	"pijuice2mqtt/internal/config"
	"pijuice2mqtt/internal/mqtt"
	"pijuice2mqtt/internal/pijuice"
)

// DeviceInfo is the device block shared by every sensor document.
type DeviceInfo struct {
	Identifiers  []string `json:"identifiers"`
	Name         string   `json:"name"`
	SWVersion    string   `json:"sw_version"`
	Model        string   `json:"model"`
	Manufacturer string   `json:"manufacturer"`
}

// baseDocument carries the fields common to every sensor. It is embedded
// first in Document so the serialized field order never depends on which
// sensor is being announced, keeping retained payloads byte-identical
// across reconnects.
type baseDocument struct {
	AvailabilityTopic   string     `json:"availability_topic"`
	PayloadAvailable    string     `json:"payload_available"`
	PayloadNotAvailable string     `json:"payload_not_available"`
	StateTopic          string     `json:"state_topic"`
	JSONAttributesTopic string     `json:"json_attributes_topic"`
	Device              DeviceInfo `json:"device"`
	ExpireAfter         int        `json:"expire_after,omitempty"`
}

// Document is one complete autodiscovery config payload.
type Document struct {
	baseDocument
	Name              string      `json:"name"`
	UniqueID          string      `json:"unique_id"`
	ValueTemplate     string      `json:"value_template"`
	DeviceClass       DeviceClass `json:"device_class,omitempty"`
	UnitOfMeasurement Unit        `json:"unit_of_measurement,omitempty"`
	PayloadOn         string      `json:"payload_on,omitempty"`
	PayloadOff        string      `json:"payload_off,omitempty"`
	EnabledByDefault  *bool       `json:"enabled_by_default,omitempty"`
	EntityCategory    string      `json:"entity_category,omitempty"`
}

// descriptor is the static part of one announced sensor. The key doubles as
// the value_json field, the unique_id suffix and the config topic segment.
type descriptor struct {
	key         string
	platform    string // "sensor" or "binary_sensor"
	nameSuffix  string
	deviceClass DeviceClass
	unit        Unit
	payloadOn   string
	payloadOff  string
	diagnostic  bool
	disabled    bool
}

var descriptors = []descriptor{
	{
		key:         "batteryCharge",
		platform:    "sensor",
		nameSuffix:  "Battery",
		deviceClass: Battery,
		unit:        Percent,
	},
	{
		key:         "powerInput5vIo",
		platform:    "binary_sensor",
		nameSuffix:  "PowerInput5vIo",
		deviceClass: Power,
		payloadOn:   string(pijuice.PowerPresent),
		payloadOff:  string(pijuice.PowerNotPresent),
	},
	{
		key:         "batteryTemperature",
		platform:    "sensor",
		nameSuffix:  "BatteryTemperature",
		deviceClass: Temperature,
		unit:        Celsius,
		diagnostic:  true,
		disabled:    true,
	},
	{
		key:        "batteryStatus",
		platform:   "sensor",
		nameSuffix: "BatteryStatus",
		diagnostic: true,
		disabled:   true,
	},
}

// Announcer publishes the availability state and, when enabled, the
// autodiscovery documents. It runs on every successful broker connection;
// the document set is deterministic so re-announcing on reconnect does not
// churn Home Assistant entities.
type Announcer struct {
	config *config.Config
	source pijuice.Source
	logger *logrus.Logger
}

func NewAnnouncer(cfg *config.Config, source pijuice.Source, logger *logrus.Logger) *Announcer {
	return &Announcer{
		config: cfg,
		source: source,
		logger: logger,
	}
}

// Announce marks the service online and publishes one retained config
// document per sensor. The last will covering the offline transition is
// registered on the connection itself, before any of this runs.
func (a *Announcer) Announce(pub mqtt.Publisher) error {
	if err := pub.Publish(a.config.AvailabilityTopic(), 1, true, []byte(mqtt.PayloadOnline)); err != nil {
		return fmt.Errorf("failed to publish online status: %w", err)
	}

	if !a.config.HomeAssistant.Sensor {
		return nil
	}

	a.logger.Info("Publishing Home Assistant MQTT autoconfig")

	base, err := a.buildBase()
	if err != nil {
		return err
	}

	for _, d := range descriptors {
		doc := a.buildDocument(base, d)
		payload, err := json.Marshal(doc)
		if err != nil {
			return fmt.Errorf("failed to serialize %s config: %w", d.key, err)
		}
		topic := fmt.Sprintf("%s/%s/%s/%s/config",
			a.config.HomeAssistant.Topic, d.platform, a.config.DeviceID(), d.key)
		if err := pub.Publish(topic, 1, true, payload); err != nil {
			return fmt.Errorf("failed to publish %s config: %w", d.key, err)
		}
	}
	return nil
}

func (a *Announcer) buildBase() (baseDocument, error) {
	profile, err := a.source.GetBatteryProfile()
	if err != nil {
		return baseDocument{}, fmt.Errorf("failed to read battery profile: %w", err)
	}
	firmware, err := a.source.GetFirmwareVersion()
	if err != nil {
		return baseDocument{}, fmt.Errorf("failed to read firmware version: %w", err)
	}

	return baseDocument{
		AvailabilityTopic:   a.config.AvailabilityTopic(),
		PayloadAvailable:    mqtt.PayloadOnline,
		PayloadNotAvailable: mqtt.PayloadOffline,
		StateTopic:          a.config.StatusTopic(),
		JSONAttributesTopic: a.config.StatusTopic(),
		Device: DeviceInfo{
			Identifiers:  []string{a.config.DeviceID()},
			Name:         fmt.Sprintf("%s PiJuice", a.config.Hostname),
			SWVersion:    fmt.Sprintf("pijuice2mqtt %s, Firmware %s", config.Version, firmware.Version),
			Model:        fmt.Sprintf("PiJuice %d mAh", profile.Capacity),
			Manufacturer: "PiSupply",
		},
		ExpireAfter: a.config.HomeAssistant.ExpireAfter,
	}, nil
}

func (a *Announcer) buildDocument(base baseDocument, d descriptor) Document {
	doc := Document{
		baseDocument:      base,
		Name:              fmt.Sprintf("%s PiJuice %s", a.config.Hostname, d.nameSuffix),
		UniqueID:          fmt.Sprintf("%s-%s", a.config.DeviceID(), d.key),
		ValueTemplate:     fmt.Sprintf("{{ value_json.%s }}", d.key),
		DeviceClass:       d.deviceClass,
		UnitOfMeasurement: d.unit,
		PayloadOn:         d.payloadOn,
		PayloadOff:        d.payloadOff,
	}
	if d.diagnostic {
		doc.EntityCategory = "diagnostic"
	}
	if d.disabled {
		disabled := false
		doc.EnabledByDefault = &disabled
	}
	return doc
}
