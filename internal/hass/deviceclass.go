package hass

import "encoding/json"

// DeviceClass is the Home Assistant device class of a sensor.
// https://www.home-assistant.io/integrations/sensor/#device-class
type DeviceClass int64

const (
	NoClass DeviceClass = iota
	Battery
	Power
	Temperature
)

func (s DeviceClass) String() string {
	switch s {
	case Battery:
		return "battery"
	case Power:
		return "power"
	case Temperature:
		return "temperature"
	}
	return ""
}

func (s DeviceClass) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}
