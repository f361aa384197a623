package hass

import "encoding/json"

// Unit is the unit_of_measurement of a sensor.
type Unit int64

const (
	NoUnit Unit = iota
	Percent
	Celsius
)

func (s Unit) String() string {
	switch s {
	case Percent:
		return "%"
	case Celsius:
		return "°C"
	}
	return ""
}

func (s Unit) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}
