// Package pijuice reads telemetry from a PiJuice UPS HAT over the I2C
// command API (https://github.com/PiSupply/PiJuice/tree/master/Software).
package pijuice

// BatteryState is the charge state reported in the status register.
type BatteryState string

const (
	BatteryNormal           BatteryState = "NORMAL"
	BatteryChargingFromIn   BatteryState = "CHARGING_FROM_IN"
	BatteryChargingFrom5vIo BatteryState = "CHARGING_FROM_5V_IO"
	BatteryNotPresent       BatteryState = "NOT_PRESENT"
)

// PowerInputState describes one of the two power inputs (the micro-USB
// connector on the HAT and the 5V GPIO rail).
type PowerInputState string

const (
	PowerNotPresent PowerInputState = "NOT_PRESENT"
	PowerBad        PowerInputState = "BAD"
	PowerWeak       PowerInputState = "WEAK"
	PowerPresent    PowerInputState = "PRESENT"
)

// Status is the decoded status register.
type Status struct {
	Battery        BatteryState
	PowerInput     PowerInputState
	PowerInput5vIo PowerInputState
}

// BatteryProfile holds the static parameters of the configured battery.
type BatteryProfile struct {
	Capacity int // mAh
}

// FirmwareVersion of the HAT microcontroller.
type FirmwareVersion struct {
	Version string
}

// Source is the read side of the PiJuice. Voltages are returned in
// millivolts and currents in milliamps, as the hardware reports them.
// Every call can fail independently (I2C errors, checksum mismatch).
type Source interface {
	GetStatus() (Status, error)
	GetChargeLevel() (int, error)
	GetBatteryVoltage() (int, error)
	GetBatteryCurrent() (int, error)
	GetBatteryTemperature() (int, error)
	GetIoVoltage() (int, error)
	GetIoCurrent() (int, error)
	GetBatteryProfile() (BatteryProfile, error)
	GetFirmwareVersion() (FirmwareVersion, error)
}
