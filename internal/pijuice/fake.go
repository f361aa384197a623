package pijuice

// FakeSource is an in-memory Source for tests. Individual getters can be
// made to fail by naming them in Fail.
type FakeSource struct {
	Status             Status
	ChargeLevel        int
	BatteryVoltage     int // mV
	BatteryCurrent     int // mA
	BatteryTemperature int // °C
	IoVoltage          int // mV
	IoCurrent          int // mA
	Profile            BatteryProfile
	Firmware           FirmwareVersion

	Fail map[string]error

	Calls int
}

func (f *FakeSource) failure(name string) error {
	f.Calls++
	if f.Fail == nil {
		return nil
	}
	return f.Fail[name]
}

func (f *FakeSource) GetStatus() (Status, error) {
	return f.Status, f.failure("GetStatus")
}

func (f *FakeSource) GetChargeLevel() (int, error) {
	return f.ChargeLevel, f.failure("GetChargeLevel")
}

func (f *FakeSource) GetBatteryVoltage() (int, error) {
	return f.BatteryVoltage, f.failure("GetBatteryVoltage")
}

func (f *FakeSource) GetBatteryCurrent() (int, error) {
	return f.BatteryCurrent, f.failure("GetBatteryCurrent")
}

func (f *FakeSource) GetBatteryTemperature() (int, error) {
	return f.BatteryTemperature, f.failure("GetBatteryTemperature")
}

func (f *FakeSource) GetIoVoltage() (int, error) {
	return f.IoVoltage, f.failure("GetIoVoltage")
}

func (f *FakeSource) GetIoCurrent() (int, error) {
	return f.IoCurrent, f.failure("GetIoCurrent")
}

func (f *FakeSource) GetBatteryProfile() (BatteryProfile, error) {
	return f.Profile, f.failure("GetBatteryProfile")
}

func (f *FakeSource) GetFirmwareVersion() (FirmwareVersion, error) {
	return f.Firmware, f.failure("GetFirmwareVersion")
}
