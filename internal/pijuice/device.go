package pijuice

import (
	"fmt"
	"os"
	"sync"

	"golang.org/x/sys/unix"
)

// Default I2C attachment of the PiJuice HAT on a Raspberry Pi.
const (
	DefaultBus     = 1
	DefaultAddress = 0x14
)

// I2C_SLAVE from <linux/i2c-dev.h>; golang.org/x/sys/unix does not export it.
const i2cSlave = 0x0703

// PiJuice command registers.
const (
	cmdStatus             = 0x40
	cmdChargeLevel        = 0x41
	cmdBatteryTemperature = 0x47
	cmdBatteryVoltage     = 0x49
	cmdBatteryCurrent     = 0x4B
	cmdIoVoltage          = 0x4D
	cmdIoCurrent          = 0x4F
	cmdBatteryProfile     = 0xD3
	cmdFirmwareVersion    = 0xFD
)

// Device talks to the PiJuice microcontroller through the Linux i2c-dev
// interface. All reads are serialized; the firmware handles one command
// transaction at a time.
type Device struct {
	f  *os.File
	mu sync.Mutex
}

// Open opens /dev/i2c-<bus> and binds it to the HAT address.
func Open(bus, address int) (*Device, error) {
	f, err := os.OpenFile(fmt.Sprintf("/dev/i2c-%d", bus), os.O_RDWR, 0o600)
	if err != nil {
		return nil, fmt.Errorf("failed to open i2c bus %d: %w", bus, err)
	}
	if err := unix.IoctlSetInt(int(f.Fd()), i2cSlave, address); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to select i2c address 0x%02x: %w", address, err)
	}
	return &Device{f: f}, nil
}

func (d *Device) Close() error {
	return d.f.Close()
}

// readData issues a command and reads length data bytes plus a trailing
// checksum byte. Firmware versions before 1.2 occasionally drop the MSB of
// the first data byte, so a failed verification is retried with that bit
// restored before the frame is rejected.
func (d *Device) readData(cmd byte, length int) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, err := d.f.Write([]byte{cmd}); err != nil {
		return nil, fmt.Errorf("write command 0x%02x: %w", cmd, err)
	}
	buf := make([]byte, length+1)
	if _, err := d.f.Read(buf); err != nil {
		return nil, fmt.Errorf("read command 0x%02x: %w", cmd, err)
	}

	data, sum := buf[:length], buf[length]
	if checksum(data) != sum {
		data[0] |= 0x80
		if checksum(data) != sum {
			return nil, fmt.Errorf("checksum mismatch for command 0x%02x", cmd)
		}
	}
	return data, nil
}

func checksum(data []byte) byte {
	fcs := byte(0xFF)
	for _, b := range data {
		fcs ^= b
	}
	return fcs
}

func (d *Device) GetStatus() (Status, error) {
	data, err := d.readData(cmdStatus, 1)
	if err != nil {
		return Status{}, err
	}
	return decodeStatus(data[0]), nil
}

func (d *Device) GetChargeLevel() (int, error) {
	data, err := d.readData(cmdChargeLevel, 1)
	if err != nil {
		return 0, err
	}
	return int(data[0]), nil
}

func (d *Device) GetBatteryVoltage() (int, error) {
	return d.readWord(cmdBatteryVoltage)
}

func (d *Device) GetBatteryCurrent() (int, error) {
	return d.readSignedWord(cmdBatteryCurrent)
}

// GetBatteryTemperature returns whole degrees Celsius. The fractional part
// reported in the second byte is not exposed.
func (d *Device) GetBatteryTemperature() (int, error) {
	data, err := d.readData(cmdBatteryTemperature, 2)
	if err != nil {
		return 0, err
	}
	return decodeSignedByte(data[0]), nil
}

func (d *Device) GetIoVoltage() (int, error) {
	return d.readWord(cmdIoVoltage)
}

func (d *Device) GetIoCurrent() (int, error) {
	return d.readSignedWord(cmdIoCurrent)
}

func (d *Device) GetBatteryProfile() (BatteryProfile, error) {
	data, err := d.readData(cmdBatteryProfile, 14)
	if err != nil {
		return BatteryProfile{}, err
	}
	return BatteryProfile{Capacity: int(data[1])<<8 | int(data[0])}, nil
}

func (d *Device) GetFirmwareVersion() (FirmwareVersion, error) {
	data, err := d.readData(cmdFirmwareVersion, 2)
	if err != nil {
		return FirmwareVersion{}, err
	}
	return FirmwareVersion{Version: decodeFirmware(data[0])}, nil
}

func (d *Device) readWord(cmd byte) (int, error) {
	data, err := d.readData(cmd, 2)
	if err != nil {
		return 0, err
	}
	return int(data[1])<<8 | int(data[0]), nil
}

func (d *Device) readSignedWord(cmd byte) (int, error) {
	v, err := d.readWord(cmd)
	if err != nil {
		return 0, err
	}
	if v&0x8000 != 0 {
		v -= 0x10000
	}
	return v, nil
}

var batteryStates = [4]BatteryState{
	BatteryNormal, BatteryChargingFromIn, BatteryChargingFrom5vIo, BatteryNotPresent,
}

var powerInputStates = [4]PowerInputState{
	PowerNotPresent, PowerBad, PowerWeak, PowerPresent,
}

func decodeStatus(b byte) Status {
	return Status{
		Battery:        batteryStates[(b>>2)&0x03],
		PowerInput:     powerInputStates[(b>>4)&0x03],
		PowerInput5vIo: powerInputStates[(b>>6)&0x03],
	}
}

func decodeSignedByte(b byte) int {
	v := int(b)
	if b&0x80 != 0 {
		v -= 0x100
	}
	return v
}

func decodeFirmware(b byte) string {
	return fmt.Sprintf("%d.%d", b>>4, b&0x0F)
}
