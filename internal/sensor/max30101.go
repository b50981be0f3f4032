package sensor

import (
	"fmt"
	"time"
)

// MAX30101 7-bit I2C address (write address 0xAE >> 1).
const MAX30101Addr = 0x57

// MAX30101 register addresses (selected).
const (
	regIntrEnable1  = 0x02
	regIntrEnable2  = 0x03
	regFIFOWritePtr = 0x04
	regOverflowCtr  = 0x05
	regFIFOReadPtr  = 0x06
	regFIFOData     = 0x07
	regFIFOConfig   = 0x08
	regModeConfig   = 0x09
	regSpO2Config   = 0x0A
	regLED1PA       = 0x0C // RED LED pulse amplitude
	regLED2PA       = 0x0D // IR LED pulse amplitude
	regPartID       = 0xFF
)

const (
	partID = 0x15

	modeReset = 0x40
	modeSpO2  = 0x03 // RED + IR

	// Rollover enabled, almost-full at 15 remaining, no sample averaging.
	fifoConfig = 0x1F

	// ADC range 4096nA, 100 samples/s, 411us pulse width (18-bit).
	spo2Config = 0x27

	// ~7.6mA LED current for both channels.
	ledCurrent = 0x24
)

// Bus abstracts register-level access to a device on an I2C bus. The device
// address is bound when the bus is opened.
type Bus interface {
	ReadRegister(reg uint8, buf []byte) error
	WriteRegister(reg uint8, value uint8) error
}

// MAX30101 reads PPG samples from a MAX30101 sensor in SpO2 mode.
type MAX30101 struct {
	bus Bus
	now func() time.Time
}

// NewMAX30101 creates a driver over the given register bus. Call Configure
// before the first ReadSample.
func NewMAX30101(bus Bus) *MAX30101 {
	return &MAX30101{bus: bus, now: time.Now}
}

// Configure verifies the part ID, resets the sensor, and programs SpO2 mode
// with the FIFO, ADC, and LED settings the firmware expects.
func (d *MAX30101) Configure() error {
	var id [1]byte
	if err := d.bus.ReadRegister(regPartID, id[:]); err != nil {
		return fmt.Errorf("sensor: read part ID: %w", err)
	}
	if id[0] != partID {
		return fmt.Errorf("sensor: unexpected part ID 0x%02x, want 0x%02x", id[0], partID)
	}

	if err := d.bus.WriteRegister(regModeConfig, modeReset); err != nil {
		return fmt.Errorf("sensor: reset: %w", err)
	}
	time.Sleep(100 * time.Millisecond)

	// Clear FIFO pointers so the first read starts at a known position.
	for _, reg := range []uint8{regFIFOWritePtr, regOverflowCtr, regFIFOReadPtr} {
		if err := d.bus.WriteRegister(reg, 0x00); err != nil {
			return fmt.Errorf("sensor: clear FIFO: %w", err)
		}
	}

	steps := []struct {
		reg   uint8
		value uint8
	}{
		{regFIFOConfig, fifoConfig},
		{regModeConfig, modeSpO2},
		{regSpO2Config, spo2Config},
		{regLED1PA, ledCurrent},
		{regLED2PA, ledCurrent},
		// Interrupts off: the sampling loop polls the FIFO.
		{regIntrEnable1, 0x00},
		{regIntrEnable2, 0x00},
	}
	for _, s := range steps {
		if err := d.bus.WriteRegister(s.reg, s.value); err != nil {
			return fmt.Errorf("sensor: write reg 0x%02x: %w", s.reg, err)
		}
	}
	return nil
}

// ReadSample reads one RED+IR sample pair from the FIFO. Each channel is
// 3 bytes, left-justified 18-bit, RED first.
func (d *MAX30101) ReadSample() (Sample, error) {
	var fifo [6]byte
	if err := d.bus.ReadRegister(regFIFOData, fifo[:]); err != nil {
		return Sample{}, fmt.Errorf("sensor: read FIFO: %w", err)
	}
	red := uint32(fifo[0]&0x03)<<16 | uint32(fifo[1])<<8 | uint32(fifo[2])
	ir := uint32(fifo[3]&0x03)<<16 | uint32(fifo[4])<<8 | uint32(fifo[5])
	return Sample{T: d.now(), IR: ir, Red: red}, nil
}

// Compile-time check that MAX30101 implements Source.
var _ Source = (*MAX30101)(nil)
