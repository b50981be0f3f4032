//go:build linux

package sensor

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// i2cSlave is the I2C_SLAVE ioctl from linux/i2c-dev.h.
const i2cSlave = 0x0703

// I2CDev is a register bus over a Linux /dev/i2c-* character device.
type I2CDev struct {
	f *os.File
}

// OpenI2C opens the i2c-dev node and binds it to the given 7-bit address.
func OpenI2C(path string, addr uint8) (*I2CDev, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("sensor: open %s: %w", path, err)
	}
	if err := unix.IoctlSetInt(int(f.Fd()), i2cSlave, int(addr)); err != nil {
		f.Close()
		return nil, fmt.Errorf("sensor: bind address 0x%02x on %s: %w", addr, path, err)
	}
	return &I2CDev{f: f}, nil
}

// ReadRegister writes the register address then reads len(buf) bytes.
func (d *I2CDev) ReadRegister(reg uint8, buf []byte) error {
	if _, err := d.f.Write([]byte{reg}); err != nil {
		return fmt.Errorf("sensor: select reg 0x%02x: %w", reg, err)
	}
	if _, err := d.f.Read(buf); err != nil {
		return fmt.Errorf("sensor: read reg 0x%02x: %w", reg, err)
	}
	return nil
}

// WriteRegister writes a single byte to the register.
func (d *I2CDev) WriteRegister(reg uint8, value uint8) error {
	if _, err := d.f.Write([]byte{reg, value}); err != nil {
		return fmt.Errorf("sensor: write reg 0x%02x: %w", reg, err)
	}
	return nil
}

// Close releases the device node.
func (d *I2CDev) Close() error {
	return d.f.Close()
}

var _ Bus = (*I2CDev)(nil)
