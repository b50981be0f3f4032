//go:build !linux

package sensor

import "errors"

// I2CDev is only available on Linux (i2c-dev). Other platforms use the
// synthetic source.
type I2CDev struct{}

func OpenI2C(path string, addr uint8) (*I2CDev, error) {
	return nil, errors.New("sensor: i2c-dev is only supported on linux")
}

func (d *I2CDev) ReadRegister(reg uint8, buf []byte) error {
	return errors.New("sensor: i2c-dev is only supported on linux")
}

func (d *I2CDev) WriteRegister(reg uint8, value uint8) error {
	return errors.New("sensor: i2c-dev is only supported on linux")
}

func (d *I2CDev) Close() error { return nil }
