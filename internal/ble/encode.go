package ble

import (
	"encoding/binary"
	"fmt"
)

// PayloadSize is the fixed width of every vital-sign characteristic
// payload: a little-endian uint16 holding the value multiplied by ten, for
// one decimal of precision. Clients must match this layout; it never
// varies with value magnitude.
const PayloadSize = 2

// maxVital is the largest value representable in the payload (6553.5).
const maxVital = float64(^uint16(0)) / 10

// EncodeVital packs a vital-sign value into the fixed-width payload.
func EncodeVital(v float64) ([]byte, error) {
	if v < 0 || v > maxVital {
		return nil, fmt.Errorf("ble: value %g outside encodable range [0, %g]", v, maxVital)
	}
	buf := make([]byte, PayloadSize)
	binary.LittleEndian.PutUint16(buf, uint16(v*10+0.5))
	return buf, nil
}

// DecodeVital unpacks a payload produced by EncodeVital.
func DecodeVital(p []byte) (float64, error) {
	if len(p) != PayloadSize {
		return 0, fmt.Errorf("ble: payload length %d, want %d", len(p), PayloadSize)
	}
	return float64(binary.LittleEndian.Uint16(p)) / 10, nil
}
