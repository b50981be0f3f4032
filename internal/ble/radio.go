// Package ble implements the oximeter's advertising and notification
// service: it owns the link session state, encodes aggregated readings into
// characteristic payloads, and pushes notifications to the connected peer.
package ble

import "time"

// Custom oximeter service and characteristic UUIDs. These are a protocol
// contract with the client and match the device firmware.
const (
	ServiceUUID  = "12345678-1234-5678-1234-56789abcdef0"
	SpO2CharUUID = "12345678-1234-5678-1234-56789abcdef1"
	BPMCharUUID  = "12345678-1234-5678-1234-56789abcdef2"
)

// Characteristic is a GATT value slot exposed by the peripheral.
type Characteristic interface {
	// SetValue stores a new value, served on explicit reads.
	SetValue(data []byte) error
	// Notify pushes a value to the subscribed peer and also updates the
	// stored value.
	Notify(data []byte) error
}

// LinkEventKind classifies asynchronous link events from the radio stack.
type LinkEventKind int

const (
	// LinkConnect reports a central connecting to the peripheral.
	LinkConnect LinkEventKind = iota
	// LinkDisconnect reports the central dropping the connection.
	LinkDisconnect
	// LinkSubscribe reports the peer enabling notifications on Char.
	LinkSubscribe
	// LinkUnsubscribe reports the peer disabling notifications on Char.
	LinkUnsubscribe
)

// LinkEvent is one asynchronous event from the radio stack.
type LinkEvent struct {
	Kind LinkEventKind
	Peer string
	Char string // characteristic UUID, subscribe events only
}

// Radio abstracts the wireless stack (BlueZ in production, a mock in
// tests). The Service is the sole consumer of its events.
type Radio interface {
	// Enable powers on the radio.
	Enable() error
	// AddService registers the GATT service and returns the characteristic
	// handles keyed by UUID.
	AddService(serviceUUID string, charUUIDs []string) (map[string]Characteristic, error)
	// Advertise starts periodic broadcasting of the discovery payload:
	// device name plus the service UUID.
	Advertise(name, serviceUUID string, interval time.Duration) error
	// StopAdvertise halts broadcasting.
	StopAdvertise() error
	// SetLinkHandler registers the callback for link events. Must be set
	// before Advertise.
	SetLinkHandler(handler func(LinkEvent))
}
