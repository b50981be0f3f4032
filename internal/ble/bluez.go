package ble

import (
	"fmt"
	"sync"
	"time"

	"tinygo.org/x/bluetooth"
)

// BlueZRadio drives the host BLE controller through tinygo-org/bluetooth
// in the peripheral role.
//
// BlueZ gates notification delivery on the CCCD itself and does not surface
// subscription writes through this API, so a connected central is treated
// as subscribed: synthetic LinkSubscribe events are emitted for both
// characteristics right after LinkConnect. The stack drops notifies for
// centrals that never actually subscribed.
type BlueZRadio struct {
	adapter *bluetooth.Adapter

	mu      sync.Mutex
	adv     *bluetooth.Advertisement
	handler func(LinkEvent)
}

// NewBlueZRadio creates a radio over the default host adapter.
func NewBlueZRadio() *BlueZRadio {
	return &BlueZRadio{adapter: bluetooth.DefaultAdapter}
}

func (r *BlueZRadio) Enable() error {
	if err := r.adapter.Enable(); err != nil {
		return err
	}

	r.adapter.SetConnectHandler(func(device bluetooth.Device, connected bool) {
		r.mu.Lock()
		handler := r.handler
		r.mu.Unlock()
		if handler == nil {
			return
		}
		peer := device.Address.String()
		if connected {
			handler(LinkEvent{Kind: LinkConnect, Peer: peer})
			handler(LinkEvent{Kind: LinkSubscribe, Peer: peer, Char: SpO2CharUUID})
			handler(LinkEvent{Kind: LinkSubscribe, Peer: peer, Char: BPMCharUUID})
		} else {
			handler(LinkEvent{Kind: LinkDisconnect, Peer: peer})
		}
	})
	return nil
}

func (r *BlueZRadio) AddService(serviceUUID string, charUUIDs []string) (map[string]Characteristic, error) {
	svcUUID, err := bluetooth.ParseUUID(serviceUUID)
	if err != nil {
		return nil, fmt.Errorf("ble: parse service UUID: %w", err)
	}

	handles := make([]bluetooth.Characteristic, len(charUUIDs))
	configs := make([]bluetooth.CharacteristicConfig, len(charUUIDs))
	for i, u := range charUUIDs {
		charUUID, err := bluetooth.ParseUUID(u)
		if err != nil {
			return nil, fmt.Errorf("ble: parse characteristic UUID %s: %w", u, err)
		}
		configs[i] = bluetooth.CharacteristicConfig{
			Handle: &handles[i],
			UUID:   charUUID,
			Value:  make([]byte, PayloadSize),
			Flags:  bluetooth.CharacteristicReadPermission | bluetooth.CharacteristicNotifyPermission,
		}
	}

	if err := r.adapter.AddService(&bluetooth.Service{
		UUID:            svcUUID,
		Characteristics: configs,
	}); err != nil {
		return nil, fmt.Errorf("ble: add service: %w", err)
	}

	chars := make(map[string]Characteristic, len(charUUIDs))
	for i, u := range charUUIDs {
		chars[u] = &blueZCharacteristic{char: &handles[i]}
	}
	return chars, nil
}

func (r *BlueZRadio) Advertise(name, serviceUUID string, interval time.Duration) error {
	uuid, err := bluetooth.ParseUUID(serviceUUID)
	if err != nil {
		return fmt.Errorf("ble: parse service UUID: %w", err)
	}

	adv := r.adapter.DefaultAdvertisement()
	if err := adv.Configure(bluetooth.AdvertisementOptions{
		LocalName:    name,
		ServiceUUIDs: []bluetooth.UUID{uuid},
		Interval:     bluetooth.NewDuration(interval),
	}); err != nil {
		return fmt.Errorf("ble: configure advertisement: %w", err)
	}

	r.mu.Lock()
	r.adv = adv
	r.mu.Unlock()

	if err := adv.Start(); err != nil {
		return fmt.Errorf("ble: start advertisement: %w", err)
	}
	return nil
}

func (r *BlueZRadio) StopAdvertise() error {
	r.mu.Lock()
	adv := r.adv
	r.mu.Unlock()
	if adv == nil {
		return nil
	}
	return adv.Stop()
}

func (r *BlueZRadio) SetLinkHandler(handler func(LinkEvent)) {
	r.mu.Lock()
	r.handler = handler
	r.mu.Unlock()
}

// Compile-time check that BlueZRadio implements Radio.
var _ Radio = (*BlueZRadio)(nil)

type blueZCharacteristic struct {
	char *bluetooth.Characteristic
}

// The stack has a single write primitive that both stores the value and
// notifies subscribed centrals, so SetValue and Notify share it.
func (c *blueZCharacteristic) SetValue(data []byte) error {
	_, err := c.char.Write(data)
	return err
}

func (c *blueZCharacteristic) Notify(data []byte) error {
	_, err := c.char.Write(data)
	return err
}
