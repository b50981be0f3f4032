package ble

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/psah/pulseox/internal/vitals"
)

// State is the link lifecycle state of the service.
type State int

const (
	StateIdle State = iota
	StateAdvertising
	StateConnected
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAdvertising:
		return "advertising"
	case StateConnected:
		return "connected"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Options configures the advertising/notification service.
type Options struct {
	DeviceName          string
	AdvertisingInterval time.Duration
}

// DefaultOptions returns the firmware defaults.
func DefaultOptions() Options {
	return Options{
		DeviceName:          "PicoW_Oximeter",
		AdvertisingInterval: 500 * time.Millisecond,
	}
}

// LinkSession is a snapshot of the link state for logging and tests.
type LinkSession struct {
	State                State
	Peer                 string
	NotificationsEnabled map[string]bool
}

// Service manages the advertising/connection lifecycle and delivers
// aggregated readings to the connected peer. Link events from the radio
// and publishes from the sampling loop are serialized by one mutex, so no
// notification is ever sent mid-transition.
type Service struct {
	radio Radio
	opts  Options

	mu         sync.Mutex
	state      State
	peer       string
	subscribed map[string]bool
	chars      map[string]Characteristic
	latest     map[string][]byte
}

// NewService creates the service in the Idle state.
func NewService(radio Radio, opts Options) *Service {
	if opts.DeviceName == "" {
		opts.DeviceName = DefaultOptions().DeviceName
	}
	if opts.AdvertisingInterval <= 0 {
		opts.AdvertisingInterval = DefaultOptions().AdvertisingInterval
	}
	return &Service{
		radio:      radio,
		opts:       opts,
		subscribed: make(map[string]bool),
		latest:     make(map[string][]byte),
	}
}

// Start enables the radio, registers the oximeter service, and begins
// advertising.
func (s *Service) Start() error {
	if err := s.radio.Enable(); err != nil {
		return fmt.Errorf("ble: enable radio: %w", err)
	}

	chars, err := s.radio.AddService(ServiceUUID, []string{SpO2CharUUID, BPMCharUUID})
	if err != nil {
		return fmt.Errorf("ble: register service: %w", err)
	}

	s.mu.Lock()
	s.chars = chars
	s.mu.Unlock()

	s.radio.SetLinkHandler(s.handleLink)

	if err := s.radio.Advertise(s.opts.DeviceName, ServiceUUID, s.opts.AdvertisingInterval); err != nil {
		return fmt.Errorf("ble: start advertising: %w", err)
	}

	s.mu.Lock()
	s.state = StateAdvertising
	s.mu.Unlock()

	slog.Info("[BLE] advertising", "name", s.opts.DeviceName, "interval", s.opts.AdvertisingInterval)
	return nil
}

// Stop halts advertising and returns the service to Idle.
func (s *Service) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateIdle {
		return nil
	}
	err := s.radio.StopAdvertise()
	s.state = StateIdle
	s.peer = ""
	clear(s.subscribed)
	return err
}

// Publish encodes an aggregated reading into both characteristic payloads.
// The values are always stored for explicit reads; notifications go out
// only to a connected peer that has enabled them.
func (s *Service) Publish(r vitals.AggregatedReading) error {
	spo2, err := EncodeVital(r.SpO2)
	if err != nil {
		return fmt.Errorf("ble: encode spo2: %w", err)
	}
	bpm, err := EncodeVital(r.BPM)
	if err != nil {
		return fmt.Errorf("ble: encode bpm: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.setValue(SpO2CharUUID, spo2); err != nil {
		return err
	}
	return s.setValue(BPMCharUUID, bpm)
}

// setValue stores the payload, pushing it as a notification when the peer
// subscribed. Notify also updates the stored value, so the two paths are
// exclusive. Caller must hold mu.
func (s *Service) setValue(charUUID string, payload []byte) error {
	char, ok := s.chars[charUUID]
	if !ok {
		return fmt.Errorf("ble: characteristic %s not registered", charUUID)
	}
	s.latest[charUUID] = payload
	if s.state == StateConnected && s.subscribed[charUUID] {
		if err := char.Notify(payload); err != nil {
			return fmt.Errorf("ble: notify %s: %w", charUUID, err)
		}
		return nil
	}
	if err := char.SetValue(payload); err != nil {
		return fmt.Errorf("ble: set value on %s: %w", charUUID, err)
	}
	return nil
}

// handleLink applies asynchronous link events. It shares the mutex with
// Publish, so state transitions are atomic with respect to notification
// attempts.
func (s *Service) handleLink(ev LinkEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch ev.Kind {
	case LinkConnect:
		// At most one simultaneous connection; a peer arriving in any
		// other state is a stale stack event.
		if s.state != StateAdvertising {
			slog.Warn("[BLE] ignoring connect in unexpected state", "state", s.state)
			return
		}
		if err := s.radio.StopAdvertise(); err != nil {
			slog.Warn("[BLE] stop advertising failed", "error", err)
		}
		s.state = StateConnected
		s.peer = ev.Peer
		clear(s.subscribed)
		slog.Info("[BLE] peer connected", "peer", ev.Peer)

	case LinkDisconnect:
		if s.state != StateConnected {
			return
		}
		s.peer = ""
		clear(s.subscribed)
		// Re-advertise immediately so the peer can reconnect without a
		// manual restart. A failure here is a link error: log it and stay
		// in Advertising so the next lifecycle event can recover.
		if err := s.radio.Advertise(s.opts.DeviceName, ServiceUUID, s.opts.AdvertisingInterval); err != nil {
			slog.Error("[BLE] re-advertise after disconnect failed", "error", err)
		}
		s.state = StateAdvertising
		slog.Info("[BLE] peer disconnected, advertising", "peer", ev.Peer)

	case LinkSubscribe:
		if s.state != StateConnected {
			return
		}
		s.subscribed[ev.Char] = true
		// Catch-up: a late subscriber gets the latest stored value right
		// away instead of waiting out a full aggregation window.
		if payload, ok := s.latest[ev.Char]; ok {
			if char, ok := s.chars[ev.Char]; ok {
				if err := char.Notify(payload); err != nil {
					slog.Warn("[BLE] catch-up notify failed", "char", ev.Char, "error", err)
				}
			}
		}

	case LinkUnsubscribe:
		delete(s.subscribed, ev.Char)
	}
}

// State returns the current lifecycle state.
func (s *Service) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Session returns a snapshot of the link session.
func (s *Service) Session() LinkSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	subs := make(map[string]bool, len(s.subscribed))
	for k, v := range s.subscribed {
		subs[k] = v
	}
	return LinkSession{State: s.state, Peer: s.peer, NotificationsEnabled: subs}
}
