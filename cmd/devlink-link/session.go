package main

import (
	"context"
	"errors"
	stdlog "log"
	"sync"

	"github.com/devlink-protocol/devlink-go/pkg/discovery"
	"github.com/devlink-protocol/devlink-go/pkg/provisioning"
	"github.com/devlink-protocol/devlink-go/pkg/transport"
	"github.com/devlink-protocol/devlink-go/pkg/wire"
)

// linkSession owns one linking attempt: the ephemeral keypair, the
// provisioning socket, and the optional mDNS announcement. It implements
// provisioning.Delegate and interactive.Session.
type linkSession struct {
	socket     *provisioning.Socket
	keyPair    *provisioning.KeyPair
	deviceName string

	mu          sync.Mutex
	deviceID    string
	envelope    *wire.ProvisioningEnvelope
	lastErr     error
	announcer   *discovery.Announcer
	announceCtx context.Context
}

func newLinkSession(config provisioning.Config, deviceName string) (*linkSession, error) {
	keyPair, err := provisioning.GenerateKeyPair()
	if err != nil {
		return nil, err
	}

	s := &linkSession{
		keyPair:    keyPair,
		deviceName: deviceName,
	}
	s.socket = provisioning.NewSocket(config, s)
	return s, nil
}

// Connect opens the provisioning socket.
func (s *linkSession) Connect(ctx context.Context) error {
	return s.socket.Connect(ctx)
}

// Disconnect closes the provisioning socket.
func (s *linkSession) Disconnect() {
	s.socket.Disconnect()
}

// State returns the socket's connection state.
func (s *linkSession) State() transport.State {
	return s.socket.State()
}

// DeviceID returns the assigned provisioning address, if any.
func (s *linkSession) DeviceID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deviceID
}

// URI returns the provisioning URI for the current attempt. It requires an
// assigned address.
func (s *linkSession) URI() (*provisioning.URI, error) {
	s.mu.Lock()
	address := s.deviceID
	s.mu.Unlock()

	if address == "" {
		return nil, errors.New("no provisioning address assigned yet (connect first)")
	}
	return provisioning.NewURI(address, s.keyPair.PublicKey())
}

// Envelope returns the received provisioning envelope, if any.
func (s *linkSession) Envelope() *wire.ProvisioningEnvelope {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.envelope
}

// DecryptEnvelope decrypts the received envelope with the session keypair.
func (s *linkSession) DecryptEnvelope() ([]byte, error) {
	s.mu.Lock()
	env := s.envelope
	s.mu.Unlock()

	if env == nil {
		return nil, errors.New("no envelope received yet")
	}
	return provisioning.DecryptEnvelope(s.keyPair, env)
}

// LastError returns the transport error that ended the session, if any.
func (s *linkSession) LastError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Close tears down the socket and any mDNS announcement.
func (s *linkSession) Close() {
	s.mu.Lock()
	announcer := s.announcer
	s.mu.Unlock()

	if announcer != nil {
		announcer.Stop()
	}
	s.socket.Disconnect()
}

// OnDeviceID implements provisioning.Delegate.
func (s *linkSession) OnDeviceID(deviceID string) {
	s.mu.Lock()
	s.deviceID = deviceID
	ctx := s.announceCtx
	s.mu.Unlock()

	stdlog.Printf("Provisioning address assigned: %s", deviceID)

	// Announcement was requested before the address arrived.
	if ctx != nil {
		if err := s.openLinkingWindow(ctx, deviceID); err != nil {
			stdlog.Printf("Warning: mDNS announcement failed: %v", err)
		}
	}
}

// OnEnvelope implements provisioning.Delegate.
func (s *linkSession) OnEnvelope(env *wire.ProvisioningEnvelope) {
	s.mu.Lock()
	s.envelope = env
	announcer := s.announcer
	s.mu.Unlock()

	stdlog.Printf("Provisioning envelope received (%d bytes)", len(env.Body))

	// The linking attempt is complete; withdraw the announcement.
	if announcer != nil {
		if err := announcer.CloseLinkingWindow(); err != nil {
			stdlog.Printf("Warning: failed to withdraw announcement: %v", err)
		}
	}
}

// OnError implements provisioning.Delegate.
func (s *linkSession) OnError(err error) {
	s.mu.Lock()
	s.lastErr = err
	s.mu.Unlock()

	stdlog.Printf("Connection lost: %v", err)
}

// Compile-time interface satisfaction check.
var _ provisioning.Delegate = (*linkSession)(nil)
