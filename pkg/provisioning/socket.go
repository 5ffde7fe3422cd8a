package provisioning

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/devlink-protocol/devlink-go/pkg/log"
	"github.com/devlink-protocol/devlink-go/pkg/transport"
	"github.com/devlink-protocol/devlink-go/pkg/wire"
)

// Delegate receives linking events. The socket holds a plain, non-owning
// reference: it never manages the delegate's lifetime, and callbacks may
// still arrive after Disconnect until the owning controller releases the
// socket. Callbacks are invoked from the transport's reader goroutine.
type Delegate interface {
	// OnDeviceID is called when the endpoint assigns the ephemeral
	// provisioning address.
	OnDeviceID(deviceID string)

	// OnEnvelope is called when the encrypted provisioning envelope
	// arrives from the primary device.
	OnEnvelope(env *wire.ProvisioningEnvelope)

	// OnError is called when the transport disconnects with a cause.
	// Protocol-level failures never reach this callback; the session is
	// over when OnError fires and the socket must not be reused.
	OnError(err error)
}

// Socket owns one WebSocket connection to a provisioning endpoint for the
// duration of a single linking attempt.
type Socket struct {
	config   Config
	delegate Delegate

	conn      transport.Connection
	scheduler transport.Scheduler
	logger    log.Logger

	mu        sync.Mutex
	heartbeat transport.Task
	deviceID  string
}

// NewSocket creates a provisioning socket that dials config.Endpoint.
func NewSocket(config Config, delegate Delegate) *Socket {
	config.applyDefaults()

	s := &Socket{
		config:    config,
		delegate:  delegate,
		scheduler: transport.TickerScheduler{},
		logger:    config.Logger,
	}
	s.conn = transport.NewSocket(transport.Config{
		Endpoint:       config.Endpoint,
		DialTimeout:    config.DialTimeout.Std(),
		MaxMessageSize: config.MaxMessageSize,
		Logger:         config.Logger,
	}, s)
	return s
}

// NewSocketWithConnection creates a provisioning socket over an existing
// transport connection and scheduler. The caller must arrange for the
// socket to receive the connection's transport events (it implements
// transport.Handler). Used by tests and custom transports.
func NewSocketWithConnection(config Config, delegate Delegate, conn transport.Connection, scheduler transport.Scheduler) *Socket {
	config.applyDefaults()
	return &Socket{
		config:    config,
		delegate:  delegate,
		conn:      conn,
		scheduler: scheduler,
		logger:    config.Logger,
	}
}

// Connect opens the transport and schedules the heartbeat. Heartbeat
// scheduling is idempotent: repeated Connect calls never create a second
// timer. The transport's own connect is invoked each time and is expected
// to reject duplicates itself.
func (s *Socket) Connect(ctx context.Context) error {
	s.mu.Lock()
	if s.heartbeat == nil {
		s.heartbeat = s.scheduler.Schedule(s.config.HeartbeatInterval.Std(), s.heartbeatTick)
	}
	s.mu.Unlock()

	return s.conn.Connect(ctx)
}

// Disconnect stops the heartbeat and closes the transport. Safe to call
// multiple times and when never connected.
func (s *Socket) Disconnect() {
	s.mu.Lock()
	if s.heartbeat != nil {
		s.heartbeat.Stop()
		s.heartbeat = nil
	}
	s.mu.Unlock()

	s.conn.Disconnect()
}

// State proxies the transport's connection state.
func (s *Socket) State() transport.State {
	return s.conn.State()
}

// DeviceID returns the provisioning address assigned by the endpoint, or
// an empty string before one arrives.
func (s *Socket) DeviceID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deviceID
}

// heartbeatTick pings the endpoint while the transport is open. Ticks in
// any other state are no-ops.
func (s *Socket) heartbeatTick() {
	if s.conn.State() != transport.StateOpen {
		return
	}
	if err := s.conn.SendPing(); err != nil {
		s.logError(err, "heartbeat ping")
	}
}

// OnOpen implements transport.Handler.
func (s *Socket) OnOpen() {}

// OnMessage implements transport.Handler. It decodes the frame, routes the
// embedded request, and acknowledges it. All failures in here are logged
// and absorbed; a malformed frame must never take the session down.
func (s *Socket) OnMessage(data []byte) {
	frame, err := wire.DecodeFrame(data)
	if err != nil {
		s.logError(err, "decode frame")
		return
	}

	req := frame.Request
	if req == nil {
		// Not a protocol violation worth surfacing; drop the frame.
		s.logError(fmt.Errorf("frame without request dropped"), "route request")
		return
	}

	if err := s.route(req); err != nil {
		s.logError(err, fmt.Sprintf("handle %s %s", req.Verb, req.Path))
	}

	// Acknowledge whenever a request object was present, even when the
	// body was missing or failed to decode. Matches the endpoint's
	// original semantics; see the package tests.
	s.acknowledge(req)
}

// OnDisconnected implements transport.Handler. A clean closure produces no
// delegate callback; a closure with a cause is terminal for the session.
func (s *Socket) OnDisconnected(err error) {
	if err == nil {
		return
	}
	if s.delegate != nil {
		s.delegate.OnError(err)
	}
}

// route dispatches a request on its (verb, path) pair.
func (s *Socket) route(req *wire.Request) error {
	switch {
	case req.Verb == wire.VerbPut && req.Path == wire.PathAddress:
		if len(req.Body) == 0 {
			return fmt.Errorf("address request has no body")
		}
		addr, err := wire.DecodeProvisioningAddress(req.Body)
		if err != nil {
			return err
		}
		s.mu.Lock()
		s.deviceID = addr.Address
		s.mu.Unlock()
		s.logMessage(req)
		if s.delegate != nil {
			s.delegate.OnDeviceID(addr.Address)
		}
		return nil

	case req.Verb == wire.VerbPut && req.Path == wire.PathMessage:
		if len(req.Body) == 0 {
			return fmt.Errorf("message request has no body")
		}
		env, err := wire.DecodeProvisioningEnvelope(req.Body)
		if err != nil {
			return err
		}
		s.logMessage(req)
		if s.delegate != nil {
			s.delegate.OnEnvelope(env)
		}
		return nil

	default:
		return fmt.Errorf("unexpected request: %s %s", req.Verb, req.Path)
	}
}

// acknowledge sends a (200, "OK") response for the request. Send failures
// are logged only; an acknowledgement must never take the session down.
func (s *Socket) acknowledge(req *wire.Request) {
	resp := &wire.Response{
		ID:      req.ID,
		Status:  wire.StatusOK,
		Message: wire.StatusOK.String(),
	}

	data, err := wire.EncodeFrame(wire.NewResponseFrame(resp))
	if err != nil {
		s.logError(err, "encode acknowledgement")
		return
	}
	if err := s.conn.Send(data); err != nil {
		s.logError(err, "send acknowledgement")
	}
}

func (s *Socket) logMessage(req *wire.Request) {
	if s.logger == nil {
		return
	}
	s.mu.Lock()
	deviceID := s.deviceID
	s.mu.Unlock()

	s.logger.Log(log.Event{
		Timestamp: time.Now(),
		Direction: log.DirectionIn,
		Layer:     log.LayerWire,
		Category:  log.CategoryMessage,
		DeviceID:  deviceID,
		Message: &log.MessageEvent{
			Type:     log.MessageTypeRequest,
			ID:       req.ID,
			Verb:     req.Verb,
			Path:     req.Path,
			BodySize: len(req.Body),
		},
	})
}

func (s *Socket) logError(err error, context string) {
	if s.logger == nil {
		return
	}
	s.logger.Log(log.Event{
		Timestamp: time.Now(),
		Direction: log.DirectionIn,
		Layer:     log.LayerProvisioning,
		Category:  log.CategoryError,
		Error: &log.ErrorEventData{
			Layer:   log.LayerProvisioning,
			Message: err.Error(),
			Context: context,
		},
	})
}

// Compile-time interface satisfaction check.
var _ transport.Handler = (*Socket)(nil)
