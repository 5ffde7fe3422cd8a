package transport

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"github.com/devlink-protocol/devlink-go/pkg/log"
)

// Connection states.
type State int

const (
	// StateDisconnected indicates no connection was ever established.
	StateDisconnected State = iota

	// StateConnecting indicates connection in progress.
	StateConnecting

	// StateOpen indicates an active connection.
	StateOpen

	// StateClosed indicates the connection was closed.
	StateClosed
)

// String returns the connection state name.
func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "DISCONNECTED"
	case StateConnecting:
		return "CONNECTING"
	case StateOpen:
		return "OPEN"
	case StateClosed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}

// Transport errors.
var (
	ErrAlreadyConnected = errors.New("already connected")
	ErrNotConnected     = errors.New("not connected")
)

// Default timeouts and limits.
const (
	// DefaultDialTimeout is the default WebSocket dial timeout.
	DefaultDialTimeout = 30 * time.Second

	// DefaultWriteTimeout bounds a single outbound write or ping.
	DefaultWriteTimeout = 10 * time.Second

	// DefaultMaxMessageSize is the default maximum message size (64 KB).
	DefaultMaxMessageSize = 65536

	// MaxLogFrameDataSize is the maximum frame data size to include in log
	// events. Larger frames are truncated in the event, not on the wire.
	MaxLogFrameDataSize = 4096
)

// Handler receives transport events. All callbacks are invoked from the
// socket's single reader goroutine, in the order the events occurred.
type Handler interface {
	// OnOpen is called once the WebSocket handshake completes.
	OnOpen()

	// OnMessage is called for each inbound binary message.
	OnMessage(data []byte)

	// OnDisconnected is called exactly once when the connection ends.
	// err is nil for a clean closure and non-nil for a failure.
	OnDisconnected(err error)
}

// Config configures a provisioning transport socket.
type Config struct {
	// Endpoint is the WebSocket URL to dial (ws:// or wss://).
	Endpoint string

	// DialTimeout bounds the WebSocket dial (default: 30s).
	DialTimeout time.Duration

	// WriteTimeout bounds a single write or ping (default: 10s).
	WriteTimeout time.Duration

	// MaxMessageSize is the maximum inbound message size (default: 64KB).
	MaxMessageSize int64

	// HTTPClient optionally overrides the client used for the handshake.
	HTTPClient *http.Client

	// Logger receives protocol events. Nil disables protocol logging.
	Logger log.Logger
}

// Socket is a WebSocket connection to a provisioning endpoint.
type Socket struct {
	config  Config
	handler Handler

	// id identifies this connection in protocol logs.
	id string

	state atomic.Int32

	// localClose marks a locally initiated disconnect so the read loop can
	// report a clean closure instead of the read error it unblocks with.
	localClose atomic.Bool

	mu         sync.Mutex
	conn       *websocket.Conn
	cancelRead context.CancelFunc

	writeMu sync.Mutex
}

// NewSocket creates a new socket (not yet connected).
func NewSocket(config Config, handler Handler) *Socket {
	if config.DialTimeout == 0 {
		config.DialTimeout = DefaultDialTimeout
	}
	if config.WriteTimeout == 0 {
		config.WriteTimeout = DefaultWriteTimeout
	}
	if config.MaxMessageSize == 0 {
		config.MaxMessageSize = DefaultMaxMessageSize
	}

	s := &Socket{
		config:  config,
		handler: handler,
		id:      uuid.NewString(),
	}
	s.state.Store(int32(StateDisconnected))
	return s
}

// ID returns the connection identifier used in protocol logs.
func (s *Socket) ID() string {
	return s.id
}

// State returns the current connection state.
func (s *Socket) State() State {
	return State(s.state.Load())
}

// Connect dials the provisioning endpoint and starts the read loop.
// A second Connect on a live socket returns ErrAlreadyConnected; the
// socket is single-use and does not reconnect after closure.
func (s *Socket) Connect(ctx context.Context) error {
	if !s.state.CompareAndSwap(int32(StateDisconnected), int32(StateConnecting)) {
		return ErrAlreadyConnected
	}
	s.logStateChange(StateDisconnected, StateConnecting, "")

	// Apply timeout from config if context doesn't have one
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.DialTimeout)
		defer cancel()
	}

	conn, _, err := websocket.Dial(ctx, s.config.Endpoint, &websocket.DialOptions{
		HTTPClient: s.config.HTTPClient,
	})
	if err != nil {
		s.state.Store(int32(StateDisconnected))
		s.logStateChange(StateConnecting, StateDisconnected, "dial failed")
		return fmt.Errorf("dial failed: %w", err)
	}
	conn.SetReadLimit(s.config.MaxMessageSize)

	// The read loop outlives the dial context.
	readCtx, cancelRead := context.WithCancel(context.Background())

	s.mu.Lock()
	s.conn = conn
	s.cancelRead = cancelRead
	s.mu.Unlock()

	s.state.Store(int32(StateOpen))
	s.logStateChange(StateConnecting, StateOpen, "")

	if s.handler != nil {
		s.handler.OnOpen()
	}

	go s.readLoop(readCtx, conn)

	return nil
}

// Disconnect closes the connection. Safe to call multiple times and when
// never connected; once closed the socket stays closed.
func (s *Socket) Disconnect() {
	s.mu.Lock()
	conn := s.conn
	cancelRead := s.cancelRead
	s.conn = nil
	s.cancelRead = nil
	s.mu.Unlock()

	if conn == nil {
		// Never connected or already torn down.
		return
	}

	s.localClose.Store(true)
	_ = conn.Close(websocket.StatusNormalClosure, "")
	if cancelRead != nil {
		cancelRead()
	}
}

// Send writes one binary message.
func (s *Socket) Send(data []byte) error {
	if s.State() != StateOpen {
		return ErrNotConnected
	}

	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), s.config.WriteTimeout)
	defer cancel()

	if err := conn.Write(ctx, websocket.MessageBinary, data); err != nil {
		return fmt.Errorf("write failed: %w", err)
	}

	s.logFrame(data, log.DirectionOut)
	return nil
}

// SendPing sends a WebSocket ping control frame and waits for the pong,
// bounded by the write timeout.
func (s *Socket) SendPing() error {
	if s.State() != StateOpen {
		return ErrNotConnected
	}

	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.config.WriteTimeout)
	defer cancel()

	if err := conn.Ping(ctx); err != nil {
		return fmt.Errorf("ping failed: %w", err)
	}

	s.logControl(log.ControlPing)
	return nil
}

// readLoop delivers inbound binary messages until the connection ends.
func (s *Socket) readLoop(ctx context.Context, conn *websocket.Conn) {
	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			s.finish(err)
			return
		}

		// Only binary frames carry protocol messages.
		if typ != websocket.MessageBinary {
			continue
		}

		s.logFrame(data, log.DirectionIn)
		if s.handler != nil {
			s.handler.OnMessage(data)
		}
	}
}

// finish records closure and notifies the handler exactly once.
func (s *Socket) finish(readErr error) {
	oldState := s.State()
	s.state.Store(int32(StateClosed))

	var cause error
	switch {
	case s.localClose.Load():
		// Locally initiated disconnect; the read error is expected.
	case websocket.CloseStatus(readErr) == websocket.StatusNormalClosure,
		websocket.CloseStatus(readErr) == websocket.StatusGoingAway:
		// Peer closed cleanly.
	default:
		cause = readErr
	}

	reason := "clean close"
	if cause != nil {
		reason = cause.Error()
		s.logError(cause, "read loop")
	}
	s.logStateChange(oldState, StateClosed, reason)

	s.mu.Lock()
	s.conn = nil
	s.cancelRead = nil
	s.mu.Unlock()

	if s.handler != nil {
		s.handler.OnDisconnected(cause)
	}
}

func (s *Socket) logFrame(data []byte, direction log.Direction) {
	if s.config.Logger == nil {
		return
	}

	frameData := data
	truncated := false
	if len(data) > MaxLogFrameDataSize {
		frameData = data[:MaxLogFrameDataSize]
		truncated = true
	}

	s.config.Logger.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: s.id,
		Direction:    direction,
		Layer:        log.LayerTransport,
		Category:     log.CategoryMessage,
		RemoteAddr:   s.config.Endpoint,
		Frame: &log.FrameEvent{
			Size:      len(data),
			Data:      frameData,
			Truncated: truncated,
		},
	})
}

func (s *Socket) logControl(typ log.ControlType) {
	if s.config.Logger == nil {
		return
	}
	s.config.Logger.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: s.id,
		Direction:    log.DirectionOut,
		Layer:        log.LayerTransport,
		Category:     log.CategoryControl,
		RemoteAddr:   s.config.Endpoint,
		Control:      &log.ControlEvent{Type: typ},
	})
}

func (s *Socket) logStateChange(oldState, newState State, reason string) {
	if s.config.Logger == nil {
		return
	}
	s.config.Logger.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: s.id,
		Direction:    log.DirectionIn,
		Layer:        log.LayerTransport,
		Category:     log.CategoryState,
		RemoteAddr:   s.config.Endpoint,
		StateChange: &log.StateChangeEvent{
			OldState: oldState.String(),
			NewState: newState.String(),
			Reason:   reason,
		},
	})
}

func (s *Socket) logError(err error, context string) {
	if s.config.Logger == nil {
		return
	}
	s.config.Logger.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: s.id,
		Direction:    log.DirectionIn,
		Layer:        log.LayerTransport,
		Category:     log.CategoryError,
		RemoteAddr:   s.config.Endpoint,
		Error: &log.ErrorEventData{
			Layer:   log.LayerTransport,
			Message: err.Error(),
			Context: context,
		},
	})
}
