package provisioning

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devlink-protocol/devlink-go/pkg/transport"
	"github.com/devlink-protocol/devlink-go/pkg/wire"
)

// --- test fakes ---

// fakeConnection records sends and pings and reports a settable state.
type fakeConnection struct {
	mu          sync.Mutex
	state       transport.State
	sent        [][]byte
	pings       int
	connects    int
	disconnects int

	connectErr error
	sendErr    error
	pingErr    error
}

func (c *fakeConnection) Connect(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connects++
	if c.connectErr != nil {
		return c.connectErr
	}
	c.state = transport.StateOpen
	return nil
}

func (c *fakeConnection) Disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.disconnects++
	c.state = transport.StateClosed
}

func (c *fakeConnection) State() transport.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *fakeConnection) Send(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sendErr != nil {
		return c.sendErr
	}
	c.sent = append(c.sent, data)
	return nil
}

func (c *fakeConnection) SendPing() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pingErr != nil {
		return c.pingErr
	}
	c.pings++
	return nil
}

func (c *fakeConnection) setState(s transport.State) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = s
}

func (c *fakeConnection) sentFrames(t *testing.T) []*wire.Frame {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	frames := make([]*wire.Frame, 0, len(c.sent))
	for _, data := range c.sent {
		f, err := wire.DecodeFrame(data)
		require.NoError(t, err)
		frames = append(frames, f)
	}
	return frames
}

// fakeScheduler hands out manually driven tasks.
type fakeScheduler struct {
	mu    sync.Mutex
	tasks []*fakeTask
}

func (s *fakeScheduler) Schedule(_ time.Duration, fn func()) transport.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	task := &fakeTask{fn: fn}
	s.tasks = append(s.tasks, task)
	return task
}

func (s *fakeScheduler) scheduled() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}

func (s *fakeScheduler) fire() {
	s.mu.Lock()
	tasks := append([]*fakeTask(nil), s.tasks...)
	s.mu.Unlock()
	for _, task := range tasks {
		task.fire()
	}
}

type fakeTask struct {
	mu      sync.Mutex
	fn      func()
	stopped bool
}

func (t *fakeTask) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopped = true
}

func (t *fakeTask) fire() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.stopped {
		t.fn()
	}
}

// recordingDelegate records every callback.
type recordingDelegate struct {
	mu        sync.Mutex
	deviceIDs []string
	envelopes []*wire.ProvisioningEnvelope
	errs      []error
}

func (d *recordingDelegate) OnDeviceID(deviceID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.deviceIDs = append(d.deviceIDs, deviceID)
}

func (d *recordingDelegate) OnEnvelope(env *wire.ProvisioningEnvelope) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.envelopes = append(d.envelopes, env)
}

func (d *recordingDelegate) OnError(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.errs = append(d.errs, err)
}

func newTestSocket(t *testing.T) (*Socket, *fakeConnection, *fakeScheduler, *recordingDelegate) {
	t.Helper()
	conn := &fakeConnection{}
	sched := &fakeScheduler{}
	delegate := &recordingDelegate{}
	s := NewSocketWithConnection(Config{Endpoint: "wss://endpoint.example/v1/provisioning/"}, delegate, conn, sched)
	return s, conn, sched, delegate
}

func addressFrame(t *testing.T, id uint64, address string) []byte {
	t.Helper()
	body, err := wire.EncodeProvisioningAddress(&wire.ProvisioningAddress{Address: address})
	require.NoError(t, err)
	return requestFrame(t, id, wire.VerbPut, wire.PathAddress, body)
}

func envelopeFrame(t *testing.T, id uint64, env *wire.ProvisioningEnvelope) []byte {
	t.Helper()
	body, err := wire.EncodeProvisioningEnvelope(env)
	require.NoError(t, err)
	return requestFrame(t, id, wire.VerbPut, wire.PathMessage, body)
}

func requestFrame(t *testing.T, id uint64, verb, path string, body []byte) []byte {
	t.Helper()
	data, err := wire.EncodeFrame(wire.NewRequestFrame(&wire.Request{
		ID:   id,
		Verb: verb,
		Path: path,
		Body: body,
	}))
	require.NoError(t, err)
	return data
}

// requireAck asserts the connection sent exactly one (200, "OK") response
// for the given request ID.
func requireAck(t *testing.T, conn *fakeConnection, id uint64) {
	t.Helper()
	frames := conn.sentFrames(t)
	require.Len(t, frames, 1)
	require.Equal(t, wire.FrameResponse, frames[0].Type)
	require.NotNil(t, frames[0].Response)
	assert.Equal(t, id, frames[0].Response.ID)
	assert.Equal(t, wire.StatusOK, frames[0].Response.Status)
	assert.Equal(t, "OK", frames[0].Response.Message)
}

// --- lifecycle tests ---

func TestConnect_SchedulesHeartbeatOnce(t *testing.T) {
	s, conn, sched, _ := newTestSocket(t)

	require.NoError(t, s.Connect(context.Background()))
	require.NoError(t, s.Connect(context.Background()))
	require.NoError(t, s.Connect(context.Background()))

	assert.Equal(t, 1, sched.scheduled(), "repeated Connect must not add timers")
	assert.Equal(t, 3, conn.connects)
}

func TestConnect_TransportError(t *testing.T) {
	s, conn, sched, _ := newTestSocket(t)
	conn.connectErr = errors.New("dial failed")

	err := s.Connect(context.Background())
	require.Error(t, err)
	// The heartbeat was scheduled before the dial; it stays armed but
	// only ever pings an open connection.
	assert.Equal(t, 1, sched.scheduled())
	sched.fire()
	assert.Equal(t, 0, conn.pings)
}

func TestDisconnect_StopsHeartbeat(t *testing.T) {
	s, conn, sched, _ := newTestSocket(t)

	require.NoError(t, s.Connect(context.Background()))
	s.Disconnect()

	assert.Equal(t, 1, conn.disconnects)
	sched.fire()
	assert.Equal(t, 0, conn.pings, "stopped heartbeat must not ping")
}

func TestDisconnect_Idempotent(t *testing.T) {
	s, conn, _, _ := newTestSocket(t)

	require.NoError(t, s.Connect(context.Background()))
	s.Disconnect()
	s.Disconnect()
	s.Disconnect()

	assert.Equal(t, 3, conn.disconnects)
}

func TestDisconnect_NeverConnected(t *testing.T) {
	s, conn, _, _ := newTestSocket(t)

	s.Disconnect()

	assert.Equal(t, 1, conn.disconnects)
}

func TestReconnect_SchedulesFreshHeartbeat(t *testing.T) {
	s, conn, sched, _ := newTestSocket(t)

	require.NoError(t, s.Connect(context.Background()))
	s.Disconnect()
	require.NoError(t, s.Connect(context.Background()))

	require.Equal(t, 2, sched.scheduled())
	sched.fire()
	assert.Equal(t, 1, conn.pings, "only the live timer pings")
}

func TestState_Proxied(t *testing.T) {
	s, conn, _, _ := newTestSocket(t)

	assert.Equal(t, transport.StateDisconnected, s.State())
	conn.setState(transport.StateOpen)
	assert.Equal(t, transport.StateOpen, s.State())
}

// --- heartbeat tests ---

func TestHeartbeat_PingsWhileOpen(t *testing.T) {
	s, conn, sched, _ := newTestSocket(t)

	require.NoError(t, s.Connect(context.Background()))
	sched.fire()
	sched.fire()

	assert.Equal(t, 2, conn.pings)
}

func TestHeartbeat_SkipsWhenNotOpen(t *testing.T) {
	s, conn, sched, _ := newTestSocket(t)

	require.NoError(t, s.Connect(context.Background()))
	conn.setState(transport.StateClosed)
	sched.fire()

	assert.Equal(t, 0, conn.pings)
}

func TestHeartbeat_PingErrorAbsorbed(t *testing.T) {
	s, conn, sched, delegate := newTestSocket(t)
	conn.pingErr = errors.New("broken pipe")

	require.NoError(t, s.Connect(context.Background()))
	sched.fire()

	assert.Empty(t, delegate.errs, "ping failure must not reach the delegate")
}

// --- routing tests ---

func TestOnMessage_AddressRequest(t *testing.T) {
	s, conn, _, delegate := newTestSocket(t)

	s.OnMessage(addressFrame(t, 7, "c0ffee00-1234-4abc-8def-000000000001"))

	require.Equal(t, []string{"c0ffee00-1234-4abc-8def-000000000001"}, delegate.deviceIDs)
	assert.Equal(t, "c0ffee00-1234-4abc-8def-000000000001", s.DeviceID())
	requireAck(t, conn, 7)
}

func TestOnMessage_EnvelopeRequest(t *testing.T) {
	s, conn, _, delegate := newTestSocket(t)

	env := &wire.ProvisioningEnvelope{
		PublicKey: make([]byte, KeySize),
		Body:      []byte{1, 2, 3, 4},
	}
	s.OnMessage(envelopeFrame(t, 9, env))

	require.Len(t, delegate.envelopes, 1)
	assert.Equal(t, env.Body, delegate.envelopes[0].Body)
	requireAck(t, conn, 9)
}

func TestOnMessage_AddressWithoutBody_StillAcked(t *testing.T) {
	s, conn, _, delegate := newTestSocket(t)

	s.OnMessage(requestFrame(t, 3, wire.VerbPut, wire.PathAddress, nil))

	assert.Empty(t, delegate.deviceIDs, "missing body must not reach the delegate")
	requireAck(t, conn, 3)
}

func TestOnMessage_MalformedBody_StillAcked(t *testing.T) {
	s, conn, _, delegate := newTestSocket(t)

	s.OnMessage(requestFrame(t, 4, wire.VerbPut, wire.PathMessage, []byte{0xff, 0xff}))

	assert.Empty(t, delegate.envelopes)
	requireAck(t, conn, 4)
}

func TestOnMessage_UnknownRoute_StillAcked(t *testing.T) {
	s, conn, _, delegate := newTestSocket(t)

	s.OnMessage(requestFrame(t, 5, "GET", "/v1/unknown", nil))

	assert.Empty(t, delegate.deviceIDs)
	assert.Empty(t, delegate.envelopes)
	assert.Empty(t, delegate.errs, "routing failures are logged, not surfaced")
	requireAck(t, conn, 5)
}

func TestOnMessage_FrameWithoutRequest_NotAcked(t *testing.T) {
	s, conn, _, delegate := newTestSocket(t)

	data, err := wire.EncodeFrame(&wire.Frame{Type: wire.FrameRequest})
	require.NoError(t, err)
	s.OnMessage(data)

	assert.Empty(t, conn.sentFrames(t))
	assert.Empty(t, delegate.errs)
}

func TestOnMessage_ResponseFrame_NotAcked(t *testing.T) {
	s, conn, _, _ := newTestSocket(t)

	data, err := wire.EncodeFrame(wire.NewResponseFrame(&wire.Response{
		ID:     1,
		Status: wire.StatusOK,
	}))
	require.NoError(t, err)
	s.OnMessage(data)

	assert.Empty(t, conn.sentFrames(t))
}

func TestOnMessage_GarbageBytes(t *testing.T) {
	s, conn, _, delegate := newTestSocket(t)

	s.OnMessage([]byte{0xde, 0xad, 0xbe, 0xef})

	assert.Empty(t, conn.sentFrames(t))
	assert.Empty(t, delegate.errs, "decode failures are logged, not surfaced")
}

func TestOnMessage_AckSendFailureAbsorbed(t *testing.T) {
	s, conn, _, delegate := newTestSocket(t)
	conn.sendErr = errors.New("connection reset")

	s.OnMessage(addressFrame(t, 8, "c0ffee00-1234-4abc-8def-000000000002"))

	require.Len(t, delegate.deviceIDs, 1, "delegate fires before the ack")
	assert.Empty(t, delegate.errs)
}

// --- disconnect error taxonomy ---

func TestOnDisconnected_CleanClose(t *testing.T) {
	s, _, _, delegate := newTestSocket(t)

	s.OnDisconnected(nil)

	assert.Empty(t, delegate.errs, "clean closure produces no error callback")
}

func TestOnDisconnected_TransportError(t *testing.T) {
	s, _, _, delegate := newTestSocket(t)

	cause := errors.New("read: connection reset by peer")
	s.OnDisconnected(cause)

	require.Len(t, delegate.errs, 1)
	assert.Equal(t, cause, delegate.errs[0])
}

func TestOnDisconnected_NilDelegate(t *testing.T) {
	conn := &fakeConnection{}
	s := NewSocketWithConnection(DefaultConfig(), nil, conn, &fakeScheduler{})

	// Must not panic without a delegate.
	s.OnDisconnected(errors.New("gone"))
	s.OnMessage(addressFrame(t, 1, "c0ffee00-1234-4abc-8def-000000000003"))

	requireAck(t, conn, 1)
}
