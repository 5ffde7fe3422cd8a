package transport

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
)

// testHandler records transport callbacks on channels.
type testHandler struct {
	opened       chan struct{}
	messages     chan []byte
	disconnected chan error
}

func newTestHandler() *testHandler {
	return &testHandler{
		opened:       make(chan struct{}, 1),
		messages:     make(chan []byte, 16),
		disconnected: make(chan error, 1),
	}
}

func (h *testHandler) OnOpen()                { h.opened <- struct{}{} }
func (h *testHandler) OnMessage(data []byte)  { h.messages <- data }
func (h *testHandler) OnDisconnected(e error) { h.disconnected <- e }

// startServer runs a WebSocket server whose connection handler is fn.
// Returns the ws:// URL to dial.
func startServer(t *testing.T, fn func(ctx context.Context, conn *websocket.Conn)) string {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			t.Errorf("accept failed: %v", err)
			return
		}
		fn(r.Context(), conn)
	}))
	t.Cleanup(srv.Close)

	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestSocketConnectAndReceive(t *testing.T) {
	payload := []byte{0x01, 0x02, 0x03}

	url := startServer(t, func(ctx context.Context, conn *websocket.Conn) {
		if err := conn.Write(ctx, websocket.MessageBinary, payload); err != nil {
			t.Errorf("server write failed: %v", err)
		}
		conn.Close(websocket.StatusNormalClosure, "")
	})

	handler := newTestHandler()
	sock := NewSocket(Config{Endpoint: url}, handler)

	if sock.State() != StateDisconnected {
		t.Fatalf("initial state = %v, want DISCONNECTED", sock.State())
	}

	if err := sock.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}

	select {
	case <-handler.opened:
	case <-time.After(2 * time.Second):
		t.Fatal("OnOpen not called")
	}
	if sock.State() != StateOpen {
		t.Errorf("state = %v, want OPEN", sock.State())
	}

	select {
	case msg := <-handler.messages:
		if string(msg) != string(payload) {
			t.Errorf("message = %x, want %x", msg, payload)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("OnMessage not called")
	}

	// Clean server-side close produces a nil disconnect error.
	select {
	case err := <-handler.disconnected:
		if err != nil {
			t.Errorf("OnDisconnected(%v), want nil for clean close", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("OnDisconnected not called")
	}
	if sock.State() != StateClosed {
		t.Errorf("state = %v, want CLOSED", sock.State())
	}
}

func TestSocketSend(t *testing.T) {
	received := make(chan []byte, 1)

	url := startServer(t, func(ctx context.Context, conn *websocket.Conn) {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return
		}
		received <- data
		conn.Close(websocket.StatusNormalClosure, "")
	})

	handler := newTestHandler()
	sock := NewSocket(Config{Endpoint: url}, handler)

	if err := sock.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	defer sock.Disconnect()

	if err := sock.Send([]byte("hello")); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	select {
	case data := <-received:
		if string(data) != "hello" {
			t.Errorf("server received %q, want %q", data, "hello")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("server did not receive message")
	}
}

func TestSocketSendNotConnected(t *testing.T) {
	sock := NewSocket(Config{Endpoint: "ws://127.0.0.1:0"}, newTestHandler())

	if err := sock.Send([]byte("x")); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Send error = %v, want ErrNotConnected", err)
	}
	if err := sock.SendPing(); !errors.Is(err, ErrNotConnected) {
		t.Errorf("SendPing error = %v, want ErrNotConnected", err)
	}
}

func TestSocketConnectTwice(t *testing.T) {
	url := startServer(t, func(ctx context.Context, conn *websocket.Conn) {
		// Hold the connection open until the client leaves.
		conn.Read(ctx)
	})

	handler := newTestHandler()
	sock := NewSocket(Config{Endpoint: url}, handler)

	if err := sock.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	defer sock.Disconnect()

	if err := sock.Connect(context.Background()); !errors.Is(err, ErrAlreadyConnected) {
		t.Errorf("second Connect error = %v, want ErrAlreadyConnected", err)
	}
}

func TestSocketDisconnectIdempotent(t *testing.T) {
	url := startServer(t, func(ctx context.Context, conn *websocket.Conn) {
		conn.Read(ctx)
	})

	handler := newTestHandler()
	sock := NewSocket(Config{Endpoint: url}, handler)

	if err := sock.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}

	sock.Disconnect()
	sock.Disconnect() // must not panic

	// Local disconnect is a clean close.
	select {
	case err := <-handler.disconnected:
		if err != nil {
			t.Errorf("OnDisconnected(%v), want nil for local disconnect", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("OnDisconnected not called")
	}
}

func TestSocketDisconnectNeverConnected(t *testing.T) {
	sock := NewSocket(Config{Endpoint: "ws://127.0.0.1:0"}, newTestHandler())
	sock.Disconnect()
	sock.Disconnect()

	if sock.State() != StateDisconnected {
		t.Errorf("state = %v, want DISCONNECTED", sock.State())
	}
}

func TestSocketAbnormalClose(t *testing.T) {
	url := startServer(t, func(ctx context.Context, conn *websocket.Conn) {
		conn.Close(websocket.StatusInternalError, "boom")
	})

	handler := newTestHandler()
	sock := NewSocket(Config{Endpoint: url}, handler)

	if err := sock.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}

	select {
	case err := <-handler.disconnected:
		if err == nil {
			t.Error("OnDisconnected(nil), want error for abnormal close")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("OnDisconnected not called")
	}
}

func TestSocketPing(t *testing.T) {
	url := startServer(t, func(ctx context.Context, conn *websocket.Conn) {
		// Keep reading so pings are answered.
		for {
			if _, _, err := conn.Read(ctx); err != nil {
				return
			}
		}
	})

	handler := newTestHandler()
	sock := NewSocket(Config{Endpoint: url}, handler)

	if err := sock.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	defer sock.Disconnect()

	if err := sock.SendPing(); err != nil {
		t.Errorf("SendPing failed: %v", err)
	}
}

func TestSocketIgnoresTextFrames(t *testing.T) {
	url := startServer(t, func(ctx context.Context, conn *websocket.Conn) {
		if err := conn.Write(ctx, websocket.MessageText, []byte("ignored")); err != nil {
			return
		}
		if err := conn.Write(ctx, websocket.MessageBinary, []byte("kept")); err != nil {
			return
		}
		conn.Close(websocket.StatusNormalClosure, "")
	})

	handler := newTestHandler()
	sock := NewSocket(Config{Endpoint: url}, handler)

	if err := sock.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}

	select {
	case msg := <-handler.messages:
		if string(msg) != "kept" {
			t.Errorf("message = %q, want %q", msg, "kept")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("binary message not delivered")
	}

	select {
	case msg := <-handler.messages:
		t.Errorf("unexpected extra message %q", msg)
	case <-handler.disconnected:
	case <-time.After(2 * time.Second):
		t.Fatal("OnDisconnected not called")
	}
}

func TestSocketConnectDialFailure(t *testing.T) {
	handler := newTestHandler()
	sock := NewSocket(Config{
		Endpoint:    "ws://127.0.0.1:1", // nothing listens here
		DialTimeout: time.Second,
	}, handler)

	if err := sock.Connect(context.Background()); err == nil {
		t.Fatal("expected dial failure")
	}
	if sock.State() != StateDisconnected {
		t.Errorf("state = %v, want DISCONNECTED after failed dial", sock.State())
	}
}
