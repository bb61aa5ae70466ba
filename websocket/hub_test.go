package websocket

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
)

type fakeConn struct {
	events chan Event
	closed chan struct{}
	err    error
}

func newFakeConn(err error) *fakeConn {
	return &fakeConn{events: make(chan Event, 4), closed: make(chan struct{}), err: err}
}

func (c *fakeConn) WriteJSON(v interface{}) error {
	if c.err != nil {
		return c.err
	}
	c.events <- v.(Event)
	return nil
}

func (c *fakeConn) Close() error {
	close(c.closed)
	return nil
}

func startHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub(slog.New(slog.NewTextHandler(io.Discard, nil)))
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)
	return hub
}

func TestHubBroadcastsInvalidations(t *testing.T) {
	hub := startHub(t)
	a, b := newFakeConn(nil), newFakeConn(nil)
	hub.Register(&Client{ID: uuid.New(), Conn: a})
	hub.Register(&Client{ID: uuid.New(), Conn: b})

	hub.Publish([]string{"lessons", "finances"})

	for name, conn := range map[string]*fakeConn{"a": a, "b": b} {
		select {
		case got := <-conn.events:
			if got.Type != "invalidate" || len(got.Keys) != 2 || got.Keys[0] != "lessons" {
				t.Errorf("%s: got %+v", name, got)
			}
		case <-time.After(time.Second):
			t.Fatalf("%s: no event received", name)
		}
	}
}

func TestHubDropsFailingClients(t *testing.T) {
	hub := startHub(t)
	broken := newFakeConn(errors.New("broken pipe"))
	hub.Register(&Client{ID: uuid.New(), Conn: broken})

	hub.Publish([]string{"students"})

	select {
	case <-broken.closed:
	case <-time.After(time.Second):
		t.Fatal("failing client was not closed")
	}
	if n := hub.Clients(); n != 0 {
		t.Errorf("Clients: got %d, want 0", n)
	}
}

func TestHubUnregister(t *testing.T) {
	hub := startHub(t)
	client := &Client{ID: uuid.New(), Conn: newFakeConn(nil)}
	hub.Register(client)
	hub.Unregister(client)
	otherConn := newFakeConn(nil)
	hub.Register(&Client{ID: uuid.New(), Conn: otherConn})

	// the event arriving means every earlier registration was handled
	hub.Publish([]string{"agenda"})
	select {
	case <-otherConn.events:
	case <-time.After(time.Second):
		t.Fatal("no event received")
	}
	if n := hub.Clients(); n != 1 {
		t.Errorf("Clients: got %d, want 1", n)
	}
}

func TestPublishIgnoresEmptyKeys(t *testing.T) {
	hub := NewHub(slog.New(slog.NewTextHandler(io.Discard, nil)))
	hub.Publish(nil)
	if len(hub.broadcast) != 0 {
		t.Errorf("queued %d events, want 0", len(hub.broadcast))
	}
}

func TestHubStopReleasesClients(t *testing.T) {
	hub := NewHub(slog.New(slog.NewTextHandler(io.Discard, nil)))
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(stopped)
	}()

	conn := newFakeConn(nil)
	client := &Client{ID: uuid.New(), Conn: conn}
	if !hub.Register(client) {
		t.Fatal("Register on a running hub: got false")
	}
	cancel()
	<-stopped

	select {
	case <-conn.closed:
	default:
		t.Error("connection not closed on stop")
	}

	returned := make(chan bool)
	go func() {
		hub.Unregister(client)
		returned <- hub.Register(&Client{ID: uuid.New(), Conn: newFakeConn(nil)})
	}()
	select {
	case ok := <-returned:
		if ok {
			t.Error("Register after stop: got true, want false")
		}
	case <-time.After(time.Second):
		t.Fatal("Register or Unregister blocked on a stopped hub")
	}
}
