package websocket

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/dukerupert/flatrota/internal/auth"
	"github.com/dukerupert/flatrota/internal/model"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// mockClient creates a Client with a send channel but no real connection.
func mockClient(hub *Hub, flatID int64) *Client {
	return &Client{
		hub:    hub,
		flatID: flatID,
		send:   make(chan []byte, sendBufferSize),
	}
}

func receive(t *testing.T, c *Client) Message {
	t.Helper()
	select {
	case data := <-c.send:
		var got Message
		if err := json.Unmarshal(data, &got); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		return got
	case <-time.After(100 * time.Millisecond):
		t.Fatal("timeout waiting for message")
	}
	return Message{}
}

func TestRegisterUnregister(t *testing.T) {
	hub := NewHub(testLogger())

	c1 := mockClient(hub, 1)
	c2 := mockClient(hub, 2)
	hub.Register(c1)
	hub.Register(c2)

	if got := hub.ClientCount(); got != 2 {
		t.Fatalf("expected 2 clients, got %d", got)
	}
	if got := hub.FlatClientCount(1); got != 1 {
		t.Fatalf("expected 1 client in flat 1, got %d", got)
	}

	hub.Unregister(c1)
	if got := hub.FlatClientCount(1); got != 0 {
		t.Fatalf("expected 0 clients in flat 1, got %d", got)
	}

	hub.Unregister(c2)
	if got := hub.ClientCount(); got != 0 {
		t.Fatalf("expected 0 clients, got %d", got)
	}
}

func TestDoubleUnregister(t *testing.T) {
	hub := NewHub(testLogger())
	c := mockClient(hub, 1)
	hub.Register(c)
	hub.Unregister(c)
	hub.Unregister(c)

	if got := hub.ClientCount(); got != 0 {
		t.Fatalf("expected 0 clients, got %d", got)
	}
}

func TestBroadcastScopedToFlat(t *testing.T) {
	hub := NewHub(testLogger())

	a1 := mockClient(hub, 1)
	a2 := mockClient(hub, 1)
	other := mockClient(hub, 2)
	hub.Register(a1)
	hub.Register(a2)
	hub.Register(other)

	hub.Broadcast(NewMessage(1, "period", "completed", 42, map[string]any{"task_id": float64(7)}))

	for _, c := range []*Client{a1, a2} {
		got := receive(t, c)
		if got.Type != "period_completed" {
			t.Errorf("type = %s, want period_completed", got.Type)
		}
		if got.FlatID != 1 || got.ID != 42 {
			t.Errorf("got %+v", got)
		}
		if got.Extra["task_id"] != float64(7) {
			t.Errorf("extra = %v", got.Extra)
		}
	}

	select {
	case <-other.send:
		t.Error("client of another flat received the message")
	default:
	}
}

func TestBroadcastEmptyHub(t *testing.T) {
	hub := NewHub(testLogger())
	hub.Broadcast(NewMessage(1, "task", "closed", 1, nil))
}

func TestBroadcastFullBuffer(t *testing.T) {
	hub := NewHub(testLogger())

	c := mockClient(hub, 1)
	hub.Register(c)

	for i := 0; i < sendBufferSize; i++ {
		hub.Broadcast(NewMessage(1, "test", "fill", int64(i), nil))
	}
	hub.Broadcast(NewMessage(1, "test", "dropped", 999, nil))

	count := 0
	for {
		select {
		case <-c.send:
			count++
		default:
			goto done
		}
	}
done:
	if count != sendBufferSize {
		t.Errorf("expected %d messages, got %d", sendBufferSize, count)
	}

	hub.Unregister(c)
}

func TestNewMessage(t *testing.T) {
	msg := NewMessage(3, "periods", "reset", 5, nil)
	if msg.Type != "periods_reset" {
		t.Errorf("expected type periods_reset, got %s", msg.Type)
	}
	if msg.FlatID != 3 || msg.Entity != "periods" || msg.Action != "reset" || msg.ID != 5 {
		t.Errorf("got %+v", msg)
	}
}

func TestConcurrentAccess(t *testing.T) {
	hub := NewHub(testLogger())
	var wg sync.WaitGroup

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(flatID int64) {
			defer wg.Done()
			c := mockClient(hub, flatID)
			hub.Register(c)
			hub.Broadcast(NewMessage(flatID, "test", "concurrent", 0, nil))
			for {
				select {
				case <-c.send:
				default:
					hub.Unregister(c)
					return
				}
			}
		}(int64(i % 3))
	}

	wg.Wait()

	if got := hub.ClientCount(); got != 0 {
		t.Errorf("expected 0 clients after concurrent test, got %d", got)
	}
}

type fakeMembership map[int64][]int64

func (f fakeMembership) IsMember(_ context.Context, flatID, userID int64) (bool, error) {
	for _, id := range f[flatID] {
		if id == userID {
			return true, nil
		}
	}
	return false, nil
}

func TestHandleWebSocketRejects(t *testing.T) {
	hub := NewHub(testLogger())
	h := HandleWebSocket(hub, fakeMembership{1: {10}}, nil, testLogger())

	tests := []struct {
		name  string
		query string
		user  int64
		want  int
	}{
		{"missing flat", "", 10, http.StatusBadRequest},
		{"bad flat", "?flat_id=x", 10, http.StatusBadRequest},
		{"not a member", "?flat_id=1", 11, http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/ws"+tt.query, nil)
			ctx := auth.WithCaller(req.Context(), auth.Caller{User: model.User{ID: tt.user}})
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req.WithContext(ctx))
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}
