package hub

import (
	"encoding/json"
	"testing"
	"time"
)

func newTestClient(h *Hub, buffer int) *Client {
	c := &Client{hub: h, send: make(chan []byte, buffer)}
	h.register <- c
	return c
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition never met")
}

func TestHubBroadcast(t *testing.T) {
	h := New("test", nil)
	go h.Run()
	waitFor(t, h.IsRunning)

	a := newTestClient(h, 4)
	b := newTestClient(h, 4)
	waitFor(t, func() bool { return h.ClientCount() == 2 })

	if err := h.BroadcastEvent(Event{Type: "reply", ConversationID: "c1", Payload: "hello"}); err != nil {
		t.Fatalf("broadcast: %v", err)
	}

	for _, c := range []*Client{a, b} {
		select {
		case msg := <-c.send:
			var ev Event
			if err := json.Unmarshal(msg, &ev); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if ev.Type != "reply" || ev.ConversationID != "c1" {
				t.Errorf("unexpected event: %+v", ev)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("client never received the broadcast")
		}
	}
}

func TestHubUnregister(t *testing.T) {
	h := New("test", nil)
	go h.Run()
	waitFor(t, h.IsRunning)

	c := newTestClient(h, 4)
	waitFor(t, func() bool { return h.ClientCount() == 1 })

	h.unregister <- c
	waitFor(t, func() bool { return h.ClientCount() == 0 })

	// The send channel is closed on unregister.
	if _, ok := <-c.send; ok {
		t.Error("expected send channel closed")
	}
}

func TestHubDropsSlowClient(t *testing.T) {
	h := New("test", nil)
	go h.Run()
	waitFor(t, h.IsRunning)

	// Zero buffer means the first broadcast cannot be delivered.
	newTestClient(h, 0)
	waitFor(t, func() bool { return h.ClientCount() == 1 })

	h.BroadcastEvent(Event{Type: "reply", ConversationID: "c1", Payload: "x"})
	waitFor(t, func() bool { return h.ClientCount() == 0 })
}
