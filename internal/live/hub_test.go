package live

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/liveshop/backend/internal/models"
)

func newTestClient(hub *Hub, broadcastID int64) *Client {
	return &Client{
		hub:         hub,
		send:        make(chan []byte, 16),
		broadcastID: broadcastID,
	}
}

func recv(t *testing.T, c *Client) models.LiveEvent {
	t.Helper()
	select {
	case data := <-c.send:
		var event models.LiveEvent
		if err := json.Unmarshal(data, &event); err != nil {
			t.Fatalf("decode event: %v", err)
		}
		return event
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return models.LiveEvent{}
	}
}

func TestHub_RoutesEventsToTheRightRoom(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	a := newTestClient(hub, 1)
	b := newTestClient(hub, 1)
	other := newTestClient(hub, 2)
	hub.register <- a
	hub.register <- b
	hub.register <- other

	hub.Publish(models.LiveEvent{BroadcastID: 1, Event: models.LiveEventAnnouncement})

	for _, c := range []*Client{a, b} {
		event := recv(t, c)
		if event.Event != models.LiveEventAnnouncement {
			t.Errorf("event = %s", event.Event)
		}
		if event.BroadcastID != 1 {
			t.Errorf("broadcast id = %d", event.BroadcastID)
		}
	}

	select {
	case data := <-other.send:
		t.Fatalf("room 2 client received event for room 1: %s", data)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHub_UnregisterStopsDelivery(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	c := newTestClient(hub, 5)
	hub.register <- c
	hub.unregister <- c

	// the send channel closes on unregister
	select {
	case _, ok := <-c.send:
		if ok {
			t.Fatal("expected closed channel, got message")
		}
	case <-time.After(time.Second):
		t.Fatal("send channel was not closed")
	}
}

func TestHub_DropsSlowConsumer(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	slow := &Client{hub: hub, send: make(chan []byte), broadcastID: 3}
	healthy := newTestClient(hub, 3)
	hub.register <- slow
	hub.register <- healthy

	hub.Publish(models.LiveEvent{BroadcastID: 3, Event: models.LiveEventCatalog})

	event := recv(t, healthy)
	if event.Event != models.LiveEventCatalog {
		t.Errorf("event = %s", event.Event)
	}

	// the slow client's unbuffered channel was closed when delivery failed
	select {
	case _, ok := <-slow.send:
		if ok {
			t.Fatal("expected closed channel")
		}
	case <-time.After(time.Second):
		t.Fatal("slow client was not dropped")
	}
}
