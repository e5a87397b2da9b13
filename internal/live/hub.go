package live

import (
	"encoding/json"
	"log"

	"github.com/redis/go-redis/v9"

	"github.com/liveshop/backend/internal/models"
)

// Hub fans session events out to websocket viewers, grouped per broadcast.
// Events arrive through Redis pub/sub so every instance behind a load
// balancer sees every change.
type Hub struct {
	rooms      map[int64]map[*Client]bool
	register   chan *Client
	unregister chan *Client
	events     chan models.LiveEvent
}

func NewHub() *Hub {
	return &Hub{
		rooms:      make(map[int64]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		events:     make(chan models.LiveEvent, 64),
	}
}

// Run processes registrations and event fan-out. Call in a goroutine.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			room, ok := h.rooms[client.broadcastID]
			if !ok {
				room = make(map[*Client]bool)
				h.rooms[client.broadcastID] = room
			}
			room[client] = true

		case client := <-h.unregister:
			if room, ok := h.rooms[client.broadcastID]; ok {
				if _, ok := room[client]; ok {
					delete(room, client)
					close(client.send)
					if len(room) == 0 {
						delete(h.rooms, client.broadcastID)
					}
				}
			}

		case event := <-h.events:
			h.dispatch(event)
		}
	}
}

func (h *Hub) dispatch(event models.LiveEvent) {
	room, ok := h.rooms[event.BroadcastID]
	if !ok {
		return
	}
	data, err := json.Marshal(event)
	if err != nil {
		log.Printf("live: failed to encode event: %v", err)
		return
	}
	for client := range room {
		select {
		case client.send <- data:
		default:
			// slow consumer, drop it
			delete(room, client)
			close(client.send)
		}
	}
	if len(room) == 0 {
		delete(h.rooms, event.BroadcastID)
	}
}

// Publish queues an event for local fan-out. Exposed for tests; production
// events arrive via PumpEvents.
func (h *Hub) Publish(event models.LiveEvent) {
	h.events <- event
}

// PumpEvents feeds the hub from a Redis subscription until the subscription
// closes. Call in a goroutine.
func (h *Hub) PumpEvents(pubsub *redis.PubSub) {
	defer pubsub.Close()
	for msg := range pubsub.Channel() {
		var event models.LiveEvent
		if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
			log.Printf("live: failed to decode event: %v", err)
			continue
		}
		h.events <- event
	}
}
