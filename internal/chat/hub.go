package chat

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
)

type delivery struct {
	room    string
	payload []byte
}

// Hub is the connection registry: it tracks which clients are joined to
// which room and fans published payloads out to them. All registry state is
// owned by the Run goroutine and touched only there, so no locks. Everything
// here is in-memory and rebuilt from scratch on reconnect; the only durable
// side effect of chatting is message persistence, which happens in the
// client before the payload ever reaches the hub.
type Hub struct {
	rooms map[string]map[*Client]bool

	register   chan *Client
	unregister chan *Client
	deliver    chan delivery

	bridge Bridge
	log    zerolog.Logger
}

func NewHub(bridge Bridge, log zerolog.Logger) *Hub {
	return &Hub{
		rooms:      make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		deliver:    make(chan delivery, 64),
		bridge:     bridge,
		log:        log.With().Str("component", "hub").Logger(),
	}
}

// Join registers the client under its room. The sender is part of the room
// set like everyone else, so it receives its own echo on broadcast.
func (h *Hub) Join(c *Client) {
	h.register <- c
}

// Leave removes the client from its room and closes its send channel.
// Safe to call for a client that was never registered.
func (h *Hub) Leave(c *Client) {
	h.unregister <- c
}

// Broadcast hands a payload to the bridge for fan-out to every connection
// joined to the room, on this instance and any other sharing the bridge.
func (h *Hub) Broadcast(ctx context.Context, room string, payload []byte) {
	if err := h.bridge.Publish(ctx, room, payload); err != nil {
		h.log.Error().Err(err).Str("room", room).Msg("broadcast publish failed")
	}
}

// Run owns the registry state. It returns when ctx is canceled.
func (h *Hub) Run(ctx context.Context) {
	go func() {
		err := h.bridge.Subscribe(ctx, func(room string, payload []byte) {
			select {
			case h.deliver <- delivery{room: room, payload: payload}:
			case <-ctx.Done():
			}
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			h.log.Error().Err(err).Msg("bridge subscription ended")
		}
	}()

	for {
		select {
		case client := <-h.register:
			clients := h.rooms[client.room]
			if clients == nil {
				clients = make(map[*Client]bool)
				h.rooms[client.room] = clients
			}
			clients[client] = true
			h.log.Debug().Str("room", client.room).Str("user", client.username).
				Int("room_size", len(clients)).Msg("client joined")

		case client := <-h.unregister:
			if clients, ok := h.rooms[client.room]; ok && clients[client] {
				delete(clients, client)
				close(client.send)
				if len(clients) == 0 {
					delete(h.rooms, client.room)
				}
				h.log.Debug().Str("room", client.room).Str("user", client.username).
					Msg("client left")
			}

		case d := <-h.deliver:
			for client := range h.rooms[d.room] {
				select {
				case client.send <- d.payload:
				default:
					// Slow consumer: drop it rather than stall the room.
					delete(h.rooms[d.room], client)
					close(client.send)
				}
			}

		case <-ctx.Done():
			return
		}
	}
}
