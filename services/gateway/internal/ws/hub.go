// Package ws fans room events out to browser websockets.
package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/DeadlyParkour777/code-room/pkg/events"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Hub tracks the sockets of every room served by this gateway.
type Hub struct {
	// Registered clients by room
	rooms map[string]map[*Client]struct{}
	mu    sync.RWMutex

	broadcast  chan *roomMessage
	register   chan *Client
	unregister chan *Client
	done       chan struct{}

	logger *zap.Logger
}

type roomMessage struct {
	roomID string
	data   []byte
	// last closes the room's sockets after delivery.
	last bool
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		rooms:      make(map[string]map[*Client]struct{}),
		broadcast:  make(chan *roomMessage, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// Run owns the room map until ctx is cancelled, then closes every socket.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for roomID, clients := range h.rooms {
				for c := range clients {
					close(c.send)
				}
				delete(h.rooms, roomID)
			}
			h.mu.Unlock()
			return

		case c := <-h.register:
			h.mu.Lock()
			if _, ok := h.rooms[c.roomID]; !ok {
				h.rooms[c.roomID] = make(map[*Client]struct{})
			}
			h.rooms[c.roomID][c] = struct{}{}
			count := len(h.rooms[c.roomID])
			h.mu.Unlock()

			h.logger.Debug("socket joined room", zap.String("room_id", c.roomID), zap.String("user_id", c.userID), zap.Int("sockets", count))

		case c := <-h.unregister:
			h.mu.Lock()
			h.remove(c)
			h.mu.Unlock()

		case msg := <-h.broadcast:
			h.mu.Lock()
			for c := range h.rooms[msg.roomID] {
				select {
				case c.send <- msg.data:
				default:
					h.logger.Warn("dropping slow socket", zap.String("room_id", msg.roomID), zap.String("user_id", c.userID))
					h.remove(c)
				}
			}
			if msg.last {
				for c := range h.rooms[msg.roomID] {
					h.remove(c)
				}
			}
			h.mu.Unlock()
		}
	}
}

// remove must be called with mu held.
func (h *Hub) remove(c *Client) {
	clients, ok := h.rooms[c.roomID]
	if !ok {
		return
	}
	if _, ok := clients[c]; !ok {
		return
	}
	delete(clients, c)
	close(c.send)
	if len(clients) == 0 {
		delete(h.rooms, c.roomID)
	}
}

// Broadcast queues data for every socket of the room. It reports false once
// the hub has stopped.
func (h *Hub) Broadcast(roomID string, data []byte) bool {
	return h.enqueue(&roomMessage{roomID: roomID, data: data})
}

func (h *Hub) enqueue(msg *roomMessage) bool {
	select {
	case h.broadcast <- msg:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) Register(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

func (h *Hub) ClientCount(roomID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[roomID])
}

func (h *Hub) RoomCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms)
}

// Listen subscribes to every room channel and relays events until ctx ends.
func (h *Hub) Listen(ctx context.Context, client redis.UniversalClient) error {
	sub := client.PSubscribe(ctx, events.ChannelPattern)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to room events: %w", err)
	}
	h.logger.Info("subscribed to room events", zap.String("pattern", events.ChannelPattern))

	h.relay(ctx, sub.Channel())
	return nil
}

func (h *Hub) relay(ctx context.Context, ch <-chan *redis.Message) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			roomID, ok := events.RoomFromChannel(msg.Channel)
			if !ok {
				continue
			}

			var head struct {
				Type events.Type `json:"type"`
			}
			if err := json.Unmarshal([]byte(msg.Payload), &head); err != nil {
				h.logger.Warn("skipping malformed room event", zap.String("channel", msg.Channel), zap.Error(err))
				continue
			}

			if !h.enqueue(&roomMessage{roomID: roomID, data: []byte(msg.Payload), last: head.Type == events.RoomDeleted}) {
				return
			}
		}
	}
}
