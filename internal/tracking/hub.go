package tracking

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"sync"

	"github.com/foodly/storefront/internal/model"
	"github.com/rs/zerolog"
)

// Event is a message pushed to every client watching an order.
type Event struct {
	Type    string          `json:"type"`
	OrderID model.ID        `json:"order_id"`
	Payload json.RawMessage `json:"payload"`
}

// roomEvent routes an event to one order's room
type roomEvent struct {
	room  model.ID
	event Event
}

// Hub maintains the set of active clients per order and broadcasts to them.
type Hub struct {
	rooms map[model.ID]map[*Client]bool

	register   chan *Client
	unregister chan *Client
	broadcast  chan *roomEvent
	done       chan struct{}

	mu  sync.RWMutex
	log zerolog.Logger
}

func NewHub(log zerolog.Logger) *Hub {
	return &Hub{
		rooms:      make(map[model.ID]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *roomEvent, 256),
		done:       make(chan struct{}),
		log:        log.With().Str("component", "tracking-hub").Logger(),
	}
}

// Run is the hub's main loop. It returns when ctx is cancelled, after closing
// every client's send channel.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for room, clients := range h.rooms {
				for client := range clients {
					close(client.send)
				}
				delete(h.rooms, room)
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			if h.rooms[client.room] == nil {
				h.rooms[client.room] = make(map[*Client]bool)
			}
			h.rooms[client.room][client] = true
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			h.drop(client)
			h.mu.Unlock()

		case re := <-h.broadcast:
			message, err := json.Marshal(re.event)
			if err != nil {
				h.log.Error().Err(err).Str("type", re.event.Type).Msg("marshal event")
				continue
			}
			h.mu.Lock()
			for client := range h.rooms[re.room] {
				select {
				case client.send <- message:
				default:
					// slow consumer
					h.drop(client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// drop removes client from its room. Caller holds mu.
func (h *Hub) drop(client *Client) {
	clients, ok := h.rooms[client.room]
	if !ok {
		return
	}
	if _, exists := clients[client]; !exists {
		return
	}
	delete(clients, client)
	close(client.send)
	if len(clients) == 0 {
		delete(h.rooms, client.room)
	}
}

// Broadcast sends event to every client watching orderID. It is a no-op once
// the hub has stopped.
func (h *Hub) Broadcast(orderID model.ID, event Event) {
	select {
	case h.broadcast <- &roomEvent{room: roomKey(orderID), event: event}:
	case <-h.done:
	}
}

// Subscribers returns how many clients watch orderID.
func (h *Hub) Subscribers(orderID model.ID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[roomKey(orderID)])
}

func (h *Hub) join(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) leave(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// roomKey makes "7", "007" and " 7 " share a room.
func roomKey(id model.ID) model.ID {
	s := strings.TrimSpace(id.String())
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return model.ID(strconv.FormatInt(n, 10))
	}
	return model.ID(s)
}
