// Package notify pushes order events to connected users over websockets.
package notify

import (
	"encoding/json"
	"log/slog"
	"time"
)

const EventConnected = "connected"

// Event is the envelope written to every socket.
type Event struct {
	Type string    `json:"type"`
	Data any       `json:"data,omitempty"`
	At   time.Time `json:"at"`
}

type Client struct {
	UserID string
	Send   chan []byte
}

type message struct {
	userID string
	data   []byte
}

// Hub keeps one room per user. Run owns the room map; everything else talks
// to it through channels.
type Hub struct {
	rooms      map[string]map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan message
	quit       chan struct{}
	done       chan struct{}
}

func NewHub() *Hub {
	return &Hub{
		rooms:      make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan message, 256),
		quit:       make(chan struct{}),
		done:       make(chan struct{}),
	}
}

func (h *Hub) Run() {
	defer close(h.done)
	for {
		select {
		case c := <-h.register:
			if h.rooms[c.UserID] == nil {
				h.rooms[c.UserID] = make(map[*Client]bool)
			}
			h.rooms[c.UserID][c] = true

		case c := <-h.unregister:
			h.drop(c)

		case m := <-h.broadcast:
			for c := range h.rooms[m.userID] {
				select {
				case c.Send <- m.data:
				default:
					// slow reader
					h.drop(c)
				}
			}

		case <-h.quit:
			for _, room := range h.rooms {
				for c := range room {
					h.drop(c)
				}
			}
			return
		}
	}
}

func (h *Hub) drop(c *Client) {
	room := h.rooms[c.UserID]
	if !room[c] {
		return
	}
	delete(room, c)
	close(c.Send)
	if len(room) == 0 {
		delete(h.rooms, c.UserID)
	}
}

// Stop closes every client and waits for Run to return.
func (h *Hub) Stop() {
	select {
	case <-h.quit:
	default:
		close(h.quit)
	}
	<-h.done
}

// Register adds c. It reports false once the hub is stopped.
func (h *Hub) Register(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.quit:
		return false
	}
}

func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.quit:
	}
}

// Notify queues an event for every socket userID has open. It never blocks
// the caller; events are dropped when the queue is full.
func (h *Hub) Notify(userID, event string, payload any) {
	data, err := json.Marshal(Event{Type: event, Data: payload, At: time.Now().UTC()})
	if err != nil {
		slog.Error("encode notification", "event", event, "error", err)
		return
	}
	select {
	case h.broadcast <- message{userID: userID, data: data}:
	case <-h.quit:
	default:
		slog.Warn("notification queue full, dropping event", "event", event, "userId", userID)
	}
}
