package sse

import (
	"io"
	"log"

	"github.com/gin-gonic/gin"
)

// Event is a single server-sent event pushed to a connected client
type Event struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

type client struct {
	userID string
	ch     chan Event
}

type userEvent struct {
	userID string
	event  Event
}

// Manager fans sync progress updates out to connected dashboard sessions.
// Each user may hold several open streams (multiple tabs); events are
// delivered to all of them.
type Manager struct {
	register   chan *client
	unregister chan *client
	send       chan userEvent
	clients    map[string]map[*client]struct{}
}

func NewManager() *Manager {
	return &Manager{
		register:   make(chan *client),
		unregister: make(chan *client),
		send:       make(chan userEvent, 64),
		clients:    make(map[string]map[*client]struct{}),
	}
}

// Run owns the client map; call it once from a goroutine at startup.
func (m *Manager) Run() {
	for {
		select {
		case c := <-m.register:
			if m.clients[c.userID] == nil {
				m.clients[c.userID] = make(map[*client]struct{})
			}
			m.clients[c.userID][c] = struct{}{}
			log.Printf("[SSE] Client connected for user %s (%d active)", c.userID, len(m.clients[c.userID]))

		case c := <-m.unregister:
			if set, ok := m.clients[c.userID]; ok {
				if _, ok := set[c]; ok {
					delete(set, c)
					close(c.ch)
					if len(set) == 0 {
						delete(m.clients, c.userID)
					}
				}
			}

		case ue := <-m.send:
			for c := range m.clients[ue.userID] {
				select {
				case c.ch <- ue.event:
				default:
					// Slow consumer, drop the event rather than block the loop
				}
			}
		}
	}
}

// SendToUser queues an event for every open stream of the given user.
func (m *Manager) SendToUser(userID string, eventType string, payload interface{}) {
	m.send <- userEvent{userID: userID, event: Event{Type: eventType, Payload: payload}}
}

// ServeHTTP upgrades the request to an SSE stream for the given user.
func (m *Manager) ServeHTTP(c *gin.Context, userID string) {
	cl := &client{userID: userID, ch: make(chan Event, 16)}
	m.register <- cl
	defer func() { m.unregister <- cl }()

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	c.Stream(func(w io.Writer) bool {
		select {
		case ev, ok := <-cl.ch:
			if !ok {
				return false
			}
			c.SSEvent(ev.Type, ev.Payload)
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}
