package devserver

import (
	"errors"
	"sync"

	"github.com/gorilla/websocket"
)

// Client is a browser tab listening on the reload channel.
type Client struct {
	Conn *websocket.Conn
	mu   sync.Mutex // Protects writes to Conn
}

// Send writes one message to the client.
// Thread-safe: multiple goroutines can call Send concurrently.
func (c *Client) Send(messageType int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Conn.WriteMessage(messageType, data)
}

// Registry tracks the connected reload clients.
//
// Thread-safe: safe for concurrent access from multiple goroutines.
type Registry struct {
	clients []*Client
	mu      sync.RWMutex
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds a client.
func (r *Registry) Register(c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients = append(r.clients, c)
}

// Unregister removes a client. Unknown clients are ignored.
//
// Should be called when the websocket closes so the registry does not
// hold on to dead connections.
func (r *Registry) Unregister(c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients = removeClient(r.clients, c)
}

// GetAll returns a copy of the registered clients.
func (r *Registry) GetAll() []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*Client, len(r.clients))
	copy(result, r.clients)
	return result
}

// Count returns the number of registered clients.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clients)
}

// Broadcast sends a text message to every client and returns how many
// received it. Failed sends are joined into the returned error; the
// clients stay registered until their read loop notices the close.
func (r *Registry) Broadcast(msg string) (int, error) {
	var errs []error
	sent := 0
	for _, c := range r.GetAll() {
		if err := c.Send(websocket.TextMessage, []byte(msg)); err != nil {
			errs = append(errs, err)
			continue
		}
		sent++
	}
	return sent, errors.Join(errs...)
}

func removeClient(clients []*Client, target *Client) []*Client {
	result := make([]*Client, 0, len(clients))
	for _, c := range clients {
		if c != target {
			result = append(result, c)
		}
	}
	return result
}
