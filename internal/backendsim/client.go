package backendsim

import (
	"log/slog"
	"sync"

	"github.com/gorilla/websocket"
)

// Client represents a single connected UI process.
type Client struct {
	ID   string
	conn *websocket.Conn
	send chan []byte
	mu   sync.RWMutex
}

// SendMessage queues msg for the client's write pump. A full queue drops the message.
func (c *Client) SendMessage(msg []byte) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	// A nil channel means the client is disconnected.
	if c.send == nil {
		return false
	}

	select {
	case c.send <- msg:
		return true
	default:
		slog.Warn("Client send channel full, dropping message", "clientID", c.ID)
		return false
	}
}

// Close closes the send channel, which ends the write pump.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.send != nil {
		close(c.send)
		c.send = nil
	}
}

// ClientManager tracks connected clients by ID.
type ClientManager struct {
	clients map[string]*Client
	mu      sync.RWMutex
}

// NewClientManager creates a new ClientManager.
func NewClientManager() *ClientManager {
	return &ClientManager{
		clients: make(map[string]*Client),
	}
}

// Add registers a client.
func (m *ClientManager) Add(client *Client) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.clients[client.ID] = client
}

// Remove unregisters a client and closes its send channel.
func (m *ClientManager) Remove(clientID string) {
	m.mu.Lock()
	client, ok := m.clients[clientID]
	delete(m.clients, clientID)
	m.mu.Unlock()

	if ok {
		client.Close()
	}
}

// Get returns the client with the given ID.
func (m *ClientManager) Get(clientID string) (*Client, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	client, ok := m.clients[clientID]
	return client, ok
}

// GetAll returns all currently connected clients.
func (m *ClientManager) GetAll() []*Client {
	m.mu.RLock()
	defer m.mu.RUnlock()

	all := make([]*Client, 0, len(m.clients))
	for _, client := range m.clients {
		all = append(all, client)
	}
	return all
}

// Count returns the number of connected clients.
func (m *ClientManager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.clients)
}

// Broadcast queues msg for every client and returns how many accepted it.
func (m *ClientManager) Broadcast(msg []byte) int {
	n := 0
	for _, client := range m.GetAll() {
		if client.SendMessage(msg) {
			n++
		}
	}
	return n
}
