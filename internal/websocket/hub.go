// Package notifyws pushes session lifecycle notifications to connected
// clients over websockets. Delivery is best effort: a client whose send
// buffer is full is dropped rather than allowed to stall the hub.
package notifyws

import (
	"encoding/json"
	"log"

	websocket "github.com/gofiber/contrib/websocket"
	"github.com/longtq2501/Tutor-Pro-sub001/internal/services"
)

type Hub struct {
	clients    map[int64]map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	broadcast  chan services.Notification
}

type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	userID int64
	send   chan []byte
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[int64]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan services.Notification, 64),
	}
}

func NewClient(hub *Hub, conn *websocket.Conn, userID int64) *Client {
	return &Client{
		hub:    hub,
		conn:   conn,
		userID: userID,
		send:   make(chan []byte, 32),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			set, ok := h.clients[client.userID]
			if !ok {
				set = make(map[*Client]struct{})
				h.clients[client.userID] = set
			}
			set[client] = struct{}{}
		case client := <-h.unregister:
			set, ok := h.clients[client.userID]
			if !ok {
				continue
			}
			if _, exists := set[client]; exists {
				delete(set, client)
				close(client.send)
			}
			if len(set) == 0 {
				delete(h.clients, client.userID)
			}
		case notification := <-h.broadcast:
			h.deliver(notification)
		}
	}
}

func (h *Hub) Register(client *Client) {
	h.register <- client
}

func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// Publish hands a notification to the hub loop. Implements
// services.Publisher; it never blocks the mutation path, a full broadcast
// buffer drops the notification instead.
func (h *Hub) Publish(n services.Notification) error {
	select {
	case h.broadcast <- n:
	default:
		log.Printf("notify hub buffer full, dropping %s", n.Type)
	}
	return nil
}

func (h *Hub) deliver(n services.Notification) {
	encoded, err := json.Marshal(n)
	if err != nil {
		log.Printf("notify hub encode: %v", err)
		return
	}
	for _, userID := range n.Recipients {
		h.sendToUser(userID, encoded)
	}
}

func (h *Hub) sendToUser(userID int64, payload []byte) {
	set, ok := h.clients[userID]
	if !ok {
		return
	}

	for client := range set {
		select {
		case client.send <- payload:
		default:
			delete(set, client)
			close(client.send)
		}
	}
	if len(set) == 0 {
		delete(h.clients, userID)
	}
}

// ReadPump drains the connection. Clients only listen on this socket, so any
// inbound frame besides the control traffic is ignored; the pump exists to
// detect disconnects and unregister the client.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		_ = c.conn.Close()
	}()

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *Client) WritePump() {
	defer func() {
		_ = c.conn.Close()
	}()

	for payload := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			return
		}
	}
}
