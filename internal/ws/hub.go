package ws

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/rs/zerolog"
)

// Frame is the wire shape of every event pushed to clients.
type Frame struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

type outbound struct {
	room   string // non-empty: only clients joined to this room
	userID string // non-empty: only this user's connections
	data   []byte
}

// Hub tracks the connections of one socket channel and fans events
// out to them. Delivery is best-effort, at-most-once: a client whose
// buffer is full simply misses the event.
type Hub struct {
	name string
	log  zerolog.Logger

	mu      sync.RWMutex
	clients map[*Client]bool
	users   map[string]map[*Client]bool
	rooms   map[string]map[*Client]bool

	register   chan *Client
	unregister chan *Client
	broadcast  chan outbound
	done       chan struct{}
}

func NewHub(name string, log zerolog.Logger) *Hub {
	return &Hub{
		name:       name,
		log:        log.With().Str("component", "ws").Str("channel", name).Logger(),
		clients:    make(map[*Client]bool),
		users:      make(map[string]map[*Client]bool),
		rooms:      make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan outbound, 256),
		done:       make(chan struct{}),
	}
}

// Run drives the hub until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			close(h.done)
			return
		case client := <-h.register:
			h.handleRegister(client)
		case client := <-h.unregister:
			h.handleUnregister(client)
		case msg := <-h.broadcast:
			h.handleBroadcast(msg)
		}
	}
}

// Wait blocks until the hub has shut down.
func (h *Hub) Wait() {
	<-h.done
}

// Broadcast sends an event to every connected client.
func (h *Hub) Broadcast(event string, data any) {
	h.push(outbound{data: h.encode(event, data)})
}

// BroadcastRoom sends an event to clients joined to room.
func (h *Hub) BroadcastRoom(room, event string, data any) {
	h.push(outbound{room: room, data: h.encode(event, data)})
}

// SendToUser sends an event to every connection of one user.
func (h *Hub) SendToUser(userID, event string, data any) {
	h.push(outbound{userID: userID, data: h.encode(event, data)})
}

// BroadcastTaskEvent satisfies the tasks service Broadcaster contract.
func (h *Hub) BroadcastTaskEvent(event, taskID string) {
	h.Broadcast(event, map[string]string{"taskId": taskID})
}

func (h *Hub) encode(event string, data any) []byte {
	payload, err := json.Marshal(Frame{Event: event, Data: data})
	if err != nil {
		h.log.Error().Err(err).Str("event", event).Msg("failed to marshal frame")
		return nil
	}
	return payload
}

func (h *Hub) push(msg outbound) {
	if msg.data == nil {
		return
	}
	select {
	case h.broadcast <- msg:
	default:
		h.log.Warn().Msg("broadcast buffer full, dropping event")
	}
}

func (h *Hub) handleRegister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[client] = true
	if client.userID != "" {
		if h.users[client.userID] == nil {
			h.users[client.userID] = make(map[*Client]bool)
		}
		h.users[client.userID][client] = true
	}
	h.log.Debug().Str("user_id", client.userID).Msg("client connected")
}

func (h *Hub) handleUnregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.clients[client] {
		return
	}
	delete(h.clients, client)
	h.dropFromUsersLocked(client)
	for room := range client.rooms {
		h.dropFromRoomLocked(client, room)
	}
	close(client.send)
	h.log.Debug().Str("user_id", client.userID).Msg("client disconnected")
}

func (h *Hub) handleBroadcast(msg outbound) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	switch {
	case msg.userID != "":
		for client := range h.users[msg.userID] {
			client.deliver(msg.data)
		}
	case msg.room != "":
		for client := range h.rooms[msg.room] {
			client.deliver(msg.data)
		}
	default:
		for client := range h.clients {
			client.deliver(msg.data)
		}
	}
}

func (h *Hub) joinRoom(client *Client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.clients[client] {
		return
	}
	if h.rooms[room] == nil {
		h.rooms[room] = make(map[*Client]bool)
	}
	h.rooms[room][client] = true
	client.rooms[room] = true
}

func (h *Hub) leaveRoom(client *Client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.dropFromRoomLocked(client, room)
	delete(client.rooms, room)
}

func (h *Hub) dropFromRoomLocked(client *Client, room string) {
	if h.rooms[room] == nil {
		return
	}
	delete(h.rooms[room], client)
	if len(h.rooms[room]) == 0 {
		delete(h.rooms, room)
	}
}

func (h *Hub) dropFromUsersLocked(client *Client) {
	if client.userID == "" || h.users[client.userID] == nil {
		return
	}
	delete(h.users[client.userID], client)
	if len(h.users[client.userID]) == 0 {
		delete(h.users, client.userID)
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients {
		if client.conn != nil {
			_ = client.conn.Close()
		}
		close(client.send)
	}
	h.clients = make(map[*Client]bool)
	h.users = make(map[string]map[*Client]bool)
	h.rooms = make(map[string]map[*Client]bool)
}
