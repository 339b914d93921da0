package websocket

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/google/uuid"
)

// Hub tracks per-conversation rooms and per-user personal notification
// groups. Joins and leaves race with broadcast enumeration, so both maps
// sit behind one RWMutex.
type Hub struct {
	mu    sync.RWMutex
	rooms map[uuid.UUID]map[string]*Client
	users map[uuid.UUID]map[string]*Client
}

func NewHub() *Hub {
	return &Hub{
		rooms: make(map[uuid.UUID]map[string]*Client),
		users: make(map[uuid.UUID]map[string]*Client),
	}
}

// JoinRoom registers the client in the conversation's subscriber set.
func (h *Hub) JoinRoom(conversationID uuid.UUID, client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	room := h.rooms[conversationID]
	if room == nil {
		room = make(map[string]*Client)
		h.rooms[conversationID] = room
	}
	room[client.ID] = client
}

// LeaveRoom removes the client from the conversation's subscriber set.
func (h *Hub) LeaveRoom(conversationID uuid.UUID, client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if room, ok := h.rooms[conversationID]; ok {
		delete(room, client.ID)
		if len(room) == 0 {
			delete(h.rooms, conversationID)
		}
	}
}

// Subscribe adds the client to its user's personal notification group.
func (h *Hub) Subscribe(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	group := h.users[client.UserID]
	if group == nil {
		group = make(map[string]*Client)
		h.users[client.UserID] = group
	}
	group[client.ID] = client
}

// Unsubscribe removes the client from its user's personal group.
func (h *Hub) Unsubscribe(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if group, ok := h.users[client.UserID]; ok {
		delete(group, client.ID)
		if len(group) == 0 {
			delete(h.users, client.UserID)
		}
	}
}

// BroadcastRoom delivers the event to every connection currently in the
// room. Delivery is best-effort: a client that disconnects mid-broadcast
// may miss the frame.
func (h *Hub) BroadcastRoom(conversationID uuid.UUID, event interface{}) {
	payload, err := json.Marshal(event)
	if err != nil {
		log.Printf("Error marshaling room event for %s: %v", conversationID, err)
		return
	}

	h.mu.RLock()
	clients := make([]*Client, 0, len(h.rooms[conversationID]))
	for _, client := range h.rooms[conversationID] {
		clients = append(clients, client)
	}
	h.mu.RUnlock()

	for _, client := range clients {
		if err := client.Send(payload); err != nil {
			log.Printf("Error sending room event to client %s: %v", client.ID, err)
		}
	}
}

// PushUser delivers the event to every connection in the user's personal
// notification group.
func (h *Hub) PushUser(userID uuid.UUID, event interface{}) {
	payload, err := json.Marshal(event)
	if err != nil {
		log.Printf("Error marshaling notification event for %s: %v", userID, err)
		return
	}

	h.mu.RLock()
	clients := make([]*Client, 0, len(h.users[userID]))
	for _, client := range h.users[userID] {
		clients = append(clients, client)
	}
	h.mu.RUnlock()

	for _, client := range clients {
		if err := client.Send(payload); err != nil {
			log.Printf("Error sending notification event to client %s: %v", client.ID, err)
		}
	}
}

// RoomSize reports the number of connections subscribed to a room.
func (h *Hub) RoomSize(conversationID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[conversationID])
}
