package hub

import (
	"log/slog"
	"sync"

	"github.com/Artiu/league-voice-backend/domain"
)

type client struct {
	conn  domain.Connection
	rooms map[domain.RoomKey]struct{}
}

// Hub is the presence registry. Every read and write takes the same lock,
// so each operation is atomic with respect to the others and never blocks
// on I/O while holding it.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*client
	rooms   map[domain.RoomKey]map[string]struct{}
}

func New() *Hub {
	return &Hub{
		clients: make(map[string]*client),
		rooms:   make(map[domain.RoomKey]map[string]struct{}),
	}
}

// Register marks an authenticated connection as live. Only live
// connections can join rooms.
func (h *Hub) Register(conn domain.Connection) {
	h.mu.Lock()
	h.clients[conn.ID()] = &client{conn: conn, rooms: make(map[domain.RoomKey]struct{})}
	count := len(h.clients)
	h.mu.Unlock()

	slog.Info("client connected", "connectionId", conn.ID(), "identity", conn.Identity().Name, "clients", count)
}

// Unregister removes the connection from every room it occupies and from
// the registry itself. It returns what each room looks like afterwards so
// the caller can notify the remaining members.
func (h *Hub) Unregister(id string) []domain.Departure {
	h.mu.Lock()
	c, ok := h.clients[id]
	if !ok {
		h.mu.Unlock()
		return nil
	}
	var departures []domain.Departure
	for key := range c.rooms {
		departures = append(departures, domain.Departure{Room: key, Remaining: h.removeLocked(id, key)})
	}
	delete(h.clients, id)
	count := len(h.clients)
	h.mu.Unlock()

	slog.Info("client disconnected", "connectionId", id, "clients", count)
	return departures
}

// Join adds the connection to the room, creating it if needed. The
// duplicate identity check and the insert happen under one lock. On
// success it returns the members that were already in the room. A
// connection occupying any room, this one included, is refused.
func (h *Hub) Join(id string, key domain.RoomKey) ([]domain.Member, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	c, ok := h.clients[id]
	if !ok {
		return nil, domain.ErrNotConnected
	}
	if len(c.rooms) > 0 {
		return nil, domain.ErrAlreadyInRoom
	}

	identity := c.conn.Identity()
	for memberID := range h.rooms[key] {
		if h.clients[memberID].conn.Identity().Key == identity.Key {
			return nil, domain.ErrDuplicateIdentity
		}
	}

	others := h.membersLocked(key, id)
	members, exists := h.rooms[key]
	if !exists {
		members = make(map[string]struct{})
		h.rooms[key] = members
	}
	members[id] = struct{}{}
	c.rooms[key] = struct{}{}

	slog.Info("client joined room", "room", key, "connectionId", id, "members", len(members))
	return others, nil
}

// Leave removes the connection from the room and deletes the room once it
// is empty. The bool reports whether the connection was a member.
func (h *Hub) Leave(id string, key domain.RoomKey) ([]domain.Member, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	c, ok := h.clients[id]
	if !ok {
		return nil, false
	}
	if _, in := c.rooms[key]; !in {
		return nil, false
	}
	return h.removeLocked(id, key), true
}

// RoomsOf returns the rooms the connection occupies. Unknown or
// disconnected ids yield an empty slice.
func (h *Hub) RoomsOf(id string) []domain.RoomKey {
	h.mu.RLock()
	defer h.mu.RUnlock()

	c, ok := h.clients[id]
	if !ok {
		return nil
	}
	keys := make([]domain.RoomKey, 0, len(c.rooms))
	for key := range c.rooms {
		keys = append(keys, key)
	}
	return keys
}

func (h *Hub) MembersOf(key domain.RoomKey) []domain.Member {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.membersLocked(key, "")
}

// Peer returns the target connection if sender and target are distinct and
// currently share at least one room.
func (h *Hub) Peer(senderID, targetID string) (domain.Connection, bool) {
	if senderID == targetID {
		return nil, false
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	sender, ok := h.clients[senderID]
	if !ok {
		return nil, false
	}
	target, ok := h.clients[targetID]
	if !ok {
		return nil, false
	}
	for key := range sender.rooms {
		if _, shared := target.rooms[key]; shared {
			return target.conn, true
		}
	}
	return nil, false
}

func (h *Hub) Stats() (rooms, clients int) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms), len(h.clients)
}

func (h *Hub) removeLocked(id string, key domain.RoomKey) []domain.Member {
	if c, ok := h.clients[id]; ok {
		delete(c.rooms, key)
	}
	members, ok := h.rooms[key]
	if !ok {
		return nil
	}
	delete(members, id)
	slog.Info("client left room", "room", key, "connectionId", id, "members", len(members))

	if len(members) == 0 {
		delete(h.rooms, key)
		slog.Info("room removed", "room", key)
		return nil
	}
	return h.membersLocked(key, "")
}

func (h *Hub) membersLocked(key domain.RoomKey, except string) []domain.Member {
	members := h.rooms[key]
	out := make([]domain.Member, 0, len(members))
	for id := range members {
		if id == except {
			continue
		}
		c := h.clients[id]
		out = append(out, domain.Member{ConnectionID: id, Identity: c.conn.Identity(), Conn: c.conn})
	}
	return out
}
