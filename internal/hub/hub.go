package hub

import (
	"context"
	"sort"
	"sync"

	"oceancare/internal/metrics"
	"oceancare/internal/model"
)

type Client struct {
	ID string
	Ch chan model.Frame
}

func NewClient(id string, buffer int) *Client {
	return &Client{ID: id, Ch: make(chan model.Frame, buffer)}
}

type membership struct {
	client *Client
	room   string
	join   bool
}

type delivery struct {
	room  string
	frame model.Frame
}

// Hub owns room membership for every connected client. All changes go
// through Run, so joins are sets: joining twice does not deliver twice.
// Once Run returns every call is a no-op and client channels are closed.
type Hub struct {
	register   chan *Client
	unregister chan *Client
	membership chan membership
	broadcast  chan delivery
	rooms      map[string]map[*Client]struct{}
	clients    map[*Client]map[string]struct{}
	mu         sync.RWMutex
	metrics    *metrics.Gateway
	done       chan struct{}
	stopOnce   sync.Once
}

func NewHub(m *metrics.Gateway) *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		membership: make(chan membership),
		broadcast:  make(chan delivery, 64),
		rooms:      make(map[string]map[*Client]struct{}),
		clients:    make(map[*Client]map[string]struct{}),
		metrics:    m,
		done:       make(chan struct{}),
	}
}

// Register adds the client. After the hub stopped the client channel is
// closed right away so its reader ends.
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
		close(client.Ch)
	}
}

// Unregister drops the client from every room and closes its channel.
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

func (h *Hub) Join(client *Client, room string) {
	select {
	case h.membership <- membership{client: client, room: room, join: true}:
	case <-h.done:
	}
}

func (h *Hub) Leave(client *Client, room string) {
	select {
	case h.membership <- membership{client: client, room: room}:
	case <-h.done:
	}
}

func (h *Hub) Broadcast(room string, frame model.Frame) {
	select {
	case h.broadcast <- delivery{room: room, frame: frame}:
	case <-h.done:
	}
}

// Done is closed once Run has returned.
func (h *Hub) Done() <-chan struct{} {
	return h.done
}

func (h *Hub) Run(ctx context.Context) {
	defer h.stop()
	for {
		select {
		case <-ctx.Done():
			return
		case client := <-h.register:
			h.addClient(client)
		case client := <-h.unregister:
			h.removeClient(client)
		case change := <-h.membership:
			if change.join {
				h.joinRoom(change.client, change.room)
			} else {
				h.leaveRoom(change.client, change.room)
			}
		case d := <-h.broadcast:
			h.broadcastToRoom(d)
		}
	}
}

// stop closes every client channel so websocket and SSE handlers end.
func (h *Hub) stop() {
	h.stopOnce.Do(func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		for client := range h.clients {
			close(client.Ch)
			h.metrics.ConnectedClients.Dec()
		}
		h.clients = make(map[*Client]map[string]struct{})
		h.rooms = make(map[string]map[*Client]struct{})
		close(h.done)
	})
}

// RoomSize reports how many clients are in a room.
func (h *Hub) RoomSize(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

// ClientRooms lists the rooms a client has joined.
func (h *Hub) ClientRooms(client *Client) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	rooms := make([]string, 0, len(h.clients[client]))
	for room := range h.clients[client] {
		rooms = append(rooms, room)
	}
	sort.Strings(rooms)
	return rooms
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[client]; ok {
		return
	}
	h.clients[client] = make(map[string]struct{})
	h.metrics.ConnectedClients.Inc()
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	joined, ok := h.clients[client]
	if !ok {
		return
	}
	for room := range joined {
		h.dropMember(client, room)
	}
	delete(h.clients, client)
	close(client.Ch)
	h.metrics.ConnectedClients.Dec()
}

func (h *Hub) joinRoom(client *Client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	joined, ok := h.clients[client]
	if !ok {
		return
	}
	if _, dup := joined[room]; dup {
		return
	}
	joined[room] = struct{}{}
	if h.rooms[room] == nil {
		h.rooms[room] = make(map[*Client]struct{})
	}
	h.rooms[room][client] = struct{}{}
	h.metrics.RoomJoins.Inc()
}

func (h *Hub) leaveRoom(client *Client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	joined, ok := h.clients[client]
	if !ok {
		return
	}
	delete(joined, room)
	h.dropMember(client, room)
}

func (h *Hub) dropMember(client *Client, room string) {
	members := h.rooms[room]
	if members == nil {
		return
	}
	delete(members, client)
	if len(members) == 0 {
		delete(h.rooms, room)
	}
}

func (h *Hub) broadcastToRoom(d delivery) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	h.metrics.EventsBroadcast.WithLabelValues(d.frame.Event).Inc()
	for client := range h.rooms[d.room] {
		select {
		case client.Ch <- d.frame:
		default:
			// Drop if the client is too slow.
			h.metrics.EventsDropped.WithLabelValues(d.frame.Event).Inc()
		}
	}
}
