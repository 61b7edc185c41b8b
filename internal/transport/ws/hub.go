package ws

import (
	"errors"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ErrNotConnected is returned when a user has no live connection on this
// instance. Callers treat it as "try again later", not as a protocol error.
var ErrNotConnected = errors.New("user has no live connection")

var liveConnections = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "gateway_live_connections",
	Help: "Sockets currently registered on this instance.",
})

// Hub is the in-process connection registry, keyed both by session and by
// resolved user. One session may hold several sockets (multiple tabs) and
// one user several sessions; registration is idempotent per socket.
//
// The registry lives and dies with the process. In a multi-instance
// deployment each instance owns a disjoint subset of connections and the
// relay endpoint routes deliveries to the owning instance.
type Hub struct {
	mu       sync.RWMutex
	sessions map[string]map[*Conn]struct{}
	users    map[string]map[*Conn]struct{}
}

func NewHub() *Hub {
	return &Hub{
		sessions: make(map[string]map[*Conn]struct{}),
		users:    make(map[string]map[*Conn]struct{}),
	}
}

// Register adds a socket under its session and, when resolved, its user.
func (h *Hub) Register(c *Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set, ok := h.sessions[c.SessionID]
	if !ok {
		set = make(map[*Conn]struct{})
		h.sessions[c.SessionID] = set
	}
	if _, dup := set[c]; dup {
		return
	}
	set[c] = struct{}{}
	liveConnections.Inc()

	if c.UserID != "" {
		userSet, ok := h.users[c.UserID]
		if !ok {
			userSet = make(map[*Conn]struct{})
			h.users[c.UserID] = userSet
		}
		userSet[c] = struct{}{}
	}
}

// Unregister removes a socket from both registries and garbage-collects
// empty set entries.
func (h *Hub) Unregister(c *Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if set, ok := h.sessions[c.SessionID]; ok {
		if _, present := set[c]; present {
			delete(set, c)
			liveConnections.Dec()
		}
		if len(set) == 0 {
			delete(h.sessions, c.SessionID)
		}
	}
	if c.UserID != "" {
		if set, ok := h.users[c.UserID]; ok {
			delete(set, c)
			if len(set) == 0 {
				delete(h.users, c.UserID)
			}
		}
	}
}

// SendToUser delivers the envelope to every socket the user holds on this
// instance, or ErrNotConnected when there are none.
func (h *Hub) SendToUser(userID string, env Envelope) error {
	h.mu.RLock()
	set := h.users[userID]
	conns := make([]*Conn, 0, len(set))
	for c := range set {
		conns = append(conns, c)
	}
	h.mu.RUnlock()

	if len(conns) == 0 {
		return ErrNotConnected
	}
	for _, c := range conns {
		_ = c.SendJSON(env)
	}
	return nil
}

// Broadcast delivers the envelope to every socket of every session.
func (h *Hub) Broadcast(env Envelope) {
	h.mu.RLock()
	var conns []*Conn
	for _, set := range h.sessions {
		for c := range set {
			conns = append(conns, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range conns {
		_ = c.SendJSON(env)
	}
}

// UserConnected reports whether the user still holds any socket here.
func (h *Hub) UserConnected(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.users[userID]) > 0
}

// Close drops every registry entry and closes the underlying sockets; used
// on process shutdown.
func (h *Hub) Close() {
	h.mu.Lock()
	var conns []*Conn
	for _, set := range h.sessions {
		for c := range set {
			conns = append(conns, c)
		}
	}
	h.sessions = make(map[string]map[*Conn]struct{})
	h.users = make(map[string]map[*Conn]struct{})
	liveConnections.Set(0)
	h.mu.Unlock()

	for _, c := range conns {
		c.CloseWith(1001, "server shutting down")
	}
}
