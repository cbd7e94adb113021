package platform

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"sync"

	"matchday/internal/collection"
	"matchday/internal/middleware"
	"matchday/internal/realtime"

	"github.com/gofiber/websocket/v2"
)

const (
	// Max connections per user
	maxConnsPerUser = 12
	// Max total connections
	maxTotalConns = 10000
)

// subscription is one (collection, event mask, filter) registration owned by
// a connected client.
type subscription struct {
	id     string
	events []string
	filter collection.Filter
	client *Client
}

// Hub tracks realtime websocket connections and their collection
// subscriptions, and fans committed change events out to matching ones.
type Hub struct {
	mu         sync.RWMutex
	clients    map[*Client]struct{}
	perUser    map[string]int
	totalConns int

	// collection name -> subscription id -> subscription
	subs map[string]map[string]*subscription
}

// NewHub creates a new Hub instance.
func NewHub() *Hub {
	return &Hub{
		clients: make(map[*Client]struct{}),
		perUser: make(map[string]int),
		subs:    make(map[string]map[string]*subscription),
	}
}

// Name returns a human-readable identifier for this hub.
func (h *Hub) Name() string { return "realtime hub" }

// Register adds a connection. Anonymous connections (empty userID) are
// permitted; subscriptions are read-only.
func (h *Hub) Register(userID string, conn *websocket.Conn) (*Client, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.totalConns >= maxTotalConns {
		return nil, errors.New("server connection limit reached")
	}
	if userID != "" && h.perUser[userID] >= maxConnsPerUser {
		return nil, errors.New("user connection limit reached")
	}

	client := NewClient(h, conn, userID)
	h.clients[client] = struct{}{}
	if userID != "" {
		h.perUser[userID]++
	}
	h.totalConns++
	middleware.ActiveWebSockets.Inc()

	return client, nil
}

// UnregisterClient removes a connection and releases every subscription it owns.
func (h *Hub) UnregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)
	h.totalConns--
	middleware.ActiveWebSockets.Dec()
	if client.UserID != "" {
		h.perUser[client.UserID]--
		if h.perUser[client.UserID] <= 0 {
			delete(h.perUser, client.UserID)
		}
	}

	for coll, byID := range h.subs {
		for id, sub := range byID {
			if sub.client == client {
				delete(byID, id)
			}
		}
		if len(byID) == 0 {
			delete(h.subs, coll)
		}
	}
}

// Subscribe registers a (collection, events, filter) subscription for the client.
func (h *Hub) Subscribe(client *Client, frame realtime.ClientFrame) error {
	if frame.ID == "" {
		return errors.New("subscription id required")
	}
	if frame.Collection == "" {
		return errors.New("collection required")
	}
	filter, err := collection.ParseFilter(frame.Filter)
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	byID, ok := h.subs[frame.Collection]
	if !ok {
		byID = make(map[string]*subscription)
		h.subs[frame.Collection] = byID
	}
	byID[frame.ID] = &subscription{
		id:     frame.ID,
		events: frame.Events,
		filter: filter,
		client: client,
	}
	return nil
}

// Unsubscribe releases the subscription with the given id for the client.
func (h *Hub) Unsubscribe(client *Client, id string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for coll, byID := range h.subs {
		if sub, ok := byID[id]; ok && sub.client == client {
			delete(byID, id)
			if len(byID) == 0 {
				delete(h.subs, coll)
			}
			return
		}
	}
}

// HandleChange fans a committed change event out to every matching
// subscription. The event payload carries no completeness guarantee;
// subscribers re-fetch rather than patch.
func (h *Hub) HandleChange(ev realtime.ChangeEvent) {
	var record map[string]any
	if len(ev.Record) > 0 {
		if err := json.Unmarshal(ev.Record, &record); err != nil {
			log.Printf("realtime: undecodable record on %s: %v", ev.Collection, err)
			record = nil
		}
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	byID, ok := h.subs[ev.Collection]
	if !ok {
		return
	}
	for _, sub := range byID {
		if !realtime.MatchesMask(sub.events, ev.Event) {
			continue
		}
		if record != nil && !sub.filter.Matches(record) {
			continue
		}
		frame := realtime.ServerFrame{
			Type:       realtime.FrameChange,
			ID:         sub.id,
			Collection: ev.Collection,
			Event:      ev.Event,
			Record:     ev.Record,
		}
		payload, err := json.Marshal(frame)
		if err != nil {
			continue
		}
		sub.client.TrySend(payload)
		middleware.ChangeEventsTotal.WithLabelValues(ev.Collection, ev.Event).Inc()
	}
}

// StartWiring connects the Notifier's change stream to this hub.
func (h *Hub) StartWiring(ctx context.Context, n *Notifier) error {
	return n.StartChangeSubscriber(ctx, h)
}

// Shutdown gracefully closes all websocket connections.
func (h *Hub) Shutdown(_ context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients {
		if client.Conn == nil {
			continue
		}
		if err := client.Conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "Server shutting down")); err != nil {
			log.Printf("failed to write close message for user %q: %v", client.UserID, err)
		}
		if err := client.Conn.Close(); err != nil {
			log.Printf("failed to close websocket for user %q: %v", client.UserID, err)
		}
	}
	h.clients = make(map[*Client]struct{})
	h.perUser = make(map[string]int)
	h.subs = make(map[string]map[string]*subscription)
	h.totalConns = 0

	return nil
}
