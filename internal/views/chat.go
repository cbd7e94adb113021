package views

import (
	"context"
	"encoding/json"
	"log"
	"sync"

	"matchday/internal/collection"
	"matchday/internal/models"
	"matchday/internal/realtime"
	"matchday/internal/session"
)

// ChatView is the chat room. Unlike the feed it applies pushed records
// directly instead of re-fetching: messages are append-only and carry their
// author identity denormalized, so a pushed row is never stale.
type ChatView struct {
	session *session.Manager
	sub     *realtime.Subscriber

	mu       sync.RWMutex
	messages []models.Message
	seen     map[string]struct{}
	loaded   bool
	subID    string

	onUpdate func()
}

// NewChatView opens the chat room: it subscribes to message inserts, then
// loads history in chronological order.
func NewChatView(ctx context.Context, sess *session.Manager, sub *realtime.Subscriber, onUpdate func()) (*ChatView, error) {
	v := &ChatView{
		session:  sess,
		sub:      sub,
		messages: []models.Message{},
		seen:     make(map[string]struct{}),
		onUpdate: onUpdate,
	}

	if sub != nil {
		subID, err := sub.Subscribe(ctx, models.CollectionMessages,
			[]string{realtime.EventInsert}, "", func(ev realtime.ChangeEvent) {
				var msg models.Message
				if err := json.Unmarshal(ev.Record, &msg); err != nil {
					log.Printf("chat: undecodable pushed message: %v", err)
					return
				}
				v.append(msg)
			})
		if err != nil {
			return nil, err
		}
		v.subID = subID
	}

	// History loads after the subscription so nothing lands in the gap.
	// append dedupes anything pushed while the fetch was in flight.
	history, err := collection.Fetch[models.Message](ctx, sess.Client(),
		models.CollectionMessages, collection.Filter{}, collection.Ascending)
	if err != nil {
		log.Printf("chat: history fetch failed, starting empty: %v", err)
		history = []models.Message{}
	}

	v.mu.Lock()
	pushed := v.messages
	v.messages = []models.Message{}
	v.seen = make(map[string]struct{})
	for _, msg := range history {
		v.messages = append(v.messages, msg)
		v.seen[msg.ID] = struct{}{}
	}
	v.loaded = true
	v.mu.Unlock()

	for _, msg := range pushed {
		v.append(msg)
	}

	v.notify()
	return v, nil
}

func (v *ChatView) append(msg models.Message) {
	v.mu.Lock()
	if _, dup := v.seen[msg.ID]; dup {
		v.mu.Unlock()
		return
	}
	v.seen[msg.ID] = struct{}{}
	v.messages = append(v.messages, msg)
	v.mu.Unlock()
	v.notify()
}

func (v *ChatView) notify() {
	if v.onUpdate != nil {
		v.onUpdate()
	}
}

// Loaded reports whether history has resolved.
func (v *ChatView) Loaded() bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.loaded
}

// Messages returns the room's messages in chronological order.
func (v *ChatView) Messages() []models.Message {
	v.mu.RLock()
	defer v.mu.RUnlock()
	out := make([]models.Message, len(v.messages))
	copy(out, v.messages)
	return out
}

// Close releases the message subscription.
func (v *ChatView) Close() {
	if v.sub != nil && v.subID != "" {
		v.sub.Unsubscribe(v.subID)
	}
}
