package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	subscribeTimeout = 10 * time.Second
	clientPongWait   = 75 * time.Second
)

// Handler receives change events for one subscription. Handlers run on the
// subscriber's read goroutine and must not block.
type Handler func(ev ChangeEvent)

// Subscriber is a client connection to the platform's realtime endpoint.
// One connection multiplexes any number of collection subscriptions.
type Subscriber struct {
	conn *websocket.Conn

	writeMu sync.Mutex

	mu       sync.RWMutex
	handlers map[string]Handler
	acks     map[string]chan error

	closed    chan struct{}
	closeOnce sync.Once
}

// Dial connects to the realtime endpoint of the platform at baseURL.
// An empty token connects anonymously; subscriptions are public reads.
func Dial(ctx context.Context, baseURL, token string) (*Subscriber, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid platform URL: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}
	u.Path = "/realtime"
	if token != "" {
		q := u.Query()
		q.Set("token", token)
		u.RawQuery = q.Encode()
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("realtime connect failed: %w", err)
	}

	s := &Subscriber{
		conn:     conn,
		handlers: make(map[string]Handler),
		acks:     make(map[string]chan error),
		closed:   make(chan struct{}),
	}

	_ = conn.SetReadDeadline(time.Now().Add(clientPongWait))
	conn.SetPingHandler(func(appData string) error {
		_ = conn.SetReadDeadline(time.Now().Add(clientPongWait))
		s.writeMu.Lock()
		defer s.writeMu.Unlock()
		return conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(5*time.Second))
	})

	go s.readLoop()
	return s, nil
}

// Subscribe registers a change handler for (collection, events, filter) and
// blocks until the platform confirms the subscription. It returns the
// subscription id used to release it later.
func (s *Subscriber) Subscribe(ctx context.Context, collection string, events []string, filter string, h Handler) (string, error) {
	id := uuid.NewString()
	ack := make(chan error, 1)

	s.mu.Lock()
	s.handlers[id] = h
	s.acks[id] = ack
	s.mu.Unlock()

	frame := ClientFrame{
		Action:     ActionSubscribe,
		ID:         id,
		Collection: collection,
		Events:     events,
		Filter:     filter,
	}
	if err := s.writeFrame(frame); err != nil {
		s.release(id)
		return "", err
	}

	timer := time.NewTimer(subscribeTimeout)
	defer timer.Stop()
	select {
	case err := <-ack:
		if err != nil {
			s.release(id)
			return "", err
		}
		return id, nil
	case <-ctx.Done():
		s.release(id)
		return "", ctx.Err()
	case <-timer.C:
		s.release(id)
		return "", fmt.Errorf("subscribe to %s timed out", collection)
	case <-s.closed:
		s.release(id)
		return "", fmt.Errorf("realtime connection closed")
	}
}

// Unsubscribe releases a subscription. Safe to call for ids that are already
// gone.
func (s *Subscriber) Unsubscribe(id string) {
	s.release(id)
	_ = s.writeFrame(ClientFrame{Action: ActionUnsubscribe, ID: id})
}

// Close tears down the connection and every subscription on it.
func (s *Subscriber) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.closed)
		err = s.conn.Close()
	})
	return err
}

// Done is closed when the connection is gone, for callers that want to react
// to an unexpected drop.
func (s *Subscriber) Done() <-chan struct{} {
	return s.closed
}

func (s *Subscriber) release(id string) {
	s.mu.Lock()
	delete(s.handlers, id)
	delete(s.acks, id)
	s.mu.Unlock()
}

func (s *Subscriber) writeFrame(frame ClientFrame) error {
	payload, err := json.Marshal(frame)
	if err != nil {
		return err
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_ = s.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return s.conn.WriteMessage(websocket.TextMessage, payload)
}

func (s *Subscriber) readLoop() {
	defer func() { _ = s.Close() }()

	for {
		_, message, err := s.conn.ReadMessage()
		if err != nil {
			return
		}
		_ = s.conn.SetReadDeadline(time.Now().Add(clientPongWait))

		var frame ServerFrame
		if err := json.Unmarshal(message, &frame); err != nil {
			log.Printf("realtime: undecodable server frame: %v", err)
			continue
		}

		switch frame.Type {
		case FrameSubscribed:
			s.mu.Lock()
			if ack, ok := s.acks[frame.ID]; ok {
				delete(s.acks, frame.ID)
				ack <- nil
			}
			s.mu.Unlock()

		case FrameError:
			s.mu.Lock()
			ack, pending := s.acks[frame.ID]
			if pending {
				delete(s.acks, frame.ID)
			}
			s.mu.Unlock()
			if pending {
				ack <- fmt.Errorf("subscription rejected: %s", frame.Message)
			} else {
				log.Printf("realtime: server error: %s", frame.Message)
			}

		case FrameChange:
			s.mu.RLock()
			h, ok := s.handlers[frame.ID]
			s.mu.RUnlock()
			if ok && h != nil {
				h(ChangeEvent{
					Collection: frame.Collection,
					Event:      frame.Event,
					Record:     frame.Record,
				})
			}
		}
	}
}
