// Package platform implements the development platform the client toolkit
// talks to: collection storage, auth, object storage, and realtime change
// fan-out behind the same wire surface as the managed deployment.
package platform

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"runtime/debug"
	"strings"

	"matchday/internal/realtime"

	"github.com/redis/go-redis/v9"
)

// ChangeSink receives committed change events for fan-out.
type ChangeSink interface {
	HandleChange(ev realtime.ChangeEvent)
}

// Notifier publishes change events into Redis channels so every platform
// instance fans them out to its own websocket subscribers. When Redis is
// unavailable it degrades to in-process delivery to the local sink.
type Notifier struct {
	rdb  *redis.Client
	sink ChangeSink
}

// NewNotifier creates a new Notifier using the provided Redis client.
// A nil client is allowed and selects in-process delivery.
func NewNotifier(rdb *redis.Client) *Notifier {
	return &Notifier{rdb: rdb}
}

// SetLocalSink registers the sink used for in-process delivery.
func (n *Notifier) SetLocalSink(sink ChangeSink) {
	n.sink = sink
}

// PublishChange sends a change event to the collection's channel.
func (n *Notifier) PublishChange(ctx context.Context, ev realtime.ChangeEvent) error {
	if n.rdb == nil {
		if n.sink != nil {
			n.sink.HandleChange(ev)
		}
		return nil
	}

	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal change event: %w", err)
	}
	channel := fmt.Sprintf("changes:%s", ev.Collection)
	return n.rdb.Publish(ctx, channel, string(payload)).Err()
}

// StartChangeSubscriber subscribes to pattern `changes:*` and forwards every
// decoded event to the sink. It returns immediately; delivery runs on a
// background goroutine until ctx is cancelled.
func (n *Notifier) StartChangeSubscriber(ctx context.Context, sink ChangeSink) error {
	if n.rdb == nil {
		// In-process mode: PublishChange delivers directly.
		n.sink = sink
		return nil
	}

	sub := n.rdb.PSubscribe(ctx, "changes:*")
	ch := sub.Channel()

	go func() {
		defer func() { _ = sub.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				func() {
					defer func() {
						if r := recover(); r != nil {
							log.Printf("PANIC in change subscriber: %v\n%s", r, debug.Stack())
						}
					}()
					if !strings.HasPrefix(msg.Channel, "changes:") {
						log.Printf("invalid change channel: %s", msg.Channel)
						return
					}
					var ev realtime.ChangeEvent
					if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
						log.Printf("invalid change payload on %s: %v", msg.Channel, err)
						return
					}
					sink.HandleChange(ev)
				}()
			}
		}
	}()

	return nil
}
