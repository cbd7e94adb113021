package platform

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"matchday/internal/realtime"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotifierRoundTripThroughRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sink := &sinkStub{}
	notifier := NewNotifier(rdb)
	require.NoError(t, notifier.StartChangeSubscriber(ctx, sink))

	// PSubscribe needs a moment to take effect before the publish.
	require.Eventually(t, func() bool {
		err := notifier.PublishChange(ctx, realtime.ChangeEvent{
			Collection: "messages",
			Event:      realtime.EventInsert,
			Record:     json.RawMessage(`{"id":"m1","content":"hello"}`),
		})
		return err == nil && len(sink.all()) > 0
	}, 5*time.Second, 50*time.Millisecond)

	events := sink.all()
	assert.Equal(t, "messages", events[0].Collection)
	assert.Equal(t, realtime.EventInsert, events[0].Event)

	var record map[string]string
	require.NoError(t, json.Unmarshal(events[0].Record, &record))
	assert.Equal(t, "hello", record["content"])
}

func TestNotifierIgnoresMalformedPayloads(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sink := &sinkStub{}
	notifier := NewNotifier(rdb)
	require.NoError(t, notifier.StartChangeSubscriber(ctx, sink))

	require.Eventually(t, func() bool {
		rdb.Publish(ctx, "changes:messages", "not json")
		err := notifier.PublishChange(ctx, realtime.ChangeEvent{
			Collection: "messages", Event: realtime.EventInsert,
		})
		return err == nil && len(sink.all()) > 0
	}, 5*time.Second, 50*time.Millisecond)

	// Only well-formed events reach the sink.
	for _, ev := range sink.all() {
		assert.Equal(t, "messages", ev.Collection)
	}
}

func TestNotifierInProcessFallback(t *testing.T) {
	sink := &sinkStub{}
	notifier := NewNotifier(nil)
	require.NoError(t, notifier.StartChangeSubscriber(context.Background(), sink))

	require.NoError(t, notifier.PublishChange(context.Background(), realtime.ChangeEvent{
		Collection: "schedules", Event: realtime.EventDelete,
	}))

	events := sink.all()
	require.Len(t, events, 1)
	assert.Equal(t, realtime.EventDelete, events[0].Event)
}
