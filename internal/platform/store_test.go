package platform

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"matchday/internal/collection"
	"matchday/internal/database"
	"matchday/internal/models"
	"matchday/internal/realtime"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// sinkStub collects change events delivered in-process.
type sinkStub struct {
	mu     sync.Mutex
	events []realtime.ChangeEvent
}

func (s *sinkStub) HandleChange(ev realtime.ChangeEvent) {
	s.mu.Lock()
	s.events = append(s.events, ev)
	s.mu.Unlock()
}

func (s *sinkStub) all() []realtime.ChangeEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]realtime.ChangeEvent{}, s.events...)
}

func setupStore(t *testing.T) (*Store, *sinkStub, *gorm.DB) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	sink := &sinkStub{}
	notifier := NewNotifier(nil)
	notifier.SetLocalSink(sink)
	return NewStore(db, notifier), sink, db
}

func TestStoreInsertPersistsAndNotifies(t *testing.T) {
	store, sink, db := setupStore(t)

	payload := []byte(`{"title":"Derby","game_name":"Football","time":"18:00","date":"2026-09-12","place":"North Arena","user_id":"u1"}`)
	record, err := store.Insert(context.Background(), models.CollectionSchedules, payload)
	require.NoError(t, err)

	created, ok := record.(*models.Schedule)
	require.True(t, ok)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "Derby", created.Title)

	var count int64
	require.NoError(t, db.Model(&models.Schedule{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)

	events := sink.all()
	require.Len(t, events, 1)
	assert.Equal(t, models.CollectionSchedules, events[0].Collection)
	assert.Equal(t, realtime.EventInsert, events[0].Event)

	var pushed models.Schedule
	require.NoError(t, json.Unmarshal(events[0].Record, &pushed))
	assert.Equal(t, created.ID, pushed.ID)
}

func TestStoreListFilterAndOrder(t *testing.T) {
	store, _, _ := setupStore(t)
	ctx := context.Background()

	for _, c := range []string{`{"schedule_id":"s1","user_id":"u1","content":"first"}`,
		`{"schedule_id":"s2","user_id":"u1","content":"other thread"}`,
		`{"schedule_id":"s1","user_id":"u2","content":"second"}`} {
		_, err := store.Insert(ctx, models.CollectionComments, []byte(c))
		require.NoError(t, err)
	}

	records, err := store.List(ctx, models.CollectionComments,
		collection.Eq("schedule_id", "s1"), collection.Ascending)
	require.NoError(t, err)

	comments, ok := records.([]models.Comment)
	require.True(t, ok)
	require.Len(t, comments, 2)
	assert.Equal(t, "first", comments[0].Content)
	assert.Equal(t, "second", comments[1].Content)
}

func TestStoreListRejectsUnknownFilterColumn(t *testing.T) {
	store, _, _ := setupStore(t)

	_, err := store.List(context.Background(), models.CollectionSchedules,
		collection.Eq("password", "x"), collection.Ascending)
	require.Error(t, err)

	appErr, ok := err.(*models.AppError)
	require.True(t, ok)
	assert.Equal(t, "VALIDATION_ERROR", appErr.Code)
}

func TestStoreUpdateStripsImmutableColumns(t *testing.T) {
	store, sink, _ := setupStore(t)
	ctx := context.Background()

	record, err := store.Insert(ctx, models.CollectionProfiles,
		[]byte(`{"user_id":"u1","username":"soccer_fan","display_name":"Sam","role":"user"}`))
	require.NoError(t, err)
	profile := record.(*models.Profile)

	updated, err := store.Update(ctx, models.CollectionProfiles, profile.ID, map[string]any{
		"avatar_url": "/storage/avatars/u1/1.webp",
		"user_id":    "attacker",
		"id":         "other",
	})
	require.NoError(t, err)

	patched := updated.(*models.Profile)
	assert.Equal(t, "/storage/avatars/u1/1.webp", patched.AvatarURL)
	assert.Equal(t, "u1", patched.UserID)
	assert.Equal(t, profile.ID, patched.ID)

	events := sink.all()
	require.Len(t, events, 2)
	assert.Equal(t, realtime.EventUpdate, events[1].Event)
}

func TestStoreDeleteReturnsRecordAndNotifies(t *testing.T) {
	store, sink, db := setupStore(t)
	ctx := context.Background()

	record, err := store.Insert(ctx, models.CollectionReactions,
		[]byte(`{"schedule_id":"s1","user_id":"u1","emoji":"🔥"}`))
	require.NoError(t, err)
	reaction := record.(*models.Reaction)

	deleted, err := store.Delete(ctx, models.CollectionReactions, reaction.ID)
	require.NoError(t, err)
	assert.Equal(t, reaction.ID, deleted.(*models.Reaction).ID)

	var count int64
	require.NoError(t, db.Model(&models.Reaction{}).Count(&count).Error)
	assert.Zero(t, count)

	events := sink.all()
	require.Len(t, events, 2)
	assert.Equal(t, realtime.EventDelete, events[1].Event)
}

func TestStoreUnknownCollection(t *testing.T) {
	store, _, _ := setupStore(t)

	_, err := store.List(context.Background(), "secrets", collection.Filter{}, collection.Ascending)
	assert.Error(t, err)

	_, err = store.Insert(context.Background(), "secrets", []byte(`{}`))
	assert.Error(t, err)

	assert.False(t, KnownCollection("secrets"))
	assert.True(t, KnownCollection(models.CollectionMessages))
}

func TestOwnerOf(t *testing.T) {
	assert.Equal(t, "u1", OwnerOf(&models.Schedule{UserID: "u1"}))
	assert.Equal(t, "u2", OwnerOf(&models.Message{UserID: "u2"}))
	assert.Empty(t, OwnerOf("not a record"))
}
