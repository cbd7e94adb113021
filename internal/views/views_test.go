package views

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"matchday/internal/models"
	"matchday/internal/session"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newViewsStub serves a small fixed dataset: two schedules, a comment
// thread on the first, a few reactions and two chat messages.
func newViewsStub(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()

	serve := func(path string, payload any) {
		mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodGet {
				_ = json.NewEncoder(w).Encode(payload)
				return
			}
			w.WriteHeader(http.StatusMethodNotAllowed)
		})
	}

	mux.HandleFunc("/api/auth/token", func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"token": "jwt-token",
			"user":  models.User{ID: "u1"},
		})
	})
	serve("/api/collections/profiles", []models.Profile{
		{ID: "p1", UserID: "u1", Username: "soccer_fan", DisplayName: "Sam"},
		{ID: "p2", UserID: "u2", Username: "hoops", DisplayName: "Jordan"},
	})
	serve("/api/collections/schedules", []models.Schedule{
		{ID: "s2", UserID: "u2", Title: "Pickup Game"},
		{ID: "s1", UserID: "u1", Title: "Derby"},
	})
	serve("/api/collections/schedule_comments", []models.Comment{
		{ID: "c1", ScheduleID: "s1", UserID: "u2", Content: "count me in"},
		{ID: "c2", ScheduleID: "s1", UserID: "ghost", Content: "me too"},
	})
	serve("/api/collections/schedule_reactions", []models.Reaction{
		{ID: "r1", ScheduleID: "s1", UserID: "u1", Emoji: "🔥"},
		{ID: "r2", ScheduleID: "s1", UserID: "u2", Emoji: "🔥"},
		{ID: "r3", ScheduleID: "s2", UserID: "u2", Emoji: "⚽"},
	})
	serve("/api/collections/messages", []models.Message{
		{ID: "m1", UserID: "u1", DisplayName: "Sam", Content: "anyone up for saturday?"},
		{ID: "m2", UserID: "u2", DisplayName: "Jordan", Content: "always"},
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestFeedViewJoinsAndAggregates(t *testing.T) {
	srv := newViewsStub(t)
	sess := session.NewManager(srv.URL)
	require.NoError(t, sess.SignIn(context.Background(), "soccer_fan", "secret99"))

	updates := 0
	v, err := NewFeedView(context.Background(), sess, nil, func() { updates++ })
	require.NoError(t, err)
	defer v.Close()

	assert.False(t, v.Loading())

	schedules := v.Schedules()
	require.Len(t, schedules, 2)
	assert.Equal(t, "Pickup Game", schedules[0].Title)
	assert.Equal(t, "Jordan", v.AuthorOf(schedules[0]))

	comments := v.CommentsFor("s1")
	require.Len(t, comments, 2)
	assert.Equal(t, "Jordan", comments[0].DisplayName)
	assert.Equal(t, "unknown", comments[1].DisplayName)
	assert.Equal(t, 2, v.CommentCount("s1"))
	assert.Zero(t, v.CommentCount("s2"))

	reactions := v.ReactionsFor("s1")
	assert.Equal(t, 2, reactions.Counts["🔥"])
	assert.Equal(t, "🔥", reactions.Mine)

	other := v.ReactionsFor("s2")
	assert.Equal(t, 1, other.Counts["⚽"])
	assert.Empty(t, other.Mine)
}

func TestFeedViewAnonymousHasNoOwnReaction(t *testing.T) {
	srv := newViewsStub(t)
	sess := session.NewManager(srv.URL)

	v, err := NewFeedView(context.Background(), sess, nil, nil)
	require.NoError(t, err)
	defer v.Close()

	assert.Empty(t, v.ReactionsFor("s1").Mine)
}

func TestChatViewLoadsHistory(t *testing.T) {
	srv := newViewsStub(t)
	sess := session.NewManager(srv.URL)

	v, err := NewChatView(context.Background(), sess, nil, nil)
	require.NoError(t, err)
	defer v.Close()

	require.True(t, v.Loaded())
	messages := v.Messages()
	require.Len(t, messages, 2)
	assert.Equal(t, "anyone up for saturday?", messages[0].Content)
	assert.Equal(t, "always", messages[1].Content)
}

func TestChatViewAppendDedupes(t *testing.T) {
	srv := newViewsStub(t)
	sess := session.NewManager(srv.URL)

	updates := 0
	v, err := NewChatView(context.Background(), sess, nil, func() { updates++ })
	require.NoError(t, err)
	defer v.Close()

	before := updates

	// A push for a message already in history must not duplicate it.
	v.append(models.Message{ID: "m2", DisplayName: "Jordan", Content: "always"})
	assert.Len(t, v.Messages(), 2)
	assert.Equal(t, before, updates)

	v.append(models.Message{ID: "m3", DisplayName: "Sam", Content: "see you there"})
	messages := v.Messages()
	require.Len(t, messages, 3)
	assert.Equal(t, "see you there", messages[2].Content)
	assert.Greater(t, updates, before)
}
