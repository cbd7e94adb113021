package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"matchday/internal/models"
	"matchday/internal/session"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// platformStub is an in-memory stand-in for the platform's REST surface
// that records the order of mutating operations.
type platformStub struct {
	mu        sync.Mutex
	reactions []models.Reaction
	likes     []models.CommentLike
	ops       []string
	profile   models.Profile
}

func (p *platformStub) record(op string) {
	p.mu.Lock()
	p.ops = append(p.ops, op)
	p.mu.Unlock()
}

func (p *platformStub) operations() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string{}, p.ops...)
}

func newDispatchStub(t *testing.T) (*platformStub, *httptest.Server) {
	t.Helper()
	stub := &platformStub{
		profile: models.Profile{
			ID: "p1", UserID: "u1", Username: "soccer_fan",
			DisplayName: "Sam", AvatarURL: "/storage/avatars/u1/1.webp",
			Role: models.RoleUser,
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/auth/token", func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"token": "jwt-token",
			"user":  models.User{ID: "u1"},
		})
	})
	mux.HandleFunc("/api/collections/profiles", func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode([]models.Profile{stub.profile})
	})
	mux.HandleFunc("/api/collections/schedule_reactions", func(w http.ResponseWriter, r *http.Request) {
		stub.mu.Lock()
		defer stub.mu.Unlock()
		switch r.Method {
		case http.MethodGet:
			_ = json.NewEncoder(w).Encode(stub.reactions)
		case http.MethodPost:
			var body map[string]string
			_ = json.NewDecoder(r.Body).Decode(&body)
			created := models.Reaction{
				ID:         uuid.NewString(),
				ScheduleID: body["schedule_id"],
				UserID:     "u1",
				Emoji:      body["emoji"],
			}
			stub.reactions = append(stub.reactions, created)
			stub.ops = append(stub.ops, "insert "+created.Emoji)
			w.WriteHeader(http.StatusCreated)
			_ = json.NewEncoder(w).Encode(created)
		}
	})
	mux.HandleFunc("/api/collections/schedule_reactions/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		id := strings.TrimPrefix(r.URL.Path, "/api/collections/schedule_reactions/")
		stub.mu.Lock()
		defer stub.mu.Unlock()
		for i, existing := range stub.reactions {
			if existing.ID == id {
				stub.ops = append(stub.ops, "delete "+existing.Emoji)
				stub.reactions = append(stub.reactions[:i], stub.reactions[i+1:]...)
				_ = json.NewEncoder(w).Encode(existing)
				return
			}
		}
		w.WriteHeader(http.StatusNotFound)
	})
	mux.HandleFunc("/api/collections/schedule_comment_likes", func(w http.ResponseWriter, r *http.Request) {
		stub.mu.Lock()
		defer stub.mu.Unlock()
		switch r.Method {
		case http.MethodGet:
			_ = json.NewEncoder(w).Encode(stub.likes)
		case http.MethodPost:
			var body map[string]string
			_ = json.NewDecoder(r.Body).Decode(&body)
			created := models.CommentLike{ID: uuid.NewString(), CommentID: body["comment_id"], UserID: "u1"}
			stub.likes = append(stub.likes, created)
			stub.ops = append(stub.ops, "like")
			w.WriteHeader(http.StatusCreated)
			_ = json.NewEncoder(w).Encode(created)
		}
	})
	mux.HandleFunc("/api/collections/schedule_comment_likes/", func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimPrefix(r.URL.Path, "/api/collections/schedule_comment_likes/")
		stub.mu.Lock()
		defer stub.mu.Unlock()
		for i, existing := range stub.likes {
			if existing.ID == id {
				stub.ops = append(stub.ops, "unlike")
				stub.likes = append(stub.likes[:i], stub.likes[i+1:]...)
				_ = json.NewEncoder(w).Encode(existing)
				return
			}
		}
		w.WriteHeader(http.StatusNotFound)
	})
	mux.HandleFunc("/api/collections/messages", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		stub.record(fmt.Sprintf("message %s by %s", body["content"], body["display_name"]))
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(models.Message{
			ID: uuid.NewString(), Content: body["content"],
			DisplayName: body["display_name"], UserID: "u1",
		})
	})
	mux.HandleFunc("/api/collections/schedule_comments", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(models.Comment{
			ID: uuid.NewString(), ScheduleID: body["schedule_id"],
			UserID: "u1", Content: body["content"],
		})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return stub, srv
}

func signedInDispatcher(t *testing.T, srv *httptest.Server, notices Notices) (*Dispatcher, *session.Manager) {
	t.Helper()
	sess := session.NewManager(srv.URL)
	require.NoError(t, sess.SignIn(context.Background(), "soccer_fan", "secret99"))
	return New(sess, notices), sess
}

func TestToggleReactionInsertsWhenNoneExists(t *testing.T) {
	stub, srv := newDispatchStub(t)
	d, _ := signedInDispatcher(t, srv, nil)

	require.NoError(t, d.ToggleReaction(context.Background(), "s1", "🔥"))
	assert.Equal(t, []string{"insert 🔥"}, stub.operations())
}

func TestToggleReactionSameEmojiClears(t *testing.T) {
	stub, srv := newDispatchStub(t)
	d, _ := signedInDispatcher(t, srv, nil)

	require.NoError(t, d.ToggleReaction(context.Background(), "s1", "🔥"))
	require.NoError(t, d.ToggleReaction(context.Background(), "s1", "🔥"))

	ops := stub.operations()
	assert.Equal(t, []string{"insert 🔥", "delete 🔥"}, ops)
	assert.Empty(t, stub.reactions)
}

func TestToggleReactionSwitchDeletesThenInserts(t *testing.T) {
	stub, srv := newDispatchStub(t)
	d, _ := signedInDispatcher(t, srv, nil)

	require.NoError(t, d.ToggleReaction(context.Background(), "s1", "👍"))
	require.NoError(t, d.ToggleReaction(context.Background(), "s1", "⚽"))

	assert.Equal(t, []string{"insert 👍", "delete 👍", "insert ⚽"}, stub.operations())
	require.Len(t, stub.reactions, 1)
	assert.Equal(t, "⚽", stub.reactions[0].Emoji)
}

func TestToggleReactionRejectsUnknownEmoji(t *testing.T) {
	stub, srv := newDispatchStub(t)

	var noticed []string
	d, _ := signedInDispatcher(t, srv, NoticeFunc(func(msg string) { noticed = append(noticed, msg) }))

	err := d.ToggleReaction(context.Background(), "s1", "💀")
	require.Error(t, err)
	assert.Empty(t, stub.operations())
	require.Len(t, noticed, 1)
	assert.Contains(t, noticed[0], "unsupported reaction emoji")
}

func TestToggleCommentLike(t *testing.T) {
	stub, srv := newDispatchStub(t)
	d, _ := signedInDispatcher(t, srv, nil)

	require.NoError(t, d.ToggleCommentLike(context.Background(), "c1"))
	require.NoError(t, d.ToggleCommentLike(context.Background(), "c1"))

	assert.Equal(t, []string{"like", "unlike"}, stub.operations())
	assert.Empty(t, stub.likes)
}

func TestSendMessageDenormalizesAuthor(t *testing.T) {
	stub, srv := newDispatchStub(t)
	d, _ := signedInDispatcher(t, srv, nil)

	msg, err := d.SendMessage(context.Background(), "  who's in for saturday?  ")
	require.NoError(t, err)
	assert.Equal(t, "who's in for saturday?", msg.Content)

	ops := stub.operations()
	require.Len(t, ops, 1)
	assert.Contains(t, ops[0], "by Sam")
}

func TestPostCommentRejectsEmpty(t *testing.T) {
	_, srv := newDispatchStub(t)

	var noticed []string
	d, _ := signedInDispatcher(t, srv, NoticeFunc(func(msg string) { noticed = append(noticed, msg) }))

	_, err := d.PostComment(context.Background(), "s1", "   ")
	require.Error(t, err)
	require.Len(t, noticed, 1)
	assert.Contains(t, noticed[0], "Comment cannot be empty")
}

func TestMutationsRequireSignIn(t *testing.T) {
	_, srv := newDispatchStub(t)
	sess := session.NewManager(srv.URL)

	var noticed []string
	d := New(sess, NoticeFunc(func(msg string) { noticed = append(noticed, msg) }))

	_, err := d.PostComment(context.Background(), "s1", "hello")
	require.Error(t, err)
	require.Error(t, d.ToggleReaction(context.Background(), "s1", "🔥"))
	_, err = d.SendMessage(context.Background(), "hello")
	require.Error(t, err)

	require.Len(t, noticed, 3)
	for _, msg := range noticed {
		assert.Contains(t, msg, "sign in")
	}
}

func TestCreateUserRequiresAdmin(t *testing.T) {
	_, srv := newDispatchStub(t)
	d, _ := signedInDispatcher(t, srv, nil)

	err := d.CreateUser(context.Background(), "newbie", "secret99", "Newbie", models.RoleUser)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Only admins")
}
