package collection

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type record struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

func TestClientFetch(t *testing.T) {
	var gotPath, gotQuery, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"id":"1","title":"Derby"},{"id":"2","title":"Cup"}]`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, WithTokenProvider(func() string { return "tok" }))

	out, err := Fetch[record](context.Background(), c, "schedules",
		Eq("user_id", "u1"), Descending)
	require.NoError(t, err)

	assert.Equal(t, "/api/collections/schedules", gotPath)
	assert.Contains(t, gotQuery, "filter=user_id.eq.u1")
	assert.Contains(t, gotQuery, "order=created_at.desc")
	assert.Equal(t, "Bearer tok", gotAuth)
	require.Len(t, out, 2)
	assert.Equal(t, "Derby", out[0].Title)
}

func TestClientFetchEmptyIsNotNil(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	out, err := Fetch[record](context.Background(), NewClient(srv.URL), "schedules", Filter{}, Ascending)
	require.NoError(t, err)
	assert.NotNil(t, out)
	assert.Empty(t, out)
}

func TestClientNoTokenHeaderWhenSignedOut(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, WithTokenProvider(func() string { return "" }))
	_, err := Fetch[record](context.Background(), c, "schedules", Filter{}, Ascending)
	require.NoError(t, err)
	assert.Empty(t, gotAuth)
}

func TestClientErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantInText string
	}{
		{"server message wins", http.StatusBadRequest, `{"error":"title is required"}`, "title is required"},
		{"unauthorized", http.StatusUnauthorized, `{}`, "sign in"},
		{"forbidden", http.StatusForbidden, `{}`, "permission"},
		{"not found", http.StatusNotFound, `{}`, "no longer exists"},
		{"rate limited", http.StatusTooManyRequests, `{}`, "Slow down"},
		{"server error", http.StatusInternalServerError, `not even json`, "went wrong"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			err := NewClient(srv.URL).Insert(context.Background(), "schedules", map[string]string{}, nil)
			require.Error(t, err)

			var reqErr *RequestError
			require.ErrorAs(t, err, &reqErr)
			assert.Equal(t, tt.status, reqErr.Status)
			assert.Contains(t, reqErr.Message, tt.wantInText)
		})
	}
}

func TestClientUnreachableServer(t *testing.T) {
	c := NewClient("http://127.0.0.1:1")
	err := c.Delete(context.Background(), "schedules", "x")
	require.Error(t, err)

	var reqErr *RequestError
	require.ErrorAs(t, err, &reqErr)
	assert.Contains(t, reqErr.Message, "Could not reach the server")
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, IsNotFound(&RequestError{Status: http.StatusNotFound}))
	assert.False(t, IsNotFound(&RequestError{Status: http.StatusForbidden}))
	assert.False(t, IsNotFound(context.Canceled))
}

func TestClientUpdateAndDeletePaths(t *testing.T) {
	var gotMethod, gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		_, _ = w.Write([]byte(`{"id":"r1"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)

	require.NoError(t, c.Update(context.Background(), "profiles", "r1", map[string]string{"avatar_url": "x"}, nil))
	assert.Equal(t, http.MethodPatch, gotMethod)
	assert.Equal(t, "/api/collections/profiles/r1", gotPath)

	require.NoError(t, c.Delete(context.Background(), "schedule_reactions", "r1"))
	assert.Equal(t, http.MethodDelete, gotMethod)
	assert.Equal(t, "/api/collections/schedule_reactions/r1", gotPath)
}
