package viewsync

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"matchday/internal/collection"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type schedule struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

func TestSynchronizerInitialFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/collections/schedules", r.URL.Path)
		_, _ = w.Write([]byte(`[{"id":"1","title":"Derby"}]`))
	}))
	defer srv.Close()

	client := collection.NewClient(srv.URL)
	s, err := New[schedule](context.Background(), client, nil,
		"schedules", collection.Filter{}, collection.Descending, nil)
	require.NoError(t, err)
	defer s.Close()

	snap := s.Snapshot()
	assert.Equal(t, Synced, snap.Phase)
	require.Len(t, snap.Records, 1)
	assert.Equal(t, "Derby", snap.Records[0].Title)
}

func TestSynchronizerInitialFailureDegradesToEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := collection.NewClient(srv.URL)
	s, err := New[schedule](context.Background(), client, nil,
		"schedules", collection.Filter{}, collection.Descending, nil)
	require.NoError(t, err)
	defer s.Close()

	snap := s.Snapshot()
	assert.Equal(t, Synced, snap.Phase)
	assert.Empty(t, snap.Records)
	assert.NotNil(t, snap.Records)
}

func TestSynchronizerRefetchAppliesNewData(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			_, _ = w.Write([]byte(`[{"id":"1","title":"Derby"}]`))
			return
		}
		_, _ = w.Write([]byte(`[{"id":"1","title":"Derby"},{"id":"2","title":"Cup"}]`))
	}))
	defer srv.Close()

	client := collection.NewClient(srv.URL)
	s, err := New[schedule](context.Background(), client, nil,
		"schedules", collection.Filter{}, collection.Descending, nil)
	require.NoError(t, err)
	defer s.Close()

	require.Len(t, s.Snapshot().Records, 1)

	s.Refetch(context.Background())
	assert.Len(t, s.Snapshot().Records, 2)
}

func TestSynchronizerRefetchFailureKeepsPreviousRecords(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			_, _ = w.Write([]byte(`[{"id":"1","title":"Derby"}]`))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := collection.NewClient(srv.URL)
	s, err := New[schedule](context.Background(), client, nil,
		"schedules", collection.Filter{}, collection.Descending, nil)
	require.NoError(t, err)
	defer s.Close()

	s.Refetch(context.Background())

	snap := s.Snapshot()
	assert.Equal(t, Synced, snap.Phase)
	require.Len(t, snap.Records, 1)
	assert.Equal(t, "Derby", snap.Records[0].Title)
}

func TestSynchronizerClosedIgnoresLateResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[{"id":"1","title":"Derby"}]`))
	}))
	defer srv.Close()

	client := collection.NewClient(srv.URL)
	s, err := New[schedule](context.Background(), client, nil,
		"schedules", collection.Filter{}, collection.Descending, nil)
	require.NoError(t, err)

	s.Close()
	s.Refetch(context.Background())

	// The snapshot from before Close stays readable and unchanged.
	assert.Len(t, s.Snapshot().Records, 1)
}
