package realtime

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatchesMask(t *testing.T) {
	tests := []struct {
		name  string
		mask  []string
		event string
		want  bool
	}{
		{"empty mask matches all", nil, EventInsert, true},
		{"wildcard", []string{EventAny}, EventDelete, true},
		{"exact match", []string{EventInsert}, EventInsert, true},
		{"no match", []string{EventInsert}, EventUpdate, false},
		{"multiple kinds", []string{EventInsert, EventDelete}, EventDelete, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MatchesMask(tt.mask, tt.event))
		})
	}
}

func TestServerFrameOmitsEmptyFields(t *testing.T) {
	frame := ServerFrame{Type: FrameSubscribed, ID: "sub-1"}
	payload, err := json.Marshal(frame)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(payload, &decoded))
	assert.Equal(t, "subscribed", decoded["type"])
	assert.NotContains(t, decoded, "record")
	assert.NotContains(t, decoded, "message")
}

func TestClientFrameRoundTrip(t *testing.T) {
	frame := ClientFrame{
		Action:     ActionSubscribe,
		ID:         "sub-9",
		Collection: "schedules",
		Events:     []string{EventInsert, EventDelete},
		Filter:     "user_id.eq.u1",
	}
	payload, err := json.Marshal(frame)
	require.NoError(t, err)

	var decoded ClientFrame
	require.NoError(t, json.Unmarshal(payload, &decoded))
	assert.Equal(t, frame, decoded)
}
