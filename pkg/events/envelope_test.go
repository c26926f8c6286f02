package events

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemorySink_DropsDuplicates(t *testing.T) {
	s := NewMemorySink()
	ctx := context.Background()

	require.NoError(t, s.Append(ctx, Envelope{ID: "1", IdempotencyKey: "k"}))
	require.NoError(t, s.Append(ctx, Envelope{ID: "2", IdempotencyKey: "k"}))
	require.NoError(t, s.Append(ctx, Envelope{ID: "3"}))
	require.NoError(t, s.Append(ctx, Envelope{ID: "4"}))

	got := s.Events()
	require.Len(t, got, 3)
	assert.Equal(t, "1", got[0].ID)
	assert.Equal(t, "4", got[2].ID)

	got[0].ID = "mutated"
	assert.Equal(t, "1", s.Events()[0].ID)
}

func TestLogSink(t *testing.T) {
	var buf bytes.Buffer
	s := NewLogSink(slog.New(slog.NewJSONHandler(&buf, nil)))

	err := s.Append(context.Background(), Envelope{
		ID:      "e1",
		Type:    "scoring.response_scored",
		Payload: json.RawMessage(`{"overall":70}`),
	})
	require.NoError(t, err)

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "scoring.response_scored", line["type"])
	assert.Equal(t, "events", line["component"])
	assert.Equal(t, map[string]any{"overall": 70.0}, line["payload"])
}

func TestNoOpEventSink(t *testing.T) {
	assert.NoError(t, NewNoOpEventSink().Append(context.Background(), Envelope{}))
}
