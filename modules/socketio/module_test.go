package socketio

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRequest(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		req, err := parseRequest(map[string]any{"url": "ws://localhost:3000/socket.io/", "on_event": "ready"})
		require.NoError(t, err)
		assert.Equal(t, "/", req.Namespace)
		assert.Equal(t, defaultTimeout, req.Timeout)
		assert.Empty(t, req.EmitEvent)
	})

	t.Run("all inputs", func(t *testing.T) {
		req, err := parseRequest(map[string]any{
			"url":                  "wss://example.test/socket.io/",
			"namespace":            "/jobs",
			"on_event":             "done",
			"emit_event":           "start",
			"emit_data":            map[string]any{"id": int64(1)},
			"timeout":              "250ms",
			"insecure_skip_verify": true,
		})
		require.NoError(t, err)
		assert.Equal(t, "/jobs", req.Namespace)
		assert.Equal(t, 250*time.Millisecond, req.Timeout)
		assert.Equal(t, map[string]any{"id": int64(1)}, req.EmitData)
		assert.True(t, req.InsecureSkipVerify)
	})

	testCases := []struct {
		name    string
		inputs  map[string]any
		wantErr string
	}{
		{"missing url", map[string]any{"on_event": "x"}, "input 'url'"},
		{"missing event", map[string]any{"url": "ws://h"}, "input 'on_event'"},
		{"bad timeout", map[string]any{"url": "ws://h", "on_event": "x", "timeout": "soon"}, "not a duration"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := parseRequest(tc.inputs)
			assert.ErrorContains(t, err, tc.wantErr)
		})
	}
}

func TestRun_InvalidInputs(t *testing.T) {
	_, err := Run(context.Background(), map[string]any{})
	assert.Error(t, err)
}

func TestNormalize(t *testing.T) {
	in := map[string]any{
		"count": float64(3),
		"ratio": 0.5,
		"items": []any{float64(1), "a"},
	}
	want := map[string]any{
		"count": int64(3),
		"ratio": 0.5,
		"items": []any{int64(1), "a"},
	}
	assert.Equal(t, want, normalize(in))
}
