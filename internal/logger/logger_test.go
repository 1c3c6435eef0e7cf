package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONOutsideLocal(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithOptions("production", "info", &buf).Component("pipeline").With("user_id", "u1")
	log.WithError(errors.New("boom")).Warn("stage failed")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "pipeline", entry["component"])
	assert.Equal(t, "u1", entry["user_id"])
	assert.Equal(t, "boom", entry["error"])
	assert.Equal(t, "warning", entry["level"])
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithOptions("production", "warn", &buf)
	log.Info("hidden")
	assert.Zero(t, buf.Len())
	log.Warn("shown")
	assert.NotZero(t, buf.Len())
}

func TestRequestID(t *testing.T) {
	r := httptest.NewRequest("GET", "/healthz", nil)
	assert.NotEmpty(t, RequestID(r))

	r.Header.Set(RequestIDHeader, "abc-123")
	assert.Equal(t, "abc-123", RequestID(r))
	assert.Equal(t, "abc-123", Discard().WithRequest(r).Data["req_id"])
}
