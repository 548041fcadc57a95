package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"flashcards-client/internal/shared/contextkeys"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLoggerInterface_Contract(t *testing.T) {
	var _ Logger = NewLogger()
	var _ Logger = NewLoggerWithConfig("info", "json", nil)
	var _ Logger = NewNopLogger()
}

func TestLogrusLogger_JSONContextFields(t *testing.T) {
	var buf bytes.Buffer
	log := NewLoggerWithConfig("debug", "json", &buf)

	ctx := context.WithValue(context.Background(), contextkeys.RequestIDKey, "req-1")
	ctx = context.WithValue(ctx, contextkeys.ScreenKey, "decks")
	log.WithContext(ctx).WithComponent("api").Info("request sent")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "request sent", entry["message"])
	assert.Equal(t, "req-1", entry["request_id"])
	assert.Equal(t, "decks", entry["screen"])
	assert.Equal(t, "api", entry["component"])
	assert.Equal(t, "info", entry["level"])
}

func TestLogrusLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := NewLoggerWithConfig("WARN", "json", &buf)

	log.Info("hidden")
	assert.Zero(t, buf.Len())

	log.WithFields(map[string]interface{}{"foo": "bar"}).Warn("shown")
	assert.Contains(t, buf.String(), `"foo":"bar"`)
}

func TestLogrusLogger_UnknownLevelDefaultsToInfo(t *testing.T) {
	var buf bytes.Buffer
	log := NewLoggerWithConfig("chatty", "text", &buf)

	log.Debug("hidden")
	assert.Zero(t, buf.Len())
	log.Info("visible")
	assert.Contains(t, buf.String(), "visible")
}

func TestLogrusLogger_WithZapFields(t *testing.T) {
	var buf bytes.Buffer
	log := NewLoggerWithConfig("info", "json", &buf)

	log.With(zap.String("method", "GET"), zap.Int("status", 401), zap.Bool("retried", false)).Warn("authorization denied")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "GET", entry["method"])
	assert.Equal(t, float64(401), entry["status"])
	assert.Equal(t, false, entry["retried"])
}
