package logging

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/gdg-garage/wedding-rsvp-api/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/natefinch/lumberjack.v2"
)

func TestNew(t *testing.T) {
	t.Run("InvalidLevel", func(t *testing.T) {
		_, err := New(&config.LoggingConfig{Level: "loud"})
		assert.Error(t, err)
	})

	t.Run("FileOutputUsesRotation", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "logs", "rsvp.log")
		logger, err := New(&config.LoggingConfig{Level: "info", Output: "file", FilePath: path, MaxSize: 1})
		require.NoError(t, err)

		_, ok := logger.Out.(*lumberjack.Logger)
		assert.True(t, ok, "expected lumberjack writer, got %T", logger.Out)
	})
}

func TestLogRSVP(t *testing.T) {
	logger, err := New(&config.LoggingConfig{Level: "info", Format: "json"})
	require.NoError(t, err)

	var buf bytes.Buffer
	logger.SetOutput(&buf)

	logger.LogRSVP(7, 3, "stage1", "confirmed", false)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "rsvp", entry["type"])
	assert.Equal(t, float64(7), entry["guest_id"])
	assert.Equal(t, "confirmed", entry["status"])
}

func TestOrDefault(t *testing.T) {
	assert.Same(t, GetLogger(), OrDefault(nil))

	own := Discard()
	assert.Same(t, own, OrDefault(own))
}
