package logger

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, err := New(&Config{Level: "loud"})
	require.Error(t, err)
}

func TestLoggerWritesJSONFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	l, err := New(&Config{Level: "debug", Format: "json", Output: path})
	require.NoError(t, err)

	l.Component("ingestor").Info("pattern detected",
		String("type", "surge"),
		Float64("confidence", 90),
		Int("window", 20),
		Duration("took", 1500*time.Millisecond),
		Error(errors.New("boom")),
	)

	b, err := os.ReadFile(path)
	require.NoError(t, err)

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(b, &line))
	assert.Equal(t, "info", line["level"])
	assert.Equal(t, "pattern detected", line["message"])
	assert.Equal(t, "ingestor", line["component"])
	assert.Equal(t, "surge", line["type"])
	assert.Equal(t, 90.0, line["confidence"])
	assert.Equal(t, 20.0, line["window"])
	assert.Equal(t, 1500.0, line["took"])
	assert.Equal(t, "boom", line["error"])
}

func TestLevelFiltering(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	l, err := New(&Config{Level: "warn", Output: path})
	require.NoError(t, err)

	l.Info("dropped")
	l.Debug("dropped")

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Empty(t, b)
}

func TestNopDiscards(t *testing.T) {
	assert.NotPanics(t, func() {
		Nop().With(String("k", "v")).Error("nothing", Error(nil))
	})
}
