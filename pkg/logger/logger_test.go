package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, ParseLevel("debug"))
	assert.Equal(t, zerolog.WarnLevel, ParseLevel("WARN"))
	assert.Equal(t, zerolog.ErrorLevel, ParseLevel("error"))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel("info"))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel("nonsense"))
}

func TestNewWritesStructuredJSON(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: "info", Output: &buf})

	log.Info().Str("component", "test").Msg("hello")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "hello", entry["message"])
	assert.Equal(t, "test", entry["component"])
	assert.Equal(t, "info", entry["level"])
}

func TestNewRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: "error", Output: &buf})

	log.Info().Msg("dropped")
	assert.Zero(t, buf.Len())

	log.Error().Msg("kept")
	assert.NotZero(t, buf.Len())
}
