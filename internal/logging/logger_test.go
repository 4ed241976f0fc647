package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigureAndSetLevel(t *testing.T) {
	var buf bytes.Buffer
	Configure(LevelWarn, &buf)
	t.Cleanup(func() { Configure(LevelWarn, &bytes.Buffer{}) })

	Info("hidden")
	assert.Zero(t, buf.Len())

	SetLevel(LevelDebug)
	Debug("shown", "id", "f1")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "shown", entry["msg"])
	assert.Equal(t, "f1", entry["id"])
}

func TestWithCarriesAttributes(t *testing.T) {
	var buf bytes.Buffer
	Configure(LevelInfo, &buf)
	t.Cleanup(func() { Configure(LevelWarn, &bytes.Buffer{}) })

	With("lead", "Acme").Info("voice session open")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "Acme", entry["lead"])
}

func TestEnableFileLogging(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, EnableFileLogging(dir, LevelInfo))
	t.Cleanup(Close)

	Warn("sweep failed")
	Close()

	data, err := os.ReadFile(filepath.Join(dir, "convertit.log"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "sweep failed")
}

func TestParseLevel(t *testing.T) {
	tests := map[string]Level{
		"debug":   LevelDebug,
		"WARNING": LevelWarn,
		"error":   LevelError,
		"":        LevelInfo,
		"loud":    LevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), in)
	}
}
