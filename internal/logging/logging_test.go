package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		level LogLevel
		want  zerolog.Level
	}{
		{LogLevelDebug, zerolog.DebugLevel},
		{"debug", zerolog.DebugLevel},
		{LogLevelInfo, zerolog.InfoLevel},
		{LogLevelWarn, zerolog.WarnLevel},
		{"warning", zerolog.WarnLevel},
		{LogLevelError, zerolog.ErrorLevel},
		{"bogus", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(string(tt.level), func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.level))
		})
	}
}

func TestValidLevel(t *testing.T) {
	assert.True(t, ValidLevel("info"))
	assert.True(t, ValidLevel(LogLevelError))
	assert.False(t, ValidLevel("trace"))
	assert.False(t, ValidLevel(""))
}

func TestValidLevelMatchesParseLevel(t *testing.T) {
	for _, level := range []LogLevel{"debug", "INFO", "warn", "Warning", "error"} {
		assert.True(t, ValidLevel(level), level)
	}
	assert.Equal(t, zerolog.WarnLevel, ParseLevel("Warning"))
}

func TestLogFiltersBelowLevel(t *testing.T) {
	buf := &bytes.Buffer{}
	logger, err := NewDefaultLogger(Config{Level: LogLevelWarn, Output: buf})
	require.NoError(t, err)

	logger.Log(LogLevelInfo, "hidden %d", 1)
	assert.Empty(t, buf.String())

	logger.Log(LogLevelError, "shown %d", 2)
	assert.Contains(t, buf.String(), "shown 2")
	assert.Contains(t, buf.String(), `"level":"error"`)
}

func TestWithAddsComponent(t *testing.T) {
	buf := &bytes.Buffer{}
	logger, err := NewDefaultLogger(Config{Level: LogLevelDebug, Output: buf})
	require.NoError(t, err)

	logger.With("cache").Log(LogLevelDebug, "lookup")
	assert.Contains(t, buf.String(), `"component":"cache"`)
}

func TestLogFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "proxy.log")
	logger, err := NewDefaultLogger(Config{Level: LogLevelInfo, File: path, Output: &bytes.Buffer{}})
	require.NoError(t, err)

	logger.Log(LogLevelInfo, "to file")
	require.NoError(t, logger.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "to file")
}

func TestNopLogger(t *testing.T) {
	logger := NewNopLogger()
	logger.Log(LogLevelError, "nothing")
	assert.NoError(t, logger.Close())
}
