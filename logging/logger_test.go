package logging

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBufferedLogger(level LogLevel) (*RunLogger, *bytes.Buffer) {
	var buf bytes.Buffer
	logger := NewLogger(&LoggerConfig{Level: level, Format: "json", Output: &buf})
	return logger, &buf
}

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	scanner := bufio.NewScanner(buf)
	for scanner.Scan() {
		var entry map[string]any
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &entry))
		out = append(out, entry)
	}
	return out
}

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, LogLevelDebug, ParseLogLevel("debug"))
	assert.Equal(t, LogLevelWarn, ParseLogLevel("WARN"))
	assert.Equal(t, LogLevelError, ParseLogLevel("error"))
	assert.Equal(t, LogLevelInfo, ParseLogLevel("info"))
	assert.Equal(t, LogLevelInfo, ParseLogLevel("loud"))
}

func TestRunLoggerKeyValueArgs(t *testing.T) {
	logger, buf := newBufferedLogger(LogLevelDebug)

	logger.Info("run started", "run_id", "run-1", "subtasks", 3)

	entries := decodeLines(t, buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "run started", entries[0]["msg"])
	assert.Equal(t, "run-1", entries[0]["run_id"])
	assert.Equal(t, float64(3), entries[0]["subtasks"])
}

func TestRunLoggerLevelFiltering(t *testing.T) {
	logger, buf := newBufferedLogger(LogLevelWarn)

	logger.Debug("dropped")
	logger.Info("dropped too")
	logger.Warn("kept")
	logger.Error("kept as well")

	entries := decodeLines(t, buf)
	require.Len(t, entries, 2)
	assert.Equal(t, "kept", entries[0]["msg"])
	assert.Equal(t, "kept as well", entries[1]["msg"])
}

func TestRunLoggerContextualClones(t *testing.T) {
	logger, buf := newBufferedLogger(LogLevelInfo)

	scoped := logger.WithComponent("planner").WithRun("run-9").WithContext("attempt", 2)
	scoped.Info("plan created")
	logger.Info("no context")

	entries := decodeLines(t, buf)
	require.Len(t, entries, 2)
	assert.Equal(t, "planner", entries[0]["component"])
	assert.Equal(t, "run-9", entries[0]["run_id"])
	assert.Equal(t, float64(2), entries[0]["attempt"])

	// The original logger is unaffected by the clone.
	_, hasComponent := entries[1]["component"]
	assert.False(t, hasComponent)
}

func TestRunLoggerToolAndModelCalls(t *testing.T) {
	logger, buf := newBufferedLogger(LogLevelInfo)

	logger.LogToolCall("file_read", 20*time.Millisecond, true, nil)
	logger.LogModelCall("gpt-4o", 120*time.Millisecond, false, errors.New("rate limited"))

	entries := decodeLines(t, buf)
	require.Len(t, entries, 2)

	assert.Equal(t, "Tool execution completed", entries[0]["msg"])
	assert.Equal(t, "file_read", entries[0]["tool_name"])
	assert.Equal(t, true, entries[0]["success"])

	assert.Equal(t, "Model call failed", entries[1]["msg"])
	assert.Equal(t, "gpt-4o", entries[1]["model"])
	assert.Equal(t, "rate limited", entries[1]["error"])
}

func TestSlogAdapterImplementsLogger(t *testing.T) {
	assert.Implements(t, (*Logger)(nil), NewDefaultSlogLogger())
	assert.Implements(t, (*Logger)(nil), NoOpLogger{})
	assert.Implements(t, (*Logger)(nil), NewLogger(nil))
}
