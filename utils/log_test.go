package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	for in, want := range map[string]LogLevel{
		"trace":    TRACE,
		"DEBUG":    DEBUG,
		" info ":   INFO,
		"warning":  WARN,
		"error":    ERROR,
		"critical": CRITICAL,
		"verbose":  INFO,
	} {
		assert.Equal(t, want, ParseLevel(in), in)
	}
	assert.Equal(t, "CRITICAL", CRITICAL.String())
}

func TestSetMinLevel(t *testing.T) {
	l := NewNopLogger()
	assert.True(t, l.Enabled(TRACE))

	l.SetMinLevel(WARN)
	assert.False(t, l.Enabled(INFO))
	assert.True(t, l.Enabled(WARN))
	assert.True(t, l.With("k", "v").Enabled(CRITICAL), "children share the level")
}

func TestFileLoggerFiltersAndLabels(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.log")
	l, err := NewFileLogger(path, DEBUG, false)
	require.NoError(t, err)

	l.Trace("hidden %d", 1)
	l.Debug("speed %.1f", 2.5)
	l.With("run_id", "abc").Critical("transmit failed")
	require.NoError(t, l.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(data)
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "DEBUG")
	assert.Contains(t, out, "speed 2.5")
	assert.Contains(t, out, "CRITICAL")
	assert.Contains(t, out, "run_id")
}

type capturedLog struct {
	testing.TB
	lines []string
}

func (c *capturedLog) Logf(format string, args ...any) {
	c.lines = append(c.lines, fmt.Sprintf(format, args...))
}

func TestTestLoggerUsesLevelNames(t *testing.T) {
	capture := &capturedLog{TB: t}
	l := NewTestLogger(capture)

	l.Trace("tick %d", 7)
	l.Critical("bus off")

	require.Len(t, capture.lines, 2)
	assert.Contains(t, capture.lines[0], "TRACE")
	assert.Contains(t, capture.lines[0], "tick 7")
	assert.NotContains(t, capture.lines[0], "LEVEL(")
	assert.Contains(t, capture.lines[1], "CRITICAL")
}
