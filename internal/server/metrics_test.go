package server

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Brownie44l1/tinyserver/internal/response"
)

func TestMetricsRecordRequest(t *testing.T) {
	m := NewMetrics()
	assert.Equal(t, time.Duration(0), m.AverageLatency())

	m.RecordRequest(response.StatusOK, 10*time.Millisecond)
	m.RecordRequest(response.StatusNotFound, 20*time.Millisecond)
	m.RecordRequest(response.StatusNotImplemented, 30*time.Millisecond)

	s := m.Snapshot()
	assert.Equal(t, int64(3), s.RequestsTotal)
	assert.Equal(t, int64(1), s.Errors4xx)
	assert.Equal(t, int64(1), s.Errors5xx)
	assert.Equal(t, 20*time.Millisecond, s.AverageLatency)
}

func TestNewLoggerJSON(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger(&buf, "info", false)
	require.NoError(t, err)

	logger.Debug().Msg("hidden")
	logger.Info().Str("target", "/home.html").Msg("request handled")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"target":"/home.html"`)
	assert.Contains(t, out, `"message":"request handled"`)
}

func TestNewLoggerBadLevel(t *testing.T) {
	_, err := NewLogger(&bytes.Buffer{}, "loud", false)
	assert.Error(t, err)
}

func TestSanitize(t *testing.T) {
	assert.Equal(t, "/short", sanitize("/short"))

	long := "/" + strings.Repeat("a", 200)
	got := sanitize(long)
	assert.True(t, strings.HasPrefix(got, long[:maxLoggedValue]))
	assert.True(t, strings.HasSuffix(got, "...[truncated]"))
}
