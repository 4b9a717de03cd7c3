package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/ttml-backend/pkg/config"
)

func lastEntry(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[len(lines)-1]), &entry), buf.String())
	return entry
}

func TestErrorCarriesContextFieldsAndStack(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "api", Level: zerolog.DebugLevel, Output: buf})

	ctx := log.WithRequestID(context.Background(), "req-123")
	ctx = log.WithUserID(ctx, "user-9")
	log.Error(ctx, "letter generation failed", errors.New("upstream timeout"))

	entry := lastEntry(t, buf)
	assert.Equal(t, "req-123", entry["request_id"])
	assert.Equal(t, "user-9", entry["user_id"])
	assert.Equal(t, "api", entry["service"])
	assert.Equal(t, "upstream timeout", entry["error"])
	assert.Contains(t, entry, "stack")
}

func TestFieldsDoNotLeakBetweenContexts(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "api", Output: buf})

	parent := log.WithField(context.Background(), "job", "quota_refill")
	_ = log.WithField(parent, "attempt", 2)
	log.Info(parent, "tick")

	entry := lastEntry(t, buf)
	assert.Equal(t, "quota_refill", entry["job"])
	assert.NotContains(t, entry, "attempt")
}

func TestWarnStackToggle(t *testing.T) {
	buf := &bytes.Buffer{}
	New(Options{ServiceName: "api", Output: buf}).Warn(context.Background(), "quiet")
	assert.NotContains(t, lastEntry(t, buf), "stack")

	buf.Reset()
	New(Options{ServiceName: "api", Output: buf, WarnStack: true}).Warn(context.Background(), "loud")
	assert.Contains(t, lastEntry(t, buf), "stack")
}

func TestLevelFiltering(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "api", Level: zerolog.WarnLevel, Output: buf})
	log.Debug(context.Background(), "hidden")
	log.Info(context.Background(), "hidden")
	assert.Zero(t, buf.Len())
	assert.False(t, log.Enabled(context.Background(), zerolog.InfoLevel))
	assert.True(t, log.Enabled(context.Background(), zerolog.ErrorLevel))
}

func TestStaticFields(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "cron-worker", Output: buf, Fields: map[string]any{"env": "staging"}})
	log.Info(context.Background(), "boot")
	assert.Equal(t, "staging", lastEntry(t, buf)["env"])
}

func TestForServiceUsesAppConfig(t *testing.T) {
	t.Setenv("WORKER_ID", "api-3")
	log := ForService("api", config.AppConfig{Env: "prod", LogLevel: "warn"})
	assert.Equal(t, zerolog.WarnLevel, log.base.GetLevel())
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.InfoLevel, ParseLevel(""))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel("invalid"))
	assert.Equal(t, zerolog.DebugLevel, ParseLevel(" DEBUG "))
}
