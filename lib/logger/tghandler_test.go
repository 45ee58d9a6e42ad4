package logger

import (
	"bytes"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu       sync.Mutex
	messages []string
	levels   []slog.Level
}

func (r *recorder) SendMessageWithLevel(msg string, level slog.Level) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, msg)
	r.levels = append(r.levels, level)
}

func TestTelegramHandlerForwardsAboveMinLevel(t *testing.T) {
	var buf bytes.Buffer
	rec := &recorder{}
	base := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	log := slog.New(NewTelegramHandler(base, rec, slog.LevelWarn))

	log.Info("company registered")
	log.With(slog.String("module", "enrollment")).Error("store failure", slog.String("error", "broken pipe"))

	assert.Contains(t, buf.String(), "company registered")
	assert.Contains(t, buf.String(), "store failure")
	require.Len(t, rec.messages, 1)
	assert.Equal(t, slog.LevelError, rec.levels[0])
	assert.Contains(t, rec.messages[0], "*ERROR*")
	assert.Contains(t, rec.messages[0], "enrollment")
	assert.Contains(t, rec.messages[0], "broken pipe")
}

func TestTelegramHandlerGroupPrefix(t *testing.T) {
	rec := &recorder{}
	base := slog.NewTextHandler(&bytes.Buffer{}, nil)
	log := slog.New(NewTelegramHandler(base, rec, slog.LevelInfo)).WithGroup("api")

	log.Warn("slow")

	require.Len(t, rec.messages, 1)
	assert.Contains(t, rec.messages[0], "api\\.slow")
}

func TestTelegramHandlerNilSender(t *testing.T) {
	base := slog.NewTextHandler(&bytes.Buffer{}, nil)
	log := slog.New(NewTelegramHandler(base, nil, slog.LevelInfo))
	assert.NotPanics(t, func() { log.Error("boom") })
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("debug"))
	assert.Equal(t, slog.LevelInfo, ParseLevel(" INFO "))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelError, ParseLevel("nonsense"))
}
