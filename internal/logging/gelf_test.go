package logging

import (
	"errors"
	"log/slog"
	"testing"

	"github.com/Graylog2/go-gelf/gelf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGELF struct {
	messages []*gelf.Message
	err      error
}

func (f *fakeGELF) WriteMessage(m *gelf.Message) error {
	if f.err != nil {
		return f.err
	}
	f.messages = append(f.messages, m)
	return nil
}

func TestGELFHandler_Message(t *testing.T) {
	w := &fakeGELF{}
	logger := slog.New(newGELFHandler(w, slog.LevelInfo))

	logger.Info("run finished", "policy", "smart", "ticks", 300)

	require.Len(t, w.messages, 1)
	msg := w.messages[0]
	assert.Equal(t, "1.1", msg.Version)
	assert.Equal(t, "run finished", msg.Short)
	assert.Equal(t, int32(6), msg.Level)
	assert.Equal(t, "vanetsim", msg.Facility)
	assert.Equal(t, "smart", msg.Extra["_policy"])
	assert.Equal(t, int64(300), msg.Extra["_ticks"])
	assert.Greater(t, msg.TimeUnix, 0.0)
}

func TestGELFHandler_LevelFilter(t *testing.T) {
	w := &fakeGELF{}
	logger := slog.New(newGELFHandler(w, slog.LevelWarn))

	logger.Info("ignored")
	logger.Error("kept")

	require.Len(t, w.messages, 1)
	assert.Equal(t, "kept", w.messages[0].Short)
	assert.Equal(t, int32(3), w.messages[0].Level)
}

func TestGELFHandler_AttrsAndGroups(t *testing.T) {
	w := &fakeGELF{}
	logger := slog.New(newGELFHandler(w, slog.LevelDebug)).
		With("run", "abc").
		WithGroup("engine").
		With("tick", 4)

	logger.Debug("step", slog.Group("conn", "new", 2))

	require.Len(t, w.messages, 1)
	extra := w.messages[0].Extra
	assert.Equal(t, "abc", extra["_run"])
	assert.Equal(t, int64(4), extra["_engine.tick"])
	assert.Equal(t, int64(2), extra["_engine.conn.new"])
	assert.Equal(t, int32(7), w.messages[0].Level)
}

func TestGELFHandler_WriteError(t *testing.T) {
	w := &fakeGELF{err: errors.New("unreachable")}
	h := newGELFHandler(w, slog.LevelInfo)

	logger := slog.New(NewMultiHandler(h))
	// must not panic
	logger.Warn("lost")
	assert.Empty(t, w.messages)
}

func TestSyslogLevel(t *testing.T) {
	assert.Equal(t, int32(7), syslogLevel(slog.LevelDebug))
	assert.Equal(t, int32(6), syslogLevel(slog.LevelInfo))
	assert.Equal(t, int32(4), syslogLevel(slog.LevelWarn))
	assert.Equal(t, int32(3), syslogLevel(slog.LevelError))
	assert.Equal(t, int32(3), syslogLevel(slog.LevelError+4))
}

func TestNewGELFHandler_UDP(t *testing.T) {
	h, w, err := NewGELFHandler("127.0.0.1:12201", slog.LevelInfo)
	require.NoError(t, err)
	t.Cleanup(func() { w.Close() })
	assert.NotNil(t, h)
}
