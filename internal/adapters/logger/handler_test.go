package logger_test

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"go.trai.ch/hoard/internal/adapters/logger"
)

func newTestHandler(t *testing.T, level slog.Level) (*logger.PrettyHandler, *bytes.Buffer) {
	t.Helper()
	t.Setenv("NO_COLOR", "1")
	buf := &bytes.Buffer{}
	return logger.NewPrettyHandler(buf, &slog.HandlerOptions{Level: level}), buf
}

func TestPrettyHandler_Levels(t *testing.T) {
	tests := []struct {
		name       string
		level      slog.Level
		goldenName string
	}{
		{name: "info", level: slog.LevelInfo, goldenName: "handler_info"},
		{name: "warn", level: slog.LevelWarn, goldenName: "handler_warn"},
		{name: "error", level: slog.LevelError, goldenName: "handler_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler, buf := newTestHandler(t, slog.LevelInfo)
			slog.New(handler).Log(t.Context(), tt.level, "eviction pass")

			g := goldie.New(t)
			g.Assert(t, tt.goldenName, buf.Bytes())
		})
	}
}

func TestPrettyHandler_FiltersBelowLevel(t *testing.T) {
	handler, buf := newTestHandler(t, slog.LevelInfo)
	slog.New(handler).Debug("hidden")
	assert.Empty(t, buf.String())
	assert.False(t, handler.Enabled(t.Context(), slog.LevelDebug))
	assert.True(t, handler.Enabled(t.Context(), slog.LevelWarn))
}

func TestPrettyHandler_Attrs(t *testing.T) {
	handler, buf := newTestHandler(t, slog.LevelInfo)
	lg := slog.New(handler).With("budget", "6.0 GiB").WithGroup("entry").With("tier", "active")
	lg.Info("resident", "size", 42)

	g := goldie.New(t)
	g.Assert(t, "handler_attrs", buf.Bytes())
}

func TestPrettyHandler_NilWriter(t *testing.T) {
	assert.NotNil(t, logger.NewPrettyHandler(nil, nil))
}
