package logger

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// TestParseLogLevel verifies mapping from strings to zapcore.Level and handling of unknown values.
func TestParseLogLevel(t *testing.T) {
	t.Parallel()

	cases := map[string]zapcore.Level{
		"debug":  zapcore.DebugLevel,
		"info":   zapcore.InfoLevel,
		" WARN ": zapcore.WarnLevel,
		"error":  zapcore.ErrorLevel,
		"panic":  zapcore.PanicLevel,
		"fatal":  zapcore.FatalLevel,
	}
	for s, lvl := range cases {
		got, ok := ParseLogLevel(s)
		require.True(t, ok)
		require.Equal(t, lvl, got)
	}

	_, ok := ParseLogLevel("unknown")
	require.False(t, ok)
}

// TestContextLogger checks that named loggers and key-values travel through the context.
func TestContextLogger(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	l := NewWithSink(zapcore.AddSync(&buf), zap.NewAtomicLevelAt(zapcore.DebugLevel))

	ctx := ToContext(context.Background(), l)
	ctx = WithName(ctx, "installer")
	ctx = WithKV(ctx, "package", "alpha")

	InfoKV(ctx, "Resolved artifact", "install_name", "alpha")

	out := buf.String()
	require.Contains(t, out, "installer")
	require.Contains(t, out, "Resolved artifact")
	require.Contains(t, out, "alpha")
}

// TestFromContext_Fallback ensures the global logger is returned for bare contexts.
func TestFromContext_Fallback(t *testing.T) {
	t.Parallel()

	require.Same(t, global, FromContext(context.Background()))
}

// TestWithLevel_RaisesFloor drops entries under the floor and keeps the core's own level above it.
func TestWithLevel_RaisesFloor(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	l := NewWithSink(zapcore.AddSync(&buf), zap.NewAtomicLevelAt(zapcore.ErrorLevel), WithLevel(zapcore.WarnLevel))
	ctx := WithName(ToContext(context.Background(), l), "quiet")

	InfoKV(ctx, "Download started")
	WarnKV(ctx, "No keyring configured")
	ErrorKV(ctx, "Install failed")

	out := buf.String()
	require.NotContains(t, out, "Download started")
	require.NotContains(t, out, "No keyring configured")
	require.Contains(t, out, "Install failed")
	require.Contains(t, out, "quiet")
}
