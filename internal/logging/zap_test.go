package logging

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want zapcore.Level
	}{
		{in: "", want: zapcore.InfoLevel},
		{in: "debug", want: zapcore.DebugLevel},
		{in: " WARN ", want: zapcore.WarnLevel},
		{in: "error", want: zapcore.ErrorLevel},
	}

	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		require.NoError(t, err)
		require.Equal(t, tt.want, got, "input %q", tt.in)
	}
}

func TestParseLevelRejectsUnknown(t *testing.T) {
	t.Parallel()

	_, err := ParseLevel("chatty")
	require.Error(t, err)
}

func TestNewBuildsConsoleAndJSONLoggers(t *testing.T) {
	t.Parallel()

	jsonLogger, err := New(Options{Level: "info", JSON: true})
	require.NoError(t, err)
	require.True(t, jsonLogger.Core().Enabled(zapcore.InfoLevel))
	require.False(t, jsonLogger.Core().Enabled(zapcore.DebugLevel))

	consoleLogger, err := New(Options{Level: "debug"})
	require.NoError(t, err)
	require.True(t, consoleLogger.Core().Enabled(zapcore.DebugLevel))
}
