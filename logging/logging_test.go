package logging

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNewLogging(t *testing.T) {
	t.Run("invalid-output", func(t *testing.T) {
		_, err := NewLogging("sqlscript", zapcore.InfoLevel, "☃", nil, time.Second)
		require.Error(t, err)
	})

	t.Run("child-levels", func(t *testing.T) {
		logs, err := NewLoggingFromConfig("sqlscript", Config{
			Level:    zapcore.InfoLevel,
			Output:   CONSOLE,
			Interval: 3 * time.Second,
			Options:  Options{"database": zapcore.DebugLevel, "querylog": zapcore.ErrorLevel},
		})
		require.NoError(t, err)

		root := logs.GetLogger()
		require.False(t, root.Desugar().Core().Enabled(zapcore.DebugLevel))
		require.True(t, root.Desugar().Core().Enabled(zapcore.InfoLevel))
		require.Equal(t, 3*time.Second, root.Interval())

		db := logs.GetChildLogger("database")
		require.True(t, db.Desugar().Core().Enabled(zapcore.DebugLevel))
		require.Same(t, db, logs.GetChildLogger("database"))

		ql := logs.GetChildLogger("querylog")
		require.False(t, ql.Desugar().Core().Enabled(zapcore.WarnLevel))
		require.True(t, ql.Desugar().Core().Enabled(zapcore.ErrorLevel))

		other := logs.GetChildLogger("cli")
		require.True(t, other.Desugar().Core().Enabled(zapcore.InfoLevel))
		require.False(t, other.Desugar().Core().Enabled(zapcore.DebugLevel))
	})
}
