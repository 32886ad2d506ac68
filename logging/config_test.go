package logging

import (
	"testing"
	"time"

	"github.com/mxs-workbench/sqlscript/config"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestConfig(t *testing.T) {
	subtests := []struct {
		name     string
		env      map[string]string
		expected Config
		error    bool
	}{
		{
			name: "empty",
			env:  map[string]string{},
			expected: Config{
				Output:   CONSOLE,
				Interval: 20 * time.Second,
			},
		},
		{
			name:  "invalid-output",
			env:   map[string]string{"OUTPUT": "☃"},
			error: true,
		},
		{
			name:  "invalid-interval",
			env:   map[string]string{"INTERVAL": "-1s"},
			error: true,
		},
		{
			name: "customized",
			env: map[string]string{
				"LEVEL":    zapcore.DebugLevel.String(),
				"OUTPUT":   JOURNAL,
				"INTERVAL": "3m14s",
			},
			expected: Config{
				Level:    zapcore.DebugLevel,
				Output:   JOURNAL,
				Interval: 3*time.Minute + 14*time.Second,
			},
		},
		{
			name: "options",
			env:  map[string]string{"OPTIONS": "database:debug,querylog:warn,redis:error"},
			expected: Config{
				Output:   CONSOLE,
				Interval: 20 * time.Second,
				Options: map[string]zapcore.Level{
					"database": zapcore.DebugLevel,
					"querylog": zapcore.WarnLevel,
					"redis":    zapcore.ErrorLevel,
				},
			},
		},
		{
			name: "options-with-spaces",
			env:  map[string]string{"OPTIONS": " database : debug , querylog:info"},
			expected: Config{
				Output:   CONSOLE,
				Interval: 20 * time.Second,
				Options: map[string]zapcore.Level{
					"database": zapcore.DebugLevel,
					"querylog": zapcore.InfoLevel,
				},
			},
		},
		{
			name:  "options-twice",
			env:   map[string]string{"OPTIONS": "database:debug,database:error"},
			error: true,
		},
		{
			name:  "options-without-name",
			env:   map[string]string{"OPTIONS": ":debug"},
			error: true,
		},
		{
			name:  "options-without-level",
			env:   map[string]string{"OPTIONS": "database"},
			error: true,
		},
		{
			name:  "options-with-unknown-level",
			env:   map[string]string{"OPTIONS": "database:loud"},
			error: true,
		},
	}

	for _, test := range subtests {
		t.Run(test.name, func(t *testing.T) {
			var out Config
			if err := config.FromEnv(&out, config.EnvOptions{Environment: test.env}); test.error {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
				require.Equal(t, test.expected, out)
			}
		})
	}
}

func TestOptions_UnmarshalText(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		expected Options
		error    string
	}{
		{name: "empty", text: "", expected: Options{}},
		{name: "blank", text: "  ", expected: Options{}},
		{name: "single", text: "querylog:warn", expected: Options{"querylog": zapcore.WarnLevel}},
		{
			name:     "child-loggers",
			text:     "database:debug,querylog:error,redis:info",
			expected: Options{"database": zapcore.DebugLevel, "querylog": zapcore.ErrorLevel, "redis": zapcore.InfoLevel},
		},
		{name: "trailing-comma", text: "database:debug,", error: `"" must be of the form name:level`},
		{name: "duplicate", text: "querylog:debug,querylog:warn", error: `"querylog" given more than once`},
		{name: "unknown-level", text: "database:chatty", error: `invalid level for logger "database"`},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			var o Options
			err := o.UnmarshalText([]byte(test.text))

			if test.error != "" {
				require.ErrorContains(t, err, test.error)
				return
			}

			require.NoError(t, err)
			require.Equal(t, test.expected, o)
		})
	}
}

func TestOptions_Level(t *testing.T) {
	fallback := zap.NewAtomicLevelAt(zapcore.WarnLevel)
	o := Options{"database": zapcore.DebugLevel}

	require.True(t, o.Level("database", fallback).Enabled(zapcore.DebugLevel))
	require.Equal(t, fallback, o.Level("querylog", fallback))
	require.Equal(t, fallback, Options(nil).Level("database", fallback))
}
