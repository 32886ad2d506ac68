// Package testutils provides generic table test cases and helpers for checking errors and handling temporary files.
package testutils

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestCase is a table test case with input data of type D producing a result of type T.
type TestCase[T any, D any] struct {
	// Name is the subtest name.
	Name string
	// Expected is the wanted result. Leave it empty if an error is expected.
	Expected T
	// Data is the input passed to the function under test.
	Data D
	// Error, if set, checks the error returned by the function under test instead of comparing results.
	Error func(*testing.T, error)
}

// F returns a subtest function for t.Run() calling f with the test case's data.
func (tc TestCase[T, D]) F(f func(D) (T, error)) func(t *testing.T) {
	return func(t *testing.T) {
		actual, err := f(tc.Data)

		if tc.Error != nil {
			tc.Error(t, err)
		} else {
			require.NoError(t, err)
			require.Equal(t, tc.Expected, actual)
		}
	}
}

// ConfigTestData holds a YAML document and environment variables to load configuration from.
type ConfigTestData struct {
	Yaml string
	Env  map[string]string
}

// ErrorAs returns a function that checks if the error is of type T.
func ErrorAs[T error]() func(t *testing.T, err error) {
	return func(t *testing.T, err error) {
		var expected T
		require.ErrorAs(t, err, &expected)
	}
}

// ErrorContains returns a function that checks if the error message contains expected.
func ErrorContains(expected string) func(t *testing.T, err error) {
	return func(t *testing.T, err error) {
		require.ErrorContains(t, err, expected)
	}
}

// ErrorIs returns a function that checks if expected is in the error's chain.
func ErrorIs(expected error) func(t *testing.T, err error) {
	return func(t *testing.T, err error) {
		require.ErrorIs(t, err, expected)
	}
}

// WithTempFile creates a temporary file matching pattern with the given content, calls f with it and
// removes the file afterwards.
func WithTempFile(t *testing.T, pattern, content string, f func(file *os.File)) {
	file, err := os.CreateTemp("", pattern)
	require.NoError(t, err)

	defer func(name string) {
		_ = os.Remove(name) // #nosec G703 -- name is not user supplied, but from os.CreateTemp
	}(file.Name())

	_, err = file.WriteString(content)
	require.NoError(t, err)

	require.NoError(t, file.Close())

	f(file)
}

// WithYAMLFile is WithTempFile for YAML files.
func WithYAMLFile(t *testing.T, yaml string, f func(file *os.File)) {
	WithTempFile(t, "*.yaml", yaml, f)
}

// WithSQLFile is WithTempFile for SQL scripts.
func WithSQLFile(t *testing.T, sql string, f func(file *os.File)) {
	WithTempFile(t, "*.sql", sql, f)
}
