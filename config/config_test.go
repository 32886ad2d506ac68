package config

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/mxs-workbench/sqlscript/testutils"
	"github.com/stretchr/testify/require"
)

type simpleValidator struct {
	Foo int `env:"FOO"`
}

func (sv simpleValidator) Validate() error {
	if sv.Foo == 42 {
		return nil
	} else {
		return errors.New("invalid value")
	}
}

type nonStructValidator int

func (nonStructValidator) Validate() error {
	return nil
}

type defaultValidator struct {
	Foo int `env:"FOO" default:"42"`
}

func (defaultValidator) Validate() error {
	return nil
}

type prefixValidator struct {
	Nested simpleValidator `envPrefix:"PREFIX_"`
}

func (prefixValidator) Validate() error {
	return nil
}

func TestFromEnv(t *testing.T) {
	subtests := []struct {
		name  string
		opts  EnvOptions
		io    Validator
		error bool
	}{
		{name: "nil", error: true},
		{name: "nonptr", io: simpleValidator{}, error: true},
		{name: "nilptr", io: (*simpleValidator)(nil), error: true},
		{name: "defaulterr", io: new(nonStructValidator), error: true},
		{
			name:  "parseeerr",
			opts:  EnvOptions{Environment: map[string]string{"FOO": "bar"}},
			io:    &simpleValidator{},
			error: true,
		},
		{
			name:  "invalid",
			opts:  EnvOptions{Environment: map[string]string{"FOO": "23"}},
			io:    &simpleValidator{},
			error: true,
		},
		{name: "simple", opts: EnvOptions{Environment: map[string]string{"FOO": "42"}}, io: &simpleValidator{42}},
		{name: "default", io: &defaultValidator{42}},
		{name: "override", opts: EnvOptions{Environment: map[string]string{"FOO": "23"}}, io: &defaultValidator{23}},
		{
			name: "prefix",
			opts: EnvOptions{Environment: map[string]string{"PREFIX_FOO": "42"}, Prefix: "PREFIX_"},
			io:   &simpleValidator{42},
		},
		{
			name: "nested",
			opts: EnvOptions{Environment: map[string]string{"PREFIX_FOO": "42"}},
			io:   &prefixValidator{simpleValidator{42}},
		},
	}

	for _, st := range subtests {
		t.Run(st.name, func(t *testing.T) {
			var actual Validator
			if vActual := reflect.ValueOf(st.io); vActual != (reflect.Value{}) {
				if vActual.Kind() == reflect.Ptr && !vActual.IsNil() {
					vActual = reflect.New(vActual.Type().Elem())
				}

				actual = vActual.Interface().(Validator)
			}

			if err := FromEnv(actual, st.opts); st.error {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
				require.Equal(t, st.io, actual)
			}
		})
	}
}

type scriptConfig struct {
	Host      string `yaml:"host" env:"HOST"`
	Delimiter string `yaml:"delimiter" env:"DELIMITER" default:";"`
	MaxRows   int    `yaml:"max_rows" env:"MAX_ROWS" default:"10000"`
}

func (c *scriptConfig) Validate() error {
	if c.Host == "" {
		return errors.New("host missing")
	}

	return nil
}

type scriptFlags struct {
	config string
}

func (f scriptFlags) GetConfigPath() string {
	if f.config == "" {
		return filepath.Join(os.TempDir(), "sqlscript-nonexistent", "config.yml")
	}

	return f.config
}

func (f scriptFlags) IsExplicitConfigPath() bool {
	return f.config != ""
}

func TestFromYAMLFile(t *testing.T) {
	tests := []testutils.TestCase[scriptConfig, string]{
		{
			Name:     "defaults",
			Data:     "host: maxscale",
			Expected: scriptConfig{Host: "maxscale", Delimiter: ";", MaxRows: 10000},
		},
		{
			Name:     "override",
			Data:     "host: maxscale\ndelimiter: $$\nmax_rows: 5",
			Expected: scriptConfig{Host: "maxscale", Delimiter: "$$", MaxRows: 5},
		},
		{
			Name:  "unknown-field",
			Data:  "host: maxscale\nfoo: bar",
			Error: testutils.ErrorContains("can't parse YAML file"),
		},
		{
			Name:  "invalid",
			Data:  "delimiter: $$",
			Error: testutils.ErrorIs(ErrInvalidConfiguration),
		},
	}

	for _, tc := range tests {
		t.Run(tc.Name, tc.F(func(yaml string) (scriptConfig, error) {
			var actual scriptConfig
			var err error
			testutils.WithYAMLFile(t, yaml, func(file *os.File) {
				err = FromYAMLFile(file.Name(), &actual)
			})

			return actual, err
		}))
	}

	t.Run("nonexistent", func(t *testing.T) {
		err := FromYAMLFile("/nonexistent/config.yml", &scriptConfig{})
		require.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("non-pointer", func(t *testing.T) {
		var v *scriptConfig
		require.ErrorIs(t, FromYAMLFile("config.yml", v), ErrInvalidArgument)
	})
}

func TestLoad(t *testing.T) {
	tests := []testutils.TestCase[scriptConfig, testutils.ConfigTestData]{
		{
			Name:     "yaml-only",
			Data:     testutils.ConfigTestData{Yaml: "host: maxscale"},
			Expected: scriptConfig{Host: "maxscale", Delimiter: ";", MaxRows: 10000},
		},
		{
			Name: "env-overrides-yaml",
			Data: testutils.ConfigTestData{
				Yaml: "host: maxscale\nmax_rows: 5",
				Env:  map[string]string{"MAX_ROWS": "7"},
			},
			Expected: scriptConfig{Host: "maxscale", Delimiter: ";", MaxRows: 7},
		},
		{
			Name: "env-completes-yaml",
			Data: testutils.ConfigTestData{
				Yaml: "delimiter: //",
				Env:  map[string]string{"HOST": "maxscale"},
			},
			Expected: scriptConfig{Host: "maxscale", Delimiter: "//", MaxRows: 10000},
		},
		{
			Name:  "incomplete",
			Data:  testutils.ConfigTestData{Yaml: "delimiter: //"},
			Error: testutils.ErrorIs(ErrInvalidConfiguration),
		},
	}

	for _, tc := range tests {
		t.Run(tc.Name, tc.F(func(data testutils.ConfigTestData) (scriptConfig, error) {
			env := data.Env
			if env == nil {
				// A nil map would make env fall back to the process environment.
				env = map[string]string{}
			}

			var actual scriptConfig
			var err error
			testutils.WithYAMLFile(t, data.Yaml, func(file *os.File) {
				err = Load(&actual, LoadOptions{
					Flags:      scriptFlags{config: file.Name()},
					EnvOptions: EnvOptions{Environment: env},
				})
			})

			return actual, err
		}))
	}

	t.Run("env-only", func(t *testing.T) {
		var actual scriptConfig
		err := Load(&actual, LoadOptions{
			Flags:      scriptFlags{},
			EnvOptions: EnvOptions{Environment: map[string]string{"HOST": "maxscale"}},
		})
		require.NoError(t, err)
		require.Equal(t, scriptConfig{Host: "maxscale", Delimiter: ";", MaxRows: 10000}, actual)
	})

	t.Run("explicit-path-missing", func(t *testing.T) {
		var actual scriptConfig
		err := Load(&actual, LoadOptions{
			Flags:      scriptFlags{config: "/nonexistent/config.yml"},
			EnvOptions: EnvOptions{Environment: map[string]string{"HOST": "maxscale"}},
		})
		require.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("default-path-missing-and-env-incomplete", func(t *testing.T) {
		var actual scriptConfig
		err := Load(&actual, LoadOptions{Flags: scriptFlags{}, EnvOptions: EnvOptions{Environment: map[string]string{}}})
		require.ErrorIs(t, err, ErrInvalidConfiguration)
		require.ErrorContains(t, err, "does not exist")
	})
}

func TestLoadPasswordFile(t *testing.T) {
	t.Run("none", func(t *testing.T) {
		password := "secret"
		require.NoError(t, LoadPasswordFile(&password, ""))
		require.Equal(t, "secret", password)
	})

	t.Run("both", func(t *testing.T) {
		password := "secret"
		require.Error(t, LoadPasswordFile(&password, "/etc/passwd"))
	})

	t.Run("file", func(t *testing.T) {
		testutils.WithTempFile(t, "password-*", "s3cr3t\n", func(file *os.File) {
			var password string
			require.NoError(t, LoadPasswordFile(&password, file.Name()))
			require.Equal(t, "s3cr3t", password)
		})
	})

	t.Run("nonexistent", func(t *testing.T) {
		var password string
		require.Error(t, LoadPasswordFile(&password, "/nonexistent/password"))
	})
}
