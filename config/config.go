// Package config loads configuration from YAML files, environment variables and command line flags.
// Defaults are taken from `default` struct tags and every configuration is validated after loading.
package config

import (
	stderrors "errors"
	"fmt"
	"io/fs"
	"os"
	"reflect"

	"github.com/caarlos0/env/v11"
	"github.com/creasty/defaults"
	"github.com/goccy/go-yaml"
	"github.com/jessevdk/go-flags"
	"github.com/pkg/errors"
)

// ErrInvalidArgument is returned if the value to load configuration into is not a non-nil struct pointer.
var ErrInvalidArgument = stderrors.New("invalid argument")

// ErrInvalidConfiguration is attached to errors returned by Validate.
// errors.Is() recognizes both ErrInvalidConfiguration and the original error.
var ErrInvalidConfiguration = stderrors.New("invalid configuration")

// FromYAMLFile sets defaults, parses the YAML file name into v and validates the result.
// Unknown YAML fields are rejected.
func FromYAMLFile(name string, v Validator) error {
	if err := validateNonNilStructPointer(v); err != nil {
		return errors.WithStack(err)
	}

	// #nosec G304 -- the config file is chosen by the user.
	f, err := os.Open(name)
	if err != nil {
		return errors.Wrap(err, "can't open YAML file "+name)
	}
	defer func(f *os.File) {
		_ = f.Close()
	}(f)

	if err := defaults.Set(v); err != nil {
		return errors.Wrap(err, "can't set config defaults")
	}

	d := yaml.NewDecoder(f, yaml.DisallowUnknownField())
	if err := d.Decode(v); err != nil {
		// yaml.FormatError renders the offending source lines, which the plain error message lacks.
		err = errors.New(yaml.FormatError(err, false, true))
		return errors.Wrap(err, "can't parse YAML file "+name)
	}

	if err := v.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfiguration, errors.WithStack(err))
	}

	return nil
}

// EnvOptions is a type alias for [env.Options], so that only this package needs to import [env].
type EnvOptions = env.Options

// FromEnv sets defaults, parses environment variables into v and validates the result.
func FromEnv(v Validator, options EnvOptions) error {
	if err := validateNonNilStructPointer(v); err != nil {
		return errors.WithStack(err)
	}

	if err := defaults.Set(v); err != nil {
		return errors.Wrap(err, "can't set config defaults")
	}

	if err := env.ParseWithOptions(v, options); err != nil {
		return errors.Wrap(err, "can't parse environment variables")
	}

	if err := v.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfiguration, errors.WithStack(err))
	}

	return nil
}

// LoadOptions contains options for Load.
type LoadOptions struct {
	// Flags tells Load where to find the YAML file.
	Flags Flags

	// EnvOptions contains options for loading configuration from environment variables.
	EnvOptions EnvOptions
}

// Load reads the YAML file named by options.Flags and then environment variables into v,
// so that environment variables complement or override the file.
//
// An invalid YAML configuration is not an error yet, as the environment may complete it.
// A missing config file is only tolerated if it is the default path,
// i.e. the whole configuration may come from the environment.
func Load(v Validator, options LoadOptions) error {
	if err := validateNonNilStructPointer(v); err != nil {
		return errors.WithStack(err)
	}

	var defaultFileMissing bool

	if err := FromYAMLFile(options.Flags.GetConfigPath(), v); err != nil {
		invalid := errors.Is(err, ErrInvalidConfiguration)
		defaultFileMissing = errors.Is(err, fs.ErrNotExist) && !options.Flags.IsExplicitConfigPath()
		if !invalid && !defaultFileMissing {
			return errors.WithStack(err)
		}
	}

	if err := FromEnv(v, options.EnvOptions); err != nil {
		if defaultFileMissing {
			return stderrors.Join(
				errors.WithStack(err),
				fmt.Errorf(
					"default config file %s does not exist, which is fine if"+
						" the configuration is entirely provided via environment variables",
					options.Flags.GetConfigPath(),
				),
			)
		}

		return errors.WithStack(err)
	}

	return nil
}

// ParseFlags parses the command line into v, which must be a non-nil struct pointer with go-flags tags,
// and returns the remaining positional arguments.
//
// -h and --help print the help message to [os.Stdout] and exit.
// Other errors are not printed but returned.
func ParseFlags(v any) ([]string, error) {
	if err := validateNonNilStructPointer(v); err != nil {
		return nil, errors.WithStack(err)
	}

	parser := flags.NewParser(v, flags.Default^flags.PrintErrors)

	args, err := parser.Parse()
	if err != nil {
		var flagErr *flags.Error
		if errors.As(err, &flagErr) && errors.Is(flagErr.Type, flags.ErrHelp) {
			_, _ = fmt.Fprintln(os.Stdout, flagErr)
			os.Exit(0)
		}

		return nil, errors.Wrap(err, "can't parse CLI flags")
	}

	return args, nil
}

func validateNonNilStructPointer(v any) error {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Pointer || rv.IsNil() || rv.Elem().Kind() != reflect.Struct {
		return errors.Wrapf(ErrInvalidArgument, "non-nil struct pointer expected, got %T", v)
	}

	return nil
}

// LoadPasswordFile sets *password to the content of passwordFile, if given.
// Trailing newlines are removed. Setting both a password and a password file is an error.
func LoadPasswordFile(password *string, passwordFile string) error {
	if *password != "" && passwordFile != "" {
		return errors.New("both password and password file are set")
	}

	if passwordFile == "" {
		return nil
	}

	filePassword, err := os.ReadFile(passwordFile) // #nosec G304 -- the password file is chosen by the user.
	if err != nil {
		return errors.Wrapf(err, "can't read password file %q", passwordFile)
	}
	*password = string(trimNewlines(filePassword))

	return nil
}

func trimNewlines(b []byte) []byte {
	for len(b) > 0 && (b[len(b)-1] == '\n' || b[len(b)-1] == '\r') {
		b = b[:len(b)-1]
	}

	return b
}
