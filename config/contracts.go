package config

// Validator is implemented by every configuration type. Validate is called after loading.
type Validator interface {
	Validate() error
}

// Flags provides the config file location from command line flags.
type Flags interface {
	// GetConfigPath returns the path to the YAML config file, the default one if none was given.
	GetConfigPath() string

	// IsExplicitConfigPath reports whether the path was given on the command line.
	IsExplicitConfigPath() bool
}
