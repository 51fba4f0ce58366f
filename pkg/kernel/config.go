package kernel

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/core-tools/hsu-kernel-go/pkg/errors"
)

// Config represents the top-level kernel configuration file structure
type Config struct {
	Kernel   KernelOptions  `yaml:"kernel"`
	Programs ProgramsConfig `yaml:"programs"`
}

// KernelOptions represents kernel-level configuration
type KernelOptions struct {
	LogLevel    string `yaml:"log_level,omitempty"`
	InitProgram string `yaml:"init_program,omitempty"`
	TraceOutput string `yaml:"trace_output,omitempty"` // file for span output, stdout if empty
}

// ProgramsConfig lists program manifests to load at boot
type ProgramsConfig struct {
	Manifests []string `yaml:"manifests,omitempty"`
}

const (
	DefaultLogLevel    = "info"
	DefaultInitProgram = "init"
)

// LoadConfigFromFile loads kernel configuration from a YAML file
func LoadConfigFromFile(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, errors.NewIOError("failed to read configuration file", err).WithContext("filename", filename)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, errors.NewValidationError("failed to parse YAML configuration", err).WithContext("filename", filename)
	}

	setConfigDefaults(&config)

	return &config, nil
}

// DefaultConfig returns a configuration with all defaults applied
func DefaultConfig() *Config {
	config := &Config{}
	setConfigDefaults(config)
	return config
}

func setConfigDefaults(config *Config) {
	if config.Kernel.LogLevel == "" {
		config.Kernel.LogLevel = DefaultLogLevel
	}
	if config.Kernel.InitProgram == "" {
		config.Kernel.InitProgram = DefaultInitProgram
	}
}

// ValidateConfig validates the entire configuration structure
func ValidateConfig(config *Config) error {
	if config == nil {
		return errors.NewValidationError("configuration cannot be nil", nil)
	}

	switch config.Kernel.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return errors.NewValidationError("invalid log level", nil).
			WithContext("log_level", config.Kernel.LogLevel)
	}

	if config.Kernel.InitProgram == "" {
		return errors.NewValidationError("init program cannot be empty", nil)
	}

	return nil
}
