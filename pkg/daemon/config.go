package daemon

import (
	"os"
	"path/filepath"
	"time"

	"github.com/craft-tools/mcman-go/pkg/errors"

	"gopkg.in/yaml.v3"
)

const (
	defaultLogLevel             = "info"
	defaultForceShutdownTimeout = 30 * time.Second
)

// Config represents the daemon configuration file structure
type Config struct {
	Daemon ConfigOptions `yaml:"daemon"`
}

// ConfigOptions represents daemon-level configuration
type ConfigOptions struct {
	SocketFile           string        `yaml:"socket_file,omitempty"`
	UnitDirectories      []string      `yaml:"unit_directories"`
	Autostart            []string      `yaml:"autostart,omitempty"`
	LogLevel             string        `yaml:"log_level,omitempty"`
	ForceShutdownTimeout time.Duration `yaml:"force_shutdown_timeout,omitempty"`
}

// LoadConfigFromFile loads daemon configuration from a YAML file
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

// DefaultSocketFile is where the control socket lives when the
// configuration does not name one
func DefaultSocketFile() string {
	return filepath.Join(os.TempDir(), "mcmand.sock")
}

func setConfigDefaults(config *Config) {
	if config.Daemon.SocketFile == "" {
		config.Daemon.SocketFile = DefaultSocketFile()
	}
	if config.Daemon.LogLevel == "" {
		config.Daemon.LogLevel = defaultLogLevel
	}
	if config.Daemon.ForceShutdownTimeout <= 0 {
		config.Daemon.ForceShutdownTimeout = defaultForceShutdownTimeout
	}
}

// ValidateConfig validates the configuration structure
func ValidateConfig(config *Config) error {
	if config == nil {
		return errors.NewValidationError("configuration cannot be nil", nil)
	}
	if config.Daemon.SocketFile == "" {
		return errors.NewValidationError("socket_file cannot be empty", nil)
	}
	for _, directory := range config.Daemon.UnitDirectories {
		if directory == "" {
			return errors.NewValidationError("unit_directories entries cannot be empty", nil)
		}
	}
	return nil
}
