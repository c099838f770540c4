package units

import (
	"fmt"
	"time"

	"github.com/craft-tools/mcman-go/pkg/errors"
	"github.com/craft-tools/mcman-go/pkg/logging"
	"github.com/craft-tools/mcman-go/pkg/process"
	"github.com/craft-tools/mcman-go/pkg/supervision"
)

// ServerFlavor identifies the server distribution. All flavors are
// JVM-launched; the flavor is a descriptive tag, not a launch variant.
type ServerFlavor string

const (
	ServerFlavorPaper   ServerFlavor = "paper"
	ServerFlavorVanilla ServerFlavor = "vanilla"
	ServerFlavorBukkit  ServerFlavor = "bukkit"
	ServerFlavorSpigot  ServerFlavor = "spigot"
)

const (
	defaultJavaPath    = "java"
	defaultStopCommand = "stop"
)

// ServerConfig declares how a game-server process is launched
type ServerConfig struct {
	Name            string        `yaml:"name,omitempty"`
	Path            string        `yaml:"path"`
	Flavor          ServerFlavor  `yaml:"flavor"`
	Jar             string        `yaml:"jar"`
	Version         string        `yaml:"version,omitempty"`
	MemoryGB        int           `yaml:"memory_gb"`
	JavaPath        string        `yaml:"java_path,omitempty"`
	Args            []string      `yaml:"args,omitempty"`
	StopCommand     *string       `yaml:"stop_command,omitempty"` // Pointer to distinguish unset from empty (empty disables console stop)
	GracefulTimeout time.Duration `yaml:"graceful_timeout,omitempty"`
}

// ServerUnit is a JVM game server supervised by the daemon
type ServerUnit struct {
	id     string
	config ServerConfig
}

// NewServerUnit validates the configuration and applies defaults
func NewServerUnit(id string, config ServerConfig) (*ServerUnit, error) {
	if err := ValidateUnitID(id); err != nil {
		return nil, err
	}
	if err := validateServerConfig(&config); err != nil {
		return nil, errors.NewValidationError(
			fmt.Sprintf("invalid server configuration for unit '%s'", id), err)
	}
	setServerConfigDefaults(&config)
	return &ServerUnit{id: id, config: config}, nil
}

func (u *ServerUnit) ID() string {
	return u.id
}

func (u *ServerUnit) Metadata() UnitMetadata {
	name := u.config.Name
	if name == "" {
		name = u.id
	}
	return UnitMetadata{
		Name: name,
		Kind: UnitKindServer,
	}
}

func (u *ServerUnit) SupervisionOptions(logger logging.Logger) supervision.Options {
	execution := process.ExecutionConfig{
		ExecutablePath:   u.config.JavaPath,
		Args:             u.javaArgs(),
		WorkingDirectory: u.config.Path,
	}
	return supervision.Options{
		ExecuteCmd:      process.NewExecuteCmd(execution, u.id, logger),
		StopCommand:     *u.config.StopCommand,
		GracefulTimeout: u.config.GracefulTimeout,
	}
}

// javaArgs builds the JVM command line: memory limit first, extra JVM
// arguments, then the server jar. "nogui" keeps the server headless.
func (u *ServerUnit) javaArgs() []string {
	args := []string{fmt.Sprintf("-Xmx%dG", u.config.MemoryGB)}
	args = append(args, u.config.Args...)
	args = append(args, "-jar", u.config.Jar, "nogui")
	return args
}

func validateServerConfig(config *ServerConfig) error {
	if config.Path == "" {
		return errors.NewValidationError("server path cannot be empty", nil)
	}
	if config.Jar == "" {
		return errors.NewValidationError("server jar cannot be empty", nil)
	}
	if config.MemoryGB <= 0 {
		return errors.NewValidationError("memory_gb must be positive", nil).
			WithContext("memory_gb", config.MemoryGB)
	}
	switch config.Flavor {
	case ServerFlavorPaper, ServerFlavorVanilla, ServerFlavorBukkit, ServerFlavorSpigot:
	default:
		return errors.NewValidationError(
			fmt.Sprintf("unknown server flavor '%s'", config.Flavor), nil)
	}
	return nil
}

func setServerConfigDefaults(config *ServerConfig) {
	if config.JavaPath == "" {
		config.JavaPath = defaultJavaPath
	}
	if config.StopCommand == nil {
		stopCommand := defaultStopCommand
		config.StopCommand = &stopCommand
	}
}
