package units

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/craft-tools/mcman-go/pkg/errors"
)

// unitsTestLogger is a no-op Logger for testing
type unitsTestLogger struct{}

func (l *unitsTestLogger) LogLevelf(level int, format string, args ...interface{}) {}
func (l *unitsTestLogger) Debugf(format string, args ...interface{})               {}
func (l *unitsTestLogger) Infof(format string, args ...interface{})                {}
func (l *unitsTestLogger) Warnf(format string, args ...interface{})                {}
func (l *unitsTestLogger) Errorf(format string, args ...interface{})               {}

func validServerConfig() ServerConfig {
	return ServerConfig{
		Name:     "Lobby",
		Path:     "/srv/minecraft/lobby",
		Flavor:   ServerFlavorPaper,
		Jar:      "paper-1.20.4.jar",
		Version:  "1.20.4",
		MemoryGB: 4,
	}
}

func TestNewServerUnit_Defaults(t *testing.T) {
	unit, err := NewServerUnit("lobby", validServerConfig())
	require.NoError(t, err)

	assert.Equal(t, "lobby", unit.ID())
	assert.Equal(t, defaultJavaPath, unit.config.JavaPath)
	require.NotNil(t, unit.config.StopCommand)
	assert.Equal(t, defaultStopCommand, *unit.config.StopCommand)
}

func TestNewServerUnit_ExplicitEmptyStopCommand(t *testing.T) {
	config := validServerConfig()
	empty := ""
	config.StopCommand = &empty

	unit, err := NewServerUnit("lobby", config)
	require.NoError(t, err)

	// An explicit empty stop command disables the console stop path
	options := unit.SupervisionOptions(&unitsTestLogger{})
	assert.Equal(t, "", options.StopCommand)
}

func TestServerUnit_Metadata(t *testing.T) {
	unit, err := NewServerUnit("lobby", validServerConfig())
	require.NoError(t, err)

	metadata := unit.Metadata()
	assert.Equal(t, "Lobby", metadata.Name)
	assert.Equal(t, UnitKindServer, metadata.Kind)
}

func TestServerUnit_MetadataNameFallsBackToID(t *testing.T) {
	config := validServerConfig()
	config.Name = ""

	unit, err := NewServerUnit("lobby", config)
	require.NoError(t, err)

	assert.Equal(t, "lobby", unit.Metadata().Name)
}

func TestServerUnit_JavaArgs(t *testing.T) {
	config := validServerConfig()
	config.Args = []string{"-XX:+UseG1GC"}

	unit, err := NewServerUnit("lobby", config)
	require.NoError(t, err)

	args := unit.javaArgs()
	assert.Equal(t, []string{"-Xmx4G", "-XX:+UseG1GC", "-jar", "paper-1.20.4.jar", "nogui"}, args)
}

func TestServerUnit_SupervisionOptions(t *testing.T) {
	unit, err := NewServerUnit("lobby", validServerConfig())
	require.NoError(t, err)

	options := unit.SupervisionOptions(&unitsTestLogger{})
	assert.NotNil(t, options.ExecuteCmd)
	assert.Equal(t, "stop", options.StopCommand)
}

func TestNewServerUnit_Validation(t *testing.T) {
	tests := []struct {
		name   string
		id     string
		mutate func(*ServerConfig)
	}{
		{
			name:   "empty_id",
			id:     "",
			mutate: func(c *ServerConfig) {},
		},
		{
			name:   "empty_path",
			id:     "lobby",
			mutate: func(c *ServerConfig) { c.Path = "" },
		},
		{
			name:   "empty_jar",
			id:     "lobby",
			mutate: func(c *ServerConfig) { c.Jar = "" },
		},
		{
			name:   "zero_memory",
			id:     "lobby",
			mutate: func(c *ServerConfig) { c.MemoryGB = 0 },
		},
		{
			name:   "unknown_flavor",
			id:     "lobby",
			mutate: func(c *ServerConfig) { c.Flavor = "forge" },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := validServerConfig()
			tt.mutate(&config)

			_, err := NewServerUnit(tt.id, config)
			require.Error(t, err)
			assert.True(t, errors.IsValidationError(err))
		})
	}
}
