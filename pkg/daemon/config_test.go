package daemon

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/craft-tools/mcman-go/pkg/errors"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "mcmand.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadConfigFromFile(t *testing.T) {
	content := `
daemon:
  socket_file: /run/mcmand.sock
  unit_directories:
    - /etc/mcmand/units
  autostart:
    - lobby
  log_level: debug
`
	config, err := LoadConfigFromFile(writeConfigFile(t, content))
	require.NoError(t, err)

	assert.Equal(t, "/run/mcmand.sock", config.Daemon.SocketFile)
	assert.Equal(t, []string{"/etc/mcmand/units"}, config.Daemon.UnitDirectories)
	assert.Equal(t, []string{"lobby"}, config.Daemon.Autostart)
	assert.Equal(t, "debug", config.Daemon.LogLevel)
	assert.Equal(t, defaultForceShutdownTimeout, config.Daemon.ForceShutdownTimeout)
}

func TestLoadConfigFromFile_Defaults(t *testing.T) {
	config, err := LoadConfigFromFile(writeConfigFile(t, "daemon: {}\n"))
	require.NoError(t, err)

	assert.Equal(t, DefaultSocketFile(), config.Daemon.SocketFile)
	assert.Equal(t, defaultLogLevel, config.Daemon.LogLevel)
	assert.Equal(t, defaultForceShutdownTimeout, config.Daemon.ForceShutdownTimeout)
	assert.Empty(t, config.Daemon.UnitDirectories)
}

func TestLoadConfigFromFile_Malformed(t *testing.T) {
	_, err := LoadConfigFromFile(writeConfigFile(t, "daemon: [broken"))
	require.Error(t, err)
	assert.True(t, errors.IsValidationError(err))
}

func TestLoadConfigFromFile_Missing(t *testing.T) {
	_, err := LoadConfigFromFile(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.True(t, errors.IsIOError(err))
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name        string
		config      *Config
		expectError bool
	}{
		{
			name:        "nil_config",
			config:      nil,
			expectError: true,
		},
		{
			name: "valid",
			config: &Config{Daemon: ConfigOptions{
				SocketFile:           "/run/mcmand.sock",
				UnitDirectories:      []string{"/etc/mcmand/units"},
				ForceShutdownTimeout: 30 * time.Second,
			}},
			expectError: false,
		},
		{
			name: "empty_socket_file",
			config: &Config{Daemon: ConfigOptions{
				SocketFile: "",
			}},
			expectError: true,
		},
		{
			name: "empty_unit_directory_entry",
			config: &Config{Daemon: ConfigOptions{
				SocketFile:      "/run/mcmand.sock",
				UnitDirectories: []string{""},
			}},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateConfig(tt.config)
			if tt.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateConfigFile(t *testing.T) {
	path := writeConfigFile(t, "daemon:\n  socket_file: /run/mcmand.sock\n")
	assert.NoError(t, ValidateConfigFile(path))

	assert.Error(t, ValidateConfigFile(filepath.Join(t.TempDir(), "absent.yaml")))
}
