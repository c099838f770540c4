package process

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/craft-tools/mcman-go/pkg/errors"
)

func TestValidateExecutionConfig(t *testing.T) {
	tests := []struct {
		name      string
		config    ExecutionConfig
		shouldErr bool
	}{
		{
			name: "valid_minimal",
			config: ExecutionConfig{
				ExecutablePath: "/usr/bin/java",
			},
			shouldErr: false,
		},
		{
			name: "valid_full",
			config: ExecutionConfig{
				ExecutablePath:   "/usr/bin/java",
				Args:             []string{"-Xmx4G", "-jar", "paper.jar", "nogui"},
				Environment:      []string{"JAVA_OPTS=-XX:+UseG1GC"},
				WorkingDirectory: "/srv/lobby",
			},
			shouldErr: false,
		},
		{
			name:      "missing_executable_path",
			config:    ExecutionConfig{},
			shouldErr: true,
		},
		{
			name: "relative_working_directory",
			config: ExecutionConfig{
				ExecutablePath:   "/usr/bin/java",
				WorkingDirectory: "servers/lobby",
			},
			shouldErr: true,
		},
		{
			name: "malformed_environment_entry",
			config: ExecutionConfig{
				ExecutablePath: "/usr/bin/java",
				Environment:    []string{"NO_EQUALS_SIGN"},
			},
			shouldErr: true,
		},
		{
			name: "nonexistent_executable_is_not_a_validation_error",
			config: ExecutionConfig{
				ExecutablePath: "/nonexistent/path/to/java",
			},
			shouldErr: false, // surfaces as spawn failure at start time instead
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateExecutionConfig(tt.config)
			if tt.shouldErr {
				require.Error(t, err)
				assert.True(t, errors.IsValidationError(err))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidatePID(t *testing.T) {
	tests := []struct {
		name      string
		pidStr    string
		expected  int
		shouldErr bool
	}{
		{name: "valid", pidStr: "12345", expected: 12345},
		{name: "valid_with_whitespace", pidStr: " 42\n", expected: 42},
		{name: "empty", pidStr: "", shouldErr: true},
		{name: "not_a_number", pidStr: "abc", shouldErr: true},
		{name: "zero", pidStr: "0", shouldErr: true},
		{name: "negative", pidStr: "-5", shouldErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pid, err := ValidatePID(tt.pidStr)
			if tt.shouldErr {
				assert.Error(t, err)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.expected, pid)
			}
		})
	}
}
