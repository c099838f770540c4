package process

import (
	"path/filepath"
	"strconv"
	"strings"

	"github.com/craft-tools/mcman-go/pkg/errors"
)

// ValidateExecutionConfig validates the shape of an execution configuration.
// Existence of the executable is deliberately not checked here: a missing
// binary must surface as a spawn failure at start time, not as a config
// validation error.
func ValidateExecutionConfig(config ExecutionConfig) error {
	if config.ExecutablePath == "" {
		return errors.NewValidationError("executable path is required", nil)
	}

	if config.WorkingDirectory != "" && !filepath.IsAbs(config.WorkingDirectory) {
		return errors.NewValidationError("working directory must be an absolute path", nil)
	}

	for _, env := range config.Environment {
		if !strings.Contains(env, "=") {
			return errors.NewValidationError("invalid environment variable format: "+env, nil)
		}
	}

	return nil
}

// ValidatePID validates a PID value read from a PID file
func ValidatePID(pidStr string) (int, error) {
	if pidStr == "" {
		return 0, errors.NewValidationError("PID cannot be empty", nil)
	}

	pid, err := strconv.Atoi(strings.TrimSpace(pidStr))
	if err != nil {
		return 0, errors.NewValidationError("invalid PID format: "+pidStr, err)
	}

	if pid <= 0 {
		return 0, errors.NewValidationError("PID must be positive: "+pidStr, nil)
	}

	return pid, nil
}
