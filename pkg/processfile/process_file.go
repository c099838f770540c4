package processfile

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/renameio/v2"

	"github.com/craft-tools/mcman-go/pkg/errors"
	"github.com/craft-tools/mcman-go/pkg/logging"
	"github.com/craft-tools/mcman-go/pkg/process"
)

// DefaultAppName names the subdirectory PID files are kept in
const DefaultAppName = "mcmand"

// ProcessFileConfig holds configuration for PID file placement
type ProcessFileConfig struct {
	// Base directory for PID files. If empty, an OS-appropriate
	// runtime directory is used.
	BaseDirectory string

	// Application name for the subdirectory
	AppName string
}

// ProcessFileManager generates and manages PID file paths for units
type ProcessFileManager struct {
	config ProcessFileConfig
	logger logging.Logger
}

// NewProcessFileManager creates a new PID file manager
func NewProcessFileManager(config ProcessFileConfig, logger logging.Logger) *ProcessFileManager {
	if config.AppName == "" {
		config.AppName = DefaultAppName
	}

	return &ProcessFileManager{
		config: config,
		logger: logger,
	}
}

// PIDFilePath returns the PID file path for the given unit name
func (m *ProcessFileManager) PIDFilePath(unitName string) string {
	return filepath.Join(m.baseDirectory(), unitName+".pid")
}

// WritePIDFile records the process PID for the given unit.
// The write is atomic: a crash mid-write never leaves a torn PID file.
func (m *ProcessFileManager) WritePIDFile(unitName string, pid int) error {
	pidFilePath := m.PIDFilePath(unitName)

	if err := os.MkdirAll(filepath.Dir(pidFilePath), 0755); err != nil {
		return errors.NewIOError("failed to create PID file directory", err).WithContext("pid_file", pidFilePath)
	}

	pidContent := fmt.Sprintf("%d\n", pid)
	if err := renameio.WriteFile(pidFilePath, []byte(pidContent), 0644); err != nil {
		return errors.NewIOError("failed to write PID file", err).WithContext("pid_file", pidFilePath).WithContext("pid", pid)
	}

	m.logger.Debugf("PID file written, unit: %s, pid: %d, path: %s", unitName, pid, pidFilePath)
	return nil
}

// ReadPIDFile reads and validates the recorded PID for the given unit
func (m *ProcessFileManager) ReadPIDFile(unitName string) (int, error) {
	pidFilePath := m.PIDFilePath(unitName)

	data, err := os.ReadFile(pidFilePath)
	if err != nil {
		return 0, errors.NewIOError("failed to read PID file", err).WithContext("pid_file", pidFilePath)
	}

	pid, err := process.ValidatePID(string(data))
	if err != nil {
		return 0, errors.NewValidationError("PID file contains invalid PID", err).WithContext("pid_file", pidFilePath)
	}

	return pid, nil
}

// RemovePIDFile discards the recorded PID for the given unit.
// A missing file is not an error.
func (m *ProcessFileManager) RemovePIDFile(unitName string) error {
	pidFilePath := m.PIDFilePath(unitName)

	if err := os.Remove(pidFilePath); err != nil && !os.IsNotExist(err) {
		return errors.NewIOError("failed to remove PID file", err).WithContext("pid_file", pidFilePath)
	}

	return nil
}

func (m *ProcessFileManager) baseDirectory() string {
	if m.config.BaseDirectory != "" {
		return m.config.BaseDirectory
	}
	return filepath.Join(os.TempDir(), m.config.AppName)
}
