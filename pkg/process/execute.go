package process

import (
	"context"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"

	"github.com/craft-tools/mcman-go/pkg/errors"
	"github.com/craft-tools/mcman-go/pkg/logging"
)

// ExecutionConfig describes how a unit's process is launched
type ExecutionConfig struct {
	ExecutablePath   string   `yaml:"executable_path"`
	Args             []string `yaml:"args,omitempty"`
	Environment      []string `yaml:"environment,omitempty"`
	WorkingDirectory string   `yaml:"working_directory,omitempty"`
}

// Spawned bundles the handles of a freshly launched process.
// Stdin stays open for console commands (game servers accept "stop",
// "say", ... on their console), Stdout carries combined stdout+stderr.
type Spawned struct {
	Process *os.Process
	Stdin   io.WriteCloser
	Stdout  io.ReadCloser
}

type ExecuteCmd func(ctx context.Context) (*Spawned, error)

// NewExecuteCmd builds the standard execute closure for a unit
func NewExecuteCmd(execution ExecutionConfig, id string, logger logging.Logger) ExecuteCmd {
	return func(ctx context.Context) (*Spawned, error) {
		if ctx == nil {
			return nil, errors.NewValidationError("context cannot be nil", nil).WithContext("id", id)
		}

		if err := ValidateExecutionConfig(execution); err != nil {
			return nil, errors.NewValidationError("invalid execution configuration", err).WithContext("id", id)
		}

		workDir := execution.WorkingDirectory
		if workDir == "" {
			absPath, err := filepath.Abs(execution.ExecutablePath)
			if err != nil {
				return nil, errors.NewIOError("failed to get absolute path", err).WithContext("id", id).WithContext("executable_path", execution.ExecutablePath)
			}
			workDir = filepath.Dir(absPath)
		}

		logger.Debugf("Executing process, id: %s, executable path: '%s', args: %v, working directory: '%s'",
			id, execution.ExecutablePath, execution.Args, workDir)

		env := os.Environ()
		env = append(env, execution.Environment...)

		cmd := exec.CommandContext(ctx, execution.ExecutablePath, execution.Args...)
		cmd.Dir = workDir
		cmd.Env = env

		// Platform-specific setup is handled in execute_unix.go / execute_windows.go
		setupProcessAttributes(cmd)

		stdin, err := cmd.StdinPipe()
		if err != nil {
			return nil, errors.NewSpawnError("failed to create stdin pipe", err).WithContext("id", id)
		}
		stdout, err := cmd.StdoutPipe()
		if err != nil {
			return nil, errors.NewSpawnError("failed to create stdout pipe", err).WithContext("id", id)
		}
		cmd.Stderr = cmd.Stdout

		if err := cmd.Start(); err != nil {
			return nil, errors.NewSpawnError("failed to start the process", err).WithContext("id", id).WithContext("executable_path", execution.ExecutablePath)
		}

		logger.Infof("Process started, id: %s, PID: %d", id, cmd.Process.Pid)

		return &Spawned{
			Process: cmd.Process,
			Stdin:   stdin,
			Stdout:  stdout,
		}, nil
	}
}

// EnsureExecutable checks that a file exists and carries an execute bit,
// setting one if necessary. No-op for inherently executable files on Windows.
func EnsureExecutable(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return errors.NewIOError("file does not exist", err).WithContext("path", path)
	}

	if runtime.GOOS == "windows" {
		ext := filepath.Ext(path)
		if ext == ".exe" || ext == ".bat" || ext == ".cmd" {
			return nil
		}
	}

	mode := info.Mode()
	if mode&0111 != 0 {
		return nil
	}

	if runtime.GOOS != "windows" {
		if err := os.Chmod(path, mode|0111); err != nil {
			return errors.NewIOError("failed to make file executable", err).WithContext("path", path)
		}
	}

	return nil
}
