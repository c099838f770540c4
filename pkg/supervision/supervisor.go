package supervision

import (
	"context"
	"time"

	"github.com/craft-tools/mcman-go/pkg/process"
	"github.com/craft-tools/mcman-go/pkg/processfile"
)

// UnitState represents the current lifecycle state of a supervised unit
type UnitState string

const (
	UnitStateStopped  UnitState = "stopped"  // No process, ready to start
	UnitStateStarting UnitState = "starting" // Process startup in progress
	UnitStateRunning  UnitState = "running"  // Process running normally
	UnitStateStopping UnitState = "stopping" // Graceful shutdown initiated
	UnitStateCrashed  UnitState = "crashed"  // Process exited unexpectedly
)

// Status is a non-blocking snapshot of a unit's runtime state
type Status struct {
	State UnitState
	PID   int  // non-zero while a process is alive
	// ExitCode holds the observed exit code after a crash, nil otherwise
	ExitCode *int
}

// Options configures a unit's supervisor
type Options struct {
	// ExecuteCmd spawns the unit's process. Nil for unit kinds that have
	// no backing process; start/stop then only transition state.
	ExecuteCmd process.ExecuteCmd

	// StopCommand is written to the process console for graceful shutdown
	// (game servers shut down on "stop"). Empty means signal-only.
	StopCommand string

	// GracefulTimeout bounds the wait between graceful and forceful
	// termination
	GracefulTimeout time.Duration

	// PIDManager records the live PID on disk, nil to disable
	PIDManager *processfile.ProcessFileManager
}

// Supervisor owns the authoritative runtime state of exactly one unit's
// process. All transitions go through it; at most one transition is in
// flight per unit.
type Supervisor interface {
	// Start spawns the unit's process and transitions stopped -> starting
	// -> running. Fails with an already-running error from any other state.
	Start(ctx context.Context) error

	// Stop gracefully terminates the process, escalating to forceful
	// termination after the graceful timeout. Fails with a not-running
	// error if there is no live process.
	Stop(ctx context.Context) error

	// SendConsole writes a command line to the process console
	SendConsole(command string) error

	// Status returns the current state without blocking on process I/O
	Status() Status
}
