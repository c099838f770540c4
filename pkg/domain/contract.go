package domain

import (
	"context"
)

// UnitStatus is the client-facing view of one unit
type UnitStatus struct {
	Name     string
	Kind     string
	State    string
	PID      int  // non-zero while a process is alive
	ExitCode *int // set after a crash
}

// Contract is the operation surface the daemon exposes to control
// clients. The daemon implements it; the client gateway mirrors it over
// the control socket.
type Contract interface {
	// ListUnits returns all units sorted by name
	ListUnits(ctx context.Context) ([]UnitStatus, error)

	// StartUnit starts the named unit
	StartUnit(ctx context.Context, name string) error

	// StopUnit gracefully stops the named unit
	StopUnit(ctx context.Context, name string) error

	// StatusUnit returns the status of the named unit
	StatusUnit(ctx context.Context, name string) (UnitStatus, error)

	// SendCommand writes a command line to the named unit's console
	SendCommand(ctx context.Context, name string, command string) error

	// Version returns the daemon version string
	Version(ctx context.Context) (string, error)

	// ShutdownDaemon asks the daemon to stop all units and exit
	ShutdownDaemon(ctx context.Context) error
}
