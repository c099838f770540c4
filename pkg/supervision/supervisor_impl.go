package supervision

import (
	"bufio"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/craft-tools/mcman-go/pkg/errors"
	"github.com/craft-tools/mcman-go/pkg/logging"
	"github.com/craft-tools/mcman-go/pkg/process"
	"github.com/craft-tools/mcman-go/pkg/processstate"
)

const forcedKillTimeout = 5 * time.Second

// processExit carries the observed exit of the wait goroutine
type processExit struct {
	code int
	err  error
}

type supervisor struct {
	options Options
	unitID  string
	logger  logging.Logger

	// Running process tracking
	spawned    *process.Spawned
	doneSignal chan processExit

	// Lifecycle state
	state    UnitState
	exitCode *int

	// Protects all fields above. Long operations (spawn wait, graceful
	// termination) run outside the lock, guarded by the state value.
	mutex sync.RWMutex
}

// NewSupervisor creates a supervisor for one unit
func NewSupervisor(options Options, unitID string, logger logging.Logger) Supervisor {
	return &supervisor{
		options: options,
		unitID:  unitID,
		logger:  logger,
		state:   UnitStateStopped,
	}
}

func (s *supervisor) Start(ctx context.Context) error {
	if ctx == nil {
		return errors.NewValidationError("context cannot be nil", nil)
	}

	return s.startInternal(ctx)
}

func (s *supervisor) Stop(ctx context.Context) error {
	if ctx == nil {
		return errors.NewValidationError("context cannot be nil", nil)
	}

	return s.stopInternal(ctx)
}

func (s *supervisor) Status() Status {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	status := Status{
		State:    s.state,
		ExitCode: s.exitCode,
	}
	if s.spawned != nil {
		status.PID = s.spawned.Process.Pid
	}
	return status
}

func (s *supervisor) SendConsole(command string) error {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if s.state != UnitStateRunning || s.spawned == nil || s.spawned.Stdin == nil {
		return errors.NewNotRunningError("unit has no running console", nil).WithContext("unit", s.unitID)
	}

	if _, err := fmt.Fprintln(s.spawned.Stdin, command); err != nil {
		return errors.NewProcessError("failed to write to unit console", err).WithContext("unit", s.unitID)
	}
	return nil
}

func (s *supervisor) startInternal(ctx context.Context) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if !canStartFromState(s.state) {
		return errors.NewAlreadyRunningError(
			fmt.Sprintf("cannot start unit in state '%s'", s.state),
			nil).WithContext("unit", s.unitID).WithContext("current_state", string(s.state))
	}

	s.state = UnitStateStarting
	s.exitCode = nil

	// Capability-absent variants have no process to spawn
	if s.options.ExecuteCmd == nil {
		s.state = UnitStateRunning
		s.logger.Infof("Unit has no backing process, marked running, unit: %s", s.unitID)
		return nil
	}

	spawned, err := s.options.ExecuteCmd(ctx)
	if err != nil {
		s.state = UnitStateStopped
		s.logger.Errorf("Failed to spawn unit process, unit: %s, error: %v", s.unitID, err)
		if errors.IsSpawnError(err) || errors.IsValidationError(err) {
			return err
		}
		return errors.NewSpawnError("failed to spawn unit process", err).WithContext("unit", s.unitID)
	}

	pid := spawned.Process.Pid

	// Confirm the process came up before declaring it running
	if alive, err := processstate.IsProcessRunning(pid); err == nil && !alive {
		s.state = UnitStateStopped
		return errors.NewSpawnError("process exited immediately after spawn", nil).
			WithContext("unit", s.unitID).WithContext("pid", pid)
	}

	s.spawned = spawned

	doneSignal := make(chan processExit, 1)
	s.doneSignal = doneSignal

	go s.waitForExit(spawned, doneSignal)
	go s.drainConsole(spawned)

	if s.options.PIDManager != nil {
		if err := s.options.PIDManager.WritePIDFile(s.unitID, pid); err != nil {
			// The process is already running, only log
			s.logger.Warnf("Failed to write PID file, unit: %s, error: %v", s.unitID, err)
		}
	}

	s.state = UnitStateRunning
	s.logger.Infof("Unit started, unit: %s, PID: %d", s.unitID, pid)

	return nil
}

func canStartFromState(currentState UnitState) bool {
	switch currentState {
	case UnitStateStopped, UnitStateCrashed:
		return true
	default:
		return false
	}
}

func canStopFromState(currentState UnitState) bool {
	return currentState == UnitStateRunning
}

// waitForExit observes process exit asynchronously. An exit that was not
// requested through Stop moves the unit to crashed.
func (s *supervisor) waitForExit(spawned *process.Spawned, doneSignal chan processExit) {
	state, err := spawned.Process.Wait()

	exit := processExit{code: -1, err: err}
	if state != nil {
		exit.code = state.ExitCode()
	}

	if err != nil {
		s.logger.Debugf("Process wait failed, unit: %s, PID: %d, error: %v", s.unitID, spawned.Process.Pid, err)
	} else {
		s.logger.Infof("Process exited, unit: %s, PID: %d, code: %d", s.unitID, spawned.Process.Pid, exit.code)
	}

	doneSignal <- exit

	s.handleProcessExit(exit)
}

// handleProcessExit marks crashes. Exits observed while stopping are the
// stop flow's responsibility and are ignored here.
func (s *supervisor) handleProcessExit(exit processExit) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	switch s.state {
	case UnitStateRunning, UnitStateStarting:
		code := exit.code
		s.exitCode = &code
		s.state = UnitStateCrashed
		s.cleanupUnderLock()
		s.logger.Errorf("Unit crashed, unit: %s, exit code: %d", s.unitID, code)
	default:
		// Requested stop in progress, nothing to record
	}
}

// drainConsole forwards the unit's combined stdout/stderr into the daemon
// log. Full log collection is out of scope; this keeps crashes diagnosable.
func (s *supervisor) drainConsole(spawned *process.Spawned) {
	scanner := bufio.NewScanner(spawned.Stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		s.logger.Debugf("console, unit: %s: %s", s.unitID, scanner.Text())
	}
}

// stopPlan holds data extracted under lock for the stop operation
type stopPlan struct {
	spawned       *process.Spawned
	doneSignal    chan processExit
	shouldProceed bool
	errorToReturn error
}

func (s *supervisor) stopInternal(ctx context.Context) error {
	// Phase 1: state validation and planning under lock
	plan := s.validateAndPlanStop()
	if !plan.shouldProceed {
		return plan.errorToReturn
	}

	// Phase 2: termination outside the lock (can be long-running)
	var terminationError error
	if plan.spawned != nil {
		if err := s.terminateProcess(ctx, plan.spawned, plan.doneSignal); err != nil {
			s.logger.Errorf("Failed to terminate process, unit: %s, error: %v", s.unitID, err)
			terminationError = err
		}
	}

	// Phase 3: final cleanup and state transition under lock
	s.finalizeStop(plan)

	if terminationError != nil {
		return terminationError
	}

	s.logger.Infof("Unit stopped, unit: %s", s.unitID)
	return nil
}

func (s *supervisor) validateAndPlanStop() *stopPlan {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	plan := &stopPlan{}

	if !canStopFromState(s.state) {
		plan.errorToReturn = errors.NewNotRunningError(
			fmt.Sprintf("cannot stop unit in state '%s'", s.state),
			nil).WithContext("unit", s.unitID).WithContext("current_state", string(s.state))
		return plan
	}

	// Block other operations before releasing the lock
	s.state = UnitStateStopping

	plan.spawned = s.spawned
	plan.doneSignal = s.doneSignal
	plan.shouldProceed = true

	s.spawned = nil
	s.doneSignal = nil

	return plan
}

func (s *supervisor) finalizeStop(plan *stopPlan) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	closeSpawned(plan.spawned)
	s.removePIDFileUnderLock()
	s.state = UnitStateStopped
}

// terminateProcess performs graceful termination with timeout, escalating
// to a forceful kill
func (s *supervisor) terminateProcess(ctx context.Context, spawned *process.Spawned, done chan processExit) error {
	pid := spawned.Process.Pid

	gracefulTimeout := s.options.GracefulTimeout
	if gracefulTimeout <= 0 {
		gracefulTimeout = 20 * time.Second // Timeout super-default
	}

	// Graceful shutdown: console stop command when the unit has one
	// (game servers flush and save on it), termination signal otherwise
	graceful := false
	if s.options.StopCommand != "" && spawned.Stdin != nil {
		s.logger.Infof("Sending console stop command, unit: %s, PID: %d, command: %q", s.unitID, pid, s.options.StopCommand)
		if _, err := fmt.Fprintln(spawned.Stdin, s.options.StopCommand); err != nil {
			s.logger.Warnf("Failed to write console stop command, unit: %s, error: %v", s.unitID, err)
		} else {
			graceful = true
		}
	}
	if !graceful {
		s.logger.Infof("Sending termination signal, unit: %s, PID: %d", s.unitID, pid)
		if err := process.SendTerminationSignal(pid); err != nil {
			s.logger.Warnf("Failed to send termination signal, unit: %s, PID: %d, error: %v", s.unitID, pid, err)
		}
	}

	select {
	case exit := <-done:
		if exit.err != nil {
			return errors.NewProcessError("process termination failed", exit.err).WithContext("pid", pid)
		}
		s.logger.Infof("Process terminated gracefully, unit: %s, PID: %d", s.unitID, pid)
		return nil
	case <-time.After(gracefulTimeout):
		s.logger.Warnf("Process did not terminate within %v, forcing termination, unit: %s, PID: %d", gracefulTimeout, s.unitID, pid)
	case <-ctx.Done():
		s.logger.Warnf("Context cancelled during graceful termination, forcing termination, unit: %s, PID: %d", s.unitID, pid)
	}

	if err := spawned.Process.Kill(); err != nil {
		return errors.NewProcessError("failed to kill process", err).WithContext("pid", pid)
	}

	select {
	case exit := <-done:
		if exit.err != nil {
			return errors.NewProcessError("forced termination failed", exit.err).WithContext("pid", pid)
		}
		s.logger.Infof("Process force terminated, unit: %s, PID: %d", s.unitID, pid)
		return nil
	case <-time.After(forcedKillTimeout):
		return errors.NewTimeoutError("process did not terminate even after forced termination", nil).WithContext("pid", pid)
	}
}

// cleanupUnderLock releases process handles and the PID file
func (s *supervisor) cleanupUnderLock() {
	closeSpawned(s.spawned)
	s.spawned = nil
	s.doneSignal = nil

	s.removePIDFileUnderLock()
}

func (s *supervisor) removePIDFileUnderLock() {
	if s.options.PIDManager == nil {
		return
	}
	if err := s.options.PIDManager.RemovePIDFile(s.unitID); err != nil {
		s.logger.Warnf("Failed to remove PID file, unit: %s, error: %v", s.unitID, err)
	}
}

func closeSpawned(spawned *process.Spawned) {
	if spawned == nil {
		return
	}
	if spawned.Stdin != nil {
		_ = spawned.Stdin.Close()
	}
	if spawned.Stdout != nil {
		_ = spawned.Stdout.Close()
	}
}
