//go:build linux || darwin

package supervision

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/craft-tools/mcman-go/pkg/errors"
	"github.com/craft-tools/mcman-go/pkg/process"
	"github.com/craft-tools/mcman-go/pkg/processfile"
	"github.com/craft-tools/mcman-go/pkg/processstate"
)

func shellExecuteCmd(t *testing.T, script string) process.ExecuteCmd {
	t.Helper()
	return process.NewExecuteCmd(process.ExecutionConfig{
		ExecutablePath:   "/bin/sh",
		Args:             []string{"-c", script},
		WorkingDirectory: t.TempDir(),
	}, t.Name(), &supervisionTestLogger{})
}

func TestSupervisor_StartStop(t *testing.T) {
	sup := NewSupervisor(Options{
		ExecuteCmd:      shellExecuteCmd(t, "sleep 60"),
		GracefulTimeout: 2 * time.Second,
	}, "lobby", &supervisionTestLogger{})
	ctx := context.Background()

	require.NoError(t, sup.Start(ctx))

	status := sup.Status()
	assert.Equal(t, UnitStateRunning, status.State)
	assert.NotZero(t, status.PID)

	pid := status.PID

	require.NoError(t, sup.Stop(ctx))
	assert.Equal(t, UnitStateStopped, sup.Status().State)

	// The OS process must actually be gone
	assert.Eventually(t, func() bool {
		alive, err := processstate.IsProcessRunning(pid)
		return err == nil && !alive
	}, 5*time.Second, 50*time.Millisecond)
}

func TestSupervisor_DoubleStart(t *testing.T) {
	sup := NewSupervisor(Options{
		ExecuteCmd:      shellExecuteCmd(t, "sleep 60"),
		GracefulTimeout: 2 * time.Second,
	}, "survival", &supervisionTestLogger{})
	ctx := context.Background()

	require.NoError(t, sup.Start(ctx))
	defer func() { _ = sup.Stop(ctx) }()

	err := sup.Start(ctx)
	require.Error(t, err)
	assert.True(t, errors.IsAlreadyRunningError(err))
}

func TestSupervisor_ConcurrentStarts_SingleProcess(t *testing.T) {
	sup := NewSupervisor(Options{
		ExecuteCmd:      shellExecuteCmd(t, "sleep 60"),
		GracefulTimeout: 2 * time.Second,
	}, "survival", &supervisionTestLogger{})
	ctx := context.Background()

	var wg sync.WaitGroup
	results := make([]error, 4)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = sup.Start(ctx)
		}(i)
	}
	wg.Wait()
	defer func() { _ = sup.Stop(ctx) }()

	successes := 0
	for _, err := range results {
		if err == nil {
			successes++
		} else {
			assert.True(t, errors.IsAlreadyRunningError(err))
		}
	}
	assert.Equal(t, 1, successes, "exactly one concurrent start may win")
	assert.Equal(t, UnitStateRunning, sup.Status().State)
}

func TestSupervisor_SpawnFailure(t *testing.T) {
	sup := NewSupervisor(Options{
		ExecuteCmd: process.NewExecuteCmd(process.ExecutionConfig{
			ExecutablePath: "/nonexistent/bin/java",
		}, "broken", &supervisionTestLogger{}),
	}, "broken", &supervisionTestLogger{})

	err := sup.Start(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsSpawnError(err))

	// A failed spawn leaves the unit stopped, not half-started
	assert.Equal(t, UnitStateStopped, sup.Status().State)
}

func TestSupervisor_CrashDetection(t *testing.T) {
	sup := NewSupervisor(Options{
		ExecuteCmd: shellExecuteCmd(t, "exit 3"),
	}, "flaky", &supervisionTestLogger{})

	err := sup.Start(context.Background())
	if err != nil {
		// The process may exit before the post-spawn liveness probe; that
		// path reports a spawn failure and leaves the unit stopped
		assert.True(t, errors.IsSpawnError(err))
		assert.Equal(t, UnitStateStopped, sup.Status().State)
		return
	}

	require.Eventually(t, func() bool {
		return sup.Status().State == UnitStateCrashed
	}, 5*time.Second, 20*time.Millisecond)

	status := sup.Status()
	require.NotNil(t, status.ExitCode)
	assert.Equal(t, 3, *status.ExitCode)

	// Crashed is terminal until an explicit start
	stopErr := sup.Stop(context.Background())
	require.Error(t, stopErr)
	assert.True(t, errors.IsNotRunningError(stopErr))
}

func TestSupervisor_RestartAfterCrash(t *testing.T) {
	script := "if [ -e marker ]; then sleep 60; else touch marker; exit 1; fi"
	workDir := t.TempDir()
	executeCmd := process.NewExecuteCmd(process.ExecutionConfig{
		ExecutablePath:   "/bin/sh",
		Args:             []string{"-c", script},
		WorkingDirectory: workDir,
	}, "flaky", &supervisionTestLogger{})

	sup := NewSupervisor(Options{
		ExecuteCmd:      executeCmd,
		GracefulTimeout: 2 * time.Second,
	}, "flaky", &supervisionTestLogger{})
	ctx := context.Background()

	if err := sup.Start(ctx); err == nil {
		require.Eventually(t, func() bool {
			return sup.Status().State == UnitStateCrashed
		}, 5*time.Second, 20*time.Millisecond)
	}

	// Explicit start recovers from crashed
	require.NoError(t, sup.Start(ctx))
	assert.Equal(t, UnitStateRunning, sup.Status().State)
	assert.Nil(t, sup.Status().ExitCode)

	require.NoError(t, sup.Stop(ctx))
}

func TestSupervisor_ConsoleStop(t *testing.T) {
	sup := NewSupervisor(Options{
		ExecuteCmd:      shellExecuteCmd(t, "read line; exit 0"),
		StopCommand:     "stop",
		GracefulTimeout: 5 * time.Second,
	}, "lobby", &supervisionTestLogger{})
	ctx := context.Background()

	require.NoError(t, sup.Start(ctx))

	start := time.Now()
	require.NoError(t, sup.Stop(ctx))

	// The console command, not the kill escalation, must have ended it
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.Equal(t, UnitStateStopped, sup.Status().State)
}

func TestSupervisor_ForcefulEscalation(t *testing.T) {
	// Ignores SIGTERM; only SIGKILL ends it
	sup := NewSupervisor(Options{
		ExecuteCmd:      shellExecuteCmd(t, "trap '' TERM; sleep 60"),
		GracefulTimeout: 500 * time.Millisecond,
	}, "stubborn", &supervisionTestLogger{})
	ctx := context.Background()

	require.NoError(t, sup.Start(ctx))
	pid := sup.Status().PID

	require.NoError(t, sup.Stop(ctx))
	assert.Equal(t, UnitStateStopped, sup.Status().State)

	assert.Eventually(t, func() bool {
		alive, err := processstate.IsProcessRunning(pid)
		return err == nil && !alive
	}, 5*time.Second, 50*time.Millisecond)
}

func TestSupervisor_SendConsole(t *testing.T) {
	workDir := t.TempDir()
	sup := NewSupervisor(Options{
		ExecuteCmd: process.NewExecuteCmd(process.ExecutionConfig{
			ExecutablePath:   "/bin/sh",
			Args:             []string{"-c", "while read line; do echo \"$line\" >> console.log; done"},
			WorkingDirectory: workDir,
		}, "lobby", &supervisionTestLogger{}),
		StopCommand:     "",
		GracefulTimeout: 2 * time.Second,
	}, "lobby", &supervisionTestLogger{})
	ctx := context.Background()

	require.NoError(t, sup.Start(ctx))
	defer func() { _ = sup.Stop(ctx) }()

	require.NoError(t, sup.SendConsole("say hello"))

	assert.Eventually(t, func() bool {
		data, err := os.ReadFile(workDir + "/console.log")
		return err == nil && string(data) == "say hello\n"
	}, 5*time.Second, 50*time.Millisecond)
}

func TestSupervisor_PIDFileLifecycle(t *testing.T) {
	pidManager := processfile.NewProcessFileManager(processfile.ProcessFileConfig{
		BaseDirectory: t.TempDir(),
	}, &supervisionTestLogger{})

	sup := NewSupervisor(Options{
		ExecuteCmd:      shellExecuteCmd(t, "sleep 60"),
		GracefulTimeout: 2 * time.Second,
		PIDManager:      pidManager,
	}, "lobby", &supervisionTestLogger{})
	ctx := context.Background()

	require.NoError(t, sup.Start(ctx))

	pid, err := pidManager.ReadPIDFile("lobby")
	require.NoError(t, err)
	assert.Equal(t, sup.Status().PID, pid)

	require.NoError(t, sup.Stop(ctx))

	_, err = pidManager.ReadPIDFile("lobby")
	assert.Error(t, err, "PID file must be removed after stop")
}
