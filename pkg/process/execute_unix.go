//go:build !windows

package process

import (
	"os/exec"
	"syscall"
)

// setupProcessAttributes configures Unix-specific process attributes
func setupProcessAttributes(cmd *exec.Cmd) {
	// Create a new process group so a termination signal sent to -pid
	// reaches the whole tree (server + any children it forks)
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setpgid: true,
	}
}
