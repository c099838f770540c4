//go:build windows

package process

import (
	"os/exec"
	"syscall"
)

// setupProcessAttributes configures Windows-specific process attributes
func setupProcessAttributes(cmd *exec.Cmd) {
	// New process group so Ctrl-Break events can target the child tree
	cmd.SysProcAttr = &syscall.SysProcAttr{
		CreationFlags: syscall.CREATE_NEW_PROCESS_GROUP,
	}
}
