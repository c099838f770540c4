//go:build windows

package process

import (
	"syscall"
)

// SendTerminationSignal delivers a Ctrl-Break event to the process group
// on Windows, the closest analogue to SIGTERM for console processes.
func SendTerminationSignal(pid int) error {
	dll, err := syscall.LoadDLL("kernel32.dll")
	if err != nil {
		return err
	}
	proc, err := dll.FindProc("GenerateConsoleCtrlEvent")
	if err != nil {
		return err
	}
	r, _, err := proc.Call(syscall.CTRL_BREAK_EVENT, uintptr(pid))
	if r == 0 {
		return err
	}
	return nil
}
