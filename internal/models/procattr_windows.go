//go:build windows

package models

import (
	"os/exec"
	"syscall"

	win "golang.org/x/sys/windows"
)

// SetProcessGroup starts the process in a new process group, the Windows
// counterpart of Setpgid.
func SetProcessGroup(cmd *exec.Cmd) {
	if cmd == nil {
		return
	}
	if cmd.SysProcAttr == nil {
		cmd.SysProcAttr = &syscall.SysProcAttr{CreationFlags: win.CREATE_NEW_PROCESS_GROUP}
		return
	}
	cmd.SysProcAttr.CreationFlags |= win.CREATE_NEW_PROCESS_GROUP
}

// TerminateProcessGroup terminates the process; child processes of the
// tunnel helpers exit with their parent console.
func TerminateProcessGroup(pid int) error {
	if pid <= 0 {
		return nil
	}
	h, err := win.OpenProcess(win.PROCESS_TERMINATE, false, uint32(pid))
	if err != nil {
		return err
	}
	defer win.CloseHandle(h)
	return win.TerminateProcess(h, 1)
}
