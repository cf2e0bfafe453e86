//go:build !windows

package models

import (
	"os/exec"
	"syscall"
)

// SetProcessGroup places the started process into its own process group so
// terminal signals aimed at the server do not reach it and the whole group
// can be stopped together.
func SetProcessGroup(cmd *exec.Cmd) {
	if cmd == nil {
		return
	}
	if cmd.SysProcAttr == nil {
		cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
		return
	}
	cmd.SysProcAttr.Setpgid = true
}

// TerminateProcessGroup sends SIGTERM to the process group led by pid.
func TerminateProcessGroup(pid int) error {
	if pid <= 0 {
		return nil
	}
	return syscall.Kill(-pid, syscall.SIGTERM)
}
