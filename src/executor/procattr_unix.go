//go:build !windows

package executor

import (
	"os/exec"
	"syscall"
)

// setProcGroup makes cmd the leader of a new process group so the whole
// tree it spawns can be killed together on timeout.
func setProcGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

// killProcessGroup sends SIGKILL to every process in pid's group.
func killProcessGroup(pid int) error {
	return syscall.Kill(-pid, syscall.SIGKILL)
}
