//go:build windows

package executor

import (
	"fmt"
	"os/exec"
	"syscall"
)

// setProcGroup configures cmd to start its own process group via the
// CREATE_NEW_PROCESS_GROUP flag; Windows has no setpgid equivalent.
func setProcGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		CreationFlags: syscall.CREATE_NEW_PROCESS_GROUP,
	}
}

// killProcessGroup kills pid's whole process tree via taskkill, since
// Windows has no negative-PID group-kill syscall.
func killProcessGroup(pid int) error {
	kill := exec.Command("taskkill", "/F", "/T", "/PID", fmt.Sprintf("%d", pid))
	return kill.Run()
}
