//go:build !windows

package gc

import (
	"syscall"

	"github.com/sirupsen/logrus"
)

// reapZombies collects exit status for any already-finished, unwaited
// child process, preventing zombie accumulation from children the
// executor's own Wait call raced with (e.g. orphaned grandchildren
// reparented after a timeout kill). WNOHANG makes this non-blocking.
func reapZombies(log *logrus.Entry) {
	for {
		var ws syscall.WaitStatus
		pid, err := syscall.Wait4(-1, &ws, syscall.WNOHANG, nil)
		if err != nil || pid <= 0 {
			return
		}
		if ws.Signaled() {
			log.Infof("reaped signaled process: %d", pid)
		} else {
			log.Infof("reaped zombie process: %d", pid)
		}
	}
}
