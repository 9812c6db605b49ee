//go:build !windows

package supervisor

import "syscall"

// processAlive probes pid with signal 0: delivery succeeds iff the
// process exists and is signalable by us, with no side effect on it.
func processAlive(pid int) bool {
	return syscall.Kill(pid, 0) == nil
}
