//go:build windows

package supervisor

import "os"

// processAlive on Windows has no signal-0 equivalent; FindProcess success
// is the best available liveness signal.
func processAlive(pid int) bool {
	_, err := os.FindProcess(pid)
	return err == nil
}
