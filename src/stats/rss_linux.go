//go:build linux

package stats

import "syscall"

// currentRSSBytes reads RUSAGE_SELF.Maxrss, which the Linux kernel reports
// in kilobytes.
func currentRSSBytes() uint64 {
	var usage syscall.Rusage
	if err := syscall.Getrusage(syscall.RUSAGE_SELF, &usage); err != nil {
		return 0
	}
	return uint64(usage.Maxrss) * 1024
}
