//go:build darwin

package stats

import "syscall"

// currentRSSBytes reads RUSAGE_SELF.Maxrss, which Darwin reports in bytes
// (unlike Linux's kilobytes).
func currentRSSBytes() uint64 {
	var usage syscall.Rusage
	if err := syscall.Getrusage(syscall.RUSAGE_SELF, &usage); err != nil {
		return 0
	}
	return uint64(usage.Maxrss)
}
