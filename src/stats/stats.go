// Package stats tracks the daemon's own runtime counters: uptime, total
// commands executed, resident memory, and open file descriptors. These
// back the system.stats RPC method.
package stats

import (
	"sync/atomic"
	"time"
)

// RuntimeStats is safe for concurrent use; every field is either
// immutable after construction or accessed atomically.
type RuntimeStats struct {
	startedAt     time.Time
	totalCommands atomic.Uint64
}

// New starts the clock and zeroes the command counter.
func New() *RuntimeStats {
	return &RuntimeStats{startedAt: time.Now()}
}

// IncCommands records one more successfully completed command. Only the
// dispatcher's exec.run success path calls this — a timed-out or errored
// command does not count.
func (r *RuntimeStats) IncCommands() {
	r.totalCommands.Add(1)
}

// UptimeS returns whole seconds elapsed since New.
func (r *RuntimeStats) UptimeS() uint64 {
	return uint64(time.Since(r.startedAt).Seconds())
}

// TotalCommands returns the running command count.
func (r *RuntimeStats) TotalCommands() uint64 {
	return r.totalCommands.Load()
}

// MemoryRSSBytes returns the process's peak resident set size (getrusage
// maxrss), or 0 on
// platforms/errors where it cannot be determined.
func (r *RuntimeStats) MemoryRSSBytes() uint64 {
	return currentRSSBytes()
}

// OpenFDs returns the number of open file descriptors, or 0 on
// platforms/errors where it cannot be determined.
func (r *RuntimeStats) OpenFDs() uint64 {
	return countOpenFDs()
}

// Snapshot is a JSON-serializable view of every counter. system.stats
// copies its fields into its own response map (reporting TotalCommands as
// total_commands_run) rather than returning it directly.
type Snapshot struct {
	UptimeS        uint64 `json:"uptime_s"`
	TotalCommands  uint64 `json:"total_commands"`
	MemoryRSSBytes uint64 `json:"memory_rss_bytes"`
	OpenFDs        uint64 `json:"open_fds"`
}

// Snapshot captures every counter at once.
func (r *RuntimeStats) Snapshot() Snapshot {
	return Snapshot{
		UptimeS:        r.UptimeS(),
		TotalCommands:  r.TotalCommands(),
		MemoryRSSBytes: r.MemoryRSSBytes(),
		OpenFDs:        r.OpenFDs(),
	}
}
