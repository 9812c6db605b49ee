// Package gc runs the daemon's periodic cleanup tick: idle sessions, TTL
// expiry, memory-pressure eviction, pressure warnings, and zombie reaping.
package gc

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/wchklaus97/claw-core/src/config"
	"github.com/wchklaus97/claw-core/src/session"
	"github.com/wchklaus97/claw-core/src/stats"
)

const tickInterval = 60 * time.Second

// Loop owns the GC ticker and the resources it sweeps.
type Loop struct {
	cfg   *config.Config
	pool  *session.Pool
	stats *stats.RuntimeStats
	log   *logrus.Entry
}

// New builds a Loop over the given config, pool, and stats.
func New(cfg *config.Config, pool *session.Pool, rs *stats.RuntimeStats) *Loop {
	return &Loop{
		cfg:   cfg,
		pool:  pool,
		stats: rs,
		log:   logrus.WithField("component", "gc"),
	}
}

// Run ticks every 60s until ctx is cancelled, running one sweep per tick.
// It never holds the pool's lock across the sleep — each pool operation
// is a self-contained call.
func (l *Loop) Run(ctx context.Context) {
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.sweep()
		}
	}
}

func (l *Loop) sweep() {
	if removed := l.pool.CleanupIdle(l.cfg.MaxIdleSec); removed > 0 {
		l.log.Infof("GC: cleaned up %d idle sessions", removed)
	}

	if removed := l.pool.CleanupExpired(l.cfg.SessionTTLSec); removed > 0 {
		l.log.Infof("GC: cleaned up %d expired sessions (TTL)", removed)
	}

	memoryMB := l.stats.MemoryRSSBytes() / 1024 / 1024
	if memoryMB > l.cfg.MemoryPressureMB {
		l.log.Warnf("GC: memory pressure: %dMB (threshold %dMB), cleaning up oldest idle sessions", memoryMB, l.cfg.MemoryPressureMB)
		if removed := l.pool.CleanupOldestIdle(5); removed > 0 {
			l.log.Infof("GC: cleaned up %d sessions due to memory pressure", removed)
		}
	}

	active := l.pool.Active()
	max := l.cfg.MaxSessions
	if max > 0 && active > max*80/100 {
		l.log.Warnf("GC: session count high: %d/%d (%d%%)", active, max, active*100/max)
	}

	openFDs := l.stats.OpenFDs()
	if openFDs > l.cfg.FDWarningThreshold {
		l.log.Warnf("GC: FD pressure: %d (threshold %d)", openFDs, l.cfg.FDWarningThreshold)
	}

	reapZombies(l.log)
}
