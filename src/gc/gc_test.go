package gc

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wchklaus97/claw-core/src/config"
	"github.com/wchklaus97/claw-core/src/session"
	"github.com/wchklaus97/claw-core/src/stats"
)

func TestSweepCleansUpIdleSessions(t *testing.T) {
	shell, err := os.Executable()
	require.NoError(t, err)

	pool := session.NewPool(4)
	cfg := &config.Config{
		MaxIdleSec:         1,
		SessionTTLSec:      86400,
		MemoryPressureMB:   1 << 20,
		FDWarningThreshold: 1 << 30,
		MaxSessions:        4,
	}
	loop := New(cfg, pool, stats.New())

	_, err = pool.Create(session.CreateInput{Shell: shell, WorkingDir: t.TempDir()})
	require.NoError(t, err)

	time.Sleep(1100 * time.Millisecond)
	loop.sweep()

	assert.Equal(t, 0, pool.Active())
}

func TestSweepSkipsRunningSessionsForTTL(t *testing.T) {
	shell, err := os.Executable()
	require.NoError(t, err)

	pool := session.NewPool(4)
	cfg := &config.Config{
		MaxIdleSec:         86400,
		SessionTTLSec:      0,
		MemoryPressureMB:   1 << 20,
		FDWarningThreshold: 1 << 30,
		MaxSessions:        4,
	}
	loop := New(cfg, pool, stats.New())

	sess, err := pool.Create(session.CreateInput{Shell: shell, WorkingDir: t.TempDir()})
	require.NoError(t, err)
	require.NoError(t, pool.MarkRunning(sess.SessionID))

	loop.sweep()

	assert.Equal(t, 1, pool.Active(), "a running session must survive a zero TTL sweep")
}
