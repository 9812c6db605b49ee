// Package supervisor handles the daemon's process-level concerns: the
// root-user refusal check, the single-instance PID-file guard, and
// signal-driven shutdown.
package supervisor

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// EnsureNonRoot refuses to continue when running as root unless
// allowRoot is set.
func EnsureNonRoot(allowRoot bool) error {
	if os.Geteuid() == 0 && !allowRoot {
		return fmt.Errorf("refusing to run as root; pass --allow-root to override")
	}
	return nil
}

// DerivePIDPath swaps a trailing ".sock" for ".pid" in the same
// directory as socketPath.
func DerivePIDPath(socketPath string) string {
	dir := filepath.Dir(socketPath)
	base := filepath.Base(socketPath)
	name := strings.TrimSuffix(base, ".sock") + ".pid"
	return filepath.Join(dir, name)
}

// PIDGuard removes its PID file exactly once, on Close. The zero value is
// not usable; construct via CheckAndWritePID.
type PIDGuard struct {
	path string
}

// Close removes the PID file if it still exists. Safe to call multiple
// times.
func (g *PIDGuard) Close() error {
	if g == nil || g.path == "" {
		return nil
	}
	err := os.Remove(g.path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// CheckAndWritePID refuses to start if pidPath names a live process,
// removes a stale file otherwise, and writes the current PID. The
// returned guard's Close removes the file again on any exit path.
func CheckAndWritePID(pidPath string) (*PIDGuard, error) {
	if contents, err := os.ReadFile(pidPath); err == nil {
		if pid, err := strconv.Atoi(strings.TrimSpace(string(contents))); err == nil {
			if processAlive(pid) {
				return nil, fmt.Errorf(
					"another instance is running (PID %d); stop it first or remove %s", pid, pidPath)
			}
			// stale PID file; the recorded process is gone
		}
		_ = os.Remove(pidPath)
	}

	currentPID := os.Getpid()
	if err := os.WriteFile(pidPath, []byte(fmt.Sprintf("%d\n", currentPID)), 0o644); err != nil {
		return nil, fmt.Errorf("cannot write PID file: %w", err)
	}
	return &PIDGuard{path: pidPath}, nil
}
