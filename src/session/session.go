// Package session implements the TRL session record and the pool that
// owns every session's lifecycle.
package session

import (
	"time"

	"github.com/google/uuid"
)

// State is a session's position in its lifecycle state machine.
//
//	Creating -> Idle -> Running -> Idle -> ... -> removed
//
// Creating and Terminated are transient sentinels: a Session is never
// inserted into the pool while Creating, and removal from the pool (not a
// state flip) is how a session becomes Terminated, so neither value is
// ever observable in a pool snapshot.
type State string

const (
	StateCreating   State = "creating"
	StateIdle       State = "idle"
	StateRunning    State = "running"
	StateTerminated State = "terminated"
)

// Session is the immutable-identity, mutable-lifecycle record for one
// shell session. All mutation goes through Pool; callers only ever see
// copies.
type Session struct {
	SessionID    string            `json:"session_id"`
	Name         string            `json:"name,omitempty"`
	Shell        string            `json:"shell"`
	WorkingDir   string            `json:"working_dir"`
	Env          map[string]string `json:"env"`
	State        State             `json:"state"`
	CreatedAt    time.Time         `json:"created_at"`
	LastActivity time.Time         `json:"last_activity"`
	CommandCount uint64            `json:"command_count"`
	TimeoutS     uint64            `json:"timeout_s"`
}

// isIdleTooLong reports whether the session is Idle and has been idle for
// at least maxIdleSec, as of now.
func (s *Session) isIdleTooLong(maxIdleSec uint64, now time.Time) bool {
	if s.State != StateIdle {
		return false
	}
	return now.Sub(s.LastActivity) >= time.Duration(maxIdleSec)*time.Second
}

// hasExceededTTL reports whether the session's age has reached ttlSec.
func (s *Session) hasExceededTTL(ttlSec uint64, now time.Time) bool {
	return now.Sub(s.CreatedAt) >= time.Duration(ttlSec)*time.Second
}

// hasExceededMaxCommands reports whether the session has run at least
// maxCommands commands.
func (s *Session) hasExceededMaxCommands(maxCommands uint64) bool {
	return s.CommandCount >= maxCommands
}

// clone returns a deep-enough copy safe to hand to callers outside the
// pool's lock (env map is copied; Session is otherwise value types).
func (s *Session) clone() *Session {
	cp := *s
	cp.Env = make(map[string]string, len(s.Env))
	for k, v := range s.Env {
		cp.Env[k] = v
	}
	return &cp
}

// newSessionID returns an opaque session identifier: "s-" followed by the
// first 8 hex characters of a random v4 UUID's dashless form. Collisions
// within one pool are astronomically unlikely but the pool still checks
// for them rather than silently overwriting.
func newSessionID() string {
	return "s-" + uuid.New().String()[:8]
}
