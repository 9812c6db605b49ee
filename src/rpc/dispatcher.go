package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/wchklaus97/claw-core/src/config"
	"github.com/wchklaus97/claw-core/src/executor"
	"github.com/wchklaus97/claw-core/src/session"
	"github.com/wchklaus97/claw-core/src/stats"
)

// Dispatcher owns the method table and the state it closes over: config,
// the session pool, and runtime stats. One Dispatcher is shared by every
// connection goroutine.
type Dispatcher struct {
	cfg   *config.Config
	pool  *session.Pool
	stats *stats.RuntimeStats
	log   *logrus.Entry
}

// New builds a Dispatcher over the given config, pool, and stats.
func New(cfg *config.Config, pool *session.Pool, rs *stats.RuntimeStats) *Dispatcher {
	return &Dispatcher{
		cfg:   cfg,
		pool:  pool,
		stats: rs,
		log:   logrus.WithField("component", "rpc"),
	}
}

// Dispatch routes one decoded Request to its handler.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) Response {
	switch req.Method {
	case "system.ping":
		return d.systemPing(req)
	case "system.stats":
		return d.systemStats(req)
	case "session.create":
		return d.sessionCreate(req)
	case "session.list":
		return d.sessionList(req)
	case "session.info":
		return d.sessionInfo(req)
	case "session.destroy":
		return d.sessionDestroy(req)
	case "exec.run":
		return d.execRun(ctx, req)
	default:
		return Fail(req.ID, CodeInvalidParams, "unsupported method")
	}
}

func (d *Dispatcher) systemPing(req Request) Response {
	return Success(req.ID, map[string]any{
		"uptime_s": d.stats.UptimeS(),
		"version":  "0.1.0",
	})
}

func (d *Dispatcher) systemStats(req Request) Response {
	snap := d.stats.Snapshot()
	return Success(req.ID, map[string]any{
		"active_sessions":    d.pool.Active(),
		"total_commands_run": snap.TotalCommands,
		"uptime_s":           snap.UptimeS,
		"memory_rss_bytes":   snap.MemoryRSSBytes,
		"open_fds":           snap.OpenFDs,
	})
}

type createSessionParams struct {
	Shell      *string           `json:"shell"`
	Env        map[string]string `json:"env"`
	WorkingDir *string           `json:"working_dir"`
	Name       *string           `json:"name"`
	TimeoutS   *uint64           `json:"timeout_s"`
}

func (d *Dispatcher) sessionCreate(req Request) Response {
	var params createSessionParams
	if err := unmarshalParams(req.Params, &params); err != nil {
		return Fail(req.ID, CodeInvalidParams, err.Error())
	}

	openFDs := d.stats.OpenFDs()
	if openFDs > d.cfg.FDWarningThreshold {
		d.log.Warnf("rejecting session.create: FD pressure (open_fds=%d, threshold=%d)", openFDs, d.cfg.FDWarningThreshold)
		return Fail(req.ID, CodeResourcePressure,
			"system under resource pressure (open FDs: "+itoa(openFDs)+"); close idle sessions or reduce load")
	}

	shell := "/bin/sh"
	if params.Shell != nil {
		shell = *params.Shell
	}
	workingDir := "/tmp"
	if params.WorkingDir != nil {
		workingDir = *params.WorkingDir
	}
	name := ""
	if params.Name != nil {
		name = *params.Name
	}
	timeoutS := d.cfg.DefaultTimeoutS
	if params.TimeoutS != nil {
		timeoutS = *params.TimeoutS
	}

	sess, err := d.pool.Create(session.CreateInput{
		Shell:      shell,
		WorkingDir: workingDir,
		Env:        params.Env,
		Name:       name,
		TimeoutS:   timeoutS,
	})
	if err != nil {
		return sessionErrorResponse(req.ID, err)
	}

	return Success(req.ID, map[string]any{
		"session_id":  sess.SessionID,
		"shell":       sess.Shell,
		"working_dir": sess.WorkingDir,
		"state":       sess.State,
		"created_at":  sess.CreatedAt,
	})
}

func (d *Dispatcher) sessionList(req Request) Response {
	return Success(req.ID, map[string]any{"sessions": d.pool.List()})
}

type sessionIDParams struct {
	SessionID string `json:"session_id"`
}

func (d *Dispatcher) sessionInfo(req Request) Response {
	var params sessionIDParams
	if err := unmarshalParams(req.Params, &params); err != nil {
		return Fail(req.ID, CodeInvalidParams, err.Error())
	}

	sess, ok := d.pool.Get(params.SessionID)
	if !ok {
		return Fail(req.ID, CodeSessionNotFound, "session not found")
	}

	envKeys := make([]string, 0, len(sess.Env))
	for k := range sess.Env {
		envKeys = append(envKeys, k)
	}

	return Success(req.ID, map[string]any{
		"session_id":    sess.SessionID,
		"name":          sess.Name,
		"shell":         sess.Shell,
		"working_dir":   sess.WorkingDir,
		"state":         sess.State,
		"env_keys":      envKeys,
		"created_at":    sess.CreatedAt,
		"last_activity": sess.LastActivity,
		"command_count": sess.CommandCount,
		"timeout_s":     sess.TimeoutS,
	})
}

type destroyParams struct {
	SessionID string `json:"session_id"`
	Force     *bool  `json:"force"`
}

func (d *Dispatcher) sessionDestroy(req Request) Response {
	var params destroyParams
	if err := unmarshalParams(req.Params, &params); err != nil {
		return Fail(req.ID, CodeInvalidParams, err.Error())
	}

	force := params.Force != nil && *params.Force
	if err := d.pool.Destroy(params.SessionID, force); err != nil {
		return sessionErrorResponse(req.ID, err)
	}

	return Success(req.ID, map[string]any{
		"session_id": params.SessionID,
		"state":      "terminated",
	})
}

type execRunParams struct {
	SessionID string            `json:"session_id"`
	Command   string            `json:"command"`
	TimeoutS  *uint64           `json:"timeout_s"`
	Stdin     *string           `json:"stdin"`
	Env       map[string]string `json:"env"`
}

func (d *Dispatcher) execRun(ctx context.Context, req Request) Response {
	var params execRunParams
	if err := unmarshalParams(req.Params, &params); err != nil {
		return Fail(req.ID, CodeInvalidParams, err.Error())
	}

	if sess, ok := d.pool.Get(params.SessionID); ok {
		exceeded, err := d.pool.HasExceededMaxCommands(sess.SessionID, d.cfg.SessionMaxCommands)
		if err == nil && exceeded {
			return Fail(req.ID, CodeSessionLimitExceeded,
				"session has exceeded max commands ("+itoa(d.cfg.SessionMaxCommands)+"); create a new session")
		}
	}

	if err := d.pool.MarkRunning(params.SessionID); err != nil {
		return sessionErrorResponse(req.ID, err)
	}

	sess, ok := d.pool.Get(params.SessionID)
	if !ok {
		return Fail(req.ID, CodeSessionNotFound, "session not found")
	}

	mergedEnv := make(map[string]string, len(d.cfg.RuntimeEnv)+len(sess.Env)+len(params.Env))
	for k, v := range d.cfg.RuntimeEnv {
		mergedEnv[k] = v
	}
	for k, v := range sess.Env {
		mergedEnv[k] = v
	}
	for k, v := range params.Env {
		mergedEnv[k] = v
	}

	timeoutS := resolveTimeoutS(params.TimeoutS, sess.TimeoutS, params.Command)

	input := executor.ExecInput{
		Shell:      sess.Shell,
		Command:    params.Command,
		WorkingDir: sess.WorkingDir,
		Env:        mergedEnv,
		TimeoutS:   timeoutS,
	}
	if params.Stdin != nil {
		input.Stdin = *params.Stdin
		input.HasStdin = true
	}

	limits := executor.Limits{
		CPUSec:         d.cfg.ChildCPUSec,
		MemoryBytes:    d.cfg.ChildMemoryBytes,
		NProc:          d.cfg.ChildNProc,
		MaxOutputBytes: d.cfg.MaxOutputBytes,
	}

	result, execErr := executor.Run(ctx, input, limits)

	if err := d.pool.MarkIdle(params.SessionID); err != nil {
		d.log.Warnf("failed to mark session idle: %v", err)
	}

	if execErr != nil {
		if errors.Is(execErr, executor.ErrTimeout) {
			return Fail(req.ID, CodeCommandTimeout, "command timed out")
		}
		return Fail(req.ID, CodeInternalError, execErr.Error())
	}

	d.stats.IncCommands()
	return Success(req.ID, result)
}

// resolveTimeoutS applies the cursor-agent timeout heuristic: an explicit
// override always wins; otherwise a command that looks like a cursor-agent
// invocation gets at least 600s, else the session default.
func resolveTimeoutS(override *uint64, sessionTimeoutS uint64, command string) uint64 {
	if override != nil {
		return *override
	}
	if looksLikeCursorAgent(command) {
		if sessionTimeoutS > 600 {
			return sessionTimeoutS
		}
		return 600
	}
	return sessionTimeoutS
}

func looksLikeCursorAgent(command string) bool {
	normalized := strings.TrimLeft(command, " \t")
	return strings.HasPrefix(normalized, "cursor agent ") ||
		normalized == "cursor agent" ||
		strings.HasPrefix(normalized, "cursor-agent ")
}

func sessionErrorResponse(id string, err error) Response {
	switch {
	case errors.Is(err, session.ErrMaxSessionsReached):
		return Fail(id, CodeMaxSessionsReached, "max sessions reached")
	case errors.Is(err, session.ErrSessionNotFound):
		return Fail(id, CodeSessionNotFound, "session not found")
	case errors.Is(err, session.ErrSessionBusy):
		return Fail(id, CodeSessionBusy, "session is already running")
	default:
		var shellErr *session.ErrInvalidShell
		if errors.As(err, &shellErr) {
			return Fail(id, CodeInvalidParams, shellErr.Error())
		}
		var wdErr *session.ErrInvalidWorkingDir
		if errors.As(err, &wdErr) {
			return Fail(id, CodeInvalidParams, wdErr.Error())
		}
		return Fail(id, CodeInternalError, err.Error())
	}
}

func unmarshalParams(raw json.RawMessage, dst any) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, dst)
}

func itoa(v uint64) string {
	return strconv.FormatUint(v, 10)
}
