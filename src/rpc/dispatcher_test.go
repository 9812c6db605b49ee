package rpc

import (
	"context"
	"encoding/json"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wchklaus97/claw-core/src/config"
	"github.com/wchklaus97/claw-core/src/session"
	"github.com/wchklaus97/claw-core/src/stats"
)

func TestResolveTimeoutSDefaultsCursorAgentToLongerTimeout(t *testing.T) {
	assert.Equal(t, uint64(600), resolveTimeoutS(nil, 60, `cursor agent "fix this" --print`))
}

func TestResolveTimeoutSRespectsExplicitOverride(t *testing.T) {
	override := uint64(42)
	assert.Equal(t, uint64(42), resolveTimeoutS(&override, 60, `cursor agent "x"`))
}

func TestResolveTimeoutSKeepsSessionTimeoutForNonCursorCommand(t *testing.T) {
	assert.Equal(t, uint64(75), resolveTimeoutS(nil, 75, "echo hello"))
}

func TestResolveTimeoutSNeverShrinksAboveCursorFloor(t *testing.T) {
	assert.Equal(t, uint64(900), resolveTimeoutS(nil, 900, "cursor-agent run"))
}

func newTestDispatcher(t *testing.T) *Dispatcher {
	t.Helper()

	cfg := &config.Config{
		DefaultTimeoutS:    60,
		SessionMaxCommands: 1000,
		FDWarningThreshold: 1 << 30,
		ChildCPUSec:        300,
		ChildMemoryBytes:   512 * 1024 * 1024,
		ChildNProc:         64,
		MaxOutputBytes:     4 * 1024 * 1024,
		RuntimeEnv:         map[string]string{"PATH": os.Getenv("PATH")},
	}
	pool := session.NewPool(4)
	return New(cfg, pool, stats.New())
}

func TestDispatchSystemPing(t *testing.T) {
	d := newTestDispatcher(t)
	resp := d.Dispatch(context.Background(), Request{ID: "1", Method: "system.ping"})
	assert.True(t, resp.OK)
}

func TestDispatchUnsupportedMethod(t *testing.T) {
	d := newTestDispatcher(t)
	resp := d.Dispatch(context.Background(), Request{ID: "1", Method: "nonexistent.method"})
	require.False(t, resp.OK)
	assert.Equal(t, CodeInvalidParams, resp.Error.Code)
}

func TestDispatchSessionLifecycle(t *testing.T) {
	d := newTestDispatcher(t)

	createParams, _ := json.Marshal(map[string]any{
		"shell":       "/bin/sh",
		"working_dir": t.TempDir(),
	})
	createResp := d.Dispatch(context.Background(), Request{ID: "1", Method: "session.create", Params: createParams})
	require.True(t, createResp.OK)

	data := createResp.Data.(map[string]any)
	sessionID := data["session_id"].(string)
	assert.Equal(t, session.StateIdle, data["state"])

	execParams, _ := json.Marshal(map[string]any{
		"session_id": sessionID,
		"command":    "echo hello",
	})
	execResp := d.Dispatch(context.Background(), Request{ID: "2", Method: "exec.run", Params: execParams})
	require.True(t, execResp.OK, "exec.run should succeed: %+v", execResp.Error)

	destroyParams, _ := json.Marshal(map[string]any{"session_id": sessionID})
	destroyResp := d.Dispatch(context.Background(), Request{ID: "3", Method: "session.destroy", Params: destroyParams})
	require.True(t, destroyResp.OK)
	ddata := destroyResp.Data.(map[string]any)
	assert.Equal(t, "terminated", ddata["state"])
}

func TestDispatchSessionCreateMaxSessionsReached(t *testing.T) {
	d := newTestDispatcher(t)
	d.pool = session.NewPool(1)

	params, _ := json.Marshal(map[string]any{"shell": "/bin/sh", "working_dir": t.TempDir()})
	first := d.Dispatch(context.Background(), Request{ID: "1", Method: "session.create", Params: params})
	require.True(t, first.OK)

	second := d.Dispatch(context.Background(), Request{ID: "2", Method: "session.create", Params: params})
	require.False(t, second.OK)
	assert.Equal(t, CodeMaxSessionsReached, second.Error.Code)
}

func TestDispatchExecRunSessionNotFound(t *testing.T) {
	d := newTestDispatcher(t)
	params, _ := json.Marshal(map[string]any{"session_id": "s-missing", "command": "echo hi"})
	resp := d.Dispatch(context.Background(), Request{ID: "1", Method: "exec.run", Params: params})
	require.False(t, resp.OK)
	assert.Equal(t, CodeSessionNotFound, resp.Error.Code)
}
