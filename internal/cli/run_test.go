package cli

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tiroq/vodkeeper/internal/config"
	"github.com/tiroq/vodkeeper/internal/ipc"
	"github.com/tiroq/vodkeeper/internal/pidfile"
)

func TestRunDaemon_IdleUntilQuit(t *testing.T) {
	e := newEnv(t)
	cfg, err := config.Load(e.configPath)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- runDaemon(context.Background(), cfg, "test") }()

	// The fake streamlink prints nothing, so the stream is always offline.
	require.Eventually(t, func() bool {
		snap, err := ipc.ReadStatus(e.stateDir)
		return err == nil && snap.State == "idle"
	}, 10*time.Second, 50*time.Millisecond)

	_, running, err := pidfile.Read(pidfile.Path(e.stateDir, "somestreamer"))
	require.NoError(t, err)
	assert.True(t, running)

	require.NoError(t, ipc.WriteCommand(e.stateDir, ipc.CmdQuit))
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("daemon did not quit")
	}

	_, err = os.Stat(pidfile.Path(e.stateDir, "somestreamer"))
	assert.True(t, os.IsNotExist(err), "PID file removed on exit")
}

func TestRunDaemon_RefusesSecondInstance(t *testing.T) {
	e := newEnv(t)
	cfg, err := config.Load(e.configPath)
	require.NoError(t, err)

	pf, err := pidfile.New(pidfile.Path(e.stateDir, "somestreamer"))
	require.NoError(t, err)
	defer pf.Remove()

	err = runDaemon(context.Background(), cfg, "test")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already running")
}
