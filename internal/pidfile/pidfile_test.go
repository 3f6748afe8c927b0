package pidfile

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPIDFile(t *testing.T) {
	pidPath := filepath.Join(t.TempDir(), "state", "test.pid")

	pf, err := New(pidPath)
	require.NoError(t, err)
	defer pf.Remove()

	data, err := os.ReadFile(pidPath)
	require.NoError(t, err)
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	require.NoError(t, err)
	assert.Equal(t, os.Getpid(), pid)
}

func TestNew_RefusesWhileOwnerRuns(t *testing.T) {
	pidPath := filepath.Join(t.TempDir(), "test.pid")

	pf, err := New(pidPath)
	require.NoError(t, err)
	defer pf.Remove()

	_, err = New(pidPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already running")
}

func TestNew_ReplacesStaleFile(t *testing.T) {
	pidPath := filepath.Join(t.TempDir(), "test.pid")

	// A process that has exited and been reaped.
	cmd := exec.Command("true")
	require.NoError(t, cmd.Run())
	stale := cmd.ProcessState.Pid()
	require.NoError(t, os.WriteFile(pidPath, []byte(fmt.Sprintf("%d\n", stale)), 0644))

	pf, err := New(pidPath)
	require.NoError(t, err)
	defer pf.Remove()

	pid, running, err := Read(pidPath)
	require.NoError(t, err)
	assert.Equal(t, os.Getpid(), pid)
	assert.True(t, running)
}

func TestRemove_OnlyOwnFile(t *testing.T) {
	pidPath := filepath.Join(t.TempDir(), "test.pid")

	pf, err := New(pidPath)
	require.NoError(t, err)

	// Someone else took over the file.
	require.NoError(t, os.WriteFile(pidPath, []byte("1\n"), 0644))
	require.NoError(t, pf.Remove())
	_, err = os.Stat(pidPath)
	assert.NoError(t, err, "foreign PID file must be left alone")

	var nilPF *PIDFile
	assert.NoError(t, nilPF.Remove())
}

func TestRead_Invalid(t *testing.T) {
	pidPath := filepath.Join(t.TempDir(), "test.pid")
	require.NoError(t, os.WriteFile(pidPath, []byte("garbage"), 0644))

	_, _, err := Read(pidPath)
	assert.Error(t, err)

	_, _, err = Read(filepath.Join(t.TempDir(), "missing.pid"))
	assert.True(t, os.IsNotExist(err))
}

func TestPath(t *testing.T) {
	assert.Equal(t, filepath.Join("/state", "vodkeeper-somestreamer.pid"), Path("/state", "SomeStreamer"))
}
