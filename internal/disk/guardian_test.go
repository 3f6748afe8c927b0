package disk

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/shirou/gopsutil/v4/disk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (r *recordingNotifier) Notify(_ context.Context, m string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, m)
}

func fixedUsage(freeGB, totalGB float64) UsageFunc {
	return func(_ context.Context, path string) (*disk.UsageStat, error) {
		return &disk.UsageStat{
			Path:        path,
			Free:        uint64(freeGB * bytesPerGB),
			Total:       uint64(totalGB * bytesPerGB),
			UsedPercent: 100 * (totalGB - freeGB) / totalGB,
		}, nil
	}
}

func TestCheck_Healthy(t *testing.T) {
	n := &recordingNotifier{}
	g := NewGuardian(Config{Root: "/v", ThresholdGB: 5}, n, nil, WithUsageFunc(fixedUsage(50, 100)))

	st, err := g.Check(context.Background())
	require.NoError(t, err)
	assert.True(t, st.Healthy)
	assert.InDelta(t, 50, st.FreeGB, 0.001)
	assert.InDelta(t, 50, st.UsedPercent, 0.001)
	assert.Empty(t, n.messages)
}

func TestCheck_ThresholdBoundary(t *testing.T) {
	n := &recordingNotifier{}
	g := NewGuardian(Config{Root: "/v", ThresholdGB: 5}, n, nil, WithUsageFunc(fixedUsage(5, 100)))

	st, err := g.Check(context.Background())
	require.NoError(t, err)
	assert.True(t, st.Healthy, "free == threshold is still healthy")
}

func TestCheck_LowSpaceWarnsEveryTime(t *testing.T) {
	n := &recordingNotifier{}
	g := NewGuardian(Config{Root: "/v", ThresholdGB: 5}, n, nil, WithUsageFunc(fixedUsage(4.5, 100)))

	for i := 0; i < 2; i++ {
		st, err := g.Check(context.Background())
		require.NoError(t, err)
		assert.False(t, st.Healthy)
	}
	assert.Equal(t, []string{
		"Warning: Low disk space. Only 4.50 GB left.",
		"Warning: Low disk space. Only 4.50 GB left.",
	}, n.messages)
}

func TestCheck_UsageErrorReportedHealthy(t *testing.T) {
	g := NewGuardian(Config{Root: "/v", ThresholdGB: 5}, &recordingNotifier{}, nil,
		WithUsageFunc(func(context.Context, string) (*disk.UsageStat, error) {
			return nil, errors.New("statfs: input/output error")
		}))

	st, err := g.Check(context.Background())
	require.Error(t, err)
	assert.True(t, st.Healthy)
}

func TestCheck_RealVolume(t *testing.T) {
	g := NewGuardian(Config{Root: t.TempDir(), ThresholdGB: 0}, &recordingNotifier{}, nil)
	st, err := g.Check(context.Background())
	require.NoError(t, err)
	assert.True(t, st.Healthy)
	assert.Greater(t, st.TotalGB, 0.0)
}

func touch(t *testing.T, path string, mtime time.Time) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))
	require.NoError(t, os.Chtimes(path, mtime, mtime))
}

func TestSweep_RetentionBoundary(t *testing.T) {
	root := t.TempDir()
	now := time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)
	retention := 300 * 24 * time.Hour
	cutoff := now.Add(-retention)

	oldFile := filepath.Join(root, "2024-12-01", "2024-12-01_10-00-00.mp4")
	olderSidecar := filepath.Join(root, "2024-12-01", "2024-12-01_10-00-00.meta.json")
	atCutoff := filepath.Join(root, "2024-12-19", "at-cutoff.mp4")
	justNewer := filepath.Join(root, "2024-12-19", "newer.mp4")
	recent := filepath.Join(root, "2026-10-15", "2026-10-15_11-00-00.mp4")

	touch(t, oldFile, cutoff.Add(-time.Second))
	touch(t, olderSidecar, cutoff.Add(-48*time.Hour))
	touch(t, atCutoff, cutoff)
	touch(t, justNewer, cutoff.Add(time.Second))
	touch(t, recent, now.Add(-time.Hour))

	n := &recordingNotifier{}
	g := NewGuardian(Config{Root: root, Retention: retention}, n, nil, WithClock(func() time.Time { return now }))

	res := g.Sweep(context.Background())

	sort.Strings(res.Deleted)
	assert.Equal(t, []string{olderSidecar, oldFile}, res.Deleted)
	assert.Zero(t, res.Errors)

	assert.NoFileExists(t, oldFile)
	assert.FileExists(t, atCutoff)
	assert.FileExists(t, justNewer)
	assert.FileExists(t, recent)

	// One notice per deletion.
	assert.Len(t, n.messages, 2)
	assert.Contains(t, n.messages, "Deleted old recording: "+oldFile)

	// The emptied day directory is cleaned up, others stay.
	assert.NoDirExists(t, filepath.Join(root, "2024-12-01"))
	assert.DirExists(t, filepath.Join(root, "2024-12-19"))
}

func TestSweep_LeavesFreshEmptyDayDirectory(t *testing.T) {
	root := t.TempDir()
	today := filepath.Join(root, "2026-10-15")
	require.NoError(t, os.MkdirAll(today, 0755))

	g := NewGuardian(Config{Root: root, Retention: time.Hour}, &recordingNotifier{}, nil)
	g.Sweep(context.Background())

	assert.DirExists(t, today)
}

func TestSweep_MissingRoot(t *testing.T) {
	g := NewGuardian(Config{Root: filepath.Join(t.TempDir(), "absent"), Retention: time.Hour}, &recordingNotifier{}, nil)
	res := g.Sweep(context.Background())
	assert.Empty(t, res.Deleted)
	assert.Zero(t, res.Errors)
}

func TestSweep_UnreadableDirectoryIsSkipped(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("root ignores directory permissions")
	}
	root := t.TempDir()
	now := time.Now()
	locked := filepath.Join(root, "locked")
	touch(t, filepath.Join(locked, "old.mp4"), now.Add(-48*time.Hour))
	old := filepath.Join(root, "open", "old.mp4")
	touch(t, old, now.Add(-48*time.Hour))
	require.NoError(t, os.Chmod(locked, 0))
	t.Cleanup(func() { _ = os.Chmod(locked, 0755) })

	g := NewGuardian(Config{Root: root, Retention: time.Hour}, &recordingNotifier{}, nil)
	res := g.Sweep(context.Background())

	assert.Equal(t, []string{old}, res.Deleted)
	assert.Equal(t, 1, res.Errors)
}
