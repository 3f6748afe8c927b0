package fileutil

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestOutputPath_Layout(t *testing.T) {
	root := t.TempDir()
	ts := time.Date(2025, 3, 9, 21, 5, 7, 0, time.Local)

	got, err := OutputPath(root, ts)
	if err != nil {
		t.Fatalf("OutputPath: %v", err)
	}

	want := filepath.Join(root, "2025-03-09", "2025-03-09_21-05-07.mp4")
	if got != want {
		t.Errorf("path = %q, want %q", got, want)
	}
	if info, err := os.Stat(filepath.Dir(got)); err != nil || !info.IsDir() {
		t.Errorf("day directory not created: %v", err)
	}
}

func TestOutputPath_UniqueOnCollision(t *testing.T) {
	root := t.TempDir()
	ts := time.Date(2025, 3, 9, 21, 5, 7, 0, time.Local)

	seen := map[string]bool{}
	for i := 0; i < 3; i++ {
		p, err := OutputPath(root, ts)
		if err != nil {
			t.Fatalf("OutputPath: %v", err)
		}
		if seen[p] {
			t.Fatalf("duplicate path %q", p)
		}
		seen[p] = true
		// Simulate capture writing the file.
		if err := os.WriteFile(p, []byte("data"), 0644); err != nil {
			t.Fatal(err)
		}
	}

	if !seen[filepath.Join(root, "2025-03-09", "2025-03-09_21-05-07_3.mp4")] {
		t.Errorf("expected _3 suffix, got %v", seen)
	}
}

func TestOutputPath_SidecarsReserveName(t *testing.T) {
	ts := time.Date(2025, 3, 9, 21, 5, 7, 0, time.Local)

	for _, sidecar := range []string{
		"2025-03-09_21-05-07.mp4.streamlink.log",
		"2025-03-09_21-05-07.meta.json",
	} {
		t.Run(sidecar, func(t *testing.T) {
			root := t.TempDir()
			day := filepath.Join(root, "2025-03-09")
			if err := os.MkdirAll(day, 0755); err != nil {
				t.Fatal(err)
			}
			// A stream that never produced output leaves only its sidecar.
			if err := os.WriteFile(filepath.Join(day, sidecar), []byte("x"), 0644); err != nil {
				t.Fatal(err)
			}

			got, err := OutputPath(root, ts)
			if err != nil {
				t.Fatalf("OutputPath: %v", err)
			}
			want := filepath.Join(day, "2025-03-09_21-05-07_2.mp4")
			if got != want {
				t.Errorf("path = %q, want %q", got, want)
			}
		})
	}
}

func TestFileSize(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "a.mp4")
	if err := os.WriteFile(p, make([]byte, 1234), 0644); err != nil {
		t.Fatal(err)
	}

	if got := FileSize(p); got != 1234 {
		t.Errorf("FileSize = %d, want 1234", got)
	}
	if got := FileSize(filepath.Join(dir, "missing.mp4")); got != 0 {
		t.Errorf("FileSize(missing) = %d, want 0", got)
	}
	if got := FileSize(dir); got != 0 {
		t.Errorf("FileSize(dir) = %d, want 0", got)
	}
}
