package fileutil

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const (
	dayLayout  = "2006-01-02"
	fileLayout = "2006-01-02_15-04-05"
	recordExt  = ".mp4"
)

// OutputPath derives the recording path for a session starting at t:
// {root}/{YYYY-MM-DD}/{YYYY-MM-DD_HH-MM-SS}.mp4. The day directory is created
// on demand. If the name is taken (two starts within one second) a numeric
// suffix is appended so every session gets its own file. A name counts as
// taken when the recording or any of its sidecars exists.
func OutputPath(root string, t time.Time) (string, error) {
	dir := filepath.Join(root, t.Format(dayLayout))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create day directory: %w", err)
	}

	base := t.Format(fileLayout)
	path := filepath.Join(dir, base+recordExt)
	for i := 2; taken(path); i++ {
		path = filepath.Join(dir, fmt.Sprintf("%s_%d%s", base, i, recordExt))
	}
	return path, nil
}

// FileSize returns the size of path in bytes, or 0 if it is missing or not a
// regular file.
func FileSize(path string) int64 {
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return 0
	}
	return info.Size()
}

// taken reports whether path or one of the files written next to it
// (streamlink log, metadata sidecar) already exists.
func taken(path string) bool {
	return exists(path) || exists(path+".streamlink.log") || exists(metadataPath(path))
}

func exists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}
