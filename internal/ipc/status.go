package ipc

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"
)

const statusFile = "status.json"

// OutcomeSummary describes the most recent finished session.
type OutcomeSummary struct {
	SessionID     string    `json:"session_id"`
	OutputPath    string    `json:"output_path"`
	EndedAt       time.Time `json:"ended_at"`
	Duration      string    `json:"duration"`
	FileSizeBytes int64     `json:"file_size_bytes"`
	Reason        string    `json:"reason"`
	Succeeded     bool      `json:"succeeded"`
	Error         string    `json:"error,omitempty"`
}

// StatusSnapshot represents the complete daemon state at a point in time
type StatusSnapshot struct {
	Streamer        string          `json:"streamer"`
	State           string          `json:"state"`                      // idle | recording
	StreamOnline    bool            `json:"stream_online"`              // last known availability
	SessionID       string          `json:"session_id,omitempty"`       // active session
	OutputPath      string          `json:"output_path,omitempty"`      // active recording file
	RecordingSince  *time.Time      `json:"recording_since,omitempty"`  // active session start
	FreeGB          float64         `json:"free_gb"`                    // last disk check
	DiskHealthy     bool            `json:"disk_healthy"`               // last disk check
	SessionsStarted int             `json:"sessions_started"`           // since daemon start
	LastOutcome     *OutcomeSummary `json:"last_outcome,omitempty"`     // previous session
	LastError       string          `json:"last_error,omitempty"`       // last tick error
	PID             int             `json:"pid"`                        // daemon PID
	Timestamp       time.Time       `json:"timestamp"`                  // snapshot time
}

// WriteStatus persists the snapshot to <dir>/status.json using atomic write
func WriteStatus(dir string, status *StatusSnapshot) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	return atomicWriteJSON(filepath.Join(dir, statusFile), status)
}

// ReadStatus loads the snapshot from <dir>/status.json
func ReadStatus(dir string) (*StatusSnapshot, error) {
	data, err := os.ReadFile(filepath.Join(dir, statusFile))
	if err != nil {
		return nil, err
	}

	var status StatusSnapshot
	if err := json.Unmarshal(data, &status); err != nil {
		return nil, err
	}

	return &status, nil
}

// atomicWriteJSON writes data to a file atomically using temp file + rename
func atomicWriteJSON(path string, data interface{}) error {
	// Create temp file in same directory
	dir := filepath.Dir(path)
	tmpFile, err := os.CreateTemp(dir, "status-*.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmpFile.Name()

	// Ensure cleanup on error
	defer func() {
		if tmpFile != nil {
			tmpFile.Close()
			os.Remove(tmpPath)
		}
	}()

	encoder := json.NewEncoder(tmpFile)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(data); err != nil {
		return err
	}

	// Sync to disk before rename
	if err := tmpFile.Sync(); err != nil {
		return err
	}

	if err := tmpFile.Close(); err != nil {
		return err
	}
	tmpFile = nil // Prevent defer cleanup

	return os.Rename(tmpPath, path)
}
