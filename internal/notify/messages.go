package notify

import (
	"fmt"
	"time"
)

// The formatting below is what operators read in the channel, so keep it
// stable: the wording mirrors what existing deployments already filter on.

func RecordingStarted(streamURL, quality string) string {
	return fmt.Sprintf("Recording started for %s at quality %s.", streamURL, quality)
}

func RecordingStopped(path string, d time.Duration, sizeBytes int64) string {
	return fmt.Sprintf("Recording stopped. File saved to: %s\nDuration: %s\nFile size: %s",
		path, FormatDuration(d), FormatSize(sizeBytes))
}

func MaxDurationReached(path string, d time.Duration, sizeBytes int64) string {
	return fmt.Sprintf("Maximum recording duration reached. Recording stopped. File saved to: %s\nDuration: %s\nFile size: %s",
		path, FormatDuration(d), FormatSize(sizeBytes))
}

func RecordingFailed(path string, err error, d time.Duration, sizeBytes int64) string {
	return fmt.Sprintf("An error occurred while recording: %v\nFile: %s\nDuration: %s\nFile size: %s",
		err, path, FormatDuration(d), FormatSize(sizeBytes))
}

func RecordingInterrupted(path string, d time.Duration, sizeBytes int64) string {
	return fmt.Sprintf("Recording interrupted by shutdown. File saved to: %s\nDuration: %s\nFile size: %s",
		path, FormatDuration(d), FormatSize(sizeBytes))
}

func LowDiskSpace(freeGB float64) string {
	return fmt.Sprintf("Warning: Low disk space. Only %.2f GB left.", freeGB)
}

func LowDiskFatal() string {
	return "Recording stopped due to low disk space."
}

func DeletedOldRecording(path string) string {
	return "Deleted old recording: " + path
}

func StatusUpdate(streamOnline, recording bool) string {
	stream := "offline"
	if streamOnline {
		stream = "online"
	}
	rec := "inactive"
	if recording {
		rec = "active"
	}
	return fmt.Sprintf("Status Update: Stream is %s. Recording is %s.", stream, rec)
}

// FormatSize renders bytes as megabytes with two decimals.
func FormatSize(sizeBytes int64) string {
	return fmt.Sprintf("%.2f MB", float64(sizeBytes)/(1024*1024))
}

// FormatDuration rounds to whole seconds.
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	return d.Round(time.Second).String()
}

// LowDiskStopped is the fatal notice when a recording had to be cut short.
func LowDiskStopped(path string, d time.Duration, sizeBytes int64) string {
	return fmt.Sprintf("%s File saved to: %s\nDuration: %s\nFile size: %s",
		LowDiskFatal(), path, FormatDuration(d), FormatSize(sizeBytes))
}
