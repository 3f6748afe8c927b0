package statemachine

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// State is the recording state of the archiver.
type State string

const (
	StateIdle      State = "idle"
	StateRecording State = "recording"
)

// StopReason explains why a session ended.
type StopReason string

const (
	ReasonStreamEnded   StopReason = "stream_ended"   // capture exited on its own
	ReasonMaxDuration   StopReason = "max_duration"   // capture hit its deadline
	ReasonCaptureFailed StopReason = "capture_failed" // capture exited with an error
	ReasonLowDisk       StopReason = "low_disk"       // aborted by the disk guard
	ReasonShutdown      StopReason = "shutdown"       // daemon stopping
)

var (
	ErrAlreadyRecording = errors.New("already recording")
	ErrNotRecording     = errors.New("not recording")
)

// Session is one continuous capture attempt.
type Session struct {
	ID         string
	StartTime  time.Time
	OutputPath string
}

// NewSession creates a session with a fresh ID.
func NewSession(start time.Time, outputPath string) Session {
	return Session{ID: uuid.NewString(), StartTime: start, OutputPath: outputPath}
}

// Outcome summarises a finished session. It is consumed right away to build
// the stop notification.
type Outcome struct {
	SessionID     string
	OutputPath    string
	StartTime     time.Time
	EndTime       time.Time
	Duration      time.Duration
	FileSizeBytes int64
	Succeeded     bool
	Reason        StopReason
	Err           error
}

// StateMachine tracks the single active session. It enforces that at most one
// session exists at a time.
type StateMachine struct {
	state           State
	session         *Session
	streamOnline    bool // last availability result
	sessionsStarted int
}

// NewStateMachine creates a state machine in the idle state.
func NewStateMachine() *StateMachine {
	return &StateMachine{state: StateIdle}
}

// ProcessProbe records an availability result and reports whether a new
// session should be started.
func (sm *StateMachine) ProcessProbe(online bool) bool {
	sm.streamOnline = online
	return online && sm.state == StateIdle
}

// StartRecording moves Idle→Recording.
func (sm *StateMachine) StartRecording(s Session) error {
	if sm.state == StateRecording {
		return ErrAlreadyRecording
	}
	sm.state = StateRecording
	sm.session = &s
	sm.streamOnline = true
	sm.sessionsStarted++
	return nil
}

// StopRecording moves Recording→Idle and returns the session outcome.
// Negative durations (clock steps) and sizes are clamped to zero.
func (sm *StateMachine) StopRecording(endedAt time.Time, sizeBytes int64, reason StopReason, err error) (Outcome, error) {
	if sm.state != StateRecording || sm.session == nil {
		return Outcome{}, ErrNotRecording
	}
	s := *sm.session

	duration := endedAt.Sub(s.StartTime)
	if duration < 0 {
		duration = 0
	}
	if sizeBytes < 0 {
		sizeBytes = 0
	}

	sm.state = StateIdle
	sm.session = nil
	if reason == ReasonStreamEnded || reason == ReasonCaptureFailed {
		sm.streamOnline = false
	}

	return Outcome{
		SessionID:     s.ID,
		OutputPath:    s.OutputPath,
		StartTime:     s.StartTime,
		EndTime:       endedAt,
		Duration:      duration,
		FileSizeBytes: sizeBytes,
		Succeeded:     reason != ReasonCaptureFailed,
		Reason:        reason,
		Err:           err,
	}, nil
}

// State returns the current state.
func (sm *StateMachine) State() State {
	return sm.state
}

// IsRecording returns current recording status
func (sm *StateMachine) IsRecording() bool {
	return sm.state == StateRecording
}

// Session returns the active session, if any.
func (sm *StateMachine) Session() (Session, bool) {
	if sm.session == nil {
		return Session{}, false
	}
	return *sm.session, true
}

// StreamOnline is the most recent availability known to the state machine.
// While recording the stream is assumed online.
func (sm *StateMachine) StreamOnline() bool {
	return sm.streamOnline
}

// SessionsStarted counts sessions since startup.
func (sm *StateMachine) SessionsStarted() int {
	return sm.sessionsStarted
}

// RecordingDuration returns how long current recording has been active
func (sm *StateMachine) RecordingDuration(now time.Time) time.Duration {
	if sm.session == nil {
		return 0
	}
	if d := now.Sub(sm.session.StartTime); d > 0 {
		return d
	}
	return 0
}
