package statemachine

import (
	"errors"
	"testing"
	"time"
)

func TestProcessProbe_StartsOnlyFromIdle(t *testing.T) {
	tests := []struct {
		name        string
		sequence    []bool // probe results
		wantStartAt int    // index where a start is requested (-1 if never)
	}{
		{
			name:        "starts on first online",
			sequence:    []bool{false, false, true, true},
			wantStartAt: 2,
		},
		{
			name:        "never online",
			sequence:    []bool{false, false, false},
			wantStartAt: -1,
		},
		{
			name:        "online immediately",
			sequence:    []bool{true, true},
			wantStartAt: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sm := NewStateMachine()
			start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

			for i, online := range tt.sequence {
				shouldStart := sm.ProcessProbe(online)
				if shouldStart {
					if i != tt.wantStartAt {
						t.Errorf("started at index %d, want %d", i, tt.wantStartAt)
					}
					if err := sm.StartRecording(NewSession(start, "/v/a.mp4")); err != nil {
						t.Fatalf("StartRecording: %v", err)
					}
				}
			}

			if tt.wantStartAt == -1 {
				if sm.IsRecording() {
					t.Error("should remain idle")
				}
				if sm.State() != StateIdle {
					t.Errorf("state = %v, want %v", sm.State(), StateIdle)
				}
			} else if sm.SessionsStarted() != 1 {
				t.Errorf("sessions started = %d, want 1", sm.SessionsStarted())
			}
		})
	}
}

func TestStartRecording_SingleSession(t *testing.T) {
	sm := NewStateMachine()
	now := time.Now()

	if err := sm.StartRecording(NewSession(now, "/v/a.mp4")); err != nil {
		t.Fatalf("first start: %v", err)
	}
	err := sm.StartRecording(NewSession(now, "/v/b.mp4"))
	if !errors.Is(err, ErrAlreadyRecording) {
		t.Errorf("second start err = %v, want ErrAlreadyRecording", err)
	}

	s, ok := sm.Session()
	if !ok || s.OutputPath != "/v/a.mp4" {
		t.Errorf("active session = %+v, want /v/a.mp4", s)
	}
}

func TestStopRecording(t *testing.T) {
	sm := NewStateMachine()
	start := time.Date(2025, 1, 1, 20, 0, 0, 0, time.UTC)
	session := NewSession(start, "/v/a.mp4")

	if _, err := sm.StopRecording(start, 0, ReasonStreamEnded, nil); !errors.Is(err, ErrNotRecording) {
		t.Errorf("stop while idle err = %v, want ErrNotRecording", err)
	}

	if err := sm.StartRecording(session); err != nil {
		t.Fatal(err)
	}
	out, err := sm.StopRecording(start.Add(90*time.Minute), 2048, ReasonStreamEnded, nil)
	if err != nil {
		t.Fatalf("StopRecording: %v", err)
	}

	if out.Duration != 90*time.Minute {
		t.Errorf("duration = %v, want 90m", out.Duration)
	}
	if out.FileSizeBytes != 2048 {
		t.Errorf("size = %d, want 2048", out.FileSizeBytes)
	}
	if out.SessionID != session.ID || out.OutputPath != "/v/a.mp4" {
		t.Errorf("outcome does not describe the session: %+v", out)
	}
	if !out.Succeeded {
		t.Error("stream end should count as success")
	}
	if sm.IsRecording() {
		t.Error("should be idle after stop")
	}
	if sm.StreamOnline() {
		t.Error("stream should be considered offline after it ended")
	}
}

func TestStopRecording_ClampsNegatives(t *testing.T) {
	sm := NewStateMachine()
	start := time.Date(2025, 1, 1, 20, 0, 0, 0, time.UTC)
	_ = sm.StartRecording(NewSession(start, "/v/a.mp4"))

	out, err := sm.StopRecording(start.Add(-time.Minute), -5, ReasonCaptureFailed, errors.New("boom"))
	if err != nil {
		t.Fatal(err)
	}
	if out.Duration != 0 || out.FileSizeBytes != 0 {
		t.Errorf("want zero duration and size, got %v / %d", out.Duration, out.FileSizeBytes)
	}
	if out.Succeeded {
		t.Error("capture failure must not count as success")
	}
	if out.Err == nil {
		t.Error("error should be carried on the outcome")
	}
}

func TestMaxDurationCountsAsSuccess(t *testing.T) {
	sm := NewStateMachine()
	start := time.Now()
	_ = sm.StartRecording(NewSession(start, "/v/a.mp4"))

	out, _ := sm.StopRecording(start.Add(2*time.Hour), 1, ReasonMaxDuration, errors.New("deadline"))
	if !out.Succeeded {
		t.Error("max-duration stop should be reported like a normal stop")
	}
	if !sm.StreamOnline() {
		t.Error("stream may still be live after a max-duration stop")
	}
}

func TestRecordingDuration(t *testing.T) {
	sm := NewStateMachine()
	start := time.Date(2025, 1, 1, 20, 0, 0, 0, time.UTC)

	if d := sm.RecordingDuration(start); d != 0 {
		t.Errorf("duration when not recording = %v, want 0", d)
	}

	_ = sm.StartRecording(NewSession(start, "/v/a.mp4"))
	if d := sm.RecordingDuration(start.Add(3 * time.Second)); d != 3*time.Second {
		t.Errorf("duration = %v, want 3s", d)
	}
	if d := sm.RecordingDuration(start.Add(-time.Second)); d != 0 {
		t.Errorf("duration before start = %v, want 0", d)
	}
}

func TestNewSession_UniqueIDs(t *testing.T) {
	now := time.Now()
	a, b := NewSession(now, "/a"), NewSession(now, "/b")
	if a.ID == "" || a.ID == b.ID {
		t.Errorf("session IDs must be unique and non-empty: %q %q", a.ID, b.ID)
	}
}
