package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
)

func bufferLogger(buf *bytes.Buffer) hclog.Logger {
	return hclog.New(&hclog.LoggerOptions{Name: "notify", Output: buf, Level: hclog.Debug})
}

func TestWebhook_PostsContent(t *testing.T) {
	var got webhookPayload
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer ts.Close()

	var logs bytes.Buffer
	NewWebhook(ts.URL, bufferLogger(&logs)).Notify(context.Background(), "hello")

	assert.Equal(t, "hello", got.Content)
	assert.Empty(t, logs.String())
}

func TestWebhook_NonSuccessIsLoggedNotRaised(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer ts.Close()

	var logs bytes.Buffer
	NewWebhook(ts.URL, bufferLogger(&logs)).Notify(context.Background(), "hello")

	assert.Contains(t, logs.String(), "[WARN]")
	assert.Contains(t, logs.String(), "status_code=429")
}

func TestWebhook_TransportErrorIsLogged(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := ts.URL
	ts.Close()

	var logs bytes.Buffer
	NewWebhook(url, bufferLogger(&logs)).Notify(context.Background(), "hello")

	assert.Contains(t, logs.String(), "[ERROR]")
	assert.Contains(t, logs.String(), "error sending notification")
}

func TestWebhook_NilLogger(t *testing.T) {
	w := NewWebhook("http://127.0.0.1:0/unreachable", nil)
	assert.NotPanics(t, func() { w.Notify(context.Background(), "x") })
}

type recordingNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (r *recordingNotifier) Notify(_ context.Context, m string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, m)
}

func TestMulti_FansOutInOrder(t *testing.T) {
	a, b := &recordingNotifier{}, &recordingNotifier{}
	Multi{a, nil, b}.Notify(context.Background(), "one")
	Multi{a, b}.Notify(context.Background(), "two")

	assert.Equal(t, []string{"one", "two"}, a.messages)
	assert.Equal(t, []string{"one", "two"}, b.messages)
}

func TestMessages(t *testing.T) {
	const mb = 1024 * 1024

	assert.Equal(t, "Recording started for https://www.twitch.tv/x at quality best.",
		RecordingStarted("https://www.twitch.tv/x", "best"))

	stopped := RecordingStopped("/v/a.mp4", 90*time.Minute+400*time.Millisecond, 3*mb/2)
	assert.Equal(t, "Recording stopped. File saved to: /v/a.mp4\nDuration: 1h30m0s\nFile size: 1.50 MB", stopped)

	maxed := MaxDurationReached("/v/a.mp4", 2*time.Hour, 0)
	assert.True(t, strings.HasPrefix(maxed, "Maximum recording duration reached."))
	assert.Contains(t, maxed, "0.00 MB")

	failed := RecordingFailed("/v/a.mp4", errors.New("exit status 1"), time.Second, 0)
	assert.Contains(t, failed, "An error occurred while recording: exit status 1")

	assert.Equal(t, "Warning: Low disk space. Only 4.25 GB left.", LowDiskSpace(4.254))
	assert.Equal(t, "Deleted old recording: /v/old.mp4", DeletedOldRecording("/v/old.mp4"))
	assert.Equal(t, "Status Update: Stream is online. Recording is active.", StatusUpdate(true, true))
	assert.Equal(t, "Status Update: Stream is offline. Recording is inactive.", StatusUpdate(false, false))
	assert.Equal(t, "0s", FormatDuration(-time.Second))

	cut := LowDiskStopped("/v/a.mp4", time.Minute, mb)
	assert.True(t, strings.HasPrefix(cut, LowDiskFatal()))
	assert.Contains(t, cut, "File saved to: /v/a.mp4")
	assert.Contains(t, cut, "1.00 MB")
}
