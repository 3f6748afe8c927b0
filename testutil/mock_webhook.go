package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
)

// Failure modes for MockWebhook
const (
	ModeNormal    = "normal"    // 204 No Content, like Discord
	ModeOK        = "ok"        // 200 with a body
	ModeRejecting = "rejecting" // 500
)

// MockWebhook is a Discord-style webhook endpoint that records every content
// string posted to it.
type MockWebhook struct {
	server   *httptest.Server
	mu       sync.Mutex
	mode     string
	messages []string
}

// NewMockWebhook starts a webhook server on a dynamic port
func NewMockWebhook() *MockWebhook {
	m := &MockWebhook{mode: ModeNormal}
	m.server = httptest.NewServer(http.HandlerFunc(m.handle))
	return m
}

// URL is the webhook endpoint
func (m *MockWebhook) URL() string { return m.server.URL }

// Stop shuts the server down
func (m *MockWebhook) Stop() { m.server.Close() }

// SetMode changes how subsequent requests are answered
func (m *MockWebhook) SetMode(mode string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mode = mode
}

// Messages returns a copy of every received content string
func (m *MockWebhook) Messages() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.messages...)
}

func (m *MockWebhook) handle(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Content string `json:"content"`
	}
	if r.Method != http.MethodPost || json.NewDecoder(r.Body).Decode(&payload) != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	m.mu.Lock()
	m.messages = append(m.messages, payload.Content)
	mode := m.mode
	m.mu.Unlock()

	switch mode {
	case ModeOK:
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"id":"1"}`))
	case ModeRejecting:
		w.WriteHeader(http.StatusInternalServerError)
	default:
		w.WriteHeader(http.StatusNoContent)
	}
}
