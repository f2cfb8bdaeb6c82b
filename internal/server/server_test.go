package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/retrace-dev/retrace/pkg/chat"
	"github.com/retrace-dev/retrace/pkg/history"
	"github.com/retrace-dev/retrace/pkg/llm"
)

func testServer(t *testing.T) *Server {
	t.Helper()
	now := time.Now().UnixMilli()
	source := &history.MemorySource{
		Records: []history.VisitRecord{
			{URL: "https://example.com/a", Title: "A", LastVisitTime: now - 1000, VisitCount: 2},
			{URL: "https://blocked.test/x", Title: "X", LastVisitTime: now - 2000, VisitCount: 1},
			{URL: "https://other.org/b", Title: "B", LastVisitTime: now - 3000, VisitCount: 1},
		},
		Visits: map[string][]history.Visit{
			"https://example.com/a": {{Transition: history.TransitionTyped}, {Transition: "link"}},
			"https://other.org/b":   {{Transition: "link"}},
		},
	}
	overrides := filepath.Join(t.TempDir(), "overrides.json")
	return New(source, overrides, llm.Config{Provider: "openai"}, 2, "", "")
}

func doJSON(t *testing.T, handler http.HandlerFunc, method, target, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	rec := httptest.NewRecorder()
	handler(rec, req)

	var decoded map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &decoded); err != nil {
		t.Fatalf("response is not JSON: %v (%s)", err, rec.Body.String())
	}
	return rec, decoded
}

func TestFeedReloadAndNext(t *testing.T) {
	s := testServer(t)

	rec, body := doJSON(t, s.handleFeedReload, http.MethodPost, "/api/feed/reload?days=7&batch=2", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("reload: HTTP %d: %v", rec.Code, body)
	}
	if body["kept"].(float64) != 3 {
		t.Fatalf("expected 3 kept records, got %v", body["kept"])
	}

	rec, body = doJSON(t, s.handleFeedNext, http.MethodGet, "/api/feed/next", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("next: HTTP %d", rec.Code)
	}
	items := body["items"].([]any)
	if len(items) != 2 {
		t.Fatalf("expected batch of 2, got %d", len(items))
	}
	if body["state"] != "ready" {
		t.Fatalf("expected ready, got %v", body["state"])
	}

	_, body = doJSON(t, s.handleFeedNext, http.MethodGet, "/api/feed/next", "")
	items = body["items"].([]any)
	if len(items) != 1 {
		t.Fatalf("expected final batch of 1, got %d", len(items))
	}
	if body["state"] != "exhausted" {
		t.Fatalf("expected exhausted, got %v", body["state"])
	}
}

func TestFeedNextWithoutSession(t *testing.T) {
	s := testServer(t)
	rec, _ := doJSON(t, s.handleFeedNext, http.MethodGet, "/api/feed/next", "")
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 without a session, got %d", rec.Code)
	}
}

func TestFeedReloadAppliesOverrides(t *testing.T) {
	s := testServer(t)

	rec, body := doJSON(t, s.handleBlacklistAdd, http.MethodPost, "/api/blacklist",
		`{"kind":"domain","rule":"blocked.test"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("blacklist add: HTTP %d: %v", rec.Code, body)
	}

	_, body = doJSON(t, s.handleFeedReload, http.MethodPost, "/api/feed/reload?days=7", "")
	if body["kept"].(float64) != 2 || body["filtered_out"].(float64) != 1 {
		t.Fatalf("expected override applied on reload, got %v", body)
	}
}

func TestStatsEndpoint(t *testing.T) {
	s := testServer(t)

	rec, body := doJSON(t, s.handleStats, http.MethodGet, "/api/stats?days=7&top=1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("stats: HTTP %d", rec.Code)
	}
	domains := body["domains"].([]any)
	if len(domains) != 1 {
		t.Fatalf("expected top=1 to truncate, got %d", len(domains))
	}
	top := domains[0].(map[string]any)
	if top["domain"] != "example.com" {
		t.Fatalf("expected example.com on top, got %v", top["domain"])
	}
	if top["typed_count"].(float64)+top["clicked_count"].(float64) != top["visit_count"].(float64) {
		t.Fatalf("count invariant broken: %v", top)
	}
}

func TestChatSendSurfacesConfigErrorInline(t *testing.T) {
	// The test server has no API key configured: the send must succeed at
	// the HTTP level and carry the config problem as the reply.
	s := testServer(t)

	rec, body := doJSON(t, s.handleChatSend, http.MethodPost, "/api/chat/send",
		`{"url":"https://example.com/a","message":"hi"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected HTTP 200, got %d", rec.Code)
	}
	if body["ok"].(bool) {
		t.Fatal("expected ok=false without credentials")
	}
	if !strings.Contains(body["reply"].(string), "API key") {
		t.Fatalf("expected credential hint in reply, got %v", body["reply"])
	}

	// Both turns are in the transcript: user message plus inline notice.
	transcript := body["transcript"].(map[string]any)
	if msgs := transcript["messages"].([]any); len(msgs) != 2 {
		t.Fatalf("expected 2 transcript messages, got %d", len(msgs))
	}
}

func TestChatClear(t *testing.T) {
	s := testServer(t)
	s.chatStore.Append("https://a.com/", chat.Message{Role: chat.RoleUser, Text: "a"})
	s.chatStore.Append("https://b.com/", chat.Message{Role: chat.RoleUser, Text: "b"})

	rec, body := doJSON(t, s.handleChatClear, http.MethodDelete, "/api/chat?url=https%3A%2F%2Fb.com%2F", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("clear: HTTP %d", rec.Code)
	}
	if body["remaining"].(float64) != 1 {
		t.Fatalf("expected one transcript left, got %v", body["remaining"])
	}

	_, body = doJSON(t, s.handleChatClear, http.MethodDelete, "/api/chat", "")
	if body["remaining"].(float64) != 0 {
		t.Fatalf("expected empty store after clear-all, got %v", body["remaining"])
	}
}

func TestBlacklistGet(t *testing.T) {
	s := testServer(t)
	rec, body := doJSON(t, s.handleBlacklistGet, http.MethodGet, "/api/blacklist", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("HTTP %d", rec.Code)
	}
	if _, ok := body["bundled"]; !ok {
		t.Fatal("expected bundled rules in response")
	}
	if _, ok := body["overrides"]; !ok {
		t.Fatal("expected overrides in response")
	}
}
