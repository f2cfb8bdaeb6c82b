package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/retrace-dev/retrace/internal/utils"
	"github.com/retrace-dev/retrace/pkg/blacklist"
	"github.com/retrace-dev/retrace/pkg/chat"
	"github.com/retrace-dev/retrace/pkg/feed"
	"github.com/retrace-dev/retrace/pkg/llm"
	"github.com/retrace-dev/retrace/pkg/stats"
)

const maxSearchResults = 5000

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		utils.Log.Warn("writing response: ", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func intQuery(r *http.Request, key string, fallback int) int {
	if raw := r.URL.Query().Get(key); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			return n
		}
	}
	return fallback
}

// timeRange converts a "days back from now" query into [start, end] ms.
func timeRange(r *http.Request) (int64, int64) {
	days := intQuery(r, "days", 7)
	end := time.Now().UnixMilli()
	start := end - int64(days)*24*int64(time.Hour/time.Millisecond)
	return start, end
}

// handleFeedReload loads a fresh time range, re-reads the blacklist (rule
// edits only apply here, never mid-session) and resets the paginator.
func (s *Server) handleFeedReload(w http.ResponseWriter, r *http.Request) {
	rules, err := blacklist.Load(s.OverridesPath)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	start, end := timeRange(r)
	records, err := s.Source.Search(r.Context(), start, end, maxSearchResults)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	result := feed.Aggregate(records, rules)
	batchSize := intQuery(r, "batch", s.BatchSize)

	s.mu.Lock()
	s.paginator = feed.NewPaginator(s.Source, result.Filtered, batchSize)
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]int{
		"total":        len(records),
		"kept":         len(result.Filtered),
		"filtered_out": result.FilteredOut,
	})
}

func (s *Server) handleFeedNext(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	paginator := s.paginator
	s.mu.Unlock()

	if paginator == nil {
		writeError(w, http.StatusConflict, "no feed session: call /api/feed/reload first")
		return
	}

	batch, err := paginator.NextBatch(r.Context())
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"items": batch,
		"state": paginator.State().String(),
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	rules, err := blacklist.Load(s.OverridesPath)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	start, end := timeRange(r)
	records, err := s.Source.Search(r.Context(), start, end, maxSearchResults)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	result := feed.Aggregate(records, rules)
	aggs, err := stats.Aggregate(r.Context(), s.Source, result.Filtered)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	aggs = stats.TopN(aggs, intQuery(r, "top", 0))

	writeJSON(w, http.StatusOK, map[string]any{
		"domains":      aggs,
		"total":        len(result.Filtered),
		"filtered_out": result.FilteredOut,
	})
}

type chatSendRequest struct {
	URL     string `json:"url"`
	Message string `json:"message"`
}

// handleChatSend appends the user message, dispatches to the configured
// provider and appends the reply. Provider and config failures come back
// as an inline reply with ok=false rather than an HTTP error: the chat
// stays usable and the user can resend.
func (s *Server) handleChatSend(w http.ResponseWriter, r *http.Request) {
	var req chatSendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.URL == "" || req.Message == "" {
		writeError(w, http.StatusBadRequest, "url and message are required")
		return
	}

	s.chatStore.Append(req.URL, chat.Message{Role: chat.RoleUser, Text: req.Message})

	reply, ok := "", true
	provider, err := llm.New(s.LLMConfig)
	if err != nil {
		reply, ok = "[config] "+err.Error(), false
	} else {
		var pageContext string
		if t, found := s.chatStore.Get(req.URL); found {
			pageContext = t.PageContent
		}
		reply, err = provider.Send(r.Context(), req.Message, pageContext)
		if err != nil {
			reply, ok = "[error] "+err.Error(), false
		}
	}

	s.chatStore.Append(req.URL, chat.Message{Role: chat.RoleAssistant, Text: reply})
	transcript, _ := s.chatStore.Get(req.URL)
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":         ok,
		"reply":      reply,
		"transcript": transcript,
	})
}

type chatFetchRequest struct {
	URL string `json:"url"`
}

func (s *Server) handleChatFetch(w http.ResponseWriter, r *http.Request) {
	var req chatFetchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.URL == "" {
		writeError(w, http.StatusBadRequest, "url is required")
		return
	}

	title, text, err := s.fetcher.FetchPageText(r.Context(), req.URL)
	if err != nil {
		// Fetch failures are recoverable: report inline, keep 200 so the
		// client re-enables the fetch action.
		writeJSON(w, http.StatusOK, map[string]any{"ok": false, "error": err.Error()})
		return
	}

	s.chatStore.SetPageContent(req.URL, text)
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":    true,
		"title": title,
		"chars": len(text),
	})
}

func (s *Server) handleChatClear(w http.ResponseWriter, r *http.Request) {
	if url := r.URL.Query().Get("url"); url != "" {
		s.chatStore.Clear(url)
	} else {
		s.chatStore.ClearAll()
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "remaining": s.chatStore.Len()})
}

func (s *Server) handleBlacklistGet(w http.ResponseWriter, r *http.Request) {
	bundled, err := blacklist.Bundled()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	overrides, err := blacklist.NewOverrideStore(s.OverridesPath).Load()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"bundled":   bundled,
		"overrides": overrides,
	})
}

type blacklistRuleRequest struct {
	Kind string `json:"kind"` // domain | pattern
	Rule string `json:"rule"`
}

func (s *Server) handleBlacklistAdd(w http.ResponseWriter, r *http.Request) {
	s.mutateBlacklist(w, r, func(store *blacklist.OverrideStore, req blacklistRuleRequest) error {
		if req.Kind == "pattern" {
			return store.AddPattern(req.Rule)
		}
		return store.AddDomain(req.Rule)
	})
}

func (s *Server) handleBlacklistRemove(w http.ResponseWriter, r *http.Request) {
	s.mutateBlacklist(w, r, func(store *blacklist.OverrideStore, req blacklistRuleRequest) error {
		if req.Kind == "pattern" {
			return store.RemovePattern(req.Rule)
		}
		return store.RemoveDomain(req.Rule)
	})
}

func (s *Server) mutateBlacklist(w http.ResponseWriter, r *http.Request, op func(*blacklist.OverrideStore, blacklistRuleRequest) error) {
	var req blacklistRuleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Rule == "" {
		writeError(w, http.StatusBadRequest, "rule is required")
		return
	}
	if req.Kind != "pattern" {
		req.Kind = "domain"
	}
	if err := op(blacklist.NewOverrideStore(s.OverridesPath), req); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	// Takes effect on the next feed reload, not mid-session.
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}
