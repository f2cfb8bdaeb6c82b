// Package server exposes the feed, stats, chat and blacklist operations
// over a local JSON API. There is no UI here: rendering is someone
// else's job.
package server

import (
	"net/http"
	"sync"

	"github.com/retrace-dev/retrace/internal/utils"
	"github.com/retrace-dev/retrace/pkg/chat"
	"github.com/retrace-dev/retrace/pkg/feed"
	"github.com/retrace-dev/retrace/pkg/history"
	"github.com/retrace-dev/retrace/pkg/llm"
)

type Server struct {
	Source        history.Source
	OverridesPath string
	LLMConfig     llm.Config
	BatchSize     int
	Username      string
	Password      string

	chatStore *chat.Store
	fetcher   *chat.Fetcher

	// One active feed session at a time: a reload swaps the paginator,
	// "load more" advances it.
	mu        sync.Mutex
	paginator *feed.Paginator
}

func New(source history.Source, overridesPath string, llmConfig llm.Config, batchSize int, user, pass string) *Server {
	return &Server{
		Source:        source,
		OverridesPath: overridesPath,
		LLMConfig:     llmConfig,
		BatchSize:     batchSize,
		Username:      user,
		Password:      pass,
		chatStore:     chat.NewStore(),
		fetcher:       chat.NewFetcher(),
	}
}

func (s *Server) Start(addr string) error {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/feed/reload", s.basicAuth(s.handleFeedReload))
	mux.HandleFunc("GET /api/feed/next", s.basicAuth(s.handleFeedNext))
	mux.HandleFunc("GET /api/stats", s.basicAuth(s.handleStats))
	mux.HandleFunc("POST /api/chat/send", s.basicAuth(s.handleChatSend))
	mux.HandleFunc("POST /api/chat/fetch", s.basicAuth(s.handleChatFetch))
	mux.HandleFunc("DELETE /api/chat", s.basicAuth(s.handleChatClear))
	mux.HandleFunc("GET /api/blacklist", s.basicAuth(s.handleBlacklistGet))
	mux.HandleFunc("POST /api/blacklist", s.basicAuth(s.handleBlacklistAdd))
	mux.HandleFunc("DELETE /api/blacklist", s.basicAuth(s.handleBlacklistRemove))

	utils.Log.Info("Starting server on ", addr)
	return http.ListenAndServe(addr, mux)
}

func (s *Server) basicAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.Username == "" && s.Password == "" {
			next(w, r)
			return
		}
		user, pass, ok := r.BasicAuth()
		if !ok || user != s.Username || pass != s.Password {
			w.Header().Set("WWW-Authenticate", `Basic realm="Restricted"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}
