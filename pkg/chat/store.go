// Package chat holds per-page chat transcripts and fetches page content
// for use as LLM context. Transcripts live in memory only: closing the
// process drops them, by design.
package chat

import "sync"

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one turn of a page conversation.
type Message struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

// Transcript is the conversation state for one page, keyed by the exact
// URL of the originating history record.
type Transcript struct {
	Messages    []Message `json:"messages"`
	PageContent string    `json:"page_content,omitempty"`
}

// Store is a mutex-guarded transcript map. Clearing is immediate and has
// no undo; any confirmation step belongs to the caller.
type Store struct {
	mu          sync.Mutex
	transcripts map[string]*Transcript
}

func NewStore() *Store {
	return &Store{transcripts: make(map[string]*Transcript)}
}

// Get returns a copy of the transcript for url, if one exists.
func (s *Store) Get(url string) (Transcript, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.transcripts[url]
	if !ok {
		return Transcript{}, false
	}
	return t.clone(), true
}

// Upsert replaces the transcript for url.
func (s *Store) Upsert(url string, t Transcript) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := t.clone()
	s.transcripts[url] = &c
}

// Append adds a message to url's transcript, creating it if needed.
func (s *Store) Append(url string, m Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.transcripts[url]
	if !ok {
		t = &Transcript{}
		s.transcripts[url] = t
	}
	t.Messages = append(t.Messages, m)
}

// SetPageContent attaches fetched page text to url's transcript, creating
// it if needed.
func (s *Store) SetPageContent(url, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.transcripts[url]
	if !ok {
		t = &Transcript{}
		s.transcripts[url] = t
	}
	t.PageContent = content
}

// Clear removes the transcript for url.
func (s *Store) Clear(url string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.transcripts, url)
}

// ClearAll empties the store.
func (s *Store) ClearAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transcripts = make(map[string]*Transcript)
}

// Len reports how many pages have transcripts.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.transcripts)
}

func (t Transcript) clone() Transcript {
	c := t
	c.Messages = make([]Message, len(t.Messages))
	copy(c.Messages, t.Messages)
	return c
}
