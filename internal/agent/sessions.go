package agent

import (
	"time"

	"github.com/patrickmn/go-cache"
	"google.golang.org/genai"
)

// Message is a simplified view of one conversation entry, used by the
// history endpoint.
type Message struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

// Sessions holds per-session conversation history for the lifetime of
// the process. Entries expire after the configured idle TTL.
type Sessions struct {
	store *cache.Cache
	ttl   time.Duration
}

// NewSessions creates a session store whose conversations expire after
// ttl of inactivity.
func NewSessions(ttl time.Duration) *Sessions {
	return &Sessions{
		store: cache.New(ttl, 10*time.Minute),
		ttl:   ttl,
	}
}

// History returns the stored conversation for a session, or nil for an
// unknown session id.
func (s *Sessions) History(sessionID string) []*genai.Content {
	if v, ok := s.store.Get(sessionID); ok {
		return v.([]*genai.Content)
	}
	return nil
}

// Replace stores the full conversation for a session, resetting its TTL.
func (s *Sessions) Replace(sessionID string, history []*genai.Content) {
	s.store.Set(sessionID, history, s.ttl)
}

// Clear drops the conversation for a session.
func (s *Sessions) Clear(sessionID string) {
	s.store.Delete(sessionID)
}

// Messages renders the session's text turns for the history endpoint.
// Tool-call plumbing (function calls and their responses) carries no
// user-facing text and is skipped.
func (s *Sessions) Messages(sessionID string) []Message {
	history := s.History(sessionID)
	messages := make([]Message, 0, len(history))
	for _, content := range history {
		var text string
		for _, part := range content.Parts {
			if part != nil && part.Text != "" {
				text += part.Text
			}
		}
		if text == "" {
			continue
		}
		messages = append(messages, Message{Type: content.Role, Content: text})
	}
	return messages
}
