// Package session owns the conversation threads of the client: the message
// and session records, the repository that enforces the "one active session,
// never zero sessions" invariants, and the stores that persist a snapshot of
// every session to a durable local slot.
package session

import (
	"time"

	"github.com/google/uuid"
)

// DefaultTitle is the title given to sessions nobody has named yet.
const DefaultTitle = "New decision"

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAssistant, RoleSystem:
		return true
	}
	return false
}

// Attachment is an opaque reference to a user-supplied file (an image for OCR).
// Only the reference is stored; the bytes stay where the user left them.
type Attachment struct {
	Name      string `json:"name"`
	MediaType string `json:"mediaType,omitempty"`
	Path      string `json:"path,omitempty"`
}

// Message is a single turn in a session. Messages are never edited after
// they are appended.
type Message struct {
	Role       Role        `json:"role"`
	Text       string      `json:"text"`
	Attachment *Attachment `json:"attachment,omitempty"`
}

// Session is one named conversation thread.
type Session struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Messages  []Message `json:"messages"`
	CreatedAt time.Time `json:"createdAt"`
}

// New creates an empty session with a unique ID and the default title.
func New(now time.Time) *Session {
	return &Session{
		ID:        newID(),
		Title:     DefaultTitle,
		Messages:  []Message{},
		CreatedAt: now,
	}
}

func newID() string {
	return uuid.NewString()
}

// HasDefaultTitle reports whether the session still carries the untitled placeholder.
func (s *Session) HasDefaultTitle() bool {
	return s.Title == DefaultTitle
}

// Clone returns a deep copy so callers can never mutate repository state.
func (s *Session) Clone() Session {
	c := *s
	c.Messages = make([]Message, len(s.Messages))
	for i, m := range s.Messages {
		c.Messages[i] = m
		if m.Attachment != nil {
			a := *m.Attachment
			c.Messages[i].Attachment = &a
		}
	}
	return c
}
