package session

import (
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Repository owns every session and the active-session pointer. All
// mutations write the full list through to the Store before returning.
//
// After construction the repository always holds at least one session and
// activeID always names one of them.
type Repository struct {
	mu       sync.Mutex
	sessions []*Session
	activeID string

	store Store
	log   *zap.Logger
	now   func() time.Time
}

// Option customizes a Repository.
type Option func(*Repository)

// WithLogger sets the logger used for write-through failures.
func WithLogger(log *zap.Logger) Option {
	return func(r *Repository) {
		if log != nil {
			r.log = log
		}
	}
}

// WithClock overrides time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(r *Repository) {
		if now != nil {
			r.now = now
		}
	}
}

// NewRepository loads the stored sessions, or creates a default one when the
// store is empty. The first session becomes active; the previously active
// session is not remembered across restarts.
func NewRepository(store Store, opts ...Option) *Repository {
	r := &Repository{
		store: store,
		log:   zap.NewNop(),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}

	for _, s := range store.Load() {
		s := s
		r.sessions = append(r.sessions, &s)
	}
	if len(r.sessions) == 0 {
		r.sessions = []*Session{New(r.now())}
		r.persist()
	}
	r.activeID = r.sessions[0].ID
	return r
}

// CreateSession inserts a fresh default session at the front and makes it active.
func (r *Repository) CreateSession() Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := New(r.now())
	r.sessions = append([]*Session{s}, r.sessions...)
	r.activeID = s.ID
	r.persist()
	return s.Clone()
}

// RenameSession replaces the title of session id. Blank titles and unknown
// ids are ignored. Reports whether anything changed.
func (r *Repository) RenameSession(id, title string) bool {
	title = strings.TrimSpace(title)
	if title == "" {
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	s := r.find(id)
	if s == nil {
		return false
	}
	s.Title = title
	r.persist()
	return true
}

// DeleteSession removes session id. Deleting the last session replaces it
// with a fresh default one; deleting the active session activates the new
// first session.
func (r *Repository) DeleteSession(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx := r.index(id)
	if idx < 0 {
		return false
	}
	r.sessions = append(r.sessions[:idx], r.sessions[idx+1:]...)

	switch {
	case len(r.sessions) == 0:
		s := New(r.now())
		r.sessions = []*Session{s}
		r.activeID = s.ID
	case r.activeID == id:
		r.activeID = r.sessions[0].ID
	}
	r.persist()
	return true
}

// AppendMessage appends msg to session id. The first user message of a
// still-untitled session also names it.
func (r *Repository) AppendMessage(id string, msg Message) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := r.find(id)
	if s == nil {
		return false
	}
	if len(s.Messages) == 0 && msg.Role == RoleUser && s.HasDefaultTitle() {
		if title := DeriveTitle(msg.Text); title != "" {
			s.Title = title
		}
	}
	s.Messages = append(s.Messages, msg)
	r.persist()
	return true
}

// SelectActive makes session id active. Unknown ids are ignored.
func (r *Repository) SelectActive(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.find(id) == nil {
		return false
	}
	r.activeID = id
	return true
}

// Clear empties the message list of session id, keeping its title.
func (r *Repository) Clear(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := r.find(id)
	if s == nil {
		return false
	}
	s.Messages = []Message{}
	r.persist()
	return true
}

// Import adds sessions whose ids are not already present, keeping their
// relative order, in front of the existing ones. Returns how many were added.
func (r *Repository) Import(sessions []Session) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	var added []*Session
	for _, s := range sessions {
		if s.ID == "" || r.find(s.ID) != nil {
			continue
		}
		c := s.Clone()
		added = append(added, &c)
	}
	if len(added) == 0 {
		return 0
	}
	r.sessions = append(added, r.sessions...)
	r.persist()
	return len(added)
}

// Sessions returns a copy of all sessions in display order.
func (r *Repository) Sessions() []Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Session, len(r.sessions))
	for i, s := range r.sessions {
		out[i] = s.Clone()
	}
	return out
}

// Session returns a copy of session id.
func (r *Repository) Session(id string) (Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := r.find(id)
	if s == nil {
		return Session{}, false
	}
	return s.Clone(), true
}

// Active returns a copy of the active session.
func (r *Repository) Active() Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.find(r.activeID).Clone()
}

func (r *Repository) ActiveID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.activeID
}

// Len returns the number of sessions.
func (r *Repository) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

func (r *Repository) find(id string) *Session {
	if i := r.index(id); i >= 0 {
		return r.sessions[i]
	}
	return nil
}

func (r *Repository) index(id string) int {
	for i, s := range r.sessions {
		if s.ID == id {
			return i
		}
	}
	return -1
}

// persist writes the snapshot through to the store. Failures are logged; the
// in-memory state stays authoritative. Caller holds r.mu.
func (r *Repository) persist() {
	snapshot := make([]Session, len(r.sessions))
	for i, s := range r.sessions {
		snapshot[i] = *s
	}
	if err := r.store.Save(snapshot); err != nil {
		r.log.Error("persist sessions", zap.Int("sessions", len(snapshot)), zap.Error(err))
	}
}
