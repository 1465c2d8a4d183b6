package session

import (
	"errors"
	"sync"

	"go.uber.org/zap"
)

// SlotKey is the key under which the session snapshot is kept.
const SlotKey = "rexolve.sessions"

// Store abstracts session persistence (SQLite, JSON file, memory).
//
// Load never fails: a missing or unreadable slot means "no prior state" and
// yields nil. Save writes the whole list; it is called after every mutation.
type Store interface {
	Load() []Session
	Save(sessions []Session) error
	Close() error
}

// decodeSlot turns raw slot bytes into sessions, logging (never returning)
// anything that makes the snapshot unusable.
func decodeSlot(log *zap.Logger, source string, data []byte) []Session {
	sessions, err := Decode(data)
	if err != nil {
		if !errors.Is(err, ErrNoState) || len(data) > 0 {
			log.Warn("ignoring stored sessions", zap.String("source", source), zap.Error(err))
		}
		return nil
	}
	return sessions
}

// MemoryStore keeps the encoded snapshot in process memory.
type MemoryStore struct {
	mu   sync.Mutex
	data []byte
	log  *zap.Logger

	// Saves counts successful Save calls.
	Saves int
}

// NewMemoryStore returns a MemoryStore seeded with raw slot bytes (may be nil).
func NewMemoryStore(seed []byte, log *zap.Logger) *MemoryStore {
	if log == nil {
		log = zap.NewNop()
	}
	return &MemoryStore{data: seed, log: log}
}

func (s *MemoryStore) Load() []Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return decodeSlot(s.log, "memory", s.data)
}

func (s *MemoryStore) Save(sessions []Session) error {
	data, err := Encode(sessions)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = data
	s.Saves++
	return nil
}

// Raw returns a copy of the stored bytes.
func (s *MemoryStore) Raw() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]byte(nil), s.data...)
}

func (s *MemoryStore) Close() error { return nil }
