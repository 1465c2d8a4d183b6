package session

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"
)

// SchemaVersion is the version written by Encode.
//
// Version 1 is the legacy layout: a bare JSON array of sessions whose
// createdAt is a millisecond epoch. Version 2 wraps the array in an envelope
// carrying the version tag.
const SchemaVersion = 2

var (
	// ErrNoState means the slot held nothing usable. Loaders treat it as a first run.
	ErrNoState = errors.New("no stored sessions")

	// ErrUnsupportedVersion is returned for snapshots written by a newer client.
	ErrUnsupportedVersion = errors.New("unsupported schema version")
)

type envelope struct {
	Version  int             `json:"version"`
	Sessions json.RawMessage `json:"sessions"`
}

type legacySession struct {
	ID        string          `json:"id"`
	Title     string          `json:"title"`
	Messages  []Message       `json:"messages"`
	CreatedAt json.RawMessage `json:"createdAt"`
}

// Encode serializes sessions into the current envelope format.
func Encode(sessions []Session) ([]byte, error) {
	if sessions == nil {
		sessions = []Session{}
	}
	raw, err := json.Marshal(sessions)
	if err != nil {
		return nil, fmt.Errorf("marshal sessions: %w", err)
	}
	return json.Marshal(envelope{Version: SchemaVersion, Sessions: raw})
}

// Decode parses a stored snapshot of any known version, migrating older
// layouts forward. Anything that does not yield at least one valid session
// returns an error wrapping ErrNoState or ErrUnsupportedVersion.
func Decode(data []byte) ([]Session, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, ErrNoState
	}

	var (
		version int
		payload json.RawMessage
	)
	switch data[0] {
	case '[':
		version, payload = 1, data
	case '{':
		var env envelope
		if err := json.Unmarshal(data, &env); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrNoState, err)
		}
		version, payload = env.Version, env.Sessions
		if version == 0 {
			version = 1
		}
	default:
		return nil, fmt.Errorf("%w: not an array or envelope", ErrNoState)
	}

	if version > SchemaVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, version)
	}

	sessions, err := migrate(version, payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoState, err)
	}
	sessions = sanitize(sessions)
	if len(sessions) == 0 {
		return nil, ErrNoState
	}
	return sessions, nil
}

// migrate upgrades a payload of the given version to []Session.
func migrate(version int, payload json.RawMessage) ([]Session, error) {
	switch version {
	case 1:
		var legacy []legacySession
		if err := json.Unmarshal(payload, &legacy); err != nil {
			return nil, err
		}
		out := make([]Session, 0, len(legacy))
		for _, l := range legacy {
			out = append(out, Session{
				ID:        l.ID,
				Title:     l.Title,
				Messages:  l.Messages,
				CreatedAt: parseLegacyTime(l.CreatedAt),
			})
		}
		return out, nil
	case SchemaVersion:
		var out []Session
		if err := json.Unmarshal(payload, &out); err != nil {
			return nil, err
		}
		return out, nil
	}
	return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, version)
}

// parseLegacyTime accepts a millisecond epoch number or an RFC 3339 string.
func parseLegacyTime(raw json.RawMessage) time.Time {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return time.Time{}
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
				return t
			}
		}
		return time.Time{}
	}
	ms, err := strconv.ParseFloat(string(raw), 64)
	if err != nil {
		return time.Time{}
	}
	return time.UnixMilli(int64(ms)).UTC()
}

// sanitize drops records that would break repository invariants: sessions
// without an id, repeated ids, and messages with an unknown role.
func sanitize(in []Session) []Session {
	seen := make(map[string]bool, len(in))
	out := make([]Session, 0, len(in))
	for _, s := range in {
		if s.ID == "" || seen[s.ID] {
			continue
		}
		seen[s.ID] = true
		if s.Title == "" {
			s.Title = DefaultTitle
		}
		msgs := make([]Message, 0, len(s.Messages))
		for _, m := range s.Messages {
			if m.Role.Valid() {
				msgs = append(msgs, m)
			}
		}
		s.Messages = msgs
		out = append(out, s)
	}
	return out
}
