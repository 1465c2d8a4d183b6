// Package provider defines the interfaces for the remote services the
// client talks to: an Answerer that turns a transcript into a reply, and a
// Recognizer that extracts text from an image. Each backend (the ask-doubt
// HTTP API, OpenAI-compatible APIs, Anthropic) implements Answerer.
package provider

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
)

// ── Transcript types ─────────────────────────────────────────────────────────

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Turn is one role-tagged entry of the transcript sent to an answering backend.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Image is an uploaded picture for text extraction.
type Image struct {
	Name      string
	MediaType string
	Data      []byte
}

// LoadImage reads a local image file and sniffs its media type.
func LoadImage(path string) (Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Image{}, fmt.Errorf("read image: %w", err)
	}
	return Image{
		Name:      filepath.Base(path),
		MediaType: http.DetectContentType(data),
		Data:      data,
	}, nil
}

// ── Interfaces ───────────────────────────────────────────────────────────────

// Answerer produces the assistant reply for a full transcript. Backends are
// stateless: the whole history is sent on every call.
type Answerer interface {
	Answer(ctx context.Context, transcript []Turn) (string, error)

	// Name returns the backend identifier, e.g. "prepseek", "openai", "anthropic".
	Name() string
}

// Recognizer extracts text from an image.
type Recognizer interface {
	Recognize(ctx context.Context, img Image) (string, error)
}
