package chat

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/rexolve-ai/rexolve/internal/provider"
	"github.com/rexolve-ai/rexolve/internal/session"
)

// AttachImage checks that path is a readable image and describes it for a
// send. The stored path is absolute so the attachment survives a cwd change.
func AttachImage(path string) (*session.Attachment, error) {
	img, err := provider.LoadImage(path)
	if err != nil {
		return nil, err
	}
	if !strings.HasPrefix(img.MediaType, "image/") {
		return nil, fmt.Errorf("%s is not an image (%s)", img.Name, img.MediaType)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	return &session.Attachment{Name: img.Name, MediaType: img.MediaType, Path: abs}, nil
}
