package chat

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAttachImage(t *testing.T) {
	dir := t.TempDir()
	png := filepath.Join(dir, "q.png")
	require.NoError(t, os.WriteFile(png, []byte("\x89PNG\r\n\x1a\n0000"), 0644))

	att, err := AttachImage(png)
	require.NoError(t, err)
	assert.Equal(t, "q.png", att.Name)
	assert.Equal(t, "image/png", att.MediaType)
	assert.True(t, filepath.IsAbs(att.Path))

	txt := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(txt, []byte("hello"), 0644))
	_, err = AttachImage(txt)
	assert.ErrorContains(t, err, "not an image")

	_, err = AttachImage(filepath.Join(dir, "missing.png"))
	assert.Error(t, err)
}
