package tui

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func runPlain(t *testing.T, app *App, input string) string {
	t.Helper()
	var out bytes.Buffer
	err := NewPlain(app, strings.NewReader(input), &out).Run(context.Background())
	assert.NoError(t, err)
	return out.String()
}

func TestPlain_SendPrintsReply(t *testing.T) {
	app := newTestApp(t, &echoAnswerer{answer: "Consider your timeline..."})

	out := runPlain(t, app, "Rent or buy?\n")
	assert.Contains(t, out, "Consider your timeline...")
	assert.Len(t, app.Repo.Active().Messages, 2)
	assert.Equal(t, "Rent or buy", app.Repo.Active().Title)
}

func TestPlain_FailureShowsGenericMessage(t *testing.T) {
	app := newTestApp(t, &echoAnswerer{err: errors.New("connection refused")})

	out := runPlain(t, app, "Rent or buy?\n")
	assert.Contains(t, out, "error: Something went wrong. Try again.")
	assert.NotContains(t, out, "connection refused")
	assert.Len(t, app.Repo.Active().Messages, 1, "the user turn is kept")
}

func TestPlain_BlankLinesAreIgnored(t *testing.T) {
	a := &echoAnswerer{answer: "ok"}
	app := newTestApp(t, a)

	out := runPlain(t, app, "\n   \n")
	assert.NotContains(t, out, "error")
	assert.Empty(t, a.seen)
}

func TestPlain_DeleteConfirmation(t *testing.T) {
	app := newTestApp(t, &echoAnswerer{answer: "ok"})
	app.Repo.CreateSession()
	app.Repo.RenameSession(app.Repo.ActiveID(), "Keep me")

	out := runPlain(t, app, "/delete\nn\n")
	assert.Contains(t, out, `Delete "Keep me"? [y/N]`)
	assert.Contains(t, out, "Cancelled.")
	assert.Equal(t, 2, app.Repo.Len())

	out = runPlain(t, app, "/delete\ny\n")
	assert.Contains(t, out, `Deleted "Keep me".`)
	assert.Equal(t, 1, app.Repo.Len())
}

func TestPlain_QuitStopsReading(t *testing.T) {
	a := &echoAnswerer{answer: "ok"}
	app := newTestApp(t, a)

	out := runPlain(t, app, "/switch 9\n/quit\nnever sent\n")
	assert.Contains(t, out, `error: no session "9"`)
	assert.Empty(t, a.seen)
}

func TestPlain_CancelWhileWaitingForInput(t *testing.T) {
	app := newTestApp(t, &echoAnswerer{answer: "ok"})
	in, w := io.Pipe()
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	var out bytes.Buffer
	done := make(chan error, 1)
	go func() { done <- NewPlain(app, in, &out).Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
