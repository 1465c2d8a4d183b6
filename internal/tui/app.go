package tui

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/rexolve-ai/rexolve/internal/chat"
	"github.com/rexolve-ai/rexolve/internal/session"
	"go.uber.org/zap"
)

// App is the state both front ends share: the repository, the lifecycle
// manager and the image queued by /attach.
type App struct {
	Repo    *session.Repository
	Chat    *chat.Manager
	Backend string
	Log     *zap.Logger

	mu      sync.Mutex
	pending *session.Attachment
}

// NewApp wires a front end to repo and mgr.
func NewApp(repo *session.Repository, mgr *chat.Manager, backend string, log *zap.Logger) *App {
	if log == nil {
		log = zap.NewNop()
	}
	return &App{Repo: repo, Chat: mgr, Backend: backend, Log: log}
}

// Outcome is what running a command produced.
type Outcome struct {
	Info    string // neutral feedback
	Err     string // user-facing error
	Confirm string // non-empty: ask this, then re-run with confirmed=true
	Quit    bool
}

// Exec runs c against the active session. Destructive commands return a
// Confirm prompt until called with confirmed set.
func (a *App) Exec(c Command, confirmed bool) Outcome {
	if !c.Known() {
		return Outcome{Err: fmt.Sprintf("unknown command /%s (try /help)", c.Name)}
	}
	active := a.Repo.Active()
	if c.needsConfirm() && !confirmed {
		verb := "Delete"
		if c.Name == "clear" {
			verb = "Clear all messages in"
		}
		return Outcome{Confirm: fmt.Sprintf("%s %q?", verb, active.Title)}
	}

	switch c.Name {
	case "new":
		a.Repo.CreateSession()
		return Outcome{Info: "Started a new session."}
	case "rename":
		if c.Arg == "" {
			return Outcome{Err: "usage: /rename <title>"}
		}
		a.Repo.RenameSession(active.ID, c.Arg)
		return Outcome{Info: fmt.Sprintf("Renamed to %q.", c.Arg)}
	case "delete":
		a.Repo.DeleteSession(active.ID)
		return Outcome{Info: fmt.Sprintf("Deleted %q.", active.Title)}
	case "clear":
		a.Repo.Clear(active.ID)
		return Outcome{Info: "Cleared."}
	case "switch":
		id, ok := a.resolve(c.Arg)
		if !ok {
			return Outcome{Err: fmt.Sprintf("no session %q", c.Arg)}
		}
		a.Repo.SelectActive(id)
		return Outcome{}
	case "list":
		return Outcome{Info: a.List()}
	case "attach":
		return a.attach(c.Arg)
	case "help":
		return Outcome{Info: helpText}
	case "quit":
		return Outcome{Quit: true}
	}
	return Outcome{}
}

// List renders the numbered session list, marking the active one.
func (a *App) List() string {
	activeID := a.Repo.ActiveID()
	var b strings.Builder
	for i, s := range a.Repo.Sessions() {
		marker := " "
		if s.ID == activeID {
			marker = "*"
		}
		fmt.Fprintf(&b, "%s %2d. %s (%d messages)\n", marker, i+1, s.Title, len(s.Messages))
	}
	return strings.TrimRight(b.String(), "\n")
}

// Step moves the active session by delta positions, wrapping around.
func (a *App) Step(delta int) {
	sessions := a.Repo.Sessions()
	activeID := a.Repo.ActiveID()
	for i, s := range sessions {
		if s.ID == activeID {
			n := len(sessions)
			a.Repo.SelectActive(sessions[((i+delta)%n+n)%n].ID)
			return
		}
	}
}

// Pending returns the attachment queued for the next send, if any.
func (a *App) Pending() *session.Attachment {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.pending
}

// Begin starts a send on the active session carrying any pending
// attachment. The attachment is consumed only if the send was accepted.
func (a *App) Begin(text string) (*chat.Request, error) {
	a.mu.Lock()
	att := a.pending
	a.mu.Unlock()

	req, err := a.Chat.Begin(a.Repo.ActiveID(), text, att)
	if err != nil {
		return nil, err
	}
	a.mu.Lock()
	a.pending = nil
	a.mu.Unlock()
	return req, nil
}

// Complete finishes req; see chat.Manager.Complete.
func (a *App) Complete(ctx context.Context, req *chat.Request) (session.Message, error) {
	return a.Chat.Complete(ctx, req)
}

func (a *App) resolve(arg string) (string, bool) {
	sessions := a.Repo.Sessions()
	if n, err := strconv.Atoi(arg); err == nil {
		if n >= 1 && n <= len(sessions) {
			return sessions[n-1].ID, true
		}
		return "", false
	}
	for _, s := range sessions {
		if s.ID == arg {
			return s.ID, true
		}
	}
	return "", false
}

func (a *App) attach(path string) Outcome {
	if path == "" {
		return Outcome{Err: "usage: /attach <path>"}
	}
	att, err := chat.AttachImage(path)
	if err != nil {
		return Outcome{Err: fmt.Sprintf("cannot attach %s: %v", path, err)}
	}

	a.mu.Lock()
	a.pending = att
	a.mu.Unlock()
	return Outcome{Info: fmt.Sprintf("Attached %s; it will be sent with your next message.", att.Name)}
}
