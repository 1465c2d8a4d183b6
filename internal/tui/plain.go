package tui

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/rexolve-ai/rexolve/internal/chat"
)

// Plain is the line-based front end used when stdout is not a terminal.
// Each send blocks until the reply (or failure) arrives.
type Plain struct {
	app     *App
	scanner *bufio.Scanner
	out     io.Writer

	// lines is fed by a single reader goroutine so a blocked read never
	// holds up cancellation. scanErr is set before lines is closed.
	lines   chan string
	scanErr error
	start   sync.Once
}

// NewPlain creates a Plain front end reading lines from in.
func NewPlain(app *App, in io.Reader, out io.Writer) *Plain {
	s := bufio.NewScanner(in)
	s.Buffer(make([]byte, 1024*1024), 1024*1024)
	return &Plain{app: app, scanner: s, out: out, lines: make(chan string)}
}

// Run reads lines until EOF, /quit or ctx is done.
func (p *Plain) Run(ctx context.Context) error {
	fmt.Fprintf(p.out, "rexolve (%s) session: %s\nType /help for commands.\n", p.app.Backend, p.app.Repo.Active().Title)
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		line, err := p.readLine(ctx, "\n> ")
		if err == io.EOF || ctx.Err() != nil {
			return nil
		}
		if err != nil {
			return err
		}

		if c, ok := ParseCommand(line); ok {
			if quit := p.exec(ctx, c); quit {
				return nil
			}
			continue
		}
		p.send(ctx, line)
	}
}

func (p *Plain) exec(ctx context.Context, c Command) bool {
	out := p.app.Exec(c, false)
	if out.Confirm != "" {
		answer, err := p.readLine(ctx, out.Confirm+" [y/N] ")
		if err != nil || strings.ToLower(answer) != "y" {
			fmt.Fprintln(p.out, "Cancelled.")
			return false
		}
		out = p.app.Exec(c, true)
	}
	switch {
	case out.Err != "":
		fmt.Fprintln(p.out, "error: "+out.Err)
	case out.Info != "":
		fmt.Fprintln(p.out, out.Info)
	}
	if c.Name == "switch" && out.Err == "" {
		fmt.Fprintf(p.out, "Switched to %q.\n", p.app.Repo.Active().Title)
	}
	return out.Quit
}

func (p *Plain) send(ctx context.Context, line string) {
	req, err := p.app.Begin(line)
	if err != nil {
		if msg := chat.UserMessage(err); msg != "" {
			fmt.Fprintln(p.out, "error: "+msg)
		}
		return
	}
	if req.Message.Attachment != nil {
		fmt.Fprintf(p.out, "(reading %s...)\n", req.Message.Attachment.Name)
	}
	reply, err := p.app.Complete(ctx, req)
	if err != nil {
		fmt.Fprintln(p.out, "error: "+chat.UserMessage(err))
		return
	}
	fmt.Fprintln(p.out)
	fmt.Fprintln(p.out, reply.Text)
}

// readLine prints prompt and waits for the next input line or for ctx.
func (p *Plain) readLine(ctx context.Context, prompt string) (string, error) {
	fmt.Fprint(p.out, prompt)
	p.start.Do(func() { go p.scan() })
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case line, ok := <-p.lines:
		if !ok {
			if p.scanErr != nil {
				return "", p.scanErr
			}
			return "", io.EOF
		}
		return strings.TrimSpace(line), nil
	}
}

func (p *Plain) scan() {
	defer close(p.lines)
	for p.scanner.Scan() {
		p.lines <- p.scanner.Text()
	}
	p.scanErr = p.scanner.Err()
}
