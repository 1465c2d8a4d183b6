package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"github.com/rexolve-ai/rexolve/internal/chat"
	"github.com/rexolve-ai/rexolve/internal/session"
	"go.uber.org/zap"
)

// replyMsg is delivered when a send started from the input line settles.
type replyMsg struct {
	sessionID string
	err       error
}

type inputMode int

const (
	modeInput inputMode = iota
	modeConfirm
	modeRename
)

// statusBarHeight + notice line + input line
const chromeHeight = 3

// Model is the bubbletea model for the interactive chat.
type Model struct {
	ctx context.Context
	app *App

	viewport  viewport.Model
	textinput textinput.Model
	spinner   spinner.Model
	width     int
	height    int

	mode       inputMode
	confirmCmd Command
	confirmMsg string
	draft      string // input stashed while renaming

	sendingID string // session the in-flight send belongs to
	notice    string
	errLine   string

	follow  bool   // jump to the bottom on the next refresh
	shownID string // session the viewport last rendered

	mdRenderer      *glamour.TermRenderer
	mdRendererWidth int

	quitting bool
}

// NewModel creates the initial model. Sends use ctx.
func NewModel(ctx context.Context, app *App) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask about a decision, or /help"
	ti.CharLimit = 4096
	ti.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = spinnerStyle

	return Model{
		ctx:       ctx,
		app:       app,
		viewport:  viewport.New(80, 20),
		textinput: ti,
		spinner:   sp,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.viewport.Width = max(m.mainWidth(), 1)
		m.viewport.Height = max(m.height-chromeHeight, 1)
		m.textinput.Width = max(m.mainWidth()-4, 1)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)

	case replyMsg:
		m.sendingID = ""
		if msg.err != nil {
			m.errLine = chat.UserMessage(msg.err)
		}

	case tea.KeyMsg:
		var cmd tea.Cmd
		m, cmd = m.handleKey(msg)
		if m.quitting {
			return m, tea.Quit
		}
		cmds = append(cmds, cmd)
	}

	m.refresh()
	return m, tea.Batch(cmds...)
}

func (m Model) handleKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		m.quitting = true
		return m, nil
	}

	switch m.mode {
	case modeConfirm:
		switch msg.String() {
		case "y", "Y", "enter":
			m.mode = modeInput
			m.apply(m.app.Exec(m.confirmCmd, true))
		case "n", "N", "esc":
			m.mode = modeInput
			m.notice = "Cancelled."
		}
		return m, nil

	case modeRename:
		switch msg.String() {
		case "enter":
			m.app.Repo.RenameSession(m.app.Repo.ActiveID(), m.textinput.Value())
			m.endRename()
			return m, nil
		case "esc":
			m.endRename()
			return m, nil
		}
		var cmd tea.Cmd
		m.textinput, cmd = m.textinput.Update(msg)
		return m, cmd
	}

	switch msg.String() {
	case "enter":
		return m.submit()
	case "tab":
		m.app.Step(1)
		m.clearFeedback()
		return m, nil
	case "shift+tab":
		m.app.Step(-1)
		m.clearFeedback()
		return m, nil
	case "ctrl+n":
		m.app.Repo.CreateSession()
		m.clearFeedback()
		return m, nil
	case "ctrl+r":
		m.mode = modeRename
		m.draft = m.textinput.Value()
		m.textinput.Prompt = "Rename: "
		m.textinput.SetValue(m.app.Repo.Active().Title)
		m.textinput.CursorEnd()
		return m, nil
	case "ctrl+d":
		m.confirmCmd = Command{Name: "delete"}
		m.apply(m.app.Exec(m.confirmCmd, false))
		return m, nil
	case "ctrl+l":
		m.confirmCmd = Command{Name: "clear"}
		m.apply(m.app.Exec(m.confirmCmd, false))
		return m, nil
	case "pgup", "pgdown":
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.textinput, cmd = m.textinput.Update(msg)
	return m, cmd
}

// submit handles enter on the input line. While a send is in flight the
// keystroke is ignored and the typed text is kept.
func (m Model) submit() (Model, tea.Cmd) {
	if m.app.Chat.Busy() {
		return m, nil
	}
	value := m.textinput.Value()

	if c, ok := ParseCommand(value); ok {
		m.textinput.SetValue("")
		m.clearFeedback()
		m.confirmCmd = c
		m.apply(m.app.Exec(c, false))
		return m, nil
	}

	req, err := m.app.Begin(value)
	if err != nil {
		m.errLine = chat.UserMessage(err)
		return m, nil
	}
	m.textinput.SetValue("")
	m.clearFeedback()
	m.sendingID = req.SessionID
	m.follow = true
	return m, tea.Batch(m.complete(req), m.spinner.Tick)
}

func (m Model) complete(req *chat.Request) tea.Cmd {
	ctx, app := m.ctx, m.app
	return func() tea.Msg {
		_, err := app.Complete(ctx, req)
		if err != nil {
			app.Log.Debug("send settled with error", zap.String("session", req.SessionID), zap.Error(err))
		}
		return replyMsg{sessionID: req.SessionID, err: err}
	}
}

func (m *Model) apply(out Outcome) {
	switch {
	case out.Quit:
		m.quitting = true
	case out.Confirm != "":
		m.mode = modeConfirm
		m.confirmMsg = out.Confirm
	case out.Err != "":
		m.errLine = out.Err
	default:
		m.notice = out.Info
	}
}

func (m *Model) endRename() {
	m.mode = modeInput
	m.textinput.Prompt = "> "
	m.textinput.SetValue(m.draft)
	m.draft = ""
}

func (m *Model) clearFeedback() {
	m.notice = ""
	m.errLine = ""
}

// refresh re-renders the transcript. The viewport sticks to the bottom only
// when it was already there, so a scrolled-back view survives spinner ticks.
func (m *Model) refresh() {
	activeID := m.app.Repo.ActiveID()
	follow := m.follow || m.viewport.AtBottom() || activeID != m.shownID
	m.viewport.SetContent(m.renderTranscript())
	if follow {
		m.viewport.GotoBottom()
	}
	m.follow = false
	m.shownID = activeID
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var feedback string
	switch {
	case m.mode == modeConfirm:
		feedback = confirmHintStyle.Render(m.confirmMsg + "  y = yes • n = no")
	case m.errLine != "":
		feedback = errorStyle.Render(m.errLine)
	}

	main := lipgloss.JoinVertical(lipgloss.Left,
		m.viewport.View(),
		feedback,
		m.textinput.View(),
	)
	body := lipgloss.JoinHorizontal(lipgloss.Top, m.renderSidebar(), main)
	return body + "\n" + statusBarStyle.Width(max(m.width, 1)).Render(m.statusLine())
}

func (m Model) statusLine() string {
	parts := []string{"rexolve", m.app.Backend}
	if m.sendingID != "" {
		parts = append(parts, "sending")
	}
	if att := m.app.Pending(); att != nil {
		parts = append(parts, "image: "+att.Name)
	}
	parts = append(parts, "tab switch • ctrl+n new • ctrl+r rename • ctrl+d delete • ctrl+l clear")
	return strings.Join(parts, " | ")
}

func (m Model) mainWidth() int {
	return m.width - sidebarWidth - 1
}

// renderSidebar lists session titles, truncated by display width so wide
// characters never wrap. The window scrolls to keep the active session visible.
func (m Model) renderSidebar() string {
	sessions := m.app.Repo.Sessions()
	activeID := m.app.Repo.ActiveID()

	rows := max(m.height-2, 1)
	start := 0
	for i, s := range sessions {
		if s.ID == activeID && i >= rows {
			start = i - rows + 1
		}
	}

	lines := []string{sidebarHeaderStyle.Render(fmt.Sprintf("Sessions (%d)", len(sessions)))}
	for i := start; i < len(sessions) && i < start+rows; i++ {
		s := sessions[i]
		title := sidebarTitle(s.Title)
		if s.ID == activeID {
			lines = append(lines, activeItemStyle.Render("› "+title))
		} else {
			lines = append(lines, itemStyle.Render("  "+title))
		}
	}
	return sidebarStyle.Height(max(m.height-1, 1)).Render(strings.Join(lines, "\n"))
}

func sidebarTitle(title string) string {
	return runewidth.Truncate(title, sidebarWidth-3, "…")
}

func (m *Model) renderTranscript() string {
	active := m.app.Repo.Active()
	var b strings.Builder
	if len(active.Messages) == 0 && m.notice == "" {
		b.WriteString(systemStyle.Render("Describe the decision you are weighing. Enter sends, /help lists commands."))
		b.WriteString("\n")
	}
	for _, msg := range active.Messages {
		b.WriteString(m.renderMessage(msg))
		b.WriteString("\n\n")
	}
	if m.sendingID == active.ID && m.sendingID != "" {
		b.WriteString(m.spinner.View() + " Thinking...\n")
	}
	if m.notice != "" {
		b.WriteString(systemStyle.Render(m.notice))
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m *Model) renderMessage(msg session.Message) string {
	switch msg.Role {
	case session.RoleUser:
		out := userStyle.Render("You: ") + msg.Text
		if msg.Attachment != nil {
			out += "\n" + attachmentStyle.Render("  [image: "+msg.Attachment.Name+"]")
		}
		return out
	case session.RoleAssistant:
		return m.renderMarkdown(msg.Text)
	}
	return systemStyle.Render(msg.Text)
}

func (m *Model) getMarkdownRenderer() *glamour.TermRenderer {
	width := m.mainWidth()
	if width <= 0 {
		width = 80
	}
	wrapWidth := width - 4
	if m.mdRenderer != nil && m.mdRendererWidth == wrapWidth {
		return m.mdRenderer
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle("dark"),
		glamour.WithWordWrap(wrapWidth),
	)
	if err != nil {
		return nil
	}
	m.mdRenderer = r
	m.mdRendererWidth = wrapWidth
	return r
}

func (m *Model) renderMarkdown(text string) string {
	r := m.getMarkdownRenderer()
	if r == nil {
		return text
	}
	rendered, err := r.Render(text)
	if err != nil {
		return text
	}
	return strings.Trim(rendered, "\n")
}
