package chat

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/rexolve-ai/rexolve/internal/provider"
	"github.com/rexolve-ai/rexolve/internal/session"
	"go.uber.org/zap"
)

var (
	// ErrOCRUnavailable is returned by Begin when an image is attached but no
	// Recognizer is configured. Nothing is appended.
	ErrOCRUnavailable = errors.New("image attachments need an OCR backend")

	// ErrNotInFlight is returned by Complete for a request that is not the
	// one currently in flight.
	ErrNotInFlight = errors.New("request is not in flight")
)

// Request is a send that has passed the busy gate and whose user message has
// already been appended. It must be passed to Complete exactly once.
type Request struct {
	SessionID  string
	Message    session.Message
	Transcript []provider.Turn
}

// Manager owns the busy flag and drives each send through Transition.
// It is safe for concurrent use; at most one send is in flight at a time.
type Manager struct {
	repo       *session.Repository
	answerer   provider.Answerer
	recognizer provider.Recognizer
	loadImage  func(path string) (provider.Image, error)
	timeout    time.Duration
	log        *zap.Logger

	mu       sync.Mutex
	state    State
	lastErr  string
	inflight *Request
}

// Option customizes a Manager.
type Option func(*Manager)

// WithRecognizer enables the image/OCR path.
func WithRecognizer(r provider.Recognizer) Option {
	return func(m *Manager) { m.recognizer = r }
}

// WithImageLoader replaces provider.LoadImage for reading attachments.
func WithImageLoader(load func(path string) (provider.Image, error)) Option {
	return func(m *Manager) {
		if load != nil {
			m.loadImage = load
		}
	}
}

// WithTimeout bounds each send. Zero (the default) means no timeout.
func WithTimeout(d time.Duration) Option {
	return func(m *Manager) { m.timeout = d }
}

func WithLogger(log *zap.Logger) Option {
	return func(m *Manager) {
		if log != nil {
			m.log = log
		}
	}
}

func NewManager(repo *session.Repository, answerer provider.Answerer, opts ...Option) *Manager {
	m := &Manager{
		repo:      repo,
		answerer:  answerer,
		loadImage: provider.LoadImage,
		log:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Busy reports whether a send is in flight.
func (m *Manager) Busy() bool {
	return m.State() != StateIdle
}

// LastError returns the user-facing message of the most recent failure, or
// "" if the last send succeeded or none has run yet.
func (m *Manager) LastError() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastErr
}

// Send runs a full send: Begin followed by Complete.
func (m *Manager) Send(ctx context.Context, sessionID, text string, att *session.Attachment) (session.Message, error) {
	req, err := m.Begin(sessionID, text, att)
	if err != nil {
		return session.Message{}, err
	}
	return m.Complete(ctx, req)
}

// Begin validates the input, takes the busy flag and appends the user's
// message to the session before any network call. The returned transcript
// covers every message of the session including the new one.
func (m *Manager) Begin(sessionID, text string, att *session.Attachment) (*Request, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyInput
	}
	if att != nil && m.recognizer == nil {
		return nil, ErrOCRUnavailable
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != StateIdle {
		m.log.Debug("send dropped while busy", zap.String("session", sessionID))
		return nil, ErrBusy
	}

	msg := session.Message{Role: session.RoleUser, Text: text, Attachment: att}
	if !m.repo.AppendMessage(sessionID, msg) {
		return nil, ErrUnknownSession
	}
	s, _ := m.repo.Session(sessionID)

	req := &Request{
		SessionID:  sessionID,
		Message:    msg,
		Transcript: BuildTranscript(s.Messages),
	}
	m.state = Transition(m.state, EventSubmit)
	m.lastErr = ""
	m.inflight = req
	return req, nil
}

// Complete performs the network part of req and reconciles the result. The
// manager is back to Idle when it returns, whatever the outcome. On failure
// the user's message stays in the session.
func (m *Manager) Complete(ctx context.Context, req *Request) (session.Message, error) {
	m.mu.Lock()
	if req == nil || m.inflight != req {
		m.mu.Unlock()
		return session.Message{}, ErrNotInFlight
	}
	m.mu.Unlock()
	defer m.settle()

	if m.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.timeout)
		defer cancel()
	}

	start := time.Now()
	transcript := req.Transcript
	if att := req.Message.Attachment; att != nil {
		text, err := m.recognize(ctx, att)
		if err != nil {
			f := ocrFailure(err)
			m.fail(req, f)
			return session.Message{}, f
		}
		transcript = append([]provider.Turn{{Role: provider.RoleSystem, Content: text}}, transcript...)
	}

	answer, err := m.answerer.Answer(ctx, transcript)
	if err != nil {
		f := transportFailure(err)
		m.fail(req, f)
		return session.Message{}, f
	}

	reply := session.Message{Role: session.RoleAssistant, Text: answer}
	if !m.repo.AppendMessage(req.SessionID, reply) {
		m.log.Warn("session removed before reply arrived", zap.String("session", req.SessionID))
	}

	m.mu.Lock()
	m.state = Transition(m.state, EventReplied)
	m.mu.Unlock()

	m.log.Info("reply received",
		zap.String("session", req.SessionID),
		zap.String("backend", m.answerer.Name()),
		zap.Int("turns", len(transcript)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return reply, nil
}

func (m *Manager) recognize(ctx context.Context, att *session.Attachment) (string, error) {
	img, err := m.loadImage(att.Path)
	if err != nil {
		return "", err
	}
	if att.MediaType != "" {
		img.MediaType = att.MediaType
	}
	if att.Name != "" {
		img.Name = att.Name
	}
	return m.recognizer.Recognize(ctx, img)
}

func (m *Manager) fail(req *Request, f *Failure) {
	m.mu.Lock()
	m.state = Transition(m.state, EventFailed)
	m.lastErr = f.Message
	m.mu.Unlock()

	m.log.Warn("send failed",
		zap.String("session", req.SessionID),
		zap.Int("kind", int(f.Kind)),
		zap.Error(f.Err),
	)
}

func (m *Manager) settle() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = Transition(m.state, EventSettled)
	m.inflight = nil
}

// BuildTranscript converts session messages to backend turns, in order.
// Attachments are not part of the transcript.
func BuildTranscript(msgs []session.Message) []provider.Turn {
	turns := make([]provider.Turn, 0, len(msgs))
	for _, msg := range msgs {
		turns = append(turns, provider.Turn{Role: string(msg.Role), Content: msg.Text})
	}
	return turns
}
