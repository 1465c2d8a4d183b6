package chat

import (
	"errors"
	"fmt"

	"github.com/rexolve-ai/rexolve/internal/provider"
)

// Validation outcomes. A send that returns one of these did nothing; the UI
// ignores them silently.
var (
	ErrEmptyInput     = errors.New("empty input")
	ErrBusy           = errors.New("a send is already in flight")
	ErrUnknownSession = errors.New("unknown session")
)

// GenericFailureMessage is what users see for transport and server failures.
const GenericFailureMessage = "Something went wrong. Try again."

// FailureKind classifies a failed send.
type FailureKind int

const (
	FailureTransport FailureKind = iota
	FailureOCR
)

// Failure is a send that reached the network and did not produce a reply.
// Message is safe to show to the user; Err is the underlying cause.
type Failure struct {
	Kind    FailureKind
	Message string
	Err     error
}

func (f *Failure) Error() string {
	if f.Err == nil {
		return f.Message
	}
	return f.Message + ": " + f.Err.Error()
}

func (f *Failure) Unwrap() error { return f.Err }

// IsSilent reports whether err is a validation outcome the UI should not show.
func IsSilent(err error) bool {
	return errors.Is(err, ErrEmptyInput) || errors.Is(err, ErrBusy) || errors.Is(err, ErrUnknownSession)
}

// UserMessage returns the text to show for err, or "" for silent outcomes.
func UserMessage(err error) string {
	if err == nil || IsSilent(err) {
		return ""
	}
	var f *Failure
	if errors.As(err, &f) {
		return f.Message
	}
	if errors.Is(err, ErrOCRUnavailable) {
		return "This backend cannot read images."
	}
	return GenericFailureMessage
}

func transportFailure(err error) *Failure {
	return &Failure{Kind: FailureTransport, Message: GenericFailureMessage, Err: err}
}

// ocrFailure builds the more specific message OCR errors get, including the
// HTTP status and a body snippet when the server sent one.
func ocrFailure(err error) *Failure {
	msg := "Could not read the image."
	var se *provider.StatusError
	if errors.As(err, &se) {
		msg = fmt.Sprintf("Could not read the image (OCR status %d)", se.StatusCode)
		if se.Snippet != "" {
			msg += ": " + se.Snippet
		}
	}
	return &Failure{Kind: FailureOCR, Message: msg, Err: err}
}
