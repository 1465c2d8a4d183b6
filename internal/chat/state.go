// Package chat runs the request lifecycle of a send: it gates concurrent
// sends behind a process-wide busy flag, appends the user's turn
// optimistically, calls the answering backend with the whole transcript and
// reconciles the outcome back into the session repository.
package chat

// State is the lifecycle state of the (single) outstanding send.
type State int

const (
	StateIdle State = iota
	StateSending
	StateSucceeded
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSending:
		return "sending"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// Event drives Transition.
type Event int

const (
	// EventSubmit starts a send.
	EventSubmit Event = iota
	// EventReplied marks a successful reply.
	EventReplied
	// EventFailed marks an OCR, transport or server failure.
	EventFailed
	// EventSettled ends the send regardless of outcome.
	EventSettled
)

// Transition is the pure lifecycle function:
//
//	Idle --Submit--> Sending --Replied--> Succeeded --Settled--> Idle
//	                 Sending --Failed---> Failed    --Settled--> Idle
//
// Settled from Sending also returns to Idle so the busy flag can never stick.
// Any other pair leaves the state unchanged.
func Transition(s State, e Event) State {
	switch {
	case s == StateIdle && e == EventSubmit:
		return StateSending
	case s == StateSending && e == EventReplied:
		return StateSucceeded
	case s == StateSending && e == EventFailed:
		return StateFailed
	case e == EventSettled && s != StateIdle:
		return StateIdle
	}
	return s
}
