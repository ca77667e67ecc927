package session

import (
	"time"

	"github.com/lee-jian-hui/tts-system/internal/session/lifecycle"
)

// Transition is a single allowed edge in the session state machine.
type Transition struct {
	From  Status
	To    Status
	Event lifecycle.EventKind
}

// table enumerates every legal (from, event) -> to edge of spec.md §3:
// Pending -> Streaming -> {Completed, Failed, Cancelled}, and
// Pending -> Cancelled directly.
var table = []Transition{
	{From: StatusPending, To: StatusStreaming, Event: lifecycle.EvEnqueued},
	{From: StatusStreaming, To: StatusCompleted, Event: lifecycle.EvCompleted},
	{From: StatusStreaming, To: StatusFailed, Event: lifecycle.EvFailed},
	{From: StatusPending, To: StatusCancelled, Event: lifecycle.EvCancelled},
	{From: StatusStreaming, To: StatusCancelled, Event: lifecycle.EvCancelled},
}

// TransitionFor returns the allowed transition for a given state+event,
// or false if the edge does not exist in the table.
func TransitionFor(from Status, ev lifecycle.EventKind) (Transition, bool) {
	for _, tr := range table {
		if tr.From == from && tr.Event == ev {
			return tr, true
		}
	}
	return Transition{}, false
}

// Dispatch resolves and applies the transition for ev against s's
// current status. On success it mutates s in place and returns the
// transition taken; on an illegal edge it returns
// lifecycle.ErrIllegalTransition and leaves s untouched.
func Dispatch(s *Session, ev lifecycle.Event, now time.Time) (Transition, error) {
	tr, ok := TransitionFor(s.Status, ev.Kind)
	if !ok {
		return Transition{}, lifecycle.ErrIllegalTransition
	}

	s.Status = tr.To
	switch tr.To {
	case StatusStreaming:
		t := now
		s.StartedAt = &t
	case StatusCompleted, StatusFailed, StatusCancelled:
		t := now
		s.FinishedAt = &t
		if tr.To == StatusFailed {
			s.FailureReason = ev.Reason
		}
	}
	return tr, nil
}
