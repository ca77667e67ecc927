package lifecycle

import "errors"

// ErrIllegalTransition is returned when an event is not a legal edge
// from the session's current status; the store must not mutate state
// when this is returned (spec.md §4.3 invariant).
var ErrIllegalTransition = errors.New("lifecycle: illegal transition")
