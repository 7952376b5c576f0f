package scheduler

import "fmt"

// State is the sampling lifecycle. It only ever moves forward.
type State int32

const (
	Uninitialized State = iota
	Calibrating
	Steady
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Calibrating:
		return "calibrating"
	case Steady:
		return "steady"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// advance moves to the next state. Skipping or regressing is a programming
// error and panics.
func (s *Scheduler) advance(to State) {
	from := s.State()
	if to != from+1 {
		panic(fmt.Sprintf("scheduler: illegal transition %s -> %s", from, to))
	}
	s.state.Store(int32(to))
	s.logger.Debug("state", "from", from.String(), "to", to.String())
}
