package domain

import "time"

// WindowState classifies a point in time relative to a submission window.
type WindowState int

const (
	WindowNotYetOpen WindowState = iota
	WindowOpen
	WindowClosingSoon // Sub-state of open; gates reminders, never stored
	WindowClosed
)

func (s WindowState) String() string {
	switch s {
	case WindowNotYetOpen:
		return "not_yet_open"
	case WindowOpen:
		return "open"
	case WindowClosingSoon:
		return "closing_soon"
	case WindowClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// ClosingSoonLead is how far before close a window counts as closing soon.
// Matches the earliest reminder milestone.
const ClosingSoonLead = 24 * time.Hour

// Window is the open-to-close range during which a client may submit.
type Window struct {
	OpensAt  time.Time
	ClosesAt time.Time
}

// ComputeWindow derives a window from its open time and duration.
func ComputeWindow(opensAt time.Time, duration time.Duration) Window {
	return Window{OpensAt: opensAt, ClosesAt: opensAt.Add(duration)}
}

// Classify places now relative to the window. The close edge is inclusive:
// a submission at exactly ClosesAt is still in time.
func (w Window) Classify(now time.Time) WindowState {
	switch {
	case now.Before(w.OpensAt):
		return WindowNotYetOpen
	case now.After(w.ClosesAt):
		return WindowClosed
	case !now.Before(w.ClosesAt.Add(-ClosingSoonLead)):
		return WindowClosingSoon
	default:
		return WindowOpen
	}
}

// Contains reports whether a submission at now is inside the window.
func (w Window) Contains(now time.Time) bool {
	s := w.Classify(now)
	return s == WindowOpen || s == WindowClosingSoon
}

// StatusAt maps a window and submission state to the occurrence status a
// client should see at now. Used by the materializer; it has no side
// effects and never writes the result back.
func StatusAt(w Window, now time.Time, submitted bool) AssignmentStatus {
	if submitted {
		return StatusSubmitted
	}
	switch w.Classify(now) {
	case WindowNotYetOpen:
		return StatusScheduled
	case WindowClosed:
		return StatusMissed
	default:
		return StatusOpen
	}
}
