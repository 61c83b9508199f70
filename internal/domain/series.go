package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Cadence describes how often a series recurs. Weekly is the only
// supported cadence for now.
type Cadence string

const CadenceWeekly Cadence = "weekly"

// Interval returns the duration between consecutive occurrences.
func (c Cadence) Interval() time.Duration {
	// Only weekly exists today; the type is here so adding e.g. biweekly
	// does not ripple through callers.
	return 7 * 24 * time.Hour
}

// CheckInSeries is the recurring check-in template a coach assigns to a
// client. Occurrences (CheckInAssignment) are derived from it week by week.
// Immutable after creation except for pause/resume and total-weeks edits.
type CheckInSeries struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	CoachID        primitive.ObjectID `bson:"coachId" json:"coachId"`
	ClientID       primitive.ObjectID `bson:"clientId" json:"clientId"`
	FormID         primitive.ObjectID `bson:"formId" json:"formId"`
	Cadence        Cadence            `bson:"cadence" json:"cadence"`
	WindowDuration time.Duration      `bson:"windowDuration" json:"windowDuration"` // e.g. 48h; stored as nanoseconds
	TotalWeeks     *int               `bson:"totalWeeks,omitempty" json:"totalWeeks,omitempty"` // nil = indefinite
	StartAt        time.Time          `bson:"startAt" json:"startAt"` // Week 1 opens here
	Paused         bool               `bson:"paused" json:"paused"`
	CreatedAt      time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt      time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// WeekAt returns the 1-based week number in effect at t, clamped to
// [1, TotalWeeks] when the series is bounded. Returns false when the
// series has not started yet at t.
func (s *CheckInSeries) WeekAt(t time.Time) (int, bool) {
	if t.Before(s.StartAt) {
		return 0, false
	}
	week := int(t.Sub(s.StartAt)/s.Cadence.Interval()) + 1
	if s.TotalWeeks != nil && week > *s.TotalWeeks {
		week = *s.TotalWeeks
	}
	return week, true
}

// WeekOpensAt returns the submission-window open time of the given week.
func (s *CheckInSeries) WeekOpensAt(week int) time.Time {
	return s.StartAt.Add(time.Duration(week-1) * s.Cadence.Interval())
}

// WindowFor computes the submission window of the given week from the
// current series configuration. Windows are always derived, never read
// back from stored occurrence documents, so a retroactive configuration
// change re-times every occurrence computed after it.
func (s *CheckInSeries) WindowFor(week int) Window {
	return ComputeWindow(s.WeekOpensAt(week), s.WindowDuration)
}

// Exhausted reports whether the series' last window has closed at t.
// Indefinite series never exhaust.
func (s *CheckInSeries) Exhausted(t time.Time) bool {
	if s.TotalWeeks == nil {
		return false
	}
	return s.WindowFor(*s.TotalWeeks).Classify(t) == WindowClosed
}

// Active reports whether the series should still produce occurrences at t.
func (s *CheckInSeries) Active(t time.Time) bool {
	return !s.Paused && !s.Exhausted(t)
}
