package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AssignmentStatus type for check-in occurrence lifecycle
type AssignmentStatus string

const (
	StatusScheduled AssignmentStatus = "scheduled" // Window not open yet
	StatusOpen      AssignmentStatus = "open"      // Client may submit
	StatusSubmitted AssignmentStatus = "submitted" // Response recorded
	StatusMissed    AssignmentStatus = "missed"    // Window closed without a response
	StatusClosed    AssignmentStatus = "closed"    // Series retired/deactivated by the coach
)

// Milestone is a time-relative reminder trigger for an occurrence.
type Milestone string

const (
	MilestoneClosing24h Milestone = "closing_24h" // 24h before the window closes
	MilestoneClosing1h  Milestone = "closing_1h"  // 1h before the window closes
	MilestoneClosed2h   Milestone = "closed_2h"   // 2h after it closed unsubmitted
)

// CheckInAssignment is one occurrence of a check-in: week N of a recurring
// series, or a one-off the coach created directly.
//
// The ID is a string, not an ObjectID: recurring occurrences use the
// canonical "<seriesHex>_week_<n>" encoding (see occurrence.go) so week N
// of a series has one stable identity whether it is still virtual or has
// been persisted. One-off occurrences use a freestanding ObjectID hex.
type CheckInAssignment struct {
	ID       string              `bson:"_id" json:"id"`
	SeriesID *primitive.ObjectID `bson:"seriesId,omitempty" json:"seriesId,omitempty"` // nil for one-off
	Week     *int                `bson:"week,omitempty" json:"week,omitempty"`         // 1-based, nil for one-off
	CoachID  primitive.ObjectID  `bson:"coachId" json:"coachId"`   // Denormalized for queries/auth
	ClientID primitive.ObjectID  `bson:"clientId" json:"clientId"`
	FormID   primitive.ObjectID  `bson:"formId" json:"formId"`
	OpensAt  time.Time           `bson:"opensAt" json:"opensAt"`
	// ClosesAt is derived (OpensAt + window duration). The stored value is
	// authoritative for one-offs and in pre-created mode; in computed mode
	// it is recomputed from the live series configuration on every read.
	ClosesAt        time.Time           `bson:"closesAt" json:"closesAt"`
	Status          AssignmentStatus    `bson:"status" json:"status"`
	ResponseID      *primitive.ObjectID `bson:"responseId,omitempty" json:"responseId,omitempty"` // Set once submitted
	MilestonesFired []Milestone         `bson:"milestonesFired,omitempty" json:"milestonesFired,omitempty"` // Grows monotonically
	CreatedAt       time.Time           `bson:"createdAt" json:"createdAt"`
	UpdatedAt       time.Time           `bson:"updatedAt" json:"updatedAt"`
}

// IsRecurring reports whether this occurrence belongs to a series week.
func (a *CheckInAssignment) IsRecurring() bool {
	return a.SeriesID != nil && a.Week != nil
}

// Window returns the occurrence's submission window as currently recorded
// on the document.
func (a *CheckInAssignment) Window() Window {
	return Window{OpensAt: a.OpensAt, ClosesAt: a.ClosesAt}
}

// MilestoneFired reports whether m is already in the fired set.
func (a *CheckInAssignment) MilestoneFired(m Milestone) bool {
	for _, fired := range a.MilestonesFired {
		if fired == m {
			return true
		}
	}
	return false
}

// Submitted reports whether a response has been recorded.
func (a *CheckInAssignment) Submitted() bool {
	return a.Status == StatusSubmitted || a.ResponseID != nil
}
