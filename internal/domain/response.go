package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CheckInResponse is a client's submission for one occurrence. The
// occurrence is always persisted under its canonical id before the
// response is written, so a response can never reference an id that does
// not resolve back to a week.
type CheckInResponse struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	AssignmentID string             `bson:"assignmentId" json:"assignmentId"` // Canonical occurrence id
	ClientID     primitive.ObjectID `bson:"clientId" json:"clientId"`
	Answers      map[string]string  `bson:"answers" json:"answers"` // Keyed by FormQuestion.Key
	PhotoKeys    []string           `bson:"photoKeys,omitempty" json:"photoKeys,omitempty"` // S3 object keys
	SubmittedAt  time.Time          `bson:"submittedAt" json:"submittedAt"`
}
