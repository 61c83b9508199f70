package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// QuestionType describes how a check-in answer should be captured.
type QuestionType string

const (
	QuestionText   QuestionType = "text"
	QuestionNumber QuestionType = "number"
	QuestionScale  QuestionType = "scale" // 1-10 rating
)

// FormQuestion is a single prompt on a check-in form.
type FormQuestion struct {
	Key    string       `bson:"key" json:"key"` // Stable key answers are recorded under
	Prompt string       `bson:"prompt" json:"prompt"`
	Type   QuestionType `bson:"type" json:"type"`
}

// CheckInForm is the questionnaire a coach attaches to check-in series
// and one-off check-ins.
type CheckInForm struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	CoachID   primitive.ObjectID `bson:"coachId" json:"coachId"` // Coach who owns this form
	Title     string             `bson:"title" json:"title"`
	Questions []FormQuestion     `bson:"questions" json:"questions"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt" json:"updatedAt"`
}
