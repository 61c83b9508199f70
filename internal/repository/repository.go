package repository

import (
	"coachpoint/checkin-app/internal/domain"
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Error constants for repository layer
var (
	ErrNotFound     = RepositoryError("not found")
	ErrUpdateFailed = RepositoryError("update failed")
	ErrDeleteFailed = RepositoryError("delete failed")
)

// RepositoryError helps distinguish repository errors
type RepositoryError string

func (e RepositoryError) Error() string {
	return string(e)
}

// UserRepository defines the interface for interacting with user data.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) (primitive.ObjectID, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.User, error)
	AddClientIDToCoach(ctx context.Context, coachID, clientID primitive.ObjectID) error
	GetClientsByCoachID(ctx context.Context, coachID primitive.ObjectID) ([]domain.User, error)
	SetCoachForClient(ctx context.Context, clientID, coachID primitive.ObjectID) error
}

// FormRepository defines the interface for interacting with check-in forms.
type FormRepository interface {
	Create(ctx context.Context, form *domain.CheckInForm) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.CheckInForm, error)
	GetByCoachID(ctx context.Context, coachID primitive.ObjectID) ([]domain.CheckInForm, error)
}

// SeriesRepository defines the interface for interacting with recurring
// check-in series.
type SeriesRepository interface {
	Create(ctx context.Context, series *domain.CheckInSeries) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.CheckInSeries, error)
	GetByClientID(ctx context.Context, clientID primitive.ObjectID) ([]domain.CheckInSeries, error)
	GetByCoachAndClientID(ctx context.Context, coachID, clientID primitive.ObjectID) ([]domain.CheckInSeries, error)
	ListUnpaused(ctx context.Context) ([]domain.CheckInSeries, error)
	SetPaused(ctx context.Context, id primitive.ObjectID, paused bool) error
	SetTotalWeeks(ctx context.Context, id primitive.ObjectID, totalWeeks *int) error
	Delete(ctx context.Context, id primitive.ObjectID) error
}

// AssignmentRepository defines the interface for interacting with check-in
// occurrence documents. Occurrence ids are canonical strings, not
// ObjectIDs (see domain.OccurrenceRef).
type AssignmentRepository interface {
	Create(ctx context.Context, assignment *domain.CheckInAssignment) error
	// CreateMany batch-inserts pre-materialized occurrences in one write.
	CreateMany(ctx context.Context, assignments []domain.CheckInAssignment) error
	GetByID(ctx context.Context, id string) (*domain.CheckInAssignment, error)
	GetByClientID(ctx context.Context, clientID primitive.ObjectID) ([]domain.CheckInAssignment, error)
	GetBySeriesID(ctx context.Context, seriesID primitive.ObjectID) ([]domain.CheckInAssignment, error)
	// Upsert persists the occurrence under its canonical id, replacing any
	// existing document. Used to promote a virtual occurrence on submit.
	Upsert(ctx context.Context, assignment *domain.CheckInAssignment) error
	// SetSubmitted merge-updates status and response link without touching
	// the milestone set.
	SetSubmitted(ctx context.Context, id string, responseID primitive.ObjectID, at time.Time) error
	// RecordMilestone durably adds m to the fired set, creating the
	// document from the given occurrence if it only existed virtually.
	// The set only grows; recording an already-present milestone is a no-op.
	RecordMilestone(ctx context.Context, assignment *domain.CheckInAssignment, m domain.Milestone) error
	// ListClosingBetween returns unsubmitted stored occurrences whose close
	// time falls in [from, to], ordered by close time.
	ListClosingBetween(ctx context.Context, from, to time.Time) ([]domain.CheckInAssignment, error)
	// CloseBySeries marks every non-submitted occurrence of a series closed.
	CloseBySeries(ctx context.Context, seriesID primitive.ObjectID) error
}

// ResponseRepository defines the interface for interacting with check-in
// responses.
type ResponseRepository interface {
	Create(ctx context.Context, response *domain.CheckInResponse) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.CheckInResponse, error)
	GetByAssignmentID(ctx context.Context, assignmentID string) (*domain.CheckInResponse, error)
	GetByAssignmentIDs(ctx context.Context, assignmentIDs []string) ([]domain.CheckInResponse, error)
}
