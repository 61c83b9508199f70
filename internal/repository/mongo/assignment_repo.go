package mongo

import (
	"coachpoint/checkin-app/internal/domain"
	"coachpoint/checkin-app/internal/repository"
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const assignmentCollectionName = "checkin_assignments"

// mongoAssignmentRepository implements repository.AssignmentRepository
type mongoAssignmentRepository struct {
	collection *mongo.Collection
}

// NewMongoAssignmentRepository creates a new check-in occurrence repository
// backed by MongoDB.
func NewMongoAssignmentRepository(db *mongo.Database) repository.AssignmentRepository {
	return &mongoAssignmentRepository{
		collection: db.Collection(assignmentCollectionName),
	}
}

// Create inserts a new occurrence under its canonical string id.
func (r *mongoAssignmentRepository) Create(ctx context.Context, assignment *domain.CheckInAssignment) error {
	if assignment.ID == "" {
		return errors.New("assignment requires a canonical id")
	}
	if assignment.ClientID == primitive.NilObjectID || assignment.CoachID == primitive.NilObjectID {
		return errors.New("assignment requires clientId and coachId")
	}

	now := time.Now().UTC()
	assignment.CreatedAt = now
	assignment.UpdatedAt = now
	if assignment.Status == "" {
		assignment.Status = domain.StatusScheduled
	}

	_, err := r.collection.InsertOne(ctx, assignment)
	return err
}

// CreateMany batch-inserts pre-materialized occurrences. Unordered so one
// duplicate id does not fail the rest of the batch.
func (r *mongoAssignmentRepository) CreateMany(ctx context.Context, assignments []domain.CheckInAssignment) error {
	if len(assignments) == 0 {
		return nil
	}

	now := time.Now().UTC()
	docs := make([]interface{}, 0, len(assignments))
	for i := range assignments {
		a := assignments[i]
		if a.ID == "" {
			return errors.New("assignment requires a canonical id")
		}
		a.CreatedAt = now
		a.UpdatedAt = now
		if a.Status == "" {
			a.Status = domain.StatusScheduled
		}
		docs = append(docs, a)
	}

	_, err := r.collection.InsertMany(ctx, docs, options.InsertMany().SetOrdered(false))
	return err
}

// GetByID retrieves an occurrence by its canonical id.
func (r *mongoAssignmentRepository) GetByID(ctx context.Context, id string) (*domain.CheckInAssignment, error) {
	var assignment domain.CheckInAssignment
	filter := bson.M{"_id": id}

	err := r.collection.FindOne(ctx, filter).Decode(&assignment)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &assignment, nil
}

// GetByClientID retrieves all stored occurrences for a client, ordered by
// open time.
func (r *mongoAssignmentRepository) GetByClientID(ctx context.Context, clientID primitive.ObjectID) ([]domain.CheckInAssignment, error) {
	return r.find(ctx, bson.M{"clientId": clientID}, bson.D{{Key: "opensAt", Value: 1}})
}

// GetBySeriesID retrieves all stored occurrences of a series in week order.
func (r *mongoAssignmentRepository) GetBySeriesID(ctx context.Context, seriesID primitive.ObjectID) ([]domain.CheckInAssignment, error) {
	return r.find(ctx, bson.M{"seriesId": seriesID}, bson.D{{Key: "week", Value: 1}})
}

func (r *mongoAssignmentRepository) find(ctx context.Context, filter bson.M, sort bson.D) ([]domain.CheckInAssignment, error) {
	var assignments []domain.CheckInAssignment
	findOptions := options.Find().SetSort(sort)

	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &assignments); err != nil {
		return nil, err
	}
	if err = cursor.Err(); err != nil {
		return nil, err
	}
	return assignments, nil
}

// Upsert persists the occurrence under its canonical id. A full replace is
// safe here because submission is the only caller and it starts from the
// freshly materialized document; milestone updates go through
// RecordMilestone instead so they can never be clobbered by a stale copy.
func (r *mongoAssignmentRepository) Upsert(ctx context.Context, assignment *domain.CheckInAssignment) error {
	if assignment.ID == "" {
		return errors.New("assignment requires a canonical id")
	}

	now := time.Now().UTC()
	assignment.UpdatedAt = now
	if assignment.CreatedAt.IsZero() {
		assignment.CreatedAt = now
	}

	filter := bson.M{"_id": assignment.ID}
	update := bson.M{
		"$set": bson.M{
			"seriesId":   assignment.SeriesID,
			"week":       assignment.Week,
			"coachId":    assignment.CoachID,
			"clientId":   assignment.ClientID,
			"formId":     assignment.FormID,
			"opensAt":    assignment.OpensAt,
			"closesAt":   assignment.ClosesAt,
			"status":     assignment.Status,
			"responseId": assignment.ResponseID,
			"updatedAt":  assignment.UpdatedAt,
		},
		"$setOnInsert": bson.M{
			"createdAt": assignment.CreatedAt,
		},
		// Keep any milestones a concurrent sweep already recorded.
		"$addToSet": bson.M{
			"milestonesFired": bson.M{"$each": assignment.MilestonesFired},
		},
	}

	_, err := r.collection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	return err
}

// SetSubmitted merge-updates the submission fields only, leaving the
// milestone set untouched.
func (r *mongoAssignmentRepository) SetSubmitted(ctx context.Context, id string, responseID primitive.ObjectID, at time.Time) error {
	filter := bson.M{"_id": id}
	update := bson.M{
		"$set": bson.M{
			"status":     domain.StatusSubmitted,
			"responseId": responseID,
			"updatedAt":  at.UTC(),
		},
	}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// RecordMilestone durably adds m to the occurrence's fired set. The upsert
// creates the document from the supplied occurrence when the sweep fires
// for a still-virtual computed week, and $addToSet keeps the set
// monotonically growing under concurrent writers.
func (r *mongoAssignmentRepository) RecordMilestone(ctx context.Context, assignment *domain.CheckInAssignment, m domain.Milestone) error {
	if assignment.ID == "" {
		return errors.New("assignment requires a canonical id")
	}

	now := time.Now().UTC()
	filter := bson.M{"_id": assignment.ID}
	update := bson.M{
		"$addToSet": bson.M{"milestonesFired": m},
		"$set":      bson.M{"updatedAt": now},
		"$setOnInsert": bson.M{
			"seriesId":  assignment.SeriesID,
			"week":      assignment.Week,
			"coachId":   assignment.CoachID,
			"clientId":  assignment.ClientID,
			"formId":    assignment.FormID,
			"opensAt":   assignment.OpensAt,
			"closesAt":  assignment.ClosesAt,
			"status":    assignment.Status,
			"createdAt": now,
		},
	}

	_, err := r.collection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	return err
}

// ListClosingBetween returns unsubmitted stored occurrences whose close
// time falls inside [from, to], ordered by close time. This is the
// reminder sweep's candidate query for pre-created and one-off occurrences.
func (r *mongoAssignmentRepository) ListClosingBetween(ctx context.Context, from, to time.Time) ([]domain.CheckInAssignment, error) {
	filter := bson.M{
		"closesAt": bson.M{"$gte": from.UTC(), "$lte": to.UTC()},
		"status":   bson.M{"$nin": bson.A{domain.StatusSubmitted, domain.StatusClosed}},
	}
	return r.find(ctx, filter, bson.D{{Key: "closesAt", Value: 1}})
}

// CloseBySeries marks every non-submitted occurrence of a series closed.
// Used when a coach deactivates a series.
func (r *mongoAssignmentRepository) CloseBySeries(ctx context.Context, seriesID primitive.ObjectID) error {
	filter := bson.M{
		"seriesId": seriesID,
		"status":   bson.M{"$ne": domain.StatusSubmitted},
	}
	update := bson.M{
		"$set": bson.M{
			"status":    domain.StatusClosed,
			"updatedAt": time.Now().UTC(),
		},
	}

	_, err := r.collection.UpdateMany(ctx, filter, update)
	return err
}

// EnsureAssignmentIndexes creates necessary indexes for the occurrences
// collection.
func EnsureAssignmentIndexes(ctx context.Context, collection *mongo.Collection) {
	indexes := []mongo.IndexModel{
		{
			// Client check-in list, ordered by open time
			Keys:    bson.D{{Key: "clientId", Value: 1}, {Key: "opensAt", Value: 1}},
			Options: options.Index(),
		},
		{
			Keys:    bson.D{{Key: "seriesId", Value: 1}, {Key: "week", Value: 1}},
			Options: options.Index(),
		},
		{
			// Reminder sweep candidate query
			Keys:    bson.D{{Key: "closesAt", Value: 1}, {Key: "status", Value: 1}},
			Options: options.Index(),
		},
	}
	_, _ = collection.Indexes().CreateMany(ctx, indexes)
}
