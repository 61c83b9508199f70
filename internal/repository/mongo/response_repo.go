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

const responseCollectionName = "checkin_responses"

// mongoResponseRepository implements repository.ResponseRepository
type mongoResponseRepository struct {
	collection *mongo.Collection
}

// NewMongoResponseRepository creates a new check-in response repository
// backed by MongoDB.
func NewMongoResponseRepository(db *mongo.Database) repository.ResponseRepository {
	return &mongoResponseRepository{
		collection: db.Collection(responseCollectionName),
	}
}

// Create inserts a new response.
func (r *mongoResponseRepository) Create(ctx context.Context, response *domain.CheckInResponse) (primitive.ObjectID, error) {
	if response.AssignmentID == "" || response.ClientID == primitive.NilObjectID {
		return primitive.NilObjectID, errors.New("response requires assignmentId and clientId")
	}

	response.ID = primitive.NewObjectID()
	if response.SubmittedAt.IsZero() {
		response.SubmittedAt = time.Now().UTC()
	}

	result, err := r.collection.InsertOne(ctx, response)
	if err != nil {
		return primitive.NilObjectID, err
	}
	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted response ID")
	}
	return insertedID, nil
}

// GetByID retrieves a response by its ID.
func (r *mongoResponseRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.CheckInResponse, error) {
	var response domain.CheckInResponse
	filter := bson.M{"_id": id}

	err := r.collection.FindOne(ctx, filter).Decode(&response)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &response, nil
}

// GetByAssignmentID retrieves the response for one occurrence, if any.
func (r *mongoResponseRepository) GetByAssignmentID(ctx context.Context, assignmentID string) (*domain.CheckInResponse, error) {
	var response domain.CheckInResponse
	filter := bson.M{"assignmentId": assignmentID}

	err := r.collection.FindOne(ctx, filter).Decode(&response)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &response, nil
}

// GetByAssignmentIDs retrieves responses for a set of occurrence ids,
// newest first.
func (r *mongoResponseRepository) GetByAssignmentIDs(ctx context.Context, assignmentIDs []string) ([]domain.CheckInResponse, error) {
	if len(assignmentIDs) == 0 {
		return nil, nil
	}

	var responses []domain.CheckInResponse
	filter := bson.M{"assignmentId": bson.M{"$in": assignmentIDs}}
	findOptions := options.Find().SetSort(bson.D{{Key: "submittedAt", Value: -1}})

	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &responses); err != nil {
		return nil, err
	}
	if err = cursor.Err(); err != nil {
		return nil, err
	}
	return responses, nil
}

// EnsureResponseIndexes creates necessary indexes for the responses
// collection.
func EnsureResponseIndexes(ctx context.Context, collection *mongo.Collection) {
	indexes := []mongo.IndexModel{
		{
			// One response per occurrence
			Keys:    bson.D{{Key: "assignmentId", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "clientId", Value: 1}, {Key: "submittedAt", Value: -1}},
			Options: options.Index(),
		},
	}
	_, _ = collection.Indexes().CreateMany(ctx, indexes)
}
