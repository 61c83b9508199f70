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

const formCollectionName = "checkin_forms"

// mongoFormRepository implements repository.FormRepository
type mongoFormRepository struct {
	collection *mongo.Collection
}

// NewMongoFormRepository creates a new check-in form repository backed by MongoDB.
func NewMongoFormRepository(db *mongo.Database) repository.FormRepository {
	return &mongoFormRepository{
		collection: db.Collection(formCollectionName),
	}
}

// Create inserts a new check-in form.
func (r *mongoFormRepository) Create(ctx context.Context, form *domain.CheckInForm) (primitive.ObjectID, error) {
	if form.CoachID == primitive.NilObjectID || form.Title == "" {
		return primitive.NilObjectID, errors.New("form requires coachId and title")
	}

	form.ID = primitive.NewObjectID()
	now := time.Now().UTC()
	form.CreatedAt = now
	form.UpdatedAt = now

	result, err := r.collection.InsertOne(ctx, form)
	if err != nil {
		return primitive.NilObjectID, err
	}
	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted form ID")
	}
	return insertedID, nil
}

// GetByID retrieves a single form by its ID.
func (r *mongoFormRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.CheckInForm, error) {
	var form domain.CheckInForm
	filter := bson.M{"_id": id}
	err := r.collection.FindOne(ctx, filter).Decode(&form)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &form, nil
}

// GetByCoachID retrieves all forms owned by a coach, newest first.
func (r *mongoFormRepository) GetByCoachID(ctx context.Context, coachID primitive.ObjectID) ([]domain.CheckInForm, error) {
	var forms []domain.CheckInForm
	filter := bson.M{"coachId": coachID}
	findOptions := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})

	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &forms); err != nil {
		return nil, err
	}
	if err = cursor.Err(); err != nil {
		return nil, err
	}
	return forms, nil
}

// EnsureFormIndexes creates necessary indexes for the forms collection.
func EnsureFormIndexes(ctx context.Context, collection *mongo.Collection) {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "coachId", Value: 1}},
			Options: options.Index(),
		},
	}
	_, _ = collection.Indexes().CreateMany(ctx, indexes)
}
