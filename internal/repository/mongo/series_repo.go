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

const seriesCollectionName = "checkin_series"

// mongoSeriesRepository implements repository.SeriesRepository
type mongoSeriesRepository struct {
	collection *mongo.Collection
}

// NewMongoSeriesRepository creates a new check-in series repository backed by MongoDB.
func NewMongoSeriesRepository(db *mongo.Database) repository.SeriesRepository {
	return &mongoSeriesRepository{
		collection: db.Collection(seriesCollectionName),
	}
}

// Create inserts a new series.
func (r *mongoSeriesRepository) Create(ctx context.Context, series *domain.CheckInSeries) (primitive.ObjectID, error) {
	if series.CoachID == primitive.NilObjectID ||
		series.ClientID == primitive.NilObjectID ||
		series.FormID == primitive.NilObjectID {
		return primitive.NilObjectID, errors.New("series requires coachId, clientId, and formId")
	}
	if series.WindowDuration <= 0 {
		return primitive.NilObjectID, errors.New("series requires a positive window duration")
	}

	series.ID = primitive.NewObjectID()
	now := time.Now().UTC()
	series.CreatedAt = now
	series.UpdatedAt = now
	if series.Cadence == "" {
		series.Cadence = domain.CadenceWeekly
	}

	result, err := r.collection.InsertOne(ctx, series)
	if err != nil {
		return primitive.NilObjectID, err
	}
	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted series ID")
	}
	return insertedID, nil
}

// GetByID retrieves a single series by its ID.
func (r *mongoSeriesRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.CheckInSeries, error) {
	var series domain.CheckInSeries
	filter := bson.M{"_id": id}
	err := r.collection.FindOne(ctx, filter).Decode(&series)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &series, nil
}

// GetByClientID retrieves all series assigned to a client, oldest first.
func (r *mongoSeriesRepository) GetByClientID(ctx context.Context, clientID primitive.ObjectID) ([]domain.CheckInSeries, error) {
	return r.find(ctx, bson.M{"clientId": clientID})
}

// GetByCoachAndClientID retrieves series a coach created for a client.
func (r *mongoSeriesRepository) GetByCoachAndClientID(ctx context.Context, coachID, clientID primitive.ObjectID) ([]domain.CheckInSeries, error) {
	return r.find(ctx, bson.M{"coachId": coachID, "clientId": clientID})
}

// ListUnpaused retrieves every series not paused by its coach. The reminder
// sweep filters exhausted series itself since "exhausted" depends on the
// evaluation time.
func (r *mongoSeriesRepository) ListUnpaused(ctx context.Context) ([]domain.CheckInSeries, error) {
	return r.find(ctx, bson.M{"paused": false})
}

func (r *mongoSeriesRepository) find(ctx context.Context, filter bson.M) ([]domain.CheckInSeries, error) {
	var series []domain.CheckInSeries
	findOptions := options.Find().SetSort(bson.D{{Key: "startAt", Value: 1}})

	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &series); err != nil {
		return nil, err
	}
	if err = cursor.Err(); err != nil {
		return nil, err
	}
	return series, nil
}

// SetPaused pauses or resumes a series.
func (r *mongoSeriesRepository) SetPaused(ctx context.Context, id primitive.ObjectID, paused bool) error {
	return r.setFields(ctx, id, bson.M{"paused": paused})
}

// SetTotalWeeks edits the recurrence count. nil makes the series indefinite.
func (r *mongoSeriesRepository) SetTotalWeeks(ctx context.Context, id primitive.ObjectID, totalWeeks *int) error {
	if totalWeeks == nil {
		filter := bson.M{"_id": id}
		update := bson.M{
			"$unset": bson.M{"totalWeeks": ""},
			"$set":   bson.M{"updatedAt": time.Now().UTC()},
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
	return r.setFields(ctx, id, bson.M{"totalWeeks": *totalWeeks})
}

func (r *mongoSeriesRepository) setFields(ctx context.Context, id primitive.ObjectID, fields bson.M) error {
	fields["updatedAt"] = time.Now().UTC()
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": fields})
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// Delete removes a series document. Only explicit coach action reaches here.
func (r *mongoSeriesRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// EnsureSeriesIndexes creates necessary indexes for the series collection.
func EnsureSeriesIndexes(ctx context.Context, collection *mongo.Collection) {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "clientId", Value: 1}},
			Options: options.Index(),
		},
		{
			Keys:    bson.D{{Key: "coachId", Value: 1}, {Key: "clientId", Value: 1}},
			Options: options.Index(),
		},
		{
			Keys:    bson.D{{Key: "paused", Value: 1}},
			Options: options.Index(),
		},
	}
	_, _ = collection.Indexes().CreateMany(ctx, indexes)
}
