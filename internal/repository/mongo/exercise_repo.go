package mongo

import (
	"context"
	"errors"
	"log"
	"time"

	"thebes/thebes-server/internal/domain"
	"thebes/thebes-server/internal/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const exerciseCollectionName = "exercises"

// mongoExerciseRepository implements repository.ExerciseRepository
type mongoExerciseRepository struct {
	collection *mongo.Collection
}

// NewMongoExerciseRepository creates a new Exercise repository backed by MongoDB.
func NewMongoExerciseRepository(db *mongo.Database) repository.ExerciseRepository {
	return &mongoExerciseRepository{
		collection: db.Collection(exerciseCollectionName),
	}
}

func stampExercise(exercise *domain.Exercise) error {
	if exercise.Name == "" || exercise.UserID == "" {
		return errors.New("exercise name and user ID are required")
	}
	// Exactly one parent: a workout or a template.
	if (exercise.WorkoutID == nil) == (exercise.TemplateID == nil) {
		return errors.New("exercise must reference exactly one of workoutId or templateId")
	}
	exercise.ID = primitive.NewObjectID()
	now := time.Now().UTC()
	exercise.CreatedAt = now
	exercise.UpdatedAt = now
	return nil
}

// Create inserts a new exercise record.
func (r *mongoExerciseRepository) Create(ctx context.Context, exercise *domain.Exercise) (primitive.ObjectID, error) {
	if err := stampExercise(exercise); err != nil {
		return primitive.NilObjectID, err
	}

	result, err := r.collection.InsertOne(ctx, exercise)
	if err != nil {
		return primitive.NilObjectID, err
	}
	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted ID")
	}
	return insertedID, nil
}

// CreateMany inserts a batch of exercise records in one round trip.
func (r *mongoExerciseRepository) CreateMany(ctx context.Context, exercises []domain.Exercise) error {
	if len(exercises) == 0 {
		return nil
	}
	docs := make([]interface{}, 0, len(exercises))
	for i := range exercises {
		if err := stampExercise(&exercises[i]); err != nil {
			return err
		}
		docs = append(docs, exercises[i])
	}
	_, err := r.collection.InsertMany(ctx, docs)
	return err
}

func (r *mongoExerciseRepository) findSorted(ctx context.Context, filter bson.M, sort bson.D) ([]domain.Exercise, error) {
	var exercises []domain.Exercise
	cursor, err := r.collection.Find(ctx, filter, options.Find().SetSort(sort))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &exercises); err != nil {
		return nil, err
	}
	if err = cursor.Err(); err != nil {
		return nil, err
	}
	if exercises == nil {
		exercises = []domain.Exercise{}
	}
	return exercises, nil
}

// GetByWorkoutID retrieves the exercises of one workout in their explicit order.
func (r *mongoExerciseRepository) GetByWorkoutID(ctx context.Context, workoutID primitive.ObjectID) ([]domain.Exercise, error) {
	return r.findSorted(ctx, bson.M{"workoutId": workoutID}, bson.D{{Key: "order", Value: 1}})
}

// GetByTemplateID retrieves the exercises of one template in their explicit order.
func (r *mongoExerciseRepository) GetByTemplateID(ctx context.Context, templateID primitive.ObjectID) ([]domain.Exercise, error) {
	return r.findSorted(ctx, bson.M{"templateId": templateID}, bson.D{{Key: "order", Value: 1}})
}

// CountByWorkoutID counts the exercises attached to one workout.
func (r *mongoExerciseRepository) CountByWorkoutID(ctx context.Context, workoutID primitive.ObjectID) (int64, error) {
	return r.collection.CountDocuments(ctx, bson.M{"workoutId": workoutID})
}

// GetHistoryByName returns the workout-linked records for one exercise name
// within [from, to], ascending by the denormalized date. Template records
// (no date, no workoutId) never match.
func (r *mongoExerciseRepository) GetHistoryByName(ctx context.Context, userID, name string, from, to time.Time) ([]domain.Exercise, error) {
	filter := bson.M{
		"userId":    userID,
		"name":      name,
		"workoutId": bson.M{"$exists": true},
		"date":      bson.M{"$gte": from.UTC(), "$lte": to.UTC()},
	}
	return r.findSorted(ctx, filter, bson.D{{Key: "date", Value: 1}})
}

// DistinctNames lists the distinct exercise names a user has ever logged.
func (r *mongoExerciseRepository) DistinctNames(ctx context.Context, userID string) ([]string, error) {
	values, err := r.collection.Distinct(ctx, "name", bson.M{"userId": userID})
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(values))
	for _, v := range values {
		if s, ok := v.(string); ok {
			names = append(names, s)
		}
	}
	return names, nil
}

// UpdateSets replaces the set list of one exercise record, enforcing ownership.
func (r *mongoExerciseRepository) UpdateSets(ctx context.Context, id primitive.ObjectID, userID string, sets []domain.SetData) error {
	filter := bson.M{"_id": id, "userId": userID}
	update := bson.M{"$set": bson.M{"sets": sets, "updatedAt": time.Now().UTC()}}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// SetDateByWorkoutID rewrites the denormalized date on every exercise of a
// workout. Called when the parent workout's date changes.
func (r *mongoExerciseRepository) SetDateByWorkoutID(ctx context.Context, workoutID primitive.ObjectID, date time.Time) error {
	update := bson.M{"$set": bson.M{"date": date.UTC(), "updatedAt": time.Now().UTC()}}
	_, err := r.collection.UpdateMany(ctx, bson.M{"workoutId": workoutID}, update)
	return err
}

// DeleteByWorkoutID removes all exercises of one workout.
func (r *mongoExerciseRepository) DeleteByWorkoutID(ctx context.Context, workoutID primitive.ObjectID) error {
	_, err := r.collection.DeleteMany(ctx, bson.M{"workoutId": workoutID})
	return err
}

// DeleteByTemplateID removes all exercises of one template.
func (r *mongoExerciseRepository) DeleteByTemplateID(ctx context.Context, templateID primitive.ObjectID) error {
	_, err := r.collection.DeleteMany(ctx, bson.M{"templateId": templateID})
	return err
}

// DeleteByUserID removes every exercise record a user owns. Used by account deletion.
func (r *mongoExerciseRepository) DeleteByUserID(ctx context.Context, userID string) error {
	_, err := r.collection.DeleteMany(ctx, bson.M{"userId": userID})
	return err
}

// EnsureExerciseIndexes creates necessary indexes. Call during startup.
func EnsureExerciseIndexes(ctx context.Context, collection *mongo.Collection) {
	indexes := []mongo.IndexModel{
		{
			// Per-parent lookups.
			Keys:    bson.D{{Key: "workoutId", Value: 1}},
			Options: options.Index().SetSparse(true),
		},
		{
			Keys:    bson.D{{Key: "templateId", Value: 1}},
			Options: options.Index().SetSparse(true),
		},
		{
			// Backs the per-exercise history query for analytics.
			Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "name", Value: 1}, {Key: "date", Value: 1}},
			Options: options.Index(),
		},
	}
	if _, err := collection.Indexes().CreateMany(ctx, indexes); err != nil {
		log.Printf("WARN: could not ensure exercise indexes: %v", err)
	}
}
