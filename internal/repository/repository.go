package repository

import (
	"context"
	"time"

	"thebes/thebes-server/internal/domain"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Error constants for the repository layer.
var (
	ErrNotFound     = RepositoryError("not found")
	ErrUpdateFailed = RepositoryError("update failed")
	ErrDeleteFailed = RepositoryError("delete failed")
)

// RepositoryError helps distinguish repository errors.
type RepositoryError string

func (e RepositoryError) Error() string {
	return string(e)
}

// ProfileFields is a partial update of the editable profile attributes.
// Nil fields are left untouched.
type ProfileFields struct {
	DisplayName         *string
	ProfilePic          *string
	SelectedAvatar      *string
	UseGradientAvatar   *bool
	Tagline             *string
	PreferredWeightUnit *domain.WeightUnit
	TrackedExercise     *string
}

// UserRepository defines the interface for interacting with user profiles,
// including the follower/following arrays that hold the social graph.
type UserRepository interface {
	Create(ctx context.Context, profile *domain.UserProfile) (primitive.ObjectID, error)
	GetByUID(ctx context.Context, uid string) (*domain.UserProfile, error)
	GetByEmail(ctx context.Context, email string) (*domain.UserProfile, error)
	GetByUIDs(ctx context.Context, uids []string) ([]domain.UserProfile, error)
	SearchByDisplayNamePrefix(ctx context.Context, prefix string, limit int64) ([]domain.UserProfile, error)
	UpdateFields(ctx context.Context, uid string, fields ProfileFields) error
	UpdatePasswordHash(ctx context.Context, uid, hash string) error
	SetResetToken(ctx context.Context, uid, token string, expiresAt time.Time) error
	GetByResetToken(ctx context.Context, token string) (*domain.UserProfile, error)
	ClearResetToken(ctx context.Context, uid string) error

	// Social graph array updates. All are idempotent single-document
	// operations ($addToSet / $pull).
	AddFollowing(ctx context.Context, uid, targetUID string) error
	RemoveFollowing(ctx context.Context, uid, targetUID string) error
	AddFollower(ctx context.Context, uid, followerUID string) error
	RemoveFollower(ctx context.Context, uid, followerUID string) error
	// UpsertSeedWithFollower creates a seed profile for an unknown uid and
	// records the follower, without clobbering any existing followers.
	UpsertSeedWithFollower(ctx context.Context, uid, followerUID string) error

	Delete(ctx context.Context, uid string) error
}

// WorkoutRepository defines the interface for interacting with workouts.
type WorkoutRepository interface {
	Create(ctx context.Context, workout *domain.Workout) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Workout, error)
	GetByUserID(ctx context.Context, userID string) ([]domain.Workout, error)
	// GetRecentByOwners fetches workouts owned by any of the given uids with
	// date >= since, newest first, capped at limit.
	GetRecentByOwners(ctx context.Context, ownerUIDs []string, since time.Time, limit int64) ([]domain.Workout, error)
	Update(ctx context.Context, workout *domain.Workout) error
	Delete(ctx context.Context, id primitive.ObjectID, userID string) error
	DeleteByUserID(ctx context.Context, userID string) error
}

// TemplateRepository defines the interface for interacting with templates.
type TemplateRepository interface {
	Create(ctx context.Context, template *domain.Template) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Template, error)
	GetByUserID(ctx context.Context, userID string) ([]domain.Template, error)
	Delete(ctx context.Context, id primitive.ObjectID, userID string) error
	DeleteByUserID(ctx context.Context, userID string) error
}

// ExerciseRepository defines the interface for interacting with logged and
// templated exercise records.
type ExerciseRepository interface {
	Create(ctx context.Context, exercise *domain.Exercise) (primitive.ObjectID, error)
	CreateMany(ctx context.Context, exercises []domain.Exercise) error
	GetByWorkoutID(ctx context.Context, workoutID primitive.ObjectID) ([]domain.Exercise, error)
	GetByTemplateID(ctx context.Context, templateID primitive.ObjectID) ([]domain.Exercise, error)
	CountByWorkoutID(ctx context.Context, workoutID primitive.ObjectID) (int64, error)
	// GetHistoryByName returns workout-linked records for one exercise name
	// within [from, to], ascending by date. Template records are excluded.
	GetHistoryByName(ctx context.Context, userID, name string, from, to time.Time) ([]domain.Exercise, error)
	DistinctNames(ctx context.Context, userID string) ([]string, error)
	UpdateSets(ctx context.Context, id primitive.ObjectID, userID string, sets []domain.SetData) error
	SetDateByWorkoutID(ctx context.Context, workoutID primitive.ObjectID, date time.Time) error
	DeleteByWorkoutID(ctx context.Context, workoutID primitive.ObjectID) error
	DeleteByTemplateID(ctx context.Context, templateID primitive.ObjectID) error
	DeleteByUserID(ctx context.Context, userID string) error
}
